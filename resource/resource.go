package resource

import (
	"github.com/fhn666/wgpu/id"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Identities of the objects defined in this package.
type (
	DeviceID          = id.ID[Device]
	SwapChainID       = id.ID[SwapChain]
	BufferID          = id.ID[Buffer]
	TextureID         = id.ID[Texture]
	TextureViewID     = id.ID[TextureView]
	BindGroupID       = id.ID[BindGroup]
	SamplerID         = id.ID[Sampler]
	ComputePipelineID = id.ID[ComputePipeline]
	RenderPipelineID  = id.ID[RenderPipeline]
	RenderBundleID    = id.ID[RenderBundle]
)

// Device is the owner of every session and resource created on it.
// Limits and Features are copied into each session at creation.
type Device struct {
	Raw      gpucontext.Device
	Label    string
	Limits   gputypes.Limits
	Features gputypes.Features
}

// SwapChain hands out one presentable texture view at a time.
type SwapChain struct {
	Device DeviceID
	Format gputypes.TextureFormat

	// AcquiredView is the view currently acquired for rendering, nil once
	// the frame has been presented.
	AcquiredView *TextureViewID
}

// Buffer is a linear GPU allocation. Raw is the backend handle the barrier
// descriptors refer to.
type Buffer struct {
	Raw    any
	Device DeviceID
	Size   uint64
	Usage  gputypes.BufferUsage
	Label  string
}

// Texture is an image allocation. Raw is the backend handle the barrier
// descriptors refer to.
type Texture struct {
	Raw             any
	Device          DeviceID
	Format          gputypes.TextureFormat
	Aspects         Aspects
	MipLevelCount   uint32
	ArrayLayerCount uint32
	Usage           gputypes.TextureUsage
	Label           string
}

// FullRange returns the range covering every subresource of t.
func (t *Texture) FullRange() SubresourceRange {
	return SubresourceRange{
		Aspects:        t.Aspects,
		BaseMipLevel:   0,
		LevelCount:     max(t.MipLevelCount, 1),
		BaseArrayLayer: 0,
		LayerCount:     max(t.ArrayLayerCount, 1),
	}
}

// TextureView is a view onto a range of a texture.
type TextureView struct {
	Raw    any
	Parent TextureID
	Range  SubresourceRange
	Label  string
}

// BindGroup, Sampler, ComputePipeline, RenderPipeline and RenderBundle are
// only referenced by identity; their contents belong to the layers above.
type (
	BindGroup       struct{ Label string }
	Sampler         struct{ Label string }
	ComputePipeline struct{ Label string }
	RenderPipeline  struct{ Label string }
	RenderBundle    struct{ Label string }
)
