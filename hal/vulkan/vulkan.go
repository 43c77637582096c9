// Package vulkan implements hal.CommandBuffer on a VkCommandBuffer through
// github.com/goki/vulkan.
//
// Barrier resources must be vk.Buffer and vk.Image handles. goki/vulkan
// has no wrappers for the VK_EXT_debug_marker commands, so debug markers
// are dropped unless a MarkerWriter is supplied with WithDebugMarkers.
package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/fhn666/wgpu/hal"
)

// Option configures a CommandBuffer.
type Option func(*CommandBuffer)

// MarkerWriter records the VK_EXT_debug_marker commands, usually through
// entry points the caller resolved with vkGetDeviceProcAddr on a device
// that enabled the extension.
type MarkerWriter interface {
	CmdDebugMarkerBegin(cmd vk.CommandBuffer, info *vk.DebugMarkerMarkerInfo)
	CmdDebugMarkerInsert(cmd vk.CommandBuffer, info *vk.DebugMarkerMarkerInfo)
	CmdDebugMarkerEnd(cmd vk.CommandBuffer)
}

// WithDebugMarkers sends debug markers to w. A nil w drops them.
func WithDebugMarkers(w MarkerWriter) Option {
	return func(c *CommandBuffer) { c.markers = w }
}

// CommandBuffer wraps a VkCommandBuffer in the recording state.
type CommandBuffer struct {
	raw     vk.CommandBuffer
	markers MarkerWriter
}

// New wraps raw. The caller keeps ownership of the command buffer and its
// pool.
func New(raw vk.CommandBuffer, opts ...Option) *CommandBuffer {
	c := &CommandBuffer{raw: raw}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Raw returns the wrapped handle.
func (c *CommandBuffer) Raw() vk.CommandBuffer { return c.raw }

// PipelineBarrier records vkCmdPipelineBarrier with one memory barrier per
// resource transition.
func (c *CommandBuffer) PipelineBarrier(src, dst hal.StageFlags, buffers []hal.BufferBarrier, textures []hal.TextureBarrier) {
	bufferBarriers := make([]vk.BufferMemoryBarrier, len(buffers))
	for i, b := range buffers {
		bufferBarriers[i] = bufferBarrier(b)
	}
	imageBarriers := make([]vk.ImageMemoryBarrier, len(textures))
	for i, t := range textures {
		imageBarriers[i] = imageBarrier(t)
	}
	vk.CmdPipelineBarrier(c.raw,
		stageFlags(src), stageFlags(dst), 0,
		0, nil,
		uint32(len(bufferBarriers)), bufferBarriers,
		uint32(len(imageBarriers)), imageBarriers)
}

// BeginDebugMarker implements hal.CommandBuffer.
func (c *CommandBuffer) BeginDebugMarker(label string, color uint32) {
	if c.markers == nil {
		return
	}
	info := markerInfo(label, color)
	c.markers.CmdDebugMarkerBegin(c.raw, &info)
}

// InsertDebugMarker implements hal.CommandBuffer.
func (c *CommandBuffer) InsertDebugMarker(label string, color uint32) {
	if c.markers == nil {
		return
	}
	info := markerInfo(label, color)
	c.markers.CmdDebugMarkerInsert(c.raw, &info)
}

// EndDebugMarker implements hal.CommandBuffer.
func (c *CommandBuffer) EndDebugMarker() {
	if c.markers == nil {
		return
	}
	c.markers.CmdDebugMarkerEnd(c.raw)
}

var _ hal.CommandBuffer = (*CommandBuffer)(nil)

func bufferBarrier(b hal.BufferBarrier) vk.BufferMemoryBarrier {
	buf, ok := b.Buffer.(vk.Buffer)
	if !ok {
		panic(fmt.Sprintf("vulkan: buffer barrier on %T", b.Buffer))
	}
	size := vk.DeviceSize(vk.WholeSize)
	if b.Size != 0 {
		size = vk.DeviceSize(b.Size)
	}
	return vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       bufferAccess(b.Old),
		DstAccessMask:       bufferAccess(b.New),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buf,
		Offset:              vk.DeviceSize(b.Offset),
		Size:                size,
	}
}

func imageBarrier(t hal.TextureBarrier) vk.ImageMemoryBarrier {
	img, ok := t.Texture.(vk.Image)
	if !ok {
		panic(fmt.Sprintf("vulkan: texture barrier on %T", t.Texture))
	}
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       textureAccess(t.Old, t.Range.Aspects),
		DstAccessMask:       textureAccess(t.New, t.Range.Aspects),
		OldLayout:           imageLayout(t.OldLayout),
		NewLayout:           imageLayout(t.NewLayout),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectMask(t.Range.Aspects),
			BaseMipLevel:   t.Range.BaseMipLevel,
			LevelCount:     max(t.Range.LevelCount, 1),
			BaseArrayLayer: t.Range.BaseArrayLayer,
			LayerCount:     max(t.Range.LayerCount, 1),
		},
	}
}

func markerInfo(label string, color uint32) vk.DebugMarkerMarkerInfo {
	return vk.DebugMarkerMarkerInfo{
		SType:       vk.StructureTypeDebugMarkerMarkerInfo,
		PMarkerName: safeString(label),
		Color:       unpackColor(color),
	}
}

// unpackColor splits 0xRRGGBBAA into normalized components.
func unpackColor(c uint32) [4]float32 {
	return [4]float32{
		float32(c>>24&0xff) / 255,
		float32(c>>16&0xff) / 255,
		float32(c>>8&0xff) / 255,
		float32(c&0xff) / 255,
	}
}

// safeString null-terminates s for the C side.
func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}
