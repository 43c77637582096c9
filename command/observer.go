package command

import (
	"github.com/gogpu/gputypes"

	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

// Observer receives an Event after each successful operation. Observe is
// called after every table has been released and must be safe for
// concurrent use.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

// Event is one of the event types below.
type Event interface {
	event()
}

// DeviceRegistered is emitted by RegisterDevice.
type DeviceRegistered struct {
	ID     resource.DeviceID
	Device resource.Device
}

// SwapChainCreated is emitted by CreateSwapChain.
type SwapChainCreated struct {
	ID     resource.SwapChainID
	Device resource.DeviceID
	Format gputypes.TextureFormat
}

// SwapChainViewAcquired is emitted by AcquireSwapChainView.
type SwapChainViewAcquired struct {
	SwapChain resource.SwapChainID
	View      resource.TextureViewID
}

// SwapChainPresented is emitted by PresentSwapChain.
type SwapChainPresented struct {
	SwapChain resource.SwapChainID
}

// BufferRegistered is emitted by RegisterBuffer.
type BufferRegistered struct {
	ID     resource.BufferID
	Buffer resource.Buffer
}

// TextureRegistered is emitted by RegisterTexture.
type TextureRegistered struct {
	ID      resource.TextureID
	Texture resource.Texture
}

// TextureViewRegistered is emitted by RegisterTextureView.
type TextureViewRegistered struct {
	ID   resource.TextureViewID
	View resource.TextureView
}

// BufferDestroyed is emitted by DestroyBuffer.
type BufferDestroyed struct {
	ID resource.BufferID
}

// TextureDestroyed is emitted by DestroyTexture.
type TextureDestroyed struct {
	ID resource.TextureID
}

// TextureViewDestroyed is emitted by DestroyTextureView.
type TextureViewDestroyed struct {
	ID resource.TextureViewID
}

// ObjectKind names the categories registered by identity only.
type ObjectKind uint8

// Identity-only categories.
const (
	ObjectBindGroup ObjectKind = iota + 1
	ObjectSampler
	ObjectComputePipeline
	ObjectRenderPipeline
	ObjectRenderBundle
)

func (k ObjectKind) String() string {
	switch k {
	case ObjectBindGroup:
		return "bind_group"
	case ObjectSampler:
		return "sampler"
	case ObjectComputePipeline:
		return "compute_pipeline"
	case ObjectRenderPipeline:
		return "render_pipeline"
	case ObjectRenderBundle:
		return "render_bundle"
	default:
		return "unknown"
	}
}

// ObjectRegistered is emitted when a bind group, sampler, pipeline or
// bundle is registered. ID is the raw identity.
type ObjectRegistered struct {
	Kind  ObjectKind
	ID    uint64
	Label string
}

// EncoderBegun is emitted by BeginEncoder.
type EncoderBegun struct {
	ID     CommandEncoderID
	Device resource.DeviceID
	Label  string
}

// EncoderContinued is emitted by ContinueEncoder. Later commands of the
// session go to the raw buffer passed with it.
type EncoderContinued struct {
	ID CommandEncoderID
}

// SwapChainUsed is emitted by UseSwapChain.
type SwapChainUsed struct {
	ID        CommandEncoderID
	SwapChain resource.SwapChainID
}

// DebugGroupPushed is emitted by PushDebugGroup.
type DebugGroupPushed struct {
	ID    CommandEncoderID
	Label string
}

// DebugMarkerInserted is emitted by InsertDebugMarker.
type DebugMarkerInserted struct {
	ID    CommandEncoderID
	Label string
}

// DebugGroupPopped is emitted by PopDebugGroup.
type DebugGroupPopped struct {
	ID CommandEncoderID
}

// ComputePassRun is emitted by RunComputePass with owned copies of the
// pass and its usage scope.
type ComputePassRun struct {
	ID    CommandEncoderID
	Pass  *BasePass[ComputeCommand]
	Usage *track.TrackerSet
}

// RenderPassRun is emitted by RunRenderPass with owned copies of the pass
// and its usage scope.
type RenderPassRun struct {
	ID    CommandEncoderID
	Pass  *BasePass[RenderCommand]
	Usage *track.TrackerSet
}

// EncoderFinished is emitted by Finish.
type EncoderFinished struct {
	ID CommandEncoderID
}

// Submitted is emitted by Submit.
type Submitted struct {
	Index          uint64
	CommandBuffers []CommandBufferID
}

// Maintained is emitted by Maintain.
type Maintained struct {
	Device  resource.DeviceID
	Wait    bool
	Retired int
}

func (DeviceRegistered) event()      {}
func (SwapChainCreated) event()      {}
func (SwapChainViewAcquired) event() {}
func (SwapChainPresented) event()    {}
func (BufferRegistered) event()      {}
func (TextureRegistered) event()     {}
func (TextureViewRegistered) event() {}
func (BufferDestroyed) event()       {}
func (TextureDestroyed) event()      {}
func (TextureViewDestroyed) event()  {}
func (ObjectRegistered) event()      {}
func (EncoderBegun) event()          {}
func (EncoderContinued) event()      {}
func (SwapChainUsed) event()         {}
func (DebugGroupPushed) event()      {}
func (DebugMarkerInserted) event()   {}
func (DebugGroupPopped) event()      {}
func (ComputePassRun) event()        {}
func (RenderPassRun) event()         {}
func (EncoderFinished) event()       {}
func (Submitted) event()             {}
func (Maintained) event()            {}
