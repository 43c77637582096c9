package trace

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/google/uuid"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/command"
)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithTraceID sets the identifier of the trace. By default a random one is
// generated.
func WithTraceID(traceID uuid.UUID) RecorderOption {
	return func(r *Recorder) { r.id = traceID }
}

// Recorder is a command.Observer that records every event as an Action.
// It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	id      uuid.UUID
	backend gputypes.Backend
	actions []Action
}

// NewRecorder returns an empty recorder for a Global of the given backend.
func NewRecorder(backend gputypes.Backend, opts ...RecorderOption) *Recorder {
	r := &Recorder{id: uuid.New(), backend: backend}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the trace identifier.
func (r *Recorder) ID() uuid.UUID { return r.id }

// Len returns the number of recorded actions.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

// Trace returns the actions recorded so far.
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Trace{
		Version: FormatVersion,
		ID:      r.id,
		Backend: uint32(r.backend),
		Actions: slices.Clone(r.actions),
	}
}

// Reset drops the recorded actions.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = nil
}

// Observe implements command.Observer.
func (r *Recorder) Observe(e command.Event) {
	a, ok := actionFor(e)
	if !ok {
		wgpu.Logger().Warn("trace: event not recorded", "event", fmt.Sprintf("%T", e))
		return
	}
	r.mu.Lock()
	r.actions = append(r.actions, a)
	r.mu.Unlock()
}

func actionFor(e command.Event) (Action, bool) {
	switch e := e.(type) {
	case command.DeviceRegistered:
		return Action{CreateDevice: &CreateDevice{ID: refOf(e.ID), Label: e.Device.Label}}, true
	case command.BufferRegistered:
		return Action{CreateBuffer: &CreateBuffer{
			ID:     refOf(e.ID),
			Device: refOf(e.Buffer.Device),
			Size:   e.Buffer.Size,
			Usage:  uint64(e.Buffer.Usage),
			Label:  e.Buffer.Label,
		}}, true
	case command.TextureRegistered:
		t := e.Texture
		return Action{CreateTexture: &CreateTexture{
			ID:              refOf(e.ID),
			Device:          refOf(t.Device),
			Format:          uint32(t.Format),
			Aspects:         t.Aspects,
			MipLevelCount:   t.MipLevelCount,
			ArrayLayerCount: t.ArrayLayerCount,
			Usage:           uint64(t.Usage),
			Label:           t.Label,
		}}, true
	case command.TextureViewRegistered:
		rg := e.View.Range
		return Action{CreateTextureView: &CreateTextureView{
			ID:      refOf(e.ID),
			Texture: refOf(e.View.Parent),
			Range: Range{
				Aspects:        rg.Aspects,
				BaseMipLevel:   rg.BaseMipLevel,
				LevelCount:     rg.LevelCount,
				BaseArrayLayer: rg.BaseArrayLayer,
				LayerCount:     rg.LayerCount,
			},
			Label: e.View.Label,
		}}, true
	case command.ObjectRegistered:
		return Action{CreateObject: &CreateObject{Kind: e.Kind.String(), ID: Ref(e.ID), Label: e.Label}}, true
	case command.EncoderBegun:
		return Action{BeginEncoder: &BeginEncoder{ID: refOf(e.ID), Device: refOf(e.Device), Label: e.Label}}, true
	case command.DebugGroupPushed:
		return Action{PushDebugGroup: &DebugLabel{Encoder: refOf(e.ID), Label: e.Label}}, true
	case command.DebugMarkerInserted:
		return Action{InsertDebugMarker: &DebugLabel{Encoder: refOf(e.ID), Label: e.Label}}, true
	case command.DebugGroupPopped:
		return Action{PopDebugGroup: &EncoderRef{Encoder: refOf(e.ID)}}, true
	case command.ComputePassRun:
		return Action{RunComputePass: &ComputePass{
			Encoder:          refOf(e.ID),
			Commands:         e.Pass.Commands,
			DynamicOffsets:   e.Pass.DynamicOffsets,
			StringData:       string(e.Pass.StringData),
			PushConstantData: e.Pass.PushConstantData,
			Usage:            UsageOf(e.Usage),
		}}, true
	case command.RenderPassRun:
		return Action{RunRenderPass: &RenderPass{
			Encoder:          refOf(e.ID),
			Commands:         e.Pass.Commands,
			DynamicOffsets:   e.Pass.DynamicOffsets,
			StringData:       string(e.Pass.StringData),
			PushConstantData: e.Pass.PushConstantData,
			Usage:            UsageOf(e.Usage),
		}}, true
	case command.EncoderFinished:
		return Action{Finish: &EncoderRef{Encoder: refOf(e.ID)}}, true
	case command.SwapChainCreated:
		return Action{CreateSwapChain: &CreateSwapChain{ID: refOf(e.ID), Device: refOf(e.Device), Format: uint32(e.Format)}}, true
	case command.SwapChainViewAcquired:
		return Action{AcquireSwapChainView: &SwapChainView{SwapChain: refOf(e.SwapChain), View: refOf(e.View)}}, true
	case command.SwapChainPresented:
		return Action{PresentSwapChain: &SwapChainRef{SwapChain: refOf(e.SwapChain)}}, true
	case command.EncoderContinued:
		return Action{ContinueEncoder: &EncoderRef{Encoder: refOf(e.ID)}}, true
	case command.SwapChainUsed:
		return Action{UseSwapChain: &UseSwapChain{Encoder: refOf(e.ID), SwapChain: refOf(e.SwapChain)}}, true
	case command.BufferDestroyed:
		return Action{DestroyBuffer: &ObjectRef{ID: refOf(e.ID)}}, true
	case command.TextureDestroyed:
		return Action{DestroyTexture: &ObjectRef{ID: refOf(e.ID)}}, true
	case command.TextureViewDestroyed:
		return Action{DestroyTextureView: &ObjectRef{ID: refOf(e.ID)}}, true
	case command.Submitted:
		refs := make([]Ref, len(e.CommandBuffers))
		for i, cb := range e.CommandBuffers {
			refs[i] = refOf(cb)
		}
		return Action{Submit: &Submit{CommandBuffers: refs}}, true
	case command.Maintained:
		return Action{Maintain: &Maintain{Device: refOf(e.Device), Wait: e.Wait}}, true
	default:
		return Action{}, false
	}
}

var _ command.Observer = (*Recorder)(nil)
