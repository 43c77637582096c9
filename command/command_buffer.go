package command

import (
	"github.com/gogpu/gputypes"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

// CommandEncoderID identifies a session while it records; CommandBufferID
// identifies the same session once finished.
type (
	CommandEncoderID = id.ID[CommandBuffer]
	CommandBufferID  = id.ID[CommandBuffer]
)

// usedSwapChain is the swap chain whose acquired view a session renders to.
type usedSwapChain struct {
	id   resource.SwapChainID
	view resource.TextureViewID
}

// CommandBuffer is a recording session. It is only reachable through the
// Global that owns it.
type CommandBuffer struct {
	raw         []hal.CommandBuffer
	isRecording bool
	affinity    Affinity
	device      resource.DeviceID
	trackers    *track.TrackerSet
	swapChain   *usedSwapChain
	limits      gputypes.Limits
	features    gputypes.Features
	label       string
	observer    Observer

	submission uint64
}

// last returns the raw buffer currently receiving commands.
func (cb *CommandBuffer) last() hal.CommandBuffer {
	track.Assert(len(cb.raw) > 0, "session %q has no raw command buffer", cb.label)
	return cb.raw[len(cb.raw)-1]
}

// check validates the caller token and the recording state.
func (cb *CommandBuffer) check(tok Affinity) error {
	if cb.affinity != tok {
		return ErrAffinity
	}
	if !cb.isRecording {
		return ErrNotRecording
	}
	return nil
}

// abortOnInvariant marks the session as no longer recording when an
// invariant violation unwinds through the caller, then re-panics. It must
// be deferred while the session table is still write-locked.
func (cb *CommandBuffer) abortOnInvariant() {
	r := recover()
	if r == nil {
		return
	}
	if v, ok := r.(track.InvariantViolation); ok {
		cb.isRecording = false
		wgpu.Logger().Error("command: session aborted", "label", cb.label, "err", v.Error())
	}
	panic(r)
}

// Info is a read-only snapshot of a session.
type Info struct {
	Label       string
	Device      resource.DeviceID
	IsRecording bool
	Submitted   bool
	RawBuffers  int
	Limits      gputypes.Limits
	Features    gputypes.Features
}

func (cb *CommandBuffer) info() Info {
	return Info{
		Label:       cb.label,
		Device:      cb.device,
		IsRecording: cb.isRecording,
		Submitted:   cb.submission != 0,
		RawBuffers:  len(cb.raw),
		Limits:      cb.limits,
		Features:    cb.features,
	}
}
