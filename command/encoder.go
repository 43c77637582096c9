package command

import (
	"fmt"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/hub"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

// BeginEncoder starts a recording session on device with raw as its first
// raw command buffer. The returned Affinity must be passed to every
// operation on the session.
func (g *Global) BeginEncoder(device resource.DeviceID, raw hal.CommandBuffer, opts ...EncoderOption) (CommandEncoderID, Affinity, error) {
	if raw == nil {
		return CommandEncoderID{}, Affinity{}, fmt.Errorf("begin encoder: %w", ErrNoRawBuffer)
	}
	o := encoderOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	obs := g.observer
	if o.hasObserver {
		obs = o.observer
	}

	devices := g.devices.Read(hub.Root())
	defer devices.Release()
	dev, err := devices.Get(device)
	if err != nil {
		return CommandEncoderID{}, Affinity{}, invalid("begin encoder", err)
	}
	aff := g.affinity.mint()
	enc := g.sessions.Register(devices.Token(), &CommandBuffer{
		raw:         []hal.CommandBuffer{raw},
		isRecording: true,
		affinity:    aff,
		device:      device,
		trackers:    track.NewTrackerSet(g.backend),
		limits:      dev.Limits,
		features:    dev.Features,
		label:       o.label,
		observer:    obs,
	})
	devices.Release()

	wgpu.Logger().Debug("command: begin encoder", "id", enc, "label", o.label)
	g.notify(obs, EncoderBegun{ID: enc, Device: device, Label: o.label})
	return enc, aff, nil
}

// session write-locks the session table with tok, resolves enc and checks
// the caller token and recording state. On success the caller owns the
// returned guard and must release it.
func (g *Global) session(op string, tok hub.Token, enc CommandEncoderID, aff Affinity) (*hub.WriteGuard[CommandBuffer], *CommandBuffer, error) {
	sessions := g.sessions.Write(tok)
	cb, err := sessions.GetMut(enc)
	if err != nil {
		sessions.Release()
		return nil, nil, invalid(op, err)
	}
	if err := cb.check(aff); err != nil {
		sessions.Release()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, cb, nil
}

// ContinueEncoder appends raw to the session. Subsequent commands and
// debug markers go to raw.
func (g *Global) ContinueEncoder(enc CommandEncoderID, aff Affinity, raw hal.CommandBuffer) error {
	if raw == nil {
		return fmt.Errorf("continue encoder: %w", ErrNoRawBuffer)
	}
	sessions, cb, err := g.session("continue encoder", hub.Root(), enc, aff)
	if err != nil {
		return err
	}
	defer sessions.Release()
	cb.raw = append(cb.raw, raw)
	obs := cb.observer
	sessions.Release()
	g.notify(obs, EncoderContinued{ID: enc})
	return nil
}

// Finish ends recording. When the session renders to a swap chain, the
// view the swap chain has acquired is removed from the session's view
// tracker.
func (g *Global) Finish(enc CommandEncoderID, aff Affinity) (CommandBufferID, error) {
	swapChains := g.swapChains.Read(hub.Root())
	defer swapChains.Release()
	sessions, cb, err := g.session("finish", swapChains.Token(), enc, aff)
	if err != nil {
		return CommandBufferID{}, err
	}
	defer sessions.Release()
	defer cb.abortOnInvariant()

	var view *resource.TextureViewID
	if used := cb.swapChain; used != nil {
		sc, err := swapChains.Get(used.id)
		track.Assert(err == nil, "session %q renders to unknown swap chain %v", cb.label, used.id)
		track.Assert(sc.AcquiredView != nil, "swap chain %v has no acquired view at finish", used.id)
		view = sc.AcquiredView
	}

	cb.isRecording = false
	if view != nil {
		cb.trackers.Views.Remove(*view)
	}
	obs := cb.observer
	sessions.Release()
	swapChains.Release()

	wgpu.Logger().Debug("command: finish", "id", enc)
	g.notify(obs, EncoderFinished{ID: enc})
	return enc, nil
}

// PushDebugGroup opens a labelled debug region on the current raw buffer.
func (g *Global) PushDebugGroup(enc CommandEncoderID, aff Affinity, label string) error {
	sessions, cb, err := g.session("push debug group", hub.Root(), enc, aff)
	if err != nil {
		return err
	}
	defer sessions.Release()
	defer cb.abortOnInvariant()
	cb.last().BeginDebugMarker(label, 0)
	obs := cb.observer
	sessions.Release()
	g.notify(obs, DebugGroupPushed{ID: enc, Label: label})
	return nil
}

// InsertDebugMarker records a labelled point on the current raw buffer.
func (g *Global) InsertDebugMarker(enc CommandEncoderID, aff Affinity, label string) error {
	sessions, cb, err := g.session("insert debug marker", hub.Root(), enc, aff)
	if err != nil {
		return err
	}
	defer sessions.Release()
	defer cb.abortOnInvariant()
	cb.last().InsertDebugMarker(label, 0)
	obs := cb.observer
	sessions.Release()
	g.notify(obs, DebugMarkerInserted{ID: enc, Label: label})
	return nil
}

// PopDebugGroup closes the innermost debug region on the current raw
// buffer.
func (g *Global) PopDebugGroup(enc CommandEncoderID, aff Affinity) error {
	sessions, cb, err := g.session("pop debug group", hub.Root(), enc, aff)
	if err != nil {
		return err
	}
	defer sessions.Release()
	defer cb.abortOnInvariant()
	cb.last().EndDebugMarker()
	obs := cb.observer
	sessions.Release()
	g.notify(obs, DebugGroupPopped{ID: enc})
	return nil
}

// UseSwapChain records that the session renders to the view sc has
// currently acquired.
func (g *Global) UseSwapChain(enc CommandEncoderID, aff Affinity, sc resource.SwapChainID) error {
	swapChains := g.swapChains.Read(hub.Root())
	defer swapChains.Release()
	s, err := swapChains.Get(sc)
	if err != nil {
		return invalid("use swap chain", err)
	}
	if s.AcquiredView == nil {
		return fmt.Errorf("use swap chain: %w", ErrNoAcquiredView)
	}
	view := *s.AcquiredView

	sessions, cb, err := g.session("use swap chain", swapChains.Token(), enc, aff)
	if err != nil {
		return err
	}
	defer sessions.Release()
	if cb.swapChain != nil && cb.swapChain.id != sc {
		return fmt.Errorf("use swap chain: %w", ErrSwapChainInUse)
	}
	cb.swapChain = &usedSwapChain{id: sc, view: view}
	cb.trackers.Views.Add(view)
	obs := cb.observer
	sessions.Release()
	swapChains.Release()
	g.notify(obs, SwapChainUsed{ID: enc, SwapChain: sc})
	return nil
}

// Discard removes a session that has not been submitted.
func (g *Global) Discard(enc CommandEncoderID, aff Affinity) error {
	sessions := g.sessions.Write(hub.Root())
	defer sessions.Release()
	cb, err := sessions.Get(enc)
	if err != nil {
		return invalid("discard", err)
	}
	if cb.affinity != aff {
		return fmt.Errorf("discard: %w", ErrAffinity)
	}
	if cb.submission != 0 {
		return fmt.Errorf("discard: %w", ErrAlreadySubmitted)
	}
	if _, err := sessions.Remove(enc); err != nil {
		return invalid("discard", err)
	}
	g.reclaim(sessions)
	return nil
}

// Info returns a snapshot of the session.
func (g *Global) Info(enc CommandEncoderID) (Info, error) {
	sessions := g.sessions.Read(hub.Root())
	defer sessions.Release()
	cb, err := sessions.Get(enc)
	if err != nil {
		return Info{}, invalid("info", err)
	}
	return cb.info(), nil
}

// TrackerSnapshot returns a copy of the session's tracker.
func (g *Global) TrackerSnapshot(enc CommandEncoderID) (*track.TrackerSet, error) {
	sessions := g.sessions.Read(hub.Root())
	defer sessions.Release()
	cb, err := sessions.Get(enc)
	if err != nil {
		return nil, invalid("tracker snapshot", err)
	}
	return cb.trackers.Clone(), nil
}
