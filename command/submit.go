package command

import (
	"fmt"
	"slices"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/hub"
	"github.com/fhn666/wgpu/resource"
)

// poller is implemented by devices that can report completed GPU work.
type poller interface {
	Poll(wait bool)
}

// Submit marks finished sessions as submitted and returns the submission
// index. Either every session is submitted or none is.
func (g *Global) Submit(ids ...CommandBufferID) (uint64, error) {
	sessions := g.sessions.Write(hub.Root())
	defer sessions.Release()
	for _, i := range ids {
		cb, err := sessions.Get(i)
		if err != nil {
			return 0, invalid("submit", err)
		}
		if cb.isRecording {
			return 0, fmt.Errorf("submit: %v: %w", i, ErrNotFinished)
		}
		if cb.submission != 0 {
			return 0, fmt.Errorf("submit: %v: %w", i, ErrAlreadySubmitted)
		}
	}
	index := g.submissions.Add(1)
	for _, i := range ids {
		cb, _ := sessions.GetMut(i)
		cb.submission = index
	}
	sessions.Release()
	wgpu.Logger().Debug("command: submit", "index", index, "command_buffers", len(ids))
	g.notify(g.observer, Submitted{Index: index, CommandBuffers: slices.Clone(ids)})
	return index, nil
}

// Maintain polls device and retires its submitted sessions, releasing
// their trackers. It returns the number of sessions retired.
func (g *Global) Maintain(device resource.DeviceID, wait bool) (int, error) {
	devices := g.devices.Read(hub.Root())
	defer devices.Release()
	dev, err := devices.Get(device)
	if err != nil {
		return 0, invalid("maintain", err)
	}
	if p, ok := dev.Raw.(poller); ok {
		p.Poll(wait)
	}

	sessions := g.sessions.Write(devices.Token())
	defer sessions.Release()
	var retired []CommandBufferID
	for i, cb := range sessions.All() {
		if cb.device == device && cb.submission != 0 {
			retired = append(retired, i)
		}
	}
	for _, i := range retired {
		cb, err := sessions.Remove(i)
		if err == nil {
			cb.trackers.Clear()
		}
	}
	if len(retired) > 0 {
		g.reclaim(sessions)
		wgpu.Logger().Debug("command: retired", "device", device, "count", len(retired))
	}
	sessions.Release()
	devices.Release()
	g.notify(g.observer, Maintained{Device: device, Wait: wait, Retired: len(retired)})
	return len(retired), nil
}
