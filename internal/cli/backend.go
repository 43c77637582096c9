// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cli

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	gohal "github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/hal/recorder"
	"github.com/fhn666/wgpu/hal/wgpuhal"
	"github.com/fhn666/wgpu/internal/config"
	"github.com/fhn666/wgpu/trace"
)

// backend supplies the command buffers and resources of a replay.
type backend interface {
	options() []trace.PlayOption
	// transitions counts the buffer and texture transitions raw received.
	transitions(raw hal.CommandBuffer) (buffers, textures int)
	// close ends or discards every command buffer and frees the device.
	close(sessions []*trace.Session) error
}

func newBackend(name string) (backend, error) {
	switch name {
	case config.BackendRecorder:
		return recorderBackend{}, nil
	case config.BackendNoop:
		n, err := openNoop()
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%w: replay backend %q", config.ErrInvalid, name)
	}
}

// recorderBackend keeps every call in memory.
type recorderBackend struct{}

func (recorderBackend) options() []trace.PlayOption { return nil }

func (recorderBackend) transitions(raw hal.CommandBuffer) (buffers, textures int) {
	for _, op := range raw.(*recorder.CommandBuffer).Ops() {
		buffers += len(op.Buffers)
		textures += len(op.Textures)
	}
	return buffers, textures
}

func (recorderBackend) close([]*trace.Session) error { return nil }

// noopBackend replays onto a device of the gogpu noop HAL.
type noopBackend struct {
	instance gohal.Instance
	device   gohal.Device

	buffers  []gohal.Buffer
	textures []gohal.Texture
}

func openNoop() (*noopBackend, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("noop instance: no adapter")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("noop device: %w", err)
	}
	return &noopBackend{instance: instance, device: open.Device}, nil
}

func (n *noopBackend) options() []trace.PlayOption {
	return []trace.PlayOption{
		trace.WithResources(n),
		trace.WithRawFactory(func(label string) (hal.CommandBuffer, error) {
			cb, err := wgpuhal.Begin(n.device, label)
			if err != nil {
				return nil, err
			}
			return cb, nil
		}),
	}
}

// Buffer implements trace.Resources.
func (n *noopBackend) Buffer(b *trace.CreateBuffer) (any, error) {
	buf, err := n.device.CreateBuffer(&gohal.BufferDescriptor{
		Label: b.Label,
		Size:  b.Size,
		Usage: gputypes.BufferUsage(b.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", b.Label, err)
	}
	n.buffers = append(n.buffers, buf)
	return buf, nil
}

// Texture implements trace.Resources. Traces do not carry extents, so
// every texture is created 1x1 with the traced layer and mip counts.
func (n *noopBackend) Texture(t *trace.CreateTexture) (any, error) {
	tex, err := n.device.CreateTexture(&gohal.TextureDescriptor{
		Label:         t.Label,
		Size:          gohal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: max(t.ArrayLayerCount, 1)},
		MipLevelCount: max(t.MipLevelCount, 1),
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormat(t.Format),
		Usage:         gputypes.TextureUsage(t.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", t.Label, err)
	}
	n.textures = append(n.textures, tex)
	return tex, nil
}

func (n *noopBackend) transitions(raw hal.CommandBuffer) (buffers, textures int) {
	return raw.(*wgpuhal.CommandBuffer).Transitions()
}

func (n *noopBackend) close(sessions []*trace.Session) error {
	var firstErr error
	for _, s := range sessions {
		for _, raw := range s.Raws {
			cb := raw.(*wgpuhal.CommandBuffer)
			if !s.Finished {
				cb.Discard()
				continue
			}
			cmd, err := cb.End()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			cmd.Destroy()
		}
	}
	for _, b := range n.buffers {
		n.device.DestroyBuffer(b)
	}
	for _, t := range n.textures {
		n.device.DestroyTexture(t)
	}
	n.device.Destroy()
	n.instance.Destroy()
	return firstErr
}
