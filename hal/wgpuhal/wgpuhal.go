// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpuhal implements hal.CommandBuffer on a command encoder of
// github.com/gogpu/wgpu/hal.
//
// Barriers become TransitionBuffers and TransitionTextures calls with the
// WebGPU usages the tracked states map to. Stage masks are left to the
// backend. Barrier resources must be gohal.Buffer and gohal.Texture values.
package wgpuhal

import (
	"fmt"

	gohal "github.com/gogpu/wgpu/hal"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/hal"
)

// debugGrouper is implemented by encoders that support debug labels.
type debugGrouper interface {
	PushDebugGroup(label string)
	InsertDebugMarker(label string)
	PopDebugGroup()
}

// CommandBuffer adapts a gohal.CommandEncoder in the recording state.
type CommandBuffer struct {
	encoder gohal.CommandEncoder

	bufferTransitions  int
	textureTransitions int
}

// Wrap adapts an encoder that is already recording.
func Wrap(encoder gohal.CommandEncoder) *CommandBuffer {
	return &CommandBuffer{encoder: encoder}
}

// Begin creates an encoder on device and starts recording.
func Begin(device gohal.Device, label string) (*CommandBuffer, error) {
	encoder, err := device.CreateCommandEncoder(&gohal.CommandEncoderDescriptor{
		Label: label,
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return Wrap(encoder), nil
}

// Encoder returns the wrapped encoder.
func (c *CommandBuffer) Encoder() gohal.CommandEncoder { return c.encoder }

// End finishes recording and returns the backend command buffer.
func (c *CommandBuffer) End() (gohal.CommandBuffer, error) {
	cmd, err := c.encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	return cmd, nil
}

// Discard abandons the recording.
func (c *CommandBuffer) Discard() { c.encoder.DiscardEncoding() }

// Transitions returns the number of buffer and texture transitions emitted.
func (c *CommandBuffer) Transitions() (buffers, textures int) {
	return c.bufferTransitions, c.textureTransitions
}

// PipelineBarrier implements hal.CommandBuffer.
func (c *CommandBuffer) PipelineBarrier(_, _ hal.StageFlags, buffers []hal.BufferBarrier, textures []hal.TextureBarrier) {
	if len(buffers) > 0 {
		out := make([]gohal.BufferBarrier, len(buffers))
		for i, b := range buffers {
			buf, ok := b.Buffer.(gohal.Buffer)
			if !ok {
				panic(fmt.Sprintf("wgpuhal: buffer barrier on %T", b.Buffer))
			}
			out[i] = gohal.BufferBarrier{
				Buffer: buf,
				Usage: gohal.BufferUsageTransition{
					OldUsage: b.Old.ToGPU(),
					NewUsage: b.New.ToGPU(),
				},
			}
		}
		c.encoder.TransitionBuffers(out)
		c.bufferTransitions += len(out)
	}
	if len(textures) > 0 {
		out := make([]gohal.TextureBarrier, len(textures))
		for i, t := range textures {
			tex, ok := t.Texture.(gohal.Texture)
			if !ok {
				panic(fmt.Sprintf("wgpuhal: texture barrier on %T", t.Texture))
			}
			out[i] = gohal.TextureBarrier{
				Texture: tex,
				Usage: gohal.TextureUsageTransition{
					OldUsage: t.Old.ToGPU(),
					NewUsage: t.New.ToGPU(),
				},
			}
		}
		c.encoder.TransitionTextures(out)
		c.textureTransitions += len(out)
	}
	wgpu.Logger().Debug("wgpuhal: barrier", "buffers", len(buffers), "textures", len(textures))
}

// BeginDebugMarker implements hal.CommandBuffer. The color is not
// representable on this backend.
func (c *CommandBuffer) BeginDebugMarker(label string, _ uint32) {
	if g, ok := c.encoder.(debugGrouper); ok {
		g.PushDebugGroup(label)
	}
}

// InsertDebugMarker implements hal.CommandBuffer.
func (c *CommandBuffer) InsertDebugMarker(label string, _ uint32) {
	if g, ok := c.encoder.(debugGrouper); ok {
		g.InsertDebugMarker(label)
	}
}

// EndDebugMarker implements hal.CommandBuffer.
func (c *CommandBuffer) EndDebugMarker() {
	if g, ok := c.encoder.(debugGrouper); ok {
		g.PopDebugGroup()
	}
}

var _ hal.CommandBuffer = (*CommandBuffer)(nil)
