// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package recorder provides an in-memory hal.CommandBuffer that keeps every
// call it receives. It backs tests and the trace replay tool.
package recorder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fhn666/wgpu/hal"
)

// OpKind identifies a recorded call.
type OpKind uint8

// Recorded calls.
const (
	OpPipelineBarrier OpKind = iota + 1
	OpBeginDebugMarker
	OpInsertDebugMarker
	OpEndDebugMarker
	OpSetPushConstants
)

func (k OpKind) String() string {
	switch k {
	case OpPipelineBarrier:
		return "PipelineBarrier"
	case OpBeginDebugMarker:
		return "BeginDebugMarker"
	case OpInsertDebugMarker:
		return "InsertDebugMarker"
	case OpEndDebugMarker:
		return "EndDebugMarker"
	case OpSetPushConstants:
		return "SetPushConstants"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// Op is one recorded call. Only the fields of its kind are set.
type Op struct {
	Kind OpKind

	Src, Dst hal.StageFlags
	Buffers  []hal.BufferBarrier
	Textures []hal.TextureBarrier

	Label string
	Color uint32

	Stages hal.ShaderStages
	Offset uint32
	Data   []uint32
}

func (o Op) String() string {
	switch o.Kind {
	case OpPipelineBarrier:
		var sb strings.Builder
		fmt.Fprintf(&sb, "PipelineBarrier(%v -> %v)", o.Src, o.Dst)
		for _, b := range o.Buffers {
			fmt.Fprintf(&sb, "\n  %v", b)
		}
		for _, t := range o.Textures {
			fmt.Fprintf(&sb, "\n  %v", t)
		}
		return sb.String()
	case OpBeginDebugMarker, OpInsertDebugMarker:
		return fmt.Sprintf("%v(%q, 0x%08x)", o.Kind, o.Label, o.Color)
	case OpSetPushConstants:
		return fmt.Sprintf("SetPushConstants(%v, offset=%d, words=%d)", o.Stages, o.Offset, len(o.Data))
	default:
		return o.Kind.String() + "()"
	}
}

// CommandBuffer records calls in order.
type CommandBuffer struct {
	label string
	ops   []Op
	depth int
}

// New returns an empty recording command buffer.
func New(label string) *CommandBuffer {
	return &CommandBuffer{label: label}
}

// Label returns the label given to New.
func (c *CommandBuffer) Label() string { return c.label }

// Ops returns the recorded calls.
func (c *CommandBuffer) Ops() []Op { return c.ops }

// Depth returns the number of open debug regions.
func (c *CommandBuffer) Depth() int { return c.depth }

// Reset drops every recorded call.
func (c *CommandBuffer) Reset() {
	c.ops = c.ops[:0]
	c.depth = 0
}

// Count returns the number of recorded calls of kind k.
func (c *CommandBuffer) Count(k OpKind) int {
	n := 0
	for i := range c.ops {
		if c.ops[i].Kind == k {
			n++
		}
	}
	return n
}

// PipelineBarrier implements hal.CommandBuffer.
func (c *CommandBuffer) PipelineBarrier(src, dst hal.StageFlags, buffers []hal.BufferBarrier, textures []hal.TextureBarrier) {
	c.ops = append(c.ops, Op{
		Kind:     OpPipelineBarrier,
		Src:      src,
		Dst:      dst,
		Buffers:  slices.Clone(buffers),
		Textures: slices.Clone(textures),
	})
}

// BeginDebugMarker implements hal.CommandBuffer.
func (c *CommandBuffer) BeginDebugMarker(label string, color uint32) {
	c.depth++
	c.ops = append(c.ops, Op{Kind: OpBeginDebugMarker, Label: label, Color: color})
}

// InsertDebugMarker implements hal.CommandBuffer.
func (c *CommandBuffer) InsertDebugMarker(label string, color uint32) {
	c.ops = append(c.ops, Op{Kind: OpInsertDebugMarker, Label: label, Color: color})
}

// EndDebugMarker implements hal.CommandBuffer.
func (c *CommandBuffer) EndDebugMarker() {
	if c.depth > 0 {
		c.depth--
	}
	c.ops = append(c.ops, Op{Kind: OpEndDebugMarker})
}

// SetPushConstants implements hal.PushConstantWriter.
func (c *CommandBuffer) SetPushConstants(stages hal.ShaderStages, offset uint32, data []uint32) {
	c.ops = append(c.ops, Op{
		Kind:   OpSetPushConstants,
		Stages: stages,
		Offset: offset,
		Data:   slices.Clone(data),
	})
}

// String lists the recorded calls, one per line.
func (c *CommandBuffer) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "command buffer %q (%d ops)\n", c.label, len(c.ops))
	for _, op := range c.ops {
		sb.WriteString(op.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

var (
	_ hal.CommandBuffer      = (*CommandBuffer)(nil)
	_ hal.PushConstantWriter = (*CommandBuffer)(nil)
)
