// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package hal defines the raw command-buffer primitives the command
// recording core emits into: pipeline barriers and debug markers.
//
// Backends live in sub-packages: recorder keeps every call in memory,
// vulkan drives a VkCommandBuffer and wgpuhal forwards to a
// github.com/gogpu/wgpu/hal command encoder.
package hal

import (
	"fmt"
	"strings"

	"github.com/fhn666/wgpu/resource"
)

// CommandBuffer is a raw backend command buffer in the recording state.
//
// Calls are made while the owning command buffer table is write-locked, so
// implementations need no synchronization of their own.
type CommandBuffer interface {
	// PipelineBarrier makes prior work in src stages visible to later work
	// in dst stages and moves the listed resources to their new usage.
	PipelineBarrier(src, dst StageFlags, buffers []BufferBarrier, textures []TextureBarrier)

	// BeginDebugMarker opens a labelled region. Color is packed 0xRRGGBBAA.
	BeginDebugMarker(label string, color uint32)

	// InsertDebugMarker records a single labelled point.
	InsertDebugMarker(label string, color uint32)

	// EndDebugMarker closes the innermost open region.
	EndDebugMarker()
}

// PushConstantWriter is implemented by command buffers that can update
// push-constant memory.
type PushConstantWriter interface {
	SetPushConstants(stages ShaderStages, offset uint32, data []uint32)
}

// ShaderStages selects the shader stages push constants are visible to.
type ShaderStages uint8

// Shader stages.
const (
	ShaderStageVertex ShaderStages = 1 << iota
	ShaderStageFragment
	ShaderStageCompute
)

// String returns the stage names joined by '|'.
func (s ShaderStages) String() string {
	if s == 0 {
		return "NONE"
	}
	var parts []string
	for i, name := range []string{"VERTEX", "FRAGMENT", "COMPUTE"} {
		if s&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// BufferBarrier moves a buffer range from one usage to another.
// A zero Size covers the whole buffer from Offset.
type BufferBarrier struct {
	Buffer any
	Offset uint64
	Size   uint64
	Old    resource.BufferUse
	New    resource.BufferUse
}

func (b BufferBarrier) String() string {
	return fmt.Sprintf("buffer %v: %v -> %v", b.Buffer, b.Old, b.New)
}

// TextureBarrier moves a texture range from one usage and layout to another.
type TextureBarrier struct {
	Texture   any
	Range     resource.SubresourceRange
	Old       resource.TextureUse
	New       resource.TextureUse
	OldLayout ImageLayout
	NewLayout ImageLayout
}

func (b TextureBarrier) String() string {
	return fmt.Sprintf("texture %v: %v (%v) -> %v (%v)", b.Texture, b.Old, b.OldLayout, b.New, b.NewLayout)
}
