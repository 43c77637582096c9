// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/hub"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

// barrierStages is the stage mask of every barrier: all stages that touch
// buffer memory or image memory.
const barrierStages = hal.AllBufferStages | hal.AllImageStages

// InsertBarriers advances base to head. Buffers and textures whose usage
// changes are transitioned with a single pipeline barrier on raw; the other
// categories are merged into base. Nothing is emitted when no usage
// changes. Afterwards base holds head's usage for every resource head
// tracks.
//
// Every buffer and texture of head must resolve in the given tables.
func InsertBarriers(
	raw hal.CommandBuffer,
	base, head *track.TrackerSet,
	buffers *hub.ReadGuard[resource.Buffer],
	textures *hub.ReadGuard[resource.Texture],
) {
	track.Assert(base.Backend() == head.Backend(), "barrier between %v and %v trackers", base.Backend(), head.Backend())

	var bufferBarriers []hal.BufferBarrier
	for pending := range base.Buffers.MergeReplace(&head.Buffers) {
		buf, err := buffers.Get(pending.ID)
		track.AssertNoError(err, "resolving buffer transition")
		bufferBarriers = append(bufferBarriers, hal.BufferBarrier{
			Buffer: buf.Raw,
			Offset: 0,
			Size:   buf.Size,
			Old:    pending.Old,
			New:    pending.New,
		})
	}

	var textureBarriers []hal.TextureBarrier
	for pending := range base.Textures.MergeReplace(&head.Textures) {
		tex, err := textures.Get(pending.ID)
		track.AssertNoError(err, "resolving texture transition")
		textureBarriers = append(textureBarriers, hal.TextureBarrier{
			Texture:   tex.Raw,
			Range:     tex.FullRange(),
			Old:       pending.Old,
			New:       pending.New,
			OldLayout: hal.LayoutFor(pending.Old, tex.Aspects),
			NewLayout: hal.LayoutFor(pending.New, tex.Aspects),
		})
	}

	track.AssertNoError(base.Views.MergeExtend(&head.Views), "merging views")
	track.AssertNoError(base.BindGroups.MergeExtend(&head.BindGroups), "merging bind groups")
	track.AssertNoError(base.Samplers.MergeExtend(&head.Samplers), "merging samplers")
	track.AssertNoError(base.ComputePipes.MergeExtend(&head.ComputePipes), "merging compute pipelines")
	track.AssertNoError(base.RenderPipes.MergeExtend(&head.RenderPipes), "merging render pipelines")
	track.AssertNoError(base.Bundles.MergeExtend(&head.Bundles), "merging bundles")

	if len(bufferBarriers) == 0 && len(textureBarriers) == 0 {
		return
	}
	raw.PipelineBarrier(barrierStages, barrierStages, bufferBarriers, textureBarriers)
	wgpu.Logger().Debug("command: pipeline barrier",
		"buffers", len(bufferBarriers), "textures", len(textureBarriers))
}
