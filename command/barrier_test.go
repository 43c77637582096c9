package command

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/hal/recorder"
	"github.com/fhn666/wgpu/hub"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

type barrierTables struct {
	buffers  *hub.Storage[resource.Buffer]
	textures *hub.Storage[resource.Texture]
	buf      resource.BufferID
	depth    resource.TextureID
}

func newBarrierTables() *barrierTables {
	b := &barrierTables{
		buffers:  hub.NewStorage[resource.Buffer](hub.RankBuffers, gputypes.BackendVulkan),
		textures: hub.NewStorage[resource.Texture](hub.RankTextures, gputypes.BackendVulkan),
	}
	b.buf = b.buffers.Register(hub.Root(), &resource.Buffer{Raw: "buf", Size: 64})
	b.depth = b.textures.Register(hub.Root(), &resource.Texture{
		Raw:             "depth",
		Format:          gputypes.TextureFormatDepth24PlusStencil8,
		Aspects:         resource.AspectDepth | resource.AspectStencil,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	return b
}

func (b *barrierTables) insert(raw hal.CommandBuffer, base, head *track.TrackerSet) {
	buffers := b.buffers.Read(hub.Root())
	defer buffers.Release()
	textures := b.textures.Read(buffers.Token())
	defer textures.Release()
	InsertBarriers(raw, base, head, buffers, textures)
}

func TestInsertBarriers(t *testing.T) {
	tables := newBarrierTables()
	base := track.NewTrackerSet(gputypes.BackendVulkan)
	head := track.NewTrackerSet(gputypes.BackendVulkan)
	if err := base.Buffers.Use(tables.buf, resource.BufferUseCopyDst); err != nil {
		t.Fatal(err)
	}
	_ = head.Buffers.Use(tables.buf, resource.BufferUseVertex)
	_ = head.Textures.Use(tables.depth, resource.TextureUseAttachmentWrite)
	head.BindGroups.Add(bindGroupID(3))

	raw := recorder.New("")
	tables.insert(raw, base, head)

	ops := raw.Ops()
	if len(ops) != 1 || ops[0].Kind != recorder.OpPipelineBarrier {
		t.Fatalf("ops = %v, want one pipeline barrier", ops)
	}
	op := ops[0]
	if op.Src != barrierStages || op.Dst != barrierStages {
		t.Errorf("stages = %v -> %v", op.Src, op.Dst)
	}
	if len(op.Buffers) != 1 {
		t.Fatalf("buffer barriers = %v", op.Buffers)
	}
	bb := op.Buffers[0]
	if bb.Buffer != "buf" || bb.Size != 64 || bb.Old != resource.BufferUseCopyDst || bb.New != resource.BufferUseVertex {
		t.Errorf("buffer barrier = %+v", bb)
	}
	if len(op.Textures) != 1 {
		t.Fatalf("texture barriers = %v", op.Textures)
	}
	tb := op.Textures[0]
	if tb.Old != resource.TextureUseUninitialized || tb.OldLayout != hal.LayoutUndefined || tb.NewLayout != hal.LayoutDepthStencilAttachment {
		t.Errorf("texture barrier = %+v", tb)
	}
	if tb.Range.Aspects != resource.AspectDepth|resource.AspectStencil || tb.Range.LevelCount != 1 {
		t.Errorf("texture range = %+v", tb.Range)
	}

	if u, _ := base.Buffers.Query(tables.buf); u != resource.BufferUseVertex {
		t.Errorf("base buffer usage = %v, want VERTEX", u)
	}
	if u, _ := base.Textures.Query(tables.depth); u != resource.TextureUseAttachmentWrite {
		t.Errorf("base texture usage = %v", u)
	}
	if !base.BindGroups.Contains(bindGroupID(3)) {
		t.Error("bind group not merged into base")
	}
}

func TestInsertBarriers_NoChange(t *testing.T) {
	tables := newBarrierTables()
	base := track.NewTrackerSet(gputypes.BackendVulkan)
	_ = base.Buffers.Use(tables.buf, resource.BufferUseIndex)
	head := base.Clone()
	head.Samplers.Add(samplerID(0))

	raw := recorder.New("")
	tables.insert(raw, base, head)
	if len(raw.Ops()) != 0 {
		t.Errorf("ops = %v, want none", raw.Ops())
	}
	if !base.Samplers.Contains(samplerID(0)) {
		t.Error("sampler not merged into base")
	}
}

func TestInsertBarriers_Converges(t *testing.T) {
	tables := newBarrierTables()
	base := track.NewTrackerSet(gputypes.BackendVulkan)
	head := track.NewTrackerSet(gputypes.BackendVulkan)
	_ = head.Buffers.Use(tables.buf, resource.BufferUseStorageLoad|resource.BufferUseUniform)

	raw := recorder.New("")
	tables.insert(raw, base, head)
	tables.insert(raw, base, head)
	if got := raw.Count(recorder.OpPipelineBarrier); got != 1 {
		t.Errorf("barriers = %d, want 1", got)
	}
	if base.String() != head.String() {
		t.Errorf("base = %v, want %v", base, head)
	}
}

func TestInsertBarriers_UnknownResource(t *testing.T) {
	tables := newBarrierTables()
	base := track.NewTrackerSet(gputypes.BackendVulkan)
	head := track.NewTrackerSet(gputypes.BackendVulkan)
	_ = head.Buffers.Use(bufferID(7), resource.BufferUseVertex)

	defer func() {
		if _, ok := recover().(track.InvariantViolation); !ok {
			t.Error("InsertBarriers did not panic with InvariantViolation")
		}
	}()
	tables.insert(recorder.New(""), base, head)
}
