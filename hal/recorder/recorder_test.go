package recorder

import (
	"strings"
	"testing"

	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/resource"
)

func TestCommandBuffer_Records(t *testing.T) {
	cb := New("frame")
	cb.BeginDebugMarker("shadow", 0xff0000ff)
	cb.InsertDebugMarker("draw", 0)
	barriers := []hal.BufferBarrier{{Buffer: "vb", Old: resource.BufferUseCopyDst, New: resource.BufferUseVertex}}
	cb.PipelineBarrier(hal.AllBufferStages, hal.AllBufferStages, barriers, nil)
	barriers[0].New = resource.BufferUseIndex
	cb.EndDebugMarker()

	if got := len(cb.Ops()); got != 4 {
		t.Fatalf("len(Ops()) = %d, want 4", got)
	}
	if cb.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", cb.Depth())
	}
	if got := cb.Ops()[2].Buffers[0].New; got != resource.BufferUseVertex {
		t.Errorf("recorded barrier aliased caller slice: New = %v", got)
	}
	if cb.Count(OpPipelineBarrier) != 1 {
		t.Errorf("Count(PipelineBarrier) = %d, want 1", cb.Count(OpPipelineBarrier))
	}

	out := cb.String()
	for _, want := range []string{`"frame" (4 ops)`, `BeginDebugMarker("shadow", 0xff0000ff)`, "COPY_DST -> VERTEX", "EndDebugMarker()"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}

	cb.Reset()
	if len(cb.Ops()) != 0 {
		t.Error("Reset() kept ops")
	}
}

func TestCommandBuffer_PushConstants(t *testing.T) {
	cb := New("")
	data := []uint32{1, 2, 3}
	cb.SetPushConstants(hal.ShaderStageCompute, 16, data)
	data[0] = 9
	op := cb.Ops()[0]
	if op.Offset != 16 || op.Data[0] != 1 || op.Stages != hal.ShaderStageCompute {
		t.Errorf("op = %+v", op)
	}
	if got := op.String(); got != "SetPushConstants(COMPUTE, offset=16, words=3)" {
		t.Errorf("String() = %q", got)
	}
}
