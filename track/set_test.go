package track

import (
	"errors"
	"strings"
	"testing"

	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
	"github.com/gogpu/gputypes"
)

func TestTrackerSet_Validate(t *testing.T) {
	s := NewTrackerSet(gputypes.BackendVulkan)
	_ = s.Buffers.Use(bufID(0), resource.BufferUseVertex|resource.BufferUseIndex)
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// A single Use of a combined write+read is recorded as given.
	_ = s.Textures.Use(texID(1), resource.TextureUseCopyDst|resource.TextureUseSampled)
	err := s.Validate()
	var conflict *UsageConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("Validate() error = %v, want *UsageConflict", err)
	}
	if tid, _, ok := conflict.Texture(); !ok || tid != texID(1) {
		t.Errorf("conflict texture = %v, %v", tid, ok)
	}
}

func TestTrackerSet_MergeExtend(t *testing.T) {
	base := NewTrackerSet(gputypes.BackendVulkan)
	scope := NewTrackerSet(gputypes.BackendVulkan)
	_ = base.Buffers.Use(bufID(0), resource.BufferUseCopyDst)
	_ = scope.Buffers.Use(bufID(0), resource.BufferUseVertex)
	scope.Views.Add(viewID(2, 1))

	if err := base.MergeExtend(scope); !errors.Is(err, ErrUsageConflict) {
		t.Fatalf("MergeExtend() error = %v, want conflict", err)
	}
	if base.Views.Len() != 0 {
		t.Error("failed merge added views")
	}

	scope.Buffers.Clear()
	pipe := id.Zip[resource.ComputePipeline](0, 1, gputypes.BackendVulkan)
	scope.ComputePipes.Add(pipe)
	if err := base.MergeExtend(scope); err != nil {
		t.Fatalf("MergeExtend() error = %v", err)
	}
	if !base.Views.Contains(viewID(2, 1)) || !base.ComputePipes.Contains(pipe) {
		t.Error("stateless categories not merged")
	}
}

func TestTrackerSet_CloneClear(t *testing.T) {
	s := NewTrackerSet(gputypes.BackendVulkan)
	_ = s.Buffers.Use(bufID(0), resource.BufferUseUniform)
	s.Views.Add(viewID(0, 1))

	c := s.Clone()
	s.Clear()
	if !s.IsEmpty() {
		t.Error("Clear() left entries")
	}
	if c.IsEmpty() || c.Buffers.Len() != 1 || c.Views.Len() != 1 {
		t.Error("Clone() shares state with the original")
	}
	if c.Backend() != gputypes.BackendVulkan {
		t.Errorf("Backend() = %v", c.Backend())
	}
	if got := c.String(); !strings.Contains(got, "UNIFORM") || !strings.Contains(got, "views=1") {
		t.Errorf("String() = %q", got)
	}
}
