package track

import (
	"testing"

	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
	"github.com/gogpu/gputypes"
)

func viewID(index, epoch uint32) resource.TextureViewID {
	return id.Zip[resource.TextureView](index, epoch, gputypes.BackendVulkan)
}

func TestStatelessTracker_Add(t *testing.T) {
	var tr ViewTracker
	if !tr.Add(viewID(4, 1)) {
		t.Error("first Add() = false")
	}
	if tr.Add(viewID(4, 1)) {
		t.Error("second Add() = true")
	}
	if !tr.Contains(viewID(4, 1)) || tr.Contains(viewID(4, 2)) {
		t.Error("Contains() does not respect epochs")
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tr.Len())
	}
}

func TestStatelessTracker_MergeExtend(t *testing.T) {
	var a, b ViewTracker
	a.Add(viewID(0, 1))
	b.Add(viewID(0, 1))
	b.Add(viewID(3, 1))

	if err := a.MergeExtend(&b); err != nil {
		t.Fatalf("MergeExtend() error = %v", err)
	}
	if a.Len() != 2 || !a.Contains(viewID(3, 1)) {
		t.Errorf("after merge Len() = %d", a.Len())
	}

	var c ViewTracker
	c.Add(viewID(3, 2))
	c.Add(viewID(7, 1))
	if err := a.MergeExtend(&c); err == nil {
		t.Fatal("MergeExtend() with epoch mismatch succeeded")
	}
	if a.Contains(viewID(7, 1)) {
		t.Error("failed merge modified the tracker")
	}
}

func TestStatelessTracker_Remove(t *testing.T) {
	var tr SamplerTracker
	s := id.Zip[resource.Sampler](1, 1, gputypes.BackendVulkan)
	tr.Add(s)
	if !tr.Remove(s) || tr.Remove(s) {
		t.Error("Remove() should succeed exactly once")
	}
}
