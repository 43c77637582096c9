package track

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// TrackerSet holds one tracker per resource category.
type TrackerSet struct {
	backend gputypes.Backend

	Buffers      BufferTracker
	Textures     TextureTracker
	Views        ViewTracker
	BindGroups   BindGroupTracker
	Samplers     SamplerTracker
	ComputePipes ComputePipelineTracker
	RenderPipes  RenderPipelineTracker
	Bundles      BundleTracker
}

// NewTrackerSet returns an empty set for resources of the given backend.
func NewTrackerSet(backend gputypes.Backend) *TrackerSet {
	return &TrackerSet{backend: backend}
}

// Backend returns the backend the tracked resources belong to.
func (s *TrackerSet) Backend() gputypes.Backend { return s.backend }

// Clear removes every entry of every category.
func (s *TrackerSet) Clear() {
	s.Buffers.Clear()
	s.Textures.Clear()
	s.Views.Clear()
	s.BindGroups.Clear()
	s.Samplers.Clear()
	s.ComputePipes.Clear()
	s.RenderPipes.Clear()
	s.Bundles.Clear()
}

// IsEmpty reports whether no category tracks anything.
func (s *TrackerSet) IsEmpty() bool {
	return s.Buffers.Len()+s.Textures.Len()+s.Views.Len()+s.BindGroups.Len()+
		s.Samplers.Len()+s.ComputePipes.Len()+s.RenderPipes.Len()+s.Bundles.Len() == 0
}

// Validate checks that every buffer and texture is in a valid state and
// returns the first conflict found.
func (s *TrackerSet) Validate() error {
	if err := s.Buffers.validate(); err != nil {
		return err
	}
	return s.Textures.validate()
}

// MergeExtend folds other into s as one usage scope. Stateful categories
// are checked before anything is modified.
func (s *TrackerSet) MergeExtend(other *TrackerSet) error {
	Assert(s.backend == other.backend, "merging %v trackers into %v", other.backend, s.backend)
	probe := s.Buffers.Clone()
	if err := probe.MergeExtend(&other.Buffers); err != nil {
		return err
	}
	tprobe := s.Textures.Clone()
	if err := tprobe.MergeExtend(&other.Textures); err != nil {
		return err
	}
	s.Buffers, s.Textures = *probe, *tprobe
	AssertNoError(s.Views.MergeExtend(&other.Views), "views")
	AssertNoError(s.BindGroups.MergeExtend(&other.BindGroups), "bind groups")
	AssertNoError(s.Samplers.MergeExtend(&other.Samplers), "samplers")
	AssertNoError(s.ComputePipes.MergeExtend(&other.ComputePipes), "compute pipelines")
	AssertNoError(s.RenderPipes.MergeExtend(&other.RenderPipes), "render pipelines")
	AssertNoError(s.Bundles.MergeExtend(&other.Bundles), "bundles")
	return nil
}

// Clone returns an independent deep copy of s.
func (s *TrackerSet) Clone() *TrackerSet {
	return &TrackerSet{
		backend:      s.backend,
		Buffers:      *s.Buffers.Clone(),
		Textures:     *s.Textures.Clone(),
		Views:        *s.Views.Clone(),
		BindGroups:   *s.BindGroups.Clone(),
		Samplers:     *s.Samplers.Clone(),
		ComputePipes: *s.ComputePipes.Clone(),
		RenderPipes:  *s.RenderPipes.Clone(),
		Bundles:      *s.Bundles.Clone(),
	}
}

// String dumps the set for debug logging.
func (s *TrackerSet) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "TrackerSet(%v)", s.backend)
	for i, u := range s.Buffers.All() {
		fmt.Fprintf(&sb, " buffer%v=%v", i, u)
	}
	for i, u := range s.Textures.All() {
		fmt.Fprintf(&sb, " texture%v=%v", i, u)
	}
	fmt.Fprintf(&sb, " views=%d bind_groups=%d samplers=%d compute_pipes=%d render_pipes=%d bundles=%d",
		s.Views.Len(), s.BindGroups.Len(), s.Samplers.Len(),
		s.ComputePipes.Len(), s.RenderPipes.Len(), s.Bundles.Len())
	return sb.String()
}
