package trace

import (
	"iter"

	"github.com/gogpu/gputypes"

	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

// BufferState is the usage of one buffer in a pass.
type BufferState struct {
	ID  Ref                `yaml:"id"`
	Use resource.BufferUse `yaml:"use"`
}

// TextureState is the usage of one texture in a pass.
type TextureState struct {
	ID  Ref                 `yaml:"id"`
	Use resource.TextureUse `yaml:"use"`
}

// Usage is the serializable form of a track.TrackerSet. Entries are in
// index order.
type Usage struct {
	Buffers          []BufferState  `yaml:"buffers,omitempty"`
	Textures         []TextureState `yaml:"textures,omitempty"`
	Views            []Ref          `yaml:"views,omitempty"`
	BindGroups       []Ref          `yaml:"bind_groups,omitempty"`
	Samplers         []Ref          `yaml:"samplers,omitempty"`
	ComputePipelines []Ref          `yaml:"compute_pipelines,omitempty"`
	RenderPipelines  []Ref          `yaml:"render_pipelines,omitempty"`
	Bundles          []Ref          `yaml:"bundles,omitempty"`
}

func refsOf[T any](seq iter.Seq[id.ID[T]]) []Ref {
	var out []Ref
	for i := range seq {
		out = append(out, refOf(i))
	}
	return out
}

// UsageOf converts a tracker set.
func UsageOf(s *track.TrackerSet) Usage {
	var u Usage
	for i, use := range s.Buffers.All() {
		u.Buffers = append(u.Buffers, BufferState{ID: refOf(i), Use: use})
	}
	for i, use := range s.Textures.All() {
		u.Textures = append(u.Textures, TextureState{ID: refOf(i), Use: use})
	}
	u.Views = refsOf(s.Views.All())
	u.BindGroups = refsOf(s.BindGroups.All())
	u.Samplers = refsOf(s.Samplers.All())
	u.ComputePipelines = refsOf(s.ComputePipes.All())
	u.RenderPipelines = refsOf(s.RenderPipes.All())
	u.Bundles = refsOf(s.Bundles.All())
	return u
}

// resolver maps a traced reference of a category to a raw identity.
type resolver func(c category, r Ref) (uint64, error)

func addAll[T any](t interface{ Add(id.ID[T]) bool }, c category, refs []Ref, resolve resolver) error {
	for _, r := range refs {
		raw, err := resolve(c, r)
		if err != nil {
			return err
		}
		t.Add(id.FromRaw[T](raw))
	}
	return nil
}

// trackerSet rebuilds a tracker set, passing every reference through
// resolve.
func (u *Usage) trackerSet(backend gputypes.Backend, resolve resolver) (*track.TrackerSet, error) {
	s := track.NewTrackerSet(backend)
	for _, b := range u.Buffers {
		raw, err := resolve(catBuffer, b.ID)
		if err != nil {
			return nil, err
		}
		if err := s.Buffers.Use(id.FromRaw[resource.Buffer](raw), b.Use); err != nil {
			return nil, err
		}
	}
	for _, t := range u.Textures {
		raw, err := resolve(catTexture, t.ID)
		if err != nil {
			return nil, err
		}
		if err := s.Textures.Use(id.FromRaw[resource.Texture](raw), t.Use); err != nil {
			return nil, err
		}
	}
	if err := addAll[resource.TextureView](&s.Views, catView, u.Views, resolve); err != nil {
		return nil, err
	}
	if err := addAll[resource.BindGroup](&s.BindGroups, catBindGroup, u.BindGroups, resolve); err != nil {
		return nil, err
	}
	if err := addAll[resource.Sampler](&s.Samplers, catSampler, u.Samplers, resolve); err != nil {
		return nil, err
	}
	if err := addAll[resource.ComputePipeline](&s.ComputePipes, catComputePipeline, u.ComputePipelines, resolve); err != nil {
		return nil, err
	}
	if err := addAll[resource.RenderPipeline](&s.RenderPipes, catRenderPipeline, u.RenderPipelines, resolve); err != nil {
		return nil, err
	}
	if err := addAll[resource.RenderBundle](&s.Bundles, catRenderBundle, u.Bundles, resolve); err != nil {
		return nil, err
	}
	return s, nil
}
