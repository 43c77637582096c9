package command

import (
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/hub"
	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

// Global owns every table of one backend.
type Global struct {
	backend  gputypes.Backend
	observer Observer
	affinity affinitySource

	submissions atomic.Uint64

	devices    *hub.Storage[resource.Device]
	swapChains *hub.Storage[resource.SwapChain]
	sessions   *hub.Storage[CommandBuffer]
	buffers    *hub.Storage[resource.Buffer]
	textures   *hub.Storage[resource.Texture]
	views      *hub.Storage[resource.TextureView]

	bindGroups   *hub.Storage[resource.BindGroup]
	samplers     *hub.Storage[resource.Sampler]
	computePipes *hub.Storage[resource.ComputePipeline]
	renderPipes  *hub.Storage[resource.RenderPipeline]
	bundles      *hub.Storage[resource.RenderBundle]
}

// NewGlobal creates a Global with empty tables.
func NewGlobal(opts ...GlobalOption) *Global {
	o := defaultGlobalOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := o.backend
	return &Global{
		backend:      b,
		observer:     o.observer,
		devices:      hub.NewStorage[resource.Device](hub.RankDevices, b),
		swapChains:   hub.NewStorage[resource.SwapChain](hub.RankSwapChains, b),
		sessions:     hub.NewStorage[CommandBuffer](hub.RankCommandBuffers, b),
		buffers:      hub.NewStorage[resource.Buffer](hub.RankBuffers, b),
		textures:     hub.NewStorage[resource.Texture](hub.RankTextures, b),
		views:        hub.NewStorage[resource.TextureView](hub.RankTextureViews, b),
		bindGroups:   hub.NewStorage[resource.BindGroup](hub.RankBindGroups, b),
		samplers:     hub.NewStorage[resource.Sampler](hub.RankSamplers, b),
		computePipes: hub.NewStorage[resource.ComputePipeline](hub.RankComputePipelines, b),
		renderPipes:  hub.NewStorage[resource.RenderPipeline](hub.RankRenderPipelines, b),
		bundles:      hub.NewStorage[resource.RenderBundle](hub.RankRenderBundles, b),
	}
}

// Backend returns the backend tag of the identities issued by g.
func (g *Global) Backend() gputypes.Backend { return g.backend }

func (g *Global) notify(obs Observer, e Event) {
	if obs != nil {
		obs.Observe(e)
	}
}

// invalid wraps a table lookup error.
func invalid(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInvalid, err)
}

// RegisterDevice stores a device. Sessions copy its limits and features
// when they begin.
func (g *Global) RegisterDevice(dev resource.Device) resource.DeviceID {
	d := dev
	i := g.devices.Register(hub.Root(), &d)
	wgpu.Logger().Debug("command: device registered", "id", i, "label", dev.Label)
	g.notify(g.observer, DeviceRegistered{ID: i, Device: dev})
	return i
}

// CreateSwapChain stores a swap chain for device.
func (g *Global) CreateSwapChain(device resource.DeviceID, format gputypes.TextureFormat) (resource.SwapChainID, error) {
	devices := g.devices.Read(hub.Root())
	defer devices.Release()
	if _, err := devices.Get(device); err != nil {
		return resource.SwapChainID{}, invalid("create swap chain", err)
	}
	sc := g.swapChains.Register(devices.Token(), &resource.SwapChain{Device: device, Format: format})
	devices.Release()
	g.notify(g.observer, SwapChainCreated{ID: sc, Device: device, Format: format})
	return sc, nil
}

// AcquireSwapChainView makes view the swap chain's current frame.
func (g *Global) AcquireSwapChainView(sc resource.SwapChainID, view resource.TextureViewID) error {
	swapChains := g.swapChains.Write(hub.Root())
	defer swapChains.Release()
	s, err := swapChains.GetMut(sc)
	if err != nil {
		return invalid("acquire swap chain view", err)
	}
	if s.AcquiredView != nil {
		return fmt.Errorf("acquire swap chain view: %w", ErrViewAcquired)
	}
	views := g.views.Read(swapChains.Token())
	defer views.Release()
	if _, err := views.Get(view); err != nil {
		return invalid("acquire swap chain view", err)
	}
	v := view
	s.AcquiredView = &v
	views.Release()
	swapChains.Release()
	g.notify(g.observer, SwapChainViewAcquired{SwapChain: sc, View: view})
	return nil
}

// PresentSwapChain releases the acquired view of the swap chain.
func (g *Global) PresentSwapChain(sc resource.SwapChainID) error {
	swapChains := g.swapChains.Write(hub.Root())
	defer swapChains.Release()
	s, err := swapChains.GetMut(sc)
	if err != nil {
		return invalid("present swap chain", err)
	}
	if s.AcquiredView == nil {
		return fmt.Errorf("present swap chain: %w", ErrNoAcquiredView)
	}
	s.AcquiredView = nil
	swapChains.Release()
	g.notify(g.observer, SwapChainPresented{SwapChain: sc})
	return nil
}

// RegisterBuffer stores a buffer created on device.
func (g *Global) RegisterBuffer(device resource.DeviceID, desc resource.Buffer) (resource.BufferID, error) {
	devices := g.devices.Read(hub.Root())
	defer devices.Release()
	if _, err := devices.Get(device); err != nil {
		return resource.BufferID{}, invalid("register buffer", err)
	}
	desc.Device = device
	b := desc
	i := g.buffers.Register(devices.Token(), &b)
	devices.Release()
	g.notify(g.observer, BufferRegistered{ID: i, Buffer: desc})
	return i, nil
}

// RegisterTexture stores a texture created on device. Zero aspects are
// derived from the format.
func (g *Global) RegisterTexture(device resource.DeviceID, desc resource.Texture) (resource.TextureID, error) {
	devices := g.devices.Read(hub.Root())
	defer devices.Release()
	if _, err := devices.Get(device); err != nil {
		return resource.TextureID{}, invalid("register texture", err)
	}
	desc.Device = device
	if desc.Aspects == 0 {
		desc.Aspects = resource.AspectsOf(desc.Format)
	}
	t := desc
	i := g.textures.Register(devices.Token(), &t)
	devices.Release()
	g.notify(g.observer, TextureRegistered{ID: i, Texture: desc})
	return i, nil
}

// RegisterTextureView stores a view of texture. A zero range selects the
// whole texture.
func (g *Global) RegisterTextureView(texture resource.TextureID, desc resource.TextureView) (resource.TextureViewID, error) {
	textures := g.textures.Read(hub.Root())
	defer textures.Release()
	tex, err := textures.Get(texture)
	if err != nil {
		return resource.TextureViewID{}, invalid("register texture view", err)
	}
	desc.Parent = texture
	if desc.Range == (resource.SubresourceRange{}) {
		desc.Range = tex.FullRange()
	}
	v := desc
	i := g.views.Register(textures.Token(), &v)
	textures.Release()
	g.notify(g.observer, TextureViewRegistered{ID: i, View: desc})
	return i, nil
}

func registerObject[T any](g *Global, s *hub.Storage[T], kind ObjectKind, value *T, label string) id.ID[T] {
	i := s.Register(hub.Root(), value)
	g.notify(g.observer, ObjectRegistered{Kind: kind, ID: i.Raw(), Label: label})
	return i
}

// RegisterBindGroup stores a bind group.
func (g *Global) RegisterBindGroup(label string) resource.BindGroupID {
	return registerObject(g, g.bindGroups, ObjectBindGroup, &resource.BindGroup{Label: label}, label)
}

// RegisterSampler stores a sampler.
func (g *Global) RegisterSampler(label string) resource.SamplerID {
	return registerObject(g, g.samplers, ObjectSampler, &resource.Sampler{Label: label}, label)
}

// RegisterComputePipeline stores a compute pipeline.
func (g *Global) RegisterComputePipeline(label string) resource.ComputePipelineID {
	return registerObject(g, g.computePipes, ObjectComputePipeline, &resource.ComputePipeline{Label: label}, label)
}

// RegisterRenderPipeline stores a render pipeline.
func (g *Global) RegisterRenderPipeline(label string) resource.RenderPipelineID {
	return registerObject(g, g.renderPipes, ObjectRenderPipeline, &resource.RenderPipeline{Label: label}, label)
}

// RegisterRenderBundle stores a render bundle.
func (g *Global) RegisterRenderBundle(label string) resource.RenderBundleID {
	return registerObject(g, g.bundles, ObjectRenderBundle, &resource.RenderBundle{Label: label}, label)
}

// destroy retires i from table. The slot is not reissued while a session
// in sessions still tracks i; reclaim frees it once they are retired.
func destroy[T any](op string, sessions iter.Seq2[CommandBufferID, *CommandBuffer], table *hub.Storage[T], tok hub.Token, i id.ID[T], tracks func(*track.TrackerSet, id.ID[T]) bool) error {
	w := table.Write(tok)
	defer w.Release()
	if _, err := w.Retire(i); err != nil {
		return invalid(op, err)
	}
	w.Reclaim(heldBy(sessions, tracks))
	return nil
}

// heldBy reports whether any session tracks an identity.
func heldBy[T any](sessions iter.Seq2[CommandBufferID, *CommandBuffer], tracks func(*track.TrackerSet, id.ID[T]) bool) func(id.ID[T]) bool {
	return func(i id.ID[T]) bool {
		for _, cb := range sessions {
			if tracks(cb.trackers, i) {
				return true
			}
		}
		return false
	}
}

func tracksBuffer(t *track.TrackerSet, b resource.BufferID) bool {
	_, ok := t.Buffers.Query(b)
	return ok
}

func tracksTexture(t *track.TrackerSet, tex resource.TextureID) bool {
	_, ok := t.Textures.Query(tex)
	return ok
}

func tracksView(t *track.TrackerSet, v resource.TextureViewID) bool {
	return t.Views.Contains(v)
}

// reclaim frees the retired buffer, texture and view slots no session in
// sessions tracks anymore.
func (g *Global) reclaim(sessions *hub.WriteGuard[CommandBuffer]) {
	tok := sessions.Token()
	reclaimIn(g.buffers, tok, heldBy(sessions.All(), tracksBuffer))
	reclaimIn(g.textures, tok, heldBy(sessions.All(), tracksTexture))
	reclaimIn(g.views, tok, heldBy(sessions.All(), tracksView))
}

func reclaimIn[T any](table *hub.Storage[T], tok hub.Token, held func(id.ID[T]) bool) {
	w := table.Write(tok)
	defer w.Release()
	if n := w.Reclaim(held); n > 0 {
		wgpu.Logger().Debug("command: slots reclaimed", "table", table.Rank().String(), "count", n)
	}
}

// DestroyBuffer removes a buffer from its table. Its identity stops
// resolving at once; the slot is reissued only after every session
// tracking it has been retired.
func (g *Global) DestroyBuffer(b resource.BufferID) error {
	sessions := g.sessions.Read(hub.Root())
	defer sessions.Release()
	if err := destroy("destroy buffer", sessions.All(), g.buffers, sessions.Token(), b, tracksBuffer); err != nil {
		return err
	}
	sessions.Release()
	g.notify(g.observer, BufferDestroyed{ID: b})
	return nil
}

// DestroyTexture removes a texture from its table like DestroyBuffer.
func (g *Global) DestroyTexture(t resource.TextureID) error {
	sessions := g.sessions.Read(hub.Root())
	defer sessions.Release()
	if err := destroy("destroy texture", sessions.All(), g.textures, sessions.Token(), t, tracksTexture); err != nil {
		return err
	}
	sessions.Release()
	g.notify(g.observer, TextureDestroyed{ID: t})
	return nil
}

// DestroyTextureView removes a texture view from its table like
// DestroyBuffer.
func (g *Global) DestroyTextureView(v resource.TextureViewID) error {
	sessions := g.sessions.Read(hub.Root())
	defer sessions.Release()
	if err := destroy("destroy texture view", sessions.All(), g.views, sessions.Token(), v, tracksView); err != nil {
		return err
	}
	sessions.Release()
	g.notify(g.observer, TextureViewDestroyed{ID: v})
	return nil
}
