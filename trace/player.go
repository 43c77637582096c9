package trace

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/command"
	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/hal/recorder"
	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
)

// category distinguishes the tables a Ref may point into.
type category uint8

const (
	catDevice category = iota + 1
	catBuffer
	catTexture
	catView
	catBindGroup
	catSampler
	catComputePipeline
	catRenderPipeline
	catRenderBundle
	catSwapChain
)

var categoryNames = [...]string{
	catDevice:          "device",
	catBuffer:          "buffer",
	catTexture:         "texture",
	catView:            "texture view",
	catBindGroup:       "bind group",
	catSampler:         "sampler",
	catComputePipeline: "compute pipeline",
	catRenderPipeline:  "render pipeline",
	catRenderBundle:    "render bundle",
	catSwapChain:       "swap chain",
}

func (c category) String() string { return categoryNames[c] }

var objectCategories = map[command.ObjectKind]category{
	command.ObjectBindGroup:       catBindGroup,
	command.ObjectSampler:         catSampler,
	command.ObjectComputePipeline: catComputePipeline,
	command.ObjectRenderPipeline:  catRenderPipeline,
	command.ObjectRenderBundle:    catRenderBundle,
}

type refKey struct {
	cat category
	ref Ref
}

// PlayOption configures Play.
type PlayOption func(*player)

// WithRawFactory sets the function creating the raw command buffers of
// replayed sessions. It is called when a session begins and again each
// time it is continued. The default creates a recorder.CommandBuffer.
func WithRawFactory(f func(label string) (hal.CommandBuffer, error)) PlayOption {
	return func(p *player) { p.newRaw = f }
}

// Resources creates the backend objects of replayed buffers and textures.
// The returned values become the Raw handles barriers refer to.
type Resources interface {
	Buffer(b *CreateBuffer) (any, error)
	Texture(t *CreateTexture) (any, error)
}

// WithResources sets the factory of backend objects. Without one, the Raw
// handle of a replayed resource is its traced Ref.
func WithResources(r Resources) PlayOption {
	return func(p *player) { p.resources = r }
}

// WithObserver attaches an observer to the replay Global.
func WithObserver(obs command.Observer) PlayOption {
	return func(p *player) { p.observer = obs }
}

// WithExecutors sets the executors replayed passes are handed to.
func WithExecutors(compute command.ComputeExecutor, render command.RenderExecutor) PlayOption {
	return func(p *player) {
		p.compute = compute
		p.render = render
	}
}

// Session is a session recreated by Play. Raws holds its raw command
// buffers in the order the session recorded into them.
type Session struct {
	Trace     Ref
	ID        command.CommandEncoderID
	Label     string
	Raws      []hal.CommandBuffer
	Finished  bool
	Submitted bool
	Retired   bool

	aff    command.Affinity
	device resource.DeviceID
}

// Replay is the outcome of Play.
type Replay struct {
	Global   *command.Global
	Sessions []*Session
}

type player struct {
	newRaw    func(label string) (hal.CommandBuffer, error)
	resources Resources
	observer  command.Observer
	compute   command.ComputeExecutor
	render    command.RenderExecutor

	g        *command.Global
	refs     map[refKey]uint64
	sessions map[Ref]*Session
	out      *Replay
}

// Play replays t into a new Global. Identities are remapped onto the ones
// the new Global issues. Replay stops at the first failing action.
func Play(t *Trace, opts ...PlayOption) (*Replay, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	p := &player{
		newRaw:   func(label string) (hal.CommandBuffer, error) { return recorder.New(label), nil },
		refs:     make(map[refKey]uint64),
		sessions: make(map[Ref]*Session),
	}
	for _, opt := range opts {
		opt(p)
	}
	gopts := []command.GlobalOption{command.WithBackend(gputypes.Backend(t.Backend))}
	if p.observer != nil {
		gopts = append(gopts, command.WithObserver(p.observer))
	}
	p.g = command.NewGlobal(gopts...)
	p.out = &Replay{Global: p.g}

	for i := range t.Actions {
		a := &t.Actions[i]
		if err := p.apply(a); err != nil {
			return p.out, fmt.Errorf("trace: action %d (%v): %w", i, a.Kind(), err)
		}
	}
	wgpu.Logger().Debug("trace: replayed", "id", t.ID, "actions", len(t.Actions), "sessions", len(p.out.Sessions))
	return p.out, nil
}

func (p *player) bind(c category, r Ref, raw uint64) { p.refs[refKey{c, r}] = raw }

func (p *player) resolve(c category, r Ref) (uint64, error) {
	raw, ok := p.refs[refKey{c, r}]
	if !ok {
		return 0, fmt.Errorf("%w: %v %v", ErrUnknownRef, c, r)
	}
	return raw, nil
}

func resolveID[T any](p *player, c category, r Ref) (id.ID[T], error) {
	raw, err := p.resolve(c, r)
	return id.FromRaw[T](raw), err
}

func (p *player) session(r Ref) (*Session, error) {
	s, ok := p.sessions[r]
	if !ok {
		return nil, fmt.Errorf("%w: encoder %v", ErrUnknownRef, r)
	}
	return s, nil
}

func (p *player) apply(a *Action) error {
	switch a.Kind() {
	case KindCreateDevice:
		d := a.CreateDevice
		i := p.g.RegisterDevice(resource.Device{Label: d.Label, Limits: gputypes.DefaultLimits()})
		p.bind(catDevice, d.ID, i.Raw())
	case KindCreateBuffer:
		return p.createBuffer(a.CreateBuffer)
	case KindCreateTexture:
		return p.createTexture(a.CreateTexture)
	case KindCreateTextureView:
		return p.createView(a.CreateTextureView)
	case KindCreateObject:
		return p.createObject(a.CreateObject)
	case KindBeginEncoder:
		return p.beginEncoder(a.BeginEncoder)
	case KindPushDebugGroup:
		s, err := p.session(a.PushDebugGroup.Encoder)
		if err != nil {
			return err
		}
		return p.g.PushDebugGroup(s.ID, s.aff, a.PushDebugGroup.Label)
	case KindInsertDebugMarker:
		s, err := p.session(a.InsertDebugMarker.Encoder)
		if err != nil {
			return err
		}
		return p.g.InsertDebugMarker(s.ID, s.aff, a.InsertDebugMarker.Label)
	case KindPopDebugGroup:
		s, err := p.session(a.PopDebugGroup.Encoder)
		if err != nil {
			return err
		}
		return p.g.PopDebugGroup(s.ID, s.aff)
	case KindRunComputePass:
		return p.runCompute(a.RunComputePass)
	case KindRunRenderPass:
		return p.runRender(a.RunRenderPass)
	case KindFinish:
		s, err := p.session(a.Finish.Encoder)
		if err != nil {
			return err
		}
		if _, err := p.g.Finish(s.ID, s.aff); err != nil {
			return err
		}
		s.Finished = true
	case KindCreateSwapChain:
		return p.createSwapChain(a.CreateSwapChain)
	case KindAcquireSwapChainView:
		sc, err := resolveID[resource.SwapChain](p, catSwapChain, a.AcquireSwapChainView.SwapChain)
		if err != nil {
			return err
		}
		view, err := resolveID[resource.TextureView](p, catView, a.AcquireSwapChainView.View)
		if err != nil {
			return err
		}
		return p.g.AcquireSwapChainView(sc, view)
	case KindPresentSwapChain:
		sc, err := resolveID[resource.SwapChain](p, catSwapChain, a.PresentSwapChain.SwapChain)
		if err != nil {
			return err
		}
		return p.g.PresentSwapChain(sc)
	case KindContinueEncoder:
		return p.continueEncoder(a.ContinueEncoder)
	case KindUseSwapChain:
		s, err := p.session(a.UseSwapChain.Encoder)
		if err != nil {
			return err
		}
		sc, err := resolveID[resource.SwapChain](p, catSwapChain, a.UseSwapChain.SwapChain)
		if err != nil {
			return err
		}
		return p.g.UseSwapChain(s.ID, s.aff, sc)
	case KindDestroyBuffer:
		return destroyRef(p, catBuffer, a.DestroyBuffer.ID, p.g.DestroyBuffer)
	case KindDestroyTexture:
		return destroyRef(p, catTexture, a.DestroyTexture.ID, p.g.DestroyTexture)
	case KindDestroyTextureView:
		return destroyRef(p, catView, a.DestroyTextureView.ID, p.g.DestroyTextureView)
	case KindSubmit:
		return p.submit(a.Submit)
	case KindMaintain:
		return p.maintain(a.Maintain)
	default:
		return ErrMalformed
	}
	return nil
}

func (p *player) createSwapChain(c *CreateSwapChain) error {
	dev, err := resolveID[resource.Device](p, catDevice, c.Device)
	if err != nil {
		return err
	}
	sc, err := p.g.CreateSwapChain(dev, gputypes.TextureFormat(c.Format))
	if err != nil {
		return err
	}
	p.bind(catSwapChain, c.ID, sc.Raw())
	return nil
}

// destroyRef destroys the object r is bound to and drops the binding.
func destroyRef[T any](p *player, c category, r Ref, destroy func(id.ID[T]) error) error {
	i, err := resolveID[T](p, c, r)
	if err != nil {
		return err
	}
	if err := destroy(i); err != nil {
		return err
	}
	delete(p.refs, refKey{c, r})
	return nil
}

func (p *player) submit(sub *Submit) error {
	sessions := make([]*Session, len(sub.CommandBuffers))
	ids := make([]command.CommandBufferID, len(sub.CommandBuffers))
	for i, r := range sub.CommandBuffers {
		s, err := p.session(r)
		if err != nil {
			return err
		}
		sessions[i], ids[i] = s, s.ID
	}
	if _, err := p.g.Submit(ids...); err != nil {
		return err
	}
	for _, s := range sessions {
		s.Submitted = true
	}
	return nil
}

func (p *player) maintain(m *Maintain) error {
	dev, err := resolveID[resource.Device](p, catDevice, m.Device)
	if err != nil {
		return err
	}
	if _, err := p.g.Maintain(dev, m.Wait); err != nil {
		return err
	}
	for _, s := range p.out.Sessions {
		if s.device == dev && s.Submitted {
			s.Retired = true
		}
	}
	return nil
}

func (p *player) createBuffer(b *CreateBuffer) error {
	dev, err := resolveID[resource.Device](p, catDevice, b.Device)
	if err != nil {
		return err
	}
	var raw any = b.ID
	if p.resources != nil {
		if raw, err = p.resources.Buffer(b); err != nil {
			return err
		}
	}
	i, err := p.g.RegisterBuffer(dev, resource.Buffer{
		Raw:   raw,
		Size:  b.Size,
		Usage: gputypes.BufferUsage(b.Usage),
		Label: b.Label,
	})
	if err != nil {
		return err
	}
	p.bind(catBuffer, b.ID, i.Raw())
	return nil
}

func (p *player) createTexture(t *CreateTexture) error {
	dev, err := resolveID[resource.Device](p, catDevice, t.Device)
	if err != nil {
		return err
	}
	var raw any = t.ID
	if p.resources != nil {
		if raw, err = p.resources.Texture(t); err != nil {
			return err
		}
	}
	i, err := p.g.RegisterTexture(dev, resource.Texture{
		Raw:             raw,
		Format:          gputypes.TextureFormat(t.Format),
		Aspects:         t.Aspects,
		MipLevelCount:   t.MipLevelCount,
		ArrayLayerCount: t.ArrayLayerCount,
		Usage:           gputypes.TextureUsage(t.Usage),
		Label:           t.Label,
	})
	if err != nil {
		return err
	}
	p.bind(catTexture, t.ID, i.Raw())
	return nil
}

func (p *player) createView(v *CreateTextureView) error {
	tex, err := resolveID[resource.Texture](p, catTexture, v.Texture)
	if err != nil {
		return err
	}
	i, err := p.g.RegisterTextureView(tex, resource.TextureView{
		Raw: v.ID,
		Range: resource.SubresourceRange{
			Aspects:        v.Range.Aspects,
			BaseMipLevel:   v.Range.BaseMipLevel,
			LevelCount:     v.Range.LevelCount,
			BaseArrayLayer: v.Range.BaseArrayLayer,
			LayerCount:     v.Range.LayerCount,
		},
		Label: v.Label,
	})
	if err != nil {
		return err
	}
	p.bind(catView, v.ID, i.Raw())
	return nil
}

func (p *player) createObject(o *CreateObject) error {
	kind, _ := objectKindByName(o.Kind)
	var raw uint64
	switch kind {
	case command.ObjectBindGroup:
		raw = p.g.RegisterBindGroup(o.Label).Raw()
	case command.ObjectSampler:
		raw = p.g.RegisterSampler(o.Label).Raw()
	case command.ObjectComputePipeline:
		raw = p.g.RegisterComputePipeline(o.Label).Raw()
	case command.ObjectRenderPipeline:
		raw = p.g.RegisterRenderPipeline(o.Label).Raw()
	case command.ObjectRenderBundle:
		raw = p.g.RegisterRenderBundle(o.Label).Raw()
	}
	p.bind(objectCategories[kind], o.ID, raw)
	return nil
}

func (p *player) beginEncoder(b *BeginEncoder) error {
	if _, dup := p.sessions[b.ID]; dup {
		return fmt.Errorf("%w: encoder %v begun twice", ErrMalformed, b.ID)
	}
	dev, err := resolveID[resource.Device](p, catDevice, b.Device)
	if err != nil {
		return err
	}
	raw, err := p.newRaw(b.Label)
	if err != nil {
		return err
	}
	enc, aff, err := p.g.BeginEncoder(dev, raw, command.WithLabel(b.Label))
	if err != nil {
		return err
	}
	s := &Session{Trace: b.ID, ID: enc, Label: b.Label, Raws: []hal.CommandBuffer{raw}, aff: aff, device: dev}
	p.sessions[b.ID] = s
	p.out.Sessions = append(p.out.Sessions, s)
	return nil
}

func (p *player) continueEncoder(c *EncoderRef) error {
	s, err := p.session(c.Encoder)
	if err != nil {
		return err
	}
	raw, err := p.newRaw(s.Label)
	if err != nil {
		return err
	}
	if err := p.g.ContinueEncoder(s.ID, s.aff, raw); err != nil {
		return err
	}
	s.Raws = append(s.Raws, raw)
	return nil
}

// remap rewrites a command target recorded as a traced reference.
func (p *player) remap(target *uint64, c category) error {
	raw, err := p.resolve(c, Ref(*target))
	if err != nil {
		return err
	}
	*target = raw
	return nil
}

func (p *player) runCompute(cp *ComputePass) error {
	s, err := p.session(cp.Encoder)
	if err != nil {
		return err
	}
	base := &command.BasePass[command.ComputeCommand]{
		Commands:         slices.Clone(cp.Commands),
		DynamicOffsets:   slices.Clone(cp.DynamicOffsets),
		StringData:       []byte(cp.StringData),
		PushConstantData: slices.Clone(cp.PushConstantData),
	}
	for i := range base.Commands {
		c := &base.Commands[i]
		switch c.Op {
		case command.ComputeSetBindGroup:
			err = p.remap(&c.Target, catBindGroup)
		case command.ComputeSetPipeline:
			err = p.remap(&c.Target, catComputePipeline)
		case command.ComputeDispatchIndirect:
			err = p.remap(&c.Target, catBuffer)
		}
		if err != nil {
			return err
		}
	}
	scope, err := cp.Usage.trackerSet(p.g.Backend(), p.resolve)
	if err != nil {
		return err
	}
	return p.g.RunComputePass(s.ID, s.aff, command.NewComputePassFrom(base, scope), p.compute)
}

func (p *player) runRender(rp *RenderPass) error {
	s, err := p.session(rp.Encoder)
	if err != nil {
		return err
	}
	base := &command.BasePass[command.RenderCommand]{
		Commands:         slices.Clone(rp.Commands),
		DynamicOffsets:   slices.Clone(rp.DynamicOffsets),
		StringData:       []byte(rp.StringData),
		PushConstantData: slices.Clone(rp.PushConstantData),
	}
	for i := range base.Commands {
		c := &base.Commands[i]
		switch c.Op {
		case command.RenderSetBindGroup:
			err = p.remap(&c.Target, catBindGroup)
		case command.RenderSetPipeline:
			err = p.remap(&c.Target, catRenderPipeline)
		case command.RenderSetIndexBuffer, command.RenderSetVertexBuffer,
			command.RenderDrawIndirect, command.RenderDrawIndexedIndirect:
			err = p.remap(&c.Target, catBuffer)
		case command.RenderExecuteBundle:
			err = p.remap(&c.Target, catRenderBundle)
		}
		if err != nil {
			return err
		}
	}
	scope, err := rp.Usage.trackerSet(p.g.Backend(), p.resolve)
	if err != nil {
		return err
	}
	return p.g.RunRenderPass(s.ID, s.aff, command.NewRenderPassFrom(base, scope), p.render)
}
