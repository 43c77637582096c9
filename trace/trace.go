package trace

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fhn666/wgpu/command"
	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
)

// FormatVersion is the version written into new traces. Traces of another
// version are rejected when decoded.
const FormatVersion = 1

// Errors returned when decoding or replaying a trace.
var (
	ErrVersion    = errors.New("trace: unsupported format version")
	ErrMalformed  = errors.New("trace: malformed action")
	ErrUnknownRef = errors.New("trace: reference to an object the trace does not create")
)

// Trace is a recorded sequence of actions.
type Trace struct {
	Version int       `yaml:"version"`
	ID      uuid.UUID `yaml:"id"`
	Backend uint32    `yaml:"backend"`
	Actions []Action  `yaml:"actions"`
}

// Validate checks the version and that every action holds exactly one
// variant.
func (t *Trace) Validate() error {
	if t.Version != FormatVersion {
		return fmt.Errorf("%w: %d", ErrVersion, t.Version)
	}
	for i := range t.Actions {
		if err := t.Actions[i].validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// Ref is the raw identity of a traced object. Its text form is the one of
// id.ID.
type Ref uint64

func refOf[T any](i id.ID[T]) Ref { return Ref(i.Raw()) }

// MarshalText encodes r as "index,epoch,backend".
func (r Ref) MarshalText() ([]byte, error) { return id.FromRaw[Ref](uint64(r)).MarshalText() }

// UnmarshalText decodes the form produced by MarshalText.
func (r *Ref) UnmarshalText(text []byte) error {
	var i id.ID[Ref]
	if err := i.UnmarshalText(text); err != nil {
		return err
	}
	*r = Ref(i.Raw())
	return nil
}

// String formats r as "index.epoch".
func (r Ref) String() string {
	i := id.FromRaw[Ref](uint64(r))
	return fmt.Sprintf("%d.%d", i.Index(), i.Epoch())
}

// ActionKind names the variant an Action holds.
type ActionKind uint8

// Action variants.
const (
	KindInvalid ActionKind = iota
	KindCreateDevice
	KindCreateBuffer
	KindCreateTexture
	KindCreateTextureView
	KindCreateObject
	KindBeginEncoder
	KindPushDebugGroup
	KindInsertDebugMarker
	KindPopDebugGroup
	KindRunComputePass
	KindRunRenderPass
	KindFinish
	KindCreateSwapChain
	KindAcquireSwapChainView
	KindPresentSwapChain
	KindContinueEncoder
	KindUseSwapChain
	KindDestroyBuffer
	KindDestroyTexture
	KindDestroyTextureView
	KindSubmit
	KindMaintain

	kindCount
)

var kindNames = [...]string{
	KindInvalid:           "invalid",
	KindCreateDevice:      "create_device",
	KindCreateBuffer:      "create_buffer",
	KindCreateTexture:     "create_texture",
	KindCreateTextureView: "create_texture_view",
	KindCreateObject:      "create_object",
	KindBeginEncoder:      "begin_encoder",
	KindPushDebugGroup:    "push_debug_group",
	KindInsertDebugMarker: "insert_debug_marker",
	KindPopDebugGroup:     "pop_debug_group",
	KindRunComputePass:    "run_compute_pass",
	KindRunRenderPass:     "run_render_pass",
	KindFinish:            "finish",

	KindCreateSwapChain:      "create_swap_chain",
	KindAcquireSwapChainView: "acquire_swap_chain_view",
	KindPresentSwapChain:     "present_swap_chain",
	KindContinueEncoder:      "continue_encoder",
	KindUseSwapChain:         "use_swap_chain",
	KindDestroyBuffer:        "destroy_buffer",
	KindDestroyTexture:       "destroy_texture",
	KindDestroyTextureView:   "destroy_texture_view",
	KindSubmit:               "submit",
	KindMaintain:             "maintain",
}

func (k ActionKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ActionKind(%d)", uint8(k))
}

// Action is one traced operation. Exactly one field is set.
type Action struct {
	CreateDevice      *CreateDevice      `yaml:"create_device,omitempty"`
	CreateBuffer      *CreateBuffer      `yaml:"create_buffer,omitempty"`
	CreateTexture     *CreateTexture     `yaml:"create_texture,omitempty"`
	CreateTextureView *CreateTextureView `yaml:"create_texture_view,omitempty"`
	CreateObject      *CreateObject      `yaml:"create_object,omitempty"`
	BeginEncoder      *BeginEncoder      `yaml:"begin_encoder,omitempty"`
	PushDebugGroup    *DebugLabel        `yaml:"push_debug_group,omitempty"`
	InsertDebugMarker *DebugLabel        `yaml:"insert_debug_marker,omitempty"`
	PopDebugGroup     *EncoderRef        `yaml:"pop_debug_group,omitempty"`
	RunComputePass    *ComputePass       `yaml:"run_compute_pass,omitempty"`
	RunRenderPass     *RenderPass        `yaml:"run_render_pass,omitempty"`
	Finish            *EncoderRef        `yaml:"finish,omitempty"`

	CreateSwapChain      *CreateSwapChain `yaml:"create_swap_chain,omitempty"`
	AcquireSwapChainView *SwapChainView   `yaml:"acquire_swap_chain_view,omitempty"`
	PresentSwapChain     *SwapChainRef    `yaml:"present_swap_chain,omitempty"`
	ContinueEncoder      *EncoderRef      `yaml:"continue_encoder,omitempty"`
	UseSwapChain         *UseSwapChain    `yaml:"use_swap_chain,omitempty"`
	DestroyBuffer        *ObjectRef       `yaml:"destroy_buffer,omitempty"`
	DestroyTexture       *ObjectRef       `yaml:"destroy_texture,omitempty"`
	DestroyTextureView   *ObjectRef       `yaml:"destroy_texture_view,omitempty"`
	Submit               *Submit          `yaml:"submit,omitempty"`
	Maintain             *Maintain        `yaml:"maintain,omitempty"`
}

func (a *Action) variants() [kindCount]bool {
	return [...]bool{
		KindInvalid:           false,
		KindCreateDevice:      a.CreateDevice != nil,
		KindCreateBuffer:      a.CreateBuffer != nil,
		KindCreateTexture:     a.CreateTexture != nil,
		KindCreateTextureView: a.CreateTextureView != nil,
		KindCreateObject:      a.CreateObject != nil,
		KindBeginEncoder:      a.BeginEncoder != nil,
		KindPushDebugGroup:    a.PushDebugGroup != nil,
		KindInsertDebugMarker: a.InsertDebugMarker != nil,
		KindPopDebugGroup:     a.PopDebugGroup != nil,
		KindRunComputePass:    a.RunComputePass != nil,
		KindRunRenderPass:     a.RunRenderPass != nil,
		KindFinish:            a.Finish != nil,

		KindCreateSwapChain:      a.CreateSwapChain != nil,
		KindAcquireSwapChainView: a.AcquireSwapChainView != nil,
		KindPresentSwapChain:     a.PresentSwapChain != nil,
		KindContinueEncoder:      a.ContinueEncoder != nil,
		KindUseSwapChain:         a.UseSwapChain != nil,
		KindDestroyBuffer:        a.DestroyBuffer != nil,
		KindDestroyTexture:       a.DestroyTexture != nil,
		KindDestroyTextureView:   a.DestroyTextureView != nil,
		KindSubmit:               a.Submit != nil,
		KindMaintain:             a.Maintain != nil,
	}
}

// Kind returns the variant a holds, or KindInvalid when it holds none or
// several.
func (a *Action) Kind() ActionKind {
	kind := KindInvalid
	for k, set := range a.variants() {
		if !set {
			continue
		}
		if kind != KindInvalid {
			return KindInvalid
		}
		kind = ActionKind(k)
	}
	return kind
}

func (a *Action) validate() error {
	switch a.Kind() {
	case KindInvalid:
		return fmt.Errorf("%w: action must hold exactly one variant", ErrMalformed)
	case KindCreateObject:
		if _, ok := objectKindByName(a.CreateObject.Kind); !ok {
			return fmt.Errorf("%w: unknown object kind %q", ErrMalformed, a.CreateObject.Kind)
		}
	}
	return nil
}

// CreateDevice registers a device.
type CreateDevice struct {
	ID    Ref    `yaml:"id"`
	Label string `yaml:"label,omitempty"`
}

// CreateBuffer registers a buffer.
type CreateBuffer struct {
	ID     Ref    `yaml:"id"`
	Device Ref    `yaml:"device"`
	Size   uint64 `yaml:"size"`
	Usage  uint64 `yaml:"usage,omitempty"`
	Label  string `yaml:"label,omitempty"`
}

// CreateTexture registers a texture.
type CreateTexture struct {
	ID              Ref              `yaml:"id"`
	Device          Ref              `yaml:"device"`
	Format          uint32           `yaml:"format"`
	Aspects         resource.Aspects `yaml:"aspects"`
	MipLevelCount   uint32           `yaml:"mip_level_count"`
	ArrayLayerCount uint32           `yaml:"array_layer_count"`
	Usage           uint64           `yaml:"usage,omitempty"`
	Label           string           `yaml:"label,omitempty"`
}

// Range is the subresource range of a texture view.
type Range struct {
	Aspects        resource.Aspects `yaml:"aspects"`
	BaseMipLevel   uint32           `yaml:"base_mip_level"`
	LevelCount     uint32           `yaml:"level_count"`
	BaseArrayLayer uint32           `yaml:"base_array_layer"`
	LayerCount     uint32           `yaml:"layer_count"`
}

// CreateTextureView registers a texture view.
type CreateTextureView struct {
	ID      Ref    `yaml:"id"`
	Texture Ref    `yaml:"texture"`
	Range   Range  `yaml:"range"`
	Label   string `yaml:"label,omitempty"`
}

// CreateObject registers a bind group, sampler, pipeline or bundle. Kind
// is the command.ObjectKind name.
type CreateObject struct {
	Kind  string `yaml:"kind"`
	ID    Ref    `yaml:"id"`
	Label string `yaml:"label,omitempty"`
}

// BeginEncoder starts a recording session.
type BeginEncoder struct {
	ID     Ref    `yaml:"id"`
	Device Ref    `yaml:"device"`
	Label  string `yaml:"label,omitempty"`
}

// DebugLabel is a debug group or marker recorded on a session.
type DebugLabel struct {
	Encoder Ref    `yaml:"encoder"`
	Label   string `yaml:"label"`
}

// EncoderRef names the session an action applies to.
type EncoderRef struct {
	Encoder Ref `yaml:"encoder"`
}

// ComputePass is a compute pass run on a session, with the usage scope it
// was validated against.
type ComputePass struct {
	Encoder          Ref                      `yaml:"encoder"`
	Commands         []command.ComputeCommand `yaml:"commands"`
	DynamicOffsets   []uint32                 `yaml:"dynamic_offsets,omitempty,flow"`
	StringData       string                   `yaml:"string_data,omitempty"`
	PushConstantData []uint32                 `yaml:"push_constant_data,omitempty,flow"`
	Usage            Usage                    `yaml:"usage"`
}

// RenderPass is a render pass run on a session. Its usage includes the
// attachments.
type RenderPass struct {
	Encoder          Ref                     `yaml:"encoder"`
	Commands         []command.RenderCommand `yaml:"commands"`
	DynamicOffsets   []uint32                `yaml:"dynamic_offsets,omitempty,flow"`
	StringData       string                  `yaml:"string_data,omitempty"`
	PushConstantData []uint32                `yaml:"push_constant_data,omitempty,flow"`
	Usage            Usage                   `yaml:"usage"`
}

// CreateSwapChain registers a swap chain.
type CreateSwapChain struct {
	ID     Ref    `yaml:"id"`
	Device Ref    `yaml:"device"`
	Format uint32 `yaml:"format"`
}

// SwapChainView makes a view the current frame of a swap chain.
type SwapChainView struct {
	SwapChain Ref `yaml:"swap_chain"`
	View      Ref `yaml:"view"`
}

// SwapChainRef names a swap chain.
type SwapChainRef struct {
	SwapChain Ref `yaml:"swap_chain"`
}

// UseSwapChain records that a session renders to a swap chain.
type UseSwapChain struct {
	Encoder   Ref `yaml:"encoder"`
	SwapChain Ref `yaml:"swap_chain"`
}

// ObjectRef names a destroyed object.
type ObjectRef struct {
	ID Ref `yaml:"id"`
}

// Submit submits finished sessions together.
type Submit struct {
	CommandBuffers []Ref `yaml:"command_buffers"`
}

// Maintain retires the submitted sessions of a device.
type Maintain struct {
	Device Ref  `yaml:"device"`
	Wait   bool `yaml:"wait,omitempty"`
}

func objectKindByName(name string) (command.ObjectKind, bool) {
	for k := command.ObjectBindGroup; k <= command.ObjectRenderBundle; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}
