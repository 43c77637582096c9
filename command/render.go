package command

import (
	"fmt"
	"iter"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

// RenderOp tags a RenderCommand.
type RenderOp uint8

// Render commands.
const (
	RenderSetBindGroup RenderOp = iota + 1
	RenderSetPipeline
	RenderSetIndexBuffer
	RenderSetVertexBuffer
	RenderSetBlendColor
	RenderSetStencilReference
	RenderSetViewport
	RenderSetScissor
	RenderSetPushConstant
	RenderDraw
	RenderDrawIndexed
	RenderDrawIndirect
	RenderDrawIndexedIndirect
	RenderPushDebugGroup
	RenderPopDebugGroup
	RenderInsertDebugMarker
	RenderExecuteBundle
)

var renderOpNames = [...]string{
	RenderSetBindGroup:        "SetBindGroup",
	RenderSetPipeline:         "SetPipeline",
	RenderSetIndexBuffer:      "SetIndexBuffer",
	RenderSetVertexBuffer:     "SetVertexBuffer",
	RenderSetBlendColor:       "SetBlendColor",
	RenderSetStencilReference: "SetStencilReference",
	RenderSetViewport:         "SetViewport",
	RenderSetScissor:          "SetScissor",
	RenderSetPushConstant:     "SetPushConstant",
	RenderDraw:                "Draw",
	RenderDrawIndexed:         "DrawIndexed",
	RenderDrawIndirect:        "DrawIndirect",
	RenderDrawIndexedIndirect: "DrawIndexedIndirect",
	RenderPushDebugGroup:      "PushDebugGroup",
	RenderPopDebugGroup:       "PopDebugGroup",
	RenderInsertDebugMarker:   "InsertDebugMarker",
	RenderExecuteBundle:       "ExecuteBundle",
}

func (op RenderOp) String() string {
	if int(op) < len(renderOpNames) && renderOpNames[op] != "" {
		return renderOpNames[op]
	}
	return fmt.Sprintf("RenderOp(%d)", uint8(op))
}

// MarshalText encodes op by name.
func (op RenderOp) MarshalText() ([]byte, error) {
	if int(op) >= len(renderOpNames) || renderOpNames[op] == "" {
		return nil, fmt.Errorf("%w: unknown render command %d", ErrPassInvalid, uint8(op))
	}
	return []byte(renderOpNames[op]), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (op *RenderOp) UnmarshalText(text []byte) error {
	v, err := opByName(renderOpNames[:], string(text))
	if err != nil {
		return fmt.Errorf("%w: unknown render command %q", ErrPassInvalid, text)
	}
	*op = RenderOp(v)
	return nil
}

// RenderCommand is one fixed-shape record of a render pass. Fields not used
// by Op are zero. Index holds the bind group or vertex buffer slot and the
// stencil reference. Target holds the raw identity of the bind group,
// pipeline, buffer or bundle; Offset and Size the buffer range or push
// constant byte offset. Count and Start locate the payload in its side
// array as for ComputeCommand. Args holds draw arguments in argument order,
// the scissor rectangle, or the draw count of an indirect draw. Floats holds
// the viewport (x, y, width, height, min depth, max depth) or the blend
// color (r, g, b, a).
type RenderCommand struct {
	Op         RenderOp         `yaml:"op"`
	Index      uint32           `yaml:"index,omitempty"`
	Target     uint64           `yaml:"target,omitempty"`
	Offset     uint64           `yaml:"offset,omitempty"`
	Size       uint64           `yaml:"size,omitempty"`
	Count      uint32           `yaml:"count,omitempty"`
	Start      uint32           `yaml:"start,omitempty"`
	Stages     hal.ShaderStages `yaml:"stages,omitempty"`
	Args       [4]uint32        `yaml:"args,flow"`
	BaseVertex int32            `yaml:"base_vertex,omitempty"`
	Floats     [6]float32       `yaml:"floats,flow"`
	Color      uint32           `yaml:"color,omitempty"`
}

// BindGroup returns Target as a bind group identity.
func (c RenderCommand) BindGroup() resource.BindGroupID { return id.FromRaw[resource.BindGroup](c.Target) }

// Pipeline returns Target as a render pipeline identity.
func (c RenderCommand) Pipeline() resource.RenderPipelineID {
	return id.FromRaw[resource.RenderPipeline](c.Target)
}

// Buffer returns Target as a buffer identity.
func (c RenderCommand) Buffer() resource.BufferID { return id.FromRaw[resource.Buffer](c.Target) }

// Bundle returns Target as a render bundle identity.
func (c RenderCommand) Bundle() resource.RenderBundleID { return id.FromRaw[resource.RenderBundle](c.Target) }

// RenderItem is a decoded render command with its payload resolved.
type RenderItem struct {
	RenderCommand

	DynamicOffsets []uint32
	Label          string
	Values         []uint32
}

// DecodeRender yields the commands of p in order with their payloads.
// A record pointing outside the side arrays yields an error and stops the
// sequence.
func DecodeRender(p BasePassRef[RenderCommand]) iter.Seq2[RenderItem, error] {
	return func(yield func(RenderItem, error) bool) {
		for _, c := range p.Commands {
			item := RenderItem{RenderCommand: c}
			var err error
			switch c.Op {
			case RenderSetBindGroup:
				item.DynamicOffsets, err = sideSlice(p.DynamicOffsets, c.Start, c.Count, "dynamic offsets")
			case RenderSetPushConstant:
				if c.Count%4 != 0 {
					err = fmt.Errorf("%w: push constant size %d is not a multiple of 4", ErrPassInvalid, c.Count)
				} else if c.Start != NoValues {
					item.Values, err = sideSlice(p.PushConstantData, c.Start, c.Count/4, "push constants")
				}
			case RenderPushDebugGroup, RenderInsertDebugMarker:
				var b []byte
				b, err = sideSlice(p.StringData, c.Start, c.Count, "string data")
				item.Label = string(b)
			case RenderSetPipeline, RenderSetIndexBuffer, RenderSetVertexBuffer, RenderSetBlendColor,
				RenderSetStencilReference, RenderSetViewport, RenderSetScissor, RenderDraw,
				RenderDrawIndexed, RenderDrawIndirect, RenderDrawIndexedIndirect,
				RenderPopDebugGroup, RenderExecuteBundle:
			default:
				err = fmt.Errorf("%w: unknown render command %v", ErrPassInvalid, c.Op)
			}
			if err != nil {
				yield(RenderItem{}, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// RenderExecutor receives every decoded command of a render pass after
// barriers and debug markers have been emitted on raw.
type RenderExecutor func(raw hal.CommandBuffer, cmd RenderItem) error

// Attachment is a texture view a render pass draws into. ReadOnly marks a
// depth-stencil attachment that is only tested against.
type Attachment struct {
	View     resource.TextureViewID
	ReadOnly bool
}

// RenderPass records a render pass.
type RenderPass struct {
	passRecorder[RenderCommand]

	colors       []Attachment
	depthStencil *Attachment
}

// NewRenderPass returns an empty render pass drawing into the given
// attachments. depthStencil may be nil.
func NewRenderPass(backend gputypes.Backend, colors []Attachment, depthStencil *Attachment) *RenderPass {
	p := &RenderPass{
		passRecorder: newPassRecorder[RenderCommand](backend),
		colors:       append([]Attachment(nil), colors...),
	}
	if depthStencil != nil {
		ds := *depthStencil
		p.depthStencil = &ds
	}
	for _, a := range p.colors {
		if a.ReadOnly {
			p.failf("color attachment %v cannot be read-only", a.View)
		}
		p.scope.Views.Add(a.View)
	}
	if p.depthStencil != nil {
		p.scope.Views.Add(p.depthStencil.View)
	}
	return p
}

// NewRenderPassFrom wraps a stream recorded earlier, with the usage scope
// it was recorded with. Attachment usage is already part of scope.
func NewRenderPassFrom(base *BasePass[RenderCommand], scope *track.TrackerSet) *RenderPass {
	p := &RenderPass{passRecorder: passRecorder[RenderCommand]{base: *base, scope: scope}}
	for c, err := range DecodeRender(base.AsRef()) {
		if err != nil {
			p.fail(err)
			break
		}
		switch c.Op {
		case RenderPushDebugGroup:
			p.pushGroup()
		case RenderPopDebugGroup:
			p.popGroup()
		}
	}
	return p
}

// Attachments returns the color and depth-stencil attachments.
func (p *RenderPass) Attachments() ([]Attachment, *Attachment) { return p.colors, p.depthStencil }

func (p *RenderPass) push(c RenderCommand) { p.base.Commands = append(p.base.Commands, c) }

// SetBindGroup binds bg at index with the given dynamic offsets.
func (p *RenderPass) SetBindGroup(index uint32, bg resource.BindGroupID, offsets ...uint32) {
	p.scope.BindGroups.Add(bg)
	p.push(RenderCommand{
		Op:     RenderSetBindGroup,
		Index:  index,
		Target: bg.Raw(),
		Count:  uint32(len(offsets)),
		Start:  p.base.appendOffsets(offsets),
	})
}

// SetPipeline binds a render pipeline.
func (p *RenderPass) SetPipeline(pipeline resource.RenderPipelineID) {
	p.scope.RenderPipes.Add(pipeline)
	p.push(RenderCommand{Op: RenderSetPipeline, Target: pipeline.Raw()})
}

// SetIndexBuffer binds size bytes of buf at offset as the index buffer.
// A zero size binds the rest of the buffer.
func (p *RenderPass) SetIndexBuffer(buf resource.BufferID, offset, size uint64) {
	p.UseBuffer(buf, resource.BufferUseIndex)
	p.push(RenderCommand{Op: RenderSetIndexBuffer, Target: buf.Raw(), Offset: offset, Size: size})
}

// SetVertexBuffer binds size bytes of buf at offset to vertex buffer slot.
func (p *RenderPass) SetVertexBuffer(slot uint32, buf resource.BufferID, offset, size uint64) {
	p.UseBuffer(buf, resource.BufferUseVertex)
	p.push(RenderCommand{Op: RenderSetVertexBuffer, Index: slot, Target: buf.Raw(), Offset: offset, Size: size})
}

// SetBlendColor sets the constant blend color.
func (p *RenderPass) SetBlendColor(r, g, b, a float32) {
	p.push(RenderCommand{Op: RenderSetBlendColor, Floats: [6]float32{r, g, b, a}})
}

// SetStencilReference sets the stencil reference value.
func (p *RenderPass) SetStencilReference(ref uint32) {
	p.push(RenderCommand{Op: RenderSetStencilReference, Index: ref})
}

// SetViewport sets the viewport transform.
func (p *RenderPass) SetViewport(x, y, w, h, minDepth, maxDepth float32) {
	if w <= 0 || h <= 0 || minDepth < 0 || maxDepth > 1 || minDepth > maxDepth ||
		math.IsNaN(float64(x)) || math.IsNaN(float64(y)) {
		p.failf("invalid viewport %v,%v %vx%v depth %v..%v", x, y, w, h, minDepth, maxDepth)
		return
	}
	p.push(RenderCommand{Op: RenderSetViewport, Floats: [6]float32{x, y, w, h, minDepth, maxDepth}})
}

// SetScissor sets the scissor rectangle.
func (p *RenderPass) SetScissor(x, y, w, h uint32) {
	p.push(RenderCommand{Op: RenderSetScissor, Args: [4]uint32{x, y, w, h}})
}

// SetPushConstants writes data at byte offset for the given stages.
func (p *RenderPass) SetPushConstants(stages hal.ShaderStages, offset uint32, data []uint32) {
	if offset%4 != 0 {
		p.failf("push constant offset %d is not a multiple of 4", offset)
		return
	}
	p.push(RenderCommand{
		Op:     RenderSetPushConstant,
		Stages: stages,
		Offset: uint64(offset),
		Count:  uint32(len(data)) * 4,
		Start:  p.base.appendPushConstants(data),
	})
}

// ClearPushConstants zeroes sizeBytes of push constant memory at byte
// offset for the given stages.
func (p *RenderPass) ClearPushConstants(stages hal.ShaderStages, offset, sizeBytes uint32) {
	if offset%4 != 0 || sizeBytes%4 != 0 {
		p.failf("push constant range %d+%d is not 4-byte aligned", offset, sizeBytes)
		return
	}
	p.push(RenderCommand{
		Op:     RenderSetPushConstant,
		Stages: stages,
		Offset: uint64(offset),
		Count:  sizeBytes,
		Start:  NoValues,
	})
}

// Draw draws non-indexed primitives.
func (p *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.push(RenderCommand{Op: RenderDraw, Args: [4]uint32{vertexCount, instanceCount, firstVertex, firstInstance}})
}

// DrawIndexed draws indexed primitives.
func (p *RenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.push(RenderCommand{
		Op:         RenderDrawIndexed,
		Args:       [4]uint32{indexCount, instanceCount, firstIndex, firstInstance},
		BaseVertex: baseVertex,
	})
}

// DrawIndirect issues count draws whose arguments are read from buf.
func (p *RenderPass) DrawIndirect(buf resource.BufferID, offset uint64, count uint32) {
	p.UseBuffer(buf, resource.BufferUseIndirect)
	p.push(RenderCommand{Op: RenderDrawIndirect, Target: buf.Raw(), Offset: offset, Args: [4]uint32{count}})
}

// DrawIndexedIndirect issues count indexed draws whose arguments are read
// from buf.
func (p *RenderPass) DrawIndexedIndirect(buf resource.BufferID, offset uint64, count uint32) {
	p.UseBuffer(buf, resource.BufferUseIndirect)
	p.push(RenderCommand{Op: RenderDrawIndexedIndirect, Target: buf.Raw(), Offset: offset, Args: [4]uint32{count}})
}

// PushDebugGroup opens a labelled region.
func (p *RenderPass) PushDebugGroup(label string, color uint32) {
	p.pushGroup()
	p.push(RenderCommand{
		Op:    RenderPushDebugGroup,
		Count: uint32(len(label)),
		Start: p.base.appendString(label),
		Color: color,
	})
}

// PopDebugGroup closes the innermost region.
func (p *RenderPass) PopDebugGroup() {
	p.popGroup()
	p.push(RenderCommand{Op: RenderPopDebugGroup})
}

// InsertDebugMarker records a labelled point.
func (p *RenderPass) InsertDebugMarker(label string, color uint32) {
	p.push(RenderCommand{
		Op:    RenderInsertDebugMarker,
		Count: uint32(len(label)),
		Start: p.base.appendString(label),
		Color: color,
	})
}

// ExecuteBundle replays a pre-recorded render bundle.
func (p *RenderPass) ExecuteBundle(bundle resource.RenderBundleID) {
	p.scope.Bundles.Add(bundle)
	p.push(RenderCommand{Op: RenderExecuteBundle, Target: bundle.Raw()})
}

func replayRender(raw hal.CommandBuffer, pass BasePassRef[RenderCommand], exec RenderExecutor) error {
	pc, _ := raw.(hal.PushConstantWriter)
	depth := 0
	for cmd, err := range DecodeRender(pass) {
		if err != nil {
			endDebugGroups(raw, depth)
			return err
		}
		switch cmd.Op {
		case RenderPushDebugGroup:
			raw.BeginDebugMarker(cmd.Label, cmd.Color)
			depth++
		case RenderPopDebugGroup:
			raw.EndDebugMarker()
			depth--
		case RenderInsertDebugMarker:
			raw.InsertDebugMarker(cmd.Label, cmd.Color)
		case RenderSetPushConstant:
			writePushConstants(pc, cmd.Stages, uint32(cmd.Offset), cmd.Count, cmd.Values)
		}
		if exec != nil {
			if err := exec(raw, cmd); err != nil {
				endDebugGroups(raw, depth)
				return fmt.Errorf("%v: %w", cmd.Op, err)
			}
		}
	}
	return nil
}
