package command

import (
	"fmt"
	"iter"

	"github.com/gogpu/gputypes"

	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

// ComputeOp tags a ComputeCommand.
type ComputeOp uint8

// Compute commands.
const (
	ComputeSetBindGroup ComputeOp = iota + 1
	ComputeSetPipeline
	ComputeSetPushConstant
	ComputeDispatch
	ComputeDispatchIndirect
	ComputePushDebugGroup
	ComputePopDebugGroup
	ComputeInsertDebugMarker
)

var computeOpNames = [...]string{
	ComputeSetBindGroup:      "SetBindGroup",
	ComputeSetPipeline:       "SetPipeline",
	ComputeSetPushConstant:   "SetPushConstant",
	ComputeDispatch:          "Dispatch",
	ComputeDispatchIndirect:  "DispatchIndirect",
	ComputePushDebugGroup:    "PushDebugGroup",
	ComputePopDebugGroup:     "PopDebugGroup",
	ComputeInsertDebugMarker: "InsertDebugMarker",
}

func (op ComputeOp) String() string {
	if int(op) < len(computeOpNames) && computeOpNames[op] != "" {
		return computeOpNames[op]
	}
	return fmt.Sprintf("ComputeOp(%d)", uint8(op))
}

// MarshalText encodes op by name.
func (op ComputeOp) MarshalText() ([]byte, error) {
	if int(op) >= len(computeOpNames) || computeOpNames[op] == "" {
		return nil, fmt.Errorf("%w: unknown compute command %d", ErrPassInvalid, uint8(op))
	}
	return []byte(computeOpNames[op]), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (op *ComputeOp) UnmarshalText(text []byte) error {
	v, err := opByName(computeOpNames[:], string(text))
	if err != nil {
		return fmt.Errorf("%w: unknown compute command %q", ErrPassInvalid, text)
	}
	*op = ComputeOp(v)
	return nil
}

// ComputeCommand is one fixed-shape record of a compute pass. Fields not
// used by Op are zero.
//
//	Op                 Index  Target      Offset        Count        Start
//	SetBindGroup       slot   bind group  -             offsets      offsets start
//	SetPipeline        -      pipeline    -             -            -
//	SetPushConstant    -      -           byte offset   byte size    words start or NoValues
//	Dispatch           -      -           -             -            -            (Groups)
//	DispatchIndirect   -      buffer      buffer offset -            -
//	Push/InsertDebug.. -      -           -             label bytes  label start  (Color)
type ComputeCommand struct {
	Op     ComputeOp `yaml:"op"`
	Index  uint32    `yaml:"index,omitempty"`
	Target uint64    `yaml:"target,omitempty"`
	Offset uint64    `yaml:"offset,omitempty"`
	Count  uint32    `yaml:"count,omitempty"`
	Start  uint32    `yaml:"start,omitempty"`
	Groups [3]uint32 `yaml:"groups,flow"`
	Color  uint32    `yaml:"color,omitempty"`
}

// BindGroup returns Target as a bind group identity.
func (c ComputeCommand) BindGroup() resource.BindGroupID { return id.FromRaw[resource.BindGroup](c.Target) }

// Pipeline returns Target as a compute pipeline identity.
func (c ComputeCommand) Pipeline() resource.ComputePipelineID {
	return id.FromRaw[resource.ComputePipeline](c.Target)
}

// Buffer returns Target as a buffer identity.
func (c ComputeCommand) Buffer() resource.BufferID { return id.FromRaw[resource.Buffer](c.Target) }

// ComputeItem is a decoded compute command with its payload resolved.
type ComputeItem struct {
	ComputeCommand

	// DynamicOffsets of a SetBindGroup.
	DynamicOffsets []uint32
	// Label of a debug group or marker.
	Label string
	// Values of a SetPushConstant; nil when the range is cleared.
	Values []uint32
}

// DecodeCompute yields the commands of p in order with their payloads.
// A record pointing outside the side arrays yields an error and stops the
// sequence.
func DecodeCompute(p BasePassRef[ComputeCommand]) iter.Seq2[ComputeItem, error] {
	return func(yield func(ComputeItem, error) bool) {
		for _, c := range p.Commands {
			item := ComputeItem{ComputeCommand: c}
			var err error
			switch c.Op {
			case ComputeSetBindGroup:
				item.DynamicOffsets, err = sideSlice(p.DynamicOffsets, c.Start, c.Count, "dynamic offsets")
			case ComputeSetPushConstant:
				if c.Count%4 != 0 {
					err = fmt.Errorf("%w: push constant size %d is not a multiple of 4", ErrPassInvalid, c.Count)
				} else if c.Start != NoValues {
					item.Values, err = sideSlice(p.PushConstantData, c.Start, c.Count/4, "push constants")
				}
			case ComputePushDebugGroup, ComputeInsertDebugMarker:
				var b []byte
				b, err = sideSlice(p.StringData, c.Start, c.Count, "string data")
				item.Label = string(b)
			case ComputeSetPipeline, ComputeDispatch, ComputeDispatchIndirect, ComputePopDebugGroup:
			default:
				err = fmt.Errorf("%w: unknown compute command %v", ErrPassInvalid, c.Op)
			}
			if err != nil {
				yield(ComputeItem{}, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// ComputeExecutor receives every decoded command of a compute pass after
// barriers and debug markers have been emitted on raw.
type ComputeExecutor func(raw hal.CommandBuffer, cmd ComputeItem) error

// ComputePass records a compute pass.
type ComputePass struct {
	passRecorder[ComputeCommand]
}

// NewComputePass returns an empty compute pass for resources of backend.
func NewComputePass(backend gputypes.Backend) *ComputePass {
	return &ComputePass{passRecorder: newPassRecorder[ComputeCommand](backend)}
}

// NewComputePassFrom wraps a stream recorded earlier, with the usage scope
// it was recorded with. The pass takes ownership of both.
func NewComputePassFrom(base *BasePass[ComputeCommand], scope *track.TrackerSet) *ComputePass {
	p := &ComputePass{passRecorder: passRecorder[ComputeCommand]{base: *base, scope: scope}}
	for c, err := range DecodeCompute(base.AsRef()) {
		if err != nil {
			p.fail(err)
			break
		}
		switch c.Op {
		case ComputePushDebugGroup:
			p.pushGroup()
		case ComputePopDebugGroup:
			p.popGroup()
		}
	}
	return p
}

func (p *ComputePass) push(c ComputeCommand) { p.base.Commands = append(p.base.Commands, c) }

// SetBindGroup binds bg at index with the given dynamic offsets.
func (p *ComputePass) SetBindGroup(index uint32, bg resource.BindGroupID, offsets ...uint32) {
	p.scope.BindGroups.Add(bg)
	p.push(ComputeCommand{
		Op:     ComputeSetBindGroup,
		Index:  index,
		Target: bg.Raw(),
		Count:  uint32(len(offsets)),
		Start:  p.base.appendOffsets(offsets),
	})
}

// SetPipeline binds a compute pipeline.
func (p *ComputePass) SetPipeline(pipeline resource.ComputePipelineID) {
	p.scope.ComputePipes.Add(pipeline)
	p.push(ComputeCommand{Op: ComputeSetPipeline, Target: pipeline.Raw()})
}

// SetPushConstants writes data at byte offset.
func (p *ComputePass) SetPushConstants(offset uint32, data []uint32) {
	if offset%4 != 0 {
		p.failf("push constant offset %d is not a multiple of 4", offset)
		return
	}
	p.push(ComputeCommand{
		Op:     ComputeSetPushConstant,
		Offset: uint64(offset),
		Count:  uint32(len(data)) * 4,
		Start:  p.base.appendPushConstants(data),
	})
}

// ClearPushConstants zeroes sizeBytes of push constant memory at byte
// offset. Both must be multiples of 4.
func (p *ComputePass) ClearPushConstants(offset, sizeBytes uint32) {
	if offset%4 != 0 || sizeBytes%4 != 0 {
		p.failf("push constant range %d+%d is not 4-byte aligned", offset, sizeBytes)
		return
	}
	p.push(ComputeCommand{Op: ComputeSetPushConstant, Offset: uint64(offset), Count: sizeBytes, Start: NoValues})
}

// Dispatch runs x*y*z workgroups.
func (p *ComputePass) Dispatch(x, y, z uint32) {
	p.push(ComputeCommand{Op: ComputeDispatch, Groups: [3]uint32{x, y, z}})
}

// DispatchIndirect runs the workgroups described in buf at offset.
func (p *ComputePass) DispatchIndirect(buf resource.BufferID, offset uint64) {
	p.UseBuffer(buf, resource.BufferUseIndirect)
	p.push(ComputeCommand{Op: ComputeDispatchIndirect, Target: buf.Raw(), Offset: offset})
}

// PushDebugGroup opens a labelled region. Color is packed 0xRRGGBBAA.
func (p *ComputePass) PushDebugGroup(label string, color uint32) {
	p.pushGroup()
	p.push(ComputeCommand{
		Op:    ComputePushDebugGroup,
		Count: uint32(len(label)),
		Start: p.base.appendString(label),
		Color: color,
	})
}

// PopDebugGroup closes the innermost region.
func (p *ComputePass) PopDebugGroup() {
	p.popGroup()
	p.push(ComputeCommand{Op: ComputePopDebugGroup})
}

// InsertDebugMarker records a labelled point.
func (p *ComputePass) InsertDebugMarker(label string, color uint32) {
	p.push(ComputeCommand{
		Op:    ComputeInsertDebugMarker,
		Count: uint32(len(label)),
		Start: p.base.appendString(label),
		Color: color,
	})
}

// replayCompute emits the debug markers and push constants of a compute
// stream on raw and hands every command to exec. When exec fails, the
// debug groups opened so far are closed before returning.
func replayCompute(raw hal.CommandBuffer, pass BasePassRef[ComputeCommand], exec ComputeExecutor) error {
	pc, _ := raw.(hal.PushConstantWriter)
	depth := 0
	for cmd, err := range DecodeCompute(pass) {
		if err != nil {
			endDebugGroups(raw, depth)
			return err
		}
		switch cmd.Op {
		case ComputePushDebugGroup:
			raw.BeginDebugMarker(cmd.Label, cmd.Color)
			depth++
		case ComputePopDebugGroup:
			raw.EndDebugMarker()
			depth--
		case ComputeInsertDebugMarker:
			raw.InsertDebugMarker(cmd.Label, cmd.Color)
		case ComputeSetPushConstant:
			writePushConstants(pc, hal.ShaderStageCompute, uint32(cmd.Offset), cmd.Count, cmd.Values)
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

// endDebugGroups closes the debug groups a failed replay left open on raw.
func endDebugGroups(raw hal.CommandBuffer, depth int) {
	for range depth {
		raw.EndDebugMarker()
	}
}

func writePushConstants(pc hal.PushConstantWriter, stages hal.ShaderStages, offset, sizeBytes uint32, values []uint32) {
	if pc == nil {
		return
	}
	if values != nil {
		pc.SetPushConstants(stages, offset, values)
		return
	}
	PushConstantClear(offset, sizeBytes, func(off uint32, data []uint32) {
		pc.SetPushConstants(stages, off, data)
	})
}
