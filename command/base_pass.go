package command

import "slices"

// BasePass is the owned form of a recorded command stream: fixed-shape
// commands plus the side arrays their variable-length payloads live in.
// Commands refer into the side arrays by offset and length.
type BasePass[C any] struct {
	Commands         []C
	DynamicOffsets   []uint32
	StringData       []byte
	PushConstantData []uint32
}

// BasePassRef is a borrowed view of a command stream. It aliases the
// arrays of the structure it was taken from and is only valid until that
// structure is modified.
type BasePassRef[C any] struct {
	Commands         []C
	DynamicOffsets   []uint32
	StringData       []byte
	PushConstantData []uint32
}

// FromRef deep-copies a borrowed view into an owned BasePass.
func FromRef[C any](r BasePassRef[C]) *BasePass[C] {
	return &BasePass[C]{
		Commands:         slices.Clone(r.Commands),
		DynamicOffsets:   slices.Clone(r.DynamicOffsets),
		StringData:       slices.Clone(r.StringData),
		PushConstantData: slices.Clone(r.PushConstantData),
	}
}

// AsRef returns a borrowed view of b.
func (b *BasePass[C]) AsRef() BasePassRef[C] {
	return BasePassRef[C]{
		Commands:         b.Commands,
		DynamicOffsets:   b.DynamicOffsets,
		StringData:       b.StringData,
		PushConstantData: b.PushConstantData,
	}
}

// Clone returns an independent copy of b.
func (b *BasePass[C]) Clone() *BasePass[C] { return FromRef(b.AsRef()) }

// Reset empties every array, keeping their capacity.
func (b *BasePass[C]) Reset() {
	b.Commands = b.Commands[:0]
	b.DynamicOffsets = b.DynamicOffsets[:0]
	b.StringData = b.StringData[:0]
	b.PushConstantData = b.PushConstantData[:0]
}

// IsEmpty reports whether no command was recorded.
func (b *BasePass[C]) IsEmpty() bool { return len(b.Commands) == 0 }

// appendString stores s in the string side array and returns its offset.
func (b *BasePass[C]) appendString(s string) uint32 {
	off := uint32(len(b.StringData))
	b.StringData = append(b.StringData, s...)
	return off
}

func (b *BasePass[C]) appendOffsets(offsets []uint32) uint32 {
	off := uint32(len(b.DynamicOffsets))
	b.DynamicOffsets = append(b.DynamicOffsets, offsets...)
	return off
}

func (b *BasePass[C]) appendPushConstants(data []uint32) uint32 {
	off := uint32(len(b.PushConstantData))
	b.PushConstantData = append(b.PushConstantData, data...)
	return off
}
