package track

import (
	"errors"
	"fmt"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
)

// ErrUsageConflict matches every *UsageConflict with errors.Is.
var ErrUsageConflict = errors.New("track: usage conflict")

// ResourceKind names the stateful resource category of a conflict.
type ResourceKind uint8

// Stateful resource categories.
const (
	KindBuffer ResourceKind = iota + 1
	KindTexture
)

// String returns "buffer" or "texture".
func (k ResourceKind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindTexture:
		return "texture"
	default:
		return fmt.Sprintf("ResourceKind(%d)", uint8(k))
	}
}

// UsageConflict reports a resource whose combined usage inside one scope
// is not a valid state. Usage holds the offending combination.
type UsageConflict struct {
	Kind  ResourceKind
	ID    uint64
	Usage uint32
}

// BufferConflict returns the conflict for buffer b in the combined usage u.
func BufferConflict(b resource.BufferID, u resource.BufferUse) *UsageConflict {
	return &UsageConflict{Kind: KindBuffer, ID: b.Raw(), Usage: uint32(u)}
}

// TextureConflict returns the conflict for texture t in the combined usage u.
func TextureConflict(t resource.TextureID, u resource.TextureUse) *UsageConflict {
	return &UsageConflict{Kind: KindTexture, ID: t.Raw(), Usage: uint32(u)}
}

// Buffer returns the buffer and usage of a buffer conflict.
func (e *UsageConflict) Buffer() (resource.BufferID, resource.BufferUse, bool) {
	if e.Kind != KindBuffer {
		return resource.BufferID{}, 0, false
	}
	return id.FromRaw[resource.Buffer](e.ID), resource.BufferUse(e.Usage), true
}

// Texture returns the texture and usage of a texture conflict.
func (e *UsageConflict) Texture() (resource.TextureID, resource.TextureUse, bool) {
	if e.Kind != KindTexture {
		return resource.TextureID{}, 0, false
	}
	return id.FromRaw[resource.Texture](e.ID), resource.TextureUse(e.Usage), true
}

func (e *UsageConflict) Error() string {
	switch e.Kind {
	case KindBuffer:
		b, u, _ := e.Buffer()
		return fmt.Sprintf("track: buffer %v combined usage %v is conflicting", b, u)
	case KindTexture:
		t, u, _ := e.Texture()
		return fmt.Sprintf("track: texture %v combined usage %v is conflicting", t, u)
	default:
		return fmt.Sprintf("track: %v %#x combined usage %#x is conflicting", e.Kind, e.ID, e.Usage)
	}
}

// Is reports whether target is ErrUsageConflict.
func (e *UsageConflict) Is(target error) bool { return target == ErrUsageConflict }

// InvariantViolation is the panic value raised when internal bookkeeping
// is found in a state that valid usage can never produce. It is not part
// of the error set returned by any operation.
type InvariantViolation struct {
	Msg string
}

func (v InvariantViolation) Error() string { return "track: invariant violated: " + v.Msg }

// Assert panics with an InvariantViolation when cond is false.
func Assert(cond bool, format string, args ...any) {
	if cond {
		return
	}
	v := InvariantViolation{Msg: fmt.Sprintf(format, args...)}
	wgpu.Logger().Error("invariant violated", "msg", v.Msg)
	panic(v)
}

// AssertNoError panics with an InvariantViolation when err is not nil.
func AssertNoError(err error, what string) {
	if err != nil {
		Assert(false, "%s: %v", what, err)
	}
}

// conflictFor builds the UsageConflict for a stateful entry.
func conflictFor[T any, U Usage[U]](i id.ID[T], u U) error {
	switch u := any(u).(type) {
	case resource.BufferUse:
		return BufferConflict(id.FromRaw[resource.Buffer](i.Raw()), u)
	case resource.TextureUse:
		return TextureConflict(id.FromRaw[resource.Texture](i.Raw()), u)
	default:
		return fmt.Errorf("%w: %v in %v", ErrUsageConflict, i, u)
	}
}
