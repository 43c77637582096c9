// Package id provides generation-stamped identities for objects stored in
// the hub tables.
//
// An identity packs three fields into 64 bits:
//
//	bits  0..31  index into the owning table
//	bits 32..60  epoch, bumped every time the index is reused
//	bits 61..63  backend the object was created on
//
// Two identities with the same index but different epochs never refer to
// the same object; lookups with a stale epoch fail.
package id

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
)

// Index is the table slot part of an identity.
type Index = uint32

// Epoch is the generation part of an identity.
type Epoch = uint32

const (
	backendBits = 3
	epochBits   = 32 - backendBits

	// MaxEpoch is the largest epoch representable in an identity.
	MaxEpoch Epoch = 1<<epochBits - 1
)

// ID identifies an object of type T. The zero value is not a valid
// identity of any registered object: the hub starts epochs at 1.
type ID[T any] struct {
	raw uint64
}

// Zip builds an identity from its parts. The epoch is truncated to
// MaxEpoch.
func Zip[T any](index Index, epoch Epoch, backend gputypes.Backend) ID[T] {
	raw := uint64(index) |
		uint64(epoch&MaxEpoch)<<32 |
		(uint64(backend)&(1<<backendBits-1))<<(32+epochBits)
	return ID[T]{raw: raw}
}

// FromRaw rebuilds an identity from its packed form.
func FromRaw[T any](raw uint64) ID[T] { return ID[T]{raw: raw} }

// Raw returns the packed form of the identity.
func (i ID[T]) Raw() uint64 { return i.raw }

// Unzip splits the identity into index, epoch and backend.
func (i ID[T]) Unzip() (Index, Epoch, gputypes.Backend) {
	return i.Index(), i.Epoch(), i.Backend()
}

// Index returns the table slot.
func (i ID[T]) Index() Index { return Index(i.raw) }

// Epoch returns the generation.
func (i ID[T]) Epoch() Epoch { return Epoch(i.raw>>32) & MaxEpoch }

// Backend returns the backend tag.
func (i ID[T]) Backend() gputypes.Backend {
	return gputypes.Backend(i.raw >> (32 + epochBits))
}

// IsZero reports whether the identity is the zero value.
func (i ID[T]) IsZero() bool { return i.raw == 0 }

// String formats the identity as "(index,epoch,backend)".
func (i ID[T]) String() string {
	return fmt.Sprintf("(%d,%d,%d)", i.Index(), i.Epoch(), uint64(i.Backend()))
}

// MarshalText encodes the identity as "index,epoch,backend".
func (i ID[T]) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%d,%d,%d", i.Index(), i.Epoch(), uint64(i.Backend()))), nil
}

// UnmarshalText decodes the form produced by MarshalText.
func (i *ID[T]) UnmarshalText(text []byte) error {
	parts := strings.Split(string(text), ",")
	if len(parts) != 3 {
		return fmt.Errorf("id: malformed identity %q", text)
	}
	var vals [3]uint64
	for n, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return fmt.Errorf("id: malformed identity %q: %w", text, err)
		}
		vals[n] = v
	}
	if vals[1] > uint64(MaxEpoch) || vals[2] >= 1<<backendBits {
		return fmt.Errorf("id: identity %q out of range", text)
	}
	*i = Zip[T](Index(vals[0]), Epoch(vals[1]), gputypes.Backend(vals[2]))
	return nil
}
