package command

import (
	"fmt"
	"sync/atomic"
)

// Affinity is the capability token of a recording session. It is minted by
// BeginEncoder and must accompany every operation on that session. The zero
// value is never minted.
type Affinity struct {
	v uint64
}

// IsZero reports whether a is the zero token.
func (a Affinity) IsZero() bool { return a.v == 0 }

func (a Affinity) String() string { return fmt.Sprintf("affinity#%d", a.v) }

type affinitySource struct {
	next atomic.Uint64
}

func (s *affinitySource) mint() Affinity {
	return Affinity{v: s.next.Add(1)}
}
