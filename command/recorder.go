package command

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

// NoValues is the Start of a push constant command that clears its range
// instead of copying words from the push constant side array.
const NoValues = ^uint32(0)

// passRecorder holds what compute and render passes share: the stream,
// the usage scope and the first recording error.
type passRecorder[C any] struct {
	base  BasePass[C]
	scope *track.TrackerSet
	err   error
	depth int
}

func newPassRecorder[C any](backend gputypes.Backend) passRecorder[C] {
	return passRecorder[C]{scope: track.NewTrackerSet(backend)}
}

func (p *passRecorder[C]) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *passRecorder[C]) failf(format string, args ...any) {
	p.fail(fmt.Errorf("%w: "+format, append([]any{ErrPassInvalid}, args...)...))
}

// Base returns the recorded stream. It is owned by the pass.
func (p *passRecorder[C]) Base() *BasePass[C] { return &p.base }

// Scope returns the usage the pass has declared so far.
func (p *passRecorder[C]) Scope() *track.TrackerSet { return p.scope }

// Err returns the first error met while recording.
func (p *passRecorder[C]) Err() error { return p.err }

// UseBuffer declares that the pass accesses b as use.
func (p *passRecorder[C]) UseBuffer(b resource.BufferID, use resource.BufferUse) {
	p.fail(p.scope.Buffers.Use(b, use))
}

// UseTexture declares that the pass accesses t as use.
func (p *passRecorder[C]) UseTexture(t resource.TextureID, use resource.TextureUse) {
	p.fail(p.scope.Textures.Use(t, use))
}

// UseView declares that the pass references v.
func (p *passRecorder[C]) UseView(v resource.TextureViewID) { p.scope.Views.Add(v) }

// UseSampler declares that the pass references s.
func (p *passRecorder[C]) UseSampler(s resource.SamplerID) { p.scope.Samplers.Add(s) }

func (p *passRecorder[C]) pushGroup() { p.depth++ }

func (p *passRecorder[C]) popGroup() {
	if p.depth == 0 {
		p.failf("pop debug group without matching push")
		return
	}
	p.depth--
}

// complete returns the error that prevents the pass from running.
func (p *passRecorder[C]) complete() error {
	if p.err != nil {
		return p.err
	}
	if p.depth != 0 {
		return fmt.Errorf("%w: %d debug groups left open", ErrPassInvalid, p.depth)
	}
	return p.scope.Validate()
}

// opByName returns the index of name in names.
func opByName(names []string, name string) (uint8, error) {
	for i, n := range names {
		if n != "" && n == name {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("unknown name %q", name)
}

// sideSlice returns count elements of side from start, or a decoding
// error when they fall outside it.
func sideSlice[E any](side []E, start, count uint32, what string) ([]E, error) {
	end := uint64(start) + uint64(count)
	if end > uint64(len(side)) {
		return nil, fmt.Errorf("%w: %s [%d:%d] out of range (len %d)", ErrPassInvalid, what, start, end, len(side))
	}
	return side[start:end], nil
}
