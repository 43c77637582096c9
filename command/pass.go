package command

import (
	"errors"
	"fmt"
	"iter"

	"github.com/fhn666/wgpu"
	"github.com/fhn666/wgpu/hub"
	"github.com/fhn666/wgpu/id"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

// resourceGuards holds the buffer and texture tables for the duration of a
// barrier insertion.
type resourceGuards struct {
	buffers  *hub.ReadGuard[resource.Buffer]
	textures *hub.ReadGuard[resource.Texture]
}

func (r *resourceGuards) release() {
	if r.textures != nil {
		r.textures.Release()
	}
	if r.buffers != nil {
		r.buffers.Release()
	}
}

func checkIDs[T any](s *hub.Storage[T], tok hub.Token, ids iter.Seq[id.ID[T]]) error {
	g := s.Read(tok)
	defer g.Release()
	for i := range ids {
		if _, err := g.Get(i); err != nil {
			return err
		}
	}
	return nil
}

// lockScope read-locks the buffer and texture tables and checks that every
// resource of scope is alive. Attachments are resolved to their parent
// textures and their usage is added to scope. The guards are returned even
// on error and must be released by the caller.
func (g *Global) lockScope(tok hub.Token, scope *track.TrackerSet, colors []Attachment, depthStencil *Attachment) (*resourceGuards, error) {
	r := &resourceGuards{}
	r.buffers = g.buffers.Read(tok)
	for b := range scope.Buffers.All() {
		if _, err := r.buffers.Get(b); err != nil {
			return r, err
		}
	}
	r.textures = g.textures.Read(r.buffers.Token())
	tok = r.textures.Token()

	if len(colors) > 0 || depthStencil != nil {
		views := g.views.Read(tok)
		err := func() error {
			defer views.Release()
			for _, a := range colors {
				v, err := views.Get(a.View)
				if err != nil {
					return err
				}
				if err := scope.Textures.Use(v.Parent, resource.TextureUseAttachmentWrite); err != nil {
					return err
				}
			}
			if depthStencil != nil {
				v, err := views.Get(depthStencil.View)
				if err != nil {
					return err
				}
				use := resource.TextureUseAttachmentWrite
				if depthStencil.ReadOnly {
					use = resource.TextureUseAttachmentRead
				}
				if err := scope.Textures.Use(v.Parent, use); err != nil {
					return err
				}
			}
			return nil
		}()
		if err != nil {
			return r, err
		}
	}

	for t := range scope.Textures.All() {
		if _, err := r.textures.Get(t); err != nil {
			return r, err
		}
	}
	if err := checkIDs(g.views, tok, scope.Views.All()); err != nil {
		return r, err
	}
	if err := checkIDs(g.bindGroups, tok, scope.BindGroups.All()); err != nil {
		return r, err
	}
	if err := checkIDs(g.samplers, tok, scope.Samplers.All()); err != nil {
		return r, err
	}
	if err := checkIDs(g.computePipes, tok, scope.ComputePipes.All()); err != nil {
		return r, err
	}
	if err := checkIDs(g.renderPipes, tok, scope.RenderPipes.All()); err != nil {
		return r, err
	}
	return r, checkIDs(g.bundles, tok, scope.Bundles.All())
}

// scopeError classifies an error from lockScope.
func scopeError(op string, err error) error {
	var conflict *track.UsageConflict
	if errors.As(err, &conflict) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return invalid(op, err)
}

// RunComputePass inserts the barriers the pass needs on the session's
// current raw buffer, emits its debug markers and push constants, and
// hands every command to exec, which may be nil. A pass with a recording
// error or a usage conflict is rejected before the session is touched.
func (g *Global) RunComputePass(enc CommandEncoderID, aff Affinity, pass *ComputePass, exec ComputeExecutor) error {
	const op = "run compute pass"
	if err := pass.complete(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, err := range DecodeCompute(pass.base.AsRef()) {
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	sessions, cb, err := g.session(op, hub.Root(), enc, aff)
	if err != nil {
		return err
	}
	defer sessions.Release()
	scope := pass.scope.Clone()
	guards, err := g.lockScope(sessions.Token(), scope, nil, nil)
	defer guards.release()
	if err != nil {
		return scopeError(op, err)
	}

	defer cb.abortOnInvariant()
	raw := cb.last()
	InsertBarriers(raw, cb.trackers, scope, guards.buffers, guards.textures)
	if err := replayCompute(raw, pass.base.AsRef(), exec); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	obs := cb.observer
	guards.release()
	sessions.Release()
	if obs != nil {
		g.notify(obs, ComputePassRun{ID: enc, Pass: pass.base.Clone(), Usage: scope})
	}
	wgpu.Logger().Debug("command: compute pass", "id", enc, "commands", len(pass.base.Commands))
	return nil
}

// RunRenderPass is RunComputePass for render passes. The parent textures
// of the attachments are resolved and used as attachments in the pass
// scope.
func (g *Global) RunRenderPass(enc CommandEncoderID, aff Affinity, pass *RenderPass, exec RenderExecutor) error {
	const op = "run render pass"
	if err := pass.complete(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, err := range DecodeRender(pass.base.AsRef()) {
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	sessions, cb, err := g.session(op, hub.Root(), enc, aff)
	if err != nil {
		return err
	}
	defer sessions.Release()
	scope := pass.scope.Clone()
	guards, err := g.lockScope(sessions.Token(), scope, pass.colors, pass.depthStencil)
	defer guards.release()
	if err != nil {
		return scopeError(op, err)
	}
	if err := scope.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	defer cb.abortOnInvariant()
	raw := cb.last()
	InsertBarriers(raw, cb.trackers, scope, guards.buffers, guards.textures)
	if err := replayRender(raw, pass.base.AsRef(), exec); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	obs := cb.observer
	guards.release()
	sessions.Release()
	if obs != nil {
		g.notify(obs, RenderPassRun{ID: enc, Pass: pass.base.Clone(), Usage: scope})
	}
	wgpu.Logger().Debug("command: render pass", "id", enc, "commands", len(pass.base.Commands))
	return nil
}
