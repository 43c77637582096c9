package command

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/hal/recorder"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/track"
)

func TestRunComputePass(t *testing.T) {
	f := newFixture(t)
	bg := f.g.RegisterBindGroup("bg")
	pipe := f.g.RegisterComputePipeline("pipe")
	enc, aff, raw := f.begin(t)

	pass := NewComputePass(f.g.Backend())
	pass.SetPipeline(pipe)
	pass.SetBindGroup(0, bg, 256)
	pass.UseBuffer(f.vb, resource.BufferUseStorageStore)
	pass.PushDebugGroup("dispatch", 0x00ff00ff)
	pass.SetPushConstants(0, []uint32{1, 2})
	pass.ClearPushConstants(8, 300)
	pass.DispatchIndirect(f.ib, 0)
	pass.PopDebugGroup()

	var executed []ComputeOp
	exec := func(_ hal.CommandBuffer, cmd ComputeItem) error {
		executed = append(executed, cmd.Op)
		return nil
	}
	if err := f.g.RunComputePass(enc, aff, pass, exec); err != nil {
		t.Fatalf("RunComputePass() error = %v", err)
	}

	if len(executed) != 7 {
		t.Errorf("executed %d commands, want 7", len(executed))
	}
	ops := raw.Ops()
	wantKinds := []recorder.OpKind{
		recorder.OpPipelineBarrier,
		recorder.OpBeginDebugMarker,
		recorder.OpSetPushConstants,
		recorder.OpSetPushConstants,
		recorder.OpSetPushConstants,
		recorder.OpEndDebugMarker,
	}
	if len(ops) != len(wantKinds) {
		t.Fatalf("raw ops:\n%v", raw)
	}
	for i, k := range wantKinds {
		if ops[i].Kind != k {
			t.Errorf("op %d = %v, want %v", i, ops[i].Kind, k)
		}
	}
	if b := ops[0].Buffers; len(b) != 2 || b[0].Buffer != "vb" || b[1].New != resource.BufferUseIndirect {
		t.Errorf("buffer barriers = %v", b)
	}
	if ops[2].Offset != 0 || len(ops[2].Data) != 2 || ops[2].Stages != hal.ShaderStageCompute {
		t.Errorf("push constants = %v", ops[2])
	}
	if ops[3].Offset != 8 || len(ops[3].Data) != 64 || ops[4].Offset != 264 || len(ops[4].Data) != 11 {
		t.Errorf("clear = %v, %v", ops[3], ops[4])
	}

	snap, _ := f.g.TrackerSnapshot(enc)
	if u, _ := snap.Buffers.Query(f.vb); u != resource.BufferUseStorageStore {
		t.Errorf("vb usage = %v", u)
	}
	if !snap.BindGroups.Contains(bg) || !snap.ComputePipes.Contains(pipe) {
		t.Errorf("stateless usage not merged: %v", snap)
	}

	// Same usage again: no new barrier.
	again := NewComputePass(f.g.Backend())
	again.UseBuffer(f.vb, resource.BufferUseStorageStore)
	again.Dispatch(1, 1, 1)
	if err := f.g.RunComputePass(enc, aff, again, nil); err != nil {
		t.Fatal(err)
	}
	if got := raw.Count(recorder.OpPipelineBarrier); got != 1 {
		t.Errorf("barriers = %d, want 1", got)
	}
}

func TestRunComputePass_Rejected(t *testing.T) {
	f := newFixture(t)
	enc, aff, raw := f.begin(t)
	_, other, _ := f.begin(t)
	destroyed, _ := f.g.RegisterBuffer(f.device, resource.Buffer{Size: 4})
	if err := f.g.DestroyBuffer(destroyed); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		aff    Affinity
		record func(p *ComputePass)
		want   error
	}{
		{
			name:   "conflicting usage",
			aff:    aff,
			record: func(p *ComputePass) { p.UseBuffer(f.vb, resource.BufferUseCopyDst); p.UseBuffer(f.vb, resource.BufferUseUniform) },
			want:   ErrUsageConflict,
		},
		{
			name:   "destroyed buffer",
			aff:    aff,
			record: func(p *ComputePass) { p.UseBuffer(destroyed, resource.BufferUseStorageLoad) },
			want:   ErrInvalid,
		},
		{
			name:   "unknown pipeline",
			aff:    aff,
			record: func(p *ComputePass) { p.SetPipeline(computePipelineID(5)) },
			want:   ErrInvalid,
		},
		{
			name:   "foreign token",
			aff:    other,
			record: func(p *ComputePass) { p.Dispatch(1, 1, 1) },
			want:   ErrAffinity,
		},
		{
			name:   "open debug group",
			aff:    aff,
			record: func(p *ComputePass) { p.PushDebugGroup("open", 0) },
			want:   ErrPassInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewComputePass(f.g.Backend())
			tt.record(p)
			err := f.g.RunComputePass(enc, tt.aff, p, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("RunComputePass() error = %v, want %v", err, tt.want)
			}
			if len(raw.Ops()) != 0 {
				t.Errorf("raw buffer touched: %v", raw)
			}
			snap, _ := f.g.TrackerSnapshot(enc)
			if !snap.IsEmpty() {
				t.Errorf("session tracker touched: %v", snap)
			}
			if info, _ := f.g.Info(enc); !info.IsRecording {
				t.Error("session stopped recording")
			}
		})
	}
}

func TestRunComputePass_ExecutorError(t *testing.T) {
	f := newFixture(t)
	enc, aff, raw := f.begin(t)
	errExec := errors.New("exec failed")
	p := NewComputePass(f.g.Backend())
	p.PushDebugGroup("outer", 0)
	p.PushDebugGroup("inner", 0)
	p.Dispatch(1, 1, 1)
	p.PopDebugGroup()
	p.PopDebugGroup()
	err := f.g.RunComputePass(enc, aff, p, func(_ hal.CommandBuffer, cmd ComputeItem) error {
		if cmd.Op == ComputeDispatch {
			return errExec
		}
		return nil
	})
	if !errors.Is(err, errExec) {
		t.Errorf("RunComputePass() error = %v, want %v", err, errExec)
	}
	if got := raw.Depth(); got != 0 {
		t.Errorf("raw Depth() after executor error = %d, want 0", got)
	}
	if got := raw.Count(recorder.OpEndDebugMarker); got != 2 {
		t.Errorf("end markers = %d, want 2", got)
	}
}

func TestRunRenderPass_ExecutorError(t *testing.T) {
	f := newFixture(t)
	enc, aff, raw := f.begin(t)
	errExec := errors.New("exec failed")
	p := NewRenderPass(f.g.Backend(), []Attachment{{View: f.view}}, nil)
	p.PushDebugGroup("frame", 0)
	p.Draw(3, 1, 0, 0)
	p.PopDebugGroup()
	err := f.g.RunRenderPass(enc, aff, p, func(_ hal.CommandBuffer, cmd RenderItem) error {
		if cmd.Op == RenderDraw {
			return errExec
		}
		return nil
	})
	if !errors.Is(err, errExec) {
		t.Errorf("RunRenderPass() error = %v, want %v", err, errExec)
	}
	if got := raw.Depth(); got != 0 {
		t.Errorf("raw Depth() after executor error = %d, want 0", got)
	}
}

func TestRunComputePass_InvariantAborts(t *testing.T) {
	f := newFixture(t)
	enc, aff, _ := f.begin(t)
	p := NewComputePass(f.g.Backend())
	p.Dispatch(1, 1, 1)

	func() {
		defer func() {
			if _, ok := recover().(track.InvariantViolation); !ok {
				t.Error("RunComputePass did not propagate InvariantViolation")
			}
		}()
		_ = f.g.RunComputePass(enc, aff, p, func(hal.CommandBuffer, ComputeItem) error {
			track.Assert(false, "executor state corrupted")
			return nil
		})
	}()

	info, err := f.g.Info(enc)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.IsRecording {
		t.Error("session still recording after invariant violation")
	}
	if err := f.g.PushDebugGroup(enc, aff, "x"); !errors.Is(err, ErrNotRecording) {
		t.Errorf("PushDebugGroup() after abort error = %v", err)
	}
}

func TestRunComputePass_Observed(t *testing.T) {
	f := newFixture(t)
	var c collector
	enc, aff, _ := f.begin(t, WithEncoderObserver(&c))
	p := NewComputePass(f.g.Backend())
	p.UseBuffer(f.vb, resource.BufferUseUniform)
	p.Dispatch(2, 1, 1)
	if err := f.g.RunComputePass(enc, aff, p, nil); err != nil {
		t.Fatal(err)
	}
	p.Dispatch(3, 1, 1)

	e, ok := c.events[len(c.events)-1].(ComputePassRun)
	if !ok {
		t.Fatalf("last event = %T, want ComputePassRun", c.events[len(c.events)-1])
	}
	if len(e.Pass.Commands) != 1 {
		t.Errorf("observed pass changed after recording continued: %d commands", len(e.Pass.Commands))
	}
	if u, _ := e.Usage.Buffers.Query(f.vb); u != resource.BufferUseUniform {
		t.Errorf("observed usage = %v", u)
	}
}

func TestRunRenderPass(t *testing.T) {
	f := newFixture(t)
	pipe := f.g.RegisterRenderPipeline("pipe")
	bundle := f.g.RegisterRenderBundle("bundle")
	enc, aff, raw := f.begin(t)

	pass := NewRenderPass(f.g.Backend(), []Attachment{{View: f.view}}, nil)
	pass.SetPipeline(pipe)
	pass.SetVertexBuffer(0, f.vb, 0, 0)
	pass.SetIndexBuffer(f.ib, 0, 0)
	pass.SetViewport(0, 0, 640, 480, 0, 1)
	pass.SetPushConstants(hal.ShaderStageVertex|hal.ShaderStageFragment, 0, []uint32{7})
	pass.DrawIndexed(6, 1, 0, 0, 0)
	pass.ExecuteBundle(bundle)

	var draws int
	exec := func(_ hal.CommandBuffer, cmd RenderItem) error {
		if cmd.Op == RenderDrawIndexed {
			draws++
		}
		return nil
	}
	if err := f.g.RunRenderPass(enc, aff, pass, exec); err != nil {
		t.Fatalf("RunRenderPass() error = %v", err)
	}
	if draws != 1 {
		t.Errorf("draws = %d, want 1", draws)
	}

	ops := raw.Ops()
	if len(ops) != 2 || ops[0].Kind != recorder.OpPipelineBarrier || ops[1].Kind != recorder.OpSetPushConstants {
		t.Fatalf("raw ops:\n%v", raw)
	}
	if len(ops[0].Buffers) != 2 || len(ops[0].Textures) != 1 {
		t.Errorf("barrier = %v", ops[0])
	}
	if tb := ops[0].Textures[0]; tb.Texture != "color" || tb.NewLayout != hal.LayoutColorAttachment {
		t.Errorf("texture barrier = %+v", tb)
	}
	if ops[1].Stages != hal.ShaderStageVertex|hal.ShaderStageFragment {
		t.Errorf("push constant stages = %v", ops[1].Stages)
	}

	snap, _ := f.g.TrackerSnapshot(enc)
	if u, _ := snap.Textures.Query(f.tex); u != resource.TextureUseAttachmentWrite {
		t.Errorf("attachment usage = %v", u)
	}
	if !snap.Views.Contains(f.view) || !snap.RenderPipes.Contains(pipe) || !snap.Bundles.Contains(bundle) {
		t.Errorf("stateless usage not merged: %v", snap)
	}
}

func TestRunRenderPass_AttachmentConflict(t *testing.T) {
	f := newFixture(t)
	enc, aff, raw := f.begin(t)

	pass := NewRenderPass(f.g.Backend(), []Attachment{{View: f.view}}, nil)
	pass.UseTexture(f.tex, resource.TextureUseSampled)
	pass.Draw(3, 1, 0, 0)

	err := f.g.RunRenderPass(enc, aff, pass, nil)
	if !errors.Is(err, ErrUsageConflict) {
		t.Fatalf("RunRenderPass() error = %v, want ErrUsageConflict", err)
	}
	var conflict *track.UsageConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("error %v is not a *track.UsageConflict", err)
	}
	tex, use, ok := conflict.Texture()
	if !ok || tex != f.tex || use != resource.TextureUseSampled|resource.TextureUseAttachmentWrite {
		t.Errorf("conflict = %v, %v, %v", tex, use, ok)
	}
	if len(raw.Ops()) != 0 {
		t.Errorf("raw buffer touched: %v", raw)
	}
	if snap, _ := f.g.TrackerSnapshot(enc); !snap.IsEmpty() {
		t.Errorf("session tracker touched: %v", snap)
	}

	// The pass itself is unchanged and can be fixed up by the caller.
	if u, _ := pass.Scope().Textures.Query(f.tex); u != resource.TextureUseSampled {
		t.Errorf("pass scope modified: %v", u)
	}
}

func TestRunRenderPass_ReadOnlyDepth(t *testing.T) {
	f := newFixture(t)
	depth, err := f.g.RegisterTexture(f.device, resource.Texture{
		Raw:    "depth",
		Format: gputypes.TextureFormatDepth24PlusStencil8,
	})
	if err != nil {
		t.Fatal(err)
	}
	depthView, _ := f.g.RegisterTextureView(depth, resource.TextureView{})
	enc, aff, raw := f.begin(t)

	pass := NewRenderPass(f.g.Backend(), []Attachment{{View: f.view}}, &Attachment{View: depthView, ReadOnly: true})
	pass.UseTexture(depth, resource.TextureUseSampled)
	pass.Draw(3, 1, 0, 0)
	if err := f.g.RunRenderPass(enc, aff, pass, nil); err != nil {
		t.Fatalf("RunRenderPass() error = %v", err)
	}
	snap, _ := f.g.TrackerSnapshot(enc)
	if u, _ := snap.Textures.Query(depth); u != resource.TextureUseSampled|resource.TextureUseAttachmentRead {
		t.Errorf("depth usage = %v", u)
	}
	tb := raw.Ops()[0].Textures
	if len(tb) != 2 || tb[1].NewLayout != hal.LayoutDepthStencilReadOnly {
		t.Errorf("texture barriers = %v", tb)
	}
}

func TestRenderPass_RecordingErrors(t *testing.T) {
	tests := []struct {
		name   string
		record func(p *RenderPass)
	}{
		{"negative viewport", func(p *RenderPass) { p.SetViewport(0, 0, -1, 1, 0, 1) }},
		{"depth range", func(p *RenderPass) { p.SetViewport(0, 0, 1, 1, 0.5, 0.1) }},
		{"unaligned clear", func(p *RenderPass) { p.ClearPushConstants(hal.ShaderStageVertex, 2, 4) }},
		{"unbalanced pop", func(p *RenderPass) { p.PopDebugGroup() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRenderPass(gputypes.BackendVulkan, nil, nil)
			tt.record(p)
			if err := p.complete(); !errors.Is(err, ErrPassInvalid) {
				t.Errorf("complete() error = %v, want ErrPassInvalid", err)
			}
		})
	}
	p := NewRenderPass(gputypes.BackendVulkan, []Attachment{{ReadOnly: true}}, nil)
	if err := p.complete(); !errors.Is(err, ErrPassInvalid) {
		t.Errorf("read-only color attachment error = %v", err)
	}
}

func TestDestroyBuffer_TrackedSlotNotReissued(t *testing.T) {
	f := newFixture(t)
	enc, aff, _ := f.begin(t)
	use := func(b resource.BufferID) error {
		p := NewComputePass(f.g.Backend())
		p.UseBuffer(b, resource.BufferUseStorageStore)
		p.Dispatch(1, 1, 1)
		return f.g.RunComputePass(enc, aff, p, nil)
	}

	if err := use(f.vb); err != nil {
		t.Fatalf("first pass error = %v", err)
	}
	if err := f.g.DestroyBuffer(f.vb); err != nil {
		t.Fatalf("DestroyBuffer() error = %v", err)
	}
	fresh, err := f.g.RegisterBuffer(f.device, resource.Buffer{Raw: "fresh", Size: 1024})
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Index() == f.vb.Index() {
		t.Fatalf("slot of tracked buffer reissued: old=%v new=%v", f.vb, fresh)
	}
	if err := use(fresh); err != nil {
		t.Fatalf("pass on new buffer error = %v", err)
	}
	if info, _ := f.g.Info(enc); !info.IsRecording {
		t.Fatal("session stopped recording")
	}
	if err := use(f.vb); !errors.Is(err, ErrInvalid) {
		t.Errorf("pass on destroyed buffer error = %v, want ErrInvalid", err)
	}

	cmd, err := f.g.Finish(enc, aff)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.g.Submit(cmd); err != nil {
		t.Fatal(err)
	}
	if n, err := f.g.Maintain(f.device, true); err != nil || n != 1 {
		t.Fatalf("Maintain() = %d, %v, want 1, nil", n, err)
	}
	reused, _ := f.g.RegisterBuffer(f.device, resource.Buffer{Raw: "reused", Size: 16})
	if reused.Index() != f.vb.Index() || reused.Epoch() == f.vb.Epoch() {
		t.Errorf("RegisterBuffer() after retire = %v, want index of %v with a new epoch", reused, f.vb)
	}
}

func TestDestroy_ReclaimedOnDiscard(t *testing.T) {
	f := newFixture(t)
	enc, aff, _ := f.begin(t)
	p := NewRenderPass(f.g.Backend(), []Attachment{{View: f.view}}, nil)
	p.SetVertexBuffer(0, f.vb, 0, 0)
	p.Draw(3, 1, 0, 0)
	if err := f.g.RunRenderPass(enc, aff, p, nil); err != nil {
		t.Fatal(err)
	}

	if err := f.g.DestroyBuffer(f.vb); err != nil {
		t.Fatal(err)
	}
	if err := f.g.DestroyTexture(f.tex); err != nil {
		t.Fatal(err)
	}
	if err := f.g.DestroyTextureView(f.view); err != nil {
		t.Fatal(err)
	}
	if err := f.g.DestroyBuffer(f.ib); err != nil {
		t.Fatal(err)
	}

	tables := []struct {
		name     string
		withheld func() int
		before   int
	}{
		{"buffers", f.g.buffers.Withheld, 1},
		{"textures", f.g.textures.Withheld, 1},
		{"views", f.g.views.Withheld, 1},
	}
	for _, tt := range tables {
		if got := tt.withheld(); got != tt.before {
			t.Errorf("%s withheld before discard = %d, want %d", tt.name, got, tt.before)
		}
	}
	if err := f.g.Discard(enc, aff); err != nil {
		t.Fatal(err)
	}
	for _, tt := range tables {
		if got := tt.withheld(); got != 0 {
			t.Errorf("%s withheld after discard = %d, want 0", tt.name, got)
		}
	}
}
