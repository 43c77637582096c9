package trace_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhn666/wgpu/command"
	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/hal/recorder"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/trace"
	"github.com/fhn666/wgpu/trace/tracetest"
)

func kinds(t *trace.Trace) []trace.ActionKind {
	out := make([]trace.ActionKind, len(t.Actions))
	for i := range t.Actions {
		out[i] = t.Actions[i].Kind()
	}
	return out
}

func TestRecorder(t *testing.T) {
	tr, err := tracetest.Frame()
	require.NoError(t, err)

	assert.Equal(t, trace.FormatVersion, tr.Version)
	assert.Equal(t, tracetest.FrameID, tr.ID)
	assert.Equal(t, []trace.ActionKind{
		trace.KindCreateDevice,
		trace.KindCreateBuffer,
		trace.KindCreateBuffer,
		trace.KindCreateTexture,
		trace.KindCreateTextureView,
		trace.KindCreateObject,
		trace.KindCreateObject,
		trace.KindCreateObject,
		trace.KindBeginEncoder,
		trace.KindPushDebugGroup,
		trace.KindRunComputePass,
		trace.KindRunRenderPass,
		trace.KindInsertDebugMarker,
		trace.KindPopDebugGroup,
		trace.KindFinish,
	}, kinds(tr))

	cp := tr.Actions[10].RunComputePass
	require.NotNil(t, cp)
	assert.Len(t, cp.Commands, 4)
	require.Len(t, cp.Usage.Buffers, 2)
	assert.Equal(t, resource.BufferUseStorageStore, cp.Usage.Buffers[0].Use)
	assert.Equal(t, resource.BufferUseUniform, cp.Usage.Buffers[1].Use)
	assert.Len(t, cp.Usage.ComputePipelines, 1)

	rp := tr.Actions[11].RunRenderPass
	require.NotNil(t, rp)
	assert.Equal(t, "draw", rp.StringData)
	require.Len(t, rp.Usage.Textures, 1)
	assert.Equal(t, resource.TextureUseAttachmentWrite, rp.Usage.Textures[0].Use)
	assert.Len(t, rp.Usage.Views, 1)

	obj := tr.Actions[5].CreateObject
	assert.Equal(t, "compute_pipeline", obj.Kind)
	assert.Equal(t, "blur", obj.Label)
}

func TestRecorder_Concurrent(t *testing.T) {
	rec := trace.NewRecorder(gputypes.BackendVulkan)
	g := command.NewGlobal(command.WithObserver(rec))
	dev := g.RegisterDevice(resource.Device{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enc, aff, err := g.BeginEncoder(dev, recorder.New(""))
			if err != nil {
				t.Error(err)
				return
			}
			_ = g.InsertDebugMarker(enc, aff, "m")
			_, _ = g.Finish(enc, aff)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1+8*3, rec.Len())

	rec.Reset()
	assert.Equal(t, 0, rec.Len())
	assert.NotEqual(t, rec.ID(), trace.NewRecorder(gputypes.BackendVulkan).ID())
}

func TestYAMLCodec_RoundTrip(t *testing.T) {
	tr, err := tracetest.Frame()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, trace.YAMLCodec{}.Encode(&buf, tr))
	assert.Contains(t, buf.String(), "op: Dispatch")
	assert.Contains(t, buf.String(), "run_render_pass:")

	got, err := trace.YAMLCodec{}.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, kinds(tr), kinds(got))
	assert.Equal(t, tr.Actions[10].RunComputePass.Commands, got.Actions[10].RunComputePass.Commands)
	assert.Equal(t, tr.Actions[11].RunRenderPass.Usage, got.Actions[11].RunRenderPass.Usage)
	assert.Equal(t, tr.Actions[4].CreateTextureView, got.Actions[4].CreateTextureView)
}

func TestFile_RoundTrip(t *testing.T) {
	tr, err := tracetest.Frame()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "frame.yaml")
	require.NoError(t, trace.WriteFile(path, tr, trace.YAMLCodec{}))
	got, err := trace.ReadFile(path, trace.YAMLCodec{})
	require.NoError(t, err)
	assert.Equal(t, trace.Summarize(tr), trace.Summarize(got))

	_, err = trace.ReadFile(filepath.Join(t.TempDir(), "missing.yaml"), trace.YAMLCodec{})
	assert.Error(t, err)
}

func TestYAMLCodec_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "wrong version",
			doc:  "version: 7\nid: 3f1c2a4e-8b7d-4c6a-9e2f-5a1b0c9d8e7f\nbackend: 0\nactions: []\n",
			want: trace.ErrVersion,
		},
		{
			name: "empty action",
			doc:  "version: 1\nid: 3f1c2a4e-8b7d-4c6a-9e2f-5a1b0c9d8e7f\nbackend: 0\nactions:\n  - {}\n",
			want: trace.ErrMalformed,
		},
		{
			name: "two variants",
			doc: "version: 1\nid: 3f1c2a4e-8b7d-4c6a-9e2f-5a1b0c9d8e7f\nbackend: 0\nactions:\n" +
				"  - create_device: {id: '0,1,0'}\n    finish: {encoder: '0,1,0'}\n",
			want: trace.ErrMalformed,
		},
		{
			name: "unknown object kind",
			doc: "version: 1\nid: 3f1c2a4e-8b7d-4c6a-9e2f-5a1b0c9d8e7f\nbackend: 0\nactions:\n" +
				"  - create_object: {kind: shader, id: '0,1,0'}\n",
			want: trace.ErrMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := trace.YAMLCodec{}.Decode(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := trace.YAMLCodec{}.Decode(strings.NewReader("version: 1\nbogus: true\n"))
	assert.Error(t, err, "unknown fields must be rejected")
	_, err = trace.YAMLCodec{}.Decode(strings.NewReader(""))
	assert.Error(t, err)
}

func TestRefText(t *testing.T) {
	var r trace.Ref
	require.NoError(t, r.UnmarshalText([]byte("3,2,0")))
	text, err := r.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "3,2,0", string(text))
	assert.Equal(t, "3.2", r.String())
	assert.Error(t, r.UnmarshalText([]byte("3,2")))
}

func TestPlay(t *testing.T) {
	tr, err := tracetest.Frame()
	require.NoError(t, err)

	replay, err := trace.Play(tr)
	require.NoError(t, err)
	require.Len(t, replay.Sessions, 1)

	s := replay.Sessions[0]
	assert.Equal(t, "frame", s.Label)
	assert.True(t, s.Finished)
	require.Len(t, s.Raws, 1)
	raw, ok := s.Raws[0].(*recorder.CommandBuffer)
	require.True(t, ok)
	assert.Equal(t, 2, raw.Count(recorder.OpPipelineBarrier))
	assert.Equal(t, 2, raw.Count(recorder.OpBeginDebugMarker))
	assert.Equal(t, 2, raw.Count(recorder.OpEndDebugMarker))
	assert.Equal(t, 2, raw.Count(recorder.OpSetPushConstants))
	assert.Equal(t, 0, raw.Depth())

	info, err := replay.Global.Info(s.ID)
	require.NoError(t, err)
	assert.False(t, info.IsRecording)
}

func TestPlay_ReRecordsSameTrace(t *testing.T) {
	tr, err := tracetest.Frame()
	require.NoError(t, err)

	rec := trace.NewRecorder(gputypes.Backend(tr.Backend))
	_, err = trace.Play(tr, trace.WithObserver(rec))
	require.NoError(t, err)
	assert.Equal(t, kinds(tr), kinds(rec.Trace()))

	want := trace.Summarize(tr)
	got := trace.Summarize(rec.Trace())
	got.ID = want.ID
	assert.Equal(t, want, got)
}

func TestPlay_Executors(t *testing.T) {
	tr, err := tracetest.Frame()
	require.NoError(t, err)

	var dispatches, draws int
	_, err = trace.Play(tr, trace.WithExecutors(
		func(_ hal.CommandBuffer, c command.ComputeItem) error {
			if c.Op == command.ComputeDispatch {
				dispatches++
			}
			return nil
		},
		func(_ hal.CommandBuffer, c command.RenderItem) error {
			if c.Op == command.RenderDraw {
				draws++
			}
			return nil
		},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, dispatches)
	assert.Equal(t, 1, draws)
}

func TestPlay_RawFactory(t *testing.T) {
	tr, err := tracetest.Frame()
	require.NoError(t, err)

	var labels []string
	_, err = trace.Play(tr, trace.WithRawFactory(func(label string) (hal.CommandBuffer, error) {
		labels = append(labels, label)
		return recorder.New(label), nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"frame"}, labels)

	errNoEncoder := errors.New("no encoder")
	_, err = trace.Play(tr, trace.WithRawFactory(func(string) (hal.CommandBuffer, error) {
		return nil, errNoEncoder
	}))
	assert.ErrorIs(t, err, errNoEncoder)
}

type handles struct{ buffers, textures []string }

func (h *handles) Buffer(b *trace.CreateBuffer) (any, error) {
	h.buffers = append(h.buffers, b.Label)
	return "buf:" + b.Label, nil
}

func (h *handles) Texture(t *trace.CreateTexture) (any, error) {
	h.textures = append(h.textures, t.Label)
	return "tex:" + t.Label, nil
}

func TestPlay_Resources(t *testing.T) {
	tr, err := tracetest.Frame()
	require.NoError(t, err)

	h := &handles{}
	replay, err := trace.Play(tr, trace.WithResources(h))
	require.NoError(t, err)
	assert.Equal(t, []string{"vertices", "params"}, h.buffers)
	assert.Equal(t, []string{"target"}, h.textures)

	raw := replay.Sessions[0].Raws[0].(*recorder.CommandBuffer)
	assert.Contains(t, raw.String(), "buffer buf:vertices: STORAGE_STORE -> VERTEX")
	assert.Contains(t, raw.String(), "texture tex:target: NONE (Undefined) -> ATTACHMENT_WRITE (ColorAttachment)")
}

func TestPlay_UnknownRef(t *testing.T) {
	tr, err := tracetest.Frame()
	require.NoError(t, err)

	// Drop the texture view: the render pass refers to it.
	broken := *tr
	broken.Actions = append(append([]trace.Action(nil), tr.Actions[:4]...), tr.Actions[5:]...)
	_, err = trace.Play(&broken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, trace.ErrUnknownRef), "error = %v", err)
	assert.Contains(t, err.Error(), "run_render_pass")
}

func TestPlay_Version(t *testing.T) {
	_, err := trace.Play(&trace.Trace{Version: 0})
	assert.ErrorIs(t, err, trace.ErrVersion)
}

func TestSummarize(t *testing.T) {
	tr, err := tracetest.Frame()
	require.NoError(t, err)

	s := trace.Summarize(tr)
	assert.Equal(t, "vulkan", s.Backend)
	assert.Equal(t, 15, s.Actions)
	assert.Equal(t, []int{1, 2, 1, 1, 3}, []int{s.Devices, s.Buffers, s.Textures, s.Views, s.Objects})
	require.Len(t, s.Sessions, 1)
	assert.Equal(t, trace.SessionSummary{
		ID:            s.Sessions[0].ID,
		Label:         "frame",
		ComputePasses: 1,
		RenderPasses:  1,
		Commands:      9,
		DebugGroups:   2,
		Markers:       1,
		Finished:      true,
	}, s.Sessions[0])

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf))
	assert.Equal(t, "trace 3f1c2a4e-8b7d-4c6a-9e2f-5a1b0c9d8e7f (vulkan, 15 actions)\n"+
		"resources: devices=1 buffers=2 textures=1 views=1 objects=3\n"+
		"session 0.1 \"frame\": compute_passes=1 render_passes=1 commands=9 debug_groups=2 markers=1 finished=true\n",
		buf.String())
}

func TestPlay_ContinuedSession(t *testing.T) {
	tr, err := tracetest.SplitFrame()
	require.NoError(t, err)
	assert.Equal(t, []trace.ActionKind{
		trace.KindCreateDevice,
		trace.KindCreateBuffer,
		trace.KindCreateTexture,
		trace.KindCreateTextureView,
		trace.KindCreateSwapChain,
		trace.KindAcquireSwapChainView,
		trace.KindBeginEncoder,
		trace.KindRunComputePass,
		trace.KindContinueEncoder,
		trace.KindUseSwapChain,
		trace.KindInsertDebugMarker,
		trace.KindRunRenderPass,
		trace.KindFinish,
		trace.KindSubmit,
		trace.KindPresentSwapChain,
		trace.KindDestroyBuffer,
		trace.KindMaintain,
	}, kinds(tr))

	var buf bytes.Buffer
	require.NoError(t, trace.YAMLCodec{}.Encode(&buf, tr))
	assert.Contains(t, buf.String(), "continue_encoder:")
	decoded, err := trace.YAMLCodec{}.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, tr.Actions[13].Submit, decoded.Actions[13].Submit)

	var labels []string
	rec := trace.NewRecorder(gputypes.BackendVulkan)
	replay, err := trace.Play(decoded,
		trace.WithObserver(rec),
		trace.WithRawFactory(func(label string) (hal.CommandBuffer, error) {
			labels = append(labels, label)
			return recorder.New(label), nil
		}))
	require.NoError(t, err)
	assert.Equal(t, []string{"split", "split"}, labels)
	assert.Equal(t, kinds(tr), kinds(rec.Trace()))

	require.Len(t, replay.Sessions, 1)
	s := replay.Sessions[0]
	assert.True(t, s.Finished)
	assert.True(t, s.Submitted)
	assert.True(t, s.Retired)
	require.Len(t, s.Raws, 2)
	first := s.Raws[0].(*recorder.CommandBuffer)
	second := s.Raws[1].(*recorder.CommandBuffer)
	assert.Equal(t, 1, first.Count(recorder.OpPipelineBarrier))
	assert.Zero(t, first.Count(recorder.OpInsertDebugMarker))
	assert.Equal(t, 1, second.Count(recorder.OpPipelineBarrier))
	assert.Equal(t, 1, second.Count(recorder.OpInsertDebugMarker))
	assert.Contains(t, second.String(), "STORAGE_STORE -> VERTEX")

	sum := trace.Summarize(tr)
	assert.Equal(t, []int{1, 1, 1}, []int{sum.SwapChains, sum.Destroyed, sum.Submissions})
	require.Len(t, sum.Sessions, 1)
	assert.Equal(t, 1, sum.Sessions[0].Continued)
	assert.True(t, sum.Sessions[0].Submitted)
}

func TestPlay_FinishDropsSwapChainView(t *testing.T) {
	tr, err := tracetest.SplitFrame()
	require.NoError(t, err)

	// Stop right after finish, before the session is submitted and retired.
	upToFinish := *tr
	upToFinish.Actions = tr.Actions[:13]
	require.Equal(t, trace.KindFinish, upToFinish.Actions[12].Kind())

	replay, err := trace.Play(&upToFinish)
	require.NoError(t, err)
	snapshot, err := replay.Global.TrackerSnapshot(replay.Sessions[0].ID)
	require.NoError(t, err)
	assert.Zero(t, snapshot.Views.Len())
	assert.Equal(t, 1, snapshot.Buffers.Len())
	assert.Equal(t, 1, snapshot.Textures.Len())
}
