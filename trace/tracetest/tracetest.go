// Package tracetest records small traces for tests.
package tracetest

import (
	"github.com/gogpu/gputypes"
	"github.com/google/uuid"

	"github.com/fhn666/wgpu/command"
	"github.com/fhn666/wgpu/hal/recorder"
	"github.com/fhn666/wgpu/resource"
	"github.com/fhn666/wgpu/trace"
)

// FrameID is the identifier of the trace recorded by Frame.
var FrameID = uuid.MustParse("3f1c2a4e-8b7d-4c6a-9e2f-5a1b0c9d8e7f")

// Frame records one session on a fresh Global: a compute pass writing a
// storage buffer, a render pass reading it as vertices into a color
// attachment, and debug markers around both.
func Frame() (*trace.Trace, error) {
	rec := trace.NewRecorder(gputypes.BackendVulkan, trace.WithTraceID(FrameID))
	g := command.NewGlobal(command.WithObserver(rec))

	dev := g.RegisterDevice(resource.Device{Label: "gpu", Limits: gputypes.DefaultLimits()})
	vertices, err := g.RegisterBuffer(dev, resource.Buffer{Size: 1024, Label: "vertices"})
	if err != nil {
		return nil, err
	}
	params, err := g.RegisterBuffer(dev, resource.Buffer{Size: 256, Label: "params"})
	if err != nil {
		return nil, err
	}
	target, err := g.RegisterTexture(dev, resource.Texture{
		Format:        gputypes.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		Label:         "target",
	})
	if err != nil {
		return nil, err
	}
	view, err := g.RegisterTextureView(target, resource.TextureView{Label: "target view"})
	if err != nil {
		return nil, err
	}
	blur := g.RegisterComputePipeline("blur")
	bg := g.RegisterBindGroup("params")
	draw := g.RegisterRenderPipeline("draw")

	enc, aff, err := g.BeginEncoder(dev, recorder.New("frame"), command.WithLabel("frame"))
	if err != nil {
		return nil, err
	}
	if err := g.PushDebugGroup(enc, aff, "frame"); err != nil {
		return nil, err
	}

	cp := command.NewComputePass(g.Backend())
	cp.SetPipeline(blur)
	cp.SetBindGroup(0, bg)
	cp.UseBuffer(vertices, resource.BufferUseStorageStore)
	cp.UseBuffer(params, resource.BufferUseUniform)
	cp.ClearPushConstants(0, 300)
	cp.Dispatch(4, 4, 1)
	if err := g.RunComputePass(enc, aff, cp, nil); err != nil {
		return nil, err
	}

	rp := command.NewRenderPass(g.Backend(), []command.Attachment{{View: view}}, nil)
	rp.SetPipeline(draw)
	rp.SetVertexBuffer(0, vertices, 0, 0)
	rp.PushDebugGroup("draw", 0)
	rp.Draw(3, 1, 0, 0)
	rp.PopDebugGroup()
	if err := g.RunRenderPass(enc, aff, rp, nil); err != nil {
		return nil, err
	}

	if err := g.InsertDebugMarker(enc, aff, "done"); err != nil {
		return nil, err
	}
	if err := g.PopDebugGroup(enc, aff); err != nil {
		return nil, err
	}
	if _, err := g.Finish(enc, aff); err != nil {
		return nil, err
	}
	return rec.Trace(), nil
}

// SplitFrameID is the identifier of the trace recorded by SplitFrame.
var SplitFrameID = uuid.MustParse("9a0d6c1e-2f4b-4e8a-b7c3-1d5e6f7a8b9c")

// SplitFrame records a session that switches to a second raw command
// buffer halfway: a compute pass on the first, then a render pass into the
// view a swap chain has acquired on the second. The session is submitted,
// the frame presented, the vertex buffer destroyed and the device
// maintained.
func SplitFrame() (*trace.Trace, error) {
	rec := trace.NewRecorder(gputypes.BackendVulkan, trace.WithTraceID(SplitFrameID))
	g := command.NewGlobal(command.WithObserver(rec))

	dev := g.RegisterDevice(resource.Device{Label: "gpu", Limits: gputypes.DefaultLimits()})
	vertices, err := g.RegisterBuffer(dev, resource.Buffer{Size: 1024, Label: "vertices"})
	if err != nil {
		return nil, err
	}
	target, err := g.RegisterTexture(dev, resource.Texture{
		Format:        gputypes.TextureFormatBGRA8Unorm,
		MipLevelCount: 1,
		Label:         "backbuffer",
	})
	if err != nil {
		return nil, err
	}
	view, err := g.RegisterTextureView(target, resource.TextureView{Label: "backbuffer view"})
	if err != nil {
		return nil, err
	}
	sc, err := g.CreateSwapChain(dev, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		return nil, err
	}
	if err := g.AcquireSwapChainView(sc, view); err != nil {
		return nil, err
	}

	enc, aff, err := g.BeginEncoder(dev, recorder.New("split"), command.WithLabel("split"))
	if err != nil {
		return nil, err
	}
	cp := command.NewComputePass(g.Backend())
	cp.UseBuffer(vertices, resource.BufferUseStorageStore)
	cp.Dispatch(1, 1, 1)
	if err := g.RunComputePass(enc, aff, cp, nil); err != nil {
		return nil, err
	}

	if err := g.ContinueEncoder(enc, aff, recorder.New("split")); err != nil {
		return nil, err
	}
	if err := g.UseSwapChain(enc, aff, sc); err != nil {
		return nil, err
	}
	if err := g.InsertDebugMarker(enc, aff, "present"); err != nil {
		return nil, err
	}
	rp := command.NewRenderPass(g.Backend(), []command.Attachment{{View: view}}, nil)
	rp.SetVertexBuffer(0, vertices, 0, 0)
	rp.Draw(3, 1, 0, 0)
	if err := g.RunRenderPass(enc, aff, rp, nil); err != nil {
		return nil, err
	}
	cmd, err := g.Finish(enc, aff)
	if err != nil {
		return nil, err
	}

	if _, err := g.Submit(cmd); err != nil {
		return nil, err
	}
	if err := g.PresentSwapChain(sc); err != nil {
		return nil, err
	}
	if err := g.DestroyBuffer(vertices); err != nil {
		return nil, err
	}
	if _, err := g.Maintain(dev, true); err != nil {
		return nil, err
	}
	return rec.Trace(), nil
}
