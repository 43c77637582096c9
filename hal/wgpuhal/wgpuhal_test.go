//go:build !nogpu

package wgpuhal

import (
	"testing"

	"github.com/gogpu/gputypes"
	gohal "github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/resource"
)

func createNoopDevice(t *testing.T) (gohal.Device, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	return openDev.Device, func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
}

func TestCommandBuffer_Barriers(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	buf, err := device.CreateBuffer(&gohal.BufferDescriptor{
		Label: "vertices",
		Size:  256,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	defer device.DestroyBuffer(buf)

	tex, err := device.CreateTexture(&gohal.TextureDescriptor{
		Label:         "target",
		Size:          gohal.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	defer device.DestroyTexture(tex)

	cb, err := Begin(device, "barriers")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	cb.BeginDebugMarker("frame", 0)
	cb.PipelineBarrier(hal.AllBufferStages, hal.AllBufferStages,
		[]hal.BufferBarrier{{Buffer: buf, Old: resource.BufferUseCopyDst, New: resource.BufferUseVertex}},
		[]hal.TextureBarrier{{Texture: tex, Old: resource.TextureUseAttachmentWrite, New: resource.TextureUseCopySrc}},
	)
	cb.PipelineBarrier(hal.AllBufferStages, hal.AllBufferStages, nil, nil)
	cb.InsertDebugMarker("copy", 0)
	cb.EndDebugMarker()

	if b, tx := cb.Transitions(); b != 1 || tx != 1 {
		t.Errorf("Transitions() = %d, %d, want 1, 1", b, tx)
	}

	cmd, err := cb.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if cmd == nil {
		t.Error("End returned nil command buffer")
	}
}

func TestCommandBuffer_Discard(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	cb, err := Begin(device, "discarded")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if cb.Encoder() == nil {
		t.Fatal("Encoder() = nil")
	}
	cb.Discard()
}

func TestCommandBuffer_ForeignHandlePanics(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	cb, err := Begin(device, "foreign")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer cb.Discard()
	defer func() {
		if recover() == nil {
			t.Error("PipelineBarrier() with foreign handle did not panic")
		}
	}()
	cb.PipelineBarrier(0, 0, []hal.BufferBarrier{{Buffer: 42}}, nil)
}
