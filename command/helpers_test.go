package command

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/fhn666/wgpu/hal/recorder"
	"github.com/fhn666/wgpu/resource"
)

type fixture struct {
	g      *Global
	device resource.DeviceID
	vb     resource.BufferID
	ib     resource.BufferID
	tex    resource.TextureID
	view   resource.TextureViewID
}

func newFixture(t *testing.T, opts ...GlobalOption) *fixture {
	t.Helper()
	g := NewGlobal(opts...)
	f := &fixture{g: g}
	f.device = g.RegisterDevice(resource.Device{Label: "test", Limits: gputypes.DefaultLimits()})

	var err error
	f.vb, err = g.RegisterBuffer(f.device, resource.Buffer{Raw: "vb", Size: 1024, Label: "vertices"})
	if err != nil {
		t.Fatalf("RegisterBuffer failed: %v", err)
	}
	f.ib, err = g.RegisterBuffer(f.device, resource.Buffer{Raw: "ib", Size: 512, Label: "indices"})
	if err != nil {
		t.Fatalf("RegisterBuffer failed: %v", err)
	}
	f.tex, err = g.RegisterTexture(f.device, resource.Texture{
		Raw:           "color",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		Label:         "color",
	})
	if err != nil {
		t.Fatalf("RegisterTexture failed: %v", err)
	}
	f.view, err = g.RegisterTextureView(f.tex, resource.TextureView{Label: "color view"})
	if err != nil {
		t.Fatalf("RegisterTextureView failed: %v", err)
	}
	return f
}

func (f *fixture) begin(t *testing.T, opts ...EncoderOption) (CommandEncoderID, Affinity, *recorder.CommandBuffer) {
	t.Helper()
	raw := recorder.New("raw")
	enc, aff, err := f.g.BeginEncoder(f.device, raw, opts...)
	if err != nil {
		t.Fatalf("BeginEncoder failed: %v", err)
	}
	return enc, aff, raw
}

// collector records observed events.
type collector struct {
	events []Event
}

func (c *collector) Observe(e Event) { c.events = append(c.events, e) }
