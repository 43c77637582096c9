package resource

import (
	"strings"

	"github.com/gogpu/gputypes"
)

// Aspects selects the planes of a texture.
type Aspects uint8

// Texture aspects.
const (
	AspectColor Aspects = 1 << iota
	AspectDepth
	AspectStencil
)

// HasDepthOrStencil reports whether a includes a depth or stencil plane.
func (a Aspects) HasDepthOrStencil() bool { return a&(AspectDepth|AspectStencil) != 0 }

// String returns the aspect names joined by '|'.
func (a Aspects) String() string {
	if a == 0 {
		return "NONE"
	}
	var parts []string
	if a&AspectColor != 0 {
		parts = append(parts, "COLOR")
	}
	if a&AspectDepth != 0 {
		parts = append(parts, "DEPTH")
	}
	if a&AspectStencil != 0 {
		parts = append(parts, "STENCIL")
	}
	return strings.Join(parts, "|")
}

// AspectsOf returns the planes of a texture of the given format.
func AspectsOf(format gputypes.TextureFormat) Aspects {
	switch format {
	case gputypes.TextureFormatDepth24PlusStencil8:
		return AspectDepth | AspectStencil
	default:
		return AspectColor
	}
}

// SubresourceRange selects mip levels and array layers of a texture.
type SubresourceRange struct {
	Aspects        Aspects
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}
