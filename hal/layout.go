package hal

import (
	"fmt"

	"github.com/fhn666/wgpu/resource"
)

// ImageLayout is the memory arrangement a texture must be in for a usage.
type ImageLayout uint8

// Image layouts.
const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutDepthStencilReadOnly
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresent
)

var layoutNames = [...]string{
	LayoutUndefined:              "Undefined",
	LayoutGeneral:                "General",
	LayoutColorAttachment:        "ColorAttachment",
	LayoutDepthStencilAttachment: "DepthStencilAttachment",
	LayoutDepthStencilReadOnly:   "DepthStencilReadOnly",
	LayoutShaderReadOnly:         "ShaderReadOnly",
	LayoutTransferSrc:            "TransferSrc",
	LayoutTransferDst:            "TransferDst",
	LayoutPresent:                "Present",
}

func (l ImageLayout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return fmt.Sprintf("ImageLayout(%d)", uint8(l))
}

// LayoutFor returns the layout a texture with the given aspects must be in
// for use. Combined usages other than the read-only attachment pairs fall
// back to LayoutGeneral.
func LayoutFor(use resource.TextureUse, aspects resource.Aspects) ImageLayout {
	isDepth := aspects.HasDepthOrStencil()
	switch use {
	case resource.TextureUseUninitialized:
		return LayoutUndefined
	case resource.TextureUseCopySrc:
		return LayoutTransferSrc
	case resource.TextureUseCopyDst:
		return LayoutTransferDst
	case resource.TextureUseSampled:
		if isDepth {
			return LayoutDepthStencilReadOnly
		}
		return LayoutShaderReadOnly
	case resource.TextureUseAttachmentRead:
		if isDepth {
			return LayoutDepthStencilReadOnly
		}
		return LayoutColorAttachment
	case resource.TextureUseAttachmentWrite:
		if isDepth {
			return LayoutDepthStencilAttachment
		}
		return LayoutColorAttachment
	case resource.TextureUseSampled | resource.TextureUseAttachmentRead:
		if isDepth {
			return LayoutDepthStencilReadOnly
		}
		return LayoutGeneral
	default:
		return LayoutGeneral
	}
}
