package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/fhn666/wgpu/hal"
	"github.com/fhn666/wgpu/resource"
)

var stageBits = [...]struct {
	from hal.StageFlags
	to   vk.PipelineStageFlagBits
}{
	{hal.StageTopOfPipe, vk.PipelineStageTopOfPipeBit},
	{hal.StageDrawIndirect, vk.PipelineStageDrawIndirectBit},
	{hal.StageVertexInput, vk.PipelineStageVertexInputBit},
	{hal.StageVertexShader, vk.PipelineStageVertexShaderBit},
	{hal.StageFragmentShader, vk.PipelineStageFragmentShaderBit},
	{hal.StageEarlyFragmentTests, vk.PipelineStageEarlyFragmentTestsBit},
	{hal.StageLateFragmentTests, vk.PipelineStageLateFragmentTestsBit},
	{hal.StageColorAttachmentOutput, vk.PipelineStageColorAttachmentOutputBit},
	{hal.StageComputeShader, vk.PipelineStageComputeShaderBit},
	{hal.StageTransfer, vk.PipelineStageTransferBit},
	{hal.StageBottomOfPipe, vk.PipelineStageBottomOfPipeBit},
	{hal.StageHost, vk.PipelineStageHostBit},
}

func stageFlags(s hal.StageFlags) vk.PipelineStageFlags {
	var out vk.PipelineStageFlags
	for _, b := range stageBits {
		if s&b.from != 0 {
			out |= vk.PipelineStageFlags(b.to)
		}
	}
	if out == 0 {
		out = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
	return out
}

func bufferAccess(u resource.BufferUse) vk.AccessFlags {
	var out vk.AccessFlags
	if u&resource.BufferUseMapRead != 0 {
		out |= vk.AccessFlags(vk.AccessHostReadBit)
	}
	if u&resource.BufferUseMapWrite != 0 {
		out |= vk.AccessFlags(vk.AccessHostWriteBit)
	}
	if u&resource.BufferUseCopySrc != 0 {
		out |= vk.AccessFlags(vk.AccessTransferReadBit)
	}
	if u&resource.BufferUseCopyDst != 0 {
		out |= vk.AccessFlags(vk.AccessTransferWriteBit)
	}
	if u&resource.BufferUseIndex != 0 {
		out |= vk.AccessFlags(vk.AccessIndexReadBit)
	}
	if u&resource.BufferUseVertex != 0 {
		out |= vk.AccessFlags(vk.AccessVertexAttributeReadBit)
	}
	if u&resource.BufferUseUniform != 0 {
		out |= vk.AccessFlags(vk.AccessUniformReadBit)
	}
	if u&resource.BufferUseStorageLoad != 0 {
		out |= vk.AccessFlags(vk.AccessShaderReadBit)
	}
	if u&resource.BufferUseStorageStore != 0 {
		out |= vk.AccessFlags(vk.AccessShaderWriteBit)
	}
	if u&resource.BufferUseIndirect != 0 {
		out |= vk.AccessFlags(vk.AccessIndirectCommandReadBit)
	}
	return out
}

func textureAccess(u resource.TextureUse, aspects resource.Aspects) vk.AccessFlags {
	var out vk.AccessFlags
	if u&resource.TextureUseCopySrc != 0 {
		out |= vk.AccessFlags(vk.AccessTransferReadBit)
	}
	if u&resource.TextureUseCopyDst != 0 {
		out |= vk.AccessFlags(vk.AccessTransferWriteBit)
	}
	if u&(resource.TextureUseSampled|resource.TextureUseStorageLoad) != 0 {
		out |= vk.AccessFlags(vk.AccessShaderReadBit)
	}
	if u&resource.TextureUseStorageStore != 0 {
		out |= vk.AccessFlags(vk.AccessShaderWriteBit)
	}
	depth := aspects.HasDepthOrStencil()
	if u&resource.TextureUseAttachmentRead != 0 {
		if depth {
			out |= vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit)
		} else {
			out |= vk.AccessFlags(vk.AccessColorAttachmentReadBit)
		}
	}
	if u&resource.TextureUseAttachmentWrite != 0 {
		if depth {
			out |= vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
		} else {
			out |= vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
		}
	}
	return out
}

func imageLayout(l hal.ImageLayout) vk.ImageLayout {
	switch l {
	case hal.LayoutGeneral:
		return vk.ImageLayoutGeneral
	case hal.LayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case hal.LayoutDepthStencilAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case hal.LayoutDepthStencilReadOnly:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case hal.LayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case hal.LayoutTransferSrc:
		return vk.ImageLayoutTransferSrcOptimal
	case hal.LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case hal.LayoutPresent:
		return vk.ImageLayoutPresentSrc
	default:
		return vk.ImageLayoutUndefined
	}
}

func aspectMask(a resource.Aspects) vk.ImageAspectFlags {
	var out vk.ImageAspectFlags
	if a&resource.AspectColor != 0 {
		out |= vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	if a&resource.AspectDepth != 0 {
		out |= vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	if a&resource.AspectStencil != 0 {
		out |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	if out == 0 {
		out = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	return out
}
