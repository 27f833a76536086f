package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func toVkFormat(f metadata.Format) vk.Format {
	switch f {
	case metadata.FormatB8G8R8A8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case metadata.FormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case metadata.FormatR16G16B16A16Sfloat:
		return vk.FormatR16g16b16a16Sfloat
	case metadata.FormatD32Sfloat:
		return vk.FormatD32Sfloat
	}
	return vk.FormatUndefined
}

func fromVkFormat(f vk.Format) metadata.Format {
	switch f {
	case vk.FormatB8g8r8a8Unorm:
		return metadata.FormatB8G8R8A8Unorm
	case vk.FormatR8g8b8a8Unorm:
		return metadata.FormatR8G8B8A8Unorm
	case vk.FormatR16g16b16a16Sfloat:
		return metadata.FormatR16G16B16A16Sfloat
	case vk.FormatD32Sfloat:
		return metadata.FormatD32Sfloat
	}
	return metadata.FormatUndefined
}

// Vulkan 1.0 has no depth only attachment layout, the combined one is used.
func toVkImageLayout(l metadata.ImageLayout) vk.ImageLayout {
	switch l {
	case metadata.ImageLayoutGeneral:
		return vk.ImageLayoutGeneral
	case metadata.ImageLayoutColorAttachmentOptimal:
		return vk.ImageLayoutColorAttachmentOptimal
	case metadata.ImageLayoutDepthAttachmentOptimal:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case metadata.ImageLayoutTransferSrcOptimal:
		return vk.ImageLayoutTransferSrcOptimal
	case metadata.ImageLayoutTransferDstOptimal:
		return vk.ImageLayoutTransferDstOptimal
	case metadata.ImageLayoutShaderReadOnlyOptimal:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case metadata.ImageLayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

func aspectFor(f metadata.Format) vk.ImageAspectFlags {
	if f.IsDepth() {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func toVkImageUsage(u metadata.ImageUsageFlags) vk.ImageUsageFlags {
	var out vk.ImageUsageFlagBits
	if u&metadata.ImageUsageTransferSrc != 0 {
		out |= vk.ImageUsageTransferSrcBit
	}
	if u&metadata.ImageUsageTransferDst != 0 {
		out |= vk.ImageUsageTransferDstBit
	}
	if u&metadata.ImageUsageSampled != 0 {
		out |= vk.ImageUsageSampledBit
	}
	if u&metadata.ImageUsageStorage != 0 {
		out |= vk.ImageUsageStorageBit
	}
	if u&metadata.ImageUsageColorAttachment != 0 {
		out |= vk.ImageUsageColorAttachmentBit
	}
	if u&metadata.ImageUsageDepthStencilAttachment != 0 {
		out |= vk.ImageUsageDepthStencilAttachmentBit
	}
	return vk.ImageUsageFlags(out)
}

func toVkBufferUsage(u metadata.BufferUsageFlags) vk.BufferUsageFlags {
	var out vk.BufferUsageFlagBits
	if u&metadata.BufferUsageTransferSrc != 0 {
		out |= vk.BufferUsageTransferSrcBit
	}
	if u&metadata.BufferUsageTransferDst != 0 {
		out |= vk.BufferUsageTransferDstBit
	}
	if u&metadata.BufferUsageUniform != 0 {
		out |= vk.BufferUsageUniformBufferBit
	}
	if u&metadata.BufferUsageStorage != 0 {
		out |= vk.BufferUsageStorageBufferBit
	}
	if u&metadata.BufferUsageIndex != 0 {
		out |= vk.BufferUsageIndexBufferBit
	}
	if u&metadata.BufferUsageVertex != 0 {
		out |= vk.BufferUsageVertexBufferBit
	}
	return vk.BufferUsageFlags(out)
}

func memoryPropertiesFor(m metadata.MemoryUsage) vk.MemoryPropertyFlags {
	switch m {
	case metadata.MemoryUsageCPUToGPU, metadata.MemoryUsageCPUOnly:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
}

func toVkDescriptorType(t metadata.DescriptorType) vk.DescriptorType {
	switch t {
	case metadata.DescriptorTypeSampler:
		return vk.DescriptorTypeSampler
	case metadata.DescriptorTypeCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case metadata.DescriptorTypeSampledImage:
		return vk.DescriptorTypeSampledImage
	case metadata.DescriptorTypeStorageImage:
		return vk.DescriptorTypeStorageImage
	case metadata.DescriptorTypeUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	}
	return vk.DescriptorTypeStorageBuffer
}

func isBufferDescriptor(t metadata.DescriptorType) bool {
	return t == metadata.DescriptorTypeUniformBuffer || t == metadata.DescriptorTypeStorageBuffer
}

func toVkShaderStages(s metadata.ShaderStageFlags) vk.ShaderStageFlags {
	var out vk.ShaderStageFlagBits
	if s&metadata.ShaderStageVertex != 0 {
		out |= vk.ShaderStageVertexBit
	}
	if s&metadata.ShaderStageFragment != 0 {
		out |= vk.ShaderStageFragmentBit
	}
	if s&metadata.ShaderStageCompute != 0 {
		out |= vk.ShaderStageComputeBit
	}
	return vk.ShaderStageFlags(out)
}

func toVkPipelineStages(s metadata.PipelineStageFlags) vk.PipelineStageFlags {
	var out vk.PipelineStageFlagBits
	if s&metadata.PipelineStageColorAttachmentOutput != 0 {
		out |= vk.PipelineStageColorAttachmentOutputBit
	}
	if s&metadata.PipelineStageAllGraphics != 0 {
		out |= vk.PipelineStageAllGraphicsBit
	}
	if s&metadata.PipelineStageAllCommands != 0 {
		out |= vk.PipelineStageAllCommandsBit
	}
	if s&metadata.PipelineStageTransfer != 0 {
		out |= vk.PipelineStageTransferBit
	}
	if s&metadata.PipelineStageComputeShader != 0 {
		out |= vk.PipelineStageComputeShaderBit
	}
	if out == 0 {
		out = vk.PipelineStageAllCommandsBit
	}
	return vk.PipelineStageFlags(out)
}

func toVkBindPoint(bp metadata.PipelineBindPoint) vk.PipelineBindPoint {
	if bp == metadata.PipelineBindPointCompute {
		return vk.PipelineBindPointCompute
	}
	return vk.PipelineBindPointGraphics
}

func toVkPresentMode(m metadata.PresentMode) vk.PresentMode {
	switch m {
	case metadata.PresentModeMailbox:
		return vk.PresentModeMailbox
	case metadata.PresentModeImmediate:
		return vk.PresentModeImmediate
	}
	return vk.PresentModeFifo
}

func toVkExtent(e metadata.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

func toVkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// blendAttachment returns the color blend state of mode, writing every channel.
func blendAttachment(mode metadata.BlendMode) vk.PipelineColorBlendAttachmentState {
	state := vk.PipelineColorBlendAttachmentState{
		BlendEnable:    vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	switch mode {
	case metadata.BlendModeAlpha:
		state.BlendEnable = vk.True
		state.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		state.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
	case metadata.BlendModeAdditive:
		state.BlendEnable = vk.True
		state.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		state.DstColorBlendFactor = vk.BlendFactorOne
	default:
		return state
	}
	state.ColorBlendOp = vk.BlendOpAdd
	state.SrcAlphaBlendFactor = vk.BlendFactorOne
	state.DstAlphaBlendFactor = vk.BlendFactorZero
	state.AlphaBlendOp = vk.BlendOpAdd
	return state
}
