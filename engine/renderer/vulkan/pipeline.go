package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// VulkanPipeline holds a Vulkan pipeline and the bind point it was built for.
type VulkanPipeline struct {
	Handle    vk.Pipeline
	BindPoint vk.PipelineBindPoint
}

// Interleaved vertex layout of metadata.Vertex.
var (
	vertexBinding = vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(metadata.VertexSize),
		InputRate: vk.VertexInputRateVertex,
	}
	vertexAttributes = []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 16},
		{Location: 3, Binding: 0, Format: vk.FormatR32Sfloat, Offset: 28},
		{Location: 4, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 32},
	}
)

func (vb *VulkanBackend) CreatePipelineLayout(info metadata.PipelineLayoutCreateInfo) (metadata.PipelineLayoutHandle, error) {
	setLayouts := make([]vk.DescriptorSetLayout, 0, len(info.SetLayouts))
	for _, h := range info.SetLayouts {
		layout, ok := vb.setLayouts.Get(h)
		if !ok {
			return metadata.InvalidHandle, unknownHandle("descriptor set layout", uint64(h))
		}
		setLayouts = append(setLayouts, layout)
	}

	ranges := make([]vk.PushConstantRange, 0, len(info.PushConstants))
	for _, r := range info.PushConstants {
		ranges = append(ranges, vk.PushConstantRange{
			StageFlags: toVkShaderStages(r.Stages),
			Offset:     r.Offset,
			Size:       r.Size,
		})
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}

	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(vb.device(), &layoutInfo, vb.context.Allocator, &layout); res != vk.Success {
		return metadata.InvalidHandle, VulkanResultError(res, "vkCreatePipelineLayout")
	}
	return vb.pipelineLayouts.Insert(layout), nil
}

func (vb *VulkanBackend) DestroyPipelineLayout(h metadata.PipelineLayoutHandle) {
	if layout, ok := vb.pipelineLayouts.Remove(h); ok {
		vk.DestroyPipelineLayout(vb.device(), layout, vb.context.Allocator)
	}
}

func (vb *VulkanBackend) CreateComputePipeline(info metadata.ComputePipelineCreateInfo) (metadata.PipelineHandle, error) {
	layout, ok := vb.pipelineLayouts.Get(info.Layout)
	if !ok {
		return metadata.InvalidHandle, unknownHandle("pipeline layout", uint64(info.Layout))
	}
	module, ok := vb.shaderModules.Get(info.Shader)
	if !ok {
		return metadata.InvalidHandle, unknownHandle("shader module", uint64(info.Shader))
	}

	createInfo := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  shaderStage(vk.ShaderStageComputeBit, module, info.EntryPoint),
		Layout: layout,
	}

	pipelines := make([]vk.Pipeline, 1)
	err := vb.locks.SafeCall(PipelineManagement, func() error {
		if res := vk.CreateComputePipelines(vb.device(), vk.PipelineCache(vk.NullHandle), 1, []vk.ComputePipelineCreateInfo{createInfo}, vb.context.Allocator, pipelines); res != vk.Success {
			return VulkanResultError(res, "vkCreateComputePipelines")
		}
		return nil
	})
	if err != nil {
		return metadata.InvalidHandle, err
	}
	return vb.pipelines.Insert(&VulkanPipeline{Handle: pipelines[0], BindPoint: vk.PipelineBindPointCompute}), nil
}

// CreateGraphicsPipeline builds a triangle list pipeline against a render
// pass compatible with the requested attachment formats. Viewport and
// scissor are dynamic, depth uses a reversed range.
func (vb *VulkanBackend) CreateGraphicsPipeline(info metadata.GraphicsPipelineCreateInfo) (metadata.PipelineHandle, error) {
	layout, ok := vb.pipelineLayouts.Get(info.Layout)
	if !ok {
		return metadata.InvalidHandle, unknownHandle("pipeline layout", uint64(info.Layout))
	}
	vertexModule, ok := vb.shaderModules.Get(info.VertexShader)
	if !ok {
		return metadata.InvalidHandle, unknownHandle("shader module", uint64(info.VertexShader))
	}
	fragmentModule, ok := vb.shaderModules.Get(info.FragmentShader)
	if !ok {
		return metadata.InvalidHandle, unknownHandle("shader module", uint64(info.FragmentShader))
	}

	pass, err := vb.renderpasses.Compatible(info.ColorFormat, info.DepthFormat)
	if err != nil {
		return metadata.InvalidHandle, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		shaderStage(vk.ShaderStageVertexBit, vertexModule, "main"),
		shaderStage(vk.ShaderStageFragmentBit, fragmentModule, "main"),
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{vertexBinding},
		VertexAttributeDescriptionCount: uint32(len(vertexAttributes)),
		PVertexAttributeDescriptions:    vertexAttributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// Counts only, both are set while recording.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		SampleShadingEnable:  vk.False,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       toVkBool(info.DepthTest),
		DepthWriteEnable:      toVkBool(info.DepthWrite),
		DepthCompareOp:        vk.CompareOpGreaterOrEqual,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
		MinDepthBounds:        0.0,
		MaxDepthBounds:        1.0,
	}
	if !info.DepthTest {
		depthStencil.DepthCompareOp = vk.CompareOpNever
	}

	colorBlending := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment(info.Blend)},
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlending,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          pass.Handle,
		Subpass:             0,
	}
	if info.DepthFormat != metadata.FormatUndefined {
		pipelineInfo.PDepthStencilState = &depthStencil
	}

	pipelines := make([]vk.Pipeline, 1)
	err = vb.locks.SafeCall(PipelineManagement, func() error {
		if res := vk.CreateGraphicsPipelines(vb.device(), vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{pipelineInfo}, vb.context.Allocator, pipelines); res != vk.Success {
			return VulkanResultError(res, "vkCreateGraphicsPipelines")
		}
		return nil
	})
	if err != nil {
		return metadata.InvalidHandle, err
	}
	return vb.pipelines.Insert(&VulkanPipeline{Handle: pipelines[0], BindPoint: vk.PipelineBindPointGraphics}), nil
}

func (vb *VulkanBackend) DestroyPipeline(h metadata.PipelineHandle) {
	if pipeline, ok := vb.pipelines.Remove(h); ok {
		vk.DestroyPipeline(vb.device(), pipeline.Handle, vb.context.Allocator)
	}
}
