package metadata

type SemaphoreSubmit struct {
	Semaphore SemaphoreHandle
	Stage     PipelineStageFlags
}

// SubmitInfo is one queue submission. Wait stages gate the commands that
// follow them. Signal stages are ignored: the submit path has no per-signal
// stage, so every signal fires once the whole batch completes.
type SubmitInfo struct {
	CommandBuffer CommandBufferHandle
	Wait          []SemaphoreSubmit
	Signal        []SemaphoreSubmit
	Fence         FenceHandle
}

type SwapchainCreateInfo struct {
	Width       uint32
	Height      uint32
	Format      Format
	ColorSpace  ColorSpace
	PresentMode PresentMode
	Usage       ImageUsageFlags
}

// SwapchainDesc describes a created swapchain. Extent may differ from the
// requested size when the surface imposes its own.
type SwapchainDesc struct {
	Swapchain SwapchainHandle
	Format    Format
	Extent    Extent2D
	Images    []ImageHandle
}

// RenderingInfo describes a rendering scope. Color is always loaded and
// stored since the compute background fills it. Depth is loaded unless
// ClearDepth is set, in which case it starts at DepthClearValue.
type RenderingInfo struct {
	Extent      Extent2D
	ColorView   ImageViewHandle
	ColorFormat Format
	ColorLayout ImageLayout
	// Optional, InvalidHandle when absent.
	DepthView       ImageViewHandle
	DepthFormat     Format
	DepthLayout     ImageLayout
	ClearDepth      bool
	DepthClearValue float32
}

type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

type PoolSizeRatio struct {
	Type  DescriptorType
	Ratio float32
}

type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStageFlags
}

// DescriptorWrite targets one binding of a set. Buffer fields are used for
// buffer descriptors, image fields for image descriptors.
type DescriptorWrite struct {
	Binding     uint32
	Type        DescriptorType
	Buffer      BufferHandle
	Offset      uint64
	Range       uint64
	ImageView   ImageViewHandle
	ImageLayout ImageLayout
}

type PushConstantRange struct {
	Stages ShaderStageFlags
	Offset uint32
	Size   uint32
}

type PipelineLayoutCreateInfo struct {
	SetLayouts    []DescriptorSetLayoutHandle
	PushConstants []PushConstantRange
}

type ComputePipelineCreateInfo struct {
	Layout     PipelineLayoutHandle
	Shader     ShaderModuleHandle
	EntryPoint string
}

type GraphicsPipelineCreateInfo struct {
	Layout         PipelineLayoutHandle
	VertexShader   ShaderModuleHandle
	FragmentShader ShaderModuleHandle
	ColorFormat    Format
	DepthFormat    Format
	DepthTest      bool
	DepthWrite     bool
	Blend          BlendMode
}
