package metadata

// Handles are opaque tokens issued by a backend. A handle is only meaningful
// to the backend that issued it and only while the owning object lives.
// InvalidHandle is never issued.
const InvalidHandle = 0

type FenceHandle uint64
type SemaphoreHandle uint64
type CommandPoolHandle uint64
type CommandBufferHandle uint64
type SwapchainHandle uint64
type BufferHandle uint64
type ImageHandle uint64
type ImageViewHandle uint64
type DescriptorPoolHandle uint64
type DescriptorSetHandle uint64
type DescriptorSetLayoutHandle uint64
type ShaderModuleHandle uint64
type PipelineLayoutHandle uint64
type PipelineHandle uint64
