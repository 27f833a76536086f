package renderer

import (
	"time"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type SyncDevice interface {
	CreateFence(signaled bool) (metadata.FenceHandle, error)
	// WaitForFence blocks until the fence is signaled. Expiry of the
	// timeout returns an error marked core.ErrWaitTimeout.
	WaitForFence(fence metadata.FenceHandle, timeout time.Duration) error
	ResetFence(fence metadata.FenceHandle) error
	// SignalFence queues an empty submission that signals the fence.
	SignalFence(fence metadata.FenceHandle) error
	DestroyFence(fence metadata.FenceHandle)
	CreateSemaphore() (metadata.SemaphoreHandle, error)
	DestroySemaphore(semaphore metadata.SemaphoreHandle)
}

type CommandDevice interface {
	// CreateCommandPool returns a pool whose buffers can be reset individually.
	CreateCommandPool() (metadata.CommandPoolHandle, error)
	// DestroyCommandPool frees the pool and every buffer allocated from it.
	DestroyCommandPool(pool metadata.CommandPoolHandle)
	AllocateCommandBuffer(pool metadata.CommandPoolHandle) (metadata.CommandBufferHandle, error)
	ResetCommandBuffer(cmd metadata.CommandBufferHandle) error
	// BeginCommandBuffer starts a one time submit recording.
	BeginCommandBuffer(cmd metadata.CommandBufferHandle) (CommandRecorder, error)
	EndCommandBuffer(cmd metadata.CommandBufferHandle) error
	Submit(info metadata.SubmitInfo) error
}

type PresentDevice interface {
	CreateSwapchain(info metadata.SwapchainCreateInfo) (metadata.SwapchainDesc, error)
	DestroySwapchain(swapchain metadata.SwapchainHandle)
	// AcquireNextImage returns core.ErrSurfaceOutOfDate when the swapchain
	// must be recreated.
	AcquireNextImage(swapchain metadata.SwapchainHandle, timeout time.Duration, signal metadata.SemaphoreHandle) (uint32, error)
	// Present returns core.ErrSurfaceOutOfDate on out of date and suboptimal.
	Present(swapchain metadata.SwapchainHandle, imageIndex uint32, wait metadata.SemaphoreHandle) error
	WaitIdle() error
}

type MemoryDevice interface {
	CreateBuffer(info metadata.BufferCreateInfo) (metadata.BufferHandle, error)
	DestroyBuffer(buffer metadata.BufferHandle)
	// WriteBuffer copies data into a host visible buffer at offset.
	WriteBuffer(buffer metadata.BufferHandle, offset uint64, data []byte) error
	CreateImage(desc metadata.ImageDesc) (metadata.ImageHandle, error)
	DestroyImage(image metadata.ImageHandle)
	CreateImageView(image metadata.ImageHandle, format metadata.Format, mipLevels uint32) (metadata.ImageViewHandle, error)
	DestroyImageView(view metadata.ImageViewHandle)
}

type DescriptorDevice interface {
	CreateDescriptorPool(maxSets uint32, sizes []metadata.DescriptorPoolSize) (metadata.DescriptorPoolHandle, error)
	// ResetDescriptorPool returns every set of the pool to it. Sets
	// allocated from it become invalid.
	ResetDescriptorPool(pool metadata.DescriptorPoolHandle) error
	DestroyDescriptorPool(pool metadata.DescriptorPoolHandle)
	// AllocateDescriptorSet returns core.ErrPoolExhausted when the pool is full.
	AllocateDescriptorSet(pool metadata.DescriptorPoolHandle, layout metadata.DescriptorSetLayoutHandle) (metadata.DescriptorSetHandle, error)
	UpdateDescriptorSet(set metadata.DescriptorSetHandle, writes []metadata.DescriptorWrite)
	CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (metadata.DescriptorSetLayoutHandle, error)
	DestroyDescriptorSetLayout(layout metadata.DescriptorSetLayoutHandle)
}

type PipelineDevice interface {
	CreateShaderModule(code []byte) (metadata.ShaderModuleHandle, error)
	DestroyShaderModule(module metadata.ShaderModuleHandle)
	CreatePipelineLayout(info metadata.PipelineLayoutCreateInfo) (metadata.PipelineLayoutHandle, error)
	DestroyPipelineLayout(layout metadata.PipelineLayoutHandle)
	CreateComputePipeline(info metadata.ComputePipelineCreateInfo) (metadata.PipelineHandle, error)
	CreateGraphicsPipeline(info metadata.GraphicsPipelineCreateInfo) (metadata.PipelineHandle, error)
	DestroyPipeline(pipeline metadata.PipelineHandle)
}

// RendererBackend is the device contract the frame lifecycle runs on.
type RendererBackend interface {
	SyncDevice
	CommandDevice
	PresentDevice
	MemoryDevice
	DescriptorDevice
	PipelineDevice
}

// CommandRecorder appends commands to a command buffer in the recording state.
type CommandRecorder interface {
	TransitionImage(image metadata.ImageHandle, from, to metadata.ImageLayout)
	// BlitImage copies src (TransferSrcOptimal) into dst (TransferDstOptimal)
	// with linear filtering, scaling between the two extents.
	BlitImage(src, dst metadata.ImageHandle, srcExtent, dstExtent metadata.Extent2D)
	CopyBuffer(src, dst metadata.BufferHandle, regions ...metadata.BufferCopy)
	BindPipeline(bindPoint metadata.PipelineBindPoint, pipeline metadata.PipelineHandle)
	BindDescriptorSets(bindPoint metadata.PipelineBindPoint, layout metadata.PipelineLayoutHandle, firstSet uint32, sets ...metadata.DescriptorSetHandle)
	PushConstants(layout metadata.PipelineLayoutHandle, stages metadata.ShaderStageFlags, offset uint32, data []byte)
	Dispatch(x, y, z uint32)
	BeginRendering(info metadata.RenderingInfo)
	EndRendering()
	SetViewport(viewport metadata.Viewport)
	SetScissor(scissor metadata.Rect2D)
	// ClearAttachment fills rect of the color attachment of the open
	// rendering scope with color.
	ClearAttachment(rect metadata.Rect2D, color math.Vec4)
	BindVertexBuffer(buffer metadata.BufferHandle, offset uint64)
	BindIndexBuffer(buffer metadata.BufferHandle, offset uint64)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
}
