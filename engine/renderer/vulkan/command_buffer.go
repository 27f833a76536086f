package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	Pool   metadata.CommandPoolHandle
	// Command buffer state.
	State VulkanCommandBufferState
}

func (vb *VulkanBackend) CreateCommandPool() (metadata.CommandPoolHandle, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: vb.context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(vb.device(), &poolCreateInfo, vb.context.Allocator, &pool); res != vk.Success {
		return metadata.InvalidHandle, VulkanResultError(res, "vkCreateCommandPool")
	}
	return vb.commandPools.Insert(pool), nil
}

// DestroyCommandPool implicitly frees the buffers allocated from the pool,
// their handles are dropped with it.
func (vb *VulkanBackend) DestroyCommandPool(h metadata.CommandPoolHandle) {
	pool, ok := vb.commandPools.Remove(h)
	if !ok {
		return
	}
	for _, cmd := range liveHandles(vb.commandBuffers) {
		if cb, ok := vb.commandBuffers.Get(cmd); ok && cb.Pool == h {
			vb.commandBuffers.Remove(cmd)
		}
	}
	vb.locks.SafeCall(CommandPoolManagement, func() error {
		vk.DestroyCommandPool(vb.device(), pool, vb.context.Allocator)
		return nil
	})
}

// AllocateCommandBuffer allocates one primary command buffer from the pool.
func (vb *VulkanBackend) AllocateCommandBuffer(h metadata.CommandPoolHandle) (metadata.CommandBufferHandle, error) {
	pool, ok := vb.commandPools.Get(h)
	if !ok {
		return metadata.InvalidHandle, unknownHandle("command pool", uint64(h))
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}

	buffers := make([]vk.CommandBuffer, 1)
	err := vb.locks.SafeCall(CommandPoolManagement, func() error {
		if res := vk.AllocateCommandBuffers(vb.device(), &allocateInfo, buffers); res != vk.Success {
			return VulkanResultError(res, "vkAllocateCommandBuffers")
		}
		return nil
	})
	if err != nil {
		return metadata.InvalidHandle, err
	}

	return vb.commandBuffers.Insert(&VulkanCommandBuffer{
		Handle: buffers[0],
		Pool:   h,
		State:  COMMAND_BUFFER_STATE_READY,
	}), nil
}

func (vb *VulkanBackend) commandBuffer(h metadata.CommandBufferHandle) (*VulkanCommandBuffer, error) {
	cb, ok := vb.commandBuffers.Get(h)
	if !ok {
		return nil, unknownHandle("command buffer", uint64(h))
	}
	return cb, nil
}

func (vb *VulkanBackend) ResetCommandBuffer(h metadata.CommandBufferHandle) error {
	cb, err := vb.commandBuffer(h)
	if err != nil {
		return err
	}
	if res := vk.ResetCommandBuffer(cb.Handle, 0); res != vk.Success {
		return VulkanResultError(res, "vkResetCommandBuffer")
	}
	cb.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (vb *VulkanBackend) BeginCommandBuffer(h metadata.CommandBufferHandle) (renderer.CommandRecorder, error) {
	cb, err := vb.commandBuffer(h)
	if err != nil {
		return nil, err
	}
	if cb.State != COMMAND_BUFFER_STATE_READY {
		return nil, errors.Mark(errors.Newf("command buffer %d is not ready for recording", h), core.ErrBackendFailure)
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(cb.Handle, &beginInfo); res != vk.Success {
		return nil, VulkanResultError(res, "vkBeginCommandBuffer")
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING

	return &VulkanCommandRecorder{backend: vb, cmd: cb}, nil
}

func (vb *VulkanBackend) EndCommandBuffer(h metadata.CommandBufferHandle) error {
	cb, err := vb.commandBuffer(h)
	if err != nil {
		return err
	}
	if res := vk.EndCommandBuffer(cb.Handle); res != vk.Success {
		return VulkanResultError(res, "vkEndCommandBuffer")
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

// Submit queues the command buffer on the graphics queue.
func (vb *VulkanBackend) Submit(info metadata.SubmitInfo) error {
	cb, err := vb.commandBuffer(info.CommandBuffer)
	if err != nil {
		return err
	}

	waits := make([]vk.Semaphore, 0, len(info.Wait))
	waitStages := make([]vk.PipelineStageFlags, 0, len(info.Wait))
	for _, w := range info.Wait {
		semaphore, ok := vb.semaphores.Get(w.Semaphore)
		if !ok {
			return unknownHandle("semaphore", uint64(w.Semaphore))
		}
		waits = append(waits, semaphore)
		waitStages = append(waitStages, toVkPipelineStages(w.Stage))
	}

	// vkQueueSubmit signals after all commands complete, so s.Stage is unused.
	signals := make([]vk.Semaphore, 0, len(info.Signal))
	for _, s := range info.Signal {
		semaphore, ok := vb.semaphores.Get(s.Semaphore)
		if !ok {
			return unknownHandle("semaphore", uint64(s.Semaphore))
		}
		signals = append(signals, semaphore)
	}

	fence := vk.NullFence
	if info.Fence != metadata.InvalidHandle {
		f, ok := vb.fences.Get(info.Fence)
		if !ok {
			return unknownHandle("fence", uint64(info.Fence))
		}
		fence = f
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}

	queue := vb.context.Device.GraphicsQueue
	err = vb.locks.SafeQueueCall(vb.context.Device.GraphicsQueueIndex, func() error {
		if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, fence); res != vk.Success {
			return VulkanResultError(res, "vkQueueSubmit")
		}
		return nil
	})
	if err != nil {
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_SUBMITTED
	return nil
}
