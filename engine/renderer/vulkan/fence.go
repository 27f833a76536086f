package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

var errUnknownHandle = errors.New("unknown handle")

func unknownHandle(kind string, h uint64) error {
	return errors.Mark(errors.Wrapf(errUnknownHandle, "%s %d", kind, h), core.ErrBackendFailure)
}

func (vb *VulkanBackend) CreateFence(signaled bool) (metadata.FenceHandle, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	// Make sure to signal the fence if required.
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if res := vk.CreateFence(vb.device(), &fenceCreateInfo, vb.context.Allocator, &fence); res != vk.Success {
		return metadata.InvalidHandle, VulkanResultError(res, "vkCreateFence")
	}
	return vb.fences.Insert(fence), nil
}

func (vb *VulkanBackend) WaitForFence(h metadata.FenceHandle, timeout time.Duration) error {
	fence, ok := vb.fences.Get(h)
	if !ok {
		return unknownHandle("fence", uint64(h))
	}
	result := vk.WaitForFences(vb.device(), 1, []vk.Fence{fence}, vk.True, uint64(timeout.Nanoseconds()))
	if result != vk.Success {
		core.LogError("vk_fence_wait - %s", VulkanResultString(result))
		return VulkanResultError(result, "vkWaitForFences")
	}
	return nil
}

func (vb *VulkanBackend) ResetFence(h metadata.FenceHandle) error {
	fence, ok := vb.fences.Get(h)
	if !ok {
		return unknownHandle("fence", uint64(h))
	}
	if res := vk.ResetFences(vb.device(), 1, []vk.Fence{fence}); res != vk.Success {
		return VulkanResultError(res, "vkResetFences")
	}
	return nil
}

// SignalFence submits no work and signals the fence once the queue drains.
func (vb *VulkanBackend) SignalFence(h metadata.FenceHandle) error {
	fence, ok := vb.fences.Get(h)
	if !ok {
		return unknownHandle("fence", uint64(h))
	}
	queue := vb.context.Device.GraphicsQueue
	return vb.locks.SafeQueueCall(vb.context.Device.GraphicsQueueIndex, func() error {
		if res := vk.QueueSubmit(queue, 0, nil, fence); res != vk.Success {
			return VulkanResultError(res, "vkQueueSubmit")
		}
		return nil
	})
}

func (vb *VulkanBackend) DestroyFence(h metadata.FenceHandle) {
	if fence, ok := vb.fences.Remove(h); ok {
		vk.DestroyFence(vb.device(), fence, vb.context.Allocator)
	}
}

func (vb *VulkanBackend) CreateSemaphore() (metadata.SemaphoreHandle, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(vb.device(), &semaphoreCreateInfo, vb.context.Allocator, &semaphore); res != vk.Success {
		return metadata.InvalidHandle, VulkanResultError(res, "vkCreateSemaphore")
	}
	return vb.semaphores.Insert(semaphore), nil
}

func (vb *VulkanBackend) DestroySemaphore(h metadata.SemaphoreHandle) {
	if semaphore, ok := vb.semaphores.Remove(h); ok {
		vk.DestroySemaphore(vb.device(), semaphore, vb.context.Allocator)
	}
}
