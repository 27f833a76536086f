package vulkan

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	lmath "github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	// Handles of the swapchain images, registered as non owned images.
	Images []metadata.ImageHandle
}

// CreateSwapchain builds a swapchain for the current surface. The surface
// extent wins over the requested size when it imposes one.
func (vb *VulkanBackend) CreateSwapchain(info metadata.SwapchainCreateInfo) (metadata.SwapchainDesc, error) {
	support, err := DeviceQuerySwapchainSupport(vb.context.Device.PhysicalDevice, vb.context.Surface)
	if err != nil {
		return metadata.SwapchainDesc{}, err
	}
	if len(support.Formats) == 0 {
		return metadata.SwapchainDesc{}, errors.Mark(errors.New("surface reports no formats"), core.ErrBackendFailure)
	}
	vb.context.Device.SwapchainSupport = support

	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(support.Formats, toVkFormat(info.Format)),
		Extent:      chooseExtent(support.Capabilities, info.Width, info.Height),
	}
	presentMode := choosePresentMode(support.PresentModes, toVkPresentMode(info.PresentMode))

	capabilities := support.Capabilities
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vb.context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       toVkImageUsage(info.Usage),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	// Setup the queue family indices
	device := vb.context.Device
	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{device.GraphicsQueueIndex, device.PresentQueueIndex}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	err = vb.locks.SafeCall(SwapchainManagement, func() error {
		if res := vk.CreateSwapchain(vb.device(), &swapchainCreateInfo, vb.context.Allocator, &handle); res != vk.Success {
			return VulkanResultError(res, "vkCreateSwapchain")
		}
		return nil
	})
	if err != nil {
		return metadata.SwapchainDesc{}, err
	}
	swapchain.Handle = handle

	var count uint32
	if res := vk.GetSwapchainImages(vb.device(), handle, &count, nil); res != vk.Success {
		vk.DestroySwapchain(vb.device(), handle, vb.context.Allocator)
		return metadata.SwapchainDesc{}, VulkanResultError(res, "vkGetSwapchainImages")
	}
	images := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(vb.device(), handle, &count, images); res != vk.Success {
		vk.DestroySwapchain(vb.device(), handle, vb.context.Allocator)
		return metadata.SwapchainDesc{}, VulkanResultError(res, "vkGetSwapchainImages")
	}

	format := fromVkFormat(swapchain.ImageFormat.Format)
	extent := metadata.Extent2D{Width: swapchain.Extent.Width, Height: swapchain.Extent.Height}
	for _, image := range images {
		swapchain.Images = append(swapchain.Images, vb.images.Insert(&VulkanImage{
			Handle:    image,
			Format:    format,
			Extent:    metadata.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
			MipLevels: 1,
		}))
	}

	core.LogInfo("Swapchain created: %dx%d, %d images.", extent.Width, extent.Height, count)
	return metadata.SwapchainDesc{
		Swapchain: vb.swapchains.Insert(swapchain),
		Format:    format,
		Extent:    extent,
		Images:    swapchain.Images,
	}, nil
}

func (vb *VulkanBackend) DestroySwapchain(h metadata.SwapchainHandle) {
	swapchain, ok := vb.swapchains.Remove(h)
	if !ok {
		return
	}
	for _, image := range swapchain.Images {
		vb.images.Remove(image)
	}
	vb.locks.SafeCall(SwapchainManagement, func() error {
		vk.DestroySwapchain(vb.device(), swapchain.Handle, vb.context.Allocator)
		return nil
	})
}

// AcquireNextImage maps VK_ERROR_OUT_OF_DATE_KHR to core.ErrSurfaceOutOfDate.
// A suboptimal image is still usable and its semaphore is signaled, so it
// counts as success; the next present reports it.
func (vb *VulkanBackend) AcquireNextImage(h metadata.SwapchainHandle, timeout time.Duration, signal metadata.SemaphoreHandle) (uint32, error) {
	swapchain, ok := vb.swapchains.Get(h)
	if !ok {
		return 0, unknownHandle("swapchain", uint64(h))
	}
	semaphore, ok := vb.semaphores.Get(signal)
	if !ok {
		return 0, unknownHandle("semaphore", uint64(signal))
	}

	var index uint32
	var result vk.Result
	vb.locks.SafeCall(SwapchainManagement, func() error {
		result = vk.AcquireNextImage(vb.device(), swapchain.Handle, uint64(timeout.Nanoseconds()), semaphore, vk.NullFence, &index)
		return nil
	})
	switch result {
	case vk.Success, vk.Suboptimal:
		return index, nil
	}
	return 0, VulkanResultError(result, "vkAcquireNextImage")
}

// Present reports both out of date and suboptimal as core.ErrSurfaceOutOfDate.
func (vb *VulkanBackend) Present(h metadata.SwapchainHandle, imageIndex uint32, wait metadata.SemaphoreHandle) error {
	swapchain, ok := vb.swapchains.Get(h)
	if !ok {
		return unknownHandle("swapchain", uint64(h))
	}
	semaphore, ok := vb.semaphores.Get(wait)
	if !ok {
		return unknownHandle("semaphore", uint64(wait))
	}

	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{semaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	queue := vb.context.Device.PresentQueue
	return vb.locks.SafeQueueCall(vb.context.Device.PresentQueueIndex, func() error {
		return VulkanResultError(vk.QueuePresent(queue, &presentInfo), "vkQueuePresent")
	})
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat, wanted vk.Format) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == wanted && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	core.LogWarn("Requested swapchain format unavailable, using %d.", formats[0].Format)
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode, wanted vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == wanted {
			return mode
		}
	}
	// FIFO is always supported.
	return vk.PresentModeFifo
}

func chooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	minExtent := capabilities.MinImageExtent
	maxExtent := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  lmath.Clamp(width, minExtent.Width, maxExtent.Width),
		Height: lmath.Clamp(height, minExtent.Height, maxExtent.Height),
	}
}
