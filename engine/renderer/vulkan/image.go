package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type VulkanImage struct {
	Handle    vk.Image
	Memory    vk.DeviceMemory
	Format    metadata.Format
	Extent    metadata.Extent3D
	MipLevels uint32
	// Swapchain images belong to their swapchain.
	owned bool
}

type VulkanImageView struct {
	Handle vk.ImageView
	Image  metadata.ImageHandle
}

// allocateMemory allocates memory satisfying requirements with the
// placement of usage.
func (vb *VulkanBackend) allocateMemory(requirements vk.MemoryRequirements, usage metadata.MemoryUsage) (vk.DeviceMemory, error) {
	requirements.Deref()
	memoryType := vb.context.FindMemoryIndex(requirements.MemoryTypeBits, memoryPropertiesFor(usage))
	if memoryType == -1 {
		return vk.NullDeviceMemory, errors.Mark(errors.New("required memory type not found"), core.ErrOutOfMemory)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(vb.device(), &allocateInfo, vb.context.Allocator, &memory); res != vk.Success {
		return vk.NullDeviceMemory, VulkanResultError(res, "vkAllocateMemory")
	}
	return memory, nil
}

func (vb *VulkanBackend) CreateImage(desc metadata.ImageDesc) (metadata.ImageHandle, error) {
	mipLevels := desc.MipLevels
	if mipLevels == 0 {
		mipLevels = 1
	}
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    toVkFormat(desc.Format),
		Extent: vk.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  max(desc.Extent.Depth, 1),
		},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         toVkImageUsage(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var image vk.Image
	err := vb.locks.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImage(vb.device(), &imageCreateInfo, vb.context.Allocator, &image); res != vk.Success {
			return VulkanResultError(res, "vkCreateImage")
		}
		return nil
	})
	if err != nil {
		return metadata.InvalidHandle, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(vb.device(), image, &requirements)
	memory, err := vb.allocateMemory(requirements, desc.MemoryUsage)
	if err != nil {
		vk.DestroyImage(vb.device(), image, vb.context.Allocator)
		return metadata.InvalidHandle, err
	}
	if res := vk.BindImageMemory(vb.device(), image, memory, 0); res != vk.Success {
		vk.FreeMemory(vb.device(), memory, vb.context.Allocator)
		vk.DestroyImage(vb.device(), image, vb.context.Allocator)
		return metadata.InvalidHandle, VulkanResultError(res, "vkBindImageMemory")
	}

	return vb.images.Insert(&VulkanImage{
		Handle:    image,
		Memory:    memory,
		Format:    desc.Format,
		Extent:    desc.Extent,
		MipLevels: mipLevels,
		owned:     true,
	}), nil
}

// DestroyImage releases an image created by CreateImage. Swapchain images
// are released with their swapchain and ignored here.
func (vb *VulkanBackend) DestroyImage(h metadata.ImageHandle) {
	img, ok := vb.images.Get(h)
	if !ok || !img.owned {
		return
	}
	vb.images.Remove(h)
	vb.locks.SafeCall(ImageManagement, func() error {
		vk.DestroyImage(vb.device(), img.Handle, vb.context.Allocator)
		vk.FreeMemory(vb.device(), img.Memory, vb.context.Allocator)
		return nil
	})
}

func (vb *VulkanBackend) CreateImageView(h metadata.ImageHandle, format metadata.Format, mipLevels uint32) (metadata.ImageViewHandle, error) {
	img, ok := vb.images.Get(h)
	if !ok {
		return metadata.InvalidHandle, unknownHandle("image", uint64(h))
	}
	if mipLevels == 0 {
		mipLevels = 1
	}

	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   toVkFormat(format),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFor(format),
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(vb.device(), &viewCreateInfo, vb.context.Allocator, &view); res != vk.Success {
		return metadata.InvalidHandle, VulkanResultError(res, "vkCreateImageView")
	}
	return vb.views.Insert(&VulkanImageView{Handle: view, Image: h}), nil
}

func (vb *VulkanBackend) DestroyImageView(h metadata.ImageViewHandle) {
	view, ok := vb.views.Remove(h)
	if !ok {
		return
	}
	vb.framebuffers.Evict(h)
	vk.DestroyImageView(vb.device(), view.Handle, vb.context.Allocator)
}
