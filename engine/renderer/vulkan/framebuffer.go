package vulkan

import (
	"sync"

	"github.com/dolthub/swiss"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type FramebufferKey struct {
	Renderpass    vk.RenderPass
	Color         metadata.ImageViewHandle
	Depth         metadata.ImageViewHandle
	Width, Height uint32
}

// FramebufferCache keeps one framebuffer per render pass, view and extent
// combination. Entries referencing a view are evicted when the view dies.
type FramebufferCache struct {
	context *VulkanContext

	mu           sync.Mutex
	framebuffers *swiss.Map[FramebufferKey, vk.Framebuffer]
}

func NewFramebufferCache(context *VulkanContext) *FramebufferCache {
	return &FramebufferCache{
		context:      context,
		framebuffers: swiss.NewMap[FramebufferKey, vk.Framebuffer](8),
	}
}

// Get returns the cached framebuffer for key, creating it from attachments.
func (c *FramebufferCache) Get(key FramebufferKey, attachments []vk.ImageView) (vk.Framebuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fb, ok := c.framebuffers.Get(key); ok {
		return fb, nil
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      key.Renderpass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           key.Width,
		Height:          key.Height,
		Layers:          1,
	}

	var fb vk.Framebuffer
	if res := vk.CreateFramebuffer(c.context.Device.LogicalDevice, &framebufferCreateInfo, c.context.Allocator, &fb); res != vk.Success {
		return vk.NullFramebuffer, VulkanResultError(res, "vkCreateFramebuffer")
	}
	c.framebuffers.Put(key, fb)
	return fb, nil
}

// Evict destroys every framebuffer that references view. The caller
// guarantees the device no longer uses them.
func (c *FramebufferCache) Evict(view metadata.ImageViewHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []FramebufferKey
	c.framebuffers.Iter(func(key FramebufferKey, _ vk.Framebuffer) bool {
		if key.Color == view || key.Depth == view {
			stale = append(stale, key)
		}
		return false
	})
	for _, key := range stale {
		fb, _ := c.framebuffers.Get(key)
		vk.DestroyFramebuffer(c.context.Device.LogicalDevice, fb, c.context.Allocator)
		c.framebuffers.Delete(key)
	}
}

func (c *FramebufferCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.framebuffers.Count()
}

func (c *FramebufferCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.framebuffers.Iter(func(_ FramebufferKey, fb vk.Framebuffer) bool {
		vk.DestroyFramebuffer(c.context.Device.LogicalDevice, fb, c.context.Allocator)
		return false
	})
	c.framebuffers.Clear()
}
