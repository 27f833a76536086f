package vulkan

import (
	"sync"

	"github.com/dolthub/swiss"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// RenderpassKey identifies a single subpass render pass. A zero DepthFormat
// means no depth attachment. ClearDepth switches the depth load op from
// LOAD to CLEAR.
type RenderpassKey struct {
	ColorFormat metadata.Format
	ColorLayout metadata.ImageLayout
	DepthFormat metadata.Format
	DepthLayout metadata.ImageLayout
	ClearDepth  bool
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	Key    RenderpassKey
}

// RenderpassCache builds render passes on first use and keeps them until
// shutdown. Attachments are loaded and stored in the layout they already
// have, so a pass behaves like a dynamic rendering scope.
type RenderpassCache struct {
	context *VulkanContext

	mu     sync.Mutex
	passes *swiss.Map[RenderpassKey, *VulkanRenderpass]
}

func NewRenderpassCache(context *VulkanContext) *RenderpassCache {
	return &RenderpassCache{
		context: context,
		passes:  swiss.NewMap[RenderpassKey, *VulkanRenderpass](8),
	}
}

func (c *RenderpassCache) Get(key RenderpassKey) (*VulkanRenderpass, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pass, ok := c.passes.Get(key); ok {
		return pass, nil
	}
	pass, err := RenderpassCreate(c.context, key)
	if err != nil {
		return nil, err
	}
	c.passes.Put(key, pass)
	return pass, nil
}

// Compatible returns a pass usable to build pipelines rendering to the
// given formats. Compatibility ignores layouts and load operations.
func (c *RenderpassCache) Compatible(color, depth metadata.Format) (*VulkanRenderpass, error) {
	key := RenderpassKey{
		ColorFormat: color,
		ColorLayout: metadata.ImageLayoutColorAttachmentOptimal,
	}
	if depth != metadata.FormatUndefined {
		key.DepthFormat = depth
		key.DepthLayout = metadata.ImageLayoutDepthAttachmentOptimal
	}
	return c.Get(key)
}

func (c *RenderpassCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.passes.Iter(func(_ RenderpassKey, pass *VulkanRenderpass) bool {
		pass.Destroy(c.context)
		return false
	})
	c.passes.Clear()
}

func RenderpassCreate(context *VulkanContext, key RenderpassKey) (*VulkanRenderpass, error) {
	colorLayout := toVkImageLayout(key.ColorLayout)
	attachmentDescriptions := []vk.AttachmentDescription{{
		Format:         toVkFormat(key.ColorFormat),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpLoad,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  colorLayout,
		FinalLayout:    colorLayout,
	}}

	colorReference := vk.AttachmentReference{
		Attachment: 0,
		Layout:     colorLayout,
	}

	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorReference},
	}

	if key.DepthFormat != metadata.FormatUndefined {
		depthLayout := toVkImageLayout(key.DepthLayout)
		depthLoad := vk.AttachmentLoadOpLoad
		if key.ClearDepth {
			depthLoad = vk.AttachmentLoadOpClear
		}
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         toVkFormat(key.DepthFormat),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         depthLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  depthLayout,
			FinalLayout:    depthLayout,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     depthLayout,
		}
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, VulkanResultError(res, "vkCreateRenderPass")
	}
	core.LogDebug("render pass created for %+v", key)

	return &VulkanRenderpass{Handle: handle, Key: key}, nil
}

func (r *VulkanRenderpass) Destroy(context *VulkanContext) {
	if r.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(context.Device.LogicalDevice, r.Handle, context.Allocator)
		r.Handle = vk.NullRenderPass
	}
}
