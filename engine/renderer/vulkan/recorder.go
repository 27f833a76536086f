package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// VulkanCommandRecorder records into a command buffer in the recording
// state. Commands naming unknown handles are dropped with an error log; a
// validation layer would reject them anyway.
type VulkanCommandRecorder struct {
	backend *VulkanBackend
	cmd     *VulkanCommandBuffer
}

func (r *VulkanCommandRecorder) missing(kind string, h uint64) {
	core.LogError("command recorder: unknown %s %d, command dropped", kind, h)
}

// TransitionImage records a full pipeline barrier over every mip level and
// layer of the image. Coarse, but the frame graph is short.
func (r *VulkanCommandRecorder) TransitionImage(h metadata.ImageHandle, from, to metadata.ImageLayout) {
	img, ok := r.backend.images.Get(h)
	if !ok {
		r.missing("image", uint64(h))
		return
	}

	aspect := aspectFor(img.Format)
	if to == metadata.ImageLayoutDepthAttachmentOptimal {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessMemoryWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessMemoryWriteBit | vk.AccessMemoryReadBit),
		OldLayout:           toVkImageLayout(from),
		NewLayout:           toVkImageLayout(to),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     vk.RemainingMipLevels,
			BaseArrayLayer: 0,
			LayerCount:     vk.RemainingArrayLayers,
		},
	}

	vk.CmdPipelineBarrier(
		r.cmd.Handle,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier},
	)
}

func (r *VulkanCommandRecorder) BlitImage(src, dst metadata.ImageHandle, srcExtent, dstExtent metadata.Extent2D) {
	srcImg, ok := r.backend.images.Get(src)
	if !ok {
		r.missing("image", uint64(src))
		return
	}
	dstImg, ok := r.backend.images.Get(dst)
	if !ok {
		r.missing("image", uint64(dst))
		return
	}

	layers := vk.ImageSubresourceLayers{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	region := vk.ImageBlit{
		SrcSubresource: layers,
		SrcOffsets: [2]vk.Offset3D{
			{},
			{X: int32(srcExtent.Width), Y: int32(srcExtent.Height), Z: 1},
		},
		DstSubresource: layers,
		DstOffsets: [2]vk.Offset3D{
			{},
			{X: int32(dstExtent.Width), Y: int32(dstExtent.Height), Z: 1},
		},
	}

	vk.CmdBlitImage(
		r.cmd.Handle,
		srcImg.Handle, vk.ImageLayoutTransferSrcOptimal,
		dstImg.Handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region},
		vk.FilterLinear,
	)
}

func (r *VulkanCommandRecorder) CopyBuffer(src, dst metadata.BufferHandle, regions ...metadata.BufferCopy) {
	srcBuf, ok := r.backend.buffers.Get(src)
	if !ok {
		r.missing("buffer", uint64(src))
		return
	}
	dstBuf, ok := r.backend.buffers.Get(dst)
	if !ok {
		r.missing("buffer", uint64(dst))
		return
	}
	if len(regions) == 0 {
		return
	}

	copies := make([]vk.BufferCopy, len(regions))
	for i, region := range regions {
		copies[i] = vk.BufferCopy{
			SrcOffset: vk.DeviceSize(region.SrcOffset),
			DstOffset: vk.DeviceSize(region.DstOffset),
			Size:      vk.DeviceSize(region.Size),
		}
	}
	vk.CmdCopyBuffer(r.cmd.Handle, srcBuf.Handle, dstBuf.Handle, uint32(len(copies)), copies)
}

func (r *VulkanCommandRecorder) BindPipeline(bindPoint metadata.PipelineBindPoint, h metadata.PipelineHandle) {
	pipeline, ok := r.backend.pipelines.Get(h)
	if !ok {
		r.missing("pipeline", uint64(h))
		return
	}
	vk.CmdBindPipeline(r.cmd.Handle, toVkBindPoint(bindPoint), pipeline.Handle)
}

func (r *VulkanCommandRecorder) BindDescriptorSets(bindPoint metadata.PipelineBindPoint, layout metadata.PipelineLayoutHandle, firstSet uint32, sets ...metadata.DescriptorSetHandle) {
	pipelineLayout, ok := r.backend.pipelineLayouts.Get(layout)
	if !ok {
		r.missing("pipeline layout", uint64(layout))
		return
	}

	native := make([]vk.DescriptorSet, 0, len(sets))
	for _, h := range sets {
		set, ok := r.backend.descriptorSets.Get(h)
		if !ok {
			r.missing("descriptor set", uint64(h))
			return
		}
		native = append(native, set.Handle)
	}
	vk.CmdBindDescriptorSets(r.cmd.Handle, toVkBindPoint(bindPoint), pipelineLayout, firstSet, uint32(len(native)), native, 0, nil)
}

func (r *VulkanCommandRecorder) PushConstants(layout metadata.PipelineLayoutHandle, stages metadata.ShaderStageFlags, offset uint32, data []byte) {
	pipelineLayout, ok := r.backend.pipelineLayouts.Get(layout)
	if !ok {
		r.missing("pipeline layout", uint64(layout))
		return
	}
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(r.cmd.Handle, pipelineLayout, toVkShaderStages(stages), offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (r *VulkanCommandRecorder) Dispatch(x, y, z uint32) {
	vk.CmdDispatch(r.cmd.Handle, x, y, z)
}

// BeginRendering opens a render pass that keeps the attachments in the
// layouts they are already in. Depth is cleared when the info asks for it.
func (r *VulkanCommandRecorder) BeginRendering(info metadata.RenderingInfo) {
	key := RenderpassKey{
		ColorFormat: info.ColorFormat,
		ColorLayout: info.ColorLayout,
	}
	if info.DepthView != metadata.InvalidHandle {
		key.DepthFormat = info.DepthFormat
		key.DepthLayout = info.DepthLayout
		key.ClearDepth = info.ClearDepth
	}

	pass, err := r.backend.renderpasses.Get(key)
	if err != nil {
		core.LogError("command recorder: %s", err)
		return
	}

	views := []vk.ImageView{}
	colorView, ok := r.backend.views.Get(info.ColorView)
	if !ok {
		r.missing("image view", uint64(info.ColorView))
		return
	}
	views = append(views, colorView.Handle)
	fbKey := FramebufferKey{Renderpass: pass.Handle, Color: info.ColorView, Width: info.Extent.Width, Height: info.Extent.Height}
	if info.DepthView != metadata.InvalidHandle {
		depthView, ok := r.backend.views.Get(info.DepthView)
		if !ok {
			r.missing("image view", uint64(info.DepthView))
			return
		}
		views = append(views, depthView.Handle)
		fbKey.Depth = info.DepthView
	}

	framebuffer, err := r.backend.framebuffers.Get(fbKey, views)
	if err != nil {
		core.LogError("command recorder: %s", err)
		return
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: toVkExtent(info.Extent),
		},
	}
	if key.ClearDepth {
		// Indexed by attachment; the color entry is ignored by its LOAD op.
		clearValues := []vk.ClearValue{
			vk.NewClearValue([]float32{0, 0, 0, 0}),
			vk.NewClearDepthStencil(info.DepthClearValue, 0),
		}
		beginInfo.ClearValueCount = uint32(len(clearValues))
		beginInfo.PClearValues = clearValues
	}
	vk.CmdBeginRenderPass(r.cmd.Handle, &beginInfo, vk.SubpassContentsInline)
	r.cmd.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (r *VulkanCommandRecorder) EndRendering() {
	if r.cmd.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return
	}
	vk.CmdEndRenderPass(r.cmd.Handle)
	r.cmd.State = COMMAND_BUFFER_STATE_RECORDING
}

func (r *VulkanCommandRecorder) SetViewport(viewport metadata.Viewport) {
	vk.CmdSetViewport(r.cmd.Handle, 0, 1, []vk.Viewport{{
		X:        viewport.X,
		Y:        viewport.Y,
		Width:    viewport.Width,
		Height:   viewport.Height,
		MinDepth: viewport.MinDepth,
		MaxDepth: viewport.MaxDepth,
	}})
}

func (r *VulkanCommandRecorder) SetScissor(scissor metadata.Rect2D) {
	vk.CmdSetScissor(r.cmd.Handle, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: scissor.Offset.X, Y: scissor.Offset.Y},
		Extent: toVkExtent(scissor.Extent),
	}})
}

func (r *VulkanCommandRecorder) ClearAttachment(rect metadata.Rect2D, color math.Vec4) {
	if r.cmd.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return
	}
	attachments := []vk.ClearAttachment{{
		AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		ColorAttachment: 0,
		ClearValue:      vk.NewClearValue(color[:]),
	}}
	rects := []vk.ClearRect{{
		Rect: vk.Rect2D{
			Offset: vk.Offset2D{X: rect.Offset.X, Y: rect.Offset.Y},
			Extent: toVkExtent(rect.Extent),
		},
		BaseArrayLayer: 0,
		LayerCount:     1,
	}}
	vk.CmdClearAttachments(r.cmd.Handle, uint32(len(attachments)), attachments, uint32(len(rects)), rects)
}

func (r *VulkanCommandRecorder) BindVertexBuffer(h metadata.BufferHandle, offset uint64) {
	buf, ok := r.backend.buffers.Get(h)
	if !ok {
		r.missing("buffer", uint64(h))
		return
	}
	vk.CmdBindVertexBuffers(r.cmd.Handle, 0, 1, []vk.Buffer{buf.Handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (r *VulkanCommandRecorder) BindIndexBuffer(h metadata.BufferHandle, offset uint64) {
	buf, ok := r.backend.buffers.Get(h)
	if !ok {
		r.missing("buffer", uint64(h))
		return
	}
	vk.CmdBindIndexBuffer(r.cmd.Handle, buf.Handle, vk.DeviceSize(offset), vk.IndexTypeUint32)
}

func (r *VulkanCommandRecorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(r.cmd.Handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}
