package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	// Host visible buffers stay mapped for their whole life.
	mapped unsafe.Pointer
}

func (vb *VulkanBackend) CreateBuffer(info metadata.BufferCreateInfo) (metadata.BufferHandle, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(info.Size),
		Usage:       toVkBufferUsage(info.Usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	err := vb.locks.SafeCall(BufferManagement, func() error {
		if res := vk.CreateBuffer(vb.device(), &bufferCreateInfo, vb.context.Allocator, &buffer); res != vk.Success {
			return VulkanResultError(res, "vkCreateBuffer")
		}
		return nil
	})
	if err != nil {
		return metadata.InvalidHandle, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vb.device(), buffer, &requirements)
	memory, err := vb.allocateMemory(requirements, info.MemoryUsage)
	if err != nil {
		vk.DestroyBuffer(vb.device(), buffer, vb.context.Allocator)
		return metadata.InvalidHandle, err
	}
	if res := vk.BindBufferMemory(vb.device(), buffer, memory, 0); res != vk.Success {
		vk.FreeMemory(vb.device(), memory, vb.context.Allocator)
		vk.DestroyBuffer(vb.device(), buffer, vb.context.Allocator)
		return metadata.InvalidHandle, VulkanResultError(res, "vkBindBufferMemory")
	}

	out := &VulkanBuffer{Handle: buffer, Memory: memory, Size: info.Size}
	if info.MemoryUsage.HostVisible() {
		var data unsafe.Pointer
		if res := vk.MapMemory(vb.device(), memory, 0, vk.DeviceSize(vk.WholeSize), 0, &data); res != vk.Success {
			vk.FreeMemory(vb.device(), memory, vb.context.Allocator)
			vk.DestroyBuffer(vb.device(), buffer, vb.context.Allocator)
			return metadata.InvalidHandle, VulkanResultError(res, "vkMapMemory")
		}
		out.mapped = data
	}
	return vb.buffers.Insert(out), nil
}

func (vb *VulkanBackend) DestroyBuffer(h metadata.BufferHandle) {
	buf, ok := vb.buffers.Remove(h)
	if !ok {
		return
	}
	vb.locks.SafeCall(BufferManagement, func() error {
		if buf.mapped != nil {
			vk.UnmapMemory(vb.device(), buf.Memory)
		}
		vk.DestroyBuffer(vb.device(), buf.Handle, vb.context.Allocator)
		vk.FreeMemory(vb.device(), buf.Memory, vb.context.Allocator)
		return nil
	})
}

// WriteBuffer copies into the persistent mapping. Memory is coherent so no
// flush is needed.
func (vb *VulkanBackend) WriteBuffer(h metadata.BufferHandle, offset uint64, data []byte) error {
	buf, ok := vb.buffers.Get(h)
	if !ok {
		return unknownHandle("buffer", uint64(h))
	}
	if buf.mapped == nil {
		return errors.Mark(errors.Newf("buffer %d is not host visible", h), core.ErrBackendFailure)
	}
	if offset+uint64(len(data)) > buf.Size {
		return errors.Mark(errors.Newf("write of %d bytes at %d overflows buffer of %d", len(data), offset, buf.Size), core.ErrBackendFailure)
	}
	if len(data) == 0 {
		return nil
	}
	vk.Memcopy(unsafe.Add(buf.mapped, offset), data)
	return nil
}
