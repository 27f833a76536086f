package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type VulkanDescriptorSet struct {
	Handle vk.DescriptorSet
	Pool   metadata.DescriptorPoolHandle
}

func (vb *VulkanBackend) CreateDescriptorPool(maxSets uint32, sizes []metadata.DescriptorPoolSize) (metadata.DescriptorPoolHandle, error) {
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(sizes))
	for _, size := range sizes {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            toVkDescriptorType(size.Type),
			DescriptorCount: max(size.Count, 1),
		})
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(vb.device(), &poolInfo, vb.context.Allocator, &pool); res != vk.Success {
		return metadata.InvalidHandle, VulkanResultError(res, "vkCreateDescriptorPool")
	}
	return vb.descriptorPools.Insert(pool), nil
}

// forgetSets drops the handles of every set allocated from pool.
func (vb *VulkanBackend) forgetSets(pool metadata.DescriptorPoolHandle) {
	for _, h := range liveHandles(vb.descriptorSets) {
		if set, ok := vb.descriptorSets.Get(h); ok && set.Pool == pool {
			vb.descriptorSets.Remove(h)
		}
	}
}

func (vb *VulkanBackend) ResetDescriptorPool(h metadata.DescriptorPoolHandle) error {
	pool, ok := vb.descriptorPools.Get(h)
	if !ok {
		return unknownHandle("descriptor pool", uint64(h))
	}
	err := vb.locks.SafeCall(DescriptorManagement, func() error {
		if res := vk.ResetDescriptorPool(vb.device(), pool, 0); res != vk.Success {
			return VulkanResultError(res, "vkResetDescriptorPool")
		}
		return nil
	})
	if err != nil {
		return err
	}
	vb.forgetSets(h)
	return nil
}

func (vb *VulkanBackend) DestroyDescriptorPool(h metadata.DescriptorPoolHandle) {
	pool, ok := vb.descriptorPools.Remove(h)
	if !ok {
		return
	}
	vb.forgetSets(h)
	vb.locks.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(vb.device(), pool, vb.context.Allocator)
		return nil
	})
}

// AllocateDescriptorSet reports a full or fragmented pool as
// core.ErrPoolExhausted so the growable allocator can move on.
func (vb *VulkanBackend) AllocateDescriptorSet(h metadata.DescriptorPoolHandle, layout metadata.DescriptorSetLayoutHandle) (metadata.DescriptorSetHandle, error) {
	pool, ok := vb.descriptorPools.Get(h)
	if !ok {
		return metadata.InvalidHandle, unknownHandle("descriptor pool", uint64(h))
	}
	setLayout, ok := vb.setLayouts.Get(layout)
	if !ok {
		return metadata.InvalidHandle, unknownHandle("descriptor set layout", uint64(layout))
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{setLayout},
	}

	var set vk.DescriptorSet
	err := vb.locks.SafeCall(DescriptorManagement, func() error {
		if res := vk.AllocateDescriptorSets(vb.device(), &allocInfo, &set); res != vk.Success {
			return VulkanResultError(res, "vkAllocateDescriptorSets")
		}
		return nil
	})
	if err != nil {
		return metadata.InvalidHandle, err
	}
	return vb.descriptorSets.Insert(&VulkanDescriptorSet{Handle: set, Pool: h}), nil
}

func (vb *VulkanBackend) UpdateDescriptorSet(h metadata.DescriptorSetHandle, writes []metadata.DescriptorWrite) {
	set, ok := vb.descriptorSets.Get(h)
	if !ok {
		core.LogError("update of unknown descriptor set %d", h)
		return
	}

	native := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.Handle,
			DstBinding:      w.Binding,
			DescriptorCount: 1,
			DescriptorType:  toVkDescriptorType(w.Type),
		}
		if isBufferDescriptor(w.Type) {
			buf, ok := vb.buffers.Get(w.Buffer)
			if !ok {
				core.LogError("descriptor write references unknown buffer %d", w.Buffer)
				continue
			}
			rng := vk.DeviceSize(w.Range)
			if w.Range == 0 {
				rng = vk.DeviceSize(vk.WholeSize)
			}
			write.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: buf.Handle,
				Offset: vk.DeviceSize(w.Offset),
				Range:  rng,
			}}
		} else {
			view, ok := vb.views.Get(w.ImageView)
			if !ok {
				core.LogError("descriptor write references unknown image view %d", w.ImageView)
				continue
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   view.Handle,
				ImageLayout: toVkImageLayout(w.ImageLayout),
			}}
		}
		native = append(native, write)
	}
	if len(native) == 0 {
		return
	}
	vk.UpdateDescriptorSets(vb.device(), uint32(len(native)), native, 0, nil)
}

func (vb *VulkanBackend) CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (metadata.DescriptorSetLayoutHandle, error) {
	native := make([]vk.DescriptorSetLayoutBinding, 0, len(bindings))
	for _, b := range bindings {
		native = append(native, vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  toVkDescriptorType(b.Type),
			DescriptorCount: max(b.Count, 1),
			StageFlags:      toVkShaderStages(b.Stages),
		})
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(native)),
		PBindings:    native,
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(vb.device(), &layoutInfo, vb.context.Allocator, &layout); res != vk.Success {
		return metadata.InvalidHandle, VulkanResultError(res, "vkCreateDescriptorSetLayout")
	}
	return vb.setLayouts.Insert(layout), nil
}

func (vb *VulkanBackend) DestroyDescriptorSetLayout(h metadata.DescriptorSetLayoutHandle) {
	if layout, ok := vb.setLayouts.Remove(h); ok {
		vk.DestroyDescriptorSetLayout(vb.device(), layout, vb.context.Allocator)
	}
}
