package renderer

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// MaxSetsPerPool caps the growth of DescriptorAllocatorGrowable.
const MaxSetsPerPool = 4092

const growthFactor = 1.5

func poolSizes(maxSets uint32, ratios []metadata.PoolSizeRatio) []metadata.DescriptorPoolSize {
	sizes := make([]metadata.DescriptorPoolSize, 0, len(ratios))
	for _, r := range ratios {
		sizes = append(sizes, metadata.DescriptorPoolSize{
			Type:  r.Type,
			Count: uint32(r.Ratio * float32(maxSets)),
		})
	}
	return sizes
}

// DescriptorAllocator owns a single fixed size pool.
type DescriptorAllocator struct {
	device DescriptorDevice
	pool   metadata.DescriptorPoolHandle
}

func (d *DescriptorAllocator) InitPool(device DescriptorDevice, maxSets uint32, ratios []metadata.PoolSizeRatio) error {
	pool, err := device.CreateDescriptorPool(maxSets, poolSizes(maxSets, ratios))
	if err != nil {
		return errors.Wrap(err, "creating descriptor pool")
	}
	d.device = device
	d.pool = pool
	return nil
}

// ClearDescriptors returns every set to the pool.
func (d *DescriptorAllocator) ClearDescriptors() error {
	return d.device.ResetDescriptorPool(d.pool)
}

func (d *DescriptorAllocator) DestroyPool() {
	if d.pool == metadata.InvalidHandle {
		return
	}
	d.device.DestroyDescriptorPool(d.pool)
	d.pool = metadata.InvalidHandle
}

// Allocate fails with core.ErrPoolExhausted once the pool is full.
func (d *DescriptorAllocator) Allocate(layout metadata.DescriptorSetLayoutHandle) (metadata.DescriptorSetHandle, error) {
	set, err := d.device.AllocateDescriptorSet(d.pool, layout)
	if err != nil {
		return metadata.InvalidHandle, errors.Wrap(err, "allocating descriptor set")
	}
	return set, nil
}

// DescriptorAllocatorGrowable creates new pools on demand. Each new pool is
// larger than the previous one until MaxSetsPerPool is reached.
type DescriptorAllocatorGrowable struct {
	device      DescriptorDevice
	ratios      []metadata.PoolSizeRatio
	fullPools   []metadata.DescriptorPoolHandle
	readyPools  []metadata.DescriptorPoolHandle
	setsPerPool uint32
}

func (d *DescriptorAllocatorGrowable) Init(device DescriptorDevice, initialSets uint32, ratios []metadata.PoolSizeRatio) error {
	d.device = device
	d.ratios = append([]metadata.PoolSizeRatio(nil), ratios...)
	d.fullPools = nil
	d.readyPools = nil

	pool, err := d.createPool(initialSets)
	if err != nil {
		return err
	}
	d.setsPerPool = grow(initialSets)
	d.readyPools = append(d.readyPools, pool)
	return nil
}

// grow returns the size of the next pool: at least one set larger, capped at
// MaxSetsPerPool.
func grow(sets uint32) uint32 {
	return min(max(uint32(float32(sets)*growthFactor), sets+1), MaxSetsPerPool)
}

func (d *DescriptorAllocatorGrowable) createPool(setCount uint32) (metadata.DescriptorPoolHandle, error) {
	pool, err := d.device.CreateDescriptorPool(setCount, poolSizes(setCount, d.ratios))
	if err != nil {
		return metadata.InvalidHandle, errors.Wrapf(err, "creating descriptor pool of %d sets", setCount)
	}
	return pool, nil
}

func (d *DescriptorAllocatorGrowable) getPool() (metadata.DescriptorPoolHandle, error) {
	if n := len(d.readyPools); n > 0 {
		pool := d.readyPools[n-1]
		d.readyPools = d.readyPools[:n-1]
		return pool, nil
	}
	pool, err := d.createPool(d.setsPerPool)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	core.LogDebug("descriptor allocator grew a pool of %d sets", d.setsPerPool)
	d.setsPerPool = grow(d.setsPerPool)
	return pool, nil
}

// Allocate takes a set from the newest ready pool. On exhaustion the pool is
// retired to the full list and a single retry is made on a fresh pool.
func (d *DescriptorAllocatorGrowable) Allocate(layout metadata.DescriptorSetLayoutHandle) (metadata.DescriptorSetHandle, error) {
	pool, err := d.getPool()
	if err != nil {
		return metadata.InvalidHandle, err
	}

	set, err := d.device.AllocateDescriptorSet(pool, layout)
	if errors.Is(err, core.ErrPoolExhausted) {
		d.fullPools = append(d.fullPools, pool)

		pool, err = d.getPool()
		if err != nil {
			return metadata.InvalidHandle, err
		}
		set, err = d.device.AllocateDescriptorSet(pool, layout)
	}
	if err != nil {
		d.readyPools = append(d.readyPools, pool)
		return metadata.InvalidHandle, errors.Wrap(err, "allocating descriptor set")
	}

	d.readyPools = append(d.readyPools, pool)
	return set, nil
}

// ClearPools resets every pool and makes all of them ready again.
func (d *DescriptorAllocatorGrowable) ClearPools() error {
	for _, p := range d.readyPools {
		if err := d.device.ResetDescriptorPool(p); err != nil {
			return errors.Wrap(err, "resetting descriptor pool")
		}
	}
	for _, p := range d.fullPools {
		if err := d.device.ResetDescriptorPool(p); err != nil {
			return errors.Wrap(err, "resetting descriptor pool")
		}
		d.readyPools = append(d.readyPools, p)
	}
	d.fullPools = d.fullPools[:0]
	return nil
}

func (d *DescriptorAllocatorGrowable) DestroyPools() {
	for _, p := range d.readyPools {
		d.device.DestroyDescriptorPool(p)
	}
	for _, p := range d.fullPools {
		d.device.DestroyDescriptorPool(p)
	}
	d.readyPools = nil
	d.fullPools = nil
}

// PoolCount returns the number of pools currently owned.
func (d *DescriptorAllocatorGrowable) PoolCount() int {
	return len(d.readyPools) + len(d.fullPools)
}

type DescriptorLayoutBuilder struct {
	bindings []metadata.DescriptorBinding
}

func (b *DescriptorLayoutBuilder) AddBinding(binding uint32, descriptorType metadata.DescriptorType) {
	b.bindings = append(b.bindings, metadata.DescriptorBinding{
		Binding: binding,
		Type:    descriptorType,
		Count:   1,
	})
}

func (b *DescriptorLayoutBuilder) Clear() {
	b.bindings = b.bindings[:0]
}

// Build creates the layout with every binding visible to stages.
func (b *DescriptorLayoutBuilder) Build(device DescriptorDevice, stages metadata.ShaderStageFlags) (metadata.DescriptorSetLayoutHandle, error) {
	bindings := make([]metadata.DescriptorBinding, len(b.bindings))
	for i, binding := range b.bindings {
		binding.Stages |= stages
		bindings[i] = binding
	}
	layout, err := device.CreateDescriptorSetLayout(bindings)
	if err != nil {
		return metadata.InvalidHandle, errors.Wrap(err, "creating descriptor set layout")
	}
	return layout, nil
}

// DescriptorWriter batches writes for a single set update.
type DescriptorWriter struct {
	writes []metadata.DescriptorWrite
}

func (w *DescriptorWriter) WriteImage(binding uint32, view metadata.ImageViewHandle, layout metadata.ImageLayout, descriptorType metadata.DescriptorType) {
	w.writes = append(w.writes, metadata.DescriptorWrite{
		Binding:     binding,
		Type:        descriptorType,
		ImageView:   view,
		ImageLayout: layout,
	})
}

func (w *DescriptorWriter) WriteBuffer(binding uint32, buffer metadata.BufferHandle, size, offset uint64, descriptorType metadata.DescriptorType) {
	w.writes = append(w.writes, metadata.DescriptorWrite{
		Binding: binding,
		Type:    descriptorType,
		Buffer:  buffer,
		Offset:  offset,
		Range:   size,
	})
}

func (w *DescriptorWriter) Clear() {
	w.writes = w.writes[:0]
}

func (w *DescriptorWriter) UpdateSet(device DescriptorDevice, set metadata.DescriptorSetHandle) {
	device.UpdateDescriptorSet(set, w.writes)
}
