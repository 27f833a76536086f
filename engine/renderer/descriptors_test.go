package renderer_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
)

var storageRatios = []metadata.PoolSizeRatio{{Type: metadata.DescriptorTypeStorageImage, Ratio: 1}}

func createdPoolSizes(fake *rendertest.FakeBackend) []uint32 {
	var sizes []uint32
	for _, c := range fake.Calls() {
		if c.Name == "CreateDescriptorPool" {
			sizes = append(sizes, c.Args[1].(uint32))
		}
	}
	return sizes
}

func TestFixedAllocatorExhaustion(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	var alloc renderer.DescriptorAllocator
	require.NoError(t, alloc.InitPool(fake, 2, storageRatios))

	_, err := alloc.Allocate(1)
	require.NoError(t, err)
	_, err = alloc.Allocate(1)
	require.NoError(t, err)
	_, err = alloc.Allocate(1)
	require.True(t, errors.Is(err, core.ErrPoolExhausted))

	require.NoError(t, alloc.ClearDescriptors())
	_, err = alloc.Allocate(1)
	require.NoError(t, err)

	alloc.DestroyPool()
	alloc.DestroyPool()
	require.Zero(t, fake.Live(rendertest.KindDescriptorPool))
	require.Zero(t, fake.InvalidDestroys)
}

func TestGrowableAllocatorCreatesOneLargerPool(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	var alloc renderer.DescriptorAllocatorGrowable
	require.NoError(t, alloc.Init(fake, 2, storageRatios))

	for i := 0; i < 3; i++ {
		set, err := alloc.Allocate(1)
		require.NoError(t, err)
		require.NotEqual(t, metadata.DescriptorSetHandle(metadata.InvalidHandle), set)
	}
	require.Equal(t, []uint32{2, 3}, createdPoolSizes(fake))
	require.Equal(t, 2, alloc.PoolCount())
	require.Zero(t, fake.Count("ResetDescriptorPool"))
}

func TestGrowableAllocatorClearReusesPools(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	var alloc renderer.DescriptorAllocatorGrowable
	require.NoError(t, alloc.Init(fake, 2, storageRatios))
	for i := 0; i < 5; i++ {
		_, err := alloc.Allocate(1)
		require.NoError(t, err)
	}
	require.Equal(t, 2, alloc.PoolCount())

	require.NoError(t, alloc.ClearPools())
	require.Equal(t, 2, fake.Count("ResetDescriptorPool"))

	// Five sets fit in the two recycled pools without growing.
	for i := 0; i < 5; i++ {
		_, err := alloc.Allocate(1)
		require.NoError(t, err)
	}
	require.Equal(t, 2, alloc.PoolCount())
	require.Len(t, createdPoolSizes(fake), 2)

	alloc.DestroyPools()
	require.Zero(t, alloc.PoolCount())
	require.Zero(t, fake.Live(rendertest.KindDescriptorPool))
	require.Zero(t, fake.Live(rendertest.KindDescriptorSet))
}

func TestGrowableAllocatorGrowsSingleSetPools(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	var alloc renderer.DescriptorAllocatorGrowable
	require.NoError(t, alloc.Init(fake, 1, storageRatios))
	for i := 0; i < 4; i++ {
		_, err := alloc.Allocate(1)
		require.NoError(t, err)
	}
	require.Equal(t, []uint32{1, 2, 3}, createdPoolSizes(fake))
	require.Equal(t, 3, alloc.PoolCount())
}

func TestGrowableAllocatorGrowthIsCapped(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	var alloc renderer.DescriptorAllocatorGrowable
	require.NoError(t, alloc.Init(fake, 4000, storageRatios))
	for i := 0; i < 4001; i++ {
		_, err := alloc.Allocate(1)
		require.NoError(t, err)
	}
	require.Equal(t, []uint32{4000, renderer.MaxSetsPerPool}, createdPoolSizes(fake))
}

func TestLayoutBuilderAppliesStages(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	var builder renderer.DescriptorLayoutBuilder
	builder.AddBinding(0, metadata.DescriptorTypeUniformBuffer)
	builder.AddBinding(1, metadata.DescriptorTypeCombinedImageSampler)

	_, err := builder.Build(fake, metadata.ShaderStageAllGraphics)
	require.NoError(t, err)

	calls := fake.Calls()
	bindings := calls[len(calls)-1].Args[1].([]metadata.DescriptorBinding)
	require.Len(t, bindings, 2)
	for _, b := range bindings {
		require.Equal(t, metadata.ShaderStageAllGraphics, b.Stages)
		require.Equal(t, uint32(1), b.Count)
	}

	builder.Clear()
	builder.AddBinding(0, metadata.DescriptorTypeStorageImage)
	_, err = builder.Build(fake, metadata.ShaderStageCompute)
	require.NoError(t, err)
	calls = fake.Calls()
	require.Len(t, calls[len(calls)-1].Args[1].([]metadata.DescriptorBinding), 1)
}

func TestDescriptorWriterUpdatesSet(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	var writer renderer.DescriptorWriter
	writer.WriteBuffer(0, 11, 256, 0, metadata.DescriptorTypeUniformBuffer)
	writer.WriteImage(1, 12, metadata.ImageLayoutGeneral, metadata.DescriptorTypeStorageImage)
	writer.UpdateSet(fake, 99)

	calls := fake.Calls()
	require.Equal(t, "UpdateDescriptorSet", calls[0].Name)
	writes := calls[0].Args[1].([]metadata.DescriptorWrite)
	require.Equal(t, metadata.BufferHandle(11), writes[0].Buffer)
	require.Equal(t, uint64(256), writes[0].Range)
	require.Equal(t, metadata.ImageViewHandle(12), writes[1].ImageView)
	require.Equal(t, metadata.ImageLayoutGeneral, writes[1].ImageLayout)

	writer.Clear()
	writer.UpdateSet(fake, 99)
	require.Empty(t, fake.Calls()[1].Args[1].([]metadata.DescriptorWrite))
}
