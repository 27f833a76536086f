package vulkan

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func TestVulkanResultError(t *testing.T) {
	assert.NoError(t, VulkanResultError(vk.Success, "op"))

	cases := []struct {
		result   vk.Result
		sentinel error
	}{
		{vk.ErrorOutOfDate, core.ErrSurfaceOutOfDate},
		{vk.Suboptimal, core.ErrSurfaceOutOfDate},
		{vk.Timeout, core.ErrWaitTimeout},
		{vk.ErrorDeviceLost, core.ErrDeviceLost},
		{vk.ErrorOutOfDeviceMemory, core.ErrOutOfMemory},
		{vk.ErrorOutOfPoolMemory, core.ErrPoolExhausted},
		{vk.ErrorFragmentedPool, core.ErrPoolExhausted},
		{vk.ErrorInitializationFailed, core.ErrBackendFailure},
	}
	for _, c := range cases {
		err := VulkanResultError(c.result, "vkOp")
		require.Error(t, err)
		assert.True(t, errors.Is(err, c.sentinel), "%s", VulkanResultString(c.result))
		assert.Contains(t, err.Error(), "vkOp")
	}

	assert.True(t, core.IsRecoverable(VulkanResultError(vk.ErrorOutOfDate, "present")))
	assert.True(t, core.IsFatal(VulkanResultError(vk.ErrorDeviceLost, "submit")))
}

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_ERROR_OUT_OF_DATE_KHR", VulkanResultString(vk.ErrorOutOfDate))
	assert.Equal(t, "VK_RESULT_UNKNOWN", VulkanResultString(vk.Result(12345)))
}

func TestVulkanSafeString(t *testing.T) {
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
	assert.Equal(t, "main\x00", VulkanSafeString("main\x00"))
	assert.Equal(t, []string{"a\x00", "b\x00"}, VulkanSafeStrings([]string{"a", "b"}))
}

func TestCString(t *testing.T) {
	var name [16]byte
	copy(name[:], "VK_LAYER")
	assert.Equal(t, "VK_LAYER", CString(name[:]))
	assert.Equal(t, "full", CString([]byte("full")))
}

func TestSPIRVWords(t *testing.T) {
	code := binary.LittleEndian.AppendUint32(nil, spirvMagic)
	code = binary.LittleEndian.AppendUint32(code, 0x00010000)

	words, err := SPIRVWords(code)
	require.NoError(t, err)
	assert.Equal(t, []uint32{spirvMagic, 0x00010000}, words)

	_, err = SPIRVWords(code[:5])
	assert.True(t, errors.Is(err, core.ErrShaderLoad))

	_, err = SPIRVWords([]byte{1, 2, 3, 4})
	assert.True(t, errors.Is(err, core.ErrShaderLoad))

	_, err = SPIRVWords(nil)
	assert.True(t, errors.Is(err, core.ErrShaderLoad))
}

func TestFormatConversion(t *testing.T) {
	for _, f := range []metadata.Format{
		metadata.FormatB8G8R8A8Unorm,
		metadata.FormatR8G8B8A8Unorm,
		metadata.FormatR16G16B16A16Sfloat,
		metadata.FormatD32Sfloat,
	} {
		assert.Equal(t, f, fromVkFormat(toVkFormat(f)))
	}
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), aspectFor(metadata.FormatD32Sfloat))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), aspectFor(metadata.FormatR16G16B16A16Sfloat))
}

func TestDepthLayoutUsesCombinedLayout(t *testing.T) {
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, toVkImageLayout(metadata.ImageLayoutDepthAttachmentOptimal))
	assert.Equal(t, vk.ImageLayoutPresentSrc, toVkImageLayout(metadata.ImageLayoutPresentSrc))
}

func TestUsageFlags(t *testing.T) {
	usage := toVkImageUsage(metadata.ImageUsageStorage | metadata.ImageUsageTransferSrc)
	assert.Equal(t, vk.ImageUsageFlags(vk.ImageUsageStorageBit|vk.ImageUsageTransferSrcBit), usage)

	buf := toVkBufferUsage(metadata.BufferUsageVertex | metadata.BufferUsageTransferDst)
	assert.Equal(t, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit), buf)

	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit), toVkPipelineStages(0))
}

func TestChooseExtent(t *testing.T) {
	fixed := vk.SurfaceCapabilities{CurrentExtent: vk.Extent2D{Width: 640, Height: 480}}
	assert.Equal(t, vk.Extent2D{Width: 640, Height: 480}, chooseExtent(fixed, 1920, 1080))

	free := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 1024, Height: 1024},
	}
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 600}, chooseExtent(free, 1920, 600))
}

func TestChoosePresentMode(t *testing.T) {
	modes := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(modes, vk.PresentModeMailbox))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(modes, vk.PresentModeImmediate))
}

func TestChooseSurfaceFormat(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	assert.Equal(t, vk.FormatB8g8r8a8Unorm, chooseSurfaceFormat(formats, vk.FormatB8g8r8a8Unorm).Format)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, chooseSurfaceFormat(formats, vk.FormatR16g16b16a16Sfloat).Format)
}

func TestBlendAttachment(t *testing.T) {
	none := blendAttachment(metadata.BlendModeNone)
	assert.Equal(t, vk.Bool32(vk.False), none.BlendEnable)

	alpha := blendAttachment(metadata.BlendModeAlpha)
	assert.Equal(t, vk.Bool32(vk.True), alpha.BlendEnable)
	assert.Equal(t, vk.BlendFactorOneMinusSrcAlpha, alpha.DstColorBlendFactor)

	additive := blendAttachment(metadata.BlendModeAdditive)
	assert.Equal(t, vk.BlendFactorOne, additive.DstColorBlendFactor)
}

func TestVertexLayoutMatchesVertex(t *testing.T) {
	assert.Equal(t, uint32(48), vertexBinding.Stride)
	last := vertexAttributes[len(vertexAttributes)-1]
	assert.Equal(t, uint32(32), last.Offset)
}

func TestLockPoolSerializes(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(0)

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			pool.SafeCall(BufferManagement, func() error {
				counter++
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			pool.SafeCall(BufferManagement, func() error {
				counter--
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, counter)

	// Different groups do not block each other.
	err := pool.SafeCall(ImageManagement, func() error {
		return pool.SafeQueueCall(0, func() error {
			return pool.SafeCall(BufferManagement, func() error { return nil })
		})
	})
	assert.NoError(t, err)
}
