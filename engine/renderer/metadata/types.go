package metadata

import (
	"github.com/spaghettifunk/lumen/engine/math"
)

type Extent2D = math.Extent2D

type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

func (e Extent3D) To2D() Extent2D {
	return Extent2D{Width: e.Width, Height: e.Height}
}

type Offset2D struct {
	X int32
	Y int32
}

type Rect2D struct {
	Offset Offset2D
	Extent Extent2D
}

type Viewport struct {
	X        float32
	Y        float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

type Format int

const (
	FormatUndefined Format = iota
	FormatB8G8R8A8Unorm
	FormatR8G8B8A8Unorm
	FormatR16G16B16A16Sfloat
	FormatD32Sfloat
)

// IsDepth reports whether the format carries a depth aspect.
func (f Format) IsDepth() bool {
	return f == FormatD32Sfloat
}

type ColorSpace int

const (
	ColorSpaceSrgbNonlinear ColorSpace = iota
)

type PresentMode int

const (
	PresentModeFifo PresentMode = iota
	PresentModeMailbox
	PresentModeImmediate
)

type ImageLayout int

const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutGeneral
	ImageLayoutColorAttachmentOptimal
	ImageLayoutDepthAttachmentOptimal
	ImageLayoutTransferSrcOptimal
	ImageLayoutTransferDstOptimal
	ImageLayoutShaderReadOnlyOptimal
	ImageLayoutPresentSrc
)

func (l ImageLayout) String() string {
	switch l {
	case ImageLayoutUndefined:
		return "Undefined"
	case ImageLayoutGeneral:
		return "General"
	case ImageLayoutColorAttachmentOptimal:
		return "ColorAttachmentOptimal"
	case ImageLayoutDepthAttachmentOptimal:
		return "DepthAttachmentOptimal"
	case ImageLayoutTransferSrcOptimal:
		return "TransferSrcOptimal"
	case ImageLayoutTransferDstOptimal:
		return "TransferDstOptimal"
	case ImageLayoutShaderReadOnlyOptimal:
		return "ShaderReadOnlyOptimal"
	case ImageLayoutPresentSrc:
		return "PresentSrc"
	}
	return "Unknown"
}

type ImageUsageFlags uint32

const (
	ImageUsageTransferSrc ImageUsageFlags = 1 << iota
	ImageUsageTransferDst
	ImageUsageSampled
	ImageUsageStorage
	ImageUsageColorAttachment
	ImageUsageDepthStencilAttachment
)

type BufferUsageFlags uint32

const (
	BufferUsageTransferSrc BufferUsageFlags = 1 << iota
	BufferUsageTransferDst
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndex
	BufferUsageVertex
)

// MemoryUsage is the placement hint for an allocation.
type MemoryUsage int

const (
	// Device local, not host visible.
	MemoryUsageGPUOnly MemoryUsage = iota
	// Host visible and coherent, persistently mapped, read by the device.
	MemoryUsageCPUToGPU
	// Host visible staging memory.
	MemoryUsageCPUOnly
)

// HostVisible reports whether allocations with this hint expose a write path.
func (m MemoryUsage) HostVisible() bool {
	return m == MemoryUsageCPUToGPU || m == MemoryUsageCPUOnly
}

type DescriptorType int

const (
	DescriptorTypeSampler DescriptorType = iota
	DescriptorTypeCombinedImageSampler
	DescriptorTypeSampledImage
	DescriptorTypeStorageImage
	DescriptorTypeUniformBuffer
	DescriptorTypeStorageBuffer
)

type ShaderStageFlags uint32

const (
	ShaderStageVertex ShaderStageFlags = 1 << iota
	ShaderStageFragment
	ShaderStageCompute

	ShaderStageAllGraphics = ShaderStageVertex | ShaderStageFragment
)

type PipelineStageFlags uint32

const (
	PipelineStageColorAttachmentOutput PipelineStageFlags = 1 << iota
	PipelineStageAllGraphics
	PipelineStageAllCommands
	PipelineStageTransfer
	PipelineStageComputeShader
)

type PipelineBindPoint int

const (
	PipelineBindPointGraphics PipelineBindPoint = iota
	PipelineBindPointCompute
)

type BlendMode int

const (
	BlendModeNone BlendMode = iota
	BlendModeAlpha
	BlendModeAdditive
)
