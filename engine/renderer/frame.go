package renderer

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/lumen/engine/containers"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// FrameDescriptorRatios sizes the per frame descriptor pools.
var FrameDescriptorRatios = []metadata.PoolSizeRatio{
	{Type: metadata.DescriptorTypeStorageImage, Ratio: 3},
	{Type: metadata.DescriptorTypeStorageBuffer, Ratio: 3},
	{Type: metadata.DescriptorTypeUniformBuffer, Ratio: 3},
	{Type: metadata.DescriptorTypeCombinedImageSampler, Ratio: 4},
}

// FrameContext holds everything a frame in flight owns. A context may only be
// touched by the CPU after its FrameComplete fence was observed signaled.
type FrameContext struct {
	Index          int
	CommandPool    metadata.CommandPoolHandle
	CommandBuffer  metadata.CommandBufferHandle
	SwapchainReady metadata.SemaphoreHandle
	RenderComplete metadata.SemaphoreHandle
	FrameComplete  metadata.FenceHandle
	Deletion       DeletionQueue
	Descriptors    DescriptorAllocatorGrowable
}

// FrameRing hands out frame contexts by frame number modulo its size.
type FrameRing struct {
	device       RendererBackend
	ring         *containers.Ring[*FrameContext]
	fenceTimeout time.Duration
}

func NewFrameRing(device RendererBackend, count int, poolSets uint32, fenceTimeout time.Duration) (*FrameRing, error) {
	frames := make([]*FrameContext, count)
	for i := range frames {
		frame, err := newFrameContext(device, i, poolSets)
		if err != nil {
			return nil, errors.Wrapf(err, "creating frame context %d", i)
		}
		frames[i] = frame
	}
	return &FrameRing{
		device:       device,
		ring:         containers.NewRing(frames),
		fenceTimeout: fenceTimeout,
	}, nil
}

func newFrameContext(device RendererBackend, index int, poolSets uint32) (*FrameContext, error) {
	f := &FrameContext{Index: index}
	var err error

	if f.CommandPool, err = device.CreateCommandPool(); err != nil {
		return nil, err
	}
	if f.CommandBuffer, err = device.AllocateCommandBuffer(f.CommandPool); err != nil {
		return nil, err
	}
	// Created signaled so the first wait on the slot returns immediately.
	if f.FrameComplete, err = device.CreateFence(true); err != nil {
		return nil, err
	}
	if f.SwapchainReady, err = device.CreateSemaphore(); err != nil {
		return nil, err
	}
	if f.RenderComplete, err = device.CreateSemaphore(); err != nil {
		return nil, err
	}
	if err := f.Descriptors.Init(device, poolSets, FrameDescriptorRatios); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *FrameRing) Len() int {
	return r.ring.Len()
}

// Current returns the context used by the given frame number.
func (r *FrameRing) Current(frameNumber uint64) *FrameContext {
	return r.ring.At(frameNumber)
}

// Begin waits until the GPU released the slot of frameNumber, then recycles
// it: the fence is reset, pending deletions run and the descriptor pools
// are cleared. A fence timeout is fatal.
func (r *FrameRing) Begin(frameNumber uint64) (*FrameContext, error) {
	frame := r.Current(frameNumber)

	if err := r.device.WaitForFence(frame.FrameComplete, r.fenceTimeout); err != nil {
		return nil, errors.Wrapf(err, "waiting on frame %d (slot %d)", frameNumber, frame.Index)
	}
	if err := r.device.ResetFence(frame.FrameComplete); err != nil {
		return nil, errors.Wrap(err, "resetting frame fence")
	}
	frame.Deletion.Flush()
	if err := frame.Descriptors.ClearPools(); err != nil {
		return nil, err
	}
	return frame, nil
}

// Destroy releases every frame context. The device must be idle.
func (r *FrameRing) Destroy() {
	r.ring.Each(func(i int, f *FrameContext) {
		r.device.DestroyCommandPool(f.CommandPool)
		r.device.DestroyFence(f.FrameComplete)
		r.device.DestroySemaphore(f.RenderComplete)
		r.device.DestroySemaphore(f.SwapchainReady)
		f.Deletion.Flush()
		f.Descriptors.DestroyPools()
	})
	core.LogDebug("destroyed %d frame contexts", r.ring.Len())
}
