// Package rendertest provides a recording implementation of the renderer
// device contract. Every call is appended to an ordered log, handles are
// issued from a single table so tokens are unique across object kinds, and
// the GPU completes submitted work instantly.
package rendertest

import (
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/lumen/engine/containers"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const (
	KindFence               = "fence"
	KindSemaphore           = "semaphore"
	KindCommandPool         = "commandPool"
	KindCommandBuffer       = "commandBuffer"
	KindSwapchain           = "swapchain"
	KindSwapchainImage      = "swapchainImage"
	KindBuffer              = "buffer"
	KindImage               = "image"
	KindImageView           = "imageView"
	KindDescriptorPool      = "descriptorPool"
	KindDescriptorSet       = "descriptorSet"
	KindDescriptorSetLayout = "descriptorSetLayout"
	KindShaderModule        = "shaderModule"
	KindPipelineLayout      = "pipelineLayout"
	KindPipeline            = "pipeline"
)

type Call struct {
	Name string
	Args []any
}

type object struct {
	kind   string
	parent uint64
}

type pool struct {
	maxSets uint32
	used    uint32
}

type buffer struct {
	data        []byte
	memoryUsage metadata.MemoryUsage
}

type FakeBackend struct {
	mu      sync.Mutex
	calls   []Call
	objects *containers.HandleTable[uint64, object]

	fences    map[uint64]bool
	pools     map[uint64]*pool
	buffers   map[uint64]*buffer
	recording map[uint64]bool
	acquired  uint32

	// Scripted results consumed one per call. A nil entry means success.
	AcquireErrors []error
	PresentErrors []error
	// SwapchainImages is the image count of created swapchains.
	SwapchainImages int
	// SurfaceExtent overrides the extent reported for new swapchains.
	SurfaceExtent *metadata.Extent2D
	// FenceTimeout makes every fence wait expire.
	FenceTimeout bool
	// FailBuffers makes buffer creation fail with an out of memory error.
	FailBuffers bool

	// Overlaps counts command buffers begun while already recording.
	Overlaps int
	// InvalidDestroys counts destroys of unknown or already destroyed handles.
	InvalidDestroys int
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		objects:         containers.NewHandleTable[uint64, object](256),
		fences:          map[uint64]bool{},
		pools:           map[uint64]*pool{},
		buffers:         map[uint64]*buffer{},
		recording:       map[uint64]bool{},
		SwapchainImages: 3,
	}
}

var _ renderer.RendererBackend = (*FakeBackend)(nil)

func (f *FakeBackend) log(name string, args ...any) {
	f.calls = append(f.calls, Call{Name: name, Args: args})
}

func (f *FakeBackend) create(kind string, parent uint64) uint64 {
	return f.objects.Insert(object{kind: kind, parent: parent})
}

func (f *FakeBackend) destroy(kind string, h uint64) {
	obj, ok := f.objects.Get(h)
	if !ok || obj.kind != kind {
		f.InvalidDestroys++
		return
	}
	f.objects.Remove(h)
}

func (f *FakeBackend) destroyChildren(parent uint64) {
	var children []uint64
	f.objects.Each(func(h uint64, o object) {
		if o.parent == parent {
			children = append(children, h)
		}
	})
	for _, h := range children {
		f.objects.Remove(h)
	}
}

// Calls returns a copy of the call log.
func (f *FakeBackend) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Names returns the name of every logged call in order.
func (f *FakeBackend) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = c.Name
	}
	return names
}

// Count returns how many calls named name were logged.
func (f *FakeBackend) Count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// IndexFrom returns the position of the first call named name at or after
// from, or -1.
func (f *FakeBackend) IndexFrom(name string, from int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := from; i < len(f.calls); i++ {
		if f.calls[i].Name == name {
			return i
		}
	}
	return -1
}

// Note appends a marker to the call log.
func (f *FakeBackend) Note(label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("note:" + label)
}

// ClearCalls empties the call log.
func (f *FakeBackend) ClearCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Live returns how many objects of kind exist.
func (f *FakeBackend) Live(kind string) int {
	n := 0
	f.objects.Each(func(_ uint64, o object) {
		if o.kind == kind {
			n++
		}
	})
	return n
}

// FenceSignaled reports the state of a fence.
func (f *FakeBackend) FenceSignaled(fence metadata.FenceHandle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fences[uint64(fence)]
}

// PoolCapacity returns the set capacity a descriptor pool was created with.
func (f *FakeBackend) PoolCapacity(p metadata.DescriptorPoolHandle) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pl, ok := f.pools[uint64(p)]; ok {
		return pl.maxSets
	}
	return 0
}

// BufferContents returns a copy of the bytes written to a buffer.
func (f *FakeBackend) BufferContents(b metadata.BufferHandle) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if buf, ok := f.buffers[uint64(b)]; ok {
		return append([]byte(nil), buf.data...)
	}
	return nil
}

func (f *FakeBackend) CreateFence(signaled bool) (metadata.FenceHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.create(KindFence, 0)
	f.fences[h] = signaled
	f.log("CreateFence", h, signaled)
	return metadata.FenceHandle(h), nil
}

func (f *FakeBackend) WaitForFence(fence metadata.FenceHandle, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("WaitForFence", uint64(fence), timeout)
	if f.FenceTimeout || !f.fences[uint64(fence)] {
		return errors.Mark(errors.Newf("fence %d not signaled after %s", fence, timeout), core.ErrWaitTimeout)
	}
	return nil
}

func (f *FakeBackend) ResetFence(fence metadata.FenceHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("ResetFence", uint64(fence))
	f.fences[uint64(fence)] = false
	return nil
}

func (f *FakeBackend) SignalFence(fence metadata.FenceHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("SignalFence", uint64(fence))
	f.fences[uint64(fence)] = true
	return nil
}

func (f *FakeBackend) DestroyFence(fence metadata.FenceHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroyFence", uint64(fence))
	f.destroy(KindFence, uint64(fence))
	delete(f.fences, uint64(fence))
}

func (f *FakeBackend) CreateSemaphore() (metadata.SemaphoreHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.create(KindSemaphore, 0)
	f.log("CreateSemaphore", h)
	return metadata.SemaphoreHandle(h), nil
}

func (f *FakeBackend) DestroySemaphore(semaphore metadata.SemaphoreHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroySemaphore", uint64(semaphore))
	f.destroy(KindSemaphore, uint64(semaphore))
}

func (f *FakeBackend) CreateCommandPool() (metadata.CommandPoolHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.create(KindCommandPool, 0)
	f.log("CreateCommandPool", h)
	return metadata.CommandPoolHandle(h), nil
}

func (f *FakeBackend) DestroyCommandPool(p metadata.CommandPoolHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroyCommandPool", uint64(p))
	f.destroyChildren(uint64(p))
	f.destroy(KindCommandPool, uint64(p))
}

func (f *FakeBackend) AllocateCommandBuffer(p metadata.CommandPoolHandle) (metadata.CommandBufferHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.create(KindCommandBuffer, uint64(p))
	f.log("AllocateCommandBuffer", h)
	return metadata.CommandBufferHandle(h), nil
}

func (f *FakeBackend) ResetCommandBuffer(cmd metadata.CommandBufferHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("ResetCommandBuffer", uint64(cmd))
	return nil
}

func (f *FakeBackend) BeginCommandBuffer(cmd metadata.CommandBufferHandle) (renderer.CommandRecorder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("BeginCommandBuffer", uint64(cmd))
	if f.recording[uint64(cmd)] {
		f.Overlaps++
	}
	f.recording[uint64(cmd)] = true
	return &recorder{backend: f, cmd: uint64(cmd)}, nil
}

func (f *FakeBackend) EndCommandBuffer(cmd metadata.CommandBufferHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("EndCommandBuffer", uint64(cmd))
	if !f.recording[uint64(cmd)] {
		return errors.Newf("command buffer %d is not recording", cmd)
	}
	f.recording[uint64(cmd)] = false
	return nil
}

func (f *FakeBackend) Submit(info metadata.SubmitInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("Submit", info)
	if f.recording[uint64(info.CommandBuffer)] {
		return errors.Newf("command buffer %d submitted while recording", info.CommandBuffer)
	}
	if info.Fence != metadata.InvalidHandle {
		f.fences[uint64(info.Fence)] = true
	}
	return nil
}

func (f *FakeBackend) CreateSwapchain(info metadata.SwapchainCreateInfo) (metadata.SwapchainDesc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.create(KindSwapchain, 0)
	extent := metadata.Extent2D{Width: info.Width, Height: info.Height}
	if f.SurfaceExtent != nil {
		extent = *f.SurfaceExtent
	}
	desc := metadata.SwapchainDesc{
		Swapchain: metadata.SwapchainHandle(h),
		Format:    info.Format,
		Extent:    extent,
	}
	for i := 0; i < f.SwapchainImages; i++ {
		desc.Images = append(desc.Images, metadata.ImageHandle(f.create(KindSwapchainImage, h)))
	}
	f.acquired = 0
	f.log("CreateSwapchain", info)
	return desc, nil
}

func (f *FakeBackend) DestroySwapchain(swapchain metadata.SwapchainHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroySwapchain", uint64(swapchain))
	f.destroyChildren(uint64(swapchain))
	f.destroy(KindSwapchain, uint64(swapchain))
}

func (f *FakeBackend) AcquireNextImage(swapchain metadata.SwapchainHandle, timeout time.Duration, signal metadata.SemaphoreHandle) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("AcquireNextImage", uint64(swapchain), timeout, uint64(signal))
	if len(f.AcquireErrors) > 0 {
		err := f.AcquireErrors[0]
		f.AcquireErrors = f.AcquireErrors[1:]
		if err != nil {
			return 0, err
		}
	}
	index := f.acquired % uint32(f.SwapchainImages)
	f.acquired++
	return index, nil
}

func (f *FakeBackend) Present(swapchain metadata.SwapchainHandle, imageIndex uint32, wait metadata.SemaphoreHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("Present", uint64(swapchain), imageIndex, uint64(wait))
	if len(f.PresentErrors) > 0 {
		err := f.PresentErrors[0]
		f.PresentErrors = f.PresentErrors[1:]
		return err
	}
	return nil
}

func (f *FakeBackend) WaitIdle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("WaitIdle")
	return nil
}

func (f *FakeBackend) CreateBuffer(info metadata.BufferCreateInfo) (metadata.BufferHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailBuffers {
		return metadata.InvalidHandle, errors.Mark(errors.Newf("no memory for %d bytes", info.Size), core.ErrOutOfMemory)
	}
	h := f.create(KindBuffer, 0)
	f.buffers[h] = &buffer{data: make([]byte, info.Size), memoryUsage: info.MemoryUsage}
	f.log("CreateBuffer", h, info)
	return metadata.BufferHandle(h), nil
}

func (f *FakeBackend) DestroyBuffer(b metadata.BufferHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroyBuffer", uint64(b))
	f.destroy(KindBuffer, uint64(b))
	delete(f.buffers, uint64(b))
}

func (f *FakeBackend) WriteBuffer(b metadata.BufferHandle, offset uint64, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("WriteBuffer", uint64(b), offset, len(data))
	buf, ok := f.buffers[uint64(b)]
	if !ok {
		return errors.Newf("unknown buffer %d", b)
	}
	if !buf.memoryUsage.HostVisible() {
		return errors.Newf("buffer %d is not host visible", b)
	}
	copy(buf.data[offset:], data)
	return nil
}

func (f *FakeBackend) CreateImage(desc metadata.ImageDesc) (metadata.ImageHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.create(KindImage, 0)
	f.log("CreateImage", h, desc)
	return metadata.ImageHandle(h), nil
}

func (f *FakeBackend) DestroyImage(image metadata.ImageHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroyImage", uint64(image))
	f.destroy(KindImage, uint64(image))
}

func (f *FakeBackend) CreateImageView(image metadata.ImageHandle, format metadata.Format, mipLevels uint32) (metadata.ImageViewHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects.Get(uint64(image)); !ok {
		return metadata.InvalidHandle, errors.Newf("unknown image %d", image)
	}
	h := f.create(KindImageView, 0)
	f.log("CreateImageView", h, uint64(image), mipLevels)
	return metadata.ImageViewHandle(h), nil
}

func (f *FakeBackend) DestroyImageView(view metadata.ImageViewHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroyImageView", uint64(view))
	f.destroy(KindImageView, uint64(view))
}

func (f *FakeBackend) CreateDescriptorPool(maxSets uint32, sizes []metadata.DescriptorPoolSize) (metadata.DescriptorPoolHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.create(KindDescriptorPool, 0)
	f.pools[h] = &pool{maxSets: maxSets}
	f.log("CreateDescriptorPool", h, maxSets)
	return metadata.DescriptorPoolHandle(h), nil
}

func (f *FakeBackend) ResetDescriptorPool(p metadata.DescriptorPoolHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("ResetDescriptorPool", uint64(p))
	pl, ok := f.pools[uint64(p)]
	if !ok {
		return errors.Newf("unknown descriptor pool %d", p)
	}
	pl.used = 0
	f.destroyChildren(uint64(p))
	return nil
}

func (f *FakeBackend) DestroyDescriptorPool(p metadata.DescriptorPoolHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroyDescriptorPool", uint64(p))
	f.destroyChildren(uint64(p))
	f.destroy(KindDescriptorPool, uint64(p))
	delete(f.pools, uint64(p))
}

func (f *FakeBackend) AllocateDescriptorSet(p metadata.DescriptorPoolHandle, layout metadata.DescriptorSetLayoutHandle) (metadata.DescriptorSetHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("AllocateDescriptorSet", uint64(p), uint64(layout))
	pl, ok := f.pools[uint64(p)]
	if !ok {
		return metadata.InvalidHandle, errors.Newf("unknown descriptor pool %d", p)
	}
	if pl.used >= pl.maxSets {
		return metadata.InvalidHandle, errors.Mark(errors.Newf("pool %d full at %d sets", p, pl.maxSets), core.ErrPoolExhausted)
	}
	pl.used++
	return metadata.DescriptorSetHandle(f.create(KindDescriptorSet, uint64(p))), nil
}

func (f *FakeBackend) UpdateDescriptorSet(set metadata.DescriptorSetHandle, writes []metadata.DescriptorWrite) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("UpdateDescriptorSet", uint64(set), append([]metadata.DescriptorWrite(nil), writes...))
}

func (f *FakeBackend) CreateDescriptorSetLayout(bindings []metadata.DescriptorBinding) (metadata.DescriptorSetLayoutHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.create(KindDescriptorSetLayout, 0)
	f.log("CreateDescriptorSetLayout", h, append([]metadata.DescriptorBinding(nil), bindings...))
	return metadata.DescriptorSetLayoutHandle(h), nil
}

func (f *FakeBackend) DestroyDescriptorSetLayout(layout metadata.DescriptorSetLayoutHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroyDescriptorSetLayout", uint64(layout))
	f.destroy(KindDescriptorSetLayout, uint64(layout))
}

func (f *FakeBackend) CreateShaderModule(code []byte) (metadata.ShaderModuleHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("CreateShaderModule", len(code))
	if len(code) == 0 || len(code)%4 != 0 {
		return metadata.InvalidHandle, errors.Newf("invalid spir-v of %d bytes", len(code))
	}
	return metadata.ShaderModuleHandle(f.create(KindShaderModule, 0)), nil
}

func (f *FakeBackend) DestroyShaderModule(module metadata.ShaderModuleHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroyShaderModule", uint64(module))
	f.destroy(KindShaderModule, uint64(module))
}

func (f *FakeBackend) CreatePipelineLayout(info metadata.PipelineLayoutCreateInfo) (metadata.PipelineLayoutHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.create(KindPipelineLayout, 0)
	f.log("CreatePipelineLayout", h, info)
	return metadata.PipelineLayoutHandle(h), nil
}

func (f *FakeBackend) DestroyPipelineLayout(layout metadata.PipelineLayoutHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroyPipelineLayout", uint64(layout))
	f.destroy(KindPipelineLayout, uint64(layout))
}

func (f *FakeBackend) CreateComputePipeline(info metadata.ComputePipelineCreateInfo) (metadata.PipelineHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.create(KindPipeline, 0)
	f.log("CreateComputePipeline", h, info)
	return metadata.PipelineHandle(h), nil
}

func (f *FakeBackend) CreateGraphicsPipeline(info metadata.GraphicsPipelineCreateInfo) (metadata.PipelineHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.create(KindPipeline, 0)
	f.log("CreateGraphicsPipeline", h, info)
	return metadata.PipelineHandle(h), nil
}

func (f *FakeBackend) DestroyPipeline(p metadata.PipelineHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log("DestroyPipeline", uint64(p))
	f.destroy(KindPipeline, uint64(p))
}

// recorder logs commands as "cmd.<Name>" calls.
type recorder struct {
	backend *FakeBackend
	cmd     uint64
}

func (r *recorder) record(name string, args ...any) {
	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()
	if !r.backend.recording[r.cmd] {
		panic(fmt.Sprintf("rendertest: %s recorded into command buffer %d outside begin/end", name, r.cmd))
	}
	r.backend.log("cmd."+name, args...)
}

func (r *recorder) TransitionImage(image metadata.ImageHandle, from, to metadata.ImageLayout) {
	r.record("TransitionImage", uint64(image), from, to)
}

func (r *recorder) BlitImage(src, dst metadata.ImageHandle, srcExtent, dstExtent metadata.Extent2D) {
	r.record("BlitImage", uint64(src), uint64(dst), srcExtent, dstExtent)
}

func (r *recorder) CopyBuffer(src, dst metadata.BufferHandle, regions ...metadata.BufferCopy) {
	r.record("CopyBuffer", uint64(src), uint64(dst), regions)
}

func (r *recorder) BindPipeline(bindPoint metadata.PipelineBindPoint, pipeline metadata.PipelineHandle) {
	r.record("BindPipeline", bindPoint, uint64(pipeline))
}

func (r *recorder) BindDescriptorSets(bindPoint metadata.PipelineBindPoint, layout metadata.PipelineLayoutHandle, firstSet uint32, sets ...metadata.DescriptorSetHandle) {
	r.record("BindDescriptorSets", bindPoint, uint64(layout), firstSet, sets)
}

func (r *recorder) PushConstants(layout metadata.PipelineLayoutHandle, stages metadata.ShaderStageFlags, offset uint32, data []byte) {
	r.record("PushConstants", uint64(layout), stages, offset, append([]byte(nil), data...))
}

func (r *recorder) Dispatch(x, y, z uint32) {
	r.record("Dispatch", x, y, z)
}

func (r *recorder) BeginRendering(info metadata.RenderingInfo) {
	r.record("BeginRendering", info)
}

func (r *recorder) EndRendering() {
	r.record("EndRendering")
}

func (r *recorder) SetViewport(viewport metadata.Viewport) {
	r.record("SetViewport", viewport)
}

func (r *recorder) SetScissor(scissor metadata.Rect2D) {
	r.record("SetScissor", scissor)
}

func (r *recorder) ClearAttachment(rect metadata.Rect2D, color math.Vec4) {
	r.record("ClearAttachment", rect, color)
}

func (r *recorder) BindVertexBuffer(b metadata.BufferHandle, offset uint64) {
	r.record("BindVertexBuffer", uint64(b), offset)
}

func (r *recorder) BindIndexBuffer(b metadata.BufferHandle, offset uint64) {
	r.record("BindIndexBuffer", uint64(b), offset)
}

func (r *recorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	r.record("DrawIndexed", indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

// StaticShaders serves shader bytes from memory.
type StaticShaders map[string][]byte

func (s StaticShaders) LoadShader(name string) ([]byte, error) {
	code, ok := s[name]
	if !ok {
		return nil, errors.Newf("shader %s not found", name)
	}
	return code, nil
}

// DefaultShaders returns a valid looking module for every shader the renderer builds.
func DefaultShaders() StaticShaders {
	spirv := []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}
	return StaticShaders{
		"gradient_color.comp.spv":   spirv,
		"sky.comp.spv":              spirv,
		renderer.MeshVertexShader:   spirv,
		renderer.MeshFragmentShader: spirv,
	}
}
