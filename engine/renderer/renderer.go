package renderer

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const (
	DrawImageFormat  = metadata.FormatR16G16B16A16Sfloat
	DepthImageFormat = metadata.FormatD32Sfloat
)

// FrameState is the step of the frame cycle the renderer is in.
type FrameState uint8

const (
	FrameStateIdle FrameState = iota
	FrameStateWaitGPU
	FrameStateAcquire
	FrameStateRecord
	FrameStateSubmit
	FrameStatePresent
	FrameStateShutdown
)

type Options struct {
	Config       core.RendererConfig
	WindowWidth  uint32
	WindowHeight uint32
	DrawWidth    uint32
	DrawHeight   uint32
	// Background effects to build. Nil selects DefaultEffects.
	Effects []metadata.ComputeEffect
}

// Renderer drives the frame cycle: it waits for a frame slot, acquires a
// swapchain image, records the background, geometry, blit and overlay passes,
// then submits and presents.
type Renderer struct {
	device  RendererBackend
	shaders ShaderSource
	config  core.RendererConfig

	frames       *FrameRing
	swapchain    *SwapchainManager
	immediate    *ImmediateSubmitter
	allocator    *Allocator
	mainDeletion DeletionQueue

	globalDescriptors    DescriptorAllocator
	drawImage            metadata.AllocatedImage
	depthImage           metadata.AllocatedImage
	drawImageLayout      metadata.DescriptorSetLayoutHandle
	drawImageDescriptors metadata.DescriptorSetHandle
	sceneDataLayout      metadata.DescriptorSetLayoutHandle

	background   *BackgroundEffects
	meshPipeline *MeshPipeline
	overlay      Overlay
	control      ControlState
	sceneData    metadata.GPUSceneData
	meshes       []*metadata.MeshAsset

	frameNumber uint64
	drawExtent  metadata.Extent2D
	state       FrameState
}

func New(device RendererBackend, shaders ShaderSource, opts Options) (*Renderer, error) {
	r := &Renderer{
		device:  device,
		shaders: shaders,
		config:  opts.Config,
		control: ControlState{RenderScale: opts.Config.RenderScale},
		sceneData: metadata.GPUSceneData{
			AmbientColor:      math.NewVec4(0.1, 0.1, 0.1, 1),
			SunlightDirection: math.NewVec4(0, 1, 0.5, 1),
			SunlightColor:     math.NewVec4(1, 1, 1, 1),
		},
	}
	effects := opts.Effects
	if effects == nil {
		effects = DefaultEffects()
	}
	if err := r.initialize(opts, effects); err != nil {
		r.Shutdown()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) initialize(opts Options, effects []metadata.ComputeEffect) error {
	r.swapchain = NewSwapchainManager(r.device)
	if err := r.swapchain.Create(opts.WindowWidth, opts.WindowHeight); err != nil {
		return err
	}

	immediate, err := NewImmediateSubmitter(r.device, r.config.ImmediateTimeout())
	if err != nil {
		return err
	}
	r.immediate = immediate
	r.mainDeletion.Push(r.immediate.Destroy)
	r.allocator = NewAllocator(r.device, r.immediate)

	if err := r.initDrawTargets(opts.DrawWidth, opts.DrawHeight); err != nil {
		return err
	}

	frames, err := NewFrameRing(r.device, int(r.config.FramesInFlight), r.config.FramePoolSets, r.config.FenceTimeout())
	if err != nil {
		return err
	}
	r.frames = frames

	if err := r.initDescriptors(); err != nil {
		return err
	}
	if err := r.initPipelines(effects); err != nil {
		return err
	}
	r.state = FrameStateIdle
	core.LogInfo("renderer initialized: %d frames in flight, draw target %dx%d", r.frames.Len(), r.drawImage.Extent.Width, r.drawImage.Extent.Height)
	return nil
}

func (r *Renderer) initDrawTargets(width, height uint32) error {
	extent := metadata.Extent3D{Width: width, Height: height, Depth: 1}

	drawImage, err := r.allocator.CreateImage(metadata.ImageCreateInfo{
		Extent: extent,
		Format: DrawImageFormat,
		Usage: metadata.ImageUsageTransferSrc | metadata.ImageUsageTransferDst |
			metadata.ImageUsageStorage | metadata.ImageUsageColorAttachment,
		MemoryUsage: metadata.MemoryUsageGPUOnly,
	})
	if err != nil {
		return errors.Wrap(err, "creating draw image")
	}
	r.drawImage = drawImage
	r.mainDeletion.Push(func() { r.allocator.DestroyImage(drawImage) })

	depthImage, err := r.allocator.CreateImage(metadata.ImageCreateInfo{
		Extent:      extent,
		Format:      DepthImageFormat,
		Usage:       metadata.ImageUsageDepthStencilAttachment,
		MemoryUsage: metadata.MemoryUsageGPUOnly,
	})
	if err != nil {
		return errors.Wrap(err, "creating depth image")
	}
	r.depthImage = depthImage
	r.mainDeletion.Push(func() { r.allocator.DestroyImage(depthImage) })
	return nil
}

func (r *Renderer) initDescriptors() error {
	ratios := []metadata.PoolSizeRatio{{Type: metadata.DescriptorTypeStorageImage, Ratio: 1}}
	if err := r.globalDescriptors.InitPool(r.device, r.config.GlobalPoolSets, ratios); err != nil {
		return err
	}
	r.mainDeletion.Push(r.globalDescriptors.DestroyPool)

	var builder DescriptorLayoutBuilder
	builder.AddBinding(0, metadata.DescriptorTypeStorageImage)
	layout, err := builder.Build(r.device, metadata.ShaderStageCompute)
	if err != nil {
		return err
	}
	r.drawImageLayout = layout
	r.mainDeletion.Push(func() { r.device.DestroyDescriptorSetLayout(layout) })

	set, err := r.globalDescriptors.Allocate(layout)
	if err != nil {
		return err
	}
	r.drawImageDescriptors = set

	var writer DescriptorWriter
	writer.WriteImage(0, r.drawImage.View, metadata.ImageLayoutGeneral, metadata.DescriptorTypeStorageImage)
	writer.UpdateSet(r.device, set)

	builder.Clear()
	builder.AddBinding(0, metadata.DescriptorTypeUniformBuffer)
	sceneLayout, err := builder.Build(r.device, metadata.ShaderStageAllGraphics)
	if err != nil {
		return err
	}
	r.sceneDataLayout = sceneLayout
	r.mainDeletion.Push(func() { r.device.DestroyDescriptorSetLayout(sceneLayout) })
	return nil
}

func (r *Renderer) initPipelines(effects []metadata.ComputeEffect) error {
	background, err := NewBackgroundEffects(r.device, r.shaders, r.drawImageLayout, effects)
	if err != nil {
		return err
	}
	r.background = background
	r.mainDeletion.Push(background.Destroy)
	r.control.Effects = background.Effects()

	mesh, err := NewMeshPipeline(r.device, r.shaders, r.sceneDataLayout, DrawImageFormat, DepthImageFormat)
	if err != nil {
		return err
	}
	r.meshPipeline = mesh
	r.mainDeletion.Push(mesh.Destroy)
	return nil
}

func (r *Renderer) SetOverlay(o Overlay) {
	r.overlay = o
}

func (r *Renderer) Control() *ControlState {
	return &r.control
}

func (r *Renderer) Allocator() *Allocator {
	return r.allocator
}

func (r *Renderer) Immediate() *ImmediateSubmitter {
	return r.immediate
}

func (r *Renderer) FrameNumber() uint64 {
	return r.frameNumber
}

func (r *Renderer) State() FrameState {
	return r.state
}

// DrawExtent returns the extent used by the last recorded frame.
func (r *Renderer) DrawExtent() metadata.Extent2D {
	return r.drawExtent
}

func (r *Renderer) SwapchainExtent() metadata.Extent2D {
	return r.swapchain.Extent
}

// RequestResize flags the swapchain for recreation before the next frame.
func (r *Renderer) RequestResize() {
	r.swapchain.RequestResize()
}

func (r *Renderer) PendingResize() bool {
	return r.swapchain.PendingResize()
}

// ServicePendingResize recreates the swapchain if a resize is pending and the
// window has a drawable size. Returns whether the swapchain was recreated.
func (r *Renderer) ServicePendingResize(width, height uint32) (bool, error) {
	if !r.swapchain.PendingResize() || width == 0 || height == 0 {
		return false, nil
	}
	if err := r.swapchain.Resize(width, height); err != nil {
		return false, err
	}
	return true, nil
}

// UploadMesh uploads geometry and keeps it alive until Shutdown. Nil surfaces
// draws all indices as a single surface.
func (r *Renderer) UploadMesh(name string, indices []uint32, vertices []metadata.Vertex, surfaces []metadata.GeoSurface) (*metadata.MeshAsset, error) {
	buffers, err := r.allocator.UploadMesh(indices, vertices)
	if err != nil {
		return nil, errors.Wrapf(err, "uploading mesh %q", name)
	}
	if surfaces == nil {
		surfaces = []metadata.GeoSurface{{StartIndex: 0, Count: uint32(len(indices))}}
	}
	mesh := &metadata.MeshAsset{
		Name:        name,
		Surfaces:    surfaces,
		MeshBuffers: buffers,
	}
	r.meshes = append(r.meshes, mesh)
	return mesh, nil
}

// ReloadShader rebuilds every pipeline built from shader. Failures keep the
// previous pipeline and are returned for logging.
func (r *Renderer) ReloadShader(shader string) error {
	if err := r.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "waiting for idle before shader reload")
	}
	matched, err := r.background.Reload(shader)
	r.control.Effects = r.background.Effects()
	r.control.SelectEffect(r.control.EffectIndex)
	if err != nil {
		return err
	}
	meshMatched, err := r.meshPipeline.Reload(shader)
	if err != nil {
		return err
	}
	if !matched && !meshMatched {
		core.LogDebug("no pipeline uses shader %s", shader)
	}
	return nil
}

// Draw runs one frame cycle. An out of date swapchain aborts the frame
// without error and leaves a pending resize; every other error is fatal.
func (r *Renderer) Draw(drawCtx *metadata.DrawContext) error {
	r.state = FrameStateWaitGPU
	frame, err := r.frames.Begin(r.frameNumber)
	if err != nil {
		return err
	}

	r.state = FrameStateAcquire
	imageIndex, err := r.swapchain.Acquire(r.config.AcquireTimeout(), frame.SwapchainReady)
	if err != nil {
		if !core.IsRecoverable(err) {
			return err
		}
		core.LogDebug("frame %d aborted: %v", r.frameNumber, err)
		// The fence was reset in Begin and nothing will be submitted with it.
		if err := r.device.SignalFence(frame.FrameComplete); err != nil {
			return errors.Wrap(err, "re-arming frame fence")
		}
		r.endFrame()
		return nil
	}

	r.state = FrameStateRecord
	if r.overlay != nil {
		r.overlay.Update(&r.control)
	}
	if err := r.record(frame, imageIndex, drawCtx); err != nil {
		return err
	}

	r.state = FrameStateSubmit
	if err := r.device.Submit(metadata.SubmitInfo{
		CommandBuffer: frame.CommandBuffer,
		Wait: []metadata.SemaphoreSubmit{{
			Semaphore: frame.SwapchainReady,
			Stage:     metadata.PipelineStageColorAttachmentOutput,
		}},
		Signal: []metadata.SemaphoreSubmit{{
			Semaphore: frame.RenderComplete,
			Stage:     metadata.PipelineStageAllGraphics,
		}},
		Fence: frame.FrameComplete,
	}); err != nil {
		return errors.Wrapf(err, "submitting frame %d", r.frameNumber)
	}

	r.state = FrameStatePresent
	if err := r.swapchain.Present(imageIndex, frame.RenderComplete); err != nil {
		if !core.IsRecoverable(err) {
			return err
		}
		core.LogDebug("present of frame %d out of date", r.frameNumber)
	}
	r.endFrame()
	return nil
}

func (r *Renderer) endFrame() {
	r.frameNumber++
	r.state = FrameStateIdle
}

func (r *Renderer) record(frame *FrameContext, imageIndex uint32, drawCtx *metadata.DrawContext) error {
	if err := r.device.ResetCommandBuffer(frame.CommandBuffer); err != nil {
		return errors.Wrap(err, "resetting frame command buffer")
	}
	cmd, err := r.device.BeginCommandBuffer(frame.CommandBuffer)
	if err != nil {
		return errors.Wrap(err, "beginning frame command buffer")
	}

	swapExtent := r.swapchain.Extent
	swapImage := r.swapchain.Images[imageIndex]
	r.drawExtent = math.ScaleExtent(swapExtent, r.drawImage.Extent.To2D(), r.control.RenderScale)
	drawable := r.drawExtent.Width > 0 && r.drawExtent.Height > 0

	cmd.TransitionImage(r.drawImage.Image, metadata.ImageLayoutUndefined, metadata.ImageLayoutGeneral)
	if effect := r.control.CurrentEffect(); effect != nil && drawable {
		r.background.Record(cmd, effect, r.drawImageDescriptors, r.drawExtent)
	}

	cmd.TransitionImage(r.drawImage.Image, metadata.ImageLayoutGeneral, metadata.ImageLayoutColorAttachmentOptimal)
	cmd.TransitionImage(r.depthImage.Image, metadata.ImageLayoutUndefined, metadata.ImageLayoutDepthAttachmentOptimal)
	if drawable {
		if err := r.drawGeometry(cmd, frame, drawCtx); err != nil {
			return err
		}
	}

	cmd.TransitionImage(r.drawImage.Image, metadata.ImageLayoutColorAttachmentOptimal, metadata.ImageLayoutTransferSrcOptimal)
	cmd.TransitionImage(swapImage, metadata.ImageLayoutUndefined, metadata.ImageLayoutTransferDstOptimal)
	if drawable {
		cmd.BlitImage(r.drawImage.Image, swapImage, r.drawExtent, swapExtent)
	}

	cmd.TransitionImage(swapImage, metadata.ImageLayoutTransferDstOptimal, metadata.ImageLayoutColorAttachmentOptimal)
	if r.overlay != nil {
		r.overlay.Draw(cmd, r.swapchain.Views[imageIndex], r.swapchain.Format, swapExtent)
	}
	cmd.TransitionImage(swapImage, metadata.ImageLayoutColorAttachmentOptimal, metadata.ImageLayoutPresentSrc)

	if err := r.device.EndCommandBuffer(frame.CommandBuffer); err != nil {
		return errors.Wrap(err, "ending frame command buffer")
	}
	return nil
}

func (r *Renderer) updateScene() {
	view := math.NewMat4Translation(math.NewVec3(0, 0, -5))
	aspect := float32(r.drawExtent.Width) / float32(r.drawExtent.Height)
	// Reversed depth: near and far are swapped.
	proj := math.NewMat4Perspective(math.DegToRad(70), aspect, 10000, 0.1).FlipY()

	r.sceneData.View = view
	r.sceneData.Proj = proj
	r.sceneData.ViewProj = proj.Mul(view)
}

func (r *Renderer) drawGeometry(cmd CommandRecorder, frame *FrameContext, drawCtx *metadata.DrawContext) error {
	r.updateScene()

	// The scene buffer lives until this frame slot is reused.
	sceneBuffer, err := r.allocator.CreateBuffer(metadata.GPUSceneDataSize, metadata.BufferUsageUniform, metadata.MemoryUsageCPUToGPU)
	if err != nil {
		return errors.Wrap(err, "creating scene data buffer")
	}
	frame.Deletion.Push(func() { r.allocator.DestroyBuffer(sceneBuffer) })
	if err := r.allocator.WriteBuffer(sceneBuffer, 0, r.sceneData.Bytes()); err != nil {
		return err
	}

	sceneSet, err := frame.Descriptors.Allocate(r.sceneDataLayout)
	if err != nil {
		return err
	}
	var writer DescriptorWriter
	writer.WriteBuffer(0, sceneBuffer.Buffer, metadata.GPUSceneDataSize, 0, metadata.DescriptorTypeUniformBuffer)
	writer.UpdateSet(r.device, sceneSet)

	cmd.BeginRendering(metadata.RenderingInfo{
		Extent:      r.drawExtent,
		ColorView:   r.drawImage.View,
		ColorFormat: r.drawImage.Format,
		ColorLayout: metadata.ImageLayoutColorAttachmentOptimal,
		DepthView:   r.depthImage.View,
		DepthFormat: r.depthImage.Format,
		DepthLayout: metadata.ImageLayoutDepthAttachmentOptimal,
		// Reversed-Z: the far plane sits at 0.
		ClearDepth:      true,
		DepthClearValue: 0,
	})
	if r.meshPipeline.Ready() && drawCtx != nil && len(drawCtx.Opaque) > 0 {
		layout := r.meshPipeline.Layout()
		cmd.BindPipeline(metadata.PipelineBindPointGraphics, r.meshPipeline.Pipeline())
		cmd.BindDescriptorSets(metadata.PipelineBindPointGraphics, layout, 0, sceneSet)
		cmd.SetViewport(metadata.Viewport{
			Width:    float32(r.drawExtent.Width),
			Height:   float32(r.drawExtent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		})
		cmd.SetScissor(metadata.Rect2D{Extent: r.drawExtent})

		for _, obj := range drawCtx.Opaque {
			push := metadata.DrawPushConstants{WorldMatrix: obj.Transform}
			cmd.PushConstants(layout, metadata.ShaderStageVertex, 0, push.Bytes())
			cmd.BindVertexBuffer(obj.VertexBuffer, 0)
			cmd.BindIndexBuffer(obj.IndexBuffer, 0)
			cmd.DrawIndexed(obj.IndexCount, 1, obj.FirstIndex, 0, 0)
		}
	}
	cmd.EndRendering()
	return nil
}

// Shutdown waits for the device, then releases every renderer resource. The
// backend itself is left alive.
func (r *Renderer) Shutdown() {
	if r.state == FrameStateShutdown {
		return
	}
	r.state = FrameStateShutdown

	if err := r.device.WaitIdle(); err != nil {
		core.LogError("waiting for idle on shutdown: %v", err)
	}
	if r.frames != nil {
		r.frames.Destroy()
	}
	for _, mesh := range r.meshes {
		r.allocator.DestroyMesh(mesh.MeshBuffers)
	}
	r.meshes = nil
	r.mainDeletion.Flush()
	if r.swapchain != nil {
		r.swapchain.Destroy()
	}
	if r.allocator != nil {
		if n := r.allocator.LiveAllocations(); n > 0 {
			core.LogWarn("%d allocations alive after shutdown", n)
			r.allocator.ReportLeaks()
		}
	}
	core.LogInfo("renderer shut down after %d frames", r.frameNumber)
}
