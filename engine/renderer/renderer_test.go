package renderer_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
)

func newRenderer(t *testing.T, fake *rendertest.FakeBackend, shaders rendertest.StaticShaders) *renderer.Renderer {
	t.Helper()
	r, err := renderer.New(fake, shaders, renderer.Options{
		Config:       core.DefaultConfig().Renderer,
		WindowWidth:  800,
		WindowHeight: 600,
		DrawWidth:    1920,
		DrawHeight:   450,
	})
	require.NoError(t, err)
	t.Cleanup(r.Shutdown)
	fake.ClearCalls()
	return r
}

func callsNamed(fake *rendertest.FakeBackend, name string) []rendertest.Call {
	var out []rendertest.Call
	for _, c := range fake.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

type transition struct {
	from, to metadata.ImageLayout
}

func transitions(fake *rendertest.FakeBackend) []transition {
	var out []transition
	for _, c := range callsNamed(fake, "cmd.TransitionImage") {
		out = append(out, transition{c.Args[1].(metadata.ImageLayout), c.Args[2].(metadata.ImageLayout)})
	}
	return out
}

func rectangle() ([]uint32, []metadata.Vertex) {
	vertices := []metadata.Vertex{
		{Position: math.NewVec3(0.5, -0.5, 0), Color: math.NewVec4(0, 0, 0, 1)},
		{Position: math.NewVec3(0.5, 0.5, 0), Color: math.NewVec4(0.5, 0.5, 0.5, 1)},
		{Position: math.NewVec3(-0.5, -0.5, 0), Color: math.NewVec4(1, 0, 0, 1)},
		{Position: math.NewVec3(-0.5, 0.5, 0), Color: math.NewVec4(0, 1, 0, 1)},
	}
	return []uint32{0, 1, 2, 2, 1, 3}, vertices
}

func TestRendererDrawExtentIsScaledMinimum(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())

	require.NoError(t, r.Draw(nil))
	require.Equal(t, metadata.Extent2D{Width: 800, Height: 450}, r.DrawExtent())

	dispatch := callsNamed(fake, "cmd.Dispatch")
	require.Len(t, dispatch, 1)
	require.Equal(t, []any{uint32(50), uint32(29), uint32(1)}, dispatch[0].Args)

	blit := callsNamed(fake, "cmd.BlitImage")
	require.Len(t, blit, 1)
	require.Equal(t, metadata.Extent2D{Width: 800, Height: 450}, blit[0].Args[2])
	require.Equal(t, metadata.Extent2D{Width: 800, Height: 600}, blit[0].Args[3])

	r.Control().SetRenderScale(0.5)
	require.NoError(t, r.Draw(nil))
	require.Equal(t, metadata.Extent2D{Width: 400, Height: 225}, r.DrawExtent())
}

func TestRendererRenderScaleIsClamped(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())

	r.Control().SetRenderScale(0.05)
	require.InDelta(t, core.MinRenderScale, r.Control().RenderScale, 1e-6)
	r.Control().SetRenderScale(3)
	require.InDelta(t, core.MaxRenderScale, r.Control().RenderScale, 1e-6)
}

func TestRendererAcquireOutOfDateAbortsFrame(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())
	fake.AcquireErrors = []error{outOfDate()}

	require.NoError(t, r.Draw(nil))
	require.Zero(t, fake.Count("BeginCommandBuffer"))
	require.Zero(t, fake.Count("Submit"))
	require.Zero(t, fake.Count("Present"))
	require.Equal(t, 1, fake.Count("SignalFence"))
	require.True(t, r.PendingResize())
	require.Equal(t, uint64(1), r.FrameNumber())
	require.Equal(t, renderer.FrameStateIdle, r.State())

	recreated, err := r.ServicePendingResize(800, 600)
	require.NoError(t, err)
	require.True(t, recreated)
	require.False(t, r.PendingResize())

	// Slot 0 is reused on frame 2 and its fence must not be left unsignaled.
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Draw(nil))
	}
	require.Equal(t, 3, fake.Count("Submit"))
	require.Equal(t, uint64(4), r.FrameNumber())
}

func TestRendererFatalErrorsStopTheFrame(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())

	fake.AcquireErrors = []error{errors.Mark(errors.New("lost"), core.ErrDeviceLost)}
	err := r.Draw(nil)
	require.True(t, errors.Is(err, core.ErrDeviceLost))
	require.Zero(t, fake.Count("Submit"))

	fake.FenceTimeout = true
	err = r.Draw(nil)
	require.True(t, errors.Is(err, core.ErrWaitTimeout))
	require.Equal(t, renderer.FrameStateWaitGPU, r.State())
}

func TestRendererAlternatesFrameSlots(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())

	for i := 0; i < 4; i++ {
		require.NoError(t, r.Draw(nil))
	}
	waits := callsNamed(fake, "WaitForFence")
	require.Len(t, waits, 4)
	require.Equal(t, waits[0].Args[0], waits[2].Args[0])
	require.Equal(t, waits[1].Args[0], waits[3].Args[0])
	require.NotEqual(t, waits[0].Args[0], waits[1].Args[0])

	submits := callsNamed(fake, "Submit")
	require.Len(t, submits, 4)
	first := submits[0].Args[0].(metadata.SubmitInfo)
	third := submits[2].Args[0].(metadata.SubmitInfo)
	require.Equal(t, first.CommandBuffer, third.CommandBuffer)
	require.Equal(t, first.Fence, third.Fence)
	require.Len(t, first.Wait, 1)
	require.Len(t, first.Signal, 1)
}

// Present waits on the semaphore signalled by the frame submit. The signal
// fires when the whole batch completes, so its stage is not relied upon.
func TestRendererFrameSubmitChainsAcquireAndPresent(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())
	require.NoError(t, r.Draw(nil))

	acquire := callsNamed(fake, "AcquireNextImage")
	submit := callsNamed(fake, "Submit")
	present := callsNamed(fake, "Present")
	require.Len(t, acquire, 1)
	require.Len(t, submit, 1)
	require.Len(t, present, 1)

	info := submit[0].Args[0].(metadata.SubmitInfo)
	require.Len(t, info.Wait, 1)
	require.Equal(t, acquire[0].Args[2], uint64(info.Wait[0].Semaphore))
	require.Equal(t, metadata.PipelineStageColorAttachmentOutput, info.Wait[0].Stage)
	require.Len(t, info.Signal, 1)
	require.Equal(t, present[0].Args[2], uint64(info.Signal[0].Semaphore))
	require.NotEqual(t, info.Wait[0].Semaphore, info.Signal[0].Semaphore)
}

func TestRendererBeginsFrameBeforeAcquire(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())

	require.NoError(t, r.Draw(nil))
	require.NoError(t, r.Draw(nil))
	fake.ClearCalls()
	require.NoError(t, r.Draw(nil))

	wait := fake.IndexFrom("WaitForFence", 0)
	reset := fake.IndexFrom("ResetFence", 0)
	flush := fake.IndexFrom("DestroyBuffer", 0)
	clear := fake.IndexFrom("ResetDescriptorPool", 0)
	acquire := fake.IndexFrom("AcquireNextImage", 0)
	begin := fake.IndexFrom("BeginCommandBuffer", 0)
	submit := fake.IndexFrom("Submit", 0)
	present := fake.IndexFrom("Present", 0)

	require.NotEqual(t, -1, flush)
	require.Less(t, wait, reset)
	require.Less(t, reset, flush)
	require.Less(t, flush, clear)
	require.Less(t, clear, acquire)
	require.Less(t, acquire, begin)
	require.Less(t, begin, submit)
	require.Less(t, submit, present)
}

func TestRendererFrameResourcesAreRecycled(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())

	for i := 0; i < 10; i++ {
		require.NoError(t, r.Draw(nil))
	}
	// One scene buffer per frame still in flight.
	require.Equal(t, 2, fake.Live(rendertest.KindBuffer))
	// Two scene sets plus the draw image set from the global pool.
	require.Equal(t, 3, fake.Live(rendertest.KindDescriptorSet))
}

func TestRendererTransitionSequence(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())

	require.NoError(t, r.Draw(nil))
	require.Equal(t, []transition{
		{metadata.ImageLayoutUndefined, metadata.ImageLayoutGeneral},
		{metadata.ImageLayoutGeneral, metadata.ImageLayoutColorAttachmentOptimal},
		{metadata.ImageLayoutUndefined, metadata.ImageLayoutDepthAttachmentOptimal},
		{metadata.ImageLayoutColorAttachmentOptimal, metadata.ImageLayoutTransferSrcOptimal},
		{metadata.ImageLayoutUndefined, metadata.ImageLayoutTransferDstOptimal},
		{metadata.ImageLayoutTransferDstOptimal, metadata.ImageLayoutColorAttachmentOptimal},
		{metadata.ImageLayoutColorAttachmentOptimal, metadata.ImageLayoutPresentSrc},
	}, transitions(fake))

	names := fake.Names()
	var cmds []string
	for _, n := range names {
		if n == "cmd.Dispatch" || n == "cmd.BeginRendering" || n == "cmd.BlitImage" {
			cmds = append(cmds, n)
		}
	}
	require.Equal(t, []string{"cmd.Dispatch", "cmd.BeginRendering", "cmd.BlitImage"}, cmds)
}

func TestRendererGeometryClearsDepth(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())

	require.NoError(t, r.Draw(nil))
	scopes := callsNamed(fake, "cmd.BeginRendering")
	require.Len(t, scopes, 1)
	info := scopes[0].Args[0].(metadata.RenderingInfo)
	require.NotEqual(t, metadata.ImageViewHandle(metadata.InvalidHandle), info.DepthView)
	require.Equal(t, metadata.ImageLayoutDepthAttachmentOptimal, info.DepthLayout)
	require.True(t, info.ClearDepth)
	require.Zero(t, info.DepthClearValue)
}

type recordingOverlay struct {
	updates int
	draws   []metadata.Extent2D
	target  metadata.ImageViewHandle
	format  metadata.Format
}

func (o *recordingOverlay) HandleEvent(core.SystemEventCode, core.EventContext) bool { return false }

func (o *recordingOverlay) Update(*renderer.ControlState) { o.updates++ }

func (o *recordingOverlay) Draw(cmd renderer.CommandRecorder, target metadata.ImageViewHandle, format metadata.Format, extent metadata.Extent2D) {
	cmd.SetScissor(metadata.Rect2D{Extent: extent})
	o.draws = append(o.draws, extent)
	o.target = target
	o.format = format
}

func TestRendererOverlayUsesSwapchainExtent(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())
	overlay := &recordingOverlay{}
	r.SetOverlay(overlay)
	r.Control().SetRenderScale(0.5)

	require.NoError(t, r.Draw(nil))
	require.Equal(t, 1, overlay.updates)
	require.Equal(t, []metadata.Extent2D{{Width: 800, Height: 600}}, overlay.draws)
	require.NotEqual(t, metadata.ImageViewHandle(metadata.InvalidHandle), overlay.target)
	require.Equal(t, metadata.FormatB8G8R8A8Unorm, overlay.format)

	// The overlay records between the last two swapchain transitions.
	scissor := fake.IndexFrom("cmd.SetScissor", 0)
	var lastTransitions []int
	for i, n := range fake.Names() {
		if n == "cmd.TransitionImage" {
			lastTransitions = append(lastTransitions, i)
		}
	}
	require.Greater(t, scissor, lastTransitions[len(lastTransitions)-2])
	require.Less(t, scissor, lastTransitions[len(lastTransitions)-1])
}

func TestRendererPresentOutOfDateKeepsRunning(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())
	fake.PresentErrors = []error{outOfDate()}

	require.NoError(t, r.Draw(nil))
	require.Equal(t, 1, fake.Count("Submit"))
	require.True(t, r.PendingResize())
	require.Equal(t, uint64(1), r.FrameNumber())
}

func TestRendererServicePendingResize(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())

	recreated, err := r.ServicePendingResize(1024, 768)
	require.NoError(t, err)
	require.False(t, recreated)

	r.RequestResize()
	recreated, err = r.ServicePendingResize(0, 0)
	require.NoError(t, err)
	require.False(t, recreated)
	require.True(t, r.PendingResize())

	recreated, err = r.ServicePendingResize(1024, 768)
	require.NoError(t, err)
	require.True(t, recreated)
	require.Equal(t, metadata.Extent2D{Width: 1024, Height: 768}, r.SwapchainExtent())
	require.Equal(t, 1, fake.Live(rendertest.KindSwapchain))

	require.NoError(t, r.Draw(nil))
	// Draw target is 1920x450, so only the width grows.
	require.Equal(t, metadata.Extent2D{Width: 1024, Height: 450}, r.DrawExtent())
}

func TestRendererSurvivesMissingShaders(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	shaders := rendertest.DefaultShaders()
	delete(shaders, "sky.comp.spv")
	shaders[renderer.MeshFragmentShader] = []byte{1, 2, 3}
	r := newRenderer(t, fake, shaders)

	require.Len(t, r.Control().Effects, 1)
	require.Equal(t, "gradient", r.Control().Effects[0].Name)
	require.Zero(t, fake.Live(rendertest.KindShaderModule))

	indices, vertices := rectangle()
	mesh, err := r.UploadMesh("rect", indices, vertices, nil)
	require.NoError(t, err)
	var ctx metadata.DrawContext
	ctx.AddMesh(mesh, math.NewMat4Identity())

	require.NoError(t, r.Draw(&ctx))
	require.Equal(t, 1, fake.Count("cmd.Dispatch"))
	require.Zero(t, fake.Count("cmd.DrawIndexed"))
	require.Equal(t, 1, fake.Count("cmd.BeginRendering"))
}

func TestRendererWithoutEffectsSkipsDispatch(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.StaticShaders{})

	require.Nil(t, r.Control().CurrentEffect())
	require.NoError(t, r.Draw(nil))
	require.Zero(t, fake.Count("cmd.Dispatch"))
	require.Equal(t, 1, fake.Count("cmd.BlitImage"))
}

func TestRendererDrawsMeshes(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())

	indices, vertices := rectangle()
	mesh, err := r.UploadMesh("rect", indices, vertices, nil)
	require.NoError(t, err)
	require.Equal(t, []metadata.GeoSurface{{StartIndex: 0, Count: 6}}, mesh.Surfaces)

	var ctx metadata.DrawContext
	ctx.AddMesh(mesh, math.NewMat4Translation(math.NewVec3(0, 0, -1)))
	fake.ClearCalls()
	require.NoError(t, r.Draw(&ctx))

	draws := callsNamed(fake, "cmd.DrawIndexed")
	require.Len(t, draws, 1)
	require.Equal(t, []any{uint32(6), uint32(1), uint32(0), int32(0), uint32(0)}, draws[0].Args)

	binds := callsNamed(fake, "cmd.BindVertexBuffer")
	require.Len(t, binds, 1)
	require.Equal(t, uint64(mesh.MeshBuffers.VertexBuffer.Buffer), binds[0].Args[0])

	pushes := callsNamed(fake, "cmd.PushConstants")
	require.Len(t, pushes, 2)
	require.Len(t, pushes[1].Args[3].([]byte), 64)
	require.Equal(t, metadata.ShaderStageVertex, pushes[1].Args[1])

	ctx.Reset()
	require.Empty(t, ctx.Opaque)
}

func TestRendererShutdownReleasesEverything(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	r := newRenderer(t, fake, rendertest.DefaultShaders())

	indices, vertices := rectangle()
	mesh, err := r.UploadMesh("rect", indices, vertices, nil)
	require.NoError(t, err)
	var ctx metadata.DrawContext
	ctx.AddMesh(mesh, math.NewMat4Identity())
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Draw(&ctx))
	}
	require.NoError(t, r.ReloadShader("sky.comp.spv"))

	r.Shutdown()
	require.Equal(t, renderer.FrameStateShutdown, r.State())
	for _, kind := range []string{
		rendertest.KindFence, rendertest.KindSemaphore, rendertest.KindCommandPool,
		rendertest.KindCommandBuffer, rendertest.KindSwapchain, rendertest.KindSwapchainImage,
		rendertest.KindBuffer, rendertest.KindImage, rendertest.KindImageView,
		rendertest.KindDescriptorPool, rendertest.KindDescriptorSet, rendertest.KindDescriptorSetLayout,
		rendertest.KindShaderModule, rendertest.KindPipelineLayout, rendertest.KindPipeline,
	} {
		require.Zero(t, fake.Live(kind), kind)
	}
	require.Zero(t, fake.InvalidDestroys)
	require.Zero(t, r.Allocator().LiveAllocations())

	idle := fake.Count("WaitIdle")
	r.Shutdown()
	require.Equal(t, idle, fake.Count("WaitIdle"))
}

func TestRendererReloadShader(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	shaders := rendertest.DefaultShaders()
	r := newRenderer(t, fake, shaders)

	sky := r.Control().Effects[1]
	before := sky.Pipeline
	require.NoError(t, r.ReloadShader("sky.comp.spv"))
	require.NotEqual(t, before, sky.Pipeline)
	require.Equal(t, 1, fake.Count("CreateComputePipeline"))
	require.Equal(t, 1, fake.Count("DestroyPipeline"))
	require.Equal(t, 1, fake.Count("WaitIdle"))

	require.NoError(t, r.ReloadShader(renderer.MeshVertexShader))
	require.Equal(t, 1, fake.Count("CreateGraphicsPipeline"))

	require.NoError(t, r.ReloadShader("unknown.comp.spv"))

	shaders["sky.comp.spv"] = []byte{1}
	current := sky.Pipeline
	err := r.ReloadShader("sky.comp.spv")
	require.True(t, errors.Is(err, core.ErrShaderLoad))
	require.Equal(t, current, sky.Pipeline)
	require.Zero(t, fake.InvalidDestroys)
}

func TestRendererReloadRestoresMissingEffect(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	shaders := rendertest.DefaultShaders()
	spirv := shaders["gradient_color.comp.spv"]
	delete(shaders, "gradient_color.comp.spv")
	r := newRenderer(t, fake, shaders)
	require.Len(t, r.Control().Effects, 1)
	require.Equal(t, "sky", r.Control().CurrentEffect().Name)

	shaders["gradient_color.comp.spv"] = spirv
	require.NoError(t, r.ReloadShader("gradient_color.comp.spv"))
	require.Len(t, r.Control().Effects, 2)
	require.Equal(t, "gradient", r.Control().Effects[1].Name)
	require.Equal(t, "sky", r.Control().CurrentEffect().Name)

	require.NoError(t, r.Draw(nil))
	require.Equal(t, 1, fake.Count("cmd.Dispatch"))
}
