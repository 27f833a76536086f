package renderer_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
)

func outOfDate() error {
	return errors.Mark(errors.New("VK_ERROR_OUT_OF_DATE_KHR"), core.ErrSurfaceOutOfDate)
}

func TestSwapchainCreateUsesFixedFormat(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	sc := renderer.NewSwapchainManager(fake)
	require.NoError(t, sc.Create(1280, 720))

	calls := fake.Calls()
	info := calls[0].Args[0].(metadata.SwapchainCreateInfo)
	require.Equal(t, metadata.FormatB8G8R8A8Unorm, info.Format)
	require.Equal(t, metadata.PresentModeFifo, info.PresentMode)
	require.NotZero(t, info.Usage&metadata.ImageUsageTransferDst)

	require.Equal(t, metadata.Extent2D{Width: 1280, Height: 720}, sc.Extent)
	require.Len(t, sc.Images, 3)
	require.Len(t, sc.Views, 3)
}

func TestSwapchainResizeIsIdempotent(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	sc := renderer.NewSwapchainManager(fake)
	require.NoError(t, sc.Create(800, 600))

	sc.RequestResize()
	require.NoError(t, sc.Resize(1024, 768))
	firstViews := append([]metadata.ImageViewHandle(nil), sc.Views...)
	firstExtent := sc.Extent
	require.False(t, sc.PendingResize())

	require.NoError(t, sc.Resize(1024, 768))
	require.Equal(t, firstExtent, sc.Extent)
	require.Len(t, sc.Views, len(firstViews))
	for _, v := range sc.Views {
		require.NotContains(t, firstViews, v)
	}

	require.Equal(t, 3, fake.Live(rendertest.KindImageView))
	require.Equal(t, 1, fake.Live(rendertest.KindSwapchain))
	require.Equal(t, 2, fake.Count("WaitIdle"))
	require.Zero(t, fake.InvalidDestroys)
}

func TestSwapchainHonoursSurfaceExtent(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	fake.SurfaceExtent = &metadata.Extent2D{Width: 640, Height: 480}
	sc := renderer.NewSwapchainManager(fake)
	require.NoError(t, sc.Create(800, 600))
	require.Equal(t, *fake.SurfaceExtent, sc.Extent)
}

func TestSwapchainOutOfDateFlagsResize(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	sc := renderer.NewSwapchainManager(fake)
	require.NoError(t, sc.Create(800, 600))

	fake.AcquireErrors = []error{outOfDate()}
	_, err := sc.Acquire(time.Second, 1)
	require.True(t, core.IsRecoverable(err))
	require.True(t, sc.PendingResize())

	require.NoError(t, sc.Resize(800, 600))
	fake.PresentErrors = []error{outOfDate()}
	require.True(t, core.IsRecoverable(sc.Present(0, 1)))
	require.True(t, sc.PendingResize())
}

func TestSwapchainDestroyLeavesNothing(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	sc := renderer.NewSwapchainManager(fake)
	require.NoError(t, sc.Create(800, 600))
	sc.Destroy()
	sc.Destroy()

	require.Zero(t, fake.Live(rendertest.KindSwapchain))
	require.Zero(t, fake.Live(rendertest.KindSwapchainImage))
	require.Zero(t, fake.Live(rendertest.KindImageView))
	require.Zero(t, fake.InvalidDestroys)
}
