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

func completeFrame(t *testing.T, fake *rendertest.FakeBackend, frame *renderer.FrameContext) {
	t.Helper()
	require.NoError(t, fake.Submit(metadata.SubmitInfo{Fence: frame.FrameComplete}))
}

func TestFrameRingSlotSequence(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	ring, err := renderer.NewFrameRing(fake, 2, 10, time.Second)
	require.NoError(t, err)
	require.Equal(t, 2, ring.Len())

	var slots []int
	for n := uint64(0); n < 5; n++ {
		frame, err := ring.Begin(n)
		require.NoError(t, err)
		slots = append(slots, frame.Index)
		completeFrame(t, fake, frame)
	}
	require.Equal(t, []int{0, 1, 0, 1, 0}, slots)
	require.Same(t, ring.Current(0), ring.Current(2))
	require.NotSame(t, ring.Current(0), ring.Current(1))
}

func TestFrameRingBeginOrder(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	ring, err := renderer.NewFrameRing(fake, 2, 10, time.Second)
	require.NoError(t, err)

	frame := ring.Current(0)
	frame.Deletion.Push(func() { fake.Note("deleted") })
	fake.ClearCalls()

	_, err = ring.Begin(0)
	require.NoError(t, err)

	wait := fake.IndexFrom("WaitForFence", 0)
	reset := fake.IndexFrom("ResetFence", 0)
	flushed := fake.IndexFrom("note:deleted", 0)
	pools := fake.IndexFrom("ResetDescriptorPool", 0)
	require.True(t, wait >= 0 && wait < reset, "wait before fence reset")
	require.Less(t, reset, flushed)
	require.Less(t, flushed, pools)
	require.Zero(t, frame.Deletion.Len())
}

func TestFrameRingFenceTimeoutIsFatal(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	ring, err := renderer.NewFrameRing(fake, 2, 10, 5*time.Millisecond)
	require.NoError(t, err)

	fake.FenceTimeout = true
	_, err = ring.Begin(0)
	require.Error(t, err)
	require.True(t, errors.Is(err, core.ErrWaitTimeout))
	require.True(t, core.IsFatal(err))
	require.Equal(t, 0, fake.Count("ResetFence"))
}

func TestFrameRingWaitsForUnfinishedSlot(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	ring, err := renderer.NewFrameRing(fake, 2, 10, time.Second)
	require.NoError(t, err)

	_, err = ring.Begin(0)
	require.NoError(t, err)
	// Slot 0 was never submitted, so its fence stays unsignaled.
	_, err = ring.Begin(2)
	require.True(t, errors.Is(err, core.ErrWaitTimeout))
}

func TestFrameRingDestroyReleasesEverything(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	ring, err := renderer.NewFrameRing(fake, 3, 10, time.Second)
	require.NoError(t, err)
	require.Equal(t, 3, fake.Live(rendertest.KindFence))
	require.Equal(t, 6, fake.Live(rendertest.KindSemaphore))
	require.Equal(t, 3, fake.Live(rendertest.KindCommandBuffer))

	flushed := 0
	ring.Current(1).Deletion.Push(func() { flushed++ })
	ring.Destroy()

	require.Equal(t, 1, flushed)
	for _, kind := range []string{
		rendertest.KindFence, rendertest.KindSemaphore, rendertest.KindCommandPool,
		rendertest.KindCommandBuffer, rendertest.KindDescriptorPool,
	} {
		require.Zero(t, fake.Live(kind), kind)
	}
	require.Zero(t, fake.InvalidDestroys)
}
