package renderer_test

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
)

const immediateTimeout = time.Duration(9999999999)

func TestImmediateSubmitSequence(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	imm, err := renderer.NewImmediateSubmitter(fake, immediateTimeout)
	require.NoError(t, err)
	fake.ClearCalls()

	require.NoError(t, imm.SubmitAndWait(func(cmd renderer.CommandRecorder) {
		cmd.CopyBuffer(1, 2, metadata.BufferCopy{Size: 16})
	}))

	require.Equal(t, []string{
		"ResetFence",
		"ResetCommandBuffer",
		"BeginCommandBuffer",
		"cmd.CopyBuffer",
		"EndCommandBuffer",
		"Submit",
		"WaitForFence",
	}, fake.Names())

	calls := fake.Calls()
	submit := calls[5].Args[0].(metadata.SubmitInfo)
	require.Empty(t, submit.Wait)
	require.Empty(t, submit.Signal)
	require.Equal(t, immediateTimeout, calls[6].Args[1])
}

func TestImmediateSubmitsNeverOverlap(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	imm, err := renderer.NewImmediateSubmitter(fake, immediateTimeout)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- imm.SubmitAndWait(func(cmd renderer.CommandRecorder) {
				cmd.Dispatch(1, 1, 1)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Zero(t, fake.Overlaps)
	require.Equal(t, workers, fake.Count("Submit"))

	// Every begin is closed by its own submit before the next begin.
	names := fake.Names()
	open := false
	for _, n := range names {
		switch n {
		case "BeginCommandBuffer":
			require.False(t, open)
			open = true
		case "WaitForFence":
			require.True(t, open)
			open = false
		}
	}
}

func TestImmediateSubmitTimeoutIsFatal(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	imm, err := renderer.NewImmediateSubmitter(fake, immediateTimeout)
	require.NoError(t, err)

	fake.FenceTimeout = true
	err = imm.SubmitAndWait(func(renderer.CommandRecorder) {})
	require.True(t, errors.Is(err, core.ErrWaitTimeout))

	imm.Destroy()
	require.Zero(t, fake.Live(rendertest.KindCommandPool))
	require.Zero(t, fake.Live(rendertest.KindFence))
}
