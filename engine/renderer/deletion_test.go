package renderer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/renderer"
)

func TestDeletionQueueRunsNewestFirst(t *testing.T) {
	var q renderer.DeletionQueue
	var order []string
	q.Push(func() { order = append(order, "a") })
	q.Push(func() { order = append(order, "b") })
	q.Push(func() { order = append(order, "c") })
	require.Equal(t, 3, q.Len())

	q.Flush()
	require.Equal(t, []string{"c", "b", "a"}, order)
	require.Zero(t, q.Len())
}

func TestDeletionQueueFlushIsIdempotent(t *testing.T) {
	var q renderer.DeletionQueue
	runs := 0
	q.Push(func() { runs++ })

	q.Flush()
	q.Flush()
	require.Equal(t, 1, runs)

	var empty renderer.DeletionQueue
	require.NotPanics(t, empty.Flush)
}

func TestDeletionQueueRunsActionsPushedDuringFlush(t *testing.T) {
	var q renderer.DeletionQueue
	var order []string
	q.Push(func() { order = append(order, "view") })
	q.Push(func() {
		order = append(order, "image")
		q.Push(func() { order = append(order, "memory") })
	})

	q.Flush()
	require.Equal(t, []string{"image", "view", "memory"}, order)
	require.Zero(t, q.Len())

	q.Flush()
	require.Len(t, order, 3)
}
