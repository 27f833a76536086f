package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsAverageAndFPS(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < AVG_COUNT; i++ {
		m.Update(10 * time.Millisecond)
	}
	require.InDelta(t, 10.0, m.FrameTime(), 1e-9)

	// 101 frames of 10ms cross the one second window.
	for i := 0; i < 71; i++ {
		m.Update(10 * time.Millisecond)
	}
	fps, avg := m.Frame()
	require.Equal(t, 101.0, fps)
	require.InDelta(t, 10.0, avg, 1e-9)
}

func TestClockElapsed(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewClock()
	c.now = func() time.Time { return now }

	c.Update()
	require.Zero(t, c.Elapsed())

	c.Start()
	now = now.Add(250 * time.Millisecond)
	c.Update()
	require.Equal(t, 250*time.Millisecond, c.Elapsed())

	c.Stop()
	now = now.Add(time.Second)
	c.Update()
	require.Equal(t, 250*time.Millisecond, c.Elapsed())
}

func TestNewResourceName(t *testing.T) {
	a, b := NewResourceName("buffer"), NewResourceName("buffer")
	require.True(t, strings.HasPrefix(a, "buffer-"))
	require.Len(t, a, len("buffer-")+8)
	require.NotEqual(t, a, b)
}
