package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventBusFireInRegistrationOrder(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	first, second := &struct{ a int }{}, &struct{ b int }{}
	require.True(t, bus.Register(EVENT_CODE_RESIZED, first, func(code SystemEventCode, sender interface{}, data EventContext) bool {
		calls = append(calls, "first")
		require.Equal(t, uint32(800), data.Data.U32[0])
		return false
	}))
	require.True(t, bus.Register(EVENT_CODE_RESIZED, second, func(code SystemEventCode, sender interface{}, data EventContext) bool {
		calls = append(calls, "second")
		return true
	}))

	ctx := EventContext{}
	ctx.Data.U32[0] = 800
	require.True(t, bus.Fire(EVENT_CODE_RESIZED, nil, ctx))
	require.Equal(t, []string{"first", "second"}, calls)
}

func TestEventBusDuplicateAndUnregister(t *testing.T) {
	bus := NewEventBus()
	listener := &struct{ x int }{}
	handled := func(SystemEventCode, interface{}, EventContext) bool { return true }

	require.True(t, bus.Register(EVENT_CODE_KEY_PRESSED, listener, handled))
	require.False(t, bus.Register(EVENT_CODE_KEY_PRESSED, listener, handled))
	require.True(t, bus.Fire(EVENT_CODE_KEY_PRESSED, nil, EventContext{}))

	require.True(t, bus.Unregister(EVENT_CODE_KEY_PRESSED, listener))
	require.False(t, bus.Unregister(EVENT_CODE_KEY_PRESSED, listener))
	require.False(t, bus.Fire(EVENT_CODE_KEY_PRESSED, nil, EventContext{}))
}

func TestEventBusShutdownDropsListeners(t *testing.T) {
	bus := NewEventBus()
	bus.Register(EVENT_CODE_APPLICATION_QUIT, "engine", func(SystemEventCode, interface{}, EventContext) bool { return true })
	bus.Shutdown()
	require.False(t, bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}))
}
