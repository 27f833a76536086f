package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/lumen/engine/core"
)

func TestKeyEvent(t *testing.T) {
	code, ctx, ok := keyEvent(glfw.KeyTab, glfw.Press)
	assert.True(t, ok)
	assert.Equal(t, core.EVENT_CODE_KEY_PRESSED, code)
	assert.Equal(t, uint16(glfw.KeyTab), ctx.Data.U16[0])

	code, _, ok = keyEvent(glfw.KeyTab, glfw.Repeat)
	assert.True(t, ok)
	assert.Equal(t, core.EVENT_CODE_KEY_PRESSED, code)

	code, _, ok = keyEvent(glfw.KeyEscape, glfw.Release)
	assert.True(t, ok)
	assert.Equal(t, core.EVENT_CODE_KEY_RELEASED, code)

	_, _, ok = keyEvent(glfw.KeyUnknown, glfw.Press)
	assert.False(t, ok)
}

func TestButtonEvent(t *testing.T) {
	code, ctx, ok := buttonEvent(glfw.MouseButtonRight, glfw.Press)
	assert.True(t, ok)
	assert.Equal(t, core.EVENT_CODE_BUTTON_PRESSED, code)
	assert.Equal(t, uint16(glfw.MouseButtonRight), ctx.Data.U16[0])

	code, _, ok = buttonEvent(glfw.MouseButtonLeft, glfw.Release)
	assert.True(t, ok)
	assert.Equal(t, core.EVENT_CODE_BUTTON_RELEASED, code)
}

func TestScrollEvent(t *testing.T) {
	ctx, ok := scrollEvent(2.5)
	assert.True(t, ok)
	assert.Equal(t, int8(1), ctx.Data.I8[0])

	ctx, ok = scrollEvent(-0.1)
	assert.True(t, ok)
	assert.Equal(t, int8(-1), ctx.Data.I8[0])

	_, ok = scrollEvent(0)
	assert.False(t, ok)
}

func TestResizeEvent(t *testing.T) {
	code, ctx := resizeEvent(1280, 720)
	assert.Equal(t, core.EVENT_CODE_RESIZED, code)
	assert.Equal(t, uint32(1280), ctx.Data.U32[0])
	assert.Equal(t, uint32(720), ctx.Data.U32[1])

	// Minimizing on some platforms reports a zero or negative size.
	_, ctx = resizeEvent(-1, 0)
	assert.Equal(t, uint32(0), ctx.Data.U32[0])
}

func TestCallbacksPublishOnBus(t *testing.T) {
	bus := core.NewEventBus()
	p := New(bus)

	var got []core.SystemEventCode
	record := func(code core.SystemEventCode, sender interface{}, data core.EventContext) bool {
		assert.Same(t, p, sender)
		got = append(got, code)
		return false
	}
	for _, code := range []core.SystemEventCode{
		core.EVENT_CODE_RESIZED,
		core.EVENT_CODE_MINIMIZED,
		core.EVENT_CODE_RESTORED,
		core.EVENT_CODE_APPLICATION_QUIT,
		core.EVENT_CODE_MOUSE_MOVED,
	} {
		bus.Register(code, t, record)
	}

	p.framebufferSizeCallback(nil, 800, 600)
	p.iconifyCallback(nil, true)
	p.iconifyCallback(nil, false)
	p.cursorPosCallback(nil, 1, 2)
	p.closeCallback(nil)

	assert.Equal(t, []core.SystemEventCode{
		core.EVENT_CODE_RESIZED,
		core.EVENT_CODE_MINIMIZED,
		core.EVENT_CODE_RESTORED,
		core.EVENT_CODE_MOUSE_MOVED,
		core.EVENT_CODE_APPLICATION_QUIT,
	}, got)
}
