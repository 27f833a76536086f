package platform

import (
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/lumen/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the window and turns its callbacks into events on the bus.
type Platform struct {
	Window *glfw.Window
	bus    *core.EventBus

	startTime float64
}

func New(bus *core.EventBus) *Platform {
	return &Platform{
		bus: bus,
	}
}

func (p *Platform) Startup(applicationName string, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize glfw")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.Mark(errors.New("glfw reports no vulkan loader"), core.ErrNoSuitableDevice)
	}

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "failed to create window")
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetScrollCallback(p.scrollCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetIconifyCallback(p.iconifyCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	p.startTime = glfw.GetTime()

	core.LogInfo("Window '%s' created (%dx%d).", applicationName, width, height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. Callbacks fire from here.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

func (p *Platform) ShouldClose() bool {
	return p.Window == nil || p.Window.ShouldClose()
}

// FramebufferSize returns the drawable size in pixels.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(max(w, 0)), uint32(max(h, 0))
}

func (p *Platform) SetTitle(title string) {
	if p.Window != nil {
		p.Window.SetTitle(title)
	}
}

// GetRequiredExtensionNames lists the instance extensions the window
// surface needs.
func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateWindowSurface returns the raw VkSurfaceKHR for instance.
func (p *Platform) CreateWindowSurface(instance interface{}) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, nil)
}

// GetAbsoluteTime returns the seconds elapsed since Startup.
func (p *Platform) GetAbsoluteTime() float64 {
	return glfw.GetTime() - p.startTime
}

func (p *Platform) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (p *Platform) fire(code core.SystemEventCode, ctx core.EventContext) {
	if p.bus != nil {
		p.bus.Fire(code, p, ctx)
	}
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if code, ctx, ok := keyEvent(key, action); ok {
		p.fire(code, ctx)
	}
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if code, ctx, ok := buttonEvent(button, action); ok {
		p.fire(code, ctx)
	}
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	var ctx core.EventContext
	ctx.Data.F64[0] = xpos
	ctx.Data.F64[1] = ypos
	p.fire(core.EVENT_CODE_MOUSE_MOVED, ctx)
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	if ctx, ok := scrollEvent(yoff); ok {
		p.fire(core.EVENT_CODE_MOUSE_WHEEL, ctx)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.fire(resizeEvent(width, height))
}

func (p *Platform) iconifyCallback(w *glfw.Window, iconified bool) {
	if iconified {
		p.fire(core.EVENT_CODE_MINIMIZED, core.EventContext{})
		return
	}
	p.fire(core.EVENT_CODE_RESTORED, core.EventContext{})
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.fire(core.EVENT_CODE_APPLICATION_QUIT, core.EventContext{})
}

// keyEvent maps a glfw key action onto a pressed or released event. Repeats
// count as presses.
func keyEvent(key glfw.Key, action glfw.Action) (core.SystemEventCode, core.EventContext, bool) {
	if key == glfw.KeyUnknown {
		return 0, core.EventContext{}, false
	}
	var ctx core.EventContext
	ctx.Data.U16[0] = uint16(key)
	if action == glfw.Release {
		return core.EVENT_CODE_KEY_RELEASED, ctx, true
	}
	return core.EVENT_CODE_KEY_PRESSED, ctx, true
}

func buttonEvent(button glfw.MouseButton, action glfw.Action) (core.SystemEventCode, core.EventContext, bool) {
	var ctx core.EventContext
	ctx.Data.U16[0] = uint16(button)
	switch action {
	case glfw.Press:
		return core.EVENT_CODE_BUTTON_PRESSED, ctx, true
	case glfw.Release:
		return core.EVENT_CODE_BUTTON_RELEASED, ctx, true
	}
	return 0, ctx, false
}

// scrollEvent keeps only the direction of the vertical offset.
func scrollEvent(yoff float64) (core.EventContext, bool) {
	var ctx core.EventContext
	switch {
	case yoff > 0:
		ctx.Data.I8[0] = 1
	case yoff < 0:
		ctx.Data.I8[0] = -1
	default:
		return ctx, false
	}
	return ctx, true
}

func resizeEvent(width, height int) (core.SystemEventCode, core.EventContext) {
	var ctx core.EventContext
	ctx.Data.U32[0] = uint32(max(width, 0))
	ctx.Data.U32[1] = uint32(max(height, 0))
	return core.EVENT_CODE_RESIZED, ctx
}
