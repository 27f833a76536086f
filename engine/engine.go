package engine

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/ui"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released every subsystem
	EngineStageShutdown
)

const (
	suspendedSleep = 100 * time.Millisecond
	metricsPeriod  = time.Second
)

// inputEvents are forwarded to the overlay unmodified.
var inputEvents = []core.SystemEventCode{
	core.EVENT_CODE_KEY_PRESSED,
	core.EVENT_CODE_KEY_RELEASED,
	core.EVENT_CODE_BUTTON_PRESSED,
	core.EVENT_CODE_BUTTON_RELEASED,
	core.EVENT_CODE_MOUSE_MOVED,
	core.EVENT_CODE_MOUSE_WHEEL,
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    atomic.Bool
	isSuspended  bool

	bus          *core.EventBus
	platform     *platform.Platform
	assetManager *assets.AssetManager
	backend      *vulkan.VulkanBackend
	renderer     *renderer.Renderer
	panel        *ui.Panel

	width   uint32
	height  uint32
	clock   *core.Clock
	metrics *core.Metrics
	drawCtx metadata.DrawContext

	lastTime   time.Duration
	lastReport time.Duration
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.Mark(errors.New("game and application config are required"), core.ErrInvalidConfig)
	}
	bus := core.NewEventBus()
	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		bus:          bus,
		platform:     platform.New(bus),
		assetManager: assets.NewAssetManager(g.ApplicationConfig.Assets.ShaderDir),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}
	e.isRunning.Store(true)
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	cfg := e.gameInstance.ApplicationConfig

	e.registerEvents()

	if err := e.platform.Startup(cfg.Name, cfg.StartPosX, cfg.StartPosY, cfg.StartWidth, cfg.StartHeight); err != nil {
		return err
	}

	backend, err := vulkan.New(e.platform, cfg.Name, cfg.Renderer.Validation)
	if err != nil {
		return errors.Wrap(err, "creating vulkan backend")
	}
	e.backend = backend

	e.width, e.height = e.platform.FramebufferSize()
	r, err := renderer.New(backend, e.assetManager, renderer.Options{
		Config:       cfg.Renderer,
		WindowWidth:  e.width,
		WindowHeight: e.height,
		DrawWidth:    cfg.DrawWidth,
		DrawHeight:   cfg.DrawHeight,
	})
	if err != nil {
		return errors.Wrap(err, "creating renderer")
	}
	e.renderer = r

	e.panel = ui.NewPanel(cfg.Name, e.platform.SetTitle)
	e.renderer.SetOverlay(e.panel)
	for _, code := range inputEvents {
		e.bus.Register(code, e.panel, e.forwardToOverlay)
	}

	if cfg.Assets.HotReload {
		if err := e.assetManager.Watch(); err != nil {
			core.LogWarn("shader hot reload disabled: %s", err.Error())
		}
	}

	e.gameInstance.Renderer = e.renderer
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return errors.Wrap(err, "initializing game")
		}
	}
	if err := e.onResize(); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) registerEvents() {
	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.bus.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.bus.Register(core.EVENT_CODE_MINIMIZED, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_RESTORED, e, e.onEvent)
}

// Run drives the frame loop until the window closes or Stop is called. Any
// fatal frame error ends the loop and is returned.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			e.isRunning.Store(false)
			break
		}

		if e.isSuspended {
			e.platform.Sleep(suspendedSleep)
			continue
		}

		if err := e.frame(); err != nil {
			e.isRunning.Store(false)
			return err
		}
	}
	return nil
}

func (e *Engine) frame() error {
	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := (currentTime - e.lastTime).Seconds()
	frameStart := time.Now()

	e.reloadShaders()

	resized, err := e.renderer.ServicePendingResize(e.platform.FramebufferSize())
	if err != nil {
		return errors.Wrap(err, "recreating swapchain")
	}
	if resized {
		if err := e.onResize(); err != nil {
			return err
		}
	}

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			return errors.Wrap(err, "game update failed")
		}
	}

	e.drawCtx.Reset()
	if e.gameInstance.FnRender != nil {
		if err := e.gameInstance.FnRender(&e.drawCtx, delta); err != nil {
			return errors.Wrap(err, "game render failed")
		}
	}

	if err := e.renderer.Draw(&e.drawCtx); err != nil {
		return errors.Wrapf(err, "drawing frame %d", e.renderer.FrameNumber())
	}

	e.metrics.Update(time.Since(frameStart))
	if currentTime-e.lastReport >= metricsPeriod {
		fps, ms := e.metrics.Frame()
		core.LogDebug("%.0f fps, %.3f ms/frame, draw extent %dx%d", fps, ms, e.renderer.DrawExtent().Width, e.renderer.DrawExtent().Height)
		e.lastReport = currentTime
	}
	e.lastTime = currentTime
	return nil
}

// reloadShaders rebuilds the pipelines of every shader changed on disk
// since the last frame. A failed rebuild keeps the previous pipeline.
func (e *Engine) reloadShaders() {
	changed := map[string]struct{}{}
	for {
		select {
		case name := <-e.assetManager.Changes():
			changed[name] = struct{}{}
			continue
		default:
		}
		break
	}
	for name := range changed {
		core.LogInfo("reloading shader %s", name)
		if err := e.renderer.ReloadShader(name); err != nil {
			core.LogError("failed to reload shader %s: %v", name, err)
		}
	}
}

func (e *Engine) onResize() error {
	if e.gameInstance.FnOnResize == nil {
		return nil
	}
	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return errors.Wrap(err, "game resize failed")
	}
	return nil
}

// Stop asks the frame loop to exit after the current frame. Safe to call
// from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown releases the subsystems in reverse creation order. The renderer
// idles the device before freeing anything.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs error
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "game shutdown"))
		}
	}
	if e.renderer != nil {
		e.renderer.Shutdown()
		e.renderer = nil
		e.gameInstance.Renderer = nil
	}
	if e.backend != nil {
		e.backend.Shutdown()
		e.backend = nil
	}
	if err := e.platform.Shutdown(); err != nil {
		errs = errors.CombineErrors(errs, err)
	}
	if err := e.assetManager.Close(); err != nil {
		errs = errors.CombineErrors(errs, err)
	}
	e.bus.Shutdown()

	e.currentStage = EngineStageShutdown
	return errs
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) forwardToOverlay(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	return e.panel.HandleEvent(code, context)
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	case core.EVENT_CODE_MINIMIZED:
		core.LogInfo("window minimized, suspending frames")
		e.isSuspended = true
	case core.EVENT_CODE_RESTORED:
		core.LogInfo("window restored, resuming frames")
		e.isSuspended = false
		if e.renderer != nil {
			e.renderer.RequestResize()
		}
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if glfw.Key(context.Data.U16[0]) == glfw.KeyEscape {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.bus.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		// Block anything else from processing this.
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	width, height := context.Data.U32[0], context.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	core.LogDebug("window resize: %d, %d", width, height)
	e.width, e.height = width, height
	if width == 0 || height == 0 {
		return false
	}
	if e.renderer != nil {
		e.renderer.RequestResize()
	}
	return false
}
