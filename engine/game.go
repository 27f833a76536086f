package engine

import (
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	// Set by the engine before FnInitialize runs.
	Renderer     *renderer.Renderer
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render fills the draw context with the objects of the coming frame.
type Render func(drawCtx *metadata.DrawContext, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
