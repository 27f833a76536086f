package engine

import (
	"github.com/spaghettifunk/lumen/engine/core"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32
	// Window starting position y axis, if applicable.
	StartPosY uint32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name     string
	LogLevel core.LogLevel
	Renderer core.RendererConfig
	Assets   core.AssetsConfig
	// Offscreen draw target size.
	DrawWidth  uint32
	DrawHeight uint32
}

// NewApplicationConfig takes the window, renderer and asset settings from cfg.
func NewApplicationConfig(cfg *core.Config) *ApplicationConfig {
	drawWidth, drawHeight := cfg.DrawSize()
	return &ApplicationConfig{
		StartPosX:   cfg.Window.PosX,
		StartPosY:   cfg.Window.PosY,
		StartWidth:  cfg.Window.Width,
		StartHeight: cfg.Window.Height,
		Name:        cfg.Window.Title,
		LogLevel:    cfg.Log.Level,
		Renderer:    cfg.Renderer,
		Assets:      cfg.Assets,
		DrawWidth:   drawWidth,
		DrawHeight:  drawHeight,
	}
}
