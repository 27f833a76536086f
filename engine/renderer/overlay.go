package renderer

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// ControlState is the renderer state an overlay may edit between frames.
type ControlState struct {
	RenderScale float32
	EffectIndex int
	Effects     []*metadata.ComputeEffect
}

// SetRenderScale stores scale clamped to the interactive range.
func (c *ControlState) SetRenderScale(scale float32) {
	c.RenderScale = math.Clamp(scale, core.MinRenderScale, core.MaxRenderScale)
}

// SelectEffect stores index clamped to the available effects.
func (c *ControlState) SelectEffect(index int) {
	if len(c.Effects) == 0 {
		c.EffectIndex = 0
		return
	}
	c.EffectIndex = math.Clamp(index, 0, len(c.Effects)-1)
}

// CurrentEffect returns the selected effect, or nil when none could be built.
func (c *ControlState) CurrentEffect() *metadata.ComputeEffect {
	if c.EffectIndex < 0 || c.EffectIndex >= len(c.Effects) {
		return nil
	}
	return c.Effects[c.EffectIndex]
}

// Overlay draws on top of the presented image at the full swapchain extent.
type Overlay interface {
	// HandleEvent receives raw window input. Returns true when consumed.
	HandleEvent(code core.SystemEventCode, ctx core.EventContext) bool
	// Update runs once per frame before recording and may edit state.
	Update(state *ControlState)
	// Draw records into the frame command buffer. The target image is in
	// ColorAttachmentOptimal layout and must be left in it.
	Draw(cmd CommandRecorder, target metadata.ImageViewHandle, format metadata.Format, extent metadata.Extent2D)
}
