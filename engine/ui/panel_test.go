package ui

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
)

func keyPress(key glfw.Key) core.EventContext {
	ctx := core.EventContext{}
	ctx.Data.U16[0] = uint16(key)
	return ctx
}

func testState() *renderer.ControlState {
	defs := renderer.DefaultEffects()
	effects := make([]*metadata.ComputeEffect, len(defs))
	for i := range defs {
		effects[i] = &defs[i]
	}
	return &renderer.ControlState{RenderScale: 1, Effects: effects}
}

func press(p *Panel, keys ...glfw.Key) {
	for _, k := range keys {
		p.HandleEvent(core.EVENT_CODE_KEY_PRESSED, keyPress(k))
	}
}

func TestPanelIgnoresUnboundInput(t *testing.T) {
	p := NewPanel("lumen", nil)
	assert.False(t, p.HandleEvent(core.EVENT_CODE_KEY_RELEASED, keyPress(glfw.KeyTab)))
	assert.False(t, p.HandleEvent(core.EVENT_CODE_KEY_PRESSED, keyPress(glfw.KeyQ)))
	assert.True(t, p.HandleEvent(core.EVENT_CODE_KEY_PRESSED, keyPress(glfw.KeyTab)))
}

func TestPanelCyclesEffects(t *testing.T) {
	p := NewPanel("lumen", nil)
	state := testState()

	press(p, glfw.KeyTab)
	p.Update(state)
	assert.Equal(t, 1, state.EffectIndex)

	press(p, glfw.KeyTab)
	p.Update(state)
	assert.Equal(t, 0, state.EffectIndex)

	press(p, glfw.KeyBackspace)
	p.Update(state)
	assert.Equal(t, 1, state.EffectIndex)
}

func TestPanelClampsRenderScale(t *testing.T) {
	p := NewPanel("lumen", nil)
	state := testState()

	press(p, glfw.KeyEqual)
	p.Update(state)
	assert.InDelta(t, 1.0, state.RenderScale, 1e-6)

	for i := 0; i < 20; i++ {
		press(p, glfw.KeyMinus)
	}
	p.Update(state)
	assert.InDelta(t, core.MinRenderScale, state.RenderScale, 1e-6)

	press(p, glfw.KeyKPAdd)
	p.Update(state)
	assert.InDelta(t, core.MinRenderScale+ScaleStep, state.RenderScale, 1e-6)
}

func TestPanelEditsPushConstants(t *testing.T) {
	p := NewPanel("lumen", nil)
	state := testState()

	// data2.z of the gradient starts at 1 and is clamped there.
	press(p, glfw.Key2, glfw.KeyRight, glfw.KeyRight, glfw.KeyUp)
	p.Update(state)
	assert.InDelta(t, 1.0, state.Effects[0].Data.Data2[2], 1e-6)

	press(p, glfw.KeyDown, glfw.KeyDown)
	p.Update(state)
	assert.InDelta(t, 0.9, state.Effects[0].Data.Data2[2], 1e-6)
	assert.Contains(t, p.Status(), "data2.z 0.90")

	// Other effects are untouched.
	assert.Equal(t, renderer.DefaultEffects()[1].Data, state.Effects[1].Data)
}

func TestPanelReportsStatusChanges(t *testing.T) {
	var got []string
	p := NewPanel("lumen", func(s string) { got = append(got, s) })
	state := testState()

	p.Update(state)
	p.Update(state)
	require.Len(t, got, 1)
	assert.Equal(t, "lumen | gradient | scale 1.00 | data1.x 1.00", got[0])

	press(p, glfw.KeyTab)
	p.Update(state)
	require.Len(t, got, 2)
	assert.Contains(t, got[1], "sky")
}

func TestPanelWithoutEffects(t *testing.T) {
	p := NewPanel("lumen", nil)
	state := &renderer.ControlState{RenderScale: 0.5}

	press(p, glfw.KeyTab, glfw.KeyUp)
	p.Update(state)
	assert.Equal(t, 0, state.EffectIndex)
	assert.Equal(t, "lumen | no effect | scale 0.50", p.Status())
}

func TestPanelDrawFillsStatusStrip(t *testing.T) {
	f := rendertest.NewFakeBackend()
	pool, err := f.CreateCommandPool()
	require.NoError(t, err)
	cmdBuf, err := f.AllocateCommandBuffer(pool)
	require.NoError(t, err)

	p := NewPanel("lumen", nil)
	extent := metadata.Extent2D{Width: 1280, Height: 720}

	cmd, err := f.BeginCommandBuffer(cmdBuf)
	require.NoError(t, err)
	f.ClearCalls()
	p.Draw(cmd, metadata.ImageViewHandle(7), metadata.FormatB8G8R8A8Unorm, extent)
	assert.Empty(t, f.Calls(), "nothing to draw before the first update")

	state := testState()
	state.SetRenderScale(0.5)
	p.Update(state)
	p.Draw(cmd, metadata.ImageViewHandle(7), metadata.FormatB8G8R8A8Unorm, extent)
	require.NoError(t, f.EndCommandBuffer(cmdBuf))

	assert.Equal(t, []string{
		"cmd.BeginRendering", "cmd.SetViewport", "cmd.SetScissor",
		"cmd.ClearAttachment", "cmd.ClearAttachment",
		"cmd.EndRendering", "EndCommandBuffer",
	}, f.Names())

	strip := p.StripExtent(extent)
	assert.Equal(t, uint32(7*len(p.Status())+2*stripPadding), strip.Width)
	assert.Equal(t, uint32(13+2*stripPadding), strip.Height)

	calls := f.Calls()
	scissor := calls[2].Args[0].(metadata.Rect2D)
	assert.Equal(t, strip, scissor.Extent)

	fill := calls[3].Args[0].(metadata.Rect2D)
	assert.Equal(t, metadata.Rect2D{Extent: strip}, fill)
	assert.Equal(t, stripColor, calls[3].Args[1])

	bar := calls[4].Args[0].(metadata.Rect2D)
	assert.Equal(t, int32(strip.Height-scaleBarHeight), bar.Offset.Y)
	assert.Equal(t, uint32(float32(strip.Width)*0.5), bar.Extent.Width)
	assert.Equal(t, uint32(scaleBarHeight), bar.Extent.Height)
	assert.Equal(t, scaleBarColor, calls[4].Args[1])

	assert.Equal(t, metadata.Extent2D{Width: 10, Height: 10}, p.StripExtent(metadata.Extent2D{Width: 10, Height: 10}))
}
