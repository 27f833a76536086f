package ui

import (
	"fmt"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const (
	ScaleStep = 0.05
	DataStep  = 0.05
	// Padding around the status text, in pixels.
	stripPadding = 4
	// Height of the render scale bar along the bottom of the strip.
	scaleBarHeight = 2
)

var (
	stripColor    = math.NewVec4(0.05, 0.05, 0.08, 1)
	scaleBarColor = math.NewVec4(0.9, 0.6, 0.1, 1)
)

type action uint8

const (
	actionNextEffect action = iota
	actionPrevEffect
	actionScaleUp
	actionScaleDown
	actionSelectField
	actionNextComponent
	actionPrevComponent
	actionDataUp
	actionDataDown
)

type input struct {
	action action
	field  int
}

// StatusSink receives the panel status line whenever it changes.
type StatusSink func(status string)

// Panel is a keyboard driven control overlay. Tab cycles the background
// effect, +/- change the render scale, 1..4 pick the push constant field
// and the arrow keys edit one of its components.
type Panel struct {
	mu      sync.Mutex
	pending []input

	title     string
	field     int
	component int
	status    string
	scale     float32
	sink      StatusSink
	face      font.Face
}

var _ renderer.Overlay = (*Panel)(nil)

func NewPanel(title string, sink StatusSink) *Panel {
	return &Panel{
		title: title,
		sink:  sink,
		face:  basicfont.Face7x13,
	}
}

// HandleEvent consumes the key presses bound to panel actions.
func (p *Panel) HandleEvent(code core.SystemEventCode, ctx core.EventContext) bool {
	if code != core.EVENT_CODE_KEY_PRESSED {
		return false
	}
	in, ok := bindKey(glfw.Key(ctx.Data.U16[0]))
	if !ok {
		return false
	}
	p.mu.Lock()
	p.pending = append(p.pending, in)
	p.mu.Unlock()
	return true
}

func bindKey(key glfw.Key) (input, bool) {
	switch key {
	case glfw.KeyTab:
		return input{action: actionNextEffect}, true
	case glfw.KeyBackspace:
		return input{action: actionPrevEffect}, true
	case glfw.KeyEqual, glfw.KeyKPAdd:
		return input{action: actionScaleUp}, true
	case glfw.KeyMinus, glfw.KeyKPSubtract:
		return input{action: actionScaleDown}, true
	case glfw.Key1, glfw.Key2, glfw.Key3, glfw.Key4:
		return input{action: actionSelectField, field: int(key - glfw.Key1)}, true
	case glfw.KeyRight:
		return input{action: actionNextComponent}, true
	case glfw.KeyLeft:
		return input{action: actionPrevComponent}, true
	case glfw.KeyUp:
		return input{action: actionDataUp}, true
	case glfw.KeyDown:
		return input{action: actionDataDown}, true
	}
	return input{}, false
}

// Update applies the queued input to state and refreshes the status line.
func (p *Panel) Update(state *renderer.ControlState) {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, in := range pending {
		p.apply(state, in)
	}

	p.scale = state.RenderScale
	status := p.describe(state)
	if status != p.status {
		p.status = status
		if p.sink != nil {
			p.sink(status)
		}
	}
}

func (p *Panel) apply(state *renderer.ControlState, in input) {
	switch in.action {
	case actionNextEffect:
		if n := len(state.Effects); n > 0 {
			state.SelectEffect((state.EffectIndex + 1) % n)
		}
	case actionPrevEffect:
		if n := len(state.Effects); n > 0 {
			state.SelectEffect((state.EffectIndex + n - 1) % n)
		}
	case actionScaleUp:
		state.SetRenderScale(state.RenderScale + ScaleStep)
	case actionScaleDown:
		state.SetRenderScale(state.RenderScale - ScaleStep)
	case actionSelectField:
		p.field = math.Clamp(in.field, 0, 3)
	case actionNextComponent:
		p.component = (p.component + 1) % 4
	case actionPrevComponent:
		p.component = (p.component + 3) % 4
	case actionDataUp, actionDataDown:
		effect := state.CurrentEffect()
		if effect == nil {
			return
		}
		step := float32(DataStep)
		if in.action == actionDataDown {
			step = -step
		}
		v := fieldOf(&effect.Data, p.field)
		v[p.component] = math.Clamp(v[p.component]+step, 0, 1)
	}
}

func fieldOf(data *metadata.ComputePushConstants, field int) *math.Vec4 {
	switch field {
	case 1:
		return &data.Data2
	case 2:
		return &data.Data3
	case 3:
		return &data.Data4
	}
	return &data.Data1
}

func (p *Panel) describe(state *renderer.ControlState) string {
	effect := state.CurrentEffect()
	if effect == nil {
		return fmt.Sprintf("%s | no effect | scale %.2f", p.title, state.RenderScale)
	}
	v := fieldOf(&effect.Data, p.field)
	return fmt.Sprintf("%s | %s | scale %.2f | data%d.%c %.2f",
		p.title, effect.Name, state.RenderScale, p.field+1, "xyzw"[p.component], v[p.component])
}

// Status returns the last status line computed by Update.
func (p *Panel) Status() string {
	return p.status
}

// StripExtent is the area the status line covers in the top left corner,
// clipped to extent.
func (p *Panel) StripExtent(extent metadata.Extent2D) metadata.Extent2D {
	width := uint32(font.MeasureString(p.face, p.status).Ceil()) + 2*stripPadding
	height := uint32(p.face.Metrics().Height.Ceil()) + 2*stripPadding
	return metadata.Extent2D{
		Width:  min(width, extent.Width),
		Height: min(height, extent.Height),
	}
}

// Draw fills the status strip in the top left corner of the target and
// marks the current render scale as a bar along its bottom edge.
func (p *Panel) Draw(cmd renderer.CommandRecorder, target metadata.ImageViewHandle, format metadata.Format, extent metadata.Extent2D) {
	if p.status == "" || extent.Width == 0 || extent.Height == 0 {
		return
	}
	cmd.BeginRendering(metadata.RenderingInfo{
		Extent:      extent,
		ColorView:   target,
		ColorFormat: format,
		ColorLayout: metadata.ImageLayoutColorAttachmentOptimal,
		DepthView:   metadata.InvalidHandle,
	})
	cmd.SetViewport(metadata.Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MaxDepth: 1,
	})
	strip := metadata.Rect2D{Extent: p.StripExtent(extent)}
	cmd.SetScissor(strip)
	cmd.ClearAttachment(strip, stripColor)
	if bar := p.scaleBar(strip.Extent); bar.Extent.Width > 0 && bar.Extent.Height > 0 {
		cmd.ClearAttachment(bar, scaleBarColor)
	}
	cmd.EndRendering()
}

func (p *Panel) scaleBar(strip metadata.Extent2D) metadata.Rect2D {
	height := min(uint32(scaleBarHeight), strip.Height)
	return metadata.Rect2D{
		Offset: metadata.Offset2D{Y: int32(strip.Height - height)},
		Extent: metadata.Extent2D{
			Width:  uint32(float32(strip.Width) * math.Clamp(p.scale, 0, 1)),
			Height: height,
		},
	}
}
