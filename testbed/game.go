package testbed

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Radians per second.
const spinSpeed = 0.5

type TestGame struct {
	*engine.Game
}

type gameState struct {
	rectangle *metadata.MeshAsset
	angle     float32

	width  uint32
	height uint32
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

// RectangleGeometry is a unit quad in the XY plane with one color per corner.
func RectangleGeometry() ([]uint32, []metadata.Vertex) {
	vertices := []metadata.Vertex{
		{Position: math.NewVec3(0.5, -0.5, 0), Color: math.NewVec4(0, 0, 0, 1)},
		{Position: math.NewVec3(0.5, 0.5, 0), Color: math.NewVec4(0.5, 0.5, 0.5, 1)},
		{Position: math.NewVec3(-0.5, -0.5, 0), Color: math.NewVec4(1, 0, 0, 1)},
		{Position: math.NewVec3(-0.5, 0.5, 0), Color: math.NewVec4(0, 1, 0, 1)},
	}
	indices := []uint32{0, 1, 2, 2, 1, 3}
	return indices, vertices
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")
	if g.Renderer == nil {
		return errors.New("testbed needs a renderer")
	}
	indices, vertices := RectangleGeometry()
	mesh, err := g.Renderer.UploadMesh("rectangle", indices, vertices, nil)
	if err != nil {
		return err
	}
	g.state().rectangle = mesh
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	s := g.state()
	s.angle += float32(deltaTime) * spinSpeed
	for s.angle > 2*math.K_PI {
		s.angle -= 2 * math.K_PI
	}
	return nil
}

func (g *TestGame) Render(drawCtx *metadata.DrawContext, deltaTime float64) error {
	s := g.state()
	if s.rectangle == nil {
		return nil
	}
	drawCtx.AddMesh(s.rectangle, math.NewMat4EulerY(s.angle))
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	s := g.state()
	s.width, s.height = width, height
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

// Shutdown drops the mesh reference. The renderer owns and frees the buffers.
func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed...")
	g.state().rectangle = nil
	return nil
}
