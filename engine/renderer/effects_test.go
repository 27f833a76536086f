package renderer_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/rendertest"
)

func TestBackgroundEffectsRecord(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	effects, err := renderer.NewBackgroundEffects(fake, rendertest.DefaultShaders(), 1, renderer.DefaultEffects())
	require.NoError(t, err)
	require.Len(t, effects.Effects(), 2)
	require.Equal(t, 2, fake.Live(rendertest.KindPipeline))

	cmdBuf := metadata.CommandBufferHandle(1000)
	cmd, err := fake.BeginCommandBuffer(cmdBuf)
	require.NoError(t, err)
	effects.Record(cmd, effects.Effects()[0], 7, metadata.Extent2D{Width: 17, Height: 16})
	require.NoError(t, fake.EndCommandBuffer(cmdBuf))

	dispatch := callsNamed(fake, "cmd.Dispatch")
	require.Len(t, dispatch, 1)
	require.Equal(t, []any{uint32(2), uint32(1), uint32(1)}, dispatch[0].Args)

	push := callsNamed(fake, "cmd.PushConstants")
	require.Len(t, push, 1)
	require.Len(t, push[0].Args[3].([]byte), 64)

	effects.Destroy()
	require.Zero(t, fake.Live(rendertest.KindPipeline))
	require.Zero(t, fake.Live(rendertest.KindPipelineLayout))
	require.Zero(t, fake.InvalidDestroys)
}

func TestBackgroundEffectsReloadRestoresDisabledEffect(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	shaders := rendertest.DefaultShaders()
	spirv := shaders["sky.comp.spv"]
	delete(shaders, "sky.comp.spv")

	effects, err := renderer.NewBackgroundEffects(fake, shaders, 1, renderer.DefaultEffects())
	require.NoError(t, err)
	require.Len(t, effects.Effects(), 1)
	require.Equal(t, []string{"sky"}, effects.Disabled())

	// Still broken: the effect stays disabled.
	shaders["sky.comp.spv"] = []byte{1}
	matched, err := effects.Reload("sky.comp.spv")
	require.True(t, matched)
	require.True(t, errors.Is(err, core.ErrShaderLoad))
	require.Len(t, effects.Effects(), 1)

	shaders["sky.comp.spv"] = spirv
	matched, err = effects.Reload("sky.comp.spv")
	require.NoError(t, err)
	require.True(t, matched)
	require.Empty(t, effects.Disabled())
	require.Len(t, effects.Effects(), 2)
	sky := effects.Effects()[1]
	require.Equal(t, "sky", sky.Name)
	require.NotEqual(t, metadata.PipelineHandle(metadata.InvalidHandle), sky.Pipeline)
	require.Equal(t, 2, fake.Live(rendertest.KindPipeline))

	effects.Destroy()
	require.Zero(t, fake.Live(rendertest.KindPipeline))
	require.Zero(t, fake.InvalidDestroys)
}

func TestControlStateSelection(t *testing.T) {
	var state renderer.ControlState
	require.Nil(t, state.CurrentEffect())
	state.SelectEffect(3)
	require.Zero(t, state.EffectIndex)

	state.Effects = []*metadata.ComputeEffect{{Name: "gradient"}, {Name: "sky"}}
	state.SelectEffect(1)
	require.Equal(t, "sky", state.CurrentEffect().Name)
	state.SelectEffect(5)
	require.Equal(t, 1, state.EffectIndex)
	state.SelectEffect(-2)
	require.Equal(t, "gradient", state.CurrentEffect().Name)
}

func TestMeshPipelineReloadKeepsPipelineOnFailure(t *testing.T) {
	fake := rendertest.NewFakeBackend()
	shaders := rendertest.DefaultShaders()
	mesh, err := renderer.NewMeshPipeline(fake, shaders, 1, renderer.DrawImageFormat, renderer.DepthImageFormat)
	require.NoError(t, err)
	require.True(t, mesh.Ready())

	info := callsNamed(fake, "CreateGraphicsPipeline")[0].Args[1].(metadata.GraphicsPipelineCreateInfo)
	require.True(t, info.DepthTest)
	require.Equal(t, metadata.BlendModeAlpha, info.Blend)

	matched, err := mesh.Reload("sky.comp.spv")
	require.NoError(t, err)
	require.False(t, matched)

	before := mesh.Pipeline()
	delete(shaders, renderer.MeshVertexShader)
	matched, err = mesh.Reload(renderer.MeshFragmentShader)
	require.Error(t, err)
	require.True(t, matched)
	require.Equal(t, before, mesh.Pipeline())

	mesh.Destroy()
	require.Zero(t, fake.Live(rendertest.KindPipeline))
	require.Zero(t, fake.Live(rendertest.KindShaderModule))
}
