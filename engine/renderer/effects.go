package renderer

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Compute shaders run 16x16 work groups.
const computeGroupSize = 16

// ShaderSource resolves a shader name to SPIR-V bytes.
type ShaderSource interface {
	LoadShader(name string) ([]byte, error)
}

// DefaultEffects are the background passes built at start up.
func DefaultEffects() []metadata.ComputeEffect {
	return []metadata.ComputeEffect{
		{
			Name:   "gradient",
			Shader: "gradient_color.comp.spv",
			Data: metadata.ComputePushConstants{
				Data1: math.NewVec4(1, 0, 0, 1),
				Data2: math.NewVec4(0, 0, 1, 1),
			},
		},
		{
			Name:   "sky",
			Shader: "sky.comp.spv",
			Data: metadata.ComputePushConstants{
				Data1: math.NewVec4(0.1, 0.2, 0.4, 0.97),
			},
		},
	}
}

// BackgroundEffects owns the compute pipelines that fill the draw image. All
// effects share one layout: the draw image set and a 64 byte push block.
type BackgroundEffects struct {
	device  PipelineDevice
	shaders ShaderSource
	layout  metadata.PipelineLayoutHandle
	effects []*metadata.ComputeEffect
	// Definitions whose pipeline failed to build, retried on reload.
	disabled []metadata.ComputeEffect
}

// NewBackgroundEffects builds every effect it can. Effects whose shader fails
// to load or compile are logged and left out until a reload of their shader
// succeeds.
func NewBackgroundEffects(device PipelineDevice, shaders ShaderSource, drawImageLayout metadata.DescriptorSetLayoutHandle, defs []metadata.ComputeEffect) (*BackgroundEffects, error) {
	layout, err := device.CreatePipelineLayout(metadata.PipelineLayoutCreateInfo{
		SetLayouts: []metadata.DescriptorSetLayoutHandle{drawImageLayout},
		PushConstants: []metadata.PushConstantRange{{
			Stages: metadata.ShaderStageCompute,
			Offset: 0,
			Size:   metadata.ComputePushConstantsSize,
		}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating compute pipeline layout")
	}

	b := &BackgroundEffects{
		device:  device,
		shaders: shaders,
		layout:  layout,
	}
	for _, def := range defs {
		effect := def
		effect.Layout = layout
		pipeline, err := b.build(effect.Shader)
		if err != nil {
			core.LogError("background effect %q disabled: %v", effect.Name, err)
			b.disabled = append(b.disabled, effect)
			continue
		}
		effect.Pipeline = pipeline
		b.effects = append(b.effects, &effect)
	}
	core.LogInfo("%d of %d background effects ready", len(b.effects), len(defs))
	return b, nil
}

func (b *BackgroundEffects) build(shader string) (metadata.PipelineHandle, error) {
	code, err := b.shaders.LoadShader(shader)
	if err != nil {
		return metadata.InvalidHandle, errors.Mark(errors.Wrapf(err, "loading %s", shader), core.ErrShaderLoad)
	}
	module, err := b.device.CreateShaderModule(code)
	if err != nil {
		return metadata.InvalidHandle, errors.Mark(errors.Wrapf(err, "compiling %s", shader), core.ErrShaderLoad)
	}
	defer b.device.DestroyShaderModule(module)

	pipeline, err := b.device.CreateComputePipeline(metadata.ComputePipelineCreateInfo{
		Layout:     b.layout,
		Shader:     module,
		EntryPoint: "main",
	})
	if err != nil {
		return metadata.InvalidHandle, errors.Wrapf(err, "creating compute pipeline for %s", shader)
	}
	return pipeline, nil
}

func (b *BackgroundEffects) Effects() []*metadata.ComputeEffect {
	return b.effects
}

// Reload rebuilds every effect using shader, including effects disabled by an
// earlier failure, which are appended to Effects once they build. The old
// pipeline is kept when the rebuild fails. The device must be idle. Returns
// whether any effect uses shader.
func (b *BackgroundEffects) Reload(shader string) (bool, error) {
	matched := false
	for _, effect := range b.effects {
		if effect.Shader != shader {
			continue
		}
		matched = true
		pipeline, err := b.build(shader)
		if err != nil {
			return true, errors.Wrapf(err, "reloading effect %q", effect.Name)
		}
		b.device.DestroyPipeline(effect.Pipeline)
		effect.Pipeline = pipeline
		core.LogInfo("background effect %q reloaded", effect.Name)
	}

	remaining := b.disabled[:0]
	var errs error
	for _, def := range b.disabled {
		if def.Shader != shader {
			remaining = append(remaining, def)
			continue
		}
		matched = true
		pipeline, err := b.build(shader)
		if err != nil {
			remaining = append(remaining, def)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "restoring effect %q", def.Name))
			continue
		}
		effect := def
		effect.Pipeline = pipeline
		b.effects = append(b.effects, &effect)
		core.LogInfo("background effect %q restored", effect.Name)
	}
	b.disabled = remaining
	return matched, errs
}

// Disabled returns the names of the effects waiting for a working shader.
func (b *BackgroundEffects) Disabled() []string {
	names := make([]string, 0, len(b.disabled))
	for _, def := range b.disabled {
		names = append(names, def.Name)
	}
	return names
}

// Record dispatches effect over extent, writing the draw image bound by set.
// The draw image must be in General layout.
func (b *BackgroundEffects) Record(cmd CommandRecorder, effect *metadata.ComputeEffect, set metadata.DescriptorSetHandle, extent metadata.Extent2D) {
	cmd.BindPipeline(metadata.PipelineBindPointCompute, effect.Pipeline)
	cmd.BindDescriptorSets(metadata.PipelineBindPointCompute, b.layout, 0, set)
	cmd.PushConstants(b.layout, metadata.ShaderStageCompute, 0, effect.Data.Bytes())
	cmd.Dispatch(
		math.CeilDiv(extent.Width, computeGroupSize),
		math.CeilDiv(extent.Height, computeGroupSize),
		1,
	)
}

func (b *BackgroundEffects) Destroy() {
	for _, effect := range b.effects {
		b.device.DestroyPipeline(effect.Pipeline)
	}
	b.effects = nil
	b.disabled = nil
	b.device.DestroyPipelineLayout(b.layout)
}
