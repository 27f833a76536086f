package renderer

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const (
	MeshVertexShader   = "colored_triangle_mesh.vert.spv"
	MeshFragmentShader = "colored_triangle.frag.spv"
)

// MeshPipeline draws indexed geometry into the draw image with a reversed
// depth test and alpha blending.
type MeshPipeline struct {
	device      PipelineDevice
	shaders     ShaderSource
	layout      metadata.PipelineLayoutHandle
	pipeline    metadata.PipelineHandle
	colorFormat metadata.Format
	depthFormat metadata.Format
}

// NewMeshPipeline creates the layout and tries to build the pipeline. A
// shader failure leaves the pipeline unbuilt and geometry is skipped.
func NewMeshPipeline(device PipelineDevice, shaders ShaderSource, sceneLayout metadata.DescriptorSetLayoutHandle, colorFormat, depthFormat metadata.Format) (*MeshPipeline, error) {
	layout, err := device.CreatePipelineLayout(metadata.PipelineLayoutCreateInfo{
		SetLayouts: []metadata.DescriptorSetLayoutHandle{sceneLayout},
		PushConstants: []metadata.PushConstantRange{{
			Stages: metadata.ShaderStageVertex,
			Offset: 0,
			Size:   metadata.DrawPushConstantsSize,
		}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating mesh pipeline layout")
	}
	m := &MeshPipeline{
		device:      device,
		shaders:     shaders,
		layout:      layout,
		colorFormat: colorFormat,
		depthFormat: depthFormat,
	}
	if m.pipeline, err = m.build(); err != nil {
		core.LogError("mesh pipeline disabled: %v", err)
	}
	return m, nil
}

func (m *MeshPipeline) loadModule(name string) (metadata.ShaderModuleHandle, error) {
	code, err := m.shaders.LoadShader(name)
	if err != nil {
		return metadata.InvalidHandle, errors.Mark(errors.Wrapf(err, "loading %s", name), core.ErrShaderLoad)
	}
	module, err := m.device.CreateShaderModule(code)
	if err != nil {
		return metadata.InvalidHandle, errors.Mark(errors.Wrapf(err, "compiling %s", name), core.ErrShaderLoad)
	}
	return module, nil
}

func (m *MeshPipeline) build() (metadata.PipelineHandle, error) {
	vert, err := m.loadModule(MeshVertexShader)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	defer m.device.DestroyShaderModule(vert)

	frag, err := m.loadModule(MeshFragmentShader)
	if err != nil {
		return metadata.InvalidHandle, err
	}
	defer m.device.DestroyShaderModule(frag)

	pipeline, err := m.device.CreateGraphicsPipeline(metadata.GraphicsPipelineCreateInfo{
		Layout:         m.layout,
		VertexShader:   vert,
		FragmentShader: frag,
		ColorFormat:    m.colorFormat,
		DepthFormat:    m.depthFormat,
		DepthTest:      true,
		DepthWrite:     true,
		Blend:          metadata.BlendModeAlpha,
	})
	if err != nil {
		return metadata.InvalidHandle, errors.Wrap(err, "creating mesh pipeline")
	}
	return pipeline, nil
}

func (m *MeshPipeline) Ready() bool {
	return m.pipeline != metadata.InvalidHandle
}

func (m *MeshPipeline) Layout() metadata.PipelineLayoutHandle {
	return m.layout
}

func (m *MeshPipeline) Pipeline() metadata.PipelineHandle {
	return m.pipeline
}

// Reload rebuilds the pipeline when shader is one of its stages. The device
// must be idle. The previous pipeline survives a failed rebuild.
func (m *MeshPipeline) Reload(shader string) (bool, error) {
	if shader != MeshVertexShader && shader != MeshFragmentShader {
		return false, nil
	}
	pipeline, err := m.build()
	if err != nil {
		return true, err
	}
	if m.Ready() {
		m.device.DestroyPipeline(m.pipeline)
	}
	m.pipeline = pipeline
	core.LogInfo("mesh pipeline reloaded")
	return true, nil
}

func (m *MeshPipeline) Destroy() {
	if m.Ready() {
		m.device.DestroyPipeline(m.pipeline)
		m.pipeline = metadata.InvalidHandle
	}
	m.device.DestroyPipelineLayout(m.layout)
}
