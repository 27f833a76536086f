package metadata

import (
	"encoding/binary"

	"github.com/spaghettifunk/lumen/engine/math"
)

// GPUSceneData is uploaded once per frame into a uniform buffer.
type GPUSceneData struct {
	View              math.Mat4
	Proj              math.Mat4
	ViewProj          math.Mat4
	AmbientColor      math.Vec4
	SunlightDirection math.Vec4
	SunlightColor     math.Vec4
}

var GPUSceneDataSize = uint64(binary.Size(GPUSceneData{}))

func (s GPUSceneData) Bytes() []byte {
	return mustPack(s, int(GPUSceneDataSize))
}

// DrawPushConstants is pushed once per render object.
type DrawPushConstants struct {
	WorldMatrix math.Mat4
}

var DrawPushConstantsSize = uint32(binary.Size(DrawPushConstants{}))

func (d DrawPushConstants) Bytes() []byte {
	return mustPack(d, int(DrawPushConstantsSize))
}

// RenderObject is one indexed draw.
type RenderObject struct {
	IndexCount   uint32
	FirstIndex   uint32
	IndexBuffer  BufferHandle
	VertexBuffer BufferHandle
	Transform    math.Mat4
}

// DrawContext is the closed list of objects drawn in one frame.
type DrawContext struct {
	Opaque []RenderObject
}

// AddMesh appends one render object per surface of the mesh.
func (c *DrawContext) AddMesh(mesh *MeshAsset, transform math.Mat4) {
	for _, s := range mesh.Surfaces {
		c.Opaque = append(c.Opaque, RenderObject{
			IndexCount:   s.Count,
			FirstIndex:   s.StartIndex,
			IndexBuffer:  mesh.MeshBuffers.IndexBuffer.Buffer,
			VertexBuffer: mesh.MeshBuffers.VertexBuffer.Buffer,
			Transform:    transform,
		})
	}
}

func (c *DrawContext) Reset() {
	c.Opaque = c.Opaque[:0]
}
