package metadata

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/stretchr/testify/require"
)

func TestGPULayoutSizes(t *testing.T) {
	require.Equal(t, 48, VertexSize)
	require.Equal(t, uint32(64), ComputePushConstantsSize)
	require.Equal(t, uint32(64), DrawPushConstantsSize)
	require.Equal(t, uint64(3*64+3*16), GPUSceneDataSize)
}

func TestComputePushConstantsBytes(t *testing.T) {
	p := ComputePushConstants{
		Data1: math.NewVec4(1, 0, 0, 1),
		Data2: math.NewVec4(0, 0, 1, 1),
	}
	b := p.Bytes()
	require.Len(t, b, 64)
	require.Equal(t, float32(1), gomath.Float32frombits(binary.LittleEndian.Uint32(b[0:4])))
	require.Equal(t, float32(1), gomath.Float32frombits(binary.LittleEndian.Uint32(b[24:28])))
	require.Equal(t, float32(0), gomath.Float32frombits(binary.LittleEndian.Uint32(b[32:36])))
}

func TestVertexAndIndexBytes(t *testing.T) {
	v := []Vertex{{Position: math.NewVec3(1, 2, 3), UVX: 0.5, Color: math.NewVec4(1, 1, 1, 1)}, {}}
	b := VertexBytes(v)
	require.Len(t, b, 96)
	require.Equal(t, float32(0.5), gomath.Float32frombits(binary.LittleEndian.Uint32(b[12:16])))

	require.Len(t, IndexBytes([]uint32{0, 1, 2}), 12)
}

func TestDrawContextAddMesh(t *testing.T) {
	mesh := &MeshAsset{
		Name:     "quad",
		Surfaces: []GeoSurface{{StartIndex: 0, Count: 3}, {StartIndex: 3, Count: 3}},
		MeshBuffers: MeshBuffers{
			IndexBuffer:  AllocatedBuffer{Buffer: 7},
			VertexBuffer: AllocatedBuffer{Buffer: 8},
		},
	}
	ctx := &DrawContext{}
	ctx.AddMesh(mesh, math.NewMat4Identity())
	require.Len(t, ctx.Opaque, 2)
	require.Equal(t, uint32(3), ctx.Opaque[1].FirstIndex)
	require.Equal(t, BufferHandle(7), ctx.Opaque[0].IndexBuffer)

	ctx.Reset()
	require.Empty(t, ctx.Opaque)
}

func TestImageLayoutString(t *testing.T) {
	require.Equal(t, "PresentSrc", ImageLayoutPresentSrc.String())
	require.Equal(t, "Unknown", ImageLayout(99).String())
}
