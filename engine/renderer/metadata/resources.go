package metadata

import (
	"encoding/binary"

	"github.com/spaghettifunk/lumen/engine/math"
)

type BufferCreateInfo struct {
	Size        uint64
	Usage       BufferUsageFlags
	MemoryUsage MemoryUsage
}

type AllocatedBuffer struct {
	Buffer      BufferHandle
	Size        uint64
	Usage       BufferUsageFlags
	MemoryUsage MemoryUsage
	// Debug name, unique per allocation.
	Name string
}

// Mapped reports whether the buffer can be written from the host.
func (b AllocatedBuffer) Mapped() bool {
	return b.MemoryUsage.HostVisible()
}

type ImageCreateInfo struct {
	Extent      Extent3D
	Format      Format
	Usage       ImageUsageFlags
	MemoryUsage MemoryUsage
	Mipmapped   bool
}

type ImageDesc struct {
	Extent      Extent3D
	Format      Format
	Usage       ImageUsageFlags
	MemoryUsage MemoryUsage
	MipLevels   uint32
}

type AllocatedImage struct {
	Image     ImageHandle
	View      ImageViewHandle
	Extent    Extent3D
	Format    Format
	MipLevels uint32
	Name      string
}

// Vertex is interleaved so that uv coordinates fill the padding slots of
// the vec3 members. 48 bytes.
type Vertex struct {
	Position math.Vec3
	UVX      float32
	Normal   math.Vec3
	UVY      float32
	Color    math.Vec4
}

var VertexSize = binary.Size(Vertex{})

// VertexBytes packs vertices in the layout the vertex input expects.
func VertexBytes(vertices []Vertex) []byte {
	out, err := binary.Append(make([]byte, 0, len(vertices)*VertexSize), binary.LittleEndian, vertices)
	if err != nil {
		panic(err)
	}
	return out
}

// IndexBytes packs 32 bit indices.
func IndexBytes(indices []uint32) []byte {
	out, err := binary.Append(make([]byte, 0, len(indices)*4), binary.LittleEndian, indices)
	if err != nil {
		panic(err)
	}
	return out
}

// MeshBuffers holds the device resources of an uploaded mesh.
type MeshBuffers struct {
	IndexBuffer  AllocatedBuffer
	VertexBuffer AllocatedBuffer
}

type GeoSurface struct {
	StartIndex uint32
	Count      uint32
}

type MeshAsset struct {
	Name        string
	Surfaces    []GeoSurface
	MeshBuffers MeshBuffers
}
