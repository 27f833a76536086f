package math

import "golang.org/x/image/math/f32"

// Vec3 is laid out as three consecutive float32, matching GLSL vec3.
type Vec3 = f32.Vec3

// Vec4 is laid out as four consecutive float32, matching GLSL vec4.
type Vec4 = f32.Vec4

// Mat4 is a 4x4 matrix stored in column-major order, the layout GLSL
// expects for mat4 in uniform and push-constant blocks.
type Mat4 struct {
	Data [16]float32
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{x, y, z, w}
}

// Extent2D is the integer size of a 2d target.
type Extent2D struct {
	Width  uint32
	Height uint32
}
