package metadata

import (
	"encoding/binary"

	"github.com/spaghettifunk/lumen/engine/math"
)

// ComputePushConstants is the 64 byte block shared by every background effect.
type ComputePushConstants struct {
	Data1 math.Vec4
	Data2 math.Vec4
	Data3 math.Vec4
	Data4 math.Vec4
}

var ComputePushConstantsSize = uint32(binary.Size(ComputePushConstants{}))

func (p ComputePushConstants) Bytes() []byte {
	return mustPack(p, int(ComputePushConstantsSize))
}

// ComputeEffect is a full screen compute pass writing the draw image.
type ComputeEffect struct {
	Name     string
	Shader   string
	Pipeline PipelineHandle
	Layout   PipelineLayoutHandle
	Data     ComputePushConstants
}

func mustPack(v any, size int) []byte {
	out, err := binary.Append(make([]byte, 0, size), binary.LittleEndian, v)
	if err != nil {
		panic(err)
	}
	return out
}
