package loaders

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/lumen/engine/core"
)

const SPIRVMagic uint32 = 0x07230203

type ShaderLoader struct{}

// Load reads a compiled SPIR-V module. The file must hold whole words and
// start with the little endian SPIR-V magic number.
func (sl *ShaderLoader) Load(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "reading shader %s", path), core.ErrShaderLoad)
	}
	if err := ValidateSPIRV(data); err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}
	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     data,
	}, nil
}

func (sl *ShaderLoader) Unload(r *Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}

func ValidateSPIRV(code []byte) error {
	if len(code) < 4 || len(code)%4 != 0 {
		return errors.Mark(errors.Newf("spir-v size %d is not a positive multiple of 4", len(code)), core.ErrShaderLoad)
	}
	if magic := binary.LittleEndian.Uint32(code); magic != SPIRVMagic {
		return errors.Mark(errors.Newf("bad spir-v magic %#08x", magic), core.ErrShaderLoad)
	}
	return nil
}
