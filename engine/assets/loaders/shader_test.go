package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
)

func TestValidateSPIRV(t *testing.T) {
	assert.NoError(t, ValidateSPIRV([]byte{0x03, 0x02, 0x23, 0x07}))

	for name, code := range map[string][]byte{
		"empty":      nil,
		"unaligned":  {0x03, 0x02, 0x23, 0x07, 0x00},
		"big endian": {0x07, 0x23, 0x02, 0x03},
	} {
		err := ValidateSPIRV(code)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, core.ErrShaderLoad), name)
	}
}

func TestShaderLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gradient_color.comp.spv")
	require.NoError(t, os.WriteFile(path, []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}, 0o644))

	sl := &ShaderLoader{}
	res, err := sl.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gradient_color.comp.spv", res.Name)
	assert.Equal(t, ResourceTypeShader, res.Type)
	assert.Equal(t, uint64(8), res.DataSize)

	require.NoError(t, sl.Unload(res))
	assert.Nil(t, res.Data)
}
