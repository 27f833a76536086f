package vulkan

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const spirvMagic uint32 = 0x07230203

// SPIRVWords reinterprets a little endian SPIR-V binary as the word slice
// vkCreateShaderModule expects.
func SPIRVWords(code []byte) ([]uint32, error) {
	if len(code) < 4 || len(code)%4 != 0 {
		return nil, errors.Mark(errors.Newf("spir-v size %d is not a positive multiple of 4", len(code)), core.ErrShaderLoad)
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, errors.Mark(errors.Newf("bad spir-v magic %#08x", words[0]), core.ErrShaderLoad)
	}
	return words, nil
}

func (vb *VulkanBackend) CreateShaderModule(code []byte) (metadata.ShaderModuleHandle, error) {
	words, err := SPIRVWords(code)
	if err != nil {
		return metadata.InvalidHandle, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    words,
	}

	var module vk.ShaderModule
	err = vb.locks.SafeCall(ShaderManagement, func() error {
		if res := vk.CreateShaderModule(vb.device(), &createInfo, vb.context.Allocator, &module); res != vk.Success {
			return errors.Mark(VulkanResultError(res, "vkCreateShaderModule"), core.ErrShaderLoad)
		}
		return nil
	})
	if err != nil {
		return metadata.InvalidHandle, err
	}
	return vb.shaderModules.Insert(module), nil
}

func (vb *VulkanBackend) DestroyShaderModule(h metadata.ShaderModuleHandle) {
	if module, ok := vb.shaderModules.Remove(h); ok {
		vk.DestroyShaderModule(vb.device(), module, vb.context.Allocator)
	}
}

func shaderStage(stage vk.ShaderStageFlagBits, module vk.ShaderModule, entryPoint string) vk.PipelineShaderStageCreateInfo {
	if entryPoint == "" {
		entryPoint = "main"
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module,
		PName:  VulkanSafeString(entryPoint),
	}
}
