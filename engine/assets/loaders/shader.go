package loaders

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic uint32 = 0x07230203

type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogError("failed to read shader %s: %s", path, err)
		return nil, core.NewDeviceError("LoadShader", -1, path, fmt.Errorf("%w: %w", core.ErrShaderCompile, err))
	}
	blob, err := ParseSPIRV(filepath.Base(path), data)
	if err != nil {
		core.LogError("%s", err)
		return nil, core.NewDeviceError("LoadShader", -1, path, err)
	}
	return &metadata.Resource{
		Name:     strings.TrimSuffix(filepath.Base(path), ".spv"),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     blob,
	}, nil
}

func (sl *ShaderLoader) Unload(*metadata.Resource) error {
	return nil
}

// ParseSPIRV checks the module header and converts it into words.
func ParseSPIRV(name string, b []byte) (*metadata.ShaderBlob, error) {
	if len(b) < 20 || len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %s is %d bytes, not a SPIR-V module", core.ErrShaderCompile, name, len(b))
	}
	words := bytesToBytecode(b)
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("%w: %s has magic %#08x", core.ErrShaderCompile, name, words[0])
	}
	stage := strings.TrimSuffix(name, ".spv")
	if ext := filepath.Ext(stage); ext != "" {
		stage = ext[1:]
	}
	return &metadata.ShaderBlob{
		Stage: stage,
		Code:  b,
		Words: words,
	}, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return byteCode
}
