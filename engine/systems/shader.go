package systems

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	/**
	 * @brief Substitute an empty SPIR-V module for missing files. Only the
	 * headless backend, which never executes shaders, sets this.
	 */
	AllowMissing bool
}

/**
 * @brief Loads compiled SPIR-V stages through the asset manager and keeps
 * them for pipeline creation. Stages are named "<program>.<stage>", for
 * example "standard.vert" for standard.vert.spv.
 */
type ShaderSystem struct {
	Config *ShaderSystemConfig
	blobs  map[string]*metadata.ShaderBlob

	assetManager *assets.AssetManager
}

func NewShaderSystem(config *ShaderSystemConfig, am *assets.AssetManager) (*ShaderSystem, error) {
	if config == nil {
		return nil, fmt.Errorf("NewShaderSystem - config must not be nil")
	}
	return &ShaderSystem{
		Config:       config,
		blobs:        make(map[string]*metadata.ShaderBlob),
		assetManager: am,
	}, nil
}

// Load returns the stage called name, reading it on first use.
func (ss *ShaderSystem) Load(name string) (*metadata.ShaderBlob, error) {
	if b, ok := ss.blobs[name]; ok {
		return b, nil
	}
	var err error
	if ss.assetManager != nil {
		var res *metadata.Resource
		res, err = ss.assetManager.LoadAsset(name+".spv", metadata.ResourceTypeShader, nil)
		if err == nil {
			blob := res.Data.(*metadata.ShaderBlob)
			ss.blobs[name] = blob
			return blob, nil
		}
	} else {
		err = assets.ErrAssetNotFound
	}
	if ss.Config.AllowMissing && errors.Is(err, assets.ErrAssetNotFound) {
		core.LogDebug("shader %s not found, using an empty module", name)
		blob := EmptyShaderModule(name)
		ss.blobs[name] = blob
		return blob, nil
	}
	core.LogError("failed to load shader %s: %s", name, err)
	if errors.Is(err, core.ErrShaderCompile) {
		return nil, err
	}
	return nil, core.NewDeviceError("LoadShader", -1, name, fmt.Errorf("%w: %w", core.ErrShaderCompile, err))
}

// Add registers an already loaded stage.
func (ss *ShaderSystem) Add(name string, blob *metadata.ShaderBlob) {
	ss.blobs[name] = blob
}

// Program loads the vertex and fragment stages of a program.
func (ss *ShaderSystem) Program(vert, frag string) (vs, ps []byte, err error) {
	v, err := ss.Load(vert + ".vert")
	if err != nil {
		return nil, nil, err
	}
	f, err := ss.Load(frag + ".frag")
	if err != nil {
		return nil, nil, err
	}
	return v.Code, f.Code, nil
}

func (ss *ShaderSystem) Count() int {
	return len(ss.blobs)
}

func (ss *ShaderSystem) Shutdown() error {
	ss.blobs = map[string]*metadata.ShaderBlob{}
	return nil
}

// EmptyShaderModule is a SPIR-V header with no instructions.
func EmptyShaderModule(name string) *metadata.ShaderBlob {
	words := []uint32{0x07230203, 0x00010000, 0, 1, 0}
	code := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(code[i*4:], w)
	}
	stage := strings.TrimPrefix(filepath.Ext(name), ".")
	return &metadata.ShaderBlob{Stage: stage, Code: code, Words: words}
}
