package systems

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type MaterialSystemConfig struct {
	/** @brief The maximum number of materials, and the length of the material buffer. */
	MaxMaterialCount int
}

/**
 * @brief Owns every material for the lifetime of the program. A material's
 * handle is also its element in the structured material buffer.
 */
type MaterialSystem struct {
	Config    *MaterialSystemConfig
	materials []*metadata.Material
	lookup    map[string]metadata.MaterialHandle
	frames    int

	textureSystem *TextureSystem
}

func NewMaterialSystem(config *MaterialSystemConfig, frames int, ts *TextureSystem) (*MaterialSystem, error) {
	if config.MaxMaterialCount <= 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &MaterialSystem{
		Config:        config,
		materials:     make([]*metadata.Material, 0, config.MaxMaterialCount),
		lookup:        make(map[string]metadata.MaterialHandle),
		frames:        frames,
		textureSystem: ts,
	}, nil
}

func (ms *MaterialSystem) resolve(textureName string) (int, error) {
	if ms.textureSystem == nil {
		return 0, fmt.Errorf("no texture system to resolve %q", textureName)
	}
	h, ok := ms.textureSystem.Index(textureName)
	if !ok {
		return 0, fmt.Errorf("texture %q is not registered", textureName)
	}
	return int(h), nil
}

/**
 * @brief Creates a material from config. Texture names are resolved to heap
 * indices now, so nothing is looked up by name while drawing.
 */
func (ms *MaterialSystem) Register(config metadata.MaterialConfig) (metadata.MaterialHandle, error) {
	if _, ok := ms.lookup[config.Name]; ok {
		return metadata.InvalidHandle, fmt.Errorf("material %q is already registered", config.Name)
	}
	if len(ms.materials) >= ms.Config.MaxMaterialCount {
		return metadata.InvalidHandle, fmt.Errorf("material system cannot hold %q: limit is %d", config.Name, ms.Config.MaxMaterialCount)
	}
	diffuse, err := ms.resolve(config.DiffuseMapName)
	if err != nil {
		return metadata.InvalidHandle, fmt.Errorf("material %s: %w", config.Name, err)
	}
	normal, err := ms.resolve(config.NormalMapName)
	if err != nil {
		return metadata.InvalidHandle, fmt.Errorf("material %s: %w", config.Name, err)
	}
	h := metadata.MaterialHandle(len(ms.materials))
	m := metadata.NewMaterial(config.Name, int(h), ms.frames)
	m.DiffuseSrvHeapIndex = diffuse
	m.NormalSrvHeapIndex = normal
	m.DiffuseAlbedo = config.DiffuseAlbedo
	m.FresnelR0 = config.FresnelR0
	m.Roughness = config.Roughness
	ms.materials = append(ms.materials, m)
	ms.lookup[config.Name] = h
	return h, nil
}

func (ms *MaterialSystem) Get(h metadata.MaterialHandle) *metadata.Material {
	if int(h) < 0 || int(h) >= len(ms.materials) {
		return nil
	}
	return ms.materials[h]
}

// Handle resolves a name. Only used while the scene is built.
func (ms *MaterialSystem) Handle(name string) (metadata.MaterialHandle, bool) {
	h, ok := ms.lookup[name]
	return h, ok
}

// All returns the materials in buffer order.
func (ms *MaterialSystem) All() []*metadata.Material {
	return ms.materials
}

func (ms *MaterialSystem) Count() int {
	return len(ms.materials)
}

func (ms *MaterialSystem) Shutdown() error {
	ms.materials = nil
	ms.lookup = map[string]metadata.MaterialHandle{}
	return nil
}
