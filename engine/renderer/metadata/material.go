package metadata

import "github.com/spaghettifunk/lumen/engine/math"

/**
 * @brief Material configuration, created in code to register a material.
 */
type MaterialConfig struct {
	Name string
	/** @brief Texture names resolved to heap indices at registration. */
	DiffuseMapName string
	NormalMapName  string
	DiffuseAlbedo  math.Vec4
	FresnelR0      math.Vec3
	Roughness      float32
}

/**
 * @brief A material: surface properties uploaded into the structured
 * material buffer at MatCBIndex.
 */
type Material struct {
	Name string
	/** @brief Element of the material buffer this material occupies. */
	MatCBIndex int
	/** @brief Descriptor heap indices of the diffuse and normal maps. */
	DiffuseSrvHeapIndex int
	NormalSrvHeapIndex  int

	DiffuseAlbedo math.Vec4
	FresnelR0     math.Vec3
	Roughness     float32
	MatTransform  math.Mat4

	/** @brief Frames whose material buffer still holds stale data. */
	NumFramesDirty int
	frames         int
}

// NewMaterial returns a material at buffer element index, dirty in every
// one of the frames frame resources.
func NewMaterial(name string, index, frames int) *Material {
	return &Material{
		Name:           name,
		MatCBIndex:     index,
		MatTransform:   math.NewMat4Identity(),
		NumFramesDirty: frames,
		frames:         frames,
	}
}

// SetSurface replaces the surface parameters and marks the material dirty.
func (m *Material) SetSurface(albedo math.Vec4, fresnelR0 math.Vec3, roughness float32) {
	m.DiffuseAlbedo = albedo
	m.FresnelR0 = fresnelR0
	m.Roughness = roughness
	m.MarkDirty()
}

func (m *Material) SetMatTransform(t math.Mat4) {
	m.MatTransform = t
	m.MarkDirty()
}

// MarkDirty schedules a rewrite of the material in every frame resource.
func (m *Material) MarkDirty() {
	m.NumFramesDirty = m.frames
}

func (m *Material) FrameCount() int {
	return m.frames
}

// Data returns the GPU representation of the material.
func (m *Material) Data() MaterialData {
	return MaterialData{
		DiffuseAlbedo:   m.DiffuseAlbedo,
		FresnelR0:       m.FresnelR0,
		Roughness:       m.Roughness,
		MatTransform:    m.MatTransform.Transpose(),
		DiffuseMapIndex: uint32(m.DiffuseSrvHeapIndex),
		NormalMapIndex:  uint32(m.NormalSrvHeapIndex),
	}
}
