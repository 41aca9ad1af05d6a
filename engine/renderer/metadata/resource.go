package metadata

/** @brief Pre-defined resource types. */
type ResourceType uint8

const (
	ResourceTypeNone ResourceType = iota
	/** @brief SPIR-V shader blob. */
	ResourceTypeShader
	/** @brief Image decoded into an RGBA8 mip chain. */
	ResourceTypeTexture
	/** @brief TOML configuration. */
	ResourceTypeConfig
)

func (r ResourceType) String() string {
	switch r {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeTexture:
		return "texture"
	case ResourceTypeConfig:
		return "config"
	}
	return "none"
}

/** @brief A loaded asset. Data holds the loader-specific payload. */
type Resource struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}

/** @brief Payload of a shader resource. */
type ShaderBlob struct {
	Stage string
	Code  []byte
	// Words is Code reinterpreted as little-endian 32-bit words.
	Words []uint32
}

/** @brief Payload of a texture resource: RGBA8 pixels, mip 0 first. */
type TextureData struct {
	Width  uint32
	Height uint32
	Mips   [][]byte
}
