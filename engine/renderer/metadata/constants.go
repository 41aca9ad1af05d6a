package metadata

import "github.com/spaghettifunk/lumen/engine/math"

// MaxLights is the size of the light array in PassConstants.
const MaxLights = 16

// The layouts below follow std140 so they can be copied verbatim into uniform
// buffers. Matrices are stored transposed (column-major on the GPU side).

type Light struct {
	Strength     math.Vec3
	FalloffStart float32
	Direction    math.Vec3
	FalloffEnd   float32
	Position     math.Vec3
	SpotPower    float32
}

type ObjectConstants struct {
	World         math.Mat4
	TexTransform  math.Mat4
	MaterialIndex uint32
	_             [3]uint32
}

type PassConstants struct {
	View            math.Mat4
	InvView         math.Mat4
	Proj            math.Mat4
	InvProj         math.Mat4
	ViewProj        math.Mat4
	InvViewProj     math.Mat4
	ViewProjTex     math.Mat4
	ShadowTransform math.Mat4

	EyePosW math.Vec3
	_       float32

	RenderTargetSize    math.Vec2
	InvRenderTargetSize math.Vec2

	NearZ     float32
	FarZ      float32
	TotalTime float32
	DeltaTime float32

	AmbientLight math.Vec4

	// Indices [0, NUM_DIR_LIGHTS) are directional lights.
	Lights [MaxLights]Light
}

// MaterialData is one element of the structured material buffer (std430).
type MaterialData struct {
	DiffuseAlbedo   math.Vec4
	FresnelR0       math.Vec3
	Roughness       float32
	MatTransform    math.Mat4
	DiffuseMapIndex uint32
	NormalMapIndex  uint32
	_               [2]uint32
}

const SsaoOffsetVectorCount = 14

type SsaoConstants struct {
	Proj    math.Mat4
	InvProj math.Mat4
	ProjTex math.Mat4

	OffsetVectors [SsaoOffsetVectorCount]math.Vec4

	// Up to 11 blur weights packed four per vector.
	BlurWeights [3]math.Vec4

	InvRenderTargetSize math.Vec2
	OcclusionRadius     float32
	OcclusionFadeStart  float32

	OcclusionFadeEnd float32
	SurfaceEpsilon   float32
	_                [2]float32
}
