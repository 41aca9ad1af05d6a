package views

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const (
	MaxBlurRadius = config.MaxBlurRadius
	// RandomVectorMapSize is the edge of the random vector texture.
	RandomVectorMapSize = 256
	// OffsetSeed seeds the sample kernel so every run samples the same way.
	OffsetSeed = 1
)

// Offsets of the SSAO slots from HeapLayout.Ssao.
const (
	SsaoAmbient0 = iota
	SsaoAmbient1
	SsaoNormal
	SsaoDepth
	SsaoRandom
)

// AmbientClearColor means "not occluded".
var AmbientClearColor = [4]float32{1, 1, 1, 1}

// HeapSlots points descriptor heap slots at textures.
type HeapSlots interface {
	Set(index metadata.TextureHandle, tex gpu.Texture) error
}

/**
 * @brief Screen space ambient occlusion resources: the view-space normal map,
 * two half resolution ambient maps the blur ping-pongs between and a
 * tiling random vector texture. The maps live in five consecutive heap slots.
 */
type Ssao struct {
	device gpu.Device
	slots  HeapSlots
	base   metadata.TextureHandle

	width  uint32
	height uint32

	normalMap  gpu.Texture
	ambientMap [2]gpu.Texture
	randomMap  gpu.Texture

	offsets [metadata.SsaoOffsetVectorCount]math.Vec4
}

/**
 * @brief Creates the SSAO resources for a width x height screen.
 * @param depth The main depth buffer, sampled by the occlusion shader.
 */
func NewSsao(device gpu.Device, slots HeapSlots, base metadata.TextureHandle, width, height uint32, depth gpu.Texture) (*Ssao, error) {
	s := &Ssao{
		device:  device,
		slots:   slots,
		base:    base,
		offsets: OffsetVectors(rand.New(rand.NewSource(OffsetSeed))),
	}
	if err := s.buildRandomVectorMap(rand.New(rand.NewSource(OffsetSeed))); err != nil {
		return nil, err
	}
	if err := s.OnResize(width, height, depth); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

/**
 * @brief Builds the 14 sample kernel vectors: the 8 cube corners followed by
 * the 6 face centers, each scaled to a random length in [0.25, 1] so samples
 * do not cluster at one distance.
 */
func OffsetVectors(r *rand.Rand) [metadata.SsaoOffsetVectorCount]math.Vec4 {
	dirs := [metadata.SsaoOffsetVectorCount]math.Vec3{
		{X: 1, Y: 1, Z: 1}, {X: -1, Y: -1, Z: -1},
		{X: -1, Y: 1, Z: 1}, {X: 1, Y: -1, Z: -1},
		{X: 1, Y: 1, Z: -1}, {X: -1, Y: -1, Z: 1},
		{X: -1, Y: 1, Z: -1}, {X: 1, Y: -1, Z: 1},

		{X: -1}, {X: 1},
		{Y: -1}, {Y: 1},
		{Z: -1}, {Z: 1},
	}
	var out [metadata.SsaoOffsetVectorCount]math.Vec4
	for i, d := range dirs {
		s := math.RandFloatRange(r, 0.25, 1)
		out[i] = d.Normalize().MulScalar(s).ToVec4(0)
	}
	return out
}

/**
 * @brief Computes normalized Gaussian blur weights for sigma. The kernel has
 * 2*ceil(2*sigma)+1 taps.
 */
func CalcGaussWeights(sigma float32) ([]float32, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("blur sigma must be positive, got %g", sigma)
	}
	radius := config.BlurRadius(sigma)
	if radius > MaxBlurRadius {
		return nil, fmt.Errorf("blur sigma %g needs radius %d, the shader supports %d", sigma, radius, MaxBlurRadius)
	}
	twoSigma2 := float64(2 * sigma * sigma)
	w := make([]float64, 2*radius+1)
	for i := -radius; i <= radius; i++ {
		x := float64(i)
		w[i+radius] = float64(math.Exp(float32(-x * x / twoSigma2)))
	}
	floats.Scale(1/floats.Sum(w), w)

	out := make([]float32, len(w))
	for i, v := range w {
		out[i] = float32(v)
	}
	return out, nil
}

func (s *Ssao) buildRandomVectorMap(r *rand.Rand) error {
	px := make([]byte, RandomVectorMapSize*RandomVectorMapSize*4)
	for i := 0; i < len(px); i += 4 {
		px[i] = byte(r.Intn(256))
		px[i+1] = byte(r.Intn(256))
		px[i+2] = byte(r.Intn(256))
	}
	tex, err := s.device.CreateTexture(gpu.TextureDesc{
		Name:      "ssao_random_vectors",
		Width:     RandomVectorMapSize,
		Height:    RandomVectorMapSize,
		MipLevels: 1,
		ArraySize: 1,
		Format:    gpu.FormatRGBA8Unorm,
		Usage:     gpu.UsageSampled,
		State:     gpu.StateGenericRead,
	}, [][]byte{px})
	if err != nil {
		return err
	}
	s.randomMap = tex
	return s.slots.Set(s.base+SsaoRandom, tex)
}

/**
 * @brief Recreates the normal and ambient maps for a new screen size and
 * points the heap slots at them. The GPU must be idle.
 */
func (s *Ssao) OnResize(width, height uint32, depth gpu.Texture) error {
	if width == 0 || height == 0 {
		return core.NewDeviceError("Ssao.OnResize", -1, fmt.Sprintf("zero extent %dx%d", width, height), core.ErrSwapchainBooting)
	}
	if width != s.width || height != s.height {
		s.releaseMaps()
		s.width, s.height = width, height
		if err := s.buildMaps(); err != nil {
			return err
		}
	}
	return s.slots.Set(s.base+SsaoDepth, depth)
}

func (s *Ssao) buildMaps() error {
	var err error
	s.normalMap, err = s.device.CreateTexture(gpu.TextureDesc{
		Name:      "ssao_normal_map",
		Width:     s.width,
		Height:    s.height,
		MipLevels: 1,
		ArraySize: 1,
		Format:    NormalMapFormat,
		Usage:     gpu.UsageSampled | gpu.UsageRenderTarget,
		State:     gpu.StateGenericRead,
	}, nil)
	if err != nil {
		return err
	}
	if err := s.slots.Set(s.base+SsaoNormal, s.normalMap); err != nil {
		return err
	}
	w, h := s.AmbientMapSize()
	for i := range s.ambientMap {
		s.ambientMap[i], err = s.device.CreateTexture(gpu.TextureDesc{
			Name:      fmt.Sprintf("ssao_ambient_map_%d", i),
			Width:     w,
			Height:    h,
			MipLevels: 1,
			ArraySize: 1,
			Format:    AmbientMapFormat,
			Usage:     gpu.UsageSampled | gpu.UsageRenderTarget,
			State:     gpu.StateGenericRead,
		}, nil)
		if err != nil {
			return err
		}
		if err := s.slots.Set(s.base+metadata.TextureHandle(SsaoAmbient0+i), s.ambientMap[i]); err != nil {
			return err
		}
	}
	core.LogDebug("ssao maps created (%dx%d, ambient %dx%d)", s.width, s.height, w, h)
	return nil
}

func (s *Ssao) NormalMap() gpu.Texture {
	return s.normalMap
}

// AmbientMap returns the ambient map i; map 0 holds the final result.
func (s *Ssao) AmbientMap(i int) gpu.Texture {
	return s.ambientMap[i]
}

func (s *Ssao) RandomVectorMap() gpu.Texture {
	return s.randomMap
}

// AmbientMapSize is half the screen size.
func (s *Ssao) AmbientMapSize() (uint32, uint32) {
	return max(s.width/2, 1), max(s.height/2, 1)
}

func (s *Ssao) Offsets() [metadata.SsaoOffsetVectorCount]math.Vec4 {
	return s.offsets
}

// Slot returns the heap index of one of the SSAO slots.
func (s *Ssao) Slot(offset int) int {
	return int(s.base) + offset
}

/**
 * @brief Builds the SSAO constants for the camera projection. Matrices are
 * transposed for upload.
 */
func (s *Ssao) Constants(proj math.Mat4, params config.Ssao) (metadata.SsaoConstants, error) {
	weights, err := CalcGaussWeights(params.BlurSigma)
	if err != nil {
		return metadata.SsaoConstants{}, err
	}
	w, h := s.AmbientMapSize()
	c := metadata.SsaoConstants{
		Proj:                proj.Transpose(),
		InvProj:             proj.Inverse().Transpose(),
		ProjTex:             proj.Mul(math.TextureSpace).Transpose(),
		OffsetVectors:       s.offsets,
		InvRenderTargetSize: math.NewVec2(1/float32(w), 1/float32(h)),
		OcclusionRadius:     params.OcclusionRadius,
		OcclusionFadeStart:  params.FadeStart,
		OcclusionFadeEnd:    params.FadeEnd,
		SurfaceEpsilon:      params.SurfaceEpsilon,
	}
	var packed [12]float32
	copy(packed[:], weights)
	for i := range c.BlurWeights {
		c.BlurWeights[i] = math.NewVec4(packed[4*i], packed[4*i+1], packed[4*i+2], packed[4*i+3])
	}
	return c, nil
}

func (s *Ssao) releaseMaps() {
	if s.normalMap != nil {
		s.normalMap.Release()
		s.normalMap = nil
	}
	for i, m := range s.ambientMap {
		if m != nil {
			m.Release()
			s.ambientMap[i] = nil
		}
	}
}

func (s *Ssao) Release() {
	s.releaseMaps()
	if s.randomMap != nil {
		s.randomMap.Release()
		s.randomMap = nil
	}
}

/**
 * @brief Computes ambient occlusion into ambient map 0 from the normal map
 * and the main depth buffer, then blurs it BlurCount times.
 */
type SsaoPass struct {
	Ssao      *Ssao
	BlurCount int
}

func (p *SsaoPass) Name() string {
	return "ssao"
}

func (p *SsaoPass) Record(ctx *PassContext) error {
	cl := ctx.List
	s := p.Ssao
	depth := ctx.Targets.Depth

	cl.SetRootSignature(ctx.SsaoSignature)
	cl.SetConstantBuffer(RootSsaoCB, ctx.Frame.SsaoCB.Buffer(), ctx.Frame.SsaoCB.Offset(0))
	cl.SetRootConstant(RootSsaoConstants, 0)

	w, h := s.AmbientMapSize()
	cl.SetViewport(gpu.NewViewport(w, h))
	cl.SetScissor(gpu.NewRect(w, h))

	cl.ResourceBarrier(depth, gpu.StateDepthWrite, gpu.StateGenericRead)

	cl.SetDescriptorTable(RootSsaoNormalDepth, s.Slot(SsaoNormal))
	cl.SetDescriptorTable(RootSsaoInput, s.Slot(SsaoRandom))

	ambient := s.AmbientMap(0)
	cl.ResourceBarrier(ambient, gpu.StateGenericRead, gpu.StateRenderTarget)
	cl.ClearRenderTarget(ambient, AmbientClearColor)
	cl.SetRenderTargets([]gpu.Texture{ambient}, nil)
	setPipeline(ctx, ctx.Pipelines.MustHandle(PipelineSsao))
	cl.DrawInstanced(6, 1, 0, 0)
	cl.ResourceBarrier(ambient, gpu.StateRenderTarget, gpu.StateGenericRead)

	setPipeline(ctx, ctx.Pipelines.MustHandle(PipelineSsaoBlur))
	for i := 0; i < p.BlurCount; i++ {
		p.blur(ctx, true)
		p.blur(ctx, false)
	}

	cl.ResourceBarrier(depth, gpu.StateGenericRead, gpu.StateDepthWrite)
	return nil
}

// blur runs one direction: horizontal reads map 0 into map 1, vertical
// reads map 1 back into map 0.
func (p *SsaoPass) blur(ctx *PassContext, horizontal bool) {
	cl := ctx.List
	in, out := SsaoAmbient0, SsaoAmbient1
	flag := uint32(1)
	if !horizontal {
		in, out = SsaoAmbient1, SsaoAmbient0
		flag = 0
	}
	target := p.Ssao.AmbientMap(out - SsaoAmbient0)

	cl.SetRootConstant(RootSsaoConstants, flag)
	cl.ResourceBarrier(target, gpu.StateGenericRead, gpu.StateRenderTarget)
	cl.ClearRenderTarget(target, AmbientClearColor)
	cl.SetRenderTargets([]gpu.Texture{target}, nil)
	cl.SetDescriptorTable(RootSsaoNormalDepth, p.Ssao.Slot(SsaoNormal))
	cl.SetDescriptorTable(RootSsaoInput, p.Ssao.Slot(in))
	cl.DrawInstanced(6, 1, 0, 0)
	cl.ResourceBarrier(target, gpu.StateRenderTarget, gpu.StateGenericRead)
}
