package views

import (
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief A square depth texture rendered from the main light and sampled
 * by the main pass through a comparison sampler.
 */
type ShadowMap struct {
	texture gpu.Texture
	size    uint32
}

// NewShadowMap creates the depth texture in GenericRead, the state it is in
// between shadow passes.
func NewShadowMap(device gpu.Device, size uint32) (*ShadowMap, error) {
	tex, err := device.CreateTexture(gpu.TextureDesc{
		Name:      "shadow_map",
		Width:     size,
		Height:    size,
		MipLevels: 1,
		ArraySize: 1,
		Format:    DepthStencilFormat,
		Usage:     gpu.UsageSampled | gpu.UsageDepthStencil,
		State:     gpu.StateGenericRead,
	}, nil)
	if err != nil {
		return nil, err
	}
	return &ShadowMap{texture: tex, size: size}, nil
}

func (s *ShadowMap) Texture() gpu.Texture {
	return s.texture
}

func (s *ShadowMap) Size() uint32 {
	return s.size
}

func (s *ShadowMap) Release() {
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}

// ShadowPass renders the scene depth from the light into the shadow map.
type ShadowPass struct {
	Map *ShadowMap
}

func (p *ShadowPass) Name() string {
	return "shadow"
}

func (p *ShadowPass) Record(ctx *PassContext) error {
	cl := ctx.List
	tex := p.Map.Texture()

	bindMainSignature(ctx, metadata.PassShadow)
	// The shadow shader reads the texture table only for alpha cutouts.
	cl.SetDescriptorTable(RootSceneMaps, int(ctx.Layout.Null))

	cl.SetViewport(gpu.NewViewport(p.Map.Size(), p.Map.Size()))
	cl.SetScissor(gpu.NewRect(p.Map.Size(), p.Map.Size()))

	cl.ResourceBarrier(tex, gpu.StateGenericRead, gpu.StateDepthWrite)
	cl.SetRenderTargets(nil, tex)
	cl.ClearDepthStencil(tex, 1, 0)

	setPipeline(ctx, ctx.Pipelines.MustHandle(PipelineShadow))
	for _, layer := range shadowCasters {
		drawRenderItems(ctx, ctx.Catalog.Layer(layer))
	}

	cl.ResourceBarrier(tex, gpu.StateDepthWrite, gpu.StateGenericRead)
	return nil
}

// shadowCasters are the layers drawn into the shadow and normal maps.
var shadowCasters = []metadata.RenderLayer{
	metadata.LayerOpaque,
	metadata.LayerReflected,
	metadata.LayerAlphaTested,
}
