package views

import (
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// NormalClearColor is the view-space normal pointing at the camera.
var NormalClearColor = [4]float32{0, 0, 1, 0}

/**
 * @brief Writes view-space normals into the SSAO normal map and scene depth
 * into the main depth buffer.
 */
type NormalDepthPass struct {
	Ssao *Ssao
}

func (p *NormalDepthPass) Name() string {
	return "normal_depth"
}

func (p *NormalDepthPass) Record(ctx *PassContext) error {
	cl := ctx.List
	normals := p.Ssao.NormalMap()
	depth := ctx.Targets.Depth

	bindMainSignature(ctx, metadata.PassMain)
	cl.SetDescriptorTable(RootSceneMaps, int(ctx.Layout.Null))

	cl.SetViewport(gpu.NewViewport(ctx.Targets.Width, ctx.Targets.Height))
	cl.SetScissor(gpu.NewRect(ctx.Targets.Width, ctx.Targets.Height))

	cl.ResourceBarrier(normals, gpu.StateGenericRead, gpu.StateRenderTarget)
	cl.ClearRenderTarget(normals, NormalClearColor)
	cl.ClearDepthStencil(depth, 1, 0)
	cl.SetRenderTargets([]gpu.Texture{normals}, depth)

	setPipeline(ctx, ctx.Pipelines.MustHandle(PipelineNormals))
	for _, layer := range shadowCasters {
		drawRenderItems(ctx, ctx.Catalog.Layer(layer))
	}

	cl.ResourceBarrier(normals, gpu.StateRenderTarget, gpu.StateGenericRead)
	return nil
}
