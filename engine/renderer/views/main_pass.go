package views

import (
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// ClearColor is LightSteelBlue.
var ClearColor = [4]float32{0.690196, 0.768627, 0.870588, 1}

const (
	// MirrorStencilRef marks mirror pixels in the stencil buffer.
	MirrorStencilRef = 1
)

/**
 * @brief Draws the lit scene into the back buffer. Mirrors are first marked
 * in the stencil buffer, reflections are drawn where the mark is, and the
 * mirror surface is blended on top as part of the transparent layer.
 */
type MainPass struct{}

func (p *MainPass) Name() string {
	return "main"
}

func (p *MainPass) Record(ctx *PassContext) error {
	cl := ctx.List
	bb := ctx.Targets.BackBuffer
	depth := ctx.Targets.Depth
	pipelines := ctx.Pipelines

	cl.SetViewport(gpu.NewViewport(ctx.Targets.Width, ctx.Targets.Height))
	cl.SetScissor(gpu.NewRect(ctx.Targets.Width, ctx.Targets.Height))

	cl.ResourceBarrier(bb, gpu.StatePresent, gpu.StateRenderTarget)
	cl.ClearRenderTarget(bb, ClearColor)
	cl.ClearDepthStencil(depth, 1, 0)
	cl.SetRenderTargets([]gpu.Texture{bb}, depth)

	bindMainSignature(ctx, metadata.PassMain)
	// sky cube, shadow map, ambient map
	cl.SetDescriptorTable(RootSceneMaps, int(ctx.Layout.Sky))

	setPipeline(ctx, pipelines.MustHandle(PipelineOpaque))
	drawRenderItems(ctx, ctx.Catalog.Layer(metadata.LayerOpaque))

	setPipeline(ctx, pipelines.MustHandle(PipelineSky))
	drawRenderItems(ctx, ctx.Catalog.Layer(metadata.LayerSky))

	if ctx.ShowDebugQuads {
		setPipeline(ctx, pipelines.MustHandle(PipelineDebug))
		drawRenderItems(ctx, ctx.Catalog.Layer(metadata.LayerDebug))
	}

	cl.SetStencilRef(MirrorStencilRef)
	setPipeline(ctx, pipelines.MustHandle(PipelineMarkMirrors))
	drawRenderItems(ctx, ctx.Catalog.Layer(metadata.LayerMirrors))

	// Reflected items are lit by the reflected lights.
	bindPassConstants(ctx, metadata.PassReflected)
	setPipeline(ctx, pipelines.MustHandle(PipelineStencilReflection))
	drawRenderItems(ctx, ctx.Catalog.Layer(metadata.LayerReflected))

	bindPassConstants(ctx, metadata.PassMain)
	cl.SetStencilRef(0)

	setPipeline(ctx, pipelines.MustHandle(PipelineTransparent))
	drawRenderItems(ctx, ctx.Catalog.Layer(metadata.LayerTransparent))

	setPipeline(ctx, pipelines.MustHandle(PipelineAlphaTested))
	drawRenderItems(ctx, ctx.Catalog.Layer(metadata.LayerAlphaTested))

	cl.ResourceBarrier(bb, gpu.StateRenderTarget, gpu.StatePresent)
	return nil
}
