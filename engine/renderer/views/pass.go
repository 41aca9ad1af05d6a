package views

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/frame"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// Root parameters of the main root signature.
const (
	RootObjectCB = iota
	RootPassCB
	RootMaterialBuffer
	// sky cube, shadow map and ambient map, in that order
	RootSceneMaps
	RootTextureTable
)

// Root parameters of the SSAO root signature.
const (
	RootSsaoCB = iota
	RootSsaoConstants
	// normal and depth maps
	RootSsaoNormalDepth
	// random vectors for the occlusion pass, input map for the blur
	RootSsaoInput
)

const (
	SceneMapCount = 3
	// TextureTableSize is how many heap slots the texture table spans.
	TextureTableSize = 20
	SsaoSlotCount    = 5
	NullSlotCount    = 3
)

// HeapLayout is where the passes find their descriptors in the heap.
type HeapLayout struct {
	Sky       metadata.TextureHandle
	ShadowMap metadata.TextureHandle
	// ambient map 0, ambient map 1, normal map, depth map, random vectors
	Ssao metadata.TextureHandle
	// null cube, then two null 2D slots
	Null metadata.TextureHandle
}

// Targets are the screen-sized attachments of the current frame.
type Targets struct {
	BackBuffer gpu.Texture
	Depth      gpu.Texture
	Width      uint32
	Height     uint32
}

/**
 * @brief Everything a pass needs to record into the frame's command list.
 * Layers are read from the catalog; nothing here is owned by the context.
 */
type PassContext struct {
	List  gpu.CommandList
	Frame *frame.FrameResource

	Catalog    *systems.RenderItemCatalog
	Geometries *systems.GeometrySystem
	Pipelines  *systems.PipelineSystem
	Heap       gpu.DescriptorHeap
	Layout     HeapLayout

	MainSignature gpu.RootSignature
	SsaoSignature gpu.RootSignature

	Targets Targets

	ShowDebugQuads bool
}

// Pass records one stage of the frame.
type Pass interface {
	Name() string
	Record(ctx *PassContext) error
}

// bindMainSignature binds the main root signature with the frame's material
// buffer and the given pass constants.
func bindMainSignature(ctx *PassContext, kind metadata.PassKind) {
	cl := ctx.List
	cl.SetRootSignature(ctx.MainSignature)
	cl.SetShaderResource(RootMaterialBuffer, ctx.Frame.MaterialBuffer.Buffer())
	bindPassConstants(ctx, kind)
	cl.SetDescriptorTable(RootTextureTable, 0)
}

func bindPassConstants(ctx *PassContext, kind metadata.PassKind) {
	pcb := ctx.Frame.PassCB
	ctx.List.SetConstantBuffer(RootPassCB, pcb.Buffer(), pcb.Offset(metadata.PassSlot(kind)))
}

// drawRenderItems issues one indexed draw per item with its object constants.
func drawRenderItems(ctx *PassContext, items []*metadata.RenderItem) {
	cl := ctx.List
	ocb := ctx.Frame.ObjectCB
	for _, ri := range items {
		geo := ctx.Geometries.Get(ri.Geometry)
		if geo == nil {
			core.LogError("render item %s has no geometry for handle %d, not drawn", ri.Name, ri.Geometry)
			continue
		}
		cl.SetVertexBuffer(geo.VertexBuffer, geo.VertexByteStride)
		cl.SetIndexBuffer(geo.IndexBuffer, geo.IndexFormat)
		cl.SetPrimitiveTopology(ri.Topology)

		cl.SetConstantBuffer(RootObjectCB, ocb.Buffer(), ocb.Offset(ri.ObjCBIndex))
		cl.DrawIndexedInstanced(ri.IndexCount, 1, ri.StartIndexLocation, ri.BaseVertexLocation, 0)
	}
}

func setPipeline(ctx *PassContext, h metadata.PipelineHandle) {
	ctx.List.SetPipelineState(ctx.Pipelines.Get(h))
}
