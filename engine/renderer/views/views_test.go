package views

import (
	"math/rand"
	"testing"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/geometry"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/frame"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dev    *headless.Device
	sm     *systems.SystemManager
	ssao   *Ssao
	shadow *ShadowMap
	depth  gpu.Texture
	list   *headless.CommandList
	ctx    *PassContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev := headless.New(headless.Options{Width: 64, Height: 48, AutoComplete: true})
	sm, err := systems.NewSystemManager(systems.SystemManagerConfig{
		FrameResources:      3,
		MaxTextureCount:     12,
		MaxMaterialCount:    4,
		AllowMissingShaders: true,
	}, dev, nil)
	require.NoError(t, err)
	t.Cleanup(func() { sm.Shutdown() })

	ts := sm.TextureSystem
	var layout HeapLayout
	layout.Sky, err = ts.Reserve("sky", 1)
	require.NoError(t, err)
	require.NoError(t, ts.SetNull(layout.Sky, true))
	layout.ShadowMap, err = ts.Reserve("shadow_map", 1)
	require.NoError(t, err)
	layout.Ssao, err = ts.Reserve("ssao", SsaoSlotCount)
	require.NoError(t, err)
	layout.Null, err = ts.Reserve("null", NullSlotCount)
	require.NoError(t, err)

	depth, err := dev.CreateTexture(gpu.TextureDesc{
		Name: "depth_stencil", Width: 64, Height: 48,
		Format: DepthStencilFormat, Usage: gpu.UsageSampled | gpu.UsageDepthStencil,
		State: gpu.StateDepthWrite,
	}, nil)
	require.NoError(t, err)

	shadow, err := NewShadowMap(dev, 32)
	require.NoError(t, err)
	require.NoError(t, ts.Set(layout.ShadowMap, shadow.Texture()))
	ssao, err := NewSsao(dev, ts, layout.Ssao, 64, 48, depth)
	require.NoError(t, err)

	mainSig, ssaoSig, err := BuildRootSignatures(sm.PipelineSystem)
	require.NoError(t, err)
	require.NoError(t, BuildPipelines(sm.PipelineSystem, sm.ShaderSystem, mainSig, ssaoSig, dev.Swapchain().Format()))

	fr, err := frame.NewFrameResource(dev, 0, frame.Counts{Passes: metadata.PassCount(), Objects: 16, Materials: 4})
	require.NoError(t, err)
	t.Cleanup(fr.Close)
	cl, err := dev.CreateCommandList(fr.Allocator)
	require.NoError(t, err)

	bb := dev.Swapchain().CurrentBackBuffer()
	return &fixture{
		dev:    dev,
		sm:     sm,
		ssao:   ssao,
		shadow: shadow,
		depth:  depth,
		list:   cl.(*headless.CommandList),
		ctx: &PassContext{
			List:          cl,
			Frame:         fr,
			Catalog:       sm.Catalog,
			Geometries:    sm.GeometrySystem,
			Pipelines:     sm.PipelineSystem,
			Heap:          ts.Heap(),
			Layout:        layout,
			MainSignature: mainSig,
			SsaoSignature: ssaoSig,
			Targets:       Targets{BackBuffer: bb, Depth: depth, Width: 64, Height: 48},
		},
	}
}

// addItems puts one box in each of the given layers.
func (f *fixture) addItems(t *testing.T, layers ...metadata.RenderLayer) {
	t.Helper()
	geo, err := geometry.Pack("shapes", geometry.Part{Name: "box", Mesh: geometry.CreateBox(1, 1, 1, 0)})
	require.NoError(t, err)
	h, err := f.sm.GeometrySystem.Register(geo)
	require.NoError(t, err)
	sub, err := f.sm.GeometrySystem.Submesh(h, "box")
	require.NoError(t, err)
	for _, layer := range layers {
		ri := metadata.NewRenderItem(layer.String(), 3)
		ri.Geometry = h
		ri.SetSubmesh(sub)
		idx := f.sm.Catalog.Add(ri)
		require.NoError(t, f.sm.Catalog.AddToLayer(layer, idx))
	}
}

func (f *fixture) ops(op headless.Op) []headless.Command {
	var out []headless.Command
	for _, c := range f.list.Commands() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func TestCalcGaussWeights(t *testing.T) {
	w, err := CalcGaussWeights(2.5)
	require.NoError(t, err)
	require.Len(t, w, 11)

	var sum float32
	for _, v := range w {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
	for i := 0; i < 5; i++ {
		assert.InDelta(t, w[i], w[10-i], 1e-6)
		assert.Less(t, w[i], w[i+1])
	}

	w, err = CalcGaussWeights(1)
	require.NoError(t, err)
	assert.Len(t, w, 5)

	_, err = CalcGaussWeights(3)
	assert.Error(t, err)
	_, err = CalcGaussWeights(0)
	assert.Error(t, err)
}

func TestOffsetVectors(t *testing.T) {
	a := OffsetVectors(rand.New(rand.NewSource(OffsetSeed)))
	b := OffsetVectors(rand.New(rand.NewSource(OffsetSeed)))
	assert.Equal(t, a, b)

	for i, v := range a {
		l := v.ToVec3().Length()
		assert.GreaterOrEqual(t, l, float32(0.25)-1e-5, "offset %d", i)
		assert.LessOrEqual(t, l, float32(1)+1e-5, "offset %d", i)
		assert.Zero(t, v.W)
	}
	// Corners come in opposite pairs.
	assert.Greater(t, a[0].X, float32(0))
	assert.Less(t, a[1].X, float32(0))
	// Face centers lie on one axis.
	assert.Zero(t, a[8].Y)
	assert.Zero(t, a[8].Z)
}

func TestBuildPipelines(t *testing.T) {
	f := newFixture(t)
	ps := f.sm.PipelineSystem
	assert.Equal(t, 11, ps.Count())

	desc := func(name string) gpu.PipelineStateDesc {
		return ps.Get(ps.MustHandle(name)).Desc()
	}

	mark := desc(PipelineMarkMirrors)
	assert.Equal(t, gpu.ColorWrite(0), mark.Blend.WriteMask)
	assert.False(t, mark.DepthStencil.DepthWrite)
	assert.Equal(t, gpu.StencilReplace, mark.DepthStencil.Front.Pass)
	assert.Equal(t, gpu.CompareAlways, mark.DepthStencil.Front.Func)

	reflect := desc(PipelineStencilReflection)
	assert.True(t, reflect.Rasterizer.FrontCounterClockwise)
	assert.Equal(t, gpu.CullBack, reflect.Rasterizer.Cull)
	assert.Equal(t, gpu.CompareEqual, reflect.DepthStencil.Front.Func)

	sky := desc(PipelineSky)
	assert.Equal(t, gpu.CullNone, sky.Rasterizer.Cull)
	assert.Equal(t, gpu.CompareLessEqual, sky.DepthStencil.DepthFunc)

	transparent := desc(PipelineTransparent)
	assert.True(t, transparent.Blend.Enable)
	assert.Equal(t, gpu.BlendSrcAlpha, transparent.Blend.Src)
	assert.Equal(t, gpu.BlendInvSrcAlpha, transparent.Blend.Dst)

	assert.Equal(t, gpu.CullNone, desc(PipelineAlphaTested).Rasterizer.Cull)

	shadow := desc(PipelineShadow)
	assert.Empty(t, shadow.RTFormats)
	assert.Equal(t, int32(100000), shadow.Rasterizer.DepthBias)
	assert.Equal(t, float32(1), shadow.Rasterizer.SlopeScaledDepthBias)

	assert.Equal(t, []gpu.Format{NormalMapFormat}, desc(PipelineNormals).RTFormats)
	occlusion := desc(PipelineSsao)
	assert.Equal(t, "ssao", occlusion.RootSignature.Desc().Name)
	assert.Equal(t, gpu.FormatUnknown, occlusion.DSFormat)

	// Building reused the cached stages.
	assert.Equal(t, 15, f.sm.ShaderSystem.Count())
}

func TestMainPassDrawOrder(t *testing.T) {
	f := newFixture(t)
	f.ctx.ShowDebugQuads = true
	f.addItems(t,
		metadata.LayerAlphaTested, metadata.LayerTransparent, metadata.LayerReflected,
		metadata.LayerMirrors, metadata.LayerDebug, metadata.LayerSky, metadata.LayerOpaque)

	require.NoError(t, (&MainPass{}).Record(f.ctx))
	assert.Empty(t, f.dev.Violations())

	var psos []string
	for _, c := range f.ops(headless.OpSetPipelineState) {
		psos = append(psos, c.Resource)
	}
	assert.Equal(t, []string{
		PipelineOpaque, PipelineSky, PipelineDebug, PipelineMarkMirrors,
		PipelineStencilReflection, PipelineTransparent, PipelineAlphaTested,
	}, psos)

	refs := f.ops(headless.OpSetStencilRef)
	require.Len(t, refs, 2)
	assert.Equal(t, uint64(MirrorStencilRef), refs[0].Value)
	assert.Equal(t, uint64(0), refs[1].Value)

	// The reflected pass constants are bound only around the reflected draw.
	pcb := f.ctx.Frame.PassCB
	var passOffsets []uint64
	for _, c := range f.ops(headless.OpSetConstantBuffer) {
		if c.Param == RootPassCB {
			passOffsets = append(passOffsets, c.Offset)
		}
	}
	assert.Equal(t, []uint64{
		pcb.Offset(metadata.PassSlot(metadata.PassMain)),
		pcb.Offset(metadata.PassSlot(metadata.PassReflected)),
		pcb.Offset(metadata.PassSlot(metadata.PassMain)),
	}, passOffsets)

	assert.Len(t, f.ops(headless.OpDrawIndexed), 7)
	clears := f.ops(headless.OpClearRenderTarget)
	require.Len(t, clears, 1)
	assert.Equal(t, ClearColor, clears[0].Color)
	assert.Equal(t, gpu.StatePresent, f.ctx.Targets.BackBuffer.(*headless.Texture).State())
}

func TestMainPassSkipsDebugQuads(t *testing.T) {
	f := newFixture(t)
	f.addItems(t, metadata.LayerDebug, metadata.LayerOpaque)
	require.NoError(t, (&MainPass{}).Record(f.ctx))
	for _, c := range f.ops(headless.OpSetPipelineState) {
		assert.NotEqual(t, PipelineDebug, c.Resource)
	}
	assert.Len(t, f.ops(headless.OpDrawIndexed), 1)
}

func TestItemWithoutGeometryIsNotDrawn(t *testing.T) {
	f := newFixture(t)
	f.addItems(t, metadata.LayerOpaque, metadata.LayerOpaque)
	f.sm.Catalog.Layer(metadata.LayerOpaque)[0].Geometry = 99

	require.NoError(t, (&ShadowPass{Map: f.shadow}).Record(f.ctx))
	assert.Empty(t, f.dev.Violations())
	assert.Len(t, f.ops(headless.OpDrawIndexed), 1)
}

func TestPassesWithEmptyLayers(t *testing.T) {
	f := newFixture(t)
	passes := []Pass{
		&ShadowPass{Map: f.shadow},
		&NormalDepthPass{Ssao: f.ssao},
		&SsaoPass{Ssao: f.ssao, BlurCount: 3},
		&MainPass{},
	}
	for _, p := range passes {
		require.NoError(t, p.Record(f.ctx), p.Name())
	}
	assert.Empty(t, f.dev.Violations())
	assert.Empty(t, f.ops(headless.OpDrawIndexed))

	// Every target was transitioned and cleared even with nothing to draw.
	touched := map[string]int{}
	for _, c := range f.ops(headless.OpBarrier) {
		touched[c.Resource]++
	}
	assert.Equal(t, 2, touched["shadow_map"])
	assert.Equal(t, 2, touched["ssao_normal_map"])
	assert.Equal(t, 2, touched["depth_stencil"])
	assert.Equal(t, 2, touched[f.ctx.Targets.BackBuffer.Desc().Name])
	assert.Len(t, f.ops(headless.OpClearDepthStencil), 3)

	// Everything ends in the state it started in.
	assert.Equal(t, gpu.StateGenericRead, f.shadow.Texture().(*headless.Texture).State())
	assert.Equal(t, gpu.StateGenericRead, f.ssao.NormalMap().(*headless.Texture).State())
	assert.Equal(t, gpu.StateGenericRead, f.ssao.AmbientMap(0).(*headless.Texture).State())
	assert.Equal(t, gpu.StateDepthWrite, f.depth.(*headless.Texture).State())
}

func TestShadowPassDrawsCasters(t *testing.T) {
	f := newFixture(t)
	f.addItems(t, metadata.LayerOpaque, metadata.LayerReflected, metadata.LayerAlphaTested,
		metadata.LayerTransparent, metadata.LayerSky, metadata.LayerMirrors)

	require.NoError(t, (&ShadowPass{Map: f.shadow}).Record(f.ctx))
	assert.Empty(t, f.dev.Violations())
	assert.Len(t, f.ops(headless.OpDrawIndexed), 3)

	vps := f.ops(headless.OpViewport)
	require.Len(t, vps, 1)
	assert.Equal(t, float32(32), vps[0].Viewport.Width)

	rts := f.ops(headless.OpSetRenderTargets)
	require.Len(t, rts, 1)
	assert.Empty(t, rts[0].Targets)
	assert.Equal(t, "shadow_map", rts[0].Resource)
}

func TestSsaoPassBlurIterations(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, (&SsaoPass{Ssao: f.ssao, BlurCount: 3}).Record(f.ctx))
	assert.Empty(t, f.dev.Violations())

	draws := f.ops(headless.OpDraw)
	require.Len(t, draws, 7)
	for _, d := range draws {
		assert.Equal(t, uint32(6), d.Count)
	}

	var flags []uint64
	for _, c := range f.ops(headless.OpSetRootConstant) {
		flags = append(flags, c.Value)
	}
	assert.Equal(t, []uint64{0, 1, 0, 1, 0, 1, 0}, flags)

	// Horizontal writes map 1, vertical writes map 0.
	var targets []string
	for _, c := range f.ops(headless.OpSetRenderTargets) {
		targets = append(targets, c.Targets[0])
	}
	assert.Equal(t, []string{
		"ssao_ambient_map_0",
		"ssao_ambient_map_1", "ssao_ambient_map_0",
		"ssao_ambient_map_1", "ssao_ambient_map_0",
		"ssao_ambient_map_1", "ssao_ambient_map_0",
	}, targets)

	vps := f.ops(headless.OpViewport)
	require.Len(t, vps, 1)
	assert.Equal(t, float32(32), vps[0].Viewport.Width)
	assert.Equal(t, float32(24), vps[0].Viewport.Height)
}

func TestSsaoOnResize(t *testing.T) {
	f := newFixture(t)
	heap := f.ctx.Heap.(*headless.DescriptorHeap)
	oldNormal := f.ssao.NormalMap()
	assert.Same(t, oldNormal, heap.Slot(f.ssao.Slot(SsaoNormal)).Texture)
	assert.Same(t, f.depth, heap.Slot(f.ssao.Slot(SsaoDepth)).Texture)

	require.NoError(t, f.ssao.OnResize(128, 96, f.depth))
	assert.True(t, oldNormal.(*headless.Texture).Released())
	assert.Same(t, f.ssao.NormalMap(), heap.Slot(f.ssao.Slot(SsaoNormal)).Texture)
	assert.Same(t, f.ssao.AmbientMap(1), heap.Slot(f.ssao.Slot(SsaoAmbient1)).Texture)
	assert.Equal(t, uint32(128), f.ssao.NormalMap().Desc().Width)
	assert.Equal(t, uint32(48), f.ssao.AmbientMap(0).Desc().Height)

	// Same size keeps the maps.
	normal := f.ssao.NormalMap()
	require.NoError(t, f.ssao.OnResize(128, 96, f.depth))
	assert.Same(t, normal, f.ssao.NormalMap())

	assert.Error(t, f.ssao.OnResize(0, 96, f.depth))
}

func TestSsaoConstants(t *testing.T) {
	f := newFixture(t)
	proj := math.NewMat4PerspectiveFovLH(0.25*math.K_PI, 64.0/48.0, 1, 1000)
	c, err := f.ssao.Constants(proj, config.Default().Ssao)
	require.NoError(t, err)

	assert.Equal(t, proj.Transpose(), c.Proj)
	assert.Equal(t, f.ssao.Offsets(), c.OffsetVectors)
	assert.InDelta(t, 1.0/32, c.InvRenderTargetSize.X, 1e-6)
	assert.InDelta(t, 1.0/24, c.InvRenderTargetSize.Y, 1e-6)
	assert.Equal(t, float32(0.5), c.OcclusionRadius)

	w, err := CalcGaussWeights(2.5)
	require.NoError(t, err)
	assert.Equal(t, w[0], c.BlurWeights[0].X)
	assert.Equal(t, w[4], c.BlurWeights[1].X)
	assert.Equal(t, w[10], c.BlurWeights[2].Z)
	assert.Zero(t, c.BlurWeights[2].W)

	_, err = f.ssao.Constants(proj, config.Ssao{BlurSigma: 4})
	assert.Error(t, err)
}
