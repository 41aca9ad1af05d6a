package systems

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/geometry"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*headless.Device, *SystemManager) {
	t.Helper()
	dev := headless.New(headless.Options{Width: 64, Height: 64, AutoComplete: true})
	sm, err := NewSystemManager(SystemManagerConfig{
		FrameResources:      3,
		MaxTextureCount:     8,
		MaxMaterialCount:    4,
		AllowMissingShaders: true,
	}, dev, nil)
	require.NoError(t, err)
	t.Cleanup(func() { sm.Shutdown() })
	return dev, sm
}

func TestJobSystemRunAllKeepsOrder(t *testing.T) {
	js, err := NewJobSystem(4, 2)
	require.NoError(t, err)
	defer js.Shutdown()

	out, err := RunAll(js, []int{1, 2, 3, 4, 5, 6}, func(i int) (int, error) { return i * i, nil })
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16, 25, 36}, out)

	boom := errors.New("boom")
	_, err = RunAll(js, []int{1, 2}, func(i int) (int, error) {
		if i == 2 {
			return 0, boom
		}
		return i, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestJobSystemCallbacks(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)

	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	var completed, failed atomic.Int32
	done := make(chan struct{})
	js.Submit(JobTask{
		InputParams: 3,
		OnStart: func(p interface{}, res chan<- interface{}) error {
			res <- p.(int) + 1
			return nil
		},
		OnComplete: func(res <-chan interface{}) {
			if v := <-res; v == 4 {
				completed.Add(1)
			}
		},
		OnFailure:            func(<-chan interface{}) { failed.Add(1) },
		OnCompletionCallback: func() { close(done) },
	})
	<-done
	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())
	assert.Equal(t, int32(1), completed.Load())
	assert.Zero(t, failed.Load())
}

func TestTextureSystemHeapLayout(t *testing.T) {
	dev, sm := newTestManager(t)
	ts := sm.TextureSystem

	handles, err := ts.LoadTextures([]string{"bricks", "bricks_nmap", "WireFence"})
	require.NoError(t, err)
	assert.Equal(t, []metadata.TextureHandle{0, 1, 2}, handles)

	sky, err := ts.LoadCube("sky")
	require.NoError(t, err)
	assert.Equal(t, metadata.TextureHandle(3), sky)
	assert.True(t, ts.Texture(sky).Desc().Cube)
	assert.Equal(t, uint32(6), ts.Texture(sky).Desc().ArraySize)

	shadow, err := ts.Reserve("shadow_map", 1)
	require.NoError(t, err)
	nulls, err := ts.Reserve("null", 3)
	require.NoError(t, err)
	assert.Equal(t, metadata.TextureHandle(4), shadow)
	assert.Equal(t, metadata.TextureHandle(5), nulls)
	assert.Equal(t, 8, ts.Count())

	_, err = ts.Reserve("overflow", 1)
	assert.Error(t, err)
	_, err = ts.Register("bricks", ts.Texture(0))
	assert.Error(t, err)

	require.NoError(t, ts.SetNull(nulls, true))
	heap := ts.Heap().(*headless.DescriptorHeap)
	assert.True(t, heap.Slot(int(nulls)).Null)
	assert.True(t, heap.Slot(int(nulls)).Cube)

	rt, err := dev.CreateTexture(gpu.TextureDesc{Name: "shadow", Width: 16, Height: 16, Format: gpu.FormatD24UnormS8Uint}, nil)
	require.NoError(t, err)
	require.NoError(t, ts.Set(shadow, rt))
	assert.Equal(t, rt, heap.Slot(int(shadow)).Texture)
	assert.Error(t, ts.Set(0, rt), "registered slots cannot be overwritten")

	idx, ok := ts.Index("bricks_nmap")
	assert.True(t, ok)
	assert.Equal(t, metadata.TextureHandle(1), idx)
}

func TestPlaceholderTextures(t *testing.T) {
	n := PlaceholderTexture("tile_nmap")
	assert.Equal(t, []byte{128, 128, 255, 255}, n.Mips[0])

	w := PlaceholderTexture("white1x1")
	assert.Equal(t, uint32(1), w.Width)

	fence := PlaceholderTexture("WireFence")
	hasClear := false
	for i := 3; i < len(fence.Mips[0]); i += 4 {
		if fence.Mips[0][i] == 0 {
			hasClear = true
			break
		}
	}
	assert.True(t, hasClear)
	assert.Equal(t, PlaceholderTexture("stone").Mips[0], PlaceholderTexture("stone").Mips[0])
}

func TestMaterialSystemResolvesTextures(t *testing.T) {
	_, sm := newTestManager(t)
	_, err := sm.TextureSystem.LoadTextures([]string{"bricks", "bricks_nmap"})
	require.NoError(t, err)

	h, err := sm.MaterialSystem.Register(metadata.MaterialConfig{
		Name:           "bricks",
		DiffuseMapName: "bricks",
		NormalMapName:  "bricks_nmap",
		DiffuseAlbedo:  math.NewVec4(1, 1, 1, 1),
		FresnelR0:      math.NewVec3(0.1, 0.12, 0.12),
		Roughness:      0.1,
	})
	require.NoError(t, err)
	m := sm.MaterialSystem.Get(h)
	assert.Equal(t, 0, m.MatCBIndex)
	assert.Equal(t, 0, m.DiffuseSrvHeapIndex)
	assert.Equal(t, 1, m.NormalSrvHeapIndex)
	assert.Equal(t, 3, m.NumFramesDirty)

	_, err = sm.MaterialSystem.Register(metadata.MaterialConfig{Name: "bricks", DiffuseMapName: "bricks", NormalMapName: "bricks_nmap"})
	assert.Error(t, err)
	_, err = sm.MaterialSystem.Register(metadata.MaterialConfig{Name: "stone", DiffuseMapName: "stone", NormalMapName: "bricks_nmap"})
	assert.Error(t, err)

	got, ok := sm.MaterialSystem.Handle("bricks")
	assert.True(t, ok)
	assert.Equal(t, h, got)
	assert.Len(t, sm.MaterialSystem.All(), 1)
	assert.Nil(t, sm.MaterialSystem.Get(metadata.InvalidHandle))
}

func TestGeometrySystemUploads(t *testing.T) {
	_, sm := newTestManager(t)
	geo, err := geometry.Pack("shapes",
		geometry.Part{Name: "box", Mesh: geometry.CreateBox(1, 1, 1, 0)},
		geometry.Part{Name: "grid", Mesh: geometry.CreateGrid(4, 4, 3, 3)},
	)
	require.NoError(t, err)

	h, err := sm.GeometrySystem.Register(geo)
	require.NoError(t, err)
	vb := geo.VertexBuffer.(*headless.Buffer)
	assert.Len(t, vb.Bytes(), len(geo.Vertices)*metadata.VertexByteStride)
	assert.Len(t, geo.IndexBuffer.(*headless.Buffer).Bytes(), len(geo.Indices)*2)

	grid, err := sm.GeometrySystem.Submesh(h, "grid")
	require.NoError(t, err)
	assert.Equal(t, geo.DrawArgs["grid"], grid)
	_, err = sm.GeometrySystem.Submesh(h, "cone")
	assert.Error(t, err)

	_, err = sm.GeometrySystem.Register(geo)
	assert.Error(t, err)

	require.NoError(t, sm.GeometrySystem.Shutdown())
	assert.True(t, vb.Released())
}

func TestShaderSystemMissingFiles(t *testing.T) {
	strict, err := NewShaderSystem(&ShaderSystemConfig{}, nil)
	require.NoError(t, err)
	_, err = strict.Load("standard.vert")
	assert.ErrorIs(t, err, core.ErrShaderCompile)
	var devErr *core.DeviceError
	assert.True(t, errors.As(err, &devErr))

	lenient, err := NewShaderSystem(&ShaderSystemConfig{AllowMissing: true}, nil)
	require.NoError(t, err)
	vs, ps, err := lenient.Program("standard", "standard")
	require.NoError(t, err)
	assert.NotEmpty(t, vs)
	assert.NotEmpty(t, ps)
	blob, err := lenient.Load("standard.frag")
	require.NoError(t, err)
	assert.Equal(t, "frag", blob.Stage)
	assert.Equal(t, uint32(0x07230203), blob.Words[0])
}

func TestPipelineSystem(t *testing.T) {
	_, sm := newTestManager(t)
	ps := sm.PipelineSystem
	rs, err := ps.BuildRootSignature(gpu.RootSignatureDesc{
		Name:   "main",
		Params: []gpu.RootParam{{Kind: gpu.RootParamConstantBuffer}},
	})
	require.NoError(t, err)
	vs, fs, err := sm.ShaderSystem.Program("standard", "standard")
	require.NoError(t, err)

	desc := gpu.PipelineStateDesc{
		Name:          "opaque",
		RootSignature: rs,
		VS:            vs,
		PS:            fs,
		Rasterizer:    gpu.DefaultRasterizer(),
		Blend:         gpu.DefaultBlend(),
		DepthStencil:  gpu.DefaultDepthStencil(),
		RTFormats:     []gpu.Format{gpu.FormatRGBA8Unorm},
		DSFormat:      gpu.FormatD24UnormS8Uint,
		SampleCount:   1,
	}
	h, err := ps.Build(desc)
	require.NoError(t, err)
	assert.Equal(t, "opaque", ps.Get(h).Desc().Name)
	assert.Equal(t, h, ps.MustHandle("opaque"))

	_, err = ps.Build(desc)
	assert.Error(t, err)
	assert.Panics(t, func() { ps.MustHandle("sky") })
	assert.Same(t, rs, ps.RootSignature("main"))
}

func TestCatalogAssignsIndicesAndLayers(t *testing.T) {
	c := NewRenderItemCatalog()
	grid := metadata.NewRenderItem("grid", 3)
	cyl := metadata.NewRenderItem("cylinder", 3)
	cyl.SetWorld(math.NewMat4Translation(math.NewVec3(-5, 1.5, -10)))

	assert.Equal(t, 0, c.Add(grid))
	assert.Equal(t, 1, c.Add(cyl))
	require.NoError(t, c.AddToLayer(metadata.LayerOpaque, 0))
	require.NoError(t, c.AddToLayer(metadata.LayerOpaque, 1))

	idx, err := c.AddReflection(1, math.NewMat4Reflect(metadata.MirrorPlane))
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	refl := c.Get(idx)
	assert.Equal(t, 2, refl.ObjCBIndex)
	assert.Equal(t, []*metadata.RenderItem{refl}, c.Layer(metadata.LayerReflected))
	assert.Equal(t, float32(10), refl.World.Data[14])

	got, ok := c.ByID(cyl.ID)
	assert.True(t, ok)
	assert.Same(t, cyl, got)

	assert.Error(t, c.AddToLayer(metadata.LayerCount, 0))
	assert.Error(t, c.AddToLayer(metadata.LayerSky, 9))
	assert.Nil(t, c.Layer(metadata.LayerCount))
	assert.Equal(t, 3, c.Count())
	assert.Len(t, c.Layer(metadata.LayerOpaque), 2)
}

func TestCameraSystem(t *testing.T) {
	cs, err := NewCameraSystem(&CameraSystemConfig{MaxCameraCount: 1})
	require.NoError(t, err)
	def, err := cs.Acquire("default")
	require.NoError(t, err)
	assert.Same(t, cs.GetDefault(), def)

	a, err := cs.Acquire("shadow")
	require.NoError(t, err)
	again, err := cs.Acquire("shadow")
	require.NoError(t, err)
	assert.Same(t, a, again)
	_, err = cs.Acquire("other")
	assert.Error(t, err)
	cs.Release("shadow")
	_, err = cs.Acquire("other")
	assert.NoError(t, err)
}
