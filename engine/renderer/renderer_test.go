package renderer

import (
	"context"
	"testing"
	"time"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/geometry"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/views"
	"github.com/spaghettifunk/lumen/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testScene struct {
	dev   *headless.Device
	sm    *systems.SystemManager
	r     *Renderer
	grid  *metadata.RenderItem
	timer *core.GameTimer
}

// newTestScene builds a renderer over a scene holding one opaque grid at
// object slot 0, or nothing at all when empty is set.
func newTestScene(t *testing.T, autoComplete, empty bool) *testScene {
	t.Helper()
	cfg := config.Default()
	cfg.Renderer.Backend = config.BackendHeadless
	cfg.Renderer.ShadowMapSize = 64

	dev := headless.New(headless.Options{Width: 80, Height: 60, AutoComplete: autoComplete})
	sm, err := systems.NewSystemManager(systems.SystemManagerConfig{
		FrameResources:      cfg.Renderer.FrameResources,
		MaxTextureCount:     32,
		MaxMaterialCount:    8,
		AllowMissingShaders: true,
	}, dev, nil)
	require.NoError(t, err)

	s := &testScene{dev: dev, sm: sm, timer: core.NewGameTimer()}
	if !empty {
		_, err = sm.TextureSystem.LoadTextures([]string{"tile", "tile_nmap"})
		require.NoError(t, err)
		mat, err := sm.MaterialSystem.Register(metadata.MaterialConfig{
			Name:           "tile",
			DiffuseMapName: "tile",
			NormalMapName:  "tile_nmap",
			DiffuseAlbedo:  math.NewVec4(1, 1, 1, 1),
			FresnelR0:      math.NewVec3(0.02, 0.02, 0.02),
			Roughness:      0.2,
		})
		require.NoError(t, err)
		geo, err := geometry.Pack("shapes", geometry.Part{Name: "grid", Mesh: geometry.CreateGrid(20, 30, 6, 6)})
		require.NoError(t, err)
		gh, err := sm.GeometrySystem.Register(geo)
		require.NoError(t, err)
		sub, err := sm.GeometrySystem.Submesh(gh, "grid")
		require.NoError(t, err)

		s.grid = metadata.NewRenderItem("grid", cfg.Renderer.FrameResources)
		s.grid.Geometry = gh
		s.grid.Material = mat
		s.grid.SetSubmesh(sub)
		idx := sm.Catalog.Add(s.grid)
		require.Equal(t, 0, idx)
		require.NoError(t, sm.Catalog.AddToLayer(metadata.LayerOpaque, idx))
	}

	r, err := NewRenderer(cfg, dev, sm, sm.CameraSystem.GetDefault())
	require.NoError(t, err)
	s.r = r
	t.Cleanup(func() {
		dev.HeadlessQueue().Drain()
		r.Close()
		sm.Shutdown()
	})
	return s
}

func (s *testScene) frame(t *testing.T) {
	t.Helper()
	s.timer.Advance(1.0 / 60)
	require.NoError(t, s.r.Update(context.Background(), s.timer))
	require.NoError(t, s.r.Draw(context.Background()))
}

func TestScenarioFenceValuesAndBlocking(t *testing.T) {
	s := newTestScene(t, false, false)
	for i := 0; i < 3; i++ {
		s.frame(t)
	}
	assert.Equal(t, []uint64{1, 2, 3}, s.dev.HeadlessQueue().Signals())
	for i := 0; i < 3; i++ {
		assert.Equal(t, uint64(i+1), s.r.Ring().Slot(i).Fence)
	}
	assert.Zero(t, s.r.Ring().Stats().Waits)

	// The 4th frame reuses slot 0, which the GPU has not retired.
	done := make(chan error, 1)
	go func() {
		s.timer.Advance(1.0 / 60)
		done <- s.r.Update(context.Background(), s.timer)
	}()
	select {
	case <-done:
		t.Fatal("update did not wait for the GPU")
	case <-time.After(50 * time.Millisecond):
	}

	s.dev.HeadlessQueue().Retire(1)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("update still blocked after fence 1 completed")
	}
	assert.Equal(t, 1, s.r.Ring().Stats().Waits)
	assert.Equal(t, 0, s.r.Ring().Index())
}

func TestUpdateHonorsCancellation(t *testing.T) {
	s := newTestScene(t, false, false)
	for i := 0; i < 3; i++ {
		s.frame(t)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.r.Update(ctx, s.timer)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScenarioDirtyItemReachesEverySlot(t *testing.T) {
	s := newTestScene(t, true, false)
	for i := 0; i < 3; i++ {
		s.frame(t)
	}
	require.Zero(t, s.grid.NumFramesDirty)

	world := math.NewMat4Translation(math.NewVec3(1, 2, 3))
	s.grid.SetWorld(world)
	require.Equal(t, 3, s.grid.NumFramesDirty)

	s.frame(t)
	assert.Equal(t, 2, s.grid.NumFramesDirty)
	s.frame(t)
	assert.Equal(t, 1, s.grid.NumFramesDirty)
	s.frame(t)
	assert.Zero(t, s.grid.NumFramesDirty)

	for i := 0; i < s.r.Ring().Len(); i++ {
		got := s.r.Ring().Slot(i).ObjectCB.Element(0)
		assert.Equal(t, world.Transpose(), got.World, "slot %d", i)
	}
}

func TestScenarioDirtyMaterialReachesEverySlot(t *testing.T) {
	s := newTestScene(t, true, false)
	for i := 0; i < 3; i++ {
		s.frame(t)
	}
	m := s.sm.MaterialSystem.Get(s.grid.Material)
	require.Zero(t, m.NumFramesDirty)

	m.SetSurface(m.DiffuseAlbedo, m.FresnelR0, 0.9)
	require.Equal(t, 3, m.NumFramesDirty)
	for i := 0; i < 3; i++ {
		s.frame(t)
	}
	assert.Zero(t, m.NumFramesDirty)

	for i := 0; i < s.r.Ring().Len(); i++ {
		got := s.r.Ring().Slot(i).MaterialBuffer.Element(m.MatCBIndex)
		assert.Equal(t, float32(0.9), got.Roughness, "slot %d", i)
	}
}

func TestMaterialAnimatorRunsBeforeUpload(t *testing.T) {
	s := newTestScene(t, true, false)
	for i := 0; i < 3; i++ {
		s.frame(t)
	}
	scroll := math.NewMat4Translation(math.NewVec3(0.5, 0, 0))
	calls := 0
	s.r.SetMaterialAnimator(func(timer *core.GameTimer, materials []*metadata.Material) {
		calls++
		if calls == 1 {
			materials[0].SetMatTransform(scroll)
		}
	})

	s.frame(t)
	idx := s.r.Ring().Index()
	got := s.r.Ring().Slot(idx).MaterialBuffer.Element(0)
	assert.Equal(t, scroll.Transpose(), got.MatTransform)

	s.frame(t)
	s.frame(t)
	assert.Equal(t, 3, calls)
	for i := 0; i < s.r.Ring().Len(); i++ {
		assert.Equal(t, scroll.Transpose(), s.r.Ring().Slot(i).MaterialBuffer.Element(0).MatTransform, "slot %d", i)
	}
}

func TestIdleFramesWriteNothing(t *testing.T) {
	s := newTestScene(t, true, false)
	for i := 0; i < 3; i++ {
		s.frame(t)
	}
	before := make([]int, s.r.Ring().Len())
	for i := range before {
		before[i] = s.r.Ring().Slot(i).Writes()
		// One object and one material per slot.
		assert.Equal(t, 2, before[i])
	}
	for i := 0; i < 6; i++ {
		s.frame(t)
	}
	for i := range before {
		assert.Equal(t, before[i], s.r.Ring().Slot(i).Writes())
	}
}

// firstBarriers lists resources in the order they are first transitioned.
func firstBarriers(cmds []headless.Command) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range cmds {
		if c.Op == headless.OpBarrier && !seen[c.Resource] {
			seen[c.Resource] = true
			out = append(out, c.Resource)
		}
	}
	return out
}

func TestDrawPassOrder(t *testing.T) {
	s := newTestScene(t, true, false)
	s.frame(t)
	assert.Empty(t, s.dev.Violations())

	submitted := s.dev.HeadlessQueue().Submitted()
	require.Len(t, submitted, 1)
	cmds := submitted[0]

	assert.Equal(t, []string{
		"shadow_map", "ssao_normal_map", "depth_stencil",
		"ssao_ambient_map_0", "ssao_ambient_map_1", "back_buffer_0",
	}, firstBarriers(cmds))

	var psos []string
	for _, c := range cmds {
		if c.Op == headless.OpSetPipelineState && (len(psos) == 0 || psos[len(psos)-1] != c.Resource) {
			psos = append(psos, c.Resource)
		}
	}
	assert.Equal(t, []string{
		views.PipelineShadow, views.PipelineNormals, views.PipelineSsao, views.PipelineSsaoBlur,
		views.PipelineOpaque, views.PipelineSky, views.PipelineDebug, views.PipelineMarkMirrors,
		views.PipelineStencilReflection, views.PipelineTransparent, views.PipelineAlphaTested,
	}, psos)

	// The grid is drawn by the shadow, normal and main passes.
	draws := 0
	for _, c := range cmds {
		if c.Op == headless.OpDrawIndexed {
			draws++
		}
	}
	assert.Equal(t, 3, draws)
	assert.Equal(t, 1, s.dev.HeadlessSwapchain().Presents())
}

func TestBarriersBalanceAcrossFrames(t *testing.T) {
	s := newTestScene(t, true, false)
	for i := 0; i < 5; i++ {
		s.frame(t)
	}
	assert.Empty(t, s.dev.Violations())
	for _, cmds := range s.dev.HeadlessQueue().Submitted() {
		open := map[string]int{}
		for _, c := range cmds {
			if c.Op != headless.OpBarrier {
				continue
			}
			open[c.Resource]++
		}
		for name, n := range open {
			assert.Zero(t, n%2, "%s transitioned %d times", name, n)
		}
	}
	assert.Equal(t, gpu.StateGenericRead, s.r.ShadowMap().Texture().(*headless.Texture).State())
	assert.Equal(t, 5, s.dev.HeadlessSwapchain().Presents())
}

func TestEmptySceneStillRecordsPasses(t *testing.T) {
	s := newTestScene(t, true, true)
	s.frame(t)
	assert.Empty(t, s.dev.Violations())

	cmds := s.dev.HeadlessQueue().Submitted()[0]
	assert.Equal(t, []string{
		"shadow_map", "ssao_normal_map", "depth_stencil",
		"ssao_ambient_map_0", "ssao_ambient_map_1", "back_buffer_0",
	}, firstBarriers(cmds))
	clears := 0
	for _, c := range cmds {
		switch c.Op {
		case headless.OpDrawIndexed:
			t.Fatalf("unexpected draw of %d indices", c.Count)
		case headless.OpClearDepthStencil, headless.OpClearRenderTarget:
			clears++
		}
	}
	// 3 depth clears, the normal map, 7 ambient map clears and the back buffer.
	assert.Equal(t, 12, clears)
}

func TestHeapLayout(t *testing.T) {
	s := newTestScene(t, true, false)
	l := s.r.Layout()
	assert.Equal(t, l.Sky+1, l.ShadowMap)
	assert.Equal(t, l.ShadowMap+1, l.Ssao)
	assert.Equal(t, l.Ssao+views.SsaoSlotCount, l.Null)

	heap := s.sm.TextureSystem.Heap().(*headless.DescriptorHeap)
	sky := heap.Slot(int(l.Sky))
	assert.True(t, sky.Null)
	assert.True(t, sky.Cube)
	assert.Same(t, s.r.ShadowMap().Texture(), heap.Slot(int(l.ShadowMap)).Texture)
	assert.True(t, heap.Slot(int(l.Null)).Cube)
	assert.False(t, heap.Slot(int(l.Null)+1).Cube)
	assert.Equal(t, 2+1+1+views.SsaoSlotCount+views.NullSlotCount, s.sm.TextureSystem.Count())
}

func TestOnResize(t *testing.T) {
	s := newTestScene(t, true, false)
	s.frame(t)

	require.NoError(t, s.r.OnResize(context.Background(), 160, 120))
	assert.Equal(t, uint32(160), s.r.Ssao().NormalMap().Desc().Width)
	assert.InDelta(t, 160.0/120.0, s.sm.CameraSystem.GetDefault().Aspect(), 1e-6)
	heap := s.sm.TextureSystem.Heap().(*headless.DescriptorHeap)
	assert.Equal(t, uint32(160), heap.Slot(s.r.Ssao().Slot(views.SsaoDepth)).Texture.Desc().Width)

	s.frame(t)
	assert.Empty(t, s.dev.Violations())

	assert.ErrorIs(t, s.r.OnResize(context.Background(), 0, 120), core.ErrSwapchainBooting)
}

func TestPassConstantSlots(t *testing.T) {
	s := newTestScene(t, true, false)
	s.frame(t)
	fr := s.r.Ring().Current()

	main := fr.PassCB.Element(metadata.PassSlot(metadata.PassMain))
	reflected := fr.PassCB.Element(metadata.PassSlot(metadata.PassReflected))
	shadow := fr.PassCB.Element(metadata.PassSlot(metadata.PassShadow))

	assert.Equal(t, float32(NearZ), main.NearZ)
	assert.Equal(t, AmbientLight, main.AmbientLight)
	for i := 0; i < DirectionalLights; i++ {
		d := main.Lights[i].Direction
		assert.True(t, math.NewVec3(d.X, d.Y, -d.Z).Compare(reflected.Lights[i].Direction, 1e-5))
		assert.Equal(t, LightStrengths[i], main.Lights[i].Strength)
	}
	assert.Equal(t, main.View, reflected.View)

	st := s.r.ShadowTransform()
	assert.Equal(t, st.LightPosW, shadow.EyePosW)
	assert.Equal(t, float32(64), shadow.RenderTargetSize.X)
	assert.Equal(t, st.S.Transpose(), main.ShadowTransform)
}

func TestShadowTransformCentersScene(t *testing.T) {
	dir := BaseLightDirections[0]
	st := NewShadowTransform(dir, SceneBounds)
	r := SceneBounds.Radius

	assert.True(t, st.LightPosW.Compare(dir.MulScalar(-2*r), 1e-4))
	assert.InDelta(t, r, st.NearZ, 1e-3)
	assert.InDelta(t, 3*r, st.FarZ, 1e-3)

	c := SceneBounds.Center.TransformCoord(st.S)
	assert.InDelta(t, 0.5, c.X, 1e-5)
	assert.InDelta(t, 0.5, c.Y, 1e-5)
	assert.InDelta(t, 0.5, c.Z, 1e-5)
}

func TestLightingAnimate(t *testing.T) {
	l := NewLighting()
	l.Animate(0)
	for i := range l.Directions {
		assert.True(t, l.Directions[i].Compare(BaseLightDirections[i], 1e-6))
	}

	l.Animate(10)
	assert.InDelta(t, 1.0, l.Rotation, 1e-6)
	for i := range l.Directions {
		assert.InDelta(t, BaseLightDirections[i].Length(), l.Directions[i].Length(), 1e-5)
		assert.InDelta(t, BaseLightDirections[i].Y, l.Directions[i].Y, 1e-6)
	}
	assert.False(t, l.Directions[0].Compare(BaseLightDirections[0], 1e-3))
}
