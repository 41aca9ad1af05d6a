package testbed

import (
	"context"
	"testing"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScene(t *testing.T) (*config.Config, *headless.Device, *systems.SystemManager, *gameState) {
	t.Helper()
	cfg := config.Default()
	cfg.Renderer.Backend = config.BackendHeadless
	cfg.Renderer.ShadowMapSize = 64

	dev := headless.New(headless.Options{Width: 64, Height: 48, AutoComplete: true})
	sm, err := systems.NewSystemManager(systems.SystemManagerConfig{
		FrameResources:      cfg.Renderer.FrameResources,
		MaxTextureCount:     64,
		MaxMaterialCount:    32,
		AllowMissingShaders: true,
	}, dev, nil)
	require.NoError(t, err)
	t.Cleanup(func() { sm.Shutdown() })

	g := NewTestGame(cfg, "")
	state := g.State.(*gameState)
	require.NoError(t, g.FnInitialize(sm, sm.CameraSystem.GetDefault()))
	return cfg, dev, sm, state
}

func TestSceneTexturesPrecedeSkyCube(t *testing.T) {
	_, _, sm, _ := newScene(t)
	for i, name := range SceneTextures {
		h, ok := sm.TextureSystem.Index(name)
		require.True(t, ok, name)
		assert.Equal(t, metadata.TextureHandle(i), h, name)
	}
	sky, ok := sm.TextureSystem.Index(SkyTexture)
	require.True(t, ok)
	assert.Equal(t, metadata.TextureHandle(len(SceneTextures)), sky)
}

func TestSceneLayers(t *testing.T) {
	_, _, sm, _ := newScene(t)
	c := sm.Catalog

	require.Len(t, c.Layer(metadata.LayerSky), 1)
	assert.Equal(t, "sky", c.Layer(metadata.LayerSky)[0].Name)
	require.Len(t, c.Layer(metadata.LayerMirrors), 1)
	require.Len(t, c.Layer(metadata.LayerTransparent), 1)
	assert.Same(t, c.Layer(metadata.LayerMirrors)[0], c.Layer(metadata.LayerTransparent)[0])
	assert.Len(t, c.Layer(metadata.LayerAlphaTested), 1)
	assert.Len(t, c.Layer(metadata.LayerDebug), 2)
	// floor, wall, and a column plus a ball per side and row
	assert.Len(t, c.Layer(metadata.LayerOpaque), 2+4*columnRows)

	// floor, crate, columns and balls
	assert.Len(t, c.Layer(metadata.LayerReflected), 2+4*columnRows)
}

func TestSceneObjectIndicesAreCatalogPositions(t *testing.T) {
	_, _, sm, _ := newScene(t)
	for i, ri := range sm.Catalog.All() {
		assert.Equal(t, i, ri.ObjCBIndex, ri.Name)
		assert.Equal(t, ri.FrameCount(), ri.NumFramesDirty, ri.Name)
	}
}

func TestReflectionsMirrorAcrossTheWall(t *testing.T) {
	_, _, sm, _ := newScene(t)
	for _, r := range sm.Catalog.Layer(metadata.LayerReflected) {
		center := math.NewVec3(0, 0, 0).TransformCoord(r.World)
		assert.Greater(t, center.Z, float32(0), "%s should sit behind the mirror", r.Name)
	}
	for _, ri := range sm.Catalog.Layer(metadata.LayerOpaque) {
		if ri.Name == "wall" {
			continue
		}
		center := math.NewVec3(0, 0, 0).TransformCoord(ri.World)
		assert.Less(t, center.Z, float32(0), "%s should sit in front of the mirror", ri.Name)
	}
}

func TestSceneRendersHeadless(t *testing.T) {
	cfg, dev, sm, _ := newScene(t)
	r, err := renderer.NewRenderer(cfg, dev, sm, sm.CameraSystem.GetDefault())
	require.NoError(t, err)
	t.Cleanup(r.Close)

	timer := core.NewGameTimer()
	for i := 0; i < 4; i++ {
		timer.Advance(1.0 / 60)
		require.NoError(t, r.Update(context.Background(), timer))
		require.NoError(t, r.Draw(context.Background()))
	}
	assert.Equal(t, []uint64{1, 2, 3, 4}, dev.HeadlessQueue().Signals())

	layout := r.Layout()
	assert.Equal(t, metadata.TextureHandle(len(SceneTextures)), layout.Sky)
	assert.Equal(t, layout.Sky+1, layout.ShadowMap)
	assert.Equal(t, layout.ShadowMap+1, layout.Ssao)
}

func TestCameraMovesWithInput(t *testing.T) {
	require.NoError(t, core.InputInitialize())
	t.Cleanup(func() { core.InputShutdown() })

	_, _, sm, state := newScene(t)
	cam := sm.CameraSystem.GetDefault()
	before := cam.Position()

	core.InputProcessKey(core.KEY_W, true)
	timer := core.NewGameTimer()
	timer.Advance(0.5)
	require.NoError(t, state.update(timer))
	core.InputProcessKey(core.KEY_W, false)

	moved := cam.Position().Sub(before)
	assert.InDelta(t, state.cfg.Camera.MoveSpeed*0.5, moved.Length(), 1e-3)
	assert.Greater(t, moved.Dot(cam.Look()), float32(0))
}
