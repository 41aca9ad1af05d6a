package engine

import (
	"context"
	"testing"

	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGame struct {
	initialized bool
	updates     int
	shutdown    bool
	onUpdate    func(n int)
}

func newHeadlessEngine(t *testing.T, frames int, cg *countingGame) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Renderer.Backend = config.BackendHeadless
	cfg.Renderer.HeadlessFrames = frames
	cfg.Renderer.ShadowMapSize = 64
	cfg.Window.Width, cfg.Window.Height = 64, 48
	cfg.Assets.Dir = t.TempDir()

	g := &Game{
		ApplicationConfig: NewApplicationConfig(cfg, ""),
		FnInitialize: func(sm *systems.SystemManager, camera *components.Camera) error {
			cg.initialized = true
			return nil
		},
		FnUpdate: func(timer *core.GameTimer) error {
			cg.updates++
			if cg.onUpdate != nil {
				cg.onUpdate(cg.updates)
			}
			return nil
		},
		FnShutdown: func() error {
			cg.shutdown = true
			return nil
		},
	}
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	return e
}

func TestNewRejectsMissingConfig(t *testing.T) {
	_, err := New(&Game{})
	assert.Error(t, err)
}

func TestHeadlessRunStopsAfterConfiguredFrames(t *testing.T) {
	cg := &countingGame{}
	e := newHeadlessEngine(t, 5, cg)
	assert.True(t, cg.initialized)
	assert.Equal(t, EngineStageInitialized, e.Stage())

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 5, cg.updates)
	assert.Equal(t, 5, e.renderer.Ring().Stats().Advances)

	require.NoError(t, e.Shutdown())
	assert.True(t, cg.shutdown)
	assert.Equal(t, EngineStageUninitialized, e.Stage())
}

func TestQuitEventEndsTheLoop(t *testing.T) {
	cg := &countingGame{}
	cg.onUpdate = func(n int) {
		if n == 2 {
			core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		}
	}
	e := newHeadlessEngine(t, 100, cg)
	t.Cleanup(func() { e.Shutdown() })

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 2, cg.updates)
}

func TestEscapeKeyQuits(t *testing.T) {
	cg := &countingGame{}
	cg.onUpdate = func(n int) {
		if n == 3 {
			core.InputProcessKey(core.KEY_ESCAPE, true)
		}
	}
	e := newHeadlessEngine(t, 100, cg)
	t.Cleanup(func() {
		core.InputProcessKey(core.KEY_ESCAPE, false)
		e.Shutdown()
	})

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, cg.updates)
}

func TestCancelledContextStopsRun(t *testing.T) {
	cg := &countingGame{}
	ctx, cancel := context.WithCancel(context.Background())
	cg.onUpdate = func(n int) {
		if n == 1 {
			cancel()
		}
	}
	e := newHeadlessEngine(t, 100, cg)
	t.Cleanup(func() { e.Shutdown() })

	require.NoError(t, e.Run(ctx))
	assert.Equal(t, 1, cg.updates)
}

func TestResizeEventResizesTheRenderer(t *testing.T) {
	cg := &countingGame{}
	cg.onUpdate = func(n int) {
		if n == 1 {
			core.EventFire(core.EventContext{
				Type: core.EVENT_CODE_RESIZED,
				Data: &core.SystemEvent{WindowWidth: 32, WindowHeight: 24},
			})
		}
	}
	e := newHeadlessEngine(t, 3, cg)
	t.Cleanup(func() { e.Shutdown() })

	require.NoError(t, e.Run(context.Background()))
	w, h := e.GetFramebufferSize()
	assert.Equal(t, uint32(32), w)
	assert.Equal(t, uint32(24), h)
	assert.Equal(t, 3, cg.updates)
}
