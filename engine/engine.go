package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// headlessStep is the fixed frame time of headless runs.
const headlessStep = 1.0 / 60.0

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	cfg           *config.Config
	isRunning     bool
	isSuspended   bool
	platform      *platform.Platform
	device        gpu.Device
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	renderer      *renderer.Renderer
	watcher       *config.Watcher
	timer         *core.GameTimer
	width         uint32
	height        uint32

	// Set by the resize callback, applied at the top of the next frame.
	resizePending bool
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil || g.ApplicationConfig.Config == nil {
		return nil, errors.New("game has no application config")
	}
	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		cfg:          g.ApplicationConfig.Config,
		assetManager: am,
		timer:        core.NewGameTimer(),
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}, nil
}

func (e *Engine) headless() bool {
	return e.cfg.Renderer.Backend == config.BackendHeadless
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting
	appConfig := e.gameInstance.ApplicationConfig

	if !core.SetLogLevel(e.cfg.Log.Level) {
		core.LogWarn("unknown log level %q, keeping the default", e.cfg.Log.Level)
	}

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}
	// initialize events
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	var window *glfw.Window
	if !e.headless() {
		e.platform = platform.New()
		if err := e.platform.Startup(appConfig.Name, appConfig.StartPosX, appConfig.StartPosY, appConfig.StartWidth, appConfig.StartHeight); err != nil {
			return err
		}
		window = e.platform.Window
		// The framebuffer may differ from the window size on high-DPI displays.
		e.width, e.height = e.platform.FramebufferSize()
		e.cfg.Window.Width, e.cfg.Window.Height = e.width, e.height
	}

	device, err := newDevice(e.cfg, window)
	if err != nil {
		return err
	}
	e.device = device

	// initialize subsystems
	if err := e.assetManager.Initialize(e.cfg.Assets.Dir); err != nil {
		return err
	}
	sm, err := systems.NewSystemManager(systems.SystemManagerConfig{
		FrameResources:      e.cfg.Renderer.FrameResources,
		MaxTextureCount:     64,
		MaxMaterialCount:    32,
		AllowMissingShaders: e.headless(),
	}, device, e.assetManager)
	if err != nil {
		return err
	}
	e.systemManager = sm

	camera := sm.CameraSystem.GetDefault()
	p := e.cfg.Camera.Position
	camera.SetPosition(math.NewVec3(p[0], p[1], p[2]))
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(sm, camera); err != nil {
			return fmt.Errorf("building the scene: %w", err)
		}
	}

	r, err := renderer.NewRenderer(e.cfg, device, sm, camera)
	if err != nil {
		return err
	}
	e.renderer = r
	if fn := e.gameInstance.FnAnimateMaterials; fn != nil {
		r.SetMaterialAnimator(fn)
	}

	if appConfig.ConfigPath != "" {
		w, err := config.Watch(appConfig.ConfigPath)
		if err != nil {
			core.LogWarn("config %s will not be reloaded: %s", appConfig.ConfigPath, err)
		} else {
			e.watcher = w
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized with the %s backend", e.cfg.Renderer.Backend)
	return nil
}

/**
 * @brief Runs the frame loop until the window closes, a quit event fires,
 * ctx is cancelled or, for headless runs, the configured frame count is
 * reached. Frame failures other than a swapchain being recreated end the loop.
 */
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.isRunning = true
	e.timer.Reset()

	frames := 0
	for e.isRunning {
		if ctx.Err() != nil {
			break
		}
		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}
		if e.headless() && frames >= e.cfg.Renderer.HeadlessFrames {
			break
		}

		e.applyReloads()
		if err := e.applyResize(ctx); err != nil {
			return err
		}
		if e.isSuspended {
			// Minimized: nothing to draw into.
			e.platform.Sleep(10)
			continue
		}

		frameStart := time.Now()
		if e.headless() {
			e.timer.Advance(headlessStep)
		} else {
			e.timer.Tick()
		}

		if err := e.frame(ctx); err != nil {
			if errors.Is(err, core.ErrSwapchainBooting) {
				core.LogDebug("swapchain recreated, booting frame")
				e.resizePending = true
				continue
			}
			return err
		}
		frames++

		if core.MetricsUpdate(time.Since(frameStart).Seconds()) {
			fps, ms := core.MetricsFrame()
			if e.platform != nil {
				e.platform.SetTitle(fmt.Sprintf("%s    fps: %.0f   frame: %.3f ms", e.gameInstance.ApplicationConfig.Name, fps, ms))
			} else {
				core.LogDebug("fps: %.0f   frame: %.3f ms", fps, ms)
			}
		}

		// NOTE: Input update/state copying should always be handled
		// after any input should be recorded; I.E. before this line.
		// As a safety, input is the last thing to be updated before
		// this frame ends.
		core.InputUpdate()
	}
	core.LogInfo("frame loop stopped after %d frames", frames)
	return nil
}

func (e *Engine) frame(ctx context.Context) error {
	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(e.timer); err != nil {
			return fmt.Errorf("game update: %w", err)
		}
	}
	if err := e.renderer.Update(ctx, e.timer); err != nil {
		return err
	}
	return e.renderer.Draw(ctx)
}

// applyReloads takes the newest config written to disk, if any.
func (e *Engine) applyReloads() {
	if e.watcher == nil {
		return
	}
	select {
	case next := <-e.watcher.Reloads():
		e.cfg.ApplyLive(next)
		core.SetLogLevel(e.cfg.Log.Level)
		core.LogInfo("configuration reloaded")
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_CONFIG_RELOADED, Data: e.cfg})
	default:
	}
	for {
		select {
		case name := <-e.assetManager.Changes():
			core.LogDebug("asset %s changed on disk; restart to pick it up", name)
			continue
		default:
		}
		return
	}
}

func (e *Engine) applyResize(ctx context.Context) error {
	if !e.resizePending {
		return nil
	}
	e.resizePending = false
	if e.platform != nil {
		e.width, e.height = e.platform.FramebufferSize()
	}
	if e.width == 0 || e.height == 0 {
		core.LogInfo("window minimized, suspending application")
		e.isSuspended = true
		return nil
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming application")
		e.isSuspended = false
	}
	if err := e.renderer.OnResize(ctx, e.width, e.height); err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			e.resizePending = true
			return nil
		}
		return err
	}
	if e.gameInstance.FnOnResize != nil {
		return e.gameInstance.FnOnResize(e.width, e.height)
	}
	return nil
}

// Shutdown releases everything in reverse creation order. It is safe to
// call after a failed Initialize.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.renderer != nil {
		if err := e.renderer.Flush(context.Background()); err != nil {
			errs = append(errs, err)
		}
		e.renderer.Close()
	}
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.systemManager != nil {
		errs = append(errs, e.systemManager.Shutdown())
	}
	if e.device != nil {
		errs = append(errs, e.device.Close())
	}
	if e.watcher != nil {
		errs = append(errs, e.watcher.Close())
	}
	errs = append(errs, e.assetManager.Shutdown())
	if e.platform != nil {
		errs = append(errs, e.platform.Shutdown())
	}
	errs = append(errs, core.EventSystemShutdown(), core.InputShutdown())
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		// Block anything else from processing this.
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	// Check if different. If so, trigger a resize on the next frame.
	if se.WindowWidth != e.width || se.WindowHeight != e.height {
		e.width = se.WindowWidth
		e.height = se.WindowHeight
		e.resizePending = true
	}
	return false
}
