package engine

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/lumen/engine/config"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
)

// newDevice creates the backend named by cfg.Renderer.Backend. window is
// only used by the vulkan backend.
func newDevice(cfg *config.Config, window *glfw.Window) (gpu.Device, error) {
	switch cfg.Renderer.Backend {
	case config.BackendVulkan:
		dev, err := vulkan.New(vulkan.Options{
			AppName:    cfg.Window.Name,
			Window:     window,
			Width:      cfg.Window.Width,
			Height:     cfg.Window.Height,
			VSync:      cfg.Renderer.VSync,
			Validation: cfg.Log.Level == "debug",
		})
		if err != nil {
			return nil, err
		}
		return dev, nil
	case config.BackendHeadless:
		// Nothing executes the recorded work, so every signal completes at once.
		return headless.New(headless.Options{
			Width:        cfg.Window.Width,
			Height:       cfg.Window.Height,
			AutoComplete: true,
		}), nil
	}
	return nil, fmt.Errorf("unknown renderer backend %q", cfg.Renderer.Backend)
}
