package engine

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown

	// FnAnimateMaterials is optional; the renderer calls it every frame.
	FnAnimateMaterials AnimateMaterials
}

// Initialize registers the scene with the systems. It runs before the
// renderer is created, which sizes its frame resources from the scene.
type Initialize func(sm *systems.SystemManager, camera *components.Camera) error

// Update advances the game by one frame, before the renderer uploads it.
type Update func(timer *core.GameTimer) error

// AnimateMaterials changes materials through their setters, so the changes
// reach every frame resource.
type AnimateMaterials func(timer *core.GameTimer, materials []*metadata.Material)

type OnResize func(width uint32, height uint32) error
type Shutdown func() error
