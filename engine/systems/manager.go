package systems

import (
	"runtime"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type SystemManagerConfig struct {
	// FrameResources is the initial dirty count of new materials.
	FrameResources   int
	MaxTextureCount  int
	MaxMaterialCount int
	// AllowMissingShaders substitutes empty modules for missing SPIR-V files.
	AllowMissingShaders bool
}

type SystemManager struct {
	CameraSystem   *CameraSystem
	GeometrySystem *GeometrySystem
	JobSystem      *JobSystem
	MaterialSystem *MaterialSystem
	PipelineSystem *PipelineSystem
	ShaderSystem   *ShaderSystem
	TextureSystem  *TextureSystem
	Catalog        *RenderItemCatalog
}

func NewSystemManager(config SystemManagerConfig, device gpu.Device, am *assets.AssetManager) (*SystemManager, error) {
	js, err := NewJobSystem(runtime.NumCPU(), 64)
	if err != nil {
		return nil, err
	}

	cs, err := NewCameraSystem(&CameraSystemConfig{
		MaxCameraCount: 100,
	})
	if err != nil {
		return nil, err
	}
	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: config.MaxTextureCount,
	}, device, js, am)
	if err != nil {
		return nil, err
	}
	ssys, err := NewShaderSystem(&ShaderSystemConfig{
		AllowMissing: config.AllowMissingShaders,
	}, am)
	if err != nil {
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{
		MaxMaterialCount: config.MaxMaterialCount,
	}, config.FrameResources, ts)
	if err != nil {
		return nil, err
	}
	gs, err := NewGeometrySystem(&GeometrySystemConfig{
		MaxGeometryCount: 16,
	}, device)
	if err != nil {
		return nil, err
	}
	ps, err := NewPipelineSystem(device)
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		CameraSystem:   cs,
		JobSystem:      js,
		TextureSystem:  ts,
		ShaderSystem:   ssys,
		MaterialSystem: ms,
		GeometrySystem: gs,
		PipelineSystem: ps,
		Catalog:        NewRenderItemCatalog(),
	}, nil
}

// Shutdown releases every system in reverse creation order. The device
// must be idle.
func (sm *SystemManager) Shutdown() error {
	if err := sm.PipelineSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.GeometrySystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.MaterialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.ShaderSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.TextureSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.CameraSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
