package systems

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief Creates and owns root signatures and pipeline state objects. All
 * of them are built during initialization; passes fetch them by handle.
 */
type PipelineSystem struct {
	device     gpu.Device
	signatures map[string]gpu.RootSignature
	pipelines  []gpu.PipelineState
	lookup     map[string]metadata.PipelineHandle
}

func NewPipelineSystem(device gpu.Device) (*PipelineSystem, error) {
	if device == nil {
		return nil, fmt.Errorf("NewPipelineSystem - device must not be nil")
	}
	return &PipelineSystem{
		device:     device,
		signatures: make(map[string]gpu.RootSignature),
		lookup:     make(map[string]metadata.PipelineHandle),
	}, nil
}

func (ps *PipelineSystem) BuildRootSignature(desc gpu.RootSignatureDesc) (gpu.RootSignature, error) {
	if _, ok := ps.signatures[desc.Name]; ok {
		return nil, fmt.Errorf("root signature %q already exists", desc.Name)
	}
	rs, err := ps.device.CreateRootSignature(desc)
	if err != nil {
		return nil, err
	}
	ps.signatures[desc.Name] = rs
	core.LogDebug("root signature %s created with %d parameters and %d static samplers", desc.Name, len(desc.Params), len(desc.StaticSamplers))
	return rs, nil
}

func (ps *PipelineSystem) RootSignature(name string) gpu.RootSignature {
	return ps.signatures[name]
}

// Build creates the pipeline state described by desc under desc.Name.
func (ps *PipelineSystem) Build(desc gpu.PipelineStateDesc) (metadata.PipelineHandle, error) {
	if _, ok := ps.lookup[desc.Name]; ok {
		return metadata.InvalidHandle, fmt.Errorf("pipeline %q already exists", desc.Name)
	}
	pso, err := ps.device.CreatePipelineState(desc)
	if err != nil {
		return metadata.InvalidHandle, fmt.Errorf("creating pipeline %s: %w", desc.Name, err)
	}
	h := metadata.PipelineHandle(len(ps.pipelines))
	ps.pipelines = append(ps.pipelines, pso)
	ps.lookup[desc.Name] = h
	core.LogDebug("pipeline %s created", desc.Name)
	return h, nil
}

func (ps *PipelineSystem) Get(h metadata.PipelineHandle) gpu.PipelineState {
	if int(h) < 0 || int(h) >= len(ps.pipelines) {
		return nil
	}
	return ps.pipelines[h]
}

// Handle resolves a name. Only used while passes are built.
func (ps *PipelineSystem) Handle(name string) (metadata.PipelineHandle, bool) {
	h, ok := ps.lookup[name]
	return h, ok
}

// MustHandle is Handle for names that were built at initialization.
func (ps *PipelineSystem) MustHandle(name string) metadata.PipelineHandle {
	h, ok := ps.lookup[name]
	if !ok {
		panic(fmt.Sprintf("pipeline %q was never built", name))
	}
	return h
}

func (ps *PipelineSystem) Count() int {
	return len(ps.pipelines)
}

func (ps *PipelineSystem) Shutdown() error {
	for _, p := range ps.pipelines {
		p.Release()
	}
	for _, rs := range ps.signatures {
		rs.Release()
	}
	ps.pipelines = nil
	ps.signatures = map[string]gpu.RootSignature{}
	ps.lookup = map[string]metadata.PipelineHandle{}
	return nil
}
