package systems

import (
	"fmt"
	"unsafe"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type GeometrySystemConfig struct {
	MaxGeometryCount int
}

/**
 * @brief Owns mesh geometries and their GPU buffers. Render items refer to
 * geometry by handle.
 */
type GeometrySystem struct {
	Config     *GeometrySystemConfig
	geometries []*metadata.MeshGeometry
	lookup     map[string]metadata.GeometryHandle

	device gpu.Device
}

func NewGeometrySystem(config *GeometrySystemConfig, device gpu.Device) (*GeometrySystem, error) {
	if config.MaxGeometryCount <= 0 {
		err := fmt.Errorf("func NewGeometrySystem - config.MaxGeometryCount must be > 0")
		core.LogWarn(err.Error())
		return nil, err
	}
	return &GeometrySystem{
		Config: config,
		lookup: make(map[string]metadata.GeometryHandle),
		device: device,
	}, nil
}

/**
 * @brief Validates geo, uploads its vertex and index arrays to device-local
 * buffers and takes ownership of it.
 */
func (gs *GeometrySystem) Register(geo *metadata.MeshGeometry) (metadata.GeometryHandle, error) {
	if _, ok := gs.lookup[geo.Name]; ok {
		return metadata.InvalidHandle, fmt.Errorf("geometry %q is already registered", geo.Name)
	}
	if len(gs.geometries) >= gs.Config.MaxGeometryCount {
		return metadata.InvalidHandle, fmt.Errorf("geometry system cannot hold %q", geo.Name)
	}
	if err := geo.Validate(); err != nil {
		return metadata.InvalidHandle, err
	}

	vb, err := gs.device.CreateBuffer(geo.Name+"_vb", gpu.BufferUsageVertex, vertexBytes(geo.Vertices))
	if err != nil {
		return metadata.InvalidHandle, err
	}
	ib, err := gs.device.CreateBuffer(geo.Name+"_ib", gpu.BufferUsageIndex, indexBytes(geo.Indices))
	if err != nil {
		vb.Release()
		return metadata.InvalidHandle, err
	}
	geo.VertexBuffer = vb
	geo.IndexBuffer = ib

	h := metadata.GeometryHandle(len(gs.geometries))
	gs.geometries = append(gs.geometries, geo)
	gs.lookup[geo.Name] = h
	core.LogDebug("geometry %s uploaded: %d vertices, %d indices, %d submeshes", geo.Name, len(geo.Vertices), len(geo.Indices), len(geo.DrawArgs))
	return h, nil
}

func (gs *GeometrySystem) Get(h metadata.GeometryHandle) *metadata.MeshGeometry {
	if int(h) < 0 || int(h) >= len(gs.geometries) {
		return nil
	}
	return gs.geometries[h]
}

// Handle resolves a name. Only used while the scene is built.
func (gs *GeometrySystem) Handle(name string) (metadata.GeometryHandle, bool) {
	h, ok := gs.lookup[name]
	return h, ok
}

// Submesh returns the draw range called name inside geometry h.
func (gs *GeometrySystem) Submesh(h metadata.GeometryHandle, name string) (metadata.SubmeshGeometry, error) {
	geo := gs.Get(h)
	if geo == nil {
		return metadata.SubmeshGeometry{}, fmt.Errorf("geometry handle %d is invalid", h)
	}
	sm, ok := geo.DrawArgs[name]
	if !ok {
		return metadata.SubmeshGeometry{}, fmt.Errorf("geometry %s has no submesh %q", geo.Name, name)
	}
	return sm, nil
}

func (gs *GeometrySystem) Shutdown() error {
	for _, g := range gs.geometries {
		g.Release()
	}
	gs.geometries = nil
	gs.lookup = map[string]metadata.GeometryHandle{}
	return nil
}

func vertexBytes(v []metadata.Vertex) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*metadata.VertexByteStride)
}

func indexBytes(idx []uint16) []byte {
	if len(idx) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&idx[0])), len(idx)*2)
}
