package geometry

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Part is a named shape to pack.
type Part struct {
	Name string
	Mesh MeshData
}

// Pack concatenates parts into one MeshGeometry with 16-bit indices. Every
// part becomes a submesh whose index range and base vertex point at its own
// slice of the shared arrays. The GPU buffers are left for the geometry system.
func Pack(name string, parts ...Part) (*metadata.MeshGeometry, error) {
	geo := &metadata.MeshGeometry{
		Name:             name,
		VertexByteStride: metadata.VertexByteStride,
		IndexFormat:      gpu.IndexFormatUint16,
		DrawArgs:         make(map[string]metadata.SubmeshGeometry, len(parts)),
	}

	for _, p := range parts {
		if _, dup := geo.DrawArgs[p.Name]; dup {
			return nil, fmt.Errorf("pack %s: duplicate submesh %q", name, p.Name)
		}
		if len(p.Mesh.Vertices) > 1<<16 {
			return nil, fmt.Errorf("pack %s: submesh %q has %d vertices, too many for 16-bit indices", name, p.Name, len(p.Mesh.Vertices))
		}
		geo.DrawArgs[p.Name] = metadata.SubmeshGeometry{
			IndexCount:         uint32(len(p.Mesh.Indices32)),
			StartIndexLocation: uint32(len(geo.Indices)),
			BaseVertexLocation: int32(len(geo.Vertices)),
		}
		geo.Vertices = append(geo.Vertices, p.Mesh.Vertices...)
		geo.Indices = append(geo.Indices, p.Mesh.Indices16()...)
	}
	return geo, nil
}
