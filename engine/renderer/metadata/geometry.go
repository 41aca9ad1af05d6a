package metadata

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

/**
 * @brief A vertex as laid out in the vertex buffer (44 bytes).
 */
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	TexC     math.Vec2
	TangentU math.Vec3
}

// VertexByteStride is the size of Vertex in the vertex buffer.
const VertexByteStride = 44

// VertexLayout matches Vertex for pipeline creation.
var VertexLayout = []gpu.VertexAttribute{
	{Semantic: "POSITION", Location: 0, Format: gpu.VertexFloat3, Offset: 0},
	{Semantic: "NORMAL", Location: 1, Format: gpu.VertexFloat3, Offset: 12},
	{Semantic: "TEXCOORD", Location: 2, Format: gpu.VertexFloat2, Offset: 24},
	{Semantic: "TANGENT", Location: 3, Format: gpu.VertexFloat3, Offset: 32},
}

/**
 * @brief A range of a MeshGeometry's shared buffers that draws one shape.
 */
type SubmeshGeometry struct {
	IndexCount         uint32
	StartIndexLocation uint32
	BaseVertexLocation int32
}

/**
 * @brief Several shapes packed into one vertex and one index buffer.
 */
type MeshGeometry struct {
	Name             string
	VertexByteStride uint32
	Vertices         []Vertex
	Indices          []uint16
	IndexFormat      gpu.IndexFormat

	VertexBuffer gpu.Buffer
	IndexBuffer  gpu.Buffer

	DrawArgs map[string]SubmeshGeometry
}

// Validate checks that the submeshes tile the index and vertex arrays
// exactly: no gaps, no overlaps.
func (g *MeshGeometry) Validate() error {
	type span struct {
		name        string
		start, size int
		baseVertex  int
	}
	spans := make([]span, 0, len(g.DrawArgs))
	for name, sm := range g.DrawArgs {
		spans = append(spans, span{name, int(sm.StartIndexLocation), int(sm.IndexCount), int(sm.BaseVertexLocation)})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	next := 0
	for i, s := range spans {
		if s.start != next {
			return fmt.Errorf("geometry %s: submesh %s starts at index %d, expected %d", g.Name, s.name, s.start, next)
		}
		if s.start+s.size > len(g.Indices) {
			return fmt.Errorf("geometry %s: submesh %s runs past the index buffer", g.Name, s.name)
		}
		if (i == 0 && s.baseVertex != 0) || (i > 0 && s.baseVertex < spans[i-1].baseVertex) {
			return fmt.Errorf("geometry %s: submesh %s has base vertex %d out of order", g.Name, s.name, s.baseVertex)
		}
		next += s.size
		// Each submesh's vertices run up to the next submesh's base vertex.
		end := len(g.Vertices)
		if i+1 < len(spans) {
			end = spans[i+1].baseVertex
		}
		for _, idx := range g.Indices[s.start : s.start+s.size] {
			v := s.baseVertex + int(idx)
			if v < s.baseVertex || v >= end {
				return fmt.Errorf("geometry %s: submesh %s references vertex %d outside [%d,%d)", g.Name, s.name, v, s.baseVertex, end)
			}
		}
	}
	if next != len(g.Indices) {
		return fmt.Errorf("geometry %s: submeshes cover %d of %d indices", g.Name, next, len(g.Indices))
	}
	return nil
}

// Release frees the GPU buffers.
func (g *MeshGeometry) Release() {
	if g.VertexBuffer != nil {
		g.VertexBuffer.Release()
		g.VertexBuffer = nil
	}
	if g.IndexBuffer != nil {
		g.IndexBuffer.Release()
		g.IndexBuffer = nil
	}
}
