// Package geometry builds the procedural shapes the demo scene is made of.
package geometry

import (
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// MeshData is CPU-side geometry with 32-bit indices.
type MeshData struct {
	Vertices  []metadata.Vertex
	Indices32 []uint32
}

// Indices16 narrows the indices. Callers make sure they fit.
func (m *MeshData) Indices16() []uint16 {
	out := make([]uint16, len(m.Indices32))
	for i, idx := range m.Indices32 {
		out[i] = uint16(idx)
	}
	return out
}

func vertex(px, py, pz, nx, ny, nz, tx, ty, tz, u, v float32) metadata.Vertex {
	return metadata.Vertex{
		Position: math.NewVec3(px, py, pz),
		Normal:   math.NewVec3(nx, ny, nz),
		TangentU: math.NewVec3(tx, ty, tz),
		TexC:     math.NewVec2(u, v),
	}
}

// CreateBox creates a box centered at the origin. Each face is split
// numSubdivisions times, capped at 6.
func CreateBox(width, height, depth float32, numSubdivisions uint32) MeshData {
	w2, h2, d2 := 0.5*width, 0.5*height, 0.5*depth

	md := MeshData{
		Vertices: []metadata.Vertex{
			// front
			vertex(-w2, -h2, -d2, 0, 0, -1, 1, 0, 0, 0, 1),
			vertex(-w2, +h2, -d2, 0, 0, -1, 1, 0, 0, 0, 0),
			vertex(+w2, +h2, -d2, 0, 0, -1, 1, 0, 0, 1, 0),
			vertex(+w2, -h2, -d2, 0, 0, -1, 1, 0, 0, 1, 1),
			// back
			vertex(-w2, -h2, +d2, 0, 0, 1, -1, 0, 0, 1, 1),
			vertex(+w2, -h2, +d2, 0, 0, 1, -1, 0, 0, 0, 1),
			vertex(+w2, +h2, +d2, 0, 0, 1, -1, 0, 0, 0, 0),
			vertex(-w2, +h2, +d2, 0, 0, 1, -1, 0, 0, 1, 0),
			// top
			vertex(-w2, +h2, -d2, 0, 1, 0, 1, 0, 0, 0, 1),
			vertex(-w2, +h2, +d2, 0, 1, 0, 1, 0, 0, 0, 0),
			vertex(+w2, +h2, +d2, 0, 1, 0, 1, 0, 0, 1, 0),
			vertex(+w2, +h2, -d2, 0, 1, 0, 1, 0, 0, 1, 1),
			// bottom
			vertex(-w2, -h2, -d2, 0, -1, 0, -1, 0, 0, 1, 1),
			vertex(+w2, -h2, -d2, 0, -1, 0, -1, 0, 0, 0, 1),
			vertex(+w2, -h2, +d2, 0, -1, 0, -1, 0, 0, 0, 0),
			vertex(-w2, -h2, +d2, 0, -1, 0, -1, 0, 0, 1, 0),
			// left
			vertex(-w2, -h2, +d2, -1, 0, 0, 0, 0, -1, 0, 1),
			vertex(-w2, +h2, +d2, -1, 0, 0, 0, 0, -1, 0, 0),
			vertex(-w2, +h2, -d2, -1, 0, 0, 0, 0, -1, 1, 0),
			vertex(-w2, -h2, -d2, -1, 0, 0, 0, 0, -1, 1, 1),
			// right
			vertex(+w2, -h2, -d2, 1, 0, 0, 0, 0, 1, 0, 1),
			vertex(+w2, +h2, -d2, 1, 0, 0, 0, 0, 1, 0, 0),
			vertex(+w2, +h2, +d2, 1, 0, 0, 0, 0, 1, 1, 0),
			vertex(+w2, -h2, +d2, 1, 0, 0, 0, 0, 1, 1, 1),
		},
	}
	for face := uint32(0); face < 6; face++ {
		b := face * 4
		md.Indices32 = append(md.Indices32, b, b+1, b+2, b, b+2, b+3)
	}

	for i := uint32(0); i < min(numSubdivisions, 6); i++ {
		md = subdivide(md)
	}
	return md
}

func midpoint(a, b metadata.Vertex) metadata.Vertex {
	return metadata.Vertex{
		Position: a.Position.Add(b.Position).MulScalar(0.5),
		Normal:   a.Normal.Add(b.Normal).Normalize(),
		TangentU: a.TangentU.Add(b.TangentU).Normalize(),
		TexC:     math.NewVec2(0.5*(a.TexC.X+b.TexC.X), 0.5*(a.TexC.Y+b.TexC.Y)),
	}
}

// subdivide splits every triangle into four.
//
//	     v1
//	     *
//	    / \
//	m0 *---* m1
//	  / \ / \
//	 *---*---*
//	v0   m2   v2
func subdivide(in MeshData) MeshData {
	out := MeshData{
		Vertices:  make([]metadata.Vertex, 0, len(in.Indices32)*2),
		Indices32: make([]uint32, 0, len(in.Indices32)*4),
	}
	for tri := 0; tri < len(in.Indices32)/3; tri++ {
		v0 := in.Vertices[in.Indices32[tri*3]]
		v1 := in.Vertices[in.Indices32[tri*3+1]]
		v2 := in.Vertices[in.Indices32[tri*3+2]]

		out.Vertices = append(out.Vertices, v0, v1, v2, midpoint(v0, v1), midpoint(v1, v2), midpoint(v0, v2))

		b := uint32(tri * 6)
		out.Indices32 = append(out.Indices32,
			b+0, b+3, b+5,
			b+3, b+4, b+5,
			b+5, b+4, b+2,
			b+3, b+1, b+4,
		)
	}
	return out
}

// CreateSphere creates a UV sphere centered at the origin.
func CreateSphere(radius float32, sliceCount, stackCount uint32) MeshData {
	md := MeshData{}
	md.Vertices = append(md.Vertices, vertex(0, radius, 0, 0, 1, 0, 1, 0, 0, 0, 0))

	phiStep := math.K_PI / float32(stackCount)
	thetaStep := math.K_PI_2 / float32(sliceCount)

	for i := uint32(1); i < stackCount; i++ {
		phi := float32(i) * phiStep
		for j := uint32(0); j <= sliceCount; j++ {
			theta := float32(j) * thetaStep
			p := math.NewVec3(
				radius*math.Sin(phi)*math.Cos(theta),
				radius*math.Cos(phi),
				radius*math.Sin(phi)*math.Sin(theta),
			)
			t := math.NewVec3(-radius*math.Sin(phi)*math.Sin(theta), 0, radius*math.Sin(phi)*math.Cos(theta)).Normalize()
			md.Vertices = append(md.Vertices, metadata.Vertex{
				Position: p,
				Normal:   p.Normalize(),
				TangentU: t,
				TexC:     math.NewVec2(theta/math.K_PI_2, phi/math.K_PI),
			})
		}
	}
	md.Vertices = append(md.Vertices, vertex(0, -radius, 0, 0, -1, 0, 1, 0, 0, 0, 1))

	for i := uint32(1); i <= sliceCount; i++ {
		md.Indices32 = append(md.Indices32, 0, i+1, i)
	}

	base := uint32(1)
	ring := sliceCount + 1
	for i := uint32(0); i+2 < stackCount; i++ {
		for j := uint32(0); j < sliceCount; j++ {
			md.Indices32 = append(md.Indices32,
				base+i*ring+j, base+i*ring+j+1, base+(i+1)*ring+j,
				base+(i+1)*ring+j, base+i*ring+j+1, base+(i+1)*ring+j+1,
			)
		}
	}

	south := uint32(len(md.Vertices) - 1)
	base = south - ring
	for i := uint32(0); i < sliceCount; i++ {
		md.Indices32 = append(md.Indices32, south, base+i, base+i+1)
	}
	return md
}

// CreateCylinder creates a capped cylinder (or cone frustum) centered at the
// origin and aligned with the y axis.
func CreateCylinder(bottomRadius, topRadius, height float32, sliceCount, stackCount uint32) MeshData {
	md := MeshData{}

	stackHeight := height / float32(stackCount)
	radiusStep := (topRadius - bottomRadius) / float32(stackCount)
	dTheta := math.K_PI_2 / float32(sliceCount)

	for i := uint32(0); i <= stackCount; i++ {
		y := -0.5*height + float32(i)*stackHeight
		r := bottomRadius + float32(i)*radiusStep
		for j := uint32(0); j <= sliceCount; j++ {
			c, s := math.Cos(float32(j)*dTheta), math.Sin(float32(j)*dTheta)
			tangent := math.NewVec3(-s, 0, c)
			dr := bottomRadius - topRadius
			bitangent := math.NewVec3(dr*c, -height, dr*s)
			md.Vertices = append(md.Vertices, metadata.Vertex{
				Position: math.NewVec3(r*c, y, r*s),
				Normal:   tangent.Cross(bitangent).Normalize(),
				TangentU: tangent,
				TexC:     math.NewVec2(float32(j)/float32(sliceCount), 1-float32(i)/float32(stackCount)),
			})
		}
	}

	ring := sliceCount + 1
	for i := uint32(0); i < stackCount; i++ {
		for j := uint32(0); j < sliceCount; j++ {
			md.Indices32 = append(md.Indices32,
				i*ring+j, (i+1)*ring+j, (i+1)*ring+j+1,
				i*ring+j, (i+1)*ring+j+1, i*ring+j+1,
			)
		}
	}

	md.buildCap(topRadius, 0.5*height, sliceCount, height, true)
	md.buildCap(bottomRadius, -0.5*height, sliceCount, height, false)
	return md
}

func (md *MeshData) buildCap(radius, y float32, sliceCount uint32, height float32, top bool) {
	base := uint32(len(md.Vertices))
	ny := float32(1)
	if !top {
		ny = -1
	}
	dTheta := math.K_PI_2 / float32(sliceCount)
	for i := uint32(0); i <= sliceCount; i++ {
		x := radius * math.Cos(float32(i)*dTheta)
		z := radius * math.Sin(float32(i)*dTheta)
		md.Vertices = append(md.Vertices, vertex(x, y, z, 0, ny, 0, 1, 0, 0, x/height+0.5, z/height+0.5))
	}
	md.Vertices = append(md.Vertices, vertex(0, y, 0, 0, ny, 0, 1, 0, 0, 0.5, 0.5))
	center := uint32(len(md.Vertices) - 1)
	for i := uint32(0); i < sliceCount; i++ {
		if top {
			md.Indices32 = append(md.Indices32, center, base+i+1, base+i)
		} else {
			md.Indices32 = append(md.Indices32, center, base+i, base+i+1)
		}
	}
}

// CreateGrid creates an m x n vertex grid in the xz-plane centered at the origin.
func CreateGrid(width, depth float32, m, n uint32) MeshData {
	md := MeshData{Vertices: make([]metadata.Vertex, 0, m*n)}

	halfWidth, halfDepth := 0.5*width, 0.5*depth
	dx := width / float32(n-1)
	dz := depth / float32(m-1)
	du := 1.0 / float32(n-1)
	dv := 1.0 / float32(m-1)

	for i := uint32(0); i < m; i++ {
		z := halfDepth - float32(i)*dz
		for j := uint32(0); j < n; j++ {
			x := -halfWidth + float32(j)*dx
			md.Vertices = append(md.Vertices, vertex(x, 0, z, 0, 1, 0, 1, 0, 0, float32(j)*du, float32(i)*dv))
		}
	}

	for i := uint32(0); i < m-1; i++ {
		for j := uint32(0); j < n-1; j++ {
			md.Indices32 = append(md.Indices32,
				i*n+j, i*n+j+1, (i+1)*n+j,
				(i+1)*n+j, i*n+j+1, (i+1)*n+j+1,
			)
		}
	}
	return md
}

// CreateQuad creates a screen-aligned quad with its top-left corner at (x, y),
// in normalized device coordinates.
func CreateQuad(x, y, w, h, depth float32) MeshData {
	return MeshData{
		Vertices: []metadata.Vertex{
			vertex(x, y-h, depth, 0, 0, -1, 1, 0, 0, 0, 1),
			vertex(x, y, depth, 0, 0, -1, 1, 0, 0, 0, 0),
			vertex(x+w, y, depth, 0, 0, -1, 1, 0, 0, 1, 0),
			vertex(x+w, y-h, depth, 0, 0, -1, 1, 0, 0, 1, 1),
		},
		Indices32: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// CreateWall creates a wall in the xy-plane facing -z, standing on y = 0 and
// centered on x = 0. A non-zero hole leaves an opening of that size at the
// bottom center, framed by the left, right and top panels.
func CreateWall(width, height, holeWidth, holeHeight float32) MeshData {
	md := MeshData{}
	w2 := 0.5 * width
	panel := func(x0, y0, x1, y1 float32) {
		if x1 <= x0 || y1 <= y0 {
			return
		}
		b := uint32(len(md.Vertices))
		uv := func(x, y float32) (float32, float32) {
			return (x + w2) / height, (height - y) / height
		}
		u0, v0 := uv(x0, y0)
		u1, v1 := uv(x1, y1)
		md.Vertices = append(md.Vertices,
			vertex(x0, y0, 0, 0, 0, -1, 1, 0, 0, u0, v0),
			vertex(x0, y1, 0, 0, 0, -1, 1, 0, 0, u0, v1),
			vertex(x1, y1, 0, 0, 0, -1, 1, 0, 0, u1, v1),
			vertex(x1, y0, 0, 0, 0, -1, 1, 0, 0, u1, v0),
		)
		md.Indices32 = append(md.Indices32, b, b+1, b+2, b, b+2, b+3)
	}

	if holeWidth <= 0 || holeHeight <= 0 {
		panel(-w2, 0, w2, height)
		return md
	}
	hw2 := 0.5 * min(holeWidth, width)
	hh := min(holeHeight, height)
	panel(-w2, 0, -hw2, height)
	panel(hw2, 0, w2, height)
	panel(-hw2, hh, hw2, height)
	return md
}
