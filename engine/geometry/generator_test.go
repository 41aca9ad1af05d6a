package geometry

import (
	"testing"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertIndicesInRange(t *testing.T, md MeshData) {
	t.Helper()
	require.Zero(t, len(md.Indices32)%3)
	for _, idx := range md.Indices32 {
		require.Less(t, int(idx), len(md.Vertices))
	}
}

func TestCreateBox(t *testing.T) {
	box := CreateBox(1.5, 1.5, 1.5, 0)
	assert.Len(t, box.Vertices, 24)
	assert.Len(t, box.Indices32, 36)
	assertIndicesInRange(t, box)

	sub := CreateBox(1.5, 1.5, 1.5, 3)
	assert.Len(t, sub.Indices32, 36*64)
	assertIndicesInRange(t, sub)
	for _, v := range sub.Vertices {
		assert.InDelta(t, 1, v.Normal.Length(), 1e-5)
	}
}

func TestCreateSphere(t *testing.T) {
	s := CreateSphere(0.5, 20, 20)
	assert.Len(t, s.Vertices, 2+19*21)
	assert.Len(t, s.Indices32, 3*20*2+6*20*18)
	assertIndicesInRange(t, s)
	for _, v := range s.Vertices {
		assert.InDelta(t, 0.5, v.Position.Length(), 1e-4)
		assert.True(t, v.Position.Normalize().Compare(v.Normal, 1e-4))
	}
}

func TestCreateCylinder(t *testing.T) {
	c := CreateCylinder(0.5, 0.3, 3, 20, 20)
	assertIndicesInRange(t, c)
	assert.Len(t, c.Vertices, 21*21+2*22)
	assert.Len(t, c.Indices32, 6*20*20+2*3*20)

	var minY, maxY float32
	for _, v := range c.Vertices {
		minY = min(minY, v.Position.Y)
		maxY = max(maxY, v.Position.Y)
	}
	assert.InDelta(t, -1.5, minY, 1e-5)
	assert.InDelta(t, 1.5, maxY, 1e-5)
}

func TestCreateGrid(t *testing.T) {
	g := CreateGrid(23, 23, 60, 40)
	assert.Len(t, g.Vertices, 60*40)
	assert.Len(t, g.Indices32, 59*39*6)
	assertIndicesInRange(t, g)
	assert.True(t, math.NewVec3(-11.5, 0, 11.5).Compare(g.Vertices[0].Position, 1e-5))
	assert.True(t, math.NewVec3(11.5, 0, -11.5).Compare(g.Vertices[len(g.Vertices)-1].Position, 1e-5))
}

func TestCreateQuad(t *testing.T) {
	q := CreateQuad(-1, 1, 0.4, 0.4, 0)
	assert.Len(t, q.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, q.Indices32)
	assert.True(t, math.NewVec3(-0.6, 0.6, 0).Compare(q.Vertices[3].Position, 1e-5))
}

func TestCreateWall(t *testing.T) {
	solid := CreateWall(30, 30, 0, 0)
	assert.Len(t, solid.Vertices, 4)

	framed := CreateWall(30, 12, 10, 8)
	assert.Len(t, framed.Vertices, 12)
	assert.Len(t, framed.Indices32, 18)
	for _, v := range framed.Vertices {
		// nothing inside the opening
		inHole := v.Position.X > -5 && v.Position.X < 5 && v.Position.Y < 8
		assert.False(t, inHole, "vertex %v inside the opening", v.Position)
		assert.Zero(t, v.Position.Z)
	}
}

func TestPackTilesSharedBuffers(t *testing.T) {
	parts := []Part{
		{"box", CreateBox(1.5, 1.5, 1.5, 3)},
		{"grid", CreateGrid(23, 23, 60, 40)},
		{"sphere", CreateSphere(0.5, 20, 20)},
		{"cylinder", CreateCylinder(0.5, 0.3, 3, 20, 20)},
		{"quad", CreateQuad(-1, 1, 0.4, 0.4, 0)},
	}
	geo, err := Pack("shapeGeo", parts...)
	require.NoError(t, err)
	require.NoError(t, geo.Validate())

	// the ranges tile [0, total) in insertion order
	var indexOffset, vertexOffset int
	for _, p := range parts {
		sm := geo.DrawArgs[p.Name]
		assert.Equal(t, uint32(indexOffset), sm.StartIndexLocation, p.Name)
		assert.Equal(t, int32(vertexOffset), sm.BaseVertexLocation, p.Name)
		assert.Equal(t, uint32(len(p.Mesh.Indices32)), sm.IndexCount, p.Name)
		indexOffset += len(p.Mesh.Indices32)
		vertexOffset += len(p.Mesh.Vertices)
	}
	assert.Equal(t, indexOffset, len(geo.Indices))
	assert.Equal(t, vertexOffset, len(geo.Vertices))
}

func TestPackRejectsDuplicates(t *testing.T) {
	q := CreateQuad(0, 0, 1, 1, 0)
	_, err := Pack("dup", Part{"quad", q}, Part{"quad", q})
	assert.Error(t, err)
}
