package metadata

import (
	"testing"
	"unsafe"

	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveReflectedItemMirrorsAcrossXY(t *testing.T) {
	r := math.NewMat4Reflect(MirrorPlane)

	src := NewRenderItem("sphere", 3)
	src.ObjCBIndex = 4
	src.Material = 2
	src.Geometry = 1
	src.NumFramesDirty = 0

	refl := DeriveReflectedItem(src, r, 9)
	require.NotNil(t, refl)
	for _, d := range []float32{-10, -0.5, 3} {
		got := math.NewVec3(0, 0, d).TransformCoord(refl.World)
		assert.True(t, math.NewVec3(0, 0, -d).Compare(got, 1e-5), "d=%v got %v", d, got)
	}
	p := math.NewVec3(3, 7, 0)
	assert.True(t, p.Compare(p.TransformCoord(refl.World), 1e-5))

	assert.Equal(t, 9, refl.ObjCBIndex)
	assert.Equal(t, 3, refl.NumFramesDirty)
	assert.Equal(t, src.Material, refl.Material)
	assert.Equal(t, src.Geometry, refl.Geometry)
	assert.NotEqual(t, src.ID, refl.ID)
}

func TestDeriveReflectedItemAppliesSourceFirst(t *testing.T) {
	r := math.NewMat4Reflect(MirrorPlane)
	src := NewRenderItem("box", 3)
	src.SetWorld(math.NewMat4Translation(math.NewVec3(1, 2, -5)))

	refl := DeriveReflectedItem(src, r, 1)
	got := math.NewVec3Zero().TransformCoord(refl.World)
	assert.True(t, math.NewVec3(1, 2, 5).Compare(got, 1e-5))

	// the copy is independent
	refl.SetWorld(math.NewMat4Identity())
	assert.Equal(t, float32(-5), src.World.Data[14])
}

func TestSetWorldMarksDirty(t *testing.T) {
	ri := NewRenderItem("grid", 3)
	ri.NumFramesDirty = 0
	ri.SetWorld(math.NewMat4Scale(math.NewVec3(2, 2, 2)))
	assert.Equal(t, 3, ri.NumFramesDirty)
}

func TestPassSlotsAreDistinct(t *testing.T) {
	seen := map[int]PassKind{}
	for kind, slot := range PassSlots {
		other, dup := seen[slot]
		assert.False(t, dup, "%s and %s share slot %d", kind, other, slot)
		seen[slot] = kind
		assert.Less(t, slot, PassCount())
	}
	assert.NotEqual(t, PassSlot(PassReflected), PassSlot(PassShadow))
	assert.Panics(t, func() { PassSlot(PassKind(42)) })
}

func TestConstantLayouts(t *testing.T) {
	assert.Equal(t, uintptr(144), unsafe.Sizeof(ObjectConstants{}))
	assert.Equal(t, uintptr(112), unsafe.Sizeof(MaterialData{}))
	assert.Equal(t, uintptr(48), unsafe.Sizeof(Light{}))
	assert.Equal(t, uintptr(512+16*4+48*MaxLights), unsafe.Sizeof(PassConstants{}))
	assert.Equal(t, uintptr(192+16*SsaoOffsetVectorCount+48+32), unsafe.Sizeof(SsaoConstants{}))
	assert.Equal(t, uintptr(VertexByteStride), unsafe.Sizeof(Vertex{}))
}

func TestMeshGeometryValidate(t *testing.T) {
	g := &MeshGeometry{
		Name:     "shapes",
		Vertices: make([]Vertex, 7),
		Indices:  []uint16{0, 1, 2, 0, 1, 2, 3},
		DrawArgs: map[string]SubmeshGeometry{
			"tri":  {IndexCount: 3, StartIndexLocation: 0, BaseVertexLocation: 0},
			"quad": {IndexCount: 4, StartIndexLocation: 3, BaseVertexLocation: 3},
		},
	}
	require.NoError(t, g.Validate())

	g.DrawArgs["quad"] = SubmeshGeometry{IndexCount: 3, StartIndexLocation: 4, BaseVertexLocation: 3}
	assert.Error(t, g.Validate())
}
