package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const tol = 1e-4

func assertVec3(t *testing.T, want, got Vec3) {
	t.Helper()
	assert.Truef(t, want.Compare(got, tol), "want %v, got %v", want, got)
}

func TestInverseOfComposedTransform(t *testing.T) {
	m := NewMat4Scale(NewVec3(2, 3, 4)).
		Mul(NewMat4RotationY(0.7)).
		Mul(NewMat4Translation(NewVec3(5, -1, 2)))

	assert.True(t, m.Mul(m.Inverse()).Compare(NewMat4Identity(), tol))
	assert.True(t, m.Inverse().Mul(m).Compare(NewMat4Identity(), tol))
}

func TestTranspose(t *testing.T) {
	m := NewMat4Translation(NewVec3(1, 2, 3))
	tr := m.Transpose()
	assert.Equal(t, float32(1), tr.Data[3])
	assert.Equal(t, float32(2), tr.Data[7])
	assert.Equal(t, float32(3), tr.Data[11])
	assert.Equal(t, m, tr.Transpose())
}

func TestRowVectorComposition(t *testing.T) {
	// scale first, then translate
	m := NewMat4Scale(NewVec3(2, 2, 2)).Mul(NewMat4Translation(NewVec3(0, 1, 0)))
	assertVec3(t, NewVec3(2, 3, 2), NewVec3(1, 1, 1).TransformCoord(m))
}

func TestRotationYIsLeftHanded(t *testing.T) {
	// +X rotates toward -Z for a positive angle about +Y.
	assertVec3(t, NewVec3(0, 0, -1), NewVec3(1, 0, 0).TransformNormal(NewMat4RotationY(K_HALF_PI)))
}

func TestReflectAcrossXYPlane(t *testing.T) {
	r := NewMat4Reflect(NewPlane(0, 0, 1, 0))
	for _, d := range []float32{-3, 0.5, 12} {
		assertVec3(t, NewVec3(0, 0, -d), NewVec3(0, 0, d).TransformCoord(r))
	}
	assertVec3(t, NewVec3(4, -2, 0), NewVec3(4, -2, 0).TransformCoord(r))
	assert.True(t, r.Mul(r).Compare(NewMat4Identity(), tol))
}

func TestReflectOffsetPlane(t *testing.T) {
	// plane z = 2
	r := NewMat4Reflect(NewPlane(0, 0, 1, -2))
	assertVec3(t, NewVec3(1, 1, 5), NewVec3(1, 1, -1).TransformCoord(r))
}

func TestLookAtLH(t *testing.T) {
	eye := NewVec3(0, 0, -10)
	v := NewMat4LookAtLH(eye, NewVec3Zero(), NewVec3Up())
	assertVec3(t, NewVec3(0, 0, 10), NewVec3Zero().TransformCoord(v))
	assertVec3(t, NewVec3Zero(), eye.TransformCoord(v))
	assertVec3(t, NewVec3(1, 0, 10), NewVec3(1, 0, 0).TransformCoord(v))
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := NewMat4PerspectiveFovLH(K_QUARTER_PI, 1.5, 1, 1000)
	assert.InDelta(t, 0, NewVec3(0, 0, 1).TransformCoord(p).Z, tol)
	assert.InDelta(t, 1, NewVec3(0, 0, 1000).TransformCoord(p).Z, tol)
}

func TestOrthographicOffCenterLH(t *testing.T) {
	o := NewMat4OrthographicOffCenterLH(-2, 6, -1, 3, 1, 11)
	assertVec3(t, NewVec3(-1, -1, 0), NewVec3(-2, -1, 1).TransformCoord(o))
	assertVec3(t, NewVec3(1, 1, 1), NewVec3(6, 3, 11).TransformCoord(o))
}

func TestTextureSpace(t *testing.T) {
	assertVec3(t, NewVec3(0, 0, 0), NewVec3(-1, 1, 0).TransformCoord(TextureSpace))
	assertVec3(t, NewVec3(1, 1, 0.5), NewVec3(1, -1, 0.5).TransformCoord(TextureSpace))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint32(256), AlignUp(uint32(1), 256))
	assert.Equal(t, uint32(256), AlignUp(uint32(256), 256))
	assert.Equal(t, 512, AlignUp(257, 256))
	assert.Equal(t, 3.0, Clamp(4.0, 1.0, 3.0))
}

func TestRotationAxisMatchesRotationY(t *testing.T) {
	want := NewMat4RotationY(0.7)
	got := NewMat4RotationAxis(NewVec3(0, 2, 0), 0.7)
	assert.True(t, want.Compare(got, 1e-5))
}
