package components

import (
	"github.com/spaghettifunk/lumen/engine/math"
)

/**
 * @brief A left-handed first-person camera. The view basis (right, up, look)
 * is kept orthonormal and the view matrix is rebuilt lazily.
 */
type Camera struct {
	/**
	 * @brief The position of this camera in world space.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	position math.Vec3
	right    math.Vec3
	up       math.Vec3
	look     math.Vec3

	nearZ       float32
	farZ        float32
	aspect      float32
	fovY        float32
	nearWindowH float32
	farWindowH  float32

	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool

	viewMatrix math.Mat4
	projMatrix math.Mat4
}

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

// Reset puts the camera at the origin looking down +z with a 45 degree lens.
func (c *Camera) Reset() {
	c.position = math.NewVec3Zero()
	c.right = math.NewVec3(1, 0, 0)
	c.up = math.NewVec3Up()
	c.look = math.NewVec3(0, 0, 1)
	c.viewMatrix = math.NewMat4Identity()
	c.SetLens(0.25*math.K_PI, 1, 1, 1000)
	c.IsDirty = true
}

func (c *Camera) Position() math.Vec3 {
	return c.position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.position = position
	c.IsDirty = true
}

func (c *Camera) Right() math.Vec3 { return c.right }
func (c *Camera) Up() math.Vec3    { return c.up }
func (c *Camera) Look() math.Vec3  { return c.look }

func (c *Camera) NearZ() float32  { return c.nearZ }
func (c *Camera) FarZ() float32   { return c.farZ }
func (c *Camera) Aspect() float32 { return c.aspect }
func (c *Camera) FovY() float32   { return c.fovY }

// NearWindowHeight is the height of the frustum at the near plane.
func (c *Camera) NearWindowHeight() float32 { return c.nearWindowH }

// FarWindowHeight is the height of the frustum at the far plane.
func (c *Camera) FarWindowHeight() float32 { return c.farWindowH }

/**
 * @brief Sets the frustum.
 * @param fovY Vertical field of view in radians.
 * @param aspect Width divided by height.
 * @param zn Near plane distance.
 * @param zf Far plane distance.
 */
func (c *Camera) SetLens(fovY, aspect, zn, zf float32) {
	c.fovY = fovY
	c.aspect = aspect
	c.nearZ = zn
	c.farZ = zf
	c.nearWindowH = 2 * zn * math.Tan(0.5*fovY)
	c.farWindowH = 2 * zf * math.Tan(0.5*fovY)
	c.projMatrix = math.NewMat4PerspectiveFovLH(fovY, aspect, zn, zf)
}

// LookAt places the camera at pos facing target.
func (c *Camera) LookAt(pos, target, worldUp math.Vec3) {
	l := target.Sub(pos).Normalize()
	r := worldUp.Cross(l).Normalize()
	u := l.Cross(r)

	c.position = pos
	c.look = l
	c.right = r
	c.up = u
	c.IsDirty = true
}

// Strafe moves along the right vector by d.
func (c *Camera) Strafe(d float32) {
	c.position = c.position.Add(c.right.MulScalar(d))
	c.IsDirty = true
}

// Walk moves along the look vector by d.
func (c *Camera) Walk(d float32) {
	c.position = c.position.Add(c.look.MulScalar(d))
	c.IsDirty = true
}

// Pitch rotates up and look about the right vector.
func (c *Camera) Pitch(angle float32) {
	r := math.NewMat4RotationAxis(c.right, angle)
	c.up = c.up.TransformNormal(r)
	c.look = c.look.TransformNormal(r)
	c.IsDirty = true
}

// RotateY rotates the basis about the world y axis.
func (c *Camera) RotateY(angle float32) {
	r := math.NewMat4RotationY(angle)
	c.right = c.right.TransformNormal(r)
	c.up = c.up.TransformNormal(r)
	c.look = c.look.TransformNormal(r)
	c.IsDirty = true
}

// UpdateViewMatrix re-orthonormalizes the basis and rebuilds the view
// matrix if anything moved.
func (c *Camera) UpdateViewMatrix() {
	if !c.IsDirty {
		return
	}
	l := c.look.Normalize()
	u := l.Cross(c.right).Normalize()
	r := u.Cross(l)

	x := -c.position.Dot(r)
	y := -c.position.Dot(u)
	z := -c.position.Dot(l)

	c.right, c.up, c.look = r, u, l
	c.viewMatrix = math.NewMat4(
		math.NewVec4(r.X, u.X, l.X, 0),
		math.NewVec4(r.Y, u.Y, l.Y, 0),
		math.NewVec4(r.Z, u.Z, l.Z, 0),
		math.NewVec4(x, y, z, 1),
	)
	c.IsDirty = false
}

func (c *Camera) View() math.Mat4 {
	c.UpdateViewMatrix()
	return c.viewMatrix
}

func (c *Camera) Proj() math.Mat4 {
	return c.projMatrix
}
