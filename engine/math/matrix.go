package math

/**
 * @brief Creates and returns an identity matrix.
 */
func NewMat4Identity() Mat4 {
	out := Mat4{}
	out.Data[0] = 1.0
	out.Data[5] = 1.0
	out.Data[10] = 1.0
	out.Data[15] = 1.0
	return out
}

// NewMat4 builds a matrix from its rows.
func NewMat4(r0, r1, r2, r3 Vec4) Mat4 {
	return Mat4{Data: [16]float32{
		r0.X, r0.Y, r0.Z, r0.W,
		r1.X, r1.Y, r1.Z, r1.W,
		r2.X, r2.Y, r2.Z, r2.W,
		r3.X, r3.Y, r3.Z, r3.W,
	}}
}

/**
 * @brief Returns the result of multiplying mt and other. With row vectors,
 * v * (A.Mul(B)) applies A first, then B.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	out := Mat4{}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out.Data[row*4+col] = sum
		}
	}
	return out
}

/**
 * @brief Returns a transposed copy of the matrix (rows->colums).
 */
func (mt Mat4) Transpose() Mat4 {
	out := Mat4{}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out.Data[col*4+row] = mt.Data[row*4+col]
		}
	}
	return out
}

/**
 * @brief Creates and returns an inverse of the provided matrix. A singular
 * matrix yields non-finite elements.
 */
func (mt Mat4) Inverse() Mat4 {
	m := mt.Data

	t0 := m[10] * m[15]
	t1 := m[14] * m[11]
	t2 := m[6] * m[15]
	t3 := m[14] * m[7]
	t4 := m[6] * m[11]
	t5 := m[10] * m[7]
	t6 := m[2] * m[15]
	t7 := m[14] * m[3]
	t8 := m[2] * m[11]
	t9 := m[10] * m[3]
	t10 := m[2] * m[7]
	t11 := m[6] * m[3]
	t12 := m[8] * m[13]
	t13 := m[12] * m[9]
	t14 := m[4] * m[13]
	t15 := m[12] * m[5]
	t16 := m[4] * m[9]
	t17 := m[8] * m[5]
	t18 := m[0] * m[13]
	t19 := m[12] * m[1]
	t20 := m[0] * m[9]
	t21 := m[8] * m[1]
	t22 := m[0] * m[5]
	t23 := m[4] * m[1]

	out := Mat4{}
	o := &out.Data

	o[0] = (t0*m[5] + t3*m[9] + t4*m[13]) - (t1*m[5] + t2*m[9] + t5*m[13])
	o[1] = (t1*m[1] + t6*m[9] + t9*m[13]) - (t0*m[1] + t7*m[9] + t8*m[13])
	o[2] = (t2*m[1] + t7*m[5] + t10*m[13]) - (t3*m[1] + t6*m[5] + t11*m[13])
	o[3] = (t5*m[1] + t8*m[5] + t11*m[9]) - (t4*m[1] + t9*m[5] + t10*m[9])

	d := 1.0 / (m[0]*o[0] + m[4]*o[1] + m[8]*o[2] + m[12]*o[3])

	o[0] = d * o[0]
	o[1] = d * o[1]
	o[2] = d * o[2]
	o[3] = d * o[3]
	o[4] = d * ((t1*m[4] + t2*m[8] + t5*m[12]) - (t0*m[4] + t3*m[8] + t4*m[12]))
	o[5] = d * ((t0*m[0] + t7*m[8] + t8*m[12]) - (t1*m[0] + t6*m[8] + t9*m[12]))
	o[6] = d * ((t3*m[0] + t6*m[4] + t11*m[12]) - (t2*m[0] + t7*m[4] + t10*m[12]))
	o[7] = d * ((t4*m[0] + t9*m[4] + t10*m[8]) - (t5*m[0] + t8*m[4] + t11*m[8]))
	o[8] = d * ((t12*m[7] + t15*m[11] + t16*m[15]) - (t13*m[7] + t14*m[11] + t17*m[15]))
	o[9] = d * ((t13*m[3] + t18*m[11] + t21*m[15]) - (t12*m[3] + t19*m[11] + t20*m[15]))
	o[10] = d * ((t14*m[3] + t19*m[7] + t22*m[15]) - (t15*m[3] + t18*m[7] + t23*m[15]))
	o[11] = d * ((t17*m[3] + t20*m[7] + t23*m[11]) - (t16*m[3] + t21*m[7] + t22*m[11]))
	o[12] = d * ((t14*m[10] + t17*m[14] + t13*m[6]) - (t16*m[14] + t12*m[6] + t15*m[10]))
	o[13] = d * ((t20*m[14] + t12*m[2] + t19*m[10]) - (t18*m[10] + t21*m[14] + t13*m[2]))
	o[14] = d * ((t18*m[6] + t23*m[14] + t15*m[2]) - (t22*m[14] + t14*m[2] + t19*m[6]))
	o[15] = d * ((t22*m[10] + t16*m[2] + t21*m[6]) - (t20*m[6] + t23*m[10] + t17*m[2]))

	return out
}

/**
 * @brief Compares all elements and ensures the difference is less than tolerance.
 */
func (mt Mat4) Compare(other Mat4, tolerance float32) bool {
	for i := range mt.Data {
		if kabs(mt.Data[i]-other.Data[i]) > tolerance {
			return false
		}
	}
	return true
}

/**
 * @brief Creates and returns a translation matrix from the given position.
 */
func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	return out
}

/**
 * @brief Returns a scale matrix using the provided scale.
 */
func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = scale.X
	out.Data[5] = scale.Y
	out.Data[10] = scale.Z
	return out
}

func NewMat4RotationX(angleRadians float32) Mat4 {
	out := NewMat4Identity()
	c, s := kcos(angleRadians), ksin(angleRadians)
	out.Data[5] = c
	out.Data[6] = s
	out.Data[9] = -s
	out.Data[10] = c
	return out
}

func NewMat4RotationY(angleRadians float32) Mat4 {
	out := NewMat4Identity()
	c, s := kcos(angleRadians), ksin(angleRadians)
	out.Data[0] = c
	out.Data[2] = -s
	out.Data[8] = s
	out.Data[10] = c
	return out
}

func NewMat4RotationZ(angleRadians float32) Mat4 {
	out := NewMat4Identity()
	c, s := kcos(angleRadians), ksin(angleRadians)
	out.Data[0] = c
	out.Data[1] = s
	out.Data[4] = -s
	out.Data[5] = c
	return out
}

// NewMat4RotationAxis rotates by angleRadians about axis, clockwise when
// looking down the axis toward the origin.
func NewMat4RotationAxis(axis Vec3, angleRadians float32) Mat4 {
	n := axis.Normalize()
	c, s := kcos(angleRadians), ksin(angleRadians)
	t := 1 - c
	out := NewMat4Identity()
	out.Data[0] = t*n.X*n.X + c
	out.Data[1] = t*n.X*n.Y + s*n.Z
	out.Data[2] = t*n.X*n.Z - s*n.Y
	out.Data[4] = t*n.X*n.Y - s*n.Z
	out.Data[5] = t*n.Y*n.Y + c
	out.Data[6] = t*n.Y*n.Z + s*n.X
	out.Data[8] = t*n.X*n.Z + s*n.Y
	out.Data[9] = t*n.Y*n.Z - s*n.X
	out.Data[10] = t*n.Z*n.Z + c
	return out
}

/**
 * @brief Creates a left-handed perspective projection mapping depth to [0, 1].
 *
 * @param fovY The vertical field of view in radians.
 * @param aspect The aspect ratio (width / height).
 * @param nearZ The near clipping plane distance.
 * @param farZ The far clipping plane distance.
 */
func NewMat4PerspectiveFovLH(fovY, aspect, nearZ, farZ float32) Mat4 {
	h := 1.0 / ktan(fovY*0.5)
	w := h / aspect
	r := farZ / (farZ - nearZ)
	out := Mat4{}
	out.Data[0] = w
	out.Data[5] = h
	out.Data[10] = r
	out.Data[11] = 1.0
	out.Data[14] = -r * nearZ
	return out
}

/**
 * @brief Creates a left-handed off-center orthographic projection mapping depth to [0, 1].
 */
func NewMat4OrthographicOffCenterLH(left, right, bottom, top, nearZ, farZ float32) Mat4 {
	out := NewMat4Identity()
	rw := 1.0 / (right - left)
	rh := 1.0 / (top - bottom)
	rd := 1.0 / (farZ - nearZ)
	out.Data[0] = 2 * rw
	out.Data[5] = 2 * rh
	out.Data[10] = rd
	out.Data[12] = -(left + right) * rw
	out.Data[13] = -(top + bottom) * rh
	out.Data[14] = -nearZ * rd
	return out
}

/**
 * @brief Creates a left-handed view matrix looking from eye toward target.
 */
func NewMat4LookAtLH(eye, target, up Vec3) Mat4 {
	return NewMat4LookToLH(eye, target.Sub(eye), up)
}

/**
 * @brief Creates a left-handed view matrix looking from eye along dir.
 */
func NewMat4LookToLH(eye, dir, up Vec3) Mat4 {
	z := dir.Normalize()
	x := up.Cross(z).Normalize()
	y := z.Cross(x)
	return NewMat4(
		Vec4{x.X, y.X, z.X, 0},
		Vec4{x.Y, y.Y, z.Y, 0},
		Vec4{x.Z, y.Z, z.Z, 0},
		Vec4{-x.Dot(eye), -y.Dot(eye), -z.Dot(eye), 1},
	)
}

/**
 * @brief Creates a matrix that reflects points across the plane.
 */
func NewMat4Reflect(plane Plane) Mat4 {
	a, b, c, d := plane.Normal.X, plane.Normal.Y, plane.Normal.Z, plane.D
	return NewMat4(
		Vec4{1 - 2*a*a, -2 * a * b, -2 * a * c, 0},
		Vec4{-2 * b * a, 1 - 2*b*b, -2 * b * c, 0},
		Vec4{-2 * c * a, -2 * c * b, 1 - 2*c*c, 0},
		Vec4{-2 * d * a, -2 * d * b, -2 * d * c, 1},
	)
}

// TextureSpace maps NDC [-1,1]x[-1,1] to texture coordinates [0,1]x[0,1] with v pointing down.
var TextureSpace = NewMat4(
	Vec4{0.5, 0, 0, 0},
	Vec4{0, -0.5, 0, 0},
	Vec4{0, 0, 1, 0},
	Vec4{0.5, 0.5, 0, 1},
)

// InverseTranspose removes the translation and returns the inverse transpose,
// used to transform normals.
func (mt Mat4) InverseTranspose() Mat4 {
	a := mt
	a.Data[12], a.Data[13], a.Data[14] = 0, 0, 0
	return a.Inverse().Transpose()
}
