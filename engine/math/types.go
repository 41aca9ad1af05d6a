package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/**
 * @brief a 4x4 row-major matrix. Vectors are rows and are multiplied on the
 * left, so translation lives in Data[12..14].
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief A plane in the form ax + by + cz + d = 0 with a unit normal (a, b, c).
 */
type Plane struct {
	Normal Vec3
	D      float32
}

/**
 * @brief A bounding sphere.
 */
type Sphere struct {
	Center Vec3
	Radius float32
}
