package math

import (
	"math/rand"

	"github.com/chewxy/math32"
)

const (
	/** @brief An approximate representation of PI. */
	K_PI float32 = 3.14159265358979323846
	/** @brief An approximate representation of PI multiplied by 2. */
	K_PI_2 float32 = 2.0 * K_PI
	/** @brief An approximate representation of PI divided by 2. */
	K_HALF_PI float32 = 0.5 * K_PI
	/** @brief An approximate representation of PI divided by 4. */
	K_QUARTER_PI float32 = 0.25 * K_PI
	/** @brief One divided by an approximation of the square root of 3. */
	K_SQRT_ONE_OVER_THREE float32 = 0.57735026918962576450
	/** @brief A multiplier used to convert degrees to radians. */
	K_DEG2RAD_MULTIPLIER float32 = K_PI / 180.0
	/** @brief A multiplier used to convert radians to degrees. */
	K_RAD2DEG_MULTIPLIER float32 = 180.0 / K_PI
	/** @brief A huge number that should be larger than any valid number used. */
	K_INFINITY float32 = 1e30
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

func ksin(x float32) float32 {
	return math32.Sin(x)
}

func kcos(x float32) float32 {
	return math32.Cos(x)
}

func ktan(x float32) float32 {
	return math32.Tan(x)
}

func ksqrt(x float32) float32 {
	return math32.Sqrt(x)
}

func kabs(x float32) float32 {
	return math32.Abs(x)
}

func Sin(x float32) float32  { return ksin(x) }
func Cos(x float32) float32  { return kcos(x) }
func Sqrt(x float32) float32 { return ksqrt(x) }
func Abs(x float32) float32  { return kabs(x) }
func Exp(x float32) float32  { return math32.Exp(x) }
func Ceil(x float32) float32 { return math32.Ceil(x) }
func Tan(x float32) float32  { return ktan(x) }

// Atan2Positive returns the angle of (x, y) in [0, 2pi).
func Atan2Positive(y, x float32) float32 {
	theta := math32.Atan2(y, x)
	if theta < 0 {
		theta += K_PI_2
	}
	return theta
}

func Acos(x float32) float32 {
	return math32.Acos(Clamp(x, -1, 1))
}

/**
 * @brief Returns a random float in [min, max) drawn from r.
 */
func RandFloatRange(r *rand.Rand, min, max float32) float32 {
	return min + r.Float32()*(max-min)
}

/**
 * @brief Converts provided degrees to radians.
 */
func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD_MULTIPLIER
}

/**
 * @brief Converts provided radians to degrees.
 */
func RadToDeg(radians float32) float32 {
	return radians * K_RAD2DEG_MULTIPLIER
}
