// Package transform builds the 4x4 transforms and render specs handed to the host renderer.
package transform

import "github.com/go-gl/mathgl/mgl64"

// Matrix is a homogeneous 4x4 transform, column-major like the host renderer expects.
type Matrix = mgl64.Mat4

// Identity returns the identity transform.
func Identity() Matrix {
	return mgl64.Ident4()
}

// Scale scales x and y uniformly and leaves z untouched.
func Scale(s float64) Matrix {
	return mgl64.Scale3D(s, s, 1.0)
}

// RotateZ rotates by theta radians around the z axis.
func RotateZ(theta float64) Matrix {
	return mgl64.HomogRotate3DZ(theta)
}

// Translate moves by (x, y, z).
func Translate(x, y, z float64) Matrix {
	return mgl64.Translate3D(x, y, z)
}

// Multiply returns a·b, the transform applying b first and a second.
func Multiply(a, b Matrix) Matrix {
	return a.Mul4(b)
}

// Apply transforms the point (x, y, 0).
func Apply(m Matrix, x, y float64) (float64, float64) {
	v := m.Mul4x1(mgl64.Vec4{x, y, 0, 1})
	return v.X(), v.Y()
}

// Translation returns the x and y translation of m.
func Translation(m Matrix) (float64, float64) {
	return m.At(0, 3), m.At(1, 3)
}
