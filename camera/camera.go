// Package camera derives the reconstruction field of view and builds the
// matrices consumed by rendering and stereoscopic presentation layers.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// FOV range used when deriving a default from the camera-center offset.
const (
	offsetFOVMin = 30.0
	offsetFOVMax = 110.0
)

// FOVForOffset derives a default vertical field of view in degrees from the
// configured camera-center offset (0 = close to the surface, 1 = pulled
// back), interpolating linearly between 30 and 110 degrees.
func FOVForOffset(offset float64) float64 {
	t := mgl64.Clamp(offset, 0, 1)
	return offsetFOVMin + t*(offsetFOVMax-offsetFOVMin)
}

// Projection returns a perspective projection matrix for the given vertical
// field of view and viewport aspect ratio.
func Projection(fovDegrees float64, aspect, near, far float32) mgl32.Mat4 {
	return mgl32.Perspective(float32(mgl64.DegToRad(fovDegrees)), aspect, near, far)
}

// View returns the view matrix for the reconstruction camera: at the
// origin, looking down -Z, Y up. Vertex positions already live in this
// frame, so the matrix is shipped for consumers that compose their own
// model transforms.
func View() mgl32.Mat4 {
	return mgl32.LookAtV(
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 0, -1},
		mgl32.Vec3{0, 1, 0},
	)
}

// FramingDistance suggests how far back a viewer should sit to frame a mesh
// whose positions span [zMin, zMax] along the principal axis.
func FramingDistance(zMin, zMax float32) float32 {
	span := zMax - zMin
	if span < 0 {
		span = 0
	}
	return -zMax + span/2
}
