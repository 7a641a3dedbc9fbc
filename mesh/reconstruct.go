package mesh

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/amariichi/Image-To-DepthWebViewer/depth"
)

// Reconstruction field-of-view bounds, degrees.
const (
	MinFOVDegrees = 15.0
	MaxFOVDegrees = 120.0
)

// ClampFOV constrains a vertical field of view to the supported range.
func ClampFOV(fovDegrees float64) float64 {
	return mgl64.Clamp(fovDegrees, MinFOVDegrees, MaxFOVDegrees)
}

// Reconstruct projects every tessellation grid point through a pinhole
// camera with the given vertical field of view, sampling the depth grid
// bilinearly, and triangulates the grid into an indexed mesh. The camera
// sits at the origin looking down -Z; each vertex position is its unit ray
// direction scaled by the sampled depth.
func Reconstruct(g *depth.Grid, stats depth.Stats, columns, rows int, fovDegrees float64) (*Mesh, error) {
	if columns <= 0 || rows <= 0 {
		return nil, TessellationError(fmt.Sprintf("invalid grid %dx%d", columns, rows))
	}

	fov := ClampFOV(fovDegrees)
	tanV := math.Tan(mgl64.DegToRad(fov) / 2)
	tanH := tanV * float64(g.Width) / float64(g.Height)

	vertexCount := (columns + 1) * (rows + 1)
	m := &Mesh{
		Positions:     make([]float32, vertexCount*3),
		RayDirections: make([]float32, vertexCount*3),
		BaseDepths:    make([]float32, vertexCount),
		UVs:           make([]float32, vertexCount*2),
		Indices:       make([]uint32, 0, columns*rows*6),
		VertexCount:   vertexCount,
		Columns:       columns,
		Rows:          rows,
		BaseDepthMin:  float32(math.Inf(1)),
		BaseDepthMax:  float32(math.Inf(-1)),
		ZMin:          float32(math.Inf(1)),
		ZMax:          float32(math.Inf(-1)),
	}

	i := 0
	for row := 0; row <= rows; row++ {
		v := float64(row) / float64(rows)
		for col := 0; col <= columns; col++ {
			u := float64(col) / float64(columns)

			d := g.SampleBilinear(u*float64(g.Width-1), v*float64(g.Height-1), stats.Min)
			if d < m.BaseDepthMin {
				m.BaseDepthMin = d
			}
			if d > m.BaseDepthMax {
				m.BaseDepthMax = d
			}

			dir := mgl64.Vec3{(u*2 - 1) * tanH, (1 - 2*v) * tanV, -1}.Normalize()
			m.RayDirections[i*3] = float32(dir.X())
			m.RayDirections[i*3+1] = float32(dir.Y())
			m.RayDirections[i*3+2] = float32(dir.Z())

			m.Positions[i*3] = float32(dir.X()) * d
			m.Positions[i*3+1] = float32(dir.Y()) * d
			m.Positions[i*3+2] = float32(dir.Z()) * d
			if z := m.Positions[i*3+2]; z < m.ZMin {
				m.ZMin = z
			}
			if z := m.Positions[i*3+2]; z > m.ZMax {
				m.ZMax = z
			}

			m.BaseDepths[i] = d
			m.UVs[i*2] = float32(u)
			m.UVs[i*2+1] = float32(1 - v)
			i++
		}
	}

	// Two triangles per cell, counter-clockwise toward the camera.
	stride := uint32(columns + 1)
	for row := 0; row < rows; row++ {
		for col := 0; col < columns; col++ {
			i0 := uint32(row)*stride + uint32(col)
			i1 := i0 + 1
			i2 := i0 + stride
			i3 := i2 + 1
			m.Indices = append(m.Indices, i0, i2, i1, i1, i2, i3)
		}
	}
	return m, nil
}
