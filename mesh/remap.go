package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Mode selects the depth curve applied during a remap.
type Mode int

const (
	ModeLinear Mode = iota
	ModeLogarithmic
)

// TransformOptions are the live display parameters. Pure configuration,
// supplied fresh on every remap; out-of-range values are clamped rather
// than rejected so a slider can never wedge the pipeline.
type TransformOptions struct {
	Magnification float64 // [0.1, 100]
	FarClip       float64 // [1, 1000] or +Inf for unbounded
	Mode          Mode
	LogPower      float64 // >= 0.1
}

func (o TransformOptions) normalized() TransformOptions {
	o.Magnification = mgl64.Clamp(o.Magnification, 0.1, 100)
	if !math.IsInf(o.FarClip, 1) {
		o.FarClip = mgl64.Clamp(o.FarClip, 1, 1000)
	}
	if o.LogPower < 0.1 {
		o.LogPower = 0.1
	}
	return o
}

// nearOffset keeps remapped depths strictly in front of the minimum.
const nearOffset = 0.001

// Remap recomputes every vertex position from its stored ray direction and
// base depth, writing into the mesh's position buffer in place. Topology,
// UVs, rays and base depths are untouched, so the call is idempotent and
// linear in vertex count; it runs on every interactive parameter change.
func Remap(m *Mesh, opts TransformOptions) {
	o := opts.normalized()
	minDepth := math.Max(float64(m.BaseDepthMin), 0.15)

	for i := 0; i < m.VertexCount; i++ {
		base := float64(m.BaseDepths[i])
		shaped := base
		if o.Mode == ModeLogarithmic {
			relative := math.Max(base-minDepth+0.3, 0.001)
			shaped = minDepth + math.Log(1+math.Pow(relative, o.LogPower))
		}
		scaled := minDepth + o.Magnification*(shaped-minDepth)
		// Near bound first, far clip last: the clip wins when the whole
		// scene sits beyond it.
		final := float32(math.Min(math.Max(scaled, minDepth+nearOffset), o.FarClip))

		m.Positions[i*3] = m.RayDirections[i*3] * final
		m.Positions[i*3+1] = m.RayDirections[i*3+1] * final
		m.Positions[i*3+2] = m.RayDirections[i*3+2] * final
	}
}
