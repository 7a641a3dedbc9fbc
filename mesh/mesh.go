// Package mesh turns a denoised depth grid into an indexed triangle surface
// and recomputes vertex positions as display parameters change.
package mesh

// A TessellationError reports that no grid size satisfies the vertex budget.
type TessellationError string

func (e TessellationError) Error() string { return "mesh: tessellation: " + string(e) }

// Mesh is the reconstructed surface. RayDirections and BaseDepths are fixed
// for the lifetime of a tessellation + field-of-view choice; only Positions
// is rewritten, in place, by Remap. Positions, RayDirections are xyz
// triplets, UVs are uv pairs, Indices three per triangle.
type Mesh struct {
	Positions     []float32
	RayDirections []float32
	BaseDepths    []float32
	UVs           []float32
	Indices       []uint32

	VertexCount  int
	BaseDepthMin float32
	BaseDepthMax float32
	Columns      int
	Rows         int

	// Extent of vertex positions along the camera's principal axis,
	// tracked for downstream framing.
	ZMin float32
	ZMax float32
}
