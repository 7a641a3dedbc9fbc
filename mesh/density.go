package mesh

import "math"

const (
	// DefaultVertexBudget is the target total vertex count for a
	// tessellation, with DefaultVertexTolerance as the acceptance band.
	DefaultVertexBudget    = 250000
	DefaultVertexTolerance = 2000
)

// FindBestMeshSize picks the tessellation (columns, rows) whose vertex count
// falls within target±tolerance and whose columns/rows ratio best matches
// the image aspect ratio. Returns (0, 0) when no candidate qualifies;
// callers must treat that as "cannot determine tessellation".
func FindBestMeshSize(width, height, target, tolerance int) (columns, rows int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	aspect := float64(width) / float64(height)
	bestDelta := math.Inf(1)
	for t := target - tolerance; t <= target+tolerance; t++ {
		c := int(math.Round(math.Sqrt(float64(t) * aspect)))
		if c <= 0 {
			continue
		}
		r := int(math.Round(float64(t) / float64(c)))
		if r <= 0 {
			continue
		}
		total := c * r
		if total < target-tolerance || total > target+tolerance {
			continue
		}
		delta := math.Abs(float64(c)/float64(r) - aspect)
		if delta < bestDelta {
			bestDelta = delta
			columns, rows = c, r
		}
	}
	return columns, rows
}
