// Package geom provides the small set of 3D geometry primitives the
// combiner depends on: a vector type and an axis-aligned bounding box with
// the per-axis containment rules the grid needs.
package geom

import (
	"math"

	"github.com/golang/geo/r3"
)

// Vec3 is the combiner's point/vector type. It is the teacher's own
// r3.Vector rather than a reinvented struct.
type Vec3 = r3.Vector

// Finite reports whether every component of v is finite (not NaN/Inf).
func Finite(v Vec3) bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
