// Package grid implements the combiner's 3D lattice: pure integer-indexed
// arithmetic over a union bounding box, deliberately avoiding
// floating-point cell centers so adjacent cells share exact boundary
// coordinates (spec.md §9, "Integer cell arithmetic").
package grid

import (
	"fmt"
	"math"

	"github.com/NASA-AMMOS/Landform-sub003/geom"
)

// Grid is a 3D lattice of cells covering a union bounding box. Cells are
// addressed by (i, j, k) with i ranging over Y, j over X, k over Z (the
// axis assignment spec.md §3 spells out), and linearized Z-slowest:
// k*gx*gy + i*gx + j.
type Grid struct {
	min       geom.Vec3
	cellSize  float64
	aspect    float64 // effective Z/XY cell size ratio
	gx, gy, gz int
}

// New derives a grid covering union at the given XY cell size and Z
// aspect. If cellAspect is <= 0, the grid collapses to a single Z layer
// spanning the full vertical extent of union (spec.md §3's recommended
// default, avoiding striation on gently sloped terrain — spec.md §8, S6).
// cellSize must be > 0.
func New(union geom.Aabb, cellSize, cellAspect float64) (*Grid, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("grid: cell_size must be positive, got %g", cellSize)
	}
	if union.Empty() {
		union = geom.Aabb{} // zero-extent box: every dimension collapses to 1 cell below
	}

	extent := union.Extent()

	var aspect float64
	var gz int
	if cellAspect > 0 {
		aspect = cellAspect
		gz = ceilDiv(extent.Z, cellSize*aspect)
	} else {
		// Single full-height Z layer: one cell whose height is exactly the
		// union's Z extent (or cellSize if that extent is zero).
		height := extent.Z
		if height <= 0 {
			height = cellSize
		}
		aspect = height / cellSize
		gz = 1
	}

	gx := ceilDiv(extent.X, cellSize)
	gy := ceilDiv(extent.Y, cellSize)

	return &Grid{
		min:      union.Min,
		cellSize: cellSize,
		aspect:   aspect,
		gx:       gx,
		gy:       gy,
		gz:       gz,
	}, nil
}

func ceilDiv(extent, step float64) int {
	if extent <= 0 {
		return 1
	}
	n := int(math.Ceil(extent / step))
	if n < 1 {
		n = 1
	}
	return n
}

// TotalCells returns gx*gy*gz.
func (g *Grid) TotalCells() int {
	return g.gx * g.gy * g.gz
}

// Dims returns (gy, gx, gz) — the per-axis cell counts in the same order
// spec.md §3 enumerates them (i in [0,gy), j in [0,gx), k in [0,gz)).
func (g *Grid) Dims() (gy, gx, gz int) {
	return g.gy, g.gx, g.gz
}

// LinearToIJK converts a linear cell index to (i, j, k).
func (g *Grid) LinearToIJK(n int) (i, j, k int) {
	gxgy := g.gx * g.gy
	k = n / gxgy
	rem := n % gxgy
	i = rem / g.gx
	j = rem % g.gx
	return i, j, k
}

// IJKToLinear converts (i, j, k) to its linear cell index.
func (g *Grid) IJKToLinear(i, j, k int) int {
	return k*g.gx*g.gy + i*g.gx + j
}

// CellBounds returns the axis-aligned bounds of cell (i, j, k), expressed
// as g.min + integer_index*step so adjacent cells share exact boundary
// values.
func (g *Grid) CellBounds(i, j, k int) geom.Aabb {
	s := g.cellSize
	zs := g.cellSize * g.aspect
	return geom.Aabb{
		Min: geom.Vec3{X: g.min.X + float64(j)*s, Y: g.min.Y + float64(i)*s, Z: g.min.Z + float64(k)*zs},
		Max: geom.Vec3{X: g.min.X + float64(j+1)*s, Y: g.min.Y + float64(i+1)*s, Z: g.min.Z + float64(k+1)*zs},
	}
}

// NeighborhoodBounds returns the cell's bounds scaled 3x about the cell
// center, widening the candidate set used for MSE pruning (spec.md §3).
func (g *Grid) NeighborhoodBounds(i, j, k int) geom.Aabb {
	return g.CellBounds(i, j, k).ScaleAboutCenter(3)
}

// Contains reports whether p lies in cell (i, j, k) under the
// "closed-on-max only for the last cell along that axis" rule, so every
// point is assigned to exactly one cell (spec.md §3, invariant P6).
func (g *Grid) Contains(i, j, k int, p geom.Vec3) bool {
	b := g.CellBounds(i, j, k)
	return b.Contains(p, j == g.gx-1, i == g.gy-1, k == g.gz-1)
}
