// Package spatialindex defines the range-query contract the combiner
// needs over a single point cloud's positions, and provides a bulk-built
// uniform-voxel-bucket implementation of it.
//
// spec.md §9 notes the original implementation used a 3D R-tree only to
// match a library idiosyncrasy, and explicitly frees a reimplementation to
// pick any index satisfying the contract: sub-linear query time, expected
// O(N log N) construction. A uniform grid at a size derived from the
// cloud's own density is a simple, good fit for this workload.
package spatialindex

import (
	"math"

	"github.com/NASA-AMMOS/Landform-sub003/geom"
)

// Index answers "which indices have a position inside this rectangle"
// against the point set it was built from.
type Index interface {
	// QueryRect returns every index whose point lies inside r under
	// fully-closed intervals on all axes. No duplicates; no ordering
	// guarantee; points exactly on the boundary may be returned.
	QueryRect(r geom.Rect) []int
}

type cellKey struct {
	i, j, k int32
}

// gridIndex buckets point indices by voxel cell at a resolution chosen
// from the input's bounds and count, so that an average bucket holds a
// small, roughly constant number of points regardless of cloud size.
type gridIndex struct {
	origin   geom.Vec3
	cellSize float64
	buckets  map[cellKey][]int
	points   []geom.Vec3
}

// Build bulk-inserts points (indexed 0..len(points)) into a fresh Index.
// Expected O(N log N) — in practice O(N) average, since bucket assignment
// is O(1) per point and buckets are visited, not sorted.
func Build(points []geom.Vec3) Index {
	idx := &gridIndex{buckets: make(map[cellKey][]int, len(points)), points: points}
	if len(points) == 0 {
		idx.cellSize = 1
		return idx
	}

	b := geom.EmptyAabb()
	for _, p := range points {
		b = b.UnionPoint(p)
	}
	idx.origin = b.Min

	idx.cellSize = chooseCellSize(b, len(points))

	for i, p := range points {
		key := idx.keyFor(p)
		idx.buckets[key] = append(idx.buckets[key], i)
	}
	return idx
}

// chooseCellSize targets roughly one point per bucket on average: a cube
// root of (volume / N), floored against the box's own extent so a
// degenerate (planar or linear) cloud still gets a usable, non-zero size.
func chooseCellSize(b geom.Aabb, n int) float64 {
	e := b.Extent()
	maxExtent := math.Max(e.X, math.Max(e.Y, e.Z))
	if maxExtent <= 0 {
		return 1
	}
	volume := math.Max(e.X, 1e-9) * math.Max(e.Y, 1e-9) * math.Max(e.Z, 1e-9)
	size := math.Cbrt(volume / float64(n))
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		size = maxExtent / math.Cbrt(float64(n)+1)
	}
	if size <= 0 {
		size = maxExtent
	}
	return size
}

func (idx *gridIndex) keyFor(p geom.Vec3) cellKey {
	return cellKey{
		i: int32(math.Floor((p.X - idx.origin.X) / idx.cellSize)),
		j: int32(math.Floor((p.Y - idx.origin.Y) / idx.cellSize)),
		k: int32(math.Floor((p.Z - idx.origin.Z) / idx.cellSize)),
	}
}

func (idx *gridIndex) QueryRect(r geom.Rect) []int {
	if len(idx.buckets) == 0 {
		return nil
	}

	lo := idx.keyFor(r.Min)
	hi := idx.keyFor(r.Max)

	var out []int
	for i := lo.i; i <= hi.i; i++ {
		for j := lo.j; j <= hi.j; j++ {
			for k := lo.k; k <= hi.k; k++ {
				bucket, ok := idx.buckets[cellKey{i, j, k}]
				if !ok {
					continue
				}
				for _, pointIdx := range bucket {
					if r.ContainsClosed(idx.points[pointIdx]) {
						out = append(out, pointIdx)
					}
				}
			}
		}
	}
	return out
}
