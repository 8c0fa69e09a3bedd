package geom

import "math"

// Aabb is an axis-aligned bounding box. Rect is the same type under the
// name spec.md §4.1 uses for the spatial index's range-query argument.
type Aabb struct {
	Min, Max Vec3
}

// Rect is the 3D rectangle the spatial index is queried with.
type Rect = Aabb

// EmptyAabb returns a box with Min > Max on every axis, the identity
// element for Union.
func EmptyAabb() Aabb {
	return Aabb{
		Min: Vec3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: Vec3{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
}

// FromPoint returns the degenerate box containing exactly p.
func FromPoint(p Vec3) Aabb {
	return Aabb{Min: p, Max: p}
}

// Empty reports whether the box contains no points (Min > Max on some axis).
func (a Aabb) Empty() bool {
	return a.Min.X > a.Max.X || a.Min.Y > a.Max.Y || a.Min.Z > a.Max.Z
}

// Union returns the smallest box containing both a and b.
func (a Aabb) Union(b Aabb) Aabb {
	if a.Empty() {
		return b
	}
	if b.Empty() {
		return a
	}
	return Aabb{
		Min: Vec3{X: min(a.Min.X, b.Min.X), Y: min(a.Min.Y, b.Min.Y), Z: min(a.Min.Z, b.Min.Z)},
		Max: Vec3{X: max(a.Max.X, b.Max.X), Y: max(a.Max.Y, b.Max.Y), Z: max(a.Max.Z, b.Max.Z)},
	}
}

// UnionPoint returns a grown to include p; a itself is not modified.
func (a Aabb) UnionPoint(p Vec3) Aabb {
	return a.Union(FromPoint(p))
}

// Extent returns Max - Min componentwise.
func (a Aabb) Extent() Vec3 {
	return Vec3{X: a.Max.X - a.Min.X, Y: a.Max.Y - a.Min.Y, Z: a.Max.Z - a.Min.Z}
}

// Center returns the midpoint of the box.
func (a Aabb) Center() Vec3 {
	e := a.Extent()
	return Vec3{X: a.Min.X + e.X/2, Y: a.Min.Y + e.Y/2, Z: a.Min.Z + e.Z/2}
}

// Intersects reports whether a and b share at least one point (closed
// intervals on both boxes).
func (a Aabb) Intersects(b Aabb) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// Contains reports whether p lies in the box. includeMaxX/Y/Z select
// whether the upper bound on that axis is closed; when false the upper
// bound is exclusive. This is the "closed on max only for the last cell
// along an axis" rule from spec.md §3/§4.2.
func (a Aabb) Contains(p Vec3, includeMaxX, includeMaxY, includeMaxZ bool) bool {
	if p.X < a.Min.X || (includeMaxX && p.X > a.Max.X) || (!includeMaxX && p.X >= a.Max.X) {
		return false
	}
	if p.Y < a.Min.Y || (includeMaxY && p.Y > a.Max.Y) || (!includeMaxY && p.Y >= a.Max.Y) {
		return false
	}
	if p.Z < a.Min.Z || (includeMaxZ && p.Z > a.Max.Z) || (!includeMaxZ && p.Z >= a.Max.Z) {
		return false
	}
	return true
}

// ContainsClosed reports whether p lies in the box under fully closed
// intervals on every axis — the contract spatialindex.Index.QueryRect uses.
func (a Aabb) ContainsClosed(p Vec3) bool {
	return a.Contains(p, true, true, true)
}

// ScaleAboutCenter returns the box scaled by factor about its own center —
// used to derive neighborhood bounds (3x cell bounds) from cell bounds.
func (a Aabb) ScaleAboutCenter(factor float64) Aabb {
	c := a.Center()
	e := a.Extent()
	half := Vec3{X: e.X * factor / 2, Y: e.Y * factor / 2, Z: e.Z * factor / 2}
	return Aabb{
		Min: Vec3{X: c.X - half.X, Y: c.Y - half.Y, Z: c.Z - half.Z},
		Max: Vec3{X: c.X + half.X, Y: c.Y + half.Y, Z: c.Z + half.Z},
	}
}
