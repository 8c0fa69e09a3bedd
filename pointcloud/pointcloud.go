// Package pointcloud is the owning point/vertex container the combiner
// reads from and writes to. It does not know about acquisition geometry,
// files, or meshes — those are out-of-scope collaborators.
package pointcloud

import (
	"image/color"
	"sync"

	"github.com/NASA-AMMOS/Landform-sub003/geom"
)

// UV is a texture coordinate. It is its own tiny struct rather than
// geom.Vec3 because a UV is 2D and has no spatial meaning to the combiner.
type UV struct {
	U, V float64
}

// Vertex is one point in a cloud: a required position plus optional
// normal, UV, and color channels. Whether a channel is meaningful for a
// given vertex is a property of the enclosing cloud (PointCloud.HasNormals
// etc.), not of the vertex itself.
type Vertex struct {
	Position geom.Vec3
	Normal   geom.Vec3
	UV       UV
	Color    color.NRGBA
}

// PointCloud is an ordered, owning sequence of vertices with per-channel
// availability flags and a cached bounding box.
type PointCloud struct {
	vertices []Vertex

	hasNormals bool
	hasUVs     bool
	hasColors  bool

	boundsOnce sync.Once
	bounds     geom.Aabb
}

// New returns an empty cloud with the given channel flags and a
// preallocated capacity hint.
func New(hasNormals, hasUVs, hasColors bool, capacityHint int) *PointCloud {
	return &PointCloud{
		vertices:   make([]Vertex, 0, capacityHint),
		hasNormals: hasNormals,
		hasUVs:     hasUVs,
		hasColors:  hasColors,
	}
}

// Append adds v to the cloud. Appending invalidates any previously
// computed bounds cache.
func (pc *PointCloud) Append(v Vertex) {
	pc.vertices = append(pc.vertices, v)
	pc.boundsOnce = sync.Once{}
}

// Len returns the number of vertices in the cloud.
func (pc *PointCloud) Len() int {
	return len(pc.vertices)
}

// Vertex returns the vertex at i.
func (pc *PointCloud) Vertex(i int) Vertex {
	return pc.vertices[i]
}

// Vertices returns the cloud's vertices. The caller must not mutate the
// returned slice; it aliases the cloud's internal storage.
func (pc *PointCloud) Vertices() []Vertex {
	return pc.vertices
}

// Positions returns the position of every vertex, in order. Used to build
// a spatialindex.Index over the cloud.
func (pc *PointCloud) Positions() []geom.Vec3 {
	pts := make([]geom.Vec3, len(pc.vertices))
	for i, v := range pc.vertices {
		pts[i] = v.Position
	}
	return pts
}

// HasNormals, HasUVs, and HasColors report the cloud's channel
// availability.
func (pc *PointCloud) HasNormals() bool { return pc.hasNormals }
func (pc *PointCloud) HasUVs() bool     { return pc.hasUVs }
func (pc *PointCloud) HasColors() bool  { return pc.hasColors }

// Bounds returns the axis-aligned box enclosing every vertex position,
// computed on first demand and cached thereafter.
func (pc *PointCloud) Bounds() geom.Aabb {
	pc.boundsOnce.Do(func() {
		b := geom.EmptyAabb()
		for _, v := range pc.vertices {
			b = b.UnionPoint(v.Position)
		}
		pc.bounds = b
	})
	return pc.bounds
}

// Clone returns a deep copy of pc. Used by the combiner's single-cloud,
// uncapped fast path, where the caller's cloud is returned unchanged but
// the combiner must still allocate a new cloud (it never aliases input
// storage — spec.md §3's output invariant).
func (pc *PointCloud) Clone() *PointCloud {
	out := New(pc.hasNormals, pc.hasUVs, pc.hasColors, len(pc.vertices))
	out.vertices = append(out.vertices, pc.vertices...)
	return out
}
