package pointcloud

import (
	"github.com/NASA-AMMOS/Landform-sub003/geom"
	"gonum.org/v1/gonum/mat"
)

// CloudCentroid returns the mean position of pc's vertices, or the zero
// vector for an empty cloud. Mirrors the teacher's CloudCentroid utility;
// it is not used by the combiner, only by tests sanity-checking output.
func CloudCentroid(pc *PointCloud) geom.Vec3 {
	n := pc.Len()
	if n == 0 {
		return geom.Vec3{}
	}
	var sum geom.Vec3
	for _, v := range pc.Vertices() {
		sum.X += v.Position.X
		sum.Y += v.Position.Y
		sum.Z += v.Position.Z
	}
	return geom.Vec3{X: sum.X / float64(n), Y: sum.Y / float64(n), Z: sum.Z / float64(n)}
}

// Matrix returns pc's vertex positions as an N x 3 gonum matrix, or nil
// for an empty cloud. Mirrors the teacher's CloudMatrix utility.
func (pc *PointCloud) Matrix() *mat.Dense {
	n := pc.Len()
	if n == 0 {
		return nil
	}
	data := make([]float64, 0, n*3)
	for _, v := range pc.Vertices() {
		data = append(data, v.Position.X, v.Position.Y, v.Position.Z)
	}
	return mat.NewDense(n, 3, data)
}
