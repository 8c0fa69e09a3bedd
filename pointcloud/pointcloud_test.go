package pointcloud

import (
	"image/color"
	"testing"

	"go.viam.com/test"

	"github.com/NASA-AMMOS/Landform-sub003/geom"
)

func TestAppendAndLen(t *testing.T) {
	pc := New(false, false, true, 0)
	test.That(t, pc.Len(), test.ShouldEqual, 0)

	pc.Append(Vertex{Position: geom.Vec3{X: 1, Y: 2, Z: 3}, Color: color.NRGBA{R: 255, A: 255}})
	pc.Append(Vertex{Position: geom.Vec3{X: -1, Y: 0, Z: 0}})

	test.That(t, pc.Len(), test.ShouldEqual, 2)
	test.That(t, pc.Vertex(0).Position, test.ShouldResemble, geom.Vec3{X: 1, Y: 2, Z: 3})
	test.That(t, pc.HasColors(), test.ShouldBeTrue)
	test.That(t, pc.HasNormals(), test.ShouldBeFalse)
}

func TestBoundsCache(t *testing.T) {
	pc := New(false, false, false, 0)
	pc.Append(Vertex{Position: geom.Vec3{X: 0, Y: 0, Z: 0}})
	pc.Append(Vertex{Position: geom.Vec3{X: 2, Y: 3, Z: -1}})

	b := pc.Bounds()
	test.That(t, b.Min, test.ShouldResemble, geom.Vec3{X: 0, Y: 0, Z: -1})
	test.That(t, b.Max, test.ShouldResemble, geom.Vec3{X: 2, Y: 3, Z: 0})

	// appending invalidates the cache
	pc.Append(Vertex{Position: geom.Vec3{X: 10, Y: 0, Z: 0}})
	b = pc.Bounds()
	test.That(t, b.Max.X, test.ShouldEqual, 10.0)
}

func TestClone(t *testing.T) {
	pc := New(true, false, false, 0)
	pc.Append(Vertex{Position: geom.Vec3{X: 1, Y: 1, Z: 1}, Normal: geom.Vec3{X: 0, Y: 0, Z: 1}})

	clone := pc.Clone()
	test.That(t, clone.Len(), test.ShouldEqual, 1)
	test.That(t, clone.Vertex(0), test.ShouldResemble, pc.Vertex(0))

	// mutating the clone must not alias the original
	clone.Append(Vertex{Position: geom.Vec3{X: 9, Y: 9, Z: 9}})
	test.That(t, pc.Len(), test.ShouldEqual, 1)
	test.That(t, clone.Len(), test.ShouldEqual, 2)
}

func TestCloudCentroid(t *testing.T) {
	pc := New(false, false, false, 0)
	test.That(t, CloudCentroid(pc), test.ShouldResemble, geom.Vec3{})

	pc.Append(Vertex{Position: geom.Vec3{X: 0, Y: 0, Z: 0}})
	pc.Append(Vertex{Position: geom.Vec3{X: 10, Y: 20, Z: 30}})
	test.That(t, CloudCentroid(pc), test.ShouldResemble, geom.Vec3{X: 5, Y: 10, Z: 15})
}

func TestMatrix(t *testing.T) {
	pc := New(false, false, false, 0)
	test.That(t, pc.Matrix(), test.ShouldBeNil)

	pc.Append(Vertex{Position: geom.Vec3{X: 1, Y: 2, Z: 3}})
	pc.Append(Vertex{Position: geom.Vec3{X: 4, Y: 5, Z: 6}})
	m := pc.Matrix()
	r, c := m.Dims()
	test.That(t, r, test.ShouldEqual, 2)
	test.That(t, c, test.ShouldEqual, 3)
	test.That(t, m.At(1, 0), test.ShouldEqual, 4.0)
}

func TestPositions(t *testing.T) {
	pc := New(false, false, false, 0)
	pc.Append(Vertex{Position: geom.Vec3{X: 1, Y: 0, Z: 0}})
	pc.Append(Vertex{Position: geom.Vec3{X: 0, Y: 1, Z: 0}})
	pts := pc.Positions()
	test.That(t, pts, test.ShouldHaveLength, 2)
	test.That(t, pts[1], test.ShouldResemble, geom.Vec3{X: 0, Y: 1, Z: 0})
}
