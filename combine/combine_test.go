package combine

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"

	"github.com/NASA-AMMOS/Landform-sub003/geom"
	"github.com/NASA-AMMOS/Landform-sub003/pointcloud"
)

func vertexAt(x, y, z float64) pointcloud.Vertex {
	return pointcloud.Vertex{Position: geom.Vec3{X: x, Y: y, Z: z}}
}

func cloudOf(points ...pointcloud.Vertex) *pointcloud.PointCloud {
	pc := pointcloud.New(false, false, false, len(points))
	for _, v := range points {
		pc.Append(v)
	}
	return pc
}

// S1: zero clouds.
func TestCombineEmptyInput(t *testing.T) {
	out, stats, err := Combine(context.Background(), nil, nil, DefaultConfig(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Len(), test.ShouldEqual, 0)
	test.That(t, stats.LargestCellPopulation, test.ShouldEqual, 0)
}

// S2: one cloud, no cap -> passthrough clone, not an alias.
func TestCombineSingleCloudUncappedIsPassthrough(t *testing.T) {
	src := cloudOf(vertexAt(0, 0, 0), vertexAt(1, 1, 1), vertexAt(2, 2, 2))
	cfg := DefaultConfig()
	cfg.MaxPointsPerCell = 0

	out, _, err := Combine(context.Background(), []*pointcloud.PointCloud{src}, nil, cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Len(), test.ShouldEqual, src.Len())
	test.That(t, out, test.ShouldNotEqual, src)
}

// S3: several clouds with identical duplicate points collapse under the cap.
func TestCombineIdenticalCloudsDedupe(t *testing.T) {
	a := cloudOf(vertexAt(0.001, 0.001, 0.001))
	b := cloudOf(vertexAt(0.001, 0.001, 0.001))
	c := cloudOf(vertexAt(0.001, 0.001, 0.001))

	cfg := DefaultConfig()
	cfg.CellSize = 1
	cfg.MaxPointsPerCell = 2

	out, _, err := Combine(context.Background(), []*pointcloud.PointCloud{a, b, c}, nil, cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Len(), test.ShouldEqual, 2)
}

// S4: a cloud whose origin is far from a cell is pruned from it, leaving
// only the near cloud's points.
func TestCombineOriginDistancePruning(t *testing.T) {
	near := cloudOf(vertexAt(0.5, 0.5, 0.5))
	far := cloudOf(vertexAt(0.5, 0.5, 0.5))

	cfg := DefaultConfig()
	cfg.CellSize = 1
	cfg.MaxPointsPerCell = 0

	origins := []geom.Vec3{
		{X: 0.5, Y: 0.5, Z: 10}, // near cloud's origin: right above the cell
		{X: 50, Y: 50, Z: 10},   // far cloud's origin: much farther away in XY
	}

	out, _, err := Combine(context.Background(), []*pointcloud.PointCloud{near, far}, origins, cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Len(), test.ShouldEqual, 1)
}

// S5: a cloud with a clear outlier offset is pruned first by NN-RMSE. The
// two remaining clouds are still compared against every cloud in the cell's
// neighborhood, the pruned outlier included, so their MSE stays above
// MAX_RMSE^2 and the two-cloud tie-break then drops the first of them in
// ascending-size order, leaving one cloud's points.
func TestCombineRMSEPruningRemovesOutlierCloud(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	jittered := func(base geom.Vec3, n int) *pointcloud.PointCloud {
		pc := pointcloud.New(false, false, false, n)
		for i := 0; i < n; i++ {
			pc.Append(vertexAt(
				base.X+r.Float64()*0.0005,
				base.Y+r.Float64()*0.0005,
				base.Z+r.Float64()*0.0005,
			))
		}
		return pc
	}

	a := jittered(geom.Vec3{X: 0.5, Y: 0.5, Z: 0.5}, 20)
	b := jittered(geom.Vec3{X: 0.5, Y: 0.5, Z: 0.5}, 20)
	outlier := jittered(geom.Vec3{X: 0.9, Y: 0.9, Z: 0.9}, 20)

	cfg := DefaultConfig()
	cfg.CellSize = 1
	cfg.MaxPointsPerCell = 0

	out, _, err := Combine(context.Background(), []*pointcloud.PointCloud{a, b, outlier}, nil, cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Len(), test.ShouldEqual, a.Len())
}

// I4: the combined cloud never contains more vertices than the sum of the
// inputs.
func TestCombineOutputNoLargerThanInput(t *testing.T) {
	a := cloudOf(vertexAt(0, 0, 0), vertexAt(0.3, 0.3, 0.3))
	b := cloudOf(vertexAt(0.6, 0.6, 0.6))

	out, _, err := Combine(context.Background(), []*pointcloud.PointCloud{a, b}, nil, DefaultConfig(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Len(), test.ShouldBeLessThanOrEqualTo, a.Len()+b.Len())
}

// P5: the output cloud's channel flags are the OR of every input cloud's.
func TestCombineChannelUnion(t *testing.T) {
	withNormals := pointcloud.New(true, false, false, 1)
	withNormals.Append(vertexAt(0, 0, 0))
	withColors := pointcloud.New(false, false, true, 1)
	withColors.Append(vertexAt(1, 1, 1))

	out, _, err := Combine(context.Background(), []*pointcloud.PointCloud{withNormals, withColors}, nil, DefaultConfig(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.HasNormals(), test.ShouldBeTrue)
	test.That(t, out.HasColors(), test.ShouldBeTrue)
	test.That(t, out.HasUVs(), test.ShouldBeFalse)
}

func TestCombineRejectsNonPositiveCellSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CellSize = 0
	_, _, err := Combine(context.Background(), []*pointcloud.PointCloud{cloudOf(vertexAt(0, 0, 0))}, nil, cfg, nil)
	test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
}

func TestCombineRejectsOriginsLongerThanClouds(t *testing.T) {
	clouds := []*pointcloud.PointCloud{cloudOf(vertexAt(0, 0, 0))}
	origins := []geom.Vec3{{}, {}}
	_, _, err := Combine(context.Background(), clouds, origins, DefaultConfig(), nil)
	test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
}

func TestCombineRejectsNonFinitePosition(t *testing.T) {
	bad := cloudOf(vertexAt(math.NaN(), 0, 0))
	_, _, err := Combine(context.Background(), []*pointcloud.PointCloud{bad}, nil, DefaultConfig(), nil)
	test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
}

// P6: every cell assigns each point to exactly one cell, so the population
// cap applies per cell, not globally.
func TestCombineCapAppliesPerCell(t *testing.T) {
	near := []pointcloud.Vertex{vertexAt(0.1, 0.1, 0.1), vertexAt(0.2, 0.2, 0.2), vertexAt(0.3, 0.3, 0.3)}
	far := []pointcloud.Vertex{vertexAt(5.1, 5.1, 5.1), vertexAt(5.2, 5.2, 5.2), vertexAt(5.3, 5.3, 5.3)}
	pc := cloudOf(append(near, far...)...)

	cfg := DefaultConfig()
	cfg.CellSize = 1
	cfg.MaxPointsPerCell = 2

	out, _, err := Combine(context.Background(), []*pointcloud.PointCloud{pc}, nil, cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Len(), test.ShouldEqual, 4) // 2 kept from each of 2 cells
}

func TestCombineIsDeterministicForFixedSeed(t *testing.T) {
	pts := make([]pointcloud.Vertex, 0, 10)
	r := rand.New(rand.NewSource(9))
	for i := 0; i < 10; i++ {
		pts = append(pts, vertexAt(r.Float64()*0.5, r.Float64()*0.5, r.Float64()*0.5))
	}
	src := cloudOf(pts...)

	cfg := DefaultConfig()
	cfg.CellSize = 1
	cfg.MaxPointsPerCell = 3
	cfg.Seed = 77

	out1, _, err := Combine(context.Background(), []*pointcloud.PointCloud{src}, nil, cfg, nil)
	test.That(t, err, test.ShouldBeNil)
	out2, _, err := Combine(context.Background(), []*pointcloud.PointCloud{src}, nil, cfg, nil)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, out1.Len(), test.ShouldEqual, out2.Len())
	for i := 0; i < out1.Len(); i++ {
		test.That(t, out1.Vertex(i).Position, test.ShouldResemble, out2.Vertex(i).Position)
	}
}
