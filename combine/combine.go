// Package combine implements the deduplicating multi-cloud combiner:
// spec.md's core algorithm. It fuses overlapping point clouds captured
// from different viewpoints into a single consistent cloud by dispatching
// per-cell filtering work (origin-distance pruning, nearest-neighbor MSE
// pruning, population capping) across a bounded worker pool.
package combine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/NASA-AMMOS/Landform-sub003/geom"
	"github.com/NASA-AMMOS/Landform-sub003/grid"
	"github.com/NASA-AMMOS/Landform-sub003/logging"
	"github.com/NASA-AMMOS/Landform-sub003/parallel"
	"github.com/NASA-AMMOS/Landform-sub003/pointcloud"
	"github.com/NASA-AMMOS/Landform-sub003/rng"
	"github.com/NASA-AMMOS/Landform-sub003/spatialindex"
)

// Fixed internal constants (spec.md §4.4). Not exposed through Config.
const (
	minDistRange       = 1.2
	maxMSESamples      = 30
	smallestNNDistance = 0.001
	maxRMSE            = 0.02
)

var (
	minDistRangeSq       = minDistRange * minDistRange
	smallestNNDistanceSq = smallestNNDistance * smallestNNDistance
	maxRMSESq            = maxRMSE * maxRMSE
)

// Combine fuses clouds into a single deduplicated output cloud.
//
// origins, when non-nil, gives one acquisition point per cloud; it may be
// shorter than clouds, in which case clouds beyond its length are treated
// as having no origin and are exempt from origin-distance pruning. It is
// an error for origins to be longer than clouds.
//
// logger may be nil, in which case progress events are discarded.
func Combine(
	ctx context.Context,
	clouds []*pointcloud.PointCloud,
	origins []geom.Vec3,
	cfg Config,
	logger logging.Logger,
) (*pointcloud.PointCloud, Stats, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, Stats{}, err
	}
	if len(origins) > len(clouds) {
		return nil, Stats{}, fmt.Errorf("%w: origins has %d entries for %d clouds", ErrInvalidArgument, len(origins), len(clouds))
	}

	// Fast path (a): zero clouds.
	if len(clouds) == 0 {
		return pointcloud.New(false, false, false, 0), Stats{}, nil
	}

	// Fast path (b): one cloud, no cap -> copy of that cloud, no filtering.
	if len(clouds) == 1 && cfg.MaxPointsPerCell <= 0 {
		if err := validateFinitePositions(clouds[0]); err != nil {
			return nil, Stats{}, err
		}
		return clouds[0].Clone(), Stats{}, nil
	}

	indexLogger := logger.Sublogger("combine.index")
	indexLogger.Infow("building indices", "clouds", len(clouds))

	perCloud, err := buildPerCloudState(clouds, cfg.MaxWorkers)
	if err != nil {
		return nil, Stats{}, err
	}

	union := geom.EmptyAabb()
	totalInput := 0
	hasNormals, hasUVs, hasColors := false, false, false
	for c, cloud := range clouds {
		union = union.Union(perCloud[c].bounds)
		totalInput += cloud.Len()
		hasNormals = hasNormals || cloud.HasNormals()
		hasUVs = hasUVs || cloud.HasUVs()
		hasColors = hasColors || cloud.HasColors()
	}

	g, err := grid.New(union, cfg.CellSize, cfg.CellAspect)
	if err != nil {
		return nil, Stats{}, err
	}

	cellLogger := logger.Sublogger("combine.cells")
	cellLogger.Infow("pruning cells", "total_cells", g.TotalCells())

	output := pointcloud.New(hasNormals, hasUVs, hasColors, totalInput)
	var outputMu sync.Mutex

	smallest := atomic.NewInt64(math.MaxInt64)
	largest := atomic.NewInt64(0)

	rngSrc := newLockedSource(rng.New(cfg.Seed))

	exec := parallel.New(cfg.MaxWorkers)
	runErr := exec.Run(
		g.TotalCells(),
		func(worker int) any { return newCellWorker() },
		func(state any, cellN int) {
			w := state.(*cellWorker)
			kept := w.processCell(cellN, g, clouds, perCloud, origins, cfg, rngSrc)
			casMin(smallest, int64(kept))
			casMax(largest, int64(kept))
		},
		func(state any) {
			w := state.(*cellWorker)
			outputMu.Lock()
			for _, v := range w.keepers {
				output.Append(v)
			}
			outputMu.Unlock()
		},
	)
	if runErr != nil {
		return nil, Stats{}, runErr
	}

	if smallest.Load() == math.MaxInt64 {
		smallest.Store(0)
	}

	cellLogger.Infow("kept vertices", "count", output.Len())

	return output, Stats{
		SmallestCellPopulation: int(smallest.Load()),
		LargestCellPopulation:  int(largest.Load()),
	}, nil
}

func validateFinitePositions(cloud *pointcloud.PointCloud) error {
	for i := 0; i < cloud.Len(); i++ {
		if !geom.Finite(cloud.Vertex(i).Position) {
			return fmt.Errorf("%w: vertex %d has a non-finite position", ErrInvalidArgument, i)
		}
	}
	return nil
}

// cloudState is the per-cloud result of the first parallel phase: bounds
// and a spatial index. Validation errors are collected separately.
type cloudState struct {
	bounds geom.Aabb
	index  spatialindex.Index
}

// buildPerCloudState validates and indexes every cloud independently and
// in parallel (spec.md §5 phase 1: "one independent task per input cloud;
// no shared mutable state"). Each worker writes only to indices disjoint
// from every other worker's, so no lock is needed around the results
// slice itself.
func buildPerCloudState(clouds []*pointcloud.PointCloud, maxWorkers int) ([]cloudState, error) {
	results := make([]cloudState, len(clouds))
	errs := make([]error, len(clouds))

	exec := parallel.New(maxWorkers)
	err := exec.Run(
		len(clouds),
		func(worker int) any { return nil },
		func(_ any, c int) {
			cloud := clouds[c]
			if verr := validateFinitePositions(cloud); verr != nil {
				errs[c] = fmt.Errorf("cloud %d: %w", c, verr)
				return
			}
			results[c] = cloudState{
				bounds: cloud.Bounds(),
				index:  spatialindex.Build(cloud.Positions()),
			}
		},
		func(_ any) {},
	)
	if err != nil {
		return nil, err
	}

	joined := multierr.Combine(errs...)
	if joined != nil {
		return nil, joined
	}
	return results, nil
}

func casMin(c *atomic.Int64, v int64) {
	for {
		cur := c.Load()
		if v >= cur {
			return
		}
		if c.CAS(cur, v) {
			return
		}
	}
}

func casMax(c *atomic.Int64, v int64) {
	for {
		cur := c.Load()
		if v <= cur {
			return
		}
		if c.CAS(cur, v) {
			return
		}
	}
}

// lockedSource wraps an rng.Source with a mutex so the single combiner-
// owned RNG instance (spec.md §9: "owned by the combiner instance, not
// process-global") can be shared safely across concurrent cell workers.
type lockedSource struct {
	mu  sync.Mutex
	src rng.Source
}

func newLockedSource(src rng.Source) *lockedSource {
	return &lockedSource{src: src}
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *lockedSource) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}

func (l *lockedSource) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.src.Shuffle(n, swap)
}

// cellWorker holds the thread-local scratch buffers spec.md §9 requires:
// allocated once per worker, cleared (not reallocated) between cells.
type cellWorker struct {
	keepers []pointcloud.Vertex

	order  []int
	inCell map[int][]int
	nbhd   map[int][]int

	samples    []int
	allDists   []float64
	capScratch []capPoint
}

type capPoint struct {
	cloud int
	idx   int
}

func newCellWorker() *cellWorker {
	return &cellWorker{
		inCell: make(map[int][]int),
		nbhd:   make(map[int][]int),
	}
}

// processCell runs the full per-cell pipeline (spec.md §4.4 A-E) for cell
// cellN and returns the number of vertices kept from it.
func (w *cellWorker) processCell(
	cellN int,
	g *grid.Grid,
	clouds []*pointcloud.PointCloud,
	perCloud []cloudState,
	origins []geom.Vec3,
	cfg Config,
	rngSrc rng.Source,
) int {
	i, j, k := g.LinearToIJK(cellN)
	cellBounds := g.CellBounds(i, j, k)
	nbBounds := g.NeighborhoodBounds(i, j, k)

	gy, gx, gz := g.Dims()
	lastX := j == gx-1
	lastY := i == gy-1
	lastZ := k == gz-1

	clear(w.inCell)
	clear(w.nbhd)
	w.order = w.order[:0]

	// A: candidate collection.
	for c, cloud := range clouds {
		if !perCloud[c].bounds.Intersects(nbBounds) {
			continue
		}
		nbIdx := perCloud[c].index.QueryRect(nbBounds)
		if len(nbIdx) == 0 {
			continue
		}
		w.nbhd[c] = nbIdx

		var inCellIdx []int
		for _, pidx := range nbIdx {
			p := cloud.Vertex(pidx).Position
			if cellBounds.Contains(p, lastX, lastY, lastZ) {
				inCellIdx = append(inCellIdx, pidx)
			}
		}
		if len(inCellIdx) > 0 {
			w.inCell[c] = inCellIdx
			w.order = append(w.order, c)
		}
	}

	if len(w.order) == 0 {
		return 0
	}

	// B: origin-distance pruning.
	if origins != nil && len(w.order) > 1 {
		w.pruneByOriginDistance(cellBounds, origins)
	}

	// C: nearest-neighbor RMSE pruning.
	if len(w.order) > 1 {
		w.shuffleSurvivors(rngSrc)
		w.pruneByRMSE(clouds)
	}

	// D: population cap, E: accumulation.
	return w.capAndAccumulate(clouds, cfg, rngSrc)
}

func (w *cellWorker) pruneByOriginDistance(cellBounds geom.Aabb, origins []geom.Vec3) {
	center := cellBounds.Center()

	dMin2 := math.Inf(1)
	for _, c := range w.order {
		if c >= len(origins) {
			continue
		}
		d2 := xySquaredDistance(origins[c], center)
		if d2 < dMin2 {
			dMin2 = d2
		}
	}
	if math.IsInf(dMin2, 1) {
		return // no cloud in this cell has an origin; nothing to prune by
	}

	threshold := dMin2 * minDistRangeSq

	write := 0
	for _, c := range w.order {
		keep := true
		if c < len(origins) {
			d2 := xySquaredDistance(origins[c], center)
			if d2 > threshold {
				keep = false
			}
		}
		if keep {
			w.order[write] = c
			write++
		}
	}
	w.order = w.order[:write]
}

func xySquaredDistance(a, b geom.Vec3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

func (w *cellWorker) shuffleSurvivors(rngSrc rng.Source) {
	for _, c := range w.order {
		idx := w.inCell[c]
		rngSrc.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
	}
}

// pruneByRMSE repeatedly removes the cloud with the worst sampled
// nearest-neighbor MSE until either one cloud remains or the worst MSE no
// longer exceeds MAX_RMSE^2 (spec.md §4.4.C).
func (w *cellWorker) pruneByRMSE(clouds []*pointcloud.PointCloud) {
	for len(w.order) > 1 {
		sort.Slice(w.order, func(a, b int) bool {
			return len(w.inCell[w.order[a]]) < len(w.inCell[w.order[b]])
		})

		maxMSE := -1.0
		worst := -1
		twoCloudTieBreak := len(w.order) == 2

		for _, c := range w.order {
			mse := w.sampleMSE(clouds, c)
			if mse > maxMSE {
				maxMSE = mse
				worst = c
			}
			if twoCloudTieBreak {
				// Evaluate only the smaller (first, by ascending count)
				// cloud and use it as the removal candidate regardless of
				// how its MSE compares to the other's (spec.md §9).
				break
			}
		}

		if maxMSE > maxRMSESq {
			w.removeFromOrder(worst)
			continue
		}
		return
	}
}

// sampleMSE computes cloud c's mean squared nearest-neighbor distance,
// sampling up to MAX_MSE_SAMPLES of its already-shuffled in-cell points
// against every other cloud present in the cell's neighborhood.
func (w *cellWorker) sampleMSE(clouds []*pointcloud.PointCloud, c int) float64 {
	idx := w.inCell[c]
	ns := len(idx)
	if ns > maxMSESamples {
		ns = maxMSESamples
	}
	w.samples = idx[:ns]

	w.allDists = w.allDists[:0]
	cloud := clouds[c]
	for _, sampleIdx := range w.samples {
		p := cloud.Vertex(sampleIdx).Position
		for otherC, otherIdx := range w.nbhd {
			if otherC == c || len(otherIdx) == 0 {
				continue
			}
			w.allDists = append(w.allDists, nearestSquaredDistance(p, clouds[otherC], otherIdx))
		}
	}

	if len(w.allDists) == 0 {
		return 0
	}
	mean, err := stats.Mean(stats.LoadRawData(w.allDists))
	if err != nil {
		return 0
	}
	return mean
}

func nearestSquaredDistance(p geom.Vec3, cloud *pointcloud.PointCloud, indices []int) float64 {
	best := math.Inf(1)
	for _, idx := range indices {
		q := cloud.Vertex(idx).Position
		d2 := p.Sub(q).Norm2()
		if d2 < best {
			best = d2
		}
		if d2 < smallestNNDistanceSq {
			return d2
		}
	}
	return best
}

func (w *cellWorker) removeFromOrder(cloud int) {
	for i, c := range w.order {
		if c == cloud {
			w.order = append(w.order[:i], w.order[i+1:]...)
			return
		}
	}
}

// capAndAccumulate applies the per-cell population cap (D) and appends
// surviving vertices to the worker's keepers buffer (E), returning the
// number kept from this cell.
func (w *cellWorker) capAndAccumulate(clouds []*pointcloud.PointCloud, cfg Config, rngSrc rng.Source) int {
	w.capScratch = w.capScratch[:0]
	for _, c := range w.order {
		for _, idx := range w.inCell[c] {
			w.capScratch = append(w.capScratch, capPoint{cloud: c, idx: idx})
		}
	}

	keep := w.capScratch
	if cfg.MaxPointsPerCell > 0 && len(keep) > cfg.MaxPointsPerCell {
		rngSrc.Shuffle(len(keep), func(a, b int) { keep[a], keep[b] = keep[b], keep[a] })
		keep = keep[:cfg.MaxPointsPerCell]
	}

	for _, cp := range keep {
		w.keepers = append(w.keepers, clouds[cp.cloud].Vertex(cp.idx))
	}
	return len(keep)
}
