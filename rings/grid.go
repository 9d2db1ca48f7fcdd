package rings

import (
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/floats"
)

// A Grid is a square mesh of query points covering the dataset's spatial
// extent.  It is built once and reused read-only for every checkpoint
// evaluation, so the rendered panels stay spatially comparable.
//
// Points are stored in meshgrid order: point (i, j) sits at
// (Axis[i], Axis[j]) and its probability vector starts at row i*N+j of an
// evaluated field.
type Grid struct {
	N      int
	Extent float64
	Axis   []float64

	points []float64
}

// DataExtent computes the half-width of the plotting window: the larger of
// 1.5 times the outermost ring radius and the largest coordinate magnitude
// that actually occurs in the dataset.
func DataExtent(d *Dataset) float64 {
	extent := float32(0)
	for _, radius := range d.Radii {
		extent = math32.Max(extent, 1.5*radius)
	}
	for _, s := range d.Samples {
		extent = math32.Max(extent, math32.Abs(s.X[0]))
		extent = math32.Max(extent, math32.Abs(s.X[1]))
	}
	return float64(extent)
}

// MakeGrid builds an n by n mesh spanning [-extent, extent] on both axes.
func MakeGrid(extent float64, n int) *Grid {
	axis := make([]float64, n)
	floats.Span(axis, -extent, extent)

	points := make([]float64, 0, 2*n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			points = append(points, axis[i], axis[j])
		}
	}

	return &Grid{
		N:      n,
		Extent: extent,
		Axis:   axis,
		points: points,
	}
}

// NumPoints returns the number of mesh points.
func (g *Grid) NumPoints() int {
	return g.N * g.N
}

// Eval runs the classifier over every mesh point and returns the softmax
// probability field, one probability vector per point.  The model is left
// untouched, so evaluating twice without intervening training yields
// identical fields.
func (g *Grid) Eval(m *Classifier) []float32 {
	return m.Probabilities(g.points, g.NumPoints())
}

// A Checkpoint is the probability field captured over the evaluation grid
// at a specific training epoch.  It is immutable once captured.
type Checkpoint struct {
	Epoch int
	Probs []float32
}
