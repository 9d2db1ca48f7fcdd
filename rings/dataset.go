// Package rings synthesizes a toy 2-D dataset of noisy concentric rings,
// trains a small feed-forward classifier on it, and renders the model's
// decision surface at selected training epochs.
package rings

import (
	"math"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/unixpickle/anynet/anyff"
	"github.com/unixpickle/anyvec"
)

// A Sample is one labeled point.  The label is the index of the ring the
// point was drawn from.
type Sample struct {
	X     [2]float32
	Label int
}

// A Dataset is a fixed collection of samples drawn from concentric rings.
// It is generated once and never mutated afterwards.
type Dataset struct {
	Radii   []float32
	Samples []Sample
}

// Generate draws n samples.  Each sample picks a ring uniformly at random
// (that ring's index is the label), picks an angle uniformly in [0, 2pi),
// perturbs the ring's radius with Normal(0, std) noise, and converts to
// Cartesian coordinates.
func Generate(radii []float32, n int, std float32, r *rand.Rand) *Dataset {
	d := &Dataset{
		Radii:   radii,
		Samples: make([]Sample, n),
	}

	for k := 0; k < n; k++ {
		cat := r.Intn(len(radii))
		radius := radii[cat] + float32(r.NormFloat64())*std
		angle := r.Float32() * 2 * math32.Pi

		d.Samples[k] = Sample{
			X:     [2]float32{radius * math32.Cos(angle), radius * math32.Sin(angle)},
			Label: cat,
		}
	}

	return d
}

// NumClasses returns the number of rings.
func (d *Dataset) NumClasses() int {
	return len(d.Radii)
}

// SplitIndices randomly partitions the indices [0, n) into a training group
// and a test group.  The test group gets its ratio rounded to the nearest
// whole index; the training group absorbs the remainder, so the two sizes
// always sum to n.  The groups are disjoint and together cover every index.
func SplitIndices(n int, trainFrac float64, r *rand.Rand) (train, test []int) {
	perm := r.Perm(n)

	numTest := int(math.Round(float64(n) * (1 - trainFrac)))
	numTrain := n - numTest

	train = perm[:numTrain]
	test = perm[numTrain:]
	return train, test
}

// Split partitions the dataset's samples into training and test subsets.
func (d *Dataset) Split(trainFrac float64, r *rand.Rand) (train, test []Sample) {
	trainIdx, testIdx := SplitIndices(len(d.Samples), trainFrac, r)

	train = make([]Sample, len(trainIdx))
	for i, idx := range trainIdx {
		train[i] = d.Samples[idx]
	}
	test = make([]Sample, len(testIdx))
	for i, idx := range testIdx {
		test[i] = d.Samples[idx]
	}
	return train, test
}

// FFSamples packs samples into an anyff sample list, with one-hot target
// vectors suitable for a cross-entropy cost over log-softmax outputs.
func FFSamples(c anyvec.Creator, samples []Sample, numClasses int) anyff.SliceSampleList {
	list := make(anyff.SliceSampleList, len(samples))
	for i, s := range samples {
		in := []float64{float64(s.X[0]), float64(s.X[1])}

		out := make([]float64, numClasses)
		out[s.Label] = 1

		list[i] = &anyff.Sample{
			Input:  c.MakeVectorData(c.MakeNumericList(in)),
			Output: c.MakeVectorData(c.MakeNumericList(out)),
		}
	}
	return list
}
