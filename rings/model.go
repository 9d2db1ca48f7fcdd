package rings

import (
	"math"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// A Classifier maps a 2-D point to one unnormalized score per ring.
//
// The network is Linear(2, hidden) -> ReLU -> Linear(hidden, classes).
// Parameters persist across calls and are adjusted in place by the
// training loop; evaluation itself is stateless.
type Classifier struct {
	Creator anyvec.Creator
	Net     anynet.Net
	Classes int
}

// NewClassifier builds a randomly initialized classifier.  Weights follow
// anynet's initialization scheme (Normal scaled by 1/sqrt(fan-in)), drawn
// from the supplied source so runs are reproducible.
func NewClassifier(c anyvec.Creator, hidden, classes int, r *rand.Rand) *Classifier {
	fc1 := anynet.NewFCZero(c, 2, hidden)
	anyvec.Rand(fc1.Weights.Vector, anyvec.Normal, r)
	fc1.Weights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(2)))

	fc2 := anynet.NewFCZero(c, hidden, classes)
	anyvec.Rand(fc2.Weights.Vector, anyvec.Normal, r)
	fc2.Weights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(hidden))))

	return &Classifier{
		Creator: c,
		Net:     anynet.Net{fc1, anynet.ReLU, fc2},
		Classes: classes,
	}
}

// Parameters returns the trainable parameters, in layer order.
func (m *Classifier) Parameters() []*anydiff.Var {
	return m.Net.Parameters()
}

// SoftmaxNet wraps the scoring network with a log-softmax output, the form
// used both for the training cost and for probability evaluation.
func (m *Classifier) SoftmaxNet() anynet.Net {
	return anynet.Net{m.Net, anynet.LogSoftmax}
}

// Logits evaluates the raw per-class scores for n packed 2-D points.
func (m *Classifier) Logits(points []float64, n int) anyvec.Vector {
	in := anydiff.NewConst(m.Creator.MakeVectorData(m.Creator.MakeNumericList(points)))
	return m.Net.Apply(in, n).Output()
}

// Probabilities evaluates softmax class probabilities for n packed 2-D
// points, returning one probability vector per point.  The model is not
// mutated.
func (m *Classifier) Probabilities(points []float64, n int) []float32 {
	in := anydiff.NewConst(m.Creator.MakeVectorData(m.Creator.MakeNumericList(points)))
	logProbs := m.SoftmaxNet().Apply(in, n)
	return vecFloats(anydiff.Exp(logProbs).Output())
}

// Predict returns the highest-scoring class for one sample.
func (m *Classifier) Predict(s Sample) int {
	out := m.Logits([]float64{float64(s.X[0]), float64(s.X[1])}, 1)
	return anyvec.MaxIndex(out)
}

// Accuracy is the fraction of samples whose argmax score matches the true
// label.
func (m *Classifier) Accuracy(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}

	points := make([]float64, 0, 2*len(samples))
	for _, s := range samples {
		points = append(points, float64(s.X[0]), float64(s.X[1]))
	}
	logits := m.Logits(points, len(samples))

	numCorrect := 0
	for k := range samples {
		row := logits.Slice(k*m.Classes, (k+1)*m.Classes)
		if anyvec.MaxIndex(row) == samples[k].Label {
			numCorrect++
		}
	}
	return float64(numCorrect) / float64(len(samples))
}

// vecFloats copies a backend vector out to float32, regardless of the
// creator's numeric type.
func vecFloats(v anyvec.Vector) []float32 {
	switch data := v.Data().(type) {
	case []float32:
		out := make([]float32, len(data))
		copy(out, data)
		return out
	case []float64:
		out := make([]float32, len(data))
		for i, x := range data {
			out[i] = float32(x)
		}
		return out
	default:
		panic("unsupported numeric type")
	}
}
