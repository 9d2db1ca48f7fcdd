package rings

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestClassifierOutputShape(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	m := NewClassifier(anyvec32.CurrentCreator(), 32, 4, r)

	out := m.Logits([]float64{0.5, -0.5, 1, 1, 0, 0}, 3)
	if out.Len() != 3*4 {
		t.Errorf("wrong logits length; got %d, want %d", out.Len(), 3*4)
	}

	probs := m.Probabilities([]float64{0.5, -0.5}, 1)
	if len(probs) != 4 {
		t.Errorf("wrong probability length; got %d, want %d", len(probs), 4)
	}
}

func TestProbabilitiesSumToOne(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	m := NewClassifier(anyvec32.CurrentCreator(), 32, 6, r)

	points := []float64{}
	for k := 0; k < 10; k++ {
		points = append(points, r.Float64()*4-2, r.Float64()*4-2)
	}
	probs := m.Probabilities(points, 10)

	for k := 0; k < 10; k++ {
		var sum float32
		for i := 0; i < 6; i++ {
			p := probs[k*6+i]
			if p < 0 || p > 1 {
				t.Errorf("point %d class %d probability out of range; got %v", k, i, p)
			}
			sum += p
		}
		if math32.Abs(sum-1) > 1e-4 {
			t.Errorf("point %d probabilities don't sum to 1; got %v", k, sum)
		}
	}
}

func TestParameterCount(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	m := NewClassifier(anyvec32.CurrentCreator(), 32, 6, r)

	// Two FC layers, each with weights and biases.
	if got := len(m.Parameters()); got != 4 {
		t.Errorf("wrong parameter count; got %d, want %d", got, 4)
	}
}

func TestSaveLoadWeightsPreservesPredictions(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	c := anyvec32.CurrentCreator()

	trained := NewClassifier(c, 16, 3, r)

	var buf bytes.Buffer
	if err := SaveWeights(&buf, trained); err != nil {
		t.Fatalf("SaveWeights: %v", err)
	}

	restored := NewClassifier(c, 16, 3, r)
	if err := LoadWeights(&buf, restored); err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}

	points := []float64{0.3, 0.7, -1.2, 0.4, 2, -2}
	want := trained.Probabilities(points, 3)
	got := restored.Probabilities(points, 3)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("probabilities changed across save/load; diff (-want +got):\n%s", diff)
	}
}

func TestLoadWeightsRejectsWrongShape(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	c := anyvec32.CurrentCreator()

	var buf bytes.Buffer
	if err := SaveWeights(&buf, NewClassifier(c, 16, 3, r)); err != nil {
		t.Fatalf("SaveWeights: %v", err)
	}

	other := NewClassifier(c, 8, 3, r)
	if err := LoadWeights(&buf, other); err == nil {
		t.Error("expected an error loading weights with mismatched hidden width")
	}
}
