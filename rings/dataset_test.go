package rings

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
)

func TestGenerateLabelsInRange(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	radii := []float32{1, 2, 3}

	d := Generate(radii, 1000, 0.5, r)

	if len(d.Samples) != 1000 {
		t.Fatalf("wrong sample count; got %d, want %d", len(d.Samples), 1000)
	}
	for k, s := range d.Samples {
		if s.Label < 0 || s.Label >= len(radii) {
			t.Errorf("sample %d label out of range; got %d, want [0, %d)", k, s.Label, len(radii))
		}
	}
}

func TestGenerateLabelsUniform(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	radii := []float32{1, 2, 3, 4, 5, 6}
	n := 6000

	d := Generate(radii, n, 0.5, r)

	counts := make([]int, len(radii))
	for _, s := range d.Samples {
		counts[s.Label]++
	}

	mean := n / len(radii)
	for label, count := range counts {
		if count < mean*8/10 || count > mean*12/10 {
			t.Errorf("label %d count far from uniform; got %d, want about %d", label, count, mean)
		}
	}
}

func TestGenerateRadiiWithinNoiseTolerance(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	radii := []float32{2, 3}
	std := float32(0.1)
	n := 2000

	d := Generate(radii, n, std, r)

	outliers := 0
	for _, s := range d.Samples {
		dist := math32.Hypot(s.X[0], s.X[1])
		if math32.Abs(dist-radii[s.Label]) > 3*std {
			outliers++
		}
	}

	// Normal noise keeps ~99.7% of samples within 3 standard deviations.
	if outliers > n/100 {
		t.Errorf("too many samples outside 3 sigma of their ring; got %d, want <= %d", outliers, n/100)
	}
}

func TestGenerateNoNoiseExactRadii(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	radii := []float32{1, 2}

	d := Generate(radii, 20, 0, r)

	for k, s := range d.Samples {
		dist := math32.Hypot(s.X[0], s.X[1])
		if math32.Abs(dist-radii[s.Label]) > 1e-5 {
			t.Errorf("sample %d distance mismatch; got %v, want %v", k, dist, radii[s.Label])
		}
	}
}

func TestSplitIndicesPartition(t *testing.T) {
	r := rand.New(rand.NewSource(12345))

	for _, n := range []int{100, 101, 7} {
		train, test := SplitIndices(n, 0.8, r)

		if len(train)+len(test) != n {
			t.Errorf("n=%d sizes don't cover; got %d+%d, want %d", n, len(train), len(test), n)
		}

		seen := map[int]bool{}
		for _, idx := range train {
			seen[idx] = true
		}
		for _, idx := range test {
			if seen[idx] {
				t.Errorf("n=%d index %d in both groups", n, idx)
			}
			seen[idx] = true
		}
		for idx := 0; idx < n; idx++ {
			if !seen[idx] {
				t.Errorf("n=%d index %d omitted", n, idx)
			}
		}
	}
}

func TestSplitIndicesRounding(t *testing.T) {
	r := rand.New(rand.NewSource(12345))

	// 101 samples at 80/20: the test group gets round(101*0.2) = 20, and
	// the rounding remainder stays with the training group.
	train, test := SplitIndices(101, 0.8, r)
	if len(test) != 20 {
		t.Errorf("wrong test size; got %d, want %d", len(test), 20)
	}
	if len(train) != 81 {
		t.Errorf("wrong train size; got %d, want %d", len(train), 81)
	}
}

func TestDatasetSplitSizes(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	d := Generate([]float32{1, 2}, 100, 0.5, r)

	train, test := d.Split(0.8, r)
	if len(train) != 80 || len(test) != 20 {
		t.Errorf("wrong split sizes; got %d/%d, want 80/20", len(train), len(test))
	}
}
