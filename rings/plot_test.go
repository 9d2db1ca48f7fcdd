package rings

import (
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"
)

func TestBlendColorPureClass(t *testing.T) {
	pal := Palette[:2]

	// All mass on the red class: the mesh pixel is red composited halfway
	// toward the white page.
	got := blendColor([]float32{1, 0}, pal)
	if got.R != 255 {
		t.Errorf("wrong red channel; got %d, want %d", got.R, 255)
	}
	if got.G != 128 || got.B != 128 {
		t.Errorf("wrong white compositing; got G=%d B=%d, want 128", got.G, got.B)
	}
}

func TestBlendColorMixesClasses(t *testing.T) {
	pal := Palette[:2]

	got := blendColor([]float32{0.5, 0.5}, pal)
	if got.R != got.B {
		t.Errorf("even red/blue mix should have equal channels; got R=%d B=%d", got.R, got.B)
	}
}

func TestTileLayout(t *testing.T) {
	cases := []struct {
		panels, rows, cols int
	}{
		{1, 1, 1},
		{2, 1, 2},
		{5, 2, 3},
		{6, 2, 3},
		{9, 3, 3},
		{10, 3, 4},
	}
	for _, tc := range cases {
		rows, cols := tileLayout(tc.panels)
		if rows != tc.rows || cols != tc.cols {
			t.Errorf("tileLayout(%d) = (%d, %d), want (%d, %d)", tc.panels, rows, cols, tc.rows, tc.cols)
		}
		if rows*cols < tc.panels {
			t.Errorf("tileLayout(%d) too small; %d*%d < %d", tc.panels, rows, cols, tc.panels)
		}
	}
}

func TestRenderPanelsRejectsSmallPalette(t *testing.T) {
	radii := make([]float32, len(Palette)+1)
	for i := range radii {
		radii[i] = float32(i + 1)
	}

	res := &RunResult{
		Dataset:     &Dataset{Radii: radii},
		Grid:        MakeGrid(1, 3),
		Checkpoints: []Checkpoint{{Epoch: 0, Probs: make([]float32, 3*3*len(radii))}},
	}

	if err := RenderPanels(res, filepath.Join(t.TempDir(), "out.png")); err == nil {
		t.Error("expected an error with more rings than palette colors")
	}
}

func TestRenderPanelsWritesPNG(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	c := anyvec32.CurrentCreator()

	d := Generate([]float32{1, 2}, 40, 0.3, r)
	train, test := d.Split(0.8, r)
	m := NewClassifier(c, 8, d.NumClasses(), r)
	g := MakeGrid(DataExtent(d), 11)

	res := &RunResult{
		Model:   m,
		Dataset: d,
		Train:   train,
		Test:    test,
		Grid:    g,
		Checkpoints: []Checkpoint{
			{Epoch: 0, Probs: g.Eval(m)},
			{Epoch: 1, Probs: g.Eval(m)},
			{Epoch: 2, Probs: g.Eval(m)},
		},
	}

	path := filepath.Join(t.TempDir(), "panels.png")
	if err := RenderPanels(res, path); err != nil {
		t.Fatalf("RenderPanels: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("while opening output: %v", err)
	}
	defer f.Close()

	if _, err := png.DecodeConfig(f); err != nil {
		t.Errorf("output is not a decodable PNG: %v", err)
	}
}
