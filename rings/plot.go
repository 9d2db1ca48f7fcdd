package rings

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Palette mirrors matplotlib's single-letter color cycle r, b, g, c, m,
// y, k.  Class i is drawn in Palette[i], so it must have at least as many
// entries as there are rings.
var Palette = []color.NRGBA{
	{R: 255, A: 255},                 // r
	{B: 255, A: 255},                 // b
	{G: 128, A: 255},                 // g
	{G: 191, B: 191, A: 255},         // c
	{R: 191, B: 191, A: 255},         // m
	{R: 191, G: 191, A: 255},         // y
	{A: 255},                         // k
}

// meshAlpha is the opacity of the probability mesh over the white page.
const meshAlpha = 0.5

// blendColor maps one probability vector to a color: the convex
// combination of the class colors weighted by the probabilities, then
// composited over white at meshAlpha.  This is a genuine blend, not a
// hard argmax assignment, so uncertain regions render as mixtures.
func blendColor(probs []float32, pal []color.NRGBA) color.NRGBA {
	var r, g, b float64
	for i, p := range probs {
		r += float64(p) * float64(pal[i].R)
		g += float64(p) * float64(pal[i].G)
		b += float64(p) * float64(pal[i].B)
	}

	mix := func(v float64) uint8 {
		out := meshAlpha*v + (1-meshAlpha)*255
		return uint8(math.Round(math.Min(out, 255)))
	}
	return color.NRGBA{R: mix(r), G: mix(g), B: mix(b), A: 255}
}

// fieldImage rasterizes a probability field into one pixel per grid
// point.  Row 0 of the image is the grid's top edge (largest y).
func fieldImage(probs []float32, g *Grid, numClasses int, pal []color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.N, g.N))
	for i := 0; i < g.N; i++ {
		for j := 0; j < g.N; j++ {
			row := (i*g.N + j) * numClasses
			img.SetNRGBA(i, g.N-1-j, blendColor(probs[row:row+numClasses], pal))
		}
	}
	return img
}

// addScatter overlays one scatter series per class, colored by the true
// label with the given marker shape.
func addScatter(p *plot.Plot, samples []Sample, shape draw.GlyphDrawer, pal []color.NRGBA) error {
	byClass := map[int]plotter.XYs{}
	for _, s := range samples {
		byClass[s.Label] = append(byClass[s.Label], plotter.XY{
			X: float64(s.X[0]),
			Y: float64(s.X[1]),
		})
	}

	for label := 0; label < len(pal); label++ {
		xys, ok := byClass[label]
		if !ok {
			continue
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("while building scatter for class %d: %w", label, err)
		}
		sc.GlyphStyle.Shape = shape
		sc.GlyphStyle.Color = pal[label]
		sc.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(sc)
	}
	return nil
}

// checkpointPanel renders one checkpoint: the probability mesh over the
// grid extent, with training samples as circles and test samples as
// crosses.
func checkpointPanel(ck Checkpoint, g *Grid, train, test []Sample, numClasses int, pal []color.NRGBA) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Epoch %d", ck.Epoch)

	p.Add(plotter.NewImage(fieldImage(ck.Probs, g, numClasses, pal), -g.Extent, -g.Extent, g.Extent, g.Extent))

	if err := addScatter(p, train, draw.CircleGlyph{}, pal); err != nil {
		return nil, err
	}
	if err := addScatter(p, test, draw.CrossGlyph{}, pal); err != nil {
		return nil, err
	}
	return p, nil
}

// tileLayout sizes the subplot grid to roughly the square root of the
// panel count.
func tileLayout(numPanels int) (rows, cols int) {
	rows = int(math.Sqrt(float64(numPanels)))
	if rows < 1 {
		rows = 1
	}
	cols = (numPanels + rows - 1) / rows
	return rows, cols
}

// RenderPanels draws every checkpoint in the result as one panel of a
// tiled figure and writes the figure to path as a PNG.
func RenderPanels(res *RunResult, path string) error {
	numClasses := res.Dataset.NumClasses()
	if numClasses > len(Palette) {
		return fmt.Errorf("palette has %d colors but the dataset has %d rings", len(Palette), numClasses)
	}
	if len(res.Checkpoints) == 0 {
		return fmt.Errorf("no checkpoints to render")
	}

	rows, cols := tileLayout(len(res.Checkpoints))

	plots := make([][]*plot.Plot, rows)
	idx := 0
	for i := 0; i < rows; i++ {
		plots[i] = make([]*plot.Plot, cols)
		for j := 0; j < cols; j++ {
			if idx >= len(res.Checkpoints) {
				continue
			}
			p, err := checkpointPanel(res.Checkpoints[idx], res.Grid, res.Train, res.Test, numClasses, Palette)
			if err != nil {
				return fmt.Errorf("while rendering epoch %d panel: %w", res.Checkpoints[idx].Epoch, err)
			}
			plots[i][j] = p
			idx++
		}
	}

	const panelSize = 4 * vg.Inch
	canvas := vgimg.New(vg.Length(cols)*panelSize, vg.Length(rows)*panelSize)
	dc := draw.New(canvas)

	tiles := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadX: 2 * vg.Millimeter,
		PadY: 2 * vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if plots[i][j] != nil {
				plots[i][j].Draw(canvases[i][j])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating %s: %w", path, err)
	}
	png := vgimg.PngCanvas{Canvas: canvas}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("while writing %s: %w", path, err)
	}
	return f.Close()
}
