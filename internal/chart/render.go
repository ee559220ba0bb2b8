// ABOUTME: Renderer core: temp file handling, grid layout and shared plot styling
// ABOUTME: Each chart kind lives in its own file and goes through render

package chart

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrNoData is returned when a chart has nothing to plot.
var ErrNoData = errors.New("no data to plot")

var (
	colorStudent  = color.RGBA{R: 65, G: 105, B: 225, A: 255}
	colorClass    = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	colorAbove    = color.RGBA{R: 60, G: 179, B: 113, A: 255}
	colorBelow    = color.RGBA{R: 255, G: 99, B: 71, A: 255}
	colorEqual    = color.RGBA{R: 211, G: 211, B: 211, A: 255}
	colorGrid     = color.RGBA{R: 190, G: 190, B: 190, A: 255}
	colorAverage  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	seriesPalette = []color.Color{
		color.RGBA{R: 255, G: 165, B: 0, A: 255},
		color.RGBA{R: 0, G: 191, B: 255, A: 255},
		color.RGBA{R: 128, G: 0, B: 128, A: 255},
		color.RGBA{R: 0, G: 0, B: 255, A: 255},
		color.RGBA{R: 46, G: 139, B: 87, A: 255},
	}
)

func seriesColor(i int) color.Color {
	return seriesPalette[i%len(seriesPalette)]
}

var dashed = []vg.Length{vg.Points(6), vg.Points(4)}

// Renderer draws charts into PNG files.
type Renderer struct {
	pool   *Pool
	dir    string
	logger *slog.Logger
}

// NewRenderer creates a renderer writing into dir, or the system temp
// directory when dir is empty.
func NewRenderer(pool *Pool, dir string, logger *slog.Logger) *Renderer {
	return &Renderer{pool: pool, dir: dir, logger: logger.With("component", "chart")}
}

// render runs build on the pool and writes its image to a new file.
func (r *Renderer) render(ctx context.Context, kind string, build func() (io.WriterTo, error)) (string, error) {
	var path string
	err := r.pool.Do(ctx, func() error {
		img, err := build()
		if err != nil {
			return err
		}

		f, err := os.CreateTemp(r.dir, "gradebook-"+kind+"-*.png")
		if err != nil {
			return fmt.Errorf("creating chart file: %w", err)
		}
		if _, err := img.WriteTo(f); err != nil {
			f.Close()
			os.Remove(f.Name())
			return fmt.Errorf("writing chart: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return fmt.Errorf("closing chart file: %w", err)
		}
		path = f.Name()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("rendering %s chart: %w", kind, err)
	}

	r.logger.Debug("chart rendered", "kind", kind, "path", path)
	return path, nil
}

// grid lays plots out row by row; rows shorter than the first are padded
// with blank tiles.
func grid(plots [][]*plot.Plot, w, h vg.Length) io.WriterTo {
	cols := len(plots[0])
	for j := range plots {
		for len(plots[j]) < cols {
			blank := plot.New()
			blank.HideAxes()
			plots[j] = append(plots[j], blank)
		}
	}

	img := vgimg.New(w, h)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      cols,
		PadX:      vg.Millimeter * 6,
		PadY:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 4,
		PadBottom: vg.Millimeter * 4,
		PadLeft:   vg.Millimeter * 4,
		PadRight:  vg.Millimeter * 4,
	}

	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}
	return vgimg.PngCanvas{Canvas: img}
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Legend.Top = true
	p.Add(gridLines())
	return p
}

func gridLines() *plotter.Grid {
	g := plotter.NewGrid()
	g.Vertical.Color = colorGrid
	g.Horizontal.Color = colorGrid
	return g
}

// scoreAxis fixes the y axis to the score range.
func scoreAxis(p *plot.Plot, label string) {
	p.Y.Label.Text = label
	p.Y.Min = 0
	p.Y.Max = 20
}

func bars(values []float64, width vg.Length, c color.Color) (*plotter.BarChart, error) {
	b, err := plotter.NewBarChart(plotter.Values(values), width)
	if err != nil {
		return nil, err
	}
	b.Color = c
	b.LineStyle.Width = 0
	return b, nil
}

func linePoints(xys plotter.XYs, c color.Color, dash bool) (*plotter.Line, *plotter.Scatter, error) {
	l, s, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, nil, err
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(2)
	if dash {
		l.LineStyle.Dashes = dashed
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(3)
	return l, s, nil
}
