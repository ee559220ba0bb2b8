// ABOUTME: Class score chart for teachers: box plot with individual scores and a distribution histogram

package chart

import (
	"context"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// distributionBins splits the score range into equal-width bins.
const distributionBins = 10

// ClassSummary renders the score spread of one class subject.
func (r *Renderer) ClassSummary(ctx context.Context, title string, scores []float64) (string, error) {
	if len(scores) == 0 {
		return "", ErrNoData
	}
	return r.render(ctx, "class", func() (io.WriterTo, error) {
		spread, err := spreadPlot(title, scores)
		if err != nil {
			return nil, err
		}
		dist, err := distributionPlot(scores)
		if err != nil {
			return nil, err
		}
		return grid([][]*plot.Plot{{spread, dist}}, 28*vg.Centimeter, 14*vg.Centimeter), nil
	})
}

func spreadPlot(title string, scores []float64) (*plot.Plot, error) {
	p := newPlot(title)
	scoreAxis(p, "نمره")

	box, err := plotter.NewBoxPlot(vg.Points(50), 0, plotter.Values(scores))
	if err != nil {
		return nil, fmt.Errorf("box plot: %w", err)
	}
	box.FillColor = colorEqual

	// Spread the dots sideways so equal scores stay visible.
	points := make(plotter.XYs, len(scores))
	for i, v := range scores {
		points[i] = plotter.XY{X: float64(i%5-2) * 0.06, Y: v}
	}
	dots, err := plotter.NewScatter(points)
	if err != nil {
		return nil, fmt.Errorf("score dots: %w", err)
	}
	dots.GlyphStyle.Color = colorStudent
	dots.GlyphStyle.Radius = vg.Points(2.5)

	p.Add(box, dots)
	p.NominalX("پراکندگی نمرات")
	return p, nil
}

func distributionPlot(scores []float64) (*plot.Plot, error) {
	p := newPlot("توزیع نمرات")
	p.Y.Label.Text = "تعداد"

	width := 20.0 / distributionBins
	counts := make([]float64, distributionBins)
	labels := make([]string, distributionBins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%g-%g", float64(i)*width, float64(i+1)*width)
	}
	for _, v := range scores {
		i := int(math.Floor(v / width))
		if i >= distributionBins {
			i = distributionBins - 1
		}
		if i < 0 {
			i = 0
		}
		counts[i]++
	}

	b, err := bars(counts, vg.Points(18), colorStudent)
	if err != nil {
		return nil, fmt.Errorf("distribution bars: %w", err)
	}
	p.Add(b)
	p.NominalX(labels...)
	return p, nil
}
