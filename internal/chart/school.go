// ABOUTME: Multi-period school chart for managers
// ABOUTME: Overall average, pass/fail counts, average ranges and the latest subject averages

package chart

import (
	"context"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/2389/coven-gradebook/internal/store"
)

// SchoolAnalysis renders a four-tile overview of the periods that have scores.
func (r *Renderer) SchoolAnalysis(ctx context.Context, title string, a *store.SchoolAnalysis) (string, error) {
	var periods []store.PeriodAnalysis
	for _, p := range a.Periods {
		if p.HasScores {
			periods = append(periods, p)
		}
	}
	if len(periods) == 0 {
		return "", ErrNoData
	}

	return r.render(ctx, "school", func() (io.WriterTo, error) {
		names := make([]string, len(periods))
		for i, p := range periods {
			names[i] = p.Period.Name
		}

		overall, err := overallPlot(title, names, periods)
		if err != nil {
			return nil, err
		}
		passFail, err := passFailPlot(names, periods)
		if err != nil {
			return nil, err
		}
		ranges, err := rangesPlot(periods)
		if err != nil {
			return nil, err
		}
		subjects, err := subjectsPlot(periods[len(periods)-1])
		if err != nil {
			return nil, err
		}

		return grid([][]*plot.Plot{{overall, passFail}, {ranges, subjects}}, 32*vg.Centimeter, 24*vg.Centimeter), nil
	})
}

func overallPlot(title string, names []string, periods []store.PeriodAnalysis) (*plot.Plot, error) {
	p := newPlot(title + "\nمیانگین کل هر دوره")
	scoreAxis(p, "میانگین")

	xys := make(plotter.XYs, len(periods))
	for i, pa := range periods {
		xys[i] = plotter.XY{X: float64(i), Y: pa.OverallAverage}
	}
	l, s, err := linePoints(xys, colorStudent, false)
	if err != nil {
		return nil, err
	}
	p.Add(l, s)
	p.Legend.Add("میانگین کل", l, s)
	p.NominalX(names...)
	return p, nil
}

// passFailPlot uses grouped bars for the pass and fail counts per period.
func passFailPlot(names []string, periods []store.PeriodAnalysis) (*plot.Plot, error) {
	p := newPlot("قبولی و مردودی")
	p.Y.Label.Text = "تعداد"
	p.Y.Min = 0

	passed := make([]float64, len(periods))
	failed := make([]float64, len(periods))
	for i, pa := range periods {
		passed[i] = float64(pa.Passed)
		failed[i] = float64(pa.Failed)
	}

	w := vg.Points(16)
	pb, err := bars(passed, w, colorAbove)
	if err != nil {
		return nil, err
	}
	pb.Offset = -w / 2
	fb, err := bars(failed, w, colorBelow)
	if err != nil {
		return nil, err
	}
	fb.Offset = w / 2

	p.Add(pb, fb)
	p.Legend.Add("قبولی (>=10)", pb)
	p.Legend.Add("مردودی (<10)", fb)
	p.NominalX(names...)
	return p, nil
}

func rangesPlot(periods []store.PeriodAnalysis) (*plot.Plot, error) {
	p := newPlot("پراکندگی معدل‌ها")
	p.Y.Label.Text = "تعداد"
	p.Y.Min = 0

	labels := make([]string, len(periods[0].Ranges))
	for i, rc := range periods[0].Ranges {
		labels[i] = rc.Label
	}

	w := vg.Points(40 / float64(len(periods)))
	for i, pa := range periods {
		counts := make([]float64, len(labels))
		for j, rc := range pa.Ranges {
			if j < len(counts) {
				counts[j] = float64(rc.Count)
			}
		}
		b, err := bars(counts, w, seriesColor(i))
		if err != nil {
			return nil, err
		}
		b.Offset = w * vg.Length(float64(i)-float64(len(periods)-1)/2)
		p.Add(b)
		p.Legend.Add(pa.Period.Name, b)
	}
	p.NominalX(labels...)
	return p, nil
}

func subjectsPlot(latest store.PeriodAnalysis) (*plot.Plot, error) {
	p := newPlot("میانگین دروس: " + latest.Period.Name)
	scoreAxis(p, "میانگین")
	if len(latest.Subjects) == 0 {
		return p, nil
	}

	names := make([]string, len(latest.Subjects))
	values := make([]float64, len(latest.Subjects))
	for i, s := range latest.Subjects {
		names[i] = s.Name
		values[i] = s.Average
	}
	b, err := bars(values, vg.Points(20), colorClass)
	if err != nil {
		return nil, err
	}
	p.Add(b)
	p.NominalX(names...)
	return p, nil
}
