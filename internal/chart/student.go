// ABOUTME: Student charts: report comparison with the class, average trend, radar domains and per-subject trends

package chart

import (
	"context"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/2389/coven-gradebook/internal/report"
	"github.com/2389/coven-gradebook/internal/store"
)

// subjectsPerChart is how many subject trends share one image.
const subjectsPerChart = 9

func valueOr0(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// ReportComparison plots a report card's scores against the class
// averages. Bars are green where the student beats the class.
func (r *Renderer) ReportComparison(ctx context.Context, title string, scores []store.SubjectScore) (string, error) {
	if len(scores) == 0 {
		return "", ErrNoData
	}
	return r.render(ctx, "comparison", func() (io.WriterTo, error) {
		p := newPlot(title)
		scoreAxis(p, "نمره")

		names := make([]string, len(scores))
		line := make(plotter.XYs, len(scores))
		for i, s := range scores {
			names[i] = s.SubjectName
			line[i] = plotter.XY{X: float64(i), Y: valueOr0(s.Value)}

			// One bar chart per subject so each bar gets its own color.
			avg := valueOr0(s.ClassAverage)
			c := colorEqual
			switch {
			case line[i].Y > avg:
				c = colorAbove
			case line[i].Y < avg:
				c = colorBelow
			}
			values := make([]float64, len(scores))
			values[i] = avg
			b, err := bars(values, vg.Points(24), c)
			if err != nil {
				return nil, err
			}
			p.Add(b)
			if i == 0 {
				p.Legend.Add("میانگین کلاس", b)
			}
		}

		l, s, err := linePoints(line, colorStudent, false)
		if err != nil {
			return nil, err
		}
		p.Add(l, s)
		p.Legend.Add("نمره دانش‌آموز", l, s)
		p.NominalX(names...)
		return p.WriterTo(22*vg.Centimeter, 12*vg.Centimeter, "png")
	})
}

// AverageTrend plots a student's weighted average per period together
// with the class average of the same periods.
func (r *Renderer) AverageTrend(ctx context.Context, title string, own, class []store.PeriodAverage) (string, error) {
	if len(own) == 0 {
		return "", ErrNoData
	}
	return r.render(ctx, "trend", func() (io.WriterTo, error) {
		p := newPlot(title)
		scoreAxis(p, "معدل")

		names := make([]string, len(own))
		index := make(map[string]int, len(own))
		ownXY := make(plotter.XYs, len(own))
		for i, a := range own {
			names[i] = a.Period
			index[a.Period] = i
			ownXY[i] = plotter.XY{X: float64(i), Y: a.Average}
		}

		var classXY plotter.XYs
		for _, a := range class {
			if i, ok := index[a.Period]; ok {
				classXY = append(classXY, plotter.XY{X: float64(i), Y: a.Average})
			}
		}
		if len(classXY) > 0 {
			l, s, err := linePoints(classXY, colorClass, true)
			if err != nil {
				return nil, err
			}
			p.Add(l, s)
			p.Legend.Add("میانگین کلاس", l)
		}

		l, s, err := linePoints(ownXY, colorStudent, false)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Radius = vg.Points(4)
		p.Add(l, s)
		p.Legend.Add("معدل دانش‌آموز", l, s)
		p.NominalX(names...)
		return p.WriterTo(20*vg.Centimeter, 12*vg.Centimeter, "png")
	})
}

// Radar draws one radar tile per period over report.RadarDomains.
func (r *Renderer) Radar(ctx context.Context, title string, periods []report.RadarPeriod) (string, error) {
	if len(periods) == 0 {
		return "", ErrNoData
	}
	return r.render(ctx, "radar", func() (io.WriterTo, error) {
		cols := min(len(periods), 3)
		var rows [][]*plot.Plot
		for i, period := range periods {
			name := period.Period
			if i == 0 {
				name = title + "\n" + name
			}
			p, err := radarPlot(name, period)
			if err != nil {
				return nil, err
			}
			if i%cols == 0 {
				rows = append(rows, nil)
			}
			rows[len(rows)-1] = append(rows[len(rows)-1], p)
		}
		size := 12 * vg.Centimeter
		return grid(rows, vg.Length(cols)*size, vg.Length(len(rows))*size), nil
	})
}

var radarRings = []float64{5, 10, 15, 20}

// radarPoint places value v on spoke i of n, spoke 0 pointing up.
func radarPoint(i, n int, v float64) plotter.XY {
	angle := math.Pi/2 - 2*math.Pi*float64(i)/float64(n)
	return plotter.XY{X: v * math.Cos(angle), Y: v * math.Sin(angle)}
}

func radarPolygon(values []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(values)+1)
	for i, v := range values {
		xys = append(xys, radarPoint(i, len(values), v))
	}
	return append(xys, xys[0])
}

func radarPlot(title string, period report.RadarPeriod) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.Legend.Top = true
	p.X.Min, p.X.Max = -26, 26
	p.Y.Min, p.Y.Max = -26, 26

	n := len(report.RadarDomains)
	if len(period.Student) != n || len(period.Class) != n {
		return nil, fmt.Errorf("radar period %q: want %d domains", period.Period, n)
	}
	web := make([]float64, n)
	for _, ring := range radarRings {
		for i := range web {
			web[i] = ring
		}
		l, err := plotter.NewLine(radarPolygon(web))
		if err != nil {
			return nil, err
		}
		l.LineStyle.Color = colorGrid
		p.Add(l)
	}
	for i := 0; i < n; i++ {
		l, err := plotter.NewLine(plotter.XYs{{}, radarPoint(i, n, radarRings[len(radarRings)-1])})
		if err != nil {
			return nil, err
		}
		l.LineStyle.Color = colorGrid
		p.Add(l)
	}

	labelXY := make(plotter.XYs, n)
	for i := range labelXY {
		labelXY[i] = radarPoint(i, n, 23)
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXY, Labels: report.RadarDomains})
	if err != nil {
		return nil, err
	}
	p.Add(labels)

	class, err := plotter.NewLine(radarPolygon(period.Class))
	if err != nil {
		return nil, err
	}
	class.LineStyle.Color = colorClass
	class.LineStyle.Width = vg.Points(2)
	class.LineStyle.Dashes = dashed

	student, points, err := linePoints(radarPolygon(period.Student), colorStudent, false)
	if err != nil {
		return nil, err
	}
	p.Add(class, student, points)
	p.Legend.Add("میانگین کلاس", class)
	p.Legend.Add("نمره دانش‌آموز", student)
	return p, nil
}

type subjectSeries struct {
	name    string
	periods []string
	student plotter.XYs
	class   plotter.XYs
}

// subjectSeriesOf groups entries with both a score and a class average
// by subject, keeping the order subjects first appear in.
func subjectSeriesOf(entries []store.HistoryEntry) []*subjectSeries {
	var out []*subjectSeries
	bySubject := map[string]*subjectSeries{}
	for _, e := range entries {
		if e.Value == nil || e.ClassAverage == nil {
			continue
		}
		s, ok := bySubject[e.Subject]
		if !ok {
			s = &subjectSeries{name: e.Subject}
			bySubject[e.Subject] = s
			out = append(out, s)
		}
		x := float64(len(s.periods))
		s.periods = append(s.periods, e.Period)
		s.student = append(s.student, plotter.XY{X: x, Y: *e.Value})
		s.class = append(s.class, plotter.XY{X: x, Y: *e.ClassAverage})
	}
	return out
}

// SubjectTrends renders every subject's score against the class average
// across periods, subjectsPerChart subjects per image. Images are rendered
// one at a time and each is handed to deliver before the next is started;
// deliver owns the file. A deliver error stops the sequence.
func (r *Renderer) SubjectTrends(ctx context.Context, title string, entries []store.HistoryEntry, deliver func(path string) error) error {
	series := subjectSeriesOf(entries)
	if len(series) == 0 {
		return ErrNoData
	}

	for start := 0; start < len(series); start += subjectsPerChart {
		group := series[start:min(start+subjectsPerChart, len(series))]
		heading := fmt.Sprintf("%s (%d)", title, start/subjectsPerChart+1)
		path, err := r.render(ctx, "subjects", func() (io.WriterTo, error) {
			return subjectGrid(heading, group)
		})
		if err != nil {
			return err
		}
		if err := deliver(path); err != nil {
			return err
		}
	}
	return nil
}

func subjectGrid(title string, group []*subjectSeries) (io.WriterTo, error) {
	cols := min(len(group), 3)
	var rows [][]*plot.Plot
	for i, s := range group {
		name := s.name
		if i == 0 {
			name = title + "\n" + name
		}
		p := newPlot(name)
		scoreAxis(p, "نمره")

		class, err := plotter.NewLine(s.class)
		if err != nil {
			return nil, err
		}
		class.LineStyle.Color = colorAverage
		class.LineStyle.Dashes = dashed
		class.LineStyle.Width = vg.Points(1.5)

		l, pts, err := linePoints(s.student, seriesColor(i), false)
		if err != nil {
			return nil, err
		}
		pts.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(class, l, pts)
		p.Legend.Add("میانگین کلاس", class)
		p.Legend.Add("نمره", l)
		p.NominalX(s.periods...)

		if i%cols == 0 {
			rows = append(rows, nil)
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], p)
	}
	tile := 10 * vg.Centimeter
	return grid(rows, vg.Length(cols)*tile, vg.Length(len(rows))*tile), nil
}
