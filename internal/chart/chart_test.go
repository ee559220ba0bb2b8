// ABOUTME: Tests for the chart worker pool and every renderer's output files

package chart

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-gradebook/internal/report"
	"github.com/2389/coven-gradebook/internal/store"
)

func ptr(v float64) *float64 { return &v }

func newTestRenderer(t *testing.T) (*Renderer, string) {
	t.Helper()
	dir := t.TempDir()
	return NewRenderer(NewPool(2), dir, slog.New(slog.NewTextHandler(io.Discard, nil))), dir
}

func assertPNG(t *testing.T, path, dir string) {
	t.Helper()
	assert.Equal(t, dir, filepath.Dir(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")), "not a PNG file")
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	assert.Equal(t, 2, pool.Size())

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Do(context.Background(), func() error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPoolContextCancelled(t *testing.T) {
	pool := NewPool(1)
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestPoolReturnsJobError(t *testing.T) {
	boom := errors.New("boom")
	assert.ErrorIs(t, NewPool(1).Do(context.Background(), func() error { return boom }), boom)
	assert.Equal(t, 1, NewPool(0).Size())
}

func TestClassSummary(t *testing.T) {
	r, dir := newTestRenderer(t)

	path, err := r.ClassSummary(context.Background(), "Math 1A", []float64{8, 12, 12, 15, 18, 20})
	require.NoError(t, err)
	assertPNG(t, path, dir)

	_, err = r.ClassSummary(context.Background(), "Math 1A", nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestClassSummarySingleScore(t *testing.T) {
	r, dir := newTestRenderer(t)
	path, err := r.ClassSummary(context.Background(), "Art", []float64{14})
	require.NoError(t, err)
	assertPNG(t, path, dir)
}

func TestReportComparison(t *testing.T) {
	r, dir := newTestRenderer(t)

	path, err := r.ReportComparison(context.Background(), "P1", []store.SubjectScore{
		{SubjectName: "Math", Value: ptr(18), ClassAverage: ptr(13)},
		{SubjectName: "Science", Value: ptr(11), ClassAverage: ptr(14)},
		{SubjectName: "Art", ClassAverage: ptr(15)},
	})
	require.NoError(t, err)
	assertPNG(t, path, dir)

	_, err = r.ReportComparison(context.Background(), "P1", nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestAverageTrend(t *testing.T) {
	r, dir := newTestRenderer(t)

	own := []store.PeriodAverage{{Period: "P1", Average: 14}, {Period: "P2", Average: 16.5}}
	class := []store.PeriodAverage{{Period: "P1", Average: 13}, {Period: "P3", Average: 12}}
	path, err := r.AverageTrend(context.Background(), "Sara", own, class)
	require.NoError(t, err)
	assertPNG(t, path, dir)

	_, err = r.AverageTrend(context.Background(), "Sara", nil, class)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRadar(t *testing.T) {
	r, dir := newTestRenderer(t)

	periods := []report.RadarPeriod{
		{Period: "P1", Student: []float64{14, 0, 0, 12, 16, 0}, Class: []float64{13, 0, 0, 14, 12, 0}},
		{Period: "P2", Student: []float64{14.5, 20, 0, 15, 14, 20}, Class: []float64{13, 0, 0, 13, 0, 0}},
	}
	path, err := r.Radar(context.Background(), "Sara", periods)
	require.NoError(t, err)
	assertPNG(t, path, dir)

	_, err = r.Radar(context.Background(), "Sara", nil)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = r.Radar(context.Background(), "Sara", []report.RadarPeriod{{Period: "bad", Student: []float64{1}}})
	assert.Error(t, err)
}

func TestRadarPoint(t *testing.T) {
	top := radarPoint(0, 6, 10)
	assert.InDelta(t, 0, top.X, 1e-9)
	assert.InDelta(t, 10, top.Y, 1e-9)

	poly := radarPolygon([]float64{1, 2, 3})
	require.Len(t, poly, 4)
	assert.Equal(t, poly[0], poly[3])
}

func historyEntries(subjects int) []store.HistoryEntry {
	var entries []store.HistoryEntry
	for i := 0; i < subjects; i++ {
		name := string(rune('A' + i))
		entries = append(entries,
			store.HistoryEntry{Subject: name, Period: "P1", Value: ptr(10 + float64(i%5)), ClassAverage: ptr(12)},
			store.HistoryEntry{Subject: name, Period: "P2", Value: ptr(15), ClassAverage: ptr(13)},
		)
	}
	return entries
}

func TestSubjectTrends(t *testing.T) {
	r, dir := newTestRenderer(t)

	var delivered int
	err := r.SubjectTrends(context.Background(), "Sara", historyEntries(11), func(path string) error {
		delivered++
		assertPNG(t, path, dir)
		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, files, 1, "only the image being delivered is on disk")
		return os.Remove(path)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)

	err = r.SubjectTrends(context.Background(), "Sara", []store.HistoryEntry{{Subject: "A", Period: "P1", Value: ptr(10)}}, func(string) error {
		t.Fatal("nothing to deliver")
		return nil
	})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSubjectTrends_DeliverErrorStops(t *testing.T) {
	r, _ := newTestRenderer(t)
	stop := errors.New("room gone")

	var delivered int
	err := r.SubjectTrends(context.Background(), "Sara", historyEntries(20), func(path string) error {
		delivered++
		_ = os.Remove(path)
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, delivered)
}

func TestSubjectSeriesOf(t *testing.T) {
	entries := historyEntries(2)
	entries = append(entries, store.HistoryEntry{Subject: "A", Period: "P3", Value: ptr(9)})

	series := subjectSeriesOf(entries)
	require.Len(t, series, 2)
	assert.Equal(t, "A", series[0].name)
	assert.Equal(t, []string{"P1", "P2"}, series[0].periods)
	assert.Equal(t, 15.0, series[0].student[1].Y)
	assert.Equal(t, 13.0, series[0].class[1].Y)
}

func TestSchoolAnalysis(t *testing.T) {
	r, dir := newTestRenderer(t)

	ranges := []store.RangeCount{{Label: "0-10", Count: 1}, {Label: "10-12", Count: 2}, {Label: "12-15"}, {Label: "15-18", Count: 1}, {Label: "18-20"}}
	a := &store.SchoolAnalysis{
		SchoolName: "School A",
		Periods: []store.PeriodAnalysis{
			{Period: store.ReportPeriod{Name: "P0"}},
			{Period: store.ReportPeriod{Name: "P1"}, HasScores: true, OverallAverage: 12.5, Passed: 3, Failed: 1, Ranges: ranges,
				Subjects: []store.SubjectStat{{Name: "Math", Count: 4, Average: 12}}},
			{Period: store.ReportPeriod{Name: "P2"}, HasScores: true, OverallAverage: 14, Passed: 4, Ranges: ranges},
		},
	}
	path, err := r.SchoolAnalysis(context.Background(), "School A", a)
	require.NoError(t, err)
	assertPNG(t, path, dir)

	_, err = r.SchoolAnalysis(context.Background(), "School A", &store.SchoolAnalysis{Periods: a.Periods[:1]})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRenderLeavesNoFileOnError(t *testing.T) {
	r, dir := newTestRenderer(t)
	_, err := r.render(context.Background(), "broken", func() (io.WriterTo, error) {
		return nil, errors.New("draw failed")
	})
	require.Error(t, err)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}
