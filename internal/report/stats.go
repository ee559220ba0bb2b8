// ABOUTME: Descriptive statistics of one subject's scores in a class
// ABOUTME: Mean and variance come from gonum; quantiles use linear interpolation between order statistics

package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/2389/coven-gradebook/internal/store"
)

// ClassStats summarizes the scored students of one class subject.
type ClassStats struct {
	Students   int // class size, scored or not
	Count      int // students with a score
	Mean       float64
	StdDev     float64 // population standard deviation
	Min        float64
	Q1         float64
	Median     float64
	Q3         float64
	Max        float64
	Mode       float64 // smallest of the most frequent scores
	ModeFreq   int
	Below10    int
	From10To15 int
	From15     int
	Scores     []float64 // scored values in class order
}

// Summarize computes statistics over the scored entries. ok is false when
// nobody in the class has a score.
func Summarize(scores []store.StudentScore) (ClassStats, bool) {
	st := ClassStats{Students: len(scores)}
	for _, s := range scores {
		if s.Value != nil {
			st.Scores = append(st.Scores, *s.Value)
		}
	}
	st.Count = len(st.Scores)
	if st.Count == 0 {
		return st, false
	}

	mean, variance := stat.PopMeanVariance(st.Scores, nil)
	st.Mean = mean
	st.StdDev = math.Sqrt(variance)

	sorted := append([]float64(nil), st.Scores...)
	sort.Float64s(sorted)
	st.Min = sorted[0]
	st.Max = sorted[len(sorted)-1]
	st.Q1 = quantile(sorted, 0.25)
	st.Median = quantile(sorted, 0.5)
	st.Q3 = quantile(sorted, 0.75)

	// sorted ascending, so a strict > keeps the smallest value on ties.
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > st.ModeFreq {
			st.Mode, st.ModeFreq = sorted[i], j-i
		}
		i = j
	}

	for _, v := range st.Scores {
		switch {
		case v < 10:
			st.Below10++
		case v >= 15:
			st.From15++
		default:
			st.From10To15++
		}
	}
	return st, true
}

// quantile interpolates linearly between the closest ranks of an ascending
// sample, placing p=0 on the minimum and p=1 on the maximum.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
