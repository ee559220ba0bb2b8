// ABOUTME: Tests for score completion status and the multi-period school analysis

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoresCompletionStatus(t *testing.T) {
	s, f := setupFixture(t)
	p := seedPeriodScores(t, s, f)

	statuses, err := s.ScoresCompletionStatus(context.Background(), p.ID, f.SchoolID)
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	type line struct {
		teacher, class, subject, status string
		scored, total                   int
	}
	var got []line
	for _, st := range statuses {
		got = append(got, line{st.TeacherName, st.ClassName, st.SubjectName, st.Status, st.Scored, st.Total})
	}
	assert.Equal(t, []line{
		{"Teacher A", "1A", "Math", StatusComplete, 3, 3},
		{"Teacher A", "1B", "Math", StatusComplete, 1, 1},
		{"Teacher B", "1A", "Science", StatusIncomplete, 2, 3},
		{"Teacher B", "1C", "Art", StatusNoStudents, 0, 0},
	}, got)

	assert.Equal(t, f.TeacherB, statuses[2].TeacherID)
	assert.Equal(t, "Grade 1", statuses[2].GradeName)
	require.NotNil(t, statuses[2].Average)
	assert.Equal(t, 16.5, *statuses[2].Average)
	assert.Nil(t, statuses[3].Average)
}

func TestScoresCompletionStatus_EmptyPeriod(t *testing.T) {
	s, f := setupFixture(t)
	p, err := s.CreateReportPeriod(context.Background(), f.SchoolID, "Empty")
	require.NoError(t, err)

	statuses, err := s.ScoresCompletionStatus(context.Background(), p.ID, f.SchoolID)
	require.NoError(t, err)
	for _, st := range statuses {
		assert.NotEqual(t, StatusComplete, st.Status)
	}
}

func TestSchoolAnalysis(t *testing.T) {
	s, f := setupFixture(t)
	ctx := context.Background()

	seedPeriodScores(t, s, f)
	p2, err := s.CreateReportPeriod(ctx, f.SchoolID, "P2")
	require.NoError(t, err)
	_, err = s.CreateReportPeriod(ctx, f.SchoolID, "Empty")
	require.NoError(t, err)
	p4, err := s.CreateReportPeriod(ctx, f.SchoolID, "P4")
	require.NoError(t, err)
	saveScore(t, s, f.Students["s2"], f.Math1A, p2.ID, 14)
	saveScore(t, s, f.Students["s2"], f.Math1A, p4.ID, 20)

	a, err := s.SchoolAnalysis(ctx, f.SchoolID)
	require.NoError(t, err)
	assert.Equal(t, "School A", a.SchoolName)
	assert.Equal(t, 4, a.TotalStudents)
	require.Len(t, a.Periods, 4)

	first := a.Periods[0]
	assert.Equal(t, "P1", first.Period.Name)
	assert.True(t, first.HasScores)
	assert.Equal(t, 4, first.CountWithScores)
	assert.Equal(t, 14.25, first.OverallAverage)
	assert.Equal(t, 4, first.Passed)
	assert.Equal(t, 0, first.Failed)
	assert.Equal(t, 17.0, first.MaxAverage)
	assert.Equal(t, 10.0, first.MinAverage)
	assert.Equal(t, []RangeCount{
		{"0-10", 0}, {"10-12", 1}, {"12-15", 1}, {"15-18", 2}, {"18-20", 0},
	}, first.Ranges)
	assert.Equal(t, []SubjectStat{
		{Name: "Math", Count: 4, Average: 14},
		{Name: "Science", Count: 2, Average: 16.5},
	}, first.Subjects)

	empty := a.Periods[2]
	assert.False(t, empty.HasScores)
	assert.Len(t, empty.Ranges, 5)

	last := a.Periods[3]
	assert.Equal(t, 1, last.Ranges[4].Count, "20 falls in the top bucket")

	require.Len(t, a.Comparisons, 2, "the empty period is skipped")
	assert.Equal(t, PeriodComparison{Previous: "P1", Current: "P2", AverageChange: -0.25, PassedChange: -3}, a.Comparisons[0])
	assert.Equal(t, PeriodComparison{Previous: "P2", Current: "P4", AverageChange: 6, PassedChange: 0}, a.Comparisons[1])
}

func TestSchoolAnalysis_UnknownSchool(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.SchoolAnalysis(context.Background(), 77)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBucketAverages(t *testing.T) {
	counts := bucketAverages([]studentAverage{{Average: 0}, {Average: 9.99}, {Average: 12}, {Average: 18}, {Average: 20}})
	assert.Equal(t, []RangeCount{
		{"0-10", 2}, {"10-12", 0}, {"12-15", 1}, {"15-18", 0}, {"18-20", 2},
	}, counts)
}
