// ABOUTME: Tests for report cards, rankings, top lists and performance history
// ABOUTME: Scores are chosen so that weighted averages are exact

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedPeriodScores records one period with these weighted averages:
// s1 17, s4 16, s2 14, s3 10.
func seedPeriodScores(t *testing.T, s *SQLStore, f *fixture) *ReportPeriod {
	t.Helper()
	ctx := context.Background()

	p, err := s.CreateReportPeriod(ctx, f.SchoolID, "P1")
	require.NoError(t, err)

	saveScore(t, s, f.Students["s1"], f.Math1A, p.ID, 18)
	saveScore(t, s, f.Students["s2"], f.Math1A, p.ID, 12)
	saveScore(t, s, f.Students["s3"], f.Math1A, p.ID, 10)
	saveScore(t, s, f.Students["s1"], f.Science1A, p.ID, 15)
	saveScore(t, s, f.Students["s2"], f.Science1A, p.ID, 18)
	saveScore(t, s, f.Students["s4"], f.Math1B, p.ID, 16)
	return p
}

func TestStudentReport(t *testing.T) {
	s, f := setupFixture(t)
	p := seedPeriodScores(t, s, f)

	report, err := s.StudentReport(context.Background(), f.Students["s2"], p.ID)
	require.NoError(t, err)

	require.Len(t, report.Scores, 2)
	assert.Equal(t, "Math", report.Scores[0].SubjectName)
	assert.Equal(t, 12.0, *report.Scores[0].Value)
	assert.Equal(t, 2, report.Scores[0].Coefficient)
	assert.InDelta(t, 13.33, *report.Scores[0].ClassAverage, 0.001)
	assert.Equal(t, "Science", report.Scores[1].SubjectName)
	assert.InDelta(t, 16.5, *report.Scores[1].ClassAverage, 0.001)

	require.NotNil(t, report.WeightedAverage)
	assert.Equal(t, 14.0, *report.WeightedAverage)

	require.NotNil(t, report.Ranks)
	assert.Equal(t, Ranks{
		ClassRank: 2, ClassCount: 3,
		GradeRank: 3, GradeCount: 4,
		SchoolRank: 3, SchoolCount: 4,
	}, *report.Ranks)

	names := func(top []TopStudent) []string {
		var out []string
		for _, s := range top {
			out = append(out, s.Name)
		}
		return out
	}
	assert.Equal(t, []string{"Student 1", "Student 2", "Student 3"}, names(report.TopClass))
	assert.Equal(t, []string{"Student 1", "Student 4", "Student 2"}, names(report.TopGrade))
	assert.Equal(t, []string{"Student 1", "Student 4", "Student 2"}, names(report.TopSchool))
	assert.Equal(t, "1B", report.TopSchool[1].ClassName)
}

func TestStudentReport_NoScores(t *testing.T) {
	s, f := setupFixture(t)
	p, err := s.CreateReportPeriod(context.Background(), f.SchoolID, "Empty")
	require.NoError(t, err)

	report, err := s.StudentReport(context.Background(), f.Students["s1"], p.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Scores)
	assert.Nil(t, report.WeightedAverage)
	assert.Nil(t, report.Ranks)
}

func TestStudentReport_TiesShareRank(t *testing.T) {
	s, f := setupFixture(t)
	ctx := context.Background()
	p, err := s.CreateReportPeriod(ctx, f.SchoolID, "P1")
	require.NoError(t, err)

	saveScore(t, s, f.Students["s1"], f.Math1A, p.ID, 15)
	saveScore(t, s, f.Students["s2"], f.Math1A, p.ID, 15)
	saveScore(t, s, f.Students["s3"], f.Math1A, p.ID, 12)

	report, err := s.StudentReport(ctx, f.Students["s3"], p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Ranks.ClassRank)

	report, err = s.StudentReport(ctx, f.Students["s2"], p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ranks.ClassRank)
}

func TestTopStudents(t *testing.T) {
	s, f := setupFixture(t)
	p := seedPeriodScores(t, s, f)
	ctx := context.Background()

	top, err := s.TopStudents(ctx, p.ID, ScopeClass, f.Class1A, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, f.Students["s1"], top[0].ID)
	assert.Equal(t, 17.0, top[0].Average)
	assert.Equal(t, f.Students["s2"], top[1].ID)

	top, err = s.TopStudents(ctx, p.ID, ScopeSchool, f.SchoolID, 10)
	require.NoError(t, err)
	assert.Len(t, top, 4)

	_, err = s.TopStudents(ctx, p.ID, Scope("planet"), 1, 3)
	assert.Error(t, err)

	// The report card's top lists come from the same queries.
	report, err := s.StudentReport(ctx, f.Students["s2"], p.ID)
	require.NoError(t, err)
	class, err := s.TopStudents(ctx, p.ID, ScopeClass, f.Class1A, topCount)
	require.NoError(t, err)
	assert.Equal(t, class, report.TopClass)
}

func TestTopOfAndRank(t *testing.T) {
	sorted := []studentAverage{
		{StudentID: 1, Name: "A", ClassID: 10, Average: 18},
		{StudentID: 2, Name: "B", ClassID: 11, Average: 16},
		{StudentID: 3, Name: "C", ClassID: 10, Average: 16},
		{StudentID: 4, Name: "D", ClassID: 10, Average: 12},
	}
	inClass := func(a studentAverage) bool { return a.ClassID == 10 }
	all := func(studentAverage) bool { return true }

	top := topOf(sorted, 2, inClass)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1), top[0].ID)
	assert.Equal(t, int64(3), top[1].ID)
	assert.Len(t, topOf(sorted, 10, all), 4)
	assert.NotNil(t, topOf(nil, 3, all))

	pos, n := rank(sorted, 3, all)
	assert.Equal(t, 2, pos)
	assert.Equal(t, 4, n)
	pos, n = rank(sorted, 4, all)
	assert.Equal(t, 4, pos, "ties share a rank and skip the next")
	assert.Equal(t, 4, n)
	pos, n = rank(sorted, 2, inClass)
	assert.Equal(t, 0, pos)
	assert.Equal(t, 3, n)
}

func TestPerformanceHistory(t *testing.T) {
	s, f := setupFixture(t)
	ctx := context.Background()

	p1 := seedPeriodScores(t, s, f)
	p2, err := s.CreateReportPeriod(ctx, f.SchoolID, "P2")
	require.NoError(t, err)
	p3, err := s.CreateReportPeriod(ctx, f.SchoolID, "P3")
	require.NoError(t, err)
	saveScore(t, s, f.Students["s2"], f.Math1A, p2.ID, 14)
	saveScore(t, s, f.Students["s2"], f.Math1A, p3.ID, 20)

	for _, id := range []int64{p1.ID, p2.ID} {
		_, err := s.ToggleReportPeriodApproval(ctx, id)
		require.NoError(t, err)
	}

	history, err := s.PerformanceHistory(ctx, f.Students["s2"])
	require.NoError(t, err)

	require.Len(t, history.Entries, 3, "unapproved P3 is excluded")
	assert.Equal(t, "Math", history.Entries[0].Subject)
	assert.Equal(t, "P1", history.Entries[0].Period)
	assert.Equal(t, "Teacher A", history.Entries[0].Teacher)
	assert.Equal(t, "Math", history.Entries[1].Subject)
	assert.Equal(t, "P2", history.Entries[1].Period)
	assert.Equal(t, "Science", history.Entries[2].Subject)

	require.Len(t, history.StudentAverages, 2)
	assert.Equal(t, PeriodAverage{Period: "P1", Average: 14}, history.StudentAverages[0])
	assert.Equal(t, PeriodAverage{Period: "P2", Average: 14}, history.StudentAverages[1])

	require.Len(t, history.ClassAverages, 2)
	assert.InDelta(t, 14.13, history.ClassAverages[0].Average, 0.011)
	assert.Equal(t, 14.0, history.ClassAverages[1].Average)
}

func TestPerformanceHistory_Empty(t *testing.T) {
	s, f := setupFixture(t)

	history, err := s.PerformanceHistory(context.Background(), f.Students["s4"])
	require.NoError(t, err)
	assert.Empty(t, history.Entries)
	assert.Empty(t, history.StudentAverages)
	assert.Empty(t, history.ClassAverages)
}
