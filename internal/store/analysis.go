// ABOUTME: School-level analytics for managers: score entry completion and multi-period analysis
// ABOUTME: Aggregates per-class subject progress and per-period weighted average distributions

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PassingAverage is the weighted average at or above which a student passes.
const PassingAverage = 10.0

// averageRange is a half-open bucket [Min, Max) of weighted averages. The
// last bucket also includes its upper bound.
type averageRange struct {
	Label string
	Min   float64
	Max   float64
}

var averageRanges = []averageRange{
	{"0-10", 0, 10},
	{"10-12", 10, 12},
	{"12-15", 12, 15},
	{"15-18", 15, 18},
	{"18-20", 18, 20},
}

func bucketAverages(averages []studentAverage) []RangeCount {
	counts := make([]RangeCount, len(averageRanges))
	for i, r := range averageRanges {
		counts[i].Label = r.Label
	}
	for _, a := range averages {
		for i, r := range averageRanges {
			last := i == len(averageRanges)-1
			if a.Average >= r.Min && (a.Average < r.Max || (last && a.Average <= r.Max)) {
				counts[i].Count++
				break
			}
		}
	}
	return counts
}

type completionRow struct {
	GradeName   string          `db:"grade_name"`
	ClassID     int64           `db:"class_id"`
	ClassName   string          `db:"class_name"`
	SubjectID   int64           `db:"subject_id"`
	SubjectName string          `db:"subject_name"`
	TeacherID   int64           `db:"teacher_id"`
	TeacherName string          `db:"teacher_name"`
	Total       int             `db:"total"`
	Scored      int             `db:"scored"`
	Average     sql.NullFloat64 `db:"average"`
}

// ScoresCompletionStatus reports, for every class subject of a school, how
// many students have a score in the period. Rows are ordered by teacher name.
func (s *SQLStore) ScoresCompletionStatus(ctx context.Context, periodID, schoolID int64) ([]CompletionStatus, error) {
	var rows []completionRow
	query := s.db.Rebind(`
		SELECT g.name AS grade_name, c.id AS class_id, c.name AS class_name,
		       sub.id AS subject_id, sub.name AS subject_name,
		       t.id AS teacher_id, t.name AS teacher_name,
		       (SELECT COUNT(*) FROM students st WHERE st.class_id = c.id) AS total,
		       (SELECT COUNT(*) FROM scores sc
		        JOIN students st ON sc.student_id = st.id
		        WHERE sc.subject_id = sub.id AND sc.report_period_id = ?
		          AND st.class_id = c.id AND sc.score IS NOT NULL) AS scored,
		       (SELECT AVG(sc.score) FROM scores sc
		        WHERE sc.subject_id = sub.id AND sc.report_period_id = ?
		          AND sc.score IS NOT NULL) AS average
		FROM subjects sub
		JOIN classes c ON sub.class_id = c.id
		JOIN grades g ON c.grade_id = g.id
		JOIN teachers t ON sub.teacher_id = t.id
		WHERE g.school_id = ?
		ORDER BY t.name, g.name, c.name, sub.name
	`)
	if err := s.db.SelectContext(ctx, &rows, query, periodID, periodID, schoolID); err != nil {
		return nil, fmt.Errorf("loading completion status: %w", err)
	}

	statuses := make([]CompletionStatus, 0, len(rows))
	for _, r := range rows {
		status := StatusIncomplete
		switch {
		case r.Total == 0:
			status = StatusNoStudents
		case r.Scored >= r.Total:
			status = StatusComplete
		}
		statuses = append(statuses, CompletionStatus{
			GradeName:   r.GradeName,
			ClassID:     r.ClassID,
			ClassName:   r.ClassName,
			SubjectID:   r.SubjectID,
			SubjectName: r.SubjectName,
			TeacherID:   r.TeacherID,
			TeacherName: r.TeacherName,
			Total:       r.Total,
			Scored:      r.Scored,
			Status:      status,
			Average:     nullAverage(r.Average),
		})
	}
	return statuses, nil
}

// SchoolAnalysis summarizes every period of a school in chronological order
// and compares consecutive periods that have scores.
func (s *SQLStore) SchoolAnalysis(ctx context.Context, schoolID int64) (*SchoolAnalysis, error) {
	analysis := &SchoolAnalysis{SchoolID: schoolID, Periods: []PeriodAnalysis{}, Comparisons: []PeriodComparison{}}

	query := s.db.Rebind("SELECT name FROM schools WHERE id = ?")
	if err := s.db.GetContext(ctx, &analysis.SchoolName, query, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading school: %w", err)
	}

	query = s.db.Rebind(`
		SELECT COUNT(*) FROM students st
		JOIN classes c ON st.class_id = c.id
		JOIN grades g ON c.grade_id = g.id
		WHERE g.school_id = ?
	`)
	if err := s.db.GetContext(ctx, &analysis.TotalStudents, query, schoolID); err != nil {
		return nil, fmt.Errorf("counting students: %w", err)
	}

	var rows []periodRow
	query = s.db.Rebind(`
		SELECT id, school_id, name, approved, start_date
		FROM report_periods
		WHERE school_id = ?
		ORDER BY start_date, id
	`)
	if err := s.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("listing report periods: %w", err)
	}

	var previous *PeriodAnalysis
	for _, row := range rows {
		pa, err := s.analyzePeriod(ctx, row.period(), schoolID)
		if err != nil {
			return nil, err
		}
		analysis.Periods = append(analysis.Periods, *pa)

		if !pa.HasScores {
			continue
		}
		if previous != nil {
			analysis.Comparisons = append(analysis.Comparisons, PeriodComparison{
				Previous:      previous.Period.Name,
				Current:       pa.Period.Name,
				AverageChange: round2(pa.OverallAverage - previous.OverallAverage),
				PassedChange:  pa.Passed - previous.Passed,
			})
		}
		previous = pa
	}

	return analysis, nil
}

func (s *SQLStore) analyzePeriod(ctx context.Context, period ReportPeriod, schoolID int64) (*PeriodAnalysis, error) {
	pa := &PeriodAnalysis{Period: period, Ranges: bucketAverages(nil), Subjects: []SubjectStat{}}

	averages, err := s.periodAverages(ctx, period.ID, ScopeSchool, schoolID)
	if err != nil {
		return nil, err
	}
	if len(averages) == 0 {
		return pa, nil
	}

	pa.HasScores = true
	pa.CountWithScores = len(averages)
	pa.MaxAverage = averages[0].Average
	pa.MinAverage = averages[len(averages)-1].Average

	var sum float64
	for _, a := range averages {
		sum += a.Average
		if a.Average >= PassingAverage {
			pa.Passed++
		} else {
			pa.Failed++
		}
	}
	pa.OverallAverage = round2(sum / float64(len(averages)))
	pa.Ranges = bucketAverages(averages)

	var subjects []struct {
		Name    string  `db:"name"`
		Count   int     `db:"count"`
		Average float64 `db:"average"`
	}
	query := s.db.Rebind(`
		SELECT sub.name, COUNT(sc.score) AS count, AVG(sc.score) AS average
		FROM scores sc
		JOIN subjects sub ON sc.subject_id = sub.id
		JOIN classes c ON sub.class_id = c.id
		JOIN grades g ON c.grade_id = g.id
		WHERE sc.report_period_id = ? AND g.school_id = ? AND sc.score IS NOT NULL
		GROUP BY sub.name
		ORDER BY sub.name
	`)
	if err := s.db.SelectContext(ctx, &subjects, query, period.ID, schoolID); err != nil {
		return nil, fmt.Errorf("aggregating subjects: %w", err)
	}
	for _, sub := range subjects {
		pa.Subjects = append(pa.Subjects, SubjectStat{Name: sub.Name, Count: sub.Count, Average: round2(sub.Average)})
	}

	return pa, nil
}
