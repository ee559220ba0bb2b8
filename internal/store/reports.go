// ABOUTME: Student report cards, rankings and performance history
// ABOUTME: Weighted averages use subject coefficients over scored subjects only

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// topCount is how many students each top list of a report card shows.
const topCount = 3

// studentAverage is one student's weighted average in a period with the
// class and grade they belong to.
type studentAverage struct {
	StudentID int64   `db:"student_id"`
	Name      string  `db:"name"`
	ClassID   int64   `db:"class_id"`
	ClassName string  `db:"class_name"`
	GradeID   int64   `db:"grade_id"`
	Average   float64 `db:"average"`
}

type placement struct {
	ClassID  int64 `db:"class_id"`
	GradeID  int64 `db:"grade_id"`
	SchoolID int64 `db:"school_id"`
}

func scopeColumn(scope Scope) (string, error) {
	switch scope {
	case ScopeClass:
		return "c.id", nil
	case ScopeGrade:
		return "g.id", nil
	case ScopeSchool:
		return "g.school_id", nil
	}
	return "", fmt.Errorf("unknown scope %q", string(scope))
}

// periodAverages computes the weighted average of every student with at
// least one score in the period, restricted to the given scope.
func (s *SQLStore) periodAverages(ctx context.Context, periodID int64, scope Scope, scopeID int64) ([]studentAverage, error) {
	column, err := scopeColumn(scope)
	if err != nil {
		return nil, err
	}

	query := s.db.Rebind(fmt.Sprintf(`
		SELECT st.id AS student_id, st.name, c.id AS class_id, c.name AS class_name, g.id AS grade_id,
		       SUM(sc.score * sub.coefficient) / SUM(sub.coefficient) AS average
		FROM scores sc
		JOIN students st ON sc.student_id = st.id
		JOIN subjects sub ON sc.subject_id = sub.id
		JOIN classes c ON st.class_id = c.id
		JOIN grades g ON c.grade_id = g.id
		WHERE sc.report_period_id = ? AND sc.score IS NOT NULL AND %s = ?
		GROUP BY st.id, st.name, c.id, c.name, g.id
	`, column))

	var averages []studentAverage
	if err := s.db.SelectContext(ctx, &averages, query, periodID, scopeID); err != nil {
		return nil, fmt.Errorf("computing period averages: %w", err)
	}
	for i := range averages {
		averages[i].Average = round2(averages[i].Average)
	}

	// Highest first; name and id break ties so listings are stable.
	sort.SliceStable(averages, func(i, j int) bool {
		a, b := averages[i], averages[j]
		if a.Average != b.Average {
			return a.Average > b.Average
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.StudentID < b.StudentID
	})
	return averages, nil
}

// rank returns the competition rank (1, 2, 2, 4) of a student within a
// sorted list and the list size. Rank is 0 when the student is absent.
func rank(sorted []studentAverage, studentID int64, keep func(studentAverage) bool) (int, int) {
	var filtered []studentAverage
	for _, a := range sorted {
		if keep(a) {
			filtered = append(filtered, a)
		}
	}

	position := 0
	for i, a := range filtered {
		if i == 0 || a.Average != filtered[i-1].Average {
			position = i + 1
		}
		if a.StudentID == studentID {
			return position, len(filtered)
		}
	}
	return 0, len(filtered)
}

func topOf(sorted []studentAverage, n int, keep func(studentAverage) bool) []TopStudent {
	top := []TopStudent{}
	for _, a := range sorted {
		if len(top) == n {
			break
		}
		if keep(a) {
			top = append(top, TopStudent{ID: a.StudentID, Name: a.Name, ClassName: a.ClassName, Average: a.Average})
		}
	}
	return top
}

// TopStudents returns the n best weighted averages of a period within a
// class, grade or school.
func (s *SQLStore) TopStudents(ctx context.Context, periodID int64, scope Scope, scopeID int64, n int) ([]TopStudent, error) {
	averages, err := s.periodAverages(ctx, periodID, scope, scopeID)
	if err != nil {
		return nil, err
	}
	return topOf(averages, n, func(studentAverage) bool { return true }), nil
}

func (s *SQLStore) studentPlacement(ctx context.Context, studentID int64) (*placement, error) {
	var p placement
	query := s.db.Rebind(`
		SELECT c.id AS class_id, g.id AS grade_id, g.school_id
		FROM students st
		JOIN classes c ON st.class_id = c.id
		JOIN grades g ON c.grade_id = g.id
		WHERE st.id = ?
	`)
	if err := s.db.GetContext(ctx, &p, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("locating student: %w", err)
	}
	return &p, nil
}

type subjectScoreRow struct {
	SubjectName  string          `db:"subject_name"`
	Value        sql.NullFloat64 `db:"score"`
	Description  sql.NullString  `db:"description"`
	Coefficient  int             `db:"coefficient"`
	ClassAverage sql.NullFloat64 `db:"class_average"`
}

// StudentReport builds a student's report card for one period. A student
// without scores in the period gets a report with no Scores and nil ranks.
func (s *SQLStore) StudentReport(ctx context.Context, studentID, periodID int64) (*StudentReport, error) {
	var rows []subjectScoreRow
	query := s.db.Rebind(`
		SELECT sub.name AS subject_name, sc.score, sc.description, sub.coefficient,
		       (SELECT AVG(x.score) FROM scores x
		        WHERE x.subject_id = sc.subject_id
		          AND x.report_period_id = sc.report_period_id
		          AND x.score IS NOT NULL) AS class_average
		FROM scores sc
		JOIN subjects sub ON sc.subject_id = sub.id
		WHERE sc.student_id = ? AND sc.report_period_id = ?
		ORDER BY sub.name
	`)
	if err := s.db.SelectContext(ctx, &rows, query, studentID, periodID); err != nil {
		return nil, fmt.Errorf("loading report scores: %w", err)
	}

	report := &StudentReport{Scores: make([]SubjectScore, 0, len(rows))}
	var weighted float64
	var weights int
	for _, r := range rows {
		score := SubjectScore{
			SubjectName:  r.SubjectName,
			Value:        nullFloat(r.Value),
			Description:  r.Description.String,
			Coefficient:  r.Coefficient,
			ClassAverage: nullAverage(r.ClassAverage),
		}
		if score.Value != nil {
			weighted += *score.Value * float64(r.Coefficient)
			weights += r.Coefficient
		}
		report.Scores = append(report.Scores, score)
	}
	if len(report.Scores) == 0 {
		return report, nil
	}
	if weights > 0 {
		avg := round2(weighted / float64(weights))
		report.WeightedAverage = &avg
	}

	p, err := s.studentPlacement(ctx, studentID)
	if err != nil {
		return nil, err
	}
	averages, err := s.periodAverages(ctx, periodID, ScopeSchool, p.SchoolID)
	if err != nil {
		return nil, err
	}

	inClass := func(a studentAverage) bool { return a.ClassID == p.ClassID }
	inGrade := func(a studentAverage) bool { return a.GradeID == p.GradeID }
	inSchool := func(studentAverage) bool { return true }

	if report.WeightedAverage != nil {
		var ranks Ranks
		ranks.ClassRank, ranks.ClassCount = rank(averages, studentID, inClass)
		ranks.GradeRank, ranks.GradeCount = rank(averages, studentID, inGrade)
		ranks.SchoolRank, ranks.SchoolCount = rank(averages, studentID, inSchool)
		report.Ranks = &ranks
	}

	scopes := []struct {
		scope Scope
		id    int64
		dst   *[]TopStudent
	}{
		{ScopeClass, p.ClassID, &report.TopClass},
		{ScopeGrade, p.GradeID, &report.TopGrade},
		{ScopeSchool, p.SchoolID, &report.TopSchool},
	}
	for _, sc := range scopes {
		top, err := s.TopStudents(ctx, periodID, sc.scope, sc.id, topCount)
		if err != nil {
			return nil, err
		}
		*sc.dst = top
	}

	return report, nil
}

type historyRow struct {
	Subject      string          `db:"subject"`
	Period       string          `db:"period"`
	PeriodID     int64           `db:"period_id"`
	Value        sql.NullFloat64 `db:"score"`
	Description  sql.NullString  `db:"description"`
	Coefficient  int             `db:"coefficient"`
	ClassAverage sql.NullFloat64 `db:"class_average"`
	Teacher      string          `db:"teacher"`
}

type periodAverageRow struct {
	PeriodID int64           `db:"period_id"`
	Period   string          `db:"period"`
	Average  sql.NullFloat64 `db:"average"`
}

// PerformanceHistory returns a student's scores across approved periods
// together with their own and their class's weighted average per period.
func (s *SQLStore) PerformanceHistory(ctx context.Context, studentID int64) (*PerformanceHistory, error) {
	var rows []historyRow
	query := s.db.Rebind(`
		SELECT sub.name AS subject, rp.name AS period, rp.id AS period_id,
		       sc.score, sc.description, sub.coefficient, t.name AS teacher,
		       (SELECT AVG(x.score) FROM scores x
		        WHERE x.subject_id = sc.subject_id
		          AND x.report_period_id = sc.report_period_id
		          AND x.score IS NOT NULL) AS class_average
		FROM scores sc
		JOIN subjects sub ON sc.subject_id = sub.id
		JOIN teachers t ON sub.teacher_id = t.id
		JOIN report_periods rp ON sc.report_period_id = rp.id
		WHERE sc.student_id = ? AND rp.approved = 1
		ORDER BY sub.name, rp.id
	`)
	if err := s.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("loading performance history: %w", err)
	}

	history := &PerformanceHistory{
		Entries:         make([]HistoryEntry, 0, len(rows)),
		StudentAverages: []PeriodAverage{},
		ClassAverages:   []PeriodAverage{},
	}
	for _, r := range rows {
		history.Entries = append(history.Entries, HistoryEntry{
			Subject:      r.Subject,
			Period:       r.Period,
			Value:        nullFloat(r.Value),
			Description:  r.Description.String,
			Coefficient:  r.Coefficient,
			ClassAverage: nullAverage(r.ClassAverage),
			Teacher:      r.Teacher,
		})
	}
	if len(rows) == 0 {
		return history, nil
	}

	var own []periodAverageRow
	query = s.db.Rebind(`
		SELECT rp.id AS period_id, rp.name AS period,
		       SUM(sc.score * sub.coefficient) / SUM(sub.coefficient) AS average
		FROM scores sc
		JOIN subjects sub ON sc.subject_id = sub.id
		JOIN report_periods rp ON sc.report_period_id = rp.id
		WHERE sc.student_id = ? AND rp.approved = 1 AND sc.score IS NOT NULL
		GROUP BY rp.id, rp.name
		ORDER BY rp.id
	`)
	if err := s.db.SelectContext(ctx, &own, query, studentID); err != nil {
		return nil, fmt.Errorf("computing student averages: %w", err)
	}

	var class []periodAverageRow
	query = s.db.Rebind(`
		SELECT rp.id AS period_id, rp.name AS period,
		       SUM(sc.score * sub.coefficient) / SUM(sub.coefficient) AS average
		FROM scores sc
		JOIN subjects sub ON sc.subject_id = sub.id
		JOIN report_periods rp ON sc.report_period_id = rp.id
		JOIN students st ON sc.student_id = st.id
		WHERE st.class_id = (SELECT class_id FROM students WHERE id = ?)
		  AND rp.approved = 1 AND sc.score IS NOT NULL
		  AND rp.id IN (SELECT report_period_id FROM scores WHERE student_id = ?)
		GROUP BY rp.id, rp.name
		ORDER BY rp.id
	`)
	if err := s.db.SelectContext(ctx, &class, query, studentID, studentID); err != nil {
		return nil, fmt.Errorf("computing class averages: %w", err)
	}

	history.StudentAverages = toPeriodAverages(own)
	history.ClassAverages = toPeriodAverages(class)
	return history, nil
}

func toPeriodAverages(rows []periodAverageRow) []PeriodAverage {
	out := make([]PeriodAverage, 0, len(rows))
	for _, r := range rows {
		if !r.Average.Valid {
			continue
		}
		out = append(out, PeriodAverage{Period: r.Period, Average: round2(r.Average.Float64)})
	}
	return out
}
