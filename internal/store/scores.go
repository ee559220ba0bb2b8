// ABOUTME: Subject, roster and score access used by the teacher workflow
// ABOUTME: Saving a score is an upsert on the (student, subject, period) triple

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// MaxScore is the highest score a subject can be graded with.
const MaxScore = 20.0

// SubjectsByTeacher returns the subjects a teacher teaches, with their class names.
func (s *SQLStore) SubjectsByTeacher(ctx context.Context, teacherID int64) ([]Subject, error) {
	subjects := []Subject{}
	query := s.db.Rebind(`
		SELECT sub.id, sub.name, sub.class_id, c.name AS class_name, sub.coefficient
		FROM subjects sub
		JOIN classes c ON sub.class_id = c.id
		WHERE sub.teacher_id = ?
		ORDER BY sub.name, c.name
	`)
	if err := s.db.SelectContext(ctx, &subjects, query, teacherID); err != nil {
		return nil, fmt.Errorf("listing teacher subjects: %w", err)
	}
	return subjects, nil
}

// StudentsByClass returns the students of a class in id order.
func (s *SQLStore) StudentsByClass(ctx context.Context, classID int64) ([]Student, error) {
	students := []Student{}
	query := s.db.Rebind("SELECT id, name FROM students WHERE class_id = ? ORDER BY id")
	if err := s.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("listing class students: %w", err)
	}
	return students, nil
}

// SaveStudentScore inserts or replaces the score of one student in one subject and period.
func (s *SQLStore) SaveStudentScore(ctx context.Context, in ScoreInput) error {
	if in.Value != nil && (*in.Value < 0 || *in.Value > MaxScore) {
		return fmt.Errorf("score %.2f out of range [0, %.0f]", *in.Value, MaxScore)
	}

	var description sql.NullString
	if in.Description != "" {
		description = sql.NullString{String: in.Description, Valid: true}
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO scores (student_id, subject_id, report_period_id, score, description, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (student_id, subject_id, report_period_id) DO UPDATE
				SET score = excluded.score,
				    description = excluded.description,
				    updated_at = excluded.updated_at
		`)
		_, err := tx.ExecContext(ctx, query,
			in.StudentID, in.SubjectID, in.PeriodID, in.Value, description, timestamp(time.Now()))
		return err
	})
	if err != nil {
		return fmt.Errorf("saving score: %w", err)
	}

	s.logger.Debug("saved score",
		"student_id", in.StudentID,
		"subject_id", in.SubjectID,
		"period_id", in.PeriodID,
	)
	return nil
}

// StudentScore returns the stored score for a triple or ErrNotFound.
func (s *SQLStore) StudentScore(ctx context.Context, studentID, subjectID, periodID int64) (*Score, error) {
	var row struct {
		Value       sql.NullFloat64 `db:"score"`
		Description sql.NullString  `db:"description"`
	}
	query := s.db.Rebind(`
		SELECT score, description FROM scores
		WHERE student_id = ? AND subject_id = ? AND report_period_id = ?
	`)
	if err := s.db.GetContext(ctx, &row, query, studentID, subjectID, periodID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting score: %w", err)
	}
	return &Score{Value: nullFloat(row.Value), Description: row.Description.String}, nil
}

// StudentScoresByClass pairs every student of a class with their score in a
// subject for a period. Students without a score have a nil Value.
func (s *SQLStore) StudentScoresByClass(ctx context.Context, classID, subjectID, periodID int64) ([]StudentScore, error) {
	var rows []struct {
		StudentID   int64           `db:"id"`
		Name        string          `db:"name"`
		Value       sql.NullFloat64 `db:"score"`
		Description sql.NullString  `db:"description"`
	}
	query := s.db.Rebind(`
		SELECT st.id, st.name, sc.score, sc.description
		FROM students st
		LEFT JOIN scores sc
			ON sc.student_id = st.id AND sc.subject_id = ? AND sc.report_period_id = ?
		WHERE st.class_id = ?
		ORDER BY st.id
	`)
	if err := s.db.SelectContext(ctx, &rows, query, subjectID, periodID, classID); err != nil {
		return nil, fmt.Errorf("listing class scores: %w", err)
	}

	scores := make([]StudentScore, 0, len(rows))
	for _, r := range rows {
		scores = append(scores, StudentScore{
			StudentID:   r.StudentID,
			Name:        r.Name,
			Value:       nullFloat(r.Value),
			Description: r.Description.String,
		})
	}
	return scores, nil
}

// nullFloat converts a nullable column to a pointer.
func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// nullAverage is nullFloat with the column rounded to two decimals.
func nullAverage(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := round2(v.Float64)
	return &f
}
