// ABOUTME: Idempotent roster import used by the seed command
// ABOUTME: Existing rows are reused by natural key; existing passwords are never overwritten

package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/2389/coven-gradebook/internal/roster"
)

// ImportStats counts the rows an import touched.
type ImportStats struct {
	Schools  int
	Teachers int
	Classes  int
	Subjects int
	Students int
}

// ImportRoster loads a roster in a single transaction. Running it twice
// leaves the database unchanged apart from subject teachers and coefficients,
// which follow the roster.
func (s *SQLStore) ImportRoster(ctx context.Context, r *roster.Roster) (*ImportStats, error) {
	stats := &ImportStats{}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, school := range r.Schools {
			hash, err := HashPassword(r.PasswordOr(school.Password))
			if err != nil {
				return err
			}
			schoolID, err := ensureRow(ctx, tx,
				`INSERT INTO schools (name, manager_name, username, password) VALUES (?, ?, ?, ?)
				 ON CONFLICT (name) DO NOTHING`,
				[]any{school.Name, school.ManagerName, school.Username, hash},
				`SELECT id FROM schools WHERE name = ?`, school.Name)
			if err != nil {
				return fmt.Errorf("school %q: %w", school.Name, err)
			}
			stats.Schools++

			teacherIDs := make(map[string]int64, len(school.Teachers))
			for _, t := range school.Teachers {
				hash, err := HashPassword(r.PasswordOr(t.Password))
				if err != nil {
					return err
				}
				id, err := ensureRow(ctx, tx,
					`INSERT INTO teachers (name, username, password, school_id) VALUES (?, ?, ?, ?)
					 ON CONFLICT (username) DO NOTHING`,
					[]any{t.Name, t.Username, hash, schoolID},
					`SELECT id FROM teachers WHERE username = ?`, t.Username)
				if err != nil {
					return fmt.Errorf("teacher %q: %w", t.Username, err)
				}
				teacherIDs[t.Username] = id
				stats.Teachers++
			}

			for _, g := range school.Grades {
				gradeID, err := ensureRow(ctx, tx,
					`INSERT INTO grades (name, school_id) VALUES (?, ?)
					 ON CONFLICT (name, school_id) DO NOTHING`,
					[]any{g.Name, schoolID},
					`SELECT id FROM grades WHERE name = ? AND school_id = ?`, g.Name, schoolID)
				if err != nil {
					return fmt.Errorf("grade %q: %w", g.Name, err)
				}

				for _, c := range g.Classes {
					classID, err := ensureRow(ctx, tx,
						`INSERT INTO classes (name, grade_id) VALUES (?, ?)
						 ON CONFLICT (name, grade_id) DO NOTHING`,
						[]any{c.Name, gradeID},
						`SELECT id FROM classes WHERE name = ? AND grade_id = ?`, c.Name, gradeID)
					if err != nil {
						return fmt.Errorf("class %q: %w", c.Name, err)
					}
					stats.Classes++

					for _, sub := range c.Subjects {
						query := tx.Rebind(`
							INSERT INTO subjects (name, class_id, teacher_id, coefficient) VALUES (?, ?, ?, ?)
							ON CONFLICT (name, class_id) DO UPDATE
								SET teacher_id = excluded.teacher_id, coefficient = excluded.coefficient
						`)
						if _, err := tx.ExecContext(ctx, query, sub.Name, classID, teacherIDs[sub.Teacher], sub.Coefficient); err != nil {
							return fmt.Errorf("subject %q: %w", sub.Name, err)
						}
						stats.Subjects++
					}

					for _, st := range c.Students {
						hash, err := HashPassword(r.PasswordOr(st.Password))
						if err != nil {
							return err
						}
						query := tx.Rebind(`
							INSERT INTO students (name, username, password, class_id) VALUES (?, ?, ?, ?)
							ON CONFLICT (username) DO NOTHING
						`)
						if _, err := tx.ExecContext(ctx, query, st.Name, st.Username, hash, classID); err != nil {
							return fmt.Errorf("student %q: %w", st.Username, err)
						}
						stats.Students++
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("importing roster: %w", err)
	}

	s.logger.Info("imported roster",
		"schools", stats.Schools,
		"teachers", stats.Teachers,
		"classes", stats.Classes,
		"subjects", stats.Subjects,
		"students", stats.Students,
	)
	return stats, nil
}

// ensureRow inserts a row if its natural key is free and returns the id of
// the row holding that key.
func ensureRow(ctx context.Context, tx *sqlx.Tx, insert string, insertArgs []any, lookup string, lookupArgs ...any) (int64, error) {
	if _, err := tx.ExecContext(ctx, tx.Rebind(insert), insertArgs...); err != nil {
		return 0, err
	}
	var id int64
	if err := tx.GetContext(ctx, &id, tx.Rebind(lookup), lookupArgs...); err != nil {
		return 0, err
	}
	return id, nil
}
