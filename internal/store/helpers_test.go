// ABOUTME: Shared fixtures for store tests
// ABOUTME: Builds a temp SQLite store seeded with a small two-class school

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/coven-gradebook/internal/roster"
)

const fixtureRoster = `
default_password = "pass1234"

[[schools]]
name = "School A"
manager_name = "Manager A"
username = "mgr"

[[schools.teachers]]
name = "Teacher A"
username = "ta"

[[schools.teachers]]
name = "Teacher B"
username = "tb"

[[schools.grades]]
name = "Grade 1"

[[schools.grades.classes]]
name = "1A"

[[schools.grades.classes.subjects]]
name = "Math"
teacher = "ta"
coefficient = 2

[[schools.grades.classes.subjects]]
name = "Science"
teacher = "tb"
coefficient = 1

[[schools.grades.classes.students]]
name = "Student 1"
username = "s1"

[[schools.grades.classes.students]]
name = "Student 2"
username = "s2"

[[schools.grades.classes.students]]
name = "Student 3"
username = "s3"

[[schools.grades.classes]]
name = "1B"

[[schools.grades.classes.subjects]]
name = "Math"
teacher = "ta"
coefficient = 2

[[schools.grades.classes.students]]
name = "Student 4"
username = "s4"

[[schools.grades.classes]]
name = "1C"

[[schools.grades.classes.subjects]]
name = "Art"
teacher = "tb"
`

// fixture holds the ids of the seeded school.
type fixture struct {
	SchoolID  int64
	TeacherA  int64
	TeacherB  int64
	Class1A   int64
	Class1B   int64
	Math1A    int64
	Science1A int64
	Math1B    int64
	Students  map[string]int64
}

func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()

	bcryptCost = bcrypt.MinCost
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupFixture(t *testing.T) (*SQLStore, *fixture) {
	t.Helper()

	s := setupTestStore(t)
	r, err := roster.Parse(fixtureRoster)
	require.NoError(t, err)
	_, err = s.ImportRoster(context.Background(), r)
	require.NoError(t, err)

	f := &fixture{Students: map[string]int64{}}
	db := s.DB()
	require.NoError(t, db.Get(&f.SchoolID, "SELECT id FROM schools WHERE username = 'mgr'"))
	require.NoError(t, db.Get(&f.TeacherA, "SELECT id FROM teachers WHERE username = 'ta'"))
	require.NoError(t, db.Get(&f.TeacherB, "SELECT id FROM teachers WHERE username = 'tb'"))
	require.NoError(t, db.Get(&f.Class1A, "SELECT id FROM classes WHERE name = '1A'"))
	require.NoError(t, db.Get(&f.Class1B, "SELECT id FROM classes WHERE name = '1B'"))
	require.NoError(t, db.Get(&f.Math1A, "SELECT id FROM subjects WHERE name = 'Math' AND class_id = ?", f.Class1A))
	require.NoError(t, db.Get(&f.Science1A, "SELECT id FROM subjects WHERE name = 'Science'"))
	require.NoError(t, db.Get(&f.Math1B, "SELECT id FROM subjects WHERE name = 'Math' AND class_id = ?", f.Class1B))

	for _, u := range []string{"s1", "s2", "s3", "s4"} {
		var id int64
		require.NoError(t, db.Get(&id, "SELECT id FROM students WHERE username = ?", u))
		f.Students[u] = id
	}
	return s, f
}

func saveScore(t *testing.T, s *SQLStore, student, subject, period int64, value float64) {
	t.Helper()
	require.NoError(t, s.SaveStudentScore(context.Background(), ScoreInput{
		StudentID: student,
		SubjectID: subject,
		PeriodID:  period,
		Value:     &value,
	}))
}

func ptr(v float64) *float64 { return &v }
