// ABOUTME: Data types and sentinel errors for gradebook persistence
// ABOUTME: Defines roles, accounts, report periods, scores and the report/analytics result shapes

package store

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is returned by CheckLogin for an unknown username or a wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUnknownRole is returned when a role has no backing credential table
var ErrUnknownRole = errors.New("unknown role")

// Role identifies which credential table an account lives in.
type Role string

const (
	RoleManager Role = "manager"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// table maps a role to its credential table. Managers authenticate against
// the schools table, so a manager's account ID is the school ID.
func (r Role) table() (string, error) {
	switch r {
	case RoleManager:
		return "schools", nil
	case RoleTeacher:
		return "teachers", nil
	case RoleStudent:
		return "students", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
}

// Account is the identity produced by a successful login.
type Account struct {
	Role     Role
	ID       int64
	Name     string
	Username string
}

// ReportPeriod is a named grading window scoped to a school.
type ReportPeriod struct {
	ID        int64     `db:"id"`
	SchoolID  int64     `db:"school_id"`
	Name      string    `db:"name"`
	Approved  bool      `db:"approved"`
	StartDate time.Time `db:"-"`
}

// Subject is a class subject taught by a teacher
type Subject struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	ClassID     int64  `db:"class_id"`
	ClassName   string `db:"class_name"`
	Coefficient int    `db:"coefficient"`
}

// Student is a member of a class
type Student struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Score is the stored value for a (student, subject, period) triple.
// Value is nil when only a description was recorded.
type Score struct {
	Value       *float64
	Description string
}

// ScoreInput is the payload for SaveStudentScore.
type ScoreInput struct {
	StudentID   int64
	SubjectID   int64
	PeriodID    int64
	Value       *float64
	Description string
}

// StudentScore pairs a student with their (possibly absent) score in one subject.
type StudentScore struct {
	StudentID   int64
	Name        string
	Value       *float64
	Description string
}

// Completion status strings reported by ScoresCompletionStatus.
const (
	StatusComplete   = "کامل"
	StatusIncomplete = "ناقص"
	StatusNoStudents = "بدون دانش‌آموز"
)

// CompletionStatus describes how far score entry has progressed for one
// class subject in a period.
type CompletionStatus struct {
	GradeName   string
	ClassID     int64
	ClassName   string
	SubjectID   int64
	SubjectName string
	TeacherID   int64
	TeacherName string
	Total       int
	Scored      int
	Status      string
	Average     *float64
}

// SubjectScore is one line of a student's report card.
type SubjectScore struct {
	SubjectName  string
	Value        *float64
	Description  string
	Coefficient  int
	ClassAverage *float64
}

// Ranks holds a student's position at class, grade and school scope.
type Ranks struct {
	ClassRank   int
	ClassCount  int
	GradeRank   int
	GradeCount  int
	SchoolRank  int
	SchoolCount int
}

// Scope selects the population for TopStudents.
type Scope string

const (
	ScopeClass  Scope = "class"
	ScopeGrade  Scope = "grade"
	ScopeSchool Scope = "school"
)

// TopStudent is one row of a top-N ranking.
type TopStudent struct {
	ID        int64
	Name      string
	ClassName string
	Average   float64
}

// StudentReport is the full report card of one student in one period.
type StudentReport struct {
	Scores          []SubjectScore
	WeightedAverage *float64
	Ranks           *Ranks
	TopClass        []TopStudent
	TopGrade        []TopStudent
	TopSchool       []TopStudent
}

// HistoryEntry is one score from the student's approved-period history.
type HistoryEntry struct {
	Subject      string
	Period       string
	Value        *float64
	Description  string
	Coefficient  int
	ClassAverage *float64
	Teacher      string
}

// PeriodAverage is a weighted average for one period.
type PeriodAverage struct {
	Period  string
	Average float64
}

// PerformanceHistory bundles a student's history across approved periods.
// Entries are ordered by subject name, then period.
type PerformanceHistory struct {
	Entries         []HistoryEntry
	StudentAverages []PeriodAverage
	ClassAverages   []PeriodAverage
}

// RangeCount is the number of students whose average falls in a bucket.
type RangeCount struct {
	Label string
	Count int
}

// SubjectStat aggregates one subject's scores within a period.
type SubjectStat struct {
	Name    string
	Count   int
	Average float64
}

// PeriodAnalysis summarizes the weighted averages of one period.
// HasScores is false when nobody has a score in the period and the
// remaining fields are zero.
type PeriodAnalysis struct {
	Period          ReportPeriod
	HasScores       bool
	CountWithScores int
	OverallAverage  float64
	Passed          int
	Failed          int
	MaxAverage      float64
	MinAverage      float64
	Ranges          []RangeCount
	Subjects        []SubjectStat
}

// PeriodComparison is the change between two consecutive periods that have scores.
type PeriodComparison struct {
	Previous      string
	Current       string
	AverageChange float64
	PassedChange  int
}

// SchoolAnalysis is the multi-period overview shown to managers.
type SchoolAnalysis struct {
	SchoolID      int64
	SchoolName    string
	TotalStudents int
	Periods       []PeriodAnalysis
	Comparisons   []PeriodComparison
}
