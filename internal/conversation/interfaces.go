// ABOUTME: Collaborator contracts used by the conversation engines
// ABOUTME: Transport, storage, chart rendering and commentary are all injected so engines run against fakes

package conversation

import (
	"context"

	"github.com/2389/coven-gradebook/internal/report"
	"github.com/2389/coven-gradebook/internal/store"
)

// Inbound is one text message received from the chat transport.
type Inbound struct {
	ChatID   string // room the message arrived in, also the session identity
	SenderID string // user that sent it
	Text     string
	FromBot  bool
}

// Messenger delivers outbound messages to a chat.
type Messenger interface {
	SendText(ctx context.Context, chatID, text string) error
	SendPhoto(ctx context.Context, chatID, path, caption string) error
}

// Store defines what the engines need from persistence
type Store interface {
	// Accounts
	CheckLogin(ctx context.Context, role store.Role, username, password string) (*store.Account, error)
	ChangePassword(ctx context.Context, role store.Role, userID int64, newPassword, contact string) error
	RegisterContact(ctx context.Context, role store.Role, userID int64, contact string) error
	Contacts(ctx context.Context, role store.Role, userID int64) ([]string, error)
	TeacherSchoolID(ctx context.Context, teacherID int64) (int64, error)
	StudentSchoolID(ctx context.Context, studentID int64) (int64, error)
	AppendAuditLog(ctx context.Context, e *store.AuditEntry) error

	// Report periods
	CreateReportPeriod(ctx context.Context, schoolID int64, name string) (*store.ReportPeriod, error)
	ToggleReportPeriodApproval(ctx context.Context, periodID int64) (bool, error)
	ReportPeriods(ctx context.Context, schoolID int64) ([]store.ReportPeriod, error)
	ApprovedReportPeriods(ctx context.Context, schoolID int64) ([]store.ReportPeriod, error)

	// Scores
	SubjectsByTeacher(ctx context.Context, teacherID int64) ([]store.Subject, error)
	StudentsByClass(ctx context.Context, classID int64) ([]store.Student, error)
	SaveStudentScore(ctx context.Context, in store.ScoreInput) error
	StudentScore(ctx context.Context, studentID, subjectID, periodID int64) (*store.Score, error)
	StudentScoresByClass(ctx context.Context, classID, subjectID, periodID int64) ([]store.StudentScore, error)

	// Reports and analytics
	ScoresCompletionStatus(ctx context.Context, periodID, schoolID int64) ([]store.CompletionStatus, error)
	StudentReport(ctx context.Context, studentID, periodID int64) (*store.StudentReport, error)
	PerformanceHistory(ctx context.Context, studentID int64) (*store.PerformanceHistory, error)
	SchoolAnalysis(ctx context.Context, schoolID int64) (*store.SchoolAnalysis, error)
}

// Charts renders PNG files. Every method returns the path of a fresh file
// the caller must remove, or chart.ErrNoData for empty input.
type Charts interface {
	ClassSummary(ctx context.Context, title string, scores []float64) (string, error)
	ReportComparison(ctx context.Context, title string, scores []store.SubjectScore) (string, error)
	AverageTrend(ctx context.Context, title string, own, class []store.PeriodAverage) (string, error)
	Radar(ctx context.Context, title string, periods []report.RadarPeriod) (string, error)
	SubjectTrends(ctx context.Context, title string, entries []store.HistoryEntry, deliver func(path string) error) error
	SchoolAnalysis(ctx context.Context, title string, a *store.SchoolAnalysis) (string, error)
}

// Analyst produces commentary for report text. A response containing
// analysis.ErrorSentinel means no commentary is available.
type Analyst interface {
	Respond(ctx context.Context, role store.Role, question string) string
}
