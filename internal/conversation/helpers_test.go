// ABOUTME: Shared fixtures for conversation tests: a seeded SQLite store and fake collaborators
// ABOUTME: The harness drives the Service one message at a time and captures what it sent

package conversation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2389/coven-gradebook/internal/analysis"
	"github.com/2389/coven-gradebook/internal/report"
	"github.com/2389/coven-gradebook/internal/roster"
	"github.com/2389/coven-gradebook/internal/session"
	"github.com/2389/coven-gradebook/internal/store"
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
`

const (
	testChat     = "!room:example.org"
	testSender   = "@user:example.org"
	testPassword = "pass1234"
)

// fixedNow is 1403/01/01 15:30 in Tehran.
var fixedNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

type fixture struct {
	SchoolID  int64
	TeacherA  int64
	TeacherB  int64
	ClassID   int64
	MathID    int64
	ScienceID int64
	Students  []int64 // s1, s2, s3
}

// outbound is one message or photo the Service handed to the messenger.
type outbound struct {
	ChatID  string
	Text    string
	Photo   string
	Caption string
	// PhotoExisted records whether the chart file was on disk when sent.
	PhotoExisted bool
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []outbound
	failFor map[string]bool
}

func (m *fakeMessenger) SendText(ctx context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[chatID] {
		return errors.New("room not joined")
	}
	m.sent = append(m.sent, outbound{ChatID: chatID, Text: text})
	return nil
}

func (m *fakeMessenger) SendPhoto(ctx context.Context, chatID, path, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := os.Stat(path)
	m.sent = append(m.sent, outbound{ChatID: chatID, Photo: path, Caption: caption, PhotoExisted: err == nil})
	if m.failFor[chatID] {
		return errors.New("upload failed")
	}
	return nil
}

// fakeCharts writes an empty file per chart so removal can be checked.
type fakeCharts struct {
	dir     string
	calls   map[string]int
	errs    map[string]error
	created []string

	subjectGroups int
	overlapped    bool
}

func newFakeCharts(t *testing.T) *fakeCharts {
	return &fakeCharts{dir: t.TempDir(), calls: map[string]int{}, errs: map[string]error{}}
}

func (c *fakeCharts) file(kind string) (string, error) {
	c.calls[kind]++
	if err := c.errs[kind]; err != nil {
		return "", err
	}
	f, err := os.CreateTemp(c.dir, kind+"-*.png")
	if err != nil {
		return "", err
	}
	_ = f.Close()
	c.created = append(c.created, f.Name())
	return f.Name(), nil
}

func (c *fakeCharts) total() int {
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *fakeCharts) ClassSummary(ctx context.Context, title string, scores []float64) (string, error) {
	return c.file("class_summary")
}

func (c *fakeCharts) ReportComparison(ctx context.Context, title string, scores []store.SubjectScore) (string, error) {
	return c.file("report_comparison")
}

func (c *fakeCharts) AverageTrend(ctx context.Context, title string, own, class []store.PeriodAverage) (string, error) {
	return c.file("average_trend")
}

func (c *fakeCharts) Radar(ctx context.Context, title string, periods []report.RadarPeriod) (string, error) {
	return c.file("radar")
}

// SubjectTrends produces subjectGroups images (one by default) and records
// whether an earlier image was still on disk when the next was created.
func (c *fakeCharts) SubjectTrends(ctx context.Context, title string, entries []store.HistoryEntry, deliver func(path string) error) error {
	groups := max(c.subjectGroups, 1)
	for range groups {
		for _, prev := range c.created {
			if _, err := os.Stat(prev); err == nil {
				c.overlapped = true
			}
		}
		p, err := c.file("subject_trends")
		if err != nil {
			return err
		}
		if err := deliver(p); err != nil {
			return err
		}
	}
	return nil
}

func (c *fakeCharts) SchoolAnalysis(ctx context.Context, title string, a *store.SchoolAnalysis) (string, error) {
	return c.file("school_analysis")
}

type fakeAnalyst struct {
	response string
	roles    []store.Role
}

func (a *fakeAnalyst) Respond(ctx context.Context, role store.Role, question string) string {
	a.roles = append(a.roles, role)
	if a.response == "" {
		return analysis.ErrorSentinel
	}
	return a.response
}

// flakyStore wraps the real store to inject failures.
type flakyStore struct {
	Store
	saveErrs      int
	panicOnCreate bool
}

func (f *flakyStore) SaveStudentScore(ctx context.Context, in store.ScoreInput) error {
	if f.saveErrs > 0 {
		f.saveErrs--
		return errors.New("database is locked")
	}
	return f.Store.SaveStudentScore(ctx, in)
}

func (f *flakyStore) CreateReportPeriod(ctx context.Context, schoolID int64, name string) (*store.ReportPeriod, error) {
	if f.panicOnCreate {
		panic("unexpected nil row")
	}
	return f.Store.CreateReportPeriod(ctx, schoolID, name)
}

type harness struct {
	svc     *Service
	db      *store.SQLStore
	store   *flakyStore
	msgr    *fakeMessenger
	charts  *fakeCharts
	analyst *fakeAnalyst
	fx      *fixture
	mark    int
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	r, err := roster.Parse(fixtureRoster)
	require.NoError(t, err)
	_, err = db.ImportRoster(context.Background(), r)
	require.NoError(t, err)

	fx := &fixture{}
	x := db.DB()
	require.NoError(t, x.Get(&fx.SchoolID, "SELECT id FROM schools WHERE username = 'mgr'"))
	require.NoError(t, x.Get(&fx.TeacherA, "SELECT id FROM teachers WHERE username = 'ta'"))
	require.NoError(t, x.Get(&fx.TeacherB, "SELECT id FROM teachers WHERE username = 'tb'"))
	require.NoError(t, x.Get(&fx.ClassID, "SELECT id FROM classes WHERE name = '1A'"))
	require.NoError(t, x.Get(&fx.MathID, "SELECT id FROM subjects WHERE name = 'Math'"))
	require.NoError(t, x.Get(&fx.ScienceID, "SELECT id FROM subjects WHERE name = 'Science'"))
	require.NoError(t, x.Select(&fx.Students, "SELECT id FROM students ORDER BY id"))

	h := &harness{
		db:      db,
		store:   &flakyStore{Store: db},
		msgr:    &fakeMessenger{failFor: map[string]bool{}},
		charts:  newFakeCharts(t),
		analyst: &fakeAnalyst{},
		fx:      fx,
	}
	h.svc = New(h.store, h.msgr, h.charts, h.analyst, session.NewStore(4), nil)
	h.svc.now = func() time.Time { return fixedNow }
	return h
}

// sendFrom delivers text to chat and returns everything sent in response.
func (h *harness) sendFrom(t *testing.T, chat, text string) []outbound {
	t.Helper()
	require.NoError(t, h.svc.Handle(context.Background(), Inbound{ChatID: chat, SenderID: testSender, Text: text}))
	h.msgr.mu.Lock()
	defer h.msgr.mu.Unlock()
	out := append([]outbound(nil), h.msgr.sent[h.mark:]...)
	h.mark = len(h.msgr.sent)
	return out
}

func (h *harness) send(t *testing.T, text string) []outbound {
	t.Helper()
	return h.sendFrom(t, testChat, text)
}

// texts returns the text bodies of a reply batch.
func texts(out []outbound) []string {
	var s []string
	for _, o := range out {
		if o.Photo == "" {
			s = append(s, o.Text)
		}
	}
	return s
}

func (h *harness) state(t *testing.T) session.State {
	t.Helper()
	sess, ok := h.svc.sessions.Get(testChat)
	require.True(t, ok, "no session for test chat")
	return sess.State
}

// loginIn opens a session in chat and logs in with the role digit.
func (h *harness) loginIn(t *testing.T, chat, roleDigit, username string) {
	t.Helper()
	h.sendFrom(t, chat, "/start")
	h.sendFrom(t, chat, roleDigit)
	h.sendFrom(t, chat, username)
	h.sendFrom(t, chat, testPassword)
}

func (h *harness) login(t *testing.T, roleDigit, username string) {
	t.Helper()
	h.loginIn(t, testChat, roleDigit, username)
}

func (h *harness) createPeriod(t *testing.T, name string, approved bool) *store.ReportPeriod {
	t.Helper()
	p, err := h.db.CreateReportPeriod(context.Background(), h.fx.SchoolID, name)
	require.NoError(t, err)
	if approved {
		_, err = h.db.ToggleReportPeriodApproval(context.Background(), p.ID)
		require.NoError(t, err)
	}
	return p
}

func (h *harness) saveScore(t *testing.T, student, subject, period int64, value float64) {
	t.Helper()
	require.NoError(t, h.db.SaveStudentScore(context.Background(), store.ScoreInput{
		StudentID: student,
		SubjectID: subject,
		PeriodID:  period,
		Value:     &value,
	}))
}

func (h *harness) scoreRows(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, h.db.DB().Get(&n, "SELECT COUNT(*) FROM scores"))
	return n
}

// requireChartsRemoved checks that every chart file the fake produced is gone.
func (h *harness) requireChartsRemoved(t *testing.T) {
	t.Helper()
	for _, p := range h.charts.created {
		_, err := os.Stat(p)
		require.True(t, os.IsNotExist(err), "chart file %s still exists", p)
	}
}
