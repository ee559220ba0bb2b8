// ABOUTME: Tests for the student engine: period listing, report cards, charts and navigation

package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-gradebook/internal/chart"
	"github.com/2389/coven-gradebook/internal/persian"
	"github.com/2389/coven-gradebook/internal/session"
	"github.com/2389/coven-gradebook/internal/store"
)

func studentState(t *testing.T, h *harness) *session.StudentState {
	t.Helper()
	st, ok := h.state(t).(*session.StudentState)
	require.True(t, ok, "state is %s", h.state(t).Name())
	return st
}

func TestStudent_NoApprovedPeriods(t *testing.T) {
	h := newHarness(t)
	h.createPeriod(t, "Draft", false)
	h.login(t, "3", "s1")

	out := h.send(t, "1")
	assert.Equal(t, []string{msgStudentNoPeriods}, texts(out))
	assert.Equal(t, session.StudentMenu, studentState(t, h).Step)

	out = h.send(t, "2")
	assert.Equal(t, []string{msgStudentInvalid}, texts(out))
}

func TestStudent_ListsOnlyApprovedPeriods(t *testing.T) {
	h := newHarness(t)
	h.createPeriod(t, "Draft", false)
	h.createPeriod(t, "Term 1", true)
	h.login(t, "3", "s1")

	out := h.send(t, "1")
	require.Len(t, texts(out), 1)
	list := texts(out)[0]
	assert.Contains(t, list, "1. Term 1\n")
	assert.NotContains(t, list, "Draft")

	st := studentState(t, h)
	assert.Equal(t, session.ShowPeriods, st.Step)
	assert.Equal(t, session.StudentMenu, st.PrevStep)
	require.Len(t, st.Periods, 1)

	out = h.send(t, "3")
	assert.Equal(t, []string{msgStudentBadPeriod}, texts(out))
}

func TestStudent_ReportWithoutScores(t *testing.T) {
	h := newHarness(t)
	h.createPeriod(t, "Term 1", true)
	h.login(t, "3", "s1")
	h.send(t, "1")

	out := h.send(t, "1")
	assert.Equal(t, []string{msgPreparingReport, msgNoReportScores, msgPickAnotherTerm}, texts(out))
	assert.Equal(t, 0, h.charts.total())
	assert.Empty(t, h.analyst.roles)

	st := studentState(t, h)
	assert.Equal(t, session.ShowPeriods, st.Step)
	assert.Equal(t, session.StudentMenu, st.PrevStep)
}

func TestStudent_FullReport(t *testing.T) {
	h := newHarness(t)
	p := h.createPeriod(t, "Term 1", true)
	h.saveScore(t, h.fx.Students[0], h.fx.MathID, p.ID, 17)
	h.saveScore(t, h.fx.Students[0], h.fx.ScienceID, p.ID, 14)
	h.saveScore(t, h.fx.Students[1], h.fx.MathID, p.ID, 13)
	h.analyst.response = "خوب است"
	h.login(t, "3", "s1")
	h.send(t, "1")

	out := h.send(t, "1")
	require.Len(t, out, 8)
	assert.Equal(t, msgPreparingReport, out[0].Text)
	// The card converts every digit, the student's name included.
	assert.Contains(t, out[1].Text, persian.ToPersianDigits("Student 1"))
	assert.NotContains(t, out[1].Text, "Student 1")
	assert.Contains(t, out[1].Text, "خوب است")
	assert.Contains(t, out[2].Caption, "📊 نمودار نمرات Student 1 و میانگین کلاس")
	assert.Contains(t, out[3].Caption, "📊 نمودار پیشرفت تحصیلی Student 1")
	assert.Contains(t, out[4].Caption, "نمودار راداری")
	assert.Equal(t, subjectTrendsCaption, out[5].Caption)
	assert.Contains(t, out[6].Text, "📚 تاریخچه نمرات شما:")
	assert.Equal(t, msgReportReady, out[7].Text)

	for _, o := range out[2:6] {
		assert.True(t, o.PhotoExisted, "photo %s", o.Photo)
	}
	h.requireChartsRemoved(t)
	assert.Equal(t, []store.Role{store.RoleStudent}, h.analyst.roles)

	st := studentState(t, h)
	assert.Equal(t, session.ShowPeriods, st.Step)
	assert.Equal(t, session.StudentMenu, st.PrevStep)
}

func TestStudent_ChartFailureDoesNotAbortReport(t *testing.T) {
	h := newHarness(t)
	p := h.createPeriod(t, "Term 1", true)
	h.saveScore(t, h.fx.Students[0], h.fx.MathID, p.ID, 17)
	h.charts.errs["report_comparison"] = errors.New("font missing")
	h.charts.errs["radar"] = chart.ErrNoData
	h.login(t, "3", "s1")
	h.send(t, "1")

	out := h.send(t, "1")
	var photos int
	for _, o := range out {
		if o.Photo != "" {
			photos++
		}
	}
	assert.Equal(t, 2, photos)
	assert.Equal(t, msgReportReady, out[len(out)-1].Text)
	assert.Equal(t, 1, h.charts.calls["radar"])
	h.requireChartsRemoved(t)
}

func TestStudent_SubjectTrendImagesAreSentOneAtATime(t *testing.T) {
	h := newHarness(t)
	p := h.createPeriod(t, "Term 1", true)
	h.saveScore(t, h.fx.Students[0], h.fx.MathID, p.ID, 17)
	h.charts.subjectGroups = 3
	h.login(t, "3", "s1")
	h.send(t, "1")

	out := h.send(t, "1")
	var trends int
	for _, o := range out {
		if o.Caption == subjectTrendsCaption {
			trends++
			assert.True(t, o.PhotoExisted)
		}
	}
	assert.Equal(t, 3, trends)
	assert.Equal(t, 3, h.charts.calls["subject_trends"])
	assert.False(t, h.charts.overlapped, "an image was rendered before the previous one was removed")
	h.requireChartsRemoved(t)
}

func TestStudent_BackNavigation(t *testing.T) {
	h := newHarness(t)
	h.createPeriod(t, "Term 1", true)
	h.login(t, "3", "s1")
	h.send(t, "1")

	out := h.send(t, "#")
	assert.Equal(t, []string{msgStudentMenu}, texts(out))
	st := studentState(t, h)
	assert.Equal(t, session.StudentMenu, st.Step)
	assert.Nil(t, st.Periods)

	out = h.send(t, "#")
	assert.Equal(t, []string{msgStudentExit, msgResetPrompt}, texts(out))
	_, ok := h.state(t).(*session.GateState)
	assert.True(t, ok)
}

func TestStudent_ExitFromPeriodList(t *testing.T) {
	h := newHarness(t)
	h.createPeriod(t, "Term 1", true)
	h.login(t, "3", "s1")
	h.send(t, "1")

	out := h.send(t, "*")
	assert.Equal(t, []string{msgStudentExit, msgResetPrompt}, texts(out))
}
