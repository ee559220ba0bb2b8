// ABOUTME: Student engine: approved period list and the full report card with charts and history
// ABOUTME: Charts are produced one after another; each file is removed once it has been sent

package conversation

import (
	"fmt"

	"github.com/2389/coven-gradebook/internal/analysis"
	"github.com/2389/coven-gradebook/internal/report"
	"github.com/2389/coven-gradebook/internal/session"
	"github.com/2389/coven-gradebook/internal/store"
)

const (
	msgStudentExit      = "✅ از منوی دانش‌آموز خارج شدید. برای شروع دوباره /start را ارسال کنید."
	msgStudentInvalid   = "❌ گزینه نامعتبر است. لطفاً یکی از گزینه‌های منو را انتخاب کنید."
	msgStudentNoPeriods = "❌ هنوز دوره‌ای برای نمایش کارنامه ایجاد نشده است."
	msgStudentNoneYet   = "❌ هنوز دوره‌ای ایجاد نشده است."
	msgStudentBadPeriod = "❌ شماره دوره نامعتبر است. لطفاً شماره صحیح را وارد کنید."
	msgStudentError     = "⚠️ خطای کلی در پردازش درخواست شما رخ داد. لطفاً مجدداً تلاش کنید."
	msgPreparingReport  = "⏳ در حال آماده‌سازی گزارش شما... لطفاً شکیبا باشید."
	msgNoReportScores   = "📭 هنوز نمره‌ای برای این دوره ثبت نشده است."
	msgPickAnotherTerm  = "لطفاً دوره دیگری را انتخاب کنید یا برای بازگشت # را بزنید."
	msgReportReady      = "✅ گزارش شما آماده شد.\n" +
		"🔸 برای مشاهده کارنامه دوره‌ای دیگر، شماره آن را وارد کنید.\n" +
		"🔹 برای بازگشت به لیست دوره‌ها «#» را ارسال کنید."
	subjectTrendsCaption = "نمودار روند نمرات دروس در دوره‌های مختلف"
)

func (s *Service) handleStudent(t *turn, st *session.StudentState, text string) (session.State, error) {
	if text == tokenExit {
		s.say(t, msgStudentExit)
		return session.Reset, nil
	}
	if text == tokenBack {
		return s.studentBack(t, st), nil
	}

	switch st.Step {
	case session.StudentMenu:
		if text != "1" {
			s.say(t, msgStudentInvalid)
			return st, nil
		}
		periods, ok := s.studentPeriods(t, st)
		if !ok {
			return st, nil
		}
		if len(periods) == 0 {
			s.say(t, msgStudentNoPeriods)
			return st, nil
		}
		return s.showPeriods(t, st, periods), nil

	case session.ShowPeriods, session.ViewingReport:
		return s.viewReport(t, st, text), nil
	}
	return nil, fmt.Errorf("unknown student step %q", st.Step)
}

// studentBack returns to the step recorded in PrevStep, or ends the session
// when there is none.
func (s *Service) studentBack(t *turn, st *session.StudentState) session.State {
	switch st.PrevStep {
	case session.StudentMenu:
		return s.studentMenu(t, st)
	case session.ShowPeriods:
		periods, ok := s.studentPeriods(t, st)
		if !ok {
			return st
		}
		if len(periods) == 0 {
			s.say(t, msgStudentNoneYet)
			return s.studentMenu(t, st)
		}
		return s.showPeriods(t, st, periods)
	}
	s.say(t, msgStudentExit)
	return session.Reset
}

func (s *Service) studentMenu(t *turn, st *session.StudentState) *session.StudentState {
	st.Step = session.StudentMenu
	st.PrevStep = ""
	st.Periods = nil
	s.say(t, msgStudentMenu)
	return st
}

func (s *Service) showPeriods(t *turn, st *session.StudentState, periods []store.ReportPeriod) *session.StudentState {
	st.Periods = periods
	st.Step = session.ShowPeriods
	st.PrevStep = session.StudentMenu
	items := make([]string, len(periods))
	for i, p := range periods {
		items[i] = p.Name
	}
	s.say(t, numbered("📅 لطفاً شماره دوره را انتخاب کنید:", items, report.BackHint))
	return st
}

// studentPeriods lists the approved periods of the student's school.
func (s *Service) studentPeriods(t *turn, st *session.StudentState) ([]store.ReportPeriod, bool) {
	schoolID, err := s.store.StudentSchoolID(t.ctx, st.Account.ID)
	if err != nil {
		t.logger.Error("failed to resolve student school", "student_id", st.Account.ID, "error", err)
		s.say(t, msgStudentError)
		return nil, false
	}
	periods, err := s.store.ApprovedReportPeriods(t.ctx, schoolID)
	if err != nil {
		t.logger.Error("failed to list approved periods", "school_id", schoolID, "error", err)
		s.say(t, msgStudentError)
		return nil, false
	}
	return periods, true
}

// viewReport sends the report card of the selected period. Whatever the
// outcome the student ends up back at the period list.
func (s *Service) viewReport(t *turn, st *session.StudentState, text string) *session.StudentState {
	i, reason := ParseChoice(text, len(st.Periods))
	if reason != ReasonOK {
		s.say(t, msgStudentBadPeriod)
		return st
	}
	period := st.Periods[i]

	st.Step = session.ViewingReport
	st.PrevStep = session.ShowPeriods
	defer func() {
		st.Step = session.ShowPeriods
		st.PrevStep = session.StudentMenu
	}()

	s.say(t, msgPreparingReport)

	r, err := s.store.StudentReport(t.ctx, st.Account.ID, period.ID)
	if err != nil {
		t.logger.Error("failed to load report card", "student_id", st.Account.ID, "period_id", period.ID, "error", err)
		s.say(t, msgStudentError)
		return st
	}
	if len(r.Scores) == 0 {
		s.say(t, msgNoReportScores)
		s.say(t, msgPickAnotherTerm)
		return st
	}

	name := st.Account.Name
	commentary := s.analyst.Respond(t.ctx, store.RoleStudent, report.ReportCardSummary(r, name, period.Name))
	if analysis.IsError(commentary) {
		commentary = ""
	}
	s.say(t, report.ReportCard(r, name, period.Name, commentary))

	history, err := s.store.PerformanceHistory(t.ctx, st.Account.ID)
	if err != nil {
		t.logger.Error("failed to load performance history", "student_id", st.Account.ID, "error", err)
		history = nil
	}

	path, err := s.charts.ReportComparison(t.ctx, name+" - "+period.Name, r.Scores)
	s.sendChart(t, "report_comparison", path, err, fmt.Sprintf("📊 نمودار نمرات %s و میانگین کلاس", name), "")

	if history != nil && len(history.Entries) > 0 {
		s.historyCharts(t, name, history)
		s.say(t, report.ScoreHistory(history, name, s.now()))
	}

	s.say(t, msgReportReady)
	return st
}

func (s *Service) historyCharts(t *turn, name string, h *store.PerformanceHistory) {
	path, err := s.charts.AverageTrend(t.ctx, name, h.StudentAverages, h.ClassAverages)
	s.sendChart(t, "average_trend", path, err, fmt.Sprintf("📊 نمودار پیشرفت تحصیلی %s", name), "")

	path, err = s.charts.Radar(t.ctx, name, report.RadarData(h))
	s.sendChart(t, "radar", path, err, fmt.Sprintf("📊 نمودار راداری عملکرد ساحت های شش گانه %s", name), "")

	// Each image is sent and removed before the next one is rendered.
	err = s.charts.SubjectTrends(t.ctx, name, h.Entries, func(p string) error {
		s.sendChart(t, "subject_trends", p, nil, subjectTrendsCaption, "")
		return t.ctx.Err()
	})
	if err != nil {
		s.sendChart(t, "subject_trends", "", err, "", "")
	}
}
