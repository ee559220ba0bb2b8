// ABOUTME: Manager engine: report periods, school analysis and score entry completion
// ABOUTME: '#' below the menu returns to the menu; '#' at the menu and '*' anywhere end the session

package conversation

import (
	"fmt"

	"github.com/2389/coven-gradebook/internal/analysis"
	"github.com/2389/coven-gradebook/internal/persian"
	"github.com/2389/coven-gradebook/internal/report"
	"github.com/2389/coven-gradebook/internal/session"
	"github.com/2389/coven-gradebook/internal/store"
)

const (
	msgManagerExit        = "✅ از ربات خارج شدید.\nبرای شروع دوباره /start را ارسال کنید."
	msgManagerLeave       = "✅ از منوی مدیر خارج شدید.\nبرای شروع دوباره /start را ارسال کنید."
	msgManagerInvalid     = "⚠️ لطفاً عدد معتبر را وارد کنید."
	msgAskPeriodName      = "📝 نام دوره کارنامه جدید را وارد کنید:"
	msgCreatePeriodFailed = "⚠️ خطا در ایجاد دوره."
	msgAnalysisFailed     = "⚠️ خطا در نمایش کارنامه‌ها."
	msgChartMissing       = "⚠️ فایل نمودار یافت نشد."
	msgNoPeriods          = "⚠️ هیچ دوره‌ای وجود ندارد."
	msgNoPeriodsToCheck   = "⚠️ هیچ دوره‌ای برای بررسی وجود ندارد."
	msgPeriodsFailed      = "⚠️ خطا در دریافت دوره‌ها."
	msgStatusFailed       = "⚠️ خطا در دریافت وضعیت نمرات."
	msgToggleFailed       = "⚠️ خطا در تغییر وضعیت دوره."
	msgEnterNumber        = "⚠️ لطفاً یک عدد وارد کنید."
	msgNumberOutOfRange   = "⚠️ عدد وارد شده معتبر نیست."
	msgDecisionInvalid    = "⚠️ لطفاً فقط 1 یا 2 را انتخاب کنید."

	approveListTitle = "📋 لیست دوره‌های کارنامه:"
	approveListHint  = "\nلطفاً عدد دوره‌ای که می‌خواهید وضعیت آن را تغییر دهید وارد کنید:\n" + report.BackHint
	checkListTitle   = "📋 لیست دوره‌های کارنامه برای بررسی وضعیت نمرات:"
	checkListHint    = "\nلطفاً عدد دوره‌ای که می‌خواهید بررسی کنید را وارد کنید:"
)

func (s *Service) handleManager(t *turn, st *session.ManagerState, text string) (session.State, error) {
	if text == tokenExit {
		s.say(t, msgManagerExit)
		return session.Reset, nil
	}

	if text == tokenBack {
		if st.Step == session.ManagerMenu || st.Step == session.ViewedReport {
			s.say(t, msgManagerLeave)
			return session.Reset, nil
		}
		return s.managerMenu(t, st), nil
	}

	switch st.Step {
	case session.ManagerMenu, session.ViewedReport:
		return s.managerMenuChoice(t, st, text), nil
	case session.CreateReportPeriod:
		return s.createReportPeriod(t, st, text), nil
	case session.ApproveReportPeriod:
		return s.approveReportPeriod(t, st, text), nil
	case session.CheckScoresStatus:
		return s.checkScoresStatus(t, st, text), nil
	case session.ManagerDecision:
		return s.managerDecision(t, st, text), nil
	}
	return nil, fmt.Errorf("unknown manager step %q", st.Step)
}

// managerMenu clears the scratch data of the deeper steps and shows the menu.
func (s *Service) managerMenu(t *turn, st *session.ManagerState) *session.ManagerState {
	st.ClearScratch()
	st.Step = session.ManagerMenu
	s.say(t, msgManagerMenu)
	return st
}

func (s *Service) managerMenuChoice(t *turn, st *session.ManagerState, text string) *session.ManagerState {
	switch text {
	case "1":
		st.Step = session.CreateReportPeriod
		s.say(t, msgAskPeriodName)
	case "2":
		s.schoolAnalysis(t, st)
	case "3":
		s.listManagerPeriods(t, st, session.ApproveReportPeriod)
	case "4":
		s.listManagerPeriods(t, st, session.CheckScoresStatus)
	default:
		s.say(t, msgManagerInvalid)
	}
	return st
}

func (s *Service) createReportPeriod(t *turn, st *session.ManagerState, name string) *session.ManagerState {
	if _, err := s.store.CreateReportPeriod(t.ctx, st.Account.ID, name); err != nil {
		t.logger.Error("failed to create report period", "school_id", st.Account.ID, "error", err)
		s.say(t, msgCreatePeriodFailed)
	} else {
		s.say(t, fmt.Sprintf("✅ دوره «%s» ایجاد شد.", name))
	}
	return s.managerMenu(t, st)
}

// schoolAnalysis sends the multi-period analysis text followed by its chart.
// On a data error the step is left unchanged.
func (s *Service) schoolAnalysis(t *turn, st *session.ManagerState) {
	a, err := s.store.SchoolAnalysis(t.ctx, st.Account.ID)
	if err != nil {
		t.logger.Error("failed to load school analysis", "school_id", st.Account.ID, "error", err)
		s.say(t, msgAnalysisFailed)
		return
	}

	text := report.SchoolAnalysisText(a, s.now())
	if resp := s.analyst.Respond(t.ctx, store.RoleManager, report.CourseStats(text)); !analysis.IsError(resp) {
		text += "\n\n" + " 🧠  تحلیل و پیشنهاد:" + resp
	}
	s.say(t, persian.ToPersianDigits(text))

	path, err := s.charts.SchoolAnalysis(t.ctx, "School "+a.SchoolName, a)
	caption := fmt.Sprintf("تحلیل و آنالیز تصویری مدرسه %s \n %s \n%s", a.SchoolName, s.today(), report.BackHint)
	s.sendChart(t, "school_analysis", path, err, caption, msgChartMissing)

	st.Step = session.ViewedReport
}

// listManagerPeriods loads every period of the school and moves to next.
// With no periods, or on error, the manager stays at the menu.
func (s *Service) listManagerPeriods(t *turn, st *session.ManagerState, next session.ManagerStep) {
	periods, err := s.store.ReportPeriods(t.ctx, st.Account.ID)
	if err != nil {
		t.logger.Error("failed to list report periods", "school_id", st.Account.ID, "error", err)
		if next == session.ApproveReportPeriod {
			s.say(t, msgPeriodsFailed)
		} else {
			s.say(t, msgStatusFailed)
		}
		return
	}

	if len(periods) == 0 {
		if next == session.ApproveReportPeriod {
			s.say(t, msgNoPeriods)
		} else {
			s.say(t, msgNoPeriodsToCheck)
		}
		return
	}

	st.Periods = periods
	st.Step = next
	s.say(t, managerPeriodList(next, periods))
}

func managerPeriodList(step session.ManagerStep, periods []store.ReportPeriod) string {
	if step == session.ApproveReportPeriod {
		return report.PeriodList(approveListTitle, periods, true) + approveListHint
	}
	return report.PeriodList(checkListTitle, periods, false) + checkListHint
}

// choosePeriod resolves a period selection, replying with the re-prompt
// when the input is rejected.
func (s *Service) choosePeriod(t *turn, periods []store.ReportPeriod, text string) (store.ReportPeriod, bool) {
	i, reason := ParseChoice(text, len(periods))
	switch reason {
	case ReasonNotNumber:
		s.say(t, msgEnterNumber)
		return store.ReportPeriod{}, false
	case ReasonOutOfRange:
		s.say(t, msgNumberOutOfRange)
		return store.ReportPeriod{}, false
	}
	return periods[i], true
}

func (s *Service) approveReportPeriod(t *turn, st *session.ManagerState, text string) *session.ManagerState {
	period, ok := s.choosePeriod(t, st.Periods, text)
	if !ok {
		return st
	}

	approved, err := s.store.ToggleReportPeriodApproval(t.ctx, period.ID)
	if err != nil {
		t.logger.Error("failed to toggle report period", "period_id", period.ID, "error", err)
		s.say(t, msgToggleFailed)
		return s.managerMenu(t, st)
	}

	status := "❌ عدم تأیید شد"
	if approved {
		status = "✅ تأیید شد"
	}
	s.say(t, fmt.Sprintf("دوره «%s» %s.", period.Name, status))
	return s.managerMenu(t, st)
}

func (s *Service) checkScoresStatus(t *turn, st *session.ManagerState, text string) *session.ManagerState {
	period, ok := s.choosePeriod(t, st.Periods, text)
	if !ok {
		return st
	}

	statuses, err := s.store.ScoresCompletionStatus(t.ctx, period.ID, st.Account.ID)
	if err != nil {
		t.logger.Error("failed to load completion status", "period_id", period.ID, "error", err)
		s.say(t, msgStatusFailed)
		return st
	}

	s.say(t, report.CompletionReport(period.Name, statuses, s.now()))

	var incomplete []store.CompletionStatus
	for _, c := range statuses {
		if c.Status == store.StatusIncomplete {
			incomplete = append(incomplete, c)
		}
	}
	if len(incomplete) == 0 {
		return s.managerMenu(t, st)
	}

	st.Periods = nil
	st.Incomplete = incomplete
	st.SelectedPeriod = &period
	st.Step = session.ManagerDecision
	return st
}

func (s *Service) managerDecision(t *turn, st *session.ManagerState, text string) *session.ManagerState {
	switch text {
	case "1":
		s.sendReminders(t, st)
		return s.managerMenu(t, st)
	case "2":
		return s.managerMenu(t, st)
	}
	s.say(t, msgDecisionInvalid)
	return st
}

// sendReminders messages every teacher with unfinished scores at their
// newest contact and reports the outcome to the manager in one message.
func (s *Service) sendReminders(t *turn, st *session.ManagerState) {
	var summary string
	for _, teacher := range report.IncompleteTeachers(st.Incomplete) {
		contacts, err := s.store.Contacts(t.ctx, store.RoleTeacher, teacher.TeacherID)
		if err != nil {
			t.logger.Error("failed to load teacher contacts", "teacher_id", teacher.TeacherID, "error", err)
		}
		if len(contacts) == 0 {
			summary += fmt.Sprintf("\n⚠️ آیدی %s پیدا نشد.", teacher.Teacher)
			continue
		}

		msg := report.Reminder(teacher, st.SelectedPeriod.Name, s.now())
		if s.sayTo(t, contacts[0], msg) {
			t.logger.Info("sent score reminder", "teacher_id", teacher.TeacherID, "period_id", st.SelectedPeriod.ID)
			summary += fmt.Sprintf("\n✅ پیام یادآوری برای %s ارسال شد.", teacher.Teacher)
		} else {
			summary += fmt.Sprintf("\n⚠️ ارسال پیام به %s ممکن نبود.", teacher.Teacher)
		}
	}
	if summary != "" {
		s.say(t, summary)
	}
}
