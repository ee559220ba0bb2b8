// ABOUTME: Teacher engine: period and subject selection, batch and single score entry, class summary
// ABOUTME: Each save is committed on its own, so leaving mid-batch keeps the scores entered so far

package conversation

import (
	"errors"
	"fmt"

	"github.com/2389/coven-gradebook/internal/analysis"
	"github.com/2389/coven-gradebook/internal/persian"
	"github.com/2389/coven-gradebook/internal/report"
	"github.com/2389/coven-gradebook/internal/session"
	"github.com/2389/coven-gradebook/internal/store"
)

const teacherFooter = "'*' برای خروج، '#' برای بازگشت."

const (
	msgTeacherExit         = "✅ از حالت معلم خارج شدید. برای شروع مجدد /start را ارسال کنید."
	msgTeacherBack         = "🔙 به منوی قبلی بازگشتید."
	msgTeacherPeriodsError = "❌ خطا در دریافت دوره‌ها. لطفاً بعداً تلاش کنید."
	msgTeacherSubjectsErr  = "❌ خطا در دریافت دروس."
	msgTeacherNoSubjects   = "❌ هیچ درسی برای شما ثبت نشده است."
	msgStudentsError       = "❌ خطا در دریافت دانش‌آموزان."
	msgNoStudents          = "❌ هیچ دانش‌آموزی یافت نشد."
	msgClassDataError      = "❌ خطا در دریافت اطلاعات کلاس."
	msgChartFailed         = "⚠️ خطا در تولید نمودار."
	msgNextAction          = "👇 لطفاً عملیات بعدی را انتخاب کنید."
	msgInvalidPeriod       = "❌ شماره دوره نامعتبر است. " + teacherFooter
	msgInvalidSubject      = "❌ شماره درس نامعتبر است. " + teacherFooter
	msgInvalidStudent      = "❌ شماره دانش‌آموز نامعتبر است. " + teacherFooter
	msgInvalidAction       = "لطفاً یکی از گزینه‌های 1 تا 3 را وارد کنید یا '*' برای خروج، '#' برای بازگشت."
	msgScoreNotNumber      = "❌ لطفاً فقط عدد وارد کنید یا '-' برای رد کردن."
	msgScoreOutOfRange     = "❌ نمره باید بین 0 تا 20 باشد."
	msgAskDescription      = "📝 توضیحات نمره؟ (برای رد شدن '-' بزنید) '*' برای خروج، '#' برای بازگشت"
	msgSaveFailed          = "❌ خطا در ذخیرهٔ نمره."
	msgScoreSaved          = "✅ نمره دانش‌آموز ثبت شد."
	msgBatchDone           = "✅ ثبت نمرات همه دانش‌آموزان پایان یافت."
)

func (s *Service) handleTeacher(t *turn, st *session.TeacherState, text string) (session.State, error) {
	switch text {
	case tokenExit, wordExit, cmdExit:
		s.say(t, msgTeacherExit)
		return session.Reset, nil
	case tokenBack:
		return s.teacherBack(t, st), nil
	}

	switch st.Step {
	case session.TeacherMenu:
		return s.loadTeacherPeriods(t, st), nil
	case session.SelectPeriod:
		return s.selectPeriod(t, st, text), nil
	case session.SelectSubject:
		return s.selectSubject(t, st, text), nil
	case session.ChooseAction:
		return s.chooseAction(t, st, text), nil
	case session.EnterScore, session.EnterScoreSingle:
		return s.enterScore(t, st, text), nil
	case session.EnterDescription:
		return s.enterDescription(t, st, text), nil
	case session.SelectStudent:
		return s.selectStudent(t, st, text), nil
	case session.EnterDescriptionSingle:
		return s.enterDescriptionSingle(t, st, text), nil
	}
	return nil, fmt.Errorf("unknown teacher step %q", st.Step)
}

// teacherBack moves one level up the selection chain.
func (s *Service) teacherBack(t *turn, st *session.TeacherState) session.State {
	switch st.Step {
	case session.TeacherMenu:
		s.say(t, msgTeacherExit)
		return session.Reset
	case session.SelectPeriod:
		st.Periods = nil
		st.Step = session.TeacherMenu
		s.say(t, msgTeacherBack)
		s.say(t, msgTeacherMenu)
	case session.SelectSubject:
		st.Subjects = nil
		st.PeriodID = 0
		st.Step = session.SelectPeriod
		s.say(t, msgTeacherBack)
		s.say(t, teacherPeriodList(st.Periods))
	case session.ChooseAction:
		st.Subject = nil
		st.Step = session.SelectSubject
		s.say(t, msgTeacherBack)
		s.say(t, subjectList(st.Subjects))
	default:
		st.ClearEntry()
		st.Step = session.ChooseAction
		s.say(t, msgTeacherBack)
		s.say(t, actionsText(st.Subject))
	}
	return st
}

func teacherPeriodList(periods []store.ReportPeriod) string {
	items := make([]string, len(periods))
	for i, p := range periods {
		items[i] = p.Name
	}
	return numbered("📅 لطفاً شماره دوره را انتخاب کنید:", items, teacherFooter)
}

func subjectList(subjects []store.Subject) string {
	items := make([]string, len(subjects))
	for i, sub := range subjects {
		items[i] = sub.Name + " " + sub.ClassName
	}
	return numbered("📚 لطفاً شماره درس را انتخاب کنید:", items, teacherFooter)
}

func actionsText(sub *store.Subject) string {
	return fmt.Sprintf("📘 درس: %s %s\n", sub.Name, sub.ClassName) +
		"عملیات را انتخاب کنید:\n" +
		"1. ثبت / ویرایش نمرات همه دانش‌آموزان کلاس\n" +
		"2. مشاهده خلاصه وضعیت کلاس\n" +
		"3. ثبت / ویرایش نمره یک دانش‌آموز خاص\n" +
		teacherFooter
}

// loadTeacherPeriods lists the periods of the teacher's school. The teacher
// stays at the menu when there is nothing to pick.
func (s *Service) loadTeacherPeriods(t *turn, st *session.TeacherState) *session.TeacherState {
	schoolID, err := s.store.TeacherSchoolID(t.ctx, st.Account.ID)
	if err != nil {
		t.logger.Error("failed to resolve teacher school", "teacher_id", st.Account.ID, "error", err)
		s.say(t, msgTeacherPeriodsError)
		return st
	}
	periods, err := s.store.ReportPeriods(t.ctx, schoolID)
	if err != nil {
		t.logger.Error("failed to list report periods", "school_id", schoolID, "error", err)
		s.say(t, msgTeacherPeriodsError)
		return st
	}
	if len(periods) == 0 {
		s.say(t, msgNoPeriods)
		return st
	}

	st.Periods = periods
	st.Step = session.SelectPeriod
	s.say(t, teacherPeriodList(periods))
	return st
}

func (s *Service) selectPeriod(t *turn, st *session.TeacherState, text string) *session.TeacherState {
	i, reason := ParseChoice(text, len(st.Periods))
	if reason != ReasonOK {
		s.say(t, msgInvalidPeriod)
		return st
	}

	subjects, err := s.store.SubjectsByTeacher(t.ctx, st.Account.ID)
	if err != nil {
		t.logger.Error("failed to list subjects", "teacher_id", st.Account.ID, "error", err)
		s.say(t, msgTeacherSubjectsErr)
		return st
	}
	if len(subjects) == 0 {
		s.say(t, msgTeacherNoSubjects)
		return st
	}

	st.PeriodID = st.Periods[i].ID
	st.Subjects = subjects
	st.Step = session.SelectSubject
	s.say(t, subjectList(subjects))
	return st
}

func (s *Service) selectSubject(t *turn, st *session.TeacherState, text string) *session.TeacherState {
	i, reason := ParseChoice(text, len(st.Subjects))
	if reason != ReasonOK {
		s.say(t, msgInvalidSubject)
		return st
	}

	sub := st.Subjects[i]
	st.Subject = &sub
	st.Step = session.ChooseAction
	s.say(t, actionsText(st.Subject))
	return st
}

func (s *Service) chooseAction(t *turn, st *session.TeacherState, text string) *session.TeacherState {
	switch text {
	case "1":
		students, ok := s.classStudents(t, st)
		if !ok {
			return st
		}
		st.Students = students
		st.Index = 0
		st.Current = &students[0]
		st.PendingScore = nil
		st.Step = session.EnterScore
		s.say(t, s.scorePrompt(t, st))
	case "2":
		s.classSummary(t, st)
		s.say(t, msgNextAction)
		s.say(t, actionsText(st.Subject))
	case "3":
		students, ok := s.classStudents(t, st)
		if !ok {
			return st
		}
		st.Students = students
		st.Step = session.SelectStudent
		s.say(t, s.studentPicker(t, st))
	default:
		s.say(t, msgInvalidAction)
	}
	return st
}

// classStudents loads the class of the selected subject. ok is false, with
// the reply already sent, when there is nobody to grade.
func (s *Service) classStudents(t *turn, st *session.TeacherState) ([]store.Student, bool) {
	students, err := s.store.StudentsByClass(t.ctx, st.Subject.ClassID)
	if err != nil {
		t.logger.Error("failed to list class students", "class_id", st.Subject.ClassID, "error", err)
		s.say(t, msgStudentsError)
		return nil, false
	}
	if len(students) == 0 {
		s.say(t, msgNoStudents)
		return nil, false
	}
	return students, true
}

// previous returns the stored score of a student in the selected subject
// and period, or nil when there is none or it cannot be loaded.
func (s *Service) previous(t *turn, st *session.TeacherState, studentID int64) *store.Score {
	sc, err := s.store.StudentScore(t.ctx, studentID, st.Subject.ID, st.PeriodID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			t.logger.Warn("failed to load previous score", "student_id", studentID, "error", err)
		}
		return nil
	}
	return sc
}

func (s *Service) scorePrompt(t *turn, st *session.TeacherState) string {
	return fmt.Sprintf("👨‍🎓 وارد کردن نمره برای: %s\n", st.Current.Name) +
		previousScore(s.previous(t, st, st.Current.ID)) +
		"لطفاً نمره را وارد کنید (عدد) یا '-' برای رد کردن. " + teacherFooter
}

func (s *Service) studentPicker(t *turn, st *session.TeacherState) string {
	msg := "👨‍🎓 لطفاً شماره دانش‌آموز را انتخاب کنید:\n"
	for i, student := range st.Students {
		msg += fmt.Sprintf("%d. %s\n", i+1, student.Name)
		msg += previousScore(s.previous(t, st, student.ID))
	}
	return msg + "\n" + teacherFooter
}

func (s *Service) selectStudent(t *turn, st *session.TeacherState, text string) *session.TeacherState {
	i, reason := ParseChoice(text, len(st.Students))
	if reason != ReasonOK {
		s.say(t, msgInvalidStudent)
		return st
	}

	student := st.Students[i]
	st.Current = &student
	st.PendingScore = nil
	st.Step = session.EnterScoreSingle
	s.say(t, s.scorePrompt(t, st))
	return st
}

// enterScore validates a score for the current student, batch or single.
func (s *Service) enterScore(t *turn, st *session.TeacherState, text string) *session.TeacherState {
	score := ParseScore(text)
	switch score.Reason {
	case ReasonNotNumber:
		s.say(t, msgScoreNotNumber)
		return st
	case ReasonOutOfRange:
		s.say(t, msgScoreOutOfRange)
		return st
	}

	st.PendingScore = score.Value
	if st.Step == session.EnterScore {
		st.Step = session.EnterDescription
	} else {
		st.Step = session.EnterDescriptionSingle
	}
	s.say(t, msgAskDescription)
	return st
}

// saveCurrent persists the pending score of the current student. Nothing is
// written when both score and description were skipped.
func (s *Service) saveCurrent(t *turn, st *session.TeacherState, description string) error {
	if st.PendingScore == nil && description == "" {
		return nil
	}
	err := s.store.SaveStudentScore(t.ctx, store.ScoreInput{
		StudentID:   st.Current.ID,
		SubjectID:   st.Subject.ID,
		PeriodID:    st.PeriodID,
		Value:       st.PendingScore,
		Description: description,
	})
	if err != nil {
		t.logger.Error("failed to save score",
			"student_id", st.Current.ID,
			"subject_id", st.Subject.ID,
			"period_id", st.PeriodID,
			"error", err)
		return err
	}
	return nil
}

func (s *Service) enterDescription(t *turn, st *session.TeacherState, text string) *session.TeacherState {
	if err := s.saveCurrent(t, st, ParseDescription(text)); err != nil {
		s.say(t, msgSaveFailed)
		return st
	}

	st.Index++
	if st.Index < len(st.Students) {
		st.Current = &st.Students[st.Index]
		st.PendingScore = nil
		st.Step = session.EnterScore
		s.say(t, s.scorePrompt(t, st))
		return st
	}

	st.ClearEntry()
	st.Step = session.ChooseAction
	s.say(t, msgBatchDone)
	s.say(t, actionsText(st.Subject))
	return st
}

func (s *Service) enterDescriptionSingle(t *turn, st *session.TeacherState, text string) *session.TeacherState {
	if err := s.saveCurrent(t, st, ParseDescription(text)); err != nil {
		s.say(t, msgSaveFailed)
		return st
	}

	st.ClearEntry()
	st.Step = session.ChooseAction
	s.say(t, msgScoreSaved)
	s.say(t, actionsText(st.Subject))
	return st
}

// classSummary sends the class statistics of the selected subject and, when
// anyone has a score, the summary chart.
func (s *Service) classSummary(t *turn, st *session.TeacherState) {
	sub := st.Subject
	scores, err := s.store.StudentScoresByClass(t.ctx, sub.ClassID, sub.ID, st.PeriodID)
	if err != nil {
		t.logger.Error("failed to load class scores", "subject_id", sub.ID, "period_id", st.PeriodID, "error", err)
		s.say(t, msgClassDataError)
		return
	}

	stats, ok := report.Summarize(scores)
	if !ok {
		s.say(t, report.NoScoresSummary(sub.Name))
		return
	}

	text := report.ClassSummary(sub.Name, sub.ClassName, stats)
	commentary := s.analyst.Respond(t.ctx, store.RoleTeacher, text)
	if analysis.IsError(commentary) {
		commentary = ""
	}
	s.say(t, persian.ToPersianDigits(report.WithCommentary(text, commentary)))

	path, err := s.charts.ClassSummary(t.ctx, sub.Name+" "+sub.ClassName, stats.Scores)
	caption := fmt.Sprintf("تحلیل آماری نمرات %s %s: %s \n %s", sub.Name, sub.ClassName, st.Account.Name, s.today())
	s.sendChart(t, "class_summary", path, err, caption, msgChartFailed)
}
