// ABOUTME: Manager-facing texts: multi-period school analysis, score entry completion and reminders
// ABOUTME: CourseStats flattens the per-subject blocks into one line for the analyst

package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/2389/coven-gradebook/internal/persian"
	"github.com/2389/coven-gradebook/internal/store"
)

// SchoolAnalysisText renders every period of the analysis followed by the
// comparisons between consecutive scored periods.
func SchoolAnalysisText(a *store.SchoolAnalysis, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 گزارش تحلیلی مدرسه %s در تمام دوره‌ها:\n %s \n", a.SchoolName, persian.Date(now))

	for _, p := range a.Periods {
		if !p.HasScores {
			fmt.Fprintf(&b, "📌 %s: هیچ نمره‌ای برای این دوره ثبت نشده است.\n\n", p.Period.Name)
			continue
		}
		fmt.Fprintf(&b, "📌 دوره: %s\n", p.Period.Name)
		fmt.Fprintf(&b, "👥 تعداد کل دانش‌آموزان: %d\n", a.TotalStudents)
		fmt.Fprintf(&b, "📝 تعداد با نمره ثبت‌شده: %d\n", p.CountWithScores)
		fmt.Fprintf(&b, "📈 میانگین کل: %s\n", num(p.OverallAverage))
		fmt.Fprintf(&b, "✅ قبولی‌ها (>=10): %d\n", p.Passed)
		fmt.Fprintf(&b, "❌ مردودی‌ها (<10): %d\n", p.Failed)
		fmt.Fprintf(&b, "🔝 بیشترین معدل: %s\n", num(p.MaxAverage))
		fmt.Fprintf(&b, "🔻 کمترین معدل: %s\n", num(p.MinAverage))
		b.WriteString("📊 پراکندگی نمرات:\n" + Separator + "\n     بازه| تعداد\n")
		for _, r := range p.Ranges {
			fmt.Fprintf(&b, "   • %s: %d نفر\n", r.Label, r.Count)
		}
		if len(p.Subjects) > 0 {
			b.WriteString("📚 آمار هر درس:\n" + Separator + "\n     درس             | تعداد نمرات| میانگین\n")
			for _, s := range p.Subjects {
				fmt.Fprintf(&b, "   • %-15s %-11d, %7s\n", s.Name, s.Count, num(s.Average))
			}
		}
		b.WriteString("\n")
	}

	if len(a.Comparisons) > 0 {
		b.WriteString(Separator + "\n" + comparisonMarker + "\n")
		for _, c := range a.Comparisons {
			fmt.Fprintf(&b, "🔸 از «%s» تا «%s»:\n", c.Previous, c.Current)
			fmt.Fprintf(&b, "   • تغییر میانگین کل: %s (%s)\n", num(c.AverageChange), trend(c.AverageChange, "📈 پیشرفت", "📉 افت"))
			fmt.Fprintf(&b, "   • تغییر تعداد قبولی‌ها: %d (%s)\n\n", c.PassedChange, trend(float64(c.PassedChange), "📈 افزایش قبولی", "📉 کاهش قبولی"))
		}
	}

	return strings.TrimSpace(b.String())
}

func trend(v float64, up, down string) string {
	switch {
	case v > 0:
		return up
	case v < 0:
		return down
	}
	return "➖ بدون تغییر"
}

const (
	comparisonMarker = "📌 مقایسه دوره‌ها:"
	periodMarker     = "📌 دوره:"
	subjectsMarker   = "📚 آمار هر درس:"
)

var whitespace = regexp.MustCompile(`\s+`)

// CourseStats extracts the period titles and per-subject blocks of a
// SchoolAnalysisText as a single line without rules or repeated spaces.
func CourseStats(text string) string {
	text, _, _ = strings.Cut(text, comparisonMarker)

	sections := strings.Split(text, periodMarker)
	var parts []string
	for _, section := range sections[1:] {
		_, stats, ok := strings.Cut(section, subjectsMarker)
		if !ok {
			continue
		}
		title, _, _ := strings.Cut(section, "\n")
		parts = append(parts, periodMarker+" "+strings.TrimSpace(title)+"\n"+subjectsMarker+strings.TrimRight(stats, " \n\t"))
	}

	joined := strings.ReplaceAll(strings.Join(parts, " "), "━", "")
	return strings.TrimSpace(whitespace.ReplaceAllString(joined, " "))
}

// IncompleteTeacher groups the unfinished class subjects of one teacher.
type IncompleteTeacher struct {
	TeacherID int64
	Teacher   string
	Lessons   []string
}

// IncompleteTeachers groups incomplete rows by teacher, in the order each
// teacher first appears.
func IncompleteTeachers(statuses []store.CompletionStatus) []IncompleteTeacher {
	var out []IncompleteTeacher
	index := map[int64]int{}
	for _, s := range statuses {
		if s.Status != store.StatusIncomplete {
			continue
		}
		i, ok := index[s.TeacherID]
		if !ok {
			i = len(out)
			index[s.TeacherID] = i
			out = append(out, IncompleteTeacher{TeacherID: s.TeacherID, Teacher: s.TeacherName})
		}
		out[i].Lessons = append(out[i].Lessons, fmt.Sprintf(" %s  %s", s.SubjectName, s.ClassName))
	}
	return out
}

// CompletionReport renders the completion status of every class subject in
// a period. When some teachers are behind it lists them and asks the
// manager whether to send reminders.
func CompletionReport(periodName string, statuses []store.CompletionStatus, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 وضعیت ثبت نمرات (دوره: %s):\n\n %s", periodName, persian.Date(now))
	for _, s := range statuses {
		avg := "ثبت نشده"
		if s.Average != nil {
			avg = num(*s.Average)
		}
		fmt.Fprintf(&b, "\n📌 کلاس %s - %s: %d/%d -- %s⇐  میانگین: %s⟸ دبیر: %s",
			s.ClassName, s.SubjectName, s.Scored, s.Total, s.Status, avg, s.TeacherName)
	}

	incomplete := IncompleteTeachers(statuses)
	if len(incomplete) == 0 {
		b.WriteString("\n✅ همه معلمان نمرات را کامل ثبت کرده‌اند.")
		b.WriteString("\n" + BackHint)
		return b.String()
	}

	b.WriteString("\n\n❌ معلمانی که نمرات ناقص دارند:\n")
	for _, t := range incomplete {
		fmt.Fprintf(&b, "   • نام دبیر: %s: %s\n", t.Teacher, strings.Join(t.Lessons, ", "))
	}
	b.WriteString("\n⚡ لطفاً یکی از گزینه‌های زیر را انتخاب کنید:\n")
	b.WriteString("1️⃣ ارسال پیام یادآوری به معلمانی که نمرات ناقص دارند.\n")
	b.WriteString("2️⃣ بازگشت به منوی مدیر")
	return b.String()
}

// Reminder is the message delivered to a teacher with unfinished scores.
func Reminder(t IncompleteTeacher, periodName string, now time.Time) string {
	return fmt.Sprintf("%s\n📢 یادآوری: لطفاً هرچه سریع‌تر نمرات '%s' را تکمیل کنید.\n❗ موارد ناقص شما:\n%s \n تاریخ امروز: %s ساعت: %s",
		t.Teacher, periodName, strings.Join(t.Lessons, "\n"), persian.Date(now), now.In(persian.Tehran).Format("15:04"))
}

// PeriodList renders numbered period names, optionally with approval status.
func PeriodList(title string, periods []store.ReportPeriod, withStatus bool) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	for i, p := range periods {
		b.WriteString(strconv.Itoa(i+1) + ". " + p.Name)
		if withStatus {
			if p.Approved {
				b.WriteString(" (✅ تأیید شده)")
			} else {
				b.WriteString(" (❌ عدم تأیید)")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
