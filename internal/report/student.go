// ABOUTME: Student report card, score history and radar chart preparation

package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/2389/coven-gradebook/internal/persian"
	"github.com/2389/coven-gradebook/internal/store"
)

// ReportCardSummary renders the scores, weighted average and ranks of a
// report card. It is also the text the analyst comments on.
func ReportCardSummary(r *store.StudentReport, studentName, periodName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 کارنامه شما: %s\n", studentName)
	fmt.Fprintf(&b, "دوره: %s\n", periodName)
	b.WriteString(Separator)

	for _, s := range r.Scores {
		fmt.Fprintf(&b, "\n*%-12s* %-6d *%-5s* %s", s.SubjectName, s.Coefficient, scoreText(s.Value), s.Description)
	}

	if r.WeightedAverage != nil {
		fmt.Fprintf(&b, "\n\n📌 معدل: %s", num(*r.WeightedAverage))
	}

	if r.Ranks != nil {
		b.WriteString("\n\nرتبه شما\n" + Separator)
		if line := rankOf(r.Ranks.ClassRank, r.Ranks.ClassCount); line != "" {
			b.WriteString("\n🏅 رتبه در کلاس: " + line)
		}
		if line := rankOf(r.Ranks.GradeRank, r.Ranks.GradeCount); line != "" {
			b.WriteString("\n🎓 رتبه در پایه: " + line)
		}
		if line := rankOf(r.Ranks.SchoolRank, r.Ranks.SchoolCount); line != "" {
			b.WriteString("\n🏫 رتبه در مدرسه: " + line)
		}
	}
	return b.String()
}

// ReportCard renders the complete report card in Persian digits, with the
// analyst commentary after the ranks and the top students tables last.
func ReportCard(r *store.StudentReport, studentName, periodName, commentary string) string {
	var b strings.Builder
	b.WriteString(ReportCardSummary(r, studentName, periodName))

	if commentary != "" {
		b.WriteString("\n\n\n 🧠  مشاور:\n")
		b.WriteString(commentary)
	}

	writeTop(&b, "🏅 نفرات برتر کلاس:", r.TopClass)
	writeTop(&b, "🎓 نفرات برتر پایه:", r.TopGrade)
	writeTop(&b, "🏫 نفرات برتر مدرسه:", r.TopSchool)

	return persian.ToPersianDigits(b.String())
}

func rankOf(rank, total int) string {
	if rank == 0 || total == 0 {
		return ""
	}
	return fmt.Sprintf("%d از %d", rank, total)
}

func writeTop(b *strings.Builder, title string, top []store.TopStudent) {
	if len(top) == 0 {
		return
	}
	b.WriteString("\n\n" + title + "\n")
	b.WriteString(Separator + "\n")
	fmt.Fprintf(b, "%-6s %-15s %-10s %-6s\n", "ردیف", "نام", "کلاس", "معدل")
	b.WriteString(Separator)
	for i, s := range top {
		fmt.Fprintf(b, "\n%-6d %-15s %-10s %-6s", i+1, s.Name, s.ClassName, num(s.Average))
	}
}

// ScoreHistory renders every approved-period score grouped by subject, with
// the change from the previous period and the class average.
func ScoreHistory(h *store.PerformanceHistory, studentName string, now time.Time) string {
	var b strings.Builder
	b.WriteString("📚 تاریخچه نمرات شما:\n\n")
	fmt.Fprintf(&b, "%s تاریخ: %s ساعت: %s", studentName, persian.Date(now), now.In(persian.Tehran).Format("15:04"))

	current := ""
	last := map[string]float64{}
	for _, e := range h.Entries {
		if e.Subject != current {
			current = e.Subject
			b.WriteString("\n\n" + Separator)
			fmt.Fprintf(&b, "\n%s %s دبیر: *%s*", SubjectEmoji(e.Subject), e.Subject, e.Teacher)
			b.WriteString("\nنام دوره: نمره --> توضیحات دبیر")
		}

		score := "—"
		if e.Value != nil {
			score = num(*e.Value)
			if prev, ok := last[e.Subject]; ok {
				delta := *e.Value - prev
				switch {
				case delta > 0.01:
					score += fmt.Sprintf(" (+%s)", fixed2(delta))
				case delta < -0.01:
					score += fmt.Sprintf(" (%s)", fixed2(delta))
				}
			}
			last[e.Subject] = *e.Value
		}

		note := ""
		if e.Description != "" {
			note = " 👨‍🏫 " + e.Description
		}
		avg := "N/A"
		if e.ClassAverage != nil {
			avg = fixed2(*e.ClassAverage)
		}
		fmt.Fprintf(&b, "\n• %s: %s -->%s --> میانگین کلاس: %s", e.Period, score, note, avg)
	}

	return persian.ToPersianDigits(b.String())
}

// RadarDomains are the six learning domains plotted on the radar chart.
var RadarDomains = []string{
	"علمی",
	"زیستی بدنی",
	"اعتقادی عبادی",
	"اجتماعی سیاسی",
	"اقتصادی حرفه ای",
	"هنری زیبائی",
}

// Subjects feeding the radar domains.
const (
	radarMath     = "ریاضی"
	radarScience  = "علوم"
	radarSport    = "ورزش"
	radarReligion = "هدیه"
)

// RadarPeriod holds the student's and the class's domain values for one period,
// indexed like RadarDomains.
type RadarPeriod struct {
	Period  string
	Student []float64
	Class   []float64
}

type radarBucket struct {
	student map[string][]float64
	class   map[string][]float64
}

// RadarData maps the history onto the radar domains period by period, in
// the order of the student's period averages. Missing domains are zero.
func RadarData(h *store.PerformanceHistory) []RadarPeriod {
	var order []string
	seen := map[string]bool{}
	for _, a := range h.StudentAverages {
		if !seen[a.Period] {
			seen[a.Period] = true
			order = append(order, a.Period)
		}
	}

	buckets := map[string]*radarBucket{}
	for _, e := range h.Entries {
		if !seen[e.Period] {
			seen[e.Period] = true
			order = append(order, e.Period)
		}
		bk, ok := buckets[e.Period]
		if !ok {
			bk = &radarBucket{student: map[string][]float64{}, class: map[string][]float64{}}
			buckets[e.Period] = bk
		}
		switch e.Subject {
		case radarMath, radarScience, radarSport, radarReligion:
		default:
			continue
		}
		if e.Value != nil {
			bk.student[e.Subject] = append(bk.student[e.Subject], *e.Value)
		}
		if e.ClassAverage != nil {
			bk.class[e.Subject] = append(bk.class[e.Subject], *e.ClassAverage)
		}
	}

	out := make([]RadarPeriod, 0, len(order))
	for _, p := range order {
		bk, ok := buckets[p]
		if !ok {
			continue
		}
		out = append(out, RadarPeriod{Period: p, Student: domains(bk.student), Class: domains(bk.class)})
	}
	return out
}

func domains(values map[string][]float64) []float64 {
	mathSci := append(append([]float64(nil), values[radarMath]...), values[radarScience]...)
	sport := mean(values[radarSport])
	return []float64{
		round2(mean(mathSci)),
		round2(sport),
		round2(mean(values[radarReligion])),
		round2(mean(values[radarMath])),
		round2(mean(values[radarScience])),
		round2(sport),
	}
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
