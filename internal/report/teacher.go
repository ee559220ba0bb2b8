// ABOUTME: Class summary text shown to teachers after choosing a subject

package report

import (
	"fmt"
	"strings"
)

// NoScoresSummary is shown when nobody in the class has a score yet.
func NoScoresSummary(subject string) string {
	return fmt.Sprintf("📊 برای درس %s هیچ نمره‌ای ثبت نشده است.", subject)
}

// ClassSummary renders the statistics of one class subject.
func ClassSummary(subject, className string, st ClassStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 خلاصه وضعیت کلاس %s %s:\n", subject, className)
	fmt.Fprintf(&b, "📊 تعداد کل دانش‌آموزان کلاس: %d\n", st.Students)
	fmt.Fprintf(&b, "👥 تعداد دانش‌آموزان با نمره: %d\n", st.Count)
	fmt.Fprintf(&b, "📈 میانگین: %s\n", fixed2(st.Mean))
	fmt.Fprintf(&b, "📉 انحراف معیار: %s\n", fixed2(st.StdDev))
	fmt.Fprintf(&b, "🔽 کمترین نمره: %s\n", fixed2(st.Min))
	fmt.Fprintf(&b, "🔼 بیشترین نمره: %s\n", fixed2(st.Max))
	fmt.Fprintf(&b, "➗ میانه: %s\n", fixed2(st.Median))
	fmt.Fprintf(&b, "📐 چارک اول: %s\n", fixed2(st.Q1))
	fmt.Fprintf(&b, "📐 چارک سوم: %s\n", fixed2(st.Q3))
	fmt.Fprintf(&b, "🎯 پرتکرارترین نمره: %s (تکرار %d بار)\n", num(st.Mode), st.ModeFreq)
	fmt.Fprintf(&b, "⚠️ تعداد زیر ۱۰: %d\n", st.Below10)
	fmt.Fprintf(&b, "〰️ تعداد بین ۱۰ تا ۱۵: %d\n", st.From10To15)
	fmt.Fprintf(&b, "🏆 تعداد ۱۵ و بالاتر: %d", st.From15)
	return b.String()
}

// WithCommentary appends analyst commentary under a separator. Empty
// commentary leaves text unchanged.
func WithCommentary(text, commentary string) string {
	if commentary == "" {
		return text
	}
	return text + "\n\n" + Separator + "\n 🧠  " + commentary
}
