// ABOUTME: Shared number formatting, separators and subject emojis for report text

package report

import (
	"math"
	"strconv"
	"strings"
)

// Separator is the horizontal rule used between report sections.
var Separator = strings.Repeat("━", 20)

// BackHint is appended to prompts that accept the navigation tokens.
const BackHint = "🔸 برای بازگشت «#» و برای خروج کامل «*»"

// num formats v rounded to two decimals without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// fixed2 formats v with exactly two decimals.
func fixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Score renders an optional score for prompts, using a dash when absent.
func Score(v *float64) string { return scoreText(v) }

// scoreText renders an optional score, using a dash when absent.
func scoreText(v *float64) string {
	if v == nil {
		return "—"
	}
	return num(*v)
}

type subjectEmoji struct {
	key   string
	emoji string
}

// Checked in order; the first key contained in the subject name wins.
var subjectEmojis = []subjectEmoji{
	{"ریاضی", "📐"},
	{"علوم", "🧪"},
	{"فارسی", "📖"},
	{"املا", "✍️"},
	{"قرآن", "📜"},
	{"عربی", "🔤"},
	{"زبان انگلیسی", "🗣️"},
	{"مطالعات اجتماعی", "🌍"},
	{"هنر", "🎨"},
	{"ورزش", "🏃"},
	{"کامپیوتر", "🖥️"},
	{"دینی", "🕌"},
}

// SubjectEmoji returns an emoji for a subject name, or 📚 when none matches.
func SubjectEmoji(name string) string {
	for _, e := range subjectEmojis {
		if strings.Contains(name, e.key) {
			return e.emoji
		}
	}
	return "📚"
}
