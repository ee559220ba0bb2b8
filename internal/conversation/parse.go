// ABOUTME: Input parsing for menu selections and scores
// ABOUTME: Parsers return a typed reason instead of an error so engines can pick the re-prompt text

package conversation

import (
	"math"
	"strconv"
	"strings"

	"github.com/2389/coven-gradebook/internal/store"
)

// Reason explains why an input was rejected.
type Reason int

const (
	ReasonOK Reason = iota
	ReasonNotNumber
	ReasonOutOfRange
)

func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonNotNumber:
		return "not_number"
	case ReasonOutOfRange:
		return "out_of_range"
	}
	return "unknown"
}

// skipToken skips a score or description.
const skipToken = "-"

// ParsedScore is the result of ParseScore. Value is nil when the score was
// skipped or rejected.
type ParsedScore struct {
	Value   *float64
	Skipped bool
	Reason  Reason
}

// OK reports whether the input was accepted, skipped or not.
func (s ParsedScore) OK() bool { return s.Reason == ReasonOK }

// ParseScore accepts "-" or a number in [0, 20]. The Persian decimal
// separator is accepted in place of a dot.
func ParseScore(text string) ParsedScore {
	text = strings.TrimSpace(text)
	if text == skipToken {
		return ParsedScore{Skipped: true}
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(text, "٫", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return ParsedScore{Reason: ReasonNotNumber}
	}
	if v < 0 || v > store.MaxScore {
		return ParsedScore{Reason: ReasonOutOfRange}
	}
	return ParsedScore{Value: &v}
}

// ParseChoice parses a 1-based menu selection among n items and returns the
// 0-based index.
func ParseChoice(text string, n int) (int, Reason) {
	i, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, ReasonNotNumber
	}
	if i < 1 || i > n {
		return 0, ReasonOutOfRange
	}
	return i - 1, ReasonOK
}

// ParseDescription maps the skip token to an empty description.
func ParseDescription(text string) string {
	text = strings.TrimSpace(text)
	if text == skipToken {
		return ""
	}
	return text
}
