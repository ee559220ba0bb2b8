// ABOUTME: Tests for digit conversion and Jalali formatting

package persian

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDigits(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"۱۲۳", "123"},
		{"٤٥٦", "456"},
		{"۱۸.۵", "18.5"},
		{"abc 789", "abc 789"},
		{"کلاس ۲", "کلاس 2"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDigits(tt.in), "input %q", tt.in)
	}
}

func TestToPersianDigits(t *testing.T) {
	assert.Equal(t, "۱۷.۵ از ۲۰", ToPersianDigits("17.5 از 20"))
	assert.Equal(t, "بدون عدد", ToPersianDigits("بدون عدد"))
}

func TestDigitsRoundTrip(t *testing.T) {
	s := "0123456789"
	assert.Equal(t, s, NormalizeDigits(ToPersianDigits(s)))
}

func TestDate(t *testing.T) {
	// Nowruz 1403 began on 20 March 2024.
	nowruz := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "1403/01/01", Date(nowruz))

	assert.Equal(t, "1403/01/01 15:30", DateTime(nowruz))
}
