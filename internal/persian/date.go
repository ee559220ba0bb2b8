// ABOUTME: Jalali (Solar Hijri) date formatting for reminders and chart captions

package persian

import (
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// Tehran is the zone dates are shown in. It falls back to a fixed +03:30
// offset when the tz database is unavailable.
var Tehran = loadTehran()

func loadTehran() *time.Location {
	loc, err := time.LoadLocation("Asia/Tehran")
	if err != nil {
		return time.FixedZone("IRST", 3*3600+1800)
	}
	return loc
}

// Date formats t as a Jalali date, for example 1403/07/21.
func Date(t time.Time) string {
	return ptime.New(t.In(Tehran)).Format("yyyy/MM/dd")
}

// DateTime formats t as a Jalali date with hours and minutes.
func DateTime(t time.Time) string {
	return ptime.New(t.In(Tehran)).Format("yyyy/MM/dd HH:mm")
}
