package display

import (
	"fmt"
	"time"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

// FormatAge renders how long before now t was, for review timestamps:
// "Just now", "5 minutes ago", "3 days ago", "2 years ago". Times in the
// future count as just now.
func FormatAge(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return plural(int(diff/time.Minute), "minute")
	case diff < day:
		return plural(int(diff/time.Hour), "hour")
	case diff < week:
		return plural(int(diff/day), "day")
	case diff < month:
		return plural(int(diff/week), "week")
	case diff < year:
		return plural(int(diff/month), "month")
	default:
		return plural(int(diff/year), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
