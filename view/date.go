package view

import (
	"fmt"
	"time"
)

// humanizeAge renders how long before now t was, using the largest unit that
// fits: seconds, minutes, hours, days, months (30 days) or years (365 days).
// Times after now are rendered as 0s ago.
func humanizeAge(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}

	const day = 24 * time.Hour
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < day:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 30*day:
		return fmt.Sprintf("%dd ago", int(d/day))
	case d < 365*day:
		return fmt.Sprintf("%dmo ago", int(d/(30*day)))
	default:
		return fmt.Sprintf("%dy ago", int(d/(365*day)))
	}
}
