package walk

import (
	"fmt"
	"time"
)

// FormatClock renders a countdown as M:SS, H:MM:SS or Dd:H:MM:SS
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours >= 24 {
		return fmt.Sprintf("%dd:%d:%02d:%02d", hours/24, hours%24, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatDuration renders a duration as "1d 2h 3m 4s", omitting leading zero units
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours >= 24:
		return fmt.Sprintf("%dd %dh %dm %ds", hours/24, hours%24, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatDistance renders meters as kilometers with two decimals
func FormatDistance(meters float64) string {
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatPercent renders a progress fraction with one decimal
func FormatPercent(progress float64) string {
	return fmt.Sprintf("%.1f%%", progress*100)
}
