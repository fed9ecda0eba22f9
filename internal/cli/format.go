// Package cli provides the command-line interface for the trading journal.
package cli

import (
	"fmt"
	"strings"
	"time"
)

// FormatR formats an R-multiple with an explicit sign and two decimals.
// Everything in the journal is measured in R, never in currency.
func FormatR(r float64) string {
	if r > 0 {
		return fmt.Sprintf("+%.2fR", r)
	}
	return fmt.Sprintf("%.2fR", r)
}

// FormatRiskR formats the optional planned risk. Nil reads as a dash.
func FormatRiskR(risk *float64) string {
	if risk == nil {
		return "-"
	}
	return fmt.Sprintf("%.2fR", *risk)
}

// FormatWinRate formats a 0..1 win rate as a percentage.
func FormatWinRate(rate float64) string {
	return fmt.Sprintf("%.0f%%", rate*100)
}

// FormatMode renders the app mode in upper case.
func FormatMode(mode string) string {
	return strings.ToUpper(mode)
}

// FormatTime formats a clock time in its own location.
func FormatTime(t time.Time) string {
	return t.Format("15:04:05")
}

// FormatDate formats a date.
func FormatDate(t time.Time) string {
	return t.Format("02-Jan-2006")
}

// FormatDateTime formats a datetime.
func FormatDateTime(t time.Time) string {
	return t.Format("02-Jan-2006 15:04:05")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// FormatList joins display items with commas. Empty reads as a dash.
func FormatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// formatStars renders a 1..5 score as filled and empty stars.
func formatStars(score int) string {
	if score < 1 {
		score = 1
	}
	if score > 5 {
		score = 5
	}
	filled := "★"
	empty := "☆"
	result := ""
	for i := 0; i < 5; i++ {
		if i < score {
			result += filled
		} else {
			result += empty
		}
	}
	return result
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

// PadLeft pads a string to the left.
func PadLeft(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return strings.Repeat(" ", length-len(s)) + s
}
