package conversation

import (
	"fmt"
	"sort"
	"strings"

	"liftbot/lift"
)

// RenderHistory groups records by UTC day, newest day first, and renders each
// lift in unit. Output longer than viewMaxLen runes is cut with "...".
func RenderHistory(records []lift.Record, unit lift.Unit) string {
	byDate := make(map[string][]lift.Record)
	for _, r := range records {
		key := "Unknown"
		if !r.CreatedAt.IsZero() {
			key = r.CreatedAt.UTC().Format("2006-01-02")
		}
		byDate[key] = append(byDate[key], r)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	// Undated records go last.
	sort.Slice(dates, func(i, j int) bool {
		if dates[i] == "Unknown" || dates[j] == "Unknown" {
			return dates[j] == "Unknown" && dates[i] != "Unknown"
		}
		return dates[i] > dates[j]
	})

	var b strings.Builder
	for _, d := range dates {
		fmt.Fprintf(&b, "*%s*\n", d)
		for _, r := range byDate[d] {
			fmt.Fprintf(&b, "  • %s\n", lift.FormatLift(r.Candidate(), unit))
		}
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	if runes := []rune(text); len(runes) > viewMaxLen {
		text = string(runes[:viewMaxLen-3]) + "..."
	}
	return text
}
