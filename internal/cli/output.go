package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/vcscsvcscs/carepath/internal/service"
)

var (
	cyan  = color.New(color.FgCyan, color.Bold)
	gray  = color.New(color.FgHiBlack)
	red   = color.New(color.FgRed)
	green = color.New(color.FgGreen)
)

// toneColor picks the colour a category is printed in
func toneColor(tone service.Tone) *color.Color {
	switch tone {
	case service.ToneEmergency:
		return color.New(color.FgRed, color.Bold)
	case service.ToneUrgent:
		return color.New(color.FgYellow, color.Bold)
	case service.ToneSoon:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen)
	}
}

func printResult(w io.Writer, result *service.ResultView) {
	cyan.Fprintf(w, "\n=== Result ===\n\n")
	toneColor(result.Tone).Fprintf(w, "%s\n", result.Category)

	if len(result.Reasons) > 0 {
		fmt.Fprintf(w, "\nWhy:\n")
		for _, r := range result.Reasons {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}

	if result.Disclaimer != "" {
		gray.Fprintf(w, "\n%s\n", result.Disclaimer)
	}
	if result.Version != "" {
		gray.Fprintf(w, "classifier %s\n", result.Version)
	}
}

func printHistory(w io.Writer, entries []service.HistoryEntry) {
	cyan.Fprintf(w, "\n=== Recent classifications ===\n\n")

	if len(entries) == 0 {
		fmt.Fprintf(w, "No classifications yet\n")
		return
	}

	for _, e := range entries {
		if !e.Timestamp.IsZero() {
			gray.Fprintf(w, "%s  ", e.Timestamp.Local().Format("2006-01-02 15:04"))
		}
		toneColor(e.Tone).Fprintf(w, "%s\n", e.Category)
		for _, r := range e.Reasons {
			fmt.Fprintf(w, "    - %s\n", r)
		}
	}
}
