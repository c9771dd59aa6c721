package service

import (
	"strings"
	"time"

	"github.com/vcscsvcscs/carepath/pkg/model"
)

// Tone is the urgency cue shown alongside a category
type Tone string

const (
	ToneEmergency Tone = "emergency"
	ToneUrgent    Tone = "urgent"
	ToneSoon      Tone = "soon"
	ToneSelfCare  Tone = "self_care"
)

// ToneOf derives the tone from the category's leading word
func ToneOf(category string) Tone {
	switch {
	case strings.HasPrefix(category, "Emergency"):
		return ToneEmergency
	case strings.HasPrefix(category, "Urgent"):
		return ToneUrgent
	case strings.HasPrefix(category, "See"):
		return ToneSoon
	default:
		return ToneSelfCare
	}
}

// ResultView is a classification as presented to the user
type ResultView struct {
	Category   string
	Tone       Tone
	Reasons    []string
	Disclaimer string
	Version    string
	Timestamp  time.Time
}

// HistoryEntry is one trimmed history item
type HistoryEntry struct {
	Category  string
	Tone      Tone
	Reasons   []string
	Version   string
	Timestamp time.Time
}

// Presenter shapes classification replies for display. History is cut to
// MaxItems entries with at most MaxReasons reasons each; the order of the
// reply is kept.
type Presenter struct {
	MaxItems   int
	MaxReasons int
}

// NewPresenter creates a Presenter with the given limits
func NewPresenter(maxItems, maxReasons int) Presenter {
	return Presenter{MaxItems: maxItems, MaxReasons: maxReasons}
}

// Result presents a single classification with all its reasons
func (p Presenter) Result(r *model.TriageResult) *ResultView {
	if r == nil {
		return nil
	}
	return &ResultView{
		Category:   r.Category,
		Tone:       ToneOf(r.Category),
		Reasons:    copyStrings(r.Reasons, -1),
		Disclaimer: r.Disclaimer,
		Version:    r.Version,
		Timestamp:  r.Timestamp.Time,
	}
}

// History presents a history reply
func (p Presenter) History(h *model.History) []HistoryEntry {
	if h == nil {
		return []HistoryEntry{}
	}

	items := h.Items
	if p.MaxItems >= 0 && len(items) > p.MaxItems {
		items = items[:p.MaxItems]
	}

	entries := make([]HistoryEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, HistoryEntry{
			Category:  item.Category,
			Tone:      ToneOf(item.Category),
			Reasons:   copyStrings(item.Reasons, p.MaxReasons),
			Version:   item.Version,
			Timestamp: item.Timestamp.Time,
		})
	}
	return entries
}

// copyStrings copies at most limit values; a negative limit copies all
func copyStrings(values []string, limit int) []string {
	if limit >= 0 && len(values) > limit {
		values = values[:limit]
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
