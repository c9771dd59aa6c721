package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// TriageRequest is the payload sent to the classification service
type TriageRequest struct {
	AgeGroup    string   `json:"age_group"`
	MainSymptom string   `json:"main_symptom"`
	Severity    string   `json:"severity"`
	RedFlags    []string `json:"red_flags"`
	FeverTemp   string   `json:"fever_temp"`
	Duration    string   `json:"duration"`
	RiskFactors []string `json:"risk_factors"`
}

// TriageResult is the classification service reply to a submission
type TriageResult struct {
	Category   string   `json:"category"`
	Reasons    []string `json:"reasons"`
	Disclaimer string   `json:"disclaimer,omitempty"`
	Version    string   `json:"version,omitempty"`
	Timestamp  Instant  `json:"timestamp"`
}

// HistoryItem is one past classification
type HistoryItem struct {
	Category  string   `json:"category"`
	Reasons   []string `json:"reasons"`
	Version   string   `json:"version,omitempty"`
	Timestamp Instant  `json:"timestamp"`
}

// History is the classification service reply to a history query
type History struct {
	Items []HistoryItem `json:"items"`
}

// SessionStatus represents the status of a questionnaire session
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Instant is a point in time that decodes from an ISO-8601 string or an
// epoch number (seconds, or milliseconds for values above 1e12). It always
// encodes as RFC 3339 in UTC; the zero value encodes as null.
type Instant struct {
	time.Time
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds
const epochMillisThreshold = 1e12

// maxEpoch bounds numeric timestamps to what int64 can hold
const maxEpoch = float64(math.MaxInt64)

// UnmarshalJSON implements json.Unmarshaler
func (i *Instant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		i.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
		if s == "" {
			i.Time = time.Time{}
			return nil
		}
		t, err := parseISO(s)
		if err != nil {
			return err
		}
		i.Time = t
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= maxEpoch {
		return fmt.Errorf("timestamp %s out of range", data)
	}
	if f > epochMillisThreshold {
		i.Time = time.UnixMilli(int64(f)).UTC()
		return nil
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * float64(time.Second))
	i.Time = time.Unix(sec, nsec).UTC()
	return nil
}

// MarshalJSON implements json.Marshaler
func (i Instant) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(i.UTC().Format(time.RFC3339Nano))
}

// isoLayouts are tried in order; the last one covers naive timestamps
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

func parseISO(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: not ISO-8601", s)
}
