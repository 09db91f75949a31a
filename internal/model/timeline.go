package model

import "time"

// TimelineEntry is an immutable record replayed from the backend. The client
// never mutates these, only re-projects them.
type TimelineEntry struct {
	ID          string        `json:"id"`
	Type        EntryType     `json:"type"`
	Severity    Severity      `json:"severity,omitempty"`
	Repository  RepositoryRef `json:"repository"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// EntryType distinguishes insight records from analysis-run records.
type EntryType string

const (
	EntryInsight  EntryType = "insight"
	EntryAnalysis EntryType = "analysis"
)

// Severity applies to insight entries only.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityNone     Severity = "none"
)
