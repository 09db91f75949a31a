package timeline

import (
	"github.com/prsnl/codemirror-client/internal/model"
)

// Projection is the three display views derived from the timeline. The
// slices are fresh on every call; callers may reorder them freely.
type Projection struct {
	Insights        []model.TimelineEntry
	CriticalIssues  []model.TimelineEntry
	AnalysisHistory []model.TimelineEntry
}

// Project partitions entries into insights, critical issues, and analysis
// history. Pure: no I/O, no mutation of entries, deterministic. An empty or
// nil input yields three empty views.
func Project(entries []model.TimelineEntry) Projection {
	p := Projection{
		Insights:        []model.TimelineEntry{},
		CriticalIssues:  []model.TimelineEntry{},
		AnalysisHistory: []model.TimelineEntry{},
	}

	for _, e := range entries {
		switch e.Type {
		case model.EntryAnalysis:
			p.AnalysisHistory = append(p.AnalysisHistory, e)
		case model.EntryInsight:
			if issueSeverity(e.Severity) {
				p.CriticalIssues = append(p.CriticalIssues, e)
			}
			if insightSeverity(e.Severity) {
				p.Insights = append(p.Insights, e)
			}
		}
	}
	return p
}

// issueSeverity selects insights for the critical-issues view.
func issueSeverity(s model.Severity) bool {
	switch s {
	case model.SeverityCritical, model.SeverityHigh, model.SeverityMedium:
		return true
	}
	return false
}

// insightSeverity selects insights for the general view: everything not
// already alarming enough to appear as critical or high.
func insightSeverity(s model.Severity) bool {
	switch s {
	case model.SeverityCritical, model.SeverityHigh:
		return false
	}
	return true
}
