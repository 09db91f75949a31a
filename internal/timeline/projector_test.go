package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prsnl/codemirror-client/internal/model"
)

func entry(id string, typ model.EntryType, sev model.Severity) model.TimelineEntry {
	return model.TimelineEntry{
		ID:         id,
		Type:       typ,
		Severity:   sev,
		Repository: model.RepositoryRef{ID: "r1", Name: "prsnl/prsnl"},
		Title:      "entry " + id,
		CreatedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestProject(t *testing.T) {
	entries := []model.TimelineEntry{
		entry("a", model.EntryInsight, model.SeverityCritical),
		entry("b", model.EntryInsight, model.SeverityHigh),
		entry("c", model.EntryInsight, model.SeverityMedium),
		entry("d", model.EntryInsight, model.SeverityLow),
		entry("e", model.EntryInsight, model.SeverityNone),
		entry("f", model.EntryAnalysis, ""),
		entry("g", model.EntryAnalysis, ""),
	}

	p := Project(entries)

	ids := func(es []model.TimelineEntry) []string {
		out := make([]string, 0, len(es))
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}

	// critical/high go to issues only, medium to both, low/none to insights.
	assert.Equal(t, []string{"a", "b", "c"}, ids(p.CriticalIssues))
	assert.Equal(t, []string{"c", "d", "e"}, ids(p.Insights))
	assert.Equal(t, []string{"f", "g"}, ids(p.AnalysisHistory))
}

func TestProject_Empty(t *testing.T) {
	for _, in := range [][]model.TimelineEntry{nil, {}} {
		p := Project(in)
		require.NotNil(t, p.Insights)
		require.NotNil(t, p.CriticalIssues)
		require.NotNil(t, p.AnalysisHistory)
		assert.Empty(t, p.Insights)
		assert.Empty(t, p.CriticalIssues)
		assert.Empty(t, p.AnalysisHistory)
	}
}

func TestProject_Pure(t *testing.T) {
	entries := []model.TimelineEntry{
		entry("a", model.EntryInsight, model.SeverityCritical),
		entry("b", model.EntryAnalysis, ""),
		entry("c", model.EntryInsight, model.SeverityLow),
	}
	snapshot := make([]model.TimelineEntry, len(entries))
	copy(snapshot, entries)

	first := Project(entries)
	second := Project(entries)

	assert.Equal(t, first, second, "same input must project identically")
	assert.Equal(t, snapshot, entries, "input must not be mutated")
}
