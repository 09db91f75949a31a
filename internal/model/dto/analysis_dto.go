package dto

import (
	"time"

	"github.com/prsnl/codemirror-client/internal/model"
)

// StartAnalysisRequest is the body of POST /codemirror/analyze/{repoId}.
type StartAnalysisRequest struct {
	AnalysisDepth   string   `json:"analysis_depth" binding:"required,oneof=quick standard deep"`
	IncludePatterns bool     `json:"include_patterns"`
	IncludeInsights bool     `json:"include_insights"`
	FocusPaths      []string `json:"focus_paths,omitempty"`
}

// StartAnalysisResponse carries the backend-assigned job id.
type StartAnalysisResponse struct {
	JobID string `json:"job_id"`
}

// JobStatusResponse is the body of GET /persistence/status/{jobId}. The same
// shape arrives over the realtime channel.
type JobStatusResponse struct {
	JobID              string `json:"job_id,omitempty"`
	Status             string `json:"status"`
	ProgressPercentage *int   `json:"progress_percentage,omitempty"`
	CurrentStage       string `json:"current_stage,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
}

// ToUpdate converts a wire status payload into a store update. The backend
// shape is observed rather than contractual, so progress is clamped to
// [0,100] and a missing percentage falls back to the nominal value for the
// reported stage.
func (r *JobStatusResponse) ToUpdate() model.Update {
	progress := 0
	if r.ProgressPercentage != nil {
		progress = *r.ProgressPercentage
	} else if p, ok := model.StageProgress[r.CurrentStage]; ok {
		progress = p
	}
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}

	return model.Update{
		Status:          model.Status(r.Status),
		Stage:           r.CurrentStage,
		ProgressPercent: progress,
		Error:           r.ErrorMessage,
	}
}

// TimelineResponse is the body of GET /codemirror/timeline.
type TimelineResponse struct {
	Timeline []TimelineEntryItem `json:"timeline"`
}

// TimelineEntryItem is one historical record in the timeline payload.
type TimelineEntryItem struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity,omitempty"`
	RepoID      string    `json:"repo_id"`
	RepoName    string    `json:"repo_name"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToEntry converts a wire timeline item into the model record.
func (i *TimelineEntryItem) ToEntry() model.TimelineEntry {
	return model.TimelineEntry{
		ID:          i.ID,
		Type:        model.EntryType(i.Type),
		Severity:    model.Severity(i.Severity),
		Repository:  model.RepositoryRef{ID: i.RepoID, Name: i.RepoName},
		Title:       i.Title,
		Description: i.Description,
		CreatedAt:   i.CreatedAt,
	}
}
