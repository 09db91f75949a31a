package model

import (
	"time"
)

// Status of an analysis job as reported by the backend.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// statusRank orders the job state machine. Terminal states share a rank so
// the first terminal report wins and a conflicting one is dropped.
var statusRank = map[Status]int{
	StatusStarting:   0,
	StatusProcessing: 1,
	StatusCompleted:  2,
	StatusFailed:     2,
}

// Known reports whether s is one of the four job statuses.
func (s Status) Known() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether a job in this status accepts further updates.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Active reports whether a job in this status counts against the
// one-active-job limit.
func (s Status) Active() bool {
	return s == StatusStarting || s == StatusProcessing
}

// Rank exposes the state machine position for merge comparisons.
func (s Status) Rank() int {
	return statusRank[s]
}

// Depth controls analysis scope. Fixed at start time.
type Depth string

const (
	DepthQuick    Depth = "quick"
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// Valid reports whether d is a depth the backend accepts.
func (d Depth) Valid() bool {
	switch d {
	case DepthQuick, DepthStandard, DepthDeep:
		return true
	}
	return false
}

// RepositoryRef identifies the repository a job analyzes.
type RepositoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Job is one tracked analysis run. Mutated only through the jobstate merge
// function; everything else reads copies.
type Job struct {
	ID              string        `json:"id"`
	Repository      RepositoryRef `json:"repository"`
	Depth           Depth         `json:"depth"`
	Status          Status        `json:"status"`
	Stage           string        `json:"stage,omitempty"`
	ProgressPercent int           `json:"progress_percent"`
	Error           string        `json:"error,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Update is one status report from either feed (realtime or polling).
type Update struct {
	Status          Status
	Stage           string
	ProgressPercent int
	Error           string
}

// Stage name constants as the backend emits them.
const (
	StageCloning     = "cloning"
	StageScanning    = "scanning"
	StageSummarizing = "summarizing"
	StageDone        = "done"
)

// StageProgress maps known stages to nominal percentages, used for display
// when the backend omits progress_percentage.
var StageProgress = map[string]int{
	StageCloning:     10,
	StageScanning:    45,
	StageSummarizing: 80,
	StageDone:        100,
}
