package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prsnl/codemirror-client/internal/model"
	"github.com/prsnl/codemirror-client/internal/model/dto"
	"github.com/prsnl/codemirror-client/internal/testutil"
)

func intPtr(n int) *int { return &n }

func setupClient(t *testing.T) (*Client, *testutil.FakeBackend) {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	return NewClient(backend.ClientConfig()), backend
}

func TestClient_StartAnalysis(t *testing.T) {
	t.Run("returns the backend job id", func(t *testing.T) {
		client, _ := setupClient(t)

		jobID, err := client.StartAnalysis(context.Background(), "repo-1", &dto.StartAnalysisRequest{
			AnalysisDepth:   "standard",
			IncludeInsights: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "job-1", jobID)
	})

	t.Run("surfaces backend failure with status and body", func(t *testing.T) {
		client, backend := setupClient(t)
		backend.FailNextStart(503)

		_, err := client.StartAnalysis(context.Background(), "repo-1", &dto.StartAnalysisRequest{AnalysisDepth: "quick"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}

func TestClient_JobStatus(t *testing.T) {
	client, backend := setupClient(t)
	backend.ScriptStatus("j1",
		dto.JobStatusResponse{Status: "processing", ProgressPercentage: intPtr(40), CurrentStage: "scanning"},
	)

	status, err := client.JobStatus(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, "processing", status.Status)
	assert.Equal(t, 40, *status.ProgressPercentage)
	assert.Equal(t, "scanning", status.CurrentStage)

	_, err = client.JobStatus(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestClient_Timeline(t *testing.T) {
	client, backend := setupClient(t)
	backend.SetTimeline([]dto.TimelineEntryItem{
		{ID: "t1", Type: "insight", Severity: "critical", RepoID: "r1", RepoName: "prsnl/prsnl", Title: "hardcoded secret", CreatedAt: time.Now().UTC()},
		{ID: "t2", Type: "analysis", RepoID: "r1", RepoName: "prsnl/prsnl", Title: "deep analysis", CreatedAt: time.Now().UTC()},
	})

	entries, err := client.Timeline(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.EntryInsight, entries[0].Type)
	assert.Equal(t, model.SeverityCritical, entries[0].Severity)
	assert.Equal(t, "prsnl/prsnl", entries[0].Repository.Name)
	assert.Equal(t, model.EntryAnalysis, entries[1].Type)
}

func TestClient_Repos(t *testing.T) {
	client, backend := setupClient(t)
	backend.SetRepos([]dto.RepoItem{
		{ID: "r1", FullName: "prsnl/prsnl", Private: false},
		{ID: "r2", FullName: "prsnl/ops", Private: true},
	})

	repos, err := client.ListRepos(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "prsnl/prsnl", repos[0].FullName)

	n, err := client.SyncRepos(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClient_ContextCancellation(t *testing.T) {
	client, _ := setupClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.JobStatus(ctx, "j1")
	assert.ErrorIs(t, err, context.Canceled)
}
