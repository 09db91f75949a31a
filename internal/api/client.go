package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/prsnl/codemirror-client/config"
	"github.com/prsnl/codemirror-client/internal/model"
	"github.com/prsnl/codemirror-client/internal/model/dto"
)

// Client talks to the CodeMirror backend. All calls take a context and
// return wrapped errors; nothing here retries.
type Client struct {
	baseURL string
	wsURL   string
	http    *http.Client
}

func NewClient(cfg *config.APIConfig) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout()}

	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		})
		httpClient = oauth2.NewClient(
			context.WithValue(context.Background(), oauth2.HTTPClient, httpClient),
			ts,
		)
		httpClient.Timeout = cfg.Timeout()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		wsURL:   strings.TrimRight(cfg.WSURL, "/"),
		http:    httpClient,
	}
}

// StartAnalysis creates a backend analysis job and returns its id.
// POST /codemirror/analyze/{repoId}
func (c *Client) StartAnalysis(ctx context.Context, repoID string, req *dto.StartAnalysisRequest) (string, error) {
	var resp dto.StartAnalysisResponse
	if err := c.doJSON(ctx, http.MethodPost, "/codemirror/analyze/"+repoID, req, &resp); err != nil {
		return "", fmt.Errorf("start analysis for repo %s: %w", repoID, err)
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("start analysis for repo %s: backend returned empty job_id", repoID)
	}
	return resp.JobID, nil
}

// JobStatus fetches the current status of a job.
// GET /persistence/status/{jobId}
func (c *Client) JobStatus(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	var resp dto.JobStatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/persistence/status/"+jobID, nil, &resp); err != nil {
		return nil, fmt.Errorf("job status %s: %w", jobID, err)
	}
	return &resp, nil
}

// Timeline fetches the full analysis timeline.
// GET /codemirror/timeline
func (c *Client) Timeline(ctx context.Context) ([]model.TimelineEntry, error) {
	var resp dto.TimelineResponse
	if err := c.doJSON(ctx, http.MethodGet, "/codemirror/timeline", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch timeline: %w", err)
	}

	entries := make([]model.TimelineEntry, 0, len(resp.Timeline))
	for i := range resp.Timeline {
		entries = append(entries, resp.Timeline[i].ToEntry())
	}
	return entries, nil
}

// ListRepos lists the repositories linked to the account.
// GET /github/repos
func (c *Client) ListRepos(ctx context.Context) ([]dto.RepoItem, error) {
	var resp dto.ListReposResponse
	if err := c.doJSON(ctx, http.MethodGet, "/github/repos", nil, &resp); err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	return resp.Repos, nil
}

// SyncRepos asks the backend to refresh its repository listing from GitHub
// and returns how many repositories were synced.
// POST /github/repos/sync
func (c *Client) SyncRepos(ctx context.Context) (int, error) {
	var resp dto.SyncReposResponse
	if err := c.doJSON(ctx, http.MethodPost, "/github/repos/sync", nil, &resp); err != nil {
		return 0, fmt.Errorf("sync repos: %w", err)
	}
	return resp.Synced, nil
}

// RealtimeURL returns the websocket endpoint for a job's update stream.
func (c *Client) RealtimeURL(jobID string) string {
	return c.wsURL + "/codemirror/updates/" + jobID
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend error (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
