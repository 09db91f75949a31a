package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prsnl/codemirror-client/internal/jobstate"
	"github.com/prsnl/codemirror-client/internal/model"
	"github.com/prsnl/codemirror-client/internal/model/dto"
	"github.com/prsnl/codemirror-client/internal/poller"
	"github.com/prsnl/codemirror-client/internal/realtime"
	"github.com/prsnl/codemirror-client/internal/timeline"
)

var (
	ErrAlreadyActive = errors.New("an analysis job is already active")
	ErrInvalidDepth  = errors.New("invalid analysis depth")
)

// AnalysisAPI is the slice of the backend client the controller needs.
type AnalysisAPI interface {
	StartAnalysis(ctx context.Context, repoID string, req *dto.StartAnalysisRequest) (string, error)
	JobStatus(ctx context.Context, jobID string) (*dto.JobStatusResponse, error)
	Timeline(ctx context.Context) ([]model.TimelineEntry, error)
	RealtimeURL(jobID string) string
}

// channelFeed and pollerFeed let tests substitute the real update sources.
type channelFeed interface {
	Connect(jobID string)
	Disconnect()
}

type pollerFeed interface {
	Start(jobID string)
	Stop()
}

// Options tune the controller. Zero values are usable.
type Options struct {
	// PollInterval for the fallback feed; poller.DefaultInterval when zero.
	PollInterval time.Duration
	// IncludePatterns / IncludeInsights are passed through on every start
	// request.
	IncludePatterns bool
	IncludeInsights bool
	// Preflight runs before the start request (token expiry check, usually).
	Preflight func() error
	// OnTimeline receives the projected timeline exactly once per job, after
	// its terminal transition.
	OnTimeline func(timeline.Projection)
}

// Controller owns the lifecycle of analysis jobs: it enforces the
// one-active-job rule, wires both update feeds to the store, and tears
// everything down on terminal status or explicit disposal. All state changes
// flow through the store's merge function; the controller itself only gates
// whether a feed is still allowed to write.
type Controller struct {
	api   AnalysisAPI
	store *jobstate.Store
	opts  Options

	newChannel func(url string, sink realtime.Sink) channelFeed
	newPoller  func(fetch poller.Fetch, sink poller.Sink, finished poller.Finished, interval time.Duration) pollerFeed

	mu        sync.Mutex
	starting  bool
	active    *JobHandle
	lastJobID string
}

func New(api AnalysisAPI, store *jobstate.Store, opts Options) *Controller {
	return &Controller{
		api:   api,
		store: store,
		opts:  opts,
		newChannel: func(url string, sink realtime.Sink) channelFeed {
			return realtime.New(url, sink)
		},
		newPoller: func(fetch poller.Fetch, sink poller.Sink, finished poller.Finished, interval time.Duration) pollerFeed {
			return poller.New(fetch, sink, finished, interval)
		},
	}
}

// JobHandle identifies one started job and carries its teardown. The alive
// flag is captured by both feeds at dispatch time: once it drops, late
// callbacks are discarded instead of applied.
type JobHandle struct {
	JobID string

	ctrl    *Controller
	alive   atomic.Bool
	once    sync.Once
	unsub   func()
	channel channelFeed
	poll    pollerFeed
}

// Job returns the current stored state of the handle's job.
func (h *JobHandle) Job() (model.Job, bool) {
	return h.ctrl.store.Get(h.JobID)
}

// sink is the single write path for both feeds.
func (h *JobHandle) sink(jobID string, u model.Update) {
	if !h.alive.Load() {
		return
	}
	h.ctrl.store.ApplyUpdate(jobID, u)
}

// Start creates a backend job for the repository and begins tracking it.
// Fails with ErrAlreadyActive while another job is starting or processing;
// on a failed start request nothing is created and nothing needs disposal.
func (c *Controller) Start(ctx context.Context, repo model.RepositoryRef, depth model.Depth) (*JobHandle, error) {
	if !depth.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDepth, depth)
	}
	if c.opts.Preflight != nil {
		if err := c.opts.Preflight(); err != nil {
			return nil, fmt.Errorf("preflight: %w", err)
		}
	}

	// Claim the single active slot before the network call so a concurrent
	// Start cannot slip in while the request is in flight. A disposed handle
	// no longer holds the slot even if its job never reached a terminal
	// status; its record stays in the store for audit only.
	c.mu.Lock()
	if c.starting || c.active != nil {
		c.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	c.starting = true
	c.mu.Unlock()

	jobID, err := c.api.StartAnalysis(ctx, repo.ID, &dto.StartAnalysisRequest{
		AnalysisDepth:   string(depth),
		IncludePatterns: c.opts.IncludePatterns,
		IncludeInsights: c.opts.IncludeInsights,
	})
	if err != nil {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
		return nil, fmt.Errorf("start analysis: %w", err)
	}

	now := time.Now()
	job := model.Job{
		ID:         jobID,
		Repository: repo,
		Depth:      depth,
		Status:     model.StatusStarting,
		StartedAt:  now,
		UpdatedAt:  now,
	}

	h := &JobHandle{JobID: jobID, ctrl: c}
	h.alive.Store(true)

	c.mu.Lock()
	if c.lastJobID != "" {
		c.store.Clear(c.lastJobID)
	}
	c.lastJobID = jobID
	c.active = h
	c.starting = false
	c.mu.Unlock()

	c.store.Put(job)

	// Wire both feeds through the handle's gated sink, then watch the store
	// for the terminal transition.
	h.unsub = c.store.Subscribe(func(j model.Job) {
		if j.ID == jobID && j.Status.Terminal() {
			h.finish(true)
		}
	})

	h.channel = c.newChannel(c.api.RealtimeURL(jobID), h.sink)
	h.poll = c.newPoller(c.fetchStatus, h.sink, c.jobFinished, c.opts.PollInterval)

	h.channel.Connect(jobID)
	h.poll.Start(jobID)

	log.Printf("controller: job %s started for %s (depth=%s)", jobID, repo.Name, depth)
	return h, nil
}

// Dispose tears down the handle's feeds without waiting for a terminal
// status. Idempotent. The job's last stored state stays readable for audit;
// any feed callback that resolves later finds the handle dead and is
// discarded.
func (c *Controller) Dispose(h *JobHandle) {
	if h == nil {
		return
	}
	h.finish(false)
}

// finish is the single teardown path: Dispose calls it without the timeline
// refresh, the terminal-transition observer with it. Whichever runs first
// wins; the refresh therefore fires at most once per job.
func (h *JobHandle) finish(refresh bool) {
	h.once.Do(func() {
		h.alive.Store(false)
		if h.unsub != nil {
			h.unsub()
		}
		if h.channel != nil {
			h.channel.Disconnect()
		}
		if h.poll != nil {
			h.poll.Stop()
		}

		c := h.ctrl
		c.mu.Lock()
		if c.active == h {
			c.active = nil
		}
		c.mu.Unlock()

		if refresh {
			c.refreshTimeline(h.JobID)
		}
	})
}

// fetchStatus adapts the API status call to the poller's contract.
func (c *Controller) fetchStatus(ctx context.Context, jobID string) (model.Update, error) {
	status, err := c.api.JobStatus(ctx, jobID)
	if err != nil {
		return model.Update{}, err
	}
	return status.ToUpdate(), nil
}

// jobFinished lets the poller shut itself down when the realtime feed
// already delivered the terminal status.
func (c *Controller) jobFinished(jobID string) bool {
	job, ok := c.store.Get(jobID)
	return ok && job.Status.Terminal()
}

// refreshTimeline runs the one-time post-terminal refetch and projection.
// Failures are logged, never raised: the job outcome itself already reached
// the store.
func (c *Controller) refreshTimeline(jobID string) {
	if c.opts.OnTimeline == nil {
		return
	}

	entries, err := c.api.Timeline(context.Background())
	if err != nil {
		log.Printf("controller: timeline refresh after job %s failed: %v", jobID, err)
		return
	}
	c.opts.OnTimeline(timeline.Project(entries))
}
