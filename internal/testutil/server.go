package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/prsnl/codemirror-client/config"
	"github.com/prsnl/codemirror-client/internal/model/dto"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// FakeBackend is a scriptable stand-in for the CodeMirror API: the analyze,
// status, timeline, and repo endpoints plus a websocket push channel per
// job. Tests script poll responses and push realtime frames explicitly, so
// feed interleavings are fully under test control.
type FakeBackend struct {
	t    *testing.T
	srv  *httptest.Server
	done chan struct{}

	mu        sync.Mutex
	nextJob   int
	statuses  map[string][]dto.JobStatusResponse
	statusIdx map[string]int
	pushes    map[string]chan []byte
	timeline  []dto.TimelineEntryItem
	repos     []dto.RepoItem

	startFail     atomic.Int32
	StatusCalls   atomic.Int32
	TimelineCalls atomic.Int32
}

func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &FakeBackend{
		t:         t,
		done:      make(chan struct{}),
		statuses:  make(map[string][]dto.JobStatusResponse),
		statusIdx: make(map[string]int),
		pushes:    make(map[string]chan []byte),
	}

	r := gin.New()
	r.POST("/codemirror/analyze/:repoId", b.handleAnalyze)
	r.GET("/persistence/status/:jobId", b.handleStatus)
	r.GET("/codemirror/timeline", b.handleTimeline)
	r.GET("/github/repos", b.handleRepos)
	r.POST("/github/repos/sync", b.handleSync)
	r.GET("/codemirror/updates/:jobId", b.handleUpdates)

	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	// Runs before srv.Close (cleanups are LIFO): unblocks any websocket
	// handler still waiting for frames so Close does not hang on it.
	t.Cleanup(func() { close(b.done) })
	return b
}

// ClientConfig returns an API config pointing at the fake backend.
func (b *FakeBackend) ClientConfig() *config.APIConfig {
	return &config.APIConfig{
		BaseURL: b.srv.URL,
		WSURL:   "ws" + strings.TrimPrefix(b.srv.URL, "http"),
	}
}

// FailNextStart makes the next analyze call answer with the given HTTP code.
func (b *FakeBackend) FailNextStart(code int) {
	b.startFail.Store(int32(code))
}

// ScriptStatus queues poll responses for a job. Each status fetch consumes
// the next one; the last response repeats once the script runs out.
func (b *FakeBackend) ScriptStatus(jobID string, seq ...dto.JobStatusResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[jobID] = seq
	b.statusIdx[jobID] = 0
}

// Push sends one status frame over the job's websocket. Blocks until the
// frame is queued for delivery, so a test can order frames deterministically.
func (b *FakeBackend) Push(jobID string, status dto.JobStatusResponse) {
	payload, err := json.Marshal(status)
	if err != nil {
		b.t.Fatalf("marshal push frame: %v", err)
	}
	b.pushChan(jobID) <- payload
}

// PushRaw sends arbitrary bytes over the job's websocket, for malformed
// frame tests.
func (b *FakeBackend) PushRaw(jobID string, data []byte) {
	b.pushChan(jobID) <- data
}

// SetTimeline scripts the timeline payload.
func (b *FakeBackend) SetTimeline(entries []dto.TimelineEntryItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeline = entries
}

// SetRepos scripts the repository listing.
func (b *FakeBackend) SetRepos(repos []dto.RepoItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.repos = repos
}

func (b *FakeBackend) pushChan(jobID string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.pushes[jobID]
	if !ok {
		ch = make(chan []byte, 16)
		b.pushes[jobID] = ch
	}
	return ch
}

func (b *FakeBackend) handleAnalyze(c *gin.Context) {
	if code := b.startFail.Swap(0); code != 0 {
		c.JSON(int(code), gin.H{"error": "scripted failure"})
		return
	}

	var req dto.StartAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b.mu.Lock()
	b.nextJob++
	jobID := fmt.Sprintf("job-%d", b.nextJob)
	b.mu.Unlock()

	c.JSON(http.StatusOK, dto.StartAnalysisResponse{JobID: jobID})
}

func (b *FakeBackend) handleStatus(c *gin.Context) {
	b.StatusCalls.Add(1)
	jobID := c.Param("jobId")

	b.mu.Lock()
	seq := b.statuses[jobID]
	if len(seq) == 0 {
		b.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
		return
	}
	idx := b.statusIdx[jobID]
	if idx >= len(seq) {
		idx = len(seq) - 1
	}
	status := seq[idx]
	b.statusIdx[jobID] = idx + 1
	b.mu.Unlock()

	c.JSON(http.StatusOK, status)
}

func (b *FakeBackend) handleTimeline(c *gin.Context) {
	b.TimelineCalls.Add(1)
	b.mu.Lock()
	entries := b.timeline
	b.mu.Unlock()
	if entries == nil {
		entries = []dto.TimelineEntryItem{}
	}
	c.JSON(http.StatusOK, dto.TimelineResponse{Timeline: entries})
}

func (b *FakeBackend) handleRepos(c *gin.Context) {
	b.mu.Lock()
	repos := b.repos
	b.mu.Unlock()
	if repos == nil {
		repos = []dto.RepoItem{}
	}
	c.JSON(http.StatusOK, dto.ListReposResponse{Repos: repos})
}

func (b *FakeBackend) handleSync(c *gin.Context) {
	b.mu.Lock()
	n := len(b.repos)
	b.mu.Unlock()
	c.JSON(http.StatusOK, dto.SyncReposResponse{Synced: n})
}

func (b *FakeBackend) handleUpdates(c *gin.Context) {
	jobID := c.Param("jobId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Detect client-side disconnects so the handler never outlives the peer.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ch := b.pushChan(jobID)
	for {
		select {
		case <-b.done:
			return
		case <-gone:
			return
		case data := <-ch:
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}
