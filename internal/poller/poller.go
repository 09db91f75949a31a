package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prsnl/codemirror-client/internal/model"
)

// DefaultInterval between status fetches.
const DefaultInterval = 2 * time.Second

// Fetch retrieves the current backend status for a job.
type Fetch func(ctx context.Context, jobID string) (model.Update, error)

// Sink receives every fetched update, same contract as the realtime feed.
type Sink func(jobID string, u model.Update)

// Finished reports whether the job already reached a terminal state through
// another feed. May be nil.
type Finished func(jobID string) bool

// Poller is the pull-based backup feed: fetch, apply, wait, repeat. The loop
// is sequential, so there is never more than one in-flight request, and it
// terminates on its own once it sees a terminal status. Stop cancels the
// next tick but lets an in-flight fetch finish; discarding that late result
// is the job of the liveness gate in front of the sink, not of the poller.
type Poller struct {
	fetch    Fetch
	sink     Sink
	finished Finished
	interval time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
}

func New(fetch Fetch, sink Sink, finished Finished, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetch:    fetch,
		sink:     sink,
		finished: finished,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the poll loop for jobID on its own goroutine.
func (p *Poller) Start(jobID string) {
	go p.run(jobID)
}

// Stop cancels the next scheduled tick. Idempotent; safe to call after the
// loop already terminated itself.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
}

func (p *Poller) run(jobID string) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		// Stop may have raced the tick; never fetch after it.
		select {
		case <-p.stopChan:
			return
		default:
		}

		if p.finished != nil && p.finished(jobID) {
			return
		}

		u, err := p.fetch(context.Background(), jobID)
		if err != nil {
			// Transient: the next tick retries, realtime keeps covering.
			log.Printf("poller: fetch failed for job %s: %v", jobID, err)
		} else {
			p.sink(jobID, u)
			if u.Status.Terminal() {
				return
			}
		}

		// Drain a tick that fired during a slow fetch so Reset arms a full
		// interval instead of an immediate stale fire.
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(p.interval)

		select {
		case <-p.stopChan:
			return
		case <-timer.C:
		}
	}
}
