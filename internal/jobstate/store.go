package jobstate

import (
	"log"
	"sync"
	"time"

	"github.com/prsnl/codemirror-client/internal/model"
)

// Store holds the canonical state of tracked analysis jobs. Both update
// feeds (realtime and polling) go through ApplyUpdate, whose merge rules
// make it safe to call from interleaved callbacks without any ordering
// guarantee between the feeds.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]model.Job

	subMu   sync.RWMutex
	subs    map[int]func(model.Job)
	nextSub int
}

func NewStore() *Store {
	return &Store{
		jobs: make(map[string]model.Job),
		subs: make(map[int]func(model.Job)),
	}
}

// Put installs or replaces the record for job.ID and notifies subscribers.
func (s *Store) Put(job model.Job) {
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.notify(job)
}

// Get returns a copy of the job with the given id.
func (s *Store) Get(jobID string) (model.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	return job, ok
}

// Active returns the job currently in a starting or processing state, if any.
func (s *Store) Active() (model.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, job := range s.jobs {
		if job.Status.Active() {
			return job, true
		}
	}
	return model.Job{}, false
}

// Clear removes the record for jobID. Terminal jobs stay readable for audit
// until cleared explicitly.
func (s *Store) Clear(jobID string) {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
}

// ApplyUpdate merges one status report into the stored job. Idempotent and
// order-insensitive: stale, duplicate, and backward updates are dropped.
func (s *Store) ApplyUpdate(jobID string, u model.Update) {
	s.mu.Lock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status.Terminal() {
		s.mu.Unlock()
		return
	}

	if !u.Status.Known() {
		s.mu.Unlock()
		log.Printf("jobstate: dropping update with unknown status %q for job %s", u.Status, jobID)
		return
	}

	// Never rewind the state machine.
	if u.Status.Rank() < job.Status.Rank() {
		s.mu.Unlock()
		return
	}

	// Same status with lower progress is the slower feed replaying an old
	// report.
	if u.Status == job.Status && u.ProgressPercent < job.ProgressPercent {
		s.mu.Unlock()
		return
	}

	job.Status = u.Status
	job.Stage = u.Stage
	job.ProgressPercent = u.ProgressPercent
	job.Error = u.Error
	job.UpdatedAt = time.Now()
	s.jobs[jobID] = job

	s.mu.Unlock()

	s.notify(job)
}

// Subscribe registers fn for every accepted change. The returned function
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(model.Job)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// notify snapshots the subscriber list under the read lock, then calls each
// one unlocked so a callback can subscribe, unsubscribe, or re-read freely.
func (s *Store) notify(job model.Job) {
	s.subMu.RLock()
	fns := make([]func(model.Job), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(job)
	}
}
