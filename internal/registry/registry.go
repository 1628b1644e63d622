// Package registry holds every bulk job for the lifetime of the process and
// hands out consistent snapshots to concurrent readers.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/EngOREOO/whats-app-front/internal/model"
)

// Clock provides time keeping; overridable for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Registry is the single shared structure between dispatch tasks and status
// readers. Each job has exactly one writer (its own dispatch task); reads may
// come from any goroutine at any time. Jobs are never deleted.
type Registry struct {
	mu    sync.RWMutex
	clock Clock
	jobs  map[string]*model.Job
}

// New returns an empty registry. A nil clock falls back to the system clock.
func New(clock Clock) *Registry {
	if clock == nil {
		clock = systemClock{}
	}
	return &Registry{
		clock: clock,
		jobs:  make(map[string]*model.Job),
	}
}

// Create inserts a pending job covering total records and returns its
// snapshot. The estimated completion assumes the average pacing delay between
// sends, rounded up to whole seconds.
func (r *Registry) Create(total int, delay model.DelayRange) model.Job {
	now := r.clock.Now()
	job := &model.Job{
		ID:                  uuid.NewString(),
		Status:              model.JobPending,
		Total:               total,
		Results:             make([]model.Result, 0, total),
		Delay:               delay,
		StartedAt:           now,
		EstimatedCompletion: now.Add(time.Duration(delay.EstimateSeconds(total)) * time.Second),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	snap := clone(job)
	r.mu.Unlock()

	return snap
}

// Get returns a consistent copy of one job.
func (r *Registry) Get(id string) (model.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	return clone(job), true
}

// List returns a copy of every known job. Cross-job order is unspecified.
func (r *Registry) List() []model.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, clone(job))
	}
	return out
}

// Append records one result and refreshes the aggregate counters in the same
// critical section, so a concurrent reader never observes counters that
// disagree with the results length.
func (r *Registry) Append(id string, res model.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return
	}
	job.Results = append(job.Results, res)
	if res.Success {
		job.Sent++
	} else {
		job.Failed++
	}
	job.Percentage = model.Progress(job.Sent+job.Failed, job.Total)
}

// SetStatus moves a job to a new lifecycle state. Terminal states also stamp
// the completion time.
func (r *Registry) SetStatus(id string, status model.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	if status == model.JobCompleted || status == model.JobFailed {
		now := r.clock.Now()
		job.CompletedAt = &now
	}
}

// clone copies a job so callers never share slices or pointers with the
// registry. Results stays a non-nil slice so snapshots always serialize it as
// an array. Caller must hold at least a read lock.
func clone(job *model.Job) model.Job {
	cp := *job
	cp.Results = make([]model.Result, len(job.Results))
	copy(cp.Results, job.Results)
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}
