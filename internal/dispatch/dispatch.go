// Package dispatch runs the per-job send loop: render each record, send it,
// record the outcome, and pace before the next one.
package dispatch

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/EngOREOO/whats-app-front/internal/model"
	"github.com/EngOREOO/whats-app-front/internal/registry"
	"github.com/EngOREOO/whats-app-front/internal/template"
)

// RenderFailedMarker stands in for the personalized text of a result whose
// rendering failed before any send was attempted.
const RenderFailedMarker = "[message rendering failed]"

// Sender transmits one rendered message through an established session.
type Sender interface {
	SendText(ctx context.Context, sessionID, phone, message string) (remoteMessageID string, err error)
}

// Clock provides time keeping; overridable for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Hook observes one appended result. Hook errors are ignored; delivery
// bookkeeping must never disturb the dispatch loop.
type Hook func(ctx context.Context, jobID string, seq int, res model.Result) error

// Dispatcher owns every running dispatch task. Each task is the single writer
// for its job; tasks share nothing else.
type Dispatcher struct {
	jobs   *registry.Registry
	sender Sender
	log    *slog.Logger

	clock Clock
	sleep func(time.Duration)

	onSent   Hook
	onFailed Hook
}

func New(jobs *registry.Registry, sender Sender, clock Clock, log *slog.Logger) *Dispatcher {
	if clock == nil {
		clock = systemClock{}
	}
	return &Dispatcher{
		jobs:   jobs,
		sender: sender,
		log:    log,
		clock:  clock,
		sleep:  time.Sleep,
	}
}

// WithHooks registers observers for sent and failed results.
func (d *Dispatcher) WithHooks(onSent, onFailed Hook) *Dispatcher {
	d.onSent = onSent
	d.onFailed = onFailed
	return d
}

// Start launches the dispatch task for a freshly created job and returns
// immediately. The task runs unattended to completion: there is no cancel or
// deadline, and its progress is observable only through the job registry.
func (d *Dispatcher) Start(sessionID string, job model.Job, tmpl string, records []model.Record) {
	go d.run(sessionID, job, tmpl, records)
}

func (d *Dispatcher) run(sessionID string, job model.Job, tmpl string, records []model.Record) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatch task panicked",
				slog.String("job", job.ID),
				slog.Any("panic", r))
		}
	}()

	ctx := context.Background()
	log := d.log.With(slog.String("job", job.ID), slog.String("session", sessionID))
	log.Info("bulk dispatch started", slog.Int("total", job.Total))

	d.jobs.SetStatus(job.ID, model.JobRunning)

	for i, rec := range records {
		res := d.dispatchOne(ctx, sessionID, tmpl, rec)
		d.jobs.Append(job.ID, res)

		if res.Success {
			if d.onSent != nil {
				_ = d.onSent(ctx, job.ID, i, res)
			}
		} else {
			log.Warn("record dispatch failed",
				slog.Int("index", i),
				slog.String("number", res.Number),
				slog.String("reason", res.Error))
			if d.onFailed != nil {
				_ = d.onFailed(ctx, job.ID, i, res)
			}
		}

		if i < len(records)-1 {
			d.pause(job.Delay)
		}
	}

	d.jobs.SetStatus(job.ID, model.JobCompleted)

	final, _ := d.jobs.Get(job.ID)
	log.Info("bulk dispatch finished",
		slog.Int("sent", final.Sent),
		slog.Int("failed", final.Failed))
}

// dispatchOne renders and sends a single record. A render failure skips the
// send entirely; either way the returned result is final for this record, no
// attempt is ever repeated.
func (d *Dispatcher) dispatchOne(ctx context.Context, sessionID, tmpl string, rec model.Record) model.Result {
	phone := rec.Phone()

	text, err := template.Render(tmpl, rec)
	if err != nil {
		return model.Result{
			Number:              phone,
			Success:             false,
			Error:               err.Error(),
			Timestamp:           d.clock.Now(),
			PersonalizedMessage: RenderFailedMarker,
		}
	}

	remoteID, err := d.sender.SendText(ctx, sessionID, phone, text)

	res := model.Result{
		Number:              phone,
		Timestamp:           d.clock.Now(),
		PersonalizedMessage: text,
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.MessageID = remoteID
	return res
}

// pause suspends only this job's task, for a whole number of seconds drawn
// uniformly from the delay range.
func (d *Dispatcher) pause(delay model.DelayRange) {
	n := delay.Min
	if delay.Max > delay.Min {
		n += rand.IntN(delay.Max - delay.Min + 1)
	}
	if n <= 0 {
		return
	}
	d.sleep(time.Duration(n) * time.Second)
}
