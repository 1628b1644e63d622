// Package session tracks gateway sessions and gates bulk dispatch on their
// readiness. Connecting happens in the background; callers poll the session
// until it turns ready.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/EngOREOO/whats-app-front/internal/model"
)

const connectTimeout = 30 * time.Second

// Gateway is the transport surface the registry drives. Connect establishes a
// session on the remote gateway, Ping checks it is still alive.
type Gateway interface {
	Connect(ctx context.Context, sessionID string) error
	Disconnect(ctx context.Context, sessionID string) error
	Ping(ctx context.Context, sessionID string) error
}

// Clock provides time keeping; overridable for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type Registry struct {
	gateway Gateway
	clock   Clock
	log     *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// New returns an empty session registry. A nil clock falls back to the system
// clock.
func New(gateway Gateway, clock Clock, log *slog.Logger) *Registry {
	if clock == nil {
		clock = systemClock{}
	}
	return &Registry{
		gateway:  gateway,
		clock:    clock,
		log:      log,
		sessions: make(map[string]*model.Session),
	}
}

// Create registers a new session and starts connecting it in the background.
// The returned snapshot is always in the initializing state; readiness is
// observable only by polling.
func (r *Registry) Create(name string) model.Session {
	now := r.clock.Now()
	s := &model.Session{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    model.SessionInitializing,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	snap := *s
	r.mu.Unlock()

	go r.connect(snap.ID)

	return snap
}

func (r *Registry) connect(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := r.gateway.Connect(ctx, id); err != nil {
		r.log.Warn("session connect failed",
			slog.String("session", id),
			slog.String("reason", err.Error()))
		r.SetStatus(id, model.SessionFailed, err.Error())
		return
	}

	r.log.Info("session ready", slog.String("session", id))
	r.SetStatus(id, model.SessionReady, "")
}

// Get returns a copy of one session.
func (r *Registry) Get(id string) (model.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return model.Session{}, false
	}
	return *s, true
}

// List returns a copy of every known session.
func (r *Registry) List() []model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out
}

// Exists reports whether the session is known at all, regardless of state.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// Ready reports whether the session exists and is ready to send. Checked once
// at job submission; a session dropping mid-run surfaces as per-record send
// failures, never as a job abort.
func (r *Registry) Ready(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	return ok && s.Status == model.SessionReady
}

// SetStatus moves a session to a new state, replaces its last error and
// stamps the update time.
func (r *Registry) SetStatus(id string, status model.SessionStatus, lastErr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.Status = status
	s.LastError = lastErr
	s.UpdatedAt = r.clock.Now()
	return true
}

// Delete disconnects the session on the gateway (best effort) and forgets it.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := r.gateway.Disconnect(ctx, id); err != nil {
		r.log.Warn("session disconnect failed",
			slog.String("session", id),
			slog.String("reason", err.Error()))
	}
	return true
}

// HealthTick probes every ready or disconnected session once. Ready sessions
// that stop answering are marked disconnected; disconnected ones that answer
// again are marked ready. Initializing and failed sessions are left to their
// connect task and to the caller respectively.
func (r *Registry) HealthTick(ctx context.Context) {
	type probe struct {
		id     string
		status model.SessionStatus
	}

	r.mu.RLock()
	probes := make([]probe, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Status == model.SessionReady || s.Status == model.SessionDisconnected {
			probes = append(probes, probe{id: s.ID, status: s.Status})
		}
	}
	r.mu.RUnlock()

	for _, p := range probes {
		err := r.gateway.Ping(ctx, p.id)
		switch {
		case err != nil && p.status == model.SessionReady:
			r.log.Warn("session lost",
				slog.String("session", p.id),
				slog.String("reason", err.Error()))
			r.SetStatus(p.id, model.SessionDisconnected, err.Error())
		case err == nil && p.status == model.SessionDisconnected:
			r.log.Info("session recovered", slog.String("session", p.id))
			r.SetStatus(p.id, model.SessionReady, "")
		}
	}
}
