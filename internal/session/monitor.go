package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Prober is the health surface the monitor drives on every tick.
type Prober interface {
	HealthTick(ctx context.Context)
}

// Monitor periodically re-checks session health in the background. Start and
// Stop are idempotent and report whether they changed anything.
type Monitor struct {
	interval time.Duration
	prober   Prober

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(interval time.Duration, prober Prober) (*Monitor, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if prober == nil {
		return nil, errors.New("prober must not be nil")
	}
	return &Monitor{
		interval: interval,
		prober:   prober,
		done:     make(chan struct{}),
	}, nil
}

func (m *Monitor) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running.Store(true)

	go func() {
		defer close(m.done)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		slog.Info("session monitor started", "interval", m.interval.String())

		m.safeTick(ctx)

		for {
			select {
			case <-ctx.Done():
				slog.Info("session monitor stopping")
				return
			case <-ticker.C:
				m.safeTick(ctx)
			}
		}
	}()

	return true
}

func (m *Monitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running.Load() {
		return false
	}

	m.cancel()
	<-m.done
	m.running.Store(false)

	slog.Info("session monitor stopped")
	return true
}

func (m *Monitor) IsRunning() bool {
	return m.running.Load()
}

func (m *Monitor) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("session monitor tick panic recovered", "panic", r)
		}
	}()

	start := time.Now()
	m.prober.HealthTick(ctx)
	slog.Info("session monitor tick completed", "duration_ms", time.Since(start).Milliseconds())
}
