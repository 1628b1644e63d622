package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/EngOREOO/whats-app-front/internal/model"
)

type proberFunc func(context.Context)

func (f proberFunc) HealthTick(ctx context.Context) { f(ctx) }

func TestNewMonitor_InvalidArgs(t *testing.T) {
	t.Parallel()

	t.Run("interval must be > 0", func(t *testing.T) {
		t.Parallel()

		m, err := NewMonitor(0, proberFunc(func(context.Context) {}))
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
		if m != nil {
			t.Fatalf("expected nil monitor, got %#v", m)
		}
	})

	t.Run("prober must not be nil", func(t *testing.T) {
		t.Parallel()

		m, err := NewMonitor(100*time.Millisecond, nil)
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
		if m != nil {
			t.Fatalf("expected nil monitor, got %#v", m)
		}
	})
}

func TestMonitor_StartStop_Basics(t *testing.T) {
	var ticks atomic.Int64

	m, err := NewMonitor(10*time.Millisecond, proberFunc(func(context.Context) {
		ticks.Add(1)
	}))
	if err != nil {
		t.Fatalf("NewMonitor returned error: %v", err)
	}

	if m.IsRunning() {
		t.Fatalf("expected monitor not running initially")
	}
	if ok := m.Start(); !ok {
		t.Fatalf("expected Start() true on first call")
	}
	if !m.IsRunning() {
		t.Fatalf("expected monitor running after Start()")
	}
	if ok := m.Start(); ok {
		t.Fatalf("expected Start() false when already running")
	}

	// There is an immediate tick on Start().
	waitForTicks(t, &ticks, 1, 500*time.Millisecond)

	if ok := m.Stop(); !ok {
		t.Fatalf("expected Stop() true on first call")
	}
	if m.IsRunning() {
		t.Fatalf("expected monitor not running after Stop()")
	}
	if ok := m.Stop(); ok {
		t.Fatalf("expected Stop() false when already stopped")
	}
}

func TestMonitor_DoesNotTickAfterStop(t *testing.T) {
	var ticks atomic.Int64

	m, err := NewMonitor(10*time.Millisecond, proberFunc(func(context.Context) {
		ticks.Add(1)
	}))
	if err != nil {
		t.Fatalf("NewMonitor returned error: %v", err)
	}

	if ok := m.Start(); !ok {
		t.Fatalf("expected Start() true")
	}
	waitForTicks(t, &ticks, 2, 750*time.Millisecond)

	if ok := m.Stop(); !ok {
		t.Fatalf("expected Stop() true")
	}
	before := ticks.Load()

	time.Sleep(100 * time.Millisecond)
	if after := ticks.Load(); after != before {
		t.Fatalf("expected no ticks after Stop; before=%d after=%d", before, after)
	}
}

func TestMonitor_PanicInTickIsRecoveredAndContinues(t *testing.T) {
	var ticks atomic.Int64
	var panicked atomic.Bool

	m, err := NewMonitor(10*time.Millisecond, proberFunc(func(context.Context) {
		if panicked.CompareAndSwap(false, true) {
			panic("boom")
		}
		ticks.Add(1)
	}))
	if err != nil {
		t.Fatalf("NewMonitor returned error: %v", err)
	}

	if ok := m.Start(); !ok {
		t.Fatalf("expected Start() true")
	}
	defer m.Stop()

	// If the panic is recovered the monitor keeps ticking afterwards.
	waitForTicks(t, &ticks, 1, 750*time.Millisecond)
}

func TestMonitor_DrivesSessionRegistry(t *testing.T) {
	gw := &fakeGateway{}
	reg := New(gw, nil, testLogger())

	s := reg.Create("")
	waitForSessionStatus(t, reg, s.ID, model.SessionReady, 2*time.Second)

	gw.setPingErr(s.ID, errors.New("gone"))

	m, err := NewMonitor(10*time.Millisecond, reg)
	if err != nil {
		t.Fatalf("NewMonitor returned error: %v", err)
	}
	if ok := m.Start(); !ok {
		t.Fatalf("expected Start() true")
	}
	defer m.Stop()

	waitForSessionStatus(t, reg, s.ID, model.SessionDisconnected, 2*time.Second)
}

// waitForTicks waits until ticks >= n or fails the test after timeout.
// Uses polling to avoid test flakes across CI.
func waitForTicks(t *testing.T, ticks *atomic.Int64, n int64, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if ticks.Load() >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for ticks >= %d (got %d)", n, ticks.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
