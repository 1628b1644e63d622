package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/EngOREOO/whats-app-front/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGateway struct {
	mu          sync.Mutex
	connectErr  error
	pingErr     map[string]error
	connects    []string
	disconnects []string
	pings       []string
}

var _ Gateway = (*fakeGateway)(nil)

func (g *fakeGateway) Connect(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connects = append(g.connects, id)
	return g.connectErr
}

func (g *fakeGateway) Disconnect(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disconnects = append(g.disconnects, id)
	return nil
}

func (g *fakeGateway) Ping(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pings = append(g.pings, id)
	return g.pingErr[id]
}

func (g *fakeGateway) setPingErr(id string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pingErr == nil {
		g.pingErr = make(map[string]error)
	}
	g.pingErr[id] = err
}

func (g *fakeGateway) pinged() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.pings...)
}

func waitForSessionStatus(t *testing.T, reg *Registry, id string, want model.SessionStatus, timeout time.Duration) model.Session {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		s, ok := reg.Get(id)
		if ok && s.Status == want {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for session status %q (got %q)", want, s.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCreateConnectsInBackground(t *testing.T) {
	gw := &fakeGateway{}
	reg := New(gw, nil, testLogger())

	s := reg.Create("primary")

	if s.ID == "" {
		t.Fatal("expected a non-empty session id")
	}
	if s.Name != "primary" {
		t.Fatalf("expected name primary, got %q", s.Name)
	}
	if s.Status != model.SessionInitializing {
		t.Fatalf("expected initializing snapshot, got %q", s.Status)
	}

	got := waitForSessionStatus(t, reg, s.ID, model.SessionReady, 2*time.Second)
	if got.LastError != "" {
		t.Fatalf("expected no lastError, got %q", got.LastError)
	}
	if !reg.Ready(s.ID) {
		t.Fatal("expected session to gate as ready")
	}
}

func TestCreateConnectFailure(t *testing.T) {
	gw := &fakeGateway{connectErr: errors.New("qr scan timeout")}
	reg := New(gw, nil, testLogger())

	s := reg.Create("")

	got := waitForSessionStatus(t, reg, s.ID, model.SessionFailed, 2*time.Second)
	if got.LastError != "qr scan timeout" {
		t.Fatalf("expected lastError %q, got %q", "qr scan timeout", got.LastError)
	}
	if reg.Ready(s.ID) {
		t.Fatal("expected failed session not to gate as ready")
	}
}

func TestReadyGate(t *testing.T) {
	gw := &fakeGateway{}
	reg := New(gw, nil, testLogger())

	if reg.Exists("nope") || reg.Ready("nope") {
		t.Fatal("expected unknown session to be absent and not ready")
	}

	s := reg.Create("")
	waitForSessionStatus(t, reg, s.ID, model.SessionReady, 2*time.Second)

	if !reg.SetStatus(s.ID, model.SessionDisconnected, "link down") {
		t.Fatal("expected SetStatus to find the session")
	}
	if reg.Ready(s.ID) {
		t.Fatal("expected disconnected session not to gate as ready")
	}
	if !reg.Exists(s.ID) {
		t.Fatal("expected disconnected session to still exist")
	}
}

func TestDelete(t *testing.T) {
	gw := &fakeGateway{}
	reg := New(gw, nil, testLogger())

	s := reg.Create("")
	waitForSessionStatus(t, reg, s.ID, model.SessionReady, 2*time.Second)

	if !reg.Delete(s.ID) {
		t.Fatal("expected delete to report success")
	}
	if _, ok := reg.Get(s.ID); ok {
		t.Fatal("expected session to be forgotten")
	}

	gw.mu.Lock()
	disconnects := append([]string(nil), gw.disconnects...)
	gw.mu.Unlock()
	if len(disconnects) != 1 || disconnects[0] != s.ID {
		t.Fatalf("expected one gateway disconnect for %s, got %v", s.ID, disconnects)
	}

	if reg.Delete(s.ID) {
		t.Fatal("expected second delete to report false")
	}
}

func TestHealthTickMarksLostAndRecovered(t *testing.T) {
	gw := &fakeGateway{}
	reg := New(gw, nil, testLogger())

	s := reg.Create("")
	waitForSessionStatus(t, reg, s.ID, model.SessionReady, 2*time.Second)

	gw.setPingErr(s.ID, errors.New("connection reset"))
	reg.HealthTick(context.Background())

	got, _ := reg.Get(s.ID)
	if got.Status != model.SessionDisconnected {
		t.Fatalf("expected disconnected after failed ping, got %q", got.Status)
	}
	if got.LastError != "connection reset" {
		t.Fatalf("expected lastError %q, got %q", "connection reset", got.LastError)
	}

	gw.setPingErr(s.ID, nil)
	reg.HealthTick(context.Background())

	got, _ = reg.Get(s.ID)
	if got.Status != model.SessionReady {
		t.Fatalf("expected ready after successful ping, got %q", got.Status)
	}
	if got.LastError != "" {
		t.Fatalf("expected lastError cleared, got %q", got.LastError)
	}
}

func TestHealthTickSkipsFailedSessions(t *testing.T) {
	gw := &fakeGateway{connectErr: errors.New("nope")}
	reg := New(gw, nil, testLogger())

	s := reg.Create("")
	waitForSessionStatus(t, reg, s.ID, model.SessionFailed, 2*time.Second)

	reg.HealthTick(context.Background())

	if pings := gw.pinged(); len(pings) != 0 {
		t.Fatalf("expected no pings for a failed session, got %v", pings)
	}
}

func TestListReturnsEverySession(t *testing.T) {
	gw := &fakeGateway{}
	reg := New(gw, nil, testLogger())

	a := reg.Create("a")
	b := reg.Create("b")

	sessions := reg.List()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	seen := map[string]bool{}
	for _, s := range sessions {
		seen[s.ID] = true
	}
	if !seen[a.ID] || !seen[b.ID] {
		t.Fatalf("expected both sessions listed, got %v", sessions)
	}
}
