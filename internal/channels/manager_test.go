package channels

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubChannel struct {
	name     string
	startErr error
	stopErr  error
	running  bool
	stops    int
	activity time.Time
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.running = true
	return nil
}

func (s *stubChannel) Stop() error {
	s.stops++
	s.running = false
	return s.stopErr
}

func (s *stubChannel) IsRunning() bool { return s.running }

func (s *stubChannel) LastActivity() time.Time { return s.activity }

func (s *stubChannel) LastError() time.Time { return time.Time{} }

func TestManagerStartRollsBackOnFailure(t *testing.T) {
	first := &stubChannel{name: "first"}
	second := &stubChannel{name: "second", startErr: errors.New("no gateway")}
	m := NewManager(nil, first, nil, second)

	err := m.Start(context.Background())
	if err == nil {
		t.Fatal("expected start error")
	}
	if first.stops != 1 || first.running {
		t.Fatalf("expected first channel to be stopped, stops=%d", first.stops)
	}
}

func TestManagerStopJoinsErrors(t *testing.T) {
	a := &stubChannel{name: "a", stopErr: errors.New("a failed")}
	b := &stubChannel{name: "b"}
	m := NewManager(nil, a, b)

	if err := m.Stop(); err == nil || b.stops != 1 {
		t.Fatalf("expected joined error and every channel stopped, got %v", err)
	}
}

func TestManagerStatuses(t *testing.T) {
	now := time.Now().UTC()
	ch := &stubChannel{name: "discord", activity: now}
	m := NewManager(nil, ch)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	statuses := m.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("expected one status, got %d", len(statuses))
	}
	if st := statuses[0]; st.Name != "discord" || !st.Running || !st.LastActivity.Equal(now) {
		t.Fatalf("unexpected status: %+v", st)
	}
}
