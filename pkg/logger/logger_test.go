package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/pkg/pipeline"
)

type memSink struct {
	mu     sync.Mutex
	events []*model.Event
}

func (s *memSink) Name() string                    { return "mem" }
func (s *memSink) Start(ctx context.Context) error { return nil }
func (s *memSink) Stop(ctx context.Context) error  { return nil }

func (s *memSink) Write(ctx context.Context, ev *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *memSink) all() []*model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Event(nil), s.events...)
}

func setup(t *testing.T) (*Logger, *memSink, func()) {
	t.Helper()
	ms := &memSink{}
	opts := pipeline.DefaultOptions()
	opts.Sinks = append(opts.Sinks, ms)
	opts.BatchSize = 1

	p, err := pipeline.New(opts)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	teardown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		p.Close(ctx)
	}
	return New(p), ms, teardown
}

func waitForEvents(t *testing.T, ms *memSink, n int) []*model.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := ms.all(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events", n)
	return nil
}

func TestLogger_EmitsLeveledEvents(t *testing.T) {
	log, ms, teardown := setup(t)
	defer teardown()

	if got := log.Info("service started", F{Key: "port", Value: int64(8080)}); got != pipeline.OutcomeEnqueued {
		t.Fatalf("Info = %v, want enqueued", got)
	}

	events := waitForEvents(t, ms, 1)
	ev := events[0]
	if ev.Level != model.LevelInfo || ev.Message != "service started" {
		t.Errorf("event = %s %q", ev.Level, ev.Message)
	}
	if v, _ := ev.Get("port"); v != int64(8080) {
		t.Errorf("port = %v, want 8080", v)
	}
}

func TestLogger_ThresholdFiltersBelowMin(t *testing.T) {
	log, _, teardown := setup(t)
	defer teardown()

	if got := log.Debug("noise"); got != pipeline.OutcomeFiltered {
		t.Errorf("Debug below threshold = %v, want filtered", got)
	}
	if got := log.WithLevel(LevelDebug).Debug("wanted"); got != pipeline.OutcomeEnqueued {
		t.Errorf("Debug at lowered threshold = %v, want enqueued", got)
	}
}

func TestLogger_WithBindsFields(t *testing.T) {
	log, ms, teardown := setup(t)
	defer teardown()

	child := log.With("service", "auth").With("region", "eu")
	child.Warn("token expiring", F{Key: "ttl_s", Value: int64(30)})

	events := waitForEvents(t, ms, 1)
	ev := events[0]
	for _, want := range []struct {
		key   string
		value any
	}{
		{"service", "auth"},
		{"region", "eu"},
		{"ttl_s", int64(30)},
	} {
		if v, ok := ev.Get(want.key); !ok || v != want.value {
			t.Errorf("%s = %v, want %v", want.key, v, want.value)
		}
	}

	// The parent logger is unaffected by With on the child.
	log.Error("standalone")
	events = waitForEvents(t, ms, 2)
	if _, ok := events[1].Get("service"); ok {
		t.Error("parent logger leaked the child's bound fields")
	}
}

func TestLogger_CallSiteFieldOverridesBound(t *testing.T) {
	log, ms, teardown := setup(t)
	defer teardown()

	log.With("env", "prod").Info("m", F{Key: "env", Value: "staging"})

	events := waitForEvents(t, ms, 1)
	if v, _ := events[0].Get("env"); v != "staging" {
		t.Errorf("env = %v, want call-site value to win", v)
	}
}
