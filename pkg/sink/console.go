package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/logrelay/logrelay/internal/model"
)

// ConsoleSink writes events as JSON lines to a writer, stdout by default.
type ConsoleSink struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewConsoleSink creates a console sink. A nil writer means stdout.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: bufio.NewWriter(w)}
}

// Name implements Sink.
func (s *ConsoleSink) Name() string { return "console" }

// Start implements Sink.
func (s *ConsoleSink) Start(ctx context.Context) error { return nil }

// Write implements Sink.
func (s *ConsoleSink) Write(ctx context.Context, ev *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLocked(ev); err != nil {
		return err
	}
	return s.w.Flush()
}

// WriteBatch implements BatchSink.
func (s *ConsoleSink) WriteBatch(ctx context.Context, batch model.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range batch {
		if err := s.writeLocked(ev); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

func (s *ConsoleSink) writeLocked(ev *model.Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(line); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// Stop implements Sink.
func (s *ConsoleSink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}
