package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/logrelay/logrelay/internal/model"
)

// FileSink appends events as JSON lines to a file opened at Start.
type FileSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
}

// NewFileSink creates a file sink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file" }

// Start opens the file for appending.
func (s *FileSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	s.f = f
	s.w = bufio.NewWriter(f)
	return nil
}

// Write implements Sink.
func (s *FileSink) Write(ctx context.Context, ev *model.Event) error {
	return s.WriteBatch(ctx, model.Batch{ev})
}

// WriteBatch implements BatchSink.
func (s *FileSink) WriteBatch(ctx context.Context, batch model.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return os.ErrClosed
	}
	for _, ev := range batch {
		line, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := s.w.Write(line); err != nil {
			return err
		}
		if err := s.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

// Stop flushes and closes the file. It tolerates a Start that never ran.
func (s *FileSink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	err := s.f.Close()
	s.f = nil
	s.w = nil
	return err
}
