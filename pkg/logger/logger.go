// Package logger is the producer-facing facade: it turns leveled log calls
// into events and offers them to the delivery pipeline. Many loggers may
// share one pipeline.
package logger

import (
	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/pkg/pipeline"
)

// F is a field passed to a log call.
type F = model.Field

// Level aliases the event severity for callers outside the module.
type Level = model.Level

const (
	LevelDebug = model.LevelDebug
	LevelInfo  = model.LevelInfo
	LevelWarn  = model.LevelWarn
	LevelError = model.LevelError
)

// Logger emits events into a pipeline. It is cheap to copy via With; bound
// fields are applied to every event before the call-site fields.
type Logger struct {
	p        *pipeline.Pipeline
	minLevel model.Level
	bound    []model.Field
}

// New creates a logger over the given pipeline, emitting at Info and above.
func New(p *pipeline.Pipeline) *Logger {
	return &Logger{p: p, minLevel: model.LevelInfo}
}

// WithLevel returns a logger with a different severity threshold.
func (l *Logger) WithLevel(min model.Level) *Logger {
	c := l.clone()
	c.minLevel = min
	return c
}

// With returns a logger that attaches key=value to every event it emits.
func (l *Logger) With(key string, value any) *Logger {
	c := l.clone()
	c.bound = append(c.bound, model.Field{Key: key, Value: value})
	return c
}

func (l *Logger) clone() *Logger {
	c := &Logger{p: l.p, minLevel: l.minLevel}
	c.bound = append(c.bound, l.bound...)
	return c
}

// Debug emits a debug event.
func (l *Logger) Debug(msg string, fields ...F) pipeline.Outcome {
	return l.log(model.LevelDebug, msg, fields)
}

// Info emits an info event.
func (l *Logger) Info(msg string, fields ...F) pipeline.Outcome {
	return l.log(model.LevelInfo, msg, fields)
}

// Warn emits a warning event.
func (l *Logger) Warn(msg string, fields ...F) pipeline.Outcome {
	return l.log(model.LevelWarn, msg, fields)
}

// Error emits an error event.
func (l *Logger) Error(msg string, fields ...F) pipeline.Outcome {
	return l.log(model.LevelError, msg, fields)
}

func (l *Logger) log(level model.Level, msg string, fields []F) pipeline.Outcome {
	if level < l.minLevel {
		return pipeline.OutcomeFiltered
	}
	ev := model.NewEvent(level, msg)
	for _, f := range l.bound {
		ev.Set(f.Key, f.Value)
	}
	for _, f := range fields {
		ev.Set(f.Key, f.Value)
	}
	return l.p.Offer(ev)
}
