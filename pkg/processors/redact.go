package processors

import (
	"github.com/logrelay/logrelay/internal/model"
)

// RedactProcessor masks the values of sensitive fields.
type RedactProcessor struct {
	keys map[string]bool
	mask string
}

// NewRedact creates a processor that replaces the listed field values with
// the mask.
func NewRedact(keys []string, mask string) *RedactProcessor {
	if mask == "" {
		mask = "[REDACTED]"
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return &RedactProcessor{keys: set, mask: mask}
}

// Name implements Processor.
func (p *RedactProcessor) Name() string { return "redact" }

// Process implements Processor.
func (p *RedactProcessor) Process(ev *model.Event) (*model.Event, error) {
	for _, f := range ev.Fields() {
		if p.keys[f.Key] {
			ev.Set(f.Key, p.mask)
		}
	}
	return ev, nil
}
