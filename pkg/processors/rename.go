package processors

import (
	"github.com/logrelay/logrelay/internal/model"
)

// RenameProcessor renames fields, keeping their position in the event.
type RenameProcessor struct {
	mapping map[string]string
}

// NewRename creates a processor applying the from->to key mapping.
func NewRename(mapping map[string]string) *RenameProcessor {
	return &RenameProcessor{mapping: mapping}
}

// Name implements Processor.
func (p *RenameProcessor) Name() string { return "rename" }

// Process implements Processor.
func (p *RenameProcessor) Process(ev *model.Event) (*model.Event, error) {
	for from, to := range p.mapping {
		ev.Rename(from, to)
	}
	return ev, nil
}
