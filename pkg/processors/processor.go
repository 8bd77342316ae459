// Package processors implements stateless per-event transformations applied
// before events enter the delivery queue: redaction, renaming, filtering and
// sampling. The delivery core consumes these as external collaborators.
package processors

import (
	"github.com/logrelay/logrelay/internal/model"
)

// Processor transforms one event. Returning a nil event filters it out of
// the pipeline.
type Processor interface {
	Name() string
	Process(ev *model.Event) (*model.Event, error)
}

// Chain applies processors in order, stopping early when an event is
// filtered out.
type Chain []Processor

// Process runs the chain.
func (c Chain) Process(ev *model.Event) (*model.Event, error) {
	for _, p := range c {
		var err error
		ev, err = p.Process(ev)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			return nil, nil
		}
	}
	return ev, nil
}
