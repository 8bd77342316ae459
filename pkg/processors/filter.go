package processors

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/pkg/errors"
)

// Operator is the comparison applied by a filter condition.
type Operator string

const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpRegex    Operator = "regex"
)

// Condition matches one field path against a value. Paths use gjson syntax,
// so nested fields like "http.status" address into nested maps.
type Condition struct {
	Path  string
	Op    Operator
	Value string

	re *regexp.Regexp
}

// FilterProcessor drops events that fail to match all conditions (Keep
// mode), or drops events that match all conditions (Drop mode).
type FilterProcessor struct {
	conditions []Condition
	drop       bool
}

// NewFilter creates a keep-filter: events matching every condition pass,
// everything else is filtered out.
func NewFilter(conditions []Condition) (*FilterProcessor, error) {
	return newFilter(conditions, false)
}

// NewDropFilter creates a drop-filter: events matching every condition are
// filtered out.
func NewDropFilter(conditions []Condition) (*FilterProcessor, error) {
	return newFilter(conditions, true)
}

func newFilter(conditions []Condition, drop bool) (*FilterProcessor, error) {
	for i := range conditions {
		c := &conditions[i]
		switch c.Op {
		case OpEquals, OpContains:
		case OpRegex:
			re, err := regexp.Compile(c.Value)
			if err != nil {
				return nil, errors.Config("filter.value", "invalid regexp: "+err.Error())
			}
			c.re = re
		default:
			return nil, errors.Config("filter.op", "must be one of equals, contains, regex")
		}
	}
	return &FilterProcessor{conditions: conditions, drop: drop}, nil
}

// Name implements Processor.
func (p *FilterProcessor) Name() string { return "filter" }

// Process implements Processor.
func (p *FilterProcessor) Process(ev *model.Event) (*model.Event, error) {
	doc, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	matched := true
	for i := range p.conditions {
		if !p.conditions[i].matches(doc) {
			matched = false
			break
		}
	}

	if matched == p.drop {
		return nil, nil
	}
	return ev, nil
}

func (c *Condition) matches(doc []byte) bool {
	res := gjson.GetBytes(doc, c.Path)
	if !res.Exists() {
		return false
	}
	switch c.Op {
	case OpEquals:
		return res.String() == c.Value
	case OpContains:
		return strings.Contains(res.String(), c.Value)
	case OpRegex:
		return c.re.MatchString(res.String())
	}
	return false
}
