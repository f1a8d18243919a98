package plan

import (
	"fmt"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/decidererr"
	pkgerrors "github.com/bfansports/CloudProcessingEngine-Decider/internal/pkg/errors"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/status"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/tmpl"
)

// Requirement is a single parent dependency: the parent step's name and the
// required terminal status mask it must satisfy (spec §3).
type Requirement struct {
	Parent   string
	Required status.Step
}

// Step is the sum type of spec §4's two step variants. Exactly one of
// Activity/EvalTemplate is set, mirroring the document's "exactly one of
// activity or eval required" rule (spec §6).
type Step struct {
	Name     string
	Requires []Requirement

	// ActivityStep fields.
	Activity      *Activity
	InputTemplate *tmpl.InputTemplate

	// TemplatedStep fields. Present in the data model but never scheduled
	// (spec Open Question 3): its template is rendered when it turns ready,
	// but scheduling one raises *decidererr.NotImplementedError.
	EvalTemplate *tmpl.InputTemplate
}

// IsActivity reports whether this is an ActivityStep (as opposed to a pure
// TemplatedStep).
func (s *Step) IsActivity() bool {
	return s.Activity != nil
}

// RequirementMap renders Requires as a parent-name -> required-status map,
// the shape StepState.check_requirements consumes.
func (s *Step) RequirementMap() map[string]status.Step {
	out := make(map[string]status.Step, len(s.Requires))
	for _, r := range s.Requires {
		out[r.Parent] = r.Required
	}
	return out
}

// RequireEntry is the wire shape of one requires entry (spec §6): a bare
// string, or a [name, status] pair.
type RequireEntry struct {
	Parent string
	Status string // empty means "use the canonical default: completed"
}

// StepDoc is the wire-shape of a step-definition document (spec §6).
type StepDoc struct {
	Name     string   `yaml:"name" json:"name"`
	Requires []any    `yaml:"requires,omitempty" json:"requires,omitempty"`
	Activity string   `yaml:"activity,omitempty" json:"activity,omitempty"`
	Input    string   `yaml:"input,omitempty" json:"input,omitempty"`
	Eval     string   `yaml:"eval,omitempty" json:"eval,omitempty"`
}

// parseRequires normalizes the requires field of a step document. Spec's
// canonical resolution of Open Question 1: a bare-string entry's default
// required status is "completed", not "succeeded".
func parseRequires(raw []any) ([]RequireEntry, error) {
	out := make([]RequireEntry, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			out = append(out, RequireEntry{Parent: v})
		case []any:
			if len(v) == 0 || len(v) > 2 {
				return nil, fmt.Errorf("requires entry must be a string or a [name, status] pair, got %v", v)
			}
			name, ok := v[0].(string)
			if !ok {
				return nil, fmt.Errorf("requires entry name must be a string, got %v", v[0])
			}
			entry := RequireEntry{Parent: name}
			if len(v) == 2 {
				statusName, ok := v[1].(string)
				if !ok {
					return nil, fmt.Errorf("requires entry status must be a string, got %v", v[1])
				}
				entry.Status = statusName
			}
			out = append(out, entry)
		default:
			return nil, fmt.Errorf("requires entry must be a string or a [name, status] pair, got %v", v)
		}
	}
	return out, nil
}

func newStep(doc StepDoc, activities map[string]*Activity) (*Step, error) {
	if doc.Name == "" {
		return nil, decidererr.NewLoadError("step", fmt.Errorf("missing name"))
	}
	if (doc.Activity == "") == (doc.Eval == "") {
		return nil, decidererr.NewStepDefinitionError(doc.Name,
			fmt.Errorf("exactly one of activity or eval must be set"))
	}

	entries, err := parseRequires(doc.Requires)
	if err != nil {
		return nil, decidererr.NewStepDefinitionError(doc.Name, err)
	}

	requires := make([]Requirement, 0, len(entries))
	declared := map[string]struct{}{}
	for _, e := range entries {
		statusName := e.Status
		if statusName == "" {
			statusName = "completed"
		}
		req, err := status.ParseRequirement(statusName)
		if err != nil {
			return nil, decidererr.NewStepDefinitionError(doc.Name, fmt.Errorf("requires[%s]: %w", e.Parent, err))
		}
		requires = append(requires, Requirement{Parent: e.Parent, Required: req})
		declared[e.Parent] = struct{}{}
	}

	s := &Step{Name: doc.Name, Requires: requires}

	if doc.Activity != "" {
		act, ok := activities[doc.Activity]
		if !ok {
			return nil, decidererr.NewLoadError("step:"+doc.Name,
				fmt.Errorf("unknown activity %q: %w", doc.Activity, pkgerrors.ErrNotFound))
		}
		s.Activity = act
		it, err := tmpl.ParseInputTemplate(doc.Name, doc.Input, declared)
		if err != nil {
			return nil, err
		}
		s.InputTemplate = it
		return s, nil
	}

	ev, err := tmpl.ParseInputTemplate(doc.Name, doc.Eval, declared)
	if err != nil {
		return nil, err
	}
	s.EvalTemplate = ev
	return s, nil
}
