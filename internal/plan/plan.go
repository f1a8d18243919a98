package plan

import (
	"fmt"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/decidererr"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/schema"
)

// Plan is the top-level, immutable document of spec §3/§5 (C5): an input
// schema, an ordered list of Step definitions, and a map of Activities.
// Order matters only for presentation/determinism of error messages and
// orphan-resolution tie-breaking (spec §5); dependency order is computed
// from Requires, not list position.
type Plan struct {
	Name       string
	Version    string
	InputSpec  *schema.Schema
	Steps      []*Step
	Activities map[string]*Activity
}

// PlanDoc is the wire-shape of a plan document (spec §6), equivalent
// whether sourced from YAML or JSON.
type PlanDoc struct {
	Name       string         `yaml:"name" json:"name"`
	Version    string         `yaml:"version" json:"version"`
	InputSpec  map[string]any `yaml:"input_spec,omitempty" json:"input_spec,omitempty"`
	Activities []ActivityDoc  `yaml:"activities,omitempty" json:"activities,omitempty"`
	Steps      []StepDoc      `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// NewPlan validates and constructs a Plan from its wire document. Per spec
// §3's Plan invariant, every step's activity reference must resolve in the
// activity map; requires names are NOT required to resolve to a declared
// step at load time — an unresolved parent name is a valid (if inert)
// configuration, handled at runtime by the orphan queue (spec §4.2), not a
// load-time error.
func NewPlan(doc PlanDoc) (*Plan, error) {
	if doc.Name == "" {
		return nil, decidererr.NewLoadError("plan", fmt.Errorf("missing name"))
	}

	inputSpec, err := schema.Compile(doc.InputSpec)
	if err != nil {
		return nil, decidererr.NewLoadError("plan:"+doc.Name, fmt.Errorf("input_spec: %w", err))
	}

	activities := make(map[string]*Activity, len(doc.Activities))
	for _, ad := range doc.Activities {
		act, err := newActivity(ad)
		if err != nil {
			return nil, err
		}
		if _, exists := activities[act.Name]; exists {
			return nil, decidererr.NewLoadError("plan:"+doc.Name, fmt.Errorf("duplicate activity name %q", act.Name))
		}
		activities[act.Name] = act
	}

	steps := make([]*Step, 0, len(doc.Steps))
	seen := map[string]struct{}{}
	for _, sd := range doc.Steps {
		s, err := newStep(sd, activities)
		if err != nil {
			return nil, err
		}
		if _, exists := seen[s.Name]; exists {
			return nil, decidererr.NewLoadError("plan:"+doc.Name, fmt.Errorf("duplicate step name %q", s.Name))
		}
		seen[s.Name] = struct{}{}
		steps = append(steps, s)
	}

	if _, reserved := seen["$init"]; reserved {
		return nil, decidererr.NewLoadError("plan:"+doc.Name, fmt.Errorf("step name \"$init\" is reserved"))
	}
	if _, reserved := seen["$end"]; reserved {
		return nil, decidererr.NewLoadError("plan:"+doc.Name, fmt.Errorf("step name \"$end\" is reserved"))
	}

	return &Plan{
		Name:       doc.Name,
		Version:    doc.Version,
		InputSpec:  inputSpec,
		Steps:      steps,
		Activities: activities,
	}, nil
}
