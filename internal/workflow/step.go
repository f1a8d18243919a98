// Package workflow implements the mutable, per-decision-tick state machine
// of spec §3/§4.2/§4.3: StepState (C6) and WorkflowState (C7). A
// WorkflowState is exclusively owned by one decider.Engine.Eval call (spec
// §5); nothing here persists across ticks.
package workflow

import (
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/plan"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/status"
)

// HistoryEntry is one append-only record of a StepState transition: the
// status it moved to and the context (event id) that caused it, enabling
// post-hoc causal tracing (spec §4.2).
type HistoryEntry struct {
	Status  status.Step
	Context string
}

// StepState is the per-decision runtime record of spec §3/C6. The
// authoritative owner of every StepState is its WorkflowState's step map;
// Parents/Children here are non-owning relations only (spec §5/§9's
// "bidirectional graph with weak back-references").
type StepState struct {
	Name   string
	Status status.Step

	Input  map[string]any
	Output any
	Attrs  map[string]any

	// ParentReqs is the full required-status mask for every declared
	// parent, known in full at construction time (spec §3). Parents only
	// gains entries as wiring succeeds; ParentReqs never changes after
	// construction.
	ParentReqs map[string]status.Step
	Parents    map[string]*StepState
	Children   map[string]*StepState

	History []HistoryEntry

	// def is nil for the $init/$end sentinels; every user step carries its
	// originating plan.Step so check_requirements can render its input.
	def *plan.Step
}

func newSentinel(name string) *StepState {
	return &StepState{
		Name:       name,
		Status:     status.Pending,
		ParentReqs: map[string]status.Step{},
		Parents:    map[string]*StepState{},
		Children:   map[string]*StepState{},
	}
}

func newStepState(def *plan.Step) *StepState {
	return &StepState{
		Name:       def.Name,
		Status:     status.Pending,
		ParentReqs: def.RequirementMap(),
		Parents:    map[string]*StepState{},
		Children:   map[string]*StepState{},
		def:        def,
	}
}

// IsSentinel reports whether ss is the synthetic $init or $end step.
func (ss *StepState) IsSentinel() bool {
	return ss.def == nil
}

// IsActivityStep reports whether ss is backed by an ActivityStep (as
// opposed to a pure TemplatedStep or a sentinel).
func (ss *StepState) IsActivityStep() bool {
	return ss.def != nil && ss.def.IsActivity()
}

// Activity returns the plan.Activity backing this step. Callers must only
// call this when IsActivityStep reports true.
func (ss *StepState) Activity() *plan.Activity {
	return ss.def.Activity
}

func (ss *StepState) transition(s status.Step, ctxID string) {
	ss.Status = s
	ss.History = append(ss.History, HistoryEntry{Status: s, Context: ctxID})
}
