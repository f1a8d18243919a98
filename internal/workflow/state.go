package workflow

import (
	"fmt"
	"sort"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/decidererr"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/plan"
	pkgerrors "github.com/bfansports/CloudProcessingEngine-Decider/internal/pkg/errors"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/status"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/tmpl"
)

const (
	initName = "$init"
	endName  = "$end"
)

// State is the per-decision-tick workflow state machine of spec §4.2/C7.
// It owns every StepState through its step map; callers must not retain a
// StepState pointer across ticks (a fresh State is built by decider.Engine
// for each Eval call).
type State struct {
	Status status.Workflow

	Steps map[string]*StepState
	Init  *StepState
	End   *StepState

	// Orphans maps an unresolved-parent-name to the set of StepStates
	// waiting on it (spec §4.2). Enumeration order across a tie is not
	// meaningful (spec §5) — callers must not depend on it.
	Orphans map[string][]*StepState

	activeCtx *string
}

// NewState builds a fresh WorkflowState with only the $init/$end sentinels
// present. Plan steps are added later via Insert, driven by the engine's
// synthetic PlanLoad event (spec §4.4).
func NewState() *State {
	st := &State{
		Status:  status.WorkflowInit,
		Steps:   map[string]*StepState{},
		Orphans: map[string][]*StepState{},
	}
	st.Init = newSentinel(initName)
	st.End = newSentinel(endName)
	st.Steps[initName] = st.Init
	st.Steps[endName] = st.End
	return st
}

// Begin opens a mutation context scoped to ctxID (an event id) for the
// duration of the returned end func. Entering a second context before
// exiting the first is a *decidererr.ProgrammingError (spec §4.2/§9).
func (w *State) Begin(ctxID string) (end func(), err error) {
	if w.activeCtx != nil {
		return nil, decidererr.NewProgrammingError("context %q already active", *w.activeCtx)
	}
	id := ctxID
	w.activeCtx = &id
	return func() { w.activeCtx = nil }, nil
}

func (w *State) requireContext() (string, error) {
	if w.activeCtx == nil {
		return "", decidererr.NewProgrammingError("mutation attempted outside an active context")
	}
	return *w.activeCtx, nil
}

// Insert creates a pending StepState for def and attempts to wire it into
// the graph, per spec §4.2's insert algorithm: a step with no requirements
// parents under $init; a step whose every required parent already exists
// wires directly; otherwise the step queues under each missing parent name
// in Orphans until that name is later inserted.
func (w *State) Insert(def *plan.Step) error {
	ctxID, err := w.requireContext()
	if err != nil {
		return err
	}
	if _, exists := w.Steps[def.Name]; exists {
		return decidererr.NewProgrammingError("step %q already inserted", def.Name)
	}
	ss := newStepState(def)
	w.attemptInsert(ss, ctxID)
	return nil
}

func (w *State) attemptInsert(ss *StepState, ctxID string) {
	if len(ss.ParentReqs) == 0 {
		w.wireParent(ss, w.Init, status.Completed)
		w.commitInsert(ss, ctxID)
		return
	}

	missing := make([]string, 0)
	for name, req := range ss.ParentReqs {
		if _, wired := ss.Parents[name]; wired {
			continue
		}
		parent, ok := w.Steps[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		w.wireParent(ss, parent, req)
	}

	if len(missing) > 0 {
		for _, name := range missing {
			w.Orphans[name] = appendUnique(w.Orphans[name], ss)
		}
		return
	}
	w.commitInsert(ss, ctxID)
}

func appendUnique(list []*StepState, ss *StepState) []*StepState {
	for _, existing := range list {
		if existing == ss {
			return list
		}
	}
	return append(list, ss)
}

// wireParent records the bidirectional parent/child relation (spec graph
// invariant #4: s ∈ p.children ⇔ p ∈ s.parents).
func (w *State) wireParent(child, parent *StepState, req status.Step) {
	child.Parents[parent.Name] = parent
	parent.Children[child.Name] = child
	child.ParentReqs[parent.Name] = req
}

// commitInsert finalizes a fully-wired StepState: registers it in the step
// map, parents it under $end, evaluates its own readiness (idempotent, for
// the rare case its parents are already terminal), then retries anything
// that was waiting on this step's name.
func (w *State) commitInsert(ss *StepState, ctxID string) {
	w.Steps[ss.Name] = ss
	w.wireParent(w.End, ss, status.Completed)

	w.checkRequirements(ss, ctxID)

	if waiters, ok := w.Orphans[ss.Name]; ok {
		delete(w.Orphans, ss.Name)
		for _, waiter := range waiters {
			w.attemptInsert(waiter, ctxID)
		}
	}
}

// SetInput transitions $init to its completed representation with
// inputData as its attrs and moves the workflow to running (spec §4.2).
// Permitted only when the workflow is currently init.
func (w *State) SetInput(inputData map[string]any) error {
	ctxID, err := w.requireContext()
	if err != nil {
		return err
	}
	if w.Status != status.WorkflowInit {
		return decidererr.NewProgrammingError("set_input called while workflow status is %q", w.Status)
	}
	w.Init.Attrs = inputData
	w.Init.transition(status.Succeeded, ctxID)
	w.Status = status.WorkflowRunning

	for _, child := range sortedChildren(w.Init) {
		w.checkRequirements(child, ctxID)
	}
	return nil
}

// CompleteStep transitions the named step to a terminal family status
// (succeeded, failed, or skipped), computes its output projection when the
// outcome is succeeded, and propagates check_requirements to every child
// (spec §4.3's "-> terminal (completed family)" rule).
func (w *State) CompleteStep(name string, outcome status.Step, output any) error {
	ctxID, err := w.requireContext()
	if err != nil {
		return err
	}
	if outcome&status.Completed == 0 {
		return decidererr.NewProgrammingError("CompleteStep outcome must be succeeded, failed, or skipped, got %q", outcome)
	}
	ss, ok := w.Steps[name]
	if !ok {
		return decidererr.NewRuntimeAbort(fmt.Sprintf("complete unknown step %q", name), pkgerrors.ErrNotFound)
	}
	if ss.Status != status.Running {
		return decidererr.NewProgrammingError("step %q: complete from status %q, want running", name, ss.Status)
	}

	ss.Output = output
	if outcome == status.Succeeded && ss.IsActivityStep() {
		attrs, err := ss.def.Activity.Project(output)
		if err != nil {
			// A projection failure still lands ss in a terminal (completed
			// family) status, so it must run the same child-notification
			// loop every other terminal transition runs below, and fail the
			// workflow outright rather than leaving it running forever.
			outcome = status.Failed
			w.Status = status.WorkflowFailed
		} else {
			ss.Attrs = attrs
		}
	}
	ss.transition(outcome, ctxID)

	for _, child := range sortedChildren(ss) {
		w.checkRequirements(child, ctxID)
	}
	return nil
}

// MarkRunning transitions the named step from ready to running, triggered
// externally when the decider observes ActivityTaskScheduled (spec §4.3).
func (w *State) MarkRunning(name string) error {
	ctxID, err := w.requireContext()
	if err != nil {
		return err
	}
	ss, ok := w.Steps[name]
	if !ok {
		return decidererr.NewRuntimeAbort(fmt.Sprintf("schedule unknown step %q", name), pkgerrors.ErrNotFound)
	}
	if ss.Status != status.Ready {
		return decidererr.NewProgrammingError("step %q: mark running from status %q, want ready", name, ss.Status)
	}
	ss.transition(status.Running, ctxID)
	return nil
}

// SetAbort transitions the workflow status to failed unconditionally (spec
// §4.2), used when an event is unrecognized or carries invalid input.
func (w *State) SetAbort() error {
	if _, err := w.requireContext(); err != nil {
		return err
	}
	w.Status = status.WorkflowFailed
	return nil
}

// checkRequirements evaluates whether a pending step's declared parents are
// all terminal and satisfy their required status (spec §4.3's "-> ready"
// rule). Any terminal parent that fails to satisfy its requirement aborts
// ss immediately.
func (w *State) checkRequirements(ss *StepState, ctxID string) {
	if ss.Status != status.Pending {
		return
	}

	for _, name := range sortedKeys(ss.ParentReqs) {
		parent, wired := ss.Parents[name]
		if !wired {
			return // still waiting on an orphaned parent
		}
		if !parent.Status.IsTerminal() {
			return
		}
		if !parent.Status.Satisfies(ss.ParentReqs[name]) {
			ss.transition(status.Aborted, ctxID)
			_ = w.checkWorkflowOutcome(ss, ctxID)
			return
		}
	}

	w.makeReady(ss, ctxID)
}

func (w *State) makeReady(ss *StepState, ctxID string) {
	if ss.Name == endName {
		ss.transition(status.Ready, ctxID)
		w.Status = status.WorkflowSucceeded
		return
	}

	context := make(map[string]any, len(ss.Parents))
	for name, parent := range ss.Parents {
		if name == initName {
			context[tmpl.InputVar] = parent.Attrs
			continue
		}
		context[name] = parent.Attrs
	}

	var input map[string]any
	var err error
	if ss.def.InputTemplate != nil {
		input, err = ss.def.InputTemplate.Render(context)
	} else {
		// TemplatedStep: no externally observable output, but the step is
		// still prepared the same way (spec §4.3's data-model note).
		input, err = renderTemplated(ss, context)
	}
	if err != nil {
		ss.transition(status.Aborted, ctxID)
		_ = w.checkWorkflowOutcome(ss, ctxID)
		return
	}

	if ss.IsActivityStep() && ss.def.Activity.InputSpec != nil {
		if verr := ss.def.Activity.InputSpec.Validate(input); verr != nil {
			ss.transition(status.Aborted, ctxID)
			_ = w.checkWorkflowOutcome(ss, ctxID)
			return
		}
	}

	ss.Input = input
	ss.transition(status.Ready, ctxID)
}

func renderTemplated(ss *StepState, context map[string]any) (map[string]any, error) {
	return ss.def.EvalTemplate.Render(context)
}

// checkWorkflowOutcome moves the workflow to failed the instant any step
// aborts (spec §4.3: "workflow transitions to failed at the next
// consistency check" — performed eagerly here since State is
// single-threaded and synchronous, per spec §5).
func (w *State) checkWorkflowOutcome(ss *StepState, ctxID string) error {
	if ss.Status == status.Aborted {
		w.Status = status.WorkflowFailed
	}
	return nil
}

// Ready returns every step currently in status ready, found by walking
// from $init: a ready child is yielded, a completed child is descended
// through, and any other status short-circuits that branch (spec §4.2's
// step_next algorithm). The result is sorted by name for determinism
// (spec P1) since map iteration order is not otherwise stable.
func (w *State) Ready() []*StepState {
	visited := map[string]bool{}
	var out []*StepState
	var walk func(ss *StepState)
	walk = func(ss *StepState) {
		for _, child := range sortedChildren(ss) {
			if visited[child.Name] {
				continue
			}
			visited[child.Name] = true
			switch {
			case child.Status == status.Ready:
				out = append(out, child)
			case child.Status.Satisfies(status.Completed):
				walk(child)
			default:
				// pending, running, or aborted: short-circuit this branch
			}
		}
	}
	walk(w.Init)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedChildren(ss *StepState) []*StepState {
	names := sortedKeys(ss.Children)
	out := make([]*StepState, 0, len(names))
	for _, n := range names {
		out = append(out, ss.Children[n])
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
