// Package status implements the bit-mask status domain shared by StepState
// and WorkflowState (spec §3): a concrete status "means" a required status
// when the concrete status's bit is a subset of the requirement's mask.
// "completed" is not a status any step ever actually holds; it is an
// umbrella mask (succeeded|failed|skipped) usable only as a requirement.
package status

import "fmt"

// Step is the bit-mask type for a StepState's concrete lifecycle status and
// for the requirement masks steps/​$end declare over their parents.
type Step uint8

const (
	Pending Step = 1 << iota
	Ready
	Running
	Succeeded
	Failed
	Skipped
	Aborted
)

// Completed is the umbrella requirement mask: a parent "means completed" if
// it ended in any of succeeded, failed, or skipped. It is never a concrete
// StepState.Status value.
const Completed = Succeeded | Failed | Skipped

// Terminal is every status from which a step never transitions again.
const Terminal = Succeeded | Failed | Skipped | Aborted

var stepNames = map[Step]string{
	Pending:   "pending",
	Ready:     "ready",
	Running:   "running",
	Succeeded: "succeeded",
	Failed:    "failed",
	Skipped:   "skipped",
	Aborted:   "aborted",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", s)
}

// IsTerminal reports whether s is one of the statuses from which a step
// never transitions again (succeeded, failed, skipped, aborted).
func (s Step) IsTerminal() bool {
	return s&Terminal != 0
}

// Satisfies reports whether the concrete status s means the required status
// mask req, per spec §3's subset-bit-mask inclusion rule: e.g. Succeeded
// satisfies a requirement of Completed; Failed satisfies Completed and
// Failed but not Succeeded.
func (s Step) Satisfies(req Step) bool {
	return s&req != 0
}

// ParseRequirement parses one of the status names spec §6 allows in a
// requires entry ("pending | ready | running | completed | succeeded |
// failed | skipped | aborted") into its requirement mask. "completed" is
// the only name that maps to more than one bit.
func ParseRequirement(name string) (Step, error) {
	switch name {
	case "pending":
		return Pending, nil
	case "ready":
		return Ready, nil
	case "running":
		return Running, nil
	case "completed":
		return Completed, nil
	case "succeeded":
		return Succeeded, nil
	case "failed":
		return Failed, nil
	case "skipped":
		return Skipped, nil
	case "aborted":
		return Aborted, nil
	default:
		return 0, fmt.Errorf("unknown status name %q", name)
	}
}

// Workflow is the top-level execution status of spec §3's Workflow state.
// Unlike Step, a WorkflowState field only ever holds one concrete value at
// a time; Succeeded/Failed are the two outcomes the external result surface
// of §6 consumes (CompleteWorkflow / FailWorkflow). Spec §3 also lists a
// bare "completed" workflow status as an umbrella satisfied by both
// Succeeded and Failed; since nothing in this module ever checks a
// *requirement* against workflow status (only against step status), the
// workflow domain never needs to store that umbrella value itself — it
// collapses directly to Succeeded once $end finishes, and to Failed the
// instant any step aborts.
type Workflow string

const (
	WorkflowInit      Workflow = "init"
	WorkflowRunning   Workflow = "running"
	WorkflowSucceeded Workflow = "succeeded"
	WorkflowFailed    Workflow = "failed"
)

// MeansCompleted reports whether the workflow's concrete status satisfies the
// "completed" umbrella (succeeded or failed).
func (w Workflow) MeansCompleted() bool {
	return w == WorkflowSucceeded || w == WorkflowFailed
}
