// Package decidererr implements the error taxonomy the decider uses to
// distinguish load-time failures (fatal to startup), per-event runtime
// aborts (absorbed into workflow/step status), and programming errors
// (bugs, not data conditions) from one another without callers resorting to
// string matching.
package decidererr

import "fmt"

// LoadError reports a malformed Plan document: unresolved activity
// reference, invalid output expression, invalid input template variable, or
// an invalid JSON-Schema. Surfaces at Plan/Activity/Step construction time;
// the caller cannot proceed.
type LoadError struct {
	Op  string // what was being loaded, e.g. "plan", "activity:HelloWorld"
	Err error
}

func (e *LoadError) Error() string {
	if e.Op == "" {
		return "load error: " + e.Err.Error()
	}
	return fmt.Sprintf("load error (%s): %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func NewLoadError(op string, err error) *LoadError {
	return &LoadError{Op: op, Err: err}
}

// StepDefinitionError is the LoadError sub-kind for step-specific defects:
// a template references a name that is neither __input__ nor a declared
// parent, or a requires entry names an unknown status.
type StepDefinitionError struct {
	Step string
	Err  error
}

func (e *StepDefinitionError) Error() string {
	return fmt.Sprintf("step definition error (%s): %v", e.Step, e.Err)
}

func (e *StepDefinitionError) Unwrap() error { return e.Err }

// AsLoadError returns e viewed as a LoadError, since it is a LoadError
// sub-kind per spec §7.
func (e *StepDefinitionError) AsLoadError() *LoadError {
	return &LoadError{Op: "step:" + e.Step, Err: e.Err}
}

// As lets StepDefinitionError participate in errors.As(err, &loadErr)
// lookups through AsLoadError.
func (e *StepDefinitionError) As(target any) bool {
	if t, ok := target.(**LoadError); ok {
		*t = e.AsLoadError()
		return true
	}
	return false
}

func NewStepDefinitionError(step string, err error) *StepDefinitionError {
	return &StepDefinitionError{Step: step, Err: err}
}

// RuntimeAbort is a recoverable per-event failure: invalid workflow input,
// invalid template-rendered JSON, or input-schema validation failure. The
// decider absorbs it by transitioning the offending step or the whole
// workflow to aborted/failed and continues processing subsequent events.
type RuntimeAbort struct {
	Reason string
	Err    error
}

func (e *RuntimeAbort) Error() string {
	if e.Err == nil {
		return "runtime abort: " + e.Reason
	}
	return fmt.Sprintf("runtime abort: %s: %v", e.Reason, e.Err)
}

func (e *RuntimeAbort) Unwrap() error { return e.Err }

func NewRuntimeAbort(reason string, err error) *RuntimeAbort {
	return &RuntimeAbort{Reason: reason, Err: err}
}

// UnknownEventError marks an event type absent from the handler table. The
// engine itself does not construct it: on an unknown event type it logs the
// type and aborts the workflow.
type UnknownEventError struct {
	EventType string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.EventType)
}

// NotImplementedError is raised when a TemplatedStepResult would be
// scheduled: TemplatedStep is a reserved extension point (see Open
// Questions) and every code path that would act on it fails fast.
type NotImplementedError struct {
	What string
}

func (e *NotImplementedError) Error() string {
	return "not implemented: " + e.What
}

// ProgrammingError indicates a bug, not a data condition: a transition
// outside the permitted lifecycle, a mutation attempted outside an active
// context, or a second context entered before the first exited. Callers
// should let this propagate rather than reshape it into workflow status.
type ProgrammingError struct {
	Msg string
}

func (e *ProgrammingError) Error() string {
	return "programming error: " + e.Msg
}

func NewProgrammingError(format string, args ...any) *ProgrammingError {
	return &ProgrammingError{Msg: fmt.Sprintf(format, args...)}
}
