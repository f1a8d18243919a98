// Package decider implements the event-replay state machine of spec §4.4/C8:
// Engine.Eval takes a Plan and its full event history and returns the set of
// decisions (activities to schedule) implied by replaying that history from
// scratch, exactly as an SWF decider is invoked on every decision task with
// the complete history to date (spec §5's "replay, don't resume" design).
package decider

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/decidererr"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/plan"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/platform/logger"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/status"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/swfevent"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/workflow"
)

// Engine evaluates a Plan against an event history. It is stateless between
// calls: every Eval builds a fresh workflow.State (spec §5).
type Engine struct {
	log *logger.Logger
}

// NewEngine builds an Engine that logs through log. A nil log is replaced
// with a no-op logger.
func NewEngine(log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{log: log}
}

// Result is what Eval returns: the workflow's status after replay, and the
// ActivityStep results the caller should schedule this tick. Per spec Open
// Question 2's resolution, this reflects only the state after the *last*
// event in the supplied history — not an accumulation of every intermediate
// decision a partial replay would have produced.
type Result struct {
	WorkflowStatus status.Workflow                `json:"workflow_status"`
	Schedule       []swfevent.ActivityStepResult `json:"schedule"`
}

// Eval replays events against p from scratch and returns the resulting
// decision set (spec §4.4). events must be the complete, ordered history;
// Eval injects the synthetic PlanLoad event itself and does not expect the
// caller to include it.
func (e *Engine) Eval(p *plan.Plan, events []swfevent.Event) (*Result, error) {
	if p == nil {
		return nil, decidererr.NewProgrammingError("Eval called with a nil plan")
	}

	// decisionID correlates every log line this replay emits with the
	// decision task that produced it, the same way the teacher's audit
	// middleware tags a request's whole log trail with one generated id
	// (internal/server/middleware/audit/logger.go). It never enters the
	// workflow state itself — HistoryEntry.Context still keys off the event
	// id, per spec §4.2/§9.
	decisionID := uuid.New().String()
	log := e.log.With("decision_id", decisionID, "plan", p.Name)
	log.Debug("replaying workflow history", "eventCount", len(events))

	state := workflow.NewState()

	if err := e.loadPlan(state, p); err != nil {
		return nil, err
	}

	// scheduledSteps maps an ActivityTaskScheduled event's own eventId to
	// the step name it scheduled (spec §4.4: "record event_id → step_name").
	// ActivityTaskCompleted only carries scheduledEventId, a back-reference
	// to that scheduling event, so completion has to resolve the step name
	// through this map rather than assume the completed event names it
	// directly — the same indirection the original decider's event_ids
	// dict performs (ct/decider.py's event_scheduled/event_completed).
	scheduledSteps := make(map[int64]string)

	for _, evt := range events {
		if state.Status == status.WorkflowFailed || state.Status == status.WorkflowSucceeded {
			// spec §4.3: once terminal, further events are skipped; they
			// no longer change workflow status.
			continue
		}
		if err := e.applyEvent(state, p, evt, log, scheduledSteps); err != nil {
			return nil, err
		}
	}

	var schedule []swfevent.ActivityStepResult
	if !state.Status.MeansCompleted() {
		// spec §4.4 step 3: only query step_next() when the workflow's
		// status does not mean completed. state.Ready() walks step status
		// alone and has no notion of workflow status, so a step that turned
		// Ready before a later event aborted the workflow would otherwise
		// still come back as schedulable.
		var err error
		schedule, err = e.buildSchedule(state)
		if err != nil {
			return nil, err
		}
	}

	log.Debug("replay complete", "workflowStatus", state.Status, "scheduled", len(schedule))
	return &Result{WorkflowStatus: state.Status, Schedule: schedule}, nil
}

func (e *Engine) loadPlan(state *workflow.State, p *plan.Plan) error {
	ctxID := fmt.Sprintf("%d", swfevent.PlanLoadEvent.EventID)
	end, err := state.Begin(ctxID)
	if err != nil {
		return err
	}
	defer end()

	for _, step := range p.Steps {
		if err := state.Insert(step); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyEvent(state *workflow.State, p *plan.Plan, evt swfevent.Event, log *logger.Logger, scheduledSteps map[int64]string) error {
	ctxID := fmt.Sprintf("%d", evt.EventID)
	end, err := state.Begin(ctxID)
	if err != nil {
		return err
	}
	defer end()

	switch evt.EventType {
	case swfevent.TypeWorkflowExecutionStarted:
		return e.handleWorkflowStarted(state, p, evt, log)

	case swfevent.TypeDecisionTaskScheduled,
		swfevent.TypeDecisionTaskStarted,
		swfevent.TypeDecisionTaskCompleted,
		swfevent.TypeDecisionTaskTimedOut,
		swfevent.TypeActivityTaskStarted:
		// Spec §4.4: these carry no state-machine effect; they exist in the
		// history only for the workflow service's own bookkeeping.
		return nil

	case swfevent.TypeActivityTaskScheduled:
		scheduledSteps[evt.EventID] = evt.ActivityID
		if err := state.MarkRunning(evt.ActivityID); err != nil {
			var abort *decidererr.RuntimeAbort
			if errors.As(err, &abort) {
				log.Warn("activity scheduled for unknown step, aborting workflow", "err", err, "eventId", evt.EventID)
				return state.SetAbort()
			}
			return err
		}
		return nil

	case swfevent.TypeActivityTaskCompleted:
		return e.handleActivityCompleted(state, evt, log, scheduledSteps)

	default:
		log.Warn("unknown event type, aborting workflow", "eventType", evt.EventType, "eventId", evt.EventID)
		if err := state.SetAbort(); err != nil {
			return err
		}
		return nil
	}
}

func (e *Engine) handleWorkflowStarted(state *workflow.State, p *plan.Plan, evt swfevent.Event, log *logger.Logger) error {
	var input map[string]any
	if len(evt.Input) > 0 {
		if err := json.Unmarshal(evt.Input, &input); err != nil {
			log.Warn("invalid workflow input, aborting workflow", "err", err, "eventId", evt.EventID)
			return state.SetAbort()
		}
	}

	// P6: input failing the plan's schema fails the workflow before any
	// activity is ever scheduled.
	if err := p.InputSpec.Validate(input); err != nil {
		log.Warn("workflow input failed schema validation, aborting workflow", "err", err, "eventId", evt.EventID)
		return state.SetAbort()
	}

	if err := state.SetInput(input); err != nil {
		return err
	}
	return nil
}

func (e *Engine) handleActivityCompleted(state *workflow.State, evt swfevent.Event, log *logger.Logger, scheduledSteps map[int64]string) error {
	stepName, ok := scheduledSteps[evt.ScheduledEventID]
	if !ok {
		log.Warn("activity completed with no matching scheduled event, aborting workflow",
			"scheduledEventId", evt.ScheduledEventID, "eventId", evt.EventID)
		return state.SetAbort()
	}

	var result any
	if len(evt.Result) > 0 {
		if err := json.Unmarshal(evt.Result, &result); err != nil {
			log.Warn("invalid activity result, aborting workflow", "err", err, "eventId", evt.EventID)
			return state.SetAbort()
		}
	}
	return state.CompleteStep(stepName, status.Succeeded, result)
}

// buildSchedule converts every ready step into its result type. A ready
// TemplatedStep raises NotImplementedError (spec Open Question 3): nothing
// in this engine ever schedules one.
func (e *Engine) buildSchedule(state *workflow.State) ([]swfevent.ActivityStepResult, error) {
	ready := state.Ready()
	out := make([]swfevent.ActivityStepResult, 0, len(ready))
	for _, ss := range ready {
		if ss.Name == "$end" {
			continue
		}
		if !ss.IsActivityStep() {
			return nil, &decidererr.NotImplementedError{What: "scheduling a ready TemplatedStep (" + ss.Name + ")"}
		}
		act := ss.Activity()
		out = append(out, swfevent.ActivityStepResult{
			Name:                          ss.Name,
			Activity:                      act.Name,
			Version:                       act.Version,
			TaskList:                      act.TaskList,
			Input:                         ss.Input,
			HeartbeatTimeoutSeconds:       act.HeartbeatTimeoutSeconds,
			ScheduleToStartTimeoutSeconds: act.ScheduleToStartTimeoutSeconds,
			ScheduleToCloseTimeoutSeconds: act.ScheduleToCloseTimeoutSeconds,
			StartToCloseTimeoutSeconds:    act.StartToCloseTimeoutSeconds,
		})
	}
	return out, nil
}
