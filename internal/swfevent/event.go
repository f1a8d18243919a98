// Package swfevent defines the wire-level event-stream types of spec §6
// and the decision/result types the decider emits. It intentionally does
// not reuse go.temporal.io/api's history event model: Temporal renamed
// SWF's DecisionTask* family to WorkflowTask* and reshaped several
// attributes, so borrowing it would silently misrepresent the SWF-shaped
// wire format this spec targets (see SPEC_FULL.md, "Dropped teacher
// dependencies").
package swfevent

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Event types this module dispatches on (spec §4.4). Any eventType not in
// this list routes to the abort handler.
const (
	TypePlanLoad = "PlanLoad" // synthetic, injected by the engine, never on the wire

	TypeWorkflowExecutionStarted = "WorkflowExecutionStarted"

	TypeDecisionTaskScheduled = "DecisionTaskScheduled"
	TypeDecisionTaskStarted   = "DecisionTaskStarted"
	TypeDecisionTaskCompleted = "DecisionTaskCompleted"
	TypeDecisionTaskTimedOut  = "DecisionTaskTimedOut"

	TypeActivityTaskScheduled = "ActivityTaskScheduled"
	TypeActivityTaskStarted   = "ActivityTaskStarted"
	TypeActivityTaskCompleted = "ActivityTaskCompleted"
)

// Event is one entry in the ordered, gap-free event history the workflow
// service hands the decider. EventId is a unique monotonic identifier;
// ordering ties are impossible (spec §5).
type Event struct {
	EventID   int64           `json:"eventId"`
	EventType string          `json:"eventType"`
	Raw       json.RawMessage `json:"-"`

	// Decoded on demand by the handlers that need them (spec §4.4's
	// per-event-type attribute table). Left as raw fields here so one
	// Event struct covers every event type without a oneof-style wrapper.
	// datatypes.JSON (rather than json.RawMessage) carries these: it is the
	// same "hold onto the raw bytes, decode on demand" shape the teacher
	// uses for its persisted JSON columns, reused here for a wire-level
	// document instead of a database one.
	Input datatypes.JSON `json:"input,omitempty"`

	// ActivityID is the step name an ActivityTaskScheduled event names
	// directly. ActivityTaskCompleted does NOT carry it: it only
	// carries ScheduledEventID, a back-reference to the ActivityTaskScheduled
	// event's own EventID, and the step name must be resolved through that
	// indirection (spec §4.4; ct/decider.py's event_ids dict in the original
	// implementation).
	ActivityID       string         `json:"activityId,omitempty"`
	ScheduledEventID int64          `json:"scheduledEventId,omitempty"`
	Result           datatypes.JSON `json:"result,omitempty"`
}

// PlanLoadEvent is the synthetic event the engine injects as eventId 0
// before processing any real event (spec §4.4 step 2).
var PlanLoadEvent = Event{EventID: 0, EventType: TypePlanLoad}
