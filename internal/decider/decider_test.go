package decider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/plan"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/status"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/swfevent"
)

func helloPlan(t *testing.T) *plan.Plan {
	t.Helper()
	p, err := plan.NewPlan(plan.PlanDoc{
		Name:    "hello",
		Version: "1",
		Activities: []plan.ActivityDoc{
			{Name: "HelloWorld", Version: "1"},
		},
		Steps: []plan.StepDoc{
			{Name: "saying_hi", Activity: "HelloWorld"},
			{Name: "saying_hi_again", Requires: []any{"saying_hi"}, Activity: "HelloWorld"},
		},
	})
	require.NoError(t, err)
	return p
}

// Scenario 1: two-step linear "hello" workflow schedules the first step.
func TestEvalSchedulesFirstStep(t *testing.T) {
	p := helloPlan(t)
	engine := NewEngine(nil)

	events := []swfevent.Event{
		{EventID: 1, EventType: swfevent.TypeWorkflowExecutionStarted, Input: []byte("null")},
		{EventID: 2, EventType: swfevent.TypeDecisionTaskScheduled},
		{EventID: 3, EventType: swfevent.TypeDecisionTaskStarted},
	}

	result, err := engine.Eval(p, events)
	require.NoError(t, err)
	assert.Equal(t, status.WorkflowRunning, result.WorkflowStatus)
	require.Len(t, result.Schedule, 1)
	assert.Equal(t, "saying_hi", result.Schedule[0].Name)
	assert.Equal(t, "HelloWorld", result.Schedule[0].Activity)
	assert.Nil(t, result.Schedule[0].Input)
}

// Scenario 2: an unrecognized event type mid-stream aborts the workflow.
func TestEvalUnknownEventAborts(t *testing.T) {
	p := helloPlan(t)
	engine := NewEngine(nil)

	events := []swfevent.Event{
		{EventID: 1, EventType: swfevent.TypeWorkflowExecutionStarted, Input: []byte("null")},
		{EventID: 2, EventType: swfevent.TypeDecisionTaskScheduled},
		{EventID: 3, EventType: "Foo"},
	}

	result, err := engine.Eval(p, events)
	require.NoError(t, err)
	assert.Equal(t, status.WorkflowFailed, result.WorkflowStatus)
	assert.Empty(t, result.Schedule)
}

// Scenario 3: input failing the plan's schema fails the workflow without
// scheduling anything (P6).
func TestEvalInvalidInputFails(t *testing.T) {
	p, err := plan.NewPlan(plan.PlanDoc{
		Name: "hello",
		InputSpec: map[string]any{
			"type":     "object",
			"required": []any{"who"},
			"properties": map[string]any{
				"who": map[string]any{"type": "string"},
			},
		},
		Activities: []plan.ActivityDoc{{Name: "HelloWorld", Version: "1"}},
		Steps:      []plan.StepDoc{{Name: "saying_hi", Activity: "HelloWorld"}},
	})
	require.NoError(t, err)
	engine := NewEngine(nil)

	events := []swfevent.Event{
		{EventID: 1, EventType: swfevent.TypeWorkflowExecutionStarted, Input: []byte(`{"who": 5}`)},
	}

	result, err := engine.Eval(p, events)
	require.NoError(t, err)
	assert.Equal(t, status.WorkflowFailed, result.WorkflowStatus)
	assert.Empty(t, result.Schedule)
}

// Scenario 4: completing the first activity makes the second step ready.
func TestEvalProgressAfterActivityCompletion(t *testing.T) {
	p := helloPlan(t)
	engine := NewEngine(nil)

	events := []swfevent.Event{
		{EventID: 1, EventType: swfevent.TypeWorkflowExecutionStarted, Input: []byte("null")},
		{EventID: 2, EventType: swfevent.TypeDecisionTaskScheduled},
		{EventID: 3, EventType: swfevent.TypeDecisionTaskStarted},
		{EventID: 4, EventType: swfevent.TypeDecisionTaskCompleted},
		{EventID: 5, EventType: swfevent.TypeActivityTaskScheduled, ActivityID: "saying_hi"},
		{EventID: 6, EventType: swfevent.TypeActivityTaskStarted},
		{EventID: 7, EventType: swfevent.TypeActivityTaskCompleted, ScheduledEventID: 5, Result: []byte("null")},
	}

	result, err := engine.Eval(p, events)
	require.NoError(t, err)
	assert.Equal(t, status.WorkflowRunning, result.WorkflowStatus)
	require.Len(t, result.Schedule, 1)
	assert.Equal(t, "saying_hi_again", result.Schedule[0].Name)
}

// ActivityTaskCompleted resolves its step by scheduledEventId, not by any
// activityId of its own; a completion referencing a scheduling event that
// never happened aborts the workflow rather than guessing a step name.
func TestEvalCompletedWithUnknownScheduledEventAborts(t *testing.T) {
	p := helloPlan(t)
	engine := NewEngine(nil)

	events := []swfevent.Event{
		{EventID: 1, EventType: swfevent.TypeWorkflowExecutionStarted, Input: []byte("null")},
		{EventID: 2, EventType: swfevent.TypeActivityTaskScheduled, ActivityID: "saying_hi"},
		{EventID: 3, EventType: swfevent.TypeActivityTaskCompleted, ScheduledEventID: 99, Result: []byte("null")},
	}

	result, err := engine.Eval(p, events)
	require.NoError(t, err)
	assert.Equal(t, status.WorkflowFailed, result.WorkflowStatus)
	assert.Empty(t, result.Schedule)
}

// A plan reaching $end transitions the workflow to succeeded.
func TestEvalWorkflowSucceeds(t *testing.T) {
	p, err := plan.NewPlan(plan.PlanDoc{
		Name:       "one-step",
		Activities: []plan.ActivityDoc{{Name: "HelloWorld", Version: "1"}},
		Steps:      []plan.StepDoc{{Name: "saying_hi", Activity: "HelloWorld"}},
	})
	require.NoError(t, err)
	engine := NewEngine(nil)

	events := []swfevent.Event{
		{EventID: 1, EventType: swfevent.TypeWorkflowExecutionStarted, Input: []byte("null")},
		{EventID: 2, EventType: swfevent.TypeActivityTaskScheduled, ActivityID: "saying_hi"},
		{EventID: 3, EventType: swfevent.TypeActivityTaskCompleted, ScheduledEventID: 2, Result: []byte("null")},
	}

	result, err := engine.Eval(p, events)
	require.NoError(t, err)
	assert.Equal(t, status.WorkflowSucceeded, result.WorkflowStatus)
	assert.Empty(t, result.Schedule)
}
