package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/plan"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/status"
)

func mustPlan(t *testing.T, doc plan.PlanDoc) *plan.Plan {
	t.Helper()
	p, err := plan.NewPlan(doc)
	require.NoError(t, err)
	return p
}

func load(t *testing.T, p *plan.Plan) *State {
	t.Helper()
	st := NewState()
	end, err := st.Begin("load")
	require.NoError(t, err)
	defer end()
	for _, s := range p.Steps {
		require.NoError(t, st.Insert(s))
	}
	return st
}

func TestGraphSoundnessAfterLoad(t *testing.T) {
	p := mustPlan(t, plan.PlanDoc{
		Name:       "g",
		Activities: []plan.ActivityDoc{{Name: "A", Version: "1"}},
		Steps: []plan.StepDoc{
			{Name: "a", Activity: "A"},
			{Name: "b", Requires: []any{"a"}, Activity: "A"},
		},
	})
	st := load(t, p)

	assert.Empty(t, st.Init.Parents)
	assert.Empty(t, st.End.Children)

	for _, ss := range st.Steps {
		for pname, parent := range ss.Parents {
			assert.Equal(t, ss, parent.Children[ss.Name], "child/parent back-reference mismatch for %s/%s", pname, ss.Name)
		}
	}
}

func TestOrphanWiringResolvesOnceParentArrives(t *testing.T) {
	st := NewState()
	end, err := st.Begin("load")
	require.NoError(t, err)

	// Insert child before its parent exists in the document order.
	childDef := &plan.Step{Name: "child", Requires: []plan.Requirement{{Parent: "parent", Required: status.Completed}}}
	require.NoError(t, st.Insert(childDef))
	assert.Contains(t, st.Orphans, "parent")
	assert.NotContains(t, st.Steps, "child")

	parentDef := &plan.Step{Name: "parent"}
	require.NoError(t, st.Insert(parentDef))
	end()

	assert.Contains(t, st.Steps, "child")
	assert.NotContains(t, st.Orphans, "parent")
	assert.Same(t, st.Steps["parent"], st.Steps["child"].Parents["parent"])
}

// Scenario 6: a required-status mismatch aborts the child immediately and
// fails the workflow.
func TestRequiredStatusMismatchAbortsChild(t *testing.T) {
	p := mustPlan(t, plan.PlanDoc{
		Name:       "ab",
		Activities: []plan.ActivityDoc{{Name: "A", Version: "1"}},
		Steps: []plan.StepDoc{
			{Name: "a", Activity: "A"},
			{Name: "b", Requires: []any{[]any{"a", "succeeded"}}, Activity: "A"},
		},
	})
	st := load(t, p)

	end, err := st.Begin("init")
	require.NoError(t, err)
	require.NoError(t, st.SetInput(nil))
	end()

	end, err = st.Begin("schedule-a")
	require.NoError(t, err)
	require.NoError(t, st.MarkRunning("a"))
	end()

	end, err = st.Begin("fail-a")
	require.NoError(t, err)
	require.NoError(t, st.CompleteStep("a", status.Failed, nil))
	end()

	assert.Equal(t, status.Aborted, st.Steps["b"].Status)
	assert.Equal(t, status.WorkflowFailed, st.Status)
}

// Scenario 5: output projection populates a step's attrs.
func TestOutputProjectionPopulatesAttrs(t *testing.T) {
	p := mustPlan(t, plan.PlanDoc{
		Name: "proj",
		Activities: []plan.ActivityDoc{
			{Name: "A", Version: "1", OutputsSpec: map[string]string{"a": "$", "b": "$.hello"}},
		},
		Steps: []plan.StepDoc{{Name: "a", Activity: "A"}},
	})
	st := load(t, p)

	end, err := st.Begin("init")
	require.NoError(t, err)
	require.NoError(t, st.SetInput(nil))
	end()

	end, err = st.Begin("schedule-a")
	require.NoError(t, err)
	require.NoError(t, st.MarkRunning("a"))
	end()

	end, err = st.Begin("complete-a")
	require.NoError(t, err)
	require.NoError(t, st.CompleteStep("a", status.Succeeded, map[string]any{"hello": "world"}))
	end()

	assert.Equal(t, map[string]any{"hello": "world"}, st.Steps["a"].Attrs["a"])
	assert.Equal(t, "world", st.Steps["a"].Attrs["b"])
}

func TestBeginRejectsReentrantContext(t *testing.T) {
	st := NewState()
	_, err := st.Begin("one")
	require.NoError(t, err)

	_, err = st.Begin("two")
	assert.Error(t, err)
}

func TestMutationOutsideContextIsProgrammingError(t *testing.T) {
	st := NewState()
	err := st.SetInput(nil)
	assert.Error(t, err)
}

func TestReadyIsSortedAndDeduplicated(t *testing.T) {
	p := mustPlan(t, plan.PlanDoc{
		Name:       "fanout",
		Activities: []plan.ActivityDoc{{Name: "A", Version: "1"}},
		Steps: []plan.StepDoc{
			{Name: "z", Activity: "A"},
			{Name: "a", Activity: "A"},
			{Name: "m", Activity: "A"},
		},
	})
	st := load(t, p)

	end, err := st.Begin("init")
	require.NoError(t, err)
	require.NoError(t, st.SetInput(nil))
	end()

	ready := st.Ready()
	names := make([]string, len(ready))
	for i, ss := range ready {
		names[i] = ss.Name
	}
	assert.Equal(t, []string{"a", "m", "z"}, names)
}
