// Package plan implements the immutable, load-time-validated data model of
// spec §3/§4: Activity (C3), Step (C4), and Plan (C5). Nothing in this
// package is mutated after construction; NewPlan is the sole entry point
// and returns a *decidererr.LoadError, or its *decidererr.StepDefinitionError
// sub-kind for step-specific defects, on any invariant violation.
package plan

import (
	"fmt"
	"strconv"

	"github.com/bfansports/CloudProcessingEngine-Decider/internal/decidererr"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/schema"
	"github.com/bfansports/CloudProcessingEngine-Decider/internal/tmpl"
)

// Activity is the immutable definition of a named, versioned unit of work
// executed by an external worker population (spec §3).
type Activity struct {
	Name    string
	Version string

	// TaskList defaults to "{name}-{version}" when the document omits it.
	TaskList string

	HeartbeatTimeoutSeconds        int
	ScheduleToStartTimeoutSeconds  int
	ScheduleToCloseTimeoutSeconds  int
	StartToCloseTimeoutSeconds     int

	InputSpec   *schema.Schema
	outputsSpec *tmpl.OutputProjector
}

// ActivityDoc is the wire-shape of an activity-definition document (spec
// §6). Timeout fields are integer-seconds-as-string, matched verbatim.
type ActivityDoc struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
	TaskList string `yaml:"task_list,omitempty" json:"task_list,omitempty"`

	InputSpec   map[string]any    `yaml:"input_spec,omitempty" json:"input_spec,omitempty"`
	OutputsSpec map[string]string `yaml:"outputs_spec,omitempty" json:"outputs_spec,omitempty"`

	HeartbeatTimeout       string `yaml:"heartbeat_timeout,omitempty" json:"heartbeat_timeout,omitempty"`
	ScheduleToStartTimeout string `yaml:"schedule_to_start_timeout,omitempty" json:"schedule_to_start_timeout,omitempty"`
	ScheduleToCloseTimeout string `yaml:"schedule_to_close_timeout,omitempty" json:"schedule_to_close_timeout,omitempty"`
	StartToCloseTimeout    string `yaml:"start_to_close_timeout,omitempty" json:"start_to_close_timeout,omitempty"`
}

func newActivity(doc ActivityDoc) (*Activity, error) {
	if doc.Name == "" {
		return nil, decidererr.NewLoadError("activity", fmt.Errorf("missing name"))
	}
	taskList := doc.TaskList
	if taskList == "" {
		taskList = fmt.Sprintf("%s-%s", doc.Name, doc.Version)
	}

	heartbeat, err := timeoutSeconds(doc.HeartbeatTimeout)
	if err != nil {
		return nil, decidererr.NewLoadError("activity:"+doc.Name, fmt.Errorf("heartbeat_timeout: %w", err))
	}
	schedStart, err := timeoutSeconds(doc.ScheduleToStartTimeout)
	if err != nil {
		return nil, decidererr.NewLoadError("activity:"+doc.Name, fmt.Errorf("schedule_to_start_timeout: %w", err))
	}
	schedClose, err := timeoutSeconds(doc.ScheduleToCloseTimeout)
	if err != nil {
		return nil, decidererr.NewLoadError("activity:"+doc.Name, fmt.Errorf("schedule_to_close_timeout: %w", err))
	}
	startClose, err := timeoutSeconds(doc.StartToCloseTimeout)
	if err != nil {
		return nil, decidererr.NewLoadError("activity:"+doc.Name, fmt.Errorf("start_to_close_timeout: %w", err))
	}

	inputSpec, err := schema.Compile(doc.InputSpec)
	if err != nil {
		return nil, decidererr.NewLoadError("activity:"+doc.Name, fmt.Errorf("input_spec: %w", err))
	}

	outputsSpec, err := tmpl.ParseOutputProjector(doc.Name, doc.OutputsSpec)
	if err != nil {
		return nil, err
	}

	return &Activity{
		Name:                          doc.Name,
		Version:                       doc.Version,
		TaskList:                      taskList,
		HeartbeatTimeoutSeconds:       heartbeat,
		ScheduleToStartTimeoutSeconds: schedStart,
		ScheduleToCloseTimeoutSeconds: schedClose,
		StartToCloseTimeoutSeconds:    startClose,
		InputSpec:                     inputSpec,
		outputsSpec:                   outputsSpec,
	}, nil
}

// timeoutSeconds parses a wire timeout value ("integer-seconds-as-string").
// An empty string means "unset" and parses to 0.
func timeoutSeconds(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer-seconds string: %q", raw)
	}
	return n, nil
}

// Project applies this activity's output projection to a raw output
// document, per spec §4.1. Computed lazily by callers only when a step
// transitions to a terminal successful status.
func (a *Activity) Project(rawOutput any) (map[string]any, error) {
	return a.outputsSpec.Project(rawOutput)
}
