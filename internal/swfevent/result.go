package swfevent

// ActivityStepResult describes a ready ActivityStep the decider wants
// scheduled this tick (spec §4.4/§6). The external transport converts this
// into a ScheduleActivity decision.
type ActivityStepResult struct {
	Name     string         `json:"name"`      // step name; becomes the decision's activity id
	Activity string         `json:"activity"`  // activity name
	Version  string         `json:"version"`   // activity version
	TaskList string         `json:"task_list"` // activity task list
	Input    map[string]any `json:"input"`      // rendered step input

	HeartbeatTimeoutSeconds       int `json:"heartbeat_timeout_seconds"`
	ScheduleToStartTimeoutSeconds int `json:"schedule_to_start_timeout_seconds"`
	ScheduleToCloseTimeoutSeconds int `json:"schedule_to_close_timeout_seconds"`
	StartToCloseTimeoutSeconds    int `json:"start_to_close_timeout_seconds"`
}

// TemplatedStepResult would describe a ready TemplatedStep. Spec Open
// Question 3: every code path that would produce one instead raises
// *decidererr.NotImplementedError; the type exists to keep the result
// surface's shape documented.
type TemplatedStepResult struct {
	Name string
}
