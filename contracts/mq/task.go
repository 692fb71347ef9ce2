package mq

// Routing keys published on the events exchange.
const (
	RoutingKeyTaskDatesShifted = "task.dates_shifted"
	RoutingKeyTaskLinkChanged  = "task.link_changed"
)

// TaskDatesShiftedPayload is published after the blocker hook moves a task's
// start date forward.
type TaskDatesShiftedPayload struct {
	TaskID      int    `json:"task_id"`
	ProjectID   int    `json:"project_id"`
	CauseTaskID int    `json:"cause_task_id"` // the edited task that triggered the shift
	OldStart    string `json:"old_start,omitempty"`
	NewStart    string `json:"new_start"`
	TraceID     string `json:"trace_id,omitempty"`
	Reason      string `json:"reason"` // "self" when the edited task itself moved, "blocker" otherwise
}

// TaskLinkChangedPayload is published when a link is created or removed or
// its seed toggled, so other chart viewers can reload.
type TaskLinkChangedPayload struct {
	ProjectID  int    `json:"project_id"`
	TaskLinkID int    `json:"task_link_id"`
	Action     string `json:"action"` // created / removed / seeded / unseeded
	UserID     int    `json:"user_id"`
	TraceID    string `json:"trace_id,omitempty"`
}
