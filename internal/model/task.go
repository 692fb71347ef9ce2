package model

import "time"

// Task is a task row as read from the task store.
type Task struct {
	ID           int        `json:"id"`
	ProjectID    int        `json:"project_id"`
	Title        string     `json:"title"`
	DateStarted  *time.Time `json:"date_started"` // nil when never set
	DateDue      *time.Time `json:"date_due"`
	ColorID      string     `json:"color_id"`
	IsActive     bool       `json:"is_active"`
	Priority     int        `json:"priority"`
	AssigneeName string     `json:"assignee_name"`
	Score        *int       `json:"score"`
	// Subtask counters; SubtasksTotal zero means no subtasks
	SubtasksTotal int `json:"nb_subtasks"`
	SubtasksDone  int `json:"nb_completed_subtasks"`
	// Duration is the "duration" task metadata value, nil when absent
	Duration *int `json:"duration"`
}

// TaskDetail is the side panel payload.
type TaskDetail struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"` // open / closed
	Priority int    `json:"priority"`
	Assignee string `json:"assignee"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration int    `json:"duration"`
	URL      string `json:"url"`
	EditURL  string `json:"edit_url"`
}

// TaskSearchItem is one autocomplete result.
type TaskSearchItem struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	ProjectID int    `json:"project_id"`
	URL       string `json:"url"`
}

// DateUpdate is a save request for one task. Nil fields are left unchanged.
type DateUpdate struct {
	TaskID   int
	Start    *time.Time
	End      *time.Time
	Duration *int
}
