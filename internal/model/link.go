package model

// TaskLink is a stored link between two tasks. Storage is undirected; the
// meaning is given by LinkTypeID.
type TaskLink struct {
	ID             int `json:"id"`
	TaskID         int `json:"task_id"`
	OppositeTaskID int `json:"opposite_task_id"`
	LinkTypeID     int `json:"link_id"`
}

// Other returns the endpoint of l that is not taskID, or 0 when taskID is not
// an endpoint.
func (l TaskLink) Other(taskID int) int {
	switch taskID {
	case l.TaskID:
		return l.OppositeTaskID
	case l.OppositeTaskID:
		return l.TaskID
	default:
		return 0
	}
}

// LinkType is an entry of the link type catalog. Every directional type has
// exactly one opposite, possibly itself.
type LinkType struct {
	ID         int    `json:"id"`
	Label      string `json:"label"`
	OppositeID int    `json:"opposite_id"`
}

// Seed records which endpoint of a "relates to" link is the arrow origin.
type Seed struct {
	TaskID         int `json:"t"`
	OppositeTaskID int `json:"o"`
	SeedTaskID     int `json:"s"`
}

// Valid reports whether all three ids are set and the seed is an endpoint.
func (s Seed) Valid() bool {
	if s.TaskID <= 0 || s.OppositeTaskID <= 0 || s.SeedTaskID <= 0 {
		return false
	}
	return s.SeedTaskID == s.TaskID || s.SeedTaskID == s.OppositeTaskID
}

// Target returns the endpoint the arrow points at.
func (s Seed) Target() int {
	if s.SeedTaskID == s.TaskID {
		return s.OppositeTaskID
	}
	return s.TaskID
}

// LinkView is one row of the link panel.
type LinkView struct {
	TaskLinkID      int    `json:"task_link_id"`
	LinkID          int    `json:"link_id"`
	LinkLabel       string `json:"link_label"`
	OppositeTaskID  int    `json:"opposite_task_id"`
	OppositeTitle   string `json:"opposite_title"`
	OppositeProject int    `json:"opposite_project"`
	SeedActive      bool   `json:"seed_active"`
	SeedTaskID      *int   `json:"seed_task_id"`
}
