package gantt

import (
	"sort"
	"time"

	"ganttservice/internal/model"
)

// Marker classes appended to custom_class.
const (
	ClassBlockedStart = "fg-blocked-start"
	ClassBlockerEnd   = "fg-blocker-end"
)

// BlockingLinkIDs are the catalog ids of "blocks" and its opposite.
type BlockingLinkIDs struct {
	Blocks    int
	BlockedBy int
}

// Tags marks the role a bar plays in blocking relations.
type Tags struct {
	BlockedStart bool
	BlockerEnd   bool
}

// Classes returns the marker classes in a fixed order.
func (t Tags) Classes() []string {
	var out []string
	if t.BlockedStart {
		out = append(out, ClassBlockedStart)
	}
	if t.BlockerEnd {
		out = append(out, ClassBlockerEnd)
	}
	return out
}

// Blocking is the result of ApplyBlocking.
type Blocking struct {
	// Bars are the input bars, in input order, with shifted dates
	Bars     []Bar
	MinStart map[int]time.Time
	Tags     map[int]Tags
	// Shifted lists the ids whose start moved, ascending
	Shifted []int
}

// blockPair classifies l as a blocker/blocked edge.
func (ids BlockingLinkIDs) blockPair(l model.TaskLink) (blocker, blocked int, ok bool) {
	if l.LinkTypeID <= 0 {
		return 0, 0, false
	}
	switch l.LinkTypeID {
	case ids.Blocks:
		return l.TaskID, l.OppositeTaskID, true
	case ids.BlockedBy:
		return l.OppositeTaskID, l.TaskID, true
	}
	return 0, 0, false
}

// BlockersOf returns the ids of tasks that block taskID, ascending.
func BlockersOf(taskID int, links []model.TaskLink, ids BlockingLinkIDs) []int {
	set := make(map[int]struct{})
	for _, l := range links {
		blocker, blocked, ok := ids.blockPair(l)
		if ok && blocked == taskID && blocker != taskID {
			set[blocker] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// BlockedBy returns the ids of tasks that taskID blocks, ascending.
func BlockedBy(taskID int, links []model.TaskLink, ids BlockingLinkIDs) []int {
	set := make(map[int]struct{})
	for _, l := range links {
		blocker, blocked, ok := ids.blockPair(l)
		if ok && blocker == taskID && blocked != taskID {
			set[blocked] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// MinStart returns the latest of ends. ok is false when ends is empty.
func MinStart(ends []time.Time) (min time.Time, ok bool) {
	for _, end := range ends {
		if !ok || end.After(min) {
			min, ok = end, true
		}
	}
	return min, ok
}

// RaiseStart applies the min-start rule to a single start date: an absent or
// earlier start becomes min.
func RaiseStart(start *time.Time, min time.Time) (time.Time, bool) {
	if start == nil || start.IsZero() || start.Before(min) {
		return min, true
	}
	return *start, false
}

// ApplyBlocking moves every blocked bar to start no earlier than the latest
// end among its blockers. Blocker ends are read before any shift and there is
// no recursion, so chains move one hop per call and cycles terminate. When
// sameProjectOnly is set, cross-project pairs are ignored.
func ApplyBlocking(bars []Bar, links []model.TaskLink, ids BlockingLinkIDs, sameProjectOnly bool) Blocking {
	byID := make(map[int]Bar, len(bars))
	for _, b := range bars {
		if _, dup := byID[b.ID]; !dup {
			byID[b.ID] = b
		}
	}

	blockers := make(map[int]map[int]struct{})
	for _, l := range links {
		blocker, blocked, ok := ids.blockPair(l)
		if !ok || blocker == blocked {
			continue
		}
		a, okA := byID[blocker]
		b, okB := byID[blocked]
		if !okA || !okB {
			continue
		}
		if sameProjectOnly && a.ProjectID != b.ProjectID {
			continue
		}
		if blockers[blocked] == nil {
			blockers[blocked] = make(map[int]struct{})
		}
		blockers[blocked][blocker] = struct{}{}
	}

	res := Blocking{
		Bars:     make([]Bar, len(bars)),
		MinStart: make(map[int]time.Time),
		Tags:     make(map[int]Tags),
	}

	for blocked, set := range blockers {
		ends := make([]time.Time, 0, len(set))
		for blocker := range set {
			ends = append(ends, byID[blocker].End)

			t := res.Tags[blocker]
			t.BlockerEnd = true
			res.Tags[blocker] = t
		}
		t := res.Tags[blocked]
		t.BlockedStart = true
		res.Tags[blocked] = t

		if min, ok := MinStart(ends); ok {
			res.MinStart[blocked] = min
		}
	}

	shifted := make(map[int]struct{})
	for i, b := range bars {
		if min, ok := res.MinStart[b.ID]; ok {
			if b.Start.Before(min) {
				b.Start = min
				shifted[b.ID] = struct{}{}
			}
			if !b.End.After(min) {
				b.End = min
			}
		}
		res.Bars[i] = b
	}
	res.Shifted = sortedKeys(shifted)

	return res
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
