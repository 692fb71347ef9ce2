package gantt

import (
	"sort"
	"strconv"
	"time"

	"ganttservice/internal/model"
)

// Bar is a task with concrete dates, the unit the ordering and blocking
// passes work on.
type Bar struct {
	ID        int
	ProjectID int
	Start     time.Time
	End       time.Time
}

// HierarchyLinkIDs are the catalog ids of "is a parent of" and its opposite.
type HierarchyLinkIDs struct {
	ParentOf int
	ChildOf  int
}

// Hierarchy is the vertical order of the chart.
type Hierarchy struct {
	Order    []int
	RowIndex map[int]int
	Level    map[int]int
}

// parentChild classifies l as a parent/child edge.
func (ids HierarchyLinkIDs) parentChild(l model.TaskLink) (parent, child int, ok bool) {
	if l.LinkTypeID <= 0 {
		return 0, 0, false
	}
	switch l.LinkTypeID {
	case ids.ParentOf:
		return l.TaskID, l.OppositeTaskID, true
	case ids.ChildOf:
		return l.OppositeTaskID, l.TaskID, true
	}
	return 0, 0, false
}

func barLess(a, b Bar) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	if !a.End.Equal(b.End) {
		return a.End.Before(b.End)
	}
	return a.ID < b.ID
}

// BuildHierarchy orders bars as a parent/child forest. Roots and siblings are
// sorted by (start, end, id) and visited depth first in pre-order; a task
// reachable through several parents is placed under the first one visited.
// Tasks only reachable through cycles are appended as extra roots in
// ascending id order. Links with an endpoint outside bars are ignored.
func BuildHierarchy(bars []Bar, links []model.TaskLink, ids HierarchyLinkIDs) Hierarchy {
	byID := make(map[int]Bar, len(bars))
	visible := make([]int, 0, len(bars))
	for _, b := range bars {
		if _, dup := byID[b.ID]; dup {
			continue
		}
		byID[b.ID] = b
		visible = append(visible, b.ID)
	}

	children := make(map[int][]int)
	edges := make(map[[2]int]struct{})
	inDegree := make(map[int]int)
	for _, l := range links {
		parent, child, ok := ids.parentChild(l)
		if !ok || parent == child {
			continue
		}
		if _, ok := byID[parent]; !ok {
			continue
		}
		if _, ok := byID[child]; !ok {
			continue
		}
		key := [2]int{parent, child}
		if _, dup := edges[key]; dup {
			continue
		}
		edges[key] = struct{}{}
		children[parent] = append(children[parent], child)
		inDegree[child]++
	}

	byKey := func(list []int) {
		sort.Slice(list, func(i, j int) bool {
			return barLess(byID[list[i]], byID[list[j]])
		})
	}

	var roots []int
	for _, id := range visible {
		if inDegree[id] == 0 {
			roots = append(roots, id)
		}
	}
	byKey(roots)
	for parent := range children {
		byKey(children[parent])
	}

	h := Hierarchy{
		Order:    make([]int, 0, len(visible)),
		RowIndex: make(map[int]int, len(visible)),
		Level:    make(map[int]int, len(visible)),
	}

	var visit func(id, depth int)
	visit = func(id, depth int) {
		if _, seen := h.RowIndex[id]; seen {
			return
		}
		h.RowIndex[id] = len(h.Order)
		h.Level[id] = depth
		h.Order = append(h.Order, id)
		for _, child := range children[id] {
			visit(child, depth+1)
		}
	}

	for _, id := range roots {
		visit(id, 0)
	}

	// cycle members have no root
	rest := append([]int(nil), visible...)
	sort.Ints(rest)
	for _, id := range rest {
		visit(id, 0)
	}

	return h
}

// SortRows orders rows by (row index, numeric id).
func SortRows(rows []model.ChartRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].RowIndex != rows[j].RowIndex {
			return rows[i].RowIndex < rows[j].RowIndex
		}
		a, _ := strconv.Atoi(rows[i].ID)
		b, _ := strconv.Atoi(rows[j].ID)
		return a < b
	})
}
