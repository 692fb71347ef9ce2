package gantt

import (
	"sort"
	"strings"

	"ganttservice/internal/model"
)

// DependencyRequest is the input of MapDependencies.
type DependencyRequest struct {
	TaskIDs         []int
	TypeIDs         []int
	SameProjectOnly bool
	LinkTypes       []model.LinkType
	// Links are the stored links touching the requested tasks
	Links []model.TaskLink
	// Seeds are keyed by task link id
	Seeds map[int]model.Seed
	// ProjectOf resolves the project of every link endpoint
	ProjectOf map[int]int
}

// typeMatcher matches link types by id or lower-cased label, in both
// directions.
type typeMatcher struct {
	ids    map[int]struct{}
	labels map[string]struct{}
	byID   map[int]model.LinkType
}

func newTypeMatcher(typeIDs []int, catalog []model.LinkType) typeMatcher {
	m := typeMatcher{
		ids:    make(map[int]struct{}),
		labels: make(map[string]struct{}),
		byID:   make(map[int]model.LinkType, len(catalog)),
	}
	for _, lt := range catalog {
		m.byID[lt.ID] = lt
	}
	addLabel := func(label string) {
		if label = strings.ToLower(strings.TrimSpace(label)); label != "" {
			m.labels[label] = struct{}{}
		}
	}
	for _, id := range typeIDs {
		if id <= 0 {
			continue
		}
		m.ids[id] = struct{}{}
		lt, ok := m.byID[id]
		if !ok {
			continue
		}
		addLabel(lt.Label)
		if lt.OppositeID > 0 {
			m.ids[lt.OppositeID] = struct{}{}
			if opp, ok := m.byID[lt.OppositeID]; ok {
				addLabel(opp.Label)
			}
		}
	}
	return m
}

func (m typeMatcher) match(typeID int) bool {
	if _, ok := m.ids[typeID]; ok {
		return true
	}
	lt, ok := m.byID[typeID]
	if !ok {
		return false
	}
	_, ok = m.labels[strings.ToLower(strings.TrimSpace(lt.Label))]
	return ok
}

// MapDependencies returns the arrow map source -> sorted targets for the
// requested tasks. Only seeded links produce edges, pointing from the seed
// task to the other endpoint. Every requested task is present in the result,
// possibly with no targets.
func MapDependencies(req DependencyRequest) map[int][]int {
	requested := make(map[int]struct{}, len(req.TaskIDs))
	out := make(map[int][]int, len(req.TaskIDs))
	for _, id := range req.TaskIDs {
		if id <= 0 {
			continue
		}
		requested[id] = struct{}{}
		out[id] = []int{}
	}
	if len(requested) == 0 {
		return out
	}

	matcher := newTypeMatcher(req.TypeIDs, req.LinkTypes)
	targets := make(map[int]map[int]struct{})
	seenLink := make(map[int]struct{})

	for _, l := range req.Links {
		if _, dup := seenLink[l.ID]; dup {
			continue
		}
		seenLink[l.ID] = struct{}{}

		if !matcher.match(l.LinkTypeID) {
			continue
		}
		seed, ok := req.Seeds[l.ID]
		if !ok || !seed.Valid() {
			continue
		}
		from, to := seed.SeedTaskID, seed.Target()
		if from == to {
			continue
		}
		if _, ok := requested[from]; !ok {
			continue
		}
		if req.SameProjectOnly && req.ProjectOf[from] != req.ProjectOf[to] {
			continue
		}
		if targets[from] == nil {
			targets[from] = make(map[int]struct{})
		}
		targets[from][to] = struct{}{}
	}

	for from, set := range targets {
		out[from] = sortedKeys(set)
	}
	return out
}

// Predecessors inverts a dependency map restricted to visible ids: for every
// target it lists the sources pointing at it, ascending.
func Predecessors(deps map[int][]int, visible map[int]struct{}) map[int][]int {
	out := make(map[int][]int)
	for from, tos := range deps {
		if _, ok := visible[from]; !ok {
			continue
		}
		for _, to := range tos {
			if _, ok := visible[to]; !ok {
				continue
			}
			out[to] = append(out[to], from)
		}
	}
	for to := range out {
		sort.Ints(out[to])
	}
	return out
}
