package gantt

import (
	"strconv"
	"strings"
	"time"

	"ganttservice/internal/model"
)

// ClassNoDates marks bars with fewer than two persisted date facts.
const ClassNoDates = "bar-no-dates"

// Snapshot is everything one chart computation reads, loaded once.
type Snapshot struct {
	Tasks     []model.Task
	Links     []model.TaskLink
	LinkTypes []model.LinkType
	// Seeds are keyed by task link id
	Seeds map[int]model.Seed
}

// RenderContext carries the per-request options of a chart computation. It
// is passed by value and never mutated.
type RenderContext struct {
	Today             time.Time
	ShowNoDate        bool
	DependencyTypeIDs []int
	SameProjectOnly   bool
	Hierarchy         HierarchyLinkIDs
	Blocking          BlockingLinkIDs
	// TaskURL builds the link of a bar; rows get an empty url when nil
	TaskURL func(projectID, taskID int) string
}

// Chart is the computed chart.
type Chart struct {
	Rows []model.ChartRow
	// Shifted lists the tasks whose displayed start was moved by a blocker
	Shifted []int
}

// BuildChart runs the full pipeline over snap: normalize, filter, map
// dependencies, order, then apply blocking.
func BuildChart(snap Snapshot, rc RenderContext) Chart {
	type entry struct {
		task model.Task
		norm Normalized
	}

	seen := make(map[int]struct{}, len(snap.Tasks))
	allIDs := make([]int, 0, len(snap.Tasks))
	projectOf := make(map[int]int, len(snap.Tasks))
	var entries []entry
	for _, t := range snap.Tasks {
		if t.ID <= 0 {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		allIDs = append(allIDs, t.ID)
		projectOf[t.ID] = t.ProjectID

		norm := Normalize(DateInput{Start: t.DateStarted, End: t.DateDue, Duration: t.Duration}, rc.Today)
		if !rc.ShowNoDate && norm.Flags.OriginallyNoDates {
			continue
		}
		entries = append(entries, entry{task: t, norm: norm})
	}

	visible := make(map[int]struct{}, len(entries))
	bars := make([]Bar, 0, len(entries))
	for _, e := range entries {
		visible[e.task.ID] = struct{}{}
		bars = append(bars, Bar{ID: e.task.ID, ProjectID: e.task.ProjectID, Start: e.norm.Start, End: e.norm.End})
	}

	var preds map[int][]int
	if len(rc.DependencyTypeIDs) > 0 {
		deps := MapDependencies(DependencyRequest{
			TaskIDs:         allIDs,
			TypeIDs:         rc.DependencyTypeIDs,
			SameProjectOnly: rc.SameProjectOnly,
			LinkTypes:       snap.LinkTypes,
			Links:           snap.Links,
			Seeds:           snap.Seeds,
			ProjectOf:       projectOf,
		})
		preds = Predecessors(deps, visible)
	}

	hier := BuildHierarchy(bars, snap.Links, rc.Hierarchy)
	blocking := ApplyBlocking(bars, snap.Links, rc.Blocking, rc.SameProjectOnly)

	rows := make([]model.ChartRow, 0, len(entries))
	for i, e := range entries {
		t := e.task
		bar := blocking.Bars[i]

		duration := 0
		if e.norm.Flags.HadDurDB {
			duration = *t.Duration
		}

		var url string
		if rc.TaskURL != nil {
			url = rc.TaskURL(t.ProjectID, t.ID)
		}

		rows = append(rows, model.ChartRow{
			ID:           strconv.Itoa(t.ID),
			Name:         t.Title,
			URL:          url,
			Start:        FormatDay(bar.Start),
			End:          FormatDay(bar.End),
			Duration:     duration,
			CustomClass:  customClass(e.norm, blocking.Tags[t.ID]),
			ColorID:      t.ColorID,
			Color:        ColorOf(t.ColorID),
			Flags:        e.norm.Flags,
			Progress:     Progress(t),
			Dependencies: joinIDs(preds[t.ID]),
			RowIndex:     hier.RowIndex[t.ID],
			Level:        hier.Level[t.ID],
		})
	}
	SortRows(rows)

	return Chart{Rows: rows, Shifted: blocking.Shifted}
}

// customClass is one hyphenated base token followed by the blocking markers.
func customClass(norm Normalized, tags Tags) string {
	base := ""
	if norm.PersistedFacts() < 2 {
		base = ClassNoDates
	}
	tokens := make([]string, 0, 3)
	if base = strings.Join(strings.Fields(base), "-"); base != "" {
		tokens = append(tokens, base)
	}
	tokens = append(tokens, tags.Classes()...)
	return strings.Join(tokens, " ")
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
