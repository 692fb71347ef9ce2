package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ganttservice/internal/gantt"
	"ganttservice/internal/model"
	"ganttservice/pkg/config"
	apperrors "ganttservice/pkg/errors"
	"ganttservice/pkg/logger"
	"ganttservice/pkg/metrics"
)

// ChartOptions are the per-request chart toggles.
type ChartOptions struct {
	ShowNoDate      bool
	LinkTypeIDs     []int
	SameProjectOnly bool
}

// DependencyResult is the dependency map of a set of tasks.
type DependencyResult struct {
	ProjectID       int           `json:"project_id"`
	CountTasks      int           `json:"count_tasks"`
	SameProjectOnly bool          `json:"same_project_only"`
	Map             map[int][]int `json:"map"`
}

// ChartService loads one snapshot per request and runs the scheduling core
// over it.
type ChartService struct {
	tasks  TaskStore
	links  LinkStore
	seeds  SeedStore
	cfg    config.GanttConfig
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func NewChartService(
	tasks TaskStore,
	links LinkStore,
	seeds SeedStore,
	cfg config.GanttConfig,
	loc *time.Location,
	logger *zap.Logger,
) *ChartService {
	return &ChartService{
		tasks:  tasks,
		links:  links,
		seeds:  seeds,
		cfg:    cfg,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

func (s *ChartService) today() time.Time {
	return gantt.Day(s.now(), s.loc)
}

func (s *ChartService) renderContext(opts ChartOptions) gantt.RenderContext {
	base := s.cfg.TaskURLBase
	return gantt.RenderContext{
		Today:             s.today(),
		ShowNoDate:        opts.ShowNoDate,
		DependencyTypeIDs: opts.LinkTypeIDs,
		SameProjectOnly:   opts.SameProjectOnly,
		Hierarchy: gantt.HierarchyLinkIDs{
			ParentOf: s.cfg.ParentOfLinkID,
			ChildOf:  s.cfg.ChildOfLinkID,
		},
		Blocking: gantt.BlockingLinkIDs{
			Blocks:    s.cfg.BlocksLinkID,
			BlockedBy: s.cfg.BlockedByLinkID,
		},
		TaskURL: func(projectID, taskID int) string {
			return taskURL(base, projectID, taskID)
		},
	}
}

// Chart returns the rows of a project's chart, top to bottom.
func (s *ChartService) Chart(ctx context.Context, projectID int, opts ChartOptions) ([]model.ChartRow, error) {
	log := logger.WithTrace(ctx, s.logger)

	snap, err := s.snapshot(ctx, projectID, len(opts.LinkTypeIDs) > 0)
	if err != nil {
		log.Error("Failed to load chart snapshot", zap.Int("project_id", projectID), zap.Error(err))
		return nil, err
	}

	started := time.Now()
	chart := gantt.BuildChart(snap, s.renderContext(opts))
	metrics.RecordChartBuild(len(chart.Rows), time.Since(started))
	metrics.AddBlockerShifts("display", len(chart.Shifted))

	log.Debug("Chart built",
		zap.Int("project_id", projectID),
		zap.Int("tasks", len(snap.Tasks)),
		zap.Int("rows", len(chart.Rows)),
		zap.Int("shifted", len(chart.Shifted)),
	)
	return chart.Rows, nil
}

// snapshot reads tasks, links, the link catalog and, when arrows are
// requested, the seeds of the project.
func (s *ChartService) snapshot(ctx context.Context, projectID int, withSeeds bool) (gantt.Snapshot, error) {
	var snap gantt.Snapshot

	tasks, err := s.tasks.ListActiveByProject(ctx, projectID)
	if err != nil {
		return snap, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list tasks")
	}
	snap.Tasks = tasks

	ids := make([]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	if snap.Links, err = s.links.ListByTasks(ctx, ids); err != nil {
		return snap, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list links")
	}
	if snap.LinkTypes, err = s.links.LinkTypes(ctx); err != nil {
		return snap, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list link types")
	}

	if withSeeds {
		if snap.Seeds, err = s.seeds.GetBulk(ctx, projectID, linkIDs(snap.Links)); err != nil {
			return snap, apperrors.Wrap(apperrors.CodeInternal, err, "failed to read seeds")
		}
	}
	return snap, nil
}

// Dependencies maps each task to the tasks its seeded links point at. An
// empty taskIDs means every active task of the project.
func (s *ChartService) Dependencies(ctx context.Context, projectID int, taskIDs, linkTypeIDs []int, sameProjectOnly bool) (*DependencyResult, error) {
	if len(linkTypeIDs) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "missing link_ids")
	}

	if len(taskIDs) == 0 {
		tasks, err := s.tasks.ListActiveByProject(ctx, projectID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list tasks")
		}
		for _, t := range tasks {
			taskIDs = append(taskIDs, t.ID)
		}
	}

	links, err := s.links.ListByTasks(ctx, taskIDs)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list links")
	}
	types, err := s.links.LinkTypes(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list link types")
	}
	seeds, err := s.seeds.GetBulk(ctx, projectID, linkIDs(links))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to read seeds")
	}

	projectOf := map[int]int{}
	if sameProjectOnly {
		endpoints := make([]int, 0, 2*len(links))
		for _, l := range links {
			endpoints = append(endpoints, l.TaskID, l.OppositeTaskID)
		}
		tasks, err := s.tasks.GetByIDs(ctx, endpoints)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load linked tasks")
		}
		for _, t := range tasks {
			projectOf[t.ID] = t.ProjectID
		}
	}

	m := gantt.MapDependencies(gantt.DependencyRequest{
		TaskIDs:         taskIDs,
		TypeIDs:         linkTypeIDs,
		SameProjectOnly: sameProjectOnly,
		LinkTypes:       types,
		Links:           links,
		Seeds:           seeds,
		ProjectOf:       projectOf,
	})

	return &DependencyResult{
		ProjectID:       projectID,
		CountTasks:      len(taskIDs),
		SameProjectOnly: sameProjectOnly,
		Map:             m,
	}, nil
}

// TaskDetail returns the side panel data of a task of the project.
func (s *ChartService) TaskDetail(ctx context.Context, projectID, taskID int) (*model.TaskDetail, error) {
	if taskID <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "missing task_id")
	}
	t, err := taskInProject(ctx, s.tasks, projectID, taskID)
	if err != nil {
		return nil, err
	}

	status := "closed"
	if t.IsActive {
		status = "open"
	}
	duration := 0
	if t.Duration != nil && *t.Duration > 0 {
		duration = *t.Duration
	}
	url := taskURL(s.cfg.TaskURLBase, t.ProjectID, t.ID)

	return &model.TaskDetail{
		ID:       t.ID,
		Title:    t.Title,
		Status:   status,
		Priority: t.Priority,
		Assignee: t.AssigneeName,
		Start:    formatOptionalDay(t.DateStarted, s.loc),
		End:      formatOptionalDay(t.DateDue, s.loc),
		Duration: duration,
		URL:      url,
		EditURL:  url + "/edit",
	}, nil
}

func linkIDs(links []model.TaskLink) []int {
	ids := make([]int, len(links))
	for i, l := range links {
		ids[i] = l.ID
	}
	return ids
}
