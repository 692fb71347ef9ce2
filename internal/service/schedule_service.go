package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	mqcontracts "ganttservice/contracts/mq"
	"ganttservice/internal/gantt"
	"ganttservice/internal/model"
	"ganttservice/pkg/config"
	apperrors "ganttservice/pkg/errors"
	"ganttservice/pkg/logger"
	"ganttservice/pkg/metrics"
	"ganttservice/pkg/trace"
)

// Shift reasons carried by task.dates_shifted events.
const (
	ShiftReasonSelf    = "self"
	ShiftReasonBlocker = "blocker"
)

// ScheduleTx is the set of writes the save path performs atomically.
type ScheduleTx interface {
	GetTask(ctx context.Context, id int) (*model.Task, error)
	GetTasks(ctx context.Context, ids []int) ([]model.Task, error)
	ListLinks(ctx context.Context, taskIDs []int) ([]model.TaskLink, error)
	UpdateDates(ctx context.Context, id int, start, end *time.Time) error
	SetStart(ctx context.Context, id int, start time.Time) error
	SetDuration(ctx context.Context, id int, days int) error
	// Enqueue records an event that is published once the transaction commits
	Enqueue(ctx context.Context, routingKey string, taskID int, payload any) error
}

// ScheduleStore runs fn in a transaction.
type ScheduleStore interface {
	InTx(ctx context.Context, fn func(tx ScheduleTx) error) error
}

// Shift is a start date moved by the blocker rule.
type Shift struct {
	TaskID   int
	OldStart *time.Time
	NewStart time.Time
	Reason   string
}

// SaveResult lists the tasks whose start was moved while saving.
type SaveResult struct {
	Shifted []int `json:"shifted"`
}

// ScheduleService persists date edits and keeps blocked tasks behind their
// blockers.
type ScheduleService struct {
	store  ScheduleStore
	ids    gantt.BlockingLinkIDs
	loc    *time.Location
	logger *zap.Logger
}

func NewScheduleService(store ScheduleStore, cfg config.GanttConfig, loc *time.Location, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		store: store,
		ids: gantt.BlockingLinkIDs{
			Blocks:    cfg.BlocksLinkID,
			BlockedBy: cfg.BlockedByLinkID,
		},
		loc:    loc,
		logger: logger,
	}
}

// UpdateDates saves the fields of upd that are set. On every save the edited
// task's start is raised to the latest end of its blockers, and every task it
// directly blocks that starts before its end is moved to that end. Fields left
// unset keep their stored values.
// Moves do not cascade further. Every move is recorded as a
// task.dates_shifted event in the same transaction.
func (s *ScheduleService) UpdateDates(ctx context.Context, projectID int, upd model.DateUpdate) (*SaveResult, error) {
	log := logger.WithTrace(ctx, s.logger)

	if upd.TaskID <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "missing task_id")
	}
	if upd.Duration != nil && *upd.Duration < 0 {
		zero := 0
		upd.Duration = &zero
	}

	var shifts []Shift
	err := s.store.InTx(ctx, func(tx ScheduleTx) error {
		task, err := taskInProject(ctx, txTasks{tx}, projectID, upd.TaskID)
		if err != nil {
			return err
		}

		shifts, err = s.applyDates(ctx, tx, task, upd)
		if err != nil {
			return err
		}
		if err := s.enqueueShifts(ctx, tx, projectID, upd.TaskID, shifts); err != nil {
			return err
		}

		if upd.Duration != nil {
			if err := tx.SetDuration(ctx, upd.TaskID, *upd.Duration); err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, err, "failed to save duration")
			}
		}
		return nil
	})
	if err != nil {
		if apperrors.GetCode(err) == apperrors.CodeInternal {
			log.Error("Failed to save task dates", zap.Int("task_id", upd.TaskID), zap.Error(err))
		}
		return nil, err
	}

	metrics.AddBlockerShifts("hook", len(shifts))

	res := &SaveResult{Shifted: make([]int, 0, len(shifts))}
	for _, sh := range shifts {
		res.Shifted = append(res.Shifted, sh.TaskID)
	}
	log.Info("Task dates saved",
		zap.Int("task_id", upd.TaskID),
		zap.Ints("shifted", res.Shifted),
	)
	return res, nil
}

func (s *ScheduleService) applyDates(ctx context.Context, tx ScheduleTx, task *model.Task, upd model.DateUpdate) ([]Shift, error) {
	start, end := task.DateStarted, task.DateDue
	if upd.Start != nil {
		start = upd.Start
	}
	if upd.End != nil {
		end = upd.End
	}

	links, err := tx.ListLinks(ctx, []int{task.ID})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list links")
	}

	var shifts []Shift

	blockers, err := tx.GetTasks(ctx, gantt.BlockersOf(task.ID, links, s.ids))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load blockers")
	}
	ends := make([]time.Time, 0, len(blockers))
	for _, b := range blockers {
		if b.DateDue != nil && !b.DateDue.IsZero() {
			ends = append(ends, *b.DateDue)
		}
	}
	if min, ok := gantt.MinStart(ends); ok {
		if raised, changed := gantt.RaiseStart(start, min); changed {
			shifts = append(shifts, Shift{TaskID: task.ID, OldStart: start, NewStart: raised, Reason: ShiftReasonSelf})
			start = &raised
		}
	}

	if err := tx.UpdateDates(ctx, task.ID, start, end); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to update dates")
	}

	if end == nil || end.IsZero() {
		return shifts, nil
	}

	blocked, err := tx.GetTasks(ctx, gantt.BlockedBy(task.ID, links, s.ids))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load blocked tasks")
	}
	for _, b := range blocked {
		raised, changed := gantt.RaiseStart(b.DateStarted, *end)
		if !changed {
			continue
		}
		if err := tx.SetStart(ctx, b.ID, raised); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to move task %d", b.ID)
		}
		shifts = append(shifts, Shift{TaskID: b.ID, OldStart: b.DateStarted, NewStart: raised, Reason: ShiftReasonBlocker})
	}
	return shifts, nil
}

func (s *ScheduleService) enqueueShifts(ctx context.Context, tx ScheduleTx, projectID, causeTaskID int, shifts []Shift) error {
	traceID := trace.FromContext(ctx)
	for _, sh := range shifts {
		payload := mqcontracts.TaskDatesShiftedPayload{
			TaskID:      sh.TaskID,
			ProjectID:   projectID,
			CauseTaskID: causeTaskID,
			OldStart:    formatOptionalDay(sh.OldStart, s.loc),
			NewStart:    sh.NewStart.In(s.loc).Format(gantt.DateLayout),
			TraceID:     traceID,
			Reason:      sh.Reason,
		}
		if err := tx.Enqueue(ctx, mqcontracts.RoutingKeyTaskDatesShifted, sh.TaskID, payload); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to record shift of task %d", sh.TaskID)
		}
	}
	return nil
}

// txTasks adapts ScheduleTx to the lookup taskInProject needs.
type txTasks struct{ tx ScheduleTx }

func (t txTasks) GetByID(ctx context.Context, id int) (*model.Task, error) {
	return t.tx.GetTask(ctx, id)
}
