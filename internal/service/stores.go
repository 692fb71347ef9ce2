package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ganttservice/internal/model"
	"ganttservice/internal/repository"
	apperrors "ganttservice/pkg/errors"
)

// TaskStore is the read side of the task repository.
type TaskStore interface {
	ListActiveByProject(ctx context.Context, projectID int) ([]model.Task, error)
	GetByID(ctx context.Context, id int) (*model.Task, error)
	GetByIDs(ctx context.Context, ids []int) ([]model.Task, error)
	Search(ctx context.Context, projectIDs []int, q string, limit int) ([]model.TaskSearchItem, error)
}

// LinkStore is the task link repository.
type LinkStore interface {
	ListByTasks(ctx context.Context, taskIDs []int) ([]model.TaskLink, error)
	GetByID(ctx context.Context, id int) (*model.TaskLink, error)
	Create(ctx context.Context, taskID, oppositeTaskID, linkTypeID int) (int, error)
	Delete(ctx context.Context, id int) error
	LinkTypes(ctx context.Context) ([]model.LinkType, error)
}

// SeedStore holds arrow directions of "relates to" links.
type SeedStore interface {
	Get(ctx context.Context, projectID, taskLinkID int) (model.Seed, bool, error)
	GetBulk(ctx context.Context, projectID int, taskLinkIDs []int) (map[int]model.Seed, error)
	Set(ctx context.Context, projectID, taskLinkID int, seed model.Seed) error
	Clear(ctx context.Context, projectID, taskLinkID int) error
}

// ProjectStore resolves project membership.
type ProjectStore interface {
	ActiveProjectIDs(ctx context.Context, userID int) ([]int, error)
}

// EventPublisher publishes domain events; *mq.Publisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// taskInProject loads a task and checks it belongs to projectID.
func taskInProject(ctx context.Context, tasks interface {
	GetByID(ctx context.Context, id int) (*model.Task, error)
}, projectID, taskID int) (*model.Task, error) {
	t, err := tasks.GetByID(ctx, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.New(apperrors.CodeTaskNotFound, "task %d not found", taskID)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load task %d", taskID)
	}
	if t.ProjectID != projectID {
		return nil, apperrors.New(apperrors.CodeTaskNotFound, "task %d not found in project %d", taskID, projectID)
	}
	return t, nil
}

// taskURL renders base with (project id, task id).
func taskURL(base string, projectID, taskID int) string {
	if base == "" {
		return ""
	}
	return fmt.Sprintf(base, projectID, taskID)
}

func formatOptionalDay(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(loc).Format("2006-01-02")
}
