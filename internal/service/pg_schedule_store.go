package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"ganttservice/internal/model"
	"ganttservice/internal/repository"
	"ganttservice/pkg/db"
	"ganttservice/pkg/outbox"
)

const outboxAggregateTask = "task"

// PgScheduleStore runs schedule writes in a pgx transaction.
type PgScheduleStore struct {
	pool     db.TxBeginner
	tasks    *repository.TaskRepository
	links    *repository.LinkRepository
	metadata *repository.MetadataRepository
	outbox   *outbox.Repository
}

func NewPgScheduleStore(
	pool db.TxBeginner,
	tasks *repository.TaskRepository,
	links *repository.LinkRepository,
	metadata *repository.MetadataRepository,
	events *outbox.Repository,
) *PgScheduleStore {
	return &PgScheduleStore{pool: pool, tasks: tasks, links: links, metadata: metadata, outbox: events}
}

func (s *PgScheduleStore) InTx(ctx context.Context, fn func(tx ScheduleTx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(pgScheduleTx{
			tasks:    s.tasks.WithTx(tx),
			links:    s.links.WithTx(tx),
			metadata: s.metadata.WithTx(tx),
			outbox:   s.outbox,
			tx:       tx,
		})
	})
}

type pgScheduleTx struct {
	tasks    *repository.TaskRepository
	links    *repository.LinkRepository
	metadata *repository.MetadataRepository
	outbox   *outbox.Repository
	tx       pgx.Tx
}

func (t pgScheduleTx) GetTask(ctx context.Context, id int) (*model.Task, error) {
	return t.tasks.GetByID(ctx, id)
}

func (t pgScheduleTx) GetTasks(ctx context.Context, ids []int) ([]model.Task, error) {
	return t.tasks.GetByIDs(ctx, ids)
}

func (t pgScheduleTx) ListLinks(ctx context.Context, taskIDs []int) ([]model.TaskLink, error) {
	return t.links.ListByTasks(ctx, taskIDs)
}

func (t pgScheduleTx) UpdateDates(ctx context.Context, id int, start, end *time.Time) error {
	return t.tasks.UpdateDates(ctx, id, start, end)
}

func (t pgScheduleTx) SetStart(ctx context.Context, id int, start time.Time) error {
	return t.tasks.SetStart(ctx, id, start)
}

func (t pgScheduleTx) SetDuration(ctx context.Context, id int, days int) error {
	return t.metadata.SetDuration(ctx, id, days)
}

func (t pgScheduleTx) Enqueue(ctx context.Context, routingKey string, taskID int, payload any) error {
	return t.outbox.Enqueue(ctx, t.tx, outboxAggregateTask, int64(taskID), routingKey, payload)
}
