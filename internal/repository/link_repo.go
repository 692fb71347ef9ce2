package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"ganttservice/internal/model"
	"ganttservice/pkg/db"
)

// LinkRepository stores task links as one row per link; the row's task_id
// side reads the link type as stored, the opposite side reads its opposite.
type LinkRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewLinkRepository(conn db.DBTX, logger *zap.Logger) *LinkRepository {
	return &LinkRepository{db: conn, logger: logger}
}

func (r *LinkRepository) WithTx(tx pgx.Tx) *LinkRepository {
	return &LinkRepository{db: tx, logger: r.logger}
}

// ListByTasks returns every link touching any of taskIDs, each once.
func (r *LinkRepository) ListByTasks(ctx context.Context, taskIDs []int) ([]model.TaskLink, error) {
	links := []model.TaskLink{}
	if len(taskIDs) == 0 {
		return links, nil
	}
	query := `
        SELECT id, task_id, opposite_task_id, link_id
        FROM task_has_links
        WHERE task_id = ANY($1) OR opposite_task_id = ANY($1)
        ORDER BY id
    `
	rows, err := r.db.Query(ctx, query, taskIDs)
	if err != nil {
		r.logger.Error("Failed to query task links", zap.Error(err), zap.Int("tasks", len(taskIDs)))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l model.TaskLink
		if err := rows.Scan(&l.ID, &l.TaskID, &l.OppositeTaskID, &l.LinkTypeID); err != nil {
			r.logger.Error("Failed to scan task link row", zap.Error(err))
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// GetByID returns ErrNotFound when the link does not exist.
func (r *LinkRepository) GetByID(ctx context.Context, id int) (*model.TaskLink, error) {
	query := `
        SELECT id, task_id, opposite_task_id, link_id
        FROM task_has_links
        WHERE id = $1
    `
	var l model.TaskLink
	err := r.db.QueryRow(ctx, query, id).Scan(&l.ID, &l.TaskID, &l.OppositeTaskID, &l.LinkTypeID)
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// Create inserts a link and returns its id.
func (r *LinkRepository) Create(ctx context.Context, taskID, oppositeTaskID, linkTypeID int) (int, error) {
	query := `
        INSERT INTO task_has_links (link_id, task_id, opposite_task_id)
        VALUES ($1, $2, $3)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query, linkTypeID, taskID, oppositeTaskID).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert task link",
			zap.Error(err),
			zap.Int("task_id", taskID),
			zap.Int("opposite_task_id", oppositeTaskID),
			zap.Int("link_id", linkTypeID),
		)
		return 0, err
	}
	r.logger.Info("Task link created",
		zap.Int("task_link_id", id),
		zap.Int("task_id", taskID),
		zap.Int("opposite_task_id", oppositeTaskID),
	)
	return id, nil
}

// Delete removes a link; ErrNotFound when it did not exist.
func (r *LinkRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.Exec(ctx, `DELETE FROM task_has_links WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete task link", zap.Error(err), zap.Int("task_link_id", id))
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Info("Task link removed", zap.Int("task_link_id", id))
	return nil
}

// LinkTypes returns the link type catalog.
func (r *LinkRepository) LinkTypes(ctx context.Context) ([]model.LinkType, error) {
	rows, err := r.db.Query(ctx, `SELECT id, label, opposite_id FROM links ORDER BY id`)
	if err != nil {
		r.logger.Error("Failed to query link types", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	types := []model.LinkType{}
	for rows.Next() {
		var lt model.LinkType
		if err := rows.Scan(&lt.ID, &lt.Label, &lt.OppositeID); err != nil {
			return nil, err
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

// OppositeID returns the opposite of a link type; a type without an opposite
// is its own opposite.
func (r *LinkRepository) OppositeID(ctx context.Context, linkTypeID int) (int, error) {
	var opposite int
	err := r.db.QueryRow(ctx, `SELECT opposite_id FROM links WHERE id = $1`, linkTypeID).Scan(&opposite)
	if err != nil {
		return 0, notFound(err)
	}
	if opposite == 0 {
		return linkTypeID, nil
	}
	return opposite, nil
}
