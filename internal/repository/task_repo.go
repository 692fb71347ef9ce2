package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"ganttservice/internal/model"
	"ganttservice/pkg/db"
)

type TaskRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewTaskRepository(conn db.DBTX, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: conn, logger: logger}
}

// WithTx returns a repository bound to tx.
func (r *TaskRepository) WithTx(tx pgx.Tx) *TaskRepository {
	return &TaskRepository{db: tx, logger: r.logger}
}

const taskColumns = `
            t.id,
            t.project_id,
            t.title,
            t.date_started,
            t.date_due,
            t.color_id,
            t.is_active,
            t.priority,
            COALESCE(NULLIF(u.name, ''), u.username, ''),
            t.score,
            (SELECT COUNT(*) FROM subtasks s WHERE s.task_id = t.id),
            (SELECT COUNT(*) FROM subtasks s WHERE s.task_id = t.id AND s.status = 2),
            m.value
        FROM tasks t
        LEFT JOIN users u ON u.id = t.owner_id
        LEFT JOIN task_has_metadata m ON m.task_id = t.id AND m.name = 'duration'`

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	var duration *string
	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.Title,
		&t.DateStarted,
		&t.DateDue,
		&t.ColorID,
		&t.IsActive,
		&t.Priority,
		&t.AssigneeName,
		&t.Score,
		&t.SubtasksTotal,
		&t.SubtasksDone,
		&duration,
	)
	if err != nil {
		return t, err
	}
	t.Duration = parseDuration(duration)
	return t, nil
}

// parseDuration reads the duration metadata value; non-numeric values are
// absent.
func parseDuration(raw *string) *int {
	if raw == nil {
		return nil
	}
	d, err := strconv.Atoi(strings.TrimSpace(*raw))
	if err != nil {
		return nil
	}
	return &d
}

func (r *TaskRepository) collect(rows pgx.Rows) ([]model.Task, error) {
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListActiveByProject returns the open tasks of a project.
func (r *TaskRepository) ListActiveByProject(ctx context.Context, projectID int) ([]model.Task, error) {
	r.logger.Debug("Listing active tasks", zap.Int("project_id", projectID))
	query := `SELECT` + taskColumns + `
        WHERE t.project_id = $1 AND t.is_active
        ORDER BY t.id
    `
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err), zap.Int("project_id", projectID))
		return nil, err
	}
	tasks, err := r.collect(rows)
	if err != nil {
		r.logger.Error("Failed to scan task row", zap.Error(err), zap.Int("project_id", projectID))
		return nil, err
	}
	r.logger.Debug("Tasks listed",
		zap.Int("project_id", projectID),
		zap.Int("count", len(tasks)),
	)
	return tasks, nil
}

// GetByID returns ErrNotFound when the task does not exist.
func (r *TaskRepository) GetByID(ctx context.Context, id int) (*model.Task, error) {
	query := `SELECT` + taskColumns + `
        WHERE t.id = $1
    `
	t, err := scanTask(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// GetByIDs returns the tasks that exist among ids, in id order.
func (r *TaskRepository) GetByIDs(ctx context.Context, ids []int) ([]model.Task, error) {
	if len(ids) == 0 {
		return []model.Task{}, nil
	}
	query := `SELECT` + taskColumns + `
        WHERE t.id = ANY($1)
        ORDER BY t.id
    `
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to query tasks by id", zap.Error(err), zap.Int("count", len(ids)))
		return nil, err
	}
	return r.collect(rows)
}

// UpdateDates writes both dates; nil clears a date.
func (r *TaskRepository) UpdateDates(ctx context.Context, id int, start, end *time.Time) error {
	query := `
        UPDATE tasks
        SET date_started = $2, date_due = $3
        WHERE id = $1
    `
	result, err := r.db.Exec(ctx, query, id, start, end)
	if err != nil {
		r.logger.Error("Failed to update task dates", zap.Error(err), zap.Int("task_id", id))
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Debug("Task dates updated", zap.Int("task_id", id))
	return nil
}

// SetStart moves the start date of a task.
func (r *TaskRepository) SetStart(ctx context.Context, id int, start time.Time) error {
	query := `
        UPDATE tasks
        SET date_started = $2
        WHERE id = $1
    `
	result, err := r.db.Exec(ctx, query, id, start)
	if err != nil {
		r.logger.Error("Failed to set task start", zap.Error(err), zap.Int("task_id", id))
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Search finds tasks of the given projects by title, case-insensitively. A
// numeric query also matches the task id, listed first.
func (r *TaskRepository) Search(ctx context.Context, projectIDs []int, q string, limit int) ([]model.TaskSearchItem, error) {
	items := []model.TaskSearchItem{}
	q = strings.TrimSpace(q)
	if q == "" || len(projectIDs) == 0 {
		return items, nil
	}

	id, err := strconv.Atoi(q)
	if err != nil || id < 0 {
		id = 0
	}

	query := `
        SELECT id, title, project_id
        FROM tasks
        WHERE project_id = ANY($1)
          AND (id = $2 OR title ILIKE '%' || $3 || '%')
        ORDER BY (id = $2) DESC, id DESC
        LIMIT $4
    `
	rows, err := r.db.Query(ctx, query, projectIDs, id, escapeLike(q), limit)
	if err != nil {
		r.logger.Error("Failed to search tasks", zap.Error(err), zap.String("q", q))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it model.TaskSearchItem
		if err := rows.Scan(&it.ID, &it.Title, &it.ProjectID); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
