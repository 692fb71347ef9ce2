package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"ganttservice/pkg/db"
)

// MetadataDuration is the task metadata key holding the planned duration in
// days.
const MetadataDuration = "duration"

type MetadataRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewMetadataRepository(conn db.DBTX, logger *zap.Logger) *MetadataRepository {
	return &MetadataRepository{db: conn, logger: logger}
}

func (r *MetadataRepository) WithTx(tx pgx.Tx) *MetadataRepository {
	return &MetadataRepository{db: tx, logger: r.logger}
}

// SetDuration upserts the duration of a task.
func (r *MetadataRepository) SetDuration(ctx context.Context, taskID int, days int) error {
	query := `
        INSERT INTO task_has_metadata (task_id, name, value)
        VALUES ($1, $2, $3)
        ON CONFLICT (task_id, name) DO UPDATE SET value = EXCLUDED.value
    `
	_, err := r.db.Exec(ctx, query, taskID, MetadataDuration, strconv.Itoa(days))
	if err != nil {
		r.logger.Error("Failed to write duration",
			zap.Error(err),
			zap.Int("task_id", taskID),
			zap.Int("duration", days),
		)
		return err
	}
	return nil
}
