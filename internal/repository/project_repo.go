package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ganttservice/pkg/db"
)

type ProjectRepository struct {
	db     db.DBTX
	logger *zap.Logger
}

func NewProjectRepository(conn db.DBTX, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     conn,
		logger: logger,
	}
}

// MemberRole returns the role of userID in an active project, ErrNotFound
// when the user is not a member.
func (r *ProjectRepository) MemberRole(ctx context.Context, projectID, userID int) (string, error) {
	query := `
        SELECT pu.role
        FROM project_users pu
        JOIN projects p ON p.id = pu.project_id
        WHERE pu.project_id = $1 AND pu.user_id = $2 AND p.is_active
    `
	var role string
	if err := r.db.QueryRow(ctx, query, projectID, userID).Scan(&role); err != nil {
		err = notFound(err)
		if !errors.Is(err, ErrNotFound) {
			r.logger.Error("Failed to read project role",
				zap.Error(err),
				zap.Int("project_id", projectID),
				zap.Int("user_id", userID),
			)
		}
		return "", err
	}
	return role, nil
}

// ActiveProjectIDs returns the active projects userID is a member of.
func (r *ProjectRepository) ActiveProjectIDs(ctx context.Context, userID int) ([]int, error) {
	query := `
        SELECT p.id
        FROM projects p
        JOIN project_users pu ON pu.project_id = p.id
        WHERE pu.user_id = $1 AND p.is_active
        ORDER BY p.id
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Error(err), zap.Int("user_id", userID))
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ping checks the database connection.
func (r *ProjectRepository) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRow(ctx, `SELECT 1`).Scan(&one)
}
