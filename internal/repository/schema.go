package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ganttservice/pkg/db"
	"ganttservice/pkg/outbox"
)

var schema = []struct {
	name string
	sql  string
}{
	{"projects", `
        CREATE TABLE IF NOT EXISTS projects (
            id        SERIAL PRIMARY KEY,
            name      TEXT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT TRUE
        )`},
	{"users", `
        CREATE TABLE IF NOT EXISTS users (
            id       SERIAL PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            name     TEXT NOT NULL DEFAULT ''
        )`},
	{"project_users", `
        CREATE TABLE IF NOT EXISTS project_users (
            project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            role       TEXT NOT NULL DEFAULT 'project-viewer',
            PRIMARY KEY (project_id, user_id)
        )`},
	{"tasks", `
        CREATE TABLE IF NOT EXISTS tasks (
            id           SERIAL PRIMARY KEY,
            project_id   INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            title        TEXT NOT NULL,
            date_started TIMESTAMPTZ,
            date_due     TIMESTAMPTZ,
            color_id     TEXT NOT NULL DEFAULT 'yellow',
            is_active    BOOLEAN NOT NULL DEFAULT TRUE,
            priority     INTEGER NOT NULL DEFAULT 0,
            owner_id     INTEGER REFERENCES users(id) ON DELETE SET NULL,
            score        INTEGER
        )`},
	{"idx_tasks_project", `
        CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id, is_active)`},
	{"subtasks", `
        CREATE TABLE IF NOT EXISTS subtasks (
            id      SERIAL PRIMARY KEY,
            task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
            title   TEXT NOT NULL,
            status  INTEGER NOT NULL DEFAULT 0
        )`},
	{"links", `
        CREATE TABLE IF NOT EXISTS links (
            id          INTEGER PRIMARY KEY,
            label       TEXT NOT NULL,
            opposite_id INTEGER NOT NULL DEFAULT 0
        )`},
	{"task_has_links", `
        CREATE TABLE IF NOT EXISTS task_has_links (
            id               SERIAL PRIMARY KEY,
            link_id          INTEGER NOT NULL REFERENCES links(id),
            task_id          INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
            opposite_task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE
        )`},
	{"idx_task_has_links_task", `
        CREATE INDEX IF NOT EXISTS idx_task_has_links_task ON task_has_links(task_id)`},
	{"idx_task_has_links_opposite", `
        CREATE INDEX IF NOT EXISTS idx_task_has_links_opposite ON task_has_links(opposite_task_id)`},
	{"task_has_metadata", `
        CREATE TABLE IF NOT EXISTS task_has_metadata (
            task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
            name    TEXT NOT NULL,
            value   TEXT NOT NULL DEFAULT '',
            PRIMARY KEY (task_id, name)
        )`},
	{"outbox_events", outbox.Schema},
	{"idx_outbox_events_pending", `
        CREATE INDEX IF NOT EXISTS idx_outbox_events_pending ON outbox_events(status, next_retry_at)`},
}

// DefaultLinkTypes is the link type catalog seeded into an empty database.
var DefaultLinkTypes = []struct {
	ID         int
	Label      string
	OppositeID int
}{
	{1, "relates to", 0},
	{2, "blocks", 3},
	{3, "is blocked by", 2},
	{4, "duplicates", 5},
	{5, "is duplicated by", 4},
	{6, "is a child of", 7},
	{7, "is a parent of", 6},
	{8, "targets milestone", 9},
	{9, "is a milestone of", 8},
	{10, "fixes", 11},
	{11, "is fixed by", 10},
}

// EnsureSchema creates missing tables and seeds the link type catalog.
func EnsureSchema(ctx context.Context, conn db.DBTX, logger *zap.Logger) error {
	for _, stmt := range schema {
		if _, err := conn.Exec(ctx, stmt.sql); err != nil {
			logger.Error("Failed to apply schema statement",
				zap.String("statement", stmt.name),
				zap.Error(err),
			)
			return fmt.Errorf("schema %s: %w", stmt.name, err)
		}
	}

	for _, lt := range DefaultLinkTypes {
		_, err := conn.Exec(ctx, `
            INSERT INTO links (id, label, opposite_id)
            VALUES ($1, $2, $3)
            ON CONFLICT (id) DO NOTHING
        `, lt.ID, lt.Label, lt.OppositeID)
		if err != nil {
			logger.Error("Failed to seed link type", zap.Int("link_id", lt.ID), zap.Error(err))
			return fmt.Errorf("seed link type %d: %w", lt.ID, err)
		}
	}

	logger.Info("Schema ready", zap.Int("statements", len(schema)))
	return nil
}
