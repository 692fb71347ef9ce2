package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeSQL(t *testing.T) {
	tests := []struct {
		sql       string
		operation string
		table     string
	}{
		{"SELECT id, title FROM tasks WHERE project_id = $1", "select", "tasks"},
		{"\n  select * from task_links tl join tasks t on t.id = tl.task_id", "select", "task_links"},
		{"INSERT INTO task_metadata(task_id, name, value) VALUES ($1, $2, $3)", "insert", "task_metadata"},
		{"UPDATE tasks SET date_started = $1 WHERE id = $2", "update", "tasks"},
		{"DELETE FROM task_links WHERE id = $1", "delete", "task_links"},
		{"BEGIN", "begin", "unknown"},
		{"", "unknown", "unknown"},
	}
	for _, tt := range tests {
		op, table := describeSQL(tt.sql)
		assert.Equal(t, tt.operation, op, tt.sql)
		assert.Equal(t, tt.table, table, tt.sql)
	}
}
