package gantt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDay(s, time.UTC)
	require.NoError(t, err)
	return d
}

func dayPtr(t *testing.T, s string) *time.Time {
	d := day(t, s)
	return &d
}

func intPtr(v int) *int { return &v }

func bar(t *testing.T, id int, start, end string) Bar {
	return Bar{ID: id, ProjectID: 1, Start: day(t, start), End: day(t, end)}
}
