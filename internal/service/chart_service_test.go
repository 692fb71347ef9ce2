package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ganttservice/internal/model"
	"ganttservice/internal/seedstore"
	apperrors "ganttservice/pkg/errors"
)

func newChartService(t *testing.T, tasks *fakeTasks, links *fakeLinks) (*ChartService, *seedstore.Store) {
	t.Helper()
	seeds, _ := newSeedStore(t)
	svc := NewChartService(tasks, links, seeds, testConfig(), utc, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 15, 0, 0, 0, utc) }
	return svc, seeds
}

func TestChartService_Chart(t *testing.T) {
	tasks := newFakeTasks(
		model.Task{ID: 1, ProjectID: 1, Title: "A", IsActive: true, Duration: intPtr(3)},
		model.Task{ID: 2, ProjectID: 1, Title: "B", IsActive: true, DateStarted: day("2024-01-01"), DateDue: day("2024-01-05")},
		model.Task{ID: 3, ProjectID: 1, Title: "closed", DateStarted: day("2024-01-01")},
		model.Task{ID: 4, ProjectID: 2, Title: "elsewhere", IsActive: true, DateStarted: day("2024-01-01")},
	)
	links := &fakeLinks{links: []model.TaskLink{
		{ID: 10, TaskID: 1, OppositeTaskID: 2, LinkTypeID: 6},
		{ID: 11, TaskID: 2, OppositeTaskID: 1, LinkTypeID: 2},
	}}
	svc, _ := newChartService(t, tasks, links)

	rows, err := svc.Chart(context.Background(), 1, ChartOptions{ShowNoDate: true})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0].ID)
	assert.Equal(t, "fg-blocker-end", rows[0].CustomClass)
	assert.Equal(t, "1", rows[1].ID)
	assert.Equal(t, 1, rows[1].Level)
	assert.Equal(t, "2024-06-01", rows[1].Start)
	assert.Equal(t, "2024-06-04", rows[1].End)
	assert.Equal(t, "/project/1/task/1", rows[1].URL)
	assert.Equal(t, "bar-no-dates fg-blocked-start", rows[1].CustomClass)
}

func TestChartService_ChartHidesUndated(t *testing.T) {
	tasks := newFakeTasks(
		model.Task{ID: 1, ProjectID: 1, IsActive: true},
		model.Task{ID: 2, ProjectID: 1, IsActive: true, DateDue: day("2024-07-01")},
	)
	svc, _ := newChartService(t, tasks, &fakeLinks{})

	rows, err := svc.Chart(context.Background(), 1, ChartOptions{})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0].ID)
	assert.Equal(t, "2024-06-01", rows[0].Start)
}

func TestChartService_ChartArrowsFromSeeds(t *testing.T) {
	tasks := newFakeTasks(
		model.Task{ID: 5, ProjectID: 1, IsActive: true, DateStarted: day("2024-01-01")},
		model.Task{ID: 9, ProjectID: 1, IsActive: true, DateStarted: day("2024-01-02")},
	)
	links := &fakeLinks{links: []model.TaskLink{{ID: 30, TaskID: 5, OppositeTaskID: 9, LinkTypeID: 1}}}
	svc, seeds := newChartService(t, tasks, links)
	ctx := context.Background()

	rows, err := svc.Chart(ctx, 1, ChartOptions{LinkTypeIDs: []int{1}})
	require.NoError(t, err)
	for _, r := range rows {
		assert.Empty(t, r.Dependencies)
	}

	require.NoError(t, seeds.Set(ctx, 1, 30, model.Seed{TaskID: 5, OppositeTaskID: 9, SeedTaskID: 9}))

	rows, err = svc.Chart(ctx, 1, ChartOptions{LinkTypeIDs: []int{1}})
	require.NoError(t, err)
	deps := map[string]string{}
	for _, r := range rows {
		deps[r.ID] = r.Dependencies
	}
	assert.Equal(t, map[string]string{"5": "9", "9": ""}, deps)
}

func TestChartService_ChartStoreError(t *testing.T) {
	tasks := newFakeTasks()
	tasks.err = errors.New("db down")
	svc, _ := newChartService(t, tasks, &fakeLinks{})

	_, err := svc.Chart(context.Background(), 1, ChartOptions{})

	assert.True(t, apperrors.Is(err, apperrors.CodeInternal))
}

func TestChartService_Dependencies(t *testing.T) {
	tasks := newFakeTasks(
		model.Task{ID: 5, ProjectID: 1, IsActive: true},
		model.Task{ID: 9, ProjectID: 1, IsActive: true},
		model.Task{ID: 12, ProjectID: 2, IsActive: true},
	)
	links := &fakeLinks{links: []model.TaskLink{
		{ID: 30, TaskID: 5, OppositeTaskID: 9, LinkTypeID: 1},
		{ID: 31, TaskID: 5, OppositeTaskID: 12, LinkTypeID: 1},
	}}
	svc, seeds := newChartService(t, tasks, links)
	ctx := context.Background()
	require.NoError(t, seeds.Set(ctx, 1, 30, model.Seed{TaskID: 5, OppositeTaskID: 9, SeedTaskID: 5}))
	require.NoError(t, seeds.Set(ctx, 1, 31, model.Seed{TaskID: 5, OppositeTaskID: 12, SeedTaskID: 5}))

	res, err := svc.Dependencies(ctx, 1, nil, []int{1}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.CountTasks)
	assert.Equal(t, map[int][]int{5: {9, 12}, 9: {}}, res.Map)

	res, err = svc.Dependencies(ctx, 1, []int{5}, []int{1}, true)
	require.NoError(t, err)
	assert.Equal(t, map[int][]int{5: {9}}, res.Map)
	assert.True(t, res.SameProjectOnly)
}

func TestChartService_DependenciesRequireLinkTypes(t *testing.T) {
	svc, _ := newChartService(t, newFakeTasks(), &fakeLinks{})

	_, err := svc.Dependencies(context.Background(), 1, nil, nil, false)

	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))
}

func TestChartService_TaskDetail(t *testing.T) {
	tasks := newFakeTasks(
		model.Task{ID: 7, ProjectID: 1, Title: "Write docs", IsActive: true, Priority: 2, AssigneeName: "kim",
			DateStarted: day("2024-02-01"), Duration: intPtr(4)},
		model.Task{ID: 8, ProjectID: 1, Title: "Done", Duration: intPtr(-3)},
		model.Task{ID: 9, ProjectID: 2, Title: "Other"},
	)
	svc, _ := newChartService(t, tasks, &fakeLinks{})
	ctx := context.Background()

	d, err := svc.TaskDetail(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, &model.TaskDetail{
		ID:       7,
		Title:    "Write docs",
		Status:   "open",
		Priority: 2,
		Assignee: "kim",
		Start:    "2024-02-01",
		End:      "",
		Duration: 4,
		URL:      "/project/1/task/7",
		EditURL:  "/project/1/task/7/edit",
	}, d)

	d, err = svc.TaskDetail(ctx, 1, 8)
	require.NoError(t, err)
	assert.Equal(t, "closed", d.Status)
	assert.Equal(t, 0, d.Duration)

	_, err = svc.TaskDetail(ctx, 1, 9)
	assert.True(t, apperrors.Is(err, apperrors.CodeTaskNotFound))

	_, err = svc.TaskDetail(ctx, 1, 404)
	assert.True(t, apperrors.Is(err, apperrors.CodeTaskNotFound))

	_, err = svc.TaskDetail(ctx, 1, 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidInput))
}
