package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ganttservice/internal/model"
	"ganttservice/internal/repository"
	"ganttservice/internal/seedstore"
	"ganttservice/pkg/config"
)

var utc = time.UTC

func testConfig() config.GanttConfig {
	cfg := config.Defaults().Gantt
	cfg.ChildOfLinkID = 6
	cfg.BlockedByLinkID = 3
	return cfg
}

func day(s string) *time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, utc)
	if err != nil {
		panic(err)
	}
	return &t
}

func intPtr(v int) *int { return &v }

var catalog = []model.LinkType{
	{ID: 1, Label: "relates to"},
	{ID: 2, Label: "blocks", OppositeID: 3},
	{ID: 3, Label: "is blocked by", OppositeID: 2},
	{ID: 6, Label: "is a child of", OppositeID: 7},
	{ID: 7, Label: "is a parent of", OppositeID: 6},
}

type fakeTasks struct {
	tasks map[int]model.Task
	err   error
}

func newFakeTasks(tasks ...model.Task) *fakeTasks {
	f := &fakeTasks{tasks: map[int]model.Task{}}
	for _, t := range tasks {
		f.tasks[t.ID] = t
	}
	return f
}

func (f *fakeTasks) ListActiveByProject(_ context.Context, projectID int) ([]model.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID && t.IsActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTasks) GetByID(_ context.Context, id int) (*model.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTasks) GetByIDs(_ context.Context, ids []int) ([]model.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	seen := map[int]bool{}
	out := []model.Task{}
	for _, id := range ids {
		if t, ok := f.tasks[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTasks) Search(_ context.Context, projectIDs []int, q string, limit int) ([]model.TaskSearchItem, error) {
	allowed := map[int]bool{}
	for _, id := range projectIDs {
		allowed[id] = true
	}
	out := []model.TaskSearchItem{}
	for _, t := range f.tasks {
		if allowed[t.ProjectID] && strings.Contains(strings.ToLower(t.Title), strings.ToLower(q)) {
			out = append(out, model.TaskSearchItem{ID: t.ID, Title: t.Title, ProjectID: t.ProjectID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeLinks struct {
	links  []model.TaskLink
	nextID int
	err    error
}

func (f *fakeLinks) ListByTasks(_ context.Context, taskIDs []int) ([]model.TaskLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	want := map[int]bool{}
	for _, id := range taskIDs {
		want[id] = true
	}
	out := []model.TaskLink{}
	for _, l := range f.links {
		if want[l.TaskID] || want[l.OppositeTaskID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLinks) GetByID(_ context.Context, id int) (*model.TaskLink, error) {
	for _, l := range f.links {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeLinks) Create(_ context.Context, taskID, oppositeTaskID, linkTypeID int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.links = append(f.links, model.TaskLink{ID: f.nextID, TaskID: taskID, OppositeTaskID: oppositeTaskID, LinkTypeID: linkTypeID})
	return f.nextID, nil
}

func (f *fakeLinks) Delete(_ context.Context, id int) error {
	for i, l := range f.links {
		if l.ID == id {
			f.links = append(f.links[:i], f.links[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeLinks) LinkTypes(context.Context) ([]model.LinkType, error) {
	return catalog, nil
}

type fakeProjects struct {
	ids []int
}

func (f fakeProjects) ActiveProjectIDs(context.Context, int) ([]int, error) {
	return f.ids, nil
}

type published struct {
	routingKey string
	payload    any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{routingKey: routingKey, payload: payload})
	return nil
}

func newSeedStore(t *testing.T) (*seedstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return seedstore.New(rdb, zap.NewNop()), mr
}

// memScheduleStore keeps tasks and links in memory and discards writes when
// fn fails.
type memScheduleStore struct {
	tasks    map[int]model.Task
	links    []model.TaskLink
	duration map[int]int
	events   []published
	failOn   int
}

func newMemScheduleStore(tasks []model.Task, links []model.TaskLink) *memScheduleStore {
	s := &memScheduleStore{tasks: map[int]model.Task{}, links: links, duration: map[int]int{}}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

var errWriteFailed = errors.New("write failed")

func (s *memScheduleStore) InTx(ctx context.Context, fn func(tx ScheduleTx) error) error {
	tx := &memTx{store: s, tasks: map[int]model.Task{}, duration: map[int]int{}}
	for id, t := range s.tasks {
		tx.tasks[id] = t
	}
	for id, d := range s.duration {
		tx.duration[id] = d
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.tasks, s.duration = tx.tasks, tx.duration
	s.events = append(s.events, tx.events...)
	return nil
}

type memTx struct {
	store    *memScheduleStore
	tasks    map[int]model.Task
	duration map[int]int
	events   []published
}

func (t *memTx) GetTask(_ context.Context, id int) (*model.Task, error) {
	task, ok := t.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &task, nil
}

func (t *memTx) GetTasks(_ context.Context, ids []int) ([]model.Task, error) {
	out := []model.Task{}
	for _, id := range ids {
		if task, ok := t.tasks[id]; ok {
			out = append(out, task)
		}
	}
	return out, nil
}

func (t *memTx) ListLinks(_ context.Context, taskIDs []int) ([]model.TaskLink, error) {
	want := map[int]bool{}
	for _, id := range taskIDs {
		want[id] = true
	}
	out := []model.TaskLink{}
	for _, l := range t.store.links {
		if want[l.TaskID] || want[l.OppositeTaskID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (t *memTx) UpdateDates(_ context.Context, id int, start, end *time.Time) error {
	task := t.tasks[id]
	task.DateStarted, task.DateDue = start, end
	t.tasks[id] = task
	return nil
}

func (t *memTx) SetStart(_ context.Context, id int, start time.Time) error {
	if id == t.store.failOn {
		return errWriteFailed
	}
	task := t.tasks[id]
	task.DateStarted = &start
	t.tasks[id] = task
	return nil
}

func (t *memTx) SetDuration(_ context.Context, id int, days int) error {
	t.duration[id] = days
	return nil
}

func (t *memTx) Enqueue(_ context.Context, routingKey string, _ int, payload any) error {
	t.events = append(t.events, published{routingKey: routingKey, payload: payload})
	return nil
}
