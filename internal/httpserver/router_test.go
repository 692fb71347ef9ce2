package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ganttservice/internal/handler"
	"ganttservice/internal/model"
	"ganttservice/internal/repository"
	"ganttservice/internal/service"
	"ganttservice/pkg/rbac"
	"ganttservice/pkg/trace"
	"ganttservice/pkg/util"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCharts struct{ calls int }

func (s *stubCharts) Chart(context.Context, int, service.ChartOptions) ([]model.ChartRow, error) {
	s.calls++
	return []model.ChartRow{}, nil
}

func (s *stubCharts) Dependencies(context.Context, int, []int, []int, bool) (*service.DependencyResult, error) {
	return &service.DependencyResult{Map: map[int][]int{}}, nil
}

func (s *stubCharts) TaskDetail(context.Context, int, int) (*model.TaskDetail, error) {
	return &model.TaskDetail{}, nil
}

type stubSaver struct{ calls int }

func (s *stubSaver) UpdateDates(context.Context, int, model.DateUpdate) (*service.SaveResult, error) {
	s.calls++
	return &service.SaveResult{Shifted: []int{}}, nil
}

type stubLinks struct{}

func (stubLinks) List(context.Context, int, int) (*service.LinkList, error) {
	return &service.LinkList{}, nil
}
func (stubLinks) Create(context.Context, int, int, int, int, int) (int, error) { return 1, nil }
func (stubLinks) Remove(context.Context, int, int, int) error { return nil }
func (stubLinks) Search(context.Context, int, int, service.SearchQuery) (*service.SearchResult, error) {
	return &service.SearchResult{}, nil
}
func (stubLinks) Seed(context.Context, int, int, service.SeedRequest) error { return nil }

// members maps "project:user" to a role.
type members struct {
	roles map[[2]int]string
	err   error
}

func (m members) MemberRole(_ context.Context, projectID, userID int) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	role, ok := m.roles[[2]int{projectID, userID}]
	if !ok {
		return "", repository.ErrNotFound
	}
	return role, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type conn bool

func (c conn) IsConnected() bool { return bool(c) }

type fixture struct {
	router *Router
	charts *stubCharts
	saver  *stubSaver
}

func newFixture(m MembershipResolver, db Pinger, mq ConnStatus) fixture {
	charts, saver := &stubCharts{}, &stubSaver{}
	gh := handler.NewGanttHandler(charts, saver, nil, time.UTC, zap.NewNop())
	lh := handler.NewLinkHandler(stubLinks{}, zap.NewNop())
	return fixture{
		router: NewRouter(gh, lh, m, testSecret, db, mq, zap.NewNop()),
		charts: charts,
		saver:  saver,
	}
}

func bearer(t *testing.T, userID int) string {
	t.Helper()
	token, err := util.GenerateJWT(userID, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(r *Router, method, target, auth string) *httptest.ResponseRecorder {
	var body *strings.Reader
	if method == http.MethodPost {
		body = strings.NewReader(`{"task_id": 1}`)
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	f := newFixture(members{}, pinger{}, nil)

	w := serve(f.router, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName))
}

func TestTraceHeaderIsEchoed(t *testing.T) {
	f := newFixture(members{}, pinger{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(trace.HeaderName, "trace-123")
	w := httptest.NewRecorder()

	f.router.Engine.ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Header().Get(trace.HeaderName))
}

func TestReadyz(t *testing.T) {
	cases := []struct {
		name   string
		db     Pinger
		mq     ConnStatus
		status int
		body   string
	}{
		{"ready", pinger{}, conn(true), http.StatusOK, "ready"},
		{"no broker configured", pinger{}, nil, http.StatusOK, "ready"},
		{"db down", pinger{err: errors.New("refused")}, conn(true), http.StatusInternalServerError, "db_not_ready"},
		{"mq down", pinger{}, conn(false), http.StatusInternalServerError, "mq_not_ready"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(members{}, tc.db, tc.mq)

			w := serve(f.router, http.MethodGet, "/readyz", "")

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(members{}, pinger{}, nil)

	w := serve(f.router, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAuth_MissingOrInvalidToken(t *testing.T) {
	f := newFixture(members{}, pinger{}, nil)

	assert.Equal(t, http.StatusUnauthorized, serve(f.router, http.MethodGet, "/project/1/gantt/data", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(f.router, http.MethodGet, "/project/1/gantt/data", "Bearer nope").Code)
	assert.Zero(t, f.charts.calls)
}

func TestPermissions(t *testing.T) {
	m := members{roles: map[[2]int]string{
		{1, 10}: rbac.RoleViewer,
		{1, 11}: rbac.RoleMember,
	}}

	cases := []struct {
		name   string
		method string
		target string
		user   int
		status int
	}{
		{"viewer reads", http.MethodGet, "/project/1/gantt/data", 10, http.StatusOK},
		{"viewer cannot save", http.MethodPost, "/project/1/gantt/save", 10, http.StatusForbidden},
		{"viewer cannot link", http.MethodPost, "/project/1/gantt/links/create", 10, http.StatusForbidden},
		{"member saves", http.MethodPost, "/project/1/gantt/save", 11, http.StatusOK},
		{"non member", http.MethodGet, "/project/1/gantt/data", 12, http.StatusForbidden},
		{"other project", http.MethodGet, "/project/2/gantt/data", 11, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(m, pinger{}, nil)

			w := serve(f.router, tc.method, tc.target, bearer(t, tc.user))

			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestPermissions_MembershipLookupFails(t *testing.T) {
	f := newFixture(members{err: errors.New("db down")}, pinger{}, nil)

	w := serve(f.router, http.MethodGet, "/project/1/gantt/data", bearer(t, 10))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Zero(t, f.charts.calls)
}

func TestPermissions_InvalidProject(t *testing.T) {
	f := newFixture(members{}, pinger{}, nil)

	w := serve(f.router, http.MethodGet, "/project/zero/gantt/data", bearer(t, 10))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
