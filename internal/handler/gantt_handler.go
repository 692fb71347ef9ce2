package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ganttservice/internal/gantt"
	"ganttservice/internal/model"
	"ganttservice/internal/service"
	"ganttservice/pkg/logger"
)

// IdempotencyHeader carries the client's retry key for save requests.
const IdempotencyHeader = "X-Idempotency-Key"

// ChartReader serves the read side of the chart.
type ChartReader interface {
	Chart(ctx context.Context, projectID int, opts service.ChartOptions) ([]model.ChartRow, error)
	Dependencies(ctx context.Context, projectID int, taskIDs, linkTypeIDs []int, sameProjectOnly bool) (*service.DependencyResult, error)
	TaskDetail(ctx context.Context, projectID, taskID int) (*model.TaskDetail, error)
}

// DateSaver persists date edits.
type DateSaver interface {
	UpdateDates(ctx context.Context, projectID int, upd model.DateUpdate) (*service.SaveResult, error)
}

// Deduper drops retried requests; *util.Deduper implements it.
type Deduper interface {
	AcquireOnce(ctx context.Context, scope, key string) bool
	Release(ctx context.Context, scope, key string)
}

const saveDedupScope = "gantt_save"

type GanttHandler struct {
	charts  ChartReader
	saver   DateSaver
	deduper Deduper
	loc     *time.Location
	logger  *zap.Logger
}

// NewGanttHandler builds the chart handler. deduper may be nil, in which case
// every save is applied.
func NewGanttHandler(charts ChartReader, saver DateSaver, deduper Deduper, loc *time.Location, logger *zap.Logger) *GanttHandler {
	return &GanttHandler{
		charts:  charts,
		saver:   saver,
		deduper: deduper,
		loc:     loc,
		logger:  logger,
	}
}

// Data returns the chart rows of the project.
func (h *GanttHandler) Data(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	pid, ok := projectID(c)
	if !ok {
		invalidParam(c, log, "Data", "invalid project_id")
		return
	}

	opts := service.ChartOptions{
		ShowNoDate:      parseFlag(c.Query("show_no_date")),
		LinkTypeIDs:     parseIDList(c.Query("link_ids")),
		SameProjectOnly: parseFlag(c.Query("same_project_only")),
	}
	log.Debug("Data request received",
		zap.Int("project_id", pid),
		zap.Bool("show_no_date", opts.ShowNoDate),
		zap.Ints("link_ids", opts.LinkTypeIDs),
	)

	rows, err := h.charts.Chart(ctx, pid, opts)
	if err != nil {
		respondError(c, log, "Data", err)
		return
	}
	if rows == nil {
		rows = []model.ChartRow{}
	}
	c.JSON(http.StatusOK, rows)
}

// Deps returns the dependency map of the requested tasks.
func (h *GanttHandler) Deps(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	pid, ok := projectID(c)
	if !ok {
		invalidParam(c, log, "Deps", "invalid project_id")
		return
	}
	linkIDs := parseIDList(c.Query("link_ids"))
	if len(linkIDs) == 0 {
		invalidParam(c, log, "Deps", "missing link_ids")
		return
	}

	res, err := h.charts.Dependencies(ctx, pid,
		parseIDList(c.Query("task_ids")),
		linkIDs,
		parseFlag(c.Query("same_project_only")),
	)
	if err != nil {
		respondError(c, log, "Deps", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                true,
		"project_id":        res.ProjectID,
		"count_tasks":       res.CountTasks,
		"same_project_only": res.SameProjectOnly,
		"map":               res.Map,
	})
}

// Task returns the side panel of one task.
func (h *GanttHandler) Task(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	pid, ok := projectID(c)
	if !ok {
		invalidParam(c, log, "Task", "invalid project_id")
		return
	}
	taskID, err := strconv.Atoi(c.Param("task_id"))
	if err != nil || taskID <= 0 {
		invalidParam(c, log, "Task", "invalid task_id")
		return
	}

	detail, err := h.charts.TaskDetail(ctx, pid, taskID)
	if err != nil {
		respondError(c, log, "Task", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type saveRequest struct {
	TaskID   int     `json:"task_id"`
	Start    *string `json:"start"`
	End      *string `json:"end"`
	Duration *int    `json:"duration"`
}

// Save applies a date edit and reports which tasks the blocker rule moved.
func (h *GanttHandler) Save(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	pid, ok := projectID(c)
	if !ok {
		invalidParam(c, log, "Save", "invalid project_id")
		return
	}

	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidParam(c, log, "Save", "invalid body: %v", err)
		return
	}
	if req.TaskID <= 0 {
		invalidParam(c, log, "Save", "missing task_id")
		return
	}

	upd := model.DateUpdate{TaskID: req.TaskID, Duration: req.Duration}
	var err error
	if upd.Start, err = h.parseDate(req.Start); err != nil {
		invalidParam(c, log, "Save", "invalid start %q", *req.Start)
		return
	}
	if upd.End, err = h.parseDate(req.End); err != nil {
		invalidParam(c, log, "Save", "invalid end %q", *req.End)
		return
	}

	var dedupKey string
	if h.deduper != nil {
		if key := c.GetHeader(IdempotencyHeader); key != "" {
			dedupKey = strconv.Itoa(pid) + ":" + key
			if !h.deduper.AcquireOnce(ctx, saveDedupScope, dedupKey) {
				c.JSON(http.StatusOK, gin.H{"ok": true, "duplicate": true, "shifted": []int{}})
				return
			}
		}
	}

	res, err := h.saver.UpdateDates(ctx, pid, upd)
	if err != nil {
		if dedupKey != "" {
			// the edit was not applied, a retry with the same key must run
			h.deduper.Release(ctx, saveDedupScope, dedupKey)
		}
		respondError(c, log, "Save", err)
		return
	}

	log.Info("Save: success",
		zap.Int("project_id", pid),
		zap.Int("task_id", req.TaskID),
		zap.Int("shifted", len(res.Shifted)),
	)
	c.JSON(http.StatusOK, gin.H{"ok": true, "shifted": res.Shifted})
}

// parseDate reads an optional YYYY-MM-DD value; blank means absent.
func (h *GanttHandler) parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := gantt.ParseDay(strings.TrimSpace(*raw), h.loc)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
