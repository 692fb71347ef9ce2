package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ganttservice/internal/service"
	"ganttservice/pkg/logger"
)

// LinkEditor is the link panel backend.
type LinkEditor interface {
	List(ctx context.Context, projectID, taskID int) (*service.LinkList, error)
	Create(ctx context.Context, projectID, userID, taskID, oppositeTaskID, linkTypeID int) (int, error)
	Remove(ctx context.Context, projectID, userID, taskLinkID int) error
	Search(ctx context.Context, projectID, userID int, q service.SearchQuery) (*service.SearchResult, error)
	Seed(ctx context.Context, projectID, userID int, req service.SeedRequest) error
}

type LinkHandler struct {
	links  LinkEditor
	logger *zap.Logger
}

func NewLinkHandler(links LinkEditor, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{links: links, logger: logger}
}

func (h *LinkHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	pid, ok := projectID(c)
	if !ok {
		invalidParam(c, log, "ListLinks", "invalid project_id")
		return
	}
	taskID, err := strconv.Atoi(c.Query("task_id"))
	if err != nil || taskID <= 0 {
		invalidParam(c, log, "ListLinks", "invalid task_id")
		return
	}

	list, err := h.links.List(ctx, pid, taskID)
	if err != nil {
		respondError(c, log, "ListLinks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"links": list.Links,
		"types": list.Types,
	})
}

type createLinkRequest struct {
	TaskID         int `json:"task_id"`
	OppositeTaskID int `json:"opposite_task_id"`
	LinkID         int `json:"link_id"`
}

func (h *LinkHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	pid, ok := projectID(c)
	if !ok {
		invalidParam(c, log, "CreateLink", "invalid project_id")
		return
	}
	var req createLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidParam(c, log, "CreateLink", "invalid body: %v", err)
		return
	}

	id, err := h.links.Create(ctx, pid, userID(c), req.TaskID, req.OppositeTaskID, req.LinkID)
	if err != nil {
		respondError(c, log, "CreateLink", err)
		return
	}

	log.Info("CreateLink: success",
		zap.Int("project_id", pid),
		zap.Int("task_link_id", id),
		zap.Int("link_id", req.LinkID),
	)
	c.JSON(http.StatusOK, gin.H{"ok": true, "task_link_id": id})
}

type removeLinkRequest struct {
	TaskLinkID int `json:"task_link_id"`
}

func (h *LinkHandler) Remove(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	pid, ok := projectID(c)
	if !ok {
		invalidParam(c, log, "RemoveLink", "invalid project_id")
		return
	}
	var req removeLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidParam(c, log, "RemoveLink", "invalid body: %v", err)
		return
	}

	if err := h.links.Remove(ctx, pid, userID(c), req.TaskLinkID); err != nil {
		respondError(c, log, "RemoveLink", err)
		return
	}

	log.Info("RemoveLink: success", zap.Int("project_id", pid), zap.Int("task_link_id", req.TaskLinkID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Search answers the autocomplete. seq is echoed unchanged.
func (h *LinkHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	pid, ok := projectID(c)
	if !ok {
		invalidParam(c, log, "SearchTasks", "invalid project_id")
		return
	}

	q := service.SearchQuery{
		Q:     c.Query("q"),
		Cross: parseFlag(c.Query("cross")),
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			q.Limit = n
		}
	}
	if raw := c.Query("seq"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			q.Seq = n
		}
	}

	res, err := h.links.Search(ctx, pid, userID(c), q)
	if err != nil {
		respondError(c, log, "SearchTasks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"items": res.Items,
		"seq":   res.Seq,
	})
}

type seedRequest struct {
	TaskLinkID int `json:"task_link_id"`
	SeedTaskID int `json:"seed_task_id"`
	Active     int `json:"active"`
}

// Seed sets the arrow origin of a "relates to" link; active other than 1
// clears it.
func (h *LinkHandler) Seed(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	pid, ok := projectID(c)
	if !ok {
		invalidParam(c, log, "SeedLink", "invalid project_id")
		return
	}
	var req seedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidParam(c, log, "SeedLink", "invalid body: %v", err)
		return
	}

	err := h.links.Seed(ctx, pid, userID(c), service.SeedRequest{
		TaskLinkID: req.TaskLinkID,
		SeedTaskID: req.SeedTaskID,
		Active:     req.Active == 1,
	})
	if err != nil {
		respondError(c, log, "SeedLink", err)
		return
	}

	log.Info("SeedLink: success",
		zap.Int("task_link_id", req.TaskLinkID),
		zap.Int("seed_task_id", req.SeedTaskID),
		zap.Bool("active", req.Active == 1),
	)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
