package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "ganttservice/pkg/errors"
)

// Context keys set by the httpserver middleware.
const (
	CtxUserID    = "user_id"
	CtxProjectID = "project_id"
)

func userID(c *gin.Context) int {
	if v, ok := c.Get(CtxUserID); ok {
		if id, ok := v.(int); ok {
			return id
		}
	}
	return 0
}

// projectID prefers the id resolved by the membership middleware and falls
// back to the route parameter.
func projectID(c *gin.Context) (int, bool) {
	if v, ok := c.Get(CtxProjectID); ok {
		if id, ok := v.(int); ok && id > 0 {
			return id, true
		}
	}
	id, err := strconv.Atoi(c.Param("project_id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseIDList reads a comma separated id list. Blank, non-numeric and
// non-positive entries are skipped.
func parseIDList(raw string) []int {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// parseFlag accepts 1/true/yes/on, case-insensitively.
func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// respondError renders err as {"error": code, "message": text}. Internal
// errors are logged; the rest are client mistakes.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status := apperrors.HTTPStatus(err)
	code := apperrors.GetCode(err)
	if code == apperrors.CodeInternal {
		logger.Error(op+": failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	} else {
		logger.Warn(op+": rejected",
			zap.String("code", string(code)),
			zap.String("reason", apperrors.UserMessage(err)),
		)
	}
	c.JSON(status, gin.H{
		"error":   string(code),
		"message": apperrors.UserMessage(err),
	})
}

func invalidParam(c *gin.Context, logger *zap.Logger, op, format string, args ...any) {
	respondError(c, logger, op, apperrors.New(apperrors.CodeInvalidInput, format, args...))
}
