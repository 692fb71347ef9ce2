package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ganttservice/internal/handler"
	"ganttservice/internal/repository"
	"ganttservice/pkg/metrics"
	"ganttservice/pkg/rbac"
	"ganttservice/pkg/trace"
	"ganttservice/pkg/util"
)

// MembershipResolver returns the role of a user in a project;
// repository.ErrNotFound when the user is not a member.
type MembershipResolver interface {
	MemberRole(ctx context.Context, projectID, userID int) (string, error)
}

// TraceMiddleware reuses the incoming X-Trace-ID or starts a new one.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromHeader(c.GetHeader(trace.HeaderName))
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// RequestLogger logs every request and records its latency.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), latency)

		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
		)
	}
}

func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing token"})
			c.Abort()
			return
		}

		userID, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid token"})
			c.Abort()
			return
		}

		c.Set(handler.CtxUserID, userID)
		c.Next()
	}
}

// RequireProjectPermission checks that the authenticated user's role in the
// :project_id project grants permission.
func RequireProjectPermission(members MembershipResolver, permission string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt(handler.CtxUserID)
		if userID <= 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "user not authenticated"})
			c.Abort()
			return
		}

		projectID, err := strconv.Atoi(c.Param("project_id"))
		if err != nil || projectID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_params", "message": "invalid project_id"})
			c.Abort()
			return
		}

		role, err := members.MemberRole(c.Request.Context(), projectID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			role = ""
		} else if err != nil {
			logger.Error("Failed to resolve project role",
				zap.Int("project_id", projectID),
				zap.Int("user_id", userID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "internal error"})
			c.Abort()
			return
		}

		if err := rbac.CheckPermission(userID, projectID, role, permission); err != nil {
			logger.Warn("Permission denied",
				zap.Int("project_id", projectID),
				zap.Int("user_id", userID),
				zap.String("permission", permission),
			)
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": err.Error()})
			c.Abort()
			return
		}

		c.Set(handler.CtxProjectID, projectID)
		c.Next()
	}
}
