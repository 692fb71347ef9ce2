package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ganttservice/internal/handler"
	"ganttservice/pkg/rbac"
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnStatus reports broker connectivity; *mq.Publisher implements it.
type ConnStatus interface {
	IsConnected() bool
}

type Router struct {
	Engine *gin.Engine
}

// NewRouter wires the chart routes under /project/:project_id/gantt. mq may
// be nil when the service runs without a broker.
func NewRouter(
	ganttHandler *handler.GanttHandler,
	linkHandler *handler.LinkHandler,
	members MembershipResolver,
	jwtSecret string,
	db Pinger,
	mq ConnStatus,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if mq != nil && !mq.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	allow := func(permission string) gin.HandlerFunc {
		return RequireProjectPermission(members, permission, logger)
	}

	g := r.Group("/project/:project_id/gantt")
	g.Use(AuthMiddleware(jwtSecret))
	{
		g.GET("/data", allow(rbac.PermissionViewChart), ganttHandler.Data)
		g.GET("/deps", allow(rbac.PermissionViewChart), ganttHandler.Deps)
		g.GET("/tasks/:task_id", allow(rbac.PermissionViewChart), ganttHandler.Task)
		g.POST("/save", allow(rbac.PermissionEditDates), ganttHandler.Save)

		g.GET("/links", allow(rbac.PermissionViewChart), linkHandler.List)
		g.GET("/links/search", allow(rbac.PermissionViewChart), linkHandler.Search)
		g.POST("/links/create", allow(rbac.PermissionEditLinks), linkHandler.Create)
		g.POST("/links/remove", allow(rbac.PermissionEditLinks), linkHandler.Remove)
		g.POST("/links/seed", allow(rbac.PermissionSeedArrows), linkHandler.Seed)
	}

	return &Router{Engine: r}
}
