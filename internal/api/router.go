package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/balkashynov/smgantt/internal/config"
	"github.com/balkashynov/smgantt/internal/schedule"
)

// NewRouter builds the gin engine serving /api/v1
func NewRouter(engine *schedule.Engine, cfg config.ServerConfig, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	useJSONNames()

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Retry-After", "X-Request-ID"},
		MaxAge:        5 * time.Minute,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	router.Use(cors.New(corsCfg))

	h := NewHandler(engine, log)
	router.GET("/healthz", h.Health)

	v1 := router.Group("/api/v1")
	RegisterRoutes(v1, h)
	return router
}

// RegisterRoutes mounts the schedule endpoints on group
func RegisterRoutes(group *gin.RouterGroup, h *Handler) {
	constructions := group.Group("/constructions")
	{
		constructions.GET("", h.ListConstructions)
		constructions.GET("/:id", h.GetConstruction)
		constructions.GET("/:id/tasks", h.ListTasks)
		constructions.GET("/:id/critical_path", h.CriticalPath)
	}

	tasks := group.Group("/tasks")
	{
		tasks.PATCH("/:id", h.UpdateTask)
		tasks.POST("/:id/hold", h.HoldTask)
		tasks.POST("/:id/release_hold", h.ReleaseHold)
		tasks.POST("/:id/start", h.StartTask)
		tasks.POST("/:id/complete", h.CompleteTask)
	}

	dependencies := group.Group("/dependencies")
	{
		dependencies.POST("", h.CreateDependency)
		dependencies.DELETE("/:id", h.DeleteDependency)
	}

	group.GET("/hold_reasons", h.ListHoldReasons)
	group.GET("/healthz", h.Health)
}
