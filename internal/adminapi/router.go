// Package adminapi is the scheduler's operator-facing HTTP surface: job
// CRUD plus pause/resume/reschedule over scheduler.Scheduler, and
// liveness/readiness probes. Grounded directly on the scheduler's own
// gin router: same middleware stack (recovery, request id, slog-gin
// access log, prometheus), same HS256 bearer auth shape — extended here
// with jobs:read/jobs:write scopes so a read-only operator token can't
// mutate the job set.
package adminapi

import (
	"log/slog"

	"github.com/chronoflow/scheduler/internal/adminapi/handler"
	"github.com/chronoflow/scheduler/internal/adminapi/middleware"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, jobHandler *handler.JobHandler, healthHandler *handler.HealthHandler, jwtKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	jobs := r.Group("/jobs", middleware.Auth(jwtKey))
	jobs.GET("", middleware.RequireScope("jobs:read"), jobHandler.List)
	jobs.GET("/:id", middleware.RequireScope("jobs:read"), jobHandler.GetByID)
	jobs.POST("", middleware.RequireScope("jobs:write"), jobHandler.Create)
	jobs.DELETE("/:id", middleware.RequireScope("jobs:write"), jobHandler.Remove)
	jobs.POST("/:id/pause", middleware.RequireScope("jobs:write"), jobHandler.Pause)
	jobs.POST("/:id/resume", middleware.RequireScope("jobs:write"), jobHandler.Resume)
	jobs.POST("/:id/reschedule", middleware.RequireScope("jobs:write"), jobHandler.Reschedule)

	return r
}
