// Package handler implements the admin API's HTTP surface over
// scheduler.Scheduler — job CRUD plus pause/resume, the operator-facing
// counterpart to the public Go API spec.md §6 names.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/chronoflow/scheduler/internal/domain"
	"github.com/chronoflow/scheduler/internal/scheduler"
	"github.com/chronoflow/scheduler/internal/trigger"
	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	sched  *scheduler.Scheduler
	logger *slog.Logger
}

func NewJobHandler(sched *scheduler.Scheduler, logger *slog.Logger) *JobHandler {
	return &JobHandler{sched: sched, logger: logger.With("component", "job_handler")}
}

// createJobRequest mirrors spec.md §6's add_job signature. Trigger is the
// wire form trigger.Spec already defines, so the admin API and the
// persistence layer share one encoding for "what a trigger looks like on
// the wire". Callable is always registry-resolved here — a func value
// cannot cross an HTTP boundary.
type createJobRequest struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	RegistryName     string         `json:"registry_name" binding:"required"`
	Args             map[string]any `json:"args"`
	Trigger          trigger.Spec   `json:"trigger" binding:"required"`
	MaxInstances     int            `json:"max_instances"`
	Coalesce         *bool          `json:"coalesce"`
	MisfireGraceSecs *int64         `json:"misfire_grace_seconds"`
	Executor         string         `json:"executor"`
	Store            string         `json:"store"`
	ReplaceExisting  bool           `json:"replace_existing"`
	AlertOnError     bool           `json:"alert_on_error"`
}

func (h *JobHandler) Create(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trig, err := req.Trigger.Build()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := scheduler.AddJobOptions{
		ID:              req.ID,
		Name:            req.Name,
		Args:            req.Args,
		MaxInstances:    req.MaxInstances,
		Coalesce:        req.Coalesce,
		Executor:        req.Executor,
		Store:           req.Store,
		ReplaceExisting: req.ReplaceExisting,
		AlertOnError:    req.AlertOnError,
	}
	if req.MisfireGraceSecs != nil {
		d := secondsToDuration(*req.MisfireGraceSecs)
		opts.MisfireGraceTime = &d
	}

	id, err := h.sched.AddJob(c.Request.Context(), domain.Callable{RegistryName: req.RegistryName, Args: req.Args}, trig, opts)
	if err != nil {
		if errors.Is(err, domain.ErrConflictingID) {
			c.JSON(http.StatusConflict, gin.H{"error": "job already exists"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "create job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.sched.GetJobs(c.Request.Context(), c.Query("store"))
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list jobs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *JobHandler) GetByID(c *gin.Context) {
	job, err := h.sched.GetJob(c.Request.Context(), c.Param("id"), c.Query("store"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "get job", "job_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) Remove(c *gin.Context) {
	err := h.sched.RemoveJob(c.Request.Context(), c.Param("id"), c.Query("store"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "remove job", "job_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobHandler) Pause(c *gin.Context) {
	err := h.sched.PauseJob(c.Request.Context(), c.Param("id"), c.Query("store"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "pause job", "job_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobHandler) Resume(c *gin.Context) {
	err := h.sched.ResumeJob(c.Request.Context(), c.Param("id"), c.Query("store"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "resume job", "job_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

type rescheduleRequest struct {
	Trigger trigger.Spec `json:"trigger" binding:"required"`
}

func (h *JobHandler) Reschedule(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trig, err := req.Trigger.Build()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sched.RescheduleJob(c.Request.Context(), c.Param("id"), trig, c.Query("store")); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "reschedule job", "job_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func secondsToDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}
