package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ambergate/sellerops/internal/domain"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/ambergate/sellerops/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// JobHandler serves report job rows and the requeue operation for the
// back-office dashboard. Jobs are only ever mutated by the poll loop and
// the explicit requeue; there is no other write surface here.
type JobHandler struct {
	jobs         *repository.ReportJobRepository
	orchestrator *service.Orchestrator
}

// NewJobHandler creates a new JobHandler.
// Parameters:
//   - jobs: report job repository.
//   - orchestrator: orchestrator used for requeue.
// Returns:
//   - *JobHandler: handler instance.
func NewJobHandler(jobs *repository.ReportJobRepository, orchestrator *service.Orchestrator) *JobHandler {
	return &JobHandler{jobs: jobs, orchestrator: orchestrator}
}

// ListJobs returns report jobs, newest first.
// Query params: status, limit, offset.
func (h *JobHandler) ListJobs(c *gin.Context) {
	status := domain.ReportJobStatus(c.Query("status"))
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	jobs, err := h.jobs.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// GetJob returns one report job by ID.
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// RequeueJob creates a fresh queued job from a terminal one.
func (h *JobHandler) RequeueJob(c *gin.Context) {
	job, err := h.orchestrator.Requeue(c.Request.Context(), c.Param("id"), time.Minute)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		case errors.Is(err, service.ErrNotTerminal):
			c.JSON(http.StatusConflict, gin.H{"error": "job is still in flight"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to requeue job"})
		}
		return
	}
	c.JSON(http.StatusCreated, job)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
