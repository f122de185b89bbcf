package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MyStarInYourSky/zthost/models"
)

// Status is the daemon state served on GET /status.
type Status struct {
	// NodeID is the local agent's 10-character node address.
	NodeID string `json:"node_id"`

	// Version is the zthost build version.
	Version string `json:"version"`

	// StartedAt is when the daemon started.
	StartedAt time.Time `json:"started_at"`

	// Interval is the reconciliation interval in seconds.
	Interval float64 `json:"interval_seconds"`

	// LastRun is the most recent reconciliation summary, nil before the
	// first run completes.
	LastRun *models.RunSummary `json:"last_run,omitempty"`

	// LastRunError is the host-level error of the most recent run, empty
	// when the run produced a summary.
	LastRunError string `json:"last_run_error,omitempty"`
}

// StatusProvider is the daemon state the API serves. The daemon manager
// implements it.
type StatusProvider interface {
	// Status returns a snapshot of the daemon state.
	Status() Status

	// TriggerReconcile requests an immediate reconciliation run. It
	// returns false if a trigger is already pending.
	TriggerReconcile() bool
}

// Handler handles the status API endpoints.
type Handler struct {
	status StatusProvider
}

// NewHandler creates a status API handler.
func NewHandler(status StatusProvider) *Handler {
	return &Handler{status: status}
}

// ErrorResponse is the standardized error response body.
type ErrorResponse struct {
	// Error is the error code (e.g., "not_ready").
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Liveness handles GET /health/live. It returns 200 as long as the HTTP
// server is running.
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /health/ready. The daemon is ready once the first
// reconciliation run has completed, successfully or not.
func (h *Handler) Readiness(c *gin.Context) {
	status := h.status.Status()
	if status.LastRun == nil && status.LastRunError == "" {
		respondError(c, http.StatusServiceUnavailable, "not_ready", "No reconciliation run has completed yet")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Status handles GET /status with the full daemon state snapshot.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Status())
}

// TriggerReconcile handles POST /reconcile. It schedules an immediate run
// and returns 202; the run itself happens on the daemon's loop.
func (h *Handler) TriggerReconcile(c *gin.Context) {
	if !h.status.TriggerReconcile() {
		respondError(c, http.StatusConflict, "already_pending", "A reconciliation trigger is already pending")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

func respondError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
