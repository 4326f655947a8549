package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/securebank/sentinel/internal/alert"
	"github.com/securebank/sentinel/internal/audit"
	"github.com/securebank/sentinel/internal/fraud"
	"github.com/securebank/sentinel/internal/health"
	"github.com/securebank/sentinel/internal/incident"
	"github.com/securebank/sentinel/internal/validation"
)

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Risk analysis
// -----------------------------------------------------------------------------

type analyzeRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Emotion   string `json:"emotion"`
	Language  string `json:"language"`
}

func (s *Server) analyzeHandler(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "request body must be valid JSON",
		})
		return
	}

	if errs := validation.Validate(
		validation.Required("sessionId", req.SessionID),
		validation.ValidSessionID("sessionId", req.SessionID),
		validation.Required("message", req.Message),
		validation.MaxLength("message", req.Message, validation.MaxMessageLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"details": errs,
		})
		return
	}

	analysis := s.engine.Analyze(c.Request.Context(), fraud.AnalyzeRequest{
		SessionID: req.SessionID,
		Message:   validation.SanitizeString(req.Message, validation.MaxMessageLength),
		Emotion:   fraud.Emotion(req.Emotion),
		Language:  req.Language,
	})

	c.JSON(http.StatusOK, analysis)
}

func (s *Server) sessionRiskHandler(c *gin.Context) {
	snap, ok := s.engine.Snapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "session_not_found",
			"message": "no risk state for this session",
		})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) sessionResetHandler(c *gin.Context) {
	id := c.Param("id")
	if !s.engine.ResetSession(c.Request.Context(), id) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "session_not_found",
			"message": "no risk state for this session",
		})
		return
	}

	snap, _ := s.engine.Snapshot(id)
	c.JSON(http.StatusOK, snap)
}

// -----------------------------------------------------------------------------
// Audit, incidents, alerts
// -----------------------------------------------------------------------------

func (s *Server) auditQueryHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	entries := s.trail.Query(c.Request.Context(), audit.Filter{
		Level:          c.Query("level"),
		ActionContains: c.Query("action"),
		SessionRef:     c.Query("session"),
		Limit:          limit,
	})

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *Server) incidentListHandler(c *gin.Context) {
	incidents, err := s.incidents.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "incident_list_failed",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"incidents": incidents,
		"count":     len(incidents),
	})
}

func (s *Server) incidentGetHandler(c *gin.Context) {
	inc, err := s.incidents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, incident.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "incident_not_found",
				"message": "no incident with this id",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "incident_get_failed",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, inc)
}

type incidentPatchRequest struct {
	State    string `json:"state"`
	WorkNote string `json:"workNote"`
}

func (s *Server) incidentUpdateHandler(c *gin.Context) {
	var req incidentPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "request body must be valid JSON",
		})
		return
	}
	if req.State == "" && req.WorkNote == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "patch must set state or workNote",
		})
		return
	}

	inc, err := s.incidents.Update(c.Request.Context(), c.Param("id"), incident.Patch{
		State:    req.State,
		WorkNote: validation.SanitizeString(req.WorkNote, validation.MaxMessageLength),
	})
	if err != nil {
		if errors.Is(err, incident.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "incident_not_found",
				"message": "no incident with this id",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "incident_update_failed",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, inc)
}

func (s *Server) alertLogHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	outcomes := s.dispatcher.Log(alert.Channel(c.Query("channel")), limit)
	c.JSON(http.StatusOK, gin.H{
		"alerts": outcomes,
		"count":  len(outcomes),
	})
}

func (s *Server) statsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"realtime": s.realtimeHub.Stats(),
		"auditLog": gin.H{"ringEntries": s.trail.Len()},
	})
}
