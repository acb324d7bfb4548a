package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inclusivefin/altcredit/internal/audit"
	"github.com/inclusivefin/altcredit/internal/fairness"
	"github.com/inclusivefin/altcredit/internal/scoring"
	"github.com/inclusivefin/altcredit/internal/utils"
)

// statusFor maps the error taxonomy onto HTTP status codes. Storage-layer
// faults surface as 503 so callers retry instead of treating them as client
// errors.
func statusFor(err error) int {
	switch utils.KindOf(err) {
	case utils.KindSchema, utils.KindLengthMismatch:
		return http.StatusBadRequest
	case utils.KindPermission:
		return http.StatusForbidden
	case utils.KindUnsupported:
		return http.StatusNotImplemented
	case utils.KindNotFound, utils.KindTypeMismatch:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{
		"error":      err.Error(),
		"request_id": requestIDFrom(c),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"environment":   s.env,
		"model_name":    s.pipeline.Bundle().Name,
		"model_version": s.pipeline.Bundle().Version,
		"time":          time.Now().UTC().Format(time.RFC3339),
	})
}

type modelInfo struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	SchemaHash   string    `json:"feature_schema_hash"`
	RegisteredAt time.Time `json:"registered_at"`
	Approved     bool      `json:"approved"`
	Current      bool      `json:"current"`
}

func (s *Server) handleModels(c *gin.Context) {
	idx, err := s.registry.Load()
	if err != nil {
		s.fail(c, err)
		return
	}
	infos := make([]modelInfo, 0, len(idx.Models))
	for _, m := range idx.Models {
		infos = append(infos, modelInfo{
			Name:         m.Name,
			Version:      m.Version,
			SchemaHash:   m.SchemaHash,
			RegisteredAt: m.RegisteredAt,
			Approved:     s.registry.Approved(m.Version),
			Current:      m.Version == idx.Current,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"current": idx.Current,
		"serving": s.pipeline.Bundle().Version,
		"models":  infos,
	})
}

type scoreRequest struct {
	ApplicationID       string             `json:"application_id" binding:"required"`
	Features            map[string]float64 `json:"features" binding:"required"`
	SensitiveAttributes map[string]string  `json:"sensitive_attributes"`
}

func (s *Server) handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, utils.E(utils.KindSchema, "api.handleScore", "decode request", err))
		return
	}
	result, err := s.pipeline.Score(c.Request.Context(), scoring.Request{
		ApplicationID:       req.ApplicationID,
		RequestID:           requestIDFrom(c),
		Features:            req.Features,
		SensitiveAttributes: req.SensitiveAttributes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type explainRequest struct {
	Features map[string]float64 `json:"features" binding:"required"`
}

func (s *Server) handleExplain(c *gin.Context) {
	var req explainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, utils.E(utils.KindSchema, "api.handleExplain", "decode request", err))
		return
	}
	exp, err := s.pipeline.Explain(c.Request.Context(), req.Features)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

type fairnessRequest struct {
	Attribute string   `json:"attribute"`
	Decisions []string `json:"decisions" binding:"required"`
	Groups    []string `json:"groups" binding:"required"`
	Outcomes  []int    `json:"outcomes"`
}

func (s *Server) handleFairness(c *gin.Context) {
	var req fairnessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, utils.E(utils.KindSchema, "api.handleFairness", "decode request", err))
		return
	}
	selected := make([]bool, len(req.Decisions))
	for i, d := range req.Decisions {
		selected[i] = d == "approve"
	}
	report, err := fairness.Compute(selected, req.Groups, req.Attribute, req.Outcomes)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type outcomeRequest struct {
	ApplicationID string         `json:"application_id" binding:"required"`
	OutcomeType   string         `json:"outcome_type" binding:"required"`
	OutcomeValue  int            `json:"outcome_value"`
	Extra         map[string]any `json:"extra"`
}

func (s *Server) handleOutcome(c *gin.Context) {
	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, utils.E(utils.KindSchema, "api.handleOutcome", "decode request", err))
		return
	}
	err := s.audit.WriteOutcome(audit.OutcomeEvent{
		ApplicationID: req.ApplicationID,
		OutcomeType:   req.OutcomeType,
		OutcomeValue:  req.OutcomeValue,
		Extra:         req.Extra,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}

func (s *Server) handleRecent(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.fail(c, utils.Errf(utils.KindSchema, "api.handleRecent", "invalid limit %q", raw))
			return
		}
		limit = n
	}
	if s.limits.RecentLimitMax > 0 && limit > s.limits.RecentLimitMax {
		limit = s.limits.RecentLimitMax
	}
	events, err := s.audit.RecentDecisions(limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if events == nil {
		events = []audit.DecisionEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
