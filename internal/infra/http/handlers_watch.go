package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"learntrust/internal/domain"
	"learntrust/internal/infra/auth/rbac"
	"learntrust/internal/usecase"
)

type watchEventRequest struct {
	ModuleID        string   `json:"module_id"`
	EventType       string   `json:"event_type"`
	SequenceNumber  int64    `json:"sequence_number"`
	Position        float64  `json:"position"`
	ClientTimestamp *float64 `json:"client_timestamp"`
}

type watchEventResponse struct {
	EventID          string `json:"event_id"`
	SequenceNumber   int64  `json:"sequence_number"`
	TokenFingerprint string `json:"token_fingerprint"`
	LedgerSeq        int64  `json:"ledger_seq"`
	LedgerHash       string `json:"ledger_hash"`
}

func (s *Server) handleSubmitWatchEvent(c *gin.Context) {
	principal, ok := s.requireAuth(c, "", "")
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "watch-events:submit", principal) {
		return
	}
	var req watchEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}

	outcome, err := s.watchEvents.Submit(c.Request.Context(), usecase.SubmitRequest{
		SubjectID:       principal.Subject,
		ResourceID:      req.ModuleID,
		EventKind:       domain.WatchEventKind(req.EventType),
		SequenceNumber:  req.SequenceNumber,
		Position:        req.Position,
		ClientTimestamp: req.ClientTimestamp,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, watchEventResponse{
		EventID:          outcome.Event.ID,
		SequenceNumber:   outcome.Event.SequenceNumber,
		TokenFingerprint: outcome.Event.TokenFingerprint,
		LedgerSeq:        outcome.Entry.Seq,
		LedgerHash:       outcome.Entry.CurrentFingerprint,
	})
}

func (s *Server) handleHeatmap(c *gin.Context) {
	moduleID := c.Param("module_id")
	principal, ok := s.requireAuth(c, rbac.ActionHeatmapRead, moduleID)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "heatmap:read", principal) {
		return
	}
	if _, err := s.modules.Get(c.Request.Context(), moduleID); err != nil {
		writeError(c, err)
		return
	}
	report, err := s.heatmap.Generate(c.Request.Context(), moduleID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
