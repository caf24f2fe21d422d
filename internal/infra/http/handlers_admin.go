package http

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"learntrust/internal/domain"
	"learntrust/internal/infra/auth/rbac"
	cryptoinfra "learntrust/internal/infra/crypto"
)

func (s *Server) handleExportLogs(c *gin.Context) {
	courseID := c.Param("course_id")
	principal, ok := s.requireAuth(c, rbac.ActionLogsExport, courseID)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "logs:export", principal) {
		return
	}
	if format := c.DefaultQuery("format", "csv"); format != "csv" {
		writeErrorCode(c, http.StatusBadRequest, "UNSUPPORTED_FORMAT", "only csv export is supported")
		return
	}

	entries, err := s.ledger.ExportForCourse(c.Request.Context(), s.modules, courseID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "course_"+courseID+"_logs.csv"))
	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{
		"subject", "resource", "event_kind", "metadata",
		"token_fingerprint", "previous_fingerprint", "current_fingerprint", "created_at",
	})
	for _, entry := range entries {
		metadata, err := json.Marshal(entry.Metadata)
		if err != nil {
			metadata = []byte("{}")
		}
		_ = w.Write([]string{
			entry.SubjectID,
			entry.ResourceID,
			entry.EventKind,
			string(metadata),
			entry.TokenFingerprint,
			entry.PreviousFingerprint,
			entry.CurrentFingerprint,
			cryptoinfra.ChainTime(entry.CreatedAt),
		})
	}
	w.Flush()
}

func (s *Server) handleVerifyChain(c *gin.Context) {
	principal, ok := s.requireAuth(c, rbac.ActionLedgerVerify, "")
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "ledger:verify", principal) {
		return
	}
	from, okFrom := parseSeqParam(c.Query("from"))
	to, okTo := parseSeqParam(c.Query("to"))
	if !okFrom || !okTo {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_RANGE", "from and to must be non-negative integers")
		return
	}

	// The cache key carries the tail fingerprint, so any append invalidates
	// cached reports without explicit eviction.
	cacheKey := strconv.FormatInt(from, 10) + ":" + strconv.FormatInt(to, 10)
	if tail, err := s.ledger.Store.Tail(c.Request.Context()); err == nil && tail != nil {
		cacheKey += ":" + tail.CurrentFingerprint
	}
	if cached, found, err := s.verifyCache.Get(c.Request.Context(), cacheKey); err == nil && found {
		c.JSON(http.StatusOK, verificationResponse(*cached))
		return
	}

	report, err := s.ledger.VerifyChain(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	_ = s.verifyCache.Put(c.Request.Context(), cacheKey, report, s.cfg.ChainVerifyCacheTTL())
	c.JSON(http.StatusOK, verificationResponse(report))
}

func (s *Server) handlePackageModule(c *gin.Context) {
	moduleID := c.Param("module_id")
	principal, ok := s.requireAuth(c, rbac.ActionMediaPackage, moduleID)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "media:package", principal) {
		return
	}
	module, err := s.modules.Get(c.Request.Context(), moduleID)
	if err != nil {
		writeError(c, err)
		return
	}

	var req struct {
		SourcePath string `json:"source_path"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
			return
		}
	}
	sourcePath := req.SourcePath
	if sourcePath == "" {
		sourcePath = module.HLSPath
	}
	if sourcePath == "" {
		writeErrorCode(c, http.StatusBadRequest, "MISSING_SOURCE", "source_path is required")
		return
	}

	if !s.workers.Enqueue(moduleID, sourcePath) {
		writeErrorCode(c, http.StatusServiceUnavailable, "QUEUE_FULL", "packaging queue is full")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"module_id": moduleID, "status": "queued"})
}

type chainVerificationResponse struct {
	Valid         bool   `json:"valid"`
	FirstMismatch int64  `json:"first_mismatch,omitempty"`
	From          int64  `json:"from"`
	To            int64  `json:"to"`
	Entries       int64  `json:"entries"`
	TailHash      string `json:"tail_hash,omitempty"`
	CheckedAt     string `json:"checked_at"`
}

func verificationResponse(report domain.ChainVerification) chainVerificationResponse {
	return chainVerificationResponse{
		Valid:         report.Valid,
		FirstMismatch: report.FirstMismatch,
		From:          report.From,
		To:            report.To,
		Entries:       report.Entries,
		TailHash:      report.TailHash,
		CheckedAt:     report.CheckedAt.UTC().Format(time.RFC3339),
	}
}

func parseSeqParam(raw string) (int64, bool) {
	if raw == "" {
		return 0, true
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}
