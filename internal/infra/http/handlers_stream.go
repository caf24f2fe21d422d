package http

import (
	"net/http"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"learntrust/internal/domain"
	"learntrust/internal/infra/hls"
)

var segmentNamePattern = regexp.MustCompile(`^(360p|480p|720p)_\d{3}\.ts$`)

func (s *Server) handleStreamToken(c *gin.Context) {
	moduleID := c.Param("module_id")
	principal, ok := s.requireAuth(c, "", "")
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "stream-token:issue", principal) {
		return
	}
	module, err := s.modules.Get(c.Request.Context(), moduleID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !module.IsPublished || (module.ReleaseDate != nil && module.ReleaseDate.After(time.Now().UTC())) {
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "module not available")
		return
	}
	streamToken, err := s.issuer.Issue(principal.Subject, moduleID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      streamToken,
		"expires_in": int(s.cfg.TokenTTL().Seconds()),
	})
}

func (s *Server) handleUnlock(c *gin.Context) {
	moduleID := c.Param("module_id")
	principal, ok := s.requireAuth(c, "", "")
	if !ok {
		return
	}
	module, err := s.modules.Get(c.Request.Context(), moduleID)
	if err != nil {
		writeError(c, err)
		return
	}
	unlocked, err := s.progress.CanUnlock(c.Request.Context(), principal.Subject, module)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"module_id": moduleID, "unlocked": unlocked})
}

// streamSubject verifies the capability token in the query string against the
// path resource. Every failure is the same 403: no detail leaks about whether
// the token was malformed, expired or scoped elsewhere.
func (s *Server) streamSubject(c *gin.Context, resourceID string) (string, bool) {
	subject, ok := s.issuer.VerifyForResource(c.Query("token"), resourceID)
	if !ok {
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "forbidden")
		return "", false
	}
	return subject, true
}

func (s *Server) handleStreamFile(c *gin.Context) {
	moduleID := c.Param("module_id")
	name := c.Param("file")
	if _, ok := s.streamSubject(c, moduleID); !ok {
		return
	}
	if !isPlaylistName(name) && !segmentNamePattern.MatchString(name) {
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "forbidden")
		return
	}
	c.File(filepath.Join(s.packager.ResourceDir(moduleID), name))
}

func (s *Server) handleStreamSegment(c *gin.Context) {
	moduleID := c.Param("module_id")
	name := c.Param("file")
	if _, ok := s.streamSubject(c, moduleID); !ok {
		return
	}
	if !segmentNamePattern.MatchString(name) {
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "forbidden")
		return
	}
	c.File(filepath.Join(s.packager.ResourceDir(moduleID), name))
}

func (s *Server) handleStreamKey(c *gin.Context) {
	moduleID := c.Param("module_id")
	subject, ok := s.streamSubject(c, moduleID)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "stream:key", domain.Principal{Subject: subject}) {
		return
	}
	// Keys must never land in shared caches.
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.File(filepath.Join(s.packager.ResourceDir(moduleID), hls.KeyFileName))
}

func isPlaylistName(name string) bool {
	if name == hls.MasterPlaylistName {
		return true
	}
	for _, variant := range hls.Ladder {
		if name == variant.Name+".m3u8" {
			return true
		}
	}
	return false
}
