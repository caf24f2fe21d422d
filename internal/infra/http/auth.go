package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"learntrust/internal/domain"
)

const principalContextKey = "principal"

// requireAuth authenticates the caller and, when action is non-empty, runs
// the role/policy check for it. It writes the response itself on failure.
func (s *Server) requireAuth(c *gin.Context, action, resourceID string) (domain.Principal, bool) {
	if s.authInitErr != nil {
		writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
		return domain.Principal{}, false
	}

	var principal domain.Principal
	if s.cfg.AuthMode == "none" {
		// Development mode trusts plain headers. Never enable in production.
		principal = domain.Principal{
			Subject: strings.TrimSpace(c.GetHeader("X-Subject")),
			Roles:   splitRoles(c.GetHeader("X-Roles")),
		}
		if principal.Subject == "" {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject")
			return domain.Principal{}, false
		}
	} else {
		if s.authenticator == nil {
			writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
			return domain.Principal{}, false
		}
		bearer := extractBearerToken(c.GetHeader("Authorization"))
		if bearer == "" {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return domain.Principal{}, false
		}
		authenticated, err := s.authenticator.Authenticate(c.Request.Context(), bearer)
		if err != nil {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
			return domain.Principal{}, false
		}
		principal = authenticated
	}

	if s.authorizer != nil && action != "" {
		if err := s.authorizer.Require(c.Request.Context(), principal, action, resourceID); err != nil {
			writeAuthzError(c, err)
			return domain.Principal{}, false
		}
	}
	c.Set(principalContextKey, principal)
	return principal, true
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func splitRoles(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	roles := make([]string, 0, len(parts))
	for _, part := range parts {
		if role := strings.TrimSpace(part); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
