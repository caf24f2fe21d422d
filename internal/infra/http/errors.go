package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"learntrust/internal/domain"
	"learntrust/internal/infra/auth/rbac"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, err error) {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		writeErrorCode(c, http.StatusBadRequest, validation.Code, validation.Message)
		return
	}
	var storage *domain.StorageError
	if errors.As(err, &storage) {
		// Operator detail stays in the logs; clients get a generic envelope.
		writeErrorCode(c, http.StatusInternalServerError, "STORAGE_FAILURE", "storage failure, please retry")
		return
	}

	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrDuplicateSequence):
		status, code = http.StatusConflict, "DUPLICATE_SEQUENCE"
	case errors.Is(err, domain.ErrImmutable):
		status, code = http.StatusConflict, "IMMUTABLE"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}

func writeAuthzError(c *gin.Context, err error) {
	if authz, ok := rbac.IsAuthzError(err); ok {
		writeErrorCode(c, http.StatusForbidden, authz.Code, "forbidden")
		return
	}
	writeError(c, err)
}

func errUnknownAuthMode(mode string) error {
	return fmt.Errorf("unknown auth mode %q", mode)
}
