package respond

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobapplier-backend/internal/shared/apperr"
)

// FromError maps an apperr-classified error to the standard error envelope.
// Unclassified errors become a generic 500; their text is logged, never returned.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		Error(c, http.StatusBadRequest, "validation_error", publicMessage(err, apperr.ErrValidation), nil)
	case errors.Is(err, apperr.ErrPrecondition):
		Error(c, http.StatusConflict, "precondition_failed", publicMessage(err, apperr.ErrPrecondition), nil)
	case apperr.IsNotFoundLike(err):
		Error(c, http.StatusNotFound, "not_found", "resource not found", nil)
	default:
		c.Set("errorCause", err.Error())
		Error(c, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}

// publicMessage strips the sentinel prefix so callers see only the descriptive part.
func publicMessage(err, sentinel error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, sentinel.Error()+": "); trimmed != "" {
		return trimmed
	}
	return msg
}
