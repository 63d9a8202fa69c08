package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yishak-cs/bundle-miner/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// respondServiceError maps typed errors to their status and logs the unexpected ones.
func (h *APIHandler) respondServiceError(c *gin.Context, err error, fallbackCode string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		RespondError(c, http.StatusRequestEntityTooLarge, "upload_too_large", err)
		return
	case errors.Is(err, context.DeadlineExceeded):
		RespondError(c, http.StatusGatewayTimeout, "analysis_timeout", err)
		return
	case errors.Is(err, context.Canceled):
		RespondError(c, http.StatusServiceUnavailable, "analysis_cancelled", err)
		return
	}

	status := apierr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	RespondError(c, status, apierr.Code(err, fallbackCode), err)
}
