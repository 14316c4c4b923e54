package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"scoreparse/internal/domain"
	"scoreparse/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "forbidden"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: xlsx, docx, pptx"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrMalformedMapping):
		return http.StatusUnprocessableEntity, "MALFORMED_MAPPING", "mapping plan could not be read"
	case errors.Is(err, domain.ErrSessionNotConfirmed):
		return http.StatusConflict, "SESSION_NOT_CONFIRMED", "session has no records until it is confirmed"
	case errors.Is(err, domain.ErrNoExtractableData):
		return http.StatusUnprocessableEntity, "NO_EXTRACTABLE_DATA", "no records could be extracted with this mapping"
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusGone, "SESSION_EXPIRED", "parse session expired, please re-preview the file"
	case errors.Is(err, domain.ErrSessionAlreadyConfirmed):
		return http.StatusConflict, "SESSION_ALREADY_CONFIRMED", "parse session already confirmed"
	case errors.Is(err, domain.ErrTransientProvider):
		return http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE", "reasoning provider temporarily unavailable, retry later"
	case errors.Is(err, domain.ErrNonRecoverableProvider):
		return http.StatusBadGateway, "PROVIDER_ERROR", "reasoning provider rejected the request"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	requestID := c.GetString(middleware.ContextKeyRequestID)
	switch {
	case status >= 500:
		slog.Error("handler: request failed", "request_id", requestID, "code", code, "error", err)
	case status == http.StatusUnprocessableEntity:
		slog.Warn("handler: unprocessable request", "request_id", requestID, "code", code, "error", err)
	}
	RespondError(c, status, code, msg)
}

// ownerID extracts the caller identity. Returns false if it is missing
// (error response already written).
func ownerID(c *gin.Context) (string, bool) {
	id, err := middleware.GetOwnerID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
		return "", false
	}
	return id, true
}
