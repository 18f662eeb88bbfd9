package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Error codes carried by APIError. The error handler maps each to a
// problem type.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidJSON          = "INVALID_JSON"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeUnsupportedFormat    = "UNSUPPORTED_FORMAT"
	CodeNotFound             = "NOT_FOUND"
	CodeDatasetNotFound      = "DATASET_NOT_FOUND"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
)

// APIError is an error raised at the HTTP boundary, before any domain code
// ran: malformed requests, unknown routes and download names.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError names one rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the Details payload of a VALIDATION_FAILED error
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// ErrRateLimitExceeded is answered once a client exhausts its token bucket
var ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")

// InvalidRequestWithError reports a request that could not be read
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// InvalidJSON reports a body that is not valid JSON
func InvalidJSON(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidJSON, "Request body contains invalid JSON", err.Error())
}

// PayloadTooLarge reports a body above limit bytes
func PayloadTooLarge(limit int64) *APIError {
	return NewWithDetails(http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		"Request body exceeds maximum allowed size", map[string]interface{}{"max_size": limit})
}

// ErrValidation rejects a single field
func ErrValidation(field, message string) *APIError {
	return NewValidationErrors([]ValidationError{{Field: field, Message: message}})
}

// NewValidationErrors rejects several fields at once
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed",
		ValidationErrors{Errors: errors})
}

// UnsupportedMediaType rejects a body sent with another content type
func UnsupportedMediaType(contentType string, allowed []string) *APIError {
	return NewWithDetails(http.StatusUnsupportedMediaType, CodeUnsupportedMediaType, "Unsupported content type",
		map[string]interface{}{
			"content_type": contentType,
			"allowed":      allowed,
		})
}

// UnsupportedFormat rejects an export format or file extension
func UnsupportedFormat(message string, supported []string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeUnsupportedFormat, message,
		map[string]interface{}{"supported": supported})
}

// DatasetNotFound rejects a download name that is not one of the export datasets
func DatasetNotFound(message string, supported []string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeDatasetNotFound, message,
		map[string]interface{}{"supported": supported})
}

// NotFoundError reports a missing resource
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), resource)
}
