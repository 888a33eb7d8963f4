package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/chunkr/internal/api/shared"
	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/phrazzld/chunkr/internal/store"
	"github.com/phrazzld/chunkr/internal/task"
)

// Errors raised by the HTTP layer itself.
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrMissingFilePath = errors.New("file_path parameter is required")
	ErrPathOutsideWork = errors.New("file is outside the work directory")
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidUpload   = errors.New("invalid upload")
	ErrRequestTooLarge = errors.New("request body too large")
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesErr), errors.Is(err, ErrRequestTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrFileNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrPathOutsideWork):
		return http.StatusForbidden

	case errors.As(err, &validationErrs),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, task.ErrUnknownTaskType),
		errors.Is(err, task.ErrInvalidPayload),
		errors.Is(err, ErrMissingFilePath),
		errors.Is(err, ErrInvalidUpload),
		errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest

	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesErr), errors.Is(err, ErrRequestTooLarge):
		return "Request body too large"
	case errors.Is(err, ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, ErrFileNotFound):
		return "File not found"
	case errors.Is(err, ErrPathOutsideWork):
		return "Access to this file is not allowed"
	case errors.Is(err, ErrMissingFilePath):
		return "file_path parameter is required"
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)
	case errors.Is(err, ErrInvalidUpload):
		return "Invalid upload"
	case errors.Is(err, task.ErrUnknownTaskType):
		return "Unknown task type"
	case errors.Is(err, task.ErrInvalidPayload),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidID):
		return "Invalid task data"
	case errors.Is(err, store.ErrUnavailable):
		return "Task storage is unavailable"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps err to a status code and a safe message, logs the
// redacted error and writes the response. defaultMsg replaces the generic
// message for server errors when non-empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too few values"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
