package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/recordbase/internal/domain/entry"
	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/rpggio/recordbase/internal/domain/instance"
	"github.com/rpggio/recordbase/internal/domain/query"
	"github.com/rpggio/recordbase/internal/domain/template"
	"github.com/rpggio/recordbase/internal/ratelimit"
)

var (
	errInvalidParams = errors.New("invalid params")
	// ErrUnknownMethod indicates a method name the handler does not dispatch.
	ErrUnknownMethod = errors.New("unknown method")
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
	err          error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.err
}

// MapError maps domain errors to API error codes. It returns nil for errors
// without a mapping.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var verrs field.ValidationErrors
	if errors.As(err, &verrs) {
		return &APIError{Code: "VALIDATION_FAILED", Message: "submission failed validation", Details: entry.NewReport(verrs), RecoveryHint: "Fix the listed fields and resubmit", err: err}
	}
	switch {
	case errors.Is(err, entry.ErrAccessDenied):
		return &APIError{Code: "ACCESS_DENIED", Message: "access denied", RecoveryHint: "Check capabilities, group membership and the availability window", err: err}
	case errors.Is(err, entry.ErrNotFound):
		return &APIError{Code: "ENTRY_NOT_FOUND", Message: "entry not found", RecoveryHint: "Check the entry id and instance id", err: err}
	case errors.Is(err, instance.ErrInstanceNotFound):
		return &APIError{Code: "INSTANCE_NOT_FOUND", Message: "instance not found", RecoveryHint: "Call list_instances", err: err}
	case errors.Is(err, instance.ErrFieldNotFound):
		return &APIError{Code: "FIELD_NOT_FOUND", Message: "field not found", RecoveryHint: "Call list_fields", err: err}
	case errors.Is(err, instance.ErrDuplicateFieldName):
		return &APIError{Code: "DUPLICATE_FIELD", Message: "field name already exists", RecoveryHint: "Choose another name", err: err}
	case errors.Is(err, entry.ErrEntryLimit):
		return &APIError{Code: "ENTRY_LIMIT", Message: "maximum number of entries reached", err: err}
	case errors.Is(err, field.ErrUnknownType):
		return &APIError{Code: "UNKNOWN_FIELD_TYPE", Message: err.Error(), RecoveryHint: "Use field_type_capabilities to check a type name", err: err}
	case errors.Is(err, entry.ErrNoFileStore):
		return &APIError{Code: "STORAGE_UNAVAILABLE", Message: "file storage not configured", err: err}
	case errors.Is(err, ratelimit.ErrLimited):
		return &APIError{Code: "RATE_LIMITED", Message: "too many requests", RecoveryHint: "Retry later", err: err}
	case errors.Is(err, ErrUnknownMethod):
		return &APIError{Code: "UNKNOWN_METHOD", Message: err.Error(), err: err}
	case errors.Is(err, errInvalidParams),
		errors.Is(err, instance.ErrInvalidInput),
		errors.Is(err, query.ErrInvalidCriterion),
		errors.Is(err, field.ErrInvalidCriterion),
		errors.Is(err, field.ErrNotSearchable),
		errors.Is(err, template.ErrUnknownTemplate),
		errors.Is(err, entry.ErrUnknownField),
		errors.Is(err, entry.ErrEmptySubmission),
		errors.Is(err, entry.ErrNotAttachable),
		errors.Is(err, field.ErrInvalidFileName):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), err: err}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
