// Package common defines shared constants and errors used across the store,
// service and HTTP layers. Sentinel errors are matched with errors.Is, typed
// errors with errors.As.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Identity errors.
	ErrorUnauthenticated = errors.New("not authenticated")
	ErrorForbidden       = errors.New("not authorized")
	ErrorUserNotFound    = errors.New("user not found")

	ErrInvalidToken = errors.New("invalid token")

	// Storage backend for attachments is not configured.
	ErrorStorageDisabled = errors.New("file storage is not configured")
)

// LimitReachedCode is the machine-readable code sent to clients when a daily
// quota is exhausted.
const LimitReachedCode = "DAILY_LIMIT_REACHED"

// ValidationError reports a malformed request. The message is safe to show to
// the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AccessError reports that the caller may not use a resource such as a model.
type AccessError struct {
	Message string
}

func (e *AccessError) Error() string { return e.Message }

// UsageLimitError is returned when a daily message quota is exhausted.
type UsageLimitError struct {
	Limit int64
	Pro   bool
}

func (e *UsageLimitError) Error() string {
	kind := "message"
	if e.Pro {
		kind = "pro model"
	}
	return fmt.Sprintf("Daily %s limit reached (%d). Please try again tomorrow or upgrade your plan.", kind, e.Limit)
}

// Code returns the machine-readable error code.
func (e *UsageLimitError) Code() string { return LimitReachedCode }

// UploadLimitError is returned when the daily attachment quota is exhausted.
type UploadLimitError struct {
	Limit int
}

func (e *UploadLimitError) Error() string {
	return fmt.Sprintf("Daily file upload limit reached (%d). Please try again tomorrow.", e.Limit)
}

func (e *UploadLimitError) Code() string { return LimitReachedCode }
