package service

import (
	"alcyxob/bmi-tracker/internal/validation"
	"errors"
	"strings"
)

// --- Error Definitions ---
var (
	ErrValidation           = errors.New("validation failed")
	ErrUnauthorized         = errors.New("authentication required")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInstructorAuthFailed = errors.New("invalid instructor credentials")
	ErrEmailInUse           = errors.New("email already used")
	ErrUserNotFound         = errors.New("user not found")
	ErrDietPlanNotFound     = errors.New("diet plan not found")
	ErrNoActivePlan         = errors.New("no active diet plan found")
	ErrActivePlanConflict   = errors.New("another diet plan was activated concurrently")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrSessionIssue         = errors.New("failed to start session")
	ErrStorageNotConfigured = errors.New("history export storage is not configured")
)

// ValidationError reports rejected input. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Msg    string
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Msg
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return e.Msg + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(msg string, fields ...validation.FieldError) error {
	return &ValidationError{Msg: msg, Fields: fields}
}
