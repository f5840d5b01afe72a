package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes structural errors.
type ErrorCode string

const (
	// ErrCodeRegistrationConflict indicates a record name was registered twice
	// with incompatible fields or classification.
	ErrCodeRegistrationConflict ErrorCode = "REGISTRATION_CONFLICT"

	// ErrCodeUnsupportedFieldType indicates static metadata that cannot be
	// represented as a stable hashable value.
	ErrCodeUnsupportedFieldType ErrorCode = "UNSUPPORTED_FIELD_TYPE"

	// ErrCodeUnknownField indicates a field name (or path segment) that is not
	// declared at that level.
	ErrCodeUnknownField ErrorCode = "UNKNOWN_FIELD"

	// ErrCodeLengthMismatch indicates a per-element value sequence whose length
	// disagrees with its target.
	ErrCodeLengthMismatch ErrorCode = "LENGTH_MISMATCH"

	// ErrCodeMissingField indicates a required field without a default was not set.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeTypeMismatch indicates a value that does not conform to the
	// field's declared type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeStructureMismatch indicates two trees whose structure or static
	// metadata differ.
	ErrCodeStructureMismatch ErrorCode = "STRUCTURE_MISMATCH"

	// ErrCodeShapeMismatch indicates array leaves whose shapes are incompatible
	// with the requested operation.
	ErrCodeShapeMismatch ErrorCode = "SHAPE_MISMATCH"

	// ErrCodeNotRegistered indicates a record type unknown to the registry.
	ErrCodeNotRegistered ErrorCode = "NOT_REGISTERED"
)

// Error is the structural error raised by record, registry, path and
// compaction operations.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Record names the record type involved, if any.
	Record string

	// Field names the field or path involved, if any.
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Record != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (record=%s, field=%s)", e.Code, e.Message, e.Record, e.Field)
	case e.Record != "":
		return fmt.Sprintf("%s: %s (record=%s)", e.Code, e.Message, e.Record)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *Error by code, so errors.Is(err, &Error{Code: c}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// HasCode reports whether err wraps an *Error with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsUnknownField returns true if err is an unknown-field error.
func IsUnknownField(err error) bool { return HasCode(err, ErrCodeUnknownField) }

// IsLengthMismatch returns true if err is a length-mismatch error.
func IsLengthMismatch(err error) bool { return HasCode(err, ErrCodeLengthMismatch) }

// IsRegistrationConflict returns true if err is a registration conflict.
func IsRegistrationConflict(err error) bool { return HasCode(err, ErrCodeRegistrationConflict) }

// IsUnsupportedFieldType returns true if err is an unsupported-field-type error.
func IsUnsupportedFieldType(err error) bool { return HasCode(err, ErrCodeUnsupportedFieldType) }

// Errorf creates an *Error with a formatted message.
func Errorf(code ErrorCode, record, field, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Record:  record,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewUnknownFieldError creates an Error for an undeclared field name.
func NewUnknownFieldError(record, field string) *Error {
	return Errorf(ErrCodeUnknownField, record, field, "no such field")
}

// NewLengthMismatchError creates an Error for a per-element length disagreement.
func NewLengthMismatchError(record, field string, want, got int) *Error {
	return Errorf(ErrCodeLengthMismatch, record, field, "expected %d values, got %d", want, got)
}
