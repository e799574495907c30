package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return fmt.Sprintf("%s: %s", err.Fields[0].Field, err.Fields[0].Error)
		}
		return "validation failed"
	}
	return err.Err.Error()
}

// ConflictError reports a duplicate unique key.
type ConflictError struct {
	Message string
	Field   string
}

func NewConflictError(msg, field string) error {
	return &ConflictError{Message: msg, Field: field}
}

func (err ConflictError) Error() string { return err.Message }

// NotFoundError reports that the target of an operation does not exist.
type NotFoundError struct {
	Entity string
}

func NewNotFoundError(entity string) error {
	return &NotFoundError{Entity: entity}
}

func (err NotFoundError) Error() string { return err.Entity + " not found" }

// StoreError wraps an underlying persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (err StoreError) Error() string { return err.Op + ": " + err.Err.Error() }

func (err StoreError) Unwrap() error { return err.Err }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
