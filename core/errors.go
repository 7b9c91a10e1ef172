package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by repositories and services when an object does not exist
// or is not visible to the caller.
var ErrNotFound = errors.New("not found")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

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
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ForbiddenError means the caller is identified but not allowed to do what they asked.
type ForbiddenError struct {
	message string
}

func NewForbiddenError(msg string) error {
	return &ForbiddenError{message: msg}
}

func (err ForbiddenError) Error() string {
	return err.message
}

// GoneError means the object existed but is no longer available (e.g. an expired quiz link).
type GoneError struct {
	message string
}

func NewGoneError(msg string) error {
	return &GoneError{message: msg}
}

func (err GoneError) Error() string {
	return err.message
}

// QuotaError is returned when a plan limit would be exceeded.
type QuotaError struct {
	Resource string
	Limit    int
	Tier     string
}

func (err QuotaError) Error() string {
	return fmt.Sprintf("%s quota reached: the %s plan allows %d", err.Resource, err.Tier, err.Limit)
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

func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}
