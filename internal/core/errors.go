package core

import (
	"errors"
	"fmt"
)

// ValidationError reports bad input shape or range on a named field.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %v", e.Err)
	}
	return fmt.Sprintf("invalid %s (%v): %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConflictError reports a mutation that would break a linked record, such as
// removing one leg of a transfer.
type ConflictError struct {
	Resource string
	ID       string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Resource, e.ID, e.Reason)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// UpstreamError wraps a failure of an external collaborator.
type UpstreamError struct {
	Service string
	Op      string
	Timeout bool
	Cause   error
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s timed out: %v", e.Service, e.Op, e.Cause)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Cause)
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

func invalid(field string, value any, err error) error {
	return &ValidationError{Field: field, Value: value, Err: err}
}

// Invalid builds a ValidationError for field.
func Invalid(field string, value any, err error) error {
	return invalid(field, value, err)
}

// NotFound builds a NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// UnknownReference reports a field pointing at a record that does not exist.
// The result satisfies both IsValidation and IsNotFound.
func UnknownReference(field, resource, id string) error {
	return &ValidationError{Field: field, Value: id, Err: NotFound(resource, id)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}
