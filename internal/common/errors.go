package common

import (
	"context"
	"errors"
	"fmt"
)

// Class determines how a failure is handled: Transient failures are retried,
// Permanent failures surface immediately as a failed run, Fatal failures abort
// the whole scheduling pass.
type Class int

const (
	ClassTransient Class = iota
	ClassPermanent
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassFatal:
		return "fatal"
	}
	return "unknown"
}

// Failure wraps an underlying error with a classification and the operation
// that produced it.
type Failure struct {
	Class Class
	Op    string
	Cause error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Op, f.Class, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Op, f.Class)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Transient wraps err as a retryable failure.
func Transient(op string, err error) error {
	return &Failure{Class: ClassTransient, Op: op, Cause: err}
}

// Permanent wraps err as a non-retryable failure.
func Permanent(op string, err error) error {
	return &Failure{Class: ClassPermanent, Op: op, Cause: err}
}

// Fatalf builds a scheduler-fatal failure; these abort the whole pass.
func Fatalf(op, format string, args ...any) error {
	return &Failure{Class: ClassFatal, Op: op, Cause: fmt.Errorf(format, args...)}
}

// ClassOf reports the classification of err. Errors carrying no explicit class
// default to Transient (network-shaped unknowns are worth another try), except
// a canceled context, which nothing can usefully retry.
func ClassOf(err error) Class {
	var f *Failure
	if errors.As(err, &f) {
		return f.Class
	}
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}
	return ClassTransient
}

// WrapError annotates err without changing its classification.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
