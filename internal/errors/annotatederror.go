// Package errors provides error annotation helpers for structured logging.
// Errors created here carry slog attributes and the source location of the
// call site so that log output points straight at the offending line.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// annotatedError includes more context than a plain error that is useful for troubleshooting.
type annotatedError struct {
	// msg is the error message.
	msg string
	// pc is the program counter for the location of the error provided by runtime.Callers.
	pc uintptr
	// attrs are slog attributes that are added to the log event to provide more context for the error.
	attrs []slog.Attr
	// wrapped is the underlying error, if any.
	wrapped error
}

func newAnnotated(msg string, wrapped error, attrs []slog.Attr) error {
	var pcs [1]uintptr
	// Skip runtime.Callers, this function, and the exported constructor.
	runtime.Callers(3, pcs[:])
	return &annotatedError{
		msg:     msg,
		pc:      pcs[0],
		attrs:   attrs,
		wrapped: wrapped,
	}
}

// New creates an error with the given message and slog attributes.
func New(msg string, attrs ...slog.Attr) error {
	return newAnnotated(msg, nil, attrs)
}

// Wrap adds a message and slog attributes to err, e.g. context for a sentinel error.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return newAnnotated(msg, err, attrs)
}

// NewSentinel creates a plain error without annotations that call sites can match with Is.
func NewSentinel(msg string) error {
	return errors.New(msg)
}

// SlogError wraps err into an attribute for a log event.
func SlogError(err error) slog.Attr {
	return slog.Any("error", err)
}

// Error implements the error interface.
func (err *annotatedError) Error() string {
	if err.wrapped != nil {
		return fmt.Sprintf("%s: %s", err.msg, err.wrapped.Error())
	}
	return err.msg
}

// Unwrap exposes the underlying error to Is and As.
func (err *annotatedError) Unwrap() error {
	return err.wrapped
}

// LogValue formats the error chain for useful logging.
func (err *annotatedError) LogValue() slog.Value {
	// Retrieve the source location of the error so that developers can locate it faster.
	frames := runtime.CallersFrames([]uintptr{err.pc})
	source, _ := frames.Next()

	attrs := append(
		[]slog.Attr{
			slog.String("msg", err.msg),
			slog.String("source", fmt.Sprintf("%s:%d", source.File, source.Line)),
		},
		err.attrs...,
	)

	if err.wrapped != nil {
		var annotated *annotatedError
		if ok := errors.As(err.wrapped, &annotated); ok {
			attrs = append(attrs, slog.Attr{Key: "wrapped", Value: annotated.LogValue()})
		} else {
			attrs = append(attrs, slog.String("wrapped", err.wrapped.Error()))
		}
	}

	return slog.GroupValue(attrs...)
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}
