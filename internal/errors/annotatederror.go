// Package errors is a drop-in replacement for the standard library errors package that annotates errors with
// [slog.Attr] and a stack trace captured at the first annotation.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

const maxStackDepth = 32

type annotatedError struct {
	msg   string
	err   error
	attrs []slog.Attr
	stack []uintptr
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// NewSentinel creates an error without stack trace, meant for package level sentinel errors compared with [Is].
func NewSentinel(msg string) error {
	return errors.New(msg) //nolint:err113 // this is the sentinel constructor.
}

// New creates an error annotated with attrs and the caller's stack trace.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, err: nil, attrs: attrs, stack: callers()}
}

// Wrap annotates err with msg and attrs. The stack trace is captured only if err does not carry one already.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	var stack []uintptr
	if !hasStack(err) {
		stack = callers()
	}
	return &annotatedError{msg: msg, err: err, attrs: attrs, stack: stack}
}

// DecoratePanic converts a recovered panic value into an error with the stack trace of the panic.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	if err, ok := excp.(error); ok {
		return &annotatedError{msg: "panic", err: err, attrs: nil, stack: callers()}
	}
	return &annotatedError{msg: fmt.Sprintf("panic: %v", excp), err: nil, attrs: nil, stack: callers()}
}

// SlogError returns an [slog.Attr] grouping the error message, the collected annotations and the stack trace.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Any("error", nil)
	}

	var (
		annotations []any
		stack       []uintptr
	)
	for e := err; e != nil; e = errors.Unwrap(e) {
		var ae *annotatedError
		if !errors.As(e, &ae) {
			break
		}
		for _, attr := range ae.attrs {
			annotations = append(annotations, attr)
		}
		if ae.stack != nil {
			stack = ae.stack
		}
		e = ae
	}

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if len(stack) > 0 {
		attrs = append(attrs, slog.String("stack_trace", formatStack(stack)))
	}
	return slog.Group("error", attrs...)
}

func hasStack(err error) bool {
	var ae *annotatedError
	for e := err; e != nil; e = errors.Unwrap(e) {
		if !errors.As(e, &ae) {
			return false
		}
		if ae.stack != nil {
			return true
		}
		e = ae
	}
	return false
}

func callers() []uintptr {
	pcs := make([]uintptr, maxStackDepth)
	// Skip runtime.Callers, callers and the exported constructor.
	n := runtime.Callers(3, pcs) //nolint:mnd // see above.
	return pcs[:n]
}

func formatStack(stack []uintptr) string {
	var sb strings.Builder
	frames := runtime.CallersFrames(stack)
	for {
		frame, more := frames.Next()
		if !strings.HasSuffix(frame.File, "annotatederror.go") && frame.File != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(frame.Function)
			sb.WriteString(" ")
			sb.WriteString(frame.File)
			sb.WriteString(":")
			sb.WriteString(strconv.Itoa(frame.Line))
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// Is reports whether any error in err's tree matches target. See [errors.Is].
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [errors.As].
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err. See [errors.Unwrap].
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join returns an error that wraps the given errors. See [errors.Join].
func Join(errs ...error) error {
	return errors.Join(errs...)
}
