// Package errinfo normalizes arbitrary failure values into well-formed
// errors carrying a message and a stack trace.
//
// A failure observed while rendering can be a returned error or a value
// recovered from a panic. Both are modelled by the Info sum type:
//
//   - *Structured: a normalized error with message, stack and cause
//   - *Unknown:    a raw value that was not an error (a panic payload)
//
// Coalesce turns any value into the *Structured variant.
package errinfo

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// Info is implemented by *Structured and *Unknown only.
type Info interface {
	error
	info()
}

// Structured is a normalized error.
type Structured struct {
	// Message is the human-readable description.
	Message string

	// Stack is the stack trace text. The first line is "Error: <Message>".
	Stack string

	// Cause is the original error, if the failure was an error value.
	Cause error
}

func (*Structured) info() {}

// Error implements the error interface.
func (s *Structured) Error() string {
	return s.Message
}

// Unwrap returns the cause for errors.Is/As support.
func (s *Structured) Unwrap() error {
	return s.Cause
}

// StackTrace returns the stack text.
func (s *Structured) StackTrace() string {
	return s.Stack
}

// Unknown wraps a value that is not an error, typically a recovered panic.
type Unknown struct {
	// Value is the raw value.
	Value any

	// Stack is the goroutine stack captured where the value was recovered.
	Stack []byte
}

func (*Unknown) info() {}

// Error implements the error interface.
func (u *Unknown) Error() string {
	return fmt.Sprintf("non-error thrown: %v", u.Value)
}

// Recovered wraps a recovered panic value, capturing the current stack.
// Call it from the deferred function that called recover.
func Recovered(v any) *Unknown {
	return &Unknown{Value: v, Stack: debug.Stack()}
}

// stackTracer is implemented by errors that carry their own stack text.
type stackTracer interface {
	StackTrace() string
}

// Coalesce normalizes v into a *Structured. It never returns nil.
func Coalesce(v any) *Structured {
	switch x := v.(type) {
	case *Structured:
		if x != nil {
			return x
		}
		return fromValue(nil, debug.Stack())
	case *Unknown:
		if x == nil {
			return fromValue(nil, debug.Stack())
		}
		if err, ok := x.Value.(error); ok {
			return fromError(err, x.Stack)
		}
		return fromValue(x.Value, x.Stack)
	case error:
		var u *Unknown
		if errors.As(x, &u) && u != nil {
			s := Coalesce(u)
			s.Message = x.Error()
			s.Stack = formatStack(s.Message, u.Stack)
			s.Cause = x
			return s
		}
		return fromError(x, nil)
	default:
		return fromValue(v, debug.Stack())
	}
}

func fromError(err error, stack []byte) *Structured {
	msg := err.Error()
	var st stackTracer
	if errors.As(err, &st) {
		if text := st.StackTrace(); text != "" {
			return &Structured{Message: msg, Stack: text, Cause: err}
		}
	}
	if stack == nil {
		stack = debug.Stack()
	}
	return &Structured{Message: msg, Stack: formatStack(msg, stack), Cause: err}
}

func fromValue(v any, stack []byte) *Structured {
	msg := fmt.Sprintf("non-error thrown: %v", v)
	return &Structured{Message: msg, Stack: formatStack(msg, stack)}
}

func formatStack(msg string, stack []byte) string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(msg)
	if trace := strings.TrimSpace(string(stack)); trace != "" {
		b.WriteString("\n")
		b.WriteString(trace)
	}
	return b.String()
}
