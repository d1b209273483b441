package container

import (
	"errors"
	"fmt"
)

// Sentinel errors to test against with errors.Is.
var (
	ErrMalformedContainer = errors.New("malformed container")
)

// MalformedContainerError reports a structurally broken project file: XML
// that does not parse, a missing TcPlcObject root, or an object element
// without a Name attribute.
type MalformedContainerError struct {
	Message string
}

func (e *MalformedContainerError) Error() string {
	return fmt.Sprintf("malformed container: %s", e.Message)
}

func (e *MalformedContainerError) Unwrap() error { return ErrMalformedContainer }

func malformedf(format string, args ...any) *MalformedContainerError {
	return &MalformedContainerError{Message: fmt.Sprintf(format, args...)}
}
