package stchunk

import (
	"errors"
	"fmt"
)

// Common errors used throughout the stchunk package
var (
	// ErrDuplicateFqn is returned when two chunks in one file would share a
	// fully qualified name.
	ErrDuplicateFqn = errors.New("duplicate fully qualified name")
	// ErrUnsupportedFile indicates a file extension no entry point handles.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrNoContent indicates a container with neither declaration nor
	// implementation text.
	ErrNoContent = errors.New("container has no extractable content")
)

// DuplicateFqnError reports two chunks with the same fully qualified name.
// Duplicate names are an authoring error in the source file; the whole
// file fails rather than being indexed under an ambiguous identity.
type DuplicateFqnError struct {
	FQN    string
	First  SourceSpan
	Second SourceSpan
}

func (e *DuplicateFqnError) Error() string {
	return fmt.Sprintf("duplicate fully qualified name %q (line %d and line %d)",
		e.FQN, e.First.StartLine, e.Second.StartLine)
}

func (e *DuplicateFqnError) Unwrap() error { return ErrDuplicateFqn }
