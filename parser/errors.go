package parser

import (
	"errors"
	"fmt"

	tok "github.com/e91d82c73/stchunk/tokenizer"
)

var (
	// ErrSyntax is the sentinel for malformed expressions and statements.
	ErrSyntax = errors.New("syntax error")
	// ErrUnbalancedBlock is the sentinel for block nesting mismatches.
	ErrUnbalancedBlock = errors.New("unbalanced block nesting")
)

// SyntaxError reports a malformed expression or statement at a position.
// It aborts the enclosing statement, not the whole parse.
type SyntaxError struct {
	Message string
	Pos     tok.Position
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func syntaxErrorf(pos tok.Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf(format, args...), Pos: pos}
}

// UnbalancedBlockError reports an END_* token that does not match the
// innermost open block. It names both the open and the attempted close.
type UnbalancedBlockError struct {
	Expected BlockKind
	Found    string // the END_* keyword that was seen, or "EOF"
	OpenPos  tok.Position
	ClosePos tok.Position
}

func (e *UnbalancedBlockError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("unexpected %s at %d:%d with no open block",
			e.Found, e.ClosePos.Line, e.ClosePos.Column)
	}
	return fmt.Sprintf("block opened at %d:%d (%s) closed by %s at %d:%d",
		e.OpenPos.Line, e.OpenPos.Column, e.Expected,
		e.Found, e.ClosePos.Line, e.ClosePos.Column)
}

func (e *UnbalancedBlockError) Unwrap() error { return ErrUnbalancedBlock }
