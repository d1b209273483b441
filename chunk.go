// Package stchunk turns Beckhoff TwinCAT source files into a flat sequence
// of semantically typed code chunks with fully qualified names, suitable
// for indexing and search. It accepts both XML container files (.TcPOU,
// .TcGVL, .TcDUT) and plain Structured Text.
package stchunk

import (
	"fmt"

	tok "github.com/e91d82c73/stchunk/tokenizer"
)

// ChunkType is the closed set of chunk kinds. New kinds are added here,
// never as ad hoc strings.
type ChunkType string

const (
	ChunkProgram       ChunkType = "program"
	ChunkFunctionBlock ChunkType = "function_block"
	ChunkFunction      ChunkType = "function"
	ChunkMethod        ChunkType = "method"
	ChunkProperty      ChunkType = "property"
	ChunkAction        ChunkType = "action"
	ChunkStruct        ChunkType = "struct"
	ChunkEnum          ChunkType = "enum"
	ChunkTypeAlias     ChunkType = "type_alias"
	ChunkInterface     ChunkType = "interface"
	ChunkGvl           ChunkType = "gvl"
	ChunkField         ChunkType = "field"
	ChunkVariable      ChunkType = "variable"
	ChunkBlock         ChunkType = "block"
	ChunkComment       ChunkType = "comment"
)

// SourceSpan locates a chunk in the decoded file. Offsets and coordinates
// are always absolute file positions, never positions inside an extracted
// CDATA payload.
type SourceSpan struct {
	StartOffset int `json:"start_offset" yaml:"start_offset"`
	EndOffset   int `json:"end_offset" yaml:"end_offset"`
	StartLine   int `json:"start_line" yaml:"start_line"`
	StartCol    int `json:"start_col" yaml:"start_col"`
}

func spanOf(start, end tok.Position) SourceSpan {
	return SourceSpan{
		StartOffset: start.Offset,
		EndOffset:   end.Offset,
		StartLine:   start.Line,
		StartCol:    start.Column,
	}
}

// Metadata holds the optional per-chunk fields. An absent key means "not
// applicable", not "unknown".
type Metadata map[string]any

// Chunk is one extracted code unit. FQN is unique within one file's chunk
// set and extends its parent's FQN by exactly one dot-separated segment.
type Chunk struct {
	Type     ChunkType  `json:"type" yaml:"type"`
	FQN      string     `json:"fqn" yaml:"fqn"`
	Span     SourceSpan `json:"span" yaml:"span"`
	Code     string     `json:"code,omitempty" yaml:"code,omitempty"`
	Metadata Metadata   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Warning is a recoverable problem noted during parsing. Warnings never
// abort a parse; they accompany whatever chunks were produced.
type Warning struct {
	Message string     `json:"message" yaml:"message"`
	Span    SourceSpan `json:"span" yaml:"span"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%d:%d: %s", w.Span.StartLine, w.Span.StartCol, w.Message)
}

// ParseResult is the outcome of parsing one file: the ordered chunk
// sequence plus the ordered warning list.
type ParseResult struct {
	Chunks   []Chunk   `json:"chunks" yaml:"chunks"`
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}
