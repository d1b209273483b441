package parser

import (
	tok "github.com/e91d82c73/stchunk/tokenizer"
)

// ParseObject parses a complete textual POU source: a header, its
// declaration sections and the implementation body up to the matching
// END_* keyword. This is the entry point for plain .st files, where
// declaration and implementation are not split into separate sections.
func ParseObject(src string) (*Object, []Warning, error) {
	dp := &declParser{src: src}
	s, err := newStream(src)
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			dp.warnf(se.Pos, "lexical error: %s", se.Message)
		} else {
			return nil, nil, err
		}
	}
	dp.s = s

	obj := dp.parseObjectHeader()

	// Declaration sections come before the first body statement.
decls:
	for !s.atEOF() {
		t := s.cur()
		switch {
		case t.Type == tok.KEYWORD && varClasses[t.Value] != "":
			dp.parseVarBlock(obj)
		case t.Is("TYPE"):
			dp.parseTypeDef(obj)
		default:
			break decls
		}
	}

	sp := &stmtParser{s: s, warnings: dp.warnings}

	var terminators []string
	if obj.Kind != KindUnknown {
		terminators = append(terminators, "END_"+string(obj.Kind))
	}
	stmts, err := sp.parseStatements(nil, terminators...)
	obj.Body = stmts

	last := s.cur()
	for _, term := range terminators {
		if last.Is(term) {
			s.advance()
			break
		}
	}
	obj.span.End = endOf(last)

	return obj, sp.warnings, err
}
