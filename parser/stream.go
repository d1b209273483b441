package parser

import (
	"strings"

	tok "github.com/e91d82c73/stchunk/tokenizer"
)

// stream is a cursor over the significant tokens of a source fragment.
// Whitespace, comments and pragmas are filtered out up front; the slice
// always ends with an EOF token.
type stream struct {
	tokens []tok.Token
	pos    int
}

func newStream(src string) (*stream, error) {
	tz := tok.NewStTokenizer(src, tok.TokenizerOptions{
		SkipWhitespace: true,
		SkipComments:   true,
		SkipPragmas:    true,
	})

	var firstErr error
	tokens := make([]tok.Token, 0, 64)
	for t, err := range tz.Tokens() {
		if err != nil {
			if firstErr == nil {
				firstErr = &SyntaxError{Message: err.Error(), Pos: t.Position}
			}
			continue
		}
		tokens = append(tokens, t)
		if t.Type == tok.EOF {
			break
		}
	}
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != tok.EOF {
		tokens = append(tokens, tok.Token{Type: tok.EOF})
	}

	return &stream{tokens: tokens}, firstErr
}

func (s *stream) cur() tok.Token {
	return s.tokens[s.pos]
}

func (s *stream) peek() tok.Token {
	if s.pos+1 >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1]
	}
	return s.tokens[s.pos+1]
}

// advance moves past the current token and returns it.
func (s *stream) advance() tok.Token {
	t := s.tokens[s.pos]
	if s.pos < len(s.tokens)-1 {
		s.pos++
	}
	return t
}

func (s *stream) atEOF() bool {
	return s.cur().Type == tok.EOF
}

// accept consumes the current token if it has the given type.
func (s *stream) accept(tt tok.TokenType) (tok.Token, bool) {
	if s.cur().Type == tt {
		return s.advance(), true
	}
	return tok.Token{}, false
}

// acceptKeyword consumes the current token if it is the given keyword.
func (s *stream) acceptKeyword(keyword string) (tok.Token, bool) {
	if s.cur().Is(keyword) {
		return s.advance(), true
	}
	return tok.Token{}, false
}

func (s *stream) expect(tt tok.TokenType) (tok.Token, error) {
	if s.cur().Type == tt {
		return s.advance(), nil
	}
	return tok.Token{}, syntaxErrorf(s.cur().Position, "expected %s, found %s", tt, describe(s.cur()))
}

func (s *stream) expectKeyword(keyword string) (tok.Token, error) {
	if s.cur().Is(keyword) {
		return s.advance(), nil
	}
	return tok.Token{}, syntaxErrorf(s.cur().Position, "expected %s, found %s", keyword, describe(s.cur()))
}

// endOf returns the position just past a token. Tokens seen by the parser
// never span lines, so advancing the column is enough.
func endOf(t tok.Token) tok.Position {
	n := len(t.Value)
	return tok.Position{
		Line:   t.Position.Line,
		Column: t.Position.Column + n,
		Offset: t.Position.Offset + n,
	}
}

func describe(t tok.Token) string {
	switch t.Type {
	case tok.EOF:
		return "end of input"
	default:
		if t.Value == "" {
			return t.Type.String()
		}
		return "'" + strings.TrimSpace(t.Value) + "'"
	}
}
