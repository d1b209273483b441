package tokenizer

import (
	"fmt"
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenIterator uses Go 1.24 iterator pattern
type TokenIterator iter.Seq2[Token, error]

// StTokenizer is a Structured Text tokenizer that returns an iterator
type StTokenizer struct {
	input   string
	options TokenizerOptions
}

// TokenizerOptions are options for the tokenizer
type TokenizerOptions struct {
	SkipWhitespace bool
	SkipComments   bool
	SkipPragmas    bool
}

// NewStTokenizer creates a new StTokenizer
func NewStTokenizer(input string, options ...TokenizerOptions) *StTokenizer {
	opts := TokenizerOptions{}
	if len(options) > 0 {
		opts = options[0]
	}

	return &StTokenizer{
		input:   input,
		options: opts,
	}
}

// Tokens returns an iterator of tokens
func (t *StTokenizer) Tokens() TokenIterator {
	return func(yield func(Token, error) bool) {
		tk := &tokenizer{
			input:  t.input,
			line:   1,
			column: 1,
		}

		tk.readChar()

		for {
			token, err := tk.nextToken()
			if err != nil {
				if !yield(Token{Position: token.Position}, err) {
					return
				}
				continue
			}

			if token.Type == EOF {
				yield(token, nil)
				return
			}

			// Filtering based on options
			if t.options.SkipWhitespace && token.Type == WHITESPACE {
				continue
			}
			if t.options.SkipComments && (token.Type == LINE_COMMENT || token.Type == BLOCK_COMMENT) {
				continue
			}
			if t.options.SkipPragmas && token.Type == PRAGMA {
				continue
			}

			if !yield(token, nil) {
				return
			}
		}
	}
}

// AllTokens gets all tokens as a slice. The last error encountered is
// returned alongside the tokens collected so far.
func (t *StTokenizer) AllTokens() ([]Token, error) {
	tokens := make([]Token, 0, 64)
	var lastError error

	for token, err := range t.Tokens() {
		if err != nil {
			lastError = err
			continue
		}
		tokens = append(tokens, token)
		if token.Type == EOF {
			break
		}
	}

	return tokens, lastError
}

// Internal tokenizer implementation
type tokenizer struct {
	input    string
	position int // offset of current rune
	next     int // offset after current rune
	line     int
	column   int
	current  rune
}

func (t *tokenizer) readChar() {
	if t.current == '\n' {
		t.line++
		t.column = 1
	} else if t.current != 0 {
		t.column++
	}

	if t.next >= len(t.input) {
		t.current = 0
		t.position = len(t.input)
		return
	}

	r, size := utf8.DecodeRuneInString(t.input[t.next:])
	t.current = r
	t.position = t.next
	t.next += size
}

func (t *tokenizer) peekChar() rune {
	if t.next >= len(t.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(t.input[t.next:])
	return r
}

func (t *tokenizer) pos() Position {
	return Position{Line: t.line, Column: t.column, Offset: t.position}
}

func (t *tokenizer) newToken(tokenType TokenType, value string, pos Position) Token {
	return Token{Type: tokenType, Value: value, Position: pos}
}

// nextToken gets the next token
func (t *tokenizer) nextToken() (Token, error) {
	pos := t.pos()

	switch {
	case t.current == 0:
		return t.newToken(EOF, "", pos), nil
	case t.current == ' ' || t.current == '\t' || t.current == '\r' || t.current == '\n':
		return t.readWhitespace(), nil
	case t.current == '(':
		if t.peekChar() == '*' {
			return t.readBlockComment()
		}
		t.readChar()
		return t.newToken(OPENED_PARENS, "(", pos), nil
	case t.current == ')':
		t.readChar()
		return t.newToken(CLOSED_PARENS, ")", pos), nil
	case t.current == '[':
		t.readChar()
		return t.newToken(OPENED_BRACKET, "[", pos), nil
	case t.current == ']':
		t.readChar()
		return t.newToken(CLOSED_BRACKET, "]", pos), nil
	case t.current == ',':
		t.readChar()
		return t.newToken(COMMA, ",", pos), nil
	case t.current == ';':
		t.readChar()
		return t.newToken(SEMICOLON, ";", pos), nil
	case t.current == '{':
		return t.readPragma()
	case t.current == '\'' || t.current == '"':
		return t.readString(t.current)
	case t.current == '/':
		if t.peekChar() == '/' {
			return t.readLineComment(), nil
		}
		t.readChar()
		return t.newToken(DIVIDE, "/", pos), nil
	case t.current == ':':
		if t.peekChar() == '=' {
			t.readChar()
			t.readChar()
			return t.newToken(ASSIGN, ":=", pos), nil
		}
		t.readChar()
		return t.newToken(COLON, ":", pos), nil
	case t.current == '=':
		if t.peekChar() == '>' {
			t.readChar()
			t.readChar()
			return t.newToken(OUTPUT, "=>", pos), nil
		}
		t.readChar()
		return t.newToken(EQUAL, "=", pos), nil
	case t.current == '<':
		switch t.peekChar() {
		case '=':
			t.readChar()
			t.readChar()
			return t.newToken(LESS_EQUAL, "<=", pos), nil
		case '>':
			t.readChar()
			t.readChar()
			return t.newToken(NOT_EQUAL, "<>", pos), nil
		}
		t.readChar()
		return t.newToken(LESS_THAN, "<", pos), nil
	case t.current == '>':
		if t.peekChar() == '=' {
			t.readChar()
			t.readChar()
			return t.newToken(GREATER_EQUAL, ">=", pos), nil
		}
		t.readChar()
		return t.newToken(GREATER_THAN, ">", pos), nil
	case t.current == '+':
		t.readChar()
		return t.newToken(PLUS, "+", pos), nil
	case t.current == '-':
		t.readChar()
		return t.newToken(MINUS, "-", pos), nil
	case t.current == '*':
		t.readChar()
		return t.newToken(MULTIPLY, "*", pos), nil
	case t.current == '&':
		t.readChar()
		return t.newToken(AMPERSAND, "&", pos), nil
	case t.current == '.':
		if t.peekChar() == '.' {
			t.readChar()
			t.readChar()
			return t.newToken(RANGE, "..", pos), nil
		}
		t.readChar()
		return t.newToken(DOT, ".", pos), nil
	case t.current == '%':
		return t.readAddress()
	case unicode.IsDigit(t.current):
		return t.readNumber()
	case unicode.IsLetter(t.current) || t.current == '_':
		return t.readWord(), nil
	default:
		ch := t.current
		t.readChar()
		return Token{Position: pos}, fmt.Errorf("%w: %q at %d:%d", ErrUnexpectedCharacter, ch, pos.Line, pos.Column)
	}
}

func (t *tokenizer) readWhitespace() Token {
	pos := t.pos()
	start := t.position
	for t.current == ' ' || t.current == '\t' || t.current == '\r' || t.current == '\n' {
		t.readChar()
	}
	return t.newToken(WHITESPACE, t.input[start:t.position], pos)
}

// readBlockComment reads a (* ... *) comment. Nested comments are balanced,
// which matches the TwinCAT editor rather than the strict standard.
func (t *tokenizer) readBlockComment() (Token, error) {
	pos := t.pos()
	start := t.position
	t.readChar() // (
	t.readChar() // *

	depth := 1
	for depth > 0 {
		switch {
		case t.current == 0:
			return Token{Position: pos}, fmt.Errorf("%w at %d:%d", ErrUnterminatedComment, pos.Line, pos.Column)
		case t.current == '*' && t.peekChar() == ')':
			t.readChar()
			t.readChar()
			depth--
		case t.current == '(' && t.peekChar() == '*':
			t.readChar()
			t.readChar()
			depth++
		default:
			t.readChar()
		}
	}

	return t.newToken(BLOCK_COMMENT, t.input[start:t.position], pos), nil
}

func (t *tokenizer) readLineComment() Token {
	pos := t.pos()
	start := t.position
	for t.current != 0 && t.current != '\n' {
		t.readChar()
	}
	return t.newToken(LINE_COMMENT, t.input[start:t.position], pos)
}

func (t *tokenizer) readPragma() (Token, error) {
	pos := t.pos()
	start := t.position
	for t.current != '}' {
		if t.current == 0 {
			return Token{Position: pos}, fmt.Errorf("%w at %d:%d", ErrUnterminatedPragma, pos.Line, pos.Column)
		}
		t.readChar()
	}
	t.readChar() // }
	return t.newToken(PRAGMA, t.input[start:t.position], pos), nil
}

// readString reads a quoted string. IEC strings use '$' as the escape
// character ($', $", $$, $L, $N, $R, $T, $xx).
func (t *tokenizer) readString(quote rune) (Token, error) {
	pos := t.pos()
	start := t.position
	t.readChar() // opening quote

	for t.current != quote {
		switch t.current {
		case 0, '\n':
			return Token{Position: pos}, fmt.Errorf("%w at %d:%d", ErrUnterminatedString, pos.Line, pos.Column)
		case '$':
			t.readChar()
			if t.current != 0 {
				t.readChar()
			}
		default:
			t.readChar()
		}
	}
	t.readChar() // closing quote

	return t.newToken(STRING, t.input[start:t.position], pos), nil
}

// readAddress reads a direct hardware address such as %IX0.0, %QW2, %MD4 or
// the wildcard form %I*.
func (t *tokenizer) readAddress() (Token, error) {
	pos := t.pos()
	start := t.position
	t.readChar() // %

	if !strings.ContainsRune("IQMiqm", t.current) {
		return Token{Position: pos}, fmt.Errorf("%w at %d:%d", ErrInvalidAddress, pos.Line, pos.Column)
	}
	t.readChar()

	if strings.ContainsRune("XBWDLxbwdl", t.current) {
		t.readChar()
	}

	if t.current == '*' {
		t.readChar()
		return t.newToken(ADDRESS, t.input[start:t.position], pos), nil
	}

	if !unicode.IsDigit(t.current) {
		return Token{Position: pos}, fmt.Errorf("%w at %d:%d", ErrInvalidAddress, pos.Line, pos.Column)
	}
	for unicode.IsDigit(t.current) || (t.current == '.' && unicode.IsDigit(t.peekChar())) {
		t.readChar()
	}

	return t.newToken(ADDRESS, t.input[start:t.position], pos), nil
}

// readNumber reads decimal, based (16#FF, 2#1010_0001, 8#17), real and
// scientific literals. A '..' following a number is left for the range token.
func (t *tokenizer) readNumber() (Token, error) {
	pos := t.pos()
	start := t.position

	for unicode.IsDigit(t.current) || t.current == '_' {
		t.readChar()
	}

	// Based literal: the leading digits were the base
	if t.current == '#' {
		t.readChar()
		if !isBasedDigit(t.current) {
			return Token{Position: pos}, fmt.Errorf("%w at %d:%d", ErrInvalidNumber, pos.Line, pos.Column)
		}
		for isBasedDigit(t.current) || t.current == '_' {
			t.readChar()
		}
		return t.newToken(NUMBER, t.input[start:t.position], pos), nil
	}

	// Fraction, but not the start of a range (1..10)
	if t.current == '.' && unicode.IsDigit(t.peekChar()) {
		t.readChar()
		for unicode.IsDigit(t.current) || t.current == '_' {
			t.readChar()
		}
	}

	// Exponent
	if t.current == 'e' || t.current == 'E' {
		next := t.peekChar()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			t.readChar()
			if t.current == '+' || t.current == '-' {
				t.readChar()
			}
			if !unicode.IsDigit(t.current) {
				return Token{Position: pos}, fmt.Errorf("%w at %d:%d", ErrInvalidNumber, pos.Line, pos.Column)
			}
			for unicode.IsDigit(t.current) {
				t.readChar()
			}
		}
	}

	return t.newToken(NUMBER, t.input[start:t.position], pos), nil
}

func isBasedDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// readWord reads an identifier, a keyword, a typed literal (INT#16) or a
// time/date literal (T#5s, DATE#2024-01-01).
func (t *tokenizer) readWord() Token {
	pos := t.pos()
	start := t.position

	for unicode.IsLetter(t.current) || unicode.IsDigit(t.current) || t.current == '_' {
		t.readChar()
	}

	word := t.input[start:t.position]
	upper := strings.ToUpper(word)

	if t.current == '#' {
		t.readChar()
		for isLiteralChar(t.current) || (t.current == '-' && unicode.IsDigit(t.peekChar())) {
			t.readChar()
		}
		if timePrefixes[upper] {
			return t.newToken(TIME, t.input[start:t.position], pos)
		}
		// Typed numeric literal such as INT#16 or BYTE#16#FF
		return t.newToken(NUMBER, t.input[start:t.position], pos)
	}

	if keywords[upper] {
		return t.newToken(KEYWORD, upper, pos)
	}

	return t.newToken(IDENT, word, pos)
}

func isLiteralChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == ':' || r == '#'
}
