package tokenizer

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestTokenIterator(t *testing.T) {
	src := "bDone := (nCount + 1) * 2;"
	tokenizer := NewStTokenizer(src)

	expectedTypes := []TokenType{
		IDENT, WHITESPACE, ASSIGN, WHITESPACE, OPENED_PARENS, IDENT, WHITESPACE,
		PLUS, WHITESPACE, NUMBER, CLOSED_PARENS, WHITESPACE, MULTIPLY,
		WHITESPACE, NUMBER, SEMICOLON, EOF,
	}

	var actualTypes []TokenType
	for token, err := range tokenizer.Tokens() {
		assert.NoError(t, err)

		actualTypes = append(actualTypes, token.Type)

		if token.Type == EOF {
			break
		}
	}

	assert.Equal(t, expectedTypes, actualTypes)
}

func TestTokenIteratorWithOptions(t *testing.T) {
	src := "IF bRun THEN // start\n  nStep := 1;\nEND_IF"
	tokenizer := NewStTokenizer(src, TokenizerOptions{
		SkipWhitespace: true,
		SkipComments:   true,
	})

	expectedTypes := []TokenType{
		KEYWORD, IDENT, KEYWORD, IDENT, ASSIGN, NUMBER, SEMICOLON, KEYWORD, EOF,
	}

	var actualTypes []TokenType
	for token, err := range tokenizer.Tokens() {
		assert.NoError(t, err)

		actualTypes = append(actualTypes, token.Type)

		if token.Type == EOF {
			break
		}
	}

	assert.Equal(t, expectedTypes, actualTypes)
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected TokenType
		value    string
	}{
		{"decimal", "42", NUMBER, "42"},
		{"hex", "16#FF", NUMBER, "16#FF"},
		{"binary with underscores", "2#1010_0001", NUMBER, "2#1010_0001"},
		{"octal", "8#17", NUMBER, "8#17"},
		{"real", "3.14", NUMBER, "3.14"},
		{"scientific", "1.5E-3", NUMBER, "1.5E-3"},
		{"typed integer", "INT#16", NUMBER, "INT#16"},
		{"typed based", "BYTE#16#FF", NUMBER, "BYTE#16#FF"},
		{"duration", "T#5s", TIME, "T#5s"},
		{"long duration", "TIME#1h30m", TIME, "TIME#1h30m"},
		{"date", "D#2024-01-01", TIME, "D#2024-01-01"},
		{"time of day", "TOD#12:30:00", TIME, "TOD#12:30:00"},
		{"date and time", "DT#2024-01-01-12:00:00", TIME, "DT#2024-01-01-12:00:00"},
		{"single quoted string", "'hello'", STRING, "'hello'"},
		{"escaped quote", "'it$'s'", STRING, "'it$'s'"},
		{"bit address", "%IX0.0", ADDRESS, "%IX0.0"},
		{"word address", "%QW2", ADDRESS, "%QW2"},
		{"wildcard address", "%I*", ADDRESS, "%I*"},
		{"boolean", "TRUE", KEYWORD, "TRUE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenizer := NewStTokenizer(tt.input, TokenizerOptions{SkipWhitespace: true})
			tokens, err := tokenizer.AllTokens()
			assert.NoError(t, err)
			assert.True(t, len(tokens) >= 2) // literal + EOF
			assert.Equal(t, tt.expected, tokens[0].Type)
			assert.Equal(t, tt.value, tokens[0].Value)
		})
	}
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	tokenizer := NewStTokenizer("if Var_Input end_if", TokenizerOptions{SkipWhitespace: true})
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)

	assert.Equal(t, KEYWORD, tokens[0].Type)
	assert.Equal(t, "IF", tokens[0].Value)
	assert.Equal(t, "VAR_INPUT", tokens[1].Value)
	assert.Equal(t, "END_IF", tokens[2].Value)
}

func TestIdentifierKeepsCase(t *testing.T) {
	tokenizer := NewStTokenizer("nMotorSpeed", TokenizerOptions{SkipWhitespace: true})
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)
	assert.Equal(t, IDENT, tokens[0].Type)
	assert.Equal(t, "nMotorSpeed", tokens[0].Value)
}

func TestNestedBlockComment(t *testing.T) {
	tokenizer := NewStTokenizer("(* outer (* inner *) still outer *) x")
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)

	assert.Equal(t, BLOCK_COMMENT, tokens[0].Type)
	assert.Equal(t, "(* outer (* inner *) still outer *)", tokens[0].Value)
}

func TestPragma(t *testing.T) {
	tokenizer := NewStTokenizer("{attribute 'qualified_only'} VAR_GLOBAL", TokenizerOptions{SkipWhitespace: true})
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)

	assert.Equal(t, PRAGMA, tokens[0].Type)
	assert.Equal(t, "{attribute 'qualified_only'}", tokens[0].Value)
	assert.Equal(t, KEYWORD, tokens[1].Type)
}

func TestRangeIsNotAFraction(t *testing.T) {
	tokenizer := NewStTokenizer("1..10", TokenizerOptions{SkipWhitespace: true})
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)

	expectedTypes := []TokenType{NUMBER, RANGE, NUMBER, EOF}
	var actualTypes []TokenType
	for _, token := range tokens {
		actualTypes = append(actualTypes, token.Type)
	}
	assert.Equal(t, expectedTypes, actualTypes)
}

func TestTokenPositions(t *testing.T) {
	tokenizer := NewStTokenizer("a := 1;\nbb := 2;", TokenizerOptions{SkipWhitespace: true})
	tokens, err := tokenizer.AllTokens()
	assert.NoError(t, err)

	assert.Equal(t, Position{Line: 1, Column: 1, Offset: 0}, tokens[0].Position)
	// bb starts on line 2
	assert.Equal(t, Position{Line: 2, Column: 1, Offset: 8}, tokens[4].Position)
	// := after bb
	assert.Equal(t, Position{Line: 2, Column: 4, Offset: 11}, tokens[5].Position)
}

func TestUnterminatedString(t *testing.T) {
	tokenizer := NewStTokenizer("'no closing quote")
	_, err := tokenizer.AllTokens()
	assert.True(t, errors.Is(err, ErrUnterminatedString))
}

func TestUnterminatedComment(t *testing.T) {
	tokenizer := NewStTokenizer("(* never closed")
	_, err := tokenizer.AllTokens()
	assert.True(t, errors.Is(err, ErrUnterminatedComment))
}

func TestLineIndex(t *testing.T) {
	ix := NewLineIndex("abc\ndef\r\nghi")

	assert.Equal(t, Position{Line: 1, Column: 1, Offset: 0}, ix.Position(0))
	assert.Equal(t, Position{Line: 1, Column: 4, Offset: 3}, ix.Position(3))
	assert.Equal(t, Position{Line: 2, Column: 1, Offset: 4}, ix.Position(4))
	assert.Equal(t, Position{Line: 3, Column: 1, Offset: 9}, ix.Position(9))
	assert.Equal(t, 3, ix.LineCount())
}

func TestRebase(t *testing.T) {
	base := Position{Line: 10, Column: 5, Offset: 512}

	// First line of the extracted text shifts by the base column
	local := Position{Line: 1, Column: 3, Offset: 2}
	assert.Equal(t, Position{Line: 10, Column: 7, Offset: 514}, Rebase(base, local))

	// Later lines keep their own column
	local = Position{Line: 4, Column: 9, Offset: 40}
	assert.Equal(t, Position{Line: 13, Column: 9, Offset: 552}, Rebase(base, local))
}
