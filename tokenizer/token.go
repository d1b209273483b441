package tokenizer

import "errors"

// Sentinel errors
var (
	ErrUnexpectedCharacter = errors.New("unexpected character")
	ErrUnterminatedString  = errors.New("unterminated string literal")
	ErrUnterminatedComment = errors.New("unterminated block comment")
	ErrUnterminatedPragma  = errors.New("unterminated pragma")
	ErrInvalidNumber       = errors.New("invalid number format")
	ErrInvalidAddress      = errors.New("invalid hardware address")
)

// TokenType represents the type of a token
type TokenType int

const (
	// Basic tokens
	EOF TokenType = iota
	WHITESPACE
	IDENT   // variable, type and POU names
	KEYWORD // IF, VAR_INPUT, FUNCTION_BLOCK, AND_THEN, ...
	NUMBER  // 42, 16#FF, 2#1010, 3.14, 1.0E-3, INT#16
	STRING  // 'text' or "text"
	TIME    // T#5s, DATE#2024-01-01, TOD#12:00:00, DT#...
	ADDRESS // %IX0.0, %QW2, %MD4, %I*

	// Punctuation
	OPENED_PARENS  // (
	CLOSED_PARENS  // )
	OPENED_BRACKET // [
	CLOSED_BRACKET // ]
	COMMA          // ,
	SEMICOLON      // ;
	COLON          // :
	DOT            // .
	RANGE          // ..

	// Operators
	ASSIGN        // :=
	OUTPUT        // =>
	EQUAL         // =
	NOT_EQUAL     // <>
	LESS_THAN     // <
	GREATER_THAN  // >
	LESS_EQUAL    // <=
	GREATER_EQUAL // >=
	PLUS          // +
	MINUS         // -
	MULTIPLY      // *
	DIVIDE        // /
	AMPERSAND     // & (alias for AND)

	// Comments and pragmas
	LINE_COMMENT  // // line comment
	BLOCK_COMMENT // (* block comment *)
	PRAGMA        // {attribute 'qualified_only'}
)

// String returns the string representation of TokenType
func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case WHITESPACE:
		return "WHITESPACE"
	case IDENT:
		return "IDENT"
	case KEYWORD:
		return "KEYWORD"
	case NUMBER:
		return "NUMBER"
	case STRING:
		return "STRING"
	case TIME:
		return "TIME"
	case ADDRESS:
		return "ADDRESS"
	case OPENED_PARENS:
		return "OPENED_PARENS"
	case CLOSED_PARENS:
		return "CLOSED_PARENS"
	case OPENED_BRACKET:
		return "OPENED_BRACKET"
	case CLOSED_BRACKET:
		return "CLOSED_BRACKET"
	case COMMA:
		return "COMMA"
	case SEMICOLON:
		return "SEMICOLON"
	case COLON:
		return "COLON"
	case DOT:
		return "DOT"
	case RANGE:
		return "RANGE"
	case ASSIGN:
		return "ASSIGN"
	case OUTPUT:
		return "OUTPUT"
	case EQUAL:
		return "EQUAL"
	case NOT_EQUAL:
		return "NOT_EQUAL"
	case LESS_THAN:
		return "LESS_THAN"
	case GREATER_THAN:
		return "GREATER_THAN"
	case LESS_EQUAL:
		return "LESS_EQUAL"
	case GREATER_EQUAL:
		return "GREATER_EQUAL"
	case PLUS:
		return "PLUS"
	case MINUS:
		return "MINUS"
	case MULTIPLY:
		return "MULTIPLY"
	case DIVIDE:
		return "DIVIDE"
	case AMPERSAND:
		return "AMPERSAND"
	case LINE_COMMENT:
		return "LINE_COMMENT"
	case BLOCK_COMMENT:
		return "BLOCK_COMMENT"
	case PRAGMA:
		return "PRAGMA"
	default:
		return "UNKNOWN"
	}
}

// Position represents a position in the source code. Line and Column are
// 1-indexed, Offset is a 0-indexed byte offset.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Token represents a single lexical token. For KEYWORD tokens Value holds the
// canonical uppercase spelling; all other token types keep the original text.
type Token struct {
	Type     TokenType
	Value    string
	Position Position
}

// String returns the string representation of Token
func (t Token) String() string {
	return t.Type.String() + ": " + t.Value
}

// Is reports whether the token is the given keyword.
func (t Token) Is(keyword string) bool {
	return t.Type == KEYWORD && t.Value == keyword
}

// keywords is the set of reserved IEC 61131-3 words recognized by the lexer.
// Lookup is done on the uppercased lexeme.
var keywords = map[string]bool{
	// POU and declaration structure
	"PROGRAM": true, "END_PROGRAM": true,
	"FUNCTION_BLOCK": true, "END_FUNCTION_BLOCK": true,
	"FUNCTION": true, "END_FUNCTION": true,
	"METHOD": true, "END_METHOD": true,
	"PROPERTY": true, "END_PROPERTY": true,
	"ACTION": true, "END_ACTION": true,
	"INTERFACE": true, "END_INTERFACE": true,
	"TYPE": true, "END_TYPE": true,
	"STRUCT": true, "END_STRUCT": true,
	"UNION": true, "END_UNION": true,
	"EXTENDS": true, "IMPLEMENTS": true,

	// Variable sections and qualifiers
	"VAR": true, "VAR_INPUT": true, "VAR_OUTPUT": true, "VAR_IN_OUT": true,
	"VAR_TEMP": true, "VAR_STAT": true, "VAR_GLOBAL": true,
	"VAR_EXTERNAL": true, "VAR_INST": true, "END_VAR": true,
	"CONSTANT": true, "RETAIN": true, "PERSISTENT": true, "AT": true,
	"PUBLIC": true, "PRIVATE": true, "PROTECTED": true, "INTERNAL": true,
	"ABSTRACT": true, "FINAL": true,

	// Type constructors
	"ARRAY": true, "OF": true, "POINTER": true, "REFERENCE": true, "TO": true,

	// Statements
	"IF": true, "THEN": true, "ELSIF": true, "ELSE": true, "END_IF": true,
	"CASE": true, "END_CASE": true,
	"FOR": true, "BY": true, "DO": true, "END_FOR": true,
	"WHILE": true, "END_WHILE": true,
	"REPEAT": true, "UNTIL": true, "END_REPEAT": true,
	"EXIT": true, "CONTINUE": true, "RETURN": true,

	// SFC markers
	"STEP": true, "INITIAL_STEP": true, "END_STEP": true,
	"TRANSITION": true, "END_TRANSITION": true, "FROM": true,

	// Operators and literals
	"AND": true, "OR": true, "XOR": true, "NOT": true, "MOD": true,
	"EXPT": true, "AND_THEN": true, "OR_ELSE": true,
	"TRUE": true, "FALSE": true,
}

// timePrefixes are the word prefixes that introduce a time or date literal
// when followed by '#'. Any other word before '#' is a typed numeric literal
// such as INT#16.
var timePrefixes = map[string]bool{
	"T": true, "TIME": true, "LT": true, "LTIME": true,
	"D": true, "DATE": true,
	"TOD": true, "TIME_OF_DAY": true,
	"DT": true, "DATE_AND_TIME": true,
}
