package parser

import (
	"fmt"
	"strings"

	tok "github.com/e91d82c73/stchunk/tokenizer"
)

// Span is a source region in the coordinates of the parsed text.
type Span struct {
	Start tok.Position
	End   tok.Position
}

// Expression is the interface implemented by all expression nodes.
type Expression interface {
	Span() Span
	// String renders the expression with explicit grouping so that
	// re-parsing the output yields a structurally identical tree.
	String() string
}

// Literal is a numeric, string, time or boolean literal.
type Literal struct {
	Value string
	span  Span
}

func (l *Literal) Span() Span     { return l.span }
func (l *Literal) String() string { return l.Value }

// Ident is a plain identifier reference.
type Ident struct {
	Name string
	span Span
}

func (i *Ident) Span() Span     { return i.span }
func (i *Ident) String() string { return i.Name }

// Unary is a prefix operator application (-, +, NOT).
type Unary struct {
	Op      string
	Operand Expression
	span    Span
}

func (u *Unary) Span() Span { return u.span }
func (u *Unary) String() string {
	if isWordOp(u.Op) {
		return "(" + u.Op + " " + u.Operand.String() + ")"
	}
	return "(" + u.Op + u.Operand.String() + ")"
}

// Binary is an infix operator application. ShortCircuit is set for AND_THEN
// and OR_ELSE; the parser only preserves the tag, evaluation is left to
// callers.
type Binary struct {
	Op           string
	Left, Right  Expression
	ShortCircuit bool
	span         Span
}

func (b *Binary) Span() Span { return b.span }
func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op + " " + b.Right.String() + ")"
}

// CallArg is one argument of a function or function block call. Name is empty
// for positional arguments; Output marks `name => target` bindings.
type CallArg struct {
	Name   string
	Output bool
	Value  Expression
}

// Call is a function, function block or method invocation.
type Call struct {
	Callee Expression
	Args   []CallArg
	span   Span
}

func (c *Call) Span() Span { return c.span }
func (c *Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		switch {
		case a.Output:
			parts[i] = a.Name + " => " + a.Value.String()
		case a.Name != "":
			parts[i] = a.Name + " := " + a.Value.String()
		default:
			parts[i] = a.Value.String()
		}
	}
	return c.Callee.String() + "(" + strings.Join(parts, ", ") + ")"
}

// Member is a dotted access; Name may be numeric for bit access (status.3).
type Member struct {
	Receiver Expression
	Name     string
	span     Span
}

func (m *Member) Span() Span     { return m.span }
func (m *Member) String() string { return m.Receiver.String() + "." + m.Name }

// Index is an array subscript with one or more dimensions.
type Index struct {
	Receiver Expression
	Indexes  []Expression
	span     Span
}

func (ix *Index) Span() Span { return ix.span }
func (ix *Index) String() string {
	parts := make([]string, len(ix.Indexes))
	for i, e := range ix.Indexes {
		parts[i] = e.String()
	}
	return ix.Receiver.String() + "[" + strings.Join(parts, ", ") + "]"
}

func isWordOp(op string) bool {
	return op == "NOT" || op == "AND" || op == "OR" || op == "XOR" ||
		op == "MOD" || op == "EXPT" || op == "AND_THEN" || op == "OR_ELSE"
}

// BlockKind identifies a control flow block for chunk extraction and for
// nesting diagnostics.
type BlockKind string

const (
	BlockIf     BlockKind = "if_block"
	BlockCase   BlockKind = "case_block"
	BlockFor    BlockKind = "for_loop"
	BlockWhile  BlockKind = "while_loop"
	BlockRepeat BlockKind = "repeat_loop"
)

// Statement is the interface implemented by all statement nodes.
type Statement interface {
	Span() Span
}

// Assignment is `target := value;`.
type Assignment struct {
	Target Expression
	Value  Expression
	span   Span
}

func (s *Assignment) Span() Span { return s.span }

// IfBranch is one condition/body pair of an IF statement; the ELSE branch
// has a nil condition.
type IfBranch struct {
	Condition Expression
	Body      []Statement
}

// If is an IF/ELSIF/ELSE/END_IF statement.
type If struct {
	Branches []IfBranch
	span     Span
}

func (s *If) Span() Span { return s.span }

// CaseLabel is a single case selector: a constant expression or a range.
type CaseLabel struct {
	Low  Expression
	High Expression // nil unless the label is a range
}

// CaseEntry is one labelled arm of a CASE statement.
type CaseEntry struct {
	Labels []CaseLabel
	Body   []Statement
}

// Case is a CASE/END_CASE statement; Else holds the ELSE arm.
type Case struct {
	Selector Expression
	Entries  []CaseEntry
	Else     []Statement
	span     Span
}

func (s *Case) Span() Span { return s.span }

// For is a FOR/END_FOR loop. Step is the BY expression; when absent it
// defaults to the literal 1.
type For struct {
	Variable Expression
	From     Expression
	To       Expression
	Step     Expression
	Body     []Statement
	span     Span
}

func (s *For) Span() Span { return s.span }

// While is a WHILE/END_WHILE loop.
type While struct {
	Condition Expression
	Body      []Statement
	span      Span
}

func (s *While) Span() Span { return s.span }

// Repeat is a REPEAT/UNTIL/END_REPEAT loop.
type Repeat struct {
	Body      []Statement
	Condition Expression
	span      Span
}

func (s *Repeat) Span() Span { return s.span }

// CallStatement is a bare invocation used as a statement, including
// action calls (fbInstance.ActionName).
type CallStatement struct {
	Call Expression
	span Span
}

func (s *CallStatement) Span() Span { return s.span }

// Exit is the EXIT statement.
type Exit struct{ span Span }

func (s *Exit) Span() Span { return s.span }

// Continue is the CONTINUE statement.
type Continue struct{ span Span }

func (s *Continue) Span() Span { return s.span }

// Return is the RETURN statement.
type Return struct{ span Span }

func (s *Return) Span() Span { return s.span }

// Empty is a lone semicolon.
type Empty struct{ span Span }

func (s *Empty) Span() Span { return s.span }

// SfcStep is an SFC step marker kept for name reference only; the graphical
// step body is out of scope.
type SfcStep struct {
	Name    string
	Initial bool
	span    Span
}

func (s *SfcStep) Span() Span { return s.span }

// SfcTransition is an SFC transition marker (FROM step TO step).
type SfcTransition struct {
	From string
	To   string
	span Span
}

func (s *SfcTransition) Span() Span { return s.span }

// Declaration is a single declared name inside a VAR section or a struct
// body. A multi-name line (`a, b : BOOL;`) fans out to one Declaration per
// name.
type Declaration struct {
	Section    string // introducing keyword: VAR, VAR_INPUT, ...
	Class      string // semantic class: input, output, in_out, local, ...
	Name       string
	DataType   string
	Initial    string     // raw initializer text, kept even if unparsed
	InitExpr   Expression // nil when the initializer did not parse
	Address    string     // hardware address from AT %..., empty if none
	Retain     bool
	Persistent bool
	Constant   bool
	span       Span
}

func (d *Declaration) Span() Span { return d.span }

// TypeKind discriminates TYPE and INTERFACE definitions.
type TypeKind string

const (
	TypeStruct    TypeKind = "struct"
	TypeEnum      TypeKind = "enum"
	TypeAlias     TypeKind = "type_alias"
	TypeInterface TypeKind = "interface"
	TypeUnion     TypeKind = "union"
)

// EnumValue is one member of an enumeration type.
type EnumValue struct {
	Name    string
	Value   string // raw initializer, empty when implicit
	span    Span
}

func (v *EnumValue) Span() Span { return v.span }

// TypeDef is a TYPE ... END_TYPE or INTERFACE definition.
type TypeDef struct {
	Kind     TypeKind
	Name     string
	BaseType string // alias target or enum base type
	Fields   []*Declaration
	Values   []*EnumValue
	Extends  []string
	span     Span
}

func (t *TypeDef) Span() Span { return t.span }

// ObjectKind is the kind of program organization unit a declaration header
// introduces.
type ObjectKind string

const (
	KindProgram       ObjectKind = "PROGRAM"
	KindFunctionBlock ObjectKind = "FUNCTION_BLOCK"
	KindFunction      ObjectKind = "FUNCTION"
	KindMethod        ObjectKind = "METHOD"
	KindProperty      ObjectKind = "PROPERTY"
	KindAction        ObjectKind = "ACTION"
	KindInterface     ObjectKind = "INTERFACE"
	KindUnknown       ObjectKind = ""
)

// Object is the parsed form of one declaration section plus, when parsed
// together, its implementation body.
type Object struct {
	Kind       ObjectKind
	Name       string
	ReturnType string
	Extends    []string
	Implements []string
	Visibility string // PUBLIC, PRIVATE, PROTECTED, INTERNAL or empty
	Abstract   bool
	Final      bool
	Decls      []*Declaration
	Types      []*TypeDef
	Body       []Statement
	span       Span
}

func (o *Object) Span() Span { return o.span }

// Warning is a recoverable problem found during parsing.
type Warning struct {
	Message string
	Pos     tok.Position
}

func (w Warning) String() string {
	return fmt.Sprintf("%d:%d: %s", w.Pos.Line, w.Pos.Column, w.Message)
}
