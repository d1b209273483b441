package parser

import (
	"fmt"
	"strings"

	tok "github.com/e91d82c73/stchunk/tokenizer"
)

// varClasses maps VAR block keywords to semantic variable classes.
var varClasses = map[string]string{
	"VAR":          "local",
	"VAR_INPUT":    "input",
	"VAR_OUTPUT":   "output",
	"VAR_IN_OUT":   "in_out",
	"VAR_TEMP":     "temp",
	"VAR_STAT":     "static",
	"VAR_GLOBAL":   "global",
	"VAR_EXTERNAL": "external",
	"VAR_INST":     "inst",
	"CONSTANT":     "constant",
}

// ParseDeclaration parses one declaration section: an optional POU/METHOD/
// PROPERTY/INTERFACE header followed by VAR blocks and TYPE definitions.
// Malformed declaration lines are skipped with a warning so that one bad
// line cannot discard the whole section.
func ParseDeclaration(src string) (*Object, []Warning, error) {
	p := &declParser{src: src}
	s, err := newStream(src)
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			p.warnf(se.Pos, "lexical error: %s", se.Message)
		} else {
			return nil, nil, err
		}
	}
	p.s = s

	obj := p.parseObjectHeader()
	p.parseSections(obj)
	return obj, p.warnings, nil
}

type declParser struct {
	s        *stream
	src      string
	warnings []Warning
}

func (p *declParser) warnf(pos tok.Position, format string, args ...any) {
	p.warnings = append(p.warnings, Warning{Message: fmt.Sprintf(format, args...), Pos: pos})
}

// parseObjectHeader parses the introducing keyword line when present.
// Declaration sections of actions and property accessors have no header.
func (p *declParser) parseObjectHeader() *Object {
	obj := &Object{span: Span{Start: p.s.cur().Position}}

	var kind ObjectKind
	switch {
	case p.s.cur().Is("PROGRAM"):
		kind = KindProgram
	case p.s.cur().Is("FUNCTION_BLOCK"):
		kind = KindFunctionBlock
	case p.s.cur().Is("FUNCTION"):
		kind = KindFunction
	case p.s.cur().Is("METHOD"):
		kind = KindMethod
	case p.s.cur().Is("PROPERTY"):
		kind = KindProperty
	case p.s.cur().Is("ACTION"):
		kind = KindAction
	case p.s.cur().Is("INTERFACE"):
		kind = KindInterface
	default:
		return obj
	}
	p.s.advance()
	obj.Kind = kind

	// Modifiers may precede the name: FUNCTION_BLOCK ABSTRACT FB_Base,
	// METHOD PUBLIC DoWork : BOOL
	for {
		switch {
		case p.s.cur().Is("PUBLIC"), p.s.cur().Is("PRIVATE"),
			p.s.cur().Is("PROTECTED"), p.s.cur().Is("INTERNAL"):
			obj.Visibility = p.s.advance().Value
		case p.s.cur().Is("ABSTRACT"):
			obj.Abstract = true
			p.s.advance()
		case p.s.cur().Is("FINAL"):
			obj.Final = true
			p.s.advance()
		default:
			goto name
		}
	}

name:
	if name, ok := p.s.accept(tok.IDENT); ok {
		obj.Name = name.Value
	} else {
		p.warnf(p.s.cur().Position, "missing name after %s", string(kind))
	}

	if _, ok := p.s.accept(tok.COLON); ok {
		obj.ReturnType = p.parseTypeSpec()
	}

	if _, ok := p.s.acceptKeyword("EXTENDS"); ok {
		obj.Extends = p.parseNameList()
	}
	if _, ok := p.s.acceptKeyword("IMPLEMENTS"); ok {
		obj.Implements = p.parseNameList()
	}

	return obj
}

// parseNameList parses a comma separated list of possibly dotted names.
func (p *declParser) parseNameList() []string {
	var names []string
	for {
		name, ok := p.s.accept(tok.IDENT)
		if !ok {
			p.warnf(p.s.cur().Position, "expected name, found %s", describe(p.s.cur()))
			return names
		}
		full := name.Value
		for {
			if _, ok := p.s.accept(tok.DOT); !ok {
				break
			}
			part, ok := p.s.accept(tok.IDENT)
			if !ok {
				break
			}
			full += "." + part.Value
		}
		names = append(names, full)

		if _, ok := p.s.accept(tok.COMMA); !ok {
			return names
		}
	}
}

// parseSections consumes VAR blocks and TYPE definitions until end of input.
// Anything unrecognized is skipped with a warning.
func (p *declParser) parseSections(obj *Object) {
	for !p.s.atEOF() {
		t := p.s.cur()
		switch {
		case t.Type == tok.KEYWORD && varClasses[t.Value] != "":
			p.parseVarBlock(obj)
		case t.Is("TYPE"):
			p.parseTypeDef(obj)
		case t.Is("END_PROGRAM"), t.Is("END_FUNCTION_BLOCK"), t.Is("END_FUNCTION"),
			t.Is("END_METHOD"), t.Is("END_PROPERTY"), t.Is("END_ACTION"),
			t.Is("END_INTERFACE"):
			p.s.advance()
		default:
			p.warnf(t.Position, "skipping unexpected %s in declaration", describe(t))
			p.s.advance()
		}
	}
	obj.span.End = endOf(p.s.cur())
}

// parseVarBlock parses one VAR.../END_VAR section.
func (p *declParser) parseVarBlock(obj *Object) {
	sectionTok := p.s.advance()
	section := sectionTok.Value
	class := varClasses[section]

	var retain, persistent, constant bool
	if section == "CONSTANT" {
		constant = true
	}
	for {
		switch {
		case p.s.cur().Is("RETAIN"):
			retain = true
			p.s.advance()
		case p.s.cur().Is("PERSISTENT"):
			persistent = true
			p.s.advance()
		case p.s.cur().Is("CONSTANT"):
			constant = true
			p.s.advance()
		default:
			goto body
		}
	}

body:
	for !p.s.atEOF() && !p.s.cur().Is("END_VAR") {
		decls, ok := p.parseVarLine(section, class, retain, persistent, constant)
		if !ok {
			p.recoverToSemicolon("END_VAR")
			continue
		}
		obj.Decls = append(obj.Decls, decls...)
	}
	if _, ok := p.s.acceptKeyword("END_VAR"); !ok {
		p.warnf(sectionTok.Position, "%s block is missing END_VAR", section)
	}
}

// parseVarLine parses `name1, name2 [AT %address] : type [:= init];` and fans
// the shared type out to one Declaration per declared name.
func (p *declParser) parseVarLine(section, class string, retain, persistent, constant bool) ([]*Declaration, bool) {
	start := p.s.cur().Position

	type namedPos struct {
		name string
		pos  tok.Position
	}
	var names []namedPos
	for {
		name, ok := p.s.accept(tok.IDENT)
		if !ok {
			p.warnf(p.s.cur().Position, "expected variable name, found %s", describe(p.s.cur()))
			return nil, false
		}
		names = append(names, namedPos{name.Value, name.Position})
		if _, ok := p.s.accept(tok.COMMA); !ok {
			break
		}
	}

	var address string
	if _, ok := p.s.acceptKeyword("AT"); ok {
		addr, ok := p.s.accept(tok.ADDRESS)
		if !ok {
			p.warnf(p.s.cur().Position, "expected hardware address after AT, found %s", describe(p.s.cur()))
			return nil, false
		}
		address = addr.Value
	}

	if _, err := p.s.expect(tok.COLON); err != nil {
		p.warnf(p.s.cur().Position, "expected ':' in declaration, found %s", describe(p.s.cur()))
		return nil, false
	}

	dataType := p.parseTypeSpec()
	if dataType == "" {
		p.warnf(p.s.cur().Position, "missing data type, found %s", describe(p.s.cur()))
		return nil, false
	}

	initial, initExpr := p.parseInitializer()

	end := endOf(p.s.cur())
	if _, ok := p.s.accept(tok.SEMICOLON); !ok {
		p.warnf(p.s.cur().Position, "declaration is missing ';'")
	}

	decls := make([]*Declaration, 0, len(names))
	for _, n := range names {
		decls = append(decls, &Declaration{
			Section:    section,
			Class:      class,
			Name:       n.name,
			DataType:   dataType,
			Initial:    initial,
			InitExpr:   initExpr,
			Address:    address,
			Retain:     retain,
			Persistent: persistent,
			Constant:   constant,
			span:       Span{Start: start, End: end},
		})
	}
	return decls, true
}

// parseInitializer consumes `:= <text until ;>`. The raw text is always
// kept; the parsed expression is attached only when the text is a plain
// expression (aggregate initializers stay raw with a warning).
func (p *declParser) parseInitializer() (string, Expression) {
	if p.s.cur().Type != tok.ASSIGN {
		return "", nil
	}
	assign := p.s.advance()

	depth := 0
	startOffset := endOf(assign).Offset
	endOffset := startOffset
	for !p.s.atEOF() {
		t := p.s.cur()
		if depth == 0 && (t.Type == tok.SEMICOLON || t.Is("END_VAR") || t.Is("END_STRUCT")) {
			break
		}
		switch t.Type {
		case tok.OPENED_PARENS, tok.OPENED_BRACKET:
			depth++
		case tok.CLOSED_PARENS, tok.CLOSED_BRACKET:
			depth--
		}
		endOffset = endOf(t).Offset
		p.s.advance()
	}

	raw := strings.TrimSpace(p.src[startOffset:endOffset])
	if raw == "" {
		p.warnf(assign.Position, "empty initializer")
		return "", nil
	}

	expr, err := ParseExpression(raw)
	if err != nil {
		p.warnf(assign.Position, "initializer %q kept as raw text: %s", raw, err)
		return raw, nil
	}
	return raw, expr
}

// parseTypeSpec parses a type reference and renders it back as one opaque
// string: ARRAY[0..9] OF INT, POINTER TO ST_Point, STRING(80), Ns.T_Custom.
// Cross-file resolution is not attempted.
func (p *declParser) parseTypeSpec() string {
	switch {
	case p.s.cur().Is("ARRAY"):
		p.s.advance()
		ranges := p.parseArrayRanges()
		if _, ok := p.s.acceptKeyword("OF"); !ok {
			p.warnf(p.s.cur().Position, "ARRAY type is missing OF")
			return "ARRAY[" + ranges + "]"
		}
		return "ARRAY[" + ranges + "] OF " + p.parseTypeSpec()

	case p.s.cur().Is("POINTER"):
		p.s.advance()
		if _, ok := p.s.acceptKeyword("TO"); !ok {
			p.warnf(p.s.cur().Position, "POINTER type is missing TO")
			return "POINTER"
		}
		return "POINTER TO " + p.parseTypeSpec()

	case p.s.cur().Is("REFERENCE"):
		p.s.advance()
		if _, ok := p.s.acceptKeyword("TO"); !ok {
			p.warnf(p.s.cur().Position, "REFERENCE type is missing TO")
			return "REFERENCE"
		}
		return "REFERENCE TO " + p.parseTypeSpec()

	case p.s.cur().Type == tok.IDENT:
		name := p.s.advance().Value
		for {
			if p.s.cur().Type == tok.DOT && p.s.peek().Type == tok.IDENT {
				p.s.advance()
				name += "." + p.s.advance().Value
				continue
			}
			break
		}
		// STRING(80), WSTRING[100] and similar sized types
		if size, ok := p.parseTypeSize(); ok {
			name += size
		}
		return name

	default:
		return ""
	}
}

func (p *declParser) parseTypeSize() (string, bool) {
	var closing tok.TokenType
	var openCh, closeCh string
	switch p.s.cur().Type {
	case tok.OPENED_PARENS:
		closing, openCh, closeCh = tok.CLOSED_PARENS, "(", ")"
	case tok.OPENED_BRACKET:
		closing, openCh, closeCh = tok.CLOSED_BRACKET, "[", "]"
	default:
		return "", false
	}
	p.s.advance()

	var inner []string
	for !p.s.atEOF() && p.s.cur().Type != closing {
		inner = append(inner, p.s.advance().Value)
	}
	p.s.accept(closing)
	return openCh + strings.Join(inner, "") + closeCh, true
}

// parseArrayRanges parses the bracketed dimension list of an ARRAY type.
func (p *declParser) parseArrayRanges() string {
	if _, err := p.s.expect(tok.OPENED_BRACKET); err != nil {
		p.warnf(p.s.cur().Position, "ARRAY type is missing '['")
		return ""
	}

	var dims []string
	var current []string
	for !p.s.atEOF() && p.s.cur().Type != tok.CLOSED_BRACKET {
		t := p.s.advance()
		if t.Type == tok.COMMA {
			dims = append(dims, strings.Join(current, ""))
			current = nil
			continue
		}
		current = append(current, t.Value)
	}
	if len(current) > 0 {
		dims = append(dims, strings.Join(current, ""))
	}
	p.s.accept(tok.CLOSED_BRACKET)
	return strings.Join(dims, ", ")
}

// recoverToSemicolon skips tokens until after the next semicolon, stopping
// early at the given closing keyword so a missing ';' cannot eat the block.
func (p *declParser) recoverToSemicolon(stopAt string) {
	for !p.s.atEOF() {
		t := p.s.cur()
		if t.Is(stopAt) {
			return
		}
		p.s.advance()
		if t.Type == tok.SEMICOLON {
			return
		}
	}
}

// parseTypeDef parses TYPE name : STRUCT|UNION|(enum)|alias END_TYPE.
func (p *declParser) parseTypeDef(obj *Object) {
	typeTok := p.s.advance() // TYPE

	name, ok := p.s.accept(tok.IDENT)
	if !ok {
		p.warnf(p.s.cur().Position, "TYPE is missing a name")
		p.recoverToKeyword("END_TYPE")
		return
	}
	if _, err := p.s.expect(tok.COLON); err != nil {
		p.warnf(p.s.cur().Position, "TYPE %s is missing ':'", name.Value)
		p.recoverToKeyword("END_TYPE")
		return
	}

	def := &TypeDef{Name: name.Value, span: Span{Start: typeTok.Position}}
	switch {
	case p.s.cur().Is("STRUCT"):
		p.s.advance()
		def.Kind = TypeStruct
		p.parseStructBody(def, "END_STRUCT")

	case p.s.cur().Is("UNION"):
		p.s.advance()
		def.Kind = TypeUnion
		p.parseStructBody(def, "END_UNION")

	case p.s.cur().Type == tok.OPENED_PARENS:
		def.Kind = TypeEnum
		p.parseEnumBody(def)

	default:
		def.Kind = TypeAlias
		def.BaseType = p.parseTypeSpec()
		if def.BaseType == "" {
			p.warnf(p.s.cur().Position, "TYPE %s has no base type", name.Value)
		}
		// Optional default value for the alias
		if p.s.cur().Type == tok.ASSIGN {
			p.parseInitializer()
		}
		p.s.accept(tok.SEMICOLON)
	}

	def.span.End = endOf(p.s.cur())
	if _, ok := p.s.acceptKeyword("END_TYPE"); !ok {
		p.warnf(typeTok.Position, "TYPE %s is missing END_TYPE", name.Value)
		p.recoverToKeyword("END_TYPE")
	}

	obj.Types = append(obj.Types, def)
	if obj.Name == "" {
		obj.Name = def.Name
	}
}

func (p *declParser) parseStructBody(def *TypeDef, terminator string) {
	for !p.s.atEOF() && !p.s.cur().Is(terminator) {
		decls, ok := p.parseVarLine("STRUCT", "field", false, false, false)
		if !ok {
			p.recoverToSemicolon(terminator)
			continue
		}
		def.Fields = append(def.Fields, decls...)
	}
	if _, ok := p.s.acceptKeyword(terminator); !ok {
		p.warnf(p.s.cur().Position, "struct %s is missing %s", def.Name, terminator)
	}
	p.s.accept(tok.SEMICOLON)
}

// parseEnumBody parses `(name [:= value], ...) [basetype];`.
func (p *declParser) parseEnumBody(def *TypeDef) {
	p.s.advance() // (

	for !p.s.atEOF() && p.s.cur().Type != tok.CLOSED_PARENS {
		name, ok := p.s.accept(tok.IDENT)
		if !ok {
			p.warnf(p.s.cur().Position, "expected enum value name, found %s", describe(p.s.cur()))
			p.s.advance()
			continue
		}
		value := &EnumValue{Name: name.Value, span: Span{Start: name.Position, End: endOf(name)}}

		if p.s.cur().Type == tok.ASSIGN {
			p.s.advance()
			var parts []string
			for !p.s.atEOF() && p.s.cur().Type != tok.COMMA && p.s.cur().Type != tok.CLOSED_PARENS {
				parts = append(parts, p.s.advance().Value)
			}
			value.Value = strings.Join(parts, " ")
		}
		def.Values = append(def.Values, value)

		if _, ok := p.s.accept(tok.COMMA); !ok {
			break
		}
	}
	p.s.accept(tok.CLOSED_PARENS)

	// Optional base type after the value list
	if p.s.cur().Type == tok.IDENT {
		def.BaseType = p.parseTypeSpec()
	}
	p.s.accept(tok.SEMICOLON)
}

func (p *declParser) recoverToKeyword(keyword string) {
	for !p.s.atEOF() {
		if p.s.cur().Is(keyword) {
			p.s.advance()
			return
		}
		p.s.advance()
	}
}
