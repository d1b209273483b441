package parser

import (
	"fmt"

	tok "github.com/e91d82c73/stchunk/tokenizer"
)

// ParseBody parses an implementation section into a statement list.
// Malformed statements are skipped with a warning; a block nesting mismatch
// aborts the body and returns the statements parsed up to that point
// together with an UnbalancedBlockError.
func ParseBody(src string) ([]Statement, []Warning, error) {
	p := &stmtParser{}
	s, err := newStream(src)
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			p.warnf(se.Pos, "lexical error: %s", se.Message)
		} else {
			return nil, nil, err
		}
	}
	p.s = s

	stmts, err := p.parseStatements(nil)
	return stmts, p.warnings, err
}

type openBlock struct {
	kind BlockKind
	pos  tok.Position
	// terminators are the keywords that legally end or continue this block
	terminators []string
}

type stmtParser struct {
	s        *stream
	warnings []Warning
}

func (p *stmtParser) warnf(pos tok.Position, format string, args ...any) {
	p.warnings = append(p.warnings, Warning{Message: fmt.Sprintf(format, args...), Pos: pos})
}

var blockEndKeywords = map[string]bool{
	"END_IF": true, "END_CASE": true, "END_FOR": true,
	"END_WHILE": true, "END_REPEAT": true,
	"ELSIF": true, "ELSE": true, "UNTIL": true,
}

// parseStatements parses until EOF or one of the enclosing block's
// terminators. The terminator token is left for the caller to consume.
func (p *stmtParser) parseStatements(enclosing *openBlock, extraTerminators ...string) ([]Statement, error) {
	var stmts []Statement

	terminators := extraTerminators
	if enclosing != nil {
		terminators = append(terminators, enclosing.terminators...)
	}

	for !p.s.atEOF() {
		t := p.s.cur()

		if t.Type == tok.KEYWORD {
			for _, term := range terminators {
				if t.Value == term {
					return stmts, nil
				}
			}
			if blockEndKeywords[t.Value] {
				// An END_* that is not ours: nesting is broken
				err := &UnbalancedBlockError{
					Found:    t.Value,
					ClosePos: t.Position,
				}
				if enclosing != nil {
					err.Expected = enclosing.kind
					err.OpenPos = enclosing.pos
				}
				return stmts, err
			}
		}

		stmt, err := p.parseStatement()
		if err != nil {
			var unbalanced *UnbalancedBlockError
			if asUnbalanced(err, &unbalanced) {
				return stmts, err
			}
			p.warnf(errPos(err, t.Position), "skipping statement: %s", err)
			p.recoverStatement(terminators)
			continue
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	return stmts, nil
}

func (p *stmtParser) parseStatement() (Statement, error) {
	t := p.s.cur()

	switch {
	case t.Type == tok.SEMICOLON:
		p.s.advance()
		return &Empty{span: Span{Start: t.Position, End: endOf(t)}}, nil
	case t.Is("IF"):
		return p.parseIf()
	case t.Is("CASE"):
		return p.parseCase()
	case t.Is("FOR"):
		return p.parseFor()
	case t.Is("WHILE"):
		return p.parseWhile()
	case t.Is("REPEAT"):
		return p.parseRepeat()
	case t.Is("EXIT"):
		p.s.advance()
		end := p.acceptSemicolon(t)
		return &Exit{span: Span{Start: t.Position, End: end}}, nil
	case t.Is("CONTINUE"):
		p.s.advance()
		end := p.acceptSemicolon(t)
		return &Continue{span: Span{Start: t.Position, End: end}}, nil
	case t.Is("RETURN"):
		p.s.advance()
		end := p.acceptSemicolon(t)
		return &Return{span: Span{Start: t.Position, End: end}}, nil
	case t.Is("STEP"), t.Is("INITIAL_STEP"):
		return p.parseSfcStep()
	case t.Is("TRANSITION"):
		return p.parseSfcTransition()
	default:
		return p.parseSimpleStatement()
	}
}

// parseSimpleStatement parses an assignment or a bare call.
func (p *stmtParser) parseSimpleStatement() (Statement, error) {
	start := p.s.cur().Position

	target, err := parseExpression(p.s)
	if err != nil {
		return nil, err
	}

	if _, ok := p.s.accept(tok.ASSIGN); ok {
		value, err := parseExpression(p.s)
		if err != nil {
			return nil, err
		}
		end := p.acceptSemicolon(p.s.cur())
		if end == (tok.Position{}) {
			end = value.Span().End
		}
		return &Assignment{Target: target, Value: value,
			span: Span{Start: start, End: end}}, nil
	}

	end := p.acceptSemicolon(p.s.cur())
	if end == (tok.Position{}) {
		end = target.Span().End
	}
	return &CallStatement{Call: target, span: Span{Start: start, End: end}}, nil
}

// acceptSemicolon consumes an optional trailing semicolon and returns the
// end position of the statement.
func (p *stmtParser) acceptSemicolon(fallback tok.Token) tok.Position {
	if semi, ok := p.s.accept(tok.SEMICOLON); ok {
		return endOf(semi)
	}
	return endOf(fallback)
}

func (p *stmtParser) parseIf() (Statement, error) {
	ifTok := p.s.advance()
	block := &openBlock{kind: BlockIf, pos: ifTok.Position,
		terminators: []string{"ELSIF", "ELSE", "END_IF"}}

	stmt := &If{span: Span{Start: ifTok.Position}}

	cond, err := parseExpression(p.s)
	if err != nil {
		return nil, err
	}
	if _, err := p.s.expectKeyword("THEN"); err != nil {
		return nil, err
	}
	body, err := p.parseStatements(block)
	if err != nil {
		return nil, err
	}
	stmt.Branches = append(stmt.Branches, IfBranch{Condition: cond, Body: body})

	for {
		if _, ok := p.s.acceptKeyword("ELSIF"); ok {
			cond, err := parseExpression(p.s)
			if err != nil {
				return nil, err
			}
			if _, err := p.s.expectKeyword("THEN"); err != nil {
				return nil, err
			}
			body, err := p.parseStatements(block)
			if err != nil {
				return nil, err
			}
			stmt.Branches = append(stmt.Branches, IfBranch{Condition: cond, Body: body})
			continue
		}
		break
	}

	if _, ok := p.s.acceptKeyword("ELSE"); ok {
		body, err := p.parseStatements(block, "END_IF")
		if err != nil {
			return nil, err
		}
		stmt.Branches = append(stmt.Branches, IfBranch{Body: body})
	}

	return p.closeBlock(stmt, &stmt.span, block, "END_IF")
}

func (p *stmtParser) parseCase() (Statement, error) {
	caseTok := p.s.advance()
	block := &openBlock{kind: BlockCase, pos: caseTok.Position,
		terminators: []string{"ELSE", "END_CASE"}}

	stmt := &Case{span: Span{Start: caseTok.Position}}

	selector, err := parseExpression(p.s)
	if err != nil {
		return nil, err
	}
	stmt.Selector = selector

	if _, err := p.s.expectKeyword("OF"); err != nil {
		return nil, err
	}

	for !p.s.atEOF() && !p.s.cur().Is("ELSE") && !p.s.cur().Is("END_CASE") {
		entry, err := p.parseCaseEntry(block)
		if err != nil {
			return nil, err
		}
		stmt.Entries = append(stmt.Entries, entry)
	}

	if _, ok := p.s.acceptKeyword("ELSE"); ok {
		body, err := p.parseStatements(block, "END_CASE")
		if err != nil {
			return nil, err
		}
		stmt.Else = body
	}

	return p.closeBlock(stmt, &stmt.span, block, "END_CASE")
}

// parseCaseEntry parses `label[, label]: statements` where each label is a
// constant expression or a low..high range.
func (p *stmtParser) parseCaseEntry(block *openBlock) (CaseEntry, error) {
	var entry CaseEntry

	for {
		low, err := parseExpression(p.s)
		if err != nil {
			return entry, err
		}
		label := CaseLabel{Low: low}
		if _, ok := p.s.accept(tok.RANGE); ok {
			high, err := parseExpression(p.s)
			if err != nil {
				return entry, err
			}
			label.High = high
		}
		entry.Labels = append(entry.Labels, label)

		if _, ok := p.s.accept(tok.COMMA); !ok {
			break
		}
	}

	if _, err := p.s.expect(tok.COLON); err != nil {
		return entry, err
	}

	// The entry body ends at the next label, ELSE or END_CASE.
	for !p.s.atEOF() && !p.s.cur().Is("ELSE") && !p.s.cur().Is("END_CASE") && !p.looksLikeCaseLabel() {
		stmts, err := p.parseSingleIntoEntry(block)
		if err != nil {
			return entry, err
		}
		entry.Body = append(entry.Body, stmts...)
	}

	return entry, nil
}

func (p *stmtParser) parseSingleIntoEntry(block *openBlock) ([]Statement, error) {
	t := p.s.cur()
	if t.Type == tok.KEYWORD && blockEndKeywords[t.Value] && !t.Is("ELSE") {
		return nil, &UnbalancedBlockError{
			Expected: block.kind,
			Found:    t.Value,
			OpenPos:  block.pos,
			ClosePos: t.Position,
		}
	}

	stmt, err := p.parseStatement()
	if err != nil {
		var unbalanced *UnbalancedBlockError
		if asUnbalanced(err, &unbalanced) {
			return nil, err
		}
		p.warnf(errPos(err, t.Position), "skipping statement: %s", err)
		p.recoverStatement(block.terminators)
		return nil, nil
	}
	if stmt == nil {
		return nil, nil
	}
	return []Statement{stmt}, nil
}

// looksLikeCaseLabel scans ahead for `const[..const][, ...]:` without
// consuming input. A ':=' or any call/index syntax rules a label out.
func (p *stmtParser) looksLikeCaseLabel() bool {
	i := p.s.pos
	for ; i < len(p.s.tokens); i++ {
		t := p.s.tokens[i]
		switch t.Type {
		case tok.COLON:
			return true
		case tok.NUMBER, tok.IDENT, tok.TIME, tok.STRING,
			tok.MINUS, tok.PLUS, tok.DOT, tok.RANGE, tok.COMMA:
			continue
		case tok.KEYWORD:
			if t.Value == "TRUE" || t.Value == "FALSE" {
				continue
			}
			return false
		default:
			return false
		}
	}
	return false
}

func (p *stmtParser) parseFor() (Statement, error) {
	forTok := p.s.advance()
	block := &openBlock{kind: BlockFor, pos: forTok.Position,
		terminators: []string{"END_FOR"}}

	variable, err := parsePostfix(p.s)
	if err != nil {
		return nil, err
	}
	if _, err := p.s.expect(tok.ASSIGN); err != nil {
		return nil, err
	}
	from, err := parseExpression(p.s)
	if err != nil {
		return nil, err
	}
	if _, err := p.s.expectKeyword("TO"); err != nil {
		return nil, err
	}
	to, err := parseExpression(p.s)
	if err != nil {
		return nil, err
	}

	// BY is optional and defaults to 1
	var step Expression
	if _, ok := p.s.acceptKeyword("BY"); ok {
		step, err = parseExpression(p.s)
		if err != nil {
			return nil, err
		}
	} else {
		step = &Literal{Value: "1", span: Span{Start: to.Span().End, End: to.Span().End}}
	}

	if _, err := p.s.expectKeyword("DO"); err != nil {
		return nil, err
	}

	body, err := p.parseStatements(block)
	if err != nil {
		return nil, err
	}

	stmt := &For{Variable: variable, From: from, To: to, Step: step, Body: body,
		span: Span{Start: forTok.Position}}
	return p.closeBlock(stmt, &stmt.span, block, "END_FOR")
}

func (p *stmtParser) parseWhile() (Statement, error) {
	whileTok := p.s.advance()
	block := &openBlock{kind: BlockWhile, pos: whileTok.Position,
		terminators: []string{"END_WHILE"}}

	cond, err := parseExpression(p.s)
	if err != nil {
		return nil, err
	}
	if _, err := p.s.expectKeyword("DO"); err != nil {
		return nil, err
	}
	body, err := p.parseStatements(block)
	if err != nil {
		return nil, err
	}

	stmt := &While{Condition: cond, Body: body, span: Span{Start: whileTok.Position}}
	return p.closeBlock(stmt, &stmt.span, block, "END_WHILE")
}

func (p *stmtParser) parseRepeat() (Statement, error) {
	repeatTok := p.s.advance()
	block := &openBlock{kind: BlockRepeat, pos: repeatTok.Position,
		terminators: []string{"UNTIL", "END_REPEAT"}}

	body, err := p.parseStatements(block)
	if err != nil {
		return nil, err
	}

	stmt := &Repeat{Body: body, span: Span{Start: repeatTok.Position}}

	if _, err := p.s.expectKeyword("UNTIL"); err != nil {
		return nil, err
	}
	cond, err := parseExpression(p.s)
	if err != nil {
		return nil, err
	}
	stmt.Condition = cond

	return p.closeBlock(stmt, &stmt.span, block, "END_REPEAT")
}

// closeBlock consumes the END_* keyword of a finished block plus an optional
// trailing semicolon and stamps the statement's end position.
func (p *stmtParser) closeBlock(stmt Statement, span *Span, block *openBlock, endKeyword string) (Statement, error) {
	endTok := p.s.cur()
	if !endTok.Is(endKeyword) {
		found := "EOF"
		if endTok.Type != tok.EOF {
			found = endTok.Value
		}
		return nil, &UnbalancedBlockError{
			Expected: block.kind,
			Found:    found,
			OpenPos:  block.pos,
			ClosePos: endTok.Position,
		}
	}
	p.s.advance()

	span.End = p.acceptSemicolon(endTok)
	return stmt, nil
}

func (p *stmtParser) parseSfcStep() (Statement, error) {
	stepTok := p.s.advance()
	initial := stepTok.Value == "INITIAL_STEP"

	name, err := p.s.expect(tok.IDENT)
	if err != nil {
		return nil, err
	}
	p.s.accept(tok.COLON)

	// Step bodies are graphical action associations; keep the name only
	for !p.s.atEOF() && !p.s.cur().Is("END_STEP") {
		p.s.advance()
	}
	endTok := p.s.cur()
	if _, err := p.s.expectKeyword("END_STEP"); err != nil {
		return nil, err
	}

	return &SfcStep{Name: name.Value, Initial: initial,
		span: Span{Start: stepTok.Position, End: endOf(endTok)}}, nil
}

func (p *stmtParser) parseSfcTransition() (Statement, error) {
	transTok := p.s.advance()

	var from, to string
	if _, ok := p.s.acceptKeyword("FROM"); ok {
		if name, ok := p.s.accept(tok.IDENT); ok {
			from = name.Value
		}
		if _, ok := p.s.acceptKeyword("TO"); ok {
			if name, ok := p.s.accept(tok.IDENT); ok {
				to = name.Value
			}
		}
	}

	for !p.s.atEOF() && !p.s.cur().Is("END_TRANSITION") {
		p.s.advance()
	}
	endTok := p.s.cur()
	if _, err := p.s.expectKeyword("END_TRANSITION"); err != nil {
		return nil, err
	}

	return &SfcTransition{From: from, To: to,
		span: Span{Start: transTok.Position, End: endOf(endTok)}}, nil
}

// recoverStatement skips to just past the next semicolon, stopping early at
// any block delimiter keyword.
func (p *stmtParser) recoverStatement(terminators []string) {
	for !p.s.atEOF() {
		t := p.s.cur()
		if t.Type == tok.KEYWORD {
			if blockEndKeywords[t.Value] {
				return
			}
			for _, term := range terminators {
				if t.Value == term {
					return
				}
			}
		}
		p.s.advance()
		if t.Type == tok.SEMICOLON {
			return
		}
	}
}

func asUnbalanced(err error, target **UnbalancedBlockError) bool {
	if ube, ok := err.(*UnbalancedBlockError); ok {
		*target = ube
		return true
	}
	return false
}

func errPos(err error, fallback tok.Position) tok.Position {
	if se, ok := err.(*SyntaxError); ok {
		return se.Pos
	}
	return fallback
}
