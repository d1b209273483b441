package parser

import (
	tok "github.com/e91d82c73/stchunk/tokenizer"
)

// ParseExpression parses a complete Structured Text expression. Trailing
// input after the expression is a syntax error.
func ParseExpression(src string) (Expression, error) {
	s, err := newStream(src)
	if err != nil {
		return nil, err
	}

	expr, err := parseExpression(s)
	if err != nil {
		return nil, err
	}
	if !s.atEOF() {
		return nil, syntaxErrorf(s.cur().Position, "unexpected %s after expression", describe(s.cur()))
	}
	return expr, nil
}

// Precedence, weakest first: OR/XOR/OR_ELSE, AND/AND_THEN, =/<>,
// relational, +/-, */ /MOD, unary, EXPT, postfix (call/index/member),
// primary. Every binary level associates left-to-right.

func parseExpression(s *stream) (Expression, error) {
	return parseOr(s)
}

func parseOr(s *stream) (Expression, error) {
	left, err := parseAnd(s)
	if err != nil {
		return nil, err
	}

	for {
		var op string
		switch {
		case s.cur().Is("OR"):
			op = "OR"
		case s.cur().Is("XOR"):
			op = "XOR"
		case s.cur().Is("OR_ELSE"):
			op = "OR_ELSE"
		default:
			return left, nil
		}
		s.advance()

		right, err := parseAnd(s)
		if err != nil {
			return nil, err
		}
		left = &Binary{
			Op:           op,
			Left:         left,
			Right:        right,
			ShortCircuit: op == "OR_ELSE",
			span:         Span{Start: left.Span().Start, End: right.Span().End},
		}
	}
}

func parseAnd(s *stream) (Expression, error) {
	left, err := parseEquality(s)
	if err != nil {
		return nil, err
	}

	for {
		var op string
		switch {
		case s.cur().Is("AND"), s.cur().Type == tok.AMPERSAND:
			op = "AND"
		case s.cur().Is("AND_THEN"):
			op = "AND_THEN"
		default:
			return left, nil
		}
		s.advance()

		right, err := parseEquality(s)
		if err != nil {
			return nil, err
		}
		left = &Binary{
			Op:           op,
			Left:         left,
			Right:        right,
			ShortCircuit: op == "AND_THEN",
			span:         Span{Start: left.Span().Start, End: right.Span().End},
		}
	}
}

func parseEquality(s *stream) (Expression, error) {
	left, err := parseRelational(s)
	if err != nil {
		return nil, err
	}

	for {
		var op string
		switch s.cur().Type {
		case tok.EQUAL:
			op = "="
		case tok.NOT_EQUAL:
			op = "<>"
		default:
			return left, nil
		}
		s.advance()

		right, err := parseRelational(s)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right,
			span: Span{Start: left.Span().Start, End: right.Span().End}}
	}
}

func parseRelational(s *stream) (Expression, error) {
	left, err := parseAdditive(s)
	if err != nil {
		return nil, err
	}

	for {
		var op string
		switch s.cur().Type {
		case tok.LESS_THAN:
			op = "<"
		case tok.GREATER_THAN:
			op = ">"
		case tok.LESS_EQUAL:
			op = "<="
		case tok.GREATER_EQUAL:
			op = ">="
		default:
			return left, nil
		}
		s.advance()

		right, err := parseAdditive(s)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right,
			span: Span{Start: left.Span().Start, End: right.Span().End}}
	}
}

func parseAdditive(s *stream) (Expression, error) {
	left, err := parseMultiplicative(s)
	if err != nil {
		return nil, err
	}

	for {
		var op string
		switch s.cur().Type {
		case tok.PLUS:
			op = "+"
		case tok.MINUS:
			op = "-"
		default:
			return left, nil
		}
		s.advance()

		right, err := parseMultiplicative(s)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right,
			span: Span{Start: left.Span().Start, End: right.Span().End}}
	}
}

func parseMultiplicative(s *stream) (Expression, error) {
	left, err := parseUnary(s)
	if err != nil {
		return nil, err
	}

	for {
		var op string
		switch {
		case s.cur().Type == tok.MULTIPLY:
			op = "*"
		case s.cur().Type == tok.DIVIDE:
			op = "/"
		case s.cur().Is("MOD"):
			op = "MOD"
		default:
			return left, nil
		}
		s.advance()

		right, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right,
			span: Span{Start: left.Span().Start, End: right.Span().End}}
	}
}

// parseUnary binds looser than EXPT: -2 EXPT 2 is -(2 EXPT 2).
func parseUnary(s *stream) (Expression, error) {
	var op string
	switch {
	case s.cur().Type == tok.MINUS:
		op = "-"
	case s.cur().Type == tok.PLUS:
		op = "+"
	case s.cur().Is("NOT"):
		op = "NOT"
	default:
		return parsePower(s)
	}
	start := s.advance().Position

	operand, err := parseUnary(s)
	if err != nil {
		return nil, err
	}
	return &Unary{Op: op, Operand: operand,
		span: Span{Start: start, End: operand.Span().End}}, nil
}

func parsePower(s *stream) (Expression, error) {
	left, err := parsePostfix(s)
	if err != nil {
		return nil, err
	}

	for s.cur().Is("EXPT") {
		s.advance()
		// The right operand may carry its own sign: 2 EXPT -3
		right, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "EXPT", Left: left, Right: right,
			span: Span{Start: left.Span().Start, End: right.Span().End}}
	}
	return left, nil
}

func parsePostfix(s *stream) (Expression, error) {
	expr, err := parsePrimary(s)
	if err != nil {
		return nil, err
	}

	for {
		switch s.cur().Type {
		case tok.OPENED_PARENS:
			expr, err = parseCall(s, expr)
		case tok.OPENED_BRACKET:
			expr, err = parseIndex(s, expr)
		case tok.DOT:
			s.advance()
			name := s.cur()
			if name.Type != tok.IDENT && name.Type != tok.NUMBER && name.Type != tok.KEYWORD {
				return nil, syntaxErrorf(name.Position, "expected member name, found %s", describe(name))
			}
			s.advance()
			expr = &Member{Receiver: expr, Name: name.Value,
				span: Span{Start: expr.Span().Start, End: endOf(name)}}
		default:
			return expr, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func parseCall(s *stream, callee Expression) (Expression, error) {
	s.advance() // (

	var args []CallArg
	if s.cur().Type != tok.CLOSED_PARENS {
		for {
			arg, err := parseCallArg(s)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if _, ok := s.accept(tok.COMMA); !ok {
				break
			}
		}
	}

	closing, err := s.expect(tok.CLOSED_PARENS)
	if err != nil {
		return nil, err
	}
	return &Call{Callee: callee, Args: args,
		span: Span{Start: callee.Span().Start, End: endOf(closing)}}, nil
}

// parseCallArg handles positional values, named inputs (name := expr) and
// output bindings (name => target, NOT name => target).
func parseCallArg(s *stream) (CallArg, error) {
	if s.cur().Type == tok.IDENT {
		switch s.peek().Type {
		case tok.ASSIGN:
			name := s.advance()
			s.advance() // :=
			value, err := parseExpression(s)
			if err != nil {
				return CallArg{}, err
			}
			return CallArg{Name: name.Value, Value: value}, nil
		case tok.OUTPUT:
			name := s.advance()
			s.advance() // =>
			value, err := parseExpression(s)
			if err != nil {
				return CallArg{}, err
			}
			return CallArg{Name: name.Value, Output: true, Value: value}, nil
		}
	}

	// NOT name => target inverts an output binding
	if s.cur().Is("NOT") && s.peek().Type == tok.IDENT {
		if s.pos+2 < len(s.tokens) && s.tokens[s.pos+2].Type == tok.OUTPUT {
			s.advance() // NOT
			name := s.advance()
			s.advance() // =>
			value, err := parseExpression(s)
			if err != nil {
				return CallArg{}, err
			}
			return CallArg{Name: "NOT " + name.Value, Output: true, Value: value}, nil
		}
	}

	value, err := parseExpression(s)
	if err != nil {
		return CallArg{}, err
	}
	return CallArg{Value: value}, nil
}

func parseIndex(s *stream, receiver Expression) (Expression, error) {
	s.advance() // [

	var indexes []Expression
	for {
		ix, err := parseExpression(s)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, ix)

		if _, ok := s.accept(tok.COMMA); !ok {
			break
		}
	}

	closing, err := s.expect(tok.CLOSED_BRACKET)
	if err != nil {
		return nil, err
	}
	return &Index{Receiver: receiver, Indexes: indexes,
		span: Span{Start: receiver.Span().Start, End: endOf(closing)}}, nil
}

func parsePrimary(s *stream) (Expression, error) {
	t := s.cur()
	switch {
	case t.Type == tok.NUMBER || t.Type == tok.STRING || t.Type == tok.TIME || t.Type == tok.ADDRESS:
		s.advance()
		return &Literal{Value: t.Value, span: Span{Start: t.Position, End: endOf(t)}}, nil
	case t.Is("TRUE") || t.Is("FALSE"):
		s.advance()
		return &Literal{Value: t.Value, span: Span{Start: t.Position, End: endOf(t)}}, nil
	case t.Type == tok.IDENT:
		s.advance()
		return &Ident{Name: t.Value, span: Span{Start: t.Position, End: endOf(t)}}, nil
	case t.Type == tok.OPENED_PARENS:
		s.advance()
		expr, err := parseExpression(s)
		if err != nil {
			return nil, err
		}
		if _, err := s.expect(tok.CLOSED_PARENS); err != nil {
			return nil, err
		}
		return expr, nil
	case t.Type == tok.EOF:
		return nil, syntaxErrorf(t.Position, "missing operand")
	default:
		return nil, syntaxErrorf(t.Position, "unexpected %s in expression", describe(t))
	}
}
