package wave

import "strconv"

// The expression grammar is a hand-written precedence ladder, lowest
// binding first:
//
//	assignment  =  += -= *= /= %=     (right-associative, lvalue target)
//	logical     ||   &&
//	bitwise     |    ^    &
//	equality    ==   !=
//	relational  <  <=  >  >=
//	shift       <<   >>
//	additive    +  -
//	multiplicative  *  /  %
//	unary       !  ~  &  deref  ++  --  +  -
//	postfix     call  index  field  method  ++  --
//	primary     literal  identifier  grouped  struct/array literal  asm

func (p *Parser) parseExpression() (Expression, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (Expression, error) {
	left, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}

	var op AssignOperator
	isCompound := true
	switch tok := p.peek(); tok.Kind {
	case TokenEq:
		isCompound = false
	case TokenPlusEq:
		op = AssignAdd
	case TokenMinusEq:
		op = AssignSub
	case TokenStarEq:
		op = AssignMul
	case TokenSlashEq:
		op = AssignDiv
	case TokenPercentEq:
		op = AssignRem
	default:
		return left, nil
	}

	tok := p.next()
	if !IsLvalue(left) {
		return nil, p.errorAt(tok, ErrInvalidAssignment,
			"assignment target must be an lvalue")
	}
	right, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	if isCompound {
		return NewAssignOp(left, op, right, tok.Line), nil
	}
	return NewAssign(left, right, tok.Line), nil
}

// binaryLevel builds one left-associative precedence level.
func (p *Parser) binaryLevel(ops map[TokenKind]BinaryOp, higher func() (Expression, error)) (Expression, error) {
	left, err := higher()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.peekKind()]
		if !ok {
			return left, nil
		}
		tok := p.next()
		right, err := higher()
		if err != nil {
			return nil, err
		}
		left = NewBinary(op, left, right, tok.Line)
	}
}

func (p *Parser) parseLogicalOr() (Expression, error) {
	return p.binaryLevel(map[TokenKind]BinaryOp{TokenPipePipe: OpLogicalOr}, p.parseLogicalAnd)
}

func (p *Parser) parseLogicalAnd() (Expression, error) {
	return p.binaryLevel(map[TokenKind]BinaryOp{TokenAmpAmp: OpLogicalAnd}, p.parseBitwiseOr)
}

func (p *Parser) parseBitwiseOr() (Expression, error) {
	return p.binaryLevel(map[TokenKind]BinaryOp{TokenPipe: OpBitwiseOr}, p.parseBitwiseXor)
}

func (p *Parser) parseBitwiseXor() (Expression, error) {
	return p.binaryLevel(map[TokenKind]BinaryOp{TokenCaret: OpBitwiseXor}, p.parseBitwiseAnd)
}

func (p *Parser) parseBitwiseAnd() (Expression, error) {
	return p.binaryLevel(map[TokenKind]BinaryOp{TokenAmp: OpBitwiseAnd}, p.parseEquality)
}

func (p *Parser) parseEquality() (Expression, error) {
	return p.binaryLevel(map[TokenKind]BinaryOp{
		TokenEqEq:   OpEqual,
		TokenBangEq: OpNotEqual,
	}, p.parseRelational)
}

func (p *Parser) parseRelational() (Expression, error) {
	return p.binaryLevel(map[TokenKind]BinaryOp{
		TokenLt:   OpLess,
		TokenLtEq: OpLessEq,
		TokenGt:   OpGreater,
		TokenGtEq: OpGreaterEq,
	}, p.parseShift)
}

func (p *Parser) parseShift() (Expression, error) {
	return p.binaryLevel(map[TokenKind]BinaryOp{
		TokenShl: OpShl,
		TokenShr: OpShr,
	}, p.parseAdditive)
}

func (p *Parser) parseAdditive() (Expression, error) {
	return p.binaryLevel(map[TokenKind]BinaryOp{
		TokenPlus:  OpAdd,
		TokenMinus: OpSub,
	}, p.parseMultiplicative)
}

func (p *Parser) parseMultiplicative() (Expression, error) {
	return p.binaryLevel(map[TokenKind]BinaryOp{
		TokenStar:    OpMul,
		TokenSlash:   OpDiv,
		TokenPercent: OpRem,
	}, p.parseUnary)
}

func (p *Parser) parseUnary() (Expression, error) {
	switch tok := p.peek(); tok.Kind {
	case TokenBang:
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NewUnary(UnaryNot, inner, tok.Line), nil
	case TokenTilde:
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NewUnary(UnaryBitwiseNot, inner, tok.Line), nil
	case TokenAmp:
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NewAddressOf(inner, tok.Line), nil
	case TokenDeref:
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NewDerefExpr(inner, tok.Line), nil
	case TokenPlusPlus, TokenMinusMinus:
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if !IsLvalue(inner) {
			return nil, p.errorAt(tok, ErrInvalidExpression,
				"`%s` target must be assignable", tok.Lexeme)
		}
		kind := PreInc
		if tok.Kind == TokenMinusMinus {
			kind = PreDec
		}
		return NewIncDec(kind, inner, tok.Line), nil
	case TokenMinus:
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Numeric literals fold their sign; anything else keeps an
		// explicit negation node.
		switch lit := inner.(type) {
		case *IntLit:
			return NewIntLit("-"+lit.Text, tok.Line), nil
		case *FloatLit:
			return NewFloatLit("-"+lit.Text, -lit.Value, tok.Line), nil
		default:
			return NewUnary(UnaryNeg, inner, tok.Line), nil
		}
	case TokenPlus:
		p.next()
		return p.parseUnary()
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch tok := p.peek(); tok.Kind {
		case TokenDot:
			p.next()
			name, err := p.expect(TokenIdentifier, "after `.`")
			if err != nil {
				return nil, err
			}
			if p.at(TokenLparen) {
				args, err := p.parseCallArgs()
				if err != nil {
					return nil, err
				}
				expr = NewMethodCall(expr, name.Lexeme, args, tok.Line)
				continue
			}
			expr = NewFieldAccess(expr, name.Lexeme, tok.Line)

		case TokenLbrack:
			p.next()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRbrack, "after index"); err != nil {
				return nil, err
			}
			expr = NewIndexAccess(expr, index, tok.Line)

		case TokenPlusPlus, TokenMinusMinus:
			p.next()
			if !IsLvalue(expr) {
				return nil, p.errorAt(tok, ErrInvalidExpression,
					"postfix `%s` target must be assignable", tok.Lexeme)
			}
			kind := PostInc
			if tok.Kind == TokenMinusMinus {
				kind = PostDec
			}
			return NewIncDec(kind, expr, tok.Line), nil

		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseCallArgs() ([]Expression, error) {
	if _, err := p.expect(TokenLparen, "to open argument list"); err != nil {
		return nil, err
	}
	var args []Expression
	if !p.at(TokenRparen) {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	if _, err := p.expect(TokenRparen, "after arguments"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (Expression, error) {
	switch tok := p.peek(); tok.Kind {
	case TokenIntLiteral:
		p.next()
		return NewIntLit(tok.Lexeme, tok.Line), nil

	case TokenFloatLiteral:
		p.next()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, p.errorAt(tok, ErrInvalidNumber, "invalid float literal `%s`", tok.Lexeme)
		}
		return NewFloatLit(tok.Lexeme, v, tok.Line), nil

	case TokenCharLiteral:
		p.next()
		return NewCharLit([]rune(tok.Lexeme)[0], tok.Line), nil

	case TokenBoolLiteral:
		p.next()
		return NewBoolLit(tok.Lexeme == "true", tok.Line), nil

	case TokenStringLiteral:
		p.next()
		return NewStringLit(tok.Lexeme, tok.Line), nil

	case TokenNull:
		p.next()
		return NewNullLit(tok.Line), nil

	case TokenIdentifier:
		p.next()
		switch p.peekKind() {
		case TokenLparen:
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return NewCallExpr(tok.Lexeme, args, tok.Line), nil
		case TokenLbrace:
			return p.parseStructLiteral(tok)
		}
		return NewVarRef(tok.Lexeme, tok.Line), nil

	case TokenLparen:
		p.next()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRparen, "to close grouped expression"); err != nil {
			return nil, err
		}
		return NewGrouped(inner, tok.Line), nil

	case TokenLbrack:
		return p.parseArrayLiteral()

	case TokenAsm:
		return p.parseAsmExpression()

	default:
		return nil, p.errorAt(tok, ErrInvalidExpression,
			"expected an expression, found `%s`", tok)
	}
}

// parseStructLiteral parses `Name{field: value, ...}` after the name
// token has been consumed.
func (p *Parser) parseStructLiteral(name Token) (Expression, error) {
	if _, err := p.expect(TokenLbrace, "to open struct literal"); err != nil {
		return nil, err
	}
	var fields []FieldInit
	for !p.at(TokenRbrace) {
		fieldName, err := p.expect(TokenIdentifier, "as field name in struct literal")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenColon, "after field name `"+fieldName.Lexeme+"`"); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		fields = append(fields, FieldInit{Name: fieldName.Lexeme, Value: value})
		if !p.match(TokenComma) {
			break
		}
	}
	if _, err := p.expect(TokenRbrace, "to close struct literal"); err != nil {
		return nil, err
	}
	return NewStructLit(name.Lexeme, fields, name.Line), nil
}

func (p *Parser) parseArrayLiteral() (Expression, error) {
	open := p.next() // '['
	var elems []Expression
	if !p.at(TokenRbrack) {
		for {
			elem, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	if _, err := p.expect(TokenRbrack, "to close array literal"); err != nil {
		return nil, err
	}
	return NewArrayLit(elems, open.Line), nil
}
