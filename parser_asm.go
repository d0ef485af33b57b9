package wave

// asm blocks have two surface forms, statement and expression:
//
//	asm {
//	    "mov rax, 60"
//	    in("rdi") code
//	    out("rax") result
//	    clobber("rcx", "r11")
//	}
//
// Both parse the same clause set; the expression form additionally
// requires exactly one out clause, which supplies the rvalue.

type asmBody struct {
	instructions []string
	inputs       []AsmOperand
	outputs      []AsmOperand
	clobbers     []string
}

// parseAsmStatement parses the statement form after the leading
// `asm` token.
func (p *Parser) parseAsmStatement() (Statement, error) {
	kw := p.next() // asm
	body, err := p.parseAsmBody(kw)
	if err != nil {
		return nil, err
	}
	p.match(TokenSemi)
	return NewAsmStmt(body.instructions, body.inputs, body.outputs, body.clobbers, kw.Line), nil
}

// parseAsmExpression parses the expression form at the `asm` token.
func (p *Parser) parseAsmExpression() (Expression, error) {
	kw := p.next() // asm
	body, err := p.parseAsmBody(kw)
	if err != nil {
		return nil, err
	}
	if len(body.outputs) != 1 {
		return nil, p.errorAt(kw, ErrInvalidExpression,
			"asm expression requires exactly one `out` clause, got %d", len(body.outputs))
	}
	return NewAsmExpr(body.instructions, body.inputs, body.outputs, body.clobbers, kw.Line), nil
}

func (p *Parser) parseAsmBody(kw Token) (*asmBody, error) {
	if _, err := p.expect(TokenLbrace, "after `asm`"); err != nil {
		return nil, err
	}

	body := &asmBody{}
	for !p.match(TokenRbrace) {
		switch tok := p.peek(); tok.Kind {
		case TokenEOF:
			return nil, p.errorAt(tok, ErrUnexpectedEndOfFile,
				"unexpected end of file inside asm block")

		case TokenStringLiteral:
			p.next()
			body.instructions = append(body.instructions, tok.Lexeme)

		case TokenIn:
			p.next()
			op, err := p.parseAsmOperand("in")
			if err != nil {
				return nil, err
			}
			body.inputs = append(body.inputs, op)

		case TokenOut:
			p.next()
			op, err := p.parseAsmOperand("out")
			if err != nil {
				return nil, err
			}
			body.outputs = append(body.outputs, op)

		case TokenClobber:
			p.next()
			regs, err := p.parseAsmClobbers()
			if err != nil {
				return nil, err
			}
			body.clobbers = append(body.clobbers, regs...)

		default:
			return nil, p.errorAt(tok, ErrSyntaxError,
				"unexpected token `%s` inside asm block", tok)
		}
	}
	return body, nil
}

// parseAsmOperand parses `("reg") expr` after the in/out keyword.
func (p *Parser) parseAsmOperand(clause string) (AsmOperand, error) {
	if _, err := p.expect(TokenLparen, "after `"+clause+"`"); err != nil {
		return AsmOperand{}, err
	}
	reg, err := p.parseAsmRegister(clause)
	if err != nil {
		return AsmOperand{}, err
	}
	if _, err := p.expect(TokenRparen, "after register in `"+clause+"`"); err != nil {
		return AsmOperand{}, err
	}
	value, err := p.parseUnary()
	if err != nil {
		return AsmOperand{}, err
	}
	return AsmOperand{Reg: reg, Value: value}, nil
}

// parseAsmClobbers parses `("reg", "reg", ...)`.
func (p *Parser) parseAsmClobbers() ([]string, error) {
	if _, err := p.expect(TokenLparen, "after `clobber`"); err != nil {
		return nil, err
	}
	var regs []string
	for {
		reg, err := p.parseAsmRegister("clobber")
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
		if !p.match(TokenComma) {
			break
		}
	}
	if _, err := p.expect(TokenRparen, "after clobber list"); err != nil {
		return nil, err
	}
	return regs, nil
}

// Registers are written as string literals; bare identifiers are
// accepted too.
func (p *Parser) parseAsmRegister(clause string) (string, error) {
	tok := p.next()
	switch tok.Kind {
	case TokenStringLiteral, TokenIdentifier:
		return tok.Lexeme, nil
	default:
		return "", p.errorAt(tok, ErrSyntaxError,
			"expected register name in `%s`, found `%s`", clause, tok)
	}
}
