package wave

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser is a recursive-descent parser over the token stream.  The
// expression grammar is a hand-written precedence ladder; see
// parser_expr.go.  The parser stops at the first unrecoverable
// mismatch and returns a structured error tagged with the offending
// token's line.
type Parser struct {
	tokens []Token
	pos    int
	file   string
	lines  *LineIndex // optional, for source excerpts
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens, file: "<input>"}
}

func NewParserWithFile(tokens []Token, file, source string) *Parser {
	return &Parser{
		tokens: tokens,
		file:   file,
		lines:  NewLineIndex([]byte(source)),
	}
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekKind() TokenKind { return p.peek().Kind }

func (p *Parser) at(kind TokenKind) bool { return p.peekKind() == kind }

func (p *Parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) match(kind TokenKind) bool {
	if p.at(kind) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(kind TokenKind, context string) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return Token{}, p.errorAt(tok, ErrSyntaxError,
			"expected `%s` %s, found `%s`", kind, context, tok)
	}
	return p.next(), nil
}

func (p *Parser) errorAt(tok Token, kind ErrorKind, format string, args ...interface{}) *CompilerError {
	err := NewCompilerError(kind, fmt.Sprintf(format, args...), p.file, tok.Line, 1)
	if p.lines != nil {
		err = err.WithSource(p.lines.Line(tok.Line))
	}
	if tok.Kind == TokenEOF {
		err.Kind = ErrUnexpectedEndOfFile
	}
	return err
}

// ParseProgram parses the top-level item loop: imports, extern
// declarations, constants, protos, structs, enums, and functions, in
// any order.
func (p *Parser) ParseProgram() ([]TopLevel, error) {
	var items []TopLevel
	for !p.at(TokenEOF) {
		item, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *Parser) parseTopLevel() (TopLevel, error) {
	switch tok := p.peek(); tok.Kind {
	case TokenImport:
		return p.parseImport()
	case TokenExtern:
		return p.parseExtern()
	case TokenConst:
		return p.parseConstDecl()
	case TokenProto:
		return p.parseProto()
	case TokenStruct:
		return p.parseStruct()
	case TokenEnum:
		return p.parseEnum()
	case TokenFun:
		return p.parseFunction()
	default:
		return nil, p.errorAt(tok, ErrSyntaxError,
			"expected a top-level declaration, found `%s`", tok)
	}
}

// parseImport parses `import("path");`.
func (p *Parser) parseImport() (*ImportDecl, error) {
	kw := p.next() // import
	if _, err := p.expect(TokenLparen, "after `import`"); err != nil {
		return nil, err
	}
	path, err := p.expect(TokenStringLiteral, "in `import`")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRparen, "after import path"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemi, "after `import(...)`"); err != nil {
		return nil, err
	}
	return NewImportDecl(path.Lexeme, kw.Line), nil
}

// parseExtern parses `extern(c) fun name(params) -> T;`.  The ABI
// string is recorded verbatim; the validator enforces the whitelist.
func (p *Parser) parseExtern() (*ExternFunction, error) {
	kw := p.next() // extern
	if _, err := p.expect(TokenLparen, "after `extern`"); err != nil {
		return nil, err
	}
	abiTok := p.next()
	var abi string
	switch abiTok.Kind {
	case TokenIdentifier, TokenStringLiteral:
		abi = abiTok.Lexeme
	default:
		return nil, p.errorAt(abiTok, ErrSyntaxError,
			"expected ABI name after `extern(`, found `%s`", abiTok)
	}
	if _, err := p.expect(TokenRparen, "after ABI name"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenFun, "in extern declaration"); err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdentifier, "after `fun`")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLparen, "after function name"); err != nil {
		return nil, err
	}
	params, err := p.parseParameters(name.Lexeme)
	if err != nil {
		return nil, err
	}
	ret := WaveType(VoidType{})
	if p.match(TokenArrow) {
		ret, err = p.parseTypeAnnotation()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenSemi, "after extern declaration"); err != nil {
		return nil, err
	}
	return NewExternFunction(abi, name.Lexeme, params, ret, kw.Line), nil
}

// parseConstDecl parses a top-level `const name: T = literal;`.
func (p *Parser) parseConstDecl() (*VariableDecl, error) {
	kw := p.peek()
	decl, err := p.parseVariableDecl(MutConst)
	if err != nil {
		return nil, err
	}
	if decl.Init == nil {
		return nil, p.errorAt(kw, ErrInvalidStatement,
			"const `%s` requires an initializer", decl.Name)
	}
	if !isLiteralExpr(decl.Init) {
		return nil, p.errorAt(kw, ErrInvalidStatement,
			"const `%s` initializer must be a literal", decl.Name)
	}
	return decl, nil
}

func isLiteralExpr(e Expression) bool {
	switch n := e.(type) {
	case *IntLit, *FloatLit, *CharLit, *BoolLit, *StringLit, *NullLit:
		return true
	case *Grouped:
		return isLiteralExpr(n.Inner)
	default:
		return false
	}
}

// parseProto parses `proto StructName { fun ... }`.
func (p *Parser) parseProto() (*ProtoImpl, error) {
	kw := p.next() // proto
	target, err := p.expect(TokenIdentifier, "after `proto`")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLbrace, "after proto target"); err != nil {
		return nil, err
	}

	var methods []*FunctionDecl
	for !p.match(TokenRbrace) {
		if p.at(TokenEOF) {
			return nil, p.errorAt(p.peek(), ErrUnexpectedEndOfFile,
				"unexpected end of file inside proto `%s`", target.Lexeme)
		}
		if !p.at(TokenFun) {
			return nil, p.errorAt(p.peek(), ErrSyntaxError,
				"expected `fun` inside proto `%s`, found `%s`", target.Lexeme, p.peek())
		}
		m, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return NewProtoImpl(target.Lexeme, methods, kw.Line), nil
}

// parseStruct parses `struct Name { field: T; ... fun ... }`.
// Fields and methods may interleave; field order defines layout.
func (p *Parser) parseStruct() (*StructDecl, error) {
	kw := p.next() // struct
	name, err := p.expect(TokenIdentifier, "after `struct`")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLbrace, "after struct name"); err != nil {
		return nil, err
	}

	var fields []StructField
	var methods []*FunctionDecl
	for !p.match(TokenRbrace) {
		switch tok := p.peek(); tok.Kind {
		case TokenEOF:
			return nil, p.errorAt(tok, ErrUnexpectedEndOfFile,
				"unexpected end of file inside struct `%s`", name.Lexeme)
		case TokenFun:
			m, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			methods = append(methods, m)
		case TokenIdentifier:
			fieldName := p.next()
			if _, err := p.expect(TokenColon, fmt.Sprintf("after field `%s`", fieldName.Lexeme)); err != nil {
				return nil, err
			}
			typ, err := p.parseTypeAnnotation()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenSemi, "after field declaration"); err != nil {
				return nil, err
			}
			fields = append(fields, StructField{Name: fieldName.Lexeme, Type: typ})
		default:
			return nil, p.errorAt(tok, ErrSyntaxError,
				"expected field or method inside struct `%s`, found `%s`", name.Lexeme, tok)
		}
	}
	return NewStructDecl(name.Lexeme, fields, methods, kw.Line), nil
}

// parseEnum parses `enum Name { A, B = 3, C }`.  Variants without an
// explicit value continue from the previous one.
func (p *Parser) parseEnum() (*EnumDecl, error) {
	kw := p.next() // enum
	name, err := p.expect(TokenIdentifier, "after `enum`")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLbrace, "after enum name"); err != nil {
		return nil, err
	}

	var variants []EnumVariant
	nextValue := int64(0)
	for !p.match(TokenRbrace) {
		variant, err := p.expect(TokenIdentifier, "in enum body")
		if err != nil {
			return nil, err
		}
		value := nextValue
		if p.match(TokenEq) {
			neg := p.match(TokenMinus)
			lit, err := p.expect(TokenIntLiteral, "after `=` in enum variant")
			if err != nil {
				return nil, err
			}
			v, err := strconv.ParseInt(lit.Lexeme, 10, 64)
			if err != nil {
				return nil, p.errorAt(lit, ErrInvalidNumber,
					"enum value `%s` out of range", lit.Lexeme)
			}
			if neg {
				v = -v
			}
			value = v
		}
		variants = append(variants, EnumVariant{Name: variant.Lexeme, Value: value})
		nextValue = value + 1

		if !p.match(TokenComma) {
			if _, err := p.expect(TokenRbrace, "after enum variants"); err != nil {
				return nil, err
			}
			break
		}
	}
	return NewEnumDecl(name.Lexeme, variants, kw.Line), nil
}

// parseFunction parses `fun name(params) [-> T] { body }`.  A
// missing return type means void.
func (p *Parser) parseFunction() (*FunctionDecl, error) {
	kw := p.next() // fun
	name, err := p.expect(TokenIdentifier, "after `fun`")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLparen, "after function name"); err != nil {
		return nil, err
	}
	params, err := p.parseParameters(name.Lexeme)
	if err != nil {
		return nil, err
	}

	ret := WaveType(VoidType{})
	if p.match(TokenArrow) {
		ret, err = p.parseTypeAnnotation()
		if err != nil {
			return nil, err
		}
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return NewFunctionDecl(name.Lexeme, params, ret, body, kw.Line), nil
}

// parseParameters parses `name: T [= literal], ...` up to and
// including the closing parenthesis.  Duplicate names are rejected.
func (p *Parser) parseParameters(fname string) ([]Param, error) {
	var params []Param
	seen := map[string]bool{}
	for !p.at(TokenRparen) {
		name, err := p.expect(TokenIdentifier, "as parameter name")
		if err != nil {
			return nil, err
		}
		if seen[name.Lexeme] {
			return nil, p.errorAt(name, ErrSyntaxError,
				"parameter `%s` is declared multiple times in `%s`", name.Lexeme, fname)
		}
		seen[name.Lexeme] = true

		if _, err := p.expect(TokenColon, fmt.Sprintf("after parameter `%s`", name.Lexeme)); err != nil {
			return nil, err
		}
		typ, err := p.parseTypeAnnotation()
		if err != nil {
			return nil, err
		}

		var def Expression
		if p.match(TokenEq) {
			def, err = p.parsePrimary()
			if err != nil {
				return nil, err
			}
			if !isLiteralExpr(def) {
				return nil, p.errorAt(name, ErrInvalidExpression,
					"default for parameter `%s` must be a literal", name.Lexeme)
			}
		}

		params = append(params, Param{Name: name.Lexeme, Type: typ, Default: def})

		if !p.match(TokenComma) {
			break
		}
	}
	if _, err := p.expect(TokenRparen, "after parameter list"); err != nil {
		return nil, err
	}
	return params, nil
}

// parseTypeAnnotation parses a type at the current token: a type
// keyword, a width-tagged primitive, or an identifier possibly
// followed by a `<...>` generic suffix (ptr<T>, array<T, N>).
func (p *Parser) parseTypeAnnotation() (WaveType, error) {
	tok := p.next()
	switch tok.Kind {
	case TokenTypeInt, TokenTypeUint, TokenTypeFloat,
		TokenTypeBool, TokenTypeChar, TokenTypeByte,
		TokenTypeStr, TokenTypeVoid:
		t, err := TokenTypeToWaveType(tok)
		if err != nil {
			return nil, p.errorAt(tok, ErrInvalidType, "%s", err)
		}
		return t, nil
	case TokenIdentifier:
		if !p.at(TokenLt) {
			t, err := TokenTypeToWaveType(tok)
			if err != nil {
				return nil, p.errorAt(tok, ErrInvalidType, "%s", err)
			}
			return t, nil
		}
		p.next() // consume '<'
		inner, err := p.collectGenericInner(tok)
		if err != nil {
			return nil, err
		}
		full := fmt.Sprintf("%s<%s>", tok.Lexeme, inner)
		t, err := ParseType(full)
		if err != nil {
			return nil, p.errorAt(tok, ErrInvalidType, "unknown generic type `%s`", full)
		}
		return t, nil
	default:
		return nil, p.errorAt(tok, ErrInvalidType, "expected a type, found `%s`", tok)
	}
}

// collectGenericInner consumes tokens after a `<` up to its matching
// `>`, rebuilding the textual form for ParseType.  Nested angle
// brackets are tracked by depth.
func (p *Parser) collectGenericInner(open Token) (string, error) {
	var b strings.Builder
	depth := 1
	for {
		tok := p.next()
		switch tok.Kind {
		case TokenEOF:
			return "", p.errorAt(open, ErrUnexpectedEndOfFile,
				"unterminated `<` in generic type")
		case TokenLt:
			depth++
			b.WriteByte('<')
		case TokenGt:
			depth--
			if depth == 0 {
				return b.String(), nil
			}
			b.WriteByte('>')
		case TokenShr:
			// `>>` closes two levels at once (array<ptr<T>>).  The
			// outermost `>` is implied by the caller; inner ones are
			// part of the collected text.
			depth -= 2
			if depth < 0 {
				return "", p.errorAt(tok, ErrInvalidType, "unbalanced `>` in generic type")
			}
			if depth == 0 {
				b.WriteByte('>')
				return b.String(), nil
			}
			b.WriteString(">>")
		case TokenComma:
			b.WriteByte(',')
		default:
			b.WriteString(tok.Lexeme)
		}
	}
}
