package parser

import (
	"fmt"
	"strings"

	"spsl/internal/syntax"
)

// ParseError represents a parsing error with its source location.
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// Parser parses SPSL tokens into a syntax.Module.
type Parser struct {
	source  string
	tokens  []Token
	current int
}

// ParseModule parses SPSL source text into a module.
func ParseModule(source string) (*syntax.Module, error) {
	tokens, err := NewLexer(source).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{source: source, tokens: tokens}
	return p.parseModule()
}

func (p *Parser) parseModule() (*syntax.Module, error) {
	mod := &syntax.Module{}

	for !p.isAtEnd() {
		if p.checkIdent("from") {
			imp, err := p.parseImport()
			if err != nil {
				return nil, err
			}
			mod.Imports = append(mod.Imports, imp)
			continue
		}

		decl, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		mod.Decls = append(mod.Decls, decl)
	}

	return mod, nil
}

// parseImport parses `from a.b.c import (x, y)`. A trailing semicolon is
// accepted but not required.
func (p *Parser) parseImport() (syntax.Import, error) {
	start := p.peek()
	p.advance() // from

	var parts []string
	name, err := p.expectIdent("module path")
	if err != nil {
		return syntax.Import{}, err
	}
	parts = append(parts, name)
	for p.check(TokenDot) {
		p.advance()
		name, err := p.expectIdent("module path segment")
		if err != nil {
			return syntax.Import{}, err
		}
		parts = append(parts, name)
	}

	if !p.checkIdent("import") {
		return syntax.Import{}, p.errorAtCurrent("expected 'import' after module path")
	}
	p.advance()

	if _, err := p.expect(TokenLeftParen, "expected '(' to open the import list"); err != nil {
		return syntax.Import{}, err
	}

	var symbols []string
	for {
		sym, err := p.expectIdent("imported symbol")
		if err != nil {
			return syntax.Import{}, err
		}
		symbols = append(symbols, sym)
		if !p.check(TokenComma) {
			break
		}
		p.advance()
	}

	if _, err := p.expect(TokenRightParen, "expected ')' to close the import list"); err != nil {
		return syntax.Import{}, err
	}
	if p.check(TokenSemicolon) {
		p.advance()
	}

	return syntax.Import{
		Module:  strings.Join(parts, "."),
		Symbols: symbols,
		Span:    spanOf(start),
	}, nil
}

func (p *Parser) parseDecl() (syntax.Decl, error) {
	start := p.peek()

	quals, err := p.parseQualifiers()
	if err != nil {
		return nil, err
	}

	// struct definition, possibly followed by declarators
	if p.checkIdent("struct") {
		spec, err := p.parseStructSpec()
		if err != nil {
			return nil, err
		}
		names, err := p.parseDeclarators()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSemicolon, "expected ';' after struct declaration"); err != nil {
			return nil, err
		}
		return &syntax.VarDecl{
			Type: syntax.FullType{
				Qualifiers: quals,
				Spec:       syntax.TypeSpec{Name: spec.Name, Struct: spec},
			},
			Names: names,
			Span:  spanOf(start),
		}, nil
	}

	// interface block: qualifiers, then a name directly followed by '{'
	if len(quals) > 0 && p.check(TokenIdent) && p.checkAt(1, TokenLeftBrace) {
		return p.parseBlock(quals, start)
	}

	ty, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}

	name, err := p.expectIdent("declaration name")
	if err != nil {
		return nil, err
	}

	if p.check(TokenLeftParen) {
		return p.parseFunc(quals, ty, name, start)
	}

	first, err := p.parseDeclaratorTail(name)
	if err != nil {
		return nil, err
	}
	names := []syntax.Declarator{first}
	for p.check(TokenComma) {
		p.advance()
		n, err := p.expectIdent("declarator name")
		if err != nil {
			return nil, err
		}
		d, err := p.parseDeclaratorTail(n)
		if err != nil {
			return nil, err
		}
		names = append(names, d)
	}
	if _, err := p.expect(TokenSemicolon, "expected ';' after declaration"); err != nil {
		return nil, err
	}

	return &syntax.VarDecl{
		Type:  syntax.FullType{Qualifiers: quals, Spec: ty},
		Names: names,
		Span:  spanOf(start),
	}, nil
}

func (p *Parser) parseBlock(quals []syntax.Qualifier, start Token) (syntax.Decl, error) {
	name, err := p.expectIdent("block name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLeftBrace, "expected '{' to open the block"); err != nil {
		return nil, err
	}
	fields, err := p.parseFields()
	if err != nil {
		return nil, err
	}

	var instance *syntax.Declarator
	if p.check(TokenIdent) {
		n := p.advance().Text
		d, err := p.parseDeclaratorTail(n)
		if err != nil {
			return nil, err
		}
		instance = &d
	}
	if _, err := p.expect(TokenSemicolon, "expected ';' after block"); err != nil {
		return nil, err
	}

	return &syntax.BlockDecl{
		Qualifiers: quals,
		Name:       name,
		Fields:     fields,
		Instance:   instance,
		Span:       spanOf(start),
	}, nil
}

func (p *Parser) parseFunc(quals []syntax.Qualifier, ret syntax.TypeSpec, name string, start Token) (syntax.Decl, error) {
	p.advance() // (

	var params []syntax.Param
	if !p.check(TokenRightParen) {
		for {
			param, err := p.parseParam()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.check(TokenComma) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokenRightParen, "expected ')' after parameters"); err != nil {
		return nil, err
	}

	open, err := p.expect(TokenLeftBrace, "expected '{' to open the function body")
	if err != nil {
		return nil, err
	}
	body, err := p.rawBody(open)
	if err != nil {
		return nil, err
	}

	return &syntax.FuncDecl{
		Name:       name,
		ReturnType: syntax.FullType{Qualifiers: quals, Spec: ret},
		Params:     params,
		Body:       body,
		Span:       spanOf(start),
	}, nil
}

func (p *Parser) parseParam() (syntax.Param, error) {
	quals, err := p.parseQualifiers()
	if err != nil {
		return syntax.Param{}, err
	}
	ty, err := p.parseTypeSpec()
	if err != nil {
		return syntax.Param{}, err
	}

	param := syntax.Param{Qualifiers: quals, Type: ty}
	if p.check(TokenIdent) {
		param.Name = p.advance().Text
		if p.check(TokenLeftBracket) {
			arr, err := p.parseArraySpec()
			if err != nil {
				return syntax.Param{}, err
			}
			param.Array = arr
		}
	}
	return param, nil
}

func (p *Parser) parseStructSpec() (*syntax.StructSpec, error) {
	p.advance() // struct

	spec := &syntax.StructSpec{}
	if p.check(TokenIdent) {
		spec.Name = p.advance().Text
	}
	if _, err := p.expect(TokenLeftBrace, "expected '{' to open the struct"); err != nil {
		return nil, err
	}
	fields, err := p.parseFields()
	if err != nil {
		return nil, err
	}
	spec.Fields = fields
	return spec, nil
}

// parseFields parses struct or block field lines up to and including the
// closing brace.
func (p *Parser) parseFields() ([]syntax.StructField, error) {
	var fields []syntax.StructField
	for !p.check(TokenRightBrace) {
		if p.isAtEnd() {
			return nil, p.errorAtCurrent("unexpected end of input inside braces")
		}
		field, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	p.advance() // }
	return fields, nil
}

func (p *Parser) parseField() (syntax.StructField, error) {
	quals, err := p.parseQualifiers()
	if err != nil {
		return syntax.StructField{}, err
	}

	var ty syntax.TypeSpec
	if p.checkIdent("struct") {
		spec, err := p.parseStructSpec()
		if err != nil {
			return syntax.StructField{}, err
		}
		ty = syntax.TypeSpec{Name: spec.Name, Struct: spec}
	} else {
		ty, err = p.parseTypeSpec()
		if err != nil {
			return syntax.StructField{}, err
		}
	}

	names, err := p.parseDeclarators()
	if err != nil {
		return syntax.StructField{}, err
	}
	if len(names) == 0 {
		return syntax.StructField{}, p.errorAtCurrent("expected field name")
	}
	if _, err := p.expect(TokenSemicolon, "expected ';' after field"); err != nil {
		return syntax.StructField{}, err
	}

	return syntax.StructField{Qualifiers: quals, Type: ty, Names: names}, nil
}

func (p *Parser) parseDeclarators() ([]syntax.Declarator, error) {
	var names []syntax.Declarator
	if !p.check(TokenIdent) {
		return nil, nil
	}
	for {
		n := p.advance().Text
		d, err := p.parseDeclaratorTail(n)
		if err != nil {
			return nil, err
		}
		names = append(names, d)
		if !p.check(TokenComma) {
			return names, nil
		}
		p.advance()
	}
}

// parseDeclaratorTail finishes a declarator whose name has already been
// consumed: optional array suffix, optional initializer.
func (p *Parser) parseDeclaratorTail(name string) (syntax.Declarator, error) {
	d := syntax.Declarator{Name: name}
	if p.check(TokenLeftBracket) {
		arr, err := p.parseArraySpec()
		if err != nil {
			return syntax.Declarator{}, err
		}
		d.Array = arr
	}
	if p.check(TokenEqual) {
		p.advance()
		init, err := p.rawUntil(TokenComma, TokenSemicolon)
		if err != nil {
			return syntax.Declarator{}, err
		}
		d.Init = init
	}
	return d, nil
}

func (p *Parser) parseTypeSpec() (syntax.TypeSpec, error) {
	name, err := p.expectIdent("type name")
	if err != nil {
		return syntax.TypeSpec{}, err
	}
	ty := syntax.TypeSpec{Name: name}
	if p.check(TokenLeftBracket) {
		arr, err := p.parseArraySpec()
		if err != nil {
			return syntax.TypeSpec{}, err
		}
		ty.Array = arr
	}
	return ty, nil
}

func (p *Parser) parseArraySpec() (*syntax.ArraySpec, error) {
	p.advance() // [
	size, err := p.rawUntil(TokenRightBracket)
	if err != nil {
		return nil, err
	}
	p.advance() // ]
	return &syntax.ArraySpec{Size: size}, nil
}

func (p *Parser) parseQualifiers() ([]syntax.Qualifier, error) {
	var quals []syntax.Qualifier
	for p.check(TokenIdent) {
		switch p.peek().Text {
		case "layout":
			p.advance()
			lq, err := p.parseLayout()
			if err != nil {
				return nil, err
			}
			quals = append(quals, lq)
		case "const":
			p.advance()
			quals = append(quals, syntax.StorageQualifier{Storage: syntax.StorageConst})
		case "in":
			p.advance()
			quals = append(quals, syntax.StorageQualifier{Storage: syntax.StorageIn})
		case "out":
			p.advance()
			quals = append(quals, syntax.StorageQualifier{Storage: syntax.StorageOut})
		case "uniform":
			p.advance()
			quals = append(quals, syntax.StorageQualifier{Storage: syntax.StorageUniform})
		case "buffer":
			p.advance()
			quals = append(quals, syntax.StorageQualifier{Storage: syntax.StorageBuffer})
		case "shared":
			p.advance()
			quals = append(quals, syntax.StorageQualifier{Storage: syntax.StorageShared})
		case "flat", "smooth", "noperspective":
			quals = append(quals, syntax.InterpQualifier{Kind: p.advance().Text})
		case "highp", "mediump", "lowp":
			quals = append(quals, syntax.PrecisionQualifier{Kind: p.advance().Text})
		default:
			return quals, nil
		}
	}
	return quals, nil
}

func (p *Parser) parseLayout() (syntax.LayoutQualifier, error) {
	if _, err := p.expect(TokenLeftParen, "expected '(' after 'layout'"); err != nil {
		return syntax.LayoutQualifier{}, err
	}

	var ids []syntax.LayoutID
	for {
		name, err := p.expectIdent("layout identifier")
		if err != nil {
			return syntax.LayoutQualifier{}, err
		}
		id := syntax.LayoutID{Name: name}
		if p.check(TokenEqual) {
			p.advance()
			value, err := p.rawUntil(TokenComma, TokenRightParen)
			if err != nil {
				return syntax.LayoutQualifier{}, err
			}
			id.Value = value
		}
		ids = append(ids, id)
		if !p.check(TokenComma) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(TokenRightParen, "expected ')' to close the layout qualifier"); err != nil {
		return syntax.LayoutQualifier{}, err
	}

	return syntax.LayoutQualifier{IDs: ids}, nil
}

// rawBody consumes tokens up to the brace matching open and returns the
// verbatim source between the braces.
func (p *Parser) rawBody(open Token) (string, error) {
	depth := 1
	for !p.isAtEnd() {
		tok := p.advance()
		switch tok.Kind {
		case TokenLeftBrace:
			depth++
		case TokenRightBrace:
			depth--
			if depth == 0 {
				return p.source[open.End:tok.Start], nil
			}
		}
	}
	return "", &ParseError{
		Message: "unterminated function body",
		Line:    open.Line,
		Column:  open.Column,
	}
}

// rawUntil captures verbatim source until one of the stop kinds appears
// at bracket depth zero. The stop token is not consumed.
func (p *Parser) rawUntil(stops ...TokenKind) (string, error) {
	start := p.peek()
	depth := 0
	end := start.Start

	for !p.isAtEnd() {
		tok := p.peek()
		if depth == 0 {
			for _, s := range stops {
				if tok.Kind == s {
					return strings.TrimSpace(p.source[start.Start:end]), nil
				}
			}
		}
		switch tok.Kind {
		case TokenLeftParen, TokenLeftBracket, TokenLeftBrace:
			depth++
		case TokenRightParen, TokenRightBracket, TokenRightBrace:
			depth--
		}
		end = tok.End
		p.advance()
	}
	return "", p.errorAtCurrent("unexpected end of input")
}

func (p *Parser) peek() Token { return p.tokens[p.current] }

func (p *Parser) peekAt(offset int) Token {
	i := p.current + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.current]
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) check(kind TokenKind) bool { return p.peek().Kind == kind }

func (p *Parser) checkAt(offset int, kind TokenKind) bool {
	return p.peekAt(offset).Kind == kind
}

func (p *Parser) checkIdent(text string) bool {
	tok := p.peek()
	return tok.Kind == TokenIdent && tok.Text == text
}

func (p *Parser) expect(kind TokenKind, msg string) (Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	return Token{}, p.errorAtCurrent(msg)
}

func (p *Parser) expectIdent(what string) (string, error) {
	if p.check(TokenIdent) {
		return p.advance().Text, nil
	}
	return "", p.errorAtCurrent(fmt.Sprintf("expected %s, got %q", what, p.peek().Text))
}

func (p *Parser) errorAtCurrent(msg string) *ParseError {
	tok := p.peek()
	return &ParseError{Message: msg, Line: tok.Line, Column: tok.Column}
}

func (p *Parser) isAtEnd() bool { return p.peek().Kind == TokenEOF }

func spanOf(tok Token) syntax.Span {
	return syntax.Span{Line: tok.Line, Col: tok.Column}
}
