package parser

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes SPSL source code. Comments are skipped, so braces and
// semicolons inside them never confuse raw-region capture.
type Lexer struct {
	source string
	pos    int
	line   int
	column int
	start  int
	tokens []Token
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source string) *Lexer {
	est := len(source) / 6
	if est < 16 {
		est = 16
	}
	return &Lexer{
		source: source,
		line:   1,
		column: 1,
		tokens: make([]Token, 0, est),
	}
}

// Tokenize returns all tokens from the source.
func (l *Lexer) Tokenize() ([]Token, error) {
	for !l.isAtEnd() {
		l.start = l.pos
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}

	l.tokens = append(l.tokens, Token{
		Kind:   TokenEOF,
		Start:  l.pos,
		End:    l.pos,
		Line:   l.line,
		Column: l.column,
	})

	return l.tokens, nil
}

func (l *Lexer) scanToken() error {
	startLine, startCol := l.line, l.column
	r := l.advance()

	switch r {
	case ' ', '\t', '\r', '\n':
		return nil
	case '(':
		l.addToken(TokenLeftParen, startLine, startCol)
	case ')':
		l.addToken(TokenRightParen, startLine, startCol)
	case '{':
		l.addToken(TokenLeftBrace, startLine, startCol)
	case '}':
		l.addToken(TokenRightBrace, startLine, startCol)
	case '[':
		l.addToken(TokenLeftBracket, startLine, startCol)
	case ']':
		l.addToken(TokenRightBracket, startLine, startCol)
	case ',':
		l.addToken(TokenComma, startLine, startCol)
	case ';':
		l.addToken(TokenSemicolon, startLine, startCol)
	case '.':
		if isDigit(l.peek()) {
			l.number()
			l.addToken(TokenNumber, startLine, startCol)
			return nil
		}
		l.addToken(TokenDot, startLine, startCol)
	case '=':
		if l.peek() == '=' {
			l.advance()
			l.addToken(TokenOp, startLine, startCol)
			return nil
		}
		l.addToken(TokenEqual, startLine, startCol)
	case '/':
		switch l.peek() {
		case '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case '*':
			l.advance()
			for !l.isAtEnd() {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					return nil
				}
				l.advance()
			}
			return fmt.Errorf("%d:%d: unterminated block comment", startLine, startCol)
		default:
			l.addToken(TokenOp, startLine, startCol)
		}
	case '#':
		// Preprocessor directives pass through as a single raw token up
		// to end of line.
		for !l.isAtEnd() && l.peek() != '\n' {
			l.advance()
		}
		l.addToken(TokenOp, startLine, startCol)
	default:
		switch {
		case isDigit(r):
			l.number()
			l.addToken(TokenNumber, startLine, startCol)
		case isIdentStart(r):
			for isIdentPart(l.peek()) {
				l.advance()
			}
			l.addToken(TokenIdent, startLine, startCol)
		case isOperator(r):
			l.addToken(TokenOp, startLine, startCol)
		default:
			return fmt.Errorf("%d:%d: unexpected character %q", startLine, startCol, r)
		}
	}

	return nil
}

func (l *Lexer) number() {
	for isDigit(l.peek()) || l.peek() == '.' {
		l.advance()
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	for l.peek() == 'f' || l.peek() == 'F' || l.peek() == 'u' || l.peek() == 'U' {
		l.advance()
	}
}

func (l *Lexer) addToken(kind TokenKind, line, col int) {
	l.tokens = append(l.tokens, Token{
		Kind:   kind,
		Text:   l.source[l.start:l.pos],
		Start:  l.start,
		End:    l.pos,
		Line:   line,
		Column: col,
	})
}

func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.source[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[l.pos:])
	return r
}

func (l *Lexer) peekAt(offset int) rune {
	pos := l.pos
	for i := 0; i < offset; i++ {
		if pos >= len(l.source) {
			return 0
		}
		_, size := utf8.DecodeRuneInString(l.source[pos:])
		pos += size
	}
	if pos >= len(l.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[pos:])
	return r
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}

func isOperator(r rune) bool {
	switch r {
	case '+', '-', '*', '%', '<', '>', '!', '&', '|', '^', '~', '?', ':':
		return true
	}
	return false
}
