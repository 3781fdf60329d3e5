// Package parser turns SPSL source text into a syntax.Module.
//
// Only the top-level structure of a module is parsed: import statements,
// variable and type declarations, interface blocks and function
// definitions. Function bodies, initializers and layout values are kept
// as raw source slices and re-emitted verbatim by the GLSL writer.
package parser

// TokenKind represents the type of token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota

	TokenIdent
	TokenNumber

	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBrace    // {
	TokenRightBrace   // }
	TokenLeftBracket  // [
	TokenRightBracket // ]
	TokenComma        // ,
	TokenSemicolon    // ;
	TokenDot          // .
	TokenEqual        // =

	// TokenOp covers every other operator character. Operators only
	// occur inside raw-captured regions (bodies, initializers, layout
	// values) where their exact meaning is irrelevant.
	TokenOp
)

// Token is one lexical token. Start and End are byte offsets into the
// source, used to slice raw regions out of it.
type Token struct {
	Kind   TokenKind
	Text   string
	Start  int
	End    int
	Line   int
	Column int
}
