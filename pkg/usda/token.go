// Package usda reads and writes the text scene-description format: a small
// lexer feeding a recursive-descent parser keyed on brace and paren nesting,
// and a writer producing text the parser reads back.
package usda

import "fmt"

// TokenKind classifies lexer output.
type TokenKind int

const (
	TokEOF    TokenKind = iota
	TokIdent            // def, Sphere, double, xformOp:translate.timeSamples
	TokNumber           // 1, -2.5, 1e3, and malformed runs such as 1.2.3
	TokString           // "Name", 'Name', """doc"""
	TokAsset            // @./file.usda@
	TokPath             // </Prim/Path>
	TokPunct            // { } ( ) [ ] = , ; : and any other single byte
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "EOF"
	case TokIdent:
		return "identifier"
	case TokNumber:
		return "number"
	case TokString:
		return "string"
	case TokAsset:
		return "asset path"
	case TokPath:
		return "prim path"
	case TokPunct:
		return "punctuation"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is one lexeme. Text holds the literal without delimiters for
// strings, asset paths and prim paths.
type Token struct {
	Kind TokenKind
	Text string
	Line int // 1-based
	Col  int // 1-based, in bytes
}

func (t Token) String() string {
	if t.Kind == TokEOF {
		return "EOF"
	}
	return fmt.Sprintf("%s %q at %d:%d", t.Kind, t.Text, t.Line, t.Col)
}

// is reports whether the token is the given identifier or punctuation.
func (t Token) is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}
