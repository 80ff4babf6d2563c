package usda

import (
	"github.com/tdewolff/parse/v2"
)

// Tokenize splits text into tokens, always ending with a TokEOF token.
// It never fails: unknown bytes become single-byte punctuation and
// unterminated literals run to the end of the line or input.
func Tokenize(text string) []Token {
	l := &lexer{in: parse.NewInputString(text), line: 1, col: 1}
	var toks []Token
	for {
		tok := l.next()
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks
		}
	}
}

type lexer struct {
	in   *parse.Input
	line int
	col  int
}

func (l *lexer) peek(n int) byte {
	return l.in.Peek(n)
}

func (l *lexer) atEOF() bool {
	return l.in.Peek(0) == 0 && l.in.Err() != nil
}

// step consumes one byte, keeping line and column current.
func (l *lexer) step() {
	if l.in.Peek(0) == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.in.Move(1)
}

func (l *lexer) skipSpaceAndComments() {
	for !l.atEOF() {
		c := l.peek(0)
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.step()
		case c == '#':
			for !l.atEOF() && l.peek(0) != '\n' {
				l.step()
			}
		default:
			l.in.Skip()
			return
		}
	}
	l.in.Skip()
}

func (l *lexer) next() Token {
	l.skipSpaceAndComments()
	tok := Token{Line: l.line, Col: l.col}
	if l.atEOF() {
		tok.Kind = TokEOF
		return tok
	}

	c := l.peek(0)
	switch {
	case c == '"' || c == '\'':
		tok.Kind = TokString
		tok.Text = l.scanString(c)
		return tok
	case c == '@':
		tok.Kind = TokAsset
		tok.Text = l.scanDelimited('@')
		return tok
	case c == '<':
		tok.Kind = TokPath
		tok.Text = l.scanDelimited('>')
		return tok
	case l.startsNumber():
		tok.Kind = TokNumber
		l.scanNumber()
	case isIdentStart(c):
		tok.Kind = TokIdent
		for !l.atEOF() && isIdentChar(l.peek(0)) {
			l.step()
		}
	default:
		tok.Kind = TokPunct
		l.step()
	}
	tok.Text = string(l.in.Shift())
	return tok
}

// scanString reads a single, double or triple quoted string and returns its
// body. Backslash escapes are kept verbatim.
func (l *lexer) scanString(q byte) string {
	triple := l.peek(1) == q && l.peek(2) == q
	open := 1
	if triple {
		open = 3
	}
	for i := 0; i < open; i++ {
		l.step()
	}
	l.in.Skip()

	for !l.atEOF() {
		c := l.peek(0)
		if c == '\\' && l.peek(1) != 0 {
			l.step()
			l.step()
			continue
		}
		if !triple && c == '\n' {
			break
		}
		if c == q && (!triple || (l.peek(1) == q && l.peek(2) == q)) {
			body := string(l.in.Lexeme())
			for i := 0; i < open; i++ {
				l.step()
			}
			l.in.Skip()
			return body
		}
		l.step()
	}
	return string(l.in.Shift())
}

// scanDelimited reads from the current opening byte up to close and returns
// the text in between. An unterminated literal ends at the line break.
func (l *lexer) scanDelimited(close byte) string {
	l.step()
	l.in.Skip()
	for !l.atEOF() {
		c := l.peek(0)
		if c == close {
			body := string(l.in.Lexeme())
			l.step()
			l.in.Skip()
			return body
		}
		if c == '\n' {
			break
		}
		l.step()
	}
	return string(l.in.Shift())
}

func (l *lexer) startsNumber() bool {
	c := l.peek(0)
	if isDigit(c) {
		return true
	}
	if c == '-' || c == '+' {
		c1 := l.peek(1)
		return isDigit(c1) || (c1 == '.' && isDigit(l.peek(2)))
	}
	return c == '.' && isDigit(l.peek(1))
}

// scanNumber consumes digits, dots and exponents. Malformed runs such as
// 1.2.3 stay one token so the parser can turn them into NaN.
func (l *lexer) scanNumber() {
	if c := l.peek(0); c == '-' || c == '+' {
		l.step()
	}
	for !l.atEOF() {
		c := l.peek(0)
		switch {
		case isDigit(c) || c == '.':
			l.step()
		case c == 'e' || c == 'E':
			l.step()
			if s := l.peek(0); s == '-' || s == '+' {
				l.step()
			}
		default:
			return
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == ':' || c == '.'
}
