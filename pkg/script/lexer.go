// SPDX-License-Identifier: MPL-2.0

package script

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	TokSemicolon TokenKind = iota
	TokColon
	TokComma
	TokPipe
	TokAt
	TokBang
	TokVariable
	TokLCurly
	TokRCurly
	TokLSquare
	TokRSquare
	TokLParen
	TokRParen
	TokLAngle
	TokRAngle
	TokComment
	TokIdent
	TokNum
	TokStr
	// TokEOF is never produced by Lex; the parser uses it past the last token.
	TokEOF
)

var punctuation = map[rune]TokenKind{
	';': TokSemicolon,
	':': TokColon,
	',': TokComma,
	'|': TokPipe,
	'@': TokAt,
	'!': TokBang,
	'{': TokLCurly,
	'}': TokRCurly,
	'[': TokLSquare,
	']': TokRSquare,
	'(': TokLParen,
	')': TokRParen,
	'<': TokLAngle,
	'>': TokRAngle,
}

type (
	// TokenKind identifies the lexical class of a Token.
	TokenKind int

	// Pos is a 1-based line and column in the source text.
	Pos struct {
		Line int
		Col  int
	}

	// Token is a lexical unit. Text holds the identifier, number, unquoted
	// string contents, variable name (without '$') or comment text.
	Token struct {
		Kind TokenKind
		Text string
		Pos  Pos
	}

	// ParseError is returned for malformed package scripts.
	ParseError struct {
		Pos Pos
		Msg string
	}

	lexer struct {
		src    []rune
		offset int
		line   int
		col    int
		tokens []Token
	}
)

// String formats the position as "line:col".
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// String renders the token as it would appear in source.
func (t Token) String() string {
	switch t.Kind {
	case TokVariable:
		return "$" + t.Text
	case TokComment:
		return "# " + t.Text
	case TokStr:
		return fmt.Sprintf("%q", t.Text)
	case TokIdent, TokNum:
		return t.Text
	case TokEOF:
		return "end of input"
	}
	for r, k := range punctuation {
		if k == t.Kind {
			return string(r)
		}
	}
	return fmt.Sprintf("TokenKind(%d)", int(t.Kind))
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Lex splits package script text into tokens. Whitespace is dropped;
// comments are kept so tooling can see them, and are skipped by Parse.
func Lex(src string) ([]Token, error) {
	lx := &lexer{src: []rune(src), line: 1, col: 1}
	if err := lx.run(); err != nil {
		return nil, err
	}
	return lx.tokens, nil
}

func (lx *lexer) peek() (rune, bool) {
	if lx.offset >= len(lx.src) {
		return 0, false
	}
	return lx.src[lx.offset], true
}

func (lx *lexer) next() rune {
	c := lx.src[lx.offset]
	lx.offset++
	if c == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return c
}

func (lx *lexer) emit(kind TokenKind, text string, pos Pos) {
	lx.tokens = append(lx.tokens, Token{Kind: kind, Text: text, Pos: pos})
}

func (lx *lexer) run() error {
	for {
		c, ok := lx.peek()
		if !ok {
			return nil
		}
		pos := Pos{Line: lx.line, Col: lx.col}

		switch {
		case unicode.IsSpace(c):
			lx.next()
		case c == '"':
			lx.next()
			s, err := lx.lexString(pos)
			if err != nil {
				return err
			}
			lx.emit(TokStr, s, pos)
		case c == '#':
			lx.next()
			lx.emit(TokComment, strings.TrimSpace(lx.takeWhile(func(r rune) bool { return r != '\n' })), pos)
		case c == '$':
			lx.next()
			name := lx.takeIdent()
			if name == "" {
				return &ParseError{Pos: pos, Msg: "expected variable name after '$'"}
			}
			lx.emit(TokVariable, name, pos)
		case c == '-' || unicode.IsDigit(c):
			lx.next()
			digits := lx.takeWhile(unicode.IsDigit)
			if c == '-' && digits == "" {
				return &ParseError{Pos: pos, Msg: "expected digits after '-'"}
			}
			lx.emit(TokNum, string(c)+digits, pos)
		case isIdentStart(c):
			lx.emit(TokIdent, lx.takeIdent(), pos)
		default:
			kind, ok := punctuation[c]
			if !ok {
				return &ParseError{Pos: pos, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
			lx.next()
			lx.emit(kind, "", pos)
		}
	}
}

// lexString reads up to and including the closing quote. A backslash
// escapes the character after it.
func (lx *lexer) lexString(start Pos) (string, error) {
	var sb strings.Builder
	escape := false
	for {
		c, ok := lx.peek()
		if !ok {
			return "", &ParseError{Pos: start, Msg: "unterminated string"}
		}
		lx.next()
		switch {
		case escape:
			sb.WriteRune(c)
			escape = false
		case c == '\\':
			escape = true
		case c == '"':
			return sb.String(), nil
		default:
			sb.WriteRune(c)
		}
	}
}

func (lx *lexer) takeWhile(pred func(rune) bool) string {
	start := lx.offset
	for {
		c, ok := lx.peek()
		if !ok || !pred(c) {
			break
		}
		lx.next()
	}
	return string(lx.src[start:lx.offset])
}

func (lx *lexer) takeIdent() string {
	c, ok := lx.peek()
	if !ok || !isIdentStart(c) {
		return ""
	}
	return lx.takeWhile(isIdentChar)
}

func isIdentStart(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isIdentChar(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}
