package rules

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenOperator // == != < <= > >= && || !
	tokenKeyword  // in contains startsWith endsWith matches true false null
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// keywords the parser treats specially. Everything else that looks like a word
// is an identifier (context paths may contain dots, e.g. email.risk_score).
var keywords = map[string]bool{
	"in":         true,
	"contains":   true,
	"startsWith": true,
	"endsWith":   true,
	"matches":    true,
	"true":       true,
	"false":      true,
	"null":       true,
}

type lexer struct {
	input string
	pos   int
}

func lex(input string) ([]token, error) {
	l := &lexer{input: input}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.input[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{tokenLParen, "(", start}, nil
	case c == ')':
		l.pos++
		return token{tokenRParen, ")", start}, nil
	case c == '[':
		l.pos++
		return token{tokenLBracket, "[", start}, nil
	case c == ']':
		l.pos++
		return token{tokenRBracket, "]", start}, nil
	case c == ',':
		l.pos++
		return token{tokenComma, ",", start}, nil
	case c == '\'' || c == '"':
		return l.lexString(c)
	case c >= '0' && c <= '9':
		return l.lexNumber()
	case isIdentStart(c):
		return l.lexWord()
	default:
		return l.lexOperator()
	}
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '\\' && l.pos+1 < len(l.input) {
			b.WriteByte(l.input[l.pos+1])
			l.pos += 2
			continue
		}
		if c == quote {
			l.pos++
			return token{tokenString, b.String(), start}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return token{}, fmt.Errorf("unterminated string at %d", start)
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			l.pos++
			continue
		}
		break
	}
	return token{tokenNumber, l.input[start:l.pos], start}, nil
}

func (l *lexer) lexWord() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	text := l.input[start:l.pos]
	if keywords[text] {
		return token{tokenKeyword, text, start}, nil
	}
	return token{tokenIdent, text, start}, nil
}

var operators = []string{"&&", "||", "==", "!=", "<=", ">=", "<", ">", "!"}

func (l *lexer) lexOperator() (token, error) {
	rest := l.input[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			start := l.pos
			l.pos += len(op)
			return token{tokenOperator, op, start}, nil
		}
	}
	return token{}, fmt.Errorf("unexpected character %q at %d", l.input[l.pos], l.pos)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '.' || (c >= '0' && c <= '9')
}
