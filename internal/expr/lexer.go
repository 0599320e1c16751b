package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokDecimal
	tokString
	tokArrow
	tokOp
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokLAngle
	tokRAngle
	tokComma
	tokColon
	tokDot
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// SyntaxError reports a malformed lambda or type expression.
type SyntaxError struct {
	Source  string
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d in %q: %s", e.Pos, e.Source, e.Message)
}

// lex splits src into tokens. angle controls whether < and > are
// brackets (type syntax) or comparison operators (lambda syntax).
func lex(src string, angle bool) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '_' || unicode.IsLetter(rune(c)):
			start := i
			for i < len(src) && (src[i] == '_' || unicode.IsLetter(rune(src[i])) || unicode.IsDigit(rune(src[i]))) {
				i++
			}
			toks = append(toks, token{tokIdent, src[start:i], start})
		case unicode.IsDigit(rune(c)):
			start := i
			kind := tokInt
			for i < len(src) && unicode.IsDigit(rune(src[i])) {
				i++
			}
			if i+1 < len(src) && src[i] == '.' && unicode.IsDigit(rune(src[i+1])) {
				kind = tokDecimal
				i++
				for i < len(src) && unicode.IsDigit(rune(src[i])) {
					i++
				}
			}
			toks = append(toks, token{kind, src[start:i], start})
		case c == '"' || c == '\'':
			start := i
			s, n, err := lexString(src[i:])
			if err != nil {
				return nil, &SyntaxError{Source: src, Pos: start, Message: err.Error()}
			}
			i += n
			toks = append(toks, token{tokString, s, start})
		case strings.HasPrefix(src[i:], "=>"):
			toks = append(toks, token{tokArrow, "=>", i})
			i += 2
		case angle && c == '<':
			toks = append(toks, token{tokLAngle, "<", i})
			i++
		case angle && c == '>':
			toks = append(toks, token{tokRAngle, ">", i})
			i++
		default:
			if op := matchOp(src[i:]); op != "" {
				toks = append(toks, token{tokOp, op, i})
				i += len(op)
				continue
			}
			kind, ok := punct[c]
			if !ok {
				return nil, &SyntaxError{Source: src, Pos: i, Message: fmt.Sprintf("unexpected character %q", c)}
			}
			toks = append(toks, token{kind, string(c), i})
			i++
		}
	}
	return append(toks, token{tokEOF, "", len(src)}), nil
}

var punct = map[byte]tokenKind{
	'(': tokLParen,
	')': tokRParen,
	'{': tokLBrace,
	'}': tokRBrace,
	',': tokComma,
	':': tokColon,
	'.': tokDot,
}

// Longest operators first.
var operators = []string{"==", "!=", "<=", ">=", "&&", "||", "<", ">", "+", "-", "*", "/", "%", "!"}

func matchOp(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func lexString(s string) (string, int, error) {
	quoteChar := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == quoteChar:
			return b.String(), i + 1, nil
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}
