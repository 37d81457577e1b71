// Package clause tokenizes OData query clauses and rewrites the field
// references inside them.
package clause

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Kind is the lexical class of a Token.
type Kind int

const (
	// KindWhitespace is a run of whitespace.
	KindWhitespace Kind = iota + 1
	// KindString is a single-quoted literal, quotes included.
	KindString
	// KindVar is a $- or @-prefixed name such as $it, $filter or @p1.
	KindVar
	// KindNumber is any token starting with a digit: numbers, dates, durations.
	KindNumber
	// KindIdent is a bare identifier; the only kind that can name a field.
	KindIdent
	// KindPunct is any other single character.
	KindPunct
)

// String returns the lexer rule name of the kind.
func (k Kind) String() string {
	switch k {
	case KindWhitespace:
		return "Whitespace"
	case KindString:
		return "String"
	case KindVar:
		return "Var"
	case KindNumber:
		return "Number"
	case KindIdent:
		return "Ident"
	case KindPunct:
		return "Punct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Token is one lexeme of a clause. Joining the Text of every token of a
// clause yields the clause unchanged.
type Token struct {
	Kind   Kind
	Text   string
	Offset int
}

// Rule order matters: the first matching rule wins.
var clauseLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `'(?:[^']|'')*'?`},
	{Name: "Var", Pattern: `[$@][\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Number", Pattern: `[0-9][0-9A-Za-z_.:+\-]*`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Punct", Pattern: `.`},
})

var kindByType = func() map[lexer.TokenType]Kind {
	byName := map[string]Kind{
		"Whitespace": KindWhitespace,
		"String":     KindString,
		"Var":        KindVar,
		"Number":     KindNumber,
		"Ident":      KindIdent,
		"Punct":      KindPunct,
	}
	out := make(map[lexer.TokenType]Kind, len(byName))
	for name, tt := range clauseLexer.Symbols() {
		if k, ok := byName[name]; ok {
			out[tt] = k
		}
	}
	return out
}()

// Tokenize splits a raw clause into tokens. Whitespace is kept.
func Tokenize(raw string) ([]Token, error) {
	lex, err := clauseLexer.LexString("", raw)
	if err != nil {
		return nil, fmt.Errorf("lex clause: %w", err)
	}
	toks, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("lex clause: %w", err)
	}

	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.EOF() {
			break
		}
		out = append(out, Token{Kind: kindByType[t.Type], Text: t.Value, Offset: t.Pos.Offset})
	}
	return out, nil
}

// IsIdentifier reports whether s lexes as exactly one identifier token.
func IsIdentifier(s string) bool {
	toks, err := Tokenize(s)
	return err == nil && len(toks) == 1 && toks[0].Kind == KindIdent
}

// IsPath reports whether s is one or more identifiers joined by '/'.
func IsPath(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, "/") {
		if !IsIdentifier(seg) {
			return false
		}
	}
	return true
}

// Join concatenates token texts.
func Join(toks []Token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.Text)
	}
	return b.String()
}
