package clause

import "strings"

// Mapping resolves a source field name to its destination name.
type Mapping interface {
	// Lookup returns the destination name for a source field name.
	Lookup(name string) (string, bool)
	// Len returns the number of mapped fields.
	Len() int
}

// Map adapts a plain map to Mapping.
type Map map[string]string

// Lookup implements Mapping.
func (m Map) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Len implements Mapping.
func (m Map) Len() int { return len(m) }

// keywords are operators and literals of the $filter/$orderby grammar. They
// are never treated as field references.
var keywords = map[string]bool{
	"eq": true, "ne": true, "gt": true, "ge": true, "lt": true, "le": true,
	"and": true, "or": true, "not": true, "has": true, "in": true,
	"add": true, "sub": true, "mul": true, "div": true, "divby": true, "mod": true,
	"asc": true, "desc": true,
	"true": true, "false": true, "null": true, "INF": true, "NaN": true,
}

type mode int

const (
	modeExpr     mode = iota // $filter, $orderby
	modeList                 // $select, $expand
	modeOptions              // inside nav(...) before an option name
	modeVerbatim             // $top, $skip, $levels, ...: copied as is
)

// frame is one level of parenthesis nesting.
type frame struct {
	mode     mode
	options  bool   // opened by a navigation property in list mode
	rangeVar string // lambda variable declared by any(x: ...) / all(x: ...)
}

// Rewrite replaces field references in an expression clause ($filter,
// $orderby). Each identifier in field position is looked up once against the
// original text, so replacements are never rewritten again.
func Rewrite(raw string, m Mapping) (string, error) {
	return rewrite(raw, m, modeExpr)
}

// RewriteList replaces field references in a comma-separated path list
// ($select, $expand), including nested option blocks such as
// Orders($select=Id;$filter=Total gt 5).
func RewriteList(raw string, m Mapping) (string, error) {
	return rewrite(raw, m, modeList)
}

func rewrite(raw string, m Mapping, start mode) (string, error) {
	if raw == "" || m == nil || m.Len() == 0 {
		return raw, nil
	}
	toks, err := Tokenize(raw)
	if err != nil {
		return "", err
	}

	r := &rewriter{toks: toks, m: m, stack: []frame{{mode: start}}}
	var b strings.Builder
	b.Grow(len(raw))
	for i, tok := range toks {
		switch tok.Kind {
		case KindIdent:
			b.WriteString(r.ident(i))
		case KindVar:
			b.WriteString(tok.Text)
			r.option(i)
		case KindPunct:
			b.WriteString(tok.Text)
			r.punct(i)
		default:
			b.WriteString(tok.Text)
		}
	}
	return b.String(), nil
}

type rewriter struct {
	toks  []Token
	m     Mapping
	stack []frame
}

func (r *rewriter) top() *frame { return &r.stack[len(r.stack)-1] }

func (r *rewriter) at(i int) Token {
	if i < 0 || i >= len(r.toks) {
		return Token{}
	}
	return r.toks[i]
}

// nextSolid returns the index of the first non-whitespace token after i, or -1.
func (r *rewriter) nextSolid(i int) int {
	for j := i + 1; j < len(r.toks); j++ {
		if r.toks[j].Kind != KindWhitespace {
			return j
		}
	}
	return -1
}

func isPunct(t Token, s string) bool { return t.Kind == KindPunct && t.Text == s }

func (r *rewriter) ident(i int) string {
	tok := r.toks[i]
	cur := r.top().mode
	if cur != modeExpr && cur != modeList {
		return tok.Text
	}

	prev, next := r.at(i-1), r.at(i+1)
	switch {
	case isPunct(prev, ".") || isPunct(next, "."):
		// Namespace-qualified name: cast, enum type or bound function.
		return tok.Text
	case next.Kind == KindString:
		// Typed literal prefix: datetime'...', duration'...'.
		return tok.Text
	}

	if cur == modeExpr {
		if isPunct(next, "(") || keywords[tok.Text] {
			return tok.Text
		}
		if !isPunct(prev, "/") && r.isRangeVar(tok.Text) {
			return tok.Text
		}
	}

	if dst, ok := r.m.Lookup(tok.Text); ok {
		return dst
	}
	return tok.Text
}

func (r *rewriter) isRangeVar(name string) bool {
	for i := len(r.stack) - 1; i >= 0; i-- {
		if r.stack[i].rangeVar == name {
			return true
		}
	}
	return false
}

func (r *rewriter) option(i int) {
	f := r.top()
	if f.mode != modeOptions || !isPunct(r.at(i+1), "=") {
		return
	}
	switch strings.ToLower(r.toks[i].Text) {
	case "$filter", "$orderby":
		f.mode = modeExpr
	case "$select", "$expand":
		f.mode = modeList
	default:
		f.mode = modeVerbatim
	}
}

func (r *rewriter) punct(i int) {
	switch r.toks[i].Text {
	case "(":
		cur := r.top().mode
		prev := r.at(i - 1)
		switch {
		case cur == modeList && prev.Kind == KindIdent:
			r.stack = append(r.stack, frame{mode: modeOptions, options: true})
		case cur == modeExpr && prev.Kind == KindIdent && (prev.Text == "any" || prev.Text == "all"):
			r.stack = append(r.stack, frame{mode: modeExpr, rangeVar: r.lambdaVar(i)})
		default:
			r.stack = append(r.stack, frame{mode: cur})
		}
	case ")":
		if len(r.stack) > 1 {
			r.stack = r.stack[:len(r.stack)-1]
		}
	case ";":
		if f := r.top(); f.options {
			f.mode = modeOptions
		}
	}
}

// lambdaVar returns x for "any(x: ...)" where i is the index of '('.
func (r *rewriter) lambdaVar(i int) string {
	j := r.nextSolid(i)
	if j < 0 || r.toks[j].Kind != KindIdent {
		return ""
	}
	k := r.nextSolid(j)
	if k < 0 || !isPunct(r.toks[k], ":") {
		return ""
	}
	return r.toks[j].Text
}
