package mapper

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/CaliLuke/go-querymap/clause"
)

// ValidationSettings are the limits a Validator enforces on an inbound
// query. Zero values and empty lists mean "no limit".
type ValidationSettings struct {
	// AllowedQueryOptions lists the permitted options, e.g. "$filter".
	AllowedQueryOptions        []string `yaml:"allowedQueryOptions,omitempty"`
	AllowedLogicalOperators    []string `yaml:"allowedLogicalOperators,omitempty"`
	AllowedArithmeticOperators []string `yaml:"allowedArithmeticOperators,omitempty"`
	AllowedFunctions           []string `yaml:"allowedFunctions,omitempty"`
	AllowedOrderByProperties   []string `yaml:"allowedOrderByProperties,omitempty"`

	MaxTop              int `yaml:"maxTop,omitempty"`
	MaxSkip             int `yaml:"maxSkip,omitempty"`
	MaxOrderByNodeCount int `yaml:"maxOrderByNodeCount,omitempty"`
	MaxExpansionDepth   int `yaml:"maxExpansionDepth,omitempty"`
	// MaxNodeCount bounds the operands and operators of $filter.
	MaxNodeCount             int `yaml:"maxNodeCount,omitempty"`
	MaxAnyAllExpressionDepth int `yaml:"maxAnyAllExpressionDepth,omitempty"`
}

// Validator checks an inbound query against limits without applying it.
type Validator interface {
	Validate(clauses ClauseSet) error
}

// Applier applies a translated query to a data source.
type Applier interface {
	Apply(q *TranslatedQuery, source any) (any, error)
}

// ValidateOnly validates queries and leaves applying them to someone else:
// Apply returns the source untouched.
type ValidateOnly struct {
	Settings ValidationSettings
}

var (
	_ Validator = ValidateOnly{}
	_ Applier   = ValidateOnly{}
)

var (
	logicalOperators    = []string{"eq", "ne", "gt", "ge", "lt", "le", "and", "or", "not", "has", "in"}
	arithmeticOperators = []string{"add", "sub", "mul", "div", "divby", "mod"}
)

// Apply implements Applier and returns source unchanged.
func (ValidateOnly) Apply(_ *TranslatedQuery, source any) (any, error) {
	return source, nil
}

// Validate implements Validator. The first violation found is returned as a
// *ValidationError.
func (v ValidateOnly) Validate(cs ClauseSet) error {
	s := v.Settings
	present := cs.Present()

	if len(s.AllowedQueryOptions) > 0 {
		for _, opt := range present.Keys() {
			if !slices.Contains(s.AllowedQueryOptions, opt) {
				return &ValidationError{Option: opt, Message: "query option is not allowed"}
			}
		}
	}

	if raw, ok := present.Get(OptionTop); ok {
		if err := checkCount(OptionTop, raw, s.MaxTop); err != nil {
			return err
		}
	}
	if raw, ok := present.Get(OptionSkip); ok {
		if err := checkCount(OptionSkip, raw, s.MaxSkip); err != nil {
			return err
		}
	}
	if raw, ok := present.Get(OptionCount); ok {
		if b := strings.ToLower(strings.TrimSpace(raw)); b != "true" && b != "false" {
			return &ValidationError{Option: OptionCount, Message: fmt.Sprintf("%q is not true or false", raw)}
		}
	}
	if raw, ok := present.Get(OptionFilter); ok {
		if err := s.checkFilter(raw); err != nil {
			return err
		}
	}
	if raw, ok := present.Get(OptionOrderBy); ok {
		if err := s.checkOrderBy(raw); err != nil {
			return err
		}
	}
	if raw, ok := present.Get(OptionExpand); ok && s.MaxExpansionDepth > 0 {
		toks, err := tokenize(OptionExpand, raw)
		if err != nil {
			return err
		}
		if d := expansionDepth(toks); d > s.MaxExpansionDepth {
			return &ValidationError{
				Option:  OptionExpand,
				Message: fmt.Sprintf("expansion depth %d exceeds the limit of %d", d, s.MaxExpansionDepth),
			}
		}
	}
	return nil
}

func tokenize(option, raw string) ([]clause.Token, error) {
	toks, err := clause.Tokenize(raw)
	if err != nil {
		return nil, &ClauseError{Option: option, Cause: err}
	}
	return toks, nil
}

func checkCount(option, raw string, limit int) error {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return &ValidationError{Option: option, Message: fmt.Sprintf("%q is not a non-negative integer", raw)}
	}
	if limit > 0 && n > limit {
		return &ValidationError{Option: option, Message: fmt.Sprintf("%d exceeds the limit of %d", n, limit)}
	}
	return nil
}

func (s ValidationSettings) checkFilter(raw string) error {
	toks, err := tokenize(OptionFilter, raw)
	if err != nil {
		return err
	}

	var (
		nodes    int
		lambdas  []bool // one entry per open parenthesis
		anyDepth int
		maxDepth int
	)
	for i, t := range toks {
		switch t.Kind {
		case clause.KindString, clause.KindNumber, clause.KindVar:
			nodes++
		case clause.KindIdent:
			nodes++
			next := clause.Token{}
			if i+1 < len(toks) {
				next = toks[i+1]
			}
			switch {
			case next.Kind == clause.KindPunct && next.Text == "(":
				if len(s.AllowedFunctions) > 0 && !slices.Contains(s.AllowedFunctions, t.Text) {
					return &ValidationError{Option: OptionFilter, Message: fmt.Sprintf("function %q is not allowed", t.Text)}
				}
			case slices.Contains(logicalOperators, t.Text):
				if len(s.AllowedLogicalOperators) > 0 && !slices.Contains(s.AllowedLogicalOperators, t.Text) {
					return &ValidationError{Option: OptionFilter, Message: fmt.Sprintf("logical operator %q is not allowed", t.Text)}
				}
			case slices.Contains(arithmeticOperators, t.Text):
				if len(s.AllowedArithmeticOperators) > 0 && !slices.Contains(s.AllowedArithmeticOperators, t.Text) {
					return &ValidationError{Option: OptionFilter, Message: fmt.Sprintf("arithmetic operator %q is not allowed", t.Text)}
				}
			}
		case clause.KindPunct:
			switch t.Text {
			case "(":
				lambda := i > 0 && toks[i-1].Kind == clause.KindIdent && (toks[i-1].Text == "any" || toks[i-1].Text == "all")
				lambdas = append(lambdas, lambda)
				if lambda {
					anyDepth++
					maxDepth = max(maxDepth, anyDepth)
				}
			case ")":
				if n := len(lambdas); n > 0 {
					if lambdas[n-1] {
						anyDepth--
					}
					lambdas = lambdas[:n-1]
				}
			}
		}
	}

	if s.MaxNodeCount > 0 && nodes > s.MaxNodeCount {
		return &ValidationError{Option: OptionFilter, Message: fmt.Sprintf("node count %d exceeds the limit of %d", nodes, s.MaxNodeCount)}
	}
	if s.MaxAnyAllExpressionDepth > 0 && maxDepth > s.MaxAnyAllExpressionDepth {
		return &ValidationError{Option: OptionFilter, Message: fmt.Sprintf("any/all depth %d exceeds the limit of %d", maxDepth, s.MaxAnyAllExpressionDepth)}
	}
	return nil
}

func (s ValidationSettings) checkOrderBy(raw string) error {
	toks, err := tokenize(OptionOrderBy, raw)
	if err != nil {
		return err
	}
	items := splitTop(toks, ",")
	if s.MaxOrderByNodeCount > 0 && len(items) > s.MaxOrderByNodeCount {
		return &ValidationError{
			Option:  OptionOrderBy,
			Message: fmt.Sprintf("%d orderings exceed the limit of %d", len(items), s.MaxOrderByNodeCount),
		}
	}
	if len(s.AllowedOrderByProperties) == 0 {
		return nil
	}
	for _, item := range items {
		prop := leadingPath(item)
		if !slices.Contains(s.AllowedOrderByProperties, prop) {
			return &ValidationError{Option: OptionOrderBy, Message: fmt.Sprintf("ordering by %q is not allowed", prop)}
		}
	}
	return nil
}

// splitTop splits tokens on sep at parenthesis depth zero.
func splitTop(toks []clause.Token, sep string) [][]clause.Token {
	var (
		out   [][]clause.Token
		start int
		depth int
	)
	for i, t := range toks {
		if t.Kind != clause.KindPunct {
			continue
		}
		switch t.Text {
		case "(":
			depth++
		case ")":
			depth--
		case sep:
			if depth == 0 {
				out = append(out, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(out, toks[start:])
}

// leadingPath returns the path at the start of an item, e.g. "Address/City"
// for "Address/City desc".
func leadingPath(toks []clause.Token) string {
	var b strings.Builder
	for _, t := range toks {
		switch {
		case t.Kind == clause.KindWhitespace && b.Len() == 0:
			continue
		case t.Kind == clause.KindIdent || t.Kind == clause.KindVar || (t.Kind == clause.KindPunct && t.Text == "/"):
			b.WriteString(t.Text)
		default:
			return b.String()
		}
	}
	return b.String()
}

// expansionDepth returns the deepest navigation chain of an $expand list:
// each path segment and each nested $expand adds one level.
func expansionDepth(toks []clause.Token) int {
	deepest := 0
	for _, item := range splitTop(toks, ",") {
		depth := 0
		for i := 0; i < len(item); i++ {
			t := item[i]
			if t.Kind == clause.KindIdent {
				depth++
				continue
			}
			if t.Kind == clause.KindPunct && t.Text == "(" {
				depth += nestedExpansionDepth(item[i+1:])
				break
			}
		}
		deepest = max(deepest, depth)
	}
	return deepest
}

// nestedExpansionDepth finds $expand=... inside an option block and returns
// its depth. toks starts just after the opening parenthesis.
func nestedExpansionDepth(toks []clause.Token) int {
	inner := toks
	depth := 0
	for i, t := range toks {
		if t.Kind != clause.KindPunct {
			continue
		}
		if t.Text == "(" {
			depth++
		}
		if t.Text == ")" {
			if depth == 0 {
				inner = toks[:i]
				break
			}
			depth--
		}
	}

	for _, opt := range splitTop(inner, ";") {
		opt = trimSpace(opt)
		if len(opt) >= 2 && opt[0].Kind == clause.KindVar && strings.EqualFold(opt[0].Text, OptionExpand) &&
			opt[1].Kind == clause.KindPunct && opt[1].Text == "=" {
			return expansionDepth(opt[2:])
		}
	}
	return 0
}

func trimSpace(toks []clause.Token) []clause.Token {
	for len(toks) > 0 && toks[0].Kind == clause.KindWhitespace {
		toks = toks[1:]
	}
	return toks
}
