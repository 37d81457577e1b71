package mapper

import (
	"net/url"
	"sort"
	"strings"
)

// System query option names used as ClauseTable keys.
const (
	OptionOrderBy = "$orderby"
	OptionFilter  = "$filter"
	OptionTop     = "$top"
	OptionSkip    = "$skip"
	OptionCount   = "$count"
	OptionSelect  = "$select"
	OptionExpand  = "$expand"
)

// optionOrder is the canonical order of system query options.
var optionOrder = []string{
	OptionFilter, OptionOrderBy, OptionSelect, OptionExpand, OptionTop, OptionSkip, OptionCount,
}

// ClauseSet holds the raw text of each clause of one inbound query. A nil
// field means the clause was absent, which is distinct from an empty clause.
type ClauseSet struct {
	OrderBy *string
	Filter  *string
	Top     *string
	Skip    *string
	Count   *string
	Select  *string
	Expand  *string
}

// Raw returns a pointer to s, for building a ClauseSet literal.
func Raw(s string) *string { return &s }

// ParseClauseSet reads the system query options present in a URL query.
// Option names are matched case-insensitively, with or without the '$'.
func ParseClauseSet(q url.Values) ClauseSet {
	var cs ClauseSet
	for key, vals := range q {
		if len(vals) == 0 {
			continue
		}
		name := strings.ToLower(key)
		if !strings.HasPrefix(name, "$") {
			name = "$" + name
		}
		if p := cs.field(name); p != nil {
			*p = Raw(vals[0])
		}
	}
	return cs
}

func (cs *ClauseSet) field(option string) **string {
	switch option {
	case OptionOrderBy:
		return &cs.OrderBy
	case OptionFilter:
		return &cs.Filter
	case OptionTop:
		return &cs.Top
	case OptionSkip:
		return &cs.Skip
	case OptionCount:
		return &cs.Count
	case OptionSelect:
		return &cs.Select
	case OptionExpand:
		return &cs.Expand
	}
	return nil
}

// Present returns the present clauses keyed by option name.
func (cs ClauseSet) Present() ClauseTable {
	out := make(ClauseTable)
	for _, opt := range optionOrder {
		if p := *cs.field(opt); p != nil {
			out[opt] = *p
		}
	}
	return out
}

// RequestContext is threaded through a translation unchanged.
type RequestContext struct {
	// Path is the path of the originating request, e.g. "/odata/Customers".
	Path string
	// Request is the host's request value; querymap never inspects it.
	Request any
}

// ClauseTable maps a system query option name to its raw clause text.
type ClauseTable map[string]string

// Get returns the clause for an option and whether it is present.
func (t ClauseTable) Get(option string) (string, bool) {
	v, ok := t[option]
	return v, ok
}

// Keys returns the option names present, in canonical order followed by any
// other keys sorted.
func (t ClauseTable) Keys() []string {
	keys := make([]string, 0, len(t))
	seen := make(map[string]bool, len(t))
	for _, opt := range optionOrder {
		if _, ok := t[opt]; ok {
			keys = append(keys, opt)
			seen[opt] = true
		}
	}
	var rest []string
	for k := range t {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// Encode renders the table as a URL query string in Keys order.
func (t ClauseTable) Encode() string {
	var b strings.Builder
	for i, k := range t.Keys() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(t[k]))
	}
	return b.String()
}

// Values converts the table to url.Values.
func (t ClauseTable) Values() url.Values {
	v := make(url.Values, len(t))
	for k, s := range t {
		v.Set(k, s)
	}
	return v
}
