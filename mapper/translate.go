package mapper

import (
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/CaliLuke/go-querymap/clause"
)

// QueryContext carries what an execution layer needs to rebuild a typed query
// against the destination type.
type QueryContext struct {
	// Model is the sealed destination model.
	Model *Model
	// Entity is the schema of the destination type.
	Entity *EntitySchema
	// ElementType is the destination Go type.
	ElementType reflect.Type
	// Path is the originating request path.
	Path string
}

// TranslatedQuery is the destination-shaped form of one inbound query.
type TranslatedQuery struct {
	SourceType      reflect.Type
	DestinationType reflect.Type
	// Clauses holds only the options present in the inbound query.
	Clauses ClauseTable
	Context QueryContext
	// Request is the inbound RequestContext, unchanged.
	Request RequestContext
}

// Translate rewrites clauses written against source into clauses against
// destination. It fails with *NotSealedError before Initialize, with
// *UnknownMappingError for an unregistered source and with
// *SchemaBuildError when the destination schema cannot be built. No partial
// result is returned on error.
func (e *Engine) Translate(source, destination reflect.Type, clauses ClauseSet, rc RequestContext) (*TranslatedQuery, error) {
	source, destination = indirect(source), indirect(destination)

	m, err := e.cfg.GetMapping(source)
	if err != nil {
		return nil, err
	}

	out, err := RewriteClauses(clauses, m)
	if err != nil {
		return nil, err
	}

	entity, err := e.cfg.entity(destination)
	if err != nil {
		return nil, err
	}
	model, err := e.cfg.Schema()
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"source":      typeName(source),
		"destination": typeName(destination),
		"path":        rc.Path,
		"clauses":     len(out),
	}).Debug("query translated")

	return &TranslatedQuery{
		SourceType:      source,
		DestinationType: destination,
		Clauses:         out,
		Context: QueryContext{
			Model:       model,
			Entity:      entity,
			ElementType: destination,
			Path:        rc.Path,
		},
		Request: rc,
	}, nil
}

// RewriteClauses rewrites the field references of every present clause
// through m. $top, $skip and $count are copied verbatim; absent clauses stay
// absent.
func RewriteClauses(clauses ClauseSet, m clause.Mapping) (ClauseTable, error) {
	out := make(ClauseTable, 7)

	rewrites := []struct {
		option string
		raw    *string
		fn     func(string, clause.Mapping) (string, error)
	}{
		{OptionOrderBy, clauses.OrderBy, clause.Rewrite},
		{OptionFilter, clauses.Filter, clause.Rewrite},
		{OptionSelect, clauses.Select, clause.RewriteList},
		{OptionExpand, clauses.Expand, clause.RewriteList},
	}
	for _, rw := range rewrites {
		if rw.raw == nil {
			continue
		}
		text, err := rw.fn(*rw.raw, m)
		if err != nil {
			return nil, &ClauseError{Option: rw.option, Cause: err}
		}
		out[rw.option] = text
	}

	for option, raw := range map[string]*string{
		OptionTop:   clauses.Top,
		OptionSkip:  clauses.Skip,
		OptionCount: clauses.Count,
	} {
		if raw != nil {
			out[option] = *raw
		}
	}
	return out, nil
}
