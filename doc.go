// Package querymap translates OData-style queries written against one entity
// shape into equivalent queries against another shape that exposes different
// property names for the same data.
//
// Hosts register field mappings once at startup, seal them, and then
// translate inbound $filter, $orderby, $select, $expand, $top, $skip and
// $count clauses on every request.
//
// The module is organized into two packages and one tool:
//
//   - [github.com/CaliLuke/go-querymap/clause]: clause tokenizer and field reference rewriter
//   - [github.com/CaliLuke/go-querymap/mapper]: mapping registry, schema reflection, translator and engine lifecycle
//   - cmd/qmap: previews rewrites through a YAML mapping file
//
// Translation is synchronous and CPU-bound; a sealed engine is safe for
// concurrent use without locks.
package querymap
