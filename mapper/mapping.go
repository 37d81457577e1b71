package mapper

import (
	"reflect"
	"sort"
	"strings"

	"github.com/CaliLuke/go-querymap/clause"
)

// FieldPair is one source-to-destination field name correspondence.
type FieldPair struct {
	Source      string `yaml:"source" msgpack:"source"`
	Destination string `yaml:"destination" msgpack:"destination"`
}

// FieldMapping holds the field name correspondences between one source type
// and one destination type. It is mutable until the owning Configuration is
// sealed and read-only afterwards.
type FieldMapping struct {
	cfg         *Configuration
	source      reflect.Type
	destination reflect.Type
	fields      map[string]string
	order       []string
}

var _ clause.Mapping = (*FieldMapping)(nil)

func newFieldMapping(cfg *Configuration, source, destination reflect.Type) *FieldMapping {
	return &FieldMapping{
		cfg:         cfg,
		source:      source,
		destination: destination,
		fields:      make(map[string]string),
	}
}

// SourceType returns the type the mapping translates from.
func (m *FieldMapping) SourceType() reflect.Type { return m.source }

// DestinationType returns the type the mapping translates to.
func (m *FieldMapping) DestinationType() reflect.Type { return m.destination }

// AddField registers source -> destination. Registering the same source name
// again overwrites the destination and keeps the original position.
// The source must be a single identifier; the destination may be a
// '/'-separated path such as "Address/City".
func (m *FieldMapping) AddField(source, destination string) error {
	m.cfg.mu.Lock()
	defer m.cfg.mu.Unlock()

	if m.cfg.sealed.Load() {
		return &ConfigurationFrozenError{Operation: "add field"}
	}
	if m.cfg.maps[m.source] != m {
		return &ConfigurationInvalidError{SourceType: m.source, Message: "mapping is no longer registered"}
	}
	if strings.TrimSpace(source) == "" || !clause.IsIdentifier(source) {
		return &InvalidFieldNameError{SourceType: m.source, Name: source, Side: "source"}
	}
	if strings.TrimSpace(destination) == "" || !clause.IsPath(destination) {
		return &InvalidFieldNameError{SourceType: m.source, Name: destination, Side: "destination"}
	}

	if _, ok := m.fields[source]; !ok {
		m.order = append(m.order, source)
	}
	m.fields[source] = destination
	return nil
}

// AddFields registers every pair of fields in source name order and stops at
// the first error.
func (m *FieldMapping) AddFields(fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := m.AddField(k, fields[k]); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the destination name registered for a source field.
func (m *FieldMapping) Lookup(name string) (string, bool) {
	dst, ok := m.fields[name]
	return dst, ok
}

// Len returns the number of registered fields.
func (m *FieldMapping) Len() int { return len(m.fields) }

// Pairs returns the registered correspondences in registration order.
func (m *FieldMapping) Pairs() []FieldPair {
	out := make([]FieldPair, len(m.order))
	for i, src := range m.order {
		out[i] = FieldPair{Source: src, Destination: m.fields[src]}
	}
	return out
}
