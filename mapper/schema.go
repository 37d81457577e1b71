package mapper

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mitranim/refut"
)

// PropertyKind classifies an exposed property.
type PropertyKind int

const (
	// PropertyPrimitive is a scalar Edm value.
	PropertyPrimitive PropertyKind = iota
	// PropertyComplex is a nested struct.
	PropertyComplex
	// PropertyCollection is a slice or array of values.
	PropertyCollection
)

// PropertyInfo describes one exposed property of an entity type.
type PropertyInfo struct {
	// Name is the exposed property name used in query clauses.
	Name string
	// FieldName is the Go struct field name.
	FieldName string
	// Index is the field index path, suitable for reflect.Value.FieldByIndex.
	Index []int
	// Type is the Go type of the field.
	Type reflect.Type
	// EdmType is the Edm type name, e.g. "Edm.String".
	EdmType string
	Kind    PropertyKind
	// Nullable is true for pointer, slice and map fields.
	Nullable bool
	IsKey    bool
}

// EntitySchema describes the exposed surface of one entity type.
type EntitySchema struct {
	GoType reflect.Type
	// Name is the entity type name.
	Name string
	// EntitySet is the name of the entity set serving the type.
	EntitySet  string
	Properties []PropertyInfo
	Keys       []PropertyInfo

	byName map[string]int
}

// NewEntitySchema assembles an EntitySchema from properties. Custom
// SchemaBuilder implementations use it to get the same lookup behavior as the
// reflection builder. Duplicate property names are rejected.
func NewEntitySchema(t reflect.Type, props []PropertyInfo) (*EntitySchema, error) {
	s := &EntitySchema{
		GoType:     t,
		Name:       t.Name(),
		EntitySet:  t.Name(),
		Properties: props,
		byName:     make(map[string]int, len(props)),
	}
	for i, p := range props {
		if _, dup := s.byName[p.Name]; dup {
			return nil, fmt.Errorf("property %q is exposed more than once", p.Name)
		}
		s.byName[p.Name] = i
		if p.IsKey {
			s.Keys = append(s.Keys, p)
		}
	}
	if len(s.Keys) == 0 {
		for i, p := range props {
			if p.Kind == PropertyPrimitive && (strings.EqualFold(p.Name, "id") || strings.EqualFold(p.Name, s.Name+"id")) {
				props[i].IsKey = true
				s.Keys = append(s.Keys, props[i])
				break
			}
		}
	}
	return s, nil
}

// Property returns the property exposed under name.
func (s *EntitySchema) Property(name string) (PropertyInfo, bool) {
	i, ok := s.byName[name]
	if !ok {
		return PropertyInfo{}, false
	}
	return s.Properties[i], true
}

// PropertyNames returns exposed property names in declaration order.
func (s *EntitySchema) PropertyNames() []string {
	out := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		out[i] = p.Name
	}
	return out
}

// SchemaBuilder builds the schema description of a Go type.
type SchemaBuilder interface {
	BuildSchema(t reflect.Type) (*EntitySchema, error)
}

// SchemaBuilderFunc adapts a function to SchemaBuilder.
type SchemaBuilderFunc func(t reflect.Type) (*EntitySchema, error)

// BuildSchema implements SchemaBuilder.
func (f SchemaBuilderFunc) BuildSchema(t reflect.Type) (*EntitySchema, error) { return f(t) }

// ReflectSchemaBuilder exposes the exported fields of a struct, including
// fields promoted from embedded structs. The exposed name comes from the
// `odata` tag, then the `json` tag, then the Go field name.
type ReflectSchemaBuilder struct{}

// BuildSchema implements SchemaBuilder.
func (ReflectSchemaBuilder) BuildSchema(t reflect.Type) (*EntitySchema, error) {
	return ExtractSchema(t)
}

// ExtractSchema reflects a struct type into an EntitySchema.
func ExtractSchema(t reflect.Type) (*EntitySchema, error) {
	if t == nil {
		return nil, errors.New("no type provided")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", t.Kind())
	}

	var props []PropertyInfo
	err := refut.TraverseStructRtype(t, func(field reflect.StructField, index []int) error {
		if field.Anonymous || !field.IsExported() {
			return nil
		}

		tag, err := ParseTag(field.Tag.Get("odata"))
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		if tag.Skip || field.Tag.Get("json") == "-" {
			return nil
		}

		name := tag.Name
		if name == "" {
			name = refut.TagIdent(field.Tag.Get("json"))
		}
		if name == "" {
			name = field.Name
		}

		props = append(props, buildProperty(field, append([]int(nil), index...), name, tag.Key))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return NewEntitySchema(t, props)
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

func buildProperty(field reflect.StructField, index []int, name string, key bool) PropertyInfo {
	p := PropertyInfo{
		Name:      name,
		FieldName: field.Name,
		Index:     index,
		Type:      field.Type,
		IsKey:     key,
	}

	ft := field.Type
	if ft.Kind() == reflect.Ptr {
		p.Nullable = true
		ft = ft.Elem()
	}

	switch {
	case ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Uint8:
		p.Nullable = true
		p.EdmType = "Edm.Binary"
	case ft.Kind() == reflect.Slice || (ft.Kind() == reflect.Array && !isGUID(ft)):
		p.Nullable = ft.Kind() == reflect.Slice || p.Nullable
		p.Kind = PropertyCollection
		elem := ft.Elem()
		if elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		p.EdmType = "Collection(" + edmType(elem) + ")"
	case ft.Kind() == reflect.Map:
		p.Nullable = true
		p.Kind = PropertyComplex
		p.EdmType = "Edm.Untyped"
	case ft.Kind() == reflect.Struct && ft != timeType:
		p.Kind = PropertyComplex
		p.EdmType = edmType(ft)
	default:
		p.EdmType = edmType(ft)
	}
	return p
}

func isGUID(t reflect.Type) bool {
	return t.Kind() == reflect.Array && t.Len() == 16 && t.Elem().Kind() == reflect.Uint8
}

// edmType maps Go types to Edm primitive type names. Structs map to their
// Go type name.
func edmType(t reflect.Type) string {
	switch {
	case t == timeType:
		return "Edm.DateTimeOffset"
	case t == durationType:
		return "Edm.Duration"
	case isGUID(t):
		return "Edm.Guid"
	}

	switch t.Kind() {
	case reflect.String:
		return "Edm.String"
	case reflect.Bool:
		return "Edm.Boolean"
	case reflect.Int8:
		return "Edm.SByte"
	case reflect.Uint8:
		return "Edm.Byte"
	case reflect.Int16:
		return "Edm.Int16"
	case reflect.Int32, reflect.Uint16:
		return "Edm.Int32"
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return "Edm.Int64"
	case reflect.Float32:
		return "Edm.Single"
	case reflect.Float64:
		return "Edm.Double"
	case reflect.Struct:
		return t.Name()
	default:
		return "Edm.String"
	}
}

// Model is the schema description served once the configuration is sealed:
// one EntitySchema per destination type.
type Model struct {
	entities []*EntitySchema
	byType   map[reflect.Type]*EntitySchema
	bySet    map[string]*EntitySchema
}

func newModel(entities []*EntitySchema) *Model {
	m := &Model{
		byType: make(map[reflect.Type]*EntitySchema, len(entities)),
		bySet:  make(map[string]*EntitySchema, len(entities)),
	}
	for _, e := range entities {
		if _, ok := m.byType[e.GoType]; ok {
			continue
		}
		m.entities = append(m.entities, e)
		m.byType[e.GoType] = e
		m.bySet[e.EntitySet] = e
	}
	sort.Slice(m.entities, func(i, j int) bool { return m.entities[i].EntitySet < m.entities[j].EntitySet })
	return m
}

// Entity returns the schema for a Go type.
func (m *Model) Entity(t reflect.Type) (*EntitySchema, bool) {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	e, ok := m.byType[t]
	return e, ok
}

// EntitySet returns the schema serving the named entity set.
func (m *Model) EntitySet(name string) (*EntitySchema, bool) {
	e, ok := m.bySet[name]
	return e, ok
}

// EntitySets returns all entity schemas sorted by entity set name.
func (m *Model) EntitySets() []*EntitySchema {
	return append([]*EntitySchema(nil), m.entities...)
}

// schemaCache builds each type's schema at most once.
type schemaCache struct {
	builder SchemaBuilder
	entries sync.Map // reflect.Type -> *schemaEntry
}

type schemaEntry struct {
	once   sync.Once
	schema *EntitySchema
	err    error
}

func newSchemaCache(b SchemaBuilder) *schemaCache {
	return &schemaCache{builder: b}
}

func (c *schemaCache) get(t reflect.Type) (*EntitySchema, error) {
	v, _ := c.entries.LoadOrStore(t, &schemaEntry{})
	e := v.(*schemaEntry)
	e.once.Do(func() {
		s, err := c.builder.BuildSchema(t)
		switch {
		case err != nil:
			var sbe *SchemaBuildError
			if !errors.As(err, &sbe) {
				err = &SchemaBuildError{Type: t, Cause: err}
			}
			e.err = err
		case s == nil:
			e.err = &SchemaBuildError{Type: t, Cause: errors.New("builder returned no schema")}
		default:
			e.schema = s
		}
	})
	return e.schema, e.err
}
