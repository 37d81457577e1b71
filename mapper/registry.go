package mapper

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Configuration is the registry of field mappings, keyed by source type.
//
// It starts out mutable. Verify validates it and seals it; from then on every
// mutation fails with *ConfigurationFrozenError and all reads are lock-free
// over immutable data. Reset returns it to the empty, unsealed state and must
// not run concurrently with translations.
type Configuration struct {
	mu      sync.Mutex
	sealed  atomic.Bool
	maps    map[reflect.Type]*FieldMapping
	order   []reflect.Type
	model   *Model
	builder SchemaBuilder
	schemas *schemaCache
	log     logrus.FieldLogger
}

// NewConfiguration returns an empty, unsealed configuration.
func NewConfiguration(opts ...Option) *Configuration {
	o := buildOptions(opts)
	c := &Configuration{builder: o.builder, log: o.log}
	c.clear()
	return c
}

func (c *Configuration) clear() {
	c.maps = make(map[reflect.Type]*FieldMapping)
	c.order = nil
	c.model = nil
	c.schemas = newSchemaCache(c.builder)
}

func indirect(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// TypeOf returns the reflect.Type of T, dereferencing pointer types.
func TypeOf[T any]() reflect.Type {
	return indirect(reflect.TypeOf((*T)(nil)).Elem())
}

// Map returns the mapping from TSource to TDestination, creating it if needed.
func Map[TSource, TDestination any](c *Configuration) (*FieldMapping, error) {
	return c.Mapping(TypeOf[TSource](), TypeOf[TDestination]())
}

// Mapping returns the mapping registered for source, creating an empty one if
// absent. There is one mapping per source type: asking for a different
// destination replaces the existing mapping with an empty one.
func (c *Configuration) Mapping(source, destination reflect.Type) (*FieldMapping, error) {
	source, destination = indirect(source), indirect(destination)
	if source == nil || destination == nil {
		return nil, &ConfigurationInvalidError{SourceType: source, Message: "source and destination types are required"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed.Load() {
		return nil, &ConfigurationFrozenError{Operation: "create mapping"}
	}

	if m, ok := c.maps[source]; ok {
		if m.destination == destination {
			return m, nil
		}
		c.log.WithFields(logrus.Fields{
			"source":      typeName(source),
			"destination": typeName(destination),
			"previous":    typeName(m.destination),
		}).Warn("replacing field mapping")
		m = newFieldMapping(c, source, destination)
		c.maps[source] = m
		return m, nil
	}

	m := newFieldMapping(c, source, destination)
	c.maps[source] = m
	c.order = append(c.order, source)
	return m, nil
}

// Verify validates every registered mapping and seals the configuration.
// All problems found are returned together; each is a
// *ConfigurationInvalidError. On failure the configuration stays unsealed.
func (c *Configuration) Verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed.Load() {
		return &ConfigurationFrozenError{Operation: "verify"}
	}

	var (
		errs     []error
		entities []*EntitySchema
	)
	for _, src := range c.order {
		m := c.maps[src]
		dst, mErrs := c.verifyMapping(m)
		errs = append(errs, mErrs...)
		if dst != nil {
			entities = append(entities, dst)
		}
	}
	if err := errors.Join(errs...); err != nil {
		c.log.WithError(err).Error("mapping configuration is invalid")
		return err
	}

	c.model = newModel(entities)
	c.sealed.Store(true)

	for _, src := range c.order {
		m := c.maps[src]
		c.log.WithFields(logrus.Fields{
			"source":      typeName(m.source),
			"destination": typeName(m.destination),
			"fields":      m.Len(),
		}).Debug("field mapping sealed")
	}
	c.log.WithField("mappings", len(c.order)).Info("mapping configuration verified")
	return nil
}

func (c *Configuration) verifyMapping(m *FieldMapping) (*EntitySchema, []error) {
	invalid := func(format string, args ...any) error {
		return &ConfigurationInvalidError{SourceType: m.source, Message: fmt.Sprintf(format, args...)}
	}

	var errs []error
	if m.Len() == 0 {
		errs = append(errs, invalid("no fields mapped to %s", typeName(m.destination)))
	}

	srcNames, err := c.exposedNames(m.source)
	if err != nil {
		errs = append(errs, &ConfigurationInvalidError{SourceType: m.source, Message: "source schema", Cause: err})
	}
	dstSchema, err := c.schemas.get(m.destination)
	if err != nil {
		errs = append(errs, &ConfigurationInvalidError{SourceType: m.source, Message: "destination schema", Cause: err})
	}
	var dstNames map[string]bool
	if dstSchema != nil {
		dstNames, _ = c.exposedNames(m.destination)
	}

	for _, p := range m.Pairs() {
		if srcNames != nil && !srcNames[p.Source] {
			errs = append(errs, invalid("source field %q is not exposed by %s", p.Source, typeName(m.source)))
		}
		head, _, _ := strings.Cut(p.Destination, "/")
		if dstNames != nil && !dstNames[head] {
			errs = append(errs, invalid("destination field %q is not exposed by %s", p.Destination, typeName(m.destination)))
		}
	}
	return dstSchema, errs
}

// exposedNames returns the property names of t and of every struct type
// reachable through its complex and collection properties. Mappings are
// scoped to a source type but also rewrite nested $expand and lambda paths.
func (c *Configuration) exposedNames(t reflect.Type) (map[string]bool, error) {
	names := make(map[string]bool)
	seen := make(map[reflect.Type]bool)
	queue := []reflect.Type{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true

		s, err := c.schemas.get(cur)
		if err != nil {
			if cur == t {
				return nil, err
			}
			continue
		}
		for _, p := range s.Properties {
			names[p.Name] = true
			if p.Kind != PropertyPrimitive {
				if nested := structElem(p.Type); nested != nil {
					queue = append(queue, nested)
				}
			}
		}
	}
	return names, nil
}

func structElem(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == timeType {
		return nil
	}
	return t
}

// Reset clears all mappings and cached schemas and unseals the configuration.
// Handles returned by Mapping before the reset can no longer be modified.
func (c *Configuration) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
	c.sealed.Store(false)
}

// Sealed reports whether Verify has succeeded since the last reset.
func (c *Configuration) Sealed() bool {
	return c.sealed.Load()
}

// GetMapping returns the sealed mapping for a source type.
func (c *Configuration) GetMapping(source reflect.Type) (*FieldMapping, error) {
	if !c.sealed.Load() {
		return nil, &NotSealedError{Operation: "get mapping"}
	}
	m, ok := c.maps[indirect(source)]
	if !ok {
		return nil, &UnknownMappingError{SourceType: indirect(source)}
	}
	return m, nil
}

// Schema returns the model built during verification.
func (c *Configuration) Schema() (*Model, error) {
	if !c.sealed.Load() {
		return nil, &NotSealedError{Operation: "get schema"}
	}
	return c.model, nil
}

// SourceTypes returns the registered source types in registration order.
func (c *Configuration) SourceTypes() []reflect.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]reflect.Type(nil), c.order...)
}

// entity returns the cached schema of a destination type. Types outside the
// verified model are built on first use.
func (c *Configuration) entity(t reflect.Type) (*EntitySchema, error) {
	if e, ok := c.model.Entity(t); ok {
		return e, nil
	}
	return c.schemas.get(t)
}
