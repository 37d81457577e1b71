package mapper

import (
	"fmt"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/CaliLuke/go-querymap/clause"
)

// MappingFile is a declarative set of field mappings, usually kept in YAML:
//
//	version: "1"
//	mappings:
//	  - source: CustomerDTO
//	    destination: Customer
//	    fields:
//	      Id: Key
//	      Name: Title
//	      City: Address/City
//	validation:
//	  maxTop: 100
//
// Field order is preserved.
type MappingFile struct {
	Version    string              `yaml:"version"`
	Mappings   []TypeMapping       `yaml:"mappings"`
	Validation *ValidationSettings `yaml:"validation,omitempty"`
}

// TypeMapping declares the fields of one source type.
type TypeMapping struct {
	Source      string    `yaml:"source"`
	Destination string    `yaml:"destination"`
	Fields      FieldList `yaml:"fields"`
}

// ClauseMap returns the fields as a clause.Map, for rewriting without a
// Configuration.
func (tm TypeMapping) ClauseMap() clause.Map {
	m := make(clause.Map, len(tm.Fields))
	for _, f := range tm.Fields {
		m[f.Source] = f.Destination
	}
	return m
}

// FieldList is an ordered list of field pairs. In YAML it is written either
// as a mapping (Name: Title) or as a sequence of {source, destination}.
type FieldList []FieldPair

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *FieldList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(FieldList, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, v := node.Content[i], node.Content[i+1]
			if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: field mapping must be name: name", k.Line)
			}
			out = append(out, FieldPair{Source: k.Value, Destination: v.Value})
		}
		*l = out
	case yaml.SequenceNode:
		var pairs []FieldPair
		if err := node.Decode(&pairs); err != nil {
			return err
		}
		*l = pairs
	default:
		return fmt.Errorf("line %d: fields must be a mapping or a list", node.Line)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler, writing the mapping form.
func (l FieldList) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range l {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Source},
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Destination},
		)
	}
	return node, nil
}

// LoadMappingFile reads and parses a YAML mapping file.
func LoadMappingFile(path string) (*MappingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file %s: %w", path, err)
	}
	return ParseMappings(data)
}

// ParseMappings parses YAML mapping declarations.
func ParseMappings(data []byte) (*MappingFile, error) {
	var mf MappingFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse mapping YAML: %w", err)
	}
	if mf.Version == "" {
		mf.Version = "1"
	}
	if mf.Version != "1" {
		return nil, fmt.Errorf("unsupported mapping file version %q", mf.Version)
	}
	for i, tm := range mf.Mappings {
		if tm.Source == "" || tm.Destination == "" {
			return nil, fmt.Errorf("mappings[%d]: source and destination are required", i)
		}
	}
	return &mf, nil
}

// MarshalMappings serializes a MappingFile to YAML.
func MarshalMappings(mf *MappingFile) ([]byte, error) {
	return yaml.Marshal(mf)
}

// Find returns the declaration for a source type name.
func (mf *MappingFile) Find(source string) (*TypeMapping, bool) {
	for i := range mf.Mappings {
		if mf.Mappings[i].Source == source {
			return &mf.Mappings[i], true
		}
	}
	return nil, false
}

// TypeIndex resolves type names used in a MappingFile to Go types.
type TypeIndex map[string]reflect.Type

// Types indexes types by their Go name and by their package-qualified name.
func Types(types ...reflect.Type) TypeIndex {
	idx := make(TypeIndex, len(types)*2)
	for _, t := range types {
		t = indirect(t)
		idx[t.Name()] = t
		idx[t.String()] = t
	}
	return idx
}

// Setup returns a setup function for Engine.Initialize that registers every
// declared mapping.
func (mf *MappingFile) Setup(types TypeIndex) func(cfg *Configuration) error {
	return func(cfg *Configuration) error {
		for _, tm := range mf.Mappings {
			src, ok := types[tm.Source]
			if !ok {
				return fmt.Errorf("unknown source type %q", tm.Source)
			}
			dst, ok := types[tm.Destination]
			if !ok {
				return fmt.Errorf("unknown destination type %q", tm.Destination)
			}
			m, err := cfg.Mapping(src, dst)
			if err != nil {
				return err
			}
			for _, f := range tm.Fields {
				if err := m.AddField(f.Source, f.Destination); err != nil {
					return err
				}
			}
		}
		return nil
	}
}
