package mapper

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Envelope is the serializable form of a TranslatedQuery, for handing a
// translated query to an execution layer in another process. Types are
// carried by name.
type Envelope struct {
	Source      string            `msgpack:"source"`
	Destination string            `msgpack:"destination"`
	EntitySet   string            `msgpack:"entity_set"`
	Path        string            `msgpack:"path"`
	Clauses     map[string]string `msgpack:"clauses"`
	Properties  []string          `msgpack:"properties"`
	Keys        []string          `msgpack:"keys,omitempty"`
}

// NewEnvelope captures a translated query. The opaque request value is not
// included.
func NewEnvelope(q *TranslatedQuery) Envelope {
	env := Envelope{
		Source:      typeName(q.SourceType),
		Destination: typeName(q.DestinationType),
		Path:        q.Context.Path,
		Clauses:     make(map[string]string, len(q.Clauses)),
	}
	for k, v := range q.Clauses {
		env.Clauses[k] = v
	}
	if e := q.Context.Entity; e != nil {
		env.EntitySet = e.EntitySet
		env.Properties = e.PropertyNames()
		for _, k := range e.Keys {
			env.Keys = append(env.Keys, k.Name)
		}
	}
	return env
}

// ClauseTable returns the envelope's clauses.
func (e *Envelope) ClauseTable() ClauseTable {
	return ClauseTable(e.Clauses)
}

// EncodeEnvelope encodes a translated query as MessagePack with sorted map
// keys, so equal queries encode to equal bytes.
func EncodeEnvelope(q *TranslatedQuery) ([]byte, error) {
	if q == nil {
		return nil, errors.New("querymap: encode envelope: nil query")
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(NewEnvelope(q)); err != nil {
		return nil, fmt.Errorf("querymap: encode envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeEnvelope decodes bytes produced by EncodeEnvelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	var env Envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("querymap: decode envelope: %w", err)
	}
	return &env, nil
}
