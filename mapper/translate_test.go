package mapper

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaliLuke/go-querymap/clause"
)

func TestTranslate_EndToEnd(t *testing.T) {
	e := sealedEngine(t)

	q, err := Translate[SourceType, DestinationType](e, ClauseSet{
		OrderBy: Raw("Name asc"),
		Filter:  Raw("Id eq 5"),
		Top:     Raw("10"),
	}, RequestContext{Path: "/odata/Items"})
	require.NoError(t, err)

	assert.Equal(t, ClauseTable{
		OptionOrderBy: "Title asc",
		OptionFilter:  "Key eq 5",
		OptionTop:     "10",
	}, q.Clauses)
	assert.Equal(t, TypeOf[SourceType](), q.SourceType)
	assert.Equal(t, TypeOf[DestinationType](), q.DestinationType)
	assert.Equal(t, TypeOf[DestinationType](), q.Context.ElementType)
	assert.Equal(t, "/odata/Items", q.Context.Path)
	require.NotNil(t, q.Context.Entity)
	assert.Equal(t, "DestinationType", q.Context.Entity.EntitySet)
	require.NotNil(t, q.Context.Model)
	assert.Len(t, q.Context.Model.EntitySets(), 3)
}

func TestTranslate_AbsentClauses(t *testing.T) {
	e := sealedEngine(t)

	q, err := Translate[SourceType, DestinationType](e, ClauseSet{Filter: Raw("Name eq 'x'")}, RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, ClauseTable{OptionFilter: "Title eq 'x'"}, q.Clauses)

	q, err = Translate[SourceType, DestinationType](e, ClauseSet{}, RequestContext{})
	require.NoError(t, err)
	assert.Empty(t, q.Clauses)

	q, err = Translate[SourceType, DestinationType](e, ClauseSet{Filter: Raw("")}, RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, ClauseTable{OptionFilter: ""}, q.Clauses)
}

func TestTranslate_VerbatimOptions(t *testing.T) {
	e := sealedEngine(t)

	q, err := Translate[SourceType, DestinationType](e, ClauseSet{
		Top:   Raw("Id"),
		Skip:  Raw("Name"),
		Count: Raw("true"),
	}, RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, ClauseTable{OptionTop: "Id", OptionSkip: "Name", OptionCount: "true"}, q.Clauses)
}

func TestTranslate_NoDoubleSubstitution(t *testing.T) {
	e := sealedEngine(t)

	q, err := Translate[Letters, ShiftedLetters](e, ClauseSet{
		Filter:  Raw("A eq 1 and B eq 2"),
		OrderBy: Raw("A, B desc"),
		Select:  Raw("A,B"),
	}, RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, "B eq 1 and C eq 2", q.Clauses[OptionFilter])
	assert.Equal(t, "B, C desc", q.Clauses[OptionOrderBy])
	assert.Equal(t, "B,C", q.Clauses[OptionSelect])
}

func TestTranslate_SelectExpand(t *testing.T) {
	e := sealedEngine(t)

	q, err := Translate[CustomerDTO, Customer](e, ClauseSet{
		Select: Raw("id,name,city"),
		Expand: Raw("Orders($select=Id,Total;$orderby=Total desc;$top=2)"),
		Filter: Raw("Orders/any(o: o/Total gt 100) and city eq 'Oslo'"),
	}, RequestContext{})
	require.NoError(t, err)

	assert.Equal(t, "Key,title,address/City", q.Clauses[OptionSelect])
	assert.Equal(t, "Purchases($select=Id,Amount;$orderby=Amount desc;$top=2)", q.Clauses[OptionExpand])
	assert.Equal(t, "Purchases/any(o: o/Amount gt 100) and address/City eq 'Oslo'", q.Clauses[OptionFilter])
	require.Len(t, q.Context.Entity.Keys, 1)
	assert.Equal(t, "Key", q.Context.Entity.Keys[0].Name)
}

func TestTranslate_UnknownSource(t *testing.T) {
	e := sealedEngine(t)

	q, err := Translate[Customer, CustomerDTO](e, ClauseSet{Filter: Raw("Key eq 1")}, RequestContext{})
	assert.Nil(t, q)
	var unknown *UnknownMappingError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, TypeOf[Customer](), unknown.SourceType)
}

func TestTranslate_NotSealed(t *testing.T) {
	e, _ := newTestEngine(t)

	q, err := Translate[SourceType, DestinationType](e, ClauseSet{}, RequestContext{})
	assert.Nil(t, q)
	var notSealed *NotSealedError
	assert.ErrorAs(t, err, &notSealed)
}

func TestTranslate_UnmappedDestinationSchema(t *testing.T) {
	boom := errors.New("no schema for Order")
	builder := SchemaBuilderFunc(func(t reflect.Type) (*EntitySchema, error) {
		if t == TypeOf[Order]() {
			return nil, boom
		}
		return ExtractSchema(t)
	})
	e := New(WithSchemaBuilder(builder))
	require.NoError(t, e.Initialize(func(cfg *Configuration) error {
		m, err := Map[SourceType, DestinationType](cfg)
		if err != nil {
			return err
		}
		return m.AddField("Id", "Key")
	}))

	// The destination type requested differs from the registered one and
	// its schema cannot be built.
	q, err := e.Translate(TypeOf[SourceType](), TypeOf[Order](), ClauseSet{Filter: Raw("Id eq 1")}, RequestContext{})
	assert.Nil(t, q)
	var sbe *SchemaBuildError
	require.ErrorAs(t, err, &sbe)
	assert.Equal(t, TypeOf[Order](), sbe.Type)
	assert.ErrorIs(t, err, boom)
}

func TestTranslate_RequestPassthrough(t *testing.T) {
	e := sealedEngine(t)
	type handle struct{ id int }
	req := &handle{id: 7}

	q, err := Translate[SourceType, DestinationType](e, ClauseSet{}, RequestContext{Path: "/x", Request: req})
	require.NoError(t, err)
	assert.Same(t, req, q.Request.Request)
	assert.Equal(t, "/x", q.Request.Path)
}

func TestTranslate_Concurrent(t *testing.T) {
	e := sealedEngine(t)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			filter := fmt.Sprintf("Id eq %d", i)
			q, err := Translate[SourceType, DestinationType](e, ClauseSet{Filter: Raw(filter)}, RequestContext{})
			if err != nil {
				errs <- err
				return
			}
			if got, want := q.Clauses[OptionFilter], fmt.Sprintf("Key eq %d", i); got != want {
				errs <- fmt.Errorf("got %q, want %q", got, want)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRewriteClauses_PlainMap(t *testing.T) {
	m := clause.Map{"Id": "Key", "Name": "Title"}
	out, err := RewriteClauses(ClauseSet{
		Filter:  Raw("Id eq 1"),
		OrderBy: Raw("Name"),
		Select:  Raw("Id,Name"),
		Skip:    Raw("4"),
	}, m)
	require.NoError(t, err)
	assert.Equal(t, ClauseTable{
		OptionFilter:  "Key eq 1",
		OptionOrderBy: "Title",
		OptionSelect:  "Key,Title",
		OptionSkip:    "4",
	}, out)
}

func TestRewriteClauses_EmptyMapping(t *testing.T) {
	out, err := RewriteClauses(ClauseSet{Filter: Raw("Id eq 1")}, clause.Map{})
	require.NoError(t, err)
	assert.Equal(t, "Id eq 1", out[OptionFilter])
}
