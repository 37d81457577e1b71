package mapper

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClauseSet(t *testing.T) {
	q, err := url.ParseQuery("$filter=Id eq 5&$OrderBy=Name&top=3&$count=true&other=x&$skip=")
	require.NoError(t, err)

	cs := ParseClauseSet(q)
	require.NotNil(t, cs.Filter)
	assert.Equal(t, "Id eq 5", *cs.Filter)
	require.NotNil(t, cs.OrderBy)
	assert.Equal(t, "Name", *cs.OrderBy)
	require.NotNil(t, cs.Top)
	assert.Equal(t, "3", *cs.Top)
	require.NotNil(t, cs.Count)
	require.NotNil(t, cs.Skip)
	assert.Equal(t, "", *cs.Skip)
	assert.Nil(t, cs.Select)
	assert.Nil(t, cs.Expand)
}

func TestClauseSet_Present(t *testing.T) {
	cs := ClauseSet{Filter: Raw(""), Top: Raw("10")}
	assert.Equal(t, ClauseTable{OptionFilter: "", OptionTop: "10"}, cs.Present())
	assert.Empty(t, ClauseSet{}.Present())
}

func TestClauseTable_Keys(t *testing.T) {
	table := ClauseTable{
		OptionCount:   "true",
		"$custom":     "1",
		OptionTop:     "5",
		OptionFilter:  "x",
		"$apply":      "y",
		OptionOrderBy: "z",
	}
	assert.Equal(t, []string{OptionFilter, OptionOrderBy, OptionTop, OptionCount, "$apply", "$custom"}, table.Keys())
}

func TestClauseTable_Encode(t *testing.T) {
	table := ClauseTable{OptionTop: "10", OptionFilter: "Key eq 'a&b'"}
	assert.Equal(t, "%24filter=Key+eq+%27a%26b%27&%24top=10", table.Encode())

	v := table.Values()
	assert.Equal(t, "Key eq 'a&b'", v.Get(OptionFilter))

	back, err := url.ParseQuery(table.Encode())
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestClauseTable_Get(t *testing.T) {
	table := ClauseTable{OptionFilter: ""}
	v, ok := table.Get(OptionFilter)
	assert.True(t, ok)
	assert.Equal(t, "", v)
	_, ok = table.Get(OptionTop)
	assert.False(t, ok)
}
