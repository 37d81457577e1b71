package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMappings = `version: "1"
mappings:
  - source: CustomerDTO
    destination: Customer
    fields:
      Id: Key
      Name: Title
validation:
  maxTop: 50
`

func writeMappings(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mappings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testMappings), 0o644))
	return path
}

func TestRun_Query(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{
		"-mappings", writeMappings(t),
		"-query", "$filter=Id eq 5&$orderby=Name asc&$top=10",
	}, &out, &errOut)

	require.Equal(t, 0, code, errOut.String())
	assert.Equal(t, "$filter=Key eq 5\n$orderby=Title asc\n$top=10\n", out.String())
}

func TestRun_Clause(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{
		"-mappings", writeMappings(t),
		"-source", "CustomerDTO",
		"-clause", "contains(Name,'Name')",
	}, &out, &errOut)

	require.Equal(t, 0, code, errOut.String())
	assert.Equal(t, "contains(Title,'Name')\n", out.String())
}

func TestRun_ValidateRejects(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{
		"-mappings", writeMappings(t),
		"-query", "$top=500",
		"-validate",
	}, &out, &errOut)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "exceeds the limit of 50")
}

func TestRun_UnknownSource(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-mappings", writeMappings(t), "-source", "Nope"}, &out, &errOut)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), `no mapping declared for source "Nope"`)
}

func TestRun_Dump(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-clause", "Id eq 1", "-dump"}, &out, &errOut)

	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), "Text: (string) (len=2) \"Id\"")
}

func TestRun_MissingMappings(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(nil, &out, &errOut)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "-mappings flag is required")
}
