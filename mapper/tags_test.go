package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		want    FieldTag
		wantErr bool
	}{
		{name: "empty", tag: "", want: FieldTag{}},
		{name: "skip", tag: "-", want: FieldTag{Skip: true}},
		{name: "simple name", tag: "Title", want: FieldTag{Name: "Title"}},
		{name: "name with key", tag: "Title,key", want: FieldTag{Name: "Title", Key: true}},
		{name: "key only", tag: ",key", want: FieldTag{Key: true}},
		{name: "spaces", tag: " Title , key ", want: FieldTag{Name: "Title", Key: true}},
		{name: "unknown option", tag: "Title,unique", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTag(tt.tag)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
