package table

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_Parse(t *testing.T) {
	l := NewLayout(8)

	tests := []struct {
		name    string
		in      string
		want    ID
		wantErr bool
	}{
		{name: "takeaway", in: "Takeaway", want: Takeaway},
		{name: "first table", in: "Table 1", want: "Table 1"},
		{name: "last table", in: "Table 8", want: "Table 8"},
		{name: "beyond layout", in: "Table 9", wantErr: true},
		{name: "zero", in: "Table 0", wantErr: true},
		{name: "leading zero", in: "Table 01", wantErr: true},
		{name: "no space", in: "Table1", wantErr: true},
		{name: "lowercase takeaway", in: "takeaway", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Parse(tt.in)
			if tt.wantErr {
				var invErr *InvalidError
				require.True(t, errors.As(err, &invErr))
				assert.Equal(t, tt.in, invErr.ID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayout_All(t *testing.T) {
	l := NewLayout(3)
	assert.Equal(t, []ID{Takeaway, "Table 1", "Table 2", "Table 3"}, l.All())
	assert.True(t, l.Valid("Table 3"))
	assert.False(t, l.Valid("Table 4"))
}

func TestNewLayout_Default(t *testing.T) {
	assert.Len(t, NewLayout(0).DineInTables(), DefaultTables)
}
