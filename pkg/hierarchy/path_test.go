package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Path
	}{
		{
			name: "three levels",
			raw:  "DIR01 > DEP02 > SEC03",
			want: Path{"DIR01", "DEP02", "SEC03"},
		},
		{
			name: "single unit",
			raw:  "DIR01",
			want: Path{"DIR01"},
		},
		{
			name: "empty string",
			raw:  "",
			want: Path{},
		},
		{
			name: "whitespace around codes",
			raw:  " DIR01  >  DEP02 ",
			want: Path{"DIR01", "DEP02"},
		},
		{
			name: "empty segments dropped",
			raw:  "DIR01 >  > SEC03",
			want: Path{"DIR01", "SEC03"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePath(tt.raw))
		})
	}
}

func TestPath_ParentUnit(t *testing.T) {
	t.Run("returns second to last unit", func(t *testing.T) {
		parent, ok := ParsePath("DIR01 > DEP02 > SEC03").ParentUnit()
		require.True(t, ok)
		assert.Equal(t, "DEP02", parent)
	})

	t.Run("single unit has no parent", func(t *testing.T) {
		_, ok := ParsePath("DIR01").ParentUnit()
		assert.False(t, ok)
	})

	t.Run("empty path has no parent", func(t *testing.T) {
		_, ok := ParsePath("").ParentUnit()
		assert.False(t, ok)
	})
}

func TestPath_OwnUnit(t *testing.T) {
	own, ok := ParsePath("DIR01 > DEP02 > SEC03").OwnUnit()
	require.True(t, ok)
	assert.Equal(t, "SEC03", own)

	_, ok = ParsePath("").OwnUnit()
	assert.False(t, ok)
}

func TestMostSpecific(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       int
	}{
		{
			name:       "deepest path wins",
			candidates: []string{"DIR01", "DIR01 > DEP02 > SEC03", "DIR01 > DEP02"},
			want:       1,
		},
		{
			name:       "raw length breaks level ties",
			candidates: []string{"DIR01 > DEP02", "DIR01 > DEPARTMENT02"},
			want:       1,
		},
		{
			name:       "single candidate",
			candidates: []string{"DIR01"},
			want:       0,
		},
		{
			name:       "empty slice",
			candidates: nil,
			want:       -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MostSpecific(tt.candidates))
		})
	}
}
