package capability

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sched2bt/internal/ir"
)

func TestLoadJSONAndYAMLAgree(t *testing.T) {
	fromJSON, err := Load(filepath.Join("testdata", "capabilities.json"))
	require.NoError(t, err)
	fromYAML, err := Load(filepath.Join("testdata", "capabilities.yaml"))
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromJSON)
	assert.Equal(t, 4, fromJSON.Len())
}

func TestResolve(t *testing.T) {
	tbl, err := Load(filepath.Join("testdata", "capabilities.json"))
	require.NoError(t, err)

	tests := []struct {
		name string
		job  string
		op   string
		want ir.TagSet
	}{
		{"pick and place", "j_1", "OP11", ir.TagSet{ir.TagPick, ir.TagPlace}},
		{"move only", "j_1", "OP12", ir.TagSet{ir.TagMoveTo}},
		{"collaborative suffix ignored", "j_2", "OP22_CO", ir.TagSet{ir.TagPlace}},
		{"duplicates dropped", "j_2", "OP21", ir.TagSet{ir.TagPick, ir.TagPlace}},
		{"unknown operation", "j_1", "OP19", nil},
		{"unknown job", "j_9", "OP11", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tbl.Resolve(tt.job, tt.op))
		})
	}
}

func TestResolveReturnsCopy(t *testing.T) {
	tbl := New(map[string]map[string][]ir.Tag{"j_1": {"OP11": {ir.TagPick}}})
	tags := tbl.Resolve("j_1", "OP11")
	tags[0] = ir.TagMoveTo
	assert.Equal(t, ir.TagSet{ir.TagPick}, tbl.Resolve("j_1", "OP11"))
}

func TestParseRejectsInvalidTables(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown tag", `{"jobs": {"j_1": {"operations": {"OP11": ["weld"]}}}}`},
		{"empty tag list", `{"jobs": {"j_1": {"operations": {"OP11": []}}}}`},
		{"bad operation key", `{"jobs": {"j_1": {"operations": {"op11": ["pick"]}}}}`},
		{"not a mapping", `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ir.ErrParse), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, ir.ErrIO))
}
