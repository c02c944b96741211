package execution

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mit.edu/dsg/qexec/common"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.VerifyOrdering)
	assert.Equal(t, 0, cfg.SortRowLimit)
	assert.Equal(t, "", cfg.DefaultCollation)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Flags(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-qexec.verify-ordering", "-qexec.sort-row-limit=100", "-qexec.default-collation=de"}))

	assert.True(t, cfg.VerifyOrdering)
	assert.Equal(t, 100, cfg.SortRowLimit)
	assert.Equal(t, "de", cfg.DefaultCollation)
}

func TestConfig_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qexec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("verify_ordering: true\nsort_row_limit: 5000\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.VerifyOrdering)
	assert.Equal(t, 5000, cfg.SortRowLimit)
	assert.Equal(t, "", cfg.DefaultCollation, "unset keys keep their defaults")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sort_row_limit: -1\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "sort_row_limit")

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"limit", Config{SortRowLimit: 10}, false},
		{"negative limit", Config{SortRowLimit: -3}, true},
		{"collation", Config{DefaultCollation: "sv"}, false},
		{"bad collation", Config{DefaultCollation: "not a tag!"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ResolveCollation(t *testing.T) {
	cfg := Config{DefaultCollation: "fr"}

	tag, err := cfg.resolveCollation(DefaultCollationName)
	require.NoError(t, err)
	assert.Equal(t, "fr", tag)

	tag, err = cfg.resolveCollation("")
	require.NoError(t, err)
	assert.Equal(t, "", tag)

	tag, err = (&Config{}).resolveCollation(DefaultCollationName)
	require.NoError(t, err)
	assert.Equal(t, "", tag, "no default collation means binary order")

	_, err = cfg.resolveCollation("???")
	assert.True(t, common.IsErrorCode(err, common.InvalidPlanError))
}
