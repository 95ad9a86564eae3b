package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuiltinOnly(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	all := r.All()
	assert.NotEmpty(t, all)

	tgt, ok := r.Get("sony_wh-1000xm5")
	require.True(t, ok)
	assert.Equal(t, "Sony", tgt.Company)
	assert.Equal(t, "WH-1000XM5", tgt.Product)
	assert.NotEmpty(t, tgt.SearchQueries)
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, r.All())
}

func TestLoadUserFileExtendsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")
	yaml := `
targets:
  - company: Anker
    product: Soundcore Liberty 4
    search_queries:
      - "liberty 4 long term review"
  - company: Acme
    product: Widget
  - company: ""
    product: Broken
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	r, err := Load(path)
	require.NoError(t, err)

	// Override replaces the builtin queries.
	anker, ok := r.Get("anker_soundcore_liberty_4")
	require.True(t, ok)
	assert.Equal(t, []string{"liberty 4 long term review"}, anker.SearchQueries)

	// New entry registered.
	acme, ok := r.Get("acme_widget")
	require.True(t, ok)
	assert.Equal(t, "Acme", acme.Company)

	// Entry with missing company skipped.
	for _, tgt := range r.All() {
		assert.NotEqual(t, "Broken", tgt.Product)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targets: [not: valid: yaml"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAllSorted(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	all := r.All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Identifier(), all[i].Identifier())
	}
}
