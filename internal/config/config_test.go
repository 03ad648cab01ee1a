package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesEngineConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	err := os.WriteFile(path, []byte(`
uow_name: ga-target-sum
params:
  n_pop: 40
  n_gen: 50
  selection_rate: 0.25
  mutation_rate: 0.03
  hist_granularity: 3
  term_limit: 0.001
  max_total_indiv: 10000
`), 0o644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ga-target-sum", cfg.UoWName)
	assert.Equal(t, 40, cfg.Params.NPop)
	assert.Equal(t, 0.25, cfg.Params.SelectionRate)
	assert.Equal(t, 10000, cfg.Params.MaxTotalIndiv)
}

func TestLoadRejectsMissingUoWName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("params:\n  n_pop: 10\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultIsUsable(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "ga-target-sum", cfg.UoWName)
	assert.Greater(t, cfg.Params.NPop, 0)
}
