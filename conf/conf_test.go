//go:build test

package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "binobj.yaml"), []byte(body), 0o644))
	t.Chdir(dir)
}

func TestLoadEmpty(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Types)
	assert.Empty(t, cfg.Options())
}

func TestLoadOverrides(t *testing.T) {
	writeConfig(t, `
types:
  - name: trade.Order
    id: 42
    serializer: external
    affinityField: account
  - name: md.Tick
    rawMode: true
`)
	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Types, 2)

	ord := cfg.Types[0]
	assert.Equal(t, "trade.Order", ord.Name)
	assert.EqualValues(t, 42, ord.ID)
	assert.Equal(t, "external", ord.Serializer)
	assert.Equal(t, "account", ord.AffinityField)
	assert.False(t, ord.RawMode)

	tick := cfg.Types[1]
	assert.Equal(t, "md.Tick", tick.Name)
	assert.True(t, tick.RawMode)
	assert.Empty(t, tick.Serializer)

	assert.Len(t, cfg.Options(), 2)
}

func TestLoadRejectsUnknownSerializer(t *testing.T) {
	writeConfig(t, `
types:
  - name: trade.Order
    serializer: protobuf
`)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid serializer")
}

func TestLoadRejectsUnnamedOverride(t *testing.T) {
	writeConfig(t, `
types:
  - id: 7
`)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty name")
}
