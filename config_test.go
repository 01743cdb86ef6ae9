package cw_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/cw"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "mod", "common", "buildings")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	content := `game: stellaris
game_path: /games/Stellaris
mod_paths:
  - mod
cwt_path: cwtools-stellaris-config/config
format:
  indent: 2
  use_tabs: false
  max_blank_lines: 0
init_timeout: 30s
watch: true
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cw.yaml"), []byte(content), 0o600))

	cfg, err := cw.LoadConfig(nested)
	require.NoError(t, err)

	assert.Equal(t, "stellaris", cfg.Game)
	assert.Equal(t, "/games/Stellaris", cfg.GamePath)
	assert.Equal(t, []string{filepath.Join(root, "mod")}, cfg.ModPaths)
	assert.Equal(t, filepath.Join(root, "cwtools-stellaris-config", "config"), cfg.CWTPath)
	assert.Equal(t, 30*time.Second, cfg.InitTimeout)
	assert.True(t, cfg.Watch)

	opts := cfg.Format.Options()
	assert.Equal(t, 2, opts.Indent)
	assert.Equal(t, 0, opts.MaxBlankLines)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "cw.yml"), []byte("watch: false\n"), 0o600))

	cfg, err := cw.LoadConfig(root)
	require.NoError(t, err)

	assert.Equal(t, cw.DefaultGame, cfg.Game)
	assert.Equal(t, cw.DefaultInitTimeout, cfg.InitTimeout)
	assert.Equal(t, cw.DefaultFormatOptions(), cfg.Format.Options())
}

func TestFindConfig_NotFound(t *testing.T) {
	t.Parallel()

	_, err := cw.FindConfig(t.TempDir())
	// A config further up the real filesystem would be found too; only assert
	// the sentinel when the walk reached the root.
	if err != nil {
		assert.ErrorIs(t, err, cw.ErrConfigNotFound)
	}
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".cw.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: [unclosed"), 0o600))

	_, err := cw.LoadConfigFile(path)
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := cw.DefaultConfig()
	assert.Equal(t, "stellaris", cfg.Game)
	assert.Equal(t, 2*time.Minute, cfg.InitTimeout)
}
