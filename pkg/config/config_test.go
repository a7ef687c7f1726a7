package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path string, contents string) string {
	err := os.WriteFile(path, []byte(contents), 0644)
	require.NoError(t, err)
	return path
}

func TestProcess(t *testing.T) {
	// Default config
	config, err := Process([]string{})
	require.NoError(t, err)
	assert.Equal(t, "Prime", config.Project.Game)
	assert.True(t, config.Cook.AllowDuplicates)
	assert.Equal(t, "Disc", config.Cook.OutputDir)
	assert.Equal(t, 1024, config.Cook.Compression.Threshold)
	assert.Equal(t, []string{"TXTR", "CMDL", "CSKR"}, config.Cook.Compression.Always)
	assert.Equal(t, "cooks.db", config.History.Path)

	g, err := config.Project.ParseGame()
	require.NoError(t, err)
	assert.Equal(t, game.Prime, g)

	dir := t.TempDir()

	// yaml config
	{
		path := write(t, filepath.Join(dir, "config.yaml"), `
project:
  game: Echoes
cook:
  allowDuplicates: false
`)
		config, err := Process([]string{path})
		require.NoError(t, err)
		assert.Equal(t, "Echoes", config.Project.Game)
		assert.False(t, config.Cook.AllowDuplicates)
		// Left to the schema
		assert.Equal(t, "Disc", config.Cook.OutputDir)
		assert.True(t, config.History.Enabled)
	}

	// json config
	{
		path := write(t, filepath.Join(dir, "config.json"), `{
  "cook": {
    "compression": {
      "always": ["PART"],
      "threshold": 16
    }
  }
}`)
		config, err := Process([]string{path})
		require.NoError(t, err)
		assert.Equal(t, []string{"PART"}, config.Cook.Compression.Always)
		assert.Equal(
			t,
			[]ids.FourCC{ids.FromString("PART")},
			config.Cook.Compression.AlwaysTypes(),
		)
		assert.Equal(t, 16, config.Cook.Compression.Threshold)
	}

	// multiple yaml
	{
		first := write(t, filepath.Join(dir, "config1.yaml"), `
project:
  game: Corruption
`)
		second := write(t, filepath.Join(dir, "config2.yml"), `
history:
  enabled: false
`)
		config, err := Process([]string{first, second})
		require.NoError(t, err)
		assert.Equal(t, "Corruption", config.Project.Game)
		assert.False(t, config.History.Enabled)
	}

	// Invalid configs
	{
		path := write(t, filepath.Join(dir, "game.yaml"), `
project:
  game: Metroid
`)
		_, err := Process([]string{path})
		require.Error(t, err)

		path = write(t, filepath.Join(dir, "fourcc.yaml"), `
cook:
  compression:
    always: [txtr]
`)
		_, err = Process([]string{path})
		require.Error(t, err)

		path = write(t, filepath.Join(dir, "config.toml"), "")
		_, err = Process([]string{path})
		require.Error(t, err)

		_, err = Process([]string{filepath.Join(dir, "missing.yaml")})
		require.Error(t, err)
	}
}

func TestForProject(t *testing.T) {
	dir := t.TempDir()

	config, err := ForProject(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, config.Project.Root)
	assert.Equal(t, "Prime", config.Project.Game)

	write(t, filepath.Join(dir, ProjectFile), `
project:
  root: game
  game: Echoes
`)
	config, err = ForProject(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "game"), config.Project.Root)
	assert.Equal(t, "Echoes", config.Project.Game)
}
