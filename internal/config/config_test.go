package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClient_Defaults(t *testing.T) {
	for _, k := range []string{"SERVER_URL", "GAME_NAME", "SEAT", "PLAYER_NAME", "NUM_PLAYERS", "UI", "RECONNECT_MIN", "RECONNECT_MAX"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	c, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.ServerURL)
	assert.Equal(t, "default", c.GameName)
	assert.Equal(t, "0", c.Seat)
	assert.Equal(t, 2, c.NumPlayers)
	assert.Equal(t, 250*time.Millisecond, c.ReconnectMin)
	assert.Equal(t, 5*time.Second, c.ReconnectMax)
}

func TestLoadClient_Overrides(t *testing.T) {
	t.Setenv("SEAT", "1")
	t.Setenv("UI", "text")
	t.Setenv("RECONNECT_MAX", "30s")

	c, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "1", c.Seat)
	assert.Equal(t, "text", c.UI)
	assert.Equal(t, 30*time.Second, c.ReconnectMax)
}

func TestLoadClient_ReportsEveryBadValue(t *testing.T) {
	t.Setenv("NUM_PLAYERS", "two")
	t.Setenv("RECONNECT_MIN", "soon")
	t.Setenv("UI", "web")

	_, err := LoadClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NumPlayers")
	assert.Contains(t, err.Error(), "ReconnectMin")
	assert.Contains(t, err.Error(), `UI: unknown value "web"`)
}

func TestLoadClient_RejectsInvertedBackoff(t *testing.T) {
	t.Setenv("RECONNECT_MIN", "10s")
	t.Setenv("RECONNECT_MAX", "1s")

	_, err := LoadClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECONNECT_MIN: must not exceed RECONNECT_MAX")
}

func TestLoadServer_ExplicitPublicURL(t *testing.T) {
	t.Setenv("PUBLIC_URL", "https://play.example.test")
	t.Setenv("GAMES", "")
	os.Unsetenv("GAMES")

	s, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "https://play.example.test", s.PublicURL)
	assert.Equal(t, []string{"default"}, s.Games)
}

func TestLoadServer_NoUsableGames(t *testing.T) {
	t.Setenv("GAMES", " , ")

	_, err := LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GAMES")
}

func TestLoadServer_SplitsGames(t *testing.T) {
	t.Setenv("GAMES", "default, tic-tac-toe,")
	t.Setenv("ADDR", ":9000")
	os.Unsetenv("PUBLIC_URL")

	s, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "tic-tac-toe"}, s.Games)
	assert.Equal(t, "http://localhost:9000", s.PublicURL)
}

func TestLoadEnv_ReadsFileWithoutOverriding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GAME_NAME=from-file\nSEAT=1\n"), 0o644))
	t.Setenv("SEAT", "0")
	t.Setenv("GAME_NAME", "")
	os.Unsetenv("GAME_NAME")

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	t.Cleanup(func() { os.Unsetenv("GAME_NAME") })

	assert.Equal(t, "from-file", os.Getenv("GAME_NAME"))
	assert.Equal(t, "0", os.Getenv("SEAT"))
}
