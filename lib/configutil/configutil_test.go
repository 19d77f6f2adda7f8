package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port   int    `json:"port"`
	Origin string `json:"origin"`
	Debug  struct {
		Dir string `json:"dir"`
	} `json:"debug"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")

	defaults := testConfig{Port: 8000, Origin: "http://localhost:8080"}

	_, err := ReadConfig(name, defaults)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(name, []byte(`{
		// comments are fine
		port: 9000,
		debug: { dir: "dump" },
	}`), 0600))

	config, err := ReadConfig(name, defaults)
	require.NoError(t, err)
	require.Equal(t, 9000, config.Port)
	require.Equal(t, "http://localhost:8080", config.Origin)
	require.Equal(t, "dump", config.Debug.Dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		origin: "https://logs.example.com",
	}`), 0600))

	config, err = ReadConfig(name, defaults)
	require.NoError(t, err)
	require.Equal(t, 9000, config.Port)
	require.Equal(t, "https://logs.example.com", config.Origin)
	require.Equal(t, "dump", config.Debug.Dir)
}

func TestReadRecursively(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json5"), []byte(`{port: 1234}`), 0600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	config, err := ReadRecursively("settings.json5", testConfig{})
	require.NoError(t, err)
	require.Equal(t, 1234, config.Port)
}

func TestLocalName(t *testing.T) {
	require.Equal(t, filepath.Join("dir", "config.local.json5"), localName(filepath.Join("dir", "config.json5")))
	require.Equal(t, "config.local", localName("config"))
}
