package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetArgs(nil)
		configPath = "config.yaml"
		envFile = ""
	})
	err := RootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestConfigExampleCommand(t *testing.T) {
	out, err := execute(t, "config", "example")
	require.NoError(t, err)
	assert.Contains(t, out, "trmnlp Example Configuration")
	assert.Contains(t, out, "plugins:")
}

func TestResolveCommand(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.toml"), []byte(`
name = "Solo"
polling_url = "https://api.example/items?token={TOKEN}&id={device.id}"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("TOKEN=t0k\n"), 0o644))

	envPath := filepath.Join(t.TempDir(), "process.env")
	require.NoError(t, os.WriteFile(envPath, []byte("PLUGINS_PATH="+root+"\n"), 0o644))
	t.Setenv("PLUGINS_PATH", "")
	os.Unsetenv("PLUGINS_PATH")

	out, err := execute(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "--env-file", envPath, "resolve")
	require.NoError(t, err)

	start := bytes.IndexByte([]byte(out), '{')
	require.GreaterOrEqual(t, start, 0)
	var req struct {
		URL        string   `json:"url"`
		Unresolved []string `json:"unresolved"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader([]byte(out[start:]))).Decode(&req))
	assert.Equal(t, "https://api.example/items?token=t0k&id={device.id}", req.URL)
	assert.Equal(t, []string{"device.id"}, req.Unresolved)
}
