package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", c.DefaultModel)
	assert.Equal(t, "https://api.deepseek.com/v1", c.BaseURL)
	assert.InDelta(t, 0.3, c.Temperature, 1e-9)
	assert.Equal(t, 100, c.PreviewLines)
	assert.Equal(t, 2000, c.PromptChars)
	assert.Equal(t, "png", c.CanvasFormat)
	assert.Equal(t, filepath.Join(home, DirName, "data"), c.DataDir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_model: gpt-4o-mini\ncanvas_width: 1024\n"), 0o644))
	t.Setenv("VIZLOOM_CANVAS_WIDTH", "640")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.DefaultModel)
	assert.Equal(t, 640, c.CanvasWidth)
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Set("api_key", "sk-1234567890"))
	require.NoError(t, c.Set("canvas_format", "SVG"))
	require.NoError(t, Save(c, ""))

	_, err = os.Stat(filepath.Join(home, DirName, "config.yaml"))
	require.NoError(t, err)

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-1234567890", again.APIKey)
	assert.Equal(t, "svg", again.CanvasFormat)

	shown, err := again.Get("api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-****890", shown)
}

func TestSetValidation(t *testing.T) {
	c := &Global{}
	bad := map[string]string{
		"temperature":      "hot",
		"max_tokens":       "-1",
		"canvas_format":    "gif",
		"default_provider": "anthropic",
		"base_url":         "ftp://x",
		"log_level":        "loud",
		"nope":             "x",
	}
	for k, v := range bad {
		assert.Error(t, c.Set(k, v), k)
	}
	require.NoError(t, c.Set("default_provider", "Local"))
	assert.Equal(t, "ollama", c.DefaultProvider)
	require.NoError(t, c.Set("base_url", "https://api.openai.com/v1/"))
	assert.Equal(t, "https://api.openai.com/v1", c.BaseURL)

	for _, k := range Keys {
		_, err := c.Get(k)
		assert.NoError(t, err, k)
	}
}
