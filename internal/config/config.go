package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory holding config.yaml and the default data dir.
const DirName = ".vizloom"

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL         string  `mapstructure:"base_url" yaml:"base_url"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`

	// HTTP configuration
	HTTPTimeoutSec int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Storage for the image archive, its index and dataset backups
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// Dataset handling
	PreviewLines int `mapstructure:"preview_lines" yaml:"preview_lines"`
	PromptChars  int `mapstructure:"prompt_chars" yaml:"prompt_chars"`

	// Drawing surface
	CanvasWidth  int    `mapstructure:"canvas_width" yaml:"canvas_width"`
	CanvasHeight int    `mapstructure:"canvas_height" yaml:"canvas_height"`
	CanvasFormat string `mapstructure:"canvas_format" yaml:"canvas_format"`

	// off, basic or verbose
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"api_key", "base_url", "default_model", "default_provider", "temperature", "max_tokens",
	"http_timeout_sec", "ollama_host", "data_dir", "preview_lines", "prompt_chars",
	"canvas_width", "canvas_height", "canvas_format", "log_level",
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.vizloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("VIZLOOM")
	v.AutomaticEnv()

	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "https://api.deepseek.com/v1")
	v.SetDefault("default_model", "deepseek-chat")
	v.SetDefault("default_provider", "deepseek")
	v.SetDefault("temperature", 0.3)
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("data_dir", "")
	v.SetDefault("preview_lines", 100)
	v.SetDefault("prompt_chars", 2000)
	v.SetDefault("canvas_width", 800)
	v.SetDefault("canvas_height", 500)
	v.SetDefault("canvas_format", "png")
	v.SetDefault("log_level", "basic")

	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(dir, "data")
	}
	return &c, nil
}

// Get returns the display value of key. The API key is masked.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "api_key":
		return Mask(c.APIKey), nil
	case "base_url":
		return c.BaseURL, nil
	case "default_model":
		return c.DefaultModel, nil
	case "default_provider":
		return c.DefaultProvider, nil
	case "temperature":
		return strconv.FormatFloat(c.Temperature, 'f', -1, 64), nil
	case "max_tokens":
		return strconv.Itoa(c.MaxTokens), nil
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec), nil
	case "ollama_host":
		return c.OllamaHost, nil
	case "data_dir":
		return c.DataDir, nil
	case "preview_lines":
		return strconv.Itoa(c.PreviewLines), nil
	case "prompt_chars":
		return strconv.Itoa(c.PromptChars), nil
	case "canvas_width":
		return strconv.Itoa(c.CanvasWidth), nil
	case "canvas_height":
		return strconv.Itoa(c.CanvasHeight), nil
	case "canvas_format":
		return c.CanvasFormat, nil
	case "log_level":
		return c.LogLevel, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set validates val and assigns it to key.
func (c *Global) Set(key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "base_url":
		if !strings.HasPrefix(val, "http://") && !strings.HasPrefix(val, "https://") {
			return fmt.Errorf("invalid base_url: %s (must start with http:// or https://)", val)
		}
		c.BaseURL = strings.TrimRight(val, "/")
	case "default_model":
		if val == "" {
			return fmt.Errorf("default_model cannot be empty")
		}
		c.DefaultModel = val
	case "default_provider":
		switch strings.ToLower(val) {
		case "deepseek", "openai":
			c.DefaultProvider = strings.ToLower(val)
		case "ollama", "local":
			c.DefaultProvider = "ollama"
		default:
			return fmt.Errorf("invalid default_provider: %s (use deepseek, openai or ollama)", val)
		}
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v (want 0-2)", val)
		}
		c.Temperature = f
	case "max_tokens", "http_timeout_sec", "preview_lines", "prompt_chars", "canvas_width", "canvas_height":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid positive int for %s: %v", key, val)
		}
		switch key {
		case "max_tokens":
			c.MaxTokens = i
		case "http_timeout_sec":
			c.HTTPTimeoutSec = i
		case "preview_lines":
			c.PreviewLines = i
		case "prompt_chars":
			c.PromptChars = i
		case "canvas_width":
			c.CanvasWidth = i
		case "canvas_height":
			c.CanvasHeight = i
		}
	case "ollama_host":
		c.OllamaHost = val
	case "data_dir":
		c.DataDir = val
	case "canvas_format":
		switch strings.ToLower(val) {
		case "png", "svg":
			c.CanvasFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid canvas_format: %s (use png or svg)", val)
		}
	case "log_level":
		switch strings.ToLower(val) {
		case "off", "basic", "verbose":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use off, basic or verbose)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Mask hides all but the first and last three characters of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
