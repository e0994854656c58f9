package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/vizloom-cli/internal/ai"
	"github.com/KaramelBytes/vizloom-cli/internal/chart"
	cfgpkg "github.com/KaramelBytes/vizloom-cli/internal/config"
	"github.com/KaramelBytes/vizloom-cli/internal/workflow"
)

func TestSelectModelPrecedence(t *testing.T) {
	cfg := &cfgpkg.Global{DefaultModel: "cfg-model"}

	if got := selectModel(cfg, "cli-model"); got != "cli-model" {
		t.Fatalf("expected CLI model, got %q", got)
	}
	if got := selectModel(cfg, ""); got != "cfg-model" {
		t.Fatalf("expected config model, got %q", got)
	}
	cfg.DefaultModel = ""
	if got := selectModel(cfg, ""); got != ai.DefaultModel {
		t.Fatalf("expected fallback model, got %q", got)
	}
	if got := selectModel(nil, ""); got != ai.DefaultModel {
		t.Fatalf("expected fallback model for nil config, got %q", got)
	}
}

func TestEnforceBudget(t *testing.T) {
	if err := enforceBudget(0.0, 1.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := enforceBudget(2.0, 0); err != nil {
		t.Fatalf("zero limit should disable the check: %v", err)
	}
	if err := enforceBudget(2.0, 1.0); err == nil {
		t.Fatal("expected error when cost exceeds budget")
	}
}

func TestBuildRuntimeDefaults(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("VIZLOOM_OLLAMA_HOST", "")

	rt, name, err := buildRuntime(&cfgpkg.Global{}, runtimeOptions{})
	if err != nil {
		t.Fatalf("buildRuntime: %v", err)
	}
	if name != ai.ProviderDeepSeek {
		t.Fatalf("expected deepseek provider, got %q", name)
	}
	c, ok := rt.(*ai.Client)
	if !ok {
		t.Fatalf("expected *ai.Client, got %T", rt)
	}
	if c.BaseURL() != ai.DefaultBaseURL {
		t.Fatalf("unexpected base URL %q", c.BaseURL())
	}

	rt, name, err = buildRuntime(&cfgpkg.Global{BaseURL: ai.DefaultBaseURL}, runtimeOptions{ProviderFlag: "OpenAI"})
	if err != nil {
		t.Fatalf("buildRuntime openai: %v", err)
	}
	if name != ai.ProviderOpenAI || rt.(*ai.Client).BaseURL() != openAIBaseURL {
		t.Fatalf("expected openai endpoint, got %q %q", name, rt.(*ai.Client).BaseURL())
	}

	rt, _, err = buildRuntime(&cfgpkg.Global{BaseURL: "https://openrouter.ai/api/v1"}, runtimeOptions{ProviderFlag: "openai"})
	if err != nil {
		t.Fatalf("buildRuntime custom: %v", err)
	}
	if got := rt.(*ai.Client).BaseURL(); got != "https://openrouter.ai/api/v1" {
		t.Fatalf("custom base URL should be kept, got %q", got)
	}

	rt, name, err = buildRuntime(&cfgpkg.Global{DefaultProvider: "local"}, runtimeOptions{})
	if err != nil {
		t.Fatalf("buildRuntime local: %v", err)
	}
	if name != ai.ProviderOllama {
		t.Fatalf("expected ollama provider, got %q", name)
	}
	if _, ok := rt.(*ai.OllamaClient); !ok {
		t.Fatalf("expected *ai.OllamaClient, got %T", rt)
	}

	if _, _, err := buildRuntime(nil, runtimeOptions{ProviderFlag: "anthropic"}); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}

func TestExplainError(t *testing.T) {
	api := &ai.APIError{StatusCode: 429, Message: "slow down"}
	cases := []struct {
		name     string
		err      error
		provider string
		want     string
	}{
		{"rate limit", &ai.RateLimitError{APIError: api, RetryAfter: 7 * time.Second}, ai.ProviderDeepSeek, "try again in ~7s"},
		{"auth", &ai.AuthError{APIError: api}, ai.ProviderDeepSeek, "DEEPSEEK_API_KEY"},
		{"local model", &ai.ModelNotFoundError{APIError: api}, ai.ProviderOllama, "ollama pull m"},
		{"ollama down", &ai.UnreachableError{Host: "http://127.0.0.1:11434", Err: errors.New("refused")}, ai.ProviderOllama, "Ollama not reachable"},
		{"format", &chart.FormatError{}, "", "did not return chart code"},
		{"execution", &chart.ExecutionError{Stage: "config", Err: errors.New("bad")}, "", "--debug"},
		{"no runtime", workflow.ErrNoRuntime, "", "no model runtime"},
	}
	for _, tc := range cases {
		got := explainError(tc.err, tc.provider, "m")
		if got == nil || !strings.Contains(got.Error(), tc.want) {
			t.Fatalf("%s: expected %q in %v", tc.name, tc.want, got)
		}
		if !errors.Is(got, tc.err) {
			t.Fatalf("%s: hint should wrap the original error", tc.name)
		}
	}
	plain := errors.New("plain")
	if got := explainError(plain, "", ""); got != plain {
		t.Fatalf("unknown errors should pass through, got %v", got)
	}
	if explainError(nil, "", "") != nil {
		t.Fatal("nil should stay nil")
	}
}

func TestNewCanvasFallsBackToConfig(t *testing.T) {
	c := newCanvas(&cfgpkg.Global{CanvasWidth: 640, CanvasHeight: 480, CanvasFormat: "svg"}, 0, 0, "")
	if c.Format() != chart.FormatSVG {
		t.Fatalf("expected svg from config, got %q", c.Format())
	}
	c = newCanvas(nil, 0, 0, "PNG")
	if c.Ext() != ".png" {
		t.Fatalf("expected .png, got %q", c.Ext())
	}
}
