package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KaramelBytes/vizloom-cli/internal/ai"
	"github.com/KaramelBytes/vizloom-cli/internal/archive"
	"github.com/KaramelBytes/vizloom-cli/internal/chart"
	cfgpkg "github.com/KaramelBytes/vizloom-cli/internal/config"
	"github.com/KaramelBytes/vizloom-cli/internal/logging"
	"github.com/KaramelBytes/vizloom-cli/internal/workflow"
)

const openAIBaseURL = "https://api.openai.com/v1"

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	if cfg != nil && cfg.HTTPTimeoutSec > 0 {
		httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && cfg != nil && cfg.DefaultProvider != "" {
		providerName = strings.ToLower(cfg.DefaultProvider)
	}
	if providerName == "" {
		providerName = ai.ProviderDeepSeek
	}
	if providerName == "local" {
		providerName = ai.ProviderOllama
	}

	rc := ai.RuntimeConfig{HTTPTimeout: httpTimeout}

	switch providerName {
	case ai.ProviderOllama:
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			host = os.Getenv("VIZLOOM_OLLAMA_HOST")
		}
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
	case ai.ProviderDeepSeek, ai.ProviderOpenAI:
		envKey := "DEEPSEEK_API_KEY"
		if providerName == ai.ProviderOpenAI {
			envKey = "OPENAI_API_KEY"
		}
		apiKey := os.Getenv(envKey)
		if apiKey == "" && cfg != nil {
			apiKey = cfg.APIKey
		}
		baseURL := ai.DefaultBaseURL
		if cfg != nil && cfg.BaseURL != "" {
			baseURL = cfg.BaseURL
		}
		// The default endpoint is DeepSeek's; an explicit openai provider without a custom URL goes to OpenAI.
		if providerName == ai.ProviderOpenAI && strings.TrimRight(baseURL, "/") == ai.DefaultBaseURL {
			baseURL = openAIBaseURL
		}
		rc.APIKey = apiKey
		rc.BaseURL = baseURL
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s (use %s)", providerName, strings.Join(ai.Providers(), ", "))
	}
	return client, providerName, nil
}

func selectModel(cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" {
		return cfg.DefaultModel
	}
	return ai.DefaultModel
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("✗ Estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

// explainError adds user-facing hints for common failures of a model call or chart run.
func explainError(err error, providerName, model string) error {
	if err == nil {
		return nil
	}
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
		fmtErr  *chart.FormatError
		exErr   *chart.ExecutionError
	)
	switch {
	case errors.Is(err, workflow.ErrNoRuntime):
		return fmt.Errorf("no model runtime available: %w", err)
	case errors.As(err, &unreach):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct. You can set VIZLOOM_OLLAMA_HOST or config 'ollama_host'. Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("provider not reachable, check base_url and your network: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: set DEEPSEEK_API_KEY (or OPENAI_API_KEY) or add api_key in config (~/.vizloom/config.yaml): %w", err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited, try again shortly: %w", err)
	case errors.As(err, &nfErr):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model. %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Run 'vizloom models' to see known models: %w", model, err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	case errors.As(err, &fmtErr):
		return fmt.Errorf("the model did not return chart code; try rephrasing the question: %w", err)
	case errors.As(err, &exErr):
		return fmt.Errorf("the generated chart code could not be drawn; rerun with --debug to see it: %w", err)
	}
	return err
}

type serviceOptions struct {
	Provider string
	Model    string
	Canvas   *chart.Canvas
	Store    *archive.Store
	Logger   *logging.Logger
	// Offline skips building a runtime; flows that need the model then fail with ErrNoRuntime.
	Offline bool
}

// newService builds the workflow used by analyze, chart and serve.
func newService(cfg *cfgpkg.Global, opts serviceOptions) (*workflow.Service, string, error) {
	var (
		rt           ai.Runtime
		providerName string
	)
	if !opts.Offline {
		var err error
		rt, providerName, err = buildRuntime(cfg, runtimeOptions{ProviderFlag: opts.Provider})
		if err != nil {
			return nil, providerName, err
		}
	}
	wo := workflow.Options{Model: selectModel(cfg, opts.Model)}
	if cfg != nil {
		wo.Temperature = cfg.Temperature
		wo.MaxTokens = cfg.MaxTokens
		wo.PromptChars = cfg.PromptChars
	}
	return workflow.New(rt, wo, opts.Canvas, opts.Store, opts.Logger), providerName, nil
}

func openStore(ctx context.Context, cfg *cfgpkg.Global) (*archive.Store, error) {
	if cfg == nil || cfg.DataDir == "" {
		return nil, errors.New("data_dir is not configured")
	}
	return archive.Open(ctx, cfg.DataDir)
}

// newCanvas sizes a canvas from flags, falling back to configuration.
func newCanvas(cfg *cfgpkg.Global, width, height int, format string) *chart.Canvas {
	if cfg != nil {
		if width <= 0 {
			width = cfg.CanvasWidth
		}
		if height <= 0 {
			height = cfg.CanvasHeight
		}
		if format == "" {
			format = cfg.CanvasFormat
		}
	}
	if width <= 0 {
		width = workflow.DefaultWidth
	}
	if height <= 0 {
		height = workflow.DefaultHeight
	}
	return chart.NewCanvas(width, height, strings.ToLower(format))
}
