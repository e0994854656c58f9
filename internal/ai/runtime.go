package ai

import "context"

// Runtime is a minimal interface implemented by chat backends such as
// OpenAI-compatible APIs (DeepSeek, OpenAI, OpenRouter) and local Ollama.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderOllama   = "ollama"
)
