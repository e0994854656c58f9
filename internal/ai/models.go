package ai

import "sort"

// Model metadata and simple pricing helpers for cost hints after a call.
// Prices are illustrative and should be verified against provider docs.

type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
	// Code marks models tuned for code generation; chart requests prefer them.
	Code bool
}

var models = map[string]ModelInfo{
	"deepseek-chat": {
		Name:          "deepseek-chat",
		Provider:      ProviderDeepSeek,
		ContextTokens: 64000,
		InputPerK:     0.00027,
		OutputPerK:    0.0011,
	},
	"deepseek-coder": {
		Name:          "deepseek-coder",
		Provider:      ProviderDeepSeek,
		ContextTokens: 64000,
		InputPerK:     0.00027,
		OutputPerK:    0.0011,
		Code:          true,
	},
	"deepseek-reasoner": {
		Name:          "deepseek-reasoner",
		Provider:      ProviderDeepSeek,
		ContextTokens: 64000,
		InputPerK:     0.00055,
		OutputPerK:    0.00219,
	},
	"gpt-4o-mini": {
		Name:          "gpt-4o-mini",
		Provider:      ProviderOpenAI,
		ContextTokens: 128000,
		InputPerK:     0.00015,
		OutputPerK:    0.0006,
	},
	"gpt-4o": {
		Name:          "gpt-4o",
		Provider:      ProviderOpenAI,
		ContextTokens: 128000,
		InputPerK:     0.0025,
		OutputPerK:    0.01,
	},
	// Common local (Ollama) tags
	"llama3.1:8b": {
		Name:          "llama3.1:8b",
		Provider:      ProviderOllama,
		ContextTokens: 8192,
	},
	"qwen2.5-coder:7b": {
		Name:          "qwen2.5-coder:7b",
		Provider:      ProviderOllama,
		ContextTokens: 32768,
		Code:          true,
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// ChartModel picks the model used for chart code. A code model from the
// same provider wins over the configured chat model.
func ChartModel(configured string) string {
	mi, ok := LookupModel(configured)
	if !ok || mi.Code {
		return configured
	}
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if m := models[name]; m.Code && m.Provider == mi.Provider {
			return name
		}
	}
	return configured
}

// Catalog returns a copy of the model catalog sorted by name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, v := range models {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
