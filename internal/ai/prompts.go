package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// DefaultPromptChars bounds the dataset excerpt sent for a summary.
	DefaultPromptChars = 2000
	// DefaultCanvasID is the element id chart code is asked to target.
	DefaultCanvasID = "chart-canvas"

	analystSystemPrompt = "You are a professional data analyst who writes concise Chart.js visualizations."
)

// SummaryPrompt asks for a short description of a dataset. The raw text is
// cut to maxChars characters and always followed by an ellipsis.
func SummaryPrompt(raw string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultPromptChars
	}
	excerpt := raw
	if r := []rune(raw); len(r) > maxChars {
		excerpt = string(r[:maxChars])
	}
	return "Analyze the following dataset and briefly describe its characteristics:\n\n" + excerpt + "..."
}

// ChartPrompt asks for bare Chart.js code drawing rows according to request.
func ChartPrompt(rows any, request, canvasID string) (string, error) {
	if strings.TrimSpace(request) == "" {
		return "", fmt.Errorf("chart request cannot be empty")
	}
	if canvasID == "" {
		canvasID = DefaultCanvasID
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Generate Chart.js chart code for the following data (use canvas id=%q). Requirements:\n", canvasID)
	fmt.Fprintf(&b, "Data: %s\n", data)
	fmt.Fprintf(&b, "Request: %s\n", strings.TrimSpace(request))
	b.WriteString("Return only plain JavaScript code with no explanation or comments.")
	return b.String(), nil
}

// SummaryMessages wraps a summary prompt as a single user turn.
func SummaryMessages(prompt string) []Message {
	return []Message{{Role: "user", Content: prompt}}
}

// ChartMessages adds the analyst system turn in front of a chart prompt.
func ChartMessages(prompt string) []Message {
	return []Message{
		{Role: "system", Content: analystSystemPrompt},
		{Role: "user", Content: prompt},
	}
}

// CleanSummary removes code fence markers from a model summary before rendering.
func CleanSummary(text string) string {
	return strings.ReplaceAll(text, "```", "")
}
