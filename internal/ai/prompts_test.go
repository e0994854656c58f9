package ai

import (
	"strings"
	"testing"
)

func TestSummaryPromptTruncates(t *testing.T) {
	raw := strings.Repeat("销售,", 1500)
	p := SummaryPrompt(raw, 0)
	body := strings.TrimPrefix(p, "Analyze the following dataset and briefly describe its characteristics:\n\n")
	if !strings.HasSuffix(body, "...") {
		t.Fatalf("expected trailing ellipsis: %q", body[len(body)-10:])
	}
	if n := len([]rune(strings.TrimSuffix(body, "..."))); n != DefaultPromptChars {
		t.Fatalf("expected %d characters, got %d", DefaultPromptChars, n)
	}

	short := SummaryPrompt("a,b\n1,2", 10)
	if !strings.HasSuffix(short, "a,b\n1,2...") {
		t.Fatalf("short input should be kept whole: %q", short)
	}
}

func TestChartPrompt(t *testing.T) {
	rows := []map[string]string{{"month": "Jan", "sales": "10"}}
	p, err := ChartPrompt(rows, "  bar chart of sales by month ", "")
	if err != nil {
		t.Fatalf("ChartPrompt error: %v", err)
	}
	for _, want := range []string{`canvas id="chart-canvas"`, `[{"month":"Jan","sales":"10"}]`, "Request: bar chart of sales by month\n", "only plain JavaScript"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
	if _, err := ChartPrompt(rows, " ", ""); err == nil {
		t.Fatalf("expected error for empty request")
	}
}

func TestCleanSummary(t *testing.T) {
	if got := CleanSummary("```markdown\n# Title\n```"); got != "markdown\n# Title\n" {
		t.Fatalf("unexpected cleaned summary %q", got)
	}
}
