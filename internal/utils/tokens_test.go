package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/vizloom-cli/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
	}{
		{"empty", "", 0},
		{"simple", "hello world", 2},
		{"cjk", "销售额按月份统计", 2},
		{"long", strings.Repeat("a", 4000), 900}, // heuristic ~ 1 tok ≈ 4 chars
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got < c.min {
			t.Errorf("%s: got %d < min %d", c.name, got, c.min)
		}
	}
}

func TestTokenBreakdown(t *testing.T) {
	got := utils.TokenBreakdown(map[string]string{"system": "abcd", "prompt": strings.Repeat("x", 40)})
	if got["system"] != 1 || got["prompt"] != 10 {
		t.Fatalf("unexpected breakdown %v", got)
	}
}
