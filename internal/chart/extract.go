package chart

import (
	"regexp"
	"strings"
)

// ConstructionMarker is the substring that identifies a chart-constructing call.
const ConstructionMarker = "new Chart"

var (
	// fenceLine matches a code fence line with an optional language tag.
	fenceLine = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z0-9_+.-]*[ \t]*$")
	// inlineFence matches fences glued to code on the same line.
	inlineFence = regexp.MustCompile("```(?:javascript|js)?")
)

// StripFences removes code-fence markers and surrounding whitespace.
func StripFences(text string) string {
	s := fenceLine.ReplaceAllString(text, "")
	s = inlineFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Extract cleans an LLM response down to chart code. It fails with a
// *FormatError when the construction marker is missing after fence stripping.
func Extract(apiResponseText string) (string, error) {
	code := StripFences(apiResponseText)
	if !strings.Contains(code, ConstructionMarker) {
		return "", &FormatError{Msg: "unexpected code format"}
	}
	return code, nil
}
