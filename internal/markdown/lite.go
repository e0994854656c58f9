// Package markdown renders model output to HTML or terminal text.
//
// Render handles the small Markdown subset chart summaries are written in
// (level 1-2 headings, ordered and unordered lists, bold spans, paragraphs)
// and performs no HTML escaping: its output is trusted markup. RenderFull
// and RenderTerminal use full CommonMark engines.
package markdown

import (
	"regexp"
	"strings"
)

type kind int

const (
	kindNone kind = iota
	kindHeading
	kindOrdered
	kindUnordered
	kindParagraph
)

type block struct {
	kind  kind
	level int
	text  string
}

var (
	orderedItem   = regexp.MustCompile(`^\d+\. (.*)$`)
	unorderedItem = regexp.MustCompile(`^\s*[-*] (.*)$`)
	boldSpan      = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

func classify(line string) block {
	switch {
	case strings.TrimSpace(line) == "":
		return block{kind: kindNone}
	case strings.HasPrefix(line, "# "):
		return block{kind: kindHeading, level: 3, text: line[2:]}
	case strings.HasPrefix(line, "## "):
		return block{kind: kindHeading, level: 4, text: line[3:]}
	}
	if m := orderedItem.FindStringSubmatch(line); m != nil {
		return block{kind: kindOrdered, text: m[1]}
	}
	if m := unorderedItem.FindStringSubmatch(line); m != nil {
		return block{kind: kindUnordered, text: m[1]}
	}
	return block{kind: kindParagraph, text: line}
}

func bold(s string) string {
	return boldSpan.ReplaceAllString(s, "<strong>$1</strong>")
}

// startsWithTag reports whether a trimmed line already opens an element.
func startsWithTag(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > 1 && s[0] == '<' && s[1] >= 'a' && s[1] <= 'z'
}

// Render converts markdownText to an HTML fragment, one output line per input
// line except that each run of consecutive list items becomes a single line.
// A run is an <ol> when its first item is numbered, otherwise a <ul>.
func Render(markdownText string) string {
	text := strings.ReplaceAll(markdownText, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	blocks := make([]block, len(lines))
	for i, line := range lines {
		blocks[i] = classify(line)
	}

	out := make([]string, 0, len(blocks))
	for i := 0; i < len(blocks); {
		b := blocks[i]
		switch b.kind {
		case kindNone:
			out = append(out, "")
			i++
		case kindHeading:
			tag := "h3"
			if b.level == 4 {
				tag = "h4"
			}
			out = append(out, "<"+tag+">"+bold(b.text)+"</"+tag+">")
			i++
		case kindOrdered, kindUnordered:
			tag := "ul"
			if b.kind == kindOrdered {
				tag = "ol"
			}
			var sb strings.Builder
			sb.WriteString("<" + tag + ">")
			for ; i < len(blocks) && (blocks[i].kind == kindOrdered || blocks[i].kind == kindUnordered); i++ {
				sb.WriteString("<li>" + bold(blocks[i].text) + "</li>")
			}
			sb.WriteString("</" + tag + ">")
			out = append(out, sb.String())
		default:
			line := bold(b.text)
			if !startsWithTag(b.text) {
				line = "<p>" + line + "</p>"
			}
			out = append(out, line)
			i++
		}
	}
	return strings.Join(out, "\n")
}
