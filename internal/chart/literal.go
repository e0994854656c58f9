package chart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// The literal grammar accepted here is the subset of JavaScript object
// literals that chart configurations are written in: objects with bare,
// quoted or numeric keys, arrays, strings in any of the three quote styles
// (template strings without substitutions), numbers, booleans, null and
// undefined. Comments and trailing commas are allowed. Nothing is executed.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokPunct
	tokString
	tokNumber
	tokIdent
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func (t token) is(kind tokenKind, text string) bool { return t.kind == kind && t.text == text }

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return strconv.Quote(t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// SyntaxError reports a malformed literal or script with the byte offset it was found at.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg) }

// errNotSelfContained marks a literal that refers to identifiers and so cannot
// be decoded without evaluating surrounding code.
var errNotSelfContained = errors.New("literal references identifiers")

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				i = len(src)
			} else {
				i += end + 1
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, &SyntaxError{Pos: i, Msg: "unterminated comment"}
			}
			i += end + 4
		case strings.HasPrefix(src[i:], "..."):
			return nil, &SyntaxError{Pos: i, Msg: "spread syntax is not supported"}
		case strings.HasPrefix(src[i:], "=>"):
			return nil, &SyntaxError{Pos: i, Msg: "functions are not supported"}
		case strings.ContainsRune("{}[]():,;.=-+", rune(c)):
			if c == '.' && i+1 < len(src) && isDigit(src[i+1]) {
				tok, n, err := lexNumber(src, i)
				if err != nil {
					return nil, err
				}
				toks = append(toks, tok)
				i = n
				continue
			}
			toks = append(toks, token{kind: tokPunct, text: string(c), pos: i})
			i++
		case c == '"' || c == '\'' || c == '`':
			tok, n, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = n
		case isDigit(c):
			tok, n, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = n
		default:
			r, size := utf8.DecodeRuneInString(src[i:])
			if !isIdentStart(r) {
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
			}
			start := i
			i += size
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if !isIdentStart(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(r rune) bool { return r == '_' || r == '$' || unicode.IsLetter(r) }

func lexNumber(src string, start int) (token, int, error) {
	i := start
	if strings.HasPrefix(src[i:], "0x") || strings.HasPrefix(src[i:], "0X") {
		i += 2
		for i < len(src) && strings.IndexByte("0123456789abcdefABCDEF", src[i]) >= 0 {
			i++
		}
		v, err := strconv.ParseInt(src[start+2:i], 16, 64)
		if err != nil {
			return token{}, 0, &SyntaxError{Pos: start, Msg: "invalid hex number"}
		}
		return token{kind: tokNumber, text: src[start:i], num: float64(v), pos: start}, i, nil
	}
	for i < len(src) && (isDigit(src[i]) || src[i] == '.' || src[i] == '_') {
		i++
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		i++
		if i < len(src) && (src[i] == '+' || src[i] == '-') {
			i++
		}
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	text := src[start:i]
	v, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
	if err != nil {
		return token{}, 0, &SyntaxError{Pos: start, Msg: fmt.Sprintf("invalid number %q", text)}
	}
	return token{kind: tokNumber, text: text, num: v, pos: start}, i, nil
}

func lexString(src string, start int) (token, int, error) {
	quote := src[start]
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == quote:
			return token{kind: tokString, text: b.String(), pos: start}, i + 1, nil
		case c == '\n' && quote != '`':
			return token{}, 0, &SyntaxError{Pos: start, Msg: "unterminated string"}
		case quote == '`' && strings.HasPrefix(src[i:], "${"):
			return token{}, 0, &SyntaxError{Pos: i, Msg: "template substitutions are not supported"}
		case c == '\\' && i+1 < len(src):
			i++
			switch e := src[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'u':
				if i+4 >= len(src) {
					return token{}, 0, &SyntaxError{Pos: i, Msg: "invalid unicode escape"}
				}
				v, err := strconv.ParseUint(src[i+1:i+5], 16, 32)
				if err != nil {
					return token{}, 0, &SyntaxError{Pos: i, Msg: "invalid unicode escape"}
				}
				r := rune(v)
				i += 4
				// a high surrogate followed by \uDC00-\uDFFF encodes one astral rune
				if utf16.IsSurrogate(r) && i+6 < len(src) && src[i+1] == '\\' && src[i+2] == 'u' {
					if lo, err := strconv.ParseUint(src[i+3:i+7], 16, 32); err == nil {
						if pair := utf16.DecodeRune(r, rune(lo)); pair != utf8.RuneError {
							r = pair
							i += 6
						}
					}
				}
				b.WriteRune(r)
			case '\n':
				// line continuation
			default:
				b.WriteByte(e)
			}
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return token{}, 0, &SyntaxError{Pos: start, Msg: "unterminated string"}
}

// ref is an identifier reference left in a parsed value.
type ref struct {
	name string
}

// surfaceExpr is a member/call chain such as
// document.getElementById('chart-canvas').getContext('2d').
type surfaceExpr struct {
	path string
}

// newChartExpr is a parsed `new Chart(target, config)` expression.
type newChartExpr struct {
	args []any
	pos  int
}

type parser struct {
	toks []token
	i    int
	// refs allows identifier references and constructor calls, which only
	// the script interpreter can resolve.
	refs bool
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) expect(text string) error {
	t := p.next()
	if !t.is(tokPunct, text) {
		return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("expected %q, found %s", text, t)}
	}
	return nil
}

func (p *parser) value() (any, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return t.text, nil
	case tokNumber:
		return t.num, nil
	case tokPunct:
		switch t.text {
		case "{":
			return p.object()
		case "[":
			return p.array()
		case "-", "+":
			n := p.next()
			if n.kind != tokNumber {
				return nil, &SyntaxError{Pos: n.pos, Msg: fmt.Sprintf("expected number after %q", t.text)}
			}
			if t.text == "-" {
				return -n.num, nil
			}
			return n.num, nil
		}
	case tokIdent:
		switch t.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null", "undefined":
			return nil, nil
		case "NaN", "Infinity":
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("%s is not a finite value", t.text)}
		}
		if !p.refs {
			return nil, fmt.Errorf("%w: %s", errNotSelfContained, t.text)
		}
		if t.text == "new" {
			return p.newExpr(t)
		}
		return p.chain(t)
	}
	return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", t)}
}

func (p *parser) object() (any, error) {
	out := map[string]any{}
	for {
		t := p.next()
		if t.is(tokPunct, "}") {
			return out, nil
		}
		var key string
		switch t.kind {
		case tokIdent, tokString:
			key = t.text
		case tokNumber:
			key = strconv.FormatFloat(t.num, 'f', -1, 64)
		default:
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("expected property name, found %s", t)}
		}
		if n := p.peek(); t.kind == tokIdent && (n.is(tokPunct, ",") || n.is(tokPunct, "}")) {
			// shorthand property
			if !p.refs {
				return nil, fmt.Errorf("%w: %s", errNotSelfContained, key)
			}
			out[key] = ref{name: key}
		} else {
			if err := p.expect(":"); err != nil {
				return nil, err
			}
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		sep := p.next()
		if sep.is(tokPunct, "}") {
			return out, nil
		}
		if !sep.is(tokPunct, ",") {
			return nil, &SyntaxError{Pos: sep.pos, Msg: fmt.Sprintf("expected \",\" or \"}\", found %s", sep)}
		}
	}
}

func (p *parser) array() (any, error) {
	out := []any{}
	for {
		if p.peek().is(tokPunct, "]") {
			p.next()
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		sep := p.next()
		if sep.is(tokPunct, "]") {
			return out, nil
		}
		if !sep.is(tokPunct, ",") {
			return nil, &SyntaxError{Pos: sep.pos, Msg: fmt.Sprintf("expected \",\" or \"]\", found %s", sep)}
		}
	}
}

// chain parses an identifier optionally followed by member accesses and calls.
func (p *parser) chain(root token) (any, error) {
	path := root.text
	plain := true
	for {
		t := p.peek()
		switch {
		case t.is(tokPunct, "."):
			p.next()
			name := p.next()
			if name.kind != tokIdent {
				return nil, &SyntaxError{Pos: name.pos, Msg: fmt.Sprintf("expected property name, found %s", name)}
			}
			path += "." + name.text
			plain = false
		case t.is(tokPunct, "("):
			p.next()
			if _, err := p.args(); err != nil {
				return nil, err
			}
			path += "()"
			plain = false
		default:
			if plain {
				return ref{name: root.text}, nil
			}
			return surfaceExpr{path: path}, nil
		}
	}
}

func (p *parser) args() ([]any, error) {
	var out []any
	for {
		if p.peek().is(tokPunct, ")") {
			p.next()
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		sep := p.next()
		if sep.is(tokPunct, ")") {
			return out, nil
		}
		if !sep.is(tokPunct, ",") {
			return nil, &SyntaxError{Pos: sep.pos, Msg: fmt.Sprintf("expected \",\" or \")\", found %s", sep)}
		}
	}
}

func (p *parser) newExpr(kw token) (any, error) {
	name := p.next()
	if !name.is(tokIdent, "Chart") {
		return nil, &SyntaxError{Pos: name.pos, Msg: fmt.Sprintf("only new Chart(...) is supported, found new %s", name)}
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	args, err := p.args()
	if err != nil {
		return nil, err
	}
	return newChartExpr{args: args, pos: kw.pos}, nil
}

// ParseLiteral decodes a single self-contained object literal. Identifier
// references are rejected because nothing outside the literal is evaluated.
func ParseLiteral(src string) (map[string]any, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s after literal", t)}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("configuration must be an object literal, got %T", v)
	}
	return obj, nil
}
