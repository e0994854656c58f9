package chart

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// SlotName is the variable the fallback path assigns the constructed chart to.
const SlotName = "activeChart"

var (
	ctxDecl   = regexp.MustCompile(`(?:const|let|var)\s+ctx\s*=[^;\n]+;?`)
	chartDecl = regexp.MustCompile(`(?:const|let|var)\s+chart\s*=\s*new\s+Chart`)
)

// RewriteScript applies the two textual rewrites used before interpreting a
// script: the drawing context declaration is dropped because the scope
// supplies ctx, and the chart declaration becomes an assignment to the slot.
func RewriteScript(code string) string {
	code = ctxDecl.ReplaceAllString(code, "")
	return chartDecl.ReplaceAllString(code, SlotName+" = new Chart")
}

// surfaceRef stands for the drawing surface inside an interpreted script.
type surfaceRef struct{}

// construction is the result of evaluating one `new Chart(...)` expression.
type construction struct {
	config map[string]any
	pos    int
}

type interp struct {
	p      *parser
	scope  map[string]any
	built  []*construction
	slot   any
	result any
}

// interpretScript runs a rewritten script and returns the configuration of
// the single chart it constructs. Only declarations, assignments, return and
// bare `new Chart(...)` statements are accepted.
func interpretScript(code string) (map[string]any, error) {
	toks, err := lex(code)
	if err != nil {
		return nil, err
	}
	in := &interp{
		p:     &parser{toks: toks, refs: true},
		scope: map[string]any{"ctx": surfaceRef{}},
	}
	for in.p.peek().kind != tokEOF {
		done, err := in.statement()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	switch len(in.built) {
	case 0:
		return nil, errors.New("script does not construct a chart")
	case 1:
	default:
		return nil, fmt.Errorf("script constructs %d charts, expected one", len(in.built))
	}
	for _, v := range []any{in.slot, in.result} {
		if c, ok := v.(*construction); ok {
			return c.config, nil
		}
	}
	return in.built[0].config, nil
}

func (in *interp) statement() (bool, error) {
	p := in.p
	t := p.next()
	if t.is(tokPunct, ";") {
		return false, nil
	}
	if t.kind != tokIdent {
		return false, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s at start of statement", t)}
	}
	switch t.text {
	case "const", "let", "var":
		name := p.next()
		if name.kind != tokIdent {
			return false, &SyntaxError{Pos: name.pos, Msg: fmt.Sprintf("expected variable name, found %s", name)}
		}
		if err := p.expect("="); err != nil {
			return false, err
		}
		v, err := in.expr()
		if err != nil {
			return false, err
		}
		in.assign(name.text, v)
		return false, in.end()
	case "return":
		if p.peek().kind == tokEOF || p.peek().is(tokPunct, ";") {
			return true, in.end()
		}
		v, err := in.expr()
		if err != nil {
			return false, err
		}
		in.result = v
		return true, in.end()
	case "new":
		v, err := p.newExpr(t)
		if err != nil {
			return false, err
		}
		if _, err := in.eval(v); err != nil {
			return false, err
		}
		return false, in.end()
	}

	name := t.text
	if name == "window" && p.peek().is(tokPunct, ".") {
		p.next()
		prop := p.next()
		if prop.kind != tokIdent {
			return false, &SyntaxError{Pos: prop.pos, Msg: fmt.Sprintf("expected property name, found %s", prop)}
		}
		name = prop.text
	}
	if !p.peek().is(tokPunct, "=") {
		return false, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unsupported statement starting with %q", t.text)}
	}
	p.next()
	v, err := in.expr()
	if err != nil {
		return false, err
	}
	in.assign(name, v)
	return false, in.end()
}

func (in *interp) end() error {
	if in.p.peek().is(tokPunct, ";") {
		in.p.next()
	}
	return nil
}

func (in *interp) assign(name string, v any) {
	if name == SlotName {
		in.slot = v
	}
	in.scope[name] = v
}

func (in *interp) expr() (any, error) {
	v, err := in.p.value()
	if err != nil {
		return nil, err
	}
	return in.eval(v)
}

// eval resolves references and surface expressions and performs constructions.
func (in *interp) eval(v any) (any, error) {
	switch x := v.(type) {
	case ref:
		val, ok := in.scope[x.name]
		if !ok {
			return nil, fmt.Errorf("%s is not defined", x.name)
		}
		return val, nil
	case surfaceExpr:
		if name, ok := strings.CutPrefix(x.path, "window."); ok && !strings.ContainsAny(name, ".(") {
			return in.eval(ref{name: name})
		}
		root := x.path
		if i := strings.IndexAny(root, ".("); i >= 0 {
			root = root[:i]
		}
		if root == "document" {
			return surfaceRef{}, nil
		}
		if _, ok := in.scope[root].(surfaceRef); ok {
			return surfaceRef{}, nil
		}
		return nil, fmt.Errorf("unsupported expression %s", x.path)
	case newChartExpr:
		return in.construct(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			r, err := in.eval(e)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			r, err := in.eval(e)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return v, nil
}

func (in *interp) construct(x newChartExpr) (*construction, error) {
	if len(x.args) != 2 {
		return nil, fmt.Errorf("new Chart expects 2 arguments, got %d", len(x.args))
	}
	target, err := in.eval(x.args[0])
	if err != nil {
		return nil, err
	}
	switch target.(type) {
	case surfaceRef, string:
	default:
		return nil, fmt.Errorf("new Chart target must be the drawing surface, got %T", target)
	}
	cfg, err := in.eval(x.args[1])
	if err != nil {
		return nil, err
	}
	obj, ok := cfg.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("new Chart configuration must be an object, got %T", cfg)
	}
	if err := plainValue(obj); err != nil {
		return nil, err
	}
	c := &construction{config: obj, pos: x.pos}
	in.built = append(in.built, c)
	return c, nil
}

// plainValue rejects configurations that still hold surfaces or charts.
func plainValue(v any) error {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			if err := plainValue(e); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
	case []any:
		for _, e := range x {
			if err := plainValue(e); err != nil {
				return err
			}
		}
	case surfaceRef, *construction:
		return fmt.Errorf("configuration cannot contain %T", v)
	}
	return nil
}
