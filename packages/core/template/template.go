package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitchain/packages/builtin"
	"github.com/abdul-hamid-achik/hitchain/packages/capture"
)

// ResponseBinding is the name under which the history is visible to
// expressions.
const ResponseBinding = "response"

// History holds the bodies captured by previous request steps, one slot per
// request step in declaration order.
type History []any

func (h History) Len() int { return len(h) }

// Get returns the body captured in slot i.
func (h History) Get(i int) (any, bool) {
	if i < 0 || i >= len(h) {
		return nil, false
	}
	return h[i], true
}

// Error is a malformed or unresolvable template expression. It is a
// configuration defect, so the runner never retries it.
type Error struct {
	Template string
	Expr     string
	Err      error
}

func (e *Error) Error() string {
	if e.Expr == "" {
		return fmt.Sprintf("template %q: %v", e.Template, e.Err)
	}
	return fmt.Sprintf("template %q: expression %q: %v", e.Template, e.Expr, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Interpolator struct {
	funcs *builtin.Registry
}

func New() *Interpolator {
	return &Interpolator{funcs: builtin.NewRegistry()}
}

// NewWithRegistry uses a caller-supplied function registry.
func NewWithRegistry(funcs *builtin.Registry) *Interpolator {
	return &Interpolator{funcs: funcs}
}

// Interpolate returns a copy of fragment with every expression resolved.
// Maps keep their keys and slices their length; empty values and non-string
// scalars pass through unchanged.
func (in *Interpolator) Interpolate(fragment any, history History) (any, error) {
	switch v := fragment.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return v, nil
		}
		return in.Value(v, history)
	case []any:
		if len(v) == 0 {
			return v, nil
		}
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := in.Interpolate(item, history)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]any:
		if len(v) == 0 {
			return v, nil
		}
		out := make(map[string]any, len(v))
		for k, item := range v {
			resolved, err := in.Interpolate(item, history)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case map[string]string:
		if len(v) == 0 {
			return v, nil
		}
		out := make(map[string]string, len(v))
		for k, item := range v {
			resolved, err := in.String(item, history)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	default:
		return fragment, nil
	}
}

// Value resolves a single template string. When s consists of exactly one
// expression the referenced value is returned as is; otherwise the result
// is the rendered string.
func (in *Interpolator) Value(s string, history History) (any, error) {
	parts, err := parse(s)
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 && parts[0].expr {
		return in.eval(s, parts[0].text, history)
	}
	return in.render(s, parts, history)
}

// String resolves s and always renders the result as a string.
func (in *Interpolator) String(s string, history History) (string, error) {
	if s == "" {
		return s, nil
	}
	parts, err := parse(s)
	if err != nil {
		return "", err
	}
	return in.render(s, parts, history)
}

func (in *Interpolator) render(s string, parts []part, history History) (string, error) {
	var b strings.Builder
	for _, p := range parts {
		if !p.expr {
			b.WriteString(p.text)
			continue
		}
		v, err := in.eval(s, p.text, history)
		if err != nil {
			return "", err
		}
		b.WriteString(capture.Stringify(v))
	}
	return b.String(), nil
}

func (in *Interpolator) eval(tmpl, expr string, history History) (any, error) {
	if expr == "" {
		return nil, &Error{Template: tmpl, Err: fmt.Errorf("empty expression")}
	}

	if builtin.IsCall(expr) {
		v, err := in.funcs.Call(expr)
		if err != nil {
			return nil, &Error{Template: tmpl, Expr: expr, Err: err}
		}
		return v, nil
	}

	rest, ok := strings.CutPrefix(expr, ResponseBinding)
	if !ok || (rest != "" && rest[0] != '[' && rest[0] != '.') {
		return nil, &Error{Template: tmpl, Expr: expr, Err: fmt.Errorf("unknown reference, expressions must start with %q or call a function", ResponseBinding)}
	}
	if rest == "" {
		return []any(history), nil
	}

	segments, err := capture.ParsePath(strings.TrimPrefix(rest, "."))
	if err != nil {
		return nil, &Error{Template: tmpl, Expr: expr, Err: err}
	}
	if len(segments) == 0 {
		return nil, &Error{Template: tmpl, Expr: expr, Err: fmt.Errorf("missing index after %q", ResponseBinding)}
	}

	idx, err := strconv.Atoi(segments[0])
	if err != nil {
		return nil, &Error{Template: tmpl, Expr: expr, Err: fmt.Errorf("%s must be indexed by position, got %q", ResponseBinding, segments[0])}
	}
	body, ok := history.Get(idx)
	if !ok {
		return nil, &Error{Template: tmpl, Expr: expr, Err: fmt.Errorf("no captured response at index %d (%d captured)", idx, history.Len())}
	}

	v, found := capture.Resolve(body, segments[1:])
	if !found {
		return nil, nil
	}
	return v, nil
}

type part struct {
	text string
	expr bool
}

// parse splits s into literal text and ${...} expressions. Quotes inside an
// expression may contain '}'.
func parse(tmpl string) ([]part, error) {
	var parts []part
	s := tmpl
	offset := 0
	for {
		start := strings.Index(s, "${")
		if start == -1 {
			if s != "" {
				parts = append(parts, part{text: s})
			}
			return parts, nil
		}
		if start > 0 {
			parts = append(parts, part{text: s[:start]})
		}

		end := closingBrace(s, start+2)
		if end == -1 {
			return nil, &Error{Template: tmpl, Err: fmt.Errorf("unterminated expression at offset %d", offset+start)}
		}
		parts = append(parts, part{text: strings.TrimSpace(s[start+2 : end]), expr: true})
		offset += end + 1
		s = s[end+1:]
	}
}

func closingBrace(s string, from int) int {
	var quote byte
	for i := from; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '}':
			return i
		}
	}
	return -1
}
