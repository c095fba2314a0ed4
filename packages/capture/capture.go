package capture

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ParsePath splits a dot/bracket path into its segments.
//
//	"[0].name"            -> ["0", "name"]
//	"items[1]['a.b']"     -> ["items", "1", "a.b"]
func ParsePath(path string) ([]string, error) {
	var segments []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		ch := path[i]
		switch ch {
		case '.':
			if current.Len() == 0 && (i == 0 || path[i-1] != ']') {
				return nil, fmt.Errorf("empty segment at offset %d in path %q", i, path)
			}
			flush()
		case '[':
			flush()
			end := closingBracket(path, i)
			if end == -1 {
				return nil, fmt.Errorf("unclosed bracket in path %q", path)
			}
			inner := strings.TrimSpace(path[i+1 : end])
			segment, err := bracketSegment(inner)
			if err != nil {
				return nil, fmt.Errorf("%w in path %q", err, path)
			}
			segments = append(segments, segment)
			i = end
		case ']':
			return nil, fmt.Errorf("unexpected ']' at offset %d in path %q", i, path)
		default:
			current.WriteByte(ch)
		}
	}

	if strings.HasSuffix(path, ".") {
		return nil, fmt.Errorf("path %q ends with '.'", path)
	}
	flush()
	return segments, nil
}

// closingBracket returns the index of the ']' closing the bracket opened at
// open, skipping over a quoted key, or -1.
func closingBracket(path string, open int) int {
	j := open + 1
	for j < len(path) && path[j] == ' ' {
		j++
	}
	if j < len(path) && (path[j] == '\'' || path[j] == '"') {
		closeQuote := strings.IndexByte(path[j+1:], path[j])
		if closeQuote == -1 {
			return -1
		}
		j += closeQuote + 2
	}
	end := strings.IndexByte(path[j:], ']')
	if end == -1 {
		return -1
	}
	return j + end
}

func bracketSegment(inner string) (string, error) {
	if len(inner) >= 2 {
		q := inner[0]
		if (q == '\'' || q == '"') && inner[len(inner)-1] == q {
			return inner[1 : len(inner)-1], nil
		}
	}
	if _, err := strconv.Atoi(inner); err != nil {
		return "", fmt.Errorf("invalid index %q", inner)
	}
	return inner, nil
}

// GJSONPath converts path segments to a gjson path, escaping the characters
// gjson treats as operators.
func GJSONPath(segments []string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		var b strings.Builder
		for j := 0; j < len(s); j++ {
			switch s[j] {
			case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
				b.WriteByte('\\')
			}
			b.WriteByte(s[j])
		}
		escaped[i] = b.String()
	}
	return strings.Join(escaped, ".")
}

// LookupString resolves path inside body and returns the string form of the
// value: strings verbatim, other JSON values in their compact JSON form, and
// "" when the path does not resolve.
func LookupString(body any, path string) (string, bool) {
	res, err := lookup(body, path)
	if err != nil || !res.Exists() {
		return "", false
	}
	if res.Type == gjson.String {
		return res.Str, true
	}
	return res.Raw, true
}

// Resolve looks up already parsed path segments inside body.
func Resolve(body any, segments []string) (any, bool) {
	if len(segments) == 0 {
		return body, true
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(data, GJSONPath(segments))
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

func lookup(body any, path string) (gjson.Result, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return gjson.Result{}, err
	}
	if len(segments) == 0 {
		return gjson.Result{}, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(data, GJSONPath(segments)), nil
}

// Stringify renders a captured value the way assertions and templates see
// it: nil as "", strings verbatim, anything else as compact JSON.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
