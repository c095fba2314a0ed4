package http

import (
	"fmt"
	"strings"
)

type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// JSON serializes Body as JSON and parses the response body as JSON.
	JSON    bool
	Body    any
}

// encodeBody returns nil when the request has no body. With JSON enabled
// every body is JSON-encoded; otherwise strings and byte slices are sent
// verbatim and anything else is JSON-encoded.
func (r *Request) encodeBody() ([]byte, error) {
	if isEmptyBody(r.Body) {
		return nil, nil
	}
	if !r.JSON {
		switch b := r.Body.(type) {
		case string:
			return []byte(b), nil
		case []byte:
			return b, nil
		}
	}
	return marshalJSON(r.Body)
}

// isEmptyBody treats nil, "" and {} as no body, so a "body: {}" placeholder
// in a GET step does not produce a payload.
func isEmptyBody(body any) bool {
	switch b := body.(type) {
	case nil:
		return true
	case string:
		return b == ""
	case []byte:
		return len(b) == 0
	case map[string]any:
		return len(b) == 0
	}
	return false
}

// FormatHeaders converts generic header values to strings. Slices are joined
// with ", " and other values use their default formatting.
func FormatHeaders(headers map[string]any) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		case []any:
			parts := make([]string, len(val))
			for i, p := range val {
				parts[i] = fmt.Sprintf("%v", p)
			}
			out[k] = strings.Join(parts, ", ")
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}
