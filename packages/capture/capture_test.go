package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		path     string
		expected []string
		wantErr  bool
	}{
		{path: "[0].name", expected: []string{"0", "name"}},
		{path: "result.name", expected: []string{"result", "name"}},
		{path: "items[1].tags[0]", expected: []string{"items", "1", "tags", "0"}},
		{path: "data['a.b']", expected: []string{"data", "a.b"}},
		{path: `data["x y"].z`, expected: []string{"data", "x y", "z"}},
		{path: "['a]b']", expected: []string{"a]b"}},
		{path: `data["x]y"].z`, expected: []string{"data", "x]y", "z"}},
		{path: "[ 'k' ]", expected: []string{"k"}},
		{path: "['a]", wantErr: true},
		{path: "['a'", wantErr: true},
		{path: "", expected: nil},
		{path: "items[", wantErr: true},
		{path: "items[abc]", wantErr: true},
		{path: "a..b", wantErr: true},
		{path: ".a", wantErr: true},
		{path: "a.", wantErr: true},
		{path: "a]b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			segments, err := ParsePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, segments)
		})
	}
}

func TestGJSONPath_Escapes(t *testing.T) {
	assert.Equal(t, `data.a\.b.0`, GJSONPath([]string{"data", "a.b", "0"}))
	assert.Equal(t, `q\?.\*`, GJSONPath([]string{"q?", "*"}))
}

func TestLookupString_Paths(t *testing.T) {
	body := []any{
		map[string]any{
			"name":    "Poland",
			"borders": []any{"DEU", "CZE"},
			"meta":    map[string]any{"a.b": true, "a]b": "bracket"},
		},
	}

	tests := []struct {
		path     string
		expected string
		found    bool
	}{
		{"[0].name", "Poland", true},
		{"[0].borders[1]", "CZE", true},
		{"[0].meta['a.b']", "true", true},
		{"[0].meta['a]b']", "bracket", true},
		{"[3].name", "", false},
		{"[0].capital.name", "", false},
		{"[0", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s, found := LookupString(body, tt.path)
			assert.Equal(t, tt.expected, s)
			assert.Equal(t, tt.found, found)
		})
	}
}

func TestLookupString(t *testing.T) {
	body := map[string]any{
		"result": map[string]any{"name": "Poland", "id": float64(7), "ok": false, "tags": []any{"a"}},
		"nothing": nil,
	}

	tests := []struct {
		path     string
		expected string
		found    bool
	}{
		{"result.name", "Poland", true},
		{"result.id", "7", true},
		{"result.ok", "false", true},
		{"result.tags", `["a"]`, true},
		{"nothing", "null", true},
		{"result.missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s, found := LookupString(body, tt.path)
			assert.Equal(t, tt.expected, s)
			assert.Equal(t, tt.found, found)
		})
	}
}

func TestResolve(t *testing.T) {
	body := map[string]any{"user": map[string]any{"id": float64(1)}}

	v, ok := Resolve(body, nil)
	assert.True(t, ok)
	assert.Equal(t, body, v, "no segments returns the whole body")

	v, ok = Resolve(body, []string{"user"})
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"id": float64(1)}, v)

	_, ok = Resolve("plain text", []string{"user"})
	assert.False(t, ok)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "abc", Stringify("abc"))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, "38", Stringify(float64(38)))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, `{"a":1}`, Stringify(map[string]any{"a": 1}))
	assert.Equal(t, "12", Stringify(12))
}
