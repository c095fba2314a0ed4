package template

import (
	"testing"

	"github.com/abdul-hamid-achik/hitchain/packages/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate_InsertsCapturedValues(t *testing.T) {
	fragment := map[string]any{
		"body": map[string]any{
			"testKey": "${response[0].testValue}",
		},
	}
	history := History{map[string]any{"testValue": "testValue"}}

	result, err := New().Interpolate(fragment, history)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"body": map[string]any{
			"testKey": "testValue",
		},
	}, result)
}

func TestInterpolate_PreservesStructure(t *testing.T) {
	fragment := map[string]any{
		"method":  "GET",
		"url":     "http://api.local/users/${response[0].id}",
		"json":    true,
		"retries": float64(2),
		"headers": map[string]any{},
		"body":    nil,
		"tags":    []any{"a", "${response[0].name}", []any{}},
	}
	history := History{map[string]any{"id": float64(42), "name": "alice"}}

	result, err := New().Interpolate(fragment, history)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"method":  "GET",
		"url":     "http://api.local/users/42",
		"json":    true,
		"retries": float64(2),
		"headers": map[string]any{},
		"body":    nil,
		"tags":    []any{"a", "alice", []any{}},
	}, result)
}

func TestInterpolate_WholeExpressionKeepsType(t *testing.T) {
	captured := map[string]any{
		"user": map[string]any{
			"id":    float64(7),
			"roles": []any{"admin", "dev"},
			"meta":  map[string]any{"active": true, "nested": []any{map[string]any{"k": "v"}}},
		},
	}
	history := History{"first body", captured}

	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{"whole body", "${response[1]}", captured},
		{"nested object", "${response[1].user.meta}", captured["user"].(map[string]any)["meta"]},
		{"array", "${ response[1].user.roles }", []any{"admin", "dev"}},
		{"number", "${response[1].user.id}", float64(7)},
		{"raw string body", "${response[0]}", "first body"},
		{"missing key", "${response[1].user.email}", nil},
		{"dot index", "${response.1.user.id}", float64(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New().Interpolate(tt.input, history)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestInterpolate_EmbeddedExpressions(t *testing.T) {
	history := History{
		map[string]any{"id": float64(7), "name": "Poland", "tags": []any{"eu"}, "ok": true},
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"/users/${response[0].id}/profile", "/users/7/profile"},
		{"${response[0].name}-${response[0].id}", "Poland-7"},
		{"tags=${response[0].tags}", `tags=["eu"]`},
		{"ok=${response[0].ok}", "ok=true"},
		{"missing=${response[0].nope}", "missing="},
		{" ${response[0].name}", " Poland"},
		{"no expressions here", "no expressions here"},
		{"price: $5 {not a template}", "price: $5 {not a template}"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := New().Interpolate(tt.input, history)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestInterpolate_EmptyLeavesPassThrough(t *testing.T) {
	for _, v := range []any{nil, "", []any{}, map[string]any{}, float64(0), false} {
		result, err := New().Interpolate(v, nil)
		require.NoError(t, err)
		assert.Equal(t, v, result)
	}
}

func TestInterpolate_Idempotent(t *testing.T) {
	history := History{map[string]any{"id": "abc", "n": float64(3)}}
	fragment := map[string]any{
		"url":  "http://x/${response[0].id}",
		"body": map[string]any{"n": "${response[0].n}", "list": []any{"${response[0].id}"}},
	}

	once, err := New().Interpolate(fragment, history)
	require.NoError(t, err)
	twice, err := New().Interpolate(once, history)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestInterpolate_MapOfStrings(t *testing.T) {
	history := History{map[string]any{"token": "t0k"}}

	result, err := New().Interpolate(map[string]string{"Authorization": "Bearer ${response[0].token}"}, history)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Authorization": "Bearer t0k"}, result)
}

func TestInterpolate_Errors(t *testing.T) {
	history := History{map[string]any{"id": float64(1)}}

	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"unterminated", "/users/${response[0].id", "unterminated expression"},
		{"empty", "${}", "empty expression"},
		{"unknown binding", "${request[0].id}", "unknown reference"},
		{"binding prefix only", "${responses[0]}", "unknown reference"},
		{"index out of range", "${response[3].id}", "no captured response at index 3"},
		{"non-numeric index", "${response['a']}", "indexed by position"},
		{"bad path", "${response[0]..id}", "empty segment"},
		{"unclosed bracket", "${response[0}", "unclosed bracket"},
		{"unknown function", "${nope()}", "unknown function"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Interpolate(map[string]any{"body": []any{tt.input}}, history)
			require.Error(t, err)

			var terr *Error
			require.ErrorAs(t, err, &terr)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestInterpolate_BuiltinFunctions(t *testing.T) {
	funcs := builtin.NewRegistry()
	funcs.Register("fixed", func(args []string) (any, error) { return "v-" + args[0], nil })
	in := NewWithRegistry(funcs)

	result, err := in.Interpolate(map[string]any{
		"id":    "${fixed(1)}",
		"label": "item ${fixed('a}b')} done",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "v-1", "label": "item v-a}b done"}, result)
}

func TestInterpolator_String(t *testing.T) {
	history := History{map[string]any{"user": map[string]any{"id": float64(9)}}}

	s, err := New().String("${response[0].user}", history)
	require.NoError(t, err)
	assert.Equal(t, `{"id":9}`, s, "whole-leaf expressions still render as text")

	s, err = New().String("", history)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestHistory_Get(t *testing.T) {
	h := History{"a", nil}
	assert.Equal(t, 2, h.Len())

	v, ok := h.Get(0)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = h.Get(2)
	assert.False(t, ok)
	_, ok = h.Get(-1)
	assert.False(t, ok)
}
