package httputil

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectError error
		expectAny   bool
	}{
		{
			name: "valid JSON",
			body: `{"name": "test"}`,
		},
		{
			name:      "invalid JSON",
			body:      `{invalid}`,
			expectAny: true,
		},
		{
			name:        "empty body",
			body:        ``,
			expectError: ErrEmptyBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(tt.body))
			var dest map[string]string

			err := ParseJSON(req, &dest)

			switch {
			case tt.expectError != nil:
				assert.ErrorIs(t, err, tt.expectError)
			case tt.expectAny:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
				assert.Equal(t, "test", dest["name"])
			}
		})
	}
}

func TestParseJSONComplexStruct(t *testing.T) {
	type treeBody struct {
		ID       Optional[int64]   `json:"id"`
		Name     Optional[string]  `json:"name"`
		Height   Optional[float64] `json:"height"`
		Location Optional[string]  `json:"location"`
	}

	req := httptest.NewRequest("PUT", "/trees/1", bytes.NewBufferString(`{"id": 1, "name": "Stagg", "height": null}`))
	var body treeBody

	require.NoError(t, ParseJSON(req, &body))
	assert.Equal(t, Some(int64(1)), body.ID)
	assert.True(t, body.Name.Present())
	assert.True(t, body.Height.Set)
	assert.True(t, body.Height.Null)
	assert.False(t, body.Location.Set)
}

func TestParsePathInt64(t *testing.T) {
	tests := []struct {
		name        string
		vars        map[string]string
		expected    int64
		expectError bool
	}{
		{name: "valid", vars: map[string]string{"id": "9223372036854775807"}, expected: 9223372036854775807},
		{name: "missing", vars: map[string]string{}, expectError: true},
		{name: "not a number", vars: map[string]string{"id": "abc"}, expectError: true},
		{name: "negative", vars: map[string]string{"id": "-4"}, expected: -4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mux.SetURLVars(httptest.NewRequest("GET", "/trees/x", nil), tt.vars)

			val, err := ParsePathInt64(req, "id")

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, val)
		})
	}
}

func TestParsePathString(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest("GET", "/trees/search/Gen", nil), map[string]string{"value": "Gen"})

	val, err := ParsePathString(req, "value")
	assert.NoError(t, err)
	assert.Equal(t, "Gen", val)

	_, err = ParsePathString(req, "missing")
	assert.Error(t, err)
}
