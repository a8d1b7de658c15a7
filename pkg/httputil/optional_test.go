package httputil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type updateBody struct {
	Name   Optional[string]  `json:"name"`
	Height Optional[float64] `json:"height"`
}

func TestOptional_Unmarshal(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectSet     bool
		expectNull    bool
		expectPresent bool
		expectValue   string
	}{
		{name: "absent", input: `{}`},
		{name: "null", input: `{"name": null}`, expectSet: true, expectNull: true},
		{name: "empty string", input: `{"name": ""}`, expectSet: true, expectPresent: true},
		{name: "value", input: `{"name": "Lincoln"}`, expectSet: true, expectPresent: true, expectValue: "Lincoln"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body updateBody
			require.NoError(t, json.Unmarshal([]byte(tt.input), &body))

			assert.Equal(t, tt.expectSet, body.Name.Set)
			assert.Equal(t, tt.expectNull, body.Name.Null)
			assert.Equal(t, tt.expectPresent, body.Name.Present())
			assert.Equal(t, tt.expectValue, body.Name.Value)
		})
	}
}

func TestOptional_TypeMismatch(t *testing.T) {
	var body updateBody
	err := json.Unmarshal([]byte(`{"height": "tall"}`), &body)
	assert.Error(t, err)
}

func TestOptional_Marshal(t *testing.T) {
	out, err := json.Marshal(updateBody{Name: Some("Stagg")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Stagg","height":null}`, string(out))
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name     string
		field    Optional[float64]
		current  float64
		expected float64
	}{
		{name: "absent keeps current", field: Optional[float64]{}, current: 243, expected: 243},
		{name: "null keeps current", field: Optional[float64]{Set: true, Null: true}, current: 243, expected: 243},
		{name: "zero keeps current", field: Some(0.0), current: 243, expected: 243},
		{name: "value replaces", field: Some(250.5), current: 243, expected: 250.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Coalesce(tt.field, tt.current))
		})
	}

	assert.Equal(t, "old", Coalesce(Some(""), "old"))
	assert.False(t, Truthy(Some(int64(0))))
	assert.True(t, Truthy(Some(int64(7))))
}
