package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/grove/pkg/storage"
)

func TestAPIError_StatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected int
	}{
		{name: "not found", err: NotFound("m", "d"), expected: http.StatusNotFound},
		{name: "missing", err: Missing("m", "d"), expected: http.StatusBadRequest},
		{name: "invalid", err: Invalid("m", "d"), expected: http.StatusBadRequest},
		{name: "conflict", err: Conflict("m", "d"), expected: http.StatusConflict},
		{name: "failure", err: Failure("m", errors.New("boom")), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.StatusCode())
		})
	}
}

func TestAPIError_MarshalJSON(t *testing.T) {
	t.Run("status field", func(t *testing.T) {
		out, err := json.Marshal(NotFound("Could not find tree 3", "Tree not found"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"not-found","message":"Could not find tree 3","details":"Tree not found"}`, string(out))
	})

	t.Run("error field", func(t *testing.T) {
		out, err := json.Marshal(Missing("Could not find insect", "Insect missing in request"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"error":"missing part of request","message":"Could not find insect","details":"Insect missing in request"}`, string(out))
	})

	t.Run("WithField copies", func(t *testing.T) {
		original := NotFound("m", "d")
		moved := original.WithField(FieldError)
		assert.Equal(t, FieldStatus, original.Field)
		assert.Equal(t, FieldError, moved.Field)
	})
}

func TestFailure_JoinsStoreMessages(t *testing.T) {
	cause := errors.New("constraint")
	err := Failure("Could not create new tree", &storage.StoreError{
		Op:       "create tree",
		Messages: []string{"tree cannot be null", "location cannot be null"},
		Err:      cause,
	})

	assert.Equal(t, "tree cannot be null, location cannot be null", err.Details)
	assert.Equal(t, "Could not create new tree: tree cannot be null, location cannot be null", err.Error())
	assert.ErrorIs(t, err, cause)

	var se *storage.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "create tree", se.Op)
}

func TestErrorResponder_Respond(t *testing.T) {
	logger, hook := test.NewNullLogger()
	responder := NewErrorResponder(logger)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/trees", nil)
	responder.Respond(w, r, Failure("Could not find trees", errors.New("disk I/O error")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Could not find trees","details":"disk I/O error"}`, w.Body.String())
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "Could not find trees", hook.LastEntry().Message)
}
