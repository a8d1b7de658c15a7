package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/grove/pkg/httputil"
	"github.com/platinummonkey/grove/pkg/observability"
	"github.com/platinummonkey/grove/pkg/storage"
)

// Kind classifies an error descriptor.
type Kind string

const (
	KindNotFound Kind = "not-found"
	KindError    Kind = "error"
	KindMissing  Kind = "missing part of request"
)

// KindField names the JSON key that carries the kind. Routes differ in which
// key they use and clients match on it.
type KindField string

const (
	FieldStatus KindField = "status"
	FieldError  KindField = "error"
)

// APIError is the descriptor handed to ErrorResponder.
type APIError struct {
	Kind    Kind
	Field   KindField
	Message string
	Details string

	// Code overrides the status derived from Kind.
	Code int
	// Err is the underlying cause, logged but never serialized.
	Err error
}

func (e *APIError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusCode maps the descriptor to an HTTP status.
func (e *APIError) StatusCode() int {
	if e.Code != 0 {
		return e.Code
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindMissing:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WithField returns a copy that serializes its kind under field.
func (e *APIError) WithField(field KindField) *APIError {
	c := *e
	c.Field = field
	return &c
}

func (e *APIError) MarshalJSON() ([]byte, error) {
	if e.Field == FieldError {
		return json.Marshal(struct {
			Error   Kind   `json:"error"`
			Message string `json:"message"`
			Details string `json:"details"`
		}{e.Kind, e.Message, e.Details})
	}
	return json.Marshal(struct {
		Status  Kind   `json:"status"`
		Message string `json:"message"`
		Details string `json:"details"`
	}{e.Kind, e.Message, e.Details})
}

// NotFound reports a lookup or search that matched nothing.
func NotFound(message, details string) *APIError {
	return &APIError{Kind: KindNotFound, Field: FieldStatus, Message: message, Details: details}
}

// Missing reports a required part of the request body that was not sent.
func Missing(message, details string) *APIError {
	return &APIError{Kind: KindMissing, Field: FieldError, Message: message, Details: details}
}

// Invalid reports a request the handler refuses to act on.
func Invalid(message, details string) *APIError {
	return &APIError{Kind: KindError, Field: FieldStatus, Message: message, Details: details, Code: http.StatusBadRequest}
}

// Conflict reports a write that would duplicate existing state.
func Conflict(message, details string) *APIError {
	return &APIError{Kind: KindError, Field: FieldStatus, Message: message, Details: details, Code: http.StatusConflict}
}

// Failure wraps a store error. Details carries the store's validation
// messages.
func Failure(message string, err error) *APIError {
	return &APIError{Kind: KindError, Field: FieldStatus, Message: message, Details: storage.Details(err), Err: err}
}

// ErrorResponder is the single place descriptors become HTTP responses.
type ErrorResponder struct {
	logger *logrus.Logger
}

// NewErrorResponder creates a responder that logs through logger.
func NewErrorResponder(logger *logrus.Logger) *ErrorResponder {
	return &ErrorResponder{logger: logger}
}

// Respond logs e and writes it with the mapped status code.
func (er *ErrorResponder) Respond(w http.ResponseWriter, r *http.Request, e *APIError) {
	status := e.StatusCode()

	fields := logrus.Fields{
		"kind":    e.Kind,
		"status":  status,
		"method":  r.Method,
		"details": e.Details,
	}
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			fields["route"] = tmpl
		}
	}
	if id := observability.GetRequestID(r.Context()); id != "" {
		fields["request_id"] = id
	}
	entry := er.logger.WithFields(fields)
	if e.Err != nil {
		entry = entry.WithError(e.Err)
	}
	if status >= http.StatusInternalServerError {
		entry.Error(e.Message)
	} else {
		entry.Debug(e.Message)
	}

	if err := httputil.WriteJSON(w, status, e); err != nil {
		er.logger.WithError(err).Warn("failed to write error response")
	}
}
