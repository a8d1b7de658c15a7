package storage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a lookup matches no rows.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyAssociated is returned when a tree/insect pair is already linked.
	ErrAlreadyAssociated = errors.New("association already exists")
)

// StoreError wraps a driver failure with the validation messages it carried.
type StoreError struct {
	Op       string
	Messages []string
	Err      error
}

func (e *StoreError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, strings.Join(e.Messages, ", "))
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Details flattens an error into the human readable string reported to
// clients: the store's validation messages joined with ", " when present,
// otherwise the error text.
func Details(err error) string {
	if err == nil {
		return ""
	}
	var se *StoreError
	if errors.As(err, &se) && len(se.Messages) > 0 {
		return strings.Join(se.Messages, ", ")
	}
	return err.Error()
}
