package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDeclined is returned when the operator refuses a confirmation.
var ErrDeclined = errors.New("action declined")

// BusinessError is an in-band {success:false} answer from the server.
type BusinessError struct {
	Action  ActionKind
	Index   int
	Message string
}

func (e *BusinessError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "server reported failure"
	}
	if e.Action == ActionAdd {
		return fmt.Sprintf("add device: %s", msg)
	}
	return fmt.Sprintf("%s device %d: %s", e.Action, e.Index, msg)
}

// ValidationError is a local precondition failure on one field.
type ValidationError struct {
	Field   string
	Tag     string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationErrors collects every failed field of one request.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return strings.Join(msgs, "; ")
}
