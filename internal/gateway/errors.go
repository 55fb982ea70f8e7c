package gateway

import (
	"errors"
	"fmt"
)

// CollaboratorError reports a tool call that failed inside a collaborator,
// either because the envelope came back with Success false or because the
// transport broke.
type CollaboratorError struct {
	Collaborator string
	Tool         string
	Msg          string
	Err          error
}

func (e *CollaboratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Collaborator, e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Collaborator, e.Tool, e.Msg)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// IsCollaboratorError reports whether err is a CollaboratorError.
func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}

// TimeoutError reports a tool call that did not answer within the client's
// deadline.
type TimeoutError struct {
	Collaborator string
	Tool         string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s: tool call timed out", e.Collaborator, e.Tool)
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
