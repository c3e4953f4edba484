package types

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload is returned for payloads that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnknownMessageType is returned when the header type tag is missing or unknown.
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrMissingSender is returned when a message carries no sender identity.
	ErrMissingSender = errors.New("message has no sender identity")
	// ErrUnknownVasp is returned when a VASP cannot be resolved.
	ErrUnknownVasp = errors.New("unknown vasp")
	// ErrSignatureMismatch is returned when a signature does not match the sender.
	ErrSignatureMismatch = errors.New("signature mismatch")
	// ErrMissingField is returned when a required message field is absent.
	ErrMissingField = errors.New("missing required field")
)

// ValidationError reports an incoming message that failed validation. Msg is
// nil when the payload could not be parsed at all.
type ValidationError struct {
	Msg Message
	Err error
}

func (e *ValidationError) Error() string {
	if e.Msg == nil {
		return fmt.Sprintf("invalid message: %v", e.Err)
	}
	h := e.Msg.Base().Header
	return fmt.Sprintf("invalid %s %s (session %s): %v", h.Type.Name(), h.MessageID, h.SessionID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError wraps err with the offending message.
func NewValidationError(msg Message, err error) *ValidationError {
	return &ValidationError{Msg: msg, Err: err}
}
