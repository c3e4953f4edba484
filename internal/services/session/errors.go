package session

import (
	"errors"
	"fmt"

	"vaspwire/internal/domain"
)

var (
	// ErrSessionExists is returned when a session id is already live.
	ErrSessionExists = errors.New("session id already in use")
	// ErrSessionClosed is returned when sending on a removed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrWrongSession marks a message whose session id does not match the topic it arrived on.
	ErrWrongSession = errors.New("message belongs to another session")
	// ErrWrongPeer marks a message signed by a VASP other than the session peer.
	ErrWrongPeer = errors.New("message sender is not the session peer")
	// ErrUnexpectedMessage marks a message type that cannot open a session.
	ErrUnexpectedMessage = errors.New("unexpected message type")
)

// SequenceError reports a message that is not valid at the session's
// current stage.
type SequenceError struct {
	SessionID string
	Role      domain.Role
	Last      domain.MessageType
	Got       domain.MessageType
	Outgoing  bool
}

func (e *SequenceError) Error() string {
	dir := "received"
	if e.Outgoing {
		dir = "sent"
	}
	last := "start"
	if e.Last != "" {
		last = e.Last.Name()
	}
	return fmt.Sprintf("session %s (%s): %s %s after %s", e.SessionID, e.Role, e.Got.Name(), dir, last)
}

// allowed reports whether next may follow last for a session of the given
// role. Even positions in the sequence travel from originator to
// beneficiary, odd ones back.
func allowed(role domain.Role, last, next domain.MessageType, outgoing bool) bool {
	if last == domain.TypeTermination {
		return false
	}
	if next == domain.TypeTermination {
		return true
	}
	want := last.Index() + 1
	if next.Index() != want {
		return false
	}
	fromOriginator := want%2 == 0
	if role == domain.RoleOriginator {
		return fromOriginator == outgoing
	}
	return fromOriginator != outgoing
}
