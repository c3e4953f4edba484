package message

import (
	"encoding/json"
	"fmt"

	"vaspwire/internal/domain"
	"vaspwire/internal/domain/types"
)

// Marshal returns the canonical bytes of m.
func Marshal(m domain.Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("marshal: nil message")
	}
	if got, want := m.Base().Header.Type, m.MessageType(); got != want {
		return nil, fmt.Errorf("marshal: header type %q does not match %s", got, want.Name())
	}
	return json.Marshal(m)
}

// Parse decodes canonical bytes into the concrete message named by the
// header's type tag.
func Parse(b []byte) (domain.Message, error) {
	var head struct {
		Msg *struct {
			Type domain.MessageType `json:"type"`
		} `json:"msg"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if head.Msg == nil || head.Msg.Type == "" {
		return nil, fmt.Errorf("%w: header type missing", domain.ErrUnknownMessageType)
	}
	m := types.NewMessage(head.Msg.Type)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMessageType, head.Msg.Type)
	}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	return m, nil
}

// Validate checks the fields every message of m's type must carry.
func Validate(m domain.Message) error {
	h := m.Base().Header
	if h.MessageID == "" {
		return fmt.Errorf("%w: msgid", domain.ErrMissingField)
	}
	if h.SessionID == "" {
		return fmt.Errorf("%w: session", domain.ErrMissingField)
	}
	if h.Code == "" {
		return fmt.Errorf("%w: code", domain.ErrMissingField)
	}

	switch msg := m.(type) {
	case *domain.SessionRequest:
		if msg.Handshake.TopicA.IsZero() {
			return fmt.Errorf("%w: handshake.topica", domain.ErrMissingField)
		}
		if n := len(msg.Handshake.ECDHPublicKey); n != domain.PublicKeyLength {
			return fmt.Errorf("%w: handshake.ecdhpk must be %d bytes, got %d",
				domain.ErrMalformedPayload, domain.PublicKeyLength, n)
		}
	case *domain.SessionReply:
		if h.Code == types.CodeOK && msg.Handshake.TopicB.IsZero() {
			return fmt.Errorf("%w: handshake.topicb", domain.ErrMissingField)
		}
	case *domain.TransferRequest:
		if msg.Originator == nil || msg.Beneficiary == nil || msg.Transfer == nil {
			return fmt.Errorf("%w: originator, beneficiary and transfer", domain.ErrMissingField)
		}
	case *domain.TransferReply:
		if h.Code == types.CodeOK && (msg.Transfer == nil || msg.Transfer.Destination == "") {
			return fmt.Errorf("%w: transfer.destination", domain.ErrMissingField)
		}
	case *domain.TransferDispatch:
		if msg.Tx == nil || msg.Tx.TxID == "" {
			return fmt.Errorf("%w: tx.txid", domain.ErrMissingField)
		}
	case *domain.TransferConfirmation, *domain.Termination:
	default:
		return fmt.Errorf("%w: %T", domain.ErrUnknownMessageType, m)
	}
	return nil
}
