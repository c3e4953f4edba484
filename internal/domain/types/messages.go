package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// MessageType is the header tag selecting the body shape of a message.
type MessageType string

const (
	TypeSessionRequest       MessageType = "110"
	TypeSessionReply         MessageType = "150"
	TypeTransferRequest      MessageType = "210"
	TypeTransferReply        MessageType = "250"
	TypeTransferDispatch     MessageType = "310"
	TypeTransferConfirmation MessageType = "350"
	TypeTermination          MessageType = "910"
)

// MessageSequence lists the message types in protocol order.
var MessageSequence = []MessageType{
	TypeSessionRequest,
	TypeSessionReply,
	TypeTransferRequest,
	TypeTransferReply,
	TypeTransferDispatch,
	TypeTransferConfirmation,
	TypeTermination,
}

// Index returns the position of t in MessageSequence, or -1.
func (t MessageType) Index() int {
	for i, mt := range MessageSequence {
		if mt == t {
			return i
		}
	}
	return -1
}

// Known reports whether t is one of the seven protocol message types.
func (t MessageType) Known() bool { return t.Index() >= 0 }

// Name returns a human readable name for the type.
func (t MessageType) Name() string {
	switch t {
	case TypeSessionRequest:
		return "SessionRequest"
	case TypeSessionReply:
		return "SessionReply"
	case TypeTransferRequest:
		return "TransferRequest"
	case TypeTransferReply:
		return "TransferReply"
	case TypeTransferDispatch:
		return "TransferDispatch"
	case TypeTransferConfirmation:
		return "TransferConfirmation"
	case TypeTermination:
		return "Termination"
	default:
		return "Unknown(" + string(t) + ")"
	}
}

// Response codes carried in the message header.
const (
	CodeOK       = "1"
	CodeDeclined = "2"
	CodeFailed   = "3"
)

// Header is common to every protocol message.
type Header struct {
	Type      MessageType `json:"type"`
	MessageID string      `json:"msgid"`
	SessionID string      `json:"session"`
	Code      string      `json:"code"`
}

// VaspInfo is the sender-identity block attached to outgoing messages.
type VaspInfo struct {
	Name          string         `json:"name"`
	Code          VaspCode       `json:"id"`
	Address       common.Address `json:"address"`
	HandshakeKey  hexutil.Bytes  `json:"pk"`
	PostalAddress string         `json:"postaladdr,omitempty"`
	LEI           string         `json:"lei,omitempty"`
}

// Envelope holds the fields shared by all message types.
type Envelope struct {
	Header  Header    `json:"msg"`
	Comment string    `json:"comment,omitempty"`
	Sender  *VaspInfo `json:"vasp,omitempty"`
}

// Base returns the shared envelope of a message.
func (e *Envelope) Base() *Envelope { return e }

// Message is a closed union over the seven protocol message types.
// Consumers switch exhaustively on the concrete type.
type Message interface {
	MessageType() MessageType
	Base() *Envelope
	sealed()
}

func (*Envelope) sealed() {}

// HandshakeRequest is the handshake body of a SessionRequest.
type HandshakeRequest struct {
	TopicA        Topic         `json:"topica"`
	ECDHPublicKey hexutil.Bytes `json:"ecdhpk"`
}

// HandshakeReply is the handshake body of a SessionReply.
type HandshakeReply struct {
	TopicB Topic `json:"topicb"`
}

// SessionRequest opens a session. It is sent asymmetrically to the
// beneficiary's VASP topic.
type SessionRequest struct {
	Envelope
	Handshake HandshakeRequest `json:"handshake"`
}

// SessionReply answers a SessionRequest with the beneficiary's topic.
type SessionReply struct {
	Envelope
	Handshake HandshakeReply `json:"handshake"`
}

// TransferRequest asks the beneficiary VASP to accept a transfer.
type TransferRequest struct {
	Envelope
	TransferInfo
}

// TransferReply carries the beneficiary's destination address.
type TransferReply struct {
	Envelope
	TransferInfo
}

// TransferDispatch notifies that the on-chain transaction was sent.
type TransferDispatch struct {
	Envelope
	TransferInfo
}

// TransferConfirmation acknowledges receipt of the transferred value.
type TransferConfirmation struct {
	Envelope
	TransferInfo
}

// Termination closes a session.
type Termination struct {
	Envelope
}

func (*SessionRequest) MessageType() MessageType       { return TypeSessionRequest }
func (*SessionReply) MessageType() MessageType         { return TypeSessionReply }
func (*TransferRequest) MessageType() MessageType      { return TypeTransferRequest }
func (*TransferReply) MessageType() MessageType        { return TypeTransferReply }
func (*TransferDispatch) MessageType() MessageType     { return TypeTransferDispatch }
func (*TransferConfirmation) MessageType() MessageType { return TypeTransferConfirmation }
func (*Termination) MessageType() MessageType          { return TypeTermination }

func header(t MessageType, code string) Envelope {
	return Envelope{Header: Header{Type: t, Code: code}}
}

// NewSessionRequest builds a SessionRequest.
func NewSessionRequest(topicA Topic, ecdhPublicKey []byte) *SessionRequest {
	return &SessionRequest{
		Envelope:  header(TypeSessionRequest, CodeOK),
		Handshake: HandshakeRequest{TopicA: topicA, ECDHPublicKey: ecdhPublicKey},
	}
}

// NewSessionReply builds a SessionReply.
func NewSessionReply(code string, topicB Topic) *SessionReply {
	return &SessionReply{
		Envelope:  header(TypeSessionReply, code),
		Handshake: HandshakeReply{TopicB: topicB},
	}
}

// NewTransferRequest builds a TransferRequest.
func NewTransferRequest(info TransferInfo) *TransferRequest {
	return &TransferRequest{Envelope: header(TypeTransferRequest, CodeOK), TransferInfo: info}
}

// NewTransferReply builds a TransferReply.
func NewTransferReply(code string, info TransferInfo) *TransferReply {
	return &TransferReply{Envelope: header(TypeTransferReply, code), TransferInfo: info}
}

// NewTransferDispatch builds a TransferDispatch.
func NewTransferDispatch(info TransferInfo) *TransferDispatch {
	return &TransferDispatch{Envelope: header(TypeTransferDispatch, CodeOK), TransferInfo: info}
}

// NewTransferConfirmation builds a TransferConfirmation.
func NewTransferConfirmation(code string, info TransferInfo) *TransferConfirmation {
	return &TransferConfirmation{Envelope: header(TypeTransferConfirmation, code), TransferInfo: info}
}

// NewTermination builds a Termination.
func NewTermination(code string) *Termination {
	return &Termination{Envelope: header(TypeTermination, code)}
}

// NewMessage returns an empty message of type t, or nil if t is unknown.
func NewMessage(t MessageType) Message {
	switch t {
	case TypeSessionRequest:
		return &SessionRequest{Envelope: header(t, "")}
	case TypeSessionReply:
		return &SessionReply{Envelope: header(t, "")}
	case TypeTransferRequest:
		return &TransferRequest{Envelope: header(t, "")}
	case TypeTransferReply:
		return &TransferReply{Envelope: header(t, "")}
	case TypeTransferDispatch:
		return &TransferDispatch{Envelope: header(t, "")}
	case TypeTransferConfirmation:
		return &TransferConfirmation{Envelope: header(t, "")}
	case TypeTermination:
		return &Termination{Envelope: header(t, "")}
	default:
		return nil
	}
}

// TransferInfoOf returns the transfer context carried by m, if any.
func TransferInfoOf(m Message) (*TransferInfo, bool) {
	switch msg := m.(type) {
	case *TransferRequest:
		return &msg.TransferInfo, true
	case *TransferReply:
		return &msg.TransferInfo, true
	case *TransferDispatch:
		return &msg.TransferInfo, true
	case *TransferConfirmation:
		return &msg.TransferInfo, true
	case *SessionRequest, *SessionReply, *Termination:
		return nil, false
	default:
		return nil, false
	}
}
