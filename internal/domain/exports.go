package domain

import (
	interfaces "vaspwire/internal/domain/interfaces"
	types "vaspwire/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Topic                = types.Topic
	VaspCode             = types.VaspCode
	EncryptionKind       = types.EncryptionKind
	Role                 = types.Role
	PrivateKey           = types.PrivateKey
	PublicKey            = types.PublicKey
	SharedSecret         = types.SharedSecret
	Identity             = types.Identity
	VaspIdentity         = types.VaspIdentity
	Fingerprint          = types.Fingerprint
	MessageType          = types.MessageType
	Header               = types.Header
	VaspInfo             = types.VaspInfo
	Envelope             = types.Envelope
	Message              = types.Message
	HandshakeRequest     = types.HandshakeRequest
	HandshakeReply       = types.HandshakeReply
	SessionRequest       = types.SessionRequest
	SessionReply         = types.SessionReply
	TransferRequest      = types.TransferRequest
	TransferReply        = types.TransferReply
	TransferDispatch     = types.TransferDispatch
	TransferConfirmation = types.TransferConfirmation
	Termination          = types.Termination
	Originator           = types.Originator
	Beneficiary          = types.Beneficiary
	Transfer             = types.Transfer
	Transaction          = types.Transaction
	TransferInfo         = types.TransferInfo
	PostRequest          = types.PostRequest
	Criteria             = types.Criteria
	RelayMessage         = types.RelayMessage
	Snapshot             = types.Snapshot
	ValidationError      = types.ValidationError
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	RelayClient      = interfaces.RelayClient
	IdentityResolver = interfaces.IdentityResolver
	IdentityService  = interfaces.IdentityService
	IdentityStore    = interfaces.IdentityStore
	SnapshotStore    = interfaces.SnapshotStore
)

// Constants re-exported for callers that only import domain.
const (
	Asymmetric      = types.Asymmetric
	Symmetric       = types.Symmetric
	RoleOriginator  = types.RoleOriginator
	RoleBeneficiary = types.RoleBeneficiary

	TopicLength        = types.TopicLength
	VaspCodeLength     = types.VaspCodeLength
	PrivateKeyLength   = types.PrivateKeyLength
	PublicKeyLength    = types.PublicKeyLength
	SharedSecretLength = types.SharedSecretLength
	SignatureLength    = types.SignatureLength

	TypeSessionRequest       = types.TypeSessionRequest
	TypeSessionReply         = types.TypeSessionReply
	TypeTransferRequest      = types.TypeTransferRequest
	TypeTransferReply        = types.TypeTransferReply
	TypeTransferDispatch     = types.TypeTransferDispatch
	TypeTransferConfirmation = types.TypeTransferConfirmation
	TypeTermination          = types.TypeTermination

	CodeOK       = types.CodeOK
	CodeDeclined = types.CodeDeclined
	CodeFailed   = types.CodeFailed
)

// Sentinel errors re-exported from the types subpackage.
var (
	ErrMalformedPayload   = types.ErrMalformedPayload
	ErrUnknownMessageType = types.ErrUnknownMessageType
	ErrMissingSender      = types.ErrMissingSender
	ErrUnknownVasp        = types.ErrUnknownVasp
	ErrSignatureMismatch  = types.ErrSignatureMismatch
	ErrMissingField       = types.ErrMissingField
)

// Constructors and helpers re-exported from the types subpackage.
var (
	NewValidationError = types.NewValidationError

	ParseTopic          = types.ParseTopic
	ParseVaspCode       = types.ParseVaspCode
	VaspCodeFromAddress = types.VaspCodeFromAddress
	VaspCodeFromTopic   = types.VaspCodeFromTopic
	MustPublicKey       = types.MustPublicKey

	NewSessionRequest       = types.NewSessionRequest
	NewSessionReply         = types.NewSessionReply
	NewTransferRequest      = types.NewTransferRequest
	NewTransferReply        = types.NewTransferReply
	NewTransferDispatch     = types.NewTransferDispatch
	NewTransferConfirmation = types.NewTransferConfirmation
	NewTermination          = types.NewTermination
	NewMessage              = types.NewMessage
	TransferInfoOf          = types.TransferInfoOf
)

// MessageSequence lists the message types in protocol order.
var MessageSequence = types.MessageSequence
