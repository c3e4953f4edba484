package identity

import (
	"fmt"
	"unicode"

	"github.com/ethereum/go-ethereum/common"

	"vaspwire/internal/crypto"
	"vaspwire/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
	// ErrNoAddress is returned when an identity is generated without an on-chain address.
	ErrNoAddress = fmt.Errorf("vasp address required")
)

// Service manages identity key creation and access using a backing store.
//
// The identity contains:
//   - a handshake key pair, used for session key agreement and as the relay
//     key for the VASP's own topic;
//   - a signing key pair, used to sign every outgoing message.
type Service struct {
	store domain.IdentityStore
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore) *Service { return &Service{store: s} }

// GenerateIdentity creates a new identity, saves it encrypted with the passphrase,
// and returns the identity plus a short fingerprint of the handshake public key.
func (s *Service) GenerateIdentity(
	passphrase string,
	name string,
	address common.Address,
) (domain.Identity, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}
	if address == (common.Address{}) {
		return domain.Identity{}, "", ErrNoAddress
	}

	handshake, err := crypto.GenerateHandshakeKey()
	if err != nil {
		return domain.Identity{}, "", err
	}
	signing, err := crypto.GenerateSigningKey()
	if err != nil {
		return domain.Identity{}, "", err
	}

	id := domain.Identity{
		Name:             name,
		Address:          address,
		HandshakePrivate: handshake.PrivateKey(),
		HandshakePublic:  handshake.PublicKey(),
		SigningPrivate:   signing.PrivateKey(),
		SigningPublic:    signing.PublicKey(),
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}
	return id, crypto.Fingerprint(id.HandshakePublic), nil
}

// LoadIdentity decrypts and returns the local identity.
func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity returns a short fingerprint of the local handshake public key.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(id.HandshakePublic), nil
}

// Published returns the public half of id as other VASPs resolve it.
func Published(id domain.Identity) domain.VaspIdentity {
	return domain.VaspIdentity{
		Name:         id.Name,
		Address:      id.Address,
		HandshakeKey: id.HandshakePublic,
		SigningKey:   id.SigningPublic,
	}
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
