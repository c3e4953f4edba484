package signing

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"

	"vaspwire/internal/crypto"
	"vaspwire/internal/domain"
	"vaspwire/internal/protocol/message"
)

// Signer signs messages with the local VASP's signing key.
type Signer struct {
	key *crypto.SigningKey
}

// NewSigner returns a signer for key.
func NewSigner(key *crypto.SigningKey) *Signer {
	if key == nil {
		panic("signing: nil key")
	}
	return &Signer{key: key}
}

// Sign returns the hex payload of m signed with the signer's key.
func (s *Signer) Sign(m domain.Message) ([]byte, error) {
	return Sign(m, s.key)
}

// Sign serialises m canonically, appends a signature and hex-encodes the blob.
func Sign(m domain.Message, key *crypto.SigningKey) ([]byte, error) {
	raw, err := message.Marshal(m)
	if err != nil {
		return nil, err
	}
	sig, err := key.Sign(accounts.TextHash(raw))
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", m.MessageType().Name(), err)
	}
	blob := make([]byte, 0, len(raw)+len(sig))
	blob = append(blob, raw...)
	blob = append(blob, sig...)

	out := make([]byte, hex.EncodedLen(len(blob)))
	hex.Encode(out, blob)
	return out, nil
}

// Verifier checks payload signatures against published signing keys.
type Verifier struct {
	resolver domain.IdentityResolver
}

// NewVerifier returns a verifier that looks senders up through resolver.
func NewVerifier(resolver domain.IdentityResolver) *Verifier {
	if resolver == nil {
		panic("signing: nil identity resolver")
	}
	return &Verifier{resolver: resolver}
}

// Verify decodes payload, checks its signature and returns the message.
// Every failure is a *domain.ValidationError.
func (v *Verifier) Verify(ctx context.Context, payload []byte) (domain.Message, error) {
	raw, sig, err := Split(payload)
	if err != nil {
		return nil, domain.NewValidationError(nil, err)
	}
	m, err := message.Parse(raw)
	if err != nil {
		return nil, domain.NewValidationError(nil, err)
	}
	if err := message.Validate(m); err != nil {
		return nil, domain.NewValidationError(m, err)
	}

	sender := m.Base().Sender
	if sender == nil {
		return nil, domain.NewValidationError(m, domain.ErrMissingSender)
	}
	published, err := v.resolver.ResolveCode(ctx, sender.Code)
	if err != nil {
		return nil, domain.NewValidationError(m, fmt.Errorf("resolve sender %s: %w", sender.Code, err))
	}
	expected, err := crypto.AddressOf(published.SigningKey)
	if err != nil {
		return nil, domain.NewValidationError(m, fmt.Errorf("sender %s signing key: %w", sender.Code, err))
	}
	if !validRecoveryByte(sig[domain.SignatureLength-1]) {
		return nil, domain.NewValidationError(m, domain.ErrSignatureMismatch)
	}

	hash := accounts.TextHash(raw)
	for _, id := range crypto.RecoveryIDs {
		addr, err := crypto.RecoverAddress(hash, sig, id)
		if err == nil && addr == expected {
			return m, nil
		}
	}
	return nil, domain.NewValidationError(m, domain.ErrSignatureMismatch)
}

// Split hex-decodes payload and separates the canonical bytes from the
// trailing signature.
func Split(payload []byte) (raw, sig []byte, err error) {
	text := strings.TrimPrefix(strings.TrimSpace(string(payload)), "0x")
	blob, err := hex.DecodeString(text)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if len(blob) <= domain.SignatureLength {
		return nil, nil, fmt.Errorf("%w: payload of %d bytes is too short", domain.ErrMalformedPayload, len(blob))
	}
	cut := len(blob) - domain.SignatureLength
	return blob[:cut], blob[cut:], nil
}

func validRecoveryByte(v byte) bool {
	for _, id := range crypto.RecoveryIDs {
		if v == id+crypto.RecoveryOffset {
			return true
		}
	}
	return false
}
