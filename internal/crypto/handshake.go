package crypto

import (
	"crypto/ecdsa"
	"fmt"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"

	"vaspwire/internal/domain"
	"vaspwire/internal/util/memzero"
)

// Key agreement output split, as expected by ecies.GenerateShared. Together
// they form the 32-byte shared secret.
const (
	sharedKeyLen = 16
	sharedMacLen = 16
)

// HandshakeKey is a key-agreement key pair.
type HandshakeKey struct {
	priv *ecdsa.PrivateKey
}

// GenerateHandshakeKey returns a fresh key pair.
func GenerateHandshakeKey() (*HandshakeKey, error) {
	priv, err := gethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &HandshakeKey{priv: priv}, nil
}

// HandshakeKeyFromPrivate imports an existing private key.
func HandshakeKeyFromPrivate(k domain.PrivateKey) (*HandshakeKey, error) {
	priv, err := gethcrypto.ToECDSA(k.Slice())
	if err != nil {
		return nil, fmt.Errorf("import handshake key: %w", err)
	}
	return &HandshakeKey{priv: priv}, nil
}

// PrivateKey returns the raw private scalar.
func (k *HandshakeKey) PrivateKey() domain.PrivateKey {
	var out domain.PrivateKey
	copy(out[:], gethcrypto.FromECDSA(k.priv))
	return out
}

// PublicKey returns the uncompressed public key.
func (k *HandshakeKey) PublicKey() domain.PublicKey {
	return domain.PublicKey(gethcrypto.FromECDSAPub(&k.priv.PublicKey))
}

// SharedSecret derives the session secret with a peer's public key.
func (k *HandshakeKey) SharedSecret(peer domain.PublicKey) (domain.SharedSecret, error) {
	var out domain.SharedSecret
	pub, err := gethcrypto.UnmarshalPubkey(peer.Slice())
	if err != nil {
		return out, fmt.Errorf("peer handshake key: %w", err)
	}
	shared, err := ecies.ImportECDSA(k.priv).GenerateShared(ecies.ImportECDSAPublic(pub), sharedKeyLen, sharedMacLen)
	if err != nil {
		return out, fmt.Errorf("derive shared secret: %w", err)
	}
	copy(out[:], shared)
	memzero.Zero(shared)
	return out, nil
}

// ValidatePublicKey checks that b is a point on the curve in uncompressed form.
func ValidatePublicKey(b []byte) (domain.PublicKey, error) {
	if len(b) != domain.PublicKeyLength {
		return domain.PublicKey{}, fmt.Errorf("public key: want %d bytes, got %d", domain.PublicKeyLength, len(b))
	}
	if _, err := gethcrypto.UnmarshalPubkey(b); err != nil {
		return domain.PublicKey{}, err
	}
	return domain.MustPublicKey(b), nil
}
