package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// PrivateKeyLength is the size of a secp256k1 private scalar.
	PrivateKeyLength = 32
	// PublicKeyLength is the size of an uncompressed secp256k1 public key.
	PublicKeyLength = 65
	// SharedSecretLength is the size of a derived session key.
	SharedSecretLength = 32
	// SignatureLength is the size of an r||s||v signature.
	SignatureLength = 65
)

// PrivateKey is a raw secp256k1 private key.
type PrivateKey [PrivateKeyLength]byte

// Slice returns the key as a []byte.
func (k PrivateKey) Slice() []byte { return k[:] }

// MarshalText encodes the key as 0x-prefixed hex.
func (k PrivateKey) MarshalText() ([]byte, error) { return hexutil.Bytes(k[:]).MarshalText() }

// UnmarshalText decodes a 0x-prefixed hex key.
func (k *PrivateKey) UnmarshalText(b []byte) error { return unmarshalFixed("private key", b, k[:]) }

// PublicKey is an uncompressed secp256k1 public key (0x04 || X || Y).
type PublicKey [PublicKeyLength]byte

// Slice returns the key as a []byte.
func (k PublicKey) Slice() []byte { return k[:] }

// IsZero reports whether the key was never assigned.
func (k PublicKey) IsZero() bool { return k == PublicKey{} }

// MarshalText encodes the key as 0x-prefixed hex.
func (k PublicKey) MarshalText() ([]byte, error) { return hexutil.Bytes(k[:]).MarshalText() }

// UnmarshalText decodes a 0x-prefixed hex key.
func (k *PublicKey) UnmarshalText(b []byte) error { return unmarshalFixed("public key", b, k[:]) }

// MustPublicKey converts b into a PublicKey, panicking on a length mismatch.
func MustPublicKey(b []byte) PublicKey {
	if len(b) != PublicKeyLength {
		panic(fmt.Errorf("public key: want %d bytes, got %d", PublicKeyLength, len(b)))
	}
	var out PublicKey
	copy(out[:], b)
	return out
}

// SharedSecret is the symmetric key of a session.
type SharedSecret [SharedSecretLength]byte

// Slice returns the secret as a []byte.
func (s SharedSecret) Slice() []byte { return s[:] }

// String returns the secret as 0x-prefixed hex.
func (s SharedSecret) String() string { return hexutil.Encode(s[:]) }

// MarshalText encodes the secret as 0x-prefixed hex.
func (s SharedSecret) MarshalText() ([]byte, error) { return hexutil.Bytes(s[:]).MarshalText() }

// UnmarshalText decodes a 0x-prefixed hex secret.
func (s *SharedSecret) UnmarshalText(b []byte) error {
	return unmarshalFixed("shared secret", b, s[:])
}

func unmarshalFixed(what string, text []byte, dst []byte) error {
	var raw hexutil.Bytes
	if err := raw.UnmarshalText(text); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("%s: want %d bytes, got %d", what, len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
