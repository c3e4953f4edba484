package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const sealedFormatVersion = 1

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// ciphertext has been modified.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted data")

// Purposes are authenticated as associated data of the sealed record.
const (
	purposeIdentity = "vaspwire/identity"
	purposeSnapshot = "vaspwire/snapshot"
)

// kdfParams are the scrypt cost parameters stored alongside the ciphertext.
type kdfParams struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

var (
	// The identity is unlocked once per process.
	identityKDF = kdfParams{N: 1 << 15, R: 8, P: 1}
	// Snapshots are written on every session step.
	snapshotKDF = kdfParams{N: 1 << 12, R: 8, P: 1}
)

// sealed is the stored JSON form of an encrypted record.
type sealed struct {
	Version int       `json:"version"`
	Purpose string    `json:"purpose"`
	KDF     kdfParams `json:"kdf"`
	Salt    []byte    `json:"salt"`
	Nonce   []byte    `json:"nonce"`
	Cipher  []byte    `json:"cipher"`
}

func (k kdfParams) derive(passphrase string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, k.N, k.R, k.P, chacha20poly1305.KeySize)
}

// seal encrypts raw under a key derived from passphrase with XChaCha20-Poly1305.
func seal(purpose, passphrase string, raw []byte, kdf kdfParams) ([]byte, error) {
	salt := make([]byte, 16)
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	key, err := kdf.derive(passphrase, salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sealed{
		Version: sealedFormatVersion,
		Purpose: purpose,
		KDF:     kdf,
		Salt:    salt,
		Nonce:   nonce,
		Cipher:  aead.Seal(nil, nonce, raw, []byte(purpose)),
	})
}

// unseal reverses seal. A blob sealed for another purpose fails like a
// wrong passphrase.
func unseal(purpose, passphrase string, b []byte) ([]byte, error) {
	var s sealed
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("sealed record: %w", err)
	}
	if s.Version != sealedFormatVersion {
		return nil, fmt.Errorf("sealed record: unsupported version %d", s.Version)
	}
	if s.Purpose != purpose || len(s.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrWrongPassphrase
	}
	key, err := s.KDF.derive(passphrase, s.Salt)
	if err != nil {
		return nil, fmt.Errorf("sealed record: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, s.Nonce, s.Cipher, []byte(purpose))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}
