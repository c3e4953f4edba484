package crypto

import (
	"crypto/rand"
	"encoding/hex"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"vaspwire/internal/domain"
)

// IDLength is the size in bytes of message and session identifiers.
const IDLength = 16

// RandomTopic draws a topic from the system's secure random source.
func RandomTopic() (domain.Topic, error) {
	var t domain.Topic
	_, err := rand.Read(t[:])
	return t, err
}

// NewID returns a random 16-byte identifier as 32 hex characters.
func NewID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// DeriveTopic maps arbitrary data to a topic: the first bytes of its
// Keccak-256 hash.
func DeriveTopic(data []byte) domain.Topic {
	var t domain.Topic
	copy(t[:], gethcrypto.Keccak256(data))
	return t
}
