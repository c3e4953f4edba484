package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"vaspwire/internal/domain"
)

// RecoveryOffset is added to the recovery id in emitted signatures.
const RecoveryOffset = 27

// RecoveryIDs are the recovery id candidates for secp256k1 signatures.
var RecoveryIDs = []byte{0, 1}

var errBadSignature = errors.New("invalid signature length")

// SigningKey signs message hashes.
type SigningKey struct {
	priv *ecdsa.PrivateKey
}

// GenerateSigningKey returns a fresh signing key.
func GenerateSigningKey() (*SigningKey, error) {
	priv, err := gethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &SigningKey{priv: priv}, nil
}

// SigningKeyFromPrivate imports an existing private key.
func SigningKeyFromPrivate(k domain.PrivateKey) (*SigningKey, error) {
	priv, err := gethcrypto.ToECDSA(k.Slice())
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}
	return &SigningKey{priv: priv}, nil
}

// PrivateKey returns the raw private scalar.
func (k *SigningKey) PrivateKey() domain.PrivateKey {
	var out domain.PrivateKey
	copy(out[:], gethcrypto.FromECDSA(k.priv))
	return out
}

// PublicKey returns the uncompressed public key.
func (k *SigningKey) PublicKey() domain.PublicKey {
	return domain.PublicKey(gethcrypto.FromECDSAPub(&k.priv.PublicKey))
}

// Address returns the address identity of the key.
func (k *SigningKey) Address() common.Address {
	return gethcrypto.PubkeyToAddress(k.priv.PublicKey)
}

// Sign returns a 65-byte r||s||v signature over hash with v in {27, 28}.
func (k *SigningKey) Sign(hash []byte) ([]byte, error) {
	sig, err := gethcrypto.Sign(hash, k.priv)
	if err != nil {
		return nil, err
	}
	sig[domain.SignatureLength-1] += RecoveryOffset
	return sig, nil
}

// AddressOf returns the address identity of an uncompressed public key.
func AddressOf(pub domain.PublicKey) (common.Address, error) {
	key, err := gethcrypto.UnmarshalPubkey(pub.Slice())
	if err != nil {
		return common.Address{}, err
	}
	return gethcrypto.PubkeyToAddress(*key), nil
}

// RecoverAddress recovers the signer address of sig over hash, using
// recoveryID in place of the signature's own v byte.
func RecoverAddress(hash, sig []byte, recoveryID byte) (common.Address, error) {
	if len(sig) != domain.SignatureLength {
		return common.Address{}, errBadSignature
	}
	candidate := make([]byte, domain.SignatureLength)
	copy(candidate, sig)
	candidate[domain.SignatureLength-1] = recoveryID
	pub, err := gethcrypto.SigToPub(hash, candidate)
	if err != nil {
		return common.Address{}, err
	}
	return gethcrypto.PubkeyToAddress(*pub), nil
}
