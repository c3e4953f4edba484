package crypto

import (
	"encoding/hex"
	"strings"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"vaspwire/internal/domain"
)

const fingerprintBytes = 10

// Fingerprint returns the first ten bytes of the Keccak-256 hash of pub as
// five dash-separated groups of four hex characters, for operators comparing
// keys out of band.
func Fingerprint(pub domain.PublicKey) domain.Fingerprint {
	sum := gethcrypto.Keccak256(pub.Slice())[:fingerprintBytes]
	groups := make([]string, 0, fingerprintBytes/2)
	for i := 0; i < fingerprintBytes; i += 2 {
		groups = append(groups, hex.EncodeToString(sum[i:i+2]))
	}
	return domain.Fingerprint(strings.Join(groups, "-"))
}
