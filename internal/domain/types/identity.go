package types

import "github.com/ethereum/go-ethereum/common"

// Identity holds the local VASP's long-term keys.
type Identity struct {
	Name             string         `json:"name"`
	Address          common.Address `json:"address"`
	HandshakePrivate PrivateKey     `json:"handshake_private"`
	HandshakePublic  PublicKey      `json:"handshake_public"`
	SigningPrivate   PrivateKey     `json:"signing_private"`
	SigningPublic    PublicKey      `json:"signing_public"`
}

// Code returns the VASP code derived from the identity's address.
func (id Identity) Code() VaspCode { return VaspCodeFromAddress(id.Address) }

// VaspIdentity is the published key material of a VASP, as returned by
// identity resolution.
type VaspIdentity struct {
	Name         string         `json:"name" toml:"name"`
	Address      common.Address `json:"address" toml:"address"`
	HandshakeKey PublicKey      `json:"handshake_key" toml:"handshake_key"`
	SigningKey   PublicKey      `json:"signing_key" toml:"signing_key"`
}

// Code returns the VASP code derived from the address.
func (v VaspIdentity) Code() VaspCode { return VaspCodeFromAddress(v.Address) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
