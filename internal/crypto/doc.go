// Package crypto exposes the minimal primitives used by vaspwire.
//
// Contents
//
//   - secp256k1 handshake keys and Diffie–Hellman key agreement producing a
//     32-byte session secret (GenerateHandshakeKey, HandshakeKey.SharedSecret)
//   - secp256k1 signing keys with Ethereum-style address identities
//     (GenerateSigningKey, SigningKey.Sign, AddressOf, RecoverAddress)
//   - Random relay topics and protocol identifiers (RandomTopic, NewID,
//     DeriveTopic)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Key agreement is symmetric: A.SharedSecret(B.Public) equals
// B.SharedSecret(A.Public). The session handshake relies on this. Handshake
// and signing keys are separate key pairs even though both live on
// secp256k1, because the relay network encrypts to handshake keys directly.
package crypto
