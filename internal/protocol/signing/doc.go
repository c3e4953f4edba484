// Package signing signs outgoing protocol messages and verifies incoming
// payloads.
//
// Wire layout (hex encoded as a whole):
//
//	canonical-message-bytes || signature[65]
//
// The signature is secp256k1 r||s||v over the EIP-191 length-prefixed hash
// of the canonical bytes. The signature does not name its signer, so the
// verifier resolves the sender claimed in the message through the identity
// resolver and accepts the signature only if one of the recovery ids
// reconstructs that sender's signing address.
package signing
