// Package identity manages the local VASP identity and resolves the published
// keys of other VASPs.
//
// Service enforces the passphrase policy, generates the handshake (key
// agreement) and signing key pairs and persists them through the
// domain.IdentityStore. Directory is a static, file-backed
// domain.IdentityResolver, and Cached puts an LRU in front of any resolver.
package identity
