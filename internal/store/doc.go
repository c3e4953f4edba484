// Package store provides persistence for vaspwire's local state.
//
// It contains concrete implementations of the domain storage interfaces. All
// stores are concurrency-safe.
//
// The package includes:
//   - The encrypted local identity (IdentityFileStore)
//   - Session snapshots, in one of three backends:
//     SnapshotFileStore (one JSON file per session),
//     SnapshotLevelStore (goleveldb) and
//     SnapshotRedisStore (redis, for VASPs running several nodes).
//
// Snapshots hold session secrets. When a passphrase is configured they are
// sealed with the same scrypt + XChaCha20-Poly1305 envelope as the identity.
package store
