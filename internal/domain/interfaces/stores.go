package interfaces

import domaintypes "vaspwire/internal/domain/types"

// IdentityStore persists the local identity keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// SnapshotStore persists session snapshots for restart continuity.
type SnapshotStore interface {
	SaveSnapshot(s domaintypes.Snapshot) error
	LoadSnapshot(sessionID string) (domaintypes.Snapshot, bool, error)
	DeleteSnapshot(sessionID string) error
	ListSnapshots() ([]domaintypes.Snapshot, error)
	Close() error
}
