package store

import (
	"encoding/json"
	"fmt"

	"vaspwire/internal/domain"
	"vaspwire/internal/util/memzero"
)

// snapshotCodec converts snapshots to their stored form. With an empty
// passphrase snapshots are stored as plain JSON.
type snapshotCodec struct {
	passphrase string
}

func (c snapshotCodec) encode(s domain.Snapshot) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", s.SessionID, err)
	}
	if c.passphrase == "" {
		return raw, nil
	}
	defer memzero.Zero(raw)
	return seal(purposeSnapshot, c.passphrase, raw, snapshotKDF)
}

func (c snapshotCodec) decode(b []byte) (domain.Snapshot, error) {
	var s domain.Snapshot
	raw := b
	if c.passphrase != "" {
		pt, err := unseal(purposeSnapshot, c.passphrase, b)
		if err != nil {
			return s, err
		}
		defer memzero.Zero(pt)
		raw = pt
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

func validSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("snapshot: empty session id")
	}
	for _, r := range id {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F') {
			return fmt.Errorf("snapshot: session id %q is not hex", id)
		}
	}
	return nil
}
