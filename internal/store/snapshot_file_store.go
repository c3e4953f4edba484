package store

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"vaspwire/internal/domain"
	"vaspwire/internal/util/atomicfile"
)

const (
	snapshotDir    = "sessions"
	snapshotSuffix = ".json"
)

// SnapshotFileStore keeps one file per session under <dir>/sessions.
type SnapshotFileStore struct {
	dir   string
	codec snapshotCodec
	mu    sync.Mutex
}

// NewSnapshotFileStore returns a SnapshotFileStore rooted at dir. A non-empty
// passphrase encrypts every snapshot.
func NewSnapshotFileStore(dir, passphrase string) (*SnapshotFileStore, error) {
	root := filepath.Join(dir, snapshotDir)
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	return &SnapshotFileStore{dir: root, codec: snapshotCodec{passphrase: passphrase}}, nil
}

func (s *SnapshotFileStore) path(id string) string {
	return filepath.Join(s.dir, id+snapshotSuffix)
}

// SaveSnapshot writes the snapshot, replacing any previous one.
func (s *SnapshotFileStore) SaveSnapshot(snap domain.Snapshot) error {
	if err := validSessionID(snap.SessionID); err != nil {
		return err
	}
	b, err := s.codec.encode(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicfile.WriteFile(s.path(snap.SessionID), b, 0o600)
}

// LoadSnapshot returns the snapshot for sessionID, if stored.
func (s *SnapshotFileStore) LoadSnapshot(sessionID string) (domain.Snapshot, bool, error) {
	if err := validSessionID(sessionID); err != nil {
		return domain.Snapshot{}, false, err
	}
	s.mu.Lock()
	b, err := readFile(s.path(sessionID))
	s.mu.Unlock()
	if err != nil || b == nil {
		return domain.Snapshot{}, false, err
	}
	snap, err := s.codec.decode(b)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, true, nil
}

// DeleteSnapshot removes the snapshot. Deleting a missing snapshot is not an error.
func (s *SnapshotFileStore) DeleteSnapshot(sessionID string) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ListSnapshots returns every stored snapshot ordered by session id.
func (s *SnapshotFileStore) ListSnapshots() ([]domain.Snapshot, error) {
	s.mu.Lock()
	entries, err := os.ReadDir(s.dir)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), snapshotSuffix))
	}
	sort.Strings(names)

	out := make([]domain.Snapshot, 0, len(names))
	for _, id := range names {
		snap, ok, err := s.LoadSnapshot(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *SnapshotFileStore) Close() error { return nil }

var _ domain.SnapshotStore = (*SnapshotFileStore)(nil)
