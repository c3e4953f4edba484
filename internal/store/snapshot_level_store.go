package store

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"vaspwire/internal/domain"
)

var snapshotPrefix = []byte("snapshot/")

// SnapshotLevelStore keeps snapshots in a goleveldb database.
type SnapshotLevelStore struct {
	db    *leveldb.DB
	codec snapshotCodec
}

// OpenSnapshotLevelStore opens (or creates) the database at path.
func OpenSnapshotLevelStore(path, passphrase string) (*SnapshotLevelStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &SnapshotLevelStore{db: db, codec: snapshotCodec{passphrase: passphrase}}, nil
}

func snapshotKey(id string) []byte {
	return append(append([]byte{}, snapshotPrefix...), id...)
}

// SaveSnapshot writes the snapshot, replacing any previous one.
func (s *SnapshotLevelStore) SaveSnapshot(snap domain.Snapshot) error {
	if err := validSessionID(snap.SessionID); err != nil {
		return err
	}
	b, err := s.codec.encode(snap)
	if err != nil {
		return err
	}
	return s.db.Put(snapshotKey(snap.SessionID), b, &opt.WriteOptions{Sync: true})
}

// LoadSnapshot returns the snapshot for sessionID, if stored.
func (s *SnapshotLevelStore) LoadSnapshot(sessionID string) (domain.Snapshot, bool, error) {
	b, err := s.db.Get(snapshotKey(sessionID), nil)
	if err == leveldb.ErrNotFound {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	snap, err := s.codec.decode(b)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, true, nil
}

// DeleteSnapshot removes the snapshot.
func (s *SnapshotLevelStore) DeleteSnapshot(sessionID string) error {
	return s.db.Delete(snapshotKey(sessionID), nil)
}

// ListSnapshots returns every stored snapshot in key order.
func (s *SnapshotLevelStore) ListSnapshots() ([]domain.Snapshot, error) {
	it := s.db.NewIterator(util.BytesPrefix(snapshotPrefix), nil)
	defer it.Release()

	var out []domain.Snapshot
	for it.Next() {
		snap, err := s.codec.decode(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, it.Error()
}

// Close closes the database.
func (s *SnapshotLevelStore) Close() error { return s.db.Close() }

var _ domain.SnapshotStore = (*SnapshotLevelStore)(nil)
