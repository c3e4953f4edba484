package app

import (
	"context"
	"fmt"

	"vaspwire/internal/domain"
	"vaspwire/internal/relay"
	"vaspwire/internal/relay/memrelay"
	"vaspwire/internal/services/identity"
	"vaspwire/internal/store"
)

// Wire holds the collaborators that do not need the identity passphrase.
type Wire struct {
	Config     Config
	Identities *identity.Service
	Directory  *identity.Directory
	Resolver   *identity.Cached
	// Node is the in-process relay used when the relay URL is MemoryRelay.
	// Callers may replace it before Open to share one node between apps.
	Node *memrelay.Node
}

// NewWire builds the passphrase-free part of the stack from cfg.
func NewWire(cfg Config) (*Wire, error) {
	cfg, err := cfg.Finalize()
	if err != nil {
		return nil, err
	}
	dir, err := identity.LoadDirectory(cfg.Directory)
	if err != nil {
		return nil, err
	}
	size := cfg.CacheSize
	if size == 0 {
		size = identity.DefaultCacheSize
	}
	resolver, err := identity.NewCached(dir, size)
	if err != nil {
		return nil, err
	}
	w := &Wire{
		Config:     cfg,
		Identities: identity.New(store.NewIdentityFileStore(cfg.Home)),
		Directory:  dir,
		Resolver:   resolver,
	}
	if cfg.Relay.URL == MemoryRelay {
		w.Node = memrelay.New()
	}
	return w, nil
}

// SaveDirectory writes the directory back to its configured file.
func (w *Wire) SaveDirectory() error {
	w.Resolver.Purge()
	return w.Directory.Save(w.Config.Directory)
}

func (w *Wire) dialRelay(ctx context.Context) (*relay.Client, error) {
	if w.Node != nil {
		return w.Node.Client()
	}
	return relay.Dial(ctx, w.Config.Relay.URL)
}

func (w *Wire) openSnapshots(passphrase string) (domain.SnapshotStore, error) {
	sc := w.Config.Snapshots
	if !sc.Encrypt {
		passphrase = ""
	}
	switch sc.Backend {
	case SnapshotsNone:
		return nil, nil
	case SnapshotsFile:
		return store.NewSnapshotFileStore(w.Config.Home, passphrase)
	case SnapshotsLevelDB:
		return store.OpenSnapshotLevelStore(sc.DSN, passphrase)
	case SnapshotsRedis:
		return store.DialSnapshotRedisStore(sc.DSN, sc.Prefix, passphrase)
	default:
		return nil, fmt.Errorf("snapshots: unknown backend %q", sc.Backend)
	}
}
