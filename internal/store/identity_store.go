package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"vaspwire/internal/domain"
	"vaspwire/internal/util/atomicfile"
	"vaspwire/internal/util/memzero"
)

const identityFile = "identity.sealed"

// ErrNoIdentity is returned by LoadIdentity before an identity was created.
var ErrNoIdentity = errors.New("no identity found, run init first")

// IdentityFileStore keeps the VASP's key material in one passphrase-sealed
// file under its home directory.
type IdentityFileStore struct {
	path string
	mu   sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{path: filepath.Join(dir, identityFile)}
}

// SaveIdentity seals id with the passphrase and replaces any previous identity.
func (s *IdentityFileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	defer memzero.Zero(raw)

	b, err := seal(purposeIdentity, passphrase, raw, identityKDF)
	if err != nil {
		return fmt.Errorf("seal identity: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicfile.WriteFile(s.path, b, 0o600)
}

// LoadIdentity unseals the identity. A wrong passphrase yields ErrWrongPassphrase.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	b, err := readFile(s.path)
	s.mu.Unlock()
	switch {
	case err != nil:
		return domain.Identity{}, err
	case b == nil:
		return domain.Identity{}, ErrNoIdentity
	}

	raw, err := unseal(purposeIdentity, passphrase, b)
	if err != nil {
		return domain.Identity{}, err
	}
	defer memzero.Zero(raw)

	var id domain.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return domain.Identity{}, fmt.Errorf("identity %s: %w", s.path, err)
	}
	return id, nil
}

var _ domain.IdentityStore = (*IdentityFileStore)(nil)
