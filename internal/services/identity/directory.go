package identity

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"vaspwire/internal/crypto"
	"vaspwire/internal/domain"
	"vaspwire/internal/util/atomicfile"
)

// Directory is an in-memory registry of VASP identities, optionally loaded
// from and saved to a TOML file.
type Directory struct {
	mu     sync.RWMutex
	byCode map[domain.VaspCode]domain.VaspIdentity
}

type directoryFile struct {
	VASPs []domain.VaspIdentity `toml:"vasp"`
}

// NewDirectory returns a directory holding entries.
func NewDirectory(entries ...domain.VaspIdentity) (*Directory, error) {
	d := &Directory{byCode: make(map[domain.VaspCode]domain.VaspIdentity)}
	for _, e := range entries {
		if err := d.Register(e); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// LoadDirectory reads a TOML directory file. A missing file yields an
// empty directory.
func LoadDirectory(path string) (*Directory, error) {
	var f directoryFile
	if _, err := toml.DecodeFile(path, &f); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load directory %s: %w", path, err)
	}
	return NewDirectory(f.VASPs...)
}

// Save replaces the file at path with the directory in TOML.
func (d *Directory) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(directoryFile{VASPs: d.List()}); err != nil {
		return err
	}
	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save directory %s: %w", path, err)
	}
	return nil
}

// Register adds or replaces an identity after checking its keys.
func (d *Directory) Register(v domain.VaspIdentity) error {
	if v.Address == (common.Address{}) {
		return fmt.Errorf("register %q: %w", v.Name, ErrNoAddress)
	}
	if _, err := crypto.ValidatePublicKey(v.HandshakeKey.Slice()); err != nil {
		return fmt.Errorf("register %s handshake key: %w", v.Code(), err)
	}
	if _, err := crypto.ValidatePublicKey(v.SigningKey.Slice()); err != nil {
		return fmt.Errorf("register %s signing key: %w", v.Code(), err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byCode[v.Code()] = v
	return nil
}

// Remove deletes the identity with the given code.
func (d *Directory) Remove(code domain.VaspCode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byCode, code)
}

// List returns all identities ordered by code.
func (d *Directory) List() []domain.VaspIdentity {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.VaspIdentity, 0, len(d.byCode))
	for _, v := range d.byCode {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Code().String() < out[j].Code().String()
	})
	return out
}

// ResolveCode implements domain.IdentityResolver.
func (d *Directory) ResolveCode(_ context.Context, code domain.VaspCode) (domain.VaspIdentity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.byCode[code]
	if !ok {
		return domain.VaspIdentity{}, fmt.Errorf("%w: %s", domain.ErrUnknownVasp, code)
	}
	return v, nil
}

// ResolveAddress implements domain.IdentityResolver.
func (d *Directory) ResolveAddress(ctx context.Context, addr common.Address) (domain.VaspIdentity, error) {
	v, err := d.ResolveCode(ctx, domain.VaspCodeFromAddress(addr))
	if err != nil {
		return domain.VaspIdentity{}, err
	}
	if v.Address != addr {
		return domain.VaspIdentity{}, fmt.Errorf("%w: %s", domain.ErrUnknownVasp, addr.Hex())
	}
	return v, nil
}

var _ domain.IdentityResolver = (*Directory)(nil)
