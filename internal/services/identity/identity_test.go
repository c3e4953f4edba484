package identity_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"vaspwire/internal/crypto"
	"vaspwire/internal/domain"
	"vaspwire/internal/services/identity"
	"vaspwire/internal/store"
)

const strongPass = "Correct-Horse-9-Battery"

var addr = common.HexToAddress("0x6befaf0656b953b188a0ee3bf3db03d07dface61")

func TestGenerateIdentity_WeakPassphrase(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	for _, p := range []string{"short", "alllowercaseletters", "NoDigitsOrSymbols", "N0Symbolsxxxxxx"} {
		_, _, err := svc.GenerateIdentity(p, "x", addr)
		require.ErrorIs(t, err, identity.ErrWeakPassphrase, p)
	}
	_, _, err := svc.GenerateIdentity(strongPass, "x", common.Address{})
	require.ErrorIs(t, err, identity.ErrNoAddress)
}

func TestGenerateIdentity_RoundTrip(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	id, fp, err := svc.GenerateIdentity(strongPass, "Alice VASP", addr)
	require.NoError(t, err)
	require.Equal(t, domain.VaspCode{0x7d, 0xfa, 0xce, 0x61}, id.Code())
	require.NotEqual(t, id.HandshakePublic, id.SigningPublic)

	loaded, err := svc.LoadIdentity(strongPass)
	require.NoError(t, err)
	require.Equal(t, id, loaded)

	again, err := svc.FingerprintIdentity(strongPass)
	require.NoError(t, err)
	require.Equal(t, fp, again)

	_, err = svc.LoadIdentity("Wrong-pass-123")
	require.ErrorIs(t, err, store.ErrWrongPassphrase)

	pub := identity.Published(id)
	require.Equal(t, id.SigningPublic, pub.SigningKey)
	require.Equal(t, id.Code(), pub.Code())
}

func vasp(t *testing.T, name, address string) domain.VaspIdentity {
	t.Helper()
	hk, err := crypto.GenerateHandshakeKey()
	require.NoError(t, err)
	sk, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	return domain.VaspIdentity{
		Name:         name,
		Address:      common.HexToAddress(address),
		HandshakeKey: hk.PublicKey(),
		SigningKey:   sk.PublicKey(),
	}
}

func TestDirectory_ResolveAndPersist(t *testing.T) {
	ctx := context.Background()
	a := vasp(t, "Alice", "0x6befaf0656b953b188a0ee3bf3db03d07dface61")
	b := vasp(t, "Bob", "0x08fda931d64b17c3acffb35c1b3902e0bbb4ee5c")
	dir, err := identity.NewDirectory(a, b)
	require.NoError(t, err)

	got, err := dir.ResolveCode(ctx, a.Code())
	require.NoError(t, err)
	require.Equal(t, a, got)
	got, err = dir.ResolveAddress(ctx, b.Address)
	require.NoError(t, err)
	require.Equal(t, b, got)

	// Same code suffix, different address.
	other := common.HexToAddress("0x11111111111111111111111111111111bbb4ee5c")
	_, err = dir.ResolveAddress(ctx, other)
	require.ErrorIs(t, err, domain.ErrUnknownVasp)

	path := filepath.Join(t.TempDir(), "directory.toml")
	require.NoError(t, dir.Save(path))
	loaded, err := identity.LoadDirectory(path)
	require.NoError(t, err)
	require.Equal(t, dir.List(), loaded.List())

	loaded.Remove(a.Code())
	_, err = loaded.ResolveCode(ctx, a.Code())
	require.ErrorIs(t, err, domain.ErrUnknownVasp)

	empty, err := identity.LoadDirectory(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Empty(t, empty.List())
}

func TestDirectory_SaveReplacesAtomically(t *testing.T) {
	a := vasp(t, "Alice", "0x6befaf0656b953b188a0ee3bf3db03d07dface61")
	b := vasp(t, "Bob", "0x08fda931d64b17c3acffb35c1b3902e0bbb4ee5c")
	home := t.TempDir()
	path := filepath.Join(home, "directory.toml")

	first, err := identity.NewDirectory(a)
	require.NoError(t, err)
	require.NoError(t, first.Save(path))
	second, err := identity.NewDirectory(a, b)
	require.NoError(t, err)
	require.NoError(t, second.Save(path))

	entries, err := os.ReadDir(home)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files are left behind")
	require.Equal(t, "directory.toml", entries[0].Name())

	loaded, err := identity.LoadDirectory(path)
	require.NoError(t, err)
	require.Equal(t, second.List(), loaded.List())

	// A failed save leaves the previous file intact.
	require.NoError(t, os.Chmod(home, 0o500))
	t.Cleanup(func() { _ = os.Chmod(home, 0o700) })
	if f, err := os.CreateTemp(home, "writable"); err == nil {
		// Running with privileges that ignore directory modes.
		_ = f.Close()
		_ = os.Remove(f.Name())
		t.Skip("directory permissions are not enforced")
	}
	require.Error(t, first.Save(path))
	loaded, err = identity.LoadDirectory(path)
	require.NoError(t, err)
	require.Equal(t, second.List(), loaded.List())
}

func TestDirectory_RejectsBadKeys(t *testing.T) {
	v := vasp(t, "Alice", "0x6befaf0656b953b188a0ee3bf3db03d07dface61")
	v.SigningKey = domain.PublicKey{4}
	_, err := identity.NewDirectory(v)
	require.Error(t, err)
}

type countingResolver struct {
	domain.IdentityResolver
	calls atomic.Int32
}

func (c *countingResolver) ResolveCode(ctx context.Context, code domain.VaspCode) (domain.VaspIdentity, error) {
	c.calls.Add(1)
	return c.IdentityResolver.ResolveCode(ctx, code)
}

func TestCached_MemoisesHitsOnly(t *testing.T) {
	ctx := context.Background()
	a := vasp(t, "Alice", "0x6befaf0656b953b188a0ee3bf3db03d07dface61")
	dir, err := identity.NewDirectory()
	require.NoError(t, err)
	next := &countingResolver{IdentityResolver: dir}
	cached, err := identity.NewCached(next, 2)
	require.NoError(t, err)

	_, err = cached.ResolveCode(ctx, a.Code())
	require.True(t, errors.Is(err, domain.ErrUnknownVasp))

	require.NoError(t, dir.Register(a))
	for i := 0; i < 3; i++ {
		got, err := cached.ResolveCode(ctx, a.Code())
		require.NoError(t, err)
		require.Equal(t, a, got)
	}
	require.Equal(t, int32(2), next.calls.Load())

	got, err := cached.ResolveAddress(ctx, a.Address)
	require.NoError(t, err)
	require.Equal(t, a, got)
	require.Equal(t, int32(2), next.calls.Load())

	cached.Purge()
	_, err = cached.ResolveCode(ctx, a.Code())
	require.NoError(t, err)
	require.Equal(t, int32(3), next.calls.Load())
}
