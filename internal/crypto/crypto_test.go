package crypto_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/stretchr/testify/require"

	"vaspwire/internal/crypto"
	"vaspwire/internal/domain"
)

func TestSharedSecret_IsCommutative(t *testing.T) {
	for i := 0; i < 8; i++ {
		a, err := crypto.GenerateHandshakeKey()
		require.NoError(t, err)
		b, err := crypto.GenerateHandshakeKey()
		require.NoError(t, err)

		ab, err := a.SharedSecret(b.PublicKey())
		require.NoError(t, err)
		ba, err := b.SharedSecret(a.PublicKey())
		require.NoError(t, err)

		require.Equal(t, ab, ba)
		require.NotEqual(t, domain.SharedSecret{}, ab)
	}
}

func TestSharedSecret_ImportedKeyMatches(t *testing.T) {
	a, err := crypto.GenerateHandshakeKey()
	require.NoError(t, err)
	b, err := crypto.GenerateHandshakeKey()
	require.NoError(t, err)

	imported, err := crypto.HandshakeKeyFromPrivate(a.PrivateKey())
	require.NoError(t, err)
	require.Equal(t, a.PublicKey(), imported.PublicKey())

	want, err := a.SharedSecret(b.PublicKey())
	require.NoError(t, err)
	got, err := imported.SharedSecret(b.PublicKey())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSharedSecret_RejectsInvalidPeerKey(t *testing.T) {
	a, err := crypto.GenerateHandshakeKey()
	require.NoError(t, err)

	var bogus domain.PublicKey
	bogus[0] = 0x04
	_, err = a.SharedSecret(bogus)
	require.Error(t, err)
}

func TestSign_RecoversSignerAddress(t *testing.T) {
	key, err := crypto.GenerateSigningKey()
	require.NoError(t, err)

	hash := accounts.TextHash([]byte("hello"))
	sig, err := key.Sign(hash)
	require.NoError(t, err)
	require.Len(t, sig, domain.SignatureLength)
	require.Contains(t, []byte{27, 28}, sig[64])

	addr, err := crypto.AddressOf(key.PublicKey())
	require.NoError(t, err)
	require.Equal(t, key.Address(), addr)

	matched := false
	for _, id := range crypto.RecoveryIDs {
		got, err := crypto.RecoverAddress(hash, sig, id)
		if err == nil && got == addr {
			matched = true
			break
		}
	}
	require.True(t, matched, "no recovery id reproduced the signer")
}

func TestRandomTopic_AndIDs(t *testing.T) {
	t1, err := crypto.RandomTopic()
	require.NoError(t, err)
	t2, err := crypto.RandomTopic()
	require.NoError(t, err)
	require.NotEqual(t, t1, t2)

	id := crypto.NewID()
	require.Len(t, id, 2*crypto.IDLength)
	require.NotEqual(t, id, crypto.NewID())

	require.Equal(t, crypto.DeriveTopic([]byte("x")), crypto.DeriveTopic([]byte("x")))
}

func TestFingerprint_Stable(t *testing.T) {
	k, err := crypto.GenerateHandshakeKey()
	require.NoError(t, err)
	fp := crypto.Fingerprint(k.PublicKey())
	require.Len(t, fp.String(), 24)
	require.Regexp(t, `^([0-9a-f]{4}-){4}[0-9a-f]{4}$`, fp.String())
	require.Equal(t, fp, crypto.Fingerprint(k.PublicKey()))
}
