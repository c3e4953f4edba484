package memrelay_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"vaspwire/internal/crypto"
	"vaspwire/internal/domain"
	"vaspwire/internal/relay/memrelay"
)

func TestAsymmetricDelivery(t *testing.T) {
	ctx := context.Background()
	c, err := memrelay.New().Client()
	require.NoError(t, err)
	defer c.Close()

	key, err := crypto.GenerateHandshakeKey()
	require.NoError(t, err)
	priv := key.PrivateKey()
	keyID, err := c.AddPrivateKey(ctx, priv.Slice())
	require.NoError(t, err)

	topic := domain.Topic{0xde, 0xad, 0xbe, 0xef}
	fid, err := c.NewMessageFilter(ctx, domain.Criteria{PrivateKeyID: keyID, Topics: []domain.Topic{topic}})
	require.NoError(t, err)

	pub := key.PublicKey()
	require.NoError(t, c.Post(ctx, domain.PostRequest{
		PublicKey: pub.Slice(),
		TTL:       10,
		Topic:     topic,
		Payload:   []byte("hello"),
	}))

	msgs, err := c.FilterMessages(ctx, fid)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hello", string(msgs[0].Payload))
	require.Equal(t, topic, msgs[0].Topic)
	require.NotEmpty(t, msgs[0].Hash)

	// Drained on poll.
	msgs, err = c.FilterMessages(ctx, fid)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestSymmetricDelivery_OnlyToMatchingKey(t *testing.T) {
	ctx := context.Background()
	node := memrelay.New()
	alice, err := node.Client()
	require.NoError(t, err)
	bob, err := node.Client()
	require.NoError(t, err)

	topic := domain.Topic{1, 2, 3, 4}
	secret := make([]byte, 32)
	secret[0] = 7
	other := make([]byte, 32)
	other[0] = 8

	goodKey, err := bob.AddSymmetricKey(ctx, secret)
	require.NoError(t, err)
	badKey, err := bob.AddSymmetricKey(ctx, other)
	require.NoError(t, err)
	good, err := bob.NewMessageFilter(ctx, domain.Criteria{SymKeyID: goodKey, Topics: []domain.Topic{topic}})
	require.NoError(t, err)
	bad, err := bob.NewMessageFilter(ctx, domain.Criteria{SymKeyID: badKey, Topics: []domain.Topic{topic}})
	require.NoError(t, err)
	elsewhere, err := bob.NewMessageFilter(ctx, domain.Criteria{SymKeyID: goodKey, Topics: []domain.Topic{{9, 9, 9, 9}}})
	require.NoError(t, err)

	sendKey, err := alice.AddSymmetricKey(ctx, secret)
	require.NoError(t, err)
	require.NoError(t, alice.Post(ctx, domain.PostRequest{SymKeyID: sendKey, Topic: topic, Payload: []byte("x")}))

	for id, want := range map[string]int{good: 1, bad: 0, elsewhere: 0} {
		msgs, err := bob.FilterMessages(ctx, id)
		require.NoError(t, err)
		require.Len(t, msgs, want)
	}

	require.NoError(t, bob.DeleteMessageFilter(ctx, good))
	_, err = bob.FilterMessages(ctx, good)
	require.Error(t, err)
	require.NoError(t, alice.DeleteSymmetricKey(ctx, sendKey))
	require.Error(t, alice.Post(ctx, domain.PostRequest{SymKeyID: sendKey, Topic: topic, Payload: []byte("x")}))
}

func TestCriteriaAndPostValidation(t *testing.T) {
	ctx := context.Background()
	c, err := memrelay.New().Client()
	require.NoError(t, err)

	_, err = c.NewMessageFilter(ctx, domain.Criteria{Topics: []domain.Topic{{1}}})
	require.Error(t, err)
	_, err = c.NewMessageFilter(ctx, domain.Criteria{SymKeyID: "nope", Topics: []domain.Topic{{1}}})
	require.Error(t, err)
	_, err = c.AddSymmetricKey(ctx, []byte("short"))
	require.Error(t, err)
	require.Error(t, c.Post(ctx, domain.PostRequest{Topic: domain.Topic{1}, Payload: []byte("x")}))
}
