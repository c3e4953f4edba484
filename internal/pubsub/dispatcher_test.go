package pubsub_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vaspwire/internal/domain"
	"vaspwire/internal/pubsub"
	"vaspwire/internal/relay/memrelay"
)

// recordingRelay counts the filter ids polled and deleted.
type recordingRelay struct {
	domain.RelayClient

	mu      sync.Mutex
	polled  map[string]int
	deleted map[string]bool
	fail    error
}

func newRecordingRelay(t *testing.T) *recordingRelay {
	t.Helper()
	c, err := memrelay.New().Client()
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return &recordingRelay{RelayClient: c, polled: map[string]int{}, deleted: map[string]bool{}}
}

func (r *recordingRelay) FilterMessages(ctx context.Context, id string) ([]*domain.RelayMessage, error) {
	r.mu.Lock()
	r.polled[id]++
	fail := r.fail
	r.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return r.RelayClient.FilterMessages(ctx, id)
}

func (r *recordingRelay) DeleteMessageFilter(ctx context.Context, id string) error {
	r.mu.Lock()
	r.deleted[id] = true
	r.mu.Unlock()
	return r.RelayClient.DeleteMessageFilter(ctx, id)
}

func (r *recordingRelay) pollCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.polled {
		n += c
	}
	return n
}

func (r *recordingRelay) deletedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deleted)
}

type inbox struct {
	mu   sync.Mutex
	msgs []string
}

func (b *inbox) listener(_ context.Context, m *domain.RelayMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, string(m.Payload))
	return nil
}

func (b *inbox) got() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.msgs...)
}

var (
	topic  = domain.Topic{0xca, 0xfe, 0x00, 0x01}
	secret = []byte("0123456789abcdef0123456789abcdef")
)

func TestTwoListeners_RemoveOneKeepsOther(t *testing.T) {
	ctx := context.Background()
	relay := newRecordingRelay(t)
	d := pubsub.New(relay, pubsub.Config{PollInterval: time.Hour})
	defer d.Close()

	var a, b inbox
	idA, err := d.Subscribe(ctx, topic, domain.Symmetric, secret, a.listener)
	require.NoError(t, err)
	idB, err := d.Subscribe(ctx, topic, domain.Symmetric, secret, b.listener)
	require.NoError(t, err)
	require.NotEqual(t, idA, idB)

	require.NoError(t, d.Send(ctx, topic, domain.Symmetric, secret, []byte("one")))
	require.NoError(t, d.Poll(ctx))
	require.Equal(t, []string{"one"}, a.got())
	require.Equal(t, []string{"one"}, b.got())

	require.NoError(t, d.Unsubscribe(ctx, topic, idA))
	require.Zero(t, relay.deletedCount())

	require.NoError(t, d.Send(ctx, topic, domain.Symmetric, secret, []byte("two")))
	require.NoError(t, d.Poll(ctx))
	require.Equal(t, []string{"one"}, a.got())
	require.Equal(t, []string{"one", "two"}, b.got())

	require.NoError(t, d.Unsubscribe(ctx, topic, idB))
	require.Equal(t, 1, relay.deletedCount())
	require.Empty(t, d.Topics())

	before := relay.pollCount()
	require.NoError(t, d.Poll(ctx))
	require.Equal(t, before, relay.pollCount(), "torn down filter must not be polled")

	require.ErrorIs(t, d.Unsubscribe(ctx, topic, idB), pubsub.ErrNotSubscribed)
}

func TestListenerErrorIsIsolated(t *testing.T) {
	ctx := context.Background()
	d := pubsub.New(newRecordingRelay(t), pubsub.Config{PollInterval: time.Hour})
	defer d.Close()

	var (
		mu     sync.Mutex
		errs   []error
		ok     inbox
		boom   = errors.New("boom")
		failed int
	)
	d.OnError(func(tp domain.Topic, err error) {
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, topic, tp)
		errs = append(errs, err)
	})
	_, err := d.Subscribe(ctx, topic, domain.Symmetric, secret, func(_ context.Context, m *domain.RelayMessage) error {
		if string(m.Payload) == "bad" {
			failed++
			return boom
		}
		return nil
	})
	require.NoError(t, err)
	_, err = d.Subscribe(ctx, topic, domain.Symmetric, secret, ok.listener)
	require.NoError(t, err)

	for _, p := range []string{"good", "bad", "after"} {
		require.NoError(t, d.Send(ctx, topic, domain.Symmetric, secret, []byte(p)))
	}
	require.NoError(t, d.Poll(ctx))

	require.Equal(t, []string{"good", "bad", "after"}, ok.got())
	require.Equal(t, 1, failed)
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], boom)
}

func TestUnsubscribeFromInsideListener(t *testing.T) {
	ctx := context.Background()
	d := pubsub.New(newRecordingRelay(t), pubsub.Config{PollInterval: time.Hour})
	defer d.Close()

	var (
		id    pubsub.ListenerID
		calls int
	)
	id, err := d.Subscribe(ctx, topic, domain.Symmetric, secret, func(ctx context.Context, _ *domain.RelayMessage) error {
		calls++
		return d.Unsubscribe(ctx, topic, id)
	})
	require.NoError(t, err)
	require.NoError(t, d.Send(ctx, topic, domain.Symmetric, secret, []byte("x")))
	require.NoError(t, d.Poll(ctx))
	require.Equal(t, 1, calls)
	require.Empty(t, d.Topics())
}

func TestLoop_DeliversAndShutsDown(t *testing.T) {
	ctx := context.Background()
	relay := newRecordingRelay(t)
	d := pubsub.New(relay, pubsub.Config{PollInterval: 10 * time.Millisecond})

	var b inbox
	_, err := d.Subscribe(ctx, topic, domain.Symmetric, secret, b.listener)
	require.NoError(t, err)
	d.Start()
	require.Equal(t, pubsub.Running, d.State())

	require.NoError(t, d.Send(ctx, topic, domain.Symmetric, secret, []byte("hi")))
	require.Eventually(t, func() bool { return len(b.got()) == 1 }, 2*time.Second, 5*time.Millisecond)

	d.Shutdown()
	require.True(t, d.AwaitTermination(time.Second))
	require.Equal(t, pubsub.Terminated, d.State())

	_, err = d.Subscribe(ctx, domain.Topic{9}, domain.Symmetric, secret, b.listener)
	require.ErrorIs(t, err, pubsub.ErrTerminated)
	require.NoError(t, d.Close())
}

func TestLoop_SurvivesRelayFailures(t *testing.T) {
	ctx := context.Background()
	relay := newRecordingRelay(t)
	relay.fail = errors.New("connection reset")
	d := pubsub.New(relay, pubsub.Config{PollInterval: 5 * time.Millisecond})
	defer d.Close()

	var b inbox
	_, err := d.Subscribe(ctx, topic, domain.Symmetric, secret, b.listener)
	require.NoError(t, err)
	d.Start()

	require.Eventually(t, func() bool { return relay.pollCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, pubsub.Running, d.State())

	relay.mu.Lock()
	relay.fail = nil
	relay.mu.Unlock()
	require.NoError(t, d.Send(ctx, topic, domain.Symmetric, secret, []byte("late")))
	require.Eventually(t, func() bool { return len(b.got()) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestAwaitTermination_TimesOutWhileRunning(t *testing.T) {
	d := pubsub.New(newRecordingRelay(t), pubsub.Config{PollInterval: time.Hour})
	d.Start()
	require.False(t, d.AwaitTermination(20*time.Millisecond))
	require.NoError(t, d.Close())
	require.True(t, d.AwaitTermination(0))
}

func TestAsymmetricSend(t *testing.T) {
	ctx := context.Background()
	d := pubsub.New(newRecordingRelay(t), pubsub.Config{PollInterval: time.Hour})
	defer d.Close()

	priv := make([]byte, 32)
	priv[31] = 1
	// Public key of the scalar 1 is the curve generator.
	pub := append([]byte{4},
		append(
			mustHex("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798"),
			mustHex("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8")...,
		)...,
	)

	var b inbox
	_, err := d.Subscribe(ctx, topic, domain.Asymmetric, priv, b.listener)
	require.NoError(t, err)
	require.NoError(t, d.Send(ctx, topic, domain.Asymmetric, pub, []byte("sealed")))
	require.NoError(t, d.Poll(ctx))
	require.Equal(t, []string{"sealed"}, b.got())
}
