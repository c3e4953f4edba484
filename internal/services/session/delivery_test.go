package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vaspwire/internal/domain"
	"vaspwire/internal/pubsub"
	"vaspwire/internal/relay/memrelay"
	"vaspwire/internal/services/confirmation"
	"vaspwire/internal/services/identity"
	"vaspwire/internal/services/session"
)

func TestSend_ReplyArrivesWhilePosting(t *testing.T) {
	ctx := context.Background()
	node := memrelay.New()
	dir, err := identity.NewDirectory()
	require.NoError(t, err)
	rec := &recordingTransport{}
	alice := newPartyWith(t, node, dir, newIdentity(t, "Alice", aliceAddr), nil, time.Hour, rec.wrap)
	bob := newParty(t, node, dir, newIdentity(t, "Bob", bobAddr), nil, time.Hour)

	bob.mgr.OnBeneficiarySession(func(b *session.Session) {
		require.NoError(t, b.Reply(ctx, domain.CodeOK))
	})
	// The peer answers and the reply is delivered before Send returns.
	rec.after = func() {
		bob.poll(t)
		alice.poll(t)
	}

	s, err := alice.mgr.CreateOriginatorSession(ctx, bob.id.Code(), transferInfo())
	require.NoError(t, err)
	var (
		mu   sync.Mutex
		errs []error
	)
	s.OnError(func(_ *session.Session, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	})
	require.NoError(t, s.StartTransfer(ctx))

	require.Equal(t, domain.TypeSessionReply, s.LastMessage())
	require.False(t, s.PeerTopic().IsZero())
	b, ok := bob.mgr.GetBeneficiarySession(s.ID())
	require.True(t, ok)
	require.Equal(t, b.OwnTopic(), s.PeerTopic())
	reply, ok := s.TakeIncomingMessage(ctx, 0)
	require.True(t, ok)
	require.Equal(t, domain.TypeSessionReply, reply.MessageType())
	require.Equal(t, []domain.MessageType{domain.TypeSessionRequest, domain.TypeSessionReply}, types(s.History()))
	require.Equal(t, 1, alice.confirmations())

	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, errs)
	require.Empty(t, alice.errors())
}

func TestSend_FailureRollsBack(t *testing.T) {
	ctx := context.Background()
	node := memrelay.New()
	dir, err := identity.NewDirectory()
	require.NoError(t, err)
	alice := newParty(t, node, dir, newIdentity(t, "Alice", aliceAddr), nil, time.Hour)
	bob := newParty(t, node, dir, newIdentity(t, "Bob", bobAddr), nil, time.Hour)

	s, err := alice.mgr.CreateOriginatorSession(ctx, bob.id.Code(), transferInfo())
	require.NoError(t, err)
	require.NoError(t, alice.disp.Close())

	require.Error(t, s.StartTransfer(ctx))
	require.Equal(t, domain.MessageType(""), s.LastMessage())
	require.Empty(t, s.History())
	require.Empty(t, alice.conf.Pending())
}

func TestRemoveSession_CancelsPendingConfirmations(t *testing.T) {
	ctx := context.Background()
	alice, bob := twoParties(t, time.Hour)

	s, err := alice.mgr.CreateOriginatorSession(ctx, bob.id.Code(), transferInfo())
	require.NoError(t, err)
	require.NoError(t, s.StartTransfer(ctx))
	require.Len(t, alice.conf.Pending(), 1)
	require.Len(t, alice.disp.Topics(), 3)

	require.NoError(t, alice.mgr.RemoveSession(ctx, s.ID()))
	require.Empty(t, alice.conf.Pending())
	require.Len(t, alice.disp.Topics(), 1, "only the vasp topic stays subscribed")
}

func TestTerminate_RetiresConfirmationsAfterGrace(t *testing.T) {
	ctx := context.Background()
	node := memrelay.New()
	dir, err := identity.NewDirectory()
	require.NoError(t, err)
	alice := newPartyWith(t, node, dir, newIdentity(t, "Alice", aliceAddr), nil, time.Hour, func(cfg *session.Config) {
		cfg.ConfirmationGrace = 20 * time.Millisecond
	})
	bob := newParty(t, node, dir, newIdentity(t, "Bob", bobAddr), nil, time.Hour)

	s, err := alice.mgr.CreateOriginatorSession(ctx, bob.id.Code(), transferInfo())
	require.NoError(t, err)
	require.NoError(t, s.StartTransfer(ctx))
	bob.poll(t)
	b, ok := bob.mgr.GetBeneficiarySession(s.ID())
	require.True(t, ok)
	require.NoError(t, b.Reply(ctx, domain.CodeOK))
	alice.poll(t)
	require.Empty(t, alice.conf.Pending())

	require.NoError(t, s.RequestTransfer(ctx))
	require.NoError(t, s.Terminate(ctx, domain.CodeOK))
	require.Len(t, alice.conf.Pending(), 2)

	// The TransferRequest is given up, the Termination is still awaited.
	require.Eventually(t, func() bool { return len(alice.conf.Pending()) == 1 }, 5*time.Second, 10*time.Millisecond)
	bob.poll(t)
	alice.poll(t)
	require.Empty(t, alice.conf.Pending())
	require.Equal(t, domain.TypeTermination, alice.lastConfirmed().MessageType())
}

func TestTerminate_BeforeReplyStaysLocal(t *testing.T) {
	ctx := context.Background()
	node := memrelay.New()
	dir, err := identity.NewDirectory()
	require.NoError(t, err)
	rec := &recordingTransport{}
	alice := newPartyWith(t, node, dir, newIdentity(t, "Alice", aliceAddr), nil, time.Hour, rec.wrap)
	bob := newParty(t, node, dir, newIdentity(t, "Bob", bobAddr), nil, time.Hour)

	s, err := alice.mgr.CreateOriginatorSession(ctx, bob.id.Code(), transferInfo())
	require.NoError(t, err)
	require.NoError(t, s.StartTransfer(ctx))
	require.Len(t, rec.posts, 1)

	require.NoError(t, s.Terminate(ctx, domain.CodeFailed))
	require.Len(t, rec.posts, 1, "nothing is posted without a peer topic")
	for _, p := range rec.posts {
		require.False(t, p.topic.IsZero())
	}
	require.True(t, s.Closed())
	require.Zero(t, alice.mgr.ActiveSessions())
	require.Len(t, alice.disp.Topics(), 1)
	require.Empty(t, alice.conf.Pending())

	bob.poll(t)
	b, ok := bob.mgr.GetBeneficiarySession(s.ID())
	require.True(t, ok)
	require.Equal(t, []domain.MessageType{domain.TypeSessionRequest}, types(b.History()))
	require.Empty(t, bob.errors())
}

func TestDuplicateSessionRequest_ConfirmedAgain(t *testing.T) {
	ctx := context.Background()
	node := memrelay.New()
	dir, err := identity.NewDirectory()
	require.NoError(t, err)
	rec := &recordingTransport{}
	alice := newPartyWith(t, node, dir, newIdentity(t, "Alice", aliceAddr), nil, time.Hour, rec.wrap)
	bob := newParty(t, node, dir, newIdentity(t, "Bob", bobAddr), nil, time.Hour)

	s, err := alice.mgr.CreateOriginatorSession(ctx, bob.id.Code(), transferInfo())
	require.NoError(t, err)
	require.NoError(t, s.StartTransfer(ctx))
	require.Len(t, rec.posts, 1)

	// Count acknowledgements on a filter of its own, since the confirmation
	// service drops its filter after the first.
	rc, err := node.Client()
	require.NoError(t, err)
	t.Cleanup(rc.Close)
	watcher := pubsub.New(rc, pubsub.Config{PollInterval: time.Hour})
	t.Cleanup(func() { _ = watcher.Close() })
	acks := 0
	msgID := s.History()[0].Base().Header.MessageID
	_, err = watcher.Subscribe(ctx, confirmation.Topic(msgID), domain.Asymmetric, alice.id.HandshakePrivate.Slice(),
		func(context.Context, *domain.RelayMessage) error {
			acks++
			return nil
		})
	require.NoError(t, err)

	first := rec.posts[0]
	require.NoError(t, alice.disp.Send(ctx, first.topic, first.kind, first.key, first.payload))
	bob.poll(t)

	require.Equal(t, 1, bob.mgr.ActiveSessions())
	b, ok := bob.mgr.GetBeneficiarySession(s.ID())
	require.True(t, ok)
	require.Len(t, b.History(), 1)
	require.NoError(t, watcher.Poll(ctx))
	require.Equal(t, 2, acks)
	require.Empty(t, bob.errors())
}
