package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"vaspwire/internal/crypto"
	"vaspwire/internal/domain"
	"vaspwire/internal/pubsub"
	"vaspwire/internal/relay/memrelay"
	"vaspwire/internal/services/confirmation"
	"vaspwire/internal/services/identity"
	"vaspwire/internal/services/session"
)

// party is one VASP wired to a shared in-memory relay.
type party struct {
	id   domain.Identity
	disp *pubsub.Dispatcher
	conf *confirmation.Service
	mgr  *session.Manager

	mu        sync.Mutex
	errs      []error
	confirmed []domain.Message
}

func newIdentity(t *testing.T, name, addr string) domain.Identity {
	t.Helper()
	hk, err := crypto.GenerateHandshakeKey()
	require.NoError(t, err)
	sk, err := crypto.GenerateSigningKey()
	require.NoError(t, err)
	return domain.Identity{
		Name:             name,
		Address:          common.HexToAddress(addr),
		HandshakePrivate: hk.PrivateKey(),
		HandshakePublic:  hk.PublicKey(),
		SigningPrivate:   sk.PrivateKey(),
		SigningPublic:    sk.PublicKey(),
	}
}

func newParty(
	t *testing.T,
	node *memrelay.Node,
	dir *identity.Directory,
	id domain.Identity,
	snapshots domain.SnapshotStore,
	interval time.Duration,
) *party {
	t.Helper()
	return newPartyWith(t, node, dir, id, snapshots, interval, nil)
}

// newPartyWith is newParty with a hook that may adjust the manager config,
// for instance to wrap its transport.
func newPartyWith(
	t *testing.T,
	node *memrelay.Node,
	dir *identity.Directory,
	id domain.Identity,
	snapshots domain.SnapshotStore,
	interval time.Duration,
	tweak func(*session.Config),
) *party {
	t.Helper()
	require.NoError(t, dir.Register(identity.Published(id)))

	rc, err := node.Client()
	require.NoError(t, err)
	t.Cleanup(rc.Close)

	p := &party{id: id}
	p.disp = pubsub.New(rc, pubsub.Config{PollInterval: interval})
	p.disp.OnError(func(_ domain.Topic, err error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.errs = append(p.errs, err)
	})
	p.conf = confirmation.New(true, p.disp, dir, id.HandshakePrivate)
	p.conf.OnConfirmed(func(m domain.Message) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.confirmed = append(p.confirmed, m)
	})
	cfg := session.Config{
		Identity:      id,
		Transport:     p.disp,
		Resolver:      dir,
		Confirmations: p.conf,
		Snapshots:     snapshots,
	}
	if tweak != nil {
		tweak(&cfg)
	}
	p.mgr, err = session.New(cfg)
	require.NoError(t, err)
	require.NoError(t, p.mgr.Start(context.Background()))
	t.Cleanup(func() { _ = p.disp.Close() })
	t.Cleanup(func() { _ = p.mgr.Close(context.Background()) })
	return p
}

// post is one Send seen by a recordingTransport.
type post struct {
	topic   domain.Topic
	kind    domain.EncryptionKind
	key     []byte
	payload []byte
}

// recordingTransport remembers every post and runs after, once, following
// the first successful one.
type recordingTransport struct {
	session.Transport

	posts []post
	after func()
}

func (r *recordingTransport) Send(ctx context.Context, topic domain.Topic, kind domain.EncryptionKind, key, payload []byte) error {
	if err := r.Transport.Send(ctx, topic, kind, key, payload); err != nil {
		return err
	}
	r.posts = append(r.posts, post{topic: topic, kind: kind, key: key, payload: payload})
	if f := r.after; f != nil {
		r.after = nil
		f()
	}
	return nil
}

// wrap installs r around the transport of a manager config.
func (r *recordingTransport) wrap(cfg *session.Config) {
	r.Transport = cfg.Transport
	cfg.Transport = r
}

func (p *party) poll(t *testing.T) {
	t.Helper()
	require.NoError(t, p.disp.Poll(context.Background()))
}

func (p *party) errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.errs...)
}

func (p *party) confirmations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.confirmed)
}

func (p *party) lastConfirmed() domain.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.confirmed) == 0 {
		return nil
	}
	return p.confirmed[len(p.confirmed)-1]
}

const (
	aliceAddr = "0x6befaf0656b953b188a0ee3bf3db03d07dface61"
	bobAddr   = "0x08fda931d64b17c3acffb35c1b3902e0bbb4ee5c"
)

func twoParties(t *testing.T, interval time.Duration) (*party, *party) {
	t.Helper()
	node := memrelay.New()
	dir, err := identity.NewDirectory()
	require.NoError(t, err)
	alice := newParty(t, node, dir, newIdentity(t, "Alice VASP", aliceAddr), nil, interval)
	bob := newParty(t, node, dir, newIdentity(t, "Bob VASP", bobAddr), nil, interval)
	return alice, bob
}
