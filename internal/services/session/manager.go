package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/log"

	"vaspwire/internal/crypto"
	"vaspwire/internal/domain"
	"vaspwire/internal/protocol/signing"
	"vaspwire/internal/pubsub"
)

// Transport is the subset of the pubsub dispatcher sessions use.
type Transport interface {
	Send(ctx context.Context, topic domain.Topic, kind domain.EncryptionKind, key, payload []byte) error
	Subscribe(ctx context.Context, topic domain.Topic, kind domain.EncryptionKind, key []byte, l pubsub.Listener) (pubsub.ListenerID, error)
	Unsubscribe(ctx context.Context, topic domain.Topic, id pubsub.ListenerID) error
}

// Confirmer exchanges delivery acknowledgements.
type Confirmer interface {
	RegisterForConfirmation(ctx context.Context, msg domain.Message) error
	ConfirmReceipt(ctx context.Context, msg domain.Message) error
	Cancel(ctx context.Context, messageID string) error
}

type noConfirmations struct{}

func (noConfirmations) RegisterForConfirmation(context.Context, domain.Message) error { return nil }
func (noConfirmations) ConfirmReceipt(context.Context, domain.Message) error          { return nil }
func (noConfirmations) Cancel(context.Context, string) error                          { return nil }

// DefaultConfirmationGrace is how long the confirmations of a terminated
// session are still awaited.
const DefaultConfirmationGrace = time.Minute

// Config collects the collaborators of a Manager.
type Config struct {
	Identity  domain.Identity
	Transport Transport
	Resolver  domain.IdentityResolver
	// Optional.
	Confirmations Confirmer
	Snapshots     domain.SnapshotStore
	PostalAddress string
	LEI           string
	// ConfirmationGrace overrides DefaultConfirmationGrace.
	ConfirmationGrace time.Duration
}

// Manager is the registry of live sessions.
type Manager struct {
	transport Transport
	resolver  domain.IdentityResolver
	confirm   Confirmer
	grace     time.Duration
	snapshots domain.SnapshotStore
	signer    *signing.Signer
	verifier  *signing.Verifier
	handshake *crypto.HandshakeKey
	code      domain.VaspCode
	info      domain.VaspInfo
	log       log.Logger

	// ids holds every live session id, reserved before the session is built.
	ids mapset.Set[string]

	mu            sync.Mutex
	originators   map[string]*Session
	beneficiaries map[string]*Session
	changed       *broadcast
	added         uint64
	lastAdded     *Session
	vaspListener  pubsub.ListenerID
	started       bool
	onSession     func(*Session)
	onError       ErrorHandler
	// retiring holds confirmation ids of terminated sessions until their
	// grace timer fires.
	retiring map[*time.Timer][]string
}

// New builds a Manager for the local identity in cfg.
func New(cfg Config) (*Manager, error) {
	if cfg.Transport == nil || cfg.Resolver == nil {
		panic("session: nil transport or resolver")
	}
	hk, err := crypto.HandshakeKeyFromPrivate(cfg.Identity.HandshakePrivate)
	if err != nil {
		return nil, err
	}
	sk, err := crypto.SigningKeyFromPrivate(cfg.Identity.SigningPrivate)
	if err != nil {
		return nil, err
	}
	if cfg.Confirmations == nil {
		cfg.Confirmations = noConfirmations{}
	}
	if cfg.ConfirmationGrace <= 0 {
		cfg.ConfirmationGrace = DefaultConfirmationGrace
	}
	code := cfg.Identity.Code()
	pub := hk.PublicKey()
	return &Manager{
		transport: cfg.Transport,
		resolver:  cfg.Resolver,
		confirm:   cfg.Confirmations,
		grace:     cfg.ConfirmationGrace,
		snapshots: cfg.Snapshots,
		signer:    signing.NewSigner(sk),
		verifier:  signing.NewVerifier(cfg.Resolver),
		handshake: hk,
		code:      code,
		info: domain.VaspInfo{
			Name:          cfg.Identity.Name,
			Code:          code,
			Address:       cfg.Identity.Address,
			HandshakeKey:  pub.Slice(),
			PostalAddress: cfg.PostalAddress,
			LEI:           cfg.LEI,
		},
		log:           log.New("module", "session", "vasp", code),
		ids:           mapset.NewSet[string](),
		originators:   make(map[string]*Session),
		beneficiaries: make(map[string]*Session),
		changed:       newBroadcast(),
		retiring:      make(map[*time.Timer][]string),
	}, nil
}

// Code returns the local VASP code.
func (m *Manager) Code() domain.VaspCode { return m.code }

// OnBeneficiarySession sets a callback run for every session opened by a
// peer, after it is registered.
func (m *Manager) OnBeneficiarySession(f func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSession = f
}

// OnError sets the error handler given to new sessions.
func (m *Manager) OnError(h ErrorHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = h
}

func (m *Manager) defaultErrorHandler() ErrorHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onError
}

// Start listens for SessionRequests on the local VASP topic.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	priv := m.handshake.PrivateKey()
	id, err := m.transport.Subscribe(ctx, m.code.Topic(), domain.Asymmetric, priv.Slice(), m.onSessionRequest)
	if err != nil {
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", m.code.Topic(), err)
	}
	m.mu.Lock()
	m.vaspListener = id
	m.mu.Unlock()
	m.log.Info("Listening for sessions", "topic", m.code.Topic())
	return nil
}

// Close stops listening and detaches every session from the transport.
// Snapshots are kept so sessions can be restored later.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	started, lid := m.started, m.vaspListener
	m.started = false
	sessions := make([]*Session, 0, len(m.originators)+len(m.beneficiaries))
	for id, s := range m.originators {
		sessions = append(sessions, s)
		delete(m.originators, id)
	}
	for id, s := range m.beneficiaries {
		sessions = append(sessions, s)
		delete(m.beneficiaries, id)
	}
	var awaiting []string
	for t, ids := range m.retiring {
		if t.Stop() {
			awaiting = append(awaiting, ids...)
		}
		delete(m.retiring, t)
	}
	m.changed.signal()
	m.mu.Unlock()

	var errs []error
	if started {
		errs = append(errs, m.transport.Unsubscribe(ctx, m.code.Topic(), lid))
	}
	for _, s := range sessions {
		m.ids.Remove(s.id)
		errs = append(errs, s.detach(ctx))
		awaiting = append(awaiting, s.takeAwaiting()...)
	}
	errs = append(errs, m.cancelConfirmations(ctx, awaiting))
	return errors.Join(errs...)
}

// CreateOriginatorSession opens a session towards peer carrying the given
// transfer context. The session is subscribed and registered on return;
// call StartTransfer to send the SessionRequest.
func (m *Manager) CreateOriginatorSession(
	ctx context.Context,
	peer domain.VaspCode,
	info domain.TransferInfo,
) (*Session, error) {
	published, err := m.resolver.ResolveCode(ctx, peer)
	if err != nil {
		return nil, fmt.Errorf("resolve peer %s: %w", peer, err)
	}
	eph, err := crypto.GenerateHandshakeKey()
	if err != nil {
		return nil, err
	}
	secret, err := eph.SharedSecret(published.HandshakeKey)
	if err != nil {
		return nil, err
	}
	topic, err := crypto.RandomTopic()
	if err != nil {
		return nil, err
	}

	id := crypto.NewID()
	for !m.ids.Add(id) {
		id = crypto.NewID()
	}
	s := newSession(m, id, domain.RoleOriginator)
	s.ownTopic = topic
	s.peerCode = peer
	s.secret = secret
	s.sessionPub = eph.PublicKey()
	s.transfer = info.Clone()

	if err := m.activate(ctx, s); err != nil {
		return nil, err
	}
	s.persist()
	m.log.Info("Originator session created", "session", id, "peer", peer)
	return s, nil
}

// onSessionRequest is the listener on the local VASP topic.
func (m *Manager) onSessionRequest(ctx context.Context, rm *domain.RelayMessage) error {
	msg, err := m.verifier.Verify(ctx, rm.Payload)
	if err != nil {
		return err
	}
	switch req := msg.(type) {
	case *domain.SessionRequest:
		return m.openBeneficiarySession(ctx, req)
	case *domain.SessionReply, *domain.TransferRequest, *domain.TransferReply,
		*domain.TransferDispatch, *domain.TransferConfirmation, *domain.Termination:
		return domain.NewValidationError(msg, ErrUnexpectedMessage)
	default:
		return domain.NewValidationError(msg, ErrUnexpectedMessage)
	}
}

func (m *Manager) openBeneficiarySession(ctx context.Context, req *domain.SessionRequest) error {
	id := req.Header.SessionID
	sessionPub, err := crypto.ValidatePublicKey(req.Handshake.ECDHPublicKey)
	if err != nil {
		return domain.NewValidationError(req, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err))
	}
	if !m.ids.Add(id) {
		m.log.Debug("Duplicate session request", "session", id)
		if err := m.confirm.ConfirmReceipt(ctx, req); err != nil {
			m.log.Warn("Confirming receipt failed", "session", id, "err", err)
		}
		return nil
	}

	secret, err := m.handshake.SharedSecret(sessionPub)
	if err != nil {
		m.ids.Remove(id)
		return domain.NewValidationError(req, err)
	}
	topic, err := crypto.RandomTopic()
	if err != nil {
		m.ids.Remove(id)
		return err
	}

	if err := m.confirm.ConfirmReceipt(ctx, req); err != nil {
		m.log.Warn("Confirming receipt failed", "session", id, "err", err)
	}

	s := newSession(m, id, domain.RoleBeneficiary)
	s.ownTopic = topic
	s.peerCode = req.Sender.Code
	s.secret = secret
	s.sessionPub = sessionPub
	s.peerTopic = req.Handshake.TopicA
	sender := *req.Sender
	s.peerInfo = &sender
	s.last = domain.TypeSessionRequest
	s.history = []domain.Message{req}
	s.inbox = []domain.Message{req}

	if err := m.activate(ctx, s); err != nil {
		return err
	}
	s.persist()
	m.log.Info("Beneficiary session opened", "session", id, "peer", s.peerCode)

	m.mu.Lock()
	cb := m.onSession
	m.mu.Unlock()
	if cb != nil {
		cb(s)
	}
	return nil
}

// activate subscribes the session's own topic and then registers it. The id
// must already be reserved; it is released on failure.
func (m *Manager) activate(ctx context.Context, s *Session) error {
	lid, err := m.transport.Subscribe(ctx, s.ownTopic, domain.Symmetric, s.secret.Slice(), s.receive)
	if err != nil {
		m.ids.Remove(s.id)
		return fmt.Errorf("session %s: subscribe: %w", s.id, err)
	}
	s.mu.Lock()
	s.listener = lid
	s.mu.Unlock()

	m.mu.Lock()
	if s.role == domain.RoleOriginator {
		m.originators[s.id] = s
	} else {
		m.beneficiaries[s.id] = s
		m.added++
		m.lastAdded = s
	}
	m.changed.signal()
	m.mu.Unlock()
	return nil
}

// RestoreSession rebuilds a session from a snapshot without repeating the
// handshake.
func (m *Manager) RestoreSession(ctx context.Context, snap domain.Snapshot) (*Session, error) {
	if snap.Role != domain.RoleOriginator && snap.Role != domain.RoleBeneficiary {
		return nil, fmt.Errorf("restore %s: unknown role %q", snap.SessionID, snap.Role)
	}
	if snap.LastMessage == domain.TypeTermination {
		return nil, fmt.Errorf("restore %s: %w", snap.SessionID, ErrSessionClosed)
	}
	if !m.ids.Add(snap.SessionID) {
		return nil, fmt.Errorf("restore %s: %w", snap.SessionID, ErrSessionExists)
	}

	s := newSession(m, snap.SessionID, snap.Role)
	s.ownTopic = snap.OwnTopic
	s.peerTopic = snap.PeerTopic
	s.peerCode = snap.PeerCode
	s.secret = snap.SharedSecret
	s.sessionPub = snap.SessionPublicKey
	s.last = snap.LastMessage
	s.transfer = snap.Transfer.Clone()
	if snap.PeerInfo != nil {
		info := *snap.PeerInfo
		s.peerInfo = &info
	}
	for k, v := range snap.Attributes {
		s.attrs[k] = v
	}

	if err := m.activate(ctx, s); err != nil {
		return nil, err
	}
	m.log.Info("Session restored", "session", s.id, "role", s.role, "last", s.last)
	return s, nil
}

// RestoreAll restores every snapshot in the store and returns how many were
// restored.
func (m *Manager) RestoreAll(ctx context.Context) (int, error) {
	if m.snapshots == nil {
		return 0, nil
	}
	snaps, err := m.snapshots.ListSnapshots()
	if err != nil {
		return 0, err
	}
	var (
		n    int
		errs []error
	)
	for _, snap := range snaps {
		if _, err := m.RestoreSession(ctx, snap); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// GetOriginatorSession looks up an originator session.
func (m *Manager) GetOriginatorSession(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.originators[id]
	return s, ok
}

// GetBeneficiarySession looks up a beneficiary session.
func (m *Manager) GetBeneficiarySession(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.beneficiaries[id]
	return s, ok
}

// ActiveSessions returns the number of live sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.originators) + len(m.beneficiaries)
}

// Sessions returns every live session.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.originators)+len(m.beneficiaries))
	for _, s := range m.originators {
		out = append(out, s)
	}
	for _, s := range m.beneficiaries {
		out = append(out, s)
	}
	return out
}

// WaitForBeneficiarySession waits up to timeout for the beneficiary session
// with the given id to be opened.
func (m *Manager) WaitForBeneficiarySession(ctx context.Context, id string, timeout time.Duration) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := waitUntil(ctx, &m.mu, m.changed, timeout, func() bool {
		_, ok := m.beneficiaries[id]
		return ok
	})
	if !ok {
		return nil, false
	}
	return m.beneficiaries[id], true
}

// WaitForNewBeneficiarySession waits up to timeout for any beneficiary
// session opened after the call.
func (m *Manager) WaitForNewBeneficiarySession(ctx context.Context, timeout time.Duration) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := m.added
	if !waitUntil(ctx, &m.mu, m.changed, timeout, func() bool { return m.added > start }) {
		return nil, false
	}
	return m.lastAdded, true
}

// WaitForNoActiveSessions waits up to timeout until no session is live.
func (m *Manager) WaitForNoActiveSessions(ctx context.Context, timeout time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return waitUntil(ctx, &m.mu, m.changed, timeout, func() bool {
		return len(m.originators)+len(m.beneficiaries) == 0
	})
}

// RemoveSession removes a session, tears down its subscription, cancels the
// confirmations it still waits for and deletes its snapshot. Removing an unknown id is not an error.
func (m *Manager) RemoveSession(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.originators[id]
	if !ok {
		s, ok = m.beneficiaries[id]
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.remove(ctx, s, false)
}

// remove unregisters s. With terminated set the confirmations s still awaits
// stay registered for the grace period, otherwise they are cancelled now.
func (m *Manager) remove(ctx context.Context, s *Session, terminated bool) error {
	m.mu.Lock()
	if m.originators[s.id] != s && m.beneficiaries[s.id] != s {
		m.mu.Unlock()
		return nil
	}
	delete(m.originators, s.id)
	delete(m.beneficiaries, s.id)
	m.changed.signal()
	m.mu.Unlock()

	err := s.detach(ctx)
	if terminated {
		m.retire(s.takeAwaiting())
	} else {
		err = errors.Join(err, m.cancelConfirmations(ctx, s.takeAwaiting()))
	}
	m.ids.Remove(s.id)
	if m.snapshots != nil {
		s.persistMu.Lock()
		if derr := m.snapshots.DeleteSnapshot(s.id); derr != nil {
			err = errors.Join(err, derr)
		}
		s.persistMu.Unlock()
	}
	m.log.Info("Session removed", "session", s.id, "role", s.role)
	return err
}

// detach marks the session closed and drops its topic subscription.
func (s *Session) detach(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	lid := s.listener
	s.arrived.signal()
	s.mu.Unlock()
	return s.m.transport.Unsubscribe(ctx, s.ownTopic, lid)
}

// takeAwaiting returns and forgets the ids of messages sent by the session
// whose confirmation may still be pending.
func (s *Session) takeAwaiting() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.awaiting
	s.awaiting = nil
	return ids
}

// retire cancels the given confirmations once the grace period has passed.
func (m *Manager) retire(ids []string) {
	if len(ids) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var t *time.Timer
	t = time.AfterFunc(m.grace, func() {
		m.mu.Lock()
		delete(m.retiring, t)
		m.mu.Unlock()
		if err := m.cancelConfirmations(context.Background(), ids); err != nil {
			m.log.Debug("Cancel confirmations failed", "err", err)
		}
	})
	m.retiring[t] = ids
}

func (m *Manager) cancelConfirmations(ctx context.Context, ids []string) error {
	var errs []error
	for _, id := range ids {
		if err := m.confirm.Cancel(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("cancel confirmation %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
