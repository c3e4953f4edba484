package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vaspwire/internal/crypto"
	"vaspwire/internal/domain"
	"vaspwire/internal/protocol/message"
	"vaspwire/internal/pubsub"
)

// MessageHandler is called with every message a session accepts from its peer.
type MessageHandler func(s *Session, msg domain.Message)

// ErrorHandler is called with errors raised while processing a session's
// incoming messages, including *SequenceError.
type ErrorHandler func(s *Session, err error)

// Session is one side of one transfer.
type Session struct {
	m *Manager

	id         string
	role       domain.Role
	ownTopic   domain.Topic
	peerCode   domain.VaspCode
	secret     domain.SharedSecret
	sessionPub domain.PublicKey

	sendMu    sync.Mutex
	persistMu sync.Mutex

	mu        sync.Mutex
	peerTopic domain.Topic
	last      domain.MessageType
	transfer  domain.TransferInfo
	peerInfo  *domain.VaspInfo
	history   []domain.Message
	inbox     []domain.Message
	arrived   *broadcast
	attrs     map[string]string
	listener  pubsub.ListenerID
	awaiting  []string
	closed    bool
	onMessage MessageHandler
	onError   ErrorHandler
}

func newSession(m *Manager, id string, role domain.Role) *Session {
	return &Session{
		m:       m,
		id:      id,
		role:    role,
		arrived: newBroadcast(),
		attrs:   make(map[string]string),
		onError: m.defaultErrorHandler(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Role returns the side this session plays.
func (s *Session) Role() domain.Role { return s.role }

// OwnTopic returns the topic this session listens on.
func (s *Session) OwnTopic() domain.Topic { return s.ownTopic }

// PeerCode returns the VASP code of the peer.
func (s *Session) PeerCode() domain.VaspCode { return s.peerCode }

// PeerTopic returns the topic the peer listens on, zero until known.
func (s *Session) PeerTopic() domain.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerTopic
}

// LastMessage returns the type of the last message sent or received.
func (s *Session) LastMessage() domain.MessageType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Transfer returns a copy of the accumulated transfer context.
func (s *Session) Transfer() domain.TransferInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfer.Clone()
}

// PeerInfo returns the peer's identity block once a message from it arrived.
func (s *Session) PeerInfo() *domain.VaspInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peerInfo == nil {
		return nil
	}
	info := *s.peerInfo
	return &info
}

// History returns every message sent or received, in order.
func (s *Session) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.history...)
}

// Closed reports whether the session was removed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SetAttribute stores a session-scoped value.
func (s *Session) SetAttribute(key, value string) {
	s.mu.Lock()
	s.attrs[key] = value
	s.mu.Unlock()
	s.persist()
}

// Attribute returns a session-scoped value.
func (s *Session) Attribute(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[key]
	return v, ok
}

// OnMessage sets the handler for accepted incoming messages.
func (s *Session) OnMessage(h MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = h
}

// OnError sets the handler for errors on incoming messages.
func (s *Session) OnError(h ErrorHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = h
}

// TakeIncomingMessage removes and returns the oldest undelivered incoming
// message, waiting up to timeout for one to arrive.
func (s *Session) TakeIncomingMessage(ctx context.Context, timeout time.Duration) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !waitUntil(ctx, &s.mu, s.arrived, timeout, func() bool { return len(s.inbox) > 0 }) {
		return nil, false
	}
	msg := s.inbox[0]
	s.inbox[0] = nil
	s.inbox = s.inbox[1:]
	return msg, true
}

// Snapshot returns the persistable state of the session.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := domain.Snapshot{
		SessionID:        s.id,
		Role:             s.role,
		OwnTopic:         s.ownTopic,
		PeerTopic:        s.peerTopic,
		PeerCode:         s.peerCode,
		SharedSecret:     s.secret,
		SessionPublicKey: s.sessionPub,
		LastMessage:      s.last,
		Transfer:         s.transfer.Clone(),
		Attributes:       make(map[string]string, len(s.attrs)),
	}
	if s.peerInfo != nil {
		info := *s.peerInfo
		snap.PeerInfo = &info
	}
	for k, v := range s.attrs {
		snap.Attributes[k] = v
	}
	return snap
}

// Send completes, signs and posts msg to the peer. The header's session id,
// sender block and (if unset) message id are filled in, and the transfer
// context accumulated so far is copied into transfer messages.
//
// The session state advances before the message is posted, so a reply that
// arrives while the post is still in flight is accepted. A failed post rolls
// the state back. A Termination sent before the peer topic is known only
// removes the session locally.
func (s *Session) Send(ctx context.Context, msg domain.Message) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	var peerKey domain.PublicKey
	if msg.MessageType() == domain.TypeSessionRequest {
		peer, err := s.m.resolver.ResolveCode(ctx, s.peerCode)
		if err != nil {
			return fmt.Errorf("session %s: resolve peer: %w", s.id, err)
		}
		peerKey = peer.HandshakeKey
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !allowed(s.role, s.last, msg.MessageType(), true) {
		err := &SequenceError{SessionID: s.id, Role: s.role, Last: s.last, Got: msg.MessageType(), Outgoing: true}
		s.mu.Unlock()
		return err
	}
	s.prepareLocked(msg)
	topic, kind, key := s.peerTopic, domain.Symmetric, s.secret.Slice()
	if msg.MessageType() == domain.TypeSessionRequest {
		topic, kind, key = s.peerCode.Topic(), domain.Asymmetric, peerKey.Slice()
	}
	if topic.IsZero() && msg.MessageType() == domain.TypeTermination {
		s.mu.Unlock()
		s.m.log.Debug("Peer topic unknown, terminating locally", "session", s.id, "role", s.role)
		return s.m.remove(ctx, s, false)
	}
	if err := message.Validate(msg); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("session %s: %w", s.id, err)
	}
	payload, err := s.m.signer.Sign(msg)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	undo := s.commitLocked(msg)
	s.mu.Unlock()

	id := msg.Base().Header.MessageID
	if err := s.m.confirm.RegisterForConfirmation(ctx, msg); err != nil {
		s.rollback(msg, undo)
		return err
	}
	if err := s.m.transport.Send(ctx, topic, kind, key, payload); err != nil {
		if cerr := s.m.confirm.Cancel(ctx, id); cerr != nil {
			s.m.log.Debug("Cancel confirmation failed", "session", s.id, "msgid", id, "err", cerr)
		}
		s.rollback(msg, undo)
		return fmt.Errorf("session %s: send %s: %w", s.id, msg.MessageType().Name(), err)
	}
	s.m.log.Debug("Message sent", "session", s.id, "role", s.role, "type", msg.MessageType().Name(), "msgid", id)

	if msg.MessageType() == domain.TypeTermination {
		return s.m.remove(ctx, s, true)
	}
	s.persist()
	return nil
}

// sendUndo is the state an outgoing message replaced.
type sendUndo struct {
	last     domain.MessageType
	transfer domain.TransferInfo
	history  int
	awaiting int
}

// commitLocked records msg as sent. The id of every message except a
// Termination is kept until the session is removed, so that its pending
// confirmation can be cancelled then.
func (s *Session) commitLocked(msg domain.Message) sendUndo {
	undo := sendUndo{last: s.last, transfer: s.transfer.Clone(), history: len(s.history), awaiting: len(s.awaiting)}
	s.last = msg.MessageType()
	if info, ok := domain.TransferInfoOf(msg); ok {
		s.transfer.Update(*info)
	}
	s.history = append(s.history, msg)
	if msg.MessageType() != domain.TypeTermination {
		s.awaiting = append(s.awaiting, msg.Base().Header.MessageID)
	}
	return undo
}

// rollback reverts commitLocked unless something else changed the session
// since.
func (s *Session) rollback(msg domain.Message, undo sendUndo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.history) != undo.history+1 || s.history[undo.history] != msg {
		return
	}
	s.last = undo.last
	s.transfer = undo.transfer
	s.history[undo.history] = nil
	s.history = s.history[:undo.history]
	s.awaiting = s.awaiting[:undo.awaiting]
}

// prepareLocked applies the outgoing transform rules of each message type.
func (s *Session) prepareLocked(msg domain.Message) {
	b := msg.Base()
	if b.Header.MessageID == "" {
		b.Header.MessageID = crypto.NewID()
	}
	if b.Header.Code == "" {
		b.Header.Code = domain.CodeOK
	}
	b.Header.SessionID = s.id
	info := s.m.info
	b.Sender = &info

	switch m := msg.(type) {
	case *domain.SessionRequest:
		m.Handshake.TopicA = s.ownTopic
		m.Handshake.ECDHPublicKey = s.sessionPub.Slice()
	case *domain.SessionReply:
		m.Handshake.TopicB = s.ownTopic
	case *domain.TransferRequest:
		m.TransferInfo.Merge(s.transfer)
	case *domain.TransferReply:
		m.TransferInfo.Merge(s.transfer)
	case *domain.TransferDispatch:
		m.TransferInfo.Merge(s.transfer)
	case *domain.TransferConfirmation:
		m.TransferInfo.Merge(s.transfer)
	case *domain.Termination:
	}
}

// receive is the topic listener of the session.
func (s *Session) receive(ctx context.Context, rm *domain.RelayMessage) error {
	msg, err := s.m.verifier.Verify(ctx, rm.Payload)
	if err != nil {
		return err
	}
	return s.accept(ctx, msg)
}

func (s *Session) accept(ctx context.Context, msg domain.Message) error {
	b := msg.Base()
	if b.Header.SessionID != s.id {
		return domain.NewValidationError(msg, ErrWrongSession)
	}
	if b.Sender.Code != s.peerCode {
		return domain.NewValidationError(msg, ErrWrongPeer)
	}

	if err := s.m.confirm.ConfirmReceipt(ctx, msg); err != nil {
		s.m.log.Warn("Confirming receipt failed", "session", s.id, "msgid", b.Header.MessageID, "err", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if !allowed(s.role, s.last, msg.MessageType(), false) {
		err := &SequenceError{SessionID: s.id, Role: s.role, Last: s.last, Got: msg.MessageType()}
		s.mu.Unlock()
		s.fail(err)
		return nil
	}
	switch m := msg.(type) {
	case *domain.SessionReply:
		s.peerTopic = m.Handshake.TopicB
	case *domain.TransferRequest:
		s.transfer.Update(m.TransferInfo)
	case *domain.TransferReply:
		s.transfer.Update(m.TransferInfo)
	case *domain.TransferDispatch:
		s.transfer.Update(m.TransferInfo)
	case *domain.TransferConfirmation:
		s.transfer.Update(m.TransferInfo)
	case *domain.SessionRequest, *domain.Termination:
	}
	sender := *b.Sender
	s.peerInfo = &sender
	s.last = msg.MessageType()
	s.history = append(s.history, msg)
	s.inbox = append(s.inbox, msg)
	s.arrived.signal()
	h := s.onMessage
	s.mu.Unlock()

	s.m.log.Debug("Message received", "session", s.id, "role", s.role, "type", msg.MessageType().Name(), "msgid", b.Header.MessageID)
	if h != nil {
		h(s, msg)
	}
	if msg.MessageType() == domain.TypeTermination {
		return s.m.remove(ctx, s, true)
	}
	s.persist()
	return nil
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	h := s.onError
	s.mu.Unlock()
	if h != nil {
		h(s, err)
		return
	}
	s.m.log.Warn("Session error", "session", s.id, "err", err)
}

func (s *Session) persist() {
	if s.m.snapshots == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if s.Closed() {
		return
	}
	snap := s.Snapshot()
	snap.Touch()
	if err := s.m.snapshots.SaveSnapshot(snap); err != nil {
		s.m.log.Warn("Saving session snapshot failed", "session", s.id, "err", err)
	}
}
