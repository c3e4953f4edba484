package confirmation

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"vaspwire/internal/crypto"
	"vaspwire/internal/domain"
	"vaspwire/internal/pubsub"
)

// Transport is the subset of the pubsub dispatcher the service needs.
type Transport interface {
	Send(ctx context.Context, topic domain.Topic, kind domain.EncryptionKind, key, payload []byte) error
	Subscribe(ctx context.Context, topic domain.Topic, kind domain.EncryptionKind, key []byte, l pubsub.Listener) (pubsub.ListenerID, error)
	Unsubscribe(ctx context.Context, topic domain.Topic, id pubsub.ListenerID) error
}

type pending struct {
	topic    domain.Topic
	listener pubsub.ListenerID
	msg      domain.Message
}

// Service tracks messages awaiting acknowledgement.
type Service struct {
	enabled   bool
	transport Transport
	resolver  domain.IdentityResolver
	key       domain.PrivateKey
	log       log.Logger

	mu          sync.Mutex
	pending     map[string]pending
	onConfirmed func(domain.Message)
}

// New returns a confirmation service. key is the local handshake private key.
func New(enabled bool, t Transport, r domain.IdentityResolver, key domain.PrivateKey) *Service {
	if t == nil || r == nil {
		panic("confirmation: nil transport or resolver")
	}
	return &Service{
		enabled:   enabled,
		transport: t,
		resolver:  r,
		key:       key,
		log:       log.New("module", "confirmation"),
		pending:   make(map[string]pending),
	}
}

// Enabled reports whether confirmations are exchanged.
func (s *Service) Enabled() bool { return s.enabled }

// OnConfirmed sets the callback run with the original message once its
// acknowledgement arrives.
func (s *Service) OnConfirmed(f func(domain.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConfirmed = f
}

// Topic returns the acknowledgement topic for a message id.
func Topic(messageID string) domain.Topic {
	if b, err := hex.DecodeString(messageID); err == nil && len(b) > 0 {
		return crypto.DeriveTopic(b)
	}
	return crypto.DeriveTopic([]byte(messageID))
}

// RegisterForConfirmation waits for the acknowledgement of msg, which must
// already carry its message id.
func (s *Service) RegisterForConfirmation(ctx context.Context, msg domain.Message) error {
	if !s.enabled {
		return nil
	}
	id := msg.Base().Header.MessageID
	if id == "" {
		return fmt.Errorf("confirmation: message has no id")
	}
	topic := Topic(id)

	s.mu.Lock()
	if _, dup := s.pending[id]; dup {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	lid, err := s.transport.Subscribe(ctx, topic, domain.Asymmetric, s.key.Slice(), func(ctx context.Context, _ *domain.RelayMessage) error {
		s.confirmed(ctx, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("register confirmation %s: %w", id, err)
	}

	s.mu.Lock()
	s.pending[id] = pending{topic: topic, listener: lid, msg: msg}
	s.mu.Unlock()
	s.log.Trace("Awaiting confirmation", "msgid", id, "topic", topic)
	return nil
}

func (s *Service) confirmed(ctx context.Context, id string) {
	s.mu.Lock()
	p, ok := s.pending[id]
	delete(s.pending, id)
	cb := s.onConfirmed
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.transport.Unsubscribe(ctx, p.topic, p.listener); err != nil {
		s.log.Warn("Dropping confirmation filter failed", "msgid", id, "err", err)
	}
	s.log.Debug("Message confirmed", "msgid", id, "type", p.msg.MessageType().Name())
	if cb != nil {
		cb(p.msg)
	}
}

// ConfirmReceipt acknowledges msg to its sender.
func (s *Service) ConfirmReceipt(ctx context.Context, msg domain.Message) error {
	if !s.enabled {
		return nil
	}
	b := msg.Base()
	if b.Sender == nil {
		return domain.NewValidationError(msg, domain.ErrMissingSender)
	}
	peer, err := s.resolver.ResolveCode(ctx, b.Sender.Code)
	if err != nil {
		return domain.NewValidationError(msg, err)
	}
	id := b.Header.MessageID
	if err := s.transport.Send(ctx, Topic(id), domain.Asymmetric, peer.HandshakeKey.Slice(), []byte(id)); err != nil {
		return fmt.Errorf("confirm %s: %w", id, err)
	}
	return nil
}

// Cancel stops waiting for the acknowledgement of a message id.
func (s *Service) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	p, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.transport.Unsubscribe(ctx, p.topic, p.listener)
}

// Pending returns the ids of messages still awaiting acknowledgement.
func (s *Service) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.pending))
	for id := range s.pending {
		out = append(out, id)
	}
	return out
}
