package pubsub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"vaspwire/internal/domain"
)

// Defaults for Config fields left at zero.
const (
	DefaultPollInterval = time.Second
	DefaultTTL          = 60
	DefaultPowTime      = 2
	DefaultPowTarget    = 2.01
)

const teardownTimeout = 5 * time.Second

var (
	// ErrNotSubscribed is returned by Unsubscribe for unknown topics or listeners.
	ErrNotSubscribed = errors.New("pubsub: not subscribed")
	// ErrTerminated is returned by Subscribe once the dispatcher is shut down.
	ErrTerminated = errors.New("pubsub: dispatcher terminated")
)

var (
	postedCounter        = metrics.NewRegisteredCounter("vaspwire/pubsub/posted", nil)
	receivedCounter      = metrics.NewRegisteredCounter("vaspwire/pubsub/received", nil)
	pollFailureCounter   = metrics.NewRegisteredCounter("vaspwire/pubsub/poll/failures", nil)
	listenerErrorCounter = metrics.NewRegisteredCounter("vaspwire/pubsub/listener/errors", nil)
)

// State is the lifecycle state of a Dispatcher.
type State int32

const (
	Running State = iota
	ShutdownRequested
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case ShutdownRequested:
		return "shutdown-requested"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ListenerID identifies a listener within a topic.
type ListenerID uint64

// Listener consumes one message delivered on a topic. A returned error is
// reported to the ErrorHandler and does not affect other messages.
type Listener func(ctx context.Context, msg *domain.RelayMessage) error

// ErrorHandler receives listener errors.
type ErrorHandler func(topic domain.Topic, err error)

// Config tunes a Dispatcher.
type Config struct {
	PollInterval time.Duration
	// TTL, PowTime and PowTarget are copied onto every post.
	TTL       uint32
	PowTime   uint32
	PowTarget float64
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.PowTime == 0 {
		c.PowTime = DefaultPowTime
	}
	if c.PowTarget == 0 {
		c.PowTarget = DefaultPowTarget
	}
	return c
}

type subscription struct {
	topic     domain.Topic
	kind      domain.EncryptionKind
	key       []byte
	keyID     string
	filterID  string
	listeners map[ListenerID]Listener
	order     []ListenerID
}

func (s *subscription) snapshot() []Listener {
	out := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.listeners[id])
	}
	return out
}

func (s *subscription) detach(id ListenerID) bool {
	if _, ok := s.listeners[id]; !ok {
		return false
	}
	delete(s.listeners, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Dispatcher is the pub/sub layer over a domain.RelayClient.
type Dispatcher struct {
	relay domain.RelayClient
	cfg   Config
	log   log.Logger

	mu      sync.Mutex
	subs    map[domain.Topic]*subscription
	nextID  ListenerID
	onError ErrorHandler

	state    atomic.Int32
	started  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
}

// New returns a dispatcher in the Running state. The poll loop starts with Start.
func New(relay domain.RelayClient, cfg Config) *Dispatcher {
	if relay == nil {
		panic("pubsub: nil relay client")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		relay:  relay,
		cfg:    cfg.withDefaults(),
		log:    log.New("module", "pubsub"),
		subs:   make(map[domain.Topic]*subscription),
		ctx:    ctx,
		cancel: cancel,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// OnError sets the handler for listener errors. The default logs them.
func (d *Dispatcher) OnError(h ErrorHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = h
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State { return State(d.state.Load()) }

// Start launches the poll loop. Calling Start more than once has no effect.
func (d *Dispatcher) Start() {
	if d.State() != Running || !d.started.CompareAndSwap(false, true) {
		return
	}
	go d.loop()
}

// Shutdown asks the poll loop to stop after its current iteration.
func (d *Dispatcher) Shutdown() {
	d.state.CompareAndSwap(int32(Running), int32(ShutdownRequested))
	d.stopOnce.Do(func() { close(d.stop) })
	if d.started.CompareAndSwap(false, true) {
		// Never started: nothing to wait for.
		d.terminate()
	}
}

// AwaitTermination blocks until the loop has terminated or timeout elapses.
func (d *Dispatcher) AwaitTermination(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-d.done:
		return true
	case <-t.C:
		return false
	}
}

// Close stops the loop, interrupting any relay call in flight, and removes
// every remaining relay filter and key.
func (d *Dispatcher) Close() error {
	d.Shutdown()
	d.cancel()
	<-d.done

	d.mu.Lock()
	subs := make([]*subscription, 0, len(d.subs))
	for t, s := range d.subs {
		subs = append(subs, s)
		delete(d.subs, t)
	}
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	var errs []error
	for _, s := range subs {
		if err := d.teardown(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) terminate() {
	d.doneOnce.Do(func() {
		d.state.Store(int32(Terminated))
		close(d.done)
		d.log.Debug("Dispatcher terminated")
	})
}

func (d *Dispatcher) loop() {
	defer d.terminate()
	d.log.Debug("Dispatcher started", "interval", d.cfg.PollInterval)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.stop:
			return
		case <-timer.C:
		}
		if d.State() != Running {
			return
		}
		if err := d.Poll(d.ctx); err != nil {
			return
		}
		timer.Reset(d.cfg.PollInterval)
	}
}

// Poll drains every subscription once and delivers the messages. It only
// returns an error when ctx is cancelled.
func (d *Dispatcher) Poll(ctx context.Context) error {
	d.mu.Lock()
	subs := make([]*subscription, 0, len(d.subs))
	for _, s := range d.subs {
		subs = append(subs, s)
	}
	d.mu.Unlock()

	for _, s := range subs {
		msgs, err := d.relay.FilterMessages(ctx, s.filterID)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return err
			}
			if !d.isActive(s) {
				continue
			}
			pollFailureCounter.Inc(1)
			d.log.Warn("Relay poll failed", "topic", s.topic, "err", err)
			continue
		}
		for _, m := range msgs {
			receivedCounter.Inc(1)
			d.deliver(ctx, s, m)
		}
	}
	return nil
}

func (d *Dispatcher) isActive(s *subscription) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.subs[s.topic] == s
}

func (d *Dispatcher) deliver(ctx context.Context, s *subscription, m *domain.RelayMessage) {
	d.mu.Lock()
	if d.subs[s.topic] != s {
		d.mu.Unlock()
		return
	}
	listeners := s.snapshot()
	onError := d.onError
	d.mu.Unlock()

	for _, l := range listeners {
		if err := l(ctx, m); err != nil {
			listenerErrorCounter.Inc(1)
			if onError != nil {
				onError(s.topic, err)
			} else {
				d.log.Warn("Listener failed", "topic", s.topic, "err", err)
			}
		}
	}
}

// Subscribe attaches l to topic, creating the relay filter if this is the
// topic's first listener. key is the private key for Asymmetric topics and
// the shared secret for Symmetric ones.
func (d *Dispatcher) Subscribe(
	ctx context.Context,
	topic domain.Topic,
	kind domain.EncryptionKind,
	key []byte,
	l Listener,
) (ListenerID, error) {
	if l == nil {
		panic("pubsub: nil listener")
	}
	if d.State() != Running {
		return 0, ErrTerminated
	}
	if id, ok := d.attach(topic, l); ok {
		return id, nil
	}

	fresh, err := d.install(ctx, topic, kind, key)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	if existing, ok := d.subs[topic]; ok {
		// Lost a race with a concurrent Subscribe for the same topic.
		id := d.attachLocked(existing, l)
		d.mu.Unlock()
		if err := d.teardown(ctx, fresh); err != nil {
			d.log.Warn("Dropping duplicate filter failed", "topic", topic, "err", err)
		}
		return id, nil
	}
	d.subs[topic] = fresh
	id := d.attachLocked(fresh, l)
	d.mu.Unlock()

	d.log.Debug("Subscribed", "topic", topic, "kind", kind)
	return id, nil
}

func (d *Dispatcher) attach(topic domain.Topic, l Listener) (ListenerID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.subs[topic]
	if !ok {
		return 0, false
	}
	return d.attachLocked(s, l), true
}

func (d *Dispatcher) attachLocked(s *subscription, l Listener) ListenerID {
	d.nextID++
	s.listeners[d.nextID] = l
	s.order = append(s.order, d.nextID)
	return d.nextID
}

func (d *Dispatcher) install(
	ctx context.Context,
	topic domain.Topic,
	kind domain.EncryptionKind,
	key []byte,
) (*subscription, error) {
	s := &subscription{
		topic:     topic,
		kind:      kind,
		key:       append([]byte(nil), key...),
		listeners: make(map[ListenerID]Listener),
	}
	criteria := domain.Criteria{Topics: []domain.Topic{topic}, AllowP2P: true}

	var err error
	switch kind {
	case domain.Asymmetric:
		s.keyID, err = d.relay.AddPrivateKey(ctx, key)
		criteria.PrivateKeyID = s.keyID
	case domain.Symmetric:
		s.keyID, err = d.relay.AddSymmetricKey(ctx, key)
		criteria.SymKeyID = s.keyID
	default:
		return nil, fmt.Errorf("pubsub: unknown encryption kind %v", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	s.filterID, err = d.relay.NewMessageFilter(ctx, criteria)
	if err != nil {
		_ = d.deleteKey(ctx, s)
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return s, nil
}

// Unsubscribe detaches a listener. The topic's relay filter is removed once
// its last listener is gone. It is safe to call from inside a listener.
func (d *Dispatcher) Unsubscribe(ctx context.Context, topic domain.Topic, id ListenerID) error {
	d.mu.Lock()
	s, ok := d.subs[topic]
	if !ok || !s.detach(id) {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s listener %d", ErrNotSubscribed, topic, id)
	}
	last := len(s.listeners) == 0
	if last {
		delete(d.subs, topic)
	}
	d.mu.Unlock()

	if !last {
		return nil
	}
	d.log.Debug("Unsubscribed", "topic", topic)
	return d.teardown(ctx, s)
}

func (d *Dispatcher) teardown(ctx context.Context, s *subscription) error {
	ferr := d.relay.DeleteMessageFilter(ctx, s.filterID)
	kerr := d.deleteKey(ctx, s)
	return errors.Join(ferr, kerr)
}

func (d *Dispatcher) deleteKey(ctx context.Context, s *subscription) error {
	if s.keyID == "" {
		return nil
	}
	if s.kind == domain.Symmetric {
		return d.relay.DeleteSymmetricKey(ctx, s.keyID)
	}
	return d.relay.DeleteKeyPair(ctx, s.keyID)
}

// Topics returns the currently subscribed topics.
func (d *Dispatcher) Topics() []domain.Topic {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Topic, 0, len(d.subs))
	for t := range d.subs {
		out = append(out, t)
	}
	return out
}

// Send posts payload on topic. key is the recipient's public key for
// Asymmetric posts and the shared secret for Symmetric ones.
func (d *Dispatcher) Send(
	ctx context.Context,
	topic domain.Topic,
	kind domain.EncryptionKind,
	key []byte,
	payload []byte,
) error {
	req := domain.PostRequest{
		TTL:       d.cfg.TTL,
		Topic:     topic,
		Payload:   payload,
		PowTime:   d.cfg.PowTime,
		PowTarget: d.cfg.PowTarget,
	}

	switch kind {
	case domain.Asymmetric:
		req.PublicKey = key
		if err := d.relay.Post(ctx, req); err != nil {
			return fmt.Errorf("send %s: %w", topic, err)
		}
	case domain.Symmetric:
		if keyID, ok := d.symKeyID(key); ok {
			req.SymKeyID = keyID
			if err := d.relay.Post(ctx, req); err != nil {
				return fmt.Errorf("send %s: %w", topic, err)
			}
			break
		}
		keyID, err := d.relay.AddSymmetricKey(ctx, key)
		if err != nil {
			return fmt.Errorf("send %s: %w", topic, err)
		}
		req.SymKeyID = keyID
		perr := d.relay.Post(ctx, req)
		derr := d.relay.DeleteSymmetricKey(ctx, keyID)
		if perr != nil {
			return fmt.Errorf("send %s: %w", topic, perr)
		}
		if derr != nil {
			d.log.Warn("Dropping temporary key failed", "topic", topic, "err", derr)
		}
	default:
		return fmt.Errorf("pubsub: unknown encryption kind %v", kind)
	}
	postedCounter.Inc(1)
	d.log.Trace("Posted", "topic", topic, "kind", kind, "bytes", len(payload))
	return nil
}

// symKeyID finds a symmetric key already imported for a subscription.
func (d *Dispatcher) symKeyID(key []byte) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.subs {
		if s.kind == domain.Symmetric && bytes.Equal(s.key, key) {
			return s.keyID, true
		}
	}
	return "", false
}
