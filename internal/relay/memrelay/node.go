package memrelay

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"

	"vaspwire/internal/domain"
	"vaspwire/internal/relay"
)

const (
	symKeyLength = 32
	// DefaultTTL applies to posts that leave ttl at zero.
	DefaultTTL = 60 * time.Second
)

var (
	ErrUnknownKey    = errors.New("unknown key id")
	ErrUnknownFilter = errors.New("unknown filter id")
	ErrBadCriteria   = errors.New("exactly one of symKeyID and privateKeyID required")
)

var (
	postedCounter    = metrics.NewRegisteredCounter("memrelay/posted", nil)
	deliveredCounter = metrics.NewRegisteredCounter("memrelay/delivered", nil)
	expiredCounter   = metrics.NewRegisteredCounter("memrelay/expired", nil)
)

type filter struct {
	symKey  []byte
	privKey *ecdsa.PrivateKey
	topics  map[domain.Topic]struct{}
	queue   []*queued
}

type queued struct {
	msg     *domain.RelayMessage
	expires time.Time
}

// Node holds keys, filters and in-flight envelopes.
type Node struct {
	mu       sync.Mutex
	symKeys  map[string][]byte
	keyPairs map[string]*ecdsa.PrivateKey
	filters  map[string]*filter
	now      func() time.Time
	log      log.Logger
}

// New returns an empty node.
func New() *Node {
	return &Node{
		symKeys:  make(map[string][]byte),
		keyPairs: make(map[string]*ecdsa.PrivateKey),
		filters:  make(map[string]*filter),
		now:      time.Now,
		log:      log.New("module", "memrelay"),
	}
}

// Server returns an rpc server with the node registered under the shh namespace.
func (n *Node) Server() (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(relay.Namespace, &API{node: n}); err != nil {
		return nil, err
	}
	return srv, nil
}

// Client returns an in-process relay client connected to a fresh server for n.
func (n *Node) Client() (*relay.Client, error) {
	srv, err := n.Server()
	if err != nil {
		return nil, err
	}
	return relay.NewClient(rpc.DialInProc(srv)), nil
}

func newID() string {
	id := uuid.New()
	return hexutil.Encode(id[:])[2:]
}

func (n *Node) addSymKey(key []byte) (string, error) {
	if len(key) != symKeyLength {
		return "", fmt.Errorf("symmetric key: want %d bytes, got %d", symKeyLength, len(key))
	}
	id := newID()
	n.mu.Lock()
	n.symKeys[id] = append([]byte(nil), key...)
	n.mu.Unlock()
	return id, nil
}

func (n *Node) addPrivateKey(key []byte) (string, error) {
	priv, err := gethcrypto.ToECDSA(key)
	if err != nil {
		return "", err
	}
	id := newID()
	n.mu.Lock()
	n.keyPairs[id] = priv
	n.mu.Unlock()
	return id, nil
}

func (n *Node) deleteSymKey(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.symKeys[id]
	delete(n.symKeys, id)
	return ok
}

func (n *Node) deleteKeyPair(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.keyPairs[id]
	delete(n.keyPairs, id)
	return ok
}

func (n *Node) newFilter(c domain.Criteria) (string, error) {
	if (c.SymKeyID == "") == (c.PrivateKeyID == "") {
		return "", ErrBadCriteria
	}
	if len(c.Topics) == 0 {
		return "", fmt.Errorf("filter needs at least one topic")
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	f := &filter{topics: make(map[domain.Topic]struct{}, len(c.Topics))}
	for _, t := range c.Topics {
		f.topics[t] = struct{}{}
	}
	if c.SymKeyID != "" {
		key, ok := n.symKeys[c.SymKeyID]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownKey, c.SymKeyID)
		}
		f.symKey = key
	} else {
		priv, ok := n.keyPairs[c.PrivateKeyID]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownKey, c.PrivateKeyID)
		}
		f.privKey = priv
	}
	id := newID()
	n.filters[id] = f
	return id, nil
}

func (n *Node) deleteFilter(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.filters[id]
	delete(n.filters, id)
	return ok
}

func (n *Node) post(req domain.PostRequest) (hexutil.Bytes, error) {
	ttl := time.Duration(req.TTL) * time.Second
	if ttl == 0 {
		ttl = DefaultTTL
	}

	var (
		sealed []byte
		err    error
	)
	n.mu.Lock()
	defer n.mu.Unlock()
	switch {
	case req.SymKeyID != "" && len(req.PublicKey) == 0:
		key, ok := n.symKeys[req.SymKeyID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, req.SymKeyID)
		}
		sealed, err = sealSymmetric(key, req.Payload)
	case req.SymKeyID == "" && len(req.PublicKey) > 0:
		sealed, err = sealAsymmetric(req.PublicKey, req.Payload)
	default:
		return nil, fmt.Errorf("exactly one of symKeyID and pubKey required")
	}
	if err != nil {
		return nil, err
	}

	now := n.now()
	hash := gethcrypto.Keccak256(sealed)
	delivered := 0
	for _, f := range n.filters {
		if _, ok := f.topics[req.Topic]; !ok {
			continue
		}
		plain, ok := f.open(sealed)
		if !ok {
			continue
		}
		f.queue = append(f.queue, &queued{
			msg: &domain.RelayMessage{
				TTL:       uint32(ttl / time.Second),
				Timestamp: uint32(now.Unix()),
				Topic:     req.Topic,
				Payload:   plain,
				Hash:      hash,
				Dst:       req.PublicKey,
			},
			expires: now.Add(ttl),
		})
		delivered++
	}
	postedCounter.Inc(1)
	deliveredCounter.Inc(int64(delivered))
	n.log.Trace("Envelope posted", "topic", req.Topic, "hash", hexutil.Encode(hash), "filters", delivered)
	return hash, nil
}

func (n *Node) drain(id string) ([]*domain.RelayMessage, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	f, ok := n.filters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, id)
	}
	now := n.now()
	out := make([]*domain.RelayMessage, 0, len(f.queue))
	for _, q := range f.queue {
		if now.After(q.expires) {
			expiredCounter.Inc(1)
			continue
		}
		out = append(out, q.msg)
	}
	f.queue = nil
	return out, nil
}

func (f *filter) open(sealed []byte) ([]byte, bool) {
	if f.symKey != nil {
		plain, err := openSymmetric(f.symKey, sealed)
		return plain, err == nil
	}
	plain, err := ecies.ImportECDSA(f.privKey).Decrypt(sealed, nil, nil)
	return plain, err == nil
}

func sealAsymmetric(pub, payload []byte) ([]byte, error) {
	key, err := gethcrypto.UnmarshalPubkey(pub)
	if err != nil {
		return nil, fmt.Errorf("post public key: %w", err)
	}
	return ecies.Encrypt(rand.Reader, ecies.ImportECDSAPublic(key), payload, nil, nil)
}

func sealSymmetric(key, payload []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, payload, nil), nil
}

func openSymmetric(key, sealed []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	ns := aead.NonceSize()
	return aead.Open(nil, sealed[:ns], sealed[ns:], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// API is the shh namespace served over rpc.
type API struct {
	node *Node
}

// Version returns the API version.
func (api *API) Version(context.Context) (string, error) { return "6.0", nil }

// Post encrypts and publishes a message, returning the envelope hash.
func (api *API) Post(_ context.Context, req domain.PostRequest) (hexutil.Bytes, error) {
	return api.node.post(req)
}

// NewMessageFilter installs a filter.
func (api *API) NewMessageFilter(_ context.Context, c domain.Criteria) (string, error) {
	return api.node.newFilter(c)
}

// GetFilterMessages drains a filter.
func (api *API) GetFilterMessages(_ context.Context, id string) ([]*domain.RelayMessage, error) {
	return api.node.drain(id)
}

// DeleteMessageFilter removes a filter.
func (api *API) DeleteMessageFilter(_ context.Context, id string) (bool, error) {
	if !api.node.deleteFilter(id) {
		return false, fmt.Errorf("%w: %s", ErrUnknownFilter, id)
	}
	return true, nil
}

// AddPrivateKey imports a key pair.
func (api *API) AddPrivateKey(_ context.Context, key hexutil.Bytes) (string, error) {
	return api.node.addPrivateKey(key)
}

// DeleteKeyPair removes a key pair.
func (api *API) DeleteKeyPair(_ context.Context, id string) (bool, error) {
	return api.node.deleteKeyPair(id), nil
}

// AddSymKey imports a symmetric key.
func (api *API) AddSymKey(_ context.Context, key hexutil.Bytes) (string, error) {
	return api.node.addSymKey(key)
}

// DeleteSymKey removes a symmetric key.
func (api *API) DeleteSymKey(_ context.Context, id string) (bool, error) {
	return api.node.deleteSymKey(id), nil
}
