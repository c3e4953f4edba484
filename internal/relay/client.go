package relay

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"vaspwire/internal/domain"
)

// Namespace is the RPC namespace of the relay API.
const Namespace = "shh"

// Client is a domain.RelayClient backed by an rpc.Client.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the relay node at rawurl (http, ws or ipc).
func Dial(ctx context.Context, rawurl string) (*Client, error) {
	c, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", rawurl, err)
	}
	return NewClient(c), nil
}

// NewClient wraps an established rpc connection.
func NewClient(c *rpc.Client) *Client { return &Client{rpc: c} }

// Close closes the underlying connection.
func (c *Client) Close() { c.rpc.Close() }

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	if err := c.rpc.CallContext(ctx, result, Namespace+"_"+method, args...); err != nil {
		return fmt.Errorf("relay %s: %w", method, err)
	}
	return nil
}

// Post publishes msg. Exactly one of SymKeyID or PublicKey must be set.
func (c *Client) Post(ctx context.Context, msg domain.PostRequest) error {
	if (msg.SymKeyID == "") == (len(msg.PublicKey) == 0) {
		return fmt.Errorf("relay post: exactly one of symmetric key id and public key required")
	}
	var hash hexutil.Bytes
	return c.call(ctx, &hash, "post", msg)
}

// NewMessageFilter installs a filter and returns its id.
func (c *Client) NewMessageFilter(ctx context.Context, criteria domain.Criteria) (string, error) {
	var id string
	if err := c.call(ctx, &id, "newMessageFilter", criteria); err != nil {
		return "", err
	}
	return id, nil
}

// FilterMessages drains the messages collected by a filter since the last poll.
func (c *Client) FilterMessages(ctx context.Context, filterID string) ([]*domain.RelayMessage, error) {
	var msgs []*domain.RelayMessage
	if err := c.call(ctx, &msgs, "getFilterMessages", filterID); err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteMessageFilter removes a filter.
func (c *Client) DeleteMessageFilter(ctx context.Context, filterID string) error {
	var ok bool
	return c.call(ctx, &ok, "deleteMessageFilter", filterID)
}

// AddPrivateKey imports a private key into the node and returns its id.
func (c *Client) AddPrivateKey(ctx context.Context, key []byte) (string, error) {
	var id string
	if err := c.call(ctx, &id, "addPrivateKey", hexutil.Bytes(key)); err != nil {
		return "", err
	}
	return id, nil
}

// DeleteKeyPair removes an imported key pair.
func (c *Client) DeleteKeyPair(ctx context.Context, keyID string) error {
	var ok bool
	return c.call(ctx, &ok, "deleteKeyPair", keyID)
}

// AddSymmetricKey imports a symmetric key into the node and returns its id.
func (c *Client) AddSymmetricKey(ctx context.Context, key []byte) (string, error) {
	var id string
	if err := c.call(ctx, &id, "addSymKey", hexutil.Bytes(key)); err != nil {
		return "", err
	}
	return id, nil
}

// DeleteSymmetricKey removes an imported symmetric key.
func (c *Client) DeleteSymmetricKey(ctx context.Context, keyID string) error {
	var ok bool
	return c.call(ctx, &ok, "deleteSymKey", keyID)
}

var _ domain.RelayClient = (*Client)(nil)
