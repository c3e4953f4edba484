package interfaces

import (
	"context"

	domaintypes "vaspwire/internal/domain/types"
)

// RelayClient is how we talk to the relay network. Every call may fail with
// an arbitrary transport error.
type RelayClient interface {
	Post(ctx context.Context, msg domaintypes.PostRequest) error

	NewMessageFilter(ctx context.Context, criteria domaintypes.Criteria) (string, error)
	FilterMessages(ctx context.Context, filterID string) ([]*domaintypes.RelayMessage, error)
	DeleteMessageFilter(ctx context.Context, filterID string) error

	AddPrivateKey(ctx context.Context, key []byte) (string, error)
	DeleteKeyPair(ctx context.Context, keyID string) error
	AddSymmetricKey(ctx context.Context, key []byte) (string, error)
	DeleteSymmetricKey(ctx context.Context, keyID string) error
}
