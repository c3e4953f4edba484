package identity

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"

	"vaspwire/internal/domain"
)

// DefaultCacheSize bounds the number of cached identities.
const DefaultCacheSize = 256

// Cached memoises successful lookups of an underlying resolver. Failures are
// not cached, so a VASP that appears later becomes resolvable.
type Cached struct {
	next  domain.IdentityResolver
	cache *lru.Cache
}

// NewCached wraps next with an LRU of the given size.
func NewCached(next domain.IdentityResolver, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: c}, nil
}

// ResolveCode implements domain.IdentityResolver.
func (c *Cached) ResolveCode(ctx context.Context, code domain.VaspCode) (domain.VaspIdentity, error) {
	if v, ok := c.cache.Get(code); ok {
		return v.(domain.VaspIdentity), nil
	}
	v, err := c.next.ResolveCode(ctx, code)
	if err != nil {
		return domain.VaspIdentity{}, err
	}
	c.cache.Add(code, v)
	return v, nil
}

// ResolveAddress implements domain.IdentityResolver.
func (c *Cached) ResolveAddress(ctx context.Context, addr common.Address) (domain.VaspIdentity, error) {
	code := domain.VaspCodeFromAddress(addr)
	if v, ok := c.cache.Get(code); ok {
		if id := v.(domain.VaspIdentity); id.Address == addr {
			return id, nil
		}
	}
	v, err := c.next.ResolveAddress(ctx, addr)
	if err != nil {
		return domain.VaspIdentity{}, err
	}
	c.cache.Add(code, v)
	return v, nil
}

// Purge drops every cached entry.
func (c *Cached) Purge() { c.cache.Purge() }

var _ domain.IdentityResolver = (*Cached)(nil)
