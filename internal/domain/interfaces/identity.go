package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	domaintypes "vaspwire/internal/domain/types"
)

// IdentityResolver returns the published key material of other VASPs.
// Unresolvable identities yield an error wrapping domaintypes.ErrUnknownVasp.
type IdentityResolver interface {
	ResolveCode(ctx context.Context, code domaintypes.VaspCode) (domaintypes.VaspIdentity, error)
	ResolveAddress(ctx context.Context, addr common.Address) (domaintypes.VaspIdentity, error)
}

// IdentityService creates and loads the local VASP identity.
type IdentityService interface {
	GenerateIdentity(passphrase string, name string, address common.Address) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
}
