package session

import (
	"context"

	"vaspwire/internal/domain"
)

// Originator steps.

// StartTransfer sends the SessionRequest to the peer's VASP topic.
func (s *Session) StartTransfer(ctx context.Context) error {
	return s.Send(ctx, domain.NewSessionRequest(domain.Topic{}, nil))
}

// RequestTransfer sends the TransferRequest built from the transfer context
// given at creation.
func (s *Session) RequestTransfer(ctx context.Context) error {
	return s.Send(ctx, domain.NewTransferRequest(domain.TransferInfo{}))
}

// Dispatch reports the on-chain transaction of the transfer.
func (s *Session) Dispatch(ctx context.Context, tx domain.Transaction) error {
	return s.Send(ctx, domain.NewTransferDispatch(domain.TransferInfo{Tx: &tx}))
}

// Beneficiary steps.

// Reply answers the SessionRequest.
func (s *Session) Reply(ctx context.Context, code string) error {
	return s.Send(ctx, domain.NewSessionReply(code, domain.Topic{}))
}

// ReplyTransfer answers the TransferRequest with the destination address of
// the beneficiary.
func (s *Session) ReplyTransfer(ctx context.Context, code, destination string) error {
	info := s.Transfer()
	t := domain.Transfer{}
	if info.Transfer != nil {
		t = *info.Transfer
	}
	t.Destination = destination
	return s.Send(ctx, domain.NewTransferReply(code, domain.TransferInfo{Transfer: &t}))
}

// ConfirmTransfer acknowledges that the transferred value arrived.
func (s *Session) ConfirmTransfer(ctx context.Context, code string) error {
	return s.Send(ctx, domain.NewTransferConfirmation(code, domain.TransferInfo{}))
}

// Either side.

// Terminate ends the session and removes it from the manager.
func (s *Session) Terminate(ctx context.Context, code string) error {
	return s.Send(ctx, domain.NewTermination(code))
}
