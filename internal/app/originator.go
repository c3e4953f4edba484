package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vaspwire/internal/domain"
	"vaspwire/internal/services/session"
)

var (
	ErrDeclined       = errors.New("app: declined by peer")
	ErrNoResponse     = errors.New("app: no response from peer")
	ErrPeerTerminated = errors.New("app: session terminated by peer")
)

// Settle performs the on-chain transfer once the beneficiary has named its
// destination address, and returns the resulting transaction.
type Settle func(ctx context.Context, info domain.TransferInfo) (domain.Transaction, error)

// Transfer runs the originator side of one transfer to peer and returns the
// terminated session. wait bounds each wait for a reply.
func (a *App) Transfer(
	ctx context.Context,
	peer domain.VaspCode,
	info domain.TransferInfo,
	settle Settle,
	wait time.Duration,
) (*session.Session, error) {
	s, err := a.Sessions.CreateOriginatorSession(ctx, peer, info)
	if err != nil {
		return nil, err
	}
	l := a.log.New("session", s.ID(), "peer", peer)

	if err := s.StartTransfer(ctx); err != nil {
		return s, a.abort(ctx, s, err)
	}
	if _, err := expect(ctx, s, domain.TypeSessionReply, wait); err != nil {
		return s, a.abort(ctx, s, err)
	}
	l.Debug("Session accepted")

	if err := s.RequestTransfer(ctx); err != nil {
		return s, a.abort(ctx, s, err)
	}
	if _, err := expect(ctx, s, domain.TypeTransferReply, wait); err != nil {
		return s, a.abort(ctx, s, err)
	}
	current := s.Transfer()
	l.Info("Transfer accepted", "destination", destinationOf(current))

	tx, err := settle(ctx, current)
	if err != nil {
		return s, a.abort(ctx, s, fmt.Errorf("settle: %w", err))
	}
	if err := s.Dispatch(ctx, tx); err != nil {
		return s, a.abort(ctx, s, err)
	}
	if _, err := expect(ctx, s, domain.TypeTransferConfirmation, wait); err != nil {
		return s, a.abort(ctx, s, err)
	}
	l.Info("Transfer confirmed", "txid", tx.TxID)

	return s, s.Terminate(ctx, domain.CodeOK)
}

// abort terminates s unless the peer already did, and returns cause.
func (a *App) abort(ctx context.Context, s *session.Session, cause error) error {
	if s.Closed() {
		return cause
	}
	if s.PeerTopic().IsZero() {
		// The peer never replied, so there is no topic to terminate on.
		if err := a.Sessions.RemoveSession(ctx, s.ID()); err != nil {
			a.log.Warn("Session removal failed", "session", s.ID(), "err", err)
		}
		return cause
	}
	code := domain.CodeFailed
	if errors.Is(cause, ErrDeclined) {
		code = domain.CodeDeclined
	}
	if err := s.Terminate(ctx, code); err != nil {
		a.log.Warn("Termination failed", "session", s.ID(), "err", err)
		if rerr := a.Sessions.RemoveSession(ctx, s.ID()); rerr != nil {
			a.log.Warn("Session removal failed", "session", s.ID(), "err", rerr)
		}
	}
	return cause
}

// expect takes the next incoming message of s and checks that it is of type
// want with an OK code.
func expect(ctx context.Context, s *session.Session, want domain.MessageType, wait time.Duration) (domain.Message, error) {
	msg, ok := s.TakeIncomingMessage(ctx, wait)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: waiting %s for %s", ErrNoResponse, wait, want.Name())
	}
	hdr := msg.Base().Header
	if msg.MessageType() == domain.TypeTermination {
		return nil, fmt.Errorf("%w: code %s", ErrPeerTerminated, hdr.Code)
	}
	if msg.MessageType() != want {
		return nil, fmt.Errorf("%w: got %s, want %s", session.ErrUnexpectedMessage, msg.MessageType().Name(), want.Name())
	}
	if hdr.Code != domain.CodeOK {
		return nil, fmt.Errorf("%w: %s code %s", ErrDeclined, want.Name(), hdr.Code)
	}
	return msg, nil
}

func destinationOf(info domain.TransferInfo) string {
	if info.Transfer == nil {
		return ""
	}
	return info.Transfer.Destination
}
