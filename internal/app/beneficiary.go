package app

import (
	"context"

	"vaspwire/internal/domain"
	"vaspwire/internal/services/session"
)

// Policy decides the answers of an automatic beneficiary.
type Policy struct {
	// Accept returns the response code for a transfer request and, when it
	// is CodeOK, the destination address for the value.
	Accept func(ctx context.Context, info domain.TransferInfo) (code, destination string)
	// Received returns the confirmation code for a dispatched transfer.
	// Nil confirms every dispatch.
	Received func(ctx context.Context, info domain.TransferInfo) string
}

// AcceptAll accepts every transfer into destination.
func AcceptAll(destination string) Policy {
	return Policy{
		Accept: func(context.Context, domain.TransferInfo) (string, string) {
			return domain.CodeOK, destination
		},
	}
}

// Serve answers every session opened by a peer according to p, including
// beneficiary sessions already restored or restored later by Start.
func (a *App) Serve(ctx context.Context, p Policy) {
	attach := func(s *session.Session) {
		s.OnMessage(func(s *session.Session, msg domain.Message) {
			if err := a.respond(ctx, p, s, msg); err != nil {
				a.log.Warn("Reply failed", "session", s.ID(), "type", msg.MessageType().Name(), "err", err)
			}
		})
		if s.LastMessage() != domain.TypeSessionRequest {
			return
		}
		a.log.Info("Session opened", "session", s.ID(), "peer", s.PeerCode())
		if err := s.Reply(ctx, domain.CodeOK); err != nil {
			a.log.Warn("Session reply failed", "session", s.ID(), "err", err)
		}
	}
	a.mu.Lock()
	a.serve = attach
	a.mu.Unlock()
	a.Sessions.OnBeneficiarySession(attach)
	a.resume()
}

// resume attaches the serving policy to live beneficiary sessions.
func (a *App) resume() {
	a.mu.Lock()
	attach := a.serve
	a.mu.Unlock()
	if attach == nil {
		return
	}
	for _, s := range a.Sessions.Sessions() {
		if s.Role() == domain.RoleBeneficiary {
			attach(s)
		}
	}
}

func (a *App) respond(ctx context.Context, p Policy, s *session.Session, msg domain.Message) error {
	switch m := msg.(type) {
	case *domain.TransferRequest:
		code, dest := domain.CodeOK, ""
		if p.Accept != nil {
			code, dest = p.Accept(ctx, s.Transfer())
		}
		a.log.Info("Transfer requested", "session", s.ID(), "transfer", describe(m.TransferInfo), "code", code)
		return s.ReplyTransfer(ctx, code, dest)
	case *domain.TransferDispatch:
		code := domain.CodeOK
		if p.Received != nil {
			code = p.Received(ctx, s.Transfer())
		}
		txid := ""
		if m.Tx != nil {
			txid = m.Tx.TxID
		}
		a.log.Info("Transfer dispatched", "session", s.ID(), "txid", txid, "code", code)
		return s.ConfirmTransfer(ctx, code)
	case *domain.Termination:
		a.log.Info("Session terminated", "session", s.ID(), "code", m.Header.Code)
		return nil
	case *domain.SessionRequest, *domain.SessionReply, *domain.TransferReply, *domain.TransferConfirmation:
		return nil
	default:
		return nil
	}
}

func describe(info domain.TransferInfo) string {
	if info.Transfer == nil {
		return "-"
	}
	return info.Transfer.Amount.String() + " " + info.Transfer.Asset
}
