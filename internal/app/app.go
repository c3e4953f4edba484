package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"vaspwire/internal/domain"
	"vaspwire/internal/pubsub"
	"vaspwire/internal/relay"
	"vaspwire/internal/services/confirmation"
	"vaspwire/internal/services/session"
)

// App is a running VASP: one identity, one relay connection and the
// session manager on top of it.
type App struct {
	Identity      domain.Identity
	Dispatcher    *pubsub.Dispatcher
	Confirmations *confirmation.Service
	Sessions      *session.Manager

	relay     *relay.Client
	snapshots domain.SnapshotStore
	log       log.Logger

	mu    sync.Mutex
	serve func(*session.Session)
}

// Open unlocks the identity and builds the runtime stack. Nothing is
// subscribed until Start.
func (w *Wire) Open(ctx context.Context, passphrase string) (*App, error) {
	id, err := w.Identities.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	rc, err := w.dialRelay(ctx)
	if err != nil {
		return nil, fmt.Errorf("relay %s: %w", w.Config.Relay.URL, err)
	}
	snaps, err := w.openSnapshots(passphrase)
	if err != nil {
		rc.Close()
		return nil, err
	}

	rcfg := w.Config.Relay
	disp := pubsub.New(rc, pubsub.Config{
		PollInterval: rcfg.PollInterval.Duration,
		TTL:          rcfg.TTL,
		PowTime:      rcfg.PowTime,
		PowTarget:    rcfg.PowTarget,
	})
	conf := confirmation.New(w.Config.Confirmations, disp, w.Resolver, id.HandshakePrivate)
	mgr, err := session.New(session.Config{
		Identity:      id,
		Transport:     disp,
		Resolver:      w.Resolver,
		Confirmations: conf,
		Snapshots:     snaps,
		PostalAddress: w.Config.VASP.PostalAddress,
		LEI:           w.Config.VASP.LEI,
	})
	if err != nil {
		rc.Close()
		if snaps != nil {
			_ = snaps.Close()
		}
		return nil, err
	}

	a := &App{
		Identity:      id,
		Dispatcher:    disp,
		Confirmations: conf,
		Sessions:      mgr,
		relay:         rc,
		snapshots:     snaps,
		log:           log.New("module", "app", "vasp", id.Code()),
	}
	disp.OnError(func(topic domain.Topic, err error) {
		a.log.Warn("Relay message rejected", "topic", topic, "err", err)
	})
	return a, nil
}

// Code returns the local VASP code.
func (a *App) Code() domain.VaspCode { return a.Identity.Code() }

// Start subscribes the VASP topic, resumes persisted sessions and starts
// the polling loop. It returns the number of sessions restored; snapshots
// that fail to restore are logged and skipped.
func (a *App) Start(ctx context.Context) (int, error) {
	if err := a.Sessions.Start(ctx); err != nil {
		return 0, err
	}
	n, err := a.Sessions.RestoreAll(ctx)
	if err != nil {
		a.log.Warn("Some sessions could not be restored", "restored", n, "err", err)
	}
	a.resume()
	a.Dispatcher.Start()
	a.log.Info("VASP started", "name", a.Identity.Name, "restored", n)
	return n, nil
}

// Close stops the stack. Persisted sessions are kept for the next Start.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	errs = append(errs, a.Sessions.Close(ctx))
	errs = append(errs, a.Dispatcher.Close())

	var g errgroup.Group
	if a.snapshots != nil {
		g.Go(a.snapshots.Close)
	}
	g.Go(func() error {
		a.relay.Close()
		return nil
	})
	errs = append(errs, g.Wait())
	return errors.Join(errs...)
}
