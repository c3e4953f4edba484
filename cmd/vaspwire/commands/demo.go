package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vaspwire/internal/app"
	"vaspwire/internal/domain"
	"vaspwire/internal/relay/memrelay"
	"vaspwire/internal/services/identity"
)

const demoPassphrase = "Demo-Passphrase-1!"

type demoVasp struct {
	name, address string
	wire          *app.Wire
	id            domain.Identity
}

// demo: two VASPs on one in-process relay run a full transfer.
func demoCmd() *cobra.Command {
	var confirmations bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run an originator and a beneficiary VASP in one process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tmp, err := os.MkdirTemp("", "vaspwire-demo-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmp)

			node := memrelay.New()
			vasps := []*demoVasp{
				{name: "Originating VASP", address: "0x6befaf0656b953b188a0ee3bf3db03d07dface61"},
				{name: "Beneficiary VASP", address: "0x08fda931d64b17c3acffb35c1b3902e0bbb4ee5c"},
			}
			for i, v := range vasps {
				cfg := wire.Config
				rehome(&cfg, filepath.Join(tmp, fmt.Sprintf("vasp%d", i)))
				cfg.Relay.URL = app.MemoryRelay
				cfg.Relay.PollInterval = app.Duration{Duration: 50 * time.Millisecond}
				cfg.Confirmations = confirmations
				cfg.Snapshots = app.SnapshotConfig{Backend: app.SnapshotsFile}
				if v.wire, err = app.NewWire(cfg); err != nil {
					return err
				}
				v.wire.Node = node
				if v.id, _, err = v.wire.Identities.GenerateIdentity(demoPassphrase, v.name, common.HexToAddress(v.address)); err != nil {
					return err
				}
			}
			for _, v := range vasps {
				for _, peer := range vasps {
					if err := v.wire.Directory.Register(identity.Published(peer.id)); err != nil {
						return err
					}
				}
			}

			orig, err := vasps[0].wire.Open(ctx, demoPassphrase)
			if err != nil {
				return err
			}
			defer orig.Close(context.Background())
			ben, err := vasps[1].wire.Open(ctx, demoPassphrase)
			if err != nil {
				return err
			}
			defer ben.Close(context.Background())
			ben.Serve(ctx, app.AcceptAll("bc1qdemodestination"))
			g, gctx := errgroup.WithContext(ctx)
			for _, a := range []*app.App{orig, ben} {
				a := a
				g.Go(func() error {
					_, err := a.Start(gctx)
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			info := domain.TransferInfo{
				Originator:  &domain.Originator{Name: "Alice", VAAN: vasps[0].id.Code().String() + "0000000000000001"},
				Beneficiary: &domain.Beneficiary{Name: "Bob", VAAN: vasps[1].id.Code().String() + "0000000000000002"},
				Transfer:    &domain.Transfer{Asset: "BTC", Amount: decimal.RequireFromString("0.125")},
			}
			settle := func(context.Context, domain.TransferInfo) (domain.Transaction, error) {
				return domain.Transaction{TxID: "0xdemo", DateTime: time.Now().UTC().Format(time.RFC3339)}, nil
			}

			s, err := orig.Transfer(ctx, ben.Code(), info, settle, 10*time.Second)
			if s != nil {
				printHistory(s)
			}
			if err != nil {
				return err
			}
			if !ben.Sessions.WaitForNoActiveSessions(ctx, 10*time.Second) {
				return errors.New("beneficiary session still open")
			}
			fmt.Println("Demo transfer completed.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmations, "confirmations", true, "exchange delivery confirmations")
	return cmd
}
