package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"vaspwire/internal/domain"
	"vaspwire/internal/services/session"
)

type transferFlags struct {
	asset, amount        string
	origName, origVAAN   string
	origAddr, customerID string
	benName, benVAAN     string
	txid, sendingAddress string
	wait                 time.Duration
}

func (f *transferFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.asset, "asset", "", "asset symbol, e.g. BTC")
	fl.StringVar(&f.amount, "amount", "", "decimal amount")
	fl.StringVar(&f.origName, "originator-name", "", "originating customer name")
	fl.StringVar(&f.origVAAN, "originator-vaan", "", "originating customer VAAN")
	fl.StringVar(&f.origAddr, "originator-address", "", "originating customer postal address")
	fl.StringVar(&f.customerID, "customer-id", "", "originating customer number")
	fl.StringVar(&f.benName, "beneficiary-name", "", "beneficiary customer name")
	fl.StringVar(&f.benVAAN, "beneficiary-vaan", "", "beneficiary customer VAAN")
	fl.StringVar(&f.txid, "txid", "", "on-chain transaction id reported once the peer accepts")
	fl.StringVar(&f.sendingAddress, "sending-address", "", "on-chain address the value is sent from")
	fl.DurationVar(&f.wait, "wait", 30*time.Second, "maximum wait for each reply")
}

func (f *transferFlags) info() (domain.TransferInfo, error) {
	amount, err := decimal.NewFromString(f.amount)
	if err != nil {
		return domain.TransferInfo{}, fmt.Errorf("amount %q: %w", f.amount, err)
	}
	if !amount.IsPositive() {
		return domain.TransferInfo{}, fmt.Errorf("amount must be positive")
	}
	return domain.TransferInfo{
		Originator: &domain.Originator{
			Name:          f.origName,
			VAAN:          f.origVAAN,
			PostalAddress: f.origAddr,
			CustomerID:    f.customerID,
		},
		Beneficiary: &domain.Beneficiary{Name: f.benName, VAAN: f.benVAAN},
		Transfer:    &domain.Transfer{Asset: f.asset, Amount: amount},
	}, nil
}

func (f *transferFlags) settle(context.Context, domain.TransferInfo) (domain.Transaction, error) {
	return domain.Transaction{
		TxID:           f.txid,
		DateTime:       time.Now().UTC().Format(time.RFC3339),
		SendingAddress: f.sendingAddress,
	}, nil
}

// transfer <peer-code>: run the originator side of one transfer.
func transferCmd() *cobra.Command {
	var f transferFlags
	cmd := &cobra.Command{
		Use:   "transfer <peer-code>",
		Short: "Send a transfer to a peer VASP as the originator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := domain.ParseVaspCode(args[0])
			if err != nil {
				return err
			}
			info, err := f.info()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			s, err := a.Transfer(ctx, peer, info, f.settle, f.wait)
			if s != nil {
				printHistory(s)
			}
			return err
		},
	}
	f.register(cmd)
	for _, name := range []string{"asset", "amount", "originator-name", "originator-vaan", "beneficiary-name", "beneficiary-vaan", "txid"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func printHistory(s *session.Session) {
	fmt.Printf("Session %s (%s, peer %s)\n", s.ID(), s.Role(), s.PeerCode())
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tCODE\tFROM\tMSGID")
	for _, m := range s.History() {
		b := m.Base()
		from := "-"
		if b.Sender != nil {
			from = b.Sender.Code.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.MessageType().Name(), b.Header.Code, from, b.Header.MessageID)
	}
	_ = tw.Flush()
	if t := s.Transfer().Transfer; t != nil {
		fmt.Printf("Transfer: %s %s to %q\n", t.Amount, t.Asset, t.Destination)
	}
}
