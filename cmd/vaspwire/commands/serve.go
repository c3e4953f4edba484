package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vaspwire/internal/app"
	"vaspwire/internal/domain"
)

func serveCmd() *cobra.Command {
	var destination string
	var decline bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer incoming transfers as the beneficiary VASP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if destination == "" && !decline {
				return fmt.Errorf("--destination required unless --decline")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			policy := app.AcceptAll(destination)
			if decline {
				policy.Accept = func(context.Context, domain.TransferInfo) (string, string) {
					return domain.CodeDeclined, ""
				}
			}
			a, err := openApp(ctx, func(a *app.App) { a.Serve(ctx, policy) })
			if err != nil {
				return err
			}
			fmt.Printf("Serving as %s (%s). Press Ctrl-C to stop.\n", a.Identity.Name, a.Code())

			<-ctx.Done()
			return a.Close(context.Background())
		},
	}
	cmd.Flags().StringVar(&destination, "destination", "", "address receiving accepted transfers")
	cmd.Flags().BoolVar(&decline, "decline", false, "decline every transfer request")
	cmd.MarkFlagsMutuallyExclusive("destination", "decline")
	return cmd
}
