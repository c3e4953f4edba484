package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"vaspwire/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the VASP code and handshake key fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := requirePassphrase()
			if err != nil {
				return err
			}
			id, err := wire.Identities.LoadIdentity(pass)
			if err != nil {
				return err
			}
			fmt.Printf("VASP code:   %s\nAddress:     %s\nFingerprint: %s\n",
				id.Code(), id.Address.Hex(), crypto.Fingerprint(id.HandshakePublic))
			return nil
		},
	}
	return cmd
}
