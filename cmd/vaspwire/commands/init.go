package commands

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"vaspwire/internal/services/identity"
)

func initCmd() *cobra.Command {
	var name, address string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate the VASP identity keys and store them securely",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := requirePassphrase()
			if err != nil {
				return err
			}
			if !common.IsHexAddress(address) {
				return fmt.Errorf("invalid address %q", address)
			}
			id, fp, err := wire.Identities.GenerateIdentity(pass, name, common.HexToAddress(address))
			if err != nil {
				return err
			}
			if err := wire.Directory.Register(identity.Published(id)); err != nil {
				return err
			}
			if err := wire.SaveDirectory(); err != nil {
				return err
			}
			fmt.Printf("Identity created.\nVASP code:   %s\nFingerprint: %s\n", id.Code(), fp)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "VASP display name")
	cmd.Flags().StringVar(&address, "address", "", "VASP on-chain address (0x...)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}
