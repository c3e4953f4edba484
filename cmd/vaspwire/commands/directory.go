package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vaspwire/internal/crypto"
	"vaspwire/internal/domain"
	"vaspwire/internal/services/identity"
)

func directoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Manage the directory of known VASPs",
	}
	cmd.AddCommand(directoryListCmd(), directoryExportCmd(), directoryImportCmd(), directoryRemoveCmd())
	return cmd
}

func directoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known VASPs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tADDRESS\tFINGERPRINT")
			for _, v := range wire.Directory.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Code(), v.Name, v.Address.Hex(), crypto.Fingerprint(v.HandshakeKey))
			}
			return tw.Flush()
		},
	}
}

// export <file>: write the local public entry for peers to import.
func directoryExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the local VASP's public directory entry to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := requirePassphrase()
			if err != nil {
				return err
			}
			id, err := wire.Identities.LoadIdentity(pass)
			if err != nil {
				return err
			}
			d, err := identity.NewDirectory(identity.Published(id))
			if err != nil {
				return err
			}
			if err := d.Save(args[0]); err != nil {
				return err
			}
			fmt.Printf("Exported %s to %s\n", id.Code(), args[0])
			return nil
		},
	}
}

func directoryImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add every VASP listed in a directory file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}
			src, err := identity.LoadDirectory(args[0])
			if err != nil {
				return err
			}
			entries := src.List()
			for _, v := range entries {
				if err := wire.Directory.Register(v); err != nil {
					return err
				}
				fmt.Printf("Added %s (%s)\n", v.Code(), v.Name)
			}
			return wire.SaveDirectory()
		},
	}
}

func directoryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <code>",
		Short: "Forget a VASP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := domain.ParseVaspCode(args[0])
			if err != nil {
				return err
			}
			wire.Directory.Remove(code)
			return wire.SaveDirectory()
		},
	}
}
