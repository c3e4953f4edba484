package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vaspwire/internal/app"
)

const passphraseEnv = "VASPWIRE_PASSPHRASE"

var (
	home       string
	cfgPath    string
	passphrase string
	relayURL   string
	verbosity  string

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:          "vaspwire",
		Short:        "Compliance messaging between virtual asset service providers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if home != "" {
				rehome(&cfg, home)
			}
			if relayURL != "" {
				cfg.Relay.URL = relayURL
			}
			if verbosity != "" {
				cfg.Log.Level = verbosity
			}
			if err := app.SetupLogging(os.Stderr, cfg.Log.Level, isTerminal(os.Stderr)); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}
			wire, err = app.NewWire(cfg)
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.vaspwire)")
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default <home>/config.toml if present)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity (or $"+passphraseEnv+")")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", `relay RPC endpoint, or "memory" for an in-process relay`)
	root.PersistentFlags().StringVar(&verbosity, "verbosity", "", "log level (trace, debug, info, warn, error)")

	root.AddCommand(initCmd(), fingerprintCmd(), directoryCmd(), serveCmd(), transferCmd(), demoCmd())
	return root.Execute()
}

func loadConfig() (app.Config, error) {
	path := cfgPath
	if path == "" {
		base := home
		if base == "" {
			base = app.DefaultConfig().Home
		}
		candidate := filepath.Join(base, "config.toml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	cfg, err := app.LoadConfig(path)
	if err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

// rehome moves cfg to dir, carrying along the paths that defaulted to the
// old home.
func rehome(cfg *app.Config, dir string) {
	if cfg.Directory == filepath.Join(cfg.Home, "directory.toml") {
		cfg.Directory = ""
	}
	if cfg.Snapshots.DSN == filepath.Join(cfg.Home, "snapshots") {
		cfg.Snapshots.DSN = ""
	}
	cfg.Home = dir
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func requirePassphrase() (string, error) {
	if passphrase != "" {
		return passphrase, nil
	}
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("passphrase required (-p or $%s)", passphraseEnv)
}

// openApp unlocks the identity and starts a full app. setup, if not nil,
// runs before anything is subscribed.
func openApp(ctx context.Context, setup func(*app.App)) (*app.App, error) {
	pass, err := requirePassphrase()
	if err != nil {
		return nil, err
	}
	a, err := wire.Open(ctx, pass)
	if err != nil {
		return nil, err
	}
	if setup != nil {
		setup(a)
	}
	if _, err := a.Start(ctx); err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	return a, nil
}
