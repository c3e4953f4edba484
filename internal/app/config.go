package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/log"
)

// MemoryRelay as the relay URL selects an in-process relay node.
const MemoryRelay = "memory"

// Snapshot backends.
const (
	SnapshotsNone    = "none"
	SnapshotsFile    = "file"
	SnapshotsLevelDB = "leveldb"
	SnapshotsRedis   = "redis"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home          string         `toml:"home"`      // state directory, e.g. $HOME/.vaspwire
	Directory     string         `toml:"directory"` // VASP directory file; defaults to <home>/directory.toml
	Confirmations bool           `toml:"confirmations"`
	CacheSize     int            `toml:"cache_size"`
	Relay         RelayConfig    `toml:"relay"`
	VASP          VaspConfig     `toml:"vasp"`
	Snapshots     SnapshotConfig `toml:"snapshots"`
	Log           LogConfig      `toml:"log"`
}

// RelayConfig selects and tunes the relay network connection.
type RelayConfig struct {
	URL          string   `toml:"url"` // http(s)://, ws(s)://, an ipc path or "memory"
	PollInterval Duration `toml:"poll_interval"`
	TTL          uint32   `toml:"ttl"`
	PowTime      uint32   `toml:"pow_time"`
	PowTarget    float64  `toml:"pow_target"`
}

// VaspConfig carries optional details published in the sender block.
type VaspConfig struct {
	PostalAddress string `toml:"postal_address"`
	LEI           string `toml:"lei"`
}

// SnapshotConfig selects where session snapshots are kept.
type SnapshotConfig struct {
	Backend string `toml:"backend"`
	// DSN is the leveldb path or redis URL. The leveldb path defaults to <home>/snapshots.
	DSN     string `toml:"dsn"`
	Prefix  string `toml:"prefix"`
	Encrypt bool   `toml:"encrypt"`
}

// LogConfig sets the log verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a string such as "500ms" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.Duration.String()), nil }

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			c.Home = filepath.Join(h, ".vaspwire")
		} else {
			c.Home = ".vaspwire"
		}
	}
	if c.Directory == "" {
		c.Directory = filepath.Join(c.Home, "directory.toml")
	}
	if c.Relay.URL == "" {
		c.Relay.URL = "http://127.0.0.1:8545"
	}
	if c.Relay.PollInterval.Duration == 0 {
		c.Relay.PollInterval.Duration = time.Second
	}
	if c.Snapshots.Backend == "" {
		c.Snapshots.Backend = SnapshotsFile
	}
	if c.Snapshots.Backend == SnapshotsLevelDB && c.Snapshots.DSN == "" {
		c.Snapshots.DSN = filepath.Join(c.Home, "snapshots")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return c
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	switch c.Snapshots.Backend {
	case SnapshotsNone, SnapshotsFile, SnapshotsLevelDB:
	case SnapshotsRedis:
		if c.Snapshots.DSN == "" {
			errs = append(errs, errors.New("snapshots: redis backend needs a dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("snapshots: unknown backend %q", c.Snapshots.Backend))
	}
	if c.Relay.PollInterval.Duration < 0 {
		errs = append(errs, errors.New("relay: negative poll interval"))
	}
	if _, err := log.LvlFromString(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if c.CacheSize < 0 {
		errs = append(errs, errors.New("cache_size: must not be negative"))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a TOML configuration file, applies defaults and
// validates the result. An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	var c Config
	if path != "" {
		md, err := toml.DecodeFile(path, &c)
		if err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
		}
	}
	c = c.withDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Finalize applies defaults and validates a Config built in code.
func (c Config) Finalize() (Config, error) {
	c = c.withDefaults()
	return c, c.Validate()
}
