// Package config loads the client configuration from flags, a YAML file,
// and the environment.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trovapay/trova/internal/services/allocator"
)

// DefaultPath is where the setup wizard writes the config.
const DefaultPath = "trova.yaml"

// Config is the fully resolved client configuration.
type Config struct {
	PartyID       string
	PartyName     string
	BackendURL    string
	WALDir        string
	SyncInterval  time.Duration
	SubmitTimeout time.Duration
	Strategy      allocator.Strategy
	UseMock       bool
	ListenAddr    string
}

// fileConfig is the YAML representation.
type fileConfig struct {
	PartyID       string `yaml:"party_id"`
	PartyName     string `yaml:"party_name"`
	BackendURL    string `yaml:"backend_url"`
	WALDir        string `yaml:"wal_dir"`
	SyncInterval  string `yaml:"sync_interval"`
	SubmitTimeout string `yaml:"submit_timeout"`
	Strategy      string `yaml:"strategy"`
	UseMock       bool   `yaml:"use_mock"`
	ListenAddr    string `yaml:"listen_addr"`
}

// Load resolves the configuration. Precedence: flags, then environment
// (TROVA_BACKEND_URL, loaded from .env when present), then the YAML file.
func Load() (Config, error) {
	configPath := flag.String("config", DefaultPath, "path to YAML config")
	mock := flag.Bool("mock", false, "use the in-memory backend instead of HTTP")
	listen := flag.String("listen", "", "status server address, example: :8787")
	backendURL := flag.String("backend", "", "backend base URL, overrides config and env")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg := Config{
		WALDir:        "./wal/trades",
		SyncInterval:  time.Minute,
		SubmitTimeout: 30 * time.Second,
		Strategy:      allocator.SmallestFirst,
		ListenAddr:    ":8787",
		UseMock:       *mock,
	}

	if err := applyFile(&cfg, *configPath); err != nil {
		return Config{}, err
	}

	if env := os.Getenv("TROVA_BACKEND_URL"); env != "" {
		cfg.BackendURL = env
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	return cfg, cfg.validate()
}

// LoadFile resolves the configuration without touching the global flag
// set, for subcommands that parse their own flags.
func LoadFile(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		WALDir:        "./wal/trades",
		SyncInterval:  time.Minute,
		SubmitTimeout: 30 * time.Second,
		Strategy:      allocator.SmallestFirst,
		ListenAddr:    ":8787",
	}

	if err := applyFile(&cfg, path); err != nil {
		return Config{}, err
	}
	if env := os.Getenv("TROVA_BACKEND_URL"); env != "" {
		cfg.BackendURL = env
	}

	return cfg, cfg.validate()
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "read config %s", path)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}

	if fc.PartyID != "" {
		cfg.PartyID = fc.PartyID
	}
	if fc.PartyName != "" {
		cfg.PartyName = fc.PartyName
	}
	if fc.BackendURL != "" {
		cfg.BackendURL = fc.BackendURL
	}
	if fc.WALDir != "" {
		cfg.WALDir = fc.WALDir
	}
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if fc.UseMock {
		cfg.UseMock = true
	}
	if fc.Strategy != "" {
		cfg.Strategy = allocator.Strategy(fc.Strategy)
	}
	if fc.SyncInterval != "" {
		d, err := time.ParseDuration(fc.SyncInterval)
		if err != nil {
			return errors.Wrapf(err, "invalid sync_interval %q", fc.SyncInterval)
		}
		cfg.SyncInterval = d
	}
	if fc.SubmitTimeout != "" {
		d, err := time.ParseDuration(fc.SubmitTimeout)
		if err != nil {
			return errors.Wrapf(err, "invalid submit_timeout %q", fc.SubmitTimeout)
		}
		cfg.SubmitTimeout = d
	}

	return nil
}

func (c *Config) validate() error {
	if c.PartyID == "" {
		return errors.New("party_id is not set, run the setup wizard first")
	}
	if !c.UseMock && c.BackendURL == "" {
		return errors.New("backend_url is not set and -mock is off")
	}
	switch c.Strategy {
	case allocator.SmallestFirst, allocator.LargestFirst:
	default:
		return errors.Errorf("invalid strategy %q", c.Strategy)
	}
	if c.SyncInterval <= 0 {
		return errors.New("sync_interval must be positive")
	}
	return nil
}

// Save writes the config as YAML, used by the setup wizard.
func (c *Config) Save(path string) error {
	fc := fileConfig{
		PartyID:       c.PartyID,
		PartyName:     c.PartyName,
		BackendURL:    c.BackendURL,
		WALDir:        c.WALDir,
		SyncInterval:  c.SyncInterval.String(),
		SubmitTimeout: c.SubmitTimeout.String(),
		Strategy:      string(c.Strategy),
		UseMock:       c.UseMock,
		ListenAddr:    c.ListenAddr,
	}

	raw, err := yaml.Marshal(fc)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}
