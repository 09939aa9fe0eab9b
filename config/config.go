// Package config loads the walletdb connection settings.
//
// Settings are read once at startup. An optional YAML file named by
// WALLETDB_CONFIG (or passed to Load) provides base values; environment
// variables override it:
//
//	MONGO_TYPE        - "ATLAS" selects remote mode, "LOCAL" or unset local mode
//	MONGO_DB_ADDRESS  - remote URI template with <db_username> and <password>
//	MONGO_USER        - remote username
//	MONGO_PASSWORD    - remote password
//	MONGO_DB_PORT     - local port (default: 27017)
//	MONGO_DB_NAME     - wallet database name (default: "wallet")
//	MONGO_TIMEOUT     - per-operation timeout (default: "10s")
//	MONGO_APP_NAME    - driver application name (default: "walletdb")
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Addressing modes.
const (
	// ModeLocal connects to 127.0.0.1 on the configured port.
	ModeLocal Mode = "local"
	// ModeAtlas connects to a remote templated URI.
	ModeAtlas Mode = "atlas"
)

// Placeholders substituted in the remote URI template.
const (
	UserPlaceholder     = "<db_username>"
	PasswordPlaceholder = "<password>"
)

const (
	defaultPort           = 27017
	defaultWalletDatabase = "wallet"
	defaultTimeout        = 10 * time.Second
	defaultAppName        = "walletdb"
)

// FileEnv names the environment variable pointing at the optional YAML file.
const FileEnv = "WALLETDB_CONFIG"

type (
	// Mode selects how the connection URI is built.
	Mode string

	// Config holds the walletdb connection settings.
	Config struct {
		// Mode is the addressing mode.
		Mode Mode
		// Address is the remote URI template used in atlas mode.
		Address string
		// User is substituted for UserPlaceholder in atlas mode.
		User string
		// Password is substituted for PasswordPlaceholder in atlas mode.
		Password string
		// Port is the local port used in local mode.
		Port int
		// WalletDatabase is the logical database holding wallets and keys.
		WalletDatabase string
		// Timeout bounds each store operation.
		Timeout time.Duration
		// AppName is reported to the server in the handshake.
		AppName string
	}
)

// Default returns the local-mode configuration.
func Default() Config {
	return Config{
		Mode:           ModeLocal,
		Port:           defaultPort,
		WalletDatabase: defaultWalletDatabase,
		Timeout:        defaultTimeout,
		AppName:        defaultAppName,
	}
}

// Load builds the configuration from the YAML file at path (when not empty,
// falling back to $WALLETDB_CONFIG) and the environment, then validates it.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path == "" {
		path, _ = lookup(FileEnv)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports missing or inconsistent settings.
func (c Config) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeLocal:
		if c.Port <= 0 || c.Port > 65535 {
			errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
		}
	case ModeAtlas:
		if c.Address == "" {
			errs = append(errs, errors.New("MONGO_DB_ADDRESS is required in atlas mode"))
		}
		if c.User == "" {
			errs = append(errs, errors.New("MONGO_USER is required in atlas mode"))
		}
		if c.Password == "" {
			errs = append(errs, errors.New("MONGO_PASSWORD is required in atlas mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	if c.WalletDatabase == "" {
		errs = append(errs, errors.New("wallet database name is required"))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("invalid timeout %s", c.Timeout))
	}
	return errors.Join(errs...)
}

// URI returns the MongoDB connection string.
func (c Config) URI() string {
	if c.Mode == ModeAtlas {
		uri := strings.ReplaceAll(c.Address, UserPlaceholder, escapeUserInfo(c.User))
		return strings.ReplaceAll(uri, PasswordPlaceholder, escapeUserInfo(c.Password))
	}
	return fmt.Sprintf("mongodb://127.0.0.1:%d", c.Port)
}

// Redacted returns the connection string with the password masked, suitable
// for logs.
func (c Config) Redacted() string {
	if c.Mode == ModeAtlas {
		uri := strings.ReplaceAll(c.Address, UserPlaceholder, escapeUserInfo(c.User))
		return strings.ReplaceAll(uri, PasswordPlaceholder, "xxxxx")
	}
	return c.URI()
}

// escapeUserInfo percent-encodes s for the userinfo part of a connection
// string. The driver path-unescapes credentials, so a space must be %20.
func escapeUserInfo(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if fc.Mode != "" {
		m, err := ParseMode(fc.Mode)
		if err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
		c.Mode = m
	}
	if fc.Address != "" {
		c.Address = fc.Address
	}
	if fc.User != "" {
		c.User = fc.User
	}
	if fc.Password != "" {
		c.Password = fc.Password
	}
	if fc.Port != 0 {
		c.Port = fc.Port
	}
	if fc.WalletDatabase != "" {
		c.WalletDatabase = fc.WalletDatabase
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("config %s: timeout: %w", path, err)
		}
		c.Timeout = d
	}
	if fc.AppName != "" {
		c.AppName = fc.AppName
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("MONGO_TYPE"); ok {
		m, err := ParseMode(v)
		if err != nil {
			return fmt.Errorf("MONGO_TYPE: %w", err)
		}
		c.Mode = m
	}
	c.Address = envOr(lookup, "MONGO_DB_ADDRESS", c.Address)
	c.User = envOr(lookup, "MONGO_USER", c.User)
	c.Password = envOr(lookup, "MONGO_PASSWORD", c.Password)
	c.WalletDatabase = envOr(lookup, "MONGO_DB_NAME", c.WalletDatabase)
	c.AppName = envOr(lookup, "MONGO_APP_NAME", c.AppName)
	if v, ok := lookup("MONGO_DB_PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MONGO_DB_PORT: %w", err)
		}
		c.Port = p
	}
	if v, ok := lookup("MONGO_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MONGO_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// ParseMode maps MONGO_TYPE values to a Mode. "ATLAS" (any case) selects
// atlas mode; "local" and the empty string select local mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "atlas":
		return ModeAtlas, nil
	case "", "local":
		return ModeLocal, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// fileConfig mirrors Config with string durations and modes for YAML.
type fileConfig struct {
	Mode           string `yaml:"mode"`
	Address        string `yaml:"address"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Port           int    `yaml:"port"`
	WalletDatabase string `yaml:"wallet_database"`
	Timeout        string `yaml:"timeout"`
	AppName        string `yaml:"app_name"`
}

// envOr returns the environment variable value or a default.
func envOr(lookup func(string) (string, bool), key, defaultVal string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return defaultVal
}
