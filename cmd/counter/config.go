package main

import (
	"crypto/ed25519"
	"os"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	pg "github.com/code-payments/counter-program/pkg/database/postgres"
)

const (
	modeSimulate = "simulate"
	modeRPC      = "rpc"

	ledgerMemory   = "memory"
	ledgerPostgres = "postgres"
)

// Config drives a single counter session: fund a payer, create a counter
// account and increment it.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	// Mode selects where transactions run. simulate executes them against an
	// in process runtime, rpc submits them to RPCEndpoint.
	Mode        string `mapstructure:"mode"`
	RPCEndpoint string `mapstructure:"rpc_endpoint"`

	// Ledger selects the account store backing the simulated runtime.
	Ledger   string    `mapstructure:"ledger"`
	Postgres pg.Config `mapstructure:"postgres"`

	// Payer is a base58 encoded ed25519 private key. A fresh key is generated
	// when it's empty.
	Payer string `mapstructure:"payer"`

	AirdropLamports  uint64 `mapstructure:"airdrop_lamports"`
	Increments       uint64 `mapstructure:"increments"`
	Memo             string `mapstructure:"memo"`
	ComputeUnitLimit uint32 `mapstructure:"compute_unit_limit"`

	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
}

var defaultConfig = Config{
	LogLevel: "info",

	AppName: "counter",

	Mode:        modeSimulate,
	RPCEndpoint: "http://localhost:8899",

	Ledger: ledgerMemory,
	Postgres: pg.Config{
		Host:   "localhost",
		Port:   5432,
		DbName: "counter",
	},

	AirdropLamports: 1_000_000_000,
	Increments:      3,

	ConfirmationTimeout: 30 * time.Second,
	PollInterval:        250 * time.Millisecond,
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	_ = viper.BindEnv("app_name", "APP_NAME")

	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")

	_ = viper.BindEnv("mode", "COUNTER_MODE")
	_ = viper.BindEnv("rpc_endpoint", "SOLANA_RPC_ENDPOINT")

	_ = viper.BindEnv("ledger", "COUNTER_LEDGER")
	_ = viper.BindEnv("postgres.user", "POSTGRES_USER")
	_ = viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	_ = viper.BindEnv("postgres.host", "POSTGRES_HOST")
	_ = viper.BindEnv("postgres.port", "POSTGRES_PORT")
	_ = viper.BindEnv("postgres.db_name", "POSTGRES_DB_NAME")
	_ = viper.BindEnv("postgres.max_open_connections", "POSTGRES_MAX_OPEN_CONNECTIONS")
	_ = viper.BindEnv("postgres.max_idle_connections", "POSTGRES_MAX_IDLE_CONNECTIONS")
	_ = viper.BindEnv("postgres.use_aws_iam", "POSTGRES_USE_AWS_IAM")

	_ = viper.BindEnv("payer", "COUNTER_PAYER")

	_ = viper.BindEnv("airdrop_lamports", "COUNTER_AIRDROP_LAMPORTS")
	_ = viper.BindEnv("increments", "COUNTER_INCREMENTS")
	_ = viper.BindEnv("memo", "COUNTER_MEMO")
	_ = viper.BindEnv("compute_unit_limit", "COUNTER_COMPUTE_UNIT_LIMIT")

	_ = viper.BindEnv("confirmation_timeout", "COUNTER_CONFIRMATION_TIMEOUT")
	_ = viper.BindEnv("poll_interval", "COUNTER_POLL_INTERVAL")
}

// loadConfig reads the optional config file at path, layers the environment
// over it and fills the rest from defaultConfig.
func loadConfig(v *viper.Viper, path string) (*Config, error) {
	// viper.ReadInConfig only returns ConfigFileNotFoundError when it searched
	// for a default file, so an explicit path that doesn't exist is skipped
	// here instead.
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config")
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to check if config exists")
	}

	config := defaultConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case modeSimulate:
		if c.Ledger != ledgerMemory && c.Ledger != ledgerPostgres {
			return errors.Errorf("unknown ledger %q", c.Ledger)
		}
	case modeRPC:
		if len(c.RPCEndpoint) == 0 {
			return errors.New("rpc mode requires an rpc endpoint")
		}
	default:
		return errors.Errorf("unknown mode %q", c.Mode)
	}

	if len(c.AppName) == 0 {
		return errors.New("must specify an application name")
	}
	if c.PollInterval <= 0 || c.ConfirmationTimeout < c.PollInterval {
		return errors.New("confirmation timeout must exceed a positive poll interval")
	}
	return nil
}

// payerKey decodes the configured payer, or generates one.
func (c *Config) payerKey() (ed25519.PrivateKey, error) {
	if len(c.Payer) == 0 {
		_, key, err := ed25519.GenerateKey(nil)
		return key, err
	}

	raw, err := base58.Decode(c.Payer)
	if err != nil {
		return nil, errors.Wrap(err, "invalid payer encoding")
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("invalid payer size %d", len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}
