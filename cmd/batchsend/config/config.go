package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrPrivateKeyRequired  = errors.New("BATCHSEND_PRIVATE_KEY is required to write or dry-run")
	ErrBatchSenderRequired = errors.New("BATCHSEND_BATCH_SENDER is required to write or dry-run")
)

// Config holds configuration for the batch sender job
type Config struct {
	// Chain configuration
	RPCURL      string         `env:"BATCHSEND_RPC_URL" envDefault:"http://localhost:8545"`
	BatchSender common.Address `env:"BATCHSEND_BATCH_SENDER"`
	PrivateKey  string         `env:"BATCHSEND_PRIVATE_KEY"`

	// Send configuration
	File            string `env:"BATCHSEND_FILE"`
	BatchSize       int    `env:"BATCHSEND_BATCH_SIZE" envDefault:"150"`
	Write           bool   `env:"BATCHSEND_WRITE" envDefault:"false"`
	DryRun          bool   `env:"BATCHSEND_DRY_RUN" envDefault:"false"`
	SkipLedgerCheck bool   `env:"BATCHSEND_SKIP_LEDGER_CHECK" envDefault:"false"`

	// Ledger configuration; DatabaseURL switches the ledger to Postgres
	LedgerFile  string `env:"BATCHSEND_LEDGER_FILE" envDefault:"distributions-ledger.json"`
	DatabaseURL string `env:"BATCHSEND_DATABASE_URL"`

	// PushgatewayURL enables pushing run metrics when set
	PushgatewayURL string `env:"BATCHSEND_PUSHGATEWAY_URL"`

	// Logging configuration
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogHumanFriendly bool   `env:"LOG_HUMAN_FRIENDLY" envDefault:"false"`
}

// NeedsChain reports whether the run talks to the chain
func (c Config) NeedsChain() bool {
	return c.Write || c.DryRun
}

// Validate checks settings that depend on each other
func (c Config) Validate() error {
	if !c.NeedsChain() {
		return nil
	}
	if c.PrivateKey == "" {
		return ErrPrivateKeyRequired
	}
	if c.BatchSender == (common.Address{}) {
		return ErrBatchSenderRequired
	}
	return nil
}

// New loads all configuration from environment variables
func New() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}
	return cfg
}
