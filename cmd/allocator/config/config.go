package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

// Config holds configuration for the allocator job
type Config struct {
	// Indexer configuration
	SubgraphURL       string        `env:"ALLOCATOR_SUBGRAPH_URL,required"`
	BlocksURL         string        `env:"ALLOCATOR_BLOCKS_URL" envDefault:"https://coins.llama.fi"`
	Chain             string        `env:"ALLOCATOR_CHAIN" envDefault:"arbitrum"`
	RateLimit         float64       `env:"ALLOCATOR_RATE_LIMIT" envDefault:"5"`
	HttpClientTimeout time.Duration `env:"ALLOCATOR_HTTP_CLIENT_TIMEOUT" envDefault:"30s"`

	// Distribution configuration
	Token          common.Address `env:"ALLOCATOR_TOKEN,required"`
	TypeID         int64          `env:"ALLOCATOR_TYPE_ID" envDefault:"1"`
	DistributionID int64          `env:"ALLOCATOR_DISTRIBUTION_ID,required"`
	MinReward      string         `env:"ALLOCATOR_MIN_REWARD" envDefault:"0.1"`

	// PeriodStart is any date (YYYY-MM-DD) inside the week to distribute; empty means the last full week
	PeriodStart string `env:"ALLOCATOR_PERIOD_START"`
	Output      string `env:"ALLOCATOR_OUTPUT" envDefault:"distribution.json"`

	// PushgatewayURL enables pushing run metrics when set
	PushgatewayURL string `env:"ALLOCATOR_PUSHGATEWAY_URL"`

	// Logging configuration
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogHumanFriendly bool   `env:"LOG_HUMAN_FRIENDLY" envDefault:"false"`
}

// New loads all configuration from environment variables
func New() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}
	return cfg
}
