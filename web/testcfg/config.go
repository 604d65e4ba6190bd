// Package testcfg configures the status API acceptance tests.
package testcfg

import (
	"github.com/caarlos0/env/v11"
)

// Config holds test-specific configuration for status API acceptance tests
type Config struct {
	LogLevel         string `env:"WEB_TEST_LOG_LEVEL" envDefault:"info"`
	LogHumanFriendly bool   `env:"WEB_TEST_LOG_HUMAN_FRIENDLY" envDefault:"true"`
	MigrationsDir    string `env:"WEB_TEST_MIGRATIONS_DIR" envDefault:"../migrator/migrations"`
	// Each subtest opens its own pool against the shared database
	MaxConnsPerServer int32 `env:"WEB_TEST_MAX_CONNS_PER_SERVER" envDefault:"2"`
}

// New loads test configuration from environment variables
func New() Config {
	return env.Must(env.ParseAs[Config]())
}
