package engine

import (
	"time"

	"github.com/dursunkoc/incubator-samoa/backend"
	"github.com/dursunkoc/incubator-samoa/backend/memory"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

type Config struct {
	// StateBackend builds the state store of each processor instance(default: memory)
	StateBackend backend.Builder
	// GenerateRate limits the events per second of each entrance processor, zero disables the limit
	GenerateRate float64
	// IdleBackoff is the pause after an entrance processor produced no events
	IdleBackoff time.Duration
	// MetricsReporter default metrics reporter(default: NoopReporter)
	MetricsReporter metrics.Reporter
	// Logger default logger(default: NoopLogger)
	Logger log.Logger
}

func NewConfig() *Config {
	config := &Config{}
	config.IdleBackoff = 10 * time.Millisecond
	config.MetricsReporter = metrics.NoopReporter()
	config.Logger = log.NewNoopLogger()
	config.StateBackend = memory.Builder(memory.NewConfig())

	return config
}

func (c *Config) Validate() error {
	if c.StateBackend == nil {
		return errors.New(`[StateBackend] cannot be nil`)
	}

	if c.GenerateRate < 0 {
		return errors.New(`[GenerateRate] cannot be negative`)
	}

	if c.IdleBackoff <= 0 {
		return errors.New(`[IdleBackoff] needs to be greater than zero`)
	}

	if c.Logger == nil {
		return errors.New(`[Logger] cannot be nil`)
	}

	if c.MetricsReporter == nil {
		return errors.New(`[MetricsReporter] cannot be nil`)
	}

	return nil
}
