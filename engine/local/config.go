package local

import (
	"github.com/dursunkoc/incubator-samoa/engine"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
)

type Config struct {
	*engine.Config
	// InboxSize is the capacity of each instance inbox, a full inbox blocks the emitting instance
	InboxSize int
	Http      struct {
		// Enabled starts the topology inspector for the duration of a run
		Enabled bool
		Host    string
	}
}

func NewConfig() *Config {
	config := &Config{
		Config:    engine.NewConfig(),
		InboxSize: 1024,
	}
	config.Http.Host = `:8000`

	return config
}

func (c *Config) validate() error {
	if c.Config == nil {
		return errors.New(`[Config] cannot be nil`)
	}

	if err := c.Config.Validate(); err != nil {
		return err
	}

	if c.InboxSize < 1 {
		return errors.New(`[InboxSize] needs to be greater than zero`)
	}

	if c.Http.Enabled && c.Http.Host == `` {
		return errors.New(`[Http.Host] cannot be empty`)
	}

	return nil
}
