package kafka

import (
	"github.com/dursunkoc/incubator-samoa/encoding"
	"github.com/dursunkoc/incubator-samoa/engine"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/google/uuid"
)

// AssignmentFunc reports whether this process runs the instance at addr.
type AssignmentFunc func(addr engine.Address) bool

type Config struct {
	*engine.Config
	BootstrapServers []string
	// RunID namespaces the edge topics of a run, every process of a run must share it(default: random uuid)
	RunID       string
	TopicPrefix string
	Topics      struct {
		ReplicationFactor int16
		ConfigEntries     map[string]string
		// Cleanup deletes the edge topics when the run finished
		Cleanup bool
	}
	// PayloadEncoder encodes event payloads(default: JSON)
	PayloadEncoder encoding.Encoder
	// Assignment selects the instances of this process(default: all)
	Assignment AssignmentFunc
	// InboxSize is the record buffer of each local processor instance
	InboxSize int

	Admin           Admin
	ProducerBuilder ProducerBuilder
	ConsumerBuilder ConsumerBuilder
}

func NewConfig() *Config {
	config := &Config{
		Config:         engine.NewConfig(),
		RunID:          uuid.New().String(),
		TopicPrefix:    `topology.`,
		PayloadEncoder: encoding.JSONEncoder{},
		Assignment:     AssignAll,
		InboxSize:      1000,
	}
	config.Topics.ReplicationFactor = 1

	return config
}

// AssignAll runs the whole topology in one process.
func AssignAll(engine.Address) bool {
	return true
}

// AssignProcessors runs every instance of the given processors.
func AssignProcessors(ids ...int) AssignmentFunc {
	assigned := map[int]bool{}
	for _, id := range ids {
		assigned[id] = true
	}

	return func(addr engine.Address) bool {
		return assigned[int(addr.Processor)]
	}
}

func (c *Config) validate() error {
	if c.Config == nil {
		return errors.New(`[Config] cannot be nil`)
	}

	if err := c.Config.Validate(); err != nil {
		return err
	}

	if c.RunID == `` {
		return errors.New(`[RunID] cannot be empty`)
	}

	if c.Topics.ReplicationFactor < 1 {
		return errors.New(`[Topics.ReplicationFactor] needs to be greater than zero`)
	}

	if c.PayloadEncoder == nil {
		return errors.New(`[PayloadEncoder] cannot be nil`)
	}

	if c.Assignment == nil {
		return errors.New(`[Assignment] cannot be nil`)
	}

	if c.InboxSize < 1 {
		return errors.New(`[InboxSize] needs to be greater than zero`)
	}

	if c.Admin == nil {
		return errors.New(`[Admin] cannot be nil`)
	}

	if c.ProducerBuilder == nil {
		return errors.New(`[ProducerBuilder] cannot be nil`)
	}

	if c.ConsumerBuilder == nil {
		return errors.New(`[ConsumerBuilder] cannot be nil`)
	}

	return nil
}
