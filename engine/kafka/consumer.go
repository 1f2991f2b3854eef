package kafka

import (
	"context"
	"fmt"

	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

// TopicPartition represents a kafka topic partition.
type TopicPartition struct {
	Topic     string
	Partition int32
}

func (tp TopicPartition) String() string {
	return fmt.Sprintf(`%s-%d`, tp.Topic, tp.Partition)
}

type Offset int64

const (
	Earliest Offset = -2
	Latest   Offset = -1
)

func (o Offset) String() string {
	switch o {
	case Earliest:
		return `Earliest`
	case Latest:
		return `Latest`
	default:
		return fmt.Sprint(int(o))
	}
}

// PartitionConsumer reads single partitions without a consumer group.
type PartitionConsumer interface {
	ConsumePartition(ctx context.Context, topic string, partition int32, offset Offset) (Partition, error)
	Close() error
}

// Partition delivers the records of one topic partition in offset order until it is closed.
type Partition interface {
	TopicPartition() TopicPartition
	Records() <-chan Record
	Close() error
}

type ConsumerBuilder func(config *ConsumerConfig) (PartitionConsumer, error)

type ConsumerConfig struct {
	Id                      string
	BootstrapServers        []string
	ConsumerMessageChanSize int
	Logger                  log.Logger
	MetricsReporter         metrics.Reporter
}

func NewConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		ConsumerMessageChanSize: 1000,
		Logger:                  log.NewNoopLogger(),
		MetricsReporter:         metrics.NoopReporter(),
	}
}
