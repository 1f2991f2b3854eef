package mocks

import (
	"context"
	"sync/atomic"

	"github.com/dursunkoc/incubator-samoa/engine/kafka"
)

type MockProducer struct {
	topics   *Topics
	produced uint64
	closed   uint32
}

func NewMockProducer(topics *Topics) *MockProducer {
	return &MockProducer{topics: topics}
}

// Builder returns a kafka.ProducerBuilder which always hands out p.
func (p *MockProducer) Builder() kafka.ProducerBuilder {
	return func(*kafka.ProducerConfig) (kafka.Producer, error) {
		return p, nil
	}
}

func (p *MockProducer) ProduceSync(_ context.Context, record kafka.Record) (partition int32, offset int64, err error) {
	topic, err := p.topics.Topic(record.Topic())
	if err != nil {
		return 0, 0, err
	}

	pt, err := topic.Partition(record.Partition())
	if err != nil {
		return 0, 0, err
	}

	atomic.AddUint64(&p.produced, 1)

	return record.Partition(), pt.Append(record), nil
}

// Produced counts the records written so far.
func (p *MockProducer) Produced() uint64 {
	return atomic.LoadUint64(&p.produced)
}

func (p *MockProducer) Closed() bool {
	return atomic.LoadUint32(&p.closed) == 1
}

func (p *MockProducer) Close() error {
	atomic.StoreUint32(&p.closed, 1)
	return nil
}
