package mocks

import (
	"context"
	"sync"

	"github.com/dursunkoc/incubator-samoa/engine/kafka"
)

type MockPartitionConsumer struct {
	topics *Topics
	mu     sync.Mutex
	open   []*mockPartition
}

func NewMockPartitionConsumer(topics *Topics) *MockPartitionConsumer {
	return &MockPartitionConsumer{topics: topics}
}

// Builder returns a kafka.ConsumerBuilder which always hands out c.
func (c *MockPartitionConsumer) Builder() kafka.ConsumerBuilder {
	return func(*kafka.ConsumerConfig) (kafka.PartitionConsumer, error) {
		return c, nil
	}
}

func (c *MockPartitionConsumer) ConsumePartition(_ context.Context, topic string, partition int32, offset kafka.Offset) (kafka.Partition, error) {
	tp, err := c.topics.Topic(topic)
	if err != nil {
		return nil, err
	}

	log, err := tp.Partition(partition)
	if err != nil {
		return nil, err
	}

	start := int64(offset)
	switch offset {
	case kafka.Earliest:
		start = 0
	case kafka.Latest:
		start = log.Latest()
	}

	pt := &mockPartition{
		tp:      kafka.TopicPartition{Topic: topic, Partition: partition},
		log:     log,
		records: make(chan kafka.Record),
		closing: make(chan struct{}),
		closed:  make(chan struct{}),
	}
	go pt.run(start)

	c.mu.Lock()
	c.open = append(c.open, pt)
	c.mu.Unlock()

	return pt, nil
}

func (c *MockPartitionConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, pt := range c.open {
		_ = pt.Close()
	}
	c.open = nil

	return nil
}

type mockPartition struct {
	tp        kafka.TopicPartition
	log       *MockPartition
	records   chan kafka.Record
	closeOnce sync.Once
	closing   chan struct{}
	closed    chan struct{}
}

func (p *mockPartition) run(offset int64) {
	defer close(p.closed)
	defer close(p.records)

	for {
		batch, appended := p.log.Fetch(offset)
		for _, r := range batch {
			select {
			case p.records <- r:
				offset++
			case <-p.closing:
				return
			}
		}

		if len(batch) > 0 {
			continue
		}

		select {
		case <-appended:
		case <-p.closing:
			return
		}
	}
}

func (p *mockPartition) TopicPartition() kafka.TopicPartition {
	return p.tp
}

func (p *mockPartition) Records() <-chan kafka.Record {
	return p.records
}

func (p *mockPartition) Close() error {
	p.closeOnce.Do(func() {
		close(p.closing)
	})
	<-p.closed

	return nil
}
