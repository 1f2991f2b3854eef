package mocks

import (
	"sync"

	"github.com/Shopify/sarama"
	"github.com/dursunkoc/incubator-samoa/engine/kafka"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
)

// MockPartition is an append only log. Waiters are woken on every append.
type MockPartition struct {
	mu       sync.Mutex
	records  []kafka.Record
	appended chan struct{}
}

func newMockPartition() *MockPartition {
	return &MockPartition{appended: make(chan struct{})}
}

// Append stores r with the next offset and returns it.
func (p *MockPartition) Append(r kafka.Record) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	offset := int64(len(p.records))
	p.records = append(p.records, kafka.NewRecord(r.Key(), r.Value(), r.Topic(), r.Partition(), offset, r.Timestamp(), r.Headers()))

	close(p.appended)
	p.appended = make(chan struct{})

	return offset
}

// Latest returns the offset the next record gets.
func (p *MockPartition) Latest() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return int64(len(p.records))
}

func (p *MockPartition) FetchAll() []kafka.Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]kafka.Record(nil), p.records...)
}

// Fetch returns the records from offset on and a channel closed on the next append.
func (p *MockPartition) Fetch(offset int64) ([]kafka.Record, <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if offset >= int64(len(p.records)) {
		return nil, p.appended
	}

	return append([]kafka.Record(nil), p.records[offset:]...), p.appended
}

type MockTopic struct {
	Name       string
	Meta       *kafka.Topic
	partitions []*MockPartition
}

func (tp *MockTopic) Partition(id int32) (*MockPartition, error) {
	if id < 0 || int(id) >= len(tp.partitions) {
		return nil, sarama.ErrUnknownTopicOrPartition
	}

	return tp.partitions[id], nil
}

func (tp *MockTopic) Partitions() []*MockPartition {
	return tp.partitions
}

func (tp *MockTopic) FetchAll() []kafka.Record {
	var records []kafka.Record
	for _, pt := range tp.partitions {
		records = append(records, pt.FetchAll()...)
	}

	return records
}

type Topics struct {
	mu     sync.Mutex
	topics map[string]*MockTopic
}

func NewMockTopics() *Topics {
	return &Topics{
		topics: make(map[string]*MockTopic),
	}
}

func (td *Topics) AddTopic(meta *kafka.Topic) error {
	td.mu.Lock()
	defer td.mu.Unlock()

	if _, ok := td.topics[meta.Name]; ok {
		return sarama.ErrTopicAlreadyExists
	}

	if meta.NumPartitions < 1 {
		return errors.Errorf(`topic %s needs at least one partition`, meta.Name)
	}

	topic := &MockTopic{Name: meta.Name, Meta: meta}
	for i := int32(0); i < meta.NumPartitions; i++ {
		topic.partitions = append(topic.partitions, newMockPartition())
	}
	td.topics[meta.Name] = topic

	return nil
}

func (td *Topics) RemoveTopic(name string) error {
	td.mu.Lock()
	defer td.mu.Unlock()

	if _, ok := td.topics[name]; !ok {
		return sarama.ErrUnknownTopicOrPartition
	}
	delete(td.topics, name)

	return nil
}

func (td *Topics) Topic(name string) (*MockTopic, error) {
	td.mu.Lock()
	defer td.mu.Unlock()

	t, ok := td.topics[name]
	if !ok {
		return nil, sarama.ErrUnknownTopicOrPartition
	}

	return t, nil
}

// Names returns the names of every topic.
func (td *Topics) Names() []string {
	td.mu.Lock()
	defer td.mu.Unlock()

	var names []string
	for name := range td.topics {
		names = append(names, name)
	}

	return names
}
