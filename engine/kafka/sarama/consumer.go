package sarama

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"github.com/dursunkoc/incubator-samoa/engine/kafka"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

type partitionConsumer struct {
	consumer   sarama.Consumer
	bufferSize int
	logger     log.Logger
	metrics    struct {
		endToEndLatency metrics.Observer
	}
}

// NewConsumerBuilder returns a kafka.ConsumerBuilder reading partitions with a plain sarama
// consumer, no consumer group is joined.
func NewConsumerBuilder(version sarama.KafkaVersion) kafka.ConsumerBuilder {
	return func(config *kafka.ConsumerConfig) (kafka.PartitionConsumer, error) {
		saramaConfig := sarama.NewConfig()
		saramaConfig.Version = version
		saramaConfig.ClientID = config.Id
		saramaConfig.Consumer.Return.Errors = true
		saramaConfig.ChannelBufferSize = config.ConsumerMessageChanSize

		return NewPartitionConsumer(config, saramaConfig)
	}
}

func NewPartitionConsumer(config *kafka.ConsumerConfig, saramaConfig *sarama.Config) (kafka.PartitionConsumer, error) {
	consumer, err := sarama.NewConsumer(config.BootstrapServers, saramaConfig)
	if err != nil {
		return nil, errors.Wrap(err, `new consumer failed`)
	}

	pc := &partitionConsumer{
		consumer:   consumer,
		bufferSize: config.ConsumerMessageChanSize,
		logger:     config.Logger.NewLog(log.Prefixed(`PartitionConsumer(sarama)`)),
	}

	pc.metrics.endToEndLatency = config.MetricsReporter.Observer(metrics.MetricConf{
		Path:   `partition_consumer_end_to_end_latency_microseconds`,
		Labels: []string{`topic`, `partition`},
	})

	return pc, nil
}

func (c *partitionConsumer) ConsumePartition(_ context.Context, topic string, partition int32, offset kafka.Offset) (kafka.Partition, error) {
	saramaOffset := int64(offset)
	switch offset {
	case kafka.Earliest:
		saramaOffset = sarama.OffsetOldest
	case kafka.Latest:
		saramaOffset = sarama.OffsetNewest
	}

	pConsumer, err := c.consumer.ConsumePartition(topic, partition, saramaOffset)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf(`cannot initiate partition consumer for %s_%d`, topic, partition))
	}

	pt := &saramaPartition{
		tp:       kafka.TopicPartition{Topic: topic, Partition: partition},
		consumer: pConsumer,
		records:  make(chan kafka.Record, c.bufferSize),
		closing:  make(chan struct{}),
		logger:   c.logger.NewLog(log.Prefixed(fmt.Sprintf(`%s-%d`, topic, partition))),
		latency:  c.metrics.endToEndLatency,
	}

	pt.wg.Add(2)
	go pt.consumeErrors()
	go pt.consumeRecords()

	return pt, nil
}

func (c *partitionConsumer) Close() error {
	if err := c.consumer.Close(); err != nil {
		return errors.Wrap(err, `consumer close failed`)
	}

	c.logger.Info(`Partition consumer closed`)

	return nil
}

type saramaPartition struct {
	tp        kafka.TopicPartition
	consumer  sarama.PartitionConsumer
	records   chan kafka.Record
	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	logger    log.Logger
	latency   metrics.Observer
}

func (p *saramaPartition) consumeErrors() {
	defer p.wg.Done()
	for err := range p.consumer.Errors() {
		p.logger.Error(fmt.Sprintf(`consume error due to %s`, err))
	}
}

func (p *saramaPartition) consumeRecords() {
	defer p.wg.Done()
	defer close(p.records)

	for msg := range p.consumer.Messages() {
		headers := make(kafka.RecordHeaders, 0, len(msg.Headers))
		for _, h := range msg.Headers {
			headers = append(headers, kafka.RecordHeader{Key: h.Key, Value: h.Value})
		}

		p.latency.Observe(float64(time.Since(msg.Timestamp).Microseconds()), map[string]string{
			`topic`:     msg.Topic,
			`partition`: fmt.Sprint(msg.Partition),
		})

		// keep draining until sarama closes the channel
		select {
		case p.records <- kafka.NewRecord(msg.Key, msg.Value, msg.Topic, msg.Partition, msg.Offset, msg.Timestamp, headers):
		case <-p.closing:
		}
	}
}

func (p *saramaPartition) TopicPartition() kafka.TopicPartition {
	return p.tp
}

func (p *saramaPartition) Records() <-chan kafka.Record {
	return p.records
}

func (p *saramaPartition) Close() error {
	p.closeOnce.Do(func() {
		close(p.closing)
		p.consumer.AsyncClose()
		p.wg.Wait()
	})

	return nil
}
