package librd

import (
	"context"
	"fmt"
	"sync"
	"time"

	librdKafka "github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/dursunkoc/incubator-samoa/engine/kafka"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

type partitionConsumer struct {
	consumer     *librdKafka.Consumer
	partitions   map[kafka.TopicPartition]*partition
	mu           sync.Mutex
	pollInterval time.Duration
	bufferSize   int
	logger       log.Logger
	metrics      struct {
		endToEndLatency metrics.Observer
	}
	closing   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewConsumerBuilder returns a kafka.ConsumerBuilder for librdkafka consumers reading assigned
// partitions. extra entries are applied on top of the defaults.
func NewConsumerBuilder(extra librdKafka.ConfigMap) kafka.ConsumerBuilder {
	return func(config *kafka.ConsumerConfig) (kafka.PartitionConsumer, error) {
		base := defaultLibrdConfig()
		for key, val := range extra {
			base[key] = val
		}

		cm, err := consumerConfigMap(base, config)
		if err != nil {
			return nil, errors.Wrap(err, `consumer configs setup failed`)
		}

		return NewPartitionConsumer(config, cm)
	}
}

func NewPartitionConsumer(config *kafka.ConsumerConfig, cm *librdKafka.ConfigMap) (kafka.PartitionConsumer, error) {
	con, err := librdKafka.NewConsumer(cm)
	if err != nil {
		return nil, errors.Wrap(err, `new consumer failed`)
	}

	pc := &partitionConsumer{
		consumer:     con,
		partitions:   map[kafka.TopicPartition]*partition{},
		pollInterval: 100 * time.Millisecond,
		bufferSize:   config.ConsumerMessageChanSize,
		logger:       config.Logger.NewLog(log.Prefixed(`PartitionConsumer(librdkafka)`)),
		closing:      make(chan struct{}),
		closed:       make(chan struct{}),
	}

	pc.metrics.endToEndLatency = config.MetricsReporter.Observer(metrics.MetricConf{
		Path:   `partition_consumer_end_to_end_latency_microseconds`,
		Labels: []string{`topic`, `partition`},
	})

	go printLogs(pc.logger.NewLog(log.Prefixed(`LibrdLogs`)), con.Logs())
	go pc.consumeMessages()

	return pc, nil
}

func (c *partitionConsumer) ConsumePartition(_ context.Context, topic string, ptt int32, offset kafka.Offset) (kafka.Partition, error) {
	tp := kafka.TopicPartition{Topic: topic, Partition: ptt}
	pt := &partition{
		tp:       tp,
		consumer: c,
		records:  make(chan kafka.Record, c.bufferSize),
		closing:  make(chan struct{}),
	}

	c.mu.Lock()
	c.partitions[tp] = pt
	c.mu.Unlock()

	librdOffset := librdKafka.Offset(offset)
	switch offset {
	case kafka.Earliest:
		librdOffset = librdKafka.OffsetBeginning
	case kafka.Latest:
		librdOffset = librdKafka.OffsetEnd
	}

	err := c.consumer.IncrementalAssign([]librdKafka.TopicPartition{{
		Topic:     &topic,
		Partition: ptt,
		Offset:    librdOffset,
	}})
	if err != nil {
		c.mu.Lock()
		delete(c.partitions, tp)
		c.mu.Unlock()
		return nil, errors.Wrap(err, fmt.Sprintf(`cannot initiate partition consumer for %s#%d`, topic, ptt))
	}

	return pt, nil
}

func (c *partitionConsumer) unassign(pt *partition) error {
	c.mu.Lock()
	delete(c.partitions, pt.tp)
	c.mu.Unlock()

	topic := pt.tp.Topic
	return c.consumer.IncrementalUnassign([]librdKafka.TopicPartition{{Topic: &topic, Partition: pt.tp.Partition}})
}

func (c *partitionConsumer) Close() error {
	c.logger.Info(`Partition consumer closing...`)

	c.closeOnce.Do(func() {
		close(c.closing)
	})
	<-c.closed

	c.mu.Lock()
	for _, pt := range c.partitions {
		pt.stop()
	}
	c.partitions = map[kafka.TopicPartition]*partition{}
	c.mu.Unlock()

	if err := c.consumer.Close(); err != nil {
		return errors.Wrap(err, `consumer close failed`)
	}

	c.logger.Info(`Partition consumer closed`)

	return nil
}

func (c *partitionConsumer) consumeMessages() {
	defer close(c.closed)

	for {
		select {
		case <-c.closing:
			return
		default:
		}

		ev := c.consumer.Poll(int(c.pollInterval.Milliseconds()))
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *librdKafka.Message:
			tp := kafka.TopicPartition{Topic: *e.TopicPartition.Topic, Partition: e.TopicPartition.Partition}

			c.mu.Lock()
			pt, ok := c.partitions[tp]
			c.mu.Unlock()
			if !ok {
				c.logger.Warn(fmt.Sprintf(`message for unassigned partition %s dropped`, tp))
				continue
			}

			headers := make(kafka.RecordHeaders, 0, len(e.Headers))
			for _, h := range e.Headers {
				headers = append(headers, kafka.RecordHeader{Key: []byte(h.Key), Value: h.Value})
			}

			c.metrics.endToEndLatency.Observe(float64(time.Since(e.Timestamp).Microseconds()), map[string]string{
				`topic`:     tp.Topic,
				`partition`: fmt.Sprint(tp.Partition),
			})

			pt.send(c.closing, kafka.NewRecord(e.Key, e.Value, tp.Topic, tp.Partition, int64(e.TopicPartition.Offset), e.Timestamp, headers))

		case librdKafka.Error:
			c.logger.Warn(fmt.Sprintf(`Consume error due to %s`, e))
		default:
			c.logger.Trace(`Ignored `, e.String())
		}
	}
}

type partition struct {
	tp        kafka.TopicPartition
	consumer  *partitionConsumer
	records   chan kafka.Record
	closing   chan struct{}
	closeOnce sync.Once
}

func (p *partition) send(consumerClosing <-chan struct{}, r kafka.Record) {
	select {
	case p.records <- r:
	case <-p.closing:
	case <-consumerClosing:
	}
}

func (p *partition) stop() {
	p.closeOnce.Do(func() {
		close(p.closing)
	})
}

func (p *partition) TopicPartition() kafka.TopicPartition {
	return p.tp
}

func (p *partition) Records() <-chan kafka.Record {
	return p.records
}

func (p *partition) Close() error {
	p.stop()
	if err := p.consumer.unassign(p); err != nil {
		return errors.Wrapf(err, `partition %s unassign failed`, p.tp)
	}

	return nil
}
