package sarama

import (
	"context"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/dursunkoc/incubator-samoa/engine/kafka"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

type saramaProducer struct {
	id       string
	producer sarama.SyncProducer
	logger   log.Logger
	metrics  struct {
		produceLatency metrics.Observer
	}
}

// NewProducerBuilder returns a kafka.ProducerBuilder for sarama sync producers. Records are sent
// to the partition they name.
func NewProducerBuilder(version sarama.KafkaVersion) kafka.ProducerBuilder {
	return func(config *kafka.ProducerConfig) (kafka.Producer, error) {
		saramaConfig := sarama.NewConfig()
		saramaConfig.Version = version
		saramaConfig.ClientID = config.Id
		saramaConfig.Producer.Partitioner = sarama.NewManualPartitioner
		saramaConfig.Producer.Return.Successes = true
		saramaConfig.Producer.RequiredAcks = sarama.RequiredAcks(config.Acks)

		return NewProducer(config, saramaConfig)
	}
}

func NewProducer(config *kafka.ProducerConfig, saramaConfig *sarama.Config) (kafka.Producer, error) {
	logger := config.Logger.NewLog(log.Prefixed(`Producer(sarama)`))
	logger.Info(fmt.Sprintf(`Producer [%s] initiating...`, config.Id))

	prd, err := sarama.NewSyncProducer(config.BootstrapServers, saramaConfig)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf(`Producer(%s) init failed`, config.Id))
	}

	defer logger.Info(fmt.Sprintf(`Producer [%s] initiated`, config.Id))

	p := &saramaProducer{
		id:       config.Id,
		producer: prd,
		logger:   logger,
	}

	p.metrics.produceLatency = config.MetricsReporter.Observer(metrics.MetricConf{
		Path:        `producer_produced_latency_microseconds`,
		Labels:      []string{`topic`, `partition`},
		ConstLabels: map[string]string{`producer_id`: config.Id},
	})

	return p, nil
}

func (p *saramaProducer) ProduceSync(_ context.Context, record kafka.Record) (partition int32, offset int64, err error) {
	t := time.Now()

	m := &sarama.ProducerMessage{
		Topic:     record.Topic(),
		Partition: record.Partition(),
		Timestamp: record.Timestamp(),
	}

	if record.Key() != nil {
		m.Key = sarama.ByteEncoder(record.Key())
	}

	if record.Value() != nil {
		m.Value = sarama.ByteEncoder(record.Value())
	}

	for _, h := range record.Headers() {
		m.Headers = append(m.Headers, sarama.RecordHeader{Key: h.Key, Value: h.Value})
	}

	partition, offset, err = p.producer.SendMessage(m)
	if err != nil {
		return 0, 0, errors.Wrapf(err, `cannot send message to %s[%d]`, record.Topic(), record.Partition())
	}

	p.metrics.produceLatency.Observe(float64(time.Since(t).Nanoseconds()/1e3), map[string]string{
		`topic`:     record.Topic(),
		`partition`: fmt.Sprint(partition),
	})

	return partition, offset, nil
}

func (p *saramaProducer) Close() error {
	defer p.logger.Info(fmt.Sprintf(`Producer [%s] closed`, p.id))
	return p.producer.Close()
}
