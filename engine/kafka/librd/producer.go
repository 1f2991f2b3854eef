/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package librd

import (
	"context"
	"fmt"
	"time"

	librdKafka "github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/dursunkoc/incubator-samoa/engine/kafka"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

type librdProducer struct {
	id           string
	baseProducer *librdKafka.Producer
	logger       log.Logger
	metrics      struct {
		produceLatency metrics.Observer
		produceErrors  metrics.Counter
	}
}

// NewProducerBuilder returns a kafka.ProducerBuilder for librdkafka producers. extra entries are
// applied on top of the defaults.
func NewProducerBuilder(extra librdKafka.ConfigMap) kafka.ProducerBuilder {
	return func(config *kafka.ProducerConfig) (kafka.Producer, error) {
		base := defaultLibrdConfig()
		for key, val := range extra {
			base[key] = val
		}

		cm, err := producerConfigMap(base, config)
		if err != nil {
			return nil, errors.Wrap(err, `producer configs setup failed`)
		}

		return NewProducer(config, cm)
	}
}

func NewProducer(config *kafka.ProducerConfig, cm *librdKafka.ConfigMap) (kafka.Producer, error) {
	logger := config.Logger.NewLog(log.Prefixed(`Producer(librdkafka)`))
	logger.Info(`Producer initiating...`)

	producer, err := librdKafka.NewProducer(cm)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf(`Producer(%s) init failed`, config.Id))
	}

	defer logger.Info(`Producer initiated`)

	p := &librdProducer{
		id:           config.Id,
		baseProducer: producer,
		logger:       logger,
	}

	// delivery reports of ProduceSync arrive on their own channel, everything else lands here
	go func() {
		for ev := range producer.Events() {
			switch e := ev.(type) {
			case librdKafka.Error:
				p.logger.Error(fmt.Sprintf(`Event [%s]%s`, e.Code(), e))
			case *librdKafka.Message:
				p.logger.Error(fmt.Sprintf(`Event %s`, e.TopicPartition.Error))
			}
		}
	}()

	go printLogs(logger.NewLog(log.Prefixed(`LibrdLogs`)), producer.Logs())

	p.metrics.produceLatency = config.MetricsReporter.Observer(metrics.MetricConf{
		Path:        `producer_produced_latency_microseconds`,
		Labels:      []string{`topic`},
		ConstLabels: map[string]string{`producer_id`: config.Id},
	})

	p.metrics.produceErrors = config.MetricsReporter.Counter(metrics.MetricConf{
		Path:        `producer_error_count`,
		Labels:      []string{`error`},
		ConstLabels: map[string]string{`producer_id`: config.Id},
	})

	return p, nil
}

func (p *librdProducer) ProduceSync(ctx context.Context, record kafka.Record) (partition int32, offset int64, err error) {
	topic := record.Topic()
	message := &librdKafka.Message{
		TopicPartition: librdKafka.TopicPartition{
			Topic:     &topic,
			Partition: record.Partition(),
		},
		Key:           record.Key(),
		Value:         record.Value(),
		Timestamp:     record.Timestamp(),
		TimestampType: librdKafka.TimestampCreateTime,
	}

	for _, header := range record.Headers() {
		message.Headers = append(message.Headers, librdKafka.Header{
			Key:   string(header.Key),
			Value: header.Value,
		})
	}

	begin := time.Now()
	dChan := make(chan librdKafka.Event, 1)
	if err := p.baseProducer.Produce(message, dChan); err != nil {
		p.metrics.produceErrors.Count(1, map[string]string{`error`: `produce`})
		return 0, 0, errors.Wrap(err, `cannot send message`)
	}

	var dRpt librdKafka.Event
	select {
	case dRpt = <-dChan:
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	}

	dmSg, ok := dRpt.(*librdKafka.Message)
	if !ok {
		return 0, 0, errors.Errorf(`unexpected delivery report %s`, dRpt)
	}

	if dmSg.TopicPartition.Error != nil {
		p.metrics.produceErrors.Count(1, map[string]string{`error`: `delivery`})
		return 0, 0, errors.Wrapf(dmSg.TopicPartition.Error, `message %s delivery failed`, record)
	}

	p.metrics.produceLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), map[string]string{
		`topic`: topic,
	})

	p.logger.DebugContext(ctx, fmt.Sprintf("Delivered message to topic %s[%d]@%d",
		topic, dmSg.TopicPartition.Partition, dmSg.TopicPartition.Offset))

	return dmSg.TopicPartition.Partition, int64(dmSg.TopicPartition.Offset), nil
}

func (p *librdProducer) Close() error {
	p.logger.Info(`Producer closing...`)
	defer p.logger.Info(`Producer closed`)

	if remaining := p.baseProducer.Flush(10000); remaining > 0 {
		p.logger.Warn(fmt.Sprintf(`%d messages were not delivered before close`, remaining))
	}

	p.baseProducer.Close()

	return nil
}
