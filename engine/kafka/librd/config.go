package librd

import (
	"strings"

	librdKafka "github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/dursunkoc/incubator-samoa/engine/kafka"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/google/uuid"
	"github.com/tryfix/log"
)

func defaultLibrdConfig() librdKafka.ConfigMap {
	return librdKafka.ConfigMap{
		"go.logs.channel.enable": true,
		"log_level":              toLibrdLogLevel(log.INFO),
	}
}

func copyConfig(base librdKafka.ConfigMap) librdKafka.ConfigMap {
	librdCopy := librdKafka.ConfigMap{}
	for key, val := range base {
		librdCopy[key] = val
	}

	return librdCopy
}

func producerConfigMap(base librdKafka.ConfigMap, conf *kafka.ProducerConfig) (*librdKafka.ConfigMap, error) {
	cm := copyConfig(base)
	acks := `all`
	switch conf.Acks {
	case kafka.NoResponse:
		acks = `0`
	case kafka.WaitForLeader:
		acks = `1`
	}

	for key, val := range map[string]librdKafka.ConfigValue{
		`client.id`:         conf.Id,
		`bootstrap.servers`: strings.Join(conf.BootstrapServers, `,`),
		`acks`:              acks,
	} {
		if err := cm.SetKey(key, val); err != nil {
			return nil, errors.New(err.Error())
		}
	}

	return &cm, nil
}

// consumerConfigMap configures a consumer reading assigned partitions, the random group id is
// never used to commit offsets.
func consumerConfigMap(base librdKafka.ConfigMap, conf *kafka.ConsumerConfig) (*librdKafka.ConfigMap, error) {
	cm := copyConfig(base)
	for key, val := range map[string]librdKafka.ConfigValue{
		`client.id`:                conf.Id,
		`bootstrap.servers`:        strings.Join(conf.BootstrapServers, `,`),
		`group.id`:                 uuid.New().String(),
		`enable.auto.commit`:       false,
		`enable.auto.offset.store`: false,
		`auto.offset.reset`:        `earliest`,
	} {
		if err := cm.SetKey(key, val); err != nil {
			return nil, errors.New(err.Error())
		}
	}

	return &cm, nil
}

func toLibrdLogLevel(level log.Level) int {
	switch level {
	case log.ERROR:
		return 2
	case log.WARN:
		return 5
	case log.INFO:
		return 6
	case log.DEBUG:
		return 7
	}

	return 0
}

func printLogs(logger log.Logger, logs chan librdKafka.LogEvent) {
	for lg := range logs {
		switch lg.Level {
		case 0, 1, 2:
			logger.Error(lg.String(), `level`, lg.Level)
		case 3, 4, 5:
			logger.Warn(lg.String(), `level`, lg.Level)
		case 6:
			logger.Info(lg.String(), `level`, lg.Level)
		case 7:
			logger.Debug(lg.String(), `level`, lg.Level)
		}
	}
}
