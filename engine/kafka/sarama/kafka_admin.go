/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package sarama

import (
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/dursunkoc/incubator-samoa/engine/kafka"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/tryfix/log"
)

type adminOptions struct {
	KafkaVersion  sarama.KafkaVersion
	Logger        log.Logger
	VerifyTimeout time.Duration
}

func (opts *adminOptions) apply(options ...AdminOption) {
	opts.KafkaVersion = sarama.V2_4_0_0
	opts.Logger = log.NewNoopLogger()
	opts.VerifyTimeout = 30 * time.Second
	for _, opt := range options {
		opt(opts)
	}
}

type AdminOption func(*adminOptions)

func WithKafkaVersion(version sarama.KafkaVersion) AdminOption {
	return func(options *adminOptions) {
		options.KafkaVersion = version
	}
}

func WithLogger(logger log.Logger) AdminOption {
	return func(options *adminOptions) {
		options.Logger = logger
	}
}

// WithVerifyTimeout bounds the wait for created or deleted topics to become visible.
func WithVerifyTimeout(timeout time.Duration) AdminOption {
	return func(options *adminOptions) {
		options.VerifyTimeout = timeout
	}
}

type kAdmin struct {
	admin         sarama.ClusterAdmin
	logger        log.Logger
	verifyTimeout time.Duration
}

func NewAdmin(bootstrapServers []string, options ...AdminOption) (kafka.Admin, error) {
	opts := new(adminOptions)
	opts.apply(options...)
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = opts.KafkaVersion
	saramaConfig.Admin.Timeout = 20 * time.Second

	admin, err := sarama.NewClusterAdmin(bootstrapServers, saramaConfig)
	if err != nil {
		return nil, errors.Wrap(err, `admin client failed`)
	}

	return &kAdmin{
		admin:         admin,
		logger:        opts.Logger.NewLog(log.Prefixed(`kafka-admin`)),
		verifyTimeout: opts.VerifyTimeout,
	}, nil
}

func (a *kAdmin) CreateTopics(topics []*kafka.Topic) error {
	var tpNames []string
	for _, info := range topics {
		tpNames = append(tpNames, info.Name)
		details := &sarama.TopicDetail{
			NumPartitions:     info.NumPartitions,
			ReplicationFactor: info.ReplicationFactor,
			ConfigEntries:     map[string]*string{},
		}

		for cName := range info.ConfigEntries {
			conf := info.ConfigEntries[cName]
			details.ConfigEntries[cName] = &conf
		}

		err := a.admin.CreateTopic(info.Name, details, false)
		if err != nil {
			if e, ok := err.(*sarama.TopicError); ok && (e.Err == sarama.ErrTopicAlreadyExists || e.Err == sarama.ErrNoError) {
				a.logger.Warn(err)
				continue
			}
			return errors.Wrapf(err, `could not create topic [%s]`, info.Name)
		}

		a.logger.Info(fmt.Sprintf(`topic [%s] created with %d partitions`, info.Name, info.NumPartitions))
	}

	// brokers may need a couple of seconds to expose the created topics
	return a.verify(tpNames, true)
}

func (a *kAdmin) DeleteTopics(topics []string) error {
	if len(topics) < 1 {
		return nil
	}

	for _, topic := range topics {
		err := a.admin.DeleteTopic(topic)
		if err != nil && !errors.Is(err, sarama.ErrUnknownTopicOrPartition) {
			return errors.Wrap(err, fmt.Sprintf(`could not delete topic [%s]`, topic))
		}
	}

	return a.verify(topics, false)
}

// verify polls the metadata until every topic exists (or is gone).
func (a *kAdmin) verify(topics []string, exist bool) error {
	deadline := time.Now().Add(a.verifyTimeout)
	for {
		meta, err := a.admin.DescribeTopics(topics)
		if err != nil {
			return errors.Wrap(err, `cannot get metadata`)
		}

		var pending []string
		for _, tp := range meta {
			visible := tp.Err == sarama.ErrNoError
			if visible != exist {
				pending = append(pending, tp.Name)
			}
		}

		if len(pending) == 0 {
			return nil
		}

		if time.Now().After(deadline) {
			return errors.Errorf(`topics %v still in progress after %s`, pending, a.verifyTimeout)
		}

		a.logger.Warn(fmt.Sprintf(`topics %v still in progress. Waiting...`, pending))
		time.Sleep(500 * time.Millisecond)
	}
}

func (a *kAdmin) Close() {
	if err := a.admin.Close(); err != nil {
		a.logger.Warn(fmt.Sprintf(`kafkaAdmin cannot close broker : %+v`, err))
	}
}
