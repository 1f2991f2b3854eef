/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package mocks

import (
	"github.com/Shopify/sarama"
	"github.com/dursunkoc/incubator-samoa/engine/kafka"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
)

type MockKafkaAdmin struct {
	Topics *Topics
}

func NewMockAdmin(topics *Topics) *MockKafkaAdmin {
	return &MockKafkaAdmin{Topics: topics}
}

func (m *MockKafkaAdmin) CreateTopics(topics []*kafka.Topic) error {
	for _, topic := range topics {
		err := m.Topics.AddTopic(topic)
		if err != nil && !errors.Is(err, sarama.ErrTopicAlreadyExists) {
			return err
		}
	}

	return nil
}

func (m *MockKafkaAdmin) DeleteTopics(topics []string) error {
	for _, tp := range topics {
		if err := m.Topics.RemoveTopic(tp); err != nil && !errors.Is(err, sarama.ErrUnknownTopicOrPartition) {
			return err
		}
	}

	return nil
}

func (m *MockKafkaAdmin) Close() {}
