/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package memory

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/dursunkoc/incubator-samoa/backend"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

type record struct {
	key       []byte
	value     []byte
	createdAt time.Time
	expiry    time.Duration
}

func (r record) expired(now time.Time, global time.Duration) bool {
	age := now.Sub(r.createdAt)
	return (r.expiry > 0 && age > r.expiry) || (global > 0 && age > global)
}

type Config struct {
	// RecordExpiry applies to every record, zero disables it
	RecordExpiry                 time.Duration
	ExpiredRecordCleanupInterval time.Duration
	Logger                       log.Logger
	MetricsReporter              metrics.Reporter
}

func NewConfig() *Config {
	conf := new(Config)
	conf.parse()

	return conf
}

func (c *Config) parse() {
	if c.ExpiredRecordCleanupInterval == time.Duration(0) {
		c.ExpiredRecordCleanupInterval = 10 * time.Second
	}

	if c.Logger == nil {
		c.Logger = log.NewNoopLogger()
	}

	if c.MetricsReporter == nil {
		c.MetricsReporter = metrics.NoopReporter()
	}
}

type memory struct {
	name                         string
	expiredRecordCleanupInterval time.Duration
	globalRecordExpiry           time.Duration
	mu                           sync.RWMutex
	records                      map[string]record
	closing                      chan struct{}
	closeOnce                    sync.Once
	logger                       log.Logger
	metrics                      struct {
		readLatency   metrics.Observer
		updateLatency metrics.Observer
		deleteLatency metrics.Observer
		storageSize   metrics.Gauge
	}
}

func Builder(config *Config) backend.Builder {
	return func(name string) (backend.Backend, error) {
		return NewMemoryBackend(name, config), nil
	}
}

func NewMemoryBackend(name string, config *Config) backend.Backend {
	config.parse()

	m := &memory{
		name:                         name,
		globalRecordExpiry:           config.RecordExpiry,
		expiredRecordCleanupInterval: config.ExpiredRecordCleanupInterval,
		records:                      map[string]record{},
		closing:                      make(chan struct{}),
		logger:                       config.Logger.NewLog(log.Prefixed(`MemoryBackend`)),
	}

	constLabels := map[string]string{`name`: name, `type`: `memory`}
	m.metrics.readLatency = config.MetricsReporter.Observer(metrics.MetricConf{Path: `backend_read_latency_microseconds`, ConstLabels: constLabels})
	m.metrics.updateLatency = config.MetricsReporter.Observer(metrics.MetricConf{Path: `backend_update_latency_microseconds`, ConstLabels: constLabels})
	m.metrics.storageSize = config.MetricsReporter.Gauge(metrics.MetricConf{Path: `backend_storage_size`, ConstLabels: constLabels})
	m.metrics.deleteLatency = config.MetricsReporter.Observer(metrics.MetricConf{Path: `backend_delete_latency_microseconds`, ConstLabels: constLabels})

	go m.runCleaner()

	return m
}

func (m *memory) runCleaner() {
	ticker := time.NewTicker(m.expiredRecordCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.closing:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for k, r := range m.records {
				if r.expired(now, m.globalRecordExpiry) {
					delete(m.records, k)
				}
			}
			m.metrics.storageSize.Count(float64(len(m.records)), nil)
			m.mu.Unlock()
		}
	}
}

// snapshot returns the live records sorted by key.
func (m *memory) snapshot(prefix []byte) []record {
	now := time.Now()
	m.mu.RLock()
	records := make([]record, 0, len(m.records))
	for _, r := range m.records {
		if r.expired(now, m.globalRecordExpiry) || !bytes.HasPrefix(r.key, prefix) {
			continue
		}
		records = append(records, r)
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return bytes.Compare(records[i].key, records[j].key) < 0
	})

	return records
}

func (m *memory) Name() string {
	return m.name
}

func (m *memory) String() string {
	return `memory`
}

func (m *memory) Persistent() bool {
	return false
}

func (m *memory) Set(key []byte, value []byte, expiry time.Duration) error {
	defer func(begin time.Time) {
		m.metrics.updateLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	m.mu.Lock()
	m.records[string(key)] = record{
		key:       append([]byte(nil), key...),
		value:     append([]byte(nil), value...),
		expiry:    expiry,
		createdAt: time.Now(),
	}
	m.mu.Unlock()

	return nil
}

func (m *memory) Get(key []byte) ([]byte, error) {
	defer func(begin time.Time) {
		m.metrics.readLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	m.mu.RLock()
	r, ok := m.records[string(key)]
	m.mu.RUnlock()

	if !ok || r.expired(time.Now(), m.globalRecordExpiry) {
		return nil, nil
	}

	return r.value, nil
}

func (m *memory) PrefixedIterator(keyPrefix []byte) backend.Iterator {
	return newIterator(m.snapshot(keyPrefix))
}

func (m *memory) Iterator() backend.Iterator {
	return newIterator(m.snapshot(nil))
}

func (m *memory) Delete(key []byte) error {
	defer func(begin time.Time) {
		m.metrics.deleteLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	m.mu.Lock()
	delete(m.records, string(key))
	m.mu.Unlock()

	return nil
}

func (m *memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.closing)
		m.mu.Lock()
		m.records = map[string]record{}
		m.mu.Unlock()
		m.logger.Debug(`backend ` + m.name + ` closed`)
	})

	return nil
}
