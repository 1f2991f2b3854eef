/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package badger

import (
	"fmt"
	"sync"
	"time"

	badgerDB "github.com/dgraph-io/badger/v3"
	"github.com/dursunkoc/incubator-samoa/backend"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

type Config struct {
	StorageDir string
	// InMemory keeps the state off disk, StorageDir is ignored
	InMemory                bool
	ValueLogCleanupInterval time.Duration
	Logger                  log.Logger
	MetricsReporter         metrics.Reporter
}

func NewConfig() *Config {
	conf := new(Config)
	conf.parse()

	return conf
}

func (c *Config) parse() {
	if c.ValueLogCleanupInterval == time.Duration(0) {
		c.ValueLogCleanupInterval = 1 * time.Minute
	}

	if c.StorageDir == `` {
		c.StorageDir = `storage`
	}

	if c.Logger == nil {
		c.Logger = log.NewNoopLogger()
	}

	if c.MetricsReporter == nil {
		c.MetricsReporter = metrics.NoopReporter()
	}
}

type badger struct {
	name      string
	db        *badgerDB.DB
	inMemory  bool
	closing   chan struct{}
	closeOnce sync.Once
	logger    log.Logger
	metrics   struct {
		readLatency   metrics.Observer
		updateLatency metrics.Observer
		deleteLatency metrics.Observer
	}
}

func Builder(config *Config) backend.Builder {
	return func(name string) (backend.Backend, error) {
		return NewBadgerBackend(name, config)
	}
}

func NewBadgerBackend(name string, config *Config) (backend.Backend, error) {
	config.parse()

	storageDir := fmt.Sprintf(`%s/backends/badger/%s`, config.StorageDir, name)
	if config.InMemory {
		storageDir = ``
	}

	db, err := badgerDB.Open(badgerDB.DefaultOptions(storageDir).
		WithLoggingLevel(badgerDB.ERROR).
		WithInMemory(config.InMemory))
	if err != nil {
		return nil, errors.Wrapf(err, `db open error, backend:%s`, name)
	}

	m := &badger{
		name:     name,
		db:       db,
		inMemory: config.InMemory,
		closing:  make(chan struct{}),
		logger:   config.Logger.NewLog(log.Prefixed(`BadgerBackend`)),
	}

	constLabels := map[string]string{`name`: name, `type`: `badger`}
	m.metrics.readLatency = config.MetricsReporter.Observer(metrics.MetricConf{Path: `backend_read_latency_microseconds`, ConstLabels: constLabels})
	m.metrics.updateLatency = config.MetricsReporter.Observer(metrics.MetricConf{Path: `backend_update_latency_microseconds`, ConstLabels: constLabels})
	m.metrics.deleteLatency = config.MetricsReporter.Observer(metrics.MetricConf{Path: `backend_delete_latency_microseconds`, ConstLabels: constLabels})

	if !m.inMemory {
		go m.runCleaner(config.ValueLogCleanupInterval)
	}

	return m, nil
}

func (m *badger) runCleaner(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.closing:
			return
		case <-ticker.C:
			// rewrite value log files until nothing is left to collect
			for m.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

func (m *badger) Name() string {
	return m.name
}

func (m *badger) String() string {
	return `badger`
}

func (m *badger) Persistent() bool {
	return !m.inMemory
}

func (m *badger) Set(key []byte, value []byte, expiry time.Duration) error {
	defer func(begin time.Time) {
		m.metrics.updateLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	return m.db.Update(func(txn *badgerDB.Txn) error {
		entry := badgerDB.NewEntry(key, value)
		if expiry > 0 {
			entry = entry.WithTTL(expiry)
		}
		return txn.SetEntry(entry)
	})
}

func (m *badger) Get(key []byte) ([]byte, error) {
	defer func(begin time.Time) {
		m.metrics.readLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	var v []byte

	if err := m.db.View(func(txn *badgerDB.Txn) error {
		itm, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badgerDB.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		v, err = itm.ValueCopy(nil)
		return err
	}); err != nil {
		return nil, errors.Wrapf(err, `get failed, backend:%s`, m.name)
	}

	return v, nil
}

func (m *badger) PrefixedIterator(keyPrefix []byte) backend.Iterator {
	return m.iterator(keyPrefix)
}

func (m *badger) Iterator() backend.Iterator {
	return m.iterator(nil)
}

func (m *badger) iterator(prefix []byte) backend.Iterator {
	txn := m.db.NewTransaction(false)
	opts := badgerDB.DefaultIteratorOptions
	opts.Prefix = prefix

	return &iterator{txn: txn, itr: txn.NewIterator(opts)}
}

func (m *badger) Delete(key []byte) error {
	defer func(begin time.Time) {
		m.metrics.deleteLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	return m.db.Update(func(txn *badgerDB.Txn) error {
		err := txn.Delete(key)
		if err != nil && !errors.Is(err, badgerDB.ErrKeyNotFound) {
			return err
		}

		return nil
	})
}

func (m *badger) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.closing)
		err = m.db.Close()
	})

	return err
}
