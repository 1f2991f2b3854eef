/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package pebble

import (
	"encoding/binary"
	"fmt"
	"time"

	pebbleDB "github.com/cockroachdb/pebble"
	"github.com/dursunkoc/incubator-samoa/backend"
	"github.com/dursunkoc/incubator-samoa/pkg/errors"
	"github.com/tryfix/metrics"
)

type Config struct {
	MetricsReporter metrics.Reporter
	Dir             string
	// Sync flushes every write to disk before it returns
	Sync    bool
	Options *pebbleDB.Options
}

func NewConfig() *Config {
	conf := new(Config)
	conf.Dir = `storage`
	conf.Options = &pebbleDB.Options{}
	conf.parse()

	return conf
}

func (c *Config) parse() {
	if c.MetricsReporter == nil {
		c.MetricsReporter = metrics.NoopReporter()
	}

	if c.Options == nil {
		c.Options = &pebbleDB.Options{}
	}
}

// Pebble stores every value behind an 8 byte big endian expiry (unix nanoseconds, zero for none).
type Pebble struct {
	name      string
	pebble    *pebbleDB.DB
	writeOpts *pebbleDB.WriteOptions
	metrics   struct {
		readLatency     metrics.Observer
		iteratorLatency metrics.Observer
		updateLatency   metrics.Observer
		deleteLatency   metrics.Observer
	}
}

func Builder(config *Config) backend.Builder {
	return func(name string) (backend.Backend, error) {
		return NewPebbleBackend(name, config)
	}
}

func NewPebbleBackend(name string, config *Config) (*Pebble, error) {
	config.parse()

	dbName := fmt.Sprintf(`%s/pebble/%s`, config.Dir, name)

	pb, err := pebbleDB.Open(dbName, config.Options)
	if err != nil {
		return nil, errors.Wrapf(err, `db open error, backend:%s`, dbName)
	}

	m := &Pebble{name: name, pebble: pb, writeOpts: pebbleDB.NoSync}
	if config.Sync {
		m.writeOpts = pebbleDB.Sync
	}

	constLabels := map[string]string{`name`: name, `type`: `pebble`}
	m.metrics.readLatency = config.MetricsReporter.Observer(
		metrics.MetricConf{Path: `backend_read_latency_microseconds`, ConstLabels: constLabels})
	m.metrics.iteratorLatency = config.MetricsReporter.Observer(
		metrics.MetricConf{Path: `backend_read_iterator_latency_microseconds`, ConstLabels: constLabels})
	m.metrics.updateLatency = config.MetricsReporter.Observer(
		metrics.MetricConf{Path: `backend_update_latency_microseconds`, ConstLabels: constLabels})
	m.metrics.deleteLatency = config.MetricsReporter.Observer(
		metrics.MetricConf{Path: `backend_delete_latency_microseconds`, ConstLabels: constLabels})

	return m, nil
}

func (p *Pebble) Name() string {
	return p.name
}

func (p *Pebble) String() string {
	return `pebble`
}

func (p *Pebble) Persistent() bool {
	return true
}

func (p *Pebble) Get(key []byte) ([]byte, error) {
	defer func(begin time.Time) {
		p.metrics.readLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	valP, closer, err := p.pebble.Get(key)
	if err != nil {
		if errors.Is(err, pebbleDB.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	val, live := unwrap(valP, time.Now())
	if !live {
		return nil, nil
	}

	return append([]byte(nil), val...), nil
}

func (p *Pebble) Set(key []byte, value []byte, expiry time.Duration) error {
	defer func(begin time.Time) {
		p.metrics.updateLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	return p.pebble.Set(key, wrap(value, expiry, time.Now()), p.writeOpts)
}

func (p *Pebble) Delete(key []byte) error {
	defer func(begin time.Time) {
		p.metrics.deleteLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	return p.pebble.Delete(key, p.writeOpts)
}

func (p *Pebble) PrefixedIterator(keyPrefix []byte) backend.Iterator {
	defer func(begin time.Time) {
		p.metrics.iteratorLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	opts := new(pebbleDB.IterOptions)
	opts.LowerBound = keyPrefix
	opts.UpperBound = keyUpperBound(keyPrefix)
	return &Iterator{itr: p.pebble.NewIter(opts), now: time.Now()}
}

func (p *Pebble) Iterator() backend.Iterator {
	defer func(begin time.Time) {
		p.metrics.iteratorLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	return &Iterator{itr: p.pebble.NewIter(new(pebbleDB.IterOptions)), now: time.Now()}
}

func (p *Pebble) Close() error {
	return p.pebble.Close()
}

const expiryHeaderLen = 8

func wrap(value []byte, expiry time.Duration, now time.Time) []byte {
	buf := make([]byte, expiryHeaderLen+len(value))
	if expiry > 0 {
		binary.BigEndian.PutUint64(buf, uint64(now.Add(expiry).UnixNano()))
	}
	copy(buf[expiryHeaderLen:], value)

	return buf
}

func unwrap(stored []byte, now time.Time) ([]byte, bool) {
	if len(stored) < expiryHeaderLen {
		return nil, false
	}

	expiresAt := int64(binary.BigEndian.Uint64(stored))
	if expiresAt > 0 && now.UnixNano() > expiresAt {
		return nil, false
	}

	return stored[expiryHeaderLen:], true
}

func keyUpperBound(b []byte) []byte {
	end := make([]byte, len(b))
	copy(end, b)
	for i := len(end) - 1; i >= 0; i-- {
		end[i] = end[i] + 1
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // no upper-bound
}
