package pebble

import (
	"time"

	"github.com/cockroachdb/pebble"
)

// Iterator skips records expired at the time it was opened.
type Iterator struct {
	itr   *pebble.Iterator
	now   time.Time
	value []byte
}

func (i *Iterator) SeekToFirst() {
	i.itr.First()
	i.skipExpired()
}

func (i *Iterator) Next() {
	i.itr.Next()
	i.skipExpired()
}

func (i *Iterator) skipExpired() {
	for ; i.itr.Valid(); i.itr.Next() {
		if val, live := unwrap(i.itr.Value(), i.now); live {
			i.value = val
			return
		}
	}
}

func (i *Iterator) Close() {
	_ = i.itr.Close()
}

func (i *Iterator) Key() []byte {
	return i.itr.Key()
}

func (i *Iterator) Value() []byte {
	return i.value
}

func (i *Iterator) Valid() bool {
	return i.itr.Valid()
}

func (i *Iterator) Error() error {
	return i.itr.Error()
}
