/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package backend

import (
	"time"
)

// Builder creates the backend of one processor instance. name is unique per instance.
type Builder func(name string) (Backend, error)

type Backend interface {
	// Name returns the name of the store
	Name() string
	String() string
	Persistent() bool
	Reader
	Writer
	Close() error
}

type Reader interface {
	// Get looks for the value of a given key. Will return nil if the value does not exist
	Get(key []byte) ([]byte, error)
	PrefixedIterator(keyPrefix []byte) Iterator
	Iterator() Iterator
}

type Writer interface {
	// Set writes the given key:value pair with an optional expiry, zero means no expiry
	Set(key []byte, value []byte, expiry time.Duration) error
	Delete(key []byte) error
}

// Iterator walks the records of a backend in key order.
type Iterator interface {
	SeekToFirst()
	Next()
	Valid() bool
	Key() []byte
	Value() []byte
	Error() error
	Close()
}
