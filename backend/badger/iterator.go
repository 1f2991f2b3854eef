package badger

import (
	badgerDB "github.com/dgraph-io/badger/v3"
)

type iterator struct {
	txn *badgerDB.Txn
	itr *badgerDB.Iterator
	err error
}

func (i *iterator) SeekToFirst() {
	i.itr.Rewind()
}

func (i *iterator) Next() {
	i.itr.Next()
}

func (i *iterator) Valid() bool {
	return i.itr.Valid()
}

func (i *iterator) Key() []byte {
	return i.itr.Item().KeyCopy(nil)
}

func (i *iterator) Value() []byte {
	val, err := i.itr.Item().ValueCopy(nil)
	if err != nil {
		i.err = err
		return nil
	}

	return val
}

func (i *iterator) Error() error {
	return i.err
}

func (i *iterator) Close() {
	i.itr.Close()
	i.txn.Discard()
}
