package memory

type iterator struct {
	records []record
	current int
}

func newIterator(records []record) *iterator {
	return &iterator{records: records}
}

func (i *iterator) SeekToFirst() {
	i.current = 0
}

func (i *iterator) Next() {
	i.current++
}

func (i *iterator) Valid() bool {
	return i.current >= 0 && i.current < len(i.records)
}

func (i *iterator) Key() []byte {
	return i.records[i.current].key
}

func (i *iterator) Value() []byte {
	return i.records[i.current].value
}

func (i *iterator) Error() error {
	return nil
}

func (i *iterator) Close() {
	i.records = nil
}
