package encoding

// NoopEncoder drops payloads, used when only keys and terminal markers matter.
type NoopEncoder struct{}

func (NoopEncoder) Encode(interface{}) ([]byte, error) {
	return nil, nil
}

func (NoopEncoder) Decode([]byte) (interface{}, error) {
	return nil, nil
}
