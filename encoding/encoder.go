package encoding

// Encoder converts event payloads to and from their wire representation.
type Encoder interface {
	Encode(data interface{}) ([]byte, error)
	Decode(data []byte) (interface{}, error)
}

// Builder returns a fresh Encoder.
type Builder func() Encoder
