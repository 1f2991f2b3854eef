package encoding

import (
	"reflect"

	"github.com/dursunkoc/incubator-samoa/pkg/errors"
)

type ByteEncoder struct{}

func (ByteEncoder) Encode(v interface{}) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case nil:
		return nil, nil
	default:
		return nil, errors.Errorf(`incorrect type expected ([]byte) have (%s)`, reflect.TypeOf(v))
	}
}

func (ByteEncoder) Decode(data []byte) (interface{}, error) {
	return data, nil
}
