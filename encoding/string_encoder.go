package encoding

import (
	"reflect"

	"github.com/dursunkoc/incubator-samoa/pkg/errors"
)

type StringEncoder struct{}

func (StringEncoder) Encode(v interface{}) ([]byte, error) {
	str, ok := v.(string)
	if !ok {
		return nil, errors.Errorf(`data is [%s] not a string`, reflect.TypeOf(v))
	}

	return []byte(str), nil
}

func (StringEncoder) Decode(data []byte) (interface{}, error) {
	return string(data), nil
}
