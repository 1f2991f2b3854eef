package encoding

import (
	"reflect"
	"strconv"

	"github.com/dursunkoc/incubator-samoa/pkg/errors"
)

type FloatEncoder struct{}

func (FloatEncoder) Encode(v interface{}) ([]byte, error) {
	switch f := v.(type) {
	case float32:
		return []byte(strconv.FormatFloat(float64(f), 'g', -1, 32)), nil
	case float64:
		return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
	default:
		return nil, errors.Errorf(`incorrect type expected (float32, float64) have (%s)`, reflect.TypeOf(v))
	}
}

func (FloatEncoder) Decode(data []byte) (interface{}, error) {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil, errors.Wrap(err, `invalid float`)
	}

	return f, nil
}
