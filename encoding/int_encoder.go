package encoding

import (
	"reflect"
	"strconv"

	"github.com/dursunkoc/incubator-samoa/pkg/errors"
)

// IntEncoder encodes integers as decimal text and always decodes to int.
type IntEncoder struct{}

func (IntEncoder) Encode(data interface{}) ([]byte, error) {
	switch i := data.(type) {
	case int:
		return []byte(strconv.Itoa(i)), nil
	case int32:
		return []byte(strconv.FormatInt(int64(i), 10)), nil
	case int64:
		return []byte(strconv.FormatInt(i, 10)), nil
	}

	return nil, errors.Errorf(`incorrect type expected (int, int32, int64) have (%s)`, reflect.TypeOf(data))
}

func (IntEncoder) Decode(data []byte) (interface{}, error) {
	i, err := strconv.Atoi(string(data))
	if err != nil {
		return nil, errors.Wrap(err, `invalid integer`)
	}

	return i, nil
}
