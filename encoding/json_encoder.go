package encoding

import (
	"encoding/json"

	"github.com/dursunkoc/incubator-samoa/pkg/errors"
)

// JSONEncoder encodes any payload as JSON. Decode returns generic values (float64, string, maps)
// unless New is set, in which case it decodes into the value New returns.
type JSONEncoder struct {
	New func() interface{}
}

func (e JSONEncoder) Encode(v interface{}) ([]byte, error) {
	byt, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, `json encode failed`)
	}

	return byt, nil
}

func (e JSONEncoder) Decode(data []byte) (interface{}, error) {
	if e.New != nil {
		v := e.New()
		if err := json.Unmarshal(data, v); err != nil {
			return nil, errors.Wrap(err, `json decode failed`)
		}
		return v, nil
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, `json decode failed`)
	}

	return v, nil
}
