package async

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/tryfix/log"
)

// ErrPanic marks errors recovered from a panicking function.
var ErrPanic = errors.New(`panic`)

func recoveredErr(logger log.Logger, r interface{}) error {
	logger.Error(fmt.Sprintf(`recovered: %v`, r), string(debug.Stack()))
	return fmt.Errorf(`%w: %v`, ErrPanic, r)
}
