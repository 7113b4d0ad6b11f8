package echo

import (
	"errors"
	"fmt"
)

// ErrNilExecutor is returned by StartListener without an executor.
var ErrNilExecutor = errors.New("echo: nil executor")

// BindError reports a listener that could not be created.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("echo: failed to bind %s: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
