package serialport

import "codeberg.org/mutker/serialplot/internal/errors"

const (
	ErrOpenFailed  = errors.ErrPortOpen
	ErrReadFailed  = errors.ErrNoSignal
	ErrResetFailed = errors.ErrorCode("serial_reset_input_failed")
	ErrListFailed  = errors.ErrListPorts
)
