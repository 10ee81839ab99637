package serialport

import (
	"strings"

	"codeberg.org/mutker/serialplot/internal/errors"
	"go.bug.st/serial"
)

const (
	DefaultBaudRate = 9600
	defaultDataBits = 8
	defaultStopBits = 1
)

// Options describes the line settings used when opening a port. Only the baud
// rate is user-facing; the rest default to 8N1.
type Options struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Normalize validates the options and applies defaults for any unset values.
func (o Options) Normalize() (Options, error) {
	errFactory := errors.New()
	opts := o

	if opts.BaudRate < 0 {
		return opts, errFactory.WithData(errors.ErrInvalidBaudRate, opts.BaudRate)
	}
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = defaultDataBits
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, errFactory.WithData(errors.ErrInvalidArgument, struct {
			Field string
			Value int
		}{"data_bits", opts.DataBits})
	}

	if opts.StopBits == 0 {
		opts.StopBits = defaultStopBits
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, errFactory.WithData(errors.ErrInvalidArgument, struct {
			Field string
			Value int
		}{"stop_bits", opts.StopBits})
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	switch parity {
	case "", "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, errFactory.WithData(errors.ErrInvalidArgument, struct {
			Field string
			Value string
		}{"parity", opts.Parity})
	}
	opts.Parity = parity

	return opts, nil
}

// SerialMode converts the options into the mode go.bug.st/serial expects.
func (o Options) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}

	return mode, nil
}
