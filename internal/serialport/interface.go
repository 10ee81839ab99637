package serialport

import (
	"io"
	"time"
)

// ByteSource is the view of a serial connection the stream reader polls.
type ByteSource interface {
	// Available reports how many bytes can be read without blocking past the
	// read timeout. An error means the device is gone.
	Available() (int, error)
	// Read reads up to len(p) of the available bytes.
	Read(p []byte) (int, error)
	// ResetInputBuffer discards anything received but not yet read.
	ResetInputBuffer() error
	io.Closer
}

// Opener opens a ByteSource for a device. Tests substitute their own.
type Opener func(device string, opts Options, readTimeout time.Duration) (ByteSource, error)

// PortInfo describes a serial port found on the system.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}
