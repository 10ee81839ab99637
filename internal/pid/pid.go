// Package pid keeps one PID file per serial device so two processes never
// read the same port.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/serialplot/internal/errors"
)

const (
	pidPrefix = "serialplot"
	pidSuffix = ".pid"
)

// Lock is a held PID file.
type Lock struct {
	path string
}

// Path returns the PID file path for device inside dir. An empty dir means
// the system temp directory.
func Path(dir, device string) string {
	if dir == "" {
		dir = os.TempDir()
	}

	name := strings.Trim(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, device), "_")

	if name == "" {
		return filepath.Join(dir, pidPrefix+pidSuffix)
	}
	return filepath.Join(dir, pidPrefix+"-"+name+pidSuffix)
}

// Acquire writes the current process ID to the PID file of device. It fails
// with ErrAlreadyRunning while another live process holds it. Stale files are
// replaced.
func Acquire(dir, device string) (*Lock, error) {
	errFactory := errors.New()
	path := Path(dir, device)

	if raw, err := os.ReadFile(path); err == nil {
		if owner, err := strconv.Atoi(strings.TrimSpace(string(raw))); err == nil && owner != os.Getpid() && alive(owner) {
			return nil, errFactory.WithData(errors.ErrAlreadyRunning, struct {
				Device string
				PID    int
			}{device, owner})
		}
	} else if !os.IsNotExist(err) {
		return nil, errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return nil, errFactory.Wrap(errors.ErrInternal, err)
	}

	return &Lock{path: path}, nil
}

func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Path returns the PID file path.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the PID file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}
