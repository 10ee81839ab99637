// Package settings persists the last used session settings as a flat file of
// four newline-separated fields: device, baud rate, interval in seconds and
// the numeric aggregation mode (1 all, 2 lost, 3 mean).
package settings

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/serialplot/internal/errors"
)

const (
	DefaultPath = "./settings.log"

	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
	fieldCount      = 4
)

const (
	ErrRead  = errors.ErrReadSettings
	ErrWrite = errors.ErrWriteSettings
)

type Settings struct {
	Port     string
	Baud     int
	Interval float64
	Mode     int
}

// Load reads the settings file at path. ok is false, with no error, when the
// file does not exist.
func Load(path string) (s Settings, ok bool, err error) {
	errFactory := errors.New()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, errFactory.Wrap(ErrRead, err)
	}

	fields := make([]string, 0, fieldCount)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() && len(fields) < fieldCount {
		fields = append(fields, strings.TrimRight(scanner.Text(), "\r"))
	}
	if len(fields) < fieldCount {
		return Settings{}, false, errFactory.WithData(ErrRead, struct {
			Path   string
			Fields int
		}{path, len(fields)})
	}

	s.Port = fields[0]
	if s.Baud, err = strconv.Atoi(fields[1]); err != nil {
		return Settings{}, false, errFactory.Wrap(ErrRead, err)
	}
	if s.Interval, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return Settings{}, false, errFactory.Wrap(ErrRead, err)
	}
	if s.Mode, err = strconv.Atoi(fields[3]); err != nil {
		return Settings{}, false, errFactory.Wrap(ErrRead, err)
	}

	return s, true, nil
}

// Save writes s to path, creating the parent directory if needed.
func Save(path string, s Settings) error {
	errFactory := errors.New()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
			return errFactory.Wrap(ErrWrite, err)
		}
	}

	var b strings.Builder
	b.WriteString(s.Port)
	b.WriteByte('\n')
	b.WriteString(strconv.Itoa(s.Baud))
	b.WriteByte('\n')
	b.WriteString(strconv.FormatFloat(s.Interval, 'g', -1, 64))
	b.WriteByte('\n')
	b.WriteString(strconv.Itoa(s.Mode))
	b.WriteByte('\n')

	if err := os.WriteFile(path, []byte(b.String()), defaultFilePerm); err != nil {
		return errFactory.Wrap(ErrWrite, err)
	}

	return nil
}
