package stream

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"codeberg.org/mutker/serialplot/internal/errors"
)

// Delimiter separates records on the wire.
const Delimiter = "\r\n"

// decoder turns raw reads into complete lines. residual always holds exactly
// the unconsumed suffix of the decoded input.
type decoder struct {
	residual string
	// pending holds a UTF-8 sequence cut off at the end of the last read.
	pending []byte
	primed  bool
}

func (d *decoder) reset() {
	d.residual = ""
	d.pending = nil
	d.primed = false
}

// feed appends raw to the buffer and returns the complete lines ready for
// demultiplexing. It returns no lines when nothing was completed and on the
// first pass that completes anything, which only primes the buffer.
func (d *decoder) feed(raw []byte) ([]string, error) {
	raw = bytes.ReplaceAll(raw, []byte{0}, nil)
	if len(d.pending) > 0 {
		raw = append(d.pending, raw...)
		d.pending = nil
	}

	complete, rest := splitIncompleteRune(raw)
	if !utf8.Valid(complete) {
		return nil, errors.New().WithData(errors.ErrInvalidData, struct {
			Bytes int
		}{len(complete)})
	}
	if len(rest) > 0 {
		d.pending = append([]byte(nil), rest...)
	}

	d.residual += string(complete)

	parts := strings.Split(d.residual, Delimiter)
	if len(parts) < 2 {
		return nil, nil
	}

	lines := parts[:len(parts)-1]
	d.residual = parts[len(parts)-1]

	if !d.primed {
		d.primed = true
		return nil, nil
	}

	return lines, nil
}

// splitIncompleteRune separates a trailing, not yet complete UTF-8 sequence so
// a multi-byte character split across two reads is not treated as invalid.
func splitIncompleteRune(b []byte) (complete, rest []byte) {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		start := len(b) - i
		if !utf8.RuneStart(b[start]) {
			continue
		}
		if !utf8.FullRune(b[start:]) {
			return b[:start], b[start:]
		}
		break
	}
	return b, nil
}
