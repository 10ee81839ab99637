package stream

import (
	"testing"

	"codeberg.org/mutker/serialplot/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, d *decoder, chunks ...string) [][]string {
	t.Helper()
	var out [][]string
	for _, c := range chunks {
		lines, err := d.feed([]byte(c))
		require.NoError(t, err)
		out = append(out, lines)
	}
	return out
}

func TestDecoderPrimesOnFirstSplit(t *testing.T) {
	var d decoder

	got := feedAll(t, &d, "1.0\r\n2.0\r\n\r\n", "3.0\r\n4.0\r\n\r\n")

	assert.Nil(t, got[0], "first split only primes the buffer")
	assert.Equal(t, []string{"3.0", "4.0", ""}, got[1])
	assert.Equal(t, "", d.residual)
}

func TestDecoderNoSplitDoesNotPrime(t *testing.T) {
	var d decoder

	got := feedAll(t, &d, "1.", "5", "\r\n", "2.5\r\n")

	assert.Nil(t, got[0])
	assert.Nil(t, got[1])
	assert.Nil(t, got[2], "first completed split primes")
	assert.Equal(t, []string{"2.5"}, got[3])
	assert.True(t, d.primed)
}

func TestDecoderKeepsPartialLine(t *testing.T) {
	var d decoder
	feedAll(t, &d, "x\r\n")

	got := feedAll(t, &d, "1.2", "5\r\n3", ".5\r\n\r")

	assert.Nil(t, got[0])
	assert.Equal(t, []string{"1.25"}, got[1])
	assert.Equal(t, []string{"3.5"}, got[2])
	assert.Equal(t, "\r", d.residual)

	got = feedAll(t, &d, "\n")
	assert.Equal(t, []string{""}, got[0])
}

func TestDecoderStripsNUL(t *testing.T) {
	var d decoder
	feedAll(t, &d, "\r\n")

	got := feedAll(t, &d, "4\x00.\x002\r\n")
	assert.Equal(t, []string{"4.2"}, got[0])
}

func TestDecoderInvalidUTF8(t *testing.T) {
	var d decoder

	_, err := d.feed([]byte{'1', 0xff, '\r', '\n'})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidData))
}

func TestDecoderRuneSplitAcrossReads(t *testing.T) {
	var d decoder
	feedAll(t, &d, "\r\n")

	// "°" is 0xC2 0xB0.
	lines, err := d.feed([]byte{'1', 0xC2})
	require.NoError(t, err)
	assert.Nil(t, lines)

	lines, err = d.feed([]byte{0xB0, '\r', '\n'})
	require.NoError(t, err)
	assert.Equal(t, []string{"1°"}, lines)
}

func TestDecoderReset(t *testing.T) {
	var d decoder
	feedAll(t, &d, "a\r\nb")
	d.reset()

	assert.Empty(t, d.residual)
	assert.False(t, d.primed)
}
