package export_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/export"
	"codeberg.org/mutker/serialplot/internal/series"
	"codeberg.org/mutker/serialplot/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSet() *series.Set {
	set := series.NewSet()
	series.NewAssembler(set).Add(
		stream.TimeSample(0), stream.ChannelSample(0, 1.5), stream.ChannelSample(1, -2),
		stream.TimeSample(0.25), stream.ChannelSample(0, 3), stream.ChannelSample(1, 4),
		stream.TimeSample(0.5), stream.ChannelSample(0, 5),
	)
	set.Rename(1, "pressure")
	return set
}

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteTSV(&buf, sampleSet().Channels()))

	want := "t,s\t0\tpressure\t\n" +
		"0\t1.5\t-2\t\n" +
		"0.25\t3\t4\t\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteTSV(&buf, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrExport))
	assert.Zero(t, buf.Len())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.tsv")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the export\n\n\n\n\n"), 0o600))

	require.NoError(t, export.WriteFile(path, sampleSet()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "t,s\t0\tpressure\t\n0\t1.5\t-2\t\n0.25\t3\t4\t\n", string(raw))
}

func TestWriteFileMissingDir(t *testing.T) {
	err := export.WriteFile(filepath.Join(t.TempDir(), "missing", "out.tsv"), sampleSet())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrExport))
}
