// Package export writes assembled series as tab separated text.
package export

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/series"
)

const (
	timeHeader      = "t,s"
	defaultFilePerm = 0o644
)

// WriteTSV writes a header row of channel names and then one row per point
// index, up to the length of the shortest channel. Each row starts with the
// time of the first channel. Every field, including the last, is followed by
// a tab.
func WriteTSV(w io.Writer, channels []series.Channel) error {
	errFactory := errors.New()

	if len(channels) == 0 {
		return errFactory.WithMessage(errors.ErrExport, "no channels to export")
	}

	bw := bufio.NewWriter(w)

	bw.WriteString(timeHeader)
	bw.WriteByte('\t')
	for _, c := range channels {
		bw.WriteString(c.Name)
		bw.WriteByte('\t')
	}
	bw.WriteByte('\n')

	rows := channels[0].Len()
	for _, c := range channels[1:] {
		if c.Len() < rows {
			rows = c.Len()
		}
	}

	for j := 0; j < rows; j++ {
		bw.WriteString(formatFloat(channels[0].Points[j].T))
		bw.WriteByte('\t')
		for _, c := range channels {
			bw.WriteString(formatFloat(c.Points[j].V))
			bw.WriteByte('\t')
		}
		bw.WriteByte('\n')
	}

	if err := bw.Flush(); err != nil {
		return errFactory.Wrap(errors.ErrExport, err)
	}
	return nil
}

// WriteFile exports set to path, replacing any existing file.
func WriteFile(path string, set *series.Set) error {
	errFactory := errors.New()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFilePerm)
	if err != nil {
		return errFactory.Wrap(errors.ErrExport, err)
	}

	if err := WriteTSV(f, set.Channels()); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return errFactory.Wrap(errors.ErrExport, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
