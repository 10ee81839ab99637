package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/serialplot/internal/errors"
	"codeberg.org/mutker/serialplot/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.log")
	want := settings.Settings{Port: "/dev/ttyUSB0", Baud: 115200, Interval: 0.25, Mode: 3}

	require.NoError(t, settings.Save(path, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0\n115200\n0.25\n3\n", string(raw))

	got, ok, err := settings.Load(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestLoadMissing(t *testing.T) {
	_, ok, err := settings.Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.log")
	require.NoError(t, os.WriteFile(path, []byte("COM3\r\n9600\r\n1\r\n2\r\n"), 0o600))

	got, ok, err := settings.Load(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, settings.Settings{Port: "COM3", Baud: 9600, Interval: 1, Mode: 2}, got)
}

func TestLoadMalformed(t *testing.T) {
	cases := map[string]string{
		"short":    "/dev/ttyS0\n9600\n",
		"baud":     "/dev/ttyS0\nfast\n1\n1\n",
		"interval": "/dev/ttyS0\n9600\nsoon\n1\n",
		"mode":     "/dev/ttyS0\n9600\n1\nall\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.log")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			_, ok, err := settings.Load(path)
			require.Error(t, err)
			assert.False(t, ok)
			assert.True(t, errors.HasCode(err, settings.ErrRead))
		})
	}
}
