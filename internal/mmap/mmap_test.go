package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestOpen(t *testing.T) {
	data := []byte("0123456789abcdef")
	m, err := Open(writeTemp(t, data))
	require.NoError(t, err)
	defer m.Close()

	require.Equal(t, data, m.Bytes())
	require.Equal(t, len(data), m.Len())
}

func TestOpenEmpty(t *testing.T) {
	m, err := Open(writeTemp(t, nil))
	require.NoError(t, err)

	require.Empty(t, m.Bytes())
	require.Zero(t, m.Len())
	require.NoError(t, m.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadAt(t *testing.T) {
	m, err := Open(writeTemp(t, []byte("abcdefgh")))
	require.NoError(t, err)
	defer m.Close()

	buf := make([]byte, 3)
	n, err := m.ReadAt(buf, 2)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "cde", string(buf))

	n, err = m.ReadAt(buf, 6)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, n)

	_, err = m.ReadAt(buf, -1)
	require.ErrorIs(t, err, ErrInvalidOffset)

	_, err = m.ReadAt(buf, 9)
	require.ErrorIs(t, err, ErrInvalidOffset)
}

func TestClose(t *testing.T) {
	m, err := Open(writeTemp(t, []byte("abc")))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	require.Nil(t, m.Bytes())
	require.Zero(t, m.Len())

	_, err = m.ReadAt(make([]byte, 1), 0)
	require.ErrorIs(t, err, ErrClosed)
}
