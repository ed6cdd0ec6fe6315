package pile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func testLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.pile")
}

func newFile(t *testing.T, opts ...Option) *File {
	t.Helper()
	log, _ := testLogger()
	f, err := Create(testPath(t), append([]Option{WithLogger(log)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func snapshot(t *testing.T, f *File) *Snapshot {
	t.Helper()
	s, err := f.Snapshot()
	require.NoError(t, err)
	t.Cleanup(func() { s.Release() })
	return s
}

// appendRaw writes b past the end of the file at path, bypassing the
// writer.
func appendRaw(t *testing.T, path string, b []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	require.NoError(t, err)
	_, err = f.Write(b)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func writeBlobs(t *testing.T, f *File, payloads ...[]byte) []Offset {
	t.Helper()
	var offs []Offset
	require.NoError(t, f.Enter(func(h *Hoard) error {
		for _, p := range payloads {
			o, err := h.WriteBlob(p)
			if err != nil {
				return err
			}
			offs = append(offs, o)
		}
		return nil
	}))
	return offs
}
