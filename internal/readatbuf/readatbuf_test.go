package readatbuf_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwarflint/dwarflint/internal/readatbuf"
)

func generateTestInputFile(seed int64, size uint) []byte {
	r := rand.New(rand.NewSource(seed))
	buf := make([]byte, size)
	_, _ = r.Read(buf)
	return buf
}

func testVariant(t *testing.T, fileSize, granularity, cacheSize uint) {
	file := generateTestInputFile(255, fileSize)
	rawReader := bytes.NewReader(file)
	cachingReader, err := readatbuf.New(rawReader, granularity, cacheSize)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		off := rand.Intn(int(fileSize))
		n := rand.Intn(int(fileSize) - off + 1)
		want := make([]byte, n)
		copy(want, file[off:off+n])

		got := make([]byte, n)
		rn, err := cachingReader.ReadAt(got, int64(off))
		require.NoError(t, err)
		require.Equal(t, n, rn)
		require.Equal(t, want, got)
	}
}

func TestCaching(t *testing.T) {
	testVariant(t, 1024, 64, 1)
	testVariant(t, 1346, 11, 55)
	testVariant(t, 889, 34, 111)
}

func TestRejectsZeroSizes(t *testing.T) {
	_, err := readatbuf.New(bytes.NewReader(nil), 0, 1)
	require.Error(t, err)
	_, err = readatbuf.New(bytes.NewReader(nil), 1, 0)
	require.Error(t, err)
}
