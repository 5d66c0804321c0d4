package reader_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwarflint/dwarflint/internal/reader"
)

func TestPrimitives(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 'h', 'i', 0x00}
	c := reader.New(buf, binary.LittleEndian)

	b, err := c.Ubyte()
	require.NoError(t, err)
	require.Equal(t, uint8(1), b)

	u16, err := c.TwoUbyte()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0302), u16)

	u32, err := c.FourUbyte()
	require.NoError(t, err)
	require.Equal(t, uint32(0x07060504), u32)

	u64, err := c.EightUbyte()
	require.NoError(t, err)
	require.Equal(t, binary.LittleEndian.Uint64(buf[7:15]), u64)

	s, err := c.Str()
	require.NoError(t, err)
	require.Equal(t, "hi", s)

	require.True(t, c.Eof())
}

func TestSubContextBounds(t *testing.T) {
	buf := make([]byte, 16)
	c := reader.New(buf, binary.LittleEndian)

	sub, err := c.Sub(4, 8)
	require.NoError(t, err)
	require.Equal(t, 4, sub.GetOffset())
	require.Equal(t, 4, sub.Remaining())

	_, err = c.Sub(4, 20)
	require.ErrorIs(t, err, reader.ErrOutOfBounds)

	_, err = sub.Sub(0, 4)
	require.ErrorIs(t, err, reader.ErrOutOfBounds)
}

func TestUleb128Minimal(t *testing.T) {
	// 0xE5 0x8E 0x26 encodes 624485 per the DWARF spec example.
	buf := []byte{0xE5, 0x8E, 0x26}
	c := reader.New(buf, binary.LittleEndian)
	v, status, err := c.Uleb128()
	require.NoError(t, err)
	require.Equal(t, uint64(624485), v)
	require.Equal(t, reader.LEBOk, status)
}

func TestUleb128Bloated(t *testing.T) {
	// Same value 0 encoded with a superfluous continuation byte.
	buf := []byte{0x80, 0x00}
	c := reader.New(buf, binary.LittleEndian)
	v, status, err := c.Uleb128()
	require.NoError(t, err)
	require.Equal(t, uint64(0), v)
	require.Equal(t, reader.LEBBloated, status)
}

func TestUleb128Error(t *testing.T) {
	buf := []byte{0x80, 0x80}
	c := reader.New(buf, binary.LittleEndian)
	_, status, err := c.Uleb128()
	require.Error(t, err)
	require.Equal(t, reader.LEBError, status)
}

func TestSleb128(t *testing.T) {
	// -2 encodes as 0x7e.
	buf := []byte{0x7e}
	c := reader.New(buf, binary.LittleEndian)
	v, status, err := c.Sleb128()
	require.NoError(t, err)
	require.Equal(t, int64(-2), v)
	require.Equal(t, reader.LEBOk, status)
}

func TestSkipAndEof(t *testing.T) {
	buf := make([]byte, 4)
	c := reader.New(buf, binary.LittleEndian)
	require.NoError(t, c.Skip(4))
	require.True(t, c.Eof())
	require.Error(t, c.Skip(1))
}
