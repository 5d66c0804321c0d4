// Package reader implements C1: a bounded cursor over a read-only byte
// buffer, with primitive and LEB128 decoders honoring the file's declared
// byte order. It is the leaf component every other structural checker in
// dwarflint parses through.
package reader // import "github.com/dwarflint/dwarflint/internal/reader"

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// LEBStatus is the three-valued outcome of decoding a LEB128 number.
type LEBStatus int

const (
	// LEBOk reports a minimally-encoded LEB128 value.
	LEBOk LEBStatus = iota
	// LEBBloated reports a value that decoded fine but carried more
	// continuation bytes than the minimal encoding required.
	LEBBloated
	// LEBError reports a LEB128 sequence that ran off the end of the buffer.
	LEBError
)

// ErrOutOfBounds is returned when a sub-context would extend outside its
// parent's bounds, or a read runs past the context's end.
var ErrOutOfBounds = errors.New("reader: out of bounds")

// Context is a bounded cursor over a shared byte buffer. Every Context
// (root or sub) shares the same underlying slice; only [begin,end) and the
// cursor differ, so section offsets computed from any Context are directly
// comparable, which is what lets the relocation matcher (internal/reloc)
// stay in lock-step with parsing.
type Context struct {
	buf        []byte
	begin, end int
	cursor     int
	order      binary.ByteOrder
}

// New creates a root Context over the entirety of buf.
func New(buf []byte, order binary.ByteOrder) *Context {
	return &Context{buf: buf, begin: 0, end: len(buf), cursor: 0, order: order}
}

// Sub creates a Context bounded to [begin,end) of the same underlying
// buffer as parent. Both bounds are offsets from the start of the root
// buffer (i.e. the same coordinate space GetOffset returns), and must fall
// within parent's own [begin,end) or Sub fails.
func (c *Context) Sub(begin, end int) (*Context, error) {
	if begin < c.begin || end > c.end || begin > end {
		return nil, fmt.Errorf("%w: sub-context [%d,%d) outside parent [%d,%d)",
			ErrOutOfBounds, begin, end, c.begin, c.end)
	}
	return &Context{buf: c.buf, begin: begin, end: end, cursor: begin, order: c.order}, nil
}

// ByteOrder returns the byte order this context decodes integers with.
func (c *Context) ByteOrder() binary.ByteOrder { return c.order }

// Begin returns the lower bound of this context, in root-buffer coordinates.
func (c *Context) Begin() int { return c.begin }

// End returns the upper (exclusive) bound of this context.
func (c *Context) End() int { return c.end }

// GetOffset returns the current cursor position, in root-buffer coordinates
// (i.e. the section offset of the next byte that will be read).
func (c *Context) GetOffset() int { return c.cursor }

// SetOffset moves the cursor to an absolute position within [begin,end].
// Positioning exactly at end is legal (it is how EOF is reached); anything
// else out of bounds is rejected.
func (c *Context) SetOffset(off int) error {
	if off < c.begin || off > c.end {
		return fmt.Errorf("%w: offset %d outside [%d,%d)", ErrOutOfBounds, off, c.begin, c.end)
	}
	c.cursor = off
	return nil
}

// Eof reports whether the cursor has reached the end of the context.
func (c *Context) Eof() bool { return c.cursor >= c.end }

// NeedData reports whether n more bytes are available before end.
func (c *Context) NeedData(n int) bool { return c.cursor+n <= c.end }

// Remaining returns the number of unread bytes in this context.
func (c *Context) Remaining() int { return c.end - c.cursor }

// Skip advances the cursor by n bytes.
func (c *Context) Skip(n int) error {
	if !c.NeedData(n) {
		return fmt.Errorf("%w: cannot skip %d bytes, %d remaining",
			ErrOutOfBounds, n, c.Remaining())
	}
	c.cursor += n
	return nil
}

// bytesAt returns a view of the next n unread bytes without advancing.
func (c *Context) bytesAt(n int) ([]byte, error) {
	if !c.NeedData(n) {
		return nil, fmt.Errorf("%w: need %d bytes, %d remaining",
			ErrOutOfBounds, n, c.Remaining())
	}
	return c.buf[c.cursor : c.cursor+n], nil
}

// Ubyte reads an unsigned 8-bit integer.
func (c *Context) Ubyte() (uint8, error) {
	b, err := c.bytesAt(1)
	if err != nil {
		return 0, err
	}
	c.cursor++
	return b[0], nil
}

// TwoUbyte reads an unsigned 16-bit integer.
func (c *Context) TwoUbyte() (uint16, error) {
	b, err := c.bytesAt(2)
	if err != nil {
		return 0, err
	}
	c.cursor += 2
	return c.order.Uint16(b), nil
}

// FourUbyte reads an unsigned 32-bit integer.
func (c *Context) FourUbyte() (uint32, error) {
	b, err := c.bytesAt(4)
	if err != nil {
		return 0, err
	}
	c.cursor += 4
	return c.order.Uint32(b), nil
}

// EightUbyte reads an unsigned 64-bit integer.
func (c *Context) EightUbyte() (uint64, error) {
	b, err := c.bytesAt(8)
	if err != nil {
		return 0, err
	}
	c.cursor += 8
	return c.order.Uint64(b), nil
}

// Var reads an unsigned integer of the given width in bytes (1, 2, 4 or 8).
func (c *Context) Var(width int) (uint64, error) {
	switch width {
	case 1:
		v, err := c.Ubyte()
		return uint64(v), err
	case 2:
		v, err := c.TwoUbyte()
		return uint64(v), err
	case 4:
		v, err := c.FourUbyte()
		return uint64(v), err
	case 8:
		return c.EightUbyte()
	default:
		return 0, fmt.Errorf("reader: unsupported width %d", width)
	}
}

// Offset reads a DWARF section offset: 4 bytes for 32-bit DWARF, 8 for 64-bit.
func (c *Context) Offset(dwarf64 bool) (uint64, error) {
	if dwarf64 {
		return c.EightUbyte()
	}
	v, err := c.FourUbyte()
	return uint64(v), err
}

// Str reads a NUL-terminated byte string, not including the terminator,
// and advances past the terminator.
func (c *Context) Str() (string, error) {
	for i := c.cursor; i < c.end; i++ {
		if c.buf[i] == 0 {
			s := string(c.buf[c.cursor:i])
			c.cursor = i + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unterminated string", ErrOutOfBounds)
}

// Uleb128 reads an unsigned LEB128 integer, reporting whether it was
// minimally encoded: bloat is however many continuation bytes the value
// carried beyond the number a minimal re-encoding of the decoded result
// would need, computed from the result's own bit length rather than from
// any property visible byte-by-byte while decoding.
func (c *Context) Uleb128() (uint64, LEBStatus, error) {
	var result uint64
	var shift uint
	count := 0
	for {
		b, err := c.Ubyte()
		if err != nil {
			return 0, LEBError, err
		}
		count++
		if shift < 64 {
			result |= uint64(b&0x7f) << shift
		}
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if count > minimalUleb128Len(result) {
		return result, LEBBloated, nil
	}
	return result, LEBOk, nil
}

func minimalUleb128Len(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v) + 6) / 7
}

// Sleb128 reads a signed LEB128 integer, reporting whether it was minimally
// encoded, using the same decoded-value-driven bloat check as Uleb128.
func (c *Context) Sleb128() (int64, LEBStatus, error) {
	var result int64
	var shift uint
	var b uint8
	var err error
	count := 0
	for {
		b, err = c.Ubyte()
		if err != nil {
			return 0, LEBError, err
		}
		count++
		if shift < 64 {
			result |= int64(b&0x7f) << shift
		}
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	if count > minimalSleb128Len(result) {
		return result, LEBBloated, nil
	}
	return result, LEBOk, nil
}

// minimalSleb128Len computes how many bytes a minimal SLEB128 encoding of v
// would need, by simulating the standard encode loop's termination
// condition without emitting bytes.
func minimalSleb128Len(v int64) int {
	count := 0
	for {
		count++
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			break
		}
	}
	return count
}
