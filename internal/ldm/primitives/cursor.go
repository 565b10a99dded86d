// Package primitives implements the fixed-width big-endian readers and
// LDM's length-prefixed variable-integer/variable-string decoders that every
// higher-level LDM structure is built from.
package primitives

import (
	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
)

// Cursor reads big-endian primitives from a byte slice at an advancing
// offset. Every on-disk integer and size in LDM metadata is big-endian.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor returns a Cursor positioned at the start of data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the current byte offset.
func (c *Cursor) Pos() int { return c.pos }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	if c.pos >= len(c.data) {
		return 0
	}
	return len(c.data) - c.pos
}

// Seek repositions the cursor to an absolute offset.
func (c *Cursor) Seek(pos int) { c.pos = pos }

// ReadU8 reads a single byte.
func (c *Cursor) ReadU8() (byte, error) {
	if c.Remaining() < 1 {
		return 0, ldmerr.New(ldmerr.Invalid, "truncated read: 1 byte at offset %d", c.pos)
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

// ReadBytes reads n raw bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, ldmerr.New(ldmerr.Invalid, "truncated read: %d bytes at offset %d", n, c.pos)
	}
	out := c.data[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

// Skip advances the cursor by n bytes without returning them.
func (c *Cursor) Skip(n int) error {
	_, err := c.ReadBytes(n)
	return err
}

// ReadU16 reads a big-endian uint16.
func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// ReadU32 reads a big-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// ReadU64 reads a big-endian uint64.
func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v, nil
}

// ReadVarInt reads LDM's var-int encoding: one leading length byte n (1..8),
// followed by n big-endian bytes that form the value. widthBytes is the size
// in bytes of the caller's target integer (4 for uint32, 8 for uint64); n
// exceeding widthBytes is an Internal error, mirroring libldm's
// PARSE_VAR_INT macro check against sizeof(*out).
func (c *Cursor) ReadVarInt(widthBytes int) (uint64, error) {
	n, err := c.ReadU8()
	if err != nil {
		return 0, err
	}
	if int(n) > widthBytes {
		return 0, ldmerr.New(ldmerr.Internal, "found %d byte integer for %d byte field", n, widthBytes)
	}
	b, err := c.ReadBytes(int(n))
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v, nil
}

// ReadVarInt32 reads a var-int bounded to 32 bits.
func (c *Cursor) ReadVarInt32() (uint32, error) {
	v, err := c.ReadVarInt(4)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// ReadVarInt64 reads a var-int bounded to 64 bits.
func (c *Cursor) ReadVarInt64() (uint64, error) {
	return c.ReadVarInt(8)
}

// ReadVarString reads LDM's var-string encoding: one length byte n followed
// by n bytes of ASCII, returned without a terminator.
func (c *Cursor) ReadVarString() (string, error) {
	n, err := c.ReadU8()
	if err != nil {
		return "", err
	}
	b, err := c.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SkipVar reads the leading length byte of a var-int or var-string field and
// advances the cursor past its payload, without interpreting it.
func (c *Cursor) SkipVar() error {
	n, err := c.ReadU8()
	if err != nil {
		return err
	}
	return c.Skip(int(n))
}
