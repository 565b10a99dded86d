package primitives

import (
	"testing"

	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
)

func TestCursor_ReadFixed(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	u16, err := c.ReadU16()
	if err != nil || u16 != 0x0102 {
		t.Fatalf("ReadU16 = %x, %v", u16, err)
	}

	u32, err := c.ReadU32()
	if err != nil || u32 != 0x03040506 {
		t.Fatalf("ReadU32 = %x, %v", u32, err)
	}

	u8, err := c.ReadU8()
	if err != nil || u8 != 0x07 {
		t.Fatalf("ReadU8 = %x, %v", u8, err)
	}
}

func TestCursor_ReadU64(t *testing.T) {
	c := NewCursor([]byte{0, 0, 0, 0, 0, 0, 1, 0})
	v, err := c.ReadU64()
	if err != nil || v != 256 {
		t.Fatalf("ReadU64 = %d, %v", v, err)
	}
}

func TestCursor_ReadVarInt(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		width int
		want  uint64
	}{
		{"single byte", []byte{1, 0xFF}, 4, 0xFF},
		{"two bytes", []byte{2, 0x01, 0x02}, 4, 0x0102},
		{"eight bytes", []byte{8, 0, 0, 0, 0, 0, 0, 1, 0}, 8, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor(tt.data)
			got, err := c.ReadVarInt(tt.width)
			if err != nil {
				t.Fatalf("ReadVarInt: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadVarInt = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCursor_ReadVarIntTooWide(t *testing.T) {
	c := NewCursor([]byte{5, 0, 0, 0, 0, 0})
	_, err := c.ReadVarInt(4)
	if !ldmerr.Is(err, ldmerr.Internal) {
		t.Fatalf("expected Internal error, got %v", err)
	}
}

func TestCursor_ReadVarString(t *testing.T) {
	c := NewCursor([]byte{5, 'h', 'e', 'l', 'l', 'o', 'X'})
	s, err := c.ReadVarString()
	if err != nil || s != "hello" {
		t.Fatalf("ReadVarString = %q, %v", s, err)
	}
	if c.Pos() != 6 {
		t.Fatalf("Pos = %d, want 6", c.Pos())
	}
}

func TestCursor_SkipVar(t *testing.T) {
	c := NewCursor([]byte{3, 'a', 'b', 'c', 0xAA})
	if err := c.SkipVar(); err != nil {
		t.Fatalf("SkipVar: %v", err)
	}
	b, err := c.ReadU8()
	if err != nil || b != 0xAA {
		t.Fatalf("ReadU8 after skip = %x, %v", b, err)
	}
}

func TestCursor_TruncatedRead(t *testing.T) {
	c := NewCursor([]byte{0x01})
	if _, err := c.ReadU32(); err == nil {
		t.Fatalf("expected error on truncated ReadU32")
	}
}
