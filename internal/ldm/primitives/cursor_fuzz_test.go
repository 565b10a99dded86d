package primitives

import "testing"

func FuzzCursorReadVarInt(f *testing.F) {
	f.Add([]byte{0x00})
	f.Add([]byte{0xFF, 0x00, 0x00, 0x01})
	f.Add([]byte{0x04, 0x01, 0x02, 0x03, 0x04})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 1<<16 {
			return
		}
		c := NewCursor(data)
		_, _ = c.ReadVarInt(8)
		_ = c.SkipVar
	})
}

func FuzzCursorReadVarString(f *testing.F) {
	f.Add([]byte{0x00})
	f.Add([]byte{0x05, 'h', 'e', 'l', 'l', 'o'})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 1<<16 {
			return
		}
		c := NewCursor(data)
		_, _ = c.ReadVarString()
	})
}
