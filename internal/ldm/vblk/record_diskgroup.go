package vblk

import (
	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
	"github.com/go-ldm/ldmtool/internal/ldm/primitives"
)

func decodeDiskGroup(hdr recordHeader, c *primitives.Cursor) (uint32, string, error) {
	if hdr.Rev != 3 && hdr.Rev != 4 {
		return 0, "", ldmerr.New(ldmerr.NotSupported, "unsupported disk group vblk revision %d", hdr.Rev)
	}

	id, err := c.ReadVarInt32()
	if err != nil {
		return 0, "", err
	}
	name, err := c.ReadVarString()
	if err != nil {
		return 0, "", err
	}

	return id, name, nil
}
