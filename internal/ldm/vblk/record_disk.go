package vblk

import (
	"github.com/google/uuid"

	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
	"github.com/go-ldm/ldmtool/internal/ldm/model"
	"github.com/go-ldm/ldmtool/internal/ldm/primitives"
)

func decodeDisk(hdr recordHeader, c *primitives.Cursor) (*model.Disk, error) {
	id, err := c.ReadVarInt32()
	if err != nil {
		return nil, err
	}
	name, err := c.ReadVarString()
	if err != nil {
		return nil, err
	}

	disk := &model.Disk{ID: id, Name: name}

	switch hdr.Rev {
	case 3:
		guidStr, err := c.ReadVarString()
		if err != nil {
			return nil, err
		}
		g, err := uuid.Parse(guidStr)
		if err != nil {
			return nil, ldmerr.Wrap(ldmerr.Invalid, err, "disk %d has invalid guid %q", id, guidStr)
		}
		disk.GUID = g

	case 4:
		raw, err := c.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		g, err := uuid.FromBytes(raw)
		if err != nil {
			return nil, ldmerr.Wrap(ldmerr.Invalid, err, "disk %d has invalid guid bytes", id)
		}
		disk.GUID = g

	default:
		return nil, ldmerr.New(ldmerr.NotSupported, "unsupported disk vblk revision %d", hdr.Rev)
	}

	return disk, nil
}
