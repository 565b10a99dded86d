package vblk

import (
	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
	"github.com/go-ldm/ldmtool/internal/ldm/model"
	"github.com/go-ldm/ldmtool/internal/ldm/primitives"
)

const partitionRevision = 3

func decodePartition(hdr recordHeader, c *primitives.Cursor) (*model.Partition, error) {
	if hdr.Rev != partitionRevision {
		return nil, ldmerr.New(ldmerr.NotSupported, "unsupported partition vblk revision %d", hdr.Rev)
	}

	id, err := c.ReadVarInt32()
	if err != nil {
		return nil, err
	}
	name, err := c.ReadVarString()
	if err != nil {
		return nil, err
	}

	if err := c.Skip(4); err != nil { // zeroes
		return nil, err
	}
	if err := c.Skip(8); err != nil { // log commit id
		return nil, err
	}

	start, err := c.ReadU64()
	if err != nil {
		return nil, err
	}
	volOffset, err := c.ReadU64()
	if err != nil {
		return nil, err
	}

	size, err := c.ReadVarInt64()
	if err != nil {
		return nil, err
	}
	parentID, err := c.ReadVarInt32()
	if err != nil {
		return nil, err
	}
	diskID, err := c.ReadVarInt32()
	if err != nil {
		return nil, err
	}

	part := &model.Partition{
		ID:        id,
		Name:      name,
		Start:     start,
		VolOffset: volOffset,
		Size:      size,
		ParentID:  parentID,
		DiskID:    diskID,
	}

	if hdr.Flags&0x08 != 0 {
		index, err := c.ReadVarInt32()
		if err != nil {
			return nil, err
		}
		part.Index = index
	}

	return part, nil
}
