package vblk

import (
	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
	"github.com/go-ldm/ldmtool/internal/ldm/model"
	"github.com/go-ldm/ldmtool/internal/ldm/primitives"
)

const volumeRevision = 5

func decodeVolume(hdr recordHeader, c *primitives.Cursor) (*model.Volume, error) {
	if hdr.Rev != volumeRevision {
		return nil, ldmerr.New(ldmerr.NotSupported, "unsupported volume vblk revision %d", hdr.Rev)
	}

	id, err := c.ReadVarInt32()
	if err != nil {
		return nil, err
	}
	name, err := c.ReadVarString()
	if err != nil {
		return nil, err
	}

	// Volume type string ("gen" or "raid5"); the typed byte later in the
	// record is authoritative, so this is only skipped.
	if err := c.SkipVar(); err != nil {
		return nil, err
	}
	// Undocumented variable field; observed value "8000000000000000".
	if err := c.SkipVar(); err != nil {
		return nil, err
	}

	if err := c.Skip(14); err != nil { // volume state
		return nil, err
	}

	typByte, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	volType := model.VolumeType(typByte)
	switch volType {
	case model.VolumeGen, model.VolumeRAID5:
	default:
		return nil, ldmerr.New(ldmerr.NotSupported, "unsupported volume vblk type %d", typByte)
	}

	if err := c.Skip(1); err != nil { // unknown
		return nil, err
	}
	if err := c.Skip(1); err != nil { // volume number
		return nil, err
	}
	if err := c.Skip(3); err != nil { // zeroes
		return nil, err
	}

	if err := c.Skip(1); err != nil { // flags byte duplicated in rec head; unused here
		return nil, err
	}

	nComps, err := c.ReadVarInt32()
	if err != nil {
		return nil, err
	}

	if err := c.Skip(8); err != nil { // commit id
		return nil, err
	}
	if err := c.Skip(8); err != nil { // id?
		return nil, err
	}

	size, err := c.ReadVarInt64()
	if err != nil {
		return nil, err
	}

	if err := c.Skip(4); err != nil { // zeroes
		return nil, err
	}

	partType, err := c.ReadU8()
	if err != nil {
		return nil, err
	}

	if err := c.Skip(16); err != nil { // volume id
		return nil, err
	}

	vol := &model.Volume{
		ID:       id,
		Name:     name,
		Type:     volType,
		Size:     size,
		PartType: partType,
		NComps:   nComps,
	}

	if hdr.Flags&0x08 != 0 {
		v, err := c.ReadVarString()
		if err != nil {
			return nil, err
		}
		vol.ID1 = &v
	}
	if hdr.Flags&0x20 != 0 {
		v, err := c.ReadVarString()
		if err != nil {
			return nil, err
		}
		vol.ID2 = &v
	}
	if hdr.Flags&0x80 != 0 {
		v, err := c.ReadVarInt64()
		if err != nil {
			return nil, err
		}
		vol.Size2 = &v
	}
	if hdr.Flags&0x02 != 0 {
		v, err := c.ReadVarString()
		if err != nil {
			return nil, err
		}
		vol.Hint = &v
	}

	return vol, nil
}
