package vblk

import (
	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
	"github.com/go-ldm/ldmtool/internal/ldm/model"
	"github.com/go-ldm/ldmtool/internal/ldm/primitives"
)

const componentRevision = 3

func decodeComponent(hdr recordHeader, c *primitives.Cursor) (*model.Component, error) {
	if hdr.Rev != componentRevision {
		return nil, ldmerr.New(ldmerr.NotSupported, "unsupported component vblk revision %d", hdr.Rev)
	}

	id, err := c.ReadVarInt32()
	if err != nil {
		return nil, err
	}
	name, err := c.ReadVarString()
	if err != nil {
		return nil, err
	}

	if err := c.SkipVar(); err != nil { // volume state
		return nil, err
	}

	typByte, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	typ := model.ComponentType(typByte)
	switch typ {
	case model.ComponentStriped, model.ComponentSpanned, model.ComponentRAID:
	default:
		return nil, ldmerr.New(ldmerr.NotSupported, "component %d has unsupported type %d", id, typByte)
	}

	if err := c.Skip(4); err != nil { // zeroes
		return nil, err
	}

	nParts, err := c.ReadVarInt32()
	if err != nil {
		return nil, err
	}

	if err := c.Skip(8); err != nil { // log commit id
		return nil, err
	}
	if err := c.Skip(8); err != nil { // zeroes
		return nil, err
	}

	parentID, err := c.ReadVarInt32()
	if err != nil {
		return nil, err
	}

	if err := c.Skip(1); err != nil { // zero
		return nil, err
	}

	comp := &model.Component{
		ID:       id,
		Name:     name,
		Type:     typ,
		ParentID: parentID,
		NParts:   nParts,
	}

	if hdr.Flags&0x10 != 0 {
		stripeSize, err := c.ReadVarInt64()
		if err != nil {
			return nil, err
		}
		nColumns, err := c.ReadVarInt32()
		if err != nil {
			return nil, err
		}
		comp.StripeSize = stripeSize
		comp.NColumns = nColumns
	}

	return comp, nil
}
