// Package vblk parses the VBLK stream of an LDM config area: fixed-size
// framed entries, possibly spanning several entries per logical record, and
// dispatches each reassembled record to its type-specific decoder.
package vblk

import (
	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
	"github.com/go-ldm/ldmtool/internal/ldm/model"
	"github.com/go-ldm/ldmtool/internal/ldm/onixsk"
	"github.com/go-ldm/ldmtool/internal/ldm/primitives"
)

const (
	vblkMagic       = "VBLK"
	entryHeaderSize = 4 + 4 + 4 + 2 + 2 // magic, seq, record_id, entry, entries_total
)

type entryHeader struct {
	Seq          uint32
	RecordID     uint32
	Entry        uint16
	EntriesTotal uint16
}

// ScanEntries walks the VBLK entry stream starting at vmdb.VblkFirstOffset
// in strides of vmdb.VblkSize, returning each entry's payload bytes. It
// stops, without error, the first time an entry fails the "VBLK" magic
// check -- normal termination of the stream.
func ScanEntries(config []byte, vmdb onixsk.VMDB) ([][]byte, []entryHeader, error) {
	var payloads [][]byte
	var headers []entryHeader

	off := int(vmdb.VblkFirstOffset)
	stride := int(vmdb.VblkSize)
	if stride <= entryHeaderSize {
		return nil, nil, ldmerr.New(ldmerr.Invalid, "vblk_size %d too small for entry header", stride)
	}

	for off+stride <= len(config) {
		entry := config[off : off+stride]
		if string(entry[:4]) != vblkMagic {
			break
		}

		c := primitives.NewCursor(entry[4:])
		seq, err := c.ReadU32()
		if err != nil {
			return nil, nil, err
		}
		recordID, err := c.ReadU32()
		if err != nil {
			return nil, nil, err
		}
		entryIdx, err := c.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		entriesTotal, err := c.ReadU16()
		if err != nil {
			return nil, nil, err
		}
		if entriesTotal > 0 && entryIdx >= entriesTotal {
			return nil, nil, ldmerr.New(ldmerr.Invalid, "vblk entry %d >= entries_total %d for record %d", entryIdx, entriesTotal, recordID)
		}

		payload := entry[entryHeaderSize:]
		payloads = append(payloads, payload)
		headers = append(headers, entryHeader{Seq: seq, RecordID: recordID, Entry: entryIdx, EntriesTotal: entriesTotal})

		off += stride
	}

	return payloads, headers, nil
}

type partial struct {
	buf         []byte
	payloadSize int
	total       uint16
	found       uint16
}

// reassembler accumulates multi-entry records keyed by record_id, per
// spec.md 4.D: entries_total<=1 bypasses the table entirely.
type reassembler struct {
	inProgress map[uint32]*partial
}

func newReassembler() *reassembler {
	return &reassembler{inProgress: make(map[uint32]*partial)}
}

// feed returns the assembled record bytes and true once a record is
// complete. Standalone records (entries_total<=1) are always "complete" on
// the single call that feeds them.
func (re *reassembler) feed(h entryHeader, payload []byte) ([]byte, bool) {
	if h.EntriesTotal <= 1 {
		return payload, true
	}

	p, ok := re.inProgress[h.RecordID]
	if !ok {
		p = &partial{
			buf:         make([]byte, int(h.EntriesTotal)*len(payload)),
			payloadSize: len(payload),
			total:       h.EntriesTotal,
		}
		re.inProgress[h.RecordID] = p
	}

	// A colliding record_id whose entry index lies past the buffer sized on
	// first sight is dropped rather than written out of bounds.
	if h.Entry >= p.total {
		return nil, false
	}
	start := int(h.Entry) * p.payloadSize
	copy(p.buf[start:start+len(payload)], payload)
	p.found++

	if p.found == p.total {
		delete(re.inProgress, h.RecordID)
		return p.buf, true
	}
	return nil, false
}

func (re *reassembler) done() error {
	if len(re.inProgress) > 0 {
		return ldmerr.New(ldmerr.Invalid, "%d vblk record(s) never completed reassembly", len(re.inProgress))
	}
	return nil
}

// recordHeader is the common prefix of every decoded VBLK record payload.
type recordHeader struct {
	Status uint16
	Flags  uint8
	Kind   uint8 // low nibble of Type
	Rev    uint8 // high nibble of Type
	Size   uint32
}

func decodeRecordHeader(c *primitives.Cursor) (recordHeader, error) {
	status, err := c.ReadU16()
	if err != nil {
		return recordHeader{}, err
	}
	flags, err := c.ReadU8()
	if err != nil {
		return recordHeader{}, err
	}
	typ, err := c.ReadU8()
	if err != nil {
		return recordHeader{}, err
	}
	size, err := c.ReadU32()
	if err != nil {
		return recordHeader{}, err
	}
	return recordHeader{
		Status: status,
		Flags:  flags,
		Kind:   typ & 0x0F,
		Rev:    typ >> 4,
		Size:   size,
	}, nil
}

const (
	kindBlank     = 0x00
	kindVolume    = 0x01
	kindComponent = 0x02
	kindPartition = 0x03
	kindDisk      = 0x04
	kindDiskGroup = 0x05
)

// Parse drives ScanEntries and the reassembler, decoding every standalone or
// reassembled record into the matching slice of draft.
func Parse(config []byte, vmdb onixsk.VMDB) (*model.DraftGroup, error) {
	payloads, headers, err := ScanEntries(config, vmdb)
	if err != nil {
		return nil, err
	}

	draft := &model.DraftGroup{}
	re := newReassembler()

	for i, payload := range payloads {
		record, ready := re.feed(headers[i], payload)
		if !ready {
			continue
		}

		if err := decodeRecord(draft, record); err != nil {
			return nil, err
		}
	}

	if err := re.done(); err != nil {
		return nil, err
	}

	return draft, nil
}

func decodeRecord(draft *model.DraftGroup, record []byte) error {
	c := primitives.NewCursor(record)
	hdr, err := decodeRecordHeader(c)
	if err != nil {
		return err
	}

	switch hdr.Kind {
	case kindBlank:
		return nil
	case kindVolume:
		vol, err := decodeVolume(hdr, c)
		if err != nil {
			return err
		}
		draft.Volumes = append(draft.Volumes, vol)
	case kindComponent:
		comp, err := decodeComponent(hdr, c)
		if err != nil {
			return err
		}
		draft.Components = append(draft.Components, comp)
	case kindPartition:
		part, err := decodePartition(hdr, c)
		if err != nil {
			return err
		}
		draft.Partitions = append(draft.Partitions, part)
	case kindDisk:
		disk, err := decodeDisk(hdr, c)
		if err != nil {
			return err
		}
		draft.Disks = append(draft.Disks, disk)
	case kindDiskGroup:
		id, name, err := decodeDiskGroup(hdr, c)
		if err != nil {
			return err
		}
		draft.ID = id
		draft.Name = name
	default:
		return ldmerr.New(ldmerr.NotSupported, "unknown vblk record kind 0x%x", hdr.Kind)
	}
	return nil
}
