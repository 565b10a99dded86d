package vblk

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-ldm/ldmtool/internal/ldm/onixsk"
)

func varInt(width int, v uint64) []byte {
	b := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return append([]byte{byte(width)}, b...)
}

func varString(s string) []byte {
	return append([]byte{byte(len(s))}, []byte(s)...)
}

func beU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func recHead(kind, rev uint8, flags uint8, size uint32) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint16(0))           // status
	buf.WriteByte(flags)                                      // flags
	buf.WriteByte(kind | rev<<4)                               // type
	binary.Write(&buf, binary.BigEndian, size)                 // size
	return buf.Bytes()
}

func buildEntry(recordID uint32, entry, entriesTotal uint16, payload []byte, stride int) []byte {
	out := make([]byte, stride)
	copy(out[0:4], vblkMagic)
	binary.BigEndian.PutUint32(out[4:8], 1) // seq
	binary.BigEndian.PutUint32(out[8:12], recordID)
	binary.BigEndian.PutUint16(out[12:14], entry)
	binary.BigEndian.PutUint16(out[14:16], entriesTotal)
	copy(out[16:], payload)
	return out
}

func diskGroupPayload(id uint32, name string) []byte {
	var buf bytes.Buffer
	buf.Write(recHead(kindDiskGroup, 3, 0, 0))
	buf.Write(varInt(4, uint64(id)))
	buf.Write(varString(name))
	return buf.Bytes()
}

func diskPayload(id uint32, name string, guid [16]byte) []byte {
	var buf bytes.Buffer
	buf.Write(recHead(kindDisk, 4, 0, 0))
	buf.Write(varInt(4, uint64(id)))
	buf.Write(varString(name))
	buf.Write(guid[:])
	return buf.Bytes()
}

func partitionPayload(id uint32, name string, start, volOffset, size uint64, parentID, diskID uint32) []byte {
	var buf bytes.Buffer
	buf.Write(recHead(kindPartition, 3, 0, 0))
	buf.Write(varInt(4, uint64(id)))
	buf.Write(varString(name))
	buf.Write(make([]byte, 4)) // zeroes
	buf.Write(make([]byte, 8)) // log commit id
	buf.Write(beU64(start))
	buf.Write(beU64(volOffset))
	buf.Write(varInt(8, size))
	buf.Write(varInt(4, uint64(parentID)))
	buf.Write(varInt(4, uint64(diskID)))
	return buf.Bytes()
}

func componentPayload(id uint32, name string, typ uint8, nParts, parentID uint32) []byte {
	var buf bytes.Buffer
	buf.Write(recHead(kindComponent, 3, 0, 0))
	buf.Write(varInt(4, uint64(id)))
	buf.Write(varString(name))
	buf.Write(varString("")) // volume state
	buf.WriteByte(typ)
	buf.Write(make([]byte, 4)) // zeroes
	buf.Write(varInt(4, uint64(nParts)))
	buf.Write(make([]byte, 8)) // log commit id
	buf.Write(make([]byte, 8)) // zeroes
	buf.Write(varInt(4, uint64(parentID)))
	buf.WriteByte(0) // zero
	return buf.Bytes()
}

func volumePayload(id uint32, name string, typ uint8, nComps uint32, size uint64, partType uint8) []byte {
	var buf bytes.Buffer
	buf.Write(recHead(kindVolume, 5, 0, 0))
	buf.Write(varInt(4, uint64(id)))
	buf.Write(varString(name))
	buf.Write(varString("gen"))                     // volume type string
	buf.Write(varString("8000000000000000"))        // undocumented field
	buf.Write(make([]byte, 14))                     // volume state
	buf.WriteByte(typ)
	buf.WriteByte(0) // unknown
	buf.WriteByte(0) // volume number
	buf.Write(make([]byte, 3))
	buf.WriteByte(0) // flags byte
	buf.Write(varInt(4, uint64(nComps)))
	buf.Write(make([]byte, 8)) // commit id
	buf.Write(make([]byte, 8)) // id?
	buf.Write(varInt(8, size))
	buf.Write(make([]byte, 4)) // zeroes
	buf.WriteByte(partType)
	buf.Write(make([]byte, 16)) // volume id
	return buf.Bytes()
}

func TestParse_AllRecordKinds(t *testing.T) {
	const stride = 128
	const firstOff = 0

	entries := [][]byte{
		buildEntry(1, 0, 0, diskGroupPayload(7, "dg1"), stride),
		buildEntry(2, 0, 0, diskPayload(1, "disk1", [16]byte{1, 2, 3, 4}), stride),
		buildEntry(3, 0, 0, partitionPayload(10, "part1", 100, 0, 50, 20, 1), stride),
		buildEntry(4, 0, 0, componentPayload(20, "comp1", uint8(1), 1, 30), stride),
		buildEntry(5, 0, 0, volumePayload(30, "vol1", 0x03, 1, 500, 0x07), stride),
	}

	var config []byte
	for _, e := range entries {
		config = append(config, e...)
	}

	vmdb := onixsk.VMDB{VblkFirstOffset: firstOff, VblkSize: stride}

	draft, err := Parse(config, vmdb)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if draft.ID != 7 || draft.Name != "dg1" {
		t.Errorf("disk group = %d/%s, want 7/dg1", draft.ID, draft.Name)
	}
	if len(draft.Disks) != 1 || draft.Disks[0].Name != "disk1" {
		t.Fatalf("unexpected disks: %+v", draft.Disks)
	}
	if len(draft.Partitions) != 1 || draft.Partitions[0].Start != 100 {
		t.Fatalf("unexpected partitions: %+v", draft.Partitions)
	}
	if len(draft.Components) != 1 || draft.Components[0].NParts != 1 {
		t.Fatalf("unexpected components: %+v", draft.Components)
	}
	if len(draft.Volumes) != 1 || draft.Volumes[0].Size != 500 {
		t.Fatalf("unexpected volumes: %+v", draft.Volumes)
	}
}

func TestParse_SpannedReassembly(t *testing.T) {
	const stride = 32
	payload := diskGroupPayload(9, "spanned-dg")

	half := len(payload)/2 + 1
	part1 := payload[:half]
	part2 := payload[half:]

	// Entries in a spanned record must all carry the same payload length;
	// pad the shorter half.
	maxLen := len(part1)
	if len(part2) > maxLen {
		maxLen = len(part2)
	}
	p1 := make([]byte, maxLen)
	copy(p1, part1)
	p2 := make([]byte, maxLen)
	copy(p2, part2)

	entryStride := entryHeaderSize + maxLen
	e1 := buildEntry(42, 0, 2, p1, entryStride)
	e2 := buildEntry(42, 1, 2, p2, entryStride)

	config := append(append([]byte{}, e1...), e2...)

	vmdb := onixsk.VMDB{VblkFirstOffset: 0, VblkSize: entryStride}
	_ = stride

	draft, err := Parse(config, vmdb)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if draft.ID != 9 || draft.Name != "spanned-dg" {
		t.Errorf("reassembled disk group = %d/%s, want 9/spanned-dg", draft.ID, draft.Name)
	}
}

func TestParse_IncompleteSpanIsError(t *testing.T) {
	payload := diskGroupPayload(1, "x")
	stride := entryHeaderSize + len(payload)
	e1 := buildEntry(1, 0, 2, payload, stride)

	if _, err := Parse(e1, onixsk.VMDB{VblkFirstOffset: 0, VblkSize: stride}); err == nil {
		t.Fatal("expected error for never-completed reassembly")
	}
}
