// Package onixsk decodes the three fixed on-disk structures that locate and
// describe an LDM disk's config area: PRIVHEAD, TOCBLOCK, and VMDB. The name
// keeps this package from shadowing the generic notion of "metadata" used
// elsewhere in the tree.
package onixsk

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
)

// rawPrivHead is the packed on-disk layout of PRIVHEAD, decoded with
// encoding/binary.Read the same way the teacher's udf package decodes its
// fixed volume descriptors (PartitionDescriptor, LogicalVolumeDescriptor,
// etc. in internal/fs/udf/reader.go).
type rawPrivHead struct {
	Magic              [8]byte
	UnknownSequence    uint32
	VersionMajor       uint16
	VersionMinor       uint16
	UnknownTimestamp   uint64
	UnknownNumber      uint64
	UnknownSize1       uint64
	UnknownSize2       uint64
	DiskGUID           [64]byte
	HostGUID           [64]byte
	DiskGroupGUID      [64]byte
	DiskGroupName      [32]byte
	Unknown1           uint16
	Padding1           [9]byte
	LogicalDiskStart   uint64
	LogicalDiskSize    uint64
	LdmConfigStart     uint64
	LdmConfigSize      uint64
	NTocs              uint64
	TocSize            uint64
	NConfigs           uint32
	NLogs              uint32
	ConfigSize         uint64
	LogSize            uint64
	DiskSignature      uint32
	DiskSetGUID        [16]byte
	DiskSetGUIDDup     [16]byte
}

const privHeadMagic = "PRIVHEAD"

// PrivHead is the decoded, caller-friendly form of the on-disk PRIVHEAD.
// All sizes are in sectors, per spec.
type PrivHead struct {
	DiskGUID         uuid.UUID
	DiskGroupGUID    uuid.UUID
	DiskGroupName    string
	LogicalDiskStart uint64
	LogicalDiskSize  uint64
	LdmConfigStart   uint64
	LdmConfigSize    uint64
}

// ReadPrivHead decodes PRIVHEAD at byte offset off within r.
func ReadPrivHead(r io.ReaderAt, off int64) (PrivHead, error) {
	var raw rawPrivHead
	sr := io.NewSectionReader(r, off, int64(binary.Size(raw)))
	if err := binary.Read(sr, binary.BigEndian, &raw); err != nil {
		return PrivHead{}, ldmerr.Wrap(ldmerr.Io, err, "reading PRIVHEAD at offset %d", off)
	}

	if string(raw.Magic[:]) != privHeadMagic {
		return PrivHead{}, ldmerr.New(ldmerr.Invalid, "PRIVHEAD magic mismatch: %q", raw.Magic[:])
	}

	diskGUID, err := parseAsciiGUID(raw.DiskGUID[:])
	if err != nil {
		return PrivHead{}, ldmerr.Wrap(ldmerr.Invalid, err, "PRIVHEAD contains invalid GUID for disk")
	}
	groupGUID, err := parseAsciiGUID(raw.DiskGroupGUID[:])
	if err != nil {
		return PrivHead{}, ldmerr.Wrap(ldmerr.Invalid, err, "PRIVHEAD contains invalid GUID for disk group")
	}

	return PrivHead{
		DiskGUID:         diskGUID,
		DiskGroupGUID:    groupGUID,
		DiskGroupName:    trimNUL(raw.DiskGroupName[:]),
		LogicalDiskStart: raw.LogicalDiskStart,
		LogicalDiskSize:  raw.LogicalDiskSize,
		LdmConfigStart:   raw.LdmConfigStart,
		LdmConfigSize:    raw.LdmConfigSize,
	}, nil
}

func parseAsciiGUID(b []byte) (uuid.UUID, error) {
	return uuid.Parse(trimNUL(b))
}

func trimNUL(b []byte) string {
	s := string(b)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ReadConfig reads the config area as a contiguous blob of
// ldm_config_size*sectorSize bytes at ldm_config_start*sectorSize, after
// checking the window lies within deviceSize.
func ReadConfig(r io.ReaderAt, ph PrivHead, sectorSize uint32, deviceSize uint64) ([]byte, error) {
	start := ph.LdmConfigStart * uint64(sectorSize)
	size := ph.LdmConfigSize * uint64(sectorSize)
	if size == 0 {
		return nil, ldmerr.New(ldmerr.Invalid, "ldm config area has zero size")
	}
	if start+size > deviceSize {
		return nil, ldmerr.New(ldmerr.Invalid, "ldm config area [%d,%d) exceeds device size %d", start, start+size, deviceSize)
	}

	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, int64(start)); err != nil && err != io.EOF {
		return nil, ldmerr.Wrap(ldmerr.Io, err, "reading ldm config area")
	}
	return buf, nil
}

type tocBitmap struct {
	Name   [8]byte
	Flags1 uint16
	Start  uint64
	Size   uint64
	Flags2 uint64
}

type rawTOCBlock struct {
	Magic    [8]byte
	Seq1     uint32
	Padding1 [4]byte
	Seq2     uint32
	Padding2 [16]byte
	Bitmap   [2]tocBitmap
}

const tocBlockMagic = "TOCBLOCK"

// TOCBlock is the decoded table of contents: the offset of the VMDB, in
// sectors, relative to the start of the config blob.
type TOCBlock struct {
	VMDBOffset uint64
}

// ReadTOCBlock decodes TOCBLOCK at byte offset 2*sectorSize within config.
func ReadTOCBlock(config []byte, sectorSize uint32) (TOCBlock, error) {
	off := int(2 * sectorSize)
	size := binary.Size(rawTOCBlock{})
	if off+size > len(config) {
		return TOCBlock{}, ldmerr.New(ldmerr.Invalid, "config area too small for TOCBLOCK")
	}

	var raw rawTOCBlock
	if err := binary.Read(io.NewSectionReader(bytesReaderAt(config), int64(off), int64(size)), binary.BigEndian, &raw); err != nil {
		return TOCBlock{}, ldmerr.Wrap(ldmerr.Invalid, err, "decoding TOCBLOCK")
	}
	if string(raw.Magic[:]) != tocBlockMagic {
		return TOCBlock{}, ldmerr.New(ldmerr.Invalid, "TOCBLOCK magic mismatch: %q", raw.Magic[:])
	}

	for _, b := range raw.Bitmap {
		if trimNUL(b.Name[:]) == "config" {
			return TOCBlock{VMDBOffset: b.Start}, nil
		}
	}
	return TOCBlock{}, ldmerr.New(ldmerr.Invalid, "TOCBLOCK has no \"config\" bitmap")
}

type rawVMDB struct {
	Magic                  [4]byte
	VblkLast               uint32
	VblkSize               uint32
	VblkFirstOffset        uint32
	UpdateStatus           uint16
	VersionMajor           uint16
	VersionMinor           uint16
	DiskGroupName          [31]byte
	DiskGroupGUID          [64]byte
	CommittedSeq           uint64
	PendingSeq             uint64
	NCommittedVblksVol     uint32
	NCommittedVblksComp    uint32
	NCommittedVblksPart    uint32
	NCommittedVblksDisk    uint32
	Padding1               [12]byte
	NPendingVblksVol       uint32
	NPendingVblksComp      uint32
	NPendingVblksPart      uint32
	NPendingVblksDisk      uint32
	Padding2               [12]byte
	LastAccessed           uint64
}

const vmdbMagic = "VMDB"

// VMDB is the decoded Volume Manager Database header.
type VMDB struct {
	VblkSize        uint32
	VblkFirstOffset uint32
	CommittedSeq    uint64

	NCommittedDisk uint32
	NCommittedComp uint32
	NCommittedPart uint32
	NCommittedVol  uint32
}

// ReadVMDB decodes the VMDB header located by toc.VMDBOffset (itself in
// sectors, relative to config) within the config blob.
func ReadVMDB(config []byte, toc TOCBlock, sectorSize uint32) (VMDB, error) {
	off := int(toc.VMDBOffset * uint64(sectorSize))
	size := binary.Size(rawVMDB{})
	if off < 0 || off+size > len(config) {
		return VMDB{}, ldmerr.New(ldmerr.Invalid, "config area too small for VMDB at offset %d", off)
	}

	var raw rawVMDB
	if err := binary.Read(io.NewSectionReader(bytesReaderAt(config), int64(off), int64(size)), binary.BigEndian, &raw); err != nil {
		return VMDB{}, ldmerr.Wrap(ldmerr.Invalid, err, "decoding VMDB")
	}
	if string(raw.Magic[:]) != vmdbMagic {
		return VMDB{}, ldmerr.New(ldmerr.Invalid, "VMDB magic mismatch: %q", raw.Magic[:])
	}

	return VMDB{
		VblkSize:        raw.VblkSize,
		VblkFirstOffset: raw.VblkFirstOffset,
		CommittedSeq:    raw.CommittedSeq,
		NCommittedDisk:  raw.NCommittedVblksDisk,
		NCommittedComp:  raw.NCommittedVblksComp,
		NCommittedPart:  raw.NCommittedVblksPart,
		NCommittedVol:   raw.NCommittedVblksVol,
	}, nil
}

// bytesReaderAt adapts a []byte to io.ReaderAt without an extra copy.
type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
