// Package probe determines whether a device holds Windows LDM dynamic-disk
// metadata by inspecting its partition table, MBR or GPT, and locates the
// on-disk offset of its PRIVHEAD structure.
package probe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
)

// Kind identifies which partitioning scheme was found on a device.
type Kind int

const (
	KindUnknown Kind = iota
	KindMBR
	KindGPT
)

func (k Kind) String() string {
	switch k {
	case KindMBR:
		return "mbr"
	case KindGPT:
		return "gpt"
	default:
		return "unknown"
	}
}

// Result is the outcome of a successful Probe: the partition-table kind
// found, and the byte offset at which the device's PRIVHEAD begins.
type Result struct {
	Kind        Kind
	PrivheadOff int64
}

const (
	mbrPartWindowsLDM  = 0x42
	mbrPartEFIProtective = 0xEE

	mbrPartEntryOffset = 0x1BE
	mbrPartEntrySize   = 16
	mbrTypeOffset      = 4
	mbrSignatureOffset = 0x1FE

	gptHeaderSignature = "EFI PART"
)

// ldmMetadataGUID is the raw mixed-endian on-disk bytes of the "Logical Disk
// Manager metadata partition" type GUID 5808C8AA-7E8F-42E0-85D2-E1E90434CFB3.
var ldmMetadataGUID = [16]byte{
	0xAA, 0xC8, 0x08, 0x58, 0x8F, 0x7E, 0xE0, 0x42,
	0x85, 0xD2, 0xE1, 0xE9, 0x04, 0x34, 0xCF, 0xB3,
}

// Probe reads f's partition table and locates the PRIVHEAD offset, per
// libldm's dispatch: an MBR disk is only recognised as LDM if its first
// partition's type byte is 0x42; a GPT disk is recognised via the EFI
// protective MBR plus a GPT partition entry typed as LDM metadata.
func Probe(f io.ReaderAt, sectorSize uint32) (Result, error) {
	mbrSector := make([]byte, 512)
	if _, err := f.ReadAt(mbrSector, 0); err != nil && err != io.EOF {
		return Result{}, ldmerr.Wrap(ldmerr.Io, err, "reading mbr sector")
	}

	if binary.LittleEndian.Uint16(mbrSector[mbrSignatureOffset:]) != 0xAA55 {
		return Result{}, ldmerr.New(ldmerr.Invalid, "didn't detect a partition table")
	}

	partType := mbrSector[mbrPartEntryOffset+mbrTypeOffset]
	switch partType {
	case mbrPartWindowsLDM:
		off := int64(sectorSize) * 6
		return Result{Kind: KindMBR, PrivheadOff: off}, nil

	case mbrPartEFIProtective:
		return probeGPT(f, sectorSize)

	default:
		return Result{}, ldmerr.New(ldmerr.NotLdm, "device does not contain LDM metadata")
	}
}

type gptHeader struct {
	Signature            [8]byte
	Revision             uint32
	HeaderSize           uint32
	HeaderCRC32          uint32
	Reserved             uint32
	CurrentLBA           uint64
	BackupLBA            uint64
	FirstUsableLBA       uint64
	LastUsableLBA        uint64
	DiskGUID             [16]byte
	PartitionEntryLBA    uint64
	NumPartitionEntries  uint32
	SizeOfPartitionEntry uint32
	PartitionEntryCRC32  uint32
}

type gptPartitionEntry struct {
	TypeGUID   [16]byte
	UniqueGUID [16]byte
	FirstLBA   uint64
	LastLBA    uint64
	Attributes uint64
	Name       [72]byte
}

func probeGPT(f io.ReaderAt, sectorSize uint32) (Result, error) {
	hdrBuf := make([]byte, int(sectorSize))
	if _, err := f.ReadAt(hdrBuf, int64(sectorSize)); err != nil && err != io.EOF {
		return Result{}, ldmerr.Wrap(ldmerr.Io, err, "reading gpt header")
	}

	var hdr gptHeader
	if err := binary.Read(bytes.NewReader(hdrBuf), binary.LittleEndian, &hdr); err != nil {
		return Result{}, ldmerr.Wrap(ldmerr.Invalid, err, "decoding gpt header")
	}
	if string(hdr.Signature[:]) != gptHeaderSignature {
		return Result{}, ldmerr.New(ldmerr.Invalid, "device contains an invalid gpt header")
	}

	entrySize := int(hdr.SizeOfPartitionEntry)
	if entrySize < binary.Size(gptPartitionEntry{}) {
		return Result{}, ldmerr.New(ldmerr.Invalid, "gpt partition entry size %d too small", entrySize)
	}

	for i := uint32(0); i < hdr.NumPartitionEntries; i++ {
		// Corrected from the original implementation, which always fetched
		// partition-table entry 0 instead of the loop index.
		off := int64(hdr.PartitionEntryLBA)*int64(sectorSize) + int64(i)*int64(entrySize)

		entryBuf := make([]byte, entrySize)
		if _, err := f.ReadAt(entryBuf, off); err != nil && err != io.EOF {
			return Result{}, ldmerr.Wrap(ldmerr.Io, err, "reading gpt partition entry %d", i)
		}

		var pte gptPartitionEntry
		if err := binary.Read(bytes.NewReader(entryBuf), binary.LittleEndian, &pte); err != nil {
			return Result{}, ldmerr.Wrap(ldmerr.Invalid, err, "decoding gpt partition entry %d", i)
		}

		if pte.TypeGUID == ldmMetadataGUID {
			// PRIVHEAD is in the last LBA of the LDM metadata partition.
			off := int64(pte.LastLBA) * int64(sectorSize)
			return Result{Kind: KindGPT, PrivheadOff: off}, nil
		}
	}

	return Result{}, ldmerr.New(ldmerr.NotLdm, "device does not contain LDM metadata")
}

// DeviceGeometry returns f's logical sector size and total size in bytes,
// using the block-device ioctls when f is a block device and falling back to
// os.File.Stat for regular files (fixtures, disk images).
func DeviceGeometry(f *os.File) (sectorSize uint32, deviceSize uint64, err error) {
	fd := int(f.Fd())

	ss, ssErr := unix.IoctlGetInt(fd, unix.BLKSSZGET)
	sz, szErr := ioctlBlockSize64(fd)
	if ssErr == nil && szErr == nil {
		return uint32(ss), sz, nil
	}
	if !errors.Is(ssErr, unix.ENOTTY) && ssErr != nil {
		return 0, 0, ldmerr.Wrap(ldmerr.Io, ssErr, "BLKSSZGET")
	}

	fi, statErr := f.Stat()
	if statErr != nil {
		return 0, 0, ldmerr.Wrap(ldmerr.Io, statErr, "stat")
	}
	return 512, uint64(fi.Size()), nil
}

// ioctlBlockSize64 issues BLKGETSIZE64 directly: unix has no IoctlGetUint64
// helper, only IoctlGetInt/IoctlGetUint32, neither wide enough for a device
// size.
func ioctlBlockSize64(fd int) (uint64, error) {
	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, errno
	}
	return size, nil
}
