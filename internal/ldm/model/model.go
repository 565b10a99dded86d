// Package model holds the in-memory LDM object graph: disk groups, disks,
// partitions, components, and volumes, plus the draft form records are
// decoded into before the resolver links them.
package model

import "github.com/google/uuid"

// ComponentType is the striping/concatenation policy of a Component.
type ComponentType uint8

const (
	ComponentStriped ComponentType = 1
	ComponentSpanned ComponentType = 2
	ComponentRAID    ComponentType = 3
)

func (t ComponentType) String() string {
	switch t {
	case ComponentStriped:
		return "STRIPED"
	case ComponentSpanned:
		return "SPANNED"
	case ComponentRAID:
		return "RAID"
	default:
		return "UNKNOWN"
	}
}

// VolumeType is the top-level volume shape.
type VolumeType uint8

const (
	VolumeGen   VolumeType = 0x03
	VolumeRAID5 VolumeType = 0x04
)

func (t VolumeType) String() string {
	switch t {
	case VolumeGen:
		return "GEN"
	case VolumeRAID5:
		return "RAID5"
	default:
		return "UNKNOWN"
	}
}

// Disk is one physical or absent member of a DiskGroup.
type Disk struct {
	ID   uint32
	Name string
	GUID uuid.UUID

	DataStart     uint64
	DataSize      uint64
	MetadataStart uint64
	MetadataSize  uint64

	// Device is nil until a physical device matching GUID has been
	// supplied to the registry; it may be set exactly once.
	Device *string
}

// Partition is one leaf extent, resolved to its backing disk and owning
// component.
type Partition struct {
	ID        uint32
	Name      string
	Start     uint64
	VolOffset uint64
	Size      uint64
	Index     uint32

	DiskID   uint32
	ParentID uint32

	Disk   *Disk
	Parent *Component
}

// Component sits between a Volume and its child Partitions.
type Component struct {
	ID       uint32
	Name     string
	ParentID uint32
	Type     ComponentType

	// NParts is the declared child count read from the VBLK; Partitions is
	// the observed, resolved, index-sorted list.
	NParts     uint32
	Partitions []*Partition

	StripeSize uint64
	NColumns   uint32

	Parent *Volume
}

// Volume is the top-level logical disk exposed to the host.
type Volume struct {
	ID       uint32
	Name     string
	DGName   string
	Type     VolumeType
	Size     uint64
	PartType byte

	Hint  *string
	ID1   *string
	ID2   *string
	Size2 *uint64

	// NComps is the declared child count; Components is the observed,
	// resolved list.
	NComps     uint32
	Components []*Component
}

// DiskGroup owns every entity discovered from one consistent set of disks.
type DiskGroup struct {
	GUID     uuid.UUID
	ID       uint32
	Name     string
	Sequence uint64

	Disks      []*Disk
	Components []*Component
	Partitions []*Partition
	Volumes    []*Volume
}

// DraftGroup accumulates records as they are decoded from a single disk's
// VBLK stream, before the resolver links them into a DiskGroup.
type DraftGroup struct {
	ID       uint32
	Name     string
	GUID     uuid.UUID
	Sequence uint64

	Disks      []*Disk
	Components []*Component
	Partitions []*Partition
	Volumes    []*Volume
}
