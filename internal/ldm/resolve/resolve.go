// Package resolve links a DraftGroup's flat record slices into the owned
// object graph of a model.DiskGroup: partitions point at their disk and
// parent component, components sort their partitions into index order and
// point at their parent volume, and declared counts are checked against
// what was actually observed in the VBLK stream.
package resolve

import (
	"sort"

	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
	"github.com/go-ldm/ldmtool/internal/ldm/model"
	"github.com/go-ldm/ldmtool/internal/ldm/onixsk"
)

// Resolve links draft's flat records using vmdb's committed counts as the
// expected cardinality of every slice, and returns the assembled DiskGroup.
func Resolve(draft *model.DraftGroup, vmdb onixsk.VMDB) (*model.DiskGroup, error) {
	if uint32(len(draft.Disks)) != vmdb.NCommittedDisk {
		return nil, ldmerr.New(ldmerr.Invalid, "expected %d disk vblks, found %d", vmdb.NCommittedDisk, len(draft.Disks))
	}
	if uint32(len(draft.Components)) != vmdb.NCommittedComp {
		return nil, ldmerr.New(ldmerr.Invalid, "expected %d component vblks, found %d", vmdb.NCommittedComp, len(draft.Components))
	}
	if uint32(len(draft.Partitions)) != vmdb.NCommittedPart {
		return nil, ldmerr.New(ldmerr.Invalid, "expected %d partition vblks, found %d", vmdb.NCommittedPart, len(draft.Partitions))
	}
	if uint32(len(draft.Volumes)) != vmdb.NCommittedVol {
		return nil, ldmerr.New(ldmerr.Invalid, "expected %d volume vblks, found %d", vmdb.NCommittedVol, len(draft.Volumes))
	}

	disksByID := make(map[uint32]*model.Disk, len(draft.Disks))
	for _, d := range draft.Disks {
		disksByID[d.ID] = d
	}
	compsByID := make(map[uint32]*model.Component, len(draft.Components))
	for _, c := range draft.Components {
		compsByID[c.ID] = c
	}
	volsByID := make(map[uint32]*model.Volume, len(draft.Volumes))
	for _, v := range draft.Volumes {
		volsByID[v.ID] = v
	}

	for _, part := range draft.Partitions {
		disk, ok := disksByID[part.DiskID]
		if !ok {
			return nil, ldmerr.New(ldmerr.Invalid, "partition %d references unknown disk %d", part.ID, part.DiskID)
		}
		part.Disk = disk

		comp, ok := compsByID[part.ParentID]
		if !ok {
			return nil, ldmerr.New(ldmerr.Invalid, "didn't find parent component %d for partition %d", part.ParentID, part.ID)
		}
		part.Parent = comp
		comp.Partitions = append(comp.Partitions, part)
	}

	for _, comp := range draft.Components {
		if uint32(len(comp.Partitions)) != comp.NParts {
			return nil, ldmerr.New(ldmerr.Invalid, "component %d expected %d partitions, found %d", comp.ID, comp.NParts, len(comp.Partitions))
		}

		sort.Slice(comp.Partitions, func(i, j int) bool {
			return comp.Partitions[i].Index < comp.Partitions[j].Index
		})

		vol, ok := volsByID[comp.ParentID]
		if !ok {
			return nil, ldmerr.New(ldmerr.Invalid, "didn't find parent volume %d for component %d", comp.ParentID, comp.ID)
		}
		comp.Parent = vol
		vol.Components = append(vol.Components, comp)
	}

	for _, vol := range draft.Volumes {
		if uint32(len(vol.Components)) != vol.NComps {
			return nil, ldmerr.New(ldmerr.Invalid, "volume %d expected %d components, found %d", vol.ID, vol.NComps, len(vol.Components))
		}
		vol.DGName = draft.Name
	}

	return &model.DiskGroup{
		GUID:       draft.GUID,
		ID:         draft.ID,
		Name:       draft.Name,
		Sequence:   draft.Sequence,
		Disks:      draft.Disks,
		Components: draft.Components,
		Partitions: draft.Partitions,
		Volumes:    draft.Volumes,
	}, nil
}
