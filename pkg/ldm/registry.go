// Package ldm is the public entry point for scanning Windows LDM dynamic
// disks and reconstructing their disk-group topology: feed it one disk
// device or image at a time with Add, then read back fully resolved
// DiskGroups.
package ldm

import (
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/go-ldm/ldmtool/internal/ldm/dmtable"
	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
	"github.com/go-ldm/ldmtool/internal/ldm/model"
	"github.com/go-ldm/ldmtool/internal/ldm/onixsk"
	"github.com/go-ldm/ldmtool/internal/ldm/probe"
	"github.com/go-ldm/ldmtool/internal/ldm/resolve"
	"github.com/go-ldm/ldmtool/internal/ldm/vblk"
)

// DiskGroup re-exports the resolved object graph so callers of this package
// never need to import internal/ldm/model directly.
type DiskGroup = model.DiskGroup

// Volume re-exports the resolved volume type.
type Volume = model.Volume

// Table is one device-mapper table line ready for dmsetup.
type Table = dmtable.Table

// Registry accumulates disk groups discovered across a set of physical
// disks or disk images added one at a time.
type Registry struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*model.DiskGroup
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[uuid.UUID]*model.DiskGroup)}
}

// DiskGroups returns every disk group discovered so far. Order is not
// significant: group membership is keyed by disk-group GUID, not by
// insertion order.
func (r *Registry) DiskGroups() []*model.DiskGroup {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.DiskGroup, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	return out
}

// Add opens path and folds its LDM metadata, if any, into the registry,
// autodetecting its sector size.
func (r *Registry) Add(path string) error {
	return r.add(path, 0)
}

// AddWithSectorSize is like Add but overrides sector-size autodetection with
// sectorSize, for devices whose ioctl geometry is wrong or unavailable.
// sectorSize of 0 behaves exactly like Add.
func (r *Registry) AddWithSectorSize(path string, sectorSize uint32) error {
	return r.add(path, sectorSize)
}

func (r *Registry) add(path string, sectorOverride uint32) error {
	f, err := os.Open(path)
	if err != nil {
		return ldmerr.Wrap(ldmerr.Io, err, "opening %s", path)
	}
	defer f.Close()

	sectorSize, deviceSize, err := probe.DeviceGeometry(f)
	if err != nil {
		logrus.WithField("path", path).Warn("unable to determine device geometry, assuming 512 byte sectors")
		sectorSize, deviceSize = 512, 0
		if fi, statErr := f.Stat(); statErr == nil {
			deviceSize = uint64(fi.Size())
		}
	}
	if sectorOverride != 0 {
		sectorSize = sectorOverride
	}

	return r.AddFD(f, sectorSize, deviceSize, path)
}

// AddFD folds the LDM metadata found on f, already open for reading, into
// the registry. path is used only for diagnostics and as the device node
// recorded against the disk's dm-table entries.
func (r *Registry) AddFD(f *os.File, sectorSize uint32, deviceSize uint64, path string) error {
	result, err := probe.Probe(f, sectorSize)
	if err != nil {
		return err
	}

	ph, err := onixsk.ReadPrivHead(f, result.PrivheadOff)
	if err != nil {
		return err
	}

	config, err := onixsk.ReadConfig(f, ph, sectorSize, deviceSize)
	if err != nil {
		return err
	}

	toc, err := onixsk.ReadTOCBlock(config, sectorSize)
	if err != nil {
		return err
	}
	vmdb, err := onixsk.ReadVMDB(config, toc, sectorSize)
	if err != nil {
		return err
	}

	// Add may be called concurrently from the scan pool; serialize the
	// group lookup, decode-and-resolve-on-first-sight, and disk population
	// below, since all three touch state shared across goroutines.
	r.mu.Lock()
	defer r.mu.Unlock()

	dg, ok := r.groups[ph.DiskGroupGUID]
	if !ok {
		draft, err := vblk.Parse(config, vmdb)
		if err != nil {
			return err
		}
		draft.GUID = ph.DiskGroupGUID
		draft.Sequence = vmdb.CommittedSeq

		dg, err = resolve.Resolve(draft, vmdb)
		if err != nil {
			return err
		}

		logrus.WithField("guid", dg.GUID).Debug("found new disk group")
		r.groups[dg.GUID] = dg
	} else {
		if vmdb.CommittedSeq != dg.Sequence {
			return ldmerr.New(ldmerr.Inconsistent,
				"members of disk group %s are inconsistent: disk %s has committed sequence %d, group has %d",
				dg.GUID, path, vmdb.CommittedSeq, dg.Sequence)
		}
	}

	for _, disk := range dg.Disks {
		if disk.GUID != ph.DiskGUID {
			continue
		}
		devPath := path
		disk.Device = &devPath
		disk.DataStart = ph.LogicalDiskStart
		disk.DataSize = ph.LogicalDiskSize
		disk.MetadataStart = ph.LdmConfigStart
		disk.MetadataSize = ph.LdmConfigSize
		break
	}

	return nil
}
