// Package dmtable turns a resolved model.Volume into the Linux device-mapper
// table lines needed to activate it, mirroring libdevmapper's textual table
// format for linear, striped, raid1, and raid5_ls targets.
package dmtable

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-ldm/ldmtool/internal/ldm/ldmerr"
	"github.com/go-ldm/ldmtool/internal/ldm/model"
)

// Table is one device-mapper table: Name is the mapped device name to give
// dmsetup, Line is the table body passed on its stdin.
type Table struct {
	Name string
	Line string
}

// Generate returns the device-mapper tables needed to assemble v, in
// dependency order: any table referencing another by /dev/mapper/<name>
// appears after it in the slice.
func Generate(v *model.Volume) ([]Table, error) {
	switch v.Type {
	case model.VolumeGen:
		if len(v.Components) > 1 {
			return generateMirrored(v)
		}
		if len(v.Components) == 0 {
			return nil, ldmerr.New(ldmerr.Invalid, "volume %s has no components", v.Name)
		}

		comp := v.Components[0]
		switch comp.Type {
		case model.ComponentSpanned:
			return generateSpanned(v, comp)
		case model.ComponentStriped:
			return generateStriped(v, comp)
		default:
			return nil, ldmerr.New(ldmerr.NotSupported, "volume %s is type GEN, component is neither spanned nor striped", v.Name)
		}

	case model.VolumeRAID5:
		return generateRAID5(v)

	default:
		return nil, ldmerr.New(ldmerr.NotSupported, "unexpected volume type %d", v.Type)
	}
}

func tableName(dgName, entityName string) string {
	return fmt.Sprintf("ldm_%s_%s", url.PathEscape(dgName), url.PathEscape(entityName))
}

// generatePartitionTable returns a standalone linear table mapping one
// partition onto its backing disk device, or a MissingDisk error if the disk
// has no known device node.
func generatePartitionTable(dgName string, part *model.Partition) (Table, error) {
	disk := part.Disk
	if disk.Device == nil {
		return Table{}, ldmerr.New(ldmerr.MissingDisk, "disk %s required by partition %s is missing", disk.Name, part.Name)
	}

	name := tableName(dgName, part.Name)
	line := fmt.Sprintf("0 %d linear %s %d\n", part.Size, *disk.Device, disk.DataStart+part.Start)
	return Table{Name: name, Line: line}, nil
}

func generateMirrored(v *model.Volume) ([]Table, error) {
	var legTables []Table
	var refs []string
	found := 0

	for _, comp := range v.Components {
		if comp.Type != model.ComponentSpanned || len(comp.Partitions) != 1 {
			return nil, ldmerr.New(ldmerr.NotSupported, "unsupported configuration: mirrored volume must contain only simple partitions")
		}
		part := comp.Partitions[0]

		leg, err := generatePartitionTable(v.DGName, part)
		if err != nil {
			if ldmerr.Is(err, ldmerr.MissingDisk) {
				refs = append(refs, "- -")
				continue
			}
			return nil, err
		}

		legTables = append([]Table{leg}, legTables...)
		found++
		refs = append(refs, fmt.Sprintf("- /dev/mapper/%s", leg.Name))
	}

	if found == 0 {
		return nil, ldmerr.New(ldmerr.MissingDisk, "mirrored volume is missing all components")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "0 %d raid raid1 1 128 %d", v.Size, len(v.Components))
	for _, r := range refs {
		b.WriteString(" ")
		b.WriteString(r)
	}
	b.WriteString("\n")

	mirror := Table{Name: tableName(v.DGName, v.Name), Line: b.String()}
	return append(legTables, mirror), nil
}

func generateSpanned(v *model.Volume, comp *model.Component) ([]Table, error) {
	var b strings.Builder
	var pos uint64

	for _, part := range comp.Partitions {
		disk := part.Disk
		if disk.Device == nil {
			return nil, ldmerr.New(ldmerr.MissingDisk, "disk %s required by spanned volume %s is missing", disk.Name, v.Name)
		}
		if pos != part.VolOffset {
			return nil, ldmerr.New(ldmerr.Invalid, "partition volume offset does not match sizes of preceding partitions")
		}

		fmt.Fprintf(&b, "%d %d linear %s %d\n", pos, pos+part.Size, *disk.Device, disk.DataStart+part.Start)
		pos += part.Size
	}

	return []Table{{Name: tableName(v.DGName, v.Name), Line: b.String()}}, nil
}

func generateStriped(v *model.Volume, comp *model.Component) ([]Table, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "0 %d striped %d %d", v.Size, comp.NColumns, comp.StripeSize)

	for _, part := range comp.Partitions {
		disk := part.Disk
		if disk.Device == nil {
			return nil, ldmerr.New(ldmerr.MissingDisk, "disk %s required by striped volume %s is missing", disk.Name, v.Name)
		}
		fmt.Fprintf(&b, " %s %d", *disk.Device, disk.DataStart+part.Start)
	}
	b.WriteString("\n")

	return []Table{{Name: tableName(v.DGName, v.Name), Line: b.String()}}, nil
}

func generateRAID5(v *model.Volume) ([]Table, error) {
	if len(v.Components) != 1 {
		return nil, ldmerr.New(ldmerr.NotSupported, "unsupported configuration: volume type raid5 should have a single child component")
	}
	comp := v.Components[0]
	if comp.Type != model.ComponentRAID {
		return nil, ldmerr.New(ldmerr.NotSupported, "unsupported configuration: child component of raid5 volume must be of type raid")
	}

	var legTables []Table
	var refs []string
	found := 0

	for _, part := range comp.Partitions {
		leg, err := generatePartitionTable(v.DGName, part)
		if err != nil {
			if ldmerr.Is(err, ldmerr.MissingDisk) {
				refs = append(refs, "- -")
				continue
			}
			return nil, err
		}

		legTables = append([]Table{leg}, legTables...)
		found++
		refs = append(refs, fmt.Sprintf("- /dev/mapper/%s", leg.Name))
	}

	if comp.NColumns > 0 && uint32(found) < comp.NColumns-1 {
		return nil, ldmerr.New(ldmerr.MissingDisk, "raid5 volume is missing more than 1 component")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "0 %d raid raid5_ls 1 %d %d", v.Size, comp.StripeSize, comp.NColumns)
	for _, r := range refs {
		b.WriteString(" ")
		b.WriteString(r)
	}
	b.WriteString("\n")

	raid5 := Table{Name: tableName(v.DGName, v.Name), Line: b.String()}
	return append(legTables, raid5), nil
}
