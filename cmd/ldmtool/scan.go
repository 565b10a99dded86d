package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/go-ldm/ldmtool/internal/scanpool"
	"github.com/go-ldm/ldmtool/pkg/ldm"
)

var scanCmd = &cobra.Command{
	Use:   "scan <device>...",
	Short: "scan one or more block devices for LDM dynamic-disk metadata",
	Long: `Reads the LDM metadata from each device given, reconstructs the
topology of every disk group spanning them, and prints the disks,
volumes, components, and partitions found.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(args)
	},
}

func runScan(devices []string) error {
	r := ldm.NewRegistry()

	var errMu sync.Mutex
	var failures []string
	scanpool.Run(devices, scanpool.WorkerLimit(len(devices)),
		func(dev string) error { return r.AddWithSectorSize(dev, cfg.SectorSize) },
		func(dev string, err error) {
			errMu.Lock()
			defer errMu.Unlock()
			failures = append(failures, fmt.Sprintf("%s: %v", dev, err))
		},
	)

	for _, dg := range r.DiskGroups() {
		printDiskGroup(dg)
	}

	if len(failures) > 0 {
		for _, f := range failures {
			fmt.Println("error:", f)
		}
		return fmt.Errorf("%d of %d device(s) failed to scan", len(failures), len(devices))
	}
	return nil
}

func printDiskGroup(dg *ldm.DiskGroup) {
	fmt.Printf("disk group %s (%s)\n", dg.Name, dg.GUID)
	for _, disk := range dg.Disks {
		device := "(missing)"
		if disk.Device != nil {
			device = *disk.Device
		}
		fmt.Printf("  disk %d %-10s guid=%s device=%s\n", disk.ID, disk.Name, disk.GUID, device)
	}
	for _, vol := range dg.Volumes {
		fmt.Printf("  volume %d %-10s type=%s size=%d sectors\n", vol.ID, vol.Name, vol.Type, vol.Size)
		for _, comp := range vol.Components {
			fmt.Printf("    component %d type=%s partitions=%d\n", comp.ID, comp.Type, len(comp.Partitions))
			for _, part := range comp.Partitions {
				fmt.Printf("      partition %d start=%d size=%d disk=%d\n", part.ID, part.Start, part.Size, part.DiskID)
			}
		}
	}
}
