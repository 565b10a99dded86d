package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/go-ldm/ldmtool/internal/ldm/dmtable"
	"github.com/go-ldm/ldmtool/internal/scanpool"
	"github.com/go-ldm/ldmtool/pkg/ldm"
)

var tablesImpl struct {
	volume string
}

var tablesCmd = &cobra.Command{
	Use:   "tables <device>...",
	Short: "print the device-mapper tables needed to activate LDM volumes",
	Long: `Scans the given devices, resolves every disk group's volumes, and
prints a "dmsetup create <name>" table for each one. Pass --volume to
restrict output to a single volume by name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTables(args)
	},
}

func init() {
	tablesCmd.Flags().StringVarP(&tablesImpl.volume, "volume", "v", "", "only emit tables for the volume with this name")
}

func runTables(devices []string) error {
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
	for _, f := range failures {
		fmt.Println("error:", f)
	}

	var emitted int
	for _, dg := range r.DiskGroups() {
		for _, vol := range dg.Volumes {
			if tablesImpl.volume != "" && vol.Name != tablesImpl.volume {
				continue
			}
			tables, err := dmtable.Generate(vol)
			if err != nil {
				fmt.Printf("error: volume %s: %v\n", vol.Name, err)
				continue
			}
			for _, t := range tables {
				fmt.Printf("dmsetup create %s <<'EOF'\n%sEOF\n", t.Name, t.Line)
			}
			emitted += len(tables)
		}
	}

	if emitted == 0 {
		return fmt.Errorf("no device-mapper tables generated")
	}
	return nil
}
