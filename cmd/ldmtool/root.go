package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/go-ldm/ldmtool/internal/config"
	"github.com/go-ldm/ldmtool/internal/logging"
)

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "ldmtool",
	Short: "inspect Windows LDM dynamic disks and build Linux device-mapper tables for them",
	Long: `ldmtool reads the Windows Logical Disk Manager metadata carried on
dynamic disks, reconstructs the disk-group topology spread across them,
and can emit the device-mapper tables needed to activate their volumes
on Linux.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(logging.Params{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	rootCmd.PersistentFlags().Uint32Var(&cfg.SectorSize, "sector-size", cfg.SectorSize, "override sector-size autodetection (0 autodetects)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(tablesCmd)
}

// Execute runs the root command, exiting the process on error the same way
// the teacher's own CLI entry points do.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
