package probekitd

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
)

// NewDiscoverCmd prints a hardware and OS inventory of this host.
func NewDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Discover host hardware",
		Long:  `Print an inventory of this host's CPU, memory, disks, and OS.`,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			inventory := map[string]any{}

			if info, err := host.InfoWithContext(ctx); err == nil {
				inventory["host"] = info
			} else {
				logErrorCmd(*cmd, err)
			}

			if cpus, err := cpu.InfoWithContext(ctx); err == nil {
				inventory["cpu"] = cpus
			} else {
				logErrorCmd(*cmd, err)
			}

			if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
				inventory["memory"] = vm
			} else {
				logErrorCmd(*cmd, err)
			}

			if parts, err := disk.PartitionsWithContext(ctx, false); err == nil {
				inventory["disks"] = parts
			} else {
				logErrorCmd(*cmd, err)
			}

			logJSONCmd(*cmd, inventory)
		},
	}
}
