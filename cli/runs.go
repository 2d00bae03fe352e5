package cli

import (
	"github.com/spf13/cobra"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10
	runProbes []string
)

func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [start|view|list|failures]",
		Short: "Runs manager",
		Long:  `Start, view, and list benchmark runs.`,
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start run",
		Long: `Submit a batch of probes for execution.

Examples:
  # Run every registered probe
  probekit-cli runs start

  # Run a specific subset
  probekit-cli runs start --probes=cpu_load,disk_io`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			r, err := psdk.StartRun(runProbes)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	startCmd.Flags().StringSliceVar(
		&runProbes,
		"probes",
		[]string{},
		"probe ids to run (comma-separated, default: all registered probes)",
	)

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View run",
		Long:  `View run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			r, err := psdk.GetRun(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		Long:  `List runs.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := psdk.ListRuns(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	failuresCmd := &cobra.Command{
		Use:   "failures <id>",
		Short: "List run failures",
		Long:  `List the terminal probe failures recorded for a run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			failures, err := psdk.ListFailures(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, failures)
		},
	}

	cmd.AddCommand(startCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(failuresCmd)

	return cmd
}
