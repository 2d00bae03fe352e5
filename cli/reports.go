package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	reportWindow  time.Duration
	reportDisplay bool
)

func NewReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports [view|samples]",
		Short: "Reports manager",
		Long:  `View trend reports and raw samples for a probe.`,
	}

	viewCmd := &cobra.Command{
		Use:   "view <probe_id>",
		Short: "View report",
		Long: `Compute a trend report over the recent window of a probe series.

Examples:
  # Aggregate statistics over the last 24h
  probekit-cli reports view cpu_load

  # Display form over the last week
  probekit-cli reports view cpu_load --window=168h --display`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			end := time.Now()
			start := end.Add(-reportWindow)

			if reportDisplay {
				report, err := psdk.ExportReport(args[0], start, end)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logJSONCmd(*cmd, report)

				return
			}

			report, err := psdk.GetReport(args[0], start, end)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, report)
		},
	}

	viewCmd.Flags().DurationVar(&reportWindow, "window", 24*time.Hour, "report window ending now")
	viewCmd.Flags().BoolVar(&reportDisplay, "display", false, "return the display form of the report")

	samplesCmd := &cobra.Command{
		Use:   "samples <probe_id>",
		Short: "List samples",
		Long:  `List raw samples of a probe series over the recent window.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			end := time.Now()
			start := end.Add(-reportWindow)
			page, err := psdk.ListSamples(args[0], start, end, defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	samplesCmd.Flags().DurationVar(&reportWindow, "window", 24*time.Hour, "sample window ending now")

	cmd.AddCommand(viewCmd)
	cmd.AddCommand(samplesCmd)

	return cmd
}
