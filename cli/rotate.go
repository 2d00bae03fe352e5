package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var rotateRetention time.Duration

func NewRotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Rotate expired samples",
		Long: `Archive samples older than the retention window into cold storage
and compact the hot store.

Examples:
  # Keep one week of hot samples
  probekit-cli rotate --retention=168h`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			report, err := psdk.Rotate(rotateRetention)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, report)
			logSuccessCmd(*cmd, "Rotation finished")
		},
	}

	cmd.Flags().DurationVar(&rotateRetention, "retention", 7*24*time.Hour, "hot store retention window")

	return cmd
}
