package cli

import (
	"github.com/spf13/cobra"
)

func NewProbesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probes [list]",
		Short: "Probes manager",
		Long:  `Inspect the registered probe catalog.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List probes",
		Long:  `List the registered probe descriptors.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			descs, err := psdk.ListProbes()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, descs)
		},
	}

	cmd.AddCommand(listCmd)

	return cmd
}
