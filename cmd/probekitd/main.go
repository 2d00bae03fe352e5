package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/hostdiag/probekit/probekitd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "probekitd",
		Short: "Probekit daemon",
		Long:  `Probekit daemon runs the diagnostics engine and local host tooling.`,
	}

	rootCmd.AddCommand(probekitd.NewEngineCmd())
	rootCmd.AddCommand(probekitd.NewBenchmarkCmd())
	rootCmd.AddCommand(probekitd.NewDiscoverCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
