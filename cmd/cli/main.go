package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/hostdiag/probekit/cli"
	"github.com/hostdiag/probekit/pkg/sdk"
)

const (
	defEngineURL       = "http://localhost:7070"
	defTLSVerification = false
)

var engineURL string

func main() {
	rootCmd := &cobra.Command{
		Use:   "probekit-cli",
		Short: "Probekit CLI",
		Long:  `Probekit CLI is a command line interface for interacting with the diagnostics engine.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				EngineURL:       engineURL,
				TLSVerification: defTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVar(&engineURL, "engine-url", defEngineURL, "engine base URL")

	rootCmd.AddCommand(cli.NewRunsCmd())
	rootCmd.AddCommand(cli.NewReportsCmd())
	rootCmd.AddCommand(cli.NewProbesCmd())
	rootCmd.AddCommand(cli.NewRotateCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
