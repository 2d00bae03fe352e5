package probekitd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostdiag/probekit/engine"
	"github.com/hostdiag/probekit/pkg/server"
)

const (
	engineDefBatchDeadline = 5 * time.Minute
	engineDefGracePeriod   = 5 * time.Second
	engineDefMinRetention  = 24 * time.Hour
)

var engineCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start engine",
		Long:  `Start the diagnostics engine with its HTTP facade.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := Config{
				LogLevel:   "info",
				HotDBPath:  "./data/hot",
				ColdDBPath: "./data/cold",
				Codec:      "zstd",
				Engine: engine.Config{
					IOBudget:         4,
					MemoryBudget:     2,
					BatchDeadline:    engineDefBatchDeadline,
					GracePeriod:      engineDefGracePeriod,
					MinRetention:     engineDefMinRetention,
					AnomalyThreshold: 3.0,
				},
				Server: server.Config{
					Port: "7070",
				},
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			if err := StartEngine(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start engine: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewEngineCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "engine [start]",
		Short: "Engine management",
		Long:  `Run the diagnostics engine daemon.`,
	}

	for i := range engineCmd {
		cmd.AddCommand(&engineCmd[i])
	}

	return &cmd
}
