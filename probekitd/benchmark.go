package probekitd

import (
	"context"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/hostdiag/probekit/engine"
	"github.com/hostdiag/probekit/run"
)

var (
	benchProbes   []string
	benchHotPath  string
	benchColdPath string
	benchCatalog  string
	benchDeadline time.Duration
)

// NewBenchmarkCmd runs a one-shot local batch without the HTTP facade.
// When no probes are named it opens an interactive picker.
func NewBenchmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run a local benchmark batch",
		Long:  `Execute a batch of probes against this host and print the results.`,
		Run: func(cmd *cobra.Command, _ []string) {
			logger, err := newLogger("warn")
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			cfg := Config{
				CatalogPath: benchCatalog,
				HotDBPath:   benchHotPath,
				ColdDBPath:  benchColdPath,
				Codec:       "zstd",
				Engine: engine.Config{
					IOBudget:         4,
					MemoryBudget:     2,
					BatchDeadline:    benchDeadline,
					GracePeriod:      engineDefGracePeriod,
					MinRetention:     engineDefMinRetention,
					AnomalyThreshold: 3.0,
				},
			}

			svc, cleanup, err := buildService(cfg, logger)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			defer cleanup()

			ids := benchProbes
			if len(ids) == 0 {
				if ids, err = pickProbes(cmd.Context(), svc); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			}

			start := time.Now()
			r, err := svc.ExecuteRun(cmd.Context(), ids)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)

			if r.Status != run.Completed {
				failures, err := svc.ListFailures(cmd.Context(), r.ID)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logJSONCmd(*cmd, failures)
			}

			for _, id := range r.ProbeIDs {
				report, err := svc.ExportReport(cmd.Context(), id, start, time.Now())
				if err != nil {
					logErrorCmd(*cmd, err)

					continue
				}
				logJSONCmd(*cmd, report)
			}
			logSuccessCmd(*cmd, "Benchmark finished: "+r.Status.String())
		},
	}

	cmd.Flags().StringSliceVar(&benchProbes, "probes", []string{}, "probe ids to run (default: interactive picker)")
	cmd.Flags().StringVar(&benchHotPath, "hot-db", "./data/hot", "hot store path")
	cmd.Flags().StringVar(&benchColdPath, "cold-db", "./data/cold", "cold store path")
	cmd.Flags().StringVar(&benchCatalog, "catalog", "", "probe catalog TOML path")
	cmd.Flags().DurationVar(&benchDeadline, "deadline", 5*time.Minute, "batch deadline")

	return cmd
}

func pickProbes(ctx context.Context, svc engine.Service) ([]string, error) {
	descs, err := svc.ListProbes(ctx)
	if err != nil {
		return nil, err
	}

	options := make([]huh.Option[string], 0, len(descs))
	for _, d := range descs {
		options = append(options, huh.NewOption(d.ID+" ("+string(d.Class)+")", d.ID))
	}

	var selected []string
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Select probes to run").
			Options(options...).
			Value(&selected),
	))
	if err := form.Run(); err != nil {
		return nil, err
	}

	return selected, nil
}
