// Package probekitd hosts the daemon commands and the wiring that
// assembles a full engine service from configuration.
package probekitd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/hostdiag/probekit"
	"github.com/hostdiag/probekit/engine"
	"github.com/hostdiag/probekit/engine/api"
	"github.com/hostdiag/probekit/engine/middleware"
	"github.com/hostdiag/probekit/pkg/archive"
	"github.com/hostdiag/probekit/pkg/prometheus"
	"github.com/hostdiag/probekit/pkg/server"
	httpserver "github.com/hostdiag/probekit/pkg/server/http"
	"github.com/hostdiag/probekit/pkg/storage/badger"
	"github.com/hostdiag/probekit/probe"
	"github.com/hostdiag/probekit/probe/builtin"
)

const svcName = "engine"

type Config struct {
	LogLevel    string `env:"PROBEKIT_LOG_LEVEL"    envDefault:"info"`
	InstanceID  string `env:"PROBEKIT_INSTANCE_ID"`
	CatalogPath string `env:"PROBEKIT_CATALOG_PATH"`
	HotDBPath   string `env:"PROBEKIT_HOT_DB_PATH"  envDefault:"./data/hot"`
	ColdDBPath  string `env:"PROBEKIT_COLD_DB_PATH" envDefault:"./data/cold"`
	Codec       string `env:"PROBEKIT_CODEC"        envDefault:"zstd"`
	Engine      engine.Config
	Server      server.Config
	OTELURL     url.URL `env:"PROBEKIT_OTEL_URL"`
}

// StartEngine wires the full engine service and blocks until shutdown.
func StartEngine(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	g, ctx := errgroup.WithContext(ctx)

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	var tp trace.TracerProvider = noop.NewTracerProvider()
	tracer := tp.Tracer(svcName)

	svc, cleanup, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	hs := httpserver.NewServer(ctx, cancel, svcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}

	return nil
}

func newLogger(logLevel string) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(logHandler), nil
}

// buildService assembles the registry, the stores, and the core
// service. The returned cleanup closes both databases.
func buildService(cfg Config, logger *slog.Logger) (engine.Service, func(), error) {
	codec, err := archive.ParseCodec(cfg.Codec)
	if err != nil {
		return nil, nil, err
	}

	registry := probe.NewRegistry()
	overrides := map[string]builtin.Override{}
	if cfg.CatalogPath != "" {
		catalog, err := probekit.LoadConfig(cfg.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
		if overrides, err = catalog.Overrides(); err != nil {
			return nil, nil, err
		}
		if cfg.Engine.Thresholds == nil {
			cfg.Engine.Thresholds = catalog.Thresholds()
		}
	}
	if err := builtin.Register(registry, overrides); err != nil {
		return nil, nil, err
	}

	hotDB, err := badger.NewDatabase(cfg.HotDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open hot store: %w", err)
	}

	coldDB, err := badger.NewDatabase(cfg.ColdDBPath)
	if err != nil {
		hotDB.Close()

		return nil, nil, fmt.Errorf("failed to open cold store: %w", err)
	}

	cleanup := func() {
		hotDB.Close()
		coldDB.Close()
	}

	svc, err := engine.NewService(
		cfg.Engine,
		registry,
		badger.NewRunRepository(hotDB),
		badger.NewSampleRepository(hotDB),
		badger.NewFailureRepository(hotDB),
		badger.NewArchiveRepository(coldDB),
		codec,
		logger,
	)
	if err != nil {
		cleanup()

		return nil, nil, err
	}

	return svc, cleanup, nil
}
