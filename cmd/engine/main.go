package main

import (
	"context"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/hostdiag/probekit/probekitd"
)

const (
	envPrefix     = "PROBEKIT_"
	envPrefixHTTP = "PROBEKIT_HTTP_"
	pathEnv       = ".env"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := probekitd.Config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}
	if err := env.ParseWithOptions(&cfg.Engine, env.Options{Prefix: envPrefix}); err != nil {
		log.Fatalf("failed to load engine configuration : %s", err.Error())
	}
	if err := env.ParseWithOptions(&cfg.Server, env.Options{Prefix: envPrefixHTTP}); err != nil {
		log.Fatalf("failed to load HTTP server configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	if err := probekitd.StartEngine(ctx, cancel, cfg); err != nil {
		log.Fatalf("engine exited with error: %s", err.Error())
	}
}
