package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/meteotest/quadkeys/pkg/cmd"
	"github.com/meteotest/quadkeys/pkg/config"
	"github.com/meteotest/quadkeys/pkg/logger"
	"github.com/meteotest/quadkeys/pkg/server"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var configPath, envFile, addr string

	flag.StringVar(&configPath, "config", "", "yaml config file")
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the QK_* environment is read")
	flag.StringVar(&addr, "addr", "", "listen address, overrides server.addr")

	flag.Parse()

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		cmd.DieWithUsage("Invalid config: %s", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	log := logger.Build(logger.Config{Level: cfg.Log.Level, Console: cfg.Log.Console, Component: "qk-server"}, nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", cfg.Server.Addr).Str("version", Version).Msg("starting")
	if err := server.Run(ctx, cfg.Server, log, server.New(log, reg)); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		return 1
	}
	log.Info().Msg("server stopped")
	return 0
}
