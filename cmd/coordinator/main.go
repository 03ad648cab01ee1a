// Package main implements the exelixi coordinator service: the Framework
// described in spec §4.5, the single driver process that configures every
// shard, builds and distributes the hash ring, and drives the cluster
// through generations until the configured UnitOfWork decides the run is
// done.
//
// Configuration:
//   - Flags: --workers (repeatable, shard endpoints), --uow (registry name,
//     overrides the params file), --params-file (YAML engine parameters),
//     --metrics-listen, --log-level.
//   - Environment overrides: EXELIXI_WORKERS (comma-separated),
//     EXELIXI_UOW, EXELIXI_PARAMS_FILE, EXELIXI_LOG_LEVEL.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/exelixi/internal/config"
	"github.com/dreamware/exelixi/internal/coordinator"
	"github.com/dreamware/exelixi/internal/logging"
	"github.com/dreamware/exelixi/internal/metrics"
	"github.com/dreamware/exelixi/internal/transport"
	"github.com/dreamware/exelixi/internal/uow"
	_ "github.com/dreamware/exelixi/internal/uow/ga"
)

var logFatal = func(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logFatal("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	var (
		workers       []string
		uowName       string
		paramsFile    string
		metricsListen string
		logLevel      string
	)

	cmd := &cobra.Command{
		Use:   "exelixi-coordinator",
		Short: "Drive a distributed shard-evolution run to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), workers, uowName, paramsFile, metricsListen, logLevel)
		},
	}

	defaultWorkers := splitNonEmpty(getenv("EXELIXI_WORKERS", ""), ",")
	cmd.Flags().StringSliceVar(&workers, "workers", defaultWorkers, "shard endpoints (repeatable, or comma-separated)")
	cmd.Flags().StringVar(&uowName, "uow", getenv("EXELIXI_UOW", ""), "UnitOfWork registry name (overrides the params file's uow_name)")
	cmd.Flags().StringVar(&paramsFile, "params-file", getenv("EXELIXI_PARAMS_FILE", ""), "YAML engine parameters file (default: built-in reference GA parameters)")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", getenv("EXELIXI_METRICS_LISTEN", ""), "address to serve GET /metrics on (empty disables)")
	cmd.Flags().StringVar(&logLevel, "log-level", getenv("EXELIXI_LOG_LEVEL", "info"), "log level: debug, info, warn, error")

	return cmd
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run(ctx context.Context, workers []string, uowName, paramsFile, metricsListen, logLevel string) error {
	if len(workers) == 0 {
		return fmt.Errorf("coordinator: at least one --workers endpoint is required")
	}

	logger, err := logging.New(logLevel)
	if err != nil {
		return fmt.Errorf("coordinator: build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg := config.Default()
	if paramsFile != "" {
		cfg, err = config.Load(paramsFile)
		if err != nil {
			return fmt.Errorf("coordinator: %w", err)
		}
	}
	if uowName != "" {
		cfg.UoWName = uowName
	}
	if _, err := uow.New(cfg.UoWName, cfg.Params); err != nil {
		return fmt.Errorf("coordinator: configuration error: %w", err)
	}

	reg := prometheus.NewRegistry()
	orchMetrics := metrics.NewOrchestrator(reg)
	if metricsListen != "" {
		go serveMetrics(logger, metricsListen, reg)
	}

	client := transport.New(30*time.Second, logger)
	orch, err := coordinator.New(workers, cfg.UoWName, cfg.Params, client, logger, coordinator.WithMetrics(orchMetrics))
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}

	logger.Info("starting run", zap.Strings("workers", workers), zap.String("uow", cfg.UoWName))
	report, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: run failed: %w", err)
	}

	logger.Info("run complete", zap.Int("generations", report.Generations), zap.Int("survivors", len(report.Entries)))
	for _, e := range report.Entries {
		fmt.Printf("%s\t%s\t%s\t%s\n", e.Tag, e.Fitness, e.Gen, e.Features)
	}
	return nil
}

func serveMetrics(logger *zap.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}
