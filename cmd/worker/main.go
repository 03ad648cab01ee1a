// Package main implements the exelixi worker service, which hosts one
// shard of the population and the HTTP control plane the orchestrator
// drives it through for the duration of a run.
//
// The worker is a leaf process: it accepts shard/config, ring/init, and
// the uow/* lifecycle calls described in spec §6, and otherwise initiates
// no calls of its own except routed uow/reify forwards to peer shards and
// the single-consumer task processing described in spec §5.
//
// Configuration:
//   - Flags: --listen (HTTP bind address), --id (operator-facing label used
//     for metrics and logs only; the shard's real shard_id is assigned by
//     the orchestrator's shard/config call), --log-level.
//   - Environment overrides: EXELIXI_WORKER_LISTEN, EXELIXI_WORKER_ID,
//     EXELIXI_LOG_LEVEL, following the same getenv/flag-default precedence
//     the coordinator uses.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/exelixi/internal/logging"
	"github.com/dreamware/exelixi/internal/metrics"
	"github.com/dreamware/exelixi/internal/shard"
	"github.com/dreamware/exelixi/internal/transport"
	_ "github.com/dreamware/exelixi/internal/uow/ga"
)

// logFatal is a variable so tests can intercept a fatal exit instead of
// actually terminating the process, matching the teacher's indirection.
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
		listen   string
		id       string
		logLevel string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "exelixi-worker",
		Short: "Host one shard of a distributed shard-evolution run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), listen, id, endpoint, logLevel)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", getenv("EXELIXI_WORKER_LISTEN", ":9311"), "HTTP listen address")
	cmd.Flags().StringVar(&id, "id", getenv("EXELIXI_WORKER_ID", ""), "operator-facing label for logs and metrics (not the wire shard_id, which shard/config assigns)")
	cmd.Flags().StringVar(&endpoint, "endpoint", getenv("EXELIXI_WORKER_ENDPOINT", ""), "public endpoint peers use to reach this shard (default: http://<hostname><listen>)")
	cmd.Flags().StringVar(&logLevel, "log-level", getenv("EXELIXI_LOG_LEVEL", "info"), "log level: debug, info, warn, error")

	return cmd
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func run(ctx context.Context, listen, id, endpoint, logLevel string) error {
	logger, err := logging.New(logLevel)
	if err != nil {
		return fmt.Errorf("worker: build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if id == "" {
		host, _ := os.Hostname()
		id = host + listen
	}
	if endpoint == "" {
		host, _ := os.Hostname()
		endpoint = "http://" + host + listen
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewWorker(reg, id)
	client := transport.New(30*time.Second, logger)
	w := shard.New(endpoint, client, logger, m)

	stopSignal := make(chan struct{}, 1)
	mux := http.NewServeMux()
	mux.Handle("/", shard.NewHandler(w, stopSignal))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("worker listening", zap.String("listen", listen), zap.String("endpoint", endpoint), zap.String("id", id))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("worker: listen: %w", err)
	case <-stopSignal:
		// shard/stop already wrote its HTTP response; wait a short delay
		// so that response isn't raced by closing the listening socket
		// (spec §5: "a short delay, to avoid racing the close of the
		// response socket").
		logger.Info("shard/stop received, shutting down")
		time.Sleep(200 * time.Millisecond)
	case <-sig:
		logger.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", zap.Error(err))
	}
	logger.Info("worker stopped")
	return nil
}
