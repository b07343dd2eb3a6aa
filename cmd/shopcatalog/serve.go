package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-shop-catalog/config"
	"github.com/aluiziolira/go-shop-catalog/pipeline"
	"github.com/aluiziolira/go-shop-catalog/scheduler"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	crawl := &crawlOptions{}
	var (
		dailyTime   string
		metricsAddr string
		runOnStart  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daily ingestion schedule",
		Long: `Keep running and refresh the catalog every day at scrape.daily_time in the
configured time zone. Send SIGHUP to trigger an immediate refresh; a trigger
that arrives while a run is in progress is skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			crawl.apply(cfg)
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			cat, err := config.LoadCatalogFile(cfg.CatalogFile)
			if err != nil {
				return err
			}
			if dailyTime == "" {
				dailyTime = cat.Scrape.DailyTime
			}
			if dailyTime == "" {
				return fmt.Errorf("no daily time: set scrape.daily_time in %s or pass --daily-time", cfg.CatalogFile)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, db, err := root.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeDB(db)

			reg := prometheus.NewRegistry()
			ingestor, crawlMetrics, err := buildIngestor(cfg, store, root.newReader(store), reg)
			if err != nil {
				return err
			}

			sched, err := scheduler.New(ingestor, dailyTime, loc)
			if err != nil {
				return err
			}

			metricsServer := startMetricsServer(cfg.MetricsAddr, prometheus.Gatherers{reg, crawlMetrics})

			sched.Start()
			if runOnStart {
				go sched.Trigger()
			}

			refresh := make(chan os.Signal, 1)
			signal.Notify(refresh, syscall.SIGHUP)
			defer signal.Stop(refresh)

			for {
				select {
				case <-refresh:
					slog.Info("manual refresh requested")
					go manualRun(ctx, ingestor)
				case <-ctx.Done():
					slog.Info("shutdown signal received, waiting for in-flight run to finish")
					sched.Stop()
					shutdownMetricsServer(metricsServer)
					return nil
				}
			}
		},
	}

	crawl.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&dailyTime, "daily-time", "", "HH:MM run time, overrides scrape.daily_time")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090), overrides SHOPCATALOG_METRICS_ADDR")
	flags.BoolVar(&runOnStart, "run-on-start", false, "Run one ingestion immediately after startup")
	return cmd
}

func manualRun(ctx context.Context, ingestor *pipeline.Ingestor) {
	if _, err := ingestor.Run(ctx); errors.Is(err, pipeline.ErrRunInProgress) {
		slog.Warn("manual refresh skipped, a run is already in progress")
	}
}

func startMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func shutdownMetricsServer(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}
