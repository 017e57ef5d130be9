package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"finsage/config"
	"finsage/internal/api"
	"finsage/observability"
	"finsage/risk"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the market data API server",
	Long:  `Start the HTTP API server exposing quotes, history, indicators, and risk scoring.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		observability.InitLogger(cfg.Production)
		observability.InitMetrics()

		svc, err := buildMarketService(cfg)
		if err != nil {
			observability.Fatal("failed to build market service", "error", err)
		}

		handler := api.NewHandler(svc, risk.NewScorer(), cfg)
		router := api.NewRouter(handler, cfg)

		// Periodic sweep drops expired cache entries and refreshes the
		// cache gauges.
		sweeper := cron.New()
		if _, err := sweeper.AddFunc(cfg.Cache.SweepSchedule, func() {
			quotes := svc.QuoteCache()
			data := svc.DataCache()
			pruned := quotes.Prune() + data.Prune()

			metrics := observability.GetMetrics()
			metrics.SetCacheEntries("quote", quotes.Len())
			metrics.SetCacheEntries("data", data.Len())
			metrics.SetCacheEvictions("data", data.Evictions())

			if pruned > 0 {
				observability.Debug("cache sweep pruned expired entries", "pruned", pruned)
			}
		}); err != nil {
			observability.Fatal("invalid cache sweep schedule",
				"schedule", cfg.Cache.SweepSchedule,
				"error", err,
			)
		}
		sweeper.Start()
		defer sweeper.Stop()

		server := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			observability.Info("server listening", "addr", cfg.HTTP.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				observability.Fatal("server failed", "error", err)
			}
		}()

		<-ctx.Done()
		observability.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			observability.Error("graceful shutdown failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
