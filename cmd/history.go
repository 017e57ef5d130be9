package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"finsage/config"
	"finsage/models"
	"finsage/observability"
)

var historyPeriod string

var historyCmd = &cobra.Command{
	Use:   "history [symbol]",
	Short: "Fetch OHLCV history for a symbol",
	Long:  `Fetch candle history for a symbol and print it as JSON. The candle interval follows the requested period.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		observability.InitLogger(cfg.Production)

		svc, err := buildMarketService(cfg)
		if err != nil {
			log.Fatalf("Failed to build market service: %v", err)
		}

		symbol := strings.ToUpper(strings.TrimSpace(args[0]))
		period := models.HistoryPeriod(historyPeriod)
		if period == "" {
			period = models.HistoryPeriod(cfg.Market.HistoryPeriod)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout())
		defer cancel()

		bars, err := svc.GetHistory(ctx, symbol, period)
		if err != nil {
			log.Fatalf("Failed to fetch history for %s: %v", symbol, err)
		}

		out, err := json.MarshalIndent(map[string]interface{}{
			"symbol":   symbol,
			"period":   period,
			"interval": period.Interval(),
			"bars":     bars,
		}, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode bars: %v", err)
		}
		fmt.Println(string(out))
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyPeriod, "period", "",
		"history range token (1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max)")
	rootCmd.AddCommand(historyCmd)
}
