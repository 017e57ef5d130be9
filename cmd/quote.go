package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"finsage/config"
	"finsage/observability"
)

var quoteCmd = &cobra.Command{
	Use:   "quote [symbols...]",
	Short: "Fetch enriched quotes for one or more symbols",
	Long: `Fetch snapshots for the given symbols, enrich them with technical
indicators, and print the result as JSON. Symbols that fail to enrich
come back as placeholder records with an error field.`,
	Args: cobra.MinimumNArgs(1),
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

		symbols := make([]string, len(args))
		for i, arg := range args {
			symbols[i] = strings.ToUpper(strings.TrimSpace(arg))
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout())
		defer cancel()

		records := svc.GetMultipleSnapshots(ctx, symbols)

		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode records: %v", err)
		}
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}
