package services

import (
	"context"

	"finsage/models"
)

// SnapshotProvider defines one tier of the snapshot fallback chain.
type SnapshotProvider interface {
	// Name identifies the provider in logs, metrics, and errors.
	Name() string
	FetchSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error)
}

// HistoryProvider defines the interface for historical bar retrieval.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, period models.HistoryPeriod) ([]models.Bar, error)
}

// FundamentalsProvider defines the interface for fundamental data retrieval.
type FundamentalsProvider interface {
	FetchFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error)
}

// Compile-time interface verification
var _ SnapshotProvider = (*GoogleService)(nil)
var _ SnapshotProvider = (*YahooService)(nil)
var _ SnapshotProvider = (*AlpacaService)(nil)
var _ HistoryProvider = (*YahooService)(nil)
var _ FundamentalsProvider = (*YahooService)(nil)
