package repository

import (
	"context"
	"time"

	"SignalGate/internal/domain/models"
)

// FeatureStore provides read-only access to OHLCV windows.
type FeatureStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf models.Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf models.Timeframe) ([]models.Candle, error)
	// GetWindows loads the latest n bars of each timeframe. Timeframes without data are omitted.
	GetWindows(ctx context.Context, symbol string, n int, tfs []models.Timeframe) (models.FeatureWindows, error)
}
