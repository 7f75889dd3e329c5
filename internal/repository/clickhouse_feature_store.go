package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/services/features"
	pkgch "SignalGate/pkg/clickhouse"
	applogger "SignalGate/pkg/logger"
)

// CHFeatureStore implements FeatureStore backed by ClickHouse candle tables.
type CHFeatureStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHFeatureStore(ch *pkgch.Client, l *applogger.Logger) *CHFeatureStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHFeatureStore{db: ch.DB(), database: ch.Database(), l: l}
}

func (s *CHFeatureStore) table(tf models.Timeframe) (string, error) {
	if !domrepo.IsValidTimeframe(tf) {
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
	return s.database + "." + domrepo.TableFor(tf), nil
}

func (s *CHFeatureStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf models.Timeframe) ([]models.Candle, error) {
	table, err := s.table(tf)
	if err != nil {
		return nil, err
	}
	from, to = features.AlignFromTo(from, to, tf)
	q := fmt.Sprintf(`
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC
    `, table)
	out, err := s.query(ctx, "get_candles", table, q, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	return out, nil
}

func (s *CHFeatureStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf models.Timeframe) ([]models.Candle, error) {
	table, err := s.table(tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `, table)
	out, err := s.query(ctx, "latest_candles", table, q, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// GetWindows loads the latest n bars of each timeframe. Timeframes with no rows are left out
// so the validator reports them as missing.
func (s *CHFeatureStore) GetWindows(ctx context.Context, symbol string, n int, tfs []models.Timeframe) (models.FeatureWindows, error) {
	symbol = strings.ToUpper(symbol)
	out := make(models.FeatureWindows, len(tfs))
	for _, tf := range tfs {
		candles, err := s.GetLatestNCandles(ctx, symbol, n, tf)
		if err != nil {
			return out, fmt.Errorf("%s %s: %w", symbol, tf, err)
		}
		if len(candles) == 0 {
			continue
		}
		out[tf] = models.NewFeatureWindow(tf, candles)
	}
	return out, nil
}

func (s *CHFeatureStore) query(ctx context.Context, op, table, q string, args ...any) ([]models.Candle, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse query error", applogger.String("op", op), applogger.String("table", table), applogger.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 256)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.l.Error("clickhouse scan error", applogger.String("op", op), applogger.String("table", table), applogger.Error(err))
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse query ok",
		applogger.String("op", op),
		applogger.String("table", table),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

var _ domrepo.FeatureStore = (*CHFeatureStore)(nil)
