package clickhouse

import "fmt"

// Schema returns the DDL for the feature and telemetry tables in database db.
func Schema(db string) []string {
	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db)}
	for _, table := range []string{"candles_15m", "candles_1h", "candles_4h", "candles_1d"} {
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    bucket DateTime64(3, 'UTC'),
    symbol LowCardinality(String),
    open Float64,
    high Float64,
    low Float64,
    close Float64,
    vol Float64
) ENGINE = ReplacingMergeTree
ORDER BY (symbol, bucket)`, db, table))
	}
	stmts = append(stmts,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.signals (
    id String,
    candidate_id String,
    pool LowCardinality(String),
    asset LowCardinality(String),
    direction LowCardinality(String),
    tier LowCardinality(String),
    entry Decimal(18, 8),
    stop_loss Decimal(18, 8),
    take_profit Decimal(18, 8),
    score Float64,
    grade LowCardinality(String),
    regime LowCardinality(String),
    regime_confidence Float64,
    payload String,
    created_at DateTime64(3, 'UTC'),
    valid_until DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (pool, created_at)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.rejections (
    candidate_id String,
    pool LowCardinality(String),
    symbol LowCardinality(String),
    direction LowCardinality(String),
    reason LowCardinality(String),
    message String,
    score Float64,
    regime LowCardinality(String),
    at DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (pool, at)
TTL toDateTime(at) + INTERVAL 30 DAY`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.signal_outcomes (
    id String,
    result LowCardinality(String),
    pnl Decimal(18, 8),
    resolved_at DateTime64(3, 'UTC')
) ENGINE = ReplacingMergeTree
ORDER BY id`, db),
	)
	return stmts
}
