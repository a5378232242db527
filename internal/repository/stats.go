package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mtlprog/askwidget/internal/domain"
)

// StatsFilters holds filters for statistics queries.
type StatsFilters struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// ExchangeStatsResult holds journal statistics for a period.
type ExchangeStatsResult struct {
	TotalExchanges  int
	UniqueSessions  int
	ByOutcome       map[domain.Outcome]int
	AvgLatencyMs    float64
	AnsweredPercent float64
	FailedPercent   float64
}

// GetExchangeStats aggregates the journal over the filter window.
func (r *ExchangeRepository) GetExchangeStats(ctx context.Context, filters StatsFilters) (*ExchangeStatsResult, error) {
	query, args, err := filterPeriod(
		psql.Select("COUNT(*)", "COUNT(DISTINCT session_id)", "COALESCE(AVG(latency_ms), 0)::float8").
			From("exchanges"),
		filters,
	).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	result := &ExchangeStatsResult{ByOutcome: make(map[domain.Outcome]int)}
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&result.TotalExchanges,
		&result.UniqueSessions,
		&result.AvgLatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("count exchanges: %w", err)
	}

	query, args, err = filterPeriod(
		psql.Select("outcome", "COUNT(*)").From("exchanges"),
		filters,
	).GroupBy("outcome").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exchanges by outcome: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		result.ByOutcome[domain.Outcome(outcome)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}

	if result.TotalExchanges > 0 {
		total := float64(result.TotalExchanges)
		result.AnsweredPercent = float64(result.ByOutcome[domain.OutcomeAnswered]) / total * 100
		result.FailedPercent = float64(result.ByOutcome[domain.OutcomeFailed]) / total * 100
	}

	return result, nil
}
