package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/askwidget/internal/domain"
)

var exchangeColumns = []string{
	"id", "session_id", "seq", "question", "outcome", "http_status", "latency_ms", "created_at",
}

// ExchangeRepository journals settled exchanges.
type ExchangeRepository struct {
	pool *pgxpool.Pool
}

// NewExchangeRepository creates a new ExchangeRepository.
func NewExchangeRepository(pool *pgxpool.Pool) *ExchangeRepository {
	return &ExchangeRepository{pool: pool}
}

// Record inserts one journal entry. A missing ID or timestamp is filled in.
func (r *ExchangeRepository) Record(ctx context.Context, rec *domain.ExchangeRecord) error {
	if !rec.Outcome.IsValid() {
		return fmt.Errorf("record exchange: unknown outcome %q", rec.Outcome)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query, args, err := psql.
		Insert("exchanges").
		Columns(exchangeColumns...).
		Values(
			rec.ID,
			rec.SessionID,
			int64(rec.Seq),
			rec.Question,
			string(rec.Outcome),
			rec.HTTPStatus,
			rec.Latency.Milliseconds(),
			rec.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}

	return nil
}

// ListRecent returns the newest journal entries first.
func (r *ExchangeRepository) ListRecent(ctx context.Context, limit int) ([]domain.ExchangeRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args, err := psql.
		Select(exchangeColumns...).
		From("exchanges").
		OrderBy("created_at DESC", "seq DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var records []domain.ExchangeRecord
	for rows.Next() {
		var (
			rec       domain.ExchangeRecord
			seq       int64
			outcome   string
			latencyMs int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&seq,
			&rec.Question,
			&outcome,
			&rec.HTTPStatus,
			&latencyMs,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		rec.Seq = uint64(seq)
		rec.Outcome = domain.Outcome(outcome)
		rec.Latency = time.Duration(latencyMs) * time.Millisecond
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchange rows: %w", err)
	}

	return records, nil
}

// filterPeriod restricts a query to the filter window.
func filterPeriod(b sq.SelectBuilder, filters StatsFilters) sq.SelectBuilder {
	return b.Where(sq.And{
		sq.GtOrEq{"created_at": filters.PeriodStart},
		sq.LtOrEq{"created_at": filters.PeriodEnd},
	})
}
