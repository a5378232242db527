package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/mtlprog/askwidget/internal/database"
	"github.com/mtlprog/askwidget/internal/domain"
	"github.com/mtlprog/askwidget/internal/repository"
)

// ExchangeRepositoryTestSuite runs against a real Postgres given by DATABASE_URL.
type ExchangeRepositoryTestSuite struct {
	suite.Suite
	pool *pgxpool.Pool
	repo *repository.ExchangeRepository
}

func (s *ExchangeRepositoryTestSuite) SetupSuite() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		s.T().Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL)
	s.Require().NoError(err, "failed to connect to database")
	s.pool = db.Pool()

	s.Require().NoError(database.RunMigrations(ctx, s.pool), "failed to run migrations")

	s.repo = repository.NewExchangeRepository(s.pool)
}

func (s *ExchangeRepositoryTestSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), "TRUNCATE exchanges")
	s.Require().NoError(err, "failed to truncate exchanges")
}

func (s *ExchangeRepositoryTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func TestExchangeRepositorySuite(t *testing.T) {
	suite.Run(t, new(ExchangeRepositoryTestSuite))
}

func (s *ExchangeRepositoryTestSuite) record(seq uint64, outcome domain.Outcome, status *int, latency time.Duration) {
	err := s.repo.Record(context.Background(), &domain.ExchangeRecord{
		SessionID:  "session-1",
		Seq:        seq,
		Question:   "What is the fee structure?",
		Outcome:    outcome,
		HTTPStatus: status,
		Latency:    latency,
	})
	s.Require().NoError(err)
}

func (s *ExchangeRepositoryTestSuite) TestRecordAndListRecent() {
	ok := 200
	s.record(1, domain.OutcomeSuperseded, nil, 10*time.Millisecond)
	s.record(2, domain.OutcomeAnswered, &ok, 250*time.Millisecond)

	records, err := s.repo.ListRecent(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(records, 2)

	newest := records[0]
	s.Equal(uint64(2), newest.Seq)
	s.Equal(domain.OutcomeAnswered, newest.Outcome)
	s.Require().NotNil(newest.HTTPStatus)
	s.Equal(200, *newest.HTTPStatus)
	s.Equal(250*time.Millisecond, newest.Latency)
	s.NotEmpty(newest.ID)

	s.Nil(records[1].HTTPStatus)
}

func (s *ExchangeRepositoryTestSuite) TestRecordRejectsUnknownOutcome() {
	err := s.repo.Record(context.Background(), &domain.ExchangeRecord{
		SessionID: "session-1",
		Seq:       1,
		Outcome:   domain.Outcome("maybe"),
	})
	s.Error(err)
}

func (s *ExchangeRepositoryTestSuite) TestGetExchangeStats() {
	ok := 200
	bad := 502
	s.record(1, domain.OutcomeAnswered, &ok, 100*time.Millisecond)
	s.record(2, domain.OutcomeAnswered, &ok, 300*time.Millisecond)
	s.record(3, domain.OutcomeFailed, &bad, 200*time.Millisecond)
	s.record(4, domain.OutcomeEmptyAnswer, &ok, 200*time.Millisecond)

	now := time.Now()
	stats, err := s.repo.GetExchangeStats(context.Background(), repository.StatsFilters{
		PeriodStart: now.Add(-time.Hour),
		PeriodEnd:   now.Add(time.Minute),
	})
	s.Require().NoError(err)

	s.Equal(4, stats.TotalExchanges)
	s.Equal(1, stats.UniqueSessions)
	s.Equal(2, stats.ByOutcome[domain.OutcomeAnswered])
	s.Equal(1, stats.ByOutcome[domain.OutcomeFailed])
	s.InDelta(200.0, stats.AvgLatencyMs, 0.001)
	s.InDelta(50.0, stats.AnsweredPercent, 0.001)
	s.InDelta(25.0, stats.FailedPercent, 0.001)
}

func (s *ExchangeRepositoryTestSuite) TestGetExchangeStatsEmptyPeriod() {
	s.record(1, domain.OutcomeAnswered, nil, time.Millisecond)

	stats, err := s.repo.GetExchangeStats(context.Background(), repository.StatsFilters{
		PeriodStart: time.Now().Add(time.Hour),
		PeriodEnd:   time.Now().Add(2 * time.Hour),
	})
	s.Require().NoError(err)
	s.Zero(stats.TotalExchanges)
	s.Zero(stats.AvgLatencyMs)
	s.Empty(stats.ByOutcome)
}
