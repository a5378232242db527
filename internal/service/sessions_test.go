package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/askwidget/internal/domain"
	"github.com/mtlprog/askwidget/internal/render"
	"github.com/mtlprog/askwidget/internal/service"
)

func newSessions(ttl time.Duration) *service.Sessions {
	renderer := render.New()
	return service.NewSessions(ttl, func(id string) *service.Exchange {
		return service.NewExchange(answering("ok"), renderer, service.ExchangeOptions{SessionID: id})
	})
}

func TestSessionsReuseExchange(t *testing.T) {
	sessions := newSessions(time.Minute)
	defer sessions.Close()

	a := sessions.Exchange("a")
	assert.Same(t, a, sessions.Exchange("a"))
	assert.NotSame(t, a, sessions.Exchange("b"))
	assert.Equal(t, "a", a.SessionID())
	assert.Equal(t, 2, sessions.Len())

	got, ok := sessions.Lookup("a")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = sessions.Lookup("missing")
	assert.False(t, ok)
}

func TestSessionsEndClosesExchange(t *testing.T) {
	sessions := newSessions(time.Minute)
	defer sessions.Close()

	ex := sessions.Exchange("a")
	sessions.End("a")

	_, err := ex.Submit("q")
	assert.ErrorIs(t, err, domain.ErrExchangeClosed)

	_, ok := sessions.Lookup("a")
	assert.False(t, ok)
}

func TestSessionsExpire(t *testing.T) {
	sessions := newSessions(20 * time.Millisecond)
	defer sessions.Close()

	old := sessions.Exchange("a")
	time.Sleep(50 * time.Millisecond)

	_, ok := sessions.Lookup("a")
	assert.False(t, ok)

	fresh := sessions.Exchange("a")
	assert.NotSame(t, old, fresh)

	_, err := old.Submit("q")
	assert.ErrorIs(t, err, domain.ErrExchangeClosed, "expired exchange must be torn down")
}

func TestSessionsCloseTearsDownAll(t *testing.T) {
	sessions := newSessions(time.Minute)

	a := sessions.Exchange("a")
	b := sessions.Exchange("b")
	sessions.Close()

	_, err := a.Submit("q")
	assert.ErrorIs(t, err, domain.ErrExchangeClosed)
	_, err = b.Submit("q")
	assert.ErrorIs(t, err, domain.ErrExchangeClosed)
	assert.Zero(t, sessions.Len())
}

// gatedRecorder holds every journal write until release is closed.
type gatedRecorder struct {
	fakeRecorder
	release chan struct{}
}

func (r *gatedRecorder) Record(ctx context.Context, rec *domain.ExchangeRecord) error {
	select {
	case <-r.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.fakeRecorder.Record(ctx, rec)
}

func TestSessionsExpiryDoesNotBlockOtherSessions(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	asker := blocking(hold, "late")
	recorder := &gatedRecorder{release: make(chan struct{})}

	renderer := render.New()
	sessions := service.NewSessions(20*time.Millisecond, func(id string) *service.Exchange {
		return service.NewExchange(asker, renderer, service.ExchangeOptions{
			SessionID: id,
			Timeout:   5 * time.Second,
			Recorder:  recorder,
		})
	})

	old := sessions.Exchange("a")
	_, err := old.Submit("pending question")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	fresh := sessions.Exchange("a")
	other := sessions.Exchange("b")
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 500*time.Millisecond, "replacing an expired session must not wait for its journal write")
	assert.NotSame(t, old, fresh)
	assert.NotNil(t, other)

	_, err = old.Submit("q")
	assert.ErrorIs(t, err, domain.ErrExchangeClosed, "expired exchange is aborted right away")
	assert.Empty(t, recorder.Records())

	close(recorder.release)
	sessions.Close()

	records := recorder.Records()
	require.Len(t, records, 1, "close waits for the aborted exchange to be journaled")
	assert.Equal(t, domain.OutcomeAborted, records[0].Outcome)
	assert.Equal(t, "a", records[0].SessionID)
}
