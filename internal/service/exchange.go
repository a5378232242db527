package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mtlprog/askwidget/internal/backend"
	"github.com/mtlprog/askwidget/internal/config"
	"github.com/mtlprog/askwidget/internal/domain"
	"github.com/mtlprog/askwidget/internal/render"
)

const recordTimeout = 5 * time.Second

// Asker performs one question/answer round trip against the answering service.
type Asker interface {
	Do(ctx context.Context, question string) backend.Result
}

// Recorder persists settled exchanges. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, rec *domain.ExchangeRecord) error
}

// ExchangeOptions configures an Exchange.
type ExchangeOptions struct {
	SessionID string
	Timeout   time.Duration // per request; config.DefaultRequestTimeout when zero
	Recorder  Recorder      // optional
}

// Exchange owns the question/answer state of one widget instance.
//
// State changes only through SetQuestion, Submit and Close. Every Submit takes
// the next sequence number and aborts the request it supersedes; a response is
// applied only while its sequence number is still the latest.
type Exchange struct {
	sessionID string
	asker     Asker
	renderer  *render.Renderer
	recorder  Recorder
	timeout   time.Duration

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	snap     domain.Snapshot
	inflight context.CancelFunc
	changed  chan struct{}
	closed   bool
}

// NewExchange creates an idle Exchange.
func NewExchange(asker Asker, renderer *render.Renderer, opts ExchangeOptions) *Exchange {
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultRequestTimeout
	}

	ctx, stop := context.WithCancel(context.Background())

	return &Exchange{
		sessionID: opts.SessionID,
		asker:     asker,
		renderer:  renderer,
		recorder:  opts.Recorder,
		timeout:   opts.Timeout,
		ctx:       ctx,
		stop:      stop,
		snap: domain.Snapshot{
			State:     domain.ExchangeStateIdle,
			UpdatedAt: time.Now(),
		},
		changed: make(chan struct{}),
	}
}

// SessionID returns the widget session this exchange belongs to.
func (e *Exchange) SessionID() string {
	return e.sessionID
}

// Snapshot returns a copy of the current state.
func (e *Exchange) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Changed returns a channel that is closed on the next state change.
func (e *Exchange) Changed() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changed
}

// WaitIdle blocks until no exchange is pending or ctx is done.
func (e *Exchange) WaitIdle(ctx context.Context) (domain.Snapshot, error) {
	for {
		e.mu.Lock()
		snap, changed := e.snap, e.changed
		e.mu.Unlock()

		if !snap.State.IsPending() {
			return snap, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// SetQuestion updates the input value without submitting it.
func (e *Exchange) SetQuestion(question string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.snap.Question == question {
		return
	}
	e.snap.Question = question
	e.snap.UpdatedAt = time.Now()
	e.notifyLocked()
}

// Submit starts an exchange for question and returns its sequence number.
// Blank questions are ignored and reported as domain.ErrEmptyQuestion; the
// state is left untouched and no request is made.
func (e *Exchange) Submit(question string) (uint64, error) {
	if strings.TrimSpace(question) == "" {
		return 0, domain.ErrEmptyQuestion
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, domain.ErrExchangeClosed
	}

	if e.inflight != nil {
		e.inflight()
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	e.inflight = cancel

	e.snap.Seq++
	seq := e.snap.Seq
	e.snap.State = domain.ExchangeStatePending
	e.snap.Question = question
	e.snap.Answer = ""
	e.snap.AnswerHTML = ""
	e.snap.UpdatedAt = time.Now()
	e.notifyLocked()

	e.wg.Add(1)
	go e.run(ctx, cancel, seq, question)

	return seq, nil
}

// Close aborts the in-flight request and waits for it to finish.
// Submit fails with domain.ErrExchangeClosed afterwards.
func (e *Exchange) Close() {
	e.abort()
	e.wg.Wait()
}

// abort marks the exchange closed and cancels the in-flight request without
// waiting for it.
func (e *Exchange) abort() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	if e.inflight != nil {
		e.inflight()
		e.inflight = nil
	}
	e.stop()
	e.snap.State = domain.ExchangeStateIdle
	e.snap.UpdatedAt = time.Now()
	e.notifyLocked()
}

func (e *Exchange) run(ctx context.Context, cancel context.CancelFunc, seq uint64, question string) {
	defer e.wg.Done()
	defer cancel()

	res := e.asker.Do(ctx, question)
	outcome, display := Settle(res.Answer, res.Err)
	html := e.renderer.Render(display)

	e.mu.Lock()
	switch {
	case e.closed:
		outcome = domain.OutcomeAborted
	case seq != e.snap.Seq:
		outcome = domain.OutcomeSuperseded
	default:
		e.inflight = nil
		e.snap.State = domain.ExchangeStateIdle
		e.snap.Answer = display
		e.snap.AnswerHTML = html
		e.snap.Outcome = outcome
		e.snap.UpdatedAt = time.Now()
		e.notifyLocked()
	}
	e.mu.Unlock()

	e.logOutcome(seq, outcome, res)
	e.record(seq, question, outcome, res)
}

func (e *Exchange) notifyLocked() {
	close(e.changed)
	e.changed = make(chan struct{})
}

func (e *Exchange) logOutcome(seq uint64, outcome domain.Outcome, res backend.Result) {
	attrs := []any{
		"session_id", e.sessionID,
		"seq", seq,
		"outcome", outcome,
		"latency_ms", res.Latency.Milliseconds(),
	}
	if res.Status != 0 {
		attrs = append(attrs, "status", res.Status)
	}

	switch outcome {
	case domain.OutcomeAnswered:
		slog.Info("exchange answered", attrs...)
	case domain.OutcomeEmptyAnswer:
		slog.Warn("backend returned no answer", append(attrs, "error", res.Err)...)
	case domain.OutcomeFailed:
		slog.Error("failed to get a response", append(attrs, "error", res.Err, "timeout", backend.IsTimeout(res.Err))...)
	default:
		slog.Debug("discarded stale response", attrs...)
	}
}

func (e *Exchange) record(seq uint64, question string, outcome domain.Outcome, res backend.Result) {
	if e.recorder == nil {
		return
	}

	rec := &domain.ExchangeRecord{
		SessionID: e.sessionID,
		Seq:       seq,
		Question:  question,
		Outcome:   outcome,
		Latency:   res.Latency,
		CreatedAt: time.Now(),
	}
	if res.Status != 0 {
		status := res.Status
		rec.HTTPStatus = &status
	}

	// Detached from e.ctx so aborted exchanges are still journaled during Close.
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := e.recorder.Record(ctx, rec); err != nil {
		slog.Error("failed to record exchange", "error", err, "session_id", e.sessionID, "seq", seq)
	}
}

// Settle maps the result of a round trip to its outcome and display text.
func Settle(answer string, err error) (domain.Outcome, string) {
	switch {
	case err == nil && answer != "":
		return domain.OutcomeAnswered, answer
	case err == nil, errors.Is(err, domain.ErrMalformedResponse):
		return domain.OutcomeEmptyAnswer, domain.NoResponseMessage
	default:
		return domain.OutcomeFailed, domain.FailureMessage
	}
}
