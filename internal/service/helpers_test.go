package service_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/mtlprog/askwidget/internal/backend"
	"github.com/mtlprog/askwidget/internal/domain"
)

// fakeAsker records every question and answers through respond.
type fakeAsker struct {
	mu      sync.Mutex
	calls   []string
	ctxs    []context.Context
	respond func(ctx context.Context, question string) backend.Result
}

func (f *fakeAsker) Do(ctx context.Context, question string) backend.Result {
	f.mu.Lock()
	f.calls = append(f.calls, question)
	f.ctxs = append(f.ctxs, ctx)
	respond := f.respond
	f.mu.Unlock()

	return respond(ctx, question)
}

func (f *fakeAsker) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// ContextFor returns the context the first call with question was made with.
func (f *fakeAsker) ContextFor(question string) context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, q := range f.calls {
		if q == question {
			return f.ctxs[i]
		}
	}
	return nil
}

func answering(answer string) *fakeAsker {
	return &fakeAsker{respond: func(context.Context, string) backend.Result {
		return backend.Result{Answer: answer, Status: 200}
	}}
}

func failing(err error) *fakeAsker {
	return &fakeAsker{respond: func(context.Context, string) backend.Result {
		return backend.Result{Err: err}
	}}
}

// blocking answers only when release is closed, or fails when ctx ends first.
func blocking(release <-chan struct{}, answer string) *fakeAsker {
	return &fakeAsker{respond: func(ctx context.Context, _ string) backend.Result {
		select {
		case <-release:
			return backend.Result{Answer: answer, Status: 200}
		case <-ctx.Done():
			return backend.Result{Err: fmt.Errorf("%w: %w", domain.ErrTransport, ctx.Err())}
		}
	}}
}

// fakeRecorder collects journal entries.
type fakeRecorder struct {
	mu      sync.Mutex
	records []domain.ExchangeRecord
}

func (r *fakeRecorder) Record(_ context.Context, rec *domain.ExchangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *rec)
	return nil
}

func (r *fakeRecorder) Records() []domain.ExchangeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ExchangeRecord, len(r.records))
	copy(out, r.records)
	return out
}
