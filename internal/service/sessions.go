package service

import (
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ExchangeFactory builds the Exchange for a new widget session.
type ExchangeFactory func(sessionID string) *Exchange

// Sessions keeps one Exchange per widget session in memory.
// Idle sessions expire after the TTL; expiry closes the Exchange, aborting
// any request still in flight.
type Sessions struct {
	mu          sync.Mutex
	cache       *gocache.Cache
	newExchange ExchangeFactory
	draining    sync.WaitGroup // evicted exchanges still finishing their request
}

// NewSessions creates a registry whose entries expire after ttl without access.
func NewSessions(ttl time.Duration, factory ExchangeFactory) *Sessions {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}

	s := &Sessions{
		cache:       gocache.New(ttl, cleanup),
		newExchange: factory,
	}
	s.cache.OnEvicted(s.evicted)
	return s
}

// evicted runs under s.mu (or on the janitor). It only aborts the Exchange;
// waiting for the aborted request happens in the background so other
// sessions are not held up.
func (s *Sessions) evicted(id string, v interface{}) {
	ex, ok := v.(*Exchange)
	if !ok {
		return
	}
	slog.Debug("widget session evicted", "session_id", id)

	ex.abort()
	s.draining.Add(1)
	go func() {
		defer s.draining.Done()
		ex.Close()
	}()
}

// Exchange returns the session's Exchange, creating it on first use.
// Every call extends the session's lifetime.
func (s *Sessions) Exchange(sessionID string) *Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, found := s.cache.Get(sessionID); found {
		ex := v.(*Exchange)
		s.cache.SetDefault(sessionID, ex)
		return ex
	}

	// An expired entry may still be stored until the janitor runs; deleting it
	// fires OnEvicted so the old Exchange is aborted before it is replaced.
	s.cache.Delete(sessionID)

	ex := s.newExchange(sessionID)
	s.cache.SetDefault(sessionID, ex)
	slog.Debug("widget session created", "session_id", sessionID)
	return ex
}

// Lookup returns an existing session's Exchange without creating one.
func (s *Sessions) Lookup(sessionID string) (*Exchange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found := s.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	ex := v.(*Exchange)
	s.cache.SetDefault(sessionID, ex)
	return ex, true
}

// End tears a session down immediately.
func (s *Sessions) End(sessionID string) {
	s.cache.Delete(sessionID)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.cache.ItemCount()
}

// Close tears down every session and waits for their requests to finish.
func (s *Sessions) Close() {
	s.mu.Lock()
	s.cache.DeleteExpired()
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}
	s.mu.Unlock()

	s.draining.Wait()
}
