package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/askwidget/internal/backend"
	"github.com/mtlprog/askwidget/internal/domain"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := backend.New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestAskSendsQuestion(t *testing.T) {
	var got backend.AskRequest
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ask", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer": "**bold**"}`))
	})

	answer, err := c.Ask(context.Background(), "What is the fee?")
	require.NoError(t, err)
	assert.Equal(t, "**bold**", answer)
	assert.Equal(t, "What is the fee?", got.Question)
}

func TestAskURLJoinsBasePath(t *testing.T) {
	c, err := backend.New("https://example.com/bot/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/bot/ask", c.AskURL())

	c, err = backend.New("http://localhost:8000")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/ask", c.AskURL())
}

func TestAskMissingAnswer(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"answer": ""}`,
		`{"answer": 42}`,
		`{"message": "Server is running!"}`,
		`["answer"]`,
		`null`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := c.Ask(context.Background(), "q")
			assert.ErrorIs(t, err, domain.ErrMalformedResponse)
		})
	}
}

func TestAskUndecodableBody(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	})

	_, err := c.Ask(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrUndecodableResponse)
}

func TestAskServerError(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"answer": "should be ignored"}`))
	})

	res := c.Do(context.Background(), "q")
	require.ErrorIs(t, res.Err, domain.ErrServerStatus)
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.Empty(t, res.Answer)

	var statusErr *backend.StatusError
	require.True(t, errors.As(res.Err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestAskTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := backend.New(url)
	require.NoError(t, err)

	res := c.Do(context.Background(), "q")
	assert.ErrorIs(t, res.Err, domain.ErrTransport)
	assert.Zero(t, res.Status)
}

func TestAskHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Ask(ctx, "q")
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.True(t, backend.IsTimeout(err))
}

func TestAskTruncatesOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer": "` + strings.Repeat("a", 256) + `"}`))
	}))
	defer srv.Close()

	c, err := backend.New(srv.URL, backend.WithMaxResponseBytes(64))
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrUndecodableResponse)
}

func TestAskSendsExtraHeaders(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"answer": "ok"}`))
	}))
	defer srv.Close()

	c, err := backend.New(srv.URL, backend.WithHeader("User-Agent", "askwidget-test"))
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "askwidget-test", agent)
}

func TestAskUsesCustomHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"answer": "late"}`))
	}))
	defer srv.Close()

	c, err := backend.New(srv.URL, backend.WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrTransport)
}
