package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	// ContextKeySession is the key for storing the widget session id in request context.
	ContextKeySession contextKey = "session"

	// SessionCookieName identifies the widget instance across requests.
	SessionCookieName = "askwidget_session"
)

// SessionMiddleware assigns every browser a widget session id.
type SessionMiddleware struct {
	maxAge time.Duration
	secure bool
}

// NewSessionMiddleware creates a SessionMiddleware whose cookie lives for maxAge.
func NewSessionMiddleware(maxAge time.Duration, secure bool) *SessionMiddleware {
	return &SessionMiddleware{
		maxAge: maxAge,
		secure: secure,
	}
}

// Attach reads the session cookie, issuing a new one when missing or malformed,
// and adds the session id to the request context.
func (m *SessionMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				sessionID = cookie.Value
			}
		}

		if sessionID == "" {
			sessionID = uuid.New().String()
			slog.Debug("issued widget session", "session_id", sessionID)
		}

		// Refreshed on every request so the cookie outlives the idle TTL only while in use.
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   int(m.maxAge.Seconds()),
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithValue(r.Context(), ContextKeySession, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionFromContext retrieves the widget session id from request context.
func GetSessionFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(ContextKeySession).(string)
	if !ok || sessionID == "" {
		return "", false
	}
	return sessionID, true
}
