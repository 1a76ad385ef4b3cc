package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CookieName carries the signed browser-session identifier.
const CookieName = "authproc_session"

// contextKey caches the resolved session id on the echo context so every
// SessionID call within one request sees the same id, including requests
// that arrived without a cookie.
const contextKey = "authproc.session_id"

// Manager identifies browser sessions via an HS256-signed cookie. The
// cookie carries an opaque session id only; all session state lives in a
// MarkerStore keyed by that id.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret []byte, ttl time.Duration) *Manager {
	return &Manager{secret: secret, ttl: ttl}
}

// SessionID returns the request's session id, minting and setting a new
// signed cookie when the request carries none (or an invalid one).
func (m *Manager) SessionID(c echo.Context) string {
	if sid, ok := c.Get(contextKey).(string); ok && sid != "" {
		return sid
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		if sid, err := m.parse(cookie.Value); err == nil {
			c.Set(contextKey, sid)
			return sid
		}
	}

	sid := uuid.NewString()
	c.Set(contextKey, sid)
	token, err := m.sign(sid)
	if err != nil {
		// Signing only fails on a broken key; fall back to an uncookied
		// per-request id so the pipeline still runs.
		return sid
	}
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

func (m *Manager) sign(sid string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sid": sid,
		"iat": now.Unix(),
		"exp": now.Add(m.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) parse(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("session: unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("session: invalid token")
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", fmt.Errorf("session: token has no session id")
	}
	return sid, nil
}
