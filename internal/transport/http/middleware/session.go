package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultSessionCookie = "uc_session"
	sessionIDKey         = "session_id"
	sessionRotateKey     = "session_rotate"
)

// SessionConfig carries the session cookie settings.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Session assigns every client an opaque session identifier held in an
// HttpOnly cookie. The identifier keys the server-side login state; no
// claims are stored client-side.
func Session(cfg SessionConfig) gin.HandlerFunc {
	name := cfg.CookieName
	if name == "" {
		name = defaultSessionCookie
	}
	maxAge := int(cfg.TTL.Seconds())
	if maxAge <= 0 {
		maxAge = int((24 * time.Hour).Seconds())
	}

	return func(c *gin.Context) {
		sid, err := c.Cookie(name)
		if err != nil || sid == "" {
			sid = uuid.NewString()
			c.SetCookie(name, sid, maxAge, "/", "", cfg.Secure, true)
		}
		c.Set(sessionIDKey, sid)
		c.Set(sessionRotateKey, func() string {
			fresh := uuid.NewString()
			setSessionCookie(c, name, fresh, maxAge, cfg.Secure)
			c.Set(sessionIDKey, fresh)
			return fresh
		})

		c.Next()
	}
}

// setSessionCookie writes the cookie, dropping any Set-Cookie header for the
// same name already queued on this response.
func setSessionCookie(c *gin.Context, name, value string, maxAge int, secure bool) {
	header := c.Writer.Header()
	queued := header.Values("Set-Cookie")
	header.Del("Set-Cookie")
	for _, raw := range queued {
		if !strings.HasPrefix(raw, name+"=") {
			header.Add("Set-Cookie", raw)
		}
	}
	c.SetCookie(name, value, maxAge, "/", "", secure, true)
}

// SessionID returns the session identifier assigned by the Session
// middleware, or an empty string when the middleware did not run.
func SessionID(c *gin.Context) string {
	if sid, exists := c.Get(sessionIDKey); exists {
		if id, ok := sid.(string); ok {
			return id
		}
	}
	return ""
}

// RotateSession discards the identifier the client presented and issues a
// fresh one, updating both the cookie and the request context. Login calls
// this before storing the principal so an identifier planted before
// authentication never names a live session.
func RotateSession(c *gin.Context) string {
	if fn, exists := c.Get(sessionRotateKey); exists {
		if rotate, ok := fn.(func() string); ok {
			return rotate()
		}
	}
	return SessionID(c)
}
