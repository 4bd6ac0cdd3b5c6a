package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tenantly/internal/auth/domain"
	"github.com/smallbiznis/tenantly/internal/config"
)

const DefaultCookieName = "tenantly_session"

// Manager carries identity session tokens in a host-only cookie, so a
// session issued on one tenant host is never sent to another.
type Manager struct {
	cookieName string
	secure     bool
	now        func() time.Time
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     cfg.AuthCookieSecure,
		now:        time.Now,
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// ReadToken returns the session token presented by the request, if any.
func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Set stores the session token until the session expires. Sessions without a
// token or already past expiry leave the cookie untouched.
func (m *Manager) Set(c *gin.Context, sess *domain.Session) {
	if sess == nil || strings.TrimSpace(sess.Token) == "" {
		return
	}
	maxAge := int(sess.ExpiresAt.Sub(m.now()).Seconds())
	if maxAge <= 0 {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, sess.Token, maxAge, "/", "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}
