package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const TokenCookie = "token"

// Manager writes and clears the session cookie. In production the cookie is
// Secure with SameSite=None (cross-site front end); elsewhere it relaxes to
// Lax over plain HTTP.
type Manager struct {
	Domain     string
	Production bool
}

func NewCookie(domain string, production bool) *Manager {
	return &Manager{Domain: domain, Production: production}
}

func (m *Manager) sameSite() http.SameSite {
	if m.Production {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// Set stores the session token as an HttpOnly cookie expiring with the token.
func (m *Manager) Set(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(m.sameSite())
	c.SetCookie(TokenCookie, token, maxAgeFrom(exp), "/", m.Domain, m.Production, true)
}

// Clear overwrites the cookie with an empty value and zero lifetime. The token
// itself stays cryptographically valid until expiry if replayed.
func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(m.sameSite())
	c.SetCookie(TokenCookie, "", -1, "/", m.Domain, m.Production, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
