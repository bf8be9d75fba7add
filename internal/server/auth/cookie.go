package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// SessionCookie renders and parses the cookie carrying the session token.
type SessionCookie struct {
	Name   string
	Path   string
	MaxAge time.Duration
	// Secure adds the Secure attribute. Off unless configured.
	Secure bool
}

// DefaultSessionCookie is token=...; HttpOnly; Path=/; Max-Age=604800; SameSite=Lax.
var DefaultSessionCookie = SessionCookie{
	Name:   common.SessionCookieName,
	Path:   "/",
	MaxAge: common.SessionTTL,
}

// NewSessionCookie returns DefaultSessionCookie with the Secure switch set.
func NewSessionCookie(secure bool) SessionCookie {
	c := DefaultSessionCookie
	c.Secure = secure
	return c
}

// EncodeSession returns the Set-Cookie value that stores token.
func (c SessionCookie) EncodeSession(token string) string {
	return c.encode(token, int(c.MaxAge/time.Second))
}

// EncodeLogout returns the Set-Cookie value that makes the client drop the
// session cookie.
func (c SessionCookie) EncodeLogout() string {
	return c.encode("", 0)
}

func (c SessionCookie) encode(value string, maxAge int) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteString("; HttpOnly; Path=")
	b.WriteString(c.Path)
	b.WriteString("; Max-Age=")
	b.WriteString(strconv.Itoa(maxAge))
	b.WriteString("; SameSite=Lax")
	if c.Secure {
		b.WriteString("; Secure")
	}
	return b.String()
}

// ExtractToken returns the session token from a Cookie request header.
//
// Pairs are separated by ';' and split at their first '='. Values are taken
// verbatim. Pairs without '=' are skipped, the last occurrence of the name
// wins, and an empty value counts as no token.
func (c SessionCookie) ExtractToken(header string) (string, bool) {
	var token string
	for _, pair := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(name) == c.Name {
			token = strings.TrimSpace(value)
		}
	}
	return token, token != ""
}

func EncodeSession(token string) string {
	return DefaultSessionCookie.EncodeSession(token)
}

func EncodeLogout() string {
	return DefaultSessionCookie.EncodeLogout()
}

func ExtractToken(header string) (string, bool) {
	return DefaultSessionCookie.ExtractToken(header)
}
