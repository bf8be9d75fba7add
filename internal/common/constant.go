package common

import "time"

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "token"

// SessionTTL is the lifetime shared by the session token and its cookie.
const SessionTTL = 7 * 24 * time.Hour

// LoginPath is where unauthenticated visitors of protected pages are sent.
const LoginPath = "/login"
