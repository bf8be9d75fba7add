// Package client talks to the gophauth server over its HTTP routes.
//
// # Overview
//
// Client is the transport-agnostic contract the CLI depends on; HTTPClient is
// the implementation. It posts forms to /register and /login, keeps the
// session cookie from Set-Cookie in memory and replays it in the Cookie
// header, exactly like a browser would. Redirects are not followed: a 302 to
// /dashboard means success, the Location is only inspected.
//
// # Error Handling
//
// Conditions callers branch on are sentinel errors matched with errors.Is:
// ErrUnavailable (transport failure or 5xx) and ErrUnauthorized (no session).
// Rejected form submissions come back as *APIError carrying the server's
// message and per-field details.
package client
