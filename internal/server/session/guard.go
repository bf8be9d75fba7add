package session

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Outcome is what a protected boundary gets back: either a User, or a
// RedirectTo location the transport must send the visitor to.
type Outcome struct {
	User       *models.PublicUser
	RedirectTo string
}

func (o Outcome) Authenticated() bool {
	return o.User != nil
}

// Guard gates protected resources behind a resolved session.
type Guard struct {
	resolver  *Resolver
	loginPath string
}

func NewGuard(resolver *Resolver) *Guard {
	return &Guard{resolver: resolver, loginPath: common.LoginPath}
}

// RequireIdentity resolves cookieHeader or asks for a redirect to the login
// page.
func (g *Guard) RequireIdentity(ctx context.Context, cookieHeader string) Outcome {
	if user, ok := g.resolver.Resolve(ctx, cookieHeader); ok {
		return Outcome{User: user}
	}
	return Outcome{RedirectTo: g.loginPath}
}
