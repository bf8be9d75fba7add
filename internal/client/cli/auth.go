package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for email, name and password and creates an account.
// On success the new session is current.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	name, err := getSimpleText(a.reader, "Enter name (optional)", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	u, err := a.authService.Register(ctx, email, password, name)
	if err != nil {
		a.report(err)
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", u.DisplayName())
	return nil
}

// Login prompts for credentials and opens a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	u, err := a.authService.Login(ctx, email, password)
	if err != nil {
		a.report(err)
		return err
	}

	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Signed in as %s\n", u.Email)
	return nil
}

// WhoAmI prints the user the server associates with the current session.
func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.authService.WhoAmI(ctx)
	if err != nil {
		a.report(err)
		return err
	}

	fmt.Fprintf(a.out, "id:      %s\nemail:   %s\nname:    %s\nsince:   %s\n",
		u.ID, u.Email, u.Name, u.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// Logout ends the session. The local session is dropped even if the server
// cannot be told.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		a.report(err)
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

// report turns a command error into a line for the user.
func (a *App) report(err error) {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		fmt.Fprintln(a.out, apiErr.Error())
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
		fmt.Fprintln(a.out, "Server unavailable, try again later")
	case errors.Is(err, client.ErrUnauthorized):
		fmt.Fprintln(a.out, "Not signed in")
	default:
		fmt.Fprintf(a.out, "error: %v\n", err)
	}
}
