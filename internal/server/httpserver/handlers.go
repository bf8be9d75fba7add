package httpserver

import (
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

const localsUser = "user"

type handlers struct {
	deps   Deps
	logger logging.Logger
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type userResponse struct {
	User *models.PublicUser `json:"user"`
}

func (h *handlers) currentUser(c *fiber.Ctx) (*models.PublicUser, bool) {
	return h.deps.Resolver.Resolve(c.UserContext(), c.Get(fiber.HeaderCookie))
}

func (h *handlers) setCookie(c *fiber.Ctx, value string) {
	c.Set(fiber.HeaderSetCookie, value)
}

func (h *handlers) home(c *fiber.Ctx) error {
	user, _ := h.currentUser(c)
	return c.JSON(userResponse{User: user})
}

// redirectIfSignedIn keeps signed-in visitors away from the login and
// register forms.
func (h *handlers) redirectIfSignedIn(c *fiber.Ctx) error {
	if _, ok := h.currentUser(c); ok {
		return c.Redirect(pathDashboard, fiber.StatusFound)
	}
	return c.JSON(fiber.Map{})
}

func (h *handlers) register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	_, token, err := h.deps.Users.Register(c.UserContext(), in)
	if err != nil {
		return h.failure(c, err)
	}

	h.setCookie(c, h.deps.Cookie.EncodeSession(token))
	return c.Redirect(pathDashboard, fiber.StatusFound)
}

func (h *handlers) login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	_, token, err := h.deps.Users.Login(c.UserContext(), in)
	if err != nil {
		return h.failure(c, err)
	}

	h.setCookie(c, h.deps.Cookie.EncodeSession(token))
	return c.Redirect(pathDashboard, fiber.StatusFound)
}

func (h *handlers) logout(c *fiber.Ctx) error {
	h.setCookie(c, h.deps.Cookie.EncodeLogout())
	return c.Redirect(pathHome, fiber.StatusFound)
}

// requireSession is the guard middleware: the resolved user is stored in
// Locals for the next handler, anybody else is sent to the login page.
func (h *handlers) requireSession(c *fiber.Ctx) error {
	out := h.deps.Guard.RequireIdentity(c.UserContext(), c.Get(fiber.HeaderCookie))
	if !out.Authenticated() {
		return c.Redirect(out.RedirectTo, fiber.StatusFound)
	}
	c.Locals(localsUser, out.User)
	return c.Next()
}

func (h *handlers) dashboard(c *fiber.Ctx) error {
	user, _ := c.Locals(localsUser).(*models.PublicUser)
	return c.JSON(userResponse{User: user})
}

func (h *handlers) failure(c *fiber.Ctx, err error) error {
	resp := errorResponse{Error: services.Message(err)}

	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Fields = verr.Fields
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	case errors.Is(err, common.ErrorAlreadyExists), errors.Is(err, common.ErrorUnauthorized):
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(resp)
	}
}
