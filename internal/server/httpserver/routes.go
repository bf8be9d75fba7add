package httpserver

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	pathHome      = "/"
	pathLogin     = "/login"
	pathRegister  = "/register"
	pathLogout    = "/logout"
	pathDashboard = "/dashboard"
	pathMetrics   = "/metrics"
)

func newApp(deps Deps, logger logging.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		// Parsed values outlive the request once they reach a store.
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	h := &handlers{deps: deps, logger: logger}

	app.Use(requestLogger(logger))

	app.Get(pathHome, h.home)
	app.Get(pathLogin, h.redirectIfSignedIn)
	app.Post(pathLogin, h.login)
	app.Get(pathRegister, h.redirectIfSignedIn)
	app.Post(pathRegister, h.register)
	app.Get(pathLogout, h.logout)
	app.Post(pathLogout, h.logout)
	app.Get(pathDashboard, h.requireSession, h.dashboard)

	if deps.Gatherer != nil {
		app.Get(pathMetrics, adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	return app
}

func requestLogger(logger logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		logger.Info(c.UserContext(), "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
		)
		return err
	}
}

func errorHandler(logger logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			logger.Error(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
