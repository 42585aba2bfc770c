package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	logpkg "github.com/anil-trigital/GST/pkg/log"
	"github.com/gofiber/fiber/v2"
)

const shutdownTimeout = 30 * time.Second

// NewApp assembles the fiber application: liveness endpoint plus the
// authenticated batch resource.
func NewApp(handler *BatchHandler, auth BasicAuthFunc, logger logpkg.Logger) *fiber.App {
	if logger == nil {
		logger = logpkg.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "gst-platform",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(ErrorResponse{
					Code:    "request_error",
					Title:   "Request Error",
					Message: fe.Message,
				})
			}

			logger.Log(c.UserContext(), logpkg.LevelError, "handler error",
				logpkg.String("method", c.Method()),
				logpkg.String("path", c.Path()),
				logpkg.Err(err),
			)

			return InternalServerError(c)
		},
	})

	app.Get("/health", Ping)
	app.Post("/v1/batches", WithBasicAuth(auth, "gst-platform"), handler.Handle)

	return app
}

// Run serves the application until SIGINT/SIGTERM, then shuts down
// gracefully within the shutdown timeout.
func Run(app *fiber.App, address string, logger logpkg.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- app.Listen(address)
	}()

	logger.Log(ctx, logpkg.LevelInfo, "server listening", logpkg.String("address", address))

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Log(context.Background(), logpkg.LevelInfo, "shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}

	return <-serveErr
}
