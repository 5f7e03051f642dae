package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/i474232898/metar-service/internal/scheduler"
)

const appName = "metar-service"

// AppOptions configures NewApp.
type AppOptions struct {
	CORSAllowOrigins string
	// AccessLog enables the Fiber request logger.
	AccessLog bool
}

// NewApp builds the Fiber app with the shared error handler and middleware.
func NewApp(opts AppOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          ErrorHandler,
	})

	origins := opts.CORSAllowOrigins
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,HEAD,OPTIONS",
	}))

	return app
}

// ErrorHandler renders every error as {"error": <message>}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := err.Error()

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": msg,
	})
}

// StoreStatusSource reports the last known store health.
type StoreStatusSource interface {
	StoreStatus() string
}

// RegisterOps adds the health and metrics endpoints. metrics may be nil.
func RegisterOps(app *fiber.App, status StoreStatusSource, metrics http.Handler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		storeStatus := scheduler.StatusUnknown
		if status != nil {
			storeStatus = status.StoreStatus()
		}

		overall := "ok"
		if storeStatus == scheduler.StatusDown {
			overall = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":  overall,
			"service": appName,
			"store":   storeStatus,
		})
	})

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}
}
