package httpapi

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/metar-service/internal/common"
	"github.com/i474232898/metar-service/internal/weather"
)

var validate = validator.New()

type handlers struct {
	service *weather.Service
	logger  *slog.Logger
}

// RegisterRoutes wires the METAR handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{service: service, logger: logger}

	app.Get("/metar", h.liveStation)
	app.Get("/metar-history", h.historyAggregate)
	app.Get("/historic-rawMETAR", h.historyRaw)
}

func (h *handlers) liveStation(c *fiber.Ctx) error {
	q, err := parseStationQuery(c)
	if err != nil {
		return err
	}

	reports, err := h.service.LiveStation(c.UserContext(), q.Station)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(reports)
}

// historyAggregate answers an absent icao with an empty list rather than a 400;
// the service owns that branch.
func (h *handlers) historyAggregate(c *fiber.Ctx) error {
	var q historyQuery
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	rows, err := h.service.HistoryAggregate(c.UserContext(), q.ICAO)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(rows)
}

func (h *handlers) historyRaw(c *fiber.Ctx) error {
	q, err := parseRawQuery(c)
	if err != nil {
		return err
	}

	rows, err := h.service.HistoryRaw(c.UserContext(), q.ICAO, weather.DateRange{
		Start: q.StartDate,
		End:   q.EndDate,
	})
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(rows)
}

// serviceError maps service errors onto the response shapes of each error class.
// Store failures are logged here and hidden from the caller.
func (h *handlers) serviceError(c *fiber.Ctx, err error) error {
	var (
		validationErr *weather.ValidationError
		upstreamErr   *weather.UpstreamError
		storeErr      *weather.StoreError
	)
	switch {
	case errors.As(err, &validationErr):
		return fiber.NewError(fiber.StatusBadRequest, validationErr.Error())
	case errors.As(err, &upstreamErr):
		h.logger.Error("upstream request failed",
			"path", c.Path(),
			"provider", upstreamErr.Provider,
			"station", upstreamErr.Station,
			"status", upstreamErr.StatusCode,
			"error", err,
		)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	case errors.As(err, &storeErr):
		h.logger.Error("store query failed",
			"path", c.Path(),
			"op", storeErr.Op,
			"error", storeErr.Err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON([]any{})
	default:
		h.logger.Error("request failed", "path", c.Path(), "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// stationQuery holds the query parameters of the live endpoint.
type stationQuery struct {
	Station string `query:"station" validate:"required"`
}

func parseStationQuery(c *fiber.Ctx) (stationQuery, error) {
	var q stationQuery
	if err := c.QueryParser(&q); err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q.Station = common.NormalizeStation(q.Station)

	if err := validate.Struct(q); err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, "Missing station code")
	}
	return q, nil
}

// historyQuery holds the query parameters of the summary history endpoint.
type historyQuery struct {
	ICAO string `query:"icao"`
}

// rawQuery holds the query parameters of the raw history endpoint.
// Dates are forwarded to the store without format or order checks.
type rawQuery struct {
	ICAO      string `query:"icao" validate:"required"`
	StartDate string `query:"startDateInput"`
	EndDate   string `query:"endDateInput"`
}

func parseRawQuery(c *fiber.Ctx) (rawQuery, error) {
	var q rawQuery
	if err := c.QueryParser(&q); err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q.ICAO = common.NormalizeStation(q.ICAO)

	if err := validate.Struct(q); err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, "Missing ICAO code")
	}
	return q, nil
}
