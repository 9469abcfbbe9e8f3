package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-warnings/internal/store"
	"github.com/i474232898/weather-warnings/internal/warnings"
)

var validate = validator.New()

// Cache is the part of warnings.Cache the API needs.
type Cache interface {
	Current() (warnings.Snapshot, bool)
	Status() warnings.Status
	CheckReadiness(ctx context.Context) error
	Refresh(ctx context.Context) (warnings.Snapshot, error)
}

// States is the display surface the API reads region states from.
type States interface {
	Get(id warnings.RegionID) (warnings.RegionState, error)
	List() []warnings.RegionState
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, cache Cache, states States) {
	app.Get("/readyz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := cache.CheckReadiness(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	v1.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(cache.Status())
	})

	v1.Get("/snapshot", func(c *fiber.Ctx) error {
		snap, ok := cache.Current()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no snapshot available yet")
		}
		return c.JSON(snap)
	})

	v1.Get("/regions", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"regions": states.List(),
		})
	})

	v1.Get("/regions/:id", func(c *fiber.Ctx) error {
		req, err := parseRegionParam(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		state, err := states.Get(warnings.NewRegionID(req.ID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "region is not configured")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read region state")
		}
		return c.JSON(state)
	})

	// Manual refresh; shares the in-flight fetch if a scheduled one is running.
	v1.Post("/refresh", func(c *fiber.Ctx) error {
		snap, err := cache.Refresh(c.UserContext())
		if err != nil {
			var fe *warnings.FetchError
			if errors.As(err, &fe) && fe.Kind == warnings.KindTimeout {
				return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
			}
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(fiber.Map{
			"fetchedAt": snap.FetchedAt,
			"alerts":    len(snap.Alerts),
		})
	})
}

// regionParam holds the path parameter identifying a region.
type regionParam struct {
	ID string `validate:"required,max=32,printascii"`
}

func parseRegionParam(c *fiber.Ctx) (regionParam, error) {
	p := regionParam{ID: c.Params("id")}
	if err := validate.Struct(p); err != nil {
		return p, err
	}
	return p, nil
}
