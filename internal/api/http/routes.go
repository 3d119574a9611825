package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/pressure-forecast/internal/barometer"
	"github.com/i474232898/pressure-forecast/internal/monitor"
	"github.com/i474232898/pressure-forecast/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *monitor.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/pressure/current", func(c *fiber.Ctx) error {
		unit, err := parseUnitQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := service.Current()
		if err != nil {
			if errors.Is(err, monitor.ErrNoReading) {
				return fiber.NewError(fiber.StatusNotFound, "no pressure reading yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read pressure")
		}

		return c.JSON(fiber.Map{
			"snapshot": rec,
			"display":  barometer.Format(rec.PressureKPa, unit),
			"unit":     unit,
		})
	})

	v1.Post("/pressure/readings", func(c *fiber.Ctx) error {
		var req readingRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		kPa, err := req.kPa()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec := service.Ingest(monitor.ManualSource, kPa)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"trend":    rec.Trend,
			"forecast": rec.Forecast,
			"snapshot": rec,
		})
	})

	v1.Get("/pressure/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := service.History(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no pressure history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch pressure history")
		}

		return c.JSON(fiber.Map{
			"from":      req.From,
			"to":        req.To,
			"snapshots": records,
		})
	})

	v1.Get("/pressure/convert", func(c *fiber.Ctx) error {
		var q convertQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		kPa := q.Value
		if q.From == string(barometer.UnitInHg) {
			kPa = barometer.ToKPa(q.Value)
		}

		return c.JSON(fiber.Map{
			"kpa":  kPa,
			"inHg": barometer.ToInHg(kPa),
		})
	})

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		var q forecastQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		trend, _ := barometer.ParseTrend(q.Trend)
		resolver := service.Resolver()
		idx, _, matched := resolver.Match(q.PressureKPa, trend)

		resp := fiber.Map{
			"pressureKpa":  q.PressureKPa,
			"pressureInHg": barometer.ToInHg(q.PressureKPa),
			"trend":        trend,
			"forecast":     resolver.Resolve(q.PressureKPa, trend),
			"matched":      matched,
		}
		if matched {
			resp["rule"] = idx
		}
		return c.JSON(resp)
	})

	v1.Get("/forecast/rules", func(c *fiber.Ctx) error {
		rules := service.Resolver().Rules()
		shadowed := make(map[int]bool)
		for _, i := range barometer.Shadowed(rules) {
			shadowed[i] = true
		}

		out := make([]ruleView, len(rules))
		for i, r := range rules {
			out[i] = ruleView{
				Index:    i,
				Band:     r.Band.String(),
				Trend:    r.Trend,
				Text:     r.Text,
				Shadowed: shadowed[i],
			}
		}
		return c.JSON(fiber.Map{"rules": out})
	})
}

type ruleView struct {
	Index    int             `json:"index"`
	Band     string          `json:"band"`
	Trend    barometer.Trend `json:"trend"`
	Text     string          `json:"text"`
	Shadowed bool            `json:"shadowed"`
}

// readingRequest accepts either pressureKpa or pressure with a unit.
type readingRequest struct {
	PressureKPa *float64 `json:"pressureKpa"`
	Pressure    *float64 `json:"pressure"`
	Unit        string   `json:"unit"`
}

func (r readingRequest) kPa() (float64, error) {
	switch {
	case r.PressureKPa != nil:
		return *r.PressureKPa, nil
	case r.Pressure != nil:
		if r.Unit == "" {
			return *r.Pressure, nil
		}
		u, err := barometer.ParseUnit(r.Unit)
		if err != nil {
			return 0, err
		}
		if u == barometer.UnitInHg {
			return barometer.ToKPa(*r.Pressure), nil
		}
		return *r.Pressure, nil
	default:
		return 0, errors.New("pressureKpa or pressure is required")
	}
}

func parseUnitQuery(c *fiber.Ctx) (barometer.Unit, error) {
	raw := c.Query("unit")
	if raw == "" {
		return barometer.UnitKPa, nil
	}
	return barometer.ParseUnit(raw)
}

// convertQuery holds query parameters for the conversion endpoint.
type convertQuery struct {
	Value float64
	From  string `validate:"required,oneof=kpa inhg"`
}

func (q *convertQuery) bind(c *fiber.Ctx) error {
	raw := c.Query("value")
	if raw == "" {
		return errors.New("value query parameter is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return errors.New("value must be a number")
	}
	q.Value = v
	q.From = c.Query("from", string(barometer.UnitKPa))
	return validate.Struct(q)
}

// forecastQuery holds query parameters for the stateless forecast endpoint.
type forecastQuery struct {
	PressureKPa float64 `validate:"gt=0"`
	Trend       string  `validate:"required,oneof=steady rising_rapidly falling_rapidly rising_slowly falling_slowly"`
}

func (q *forecastQuery) bind(c *fiber.Ctx) error {
	raw := c.Query("pressureKpa")
	if raw == "" {
		return errors.New("pressureKpa query parameter is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return errors.New("pressureKpa must be a number")
	}
	q.PressureKPa = v
	q.Trend = c.Query("trend", barometer.Steady.String())
	return validate.Struct(q)
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
