// Package api exposes the metrics engine over HTTP. Handlers fetch the raw
// payload from the configured source, run it through validation and
// normalization, and return derived views; all engine failures surface as
// explicit response values, never panics.
package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Compunnel-EAB/copilot-metrics-viewer/internal"
	"github.com/Compunnel-EAB/copilot-metrics-viewer/internal/copilot"
)

// Source supplies raw provider data, either the live GitHub client or a
// local fixture source in mock-data mode.
type Source interface {
	Metrics() ([]byte, error)
	Seats() ([]copilot.Seat, error)
}

type Server struct {
	source         Source
	scope          copilot.Scope
	normalizer     *copilot.Normalizer
	inactivityDays int
	logger         *zap.Logger
}

func NewServer(source Source, scope copilot.Scope, inactivityDays int, logger *zap.Logger) *Server {
	return &Server{
		source:         source,
		scope:          scope,
		normalizer:     copilot.NewNormalizer(scope, logger),
		inactivityDays: inactivityDays,
		logger:         logger,
	}
}

func (s *Server) Register(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/metrics", s.handleMetrics)
	api.Get("/breakdown/:dimension", s.handleBreakdown)
	api.Get("/seats", s.handleSeats)
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	records, done, err := s.loadRecords(c)
	if done {
		return err
	}
	return c.JSON(fiber.Map{
		"scope":   s.scope,
		"records": records,
	})
}

func (s *Server) handleBreakdown(c *fiber.Ctx) error {
	dim, err := copilot.ParseDimension(c.Params("dimension"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	dateRange, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	records, done, err := s.loadRecords(c)
	if done {
		return err
	}
	return c.JSON(copilot.Aggregate(records, dim, dateRange))
}

func (s *Server) handleSeats(c *fiber.Ctx) error {
	asOf := time.Now().UTC()
	if v := c.Query("as_of"); v != "" {
		t, err := parseAsOf(v)
		if err != nil {
			return badRequest(c, err.Error())
		}
		asOf = t
	}

	seats, err := s.source.Seats()
	if err != nil {
		s.logger.Error("failed to list copilot seats", zap.Error(err))
		internal.PayloadsFetched.WithLabelValues("seats", "error").Inc()
		return upstreamError(c, "failed to fetch seat data from provider")
	}
	internal.PayloadsFetched.WithLabelValues("seats", "ok").Inc()

	summary := copilot.AnalyzeSeats(seats, s.inactivityDays, asOf)
	internal.SeatsAnalyzed.Set(float64(summary.TotalSeats))
	return c.JSON(summary)
}

// loadRecords runs fetch → validate → normalize and writes the error
// response itself when any stage fails. The flag reports whether a response
// has been written; the error is whatever the response write returned, for
// the handler to hand back to fiber.
func (s *Server) loadRecords(c *fiber.Ctx) ([]copilot.MetricsRecord, bool, error) {
	payload, err := s.source.Metrics()
	if err != nil {
		s.logger.Error("failed to fetch copilot metrics", zap.Error(err))
		internal.PayloadsFetched.WithLabelValues("metrics", "error").Inc()
		return nil, true, upstreamError(c, "failed to fetch metrics from provider")
	}
	internal.PayloadsFetched.WithLabelValues("metrics", "ok").Inc()

	result := copilot.Validate(payload, s.scope)
	if !result.OK() {
		kind := "schema_violation"
		if result.Unrecognized {
			kind = "unrecognized_schema"
		}
		internal.ValidationFailures.WithLabelValues(kind).Inc()
		s.logger.Warn("provider payload failed validation",
			zap.String("scope", string(s.scope)),
			zap.String("kind", kind),
			zap.Int("violations", len(result.Violations)),
		)
		return nil, true, c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":        "unexpected data from provider",
			"unrecognized": result.Unrecognized,
			"violations":   result.Violations,
		})
	}

	records, err := s.normalizer.Normalize(payload, result.Revision)
	if err != nil {
		// A validated payload the normalizer cannot map is an internal
		// defect, never a data problem; log everything, report nothing.
		var convErr *copilot.ConversionError
		if errors.As(err, &convErr) {
			s.logger.Error("validator accepted a payload the normalizer cannot map",
				zap.String("scope", string(convErr.Scope)),
				zap.String("revision", string(convErr.Revision)),
				zap.String("reason", convErr.Reason),
				zap.Error(convErr.Err),
			)
		} else {
			s.logger.Error("normalization failed", zap.Error(err))
		}
		return nil, true, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}
	internal.RecordsNormalized.Add(float64(len(records)))

	return records, false, nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func upstreamError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": msg})
}

func parseDateRange(from, to string) (copilot.DateRange, error) {
	for _, v := range []string{from, to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return copilot.DateRange{}, errors.New("invalid date format: use YYYY-MM-DD")
		}
	}
	if from != "" && to != "" && from > to {
		return copilot.DateRange{}, errors.New("from must not be after to")
	}
	return copilot.DateRange{From: from, To: to}, nil
}

func parseAsOf(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("invalid as_of: use RFC 3339 or YYYY-MM-DD")
}
